package core

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/voicerelay-server/internal/proto"
)

func benchmarkBroadcast(b *testing.B, recipients int) {
	logger := zerolog.Nop()
	reg := NewRegistry(&logger)

	sender := reg.Join("bench", &fakeConn{}, "sender")
	for i := 0; i < recipients; i++ {
		reg.Join("bench", &fakeConn{}, fmt.Sprintf("peer-%d", i))
	}

	frame := proto.ChatEvent{
		Type:         proto.TypeChat,
		FromClientID: sender.ID,
		FromName:     "sender",
		Message:      "payload",
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		reg.Broadcast(context.Background(), "bench", frame, sender.ID)
	}
}

func BenchmarkBroadcast_10(b *testing.B)  { benchmarkBroadcast(b, 10) }
func BenchmarkBroadcast_100(b *testing.B) { benchmarkBroadcast(b, 100) }
func BenchmarkBroadcast_500(b *testing.B) { benchmarkBroadcast(b, 500) }
