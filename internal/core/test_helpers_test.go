package core

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/voicerelay-server/internal/proto"
)

// fakeConn records delivered frames and can be flipped into a failing state
// to simulate a dead peer.
type fakeConn struct {
	mu      sync.Mutex
	frames  []any
	failing bool
}

func (f *fakeConn) Send(_ context.Context, frame any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errors.New("connection closed")
	}
	f.frames = append(f.frames, frame)
	return nil
}

func (f *fakeConn) fail() {
	f.mu.Lock()
	f.failing = true
	f.mu.Unlock()
}

func (f *fakeConn) sent() []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]any, len(f.frames))
	copy(out, f.frames)
	return out
}

func (f *fakeConn) peerLeftFor(clientID string) bool {
	for _, frame := range f.sent() {
		if left, ok := frame.(proto.PeerLeft); ok && left.ClientID == clientID {
			return true
		}
	}
	return false
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	logger := zerolog.Nop()
	return NewRegistry(&logger)
}
