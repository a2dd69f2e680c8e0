package proto

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDecodeJoin(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"join","roomId":"r1","name":"Alice","token":"tok"}`))
	if err != nil {
		t.Fatalf("decode join: %v", err)
	}
	join, ok := msg.(*Join)
	if !ok {
		t.Fatalf("expected *Join, got %T", msg)
	}
	if join.RoomID != "r1" || join.Name != "Alice" || join.Token != "tok" {
		t.Fatalf("unexpected join fields: %+v", join)
	}
}

func TestDecodeTargetedFrames(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"offer","to":"abc","sdp":{"type":"offer","sdp":"v=0"}}`))
	if err != nil {
		t.Fatalf("decode offer: %v", err)
	}
	offer, ok := msg.(*Offer)
	if !ok {
		t.Fatalf("expected *Offer, got %T", msg)
	}
	if offer.To != "abc" || len(offer.SDP) == 0 {
		t.Fatalf("unexpected offer fields: %+v", offer)
	}

	msg, err = Decode([]byte(`{"type":"ice","to":"abc","candidate":{"candidate":"candidate:0"}}`))
	if err != nil {
		t.Fatalf("decode ice: %v", err)
	}
	if ice, ok := msg.(*ICE); !ok || ice.To != "abc" {
		t.Fatalf("unexpected ice frame: %+v", msg)
	}
}

func TestDecodeStateFrames(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"media-state","hasAudio":true,"hasVideo":false}`))
	if err != nil {
		t.Fatalf("decode media-state: %v", err)
	}
	ms, ok := msg.(*MediaState)
	if !ok || !ms.HasAudio || ms.HasVideo {
		t.Fatalf("unexpected media-state frame: %+v", msg)
	}

	msg, err = Decode([]byte(`{"type":"pitch","hz":440.5}`))
	if err != nil {
		t.Fatalf("decode pitch: %v", err)
	}
	if p, ok := msg.(*Pitch); !ok || p.Hz != 440.5 {
		t.Fatalf("unexpected pitch frame: %+v", msg)
	}
}

func TestDecodeUnknownTypeIsNoOp(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"typing","roomId":"r1"}`))
	if err != nil {
		t.Fatalf("unknown type should not error: %v", err)
	}
	if msg != nil {
		t.Fatalf("unknown type should decode to nil, got %T", msg)
	}
}

func TestDecodeMalformedFrame(t *testing.T) {
	if _, err := Decode([]byte(`{"type":`)); err == nil {
		t.Fatal("expected error for truncated frame")
	}
	if _, err := Decode([]byte(`{"type":"mute","muted":"yes"}`)); err == nil {
		t.Fatal("expected error for mistyped field")
	}
}

func TestJoinedFrameWireFormat(t *testing.T) {
	data, err := json.Marshal(Joined{
		Type:     TypeJoined,
		ClientID: "c1",
		Peers:    []Peer{{ClientID: "c2", Name: "Bob"}},
	})
	if err != nil {
		t.Fatalf("marshal joined: %v", err)
	}
	for _, want := range []string{`"type":"joined"`, `"clientId":"c1"`, `"peers":[{"clientId":"c2","name":"Bob"}]`} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("joined frame %s missing %s", data, want)
		}
	}
}
