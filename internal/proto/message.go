package proto

import (
	"encoding/json"
	"fmt"
)

// Frame type tags shared by both directions of the control channel.
const (
	TypeJoin       = "join"
	TypeChat       = "chat"
	TypeOffer      = "offer"
	TypeAnswer     = "answer"
	TypeICE        = "ice"
	TypeMute       = "mute"
	TypeMediaState = "media-state"
	TypePitch      = "pitch"
	TypeLeave      = "leave"

	TypeJoined     = "joined"
	TypePeerJoined = "peer-joined"
	TypePeerLeft   = "peer-left"
	TypeError      = "error"
)

// Msg is the closed set of inbound control frames. Decode returns exactly
// one of the pointer types below so dispatch can switch exhaustively.
type Msg interface {
	isMsg()
}

// Join requests admission to a room.
type Join struct {
	RoomID string `json:"roomId"`
	Name   string `json:"name"`
	Token  string `json:"token,omitempty"`
}

// Chat carries a text message for the whole room.
type Chat struct {
	Message string `json:"message"`
}

// Offer carries a session description addressed to one peer.
type Offer struct {
	To  string          `json:"to"`
	SDP json.RawMessage `json:"sdp"`
}

// Answer carries a session description answering an offer.
type Answer struct {
	To  string          `json:"to"`
	SDP json.RawMessage `json:"sdp"`
}

// ICE carries a network candidate addressed to one peer.
type ICE struct {
	To        string          `json:"to"`
	Candidate json.RawMessage `json:"candidate"`
}

// Mute announces the sender's mute state.
type Mute struct {
	Muted bool `json:"muted"`
}

// MediaState announces which media tracks the sender publishes.
type MediaState struct {
	HasAudio bool `json:"hasAudio"`
	HasVideo bool `json:"hasVideo"`
}

// Pitch carries the sender's current pitch telemetry.
type Pitch struct {
	Hz float64 `json:"hz"`
}

// Leave ends the session intentionally.
type Leave struct{}

func (*Join) isMsg()       {}
func (*Chat) isMsg()       {}
func (*Offer) isMsg()      {}
func (*Answer) isMsg()     {}
func (*ICE) isMsg()        {}
func (*Mute) isMsg()       {}
func (*MediaState) isMsg() {}
func (*Pitch) isMsg()      {}
func (*Leave) isMsg()      {}

// Decode parses a raw inbound frame into its typed variant.
// Unknown frame types return (nil, nil); callers treat them as no-ops so
// newer clients can keep talking to older servers.
func Decode(raw []byte) (Msg, error) {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &tag); err != nil {
		return nil, fmt.Errorf("decode frame tag: %w", err)
	}

	var msg Msg
	switch tag.Type {
	case TypeJoin:
		msg = &Join{}
	case TypeChat:
		msg = &Chat{}
	case TypeOffer:
		msg = &Offer{}
	case TypeAnswer:
		msg = &Answer{}
	case TypeICE:
		msg = &ICE{}
	case TypeMute:
		msg = &Mute{}
	case TypeMediaState:
		msg = &MediaState{}
	case TypePitch:
		msg = &Pitch{}
	case TypeLeave:
		msg = &Leave{}
	default:
		return nil, nil
	}

	if err := json.Unmarshal(raw, msg); err != nil {
		return nil, fmt.Errorf("decode %s frame: %w", tag.Type, err)
	}
	return msg, nil
}

// Peer describes one room member in listings.
type Peer struct {
	ClientID string `json:"clientId"`
	Name     string `json:"name"`
}

// Joined confirms admission and lists the peers already present.
type Joined struct {
	Type     string `json:"type"`
	ClientID string `json:"clientId"`
	Peers    []Peer `json:"peers"`
}

// PeerJoined notifies room members about a new peer.
type PeerJoined struct {
	Type     string `json:"type"`
	ClientID string `json:"clientId"`
	Name     string `json:"name"`
}

// PeerLeft notifies room members that a peer is gone.
type PeerLeft struct {
	Type     string `json:"type"`
	ClientID string `json:"clientId"`
	Name     string `json:"name"`
}

// ChatEvent fans a chat message out to the room, sender included.
type ChatEvent struct {
	Type         string `json:"type"`
	FromClientID string `json:"fromClientId"`
	FromName     string `json:"fromName"`
	Message      string `json:"message"`
}

// SessionDescription forwards an offer or answer to its target peer.
// Type is "offer" or "answer" depending on what the sender submitted.
type SessionDescription struct {
	Type string          `json:"type"`
	From string          `json:"from"`
	SDP  json.RawMessage `json:"sdp"`
}

// Candidate forwards a network candidate to its target peer.
type Candidate struct {
	Type      string          `json:"type"`
	From      string          `json:"from"`
	Candidate json.RawMessage `json:"candidate"`
}

// MuteEvent announces a peer's mute change to the rest of the room.
type MuteEvent struct {
	Type     string `json:"type"`
	ClientID string `json:"clientId"`
	Muted    bool   `json:"muted"`
}

// MediaStateEvent announces a peer's track presence to the rest of the room.
type MediaStateEvent struct {
	Type     string `json:"type"`
	ClientID string `json:"clientId"`
	HasAudio bool   `json:"hasAudio"`
	HasVideo bool   `json:"hasVideo"`
}

// PitchEvent relays a peer's pitch telemetry to the rest of the room.
type PitchEvent struct {
	Type     string  `json:"type"`
	ClientID string  `json:"clientId"`
	Hz       float64 `json:"hz"`
}

// ErrorFrame reports a protocol-level failure to the client.
type ErrorFrame struct {
	Type    string `json:"type"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
