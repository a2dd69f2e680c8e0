package core

import "context"

// Conn is one client's half of the duplex control channel.
// Implementations must allow concurrent Send calls; a failed Send means the
// peer is unreachable and the registry treats it as having left.
type Conn interface {
	Send(ctx context.Context, frame any) error
}
