package core

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/voicerelay-server/internal/metrics"
	"github.com/vovakirdan/voicerelay-server/internal/proto"
)

// Registry is the single source of truth for which client is in which room.
// Rooms are created lazily on first join and deleted in the same critical
// section that removes their last member, so an empty room is never
// observable. The lock covers map mutation only, never an outbound send.
type Registry struct {
	log *zerolog.Logger

	mu    sync.RWMutex
	rooms map[string]*Room
}

// NewRegistry constructs an empty registry.
func NewRegistry(logger *zerolog.Logger) *Registry {
	return &Registry{
		log:   logger,
		rooms: make(map[string]*Room),
	}
}

// GetOrCreate returns the room for roomID, creating it if absent.
// Concurrent calls for the same id observe the same room.
func (g *Registry) GetOrCreate(roomID string) *Room {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.getOrCreateLocked(roomID)
}

func (g *Registry) getOrCreateLocked(roomID string) *Room {
	room, ok := g.rooms[roomID]
	if !ok {
		room = newRoom(roomID)
		g.rooms[roomID] = room
		metrics.ActiveRooms.Inc()
		g.log.Debug().Str("room", roomID).Msg("room created")
	}
	return room
}

// Join assigns a fresh client id, inserts the client into the room and
// returns it. The new client is visible to concurrent broadcasts as soon as
// Join returns.
func (g *Registry) Join(roomID string, conn Conn, name string) *Client {
	c := &Client{
		ID:   uuid.NewString(),
		Name: name,
		Conn: conn,
	}

	g.mu.Lock()
	g.getOrCreateLocked(roomID).add(c)
	g.mu.Unlock()

	metrics.ActiveClients.Inc()
	g.log.Debug().Str("room", roomID).Str("client", c.ID).Str("name", name).Msg("client joined")
	return c
}

// Leave removes the client from the room, deleting the room when it empties.
// It reports the removed client's display name and whether anything was
// removed; a second Leave for the same client is a no-op.
func (g *Registry) Leave(roomID, clientID string) (string, bool) {
	g.mu.Lock()
	room, ok := g.rooms[roomID]
	if !ok {
		g.mu.Unlock()
		return "", false
	}
	c, removed := room.remove(clientID)
	if removed && room.empty() {
		delete(g.rooms, roomID)
		metrics.ActiveRooms.Dec()
		g.log.Debug().Str("room", roomID).Msg("room deleted")
	}
	g.mu.Unlock()

	if !removed {
		return "", false
	}
	metrics.ActiveClients.Dec()
	g.log.Debug().Str("room", roomID).Str("client", clientID).Msg("client left")
	return c.Name, true
}

// Broadcast delivers frame to every current member except excludeID.
// Membership is snapshotted up front; members whose send fails are evicted
// as if they had left, and the survivors are told about it.
func (g *Registry) Broadcast(ctx context.Context, roomID string, frame any, excludeID string) {
	dead := g.deliver(ctx, g.membersSnapshot(roomID, excludeID), frame)
	g.evict(ctx, roomID, dead)
}

// SendTo delivers frame to exactly one member. A missing room or member is
// an expected race with a disconnect and is silently ignored.
func (g *Registry) SendTo(ctx context.Context, roomID, clientID string, frame any) {
	g.mu.RLock()
	var target *Client
	if room, ok := g.rooms[roomID]; ok {
		target = room.members[clientID]
	}
	g.mu.RUnlock()

	if target == nil {
		return
	}
	if err := target.Conn.Send(ctx, frame); err != nil {
		g.log.Debug().Err(err).Str("room", roomID).Str("client", clientID).Msg("unicast failed")
		metrics.DeliveryFailures.Inc()
		g.evict(ctx, roomID, []*Client{target})
	}
}

// ListPeers snapshots the room membership, excluding excludeID if given.
func (g *Registry) ListPeers(roomID, excludeID string) []proto.Peer {
	g.mu.RLock()
	defer g.mu.RUnlock()

	room, ok := g.rooms[roomID]
	if !ok {
		return []proto.Peer{}
	}
	peers := make([]proto.Peer, 0, len(room.members))
	for id, c := range room.members {
		if excludeID != "" && id == excludeID {
			continue
		}
		peers = append(peers, proto.Peer{ClientID: id, Name: c.Name})
	}
	return peers
}

// NameOf reports the display name of a current member.
func (g *Registry) NameOf(roomID, clientID string) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if room, ok := g.rooms[roomID]; ok {
		if c, ok := room.members[clientID]; ok {
			return c.Name, true
		}
	}
	return "", false
}

// Stats reports the current number of rooms and joined clients.
func (g *Registry) Stats() (rooms, clients int) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	rooms = len(g.rooms)
	for _, room := range g.rooms {
		clients += len(room.members)
	}
	return rooms, clients
}

func (g *Registry) membersSnapshot(roomID, excludeID string) []*Client {
	g.mu.RLock()
	defer g.mu.RUnlock()

	room, ok := g.rooms[roomID]
	if !ok {
		return nil
	}
	return room.snapshot(excludeID)
}

// deliver sends frame to each target outside any lock and returns the
// targets whose send failed.
func (g *Registry) deliver(ctx context.Context, targets []*Client, frame any) []*Client {
	var dead []*Client
	for _, c := range targets {
		if err := c.Conn.Send(ctx, frame); err != nil {
			g.log.Debug().Err(err).Str("client", c.ID).Msg("delivery failed, evicting peer")
			metrics.DeliveryFailures.Inc()
			dead = append(dead, c)
		}
	}
	return dead
}

// evict converts failed deliveries into leaves and notifies the remaining
// members. Notification is itself a delivery and can expose more dead
// peers; the loop runs until the room is stable. It terminates because each
// pass removes every client it processes and membership only shrinks.
func (g *Registry) evict(ctx context.Context, roomID string, dead []*Client) {
	for len(dead) > 0 {
		var next []*Client
		for _, c := range dead {
			name, removed := g.Leave(roomID, c.ID)
			if !removed {
				continue
			}
			gone := proto.PeerLeft{Type: proto.TypePeerLeft, ClientID: c.ID, Name: name}
			next = append(next, g.deliver(ctx, g.membersSnapshot(roomID, ""), gone)...)
		}
		dead = next
	}
}
