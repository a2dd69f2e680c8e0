package core

// Room is the set of clients joined under one room identifier.
// It is owned by the Registry and only touched under the registry lock.
type Room struct {
	ID      string
	members map[string]*Client
}

func newRoom(id string) *Room {
	return &Room{
		ID:      id,
		members: make(map[string]*Client),
	}
}

func (r *Room) add(c *Client) {
	r.members[c.ID] = c
}

func (r *Room) remove(clientID string) (*Client, bool) {
	c, ok := r.members[clientID]
	if !ok {
		return nil, false
	}
	delete(r.members, clientID)
	return c, true
}

// snapshot copies the current membership so fan-out can run without the
// registry lock and without being corrupted by concurrent joins or leaves.
func (r *Room) snapshot(excludeID string) []*Client {
	out := make([]*Client, 0, len(r.members))
	for id, c := range r.members {
		if excludeID != "" && id == excludeID {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (r *Room) empty() bool {
	return len(r.members) == 0
}
