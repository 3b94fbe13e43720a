package sync

import (
	"context"

	"github.com/oklog/ulid/v2"
)

// Broadcaster adapts the hub for publishers that are not themselves a
// joined session, such as the REST handlers. Messages originate from the
// zero session id, so every joined session of the user receives them.
type Broadcaster struct {
	hub *Hub
}

// NewBroadcaster wraps a hub.
func NewBroadcaster(hub *Hub) *Broadcaster {
	return &Broadcaster{hub: hub}
}

// Broadcast relays msg to all of the user's joined sessions.
func (b *Broadcaster) Broadcast(ctx context.Context, msg Message) {
	b.hub.Publish(ctx, ulid.ULID{}, msg)
}
