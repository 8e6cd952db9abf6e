// Package presence tracks which members are currently connected to a
// wishlist room. Entries carry a bounded time-to-live as a safety net:
// crashed connections that never sent a leave eventually disappear on their
// own. The TTL is not a liveness mechanism; the gateway removes members
// explicitly on disconnect.
package presence

import (
	"context"
	"time"
)

// DefaultTTL bounds how long a presence entry survives without any activity
// in its room.
const DefaultTTL = 24 * time.Hour

// Registry is the connection-presence contract used by the realtime gateway.
// Member names are unique per wishlist, so rooms track names directly.
type Registry interface {
	// Heartbeat records memberName as connected to the room and returns the
	// room's current member names, including the new one.
	Heartbeat(ctx context.Context, roomID, memberName string) ([]string, error)
	// Remove drops memberName from the room and returns the remaining
	// member names.
	Remove(ctx context.Context, roomID, memberName string) ([]string, error)
	// Connected returns the member names currently recorded for the room.
	Connected(ctx context.Context, roomID string) ([]string, error)
}
