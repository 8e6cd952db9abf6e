package presence

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// MemoryRegistry is an in-process Registry. It is the default when no Redis
// address is configured and keeps the same TTL semantics: a room's expiry is
// pushed out on every write and expired rooms are swept by a janitor loop.
type MemoryRegistry struct {
	mu    sync.Mutex
	ttl   time.Duration
	rooms map[string]*room
}

type room struct {
	names     []string
	expiresAt time.Time
}

// NewMemoryRegistry creates a MemoryRegistry with the given entry TTL;
// ttl <= 0 falls back to DefaultTTL.
func NewMemoryRegistry(ttl time.Duration) *MemoryRegistry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryRegistry{
		ttl:   ttl,
		rooms: make(map[string]*room),
	}
}

// Heartbeat implements Registry.
func (m *MemoryRegistry) Heartbeat(ctx context.Context, roomID, memberName string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rm := m.liveRoom(roomID)
	if rm == nil {
		rm = &room{}
		m.rooms[roomID] = rm
	}

	found := false
	for _, name := range rm.names {
		if name == memberName {
			found = true
			break
		}
	}
	if !found {
		rm.names = append(rm.names, memberName)
	}
	rm.expiresAt = time.Now().Add(m.ttl)

	return append([]string(nil), rm.names...), nil
}

// Remove implements Registry.
func (m *MemoryRegistry) Remove(ctx context.Context, roomID, memberName string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rm := m.liveRoom(roomID)
	if rm == nil {
		return nil, nil
	}

	names := rm.names[:0]
	for _, name := range rm.names {
		if name != memberName {
			names = append(names, name)
		}
	}
	rm.names = names

	if len(rm.names) == 0 {
		delete(m.rooms, roomID)
		return nil, nil
	}
	rm.expiresAt = time.Now().Add(m.ttl)

	return append([]string(nil), rm.names...), nil
}

// Connected implements Registry.
func (m *MemoryRegistry) Connected(ctx context.Context, roomID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rm := m.liveRoom(roomID)
	if rm == nil {
		return nil, nil
	}
	return append([]string(nil), rm.names...), nil
}

// liveRoom returns the room if it exists and has not expired; an expired
// room is dropped on the spot. Callers must hold the mutex.
func (m *MemoryRegistry) liveRoom(roomID string) *room {
	rm, ok := m.rooms[roomID]
	if !ok {
		return nil
	}
	if time.Now().After(rm.expiresAt) {
		delete(m.rooms, roomID)
		return nil
	}
	return rm
}

// StartJanitor runs a background sweep that drops expired rooms, so rooms
// that are never touched again do not linger for the life of the process.
// It blocks until the context is cancelled, so it should be launched in a
// separate goroutine.
func (m *MemoryRegistry) StartJanitor(ctx context.Context, interval time.Duration, logger *logrus.Logger) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("Presence janitor started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Presence janitor stopped")
			return
		case <-ticker.C:
			m.sweep(logger)
		}
	}
}

func (m *MemoryRegistry) sweep(logger *logrus.Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for roomID, rm := range m.rooms {
		if now.After(rm.expiresAt) {
			delete(m.rooms, roomID)
			logger.Debugf("Swept expired presence room %s", roomID)
		}
	}
}
