package room

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// snapshotCache holds assembled room snapshots. A snapshot whose storage read
// overlapped a write to the same room is returned to its caller but not kept.
type snapshotCache struct {
	mu     sync.Mutex
	states *expirable.LRU[string, RoomState]
	// storage reads in flight, per room
	loads map[string]*snapshotLoad
}

type snapshotLoad struct {
	readers int
	// set by a write while readers > 0
	stale bool
}

func newSnapshotCache(size int, ttl time.Duration) *snapshotCache {
	return &snapshotCache{
		states: expirable.NewLRU[string, RoomState](size, nil, ttl),
		loads:  make(map[string]*snapshotLoad),
	}
}

func (c *snapshotCache) get(roomId string) (RoomState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.states.Get(roomId)
}

// load reads a snapshot with fn and caches it unless the room was invalidated
// while fn ran.
func (c *snapshotCache) load(roomId string, fn func() (RoomState, error)) (RoomState, error) {
	c.mu.Lock()
	l, ok := c.loads[roomId]
	if !ok {
		l = &snapshotLoad{}
		c.loads[roomId] = l
	}
	l.readers++
	c.mu.Unlock()

	state, err := fn()

	c.mu.Lock()
	defer c.mu.Unlock()

	if err == nil && !l.stale {
		c.states.Add(roomId, state)
	}

	l.readers--
	if l.readers == 0 {
		delete(c.loads, roomId)
	}

	return state, err
}

func (c *snapshotCache) invalidate(roomId string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if l, ok := c.loads[roomId]; ok {
		l.stale = true
	}
	c.states.Remove(roomId)
}
