package store

import (
	"context"
	"sync"
)

// Memory is an in-process Backend. It is safe for concurrent use and is what
// tests and the single-binary demo run against.
type Memory struct {
	mu     sync.Mutex
	rooms  map[string]*memRoom
	closed bool
}

type memRoom struct {
	revision int64
	entries  map[string]Entry
	nextSub  int
	subs     map[int]*Feed
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{rooms: make(map[string]*memRoom)}
}

// room returns the room, creating it. Called with mu held.
func (m *Memory) room(id string) *memRoom {
	r, ok := m.rooms[id]
	if !ok {
		r = &memRoom{entries: make(map[string]Entry), subs: make(map[int]*Feed)}
		m.rooms[id] = r
	}
	return r
}

func (r *memRoom) snapshot(id string) Snapshot {
	return Snapshot{Room: id, Revision: r.revision, Entries: cloneEntries(r.entries)}
}

func (m *Memory) Get(ctx context.Context, room, path string) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Entry{}, ErrClosed
	}
	e := m.room(room).entries[path]
	return Entry{Data: append([]byte(nil), e.Data...), Version: e.Version}, nil
}

func (m *Memory) Snapshot(ctx context.Context, room string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Snapshot{}, ErrClosed
	}
	return m.room(room).snapshot(room), nil
}

func (m *Memory) Commit(ctx context.Context, room string, reads map[string]int64, writes map[string][]byte) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false, ErrClosed
	}
	r := m.room(room)
	for path, version := range reads {
		if r.entries[path].Version != version {
			return false, nil
		}
	}
	r.revision++
	for path, data := range writes {
		r.entries[path] = Entry{Data: append([]byte(nil), data...), Version: r.revision}
	}
	snap := r.snapshot(room)
	for _, w := range r.subs {
		w.Offer(snap)
	}
	return true, nil
}

func (m *Memory) Subscribe(ctx context.Context, room string, fn func(Snapshot)) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	r := m.room(room)
	id := r.nextSub
	r.nextSub++
	w := NewFeed(fn)
	r.subs[id] = w
	w.Offer(r.snapshot(room))

	return &memSubscription{m: m, room: room, id: id, w: w}, nil
}

// Close stops every subscription.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	for _, r := range m.rooms {
		for id, w := range r.subs {
			w.Stop()
			delete(r.subs, id)
		}
	}
	return nil
}

type memSubscription struct {
	m    *Memory
	room string
	id   int
	w    *Feed
}

func (s *memSubscription) Close() error {
	s.m.mu.Lock()
	if r, ok := s.m.rooms[s.room]; ok {
		delete(r.subs, s.id)
	}
	s.m.mu.Unlock()
	s.w.Stop()
	return nil
}
