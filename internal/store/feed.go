package store

import "sync"

// Feed delivers snapshots to one subscriber on its own goroutine. Only the
// newest pending snapshot is kept, and a snapshot at or below the last
// delivered revision is dropped, so delivery never goes backwards and a
// slow subscriber never blocks the writer. Backends use it to implement
// Subscribe.
type Feed struct {
	fn     func(Snapshot)
	mu     sync.Mutex
	latest *Snapshot
	wake   chan struct{}
	done   chan struct{}
	once   sync.Once
}

// NewFeed starts a feed calling fn.
func NewFeed(fn func(Snapshot)) *Feed {
	f := &Feed{
		fn:   fn,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go f.run()
	return f
}

// Offer queues s, replacing any older pending snapshot.
func (f *Feed) Offer(s Snapshot) {
	f.mu.Lock()
	if f.latest == nil || s.Revision > f.latest.Revision {
		f.latest = &s
	}
	f.mu.Unlock()
	select {
	case f.wake <- struct{}{}:
	default:
	}
}

func (f *Feed) run() {
	delivered := int64(-1)
	for {
		select {
		case <-f.done:
			return
		case <-f.wake:
		}
		f.mu.Lock()
		s := f.latest
		f.latest = nil
		f.mu.Unlock()
		if s == nil || s.Revision <= delivered {
			continue
		}
		select {
		case <-f.done:
			return
		default:
		}
		delivered = s.Revision
		f.fn(*s)
	}
}

// Stop ends delivery. A callback already running is not interrupted.
func (f *Feed) Stop() {
	f.once.Do(func() { close(f.done) })
}
