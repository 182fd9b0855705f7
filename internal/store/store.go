// Package store is a versioned document store for shared room state. Every
// room holds a set of paths ("table", "players/alice", ...) whose values are
// opaque bytes. Writes go through an atomic multi-path compare-and-swap so
// concurrent writers never overwrite each other silently.
package store

import (
	"context"
	"errors"
	"sort"
)

var (
	// ErrAbort is returned by an update function to give up without writing.
	ErrAbort = errors.New("update aborted")
	// ErrStale is returned by an update function when the state it read is
	// no longer the state it was asked to change. It ends the update as a
	// Conflict without further retries.
	ErrStale = errors.New("stale state")
	// ErrConflict reports that a compare-and-swap kept losing races.
	ErrConflict = errors.New("write conflict")
	// ErrMalformed reports a document that could not be decoded.
	ErrMalformed = errors.New("malformed document")
	// ErrClosed is returned by a backend after Close.
	ErrClosed = errors.New("store closed")
)

// Entry is the value stored at a path. Version is the room revision of the
// last write to the path; zero means the path does not exist.
type Entry struct {
	Data    []byte `json:"data"`
	Version int64  `json:"version"`
}

// Exists reports whether the path has ever been written.
func (e Entry) Exists() bool { return e.Version > 0 }

// Snapshot is every path of a room at one revision.
type Snapshot struct {
	Room     string           `json:"room"`
	Revision int64            `json:"revision"`
	Entries  map[string]Entry `json:"entries"`
}

// Get returns the entry at path, or the zero Entry.
func (s Snapshot) Get(path string) Entry {
	return s.Entries[path]
}

// Paths returns the stored paths in sorted order.
func (s Snapshot) Paths() []string {
	paths := make([]string, 0, len(s.Entries))
	for p := range s.Entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Backend is the primitive every store implementation provides.
type Backend interface {
	// Get reads one path.
	Get(ctx context.Context, room, path string) (Entry, error)
	// Snapshot reads every path of a room at a single revision.
	Snapshot(ctx context.Context, room string) (Snapshot, error)
	// Commit applies writes only if every path in reads still has the
	// given version (0 meaning absent). It reports false when a version
	// check failed and nothing was written.
	Commit(ctx context.Context, room string, reads map[string]int64, writes map[string][]byte) (bool, error)
	// Subscribe delivers the current snapshot and then every later one in
	// revision order. Intermediate revisions may be skipped.
	Subscribe(ctx context.Context, room string, fn func(Snapshot)) (Subscription, error)
	Close() error
}

// Subscription is an active Subscribe registration.
type Subscription interface {
	Close() error
}

func cloneEntries(in map[string]Entry) map[string]Entry {
	out := make(map[string]Entry, len(in))
	for k, v := range in {
		out[k] = Entry{Data: append([]byte(nil), v.Data...), Version: v.Version}
	}
	return out
}
