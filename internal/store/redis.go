package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/go-redis/redis/v8"
)

// commitWatchRetries bounds how often Commit re-checks versions after an
// unrelated write in the same room invalidated its WATCH.
const commitWatchRetries = 8

// RedisOptions configures the Redis backend.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces every key. Default "holdem".
	Prefix string
}

// Redis stores each room in three keys:
//
//	{prefix}:room:{id}:doc  hash of path -> data
//	{prefix}:room:{id}:ver  hash of path -> version
//	{prefix}:room:{id}:rev  room revision counter
//
// Commits run under WATCH on the revision key and publish the new revision
// on {prefix}:room:{id}:events.
type Redis struct {
	client *redis.Client
	prefix string
	logger *log.Logger
}

// NewRedis connects to Redis.
func NewRedis(opts RedisOptions, logger *log.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return NewRedisFromClient(client, opts.Prefix, logger)
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *redis.Client, prefix string, logger *log.Logger) *Redis {
	if prefix == "" {
		prefix = "holdem"
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Redis{client: client, prefix: prefix, logger: logger.WithPrefix("redis")}
}

// Ping checks the connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

type roomKeys struct {
	doc, ver, rev, events string
}

func (r *Redis) keys(room string) roomKeys {
	base := fmt.Sprintf("%s:room:%s", r.prefix, room)
	return roomKeys{
		doc:    base + ":doc",
		ver:    base + ":ver",
		rev:    base + ":rev",
		events: base + ":events",
	}
}

func (r *Redis) Get(ctx context.Context, room, path string) (Entry, error) {
	k := r.keys(room)
	var data, ver *redis.StringCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		data = pipe.HGet(ctx, k.doc, path)
		ver = pipe.HGet(ctx, k.ver, path)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return Entry{}, fmt.Errorf("redis get %s/%s: %w", room, path, err)
	}
	v, err := parseVersion(ver.Val())
	if err != nil {
		return Entry{}, err
	}
	if v == 0 {
		return Entry{}, nil
	}
	return Entry{Data: []byte(data.Val()), Version: v}, nil
}

func (r *Redis) Snapshot(ctx context.Context, room string) (Snapshot, error) {
	k := r.keys(room)
	var docs, vers *redis.StringStringMapCmd
	var rev *redis.StringCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		docs = pipe.HGetAll(ctx, k.doc)
		vers = pipe.HGetAll(ctx, k.ver)
		rev = pipe.Get(ctx, k.rev)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return Snapshot{}, fmt.Errorf("redis snapshot %s: %w", room, err)
	}

	revision, err := parseVersion(rev.Val())
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{Room: room, Revision: revision, Entries: make(map[string]Entry, len(docs.Val()))}
	for path, data := range docs.Val() {
		v, err := parseVersion(vers.Val()[path])
		if err != nil {
			return Snapshot{}, err
		}
		snap.Entries[path] = Entry{Data: []byte(data), Version: v}
	}
	return snap, nil
}

func (r *Redis) Commit(ctx context.Context, room string, reads map[string]int64, writes map[string][]byte) (bool, error) {
	k := r.keys(room)
	paths := make([]string, 0, len(reads))
	for p := range reads {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for attempt := 0; attempt < commitWatchRetries; attempt++ {
		committed := false
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			current, err := versions(ctx, tx, k.ver, paths)
			if err != nil {
				return err
			}
			for i, p := range paths {
				if current[i] != reads[p] {
					return nil
				}
			}

			rev, err := tx.Get(ctx, k.rev).Int64()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			next := rev + 1

			docs := make(map[string]interface{}, len(writes))
			vers := make(map[string]interface{}, len(writes))
			for p, data := range writes {
				docs[p] = data
				vers[p] = next
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, k.rev, next, 0)
				pipe.HSet(ctx, k.doc, docs)
				pipe.HSet(ctx, k.ver, vers)
				pipe.Publish(ctx, k.events, next)
				return nil
			})
			if err == nil {
				committed = true
			}
			return err
		}, k.rev)

		if errors.Is(err, redis.TxFailedErr) {
			r.logger.Debug("Commit raced another writer, rechecking", "room", room, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return false, fmt.Errorf("redis commit %s: %w", room, err)
		}
		return committed, nil
	}
	return false, nil
}

func versions(ctx context.Context, tx *redis.Tx, key string, paths []string) ([]int64, error) {
	out := make([]int64, len(paths))
	if len(paths) == 0 {
		return out, nil
	}
	vals, err := tx.HMGet(ctx, key, paths...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		s, _ := v.(string)
		if out[i], err = parseVersion(s); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func parseVersion(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: version %q", ErrMalformed, s)
	}
	return v, nil
}

// Subscribe listens on the room's event channel and re-reads the snapshot
// for every published revision.
func (r *Redis) Subscribe(ctx context.Context, room string, fn func(Snapshot)) (Subscription, error) {
	k := r.keys(room)
	ps := r.client.Subscribe(ctx, k.events)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", room, err)
	}

	snap, err := r.Snapshot(ctx, room)
	if err != nil {
		_ = ps.Close()
		return nil, err
	}
	w := NewFeed(fn)
	w.Offer(snap)

	subCtx, cancel := context.WithCancel(context.Background())
	go func() {
		for range ps.Channel() {
			snap, err := r.Snapshot(subCtx, room)
			if err != nil {
				if subCtx.Err() == nil {
					r.logger.Warn("Failed to read room after notification", "room", room, "error", err)
				}
				continue
			}
			w.Offer(snap)
		}
	}()

	return &redisSubscription{ps: ps, w: w, cancel: cancel}, nil
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.client.Close()
}

type redisSubscription struct {
	ps     *redis.PubSub
	w      *Feed
	cancel context.CancelFunc
}

func (s *redisSubscription) Close() error {
	s.cancel()
	s.w.Stop()
	return s.ps.Close()
}
