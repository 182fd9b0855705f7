package remote

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/lox/headsup/internal/policy"
	"github.com/lox/headsup/internal/roomsync"
	"github.com/lox/headsup/internal/store"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

type fixture struct {
	backend *store.Memory
	server  *Server
	http    *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := store.NewMemory()
	srv := NewServer(mem, quietLogger())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
		ts.Close()
		_ = mem.Close()
	})
	return &fixture{backend: mem, server: srv, http: ts}
}

func (f *fixture) dial(t *testing.T) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, f.http.URL, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

type counter struct {
	N int `json:"n"`
}

func TestWSURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"127.0.0.1:8080", "ws://127.0.0.1:8080/ws"},
		{"localhost:8080", "ws://localhost:8080/ws"},
		{"http://example.com", "ws://example.com/ws"},
		{"https://example.com/rooms", "wss://example.com/rooms"},
		{"ws://example.com:9000/ws", "ws://example.com:9000/ws"},
	}
	for _, tt := range tests {
		got, err := wsURL(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := wsURL("ftp://example.com")
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	resp, err := http.Get(f.http.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))
}

func TestGetSnapshotAndCommit(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	c := f.dial(t)
	ctx := context.Background()

	e, err := c.Get(ctx, "r1", "table")
	require.NoError(t, err)
	assert.False(t, e.Exists())

	snap, err := c.Snapshot(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), snap.Revision)
	assert.NotNil(t, snap.Entries)

	ok, err := c.Commit(ctx, "r1", map[string]int64{"table": 0}, map[string][]byte{"table": []byte("v1")})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Commit(ctx, "r1", map[string]int64{"table": 0}, map[string][]byte{"table": []byte("v2")})
	require.NoError(t, err)
	assert.False(t, ok, "stale read version must not commit")

	local, err := f.backend.Get(ctx, "r1", "table")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(local.Data))

	e, err = c.Get(ctx, "r1", "table")
	require.NoError(t, err)
	assert.Equal(t, local, e)
}

func TestUpdateAcrossConnectionsAppliesOnce(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	clients := []*Client{f.dial(t), f.dial(t)}

	_, err := store.Update(ctx, clients[0], "r1", func(txn *store.Txn) error {
		return txn.PutJSON("counter", counter{})
	})
	require.NoError(t, err)

	var bothRead sync.WaitGroup
	bothRead.Add(2)
	results := make([]store.Result, 2)

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range clients {
		g.Go(func() error {
			first := true
			res, err := store.Update(gctx, c, "r1", func(txn *store.Txn) error {
				var v counter
				if _, err := txn.GetJSON("counter", &v); err != nil {
					return err
				}
				if first {
					first = false
					bothRead.Done()
					bothRead.Wait()
				}
				if v.N != 0 {
					return store.ErrStale
				}
				v.N++
				return txn.PutJSON("counter", v)
			}, store.WithBackoff(time.Millisecond))
			results[i] = res
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.ElementsMatch(t, []store.Status{store.Committed, store.Conflict},
		[]store.Status{results[0].Status, results[1].Status})

	e, err := f.backend.Get(ctx, "r1", "counter")
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1}`, string(e.Data))
}

func TestSubscribePushesInRevisionOrder(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	c := f.dial(t)
	ctx := context.Background()

	var mu sync.Mutex
	var revisions []int64
	sub, err := c.Subscribe(ctx, "r1", func(s store.Snapshot) {
		mu.Lock()
		revisions = append(revisions, s.Revision)
		mu.Unlock()
	})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := store.Mutate(ctx, f.backend, "r1", "table", func([]byte) ([]byte, error) {
			return []byte{byte('a' + i)}, nil
		})
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(revisions) > 0 && revisions[len(revisions)-1] == 5
	}, 5*time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.IsIncreasing(t, revisions)
	mu.Unlock()

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
}

func TestErrorCodesRoundTrip(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	c := f.dial(t)

	_, err := c.call(context.Background(), &Message{Type: "bogus"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), CodeInvalid)

	reply := &Message{Type: TypeResult, Code: CodeMalformed, Error: "bad doc"}
	assert.ErrorIs(t, remoteError(reply), store.ErrMalformed)
	assert.ErrorIs(t, remoteError(&Message{Code: CodeClosed}), store.ErrClosed)
	assert.NoError(t, remoteError(&Message{Type: TypeResult}))
}

func TestServerShutdownClosesClients(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	c := f.dial(t)
	ctx := context.Background()

	_, err := c.Snapshot(ctx, "r1")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return f.server.Connections() == 1 }, 5*time.Second, 5*time.Millisecond)

	require.NoError(t, f.server.Shutdown(ctx))

	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("client did not notice shutdown")
	}
	_, err = c.Get(ctx, "r1", "table")
	assert.ErrorIs(t, err, store.ErrClosed)
	_, err = c.Subscribe(ctx, "r1", func(store.Snapshot) {})
	assert.ErrorIs(t, err, store.ErrClosed)
}

func TestCallHonoursContext(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	c := f.dial(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Snapshot(ctx, "r1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBotsPlayOverWebsocket(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	var clients []*roomsync.Client
	for _, id := range []string{"alice", "bob"} {
		rc := roomsync.New(f.dial(t), roomsync.Config{
			Room:          "ws",
			PlayerID:      id,
			AutoDeal:      true,
			NextHandDelay: time.Millisecond,
			Seed:          3,
		}, roomsync.WithLogger(quietLogger()))
		t.Cleanup(func() { _ = rc.Close() })
		require.NoError(t, rc.Join(ctx))
		clients = append(clients, rc)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, rc := range clients {
		bot := roomsync.NewBot(rc, policy.AlwaysCall{}, int64(i+1), quietLogger())
		bot.Hands = 3
		g.Go(func() error { return bot.Run(gctx) })
	}
	require.NoError(t, g.Wait())

	require.NoError(t, clients[1].Resync(ctx))
	v, err := clients[1].View()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, v.HandNumber, 1)

	total := v.Pot
	for _, p := range v.Players {
		total += p.Chips + p.Committed
	}
	assert.Equal(t, 2000, total)
}
