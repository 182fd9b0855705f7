package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/headsup/internal/store"
)

// Client is a store.Backend backed by a remote Server. Calls are
// multiplexed over one websocket; a lost connection fails every pending
// and later call with store.ErrClosed.
type Client struct {
	ws     *websocket.Conn
	logger *log.Logger

	writeMu sync.Mutex
	nextID  atomic.Uint64

	mu      sync.Mutex
	pending map[uint64]chan *Message
	feeds   map[uint64]*store.Feed
	closed  bool
	done    chan struct{}
	err     error
}

var _ store.Backend = (*Client)(nil)

// Dial connects to a server. addr may be a host:port or a ws:// URL; a bare
// address gets the /ws path.
func Dial(ctx context.Context, addr string, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.Default()
	}
	u, err := wsURL(addr)
	if err != nil {
		return nil, err
	}
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u, err)
	}
	ws.SetReadLimit(maxMessageSize)

	c := &Client{
		ws:      ws,
		logger:  logger.WithPrefix("remote"),
		pending: make(map[uint64]chan *Message),
		feeds:   make(map[uint64]*store.Feed),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	c.logger.Debug("Connected to room server", "url", u)
	return c, nil
}

func wsURL(addr string) (string, error) {
	u, err := url.Parse(addr)
	if err != nil || u.Host == "" {
		u = &url.URL{Scheme: "ws", Host: addr}
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}
	return u.String(), nil
}

func (c *Client) readLoop() {
	var err error
	for {
		var data []byte
		if _, data, err = c.ws.ReadMessage(); err != nil {
			break
		}
		msg, derr := decode(data)
		if derr != nil {
			c.logger.Warn("Dropping undecodable frame", "error", derr)
			continue
		}
		c.dispatch(msg)
	}
	c.shutdown(err)
}

func (c *Client) dispatch(msg *Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if msg.Type == TypePush {
		if f, ok := c.feeds[msg.Sub]; ok && msg.Snapshot != nil {
			f.Offer(*msg.Snapshot)
		}
		return
	}
	if ch, ok := c.pending[msg.ID]; ok {
		delete(c.pending, msg.ID)
		ch <- msg
		return
	}
	if msg.Code != "" {
		c.logger.Warn("Server reported an error", "code", msg.Code, "error", msg.Error)
	}
}

func (c *Client) shutdown(cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.err = cause
	for id, f := range c.feeds {
		f.Stop()
		delete(c.feeds, id)
	}
	for id := range c.pending {
		delete(c.pending, id)
	}
	close(c.done)
	if cause != nil && !websocket.IsCloseError(cause, websocket.CloseNormalClosure) {
		c.logger.Warn("Connection to room server lost", "error", cause)
	}
}

func (c *Client) write(m *Message) error {
	data, err := encode(m)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// call sends a request and waits for its result.
func (c *Client) call(ctx context.Context, m *Message) (*Message, error) {
	m.ID = c.nextID.Add(1)
	ch := make(chan *Message, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, store.ErrClosed
	}
	c.pending[m.ID] = ch
	c.mu.Unlock()

	forget := func() {
		c.mu.Lock()
		delete(c.pending, m.ID)
		c.mu.Unlock()
	}

	if err := c.write(m); err != nil {
		forget()
		return nil, fmt.Errorf("%w: %v", store.ErrClosed, err)
	}

	select {
	case reply := <-ch:
		if err := remoteError(reply); err != nil {
			return nil, err
		}
		return reply, nil
	case <-ctx.Done():
		forget()
		return nil, ctx.Err()
	case <-c.done:
		return nil, store.ErrClosed
	}
}

func (c *Client) Get(ctx context.Context, room, path string) (store.Entry, error) {
	reply, err := c.call(ctx, &Message{Type: TypeGet, Room: room, Path: path})
	if err != nil {
		return store.Entry{}, err
	}
	if reply.Entry == nil {
		return store.Entry{}, nil
	}
	return *reply.Entry, nil
}

func (c *Client) Snapshot(ctx context.Context, room string) (store.Snapshot, error) {
	reply, err := c.call(ctx, &Message{Type: TypeSnapshot, Room: room})
	if err != nil {
		return store.Snapshot{}, err
	}
	if reply.Snapshot == nil {
		return store.Snapshot{}, fmt.Errorf("%w: snapshot result without snapshot", store.ErrMalformed)
	}
	snap := *reply.Snapshot
	if snap.Entries == nil {
		snap.Entries = map[string]store.Entry{}
	}
	return snap, nil
}

func (c *Client) Commit(ctx context.Context, room string, reads map[string]int64, writes map[string][]byte) (bool, error) {
	reply, err := c.call(ctx, &Message{Type: TypeCommit, Room: room, Reads: reads, Writes: writes})
	if err != nil {
		return false, err
	}
	return reply.Committed, nil
}

// Subscribe registers fn before asking the server to subscribe, so the
// initial snapshot push is never missed.
func (c *Client) Subscribe(ctx context.Context, room string, fn func(store.Snapshot)) (store.Subscription, error) {
	id := c.nextID.Add(1)
	feed := store.NewFeed(fn)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		feed.Stop()
		return nil, store.ErrClosed
	}
	c.feeds[id] = feed
	c.mu.Unlock()

	if _, err := c.call(ctx, &Message{Type: TypeSubscribe, Room: room, Sub: id}); err != nil {
		c.dropFeed(id)
		return nil, err
	}
	return &subscription{client: c, id: id}, nil
}

func (c *Client) dropFeed(id uint64) bool {
	c.mu.Lock()
	f, ok := c.feeds[id]
	delete(c.feeds, id)
	c.mu.Unlock()
	if ok {
		f.Stop()
	}
	return ok
}

// Close ends the connection. Subscriptions stop; the server keeps the rooms.
func (c *Client) Close() error {
	c.shutdown(nil)
	c.writeMu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	c.writeMu.Unlock()
	if err := c.ws.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// Done is closed once the connection is gone.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

type subscription struct {
	client *Client
	id     uint64
	once   sync.Once
}

func (s *subscription) Close() error {
	var err error
	s.once.Do(func() {
		if !s.client.dropFeed(s.id) {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		defer cancel()
		if _, cerr := s.client.call(ctx, &Message{Type: TypeUnsubscribe, Sub: s.id}); cerr != nil && !errors.Is(cerr, store.ErrClosed) {
			err = cerr
		}
	})
	return err
}
