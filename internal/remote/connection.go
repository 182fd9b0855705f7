package remote

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/headsup/internal/store"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Room snapshots carry whole documents, so this is larger than a
	// typical control frame.
	maxMessageSize = 1 << 20

	sendBuffer = 256
)

// connection is one peer on the server side. Requests are handled in read
// order; subscription pushes share the send queue with results.
type connection struct {
	server *Server
	ws     *websocket.Conn
	send   chan []byte
	logger *log.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	subs      map[uint64]store.Subscription
	closeOnce sync.Once
}

func newConnection(s *Server, ws *websocket.Conn) *connection {
	ctx, cancel := context.WithCancel(s.ctx)
	return &connection{
		server: s,
		ws:     ws,
		send:   make(chan []byte, sendBuffer),
		logger: s.logger.WithPrefix("conn"),
		ctx:    ctx,
		cancel: cancel,
		subs:   make(map[uint64]store.Subscription),
	}
}

func (c *connection) start() {
	go c.writePump()
	go c.readPump()
}

// close drops every subscription of this peer. Room documents are left
// as they are.
func (c *connection) close() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.mu.Lock()
		subs := c.subs
		c.subs = make(map[uint64]store.Subscription)
		c.mu.Unlock()
		for _, sub := range subs {
			_ = sub.Close()
		}
		_ = c.ws.Close()
	})
}

func (c *connection) enqueue(m *Message) {
	data, err := encode(m)
	if err != nil {
		c.logger.Error("Failed to encode frame", "type", m.Type, "error", err)
		return
	}
	select {
	case c.send <- data:
	case <-c.ctx.Done():
	default:
		c.logger.Warn("Peer send buffer full, closing connection")
		c.close()
	}
}

func (c *connection) readPump() {
	defer c.close()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}
		msg, err := decode(data)
		if err != nil {
			c.enqueue(&Message{Type: TypeResult, Code: CodeInvalid, Error: err.Error()})
			continue
		}
		c.handle(msg)
	}
}

func (c *connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Error("Failed to write frame", "error", err)
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.ctx.Done():
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

func (c *connection) handle(msg *Message) {
	c.logger.Debug("Received frame", "type", msg.Type, "id", msg.ID, "room", msg.Room)

	reply := &Message{ID: msg.ID, Type: TypeResult}
	ctx, cancel := context.WithTimeout(c.ctx, requestTimeout)
	defer cancel()
	backend := c.server.backend

	var err error
	switch msg.Type {
	case TypeGet:
		var e store.Entry
		if e, err = backend.Get(ctx, msg.Room, msg.Path); err == nil {
			reply.Entry = &e
		}

	case TypeSnapshot:
		var s store.Snapshot
		if s, err = backend.Snapshot(ctx, msg.Room); err == nil {
			reply.Snapshot = &s
		}

	case TypeCommit:
		reply.Committed, err = backend.Commit(ctx, msg.Room, msg.Reads, msg.Writes)

	case TypeSubscribe:
		err = c.subscribe(msg.Room, msg.Sub)

	case TypeUnsubscribe:
		c.unsubscribe(msg.Sub)

	default:
		reply.Code = CodeInvalid
		reply.Error = "unknown message type: " + string(msg.Type)
	}

	if err != nil {
		reply.Code = errorCode(err)
		reply.Error = err.Error()
		c.logger.Debug("Request failed", "type", msg.Type, "room", msg.Room, "error", err)
	}
	c.enqueue(reply)
}

func (c *connection) subscribe(room string, id uint64) error {
	c.mu.Lock()
	if _, ok := c.subs[id]; ok {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	sub, err := c.server.backend.Subscribe(c.ctx, room, func(s store.Snapshot) {
		c.enqueue(&Message{Type: TypePush, Sub: id, Snapshot: &s})
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctx.Err() != nil {
		_ = sub.Close()
		return store.ErrClosed
	}
	c.subs[id] = sub
	return nil
}

func (c *connection) unsubscribe(id uint64) {
	c.mu.Lock()
	sub, ok := c.subs[id]
	delete(c.subs, id)
	c.mu.Unlock()
	if ok {
		_ = sub.Close()
	}
}
