// Package remote exposes a store.Backend over a websocket so that players on
// different machines can share one room without direct access to Redis.
package remote

import (
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/lox/headsup/internal/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// MessageType identifies a frame on the wire.
type MessageType string

const (
	TypeGet         MessageType = "get"
	TypeSnapshot    MessageType = "snapshot"
	TypeCommit      MessageType = "commit"
	TypeSubscribe   MessageType = "subscribe"
	TypeUnsubscribe MessageType = "unsubscribe"
	TypeResult      MessageType = "result"
	TypePush        MessageType = "push"
)

// Error codes carried in Message.Code.
const (
	CodeMalformed = "malformed"
	CodeClosed    = "closed"
	CodeInvalid   = "invalid_message"
	CodeBackend   = "backend"
)

// Message is the single frame shape for requests, responses and pushes.
// Requests carry an ID that the matching result echoes. Pushes carry the
// client-chosen subscription id instead.
type Message struct {
	ID        uint64            `json:"id,omitempty"`
	Type      MessageType       `json:"type"`
	Room      string            `json:"room,omitempty"`
	Path      string            `json:"path,omitempty"`
	Reads     map[string]int64  `json:"reads,omitempty"`
	Writes    map[string][]byte `json:"writes,omitempty"`
	Sub       uint64            `json:"sub,omitempty"`
	Entry     *store.Entry      `json:"entry,omitempty"`
	Snapshot  *store.Snapshot   `json:"snapshot,omitempty"`
	Committed bool              `json:"committed,omitempty"`
	Code      string            `json:"code,omitempty"`
	Error     string            `json:"error,omitempty"`
}

func encode(m *Message) ([]byte, error) {
	return json.Marshal(m)
}

func decode(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	if m.Type == "" {
		return nil, errors.New("decode frame: missing type")
	}
	return &m, nil
}

// errorCode maps backend errors onto wire codes.
func errorCode(err error) string {
	switch {
	case errors.Is(err, store.ErrMalformed):
		return CodeMalformed
	case errors.Is(err, store.ErrClosed):
		return CodeClosed
	default:
		return CodeBackend
	}
}

// remoteError rebuilds an error from a result frame, keeping the store
// sentinels matchable with errors.Is.
func remoteError(m *Message) error {
	if m.Code == "" && m.Error == "" {
		return nil
	}
	switch m.Code {
	case CodeMalformed:
		return fmt.Errorf("%w: %s", store.ErrMalformed, m.Error)
	case CodeClosed:
		return store.ErrClosed
	default:
		return fmt.Errorf("remote: %s: %s", m.Code, m.Error)
	}
}
