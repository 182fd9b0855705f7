package phh

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/BurntSushi/toml"
)

// Encode writes one hand as a PHH document.
func Encode(w io.Writer, hand *HandHistory) error {
	if hand == nil {
		return fmt.Errorf("phh: hand history is nil")
	}
	enc := toml.NewEncoder(w)
	enc.Indent = "\t"
	return enc.Encode(hand)
}

// EncodeToBytes encodes one hand.
func EncodeToBytes(hand *HandHistory) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, hand); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Writer appends hands to a .phhs stream, each under a table named by its
// hand number. It is safe for concurrent use.
type Writer struct {
	mu  sync.Mutex
	w   io.Writer
	n   int
	err error
}

// NewWriter writes to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write appends hand. After the first failure every call returns that error.
func (w *Writer) Write(hand *HandHistory) error {
	if hand == nil {
		return fmt.Errorf("phh: hand history is nil")
	}
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.Indent = "\t"
	if err := enc.Encode(map[string]*HandHistory{strconv.Itoa(hand.Hand): hand}); err != nil {
		return fmt.Errorf("phh: encode hand %d: %w", hand.Hand, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	if w.n > 0 {
		buf.WriteByte('\n')
	}
	if _, err := w.w.Write(buf.Bytes()); err != nil {
		w.err = fmt.Errorf("phh: write: %w", err)
		return w.err
	}
	w.n++
	return nil
}

// Count returns the number of hands written.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.n
}
