// Package roomid generates room and player identifiers. Room ids are UUIDv7
// values in Crockford base32, so they are short enough to read out loud and
// sort by creation time.
package roomid

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

// Crockford's base32 alphabet, lower case.
const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// Length of an encoded room id: 128 bits padded to 130.
const Length = 26

// New returns a fresh room id.
func New() string {
	return encode(uuid.Must(uuid.NewV7()))
}

// FromReader builds a room id taking its random bits from r.
func FromReader(r io.Reader) (string, error) {
	u, err := uuid.NewV7FromReader(r)
	if err != nil {
		return "", fmt.Errorf("room id: %w", err)
	}
	return encode(u), nil
}

// Player returns a short player id with the given prefix, e.g. "bot-1a2b3c4d".
func Player(prefix string) string {
	id := uuid.NewString()[:8]
	if prefix == "" {
		return id
	}
	return prefix + "-" + id
}

// encode writes the 128 bits as 26 five-bit groups, most significant first,
// with two leading zero bits.
func encode(u uuid.UUID) string {
	var out [Length]byte
	var acc uint32
	bits := 2 // leading padding
	i := 0
	for _, b := range u {
		acc = acc<<8 | uint32(b)
		bits += 8
		for bits >= 5 {
			bits -= 5
			out[i] = alphabet[(acc>>uint(bits))&0x1f]
			i++
		}
	}
	return string(out[:])
}

// Validate checks that id could have come from New.
func Validate(id string) error {
	if len(id) != Length {
		return fmt.Errorf("room id must be exactly %d characters, got %d", Length, len(id))
	}
	if id[0] > '7' {
		return fmt.Errorf("room id first character must be 0-7, got %c", id[0])
	}
	for i, r := range id {
		if !strings.ContainsRune(alphabet, r) {
			return fmt.Errorf("invalid character %c at position %d", r, i)
		}
	}
	return nil
}
