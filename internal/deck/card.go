package deck

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Suit represents a card suit
type Suit int

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
)

// Suits lists every suit in deck order.
var Suits = [...]Suit{Spades, Hearts, Diamonds, Clubs}

// String returns the suit symbol
func (s Suit) String() string {
	switch s {
	case Spades:
		return "♠"
	case Hearts:
		return "♥"
	case Diamonds:
		return "♦"
	case Clubs:
		return "♣"
	default:
		return "?"
	}
}

// IsRed returns true if the suit is red (Hearts or Diamonds)
func (s Suit) IsRed() bool {
	return s == Hearts || s == Diamonds
}

// Valid reports whether s is one of the four suits.
func (s Suit) Valid() bool {
	return s >= Spades && s <= Clubs
}

// Rank represents a card rank. Values equal the pip count, aces are 14.
type Rank int

const (
	Two Rank = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

// String returns the rank symbol
func (r Rank) String() string {
	switch {
	case r >= Two && r <= Ten:
		return fmt.Sprintf("%d", int(r))
	case r == Jack:
		return "J"
	case r == Queen:
		return "Q"
	case r == King:
		return "K"
	case r == Ace:
		return "A"
	default:
		return "?"
	}
}

// Name returns the spoken name of the rank ("Two", "Queen").
func (r Rank) Name() string {
	names := [...]string{"Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine", "Ten", "Jack", "Queen", "King", "Ace"}
	if !r.Valid() {
		return "Unknown"
	}
	return names[r-Two]
}

// Plural returns the plural name of the rank ("Sixes", "Aces").
func (r Rank) Plural() string {
	if r == Six {
		return "Sixes"
	}
	return r.Name() + "s"
}

// Valid reports whether r is between Two and Ace.
func (r Rank) Valid() bool {
	return r >= Two && r <= Ace
}

// Card represents a playing card
type Card struct {
	Rank Rank
	Suit Suit
}

// NewCard creates a new card
func NewCard(rank Rank, suit Suit) Card {
	return Card{Rank: rank, Suit: suit}
}

// String returns the card token, rank symbol then suit symbol (e.g. "10♠", "A♥")
func (c Card) String() string {
	return c.Rank.String() + c.Suit.String()
}

// IsRed returns true if the card is red
func (c Card) IsRed() bool {
	return c.Suit.IsRed()
}

// Valid reports whether both rank and suit are in range.
func (c Card) Valid() bool {
	return c.Rank.Valid() && c.Suit.Valid()
}

// MarshalText encodes the card as its token.
func (c Card) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid card %d/%d", c.Rank, c.Suit)
	}
	return []byte(c.String()), nil
}

// UnmarshalText decodes a card token.
func (c *Card) UnmarshalText(text []byte) error {
	parsed, err := ParseCard(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCard parses a single card token. Both the symbol form ("10♠", "T♠",
// "A♥") and the ASCII form ("Ts", "Ah") are accepted.
func ParseCard(s string) (Card, error) {
	c, rest, err := scanCard(s)
	if err != nil {
		return Card{}, err
	}
	if rest != "" {
		return Card{}, fmt.Errorf("invalid card %q: trailing %q", s, rest)
	}
	return c, nil
}

// MustParseCard is ParseCard for literals; it panics on error.
func MustParseCard(s string) Card {
	c, err := ParseCard(s)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseCards parses a run of card tokens. Tokens may be concatenated
// ("AsKsQs") or separated by spaces or commas ("A♠ K♠, 10♠").
func ParseCards(s string) ([]Card, error) {
	cards := []Card{}
	rest := s
	for {
		rest = strings.TrimLeftFunc(rest, func(r rune) bool {
			return unicode.IsSpace(r) || r == ','
		})
		if rest == "" {
			return cards, nil
		}
		var (
			c   Card
			err error
		)
		c, rest, err = scanCard(rest)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
}

// MustParseCards is ParseCards for literals; it panics on error.
func MustParseCards(s string) []Card {
	cards, err := ParseCards(s)
	if err != nil {
		panic(err)
	}
	return cards
}

func scanCard(s string) (Card, string, error) {
	if s == "" {
		return Card{}, "", fmt.Errorf("empty card token")
	}

	var rank Rank
	width := 1
	switch s[0] {
	case '2', '3', '4', '5', '6', '7', '8', '9':
		rank = Rank(s[0] - '0')
	case '1':
		if len(s) < 2 || s[1] != '0' {
			return Card{}, "", fmt.Errorf("invalid rank in %q", s)
		}
		rank, width = Ten, 2
	case 'T', 't':
		rank = Ten
	case 'J', 'j':
		rank = Jack
	case 'Q', 'q':
		rank = Queen
	case 'K', 'k':
		rank = King
	case 'A', 'a':
		rank = Ace
	default:
		return Card{}, "", fmt.Errorf("invalid rank in %q", s)
	}

	rest := s[width:]
	r, size := utf8.DecodeRuneInString(rest)
	var suit Suit
	switch r {
	case '♠', 's', 'S':
		suit = Spades
	case '♥', 'h', 'H':
		suit = Hearts
	case '♦', 'd', 'D':
		suit = Diamonds
	case '♣', 'c', 'C':
		suit = Clubs
	default:
		return Card{}, "", fmt.Errorf("invalid suit in %q", s)
	}

	return Card{Rank: rank, Suit: suit}, rest[size:], nil
}

// FormatCards joins card tokens with single spaces.
func FormatCards(cards []Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}
