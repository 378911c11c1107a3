// internal/cards/card.go
package cards

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedCard = errors.New("card code must be a rank followed by a suit")
	ErrUnknownRank   = errors.New("unknown card rank")
	ErrUnknownSuit   = errors.New("unknown card suit")
)

// Suit is the single-letter suit code of a card.
type Suit byte

const (
	Hearts   Suit = 'H'
	Diamonds Suit = 'D'
	Clubs    Suit = 'C'
	Spades   Suit = 'S'
)

// Suits in deck order.
var Suits = []Suit{Hearts, Diamonds, Clubs, Spades}

// Rank is the numeric rank of a card, 2 through 14 (Ace high).
type Rank int

const (
	Ten   Rank = 10
	Jack  Rank = 11
	Queen Rank = 12
	King  Rank = 13
	Ace   Rank = 14
)

// Ranks in deck order (Ace first, matching the dealing table).
var Ranks = []Rank{Ace, 2, 3, 4, 5, 6, 7, 8, 9, Ten, Jack, Queen, King}

var rankCodes = map[byte]Rank{
	'2': 2, '3': 3, '4': 4, '5': 5, '6': 6, '7': 7, '8': 8, '9': 9,
	'T': Ten, 'J': Jack, 'Q': Queen, 'K': King, 'A': Ace,
}

// Code returns the one-character rank code ("2".."9", "T", "J", "Q", "K", "A").
func (r Rank) Code() string {
	switch {
	case r >= 2 && r <= 9:
		return string(rune('0' + int(r)))
	case r == Ten:
		return "T"
	case r == Jack:
		return "J"
	case r == Queen:
		return "Q"
	case r == King:
		return "K"
	case r == Ace:
		return "A"
	}
	return "?"
}

// Chips is the value a card adds to a scored hand: face value, 10 for J/Q/K and 11 for an Ace.
func (r Rank) Chips() int {
	switch {
	case r == Ace:
		return 11
	case r >= Jack:
		return 10
	}
	return int(r)
}

func parseRank(b byte) (Rank, error) {
	r, ok := rankCodes[b]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownRank, string(b))
	}
	return r, nil
}

func parseSuit(b byte) (Suit, error) {
	switch Suit(b) {
	case Hearts, Diamonds, Clubs, Spades:
		return Suit(b), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSuit, string(b))
}

// Card is an immutable playing card. It encodes as its two-character code, e.g. "TH".
type Card struct {
	Rank Rank
	Suit Suit
}

// Validate reports whether c has a known rank and suit.
func (c Card) Validate() error {
	if c.Rank < 2 || c.Rank > Ace {
		return fmt.Errorf("%w: %d", ErrUnknownRank, int(c.Rank))
	}
	if _, err := parseSuit(byte(c.Suit)); err != nil {
		return err
	}
	return nil
}

// ParseCard parses a two-character card code such as "7C" or "AS".
func ParseCard(code string) (Card, error) {
	if len(code) != 2 {
		return Card{}, fmt.Errorf("%w: %q", ErrMalformedCard, code)
	}
	r, err := parseRank(code[0])
	if err != nil {
		return Card{}, err
	}
	s, err := parseSuit(code[1])
	if err != nil {
		return Card{}, err
	}
	return Card{Rank: r, Suit: s}, nil
}

// ParseCards parses every code, failing on the first bad one.
func ParseCards(codes []string) ([]Card, error) {
	out := make([]Card, 0, len(codes))
	for _, code := range codes {
		c, err := ParseCard(code)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Codes returns the string codes of cs in order.
func Codes(cs []Card) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.String()
	}
	return out
}

func (c Card) String() string {
	return c.Rank.Code() + string(c.Suit)
}

func (c Card) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Card) UnmarshalText(text []byte) error {
	parsed, err := ParseCard(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
