// internal/cards/deck.go
package cards

import (
	"errors"
	"math/rand"
	"time"
)

// MaxHandSize is the most cards a player may hold.
const MaxHandSize = 8

var (
	ErrDeckEmpty = errors.New("no cards left in the deck")
	ErrHandFull  = errors.New("hand already holds the maximum number of cards")
)

// Deck is a standard 52-card deck dealt without replacement. Each draw picks a
// uniformly random index from the pool of indices that have not been dealt yet.
type Deck struct {
	cards     []Card
	available []int
	rng       *rand.Rand
}

// NewDeck builds a fresh 52-card deck. A nil rng gets a time-seeded source.
func NewDeck(rng *rand.Rand) *Deck {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	d := &Deck{
		cards:     make([]Card, 0, len(Suits)*len(Ranks)),
		available: make([]int, 0, len(Suits)*len(Ranks)),
		rng:       rng,
	}
	for _, s := range Suits {
		for _, r := range Ranks {
			d.available = append(d.available, len(d.cards))
			d.cards = append(d.cards, Card{Rank: r, Suit: s})
		}
	}
	return d
}

// Draw removes and returns a random undealt card. ok is false once the deck is exhausted.
func (d *Deck) Draw() (card Card, ok bool) {
	if len(d.available) == 0 {
		return Card{}, false
	}
	i := d.rng.Intn(len(d.available))
	idx := d.available[i]
	d.available = append(d.available[:i], d.available[i+1:]...)
	return d.cards[idx], true
}

// Remaining reports how many cards have not been dealt.
func (d *Deck) Remaining() int {
	return len(d.available)
}

// Hand is an ordered set of at most MaxHandSize cards.
type Hand struct {
	cards []Card
}

// Add appends c, failing when the hand is full.
func (h *Hand) Add(c Card) error {
	if len(h.cards) >= MaxHandSize {
		return ErrHandFull
	}
	h.cards = append(h.cards, c)
	return nil
}

// Remove drops c from the hand. Removing a card that is not held is a no-op.
func (h *Hand) Remove(c Card) bool {
	for i, held := range h.cards {
		if held == c {
			h.cards = append(h.cards[:i], h.cards[i+1:]...)
			return true
		}
	}
	return false
}

func (h *Hand) Contains(c Card) bool {
	for _, held := range h.cards {
		if held == c {
			return true
		}
	}
	return false
}

// Cards returns a copy of the held cards.
func (h *Hand) Cards() []Card {
	out := make([]Card, len(h.cards))
	copy(out, h.cards)
	return out
}

func (h *Hand) Len() int {
	return len(h.cards)
}

// PlayerDeck pairs a private deck with the hand dealt from it.
type PlayerDeck struct {
	deck *Deck
	hand Hand
}

// NewPlayerDeck builds a deck and deals an initial full hand from it.
func NewPlayerDeck(rng *rand.Rand) *PlayerDeck {
	pd := &PlayerDeck{deck: NewDeck(rng)}
	pd.Fill()
	return pd
}

// DrawOne moves one random card from the deck into the hand.
func (pd *PlayerDeck) DrawOne() (Card, error) {
	if pd.hand.Len() >= MaxHandSize {
		return Card{}, ErrHandFull
	}
	c, ok := pd.deck.Draw()
	if !ok {
		return Card{}, ErrDeckEmpty
	}
	// cannot fail, size checked above
	_ = pd.hand.Add(c)
	return c, nil
}

// Fill tops the hand up to MaxHandSize and returns the cards drawn. It stops early
// when the deck runs out.
func (pd *PlayerDeck) Fill() []Card {
	var drawn []Card
	for pd.hand.Len() < MaxHandSize {
		c, err := pd.DrawOne()
		if err != nil {
			break
		}
		drawn = append(drawn, c)
	}
	return drawn
}

func (pd *PlayerDeck) Hand() *Hand {
	return &pd.hand
}

func (pd *PlayerDeck) Remaining() int {
	return pd.deck.Remaining()
}
