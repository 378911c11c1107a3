// internal/hand/evaluator.go
package hand

import (
	"errors"
	"fmt"
	"sort"

	"github.com/jason-s-yu/duelhall/internal/cards"
	"github.com/paulhankin/poker"
)

var ErrEmptySelection = errors.New("no cards to evaluate")

// Category is a poker-like hand class, strongest first.
type Category int

const (
	RoyalFlush Category = iota
	StraightFlush
	FourKind
	FullHouse
	Flush
	Straight
	ThreeKind
	TwoPair
	Pair
	High
)

var categoryNames = [...]string{
	RoyalFlush:    "ROYAL_FLUSH",
	StraightFlush: "STRAIGHT_FLUSH",
	FourKind:      "FOUR_KIND",
	FullHouse:     "FULL_HOUSE",
	Flush:         "FLUSH",
	Straight:      "STRAIGHT",
	ThreeKind:     "THREE_KIND",
	TwoPair:       "TWO_PAIR",
	Pair:          "PAIR",
	High:          "HIGH",
}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return "UNKNOWN"
	}
	return categoryNames[c]
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Base chips and multiplier for each category.
var scoreTable = map[Category]struct{ base, mult int }{
	RoyalFlush:    {100, 8},
	StraightFlush: {100, 8},
	FourKind:      {60, 7},
	FullHouse:     {40, 4},
	Flush:         {35, 4},
	Straight:      {30, 4},
	ThreeKind:     {30, 3},
	TwoPair:       {20, 2},
	Pair:          {10, 2},
	High:          {5, 1},
}

// Result is the outcome of evaluating a played selection.
type Result struct {
	Category     Category     `json:"category"`
	Contributing []cards.Card `json:"contributing"`
	Score        int          `json:"score"`
	Description  string       `json:"description,omitempty"`
}

// Score is (base + chips of the contributing cards) * multiplier for the category.
func Score(cat Category, contributing []cards.Card) int {
	entry := scoreTable[cat]
	chips := entry.base
	for _, c := range contributing {
		chips += c.Rank.Chips()
	}
	return chips * entry.mult
}

// EvaluateCodes parses two-character codes and evaluates them.
func EvaluateCodes(codes []string) (Result, error) {
	cs, err := cards.ParseCards(codes)
	if err != nil {
		return Result{}, fmt.Errorf("evaluate hand: %w", err)
	}
	return Evaluate(cs)
}

// Evaluate classifies a non-empty selection and scores it. The first matching
// category wins; contributing cards keep their input order.
func Evaluate(cs []cards.Card) (Result, error) {
	if len(cs) == 0 {
		return Result{}, ErrEmptySelection
	}
	for _, c := range cs {
		if err := c.Validate(); err != nil {
			return Result{}, fmt.Errorf("evaluate hand: %w", err)
		}
	}

	cat, contributing := classify(cs)
	res := Result{
		Category:     cat,
		Contributing: contributing,
		Score:        Score(cat, contributing),
		Description:  describe(cs),
	}
	return res, nil
}

func classify(cs []cards.Card) (Category, []cards.Card) {
	counts := make(map[cards.Rank]int, len(cs))
	for _, c := range cs {
		counts[c.Rank]++
	}
	flush := sameSuit(cs)
	straight := consecutive(cs)

	if flush && straight {
		if highest(cs).Rank == cards.Ace {
			return RoyalFlush, cs
		}
		return StraightFlush, cs
	}
	if quads := ranksWithCount(counts, 4); len(quads) > 0 {
		return FourKind, pick(cs, quads[0])
	}
	trips := ranksWithCount(counts, 3)
	pairs := ranksWithCount(counts, 2)
	if len(trips) > 0 && len(pairs) > 0 {
		return FullHouse, pick(cs, trips[0], pairs[0])
	}
	if flush {
		return Flush, cs
	}
	if straight {
		return Straight, cs
	}
	if len(trips) > 0 {
		return ThreeKind, pick(cs, trips[0])
	}
	if len(pairs) >= 2 {
		return TwoPair, pick(cs, pairs[0], pairs[1])
	}
	if len(pairs) == 1 {
		return Pair, pick(cs, pairs[0])
	}
	return High, []cards.Card{highest(cs)}
}

func sameSuit(cs []cards.Card) bool {
	for _, c := range cs[1:] {
		if c.Suit != cs[0].Suit {
			return false
		}
	}
	return true
}

// consecutive reports whether the sorted ranks step by exactly one. A single
// card counts as consecutive.
func consecutive(cs []cards.Card) bool {
	ranks := make([]int, len(cs))
	for i, c := range cs {
		ranks[i] = int(c.Rank)
	}
	sort.Ints(ranks)
	for i := 1; i < len(ranks); i++ {
		if ranks[i]-ranks[i-1] != 1 {
			return false
		}
	}
	return true
}

func highest(cs []cards.Card) cards.Card {
	best := cs[0]
	for _, c := range cs[1:] {
		if c.Rank > best.Rank {
			best = c
		}
	}
	return best
}

// ranksWithCount returns the ranks appearing exactly n times, highest first.
func ranksWithCount(counts map[cards.Rank]int, n int) []cards.Rank {
	var out []cards.Rank
	for r, c := range counts {
		if c == n {
			out = append(out, r)
		}
	}
	sortDesc(out)
	return out
}

func sortDesc(rs []cards.Rank) {
	sort.Slice(rs, func(i, j int) bool { return rs[i] > rs[j] })
}

func pick(cs []cards.Card, ranks ...cards.Rank) []cards.Card {
	var out []cards.Card
	for _, c := range cs {
		for _, r := range ranks {
			if c.Rank == r {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// describe labels 5 and 7 card selections with the standard poker hand name.
func describe(cs []cards.Card) string {
	if len(cs) != 5 && len(cs) != 7 {
		return ""
	}
	pc := make([]poker.Card, 0, len(cs))
	for _, c := range cs {
		card, err := toPokerCard(c)
		if err != nil {
			return ""
		}
		pc = append(pc, card)
	}
	desc, err := poker.Describe(pc)
	if err != nil {
		return ""
	}
	return desc
}

func toPokerCard(c cards.Card) (poker.Card, error) {
	var suit poker.Suit
	switch c.Suit {
	case cards.Clubs:
		suit = poker.Club
	case cards.Diamonds:
		suit = poker.Diamond
	case cards.Hearts:
		suit = poker.Heart
	case cards.Spades:
		suit = poker.Spade
	}
	rank := poker.Rank(c.Rank)
	if c.Rank == cards.Ace {
		rank = 1
	}
	return poker.MakeCard(suit, rank)
}
