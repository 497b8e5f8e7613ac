package shared

import "fmt"

// Suit represents the suit of a card (Ouros, Copas, Espadas, Paus).
type Suit string

const (
	Ouros   Suit = "Ouros"
	Copas   Suit = "Copas"
	Espadas Suit = "Espadas"
	Paus    Suit = "Paus"
)

// Suits lists the four suits in deck construction order.
var Suits = []Suit{Ouros, Copas, Espadas, Paus}

// Rank represents the rank of a card. The Truco deck has no 8, 9 or 10.
type Rank string

const (
	Ace   Rank = "A"
	Two   Rank = "2"
	Three Rank = "3"
	Four  Rank = "4"
	Five  Rank = "5"
	Six   Rank = "6"
	Seven Rank = "7"
	Jack  Rank = "J"
	Queen Rank = "Q"
	King  Rank = "K"
)

// Ranks lists the ten ranks in deck construction order.
var Ranks = []Rank{Ace, Two, Three, Four, Five, Six, Seven, Jack, Queen, King}

// viraOrder is the cyclic order used to find the manilha rank from the vira.
var viraOrder = []Rank{Four, Five, Six, Seven, Jack, Queen, King, Ace, Two, Three}

// Base strength of ordinary cards. Every entry sits below the lowest
// manilha value, and 3 ranks between 6 and 7.
var baseValues = map[Rank]int{
	Four:  0,
	Five:  1,
	Six:   2,
	Three: 3,
	Seven: 4,
	Jack:  5,
	Queen: 6,
	King:  7,
	Ace:   8,
	Two:   9,
}

// Comparison values a manilha takes on, overriding its base value.
var manilhaValues = map[Rank]int{
	Four:  10,
	Seven: 11,
	Ace:   12,
	Two:   13,
}

// Tiebreak between two manilhas.
var suitStrength = map[Suit]int{
	Paus:    4,
	Copas:   3,
	Espadas: 2,
	Ouros:   1,
}

var suitSymbols = map[Suit]string{
	Copas:   "♥",
	Ouros:   "♦",
	Espadas: "♠",
	Paus:    "♣",
}

// Card represents a single card of the Truco deck.
// Suit, Rank and BaseValue never change once the card is built; Manilha and
// Value are set when the round's vira is revealed.
type Card struct {
	Suit      Suit `json:"suit"`
	Rank      Rank `json:"rank"`
	BaseValue int  `json:"-"`
	Manilha   bool `json:"manilha"`
	Value     int  `json:"-"` // comparison value, derived from BaseValue unless Manilha
}

// NewCard builds an unclassified card. It panics on an unknown rank.
func NewCard(suit Suit, rank Rank) Card {
	base, ok := baseValues[rank]
	if !ok {
		panic(fmt.Sprintf("shared: unknown rank %q", rank))
	}
	return Card{Suit: suit, Rank: rank, BaseValue: base, Value: base}
}

// NextRank returns the rank following r in the vira cycle 4,5,6,7,J,Q,K,A,2,3.
func NextRank(r Rank) Rank {
	for i, rank := range viraOrder {
		if rank == r {
			return viraOrder[(i+1)%len(viraOrder)]
		}
	}
	panic(fmt.Sprintf("shared: unknown rank %q", r))
}

// ClassifyAsManilha flags the card as a manilha and fixes its comparison value.
// Calling it again is a no-op.
func (c *Card) ClassifyAsManilha() {
	c.Manilha = true
	if v, ok := manilhaValues[c.Rank]; ok {
		c.Value = v
	}
}

// Compare returns 1 if c beats other, -1 if other beats c and 0 if neither does.
// Any manilha beats any ordinary card; two manilhas are ranked by suit
// (Paus > Copas > Espadas > Ouros).
func (c Card) Compare(other Card) int {
	switch {
	case c.Manilha && !other.Manilha:
		return 1
	case !c.Manilha && other.Manilha:
		return -1
	case c.Manilha && other.Manilha:
		return sign(suitStrength[c.Suit] - suitStrength[other.Suit])
	default:
		return sign(c.Value - other.Value)
	}
}

// SameIdentity reports whether both cards have the same suit and rank.
func (c Card) SameIdentity(other Card) bool {
	return c.Suit == other.Suit && c.Rank == other.Rank
}

func (c Card) String() string {
	return string(c.Rank) + suitSymbols[c.Suit]
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	}
	return 0
}
