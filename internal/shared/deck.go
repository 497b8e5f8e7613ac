package shared

import (
	"math/rand/v2"
)

// HandSize is the number of cards each player receives per round.
const HandSize = 3

// DeckSize is the number of cards in a Truco deck (4 suits x 10 ranks).
const DeckSize = 40

// Deck represents the 40-card pool of a single round.
type Deck struct {
	Cards       []Card
	Vira        *Card // face-up card revealed before dealing, nil until DrawVira
	ManilhaRank Rank  // empty until DrawVira
	rng         *rand.Rand
}

// NewDeck creates a built, unshuffled deck using the package-level random source.
func NewDeck() *Deck {
	return NewDeckWithRand(nil)
}

// NewDeckWithRand creates a built, unshuffled deck that shuffles with rng.
// A nil rng falls back to the package-level source.
func NewDeckWithRand(rng *rand.Rand) *Deck {
	d := &Deck{rng: rng}
	d.Build()
	return d
}

// Build populates all 40 suit x rank combinations. No card is a manilha yet.
func (d *Deck) Build() {
	cards := make([]Card, 0, DeckSize)
	for _, suit := range Suits {
		for _, rank := range Ranks {
			cards = append(cards, NewCard(suit, rank))
		}
	}
	d.Cards = cards
	d.Vira = nil
	d.ManilhaRank = ""
}

// Shuffle randomizes the order of cards in the deck (Fisher-Yates).
func (d *Deck) Shuffle() {
	swap := func(i, j int) {
		d.Cards[i], d.Cards[j] = d.Cards[j], d.Cards[i]
	}
	if d.rng != nil {
		d.rng.Shuffle(len(d.Cards), swap)
		return
	}
	rand.Shuffle(len(d.Cards), swap)
}

// Draw pops the top card. ok is false when the deck is empty.
func (d *Deck) Draw() (card Card, ok bool) {
	if len(d.Cards) == 0 {
		return Card{}, false
	}
	last := len(d.Cards) - 1
	card = d.Cards[last]
	d.Cards = d.Cards[:last]
	return card, true
}

// DrawVira pops the vira and flags every remaining card of the following rank
// as a manilha. ok is false when the deck is empty.
func (d *Deck) DrawVira() (vira Card, ok bool) {
	vira, ok = d.Draw()
	if !ok {
		return Card{}, false
	}
	d.Vira = &vira
	d.ManilhaRank = NextRank(vira.Rank)
	for i := range d.Cards {
		if d.Cards[i].Rank == d.ManilhaRank {
			d.Cards[i].ClassifyAsManilha()
		}
	}
	return vira, true
}

// Deal distributes HandSize cards to each player one at a time in seat order,
// so every player gets a card before anyone gets a second. Returns nil if the
// deck does not hold enough cards.
func (d *Deck) Deal(numPlayers int) [][]Card {
	if numPlayers <= 0 || len(d.Cards) < numPlayers*HandSize {
		return nil
	}

	hands := make([][]Card, numPlayers)
	for i := range hands {
		hands[i] = make([]Card, 0, HandSize)
	}
	for pass := 0; pass < HandSize; pass++ {
		for seat := 0; seat < numPlayers; seat++ {
			card, _ := d.Draw()
			hands[seat] = append(hands[seat], card)
		}
	}
	return hands
}

// Reset discards all state, rebuilds the 40 cards and shuffles them.
func (d *Deck) Reset() {
	d.Build()
	d.Shuffle()
}

// Len returns the number of cards left in the deck.
func (d *Deck) Len() int {
	return len(d.Cards)
}
