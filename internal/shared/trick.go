package shared

// PlayedCard stores a card along with the seat of the player who played it.
type PlayedCard struct {
	Card Card `json:"card"`
	Seat int  `json:"seat"`
}

// Trick represents a single trick (one card from each seat).
type Trick struct {
	Plays      []PlayedCard // in play order
	WinnerSeat int          // -1 until determined
}

// NewTrick creates a new trick instance.
func NewTrick() *Trick {
	return &Trick{
		Plays:      make([]PlayedCard, 0, 4),
		WinnerSeat: -1,
	}
}

// AddCard adds a card and the seat that played it.
func (t *Trick) AddCard(card Card, seat int) {
	t.Plays = append(t.Plays, PlayedCard{Card: card, Seat: seat})
}

// IsComplete reports whether every player has played.
func (t *Trick) IsComplete(numPlayers int) bool {
	return len(t.Plays) >= numPlayers
}

// Cards returns the played cards in play order.
func (t *Trick) Cards() []Card {
	cards := make([]Card, len(t.Plays))
	for i, pc := range t.Plays {
		cards[i] = pc.Card
	}
	return cards
}

// DetermineWinner returns the seat whose card is highest under Card.Compare.
// On equal cards the one played first wins.
func (t *Trick) DetermineWinner() int {
	if len(t.Plays) == 0 {
		panic("shared: cannot determine winner of an empty trick")
	}

	best := t.Plays[0]
	for _, pc := range t.Plays[1:] {
		if pc.Card.Compare(best.Card) > 0 {
			best = pc
		}
	}

	t.WinnerSeat = best.Seat
	return best.Seat
}
