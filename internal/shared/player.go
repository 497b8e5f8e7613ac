package shared

// Player represents a seated player in a Truco match.
type Player struct {
	ID   string // Unique identifier for the player
	Name string // Player's display name
	Seat int    // Fixed seat 0..3
	Hand []Card // Cards currently held by the player
}

// NewPlayer creates a new player seated at seat.
func NewPlayer(id string, name string, seat int) *Player {
	return &Player{
		ID:   id,
		Name: name,
		Seat: seat,
		Hand: []Card{},
	}
}

// Team returns the team the player belongs to, derived from the seat.
func (p *Player) Team() TeamID {
	return TeamOf(p.Seat)
}

// CardAt returns the card at index without removing it.
func (p *Player) CardAt(index int) (Card, bool) {
	if index < 0 || index >= len(p.Hand) {
		return Card{}, false
	}
	return p.Hand[index], true
}

// RemoveCardAt removes and returns the card at index.
func (p *Player) RemoveCardAt(index int) (Card, bool) {
	card, ok := p.CardAt(index)
	if !ok {
		return Card{}, false
	}
	p.Hand = append(p.Hand[:index:index], p.Hand[index+1:]...)
	return card, true
}

// HandSize returns how many cards the player holds.
func (p *Player) HandSize() int {
	return len(p.Hand)
}
