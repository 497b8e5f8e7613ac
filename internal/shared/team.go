package shared

import "github.com/google/uuid"

// TeamID identifies one of the two teams. Seats 0 and 2 form TeamA, 1 and 3 TeamB.
type TeamID int

const (
	NoTeam TeamID = -1
	TeamA  TeamID = 0
	TeamB  TeamID = 1
)

// MaxScore is the score that ends the match. Scores never exceed it.
const MaxScore = 12

// TeamOf returns the team a seat belongs to.
func TeamOf(seat int) TeamID {
	return TeamID(seat % 2)
}

// Opponent returns the other team.
func (t TeamID) Opponent() TeamID {
	switch t {
	case TeamA:
		return TeamB
	case TeamB:
		return TeamA
	}
	return NoTeam
}

// Team represents a pair of partners and their match score.
type Team struct {
	ID      string     `json:"id"`
	Number  TeamID     `json:"number"`
	Players [2]*Player `json:"-"`
	Score   int        `json:"score"`
	Pile    []Card     `json:"-"` // cards won in tricks this round
}

// NewTeam creates a new team with the given number and players.
// It generates a unique UUID for the team ID.
func NewTeam(number TeamID, player1, player2 *Player) *Team {
	return &Team{
		ID:      uuid.NewString(),
		Number:  number,
		Players: [2]*Player{player1, player2},
		Pile:    []Card{},
	}
}

// AddScore adds points to the team's score, capped at MaxScore.
func (t *Team) AddScore(points int) {
	t.Score = min(t.Score+points, MaxScore)
}

// Collect adds won trick cards to the team's pile.
func (t *Team) Collect(cards ...Card) {
	t.Pile = append(t.Pile, cards...)
}

// ResetPile clears the cards won this round.
func (t *Team) ResetPile() {
	t.Pile = []Card{}
}
