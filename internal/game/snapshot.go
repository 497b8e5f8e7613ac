package game

import (
	"time"

	"truco-game/internal/shared"
)

// PlayerView is the public information about a seat. Hand contents are never
// part of it.
type PlayerView struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Seat      int           `json:"seat"`
	Team      shared.TeamID `json:"team"`
	HandCount int           `json:"handCount"`
}

// CardView is the wire identity of a card.
type CardView struct {
	Suit    shared.Suit `json:"suit"`
	Rank    shared.Rank `json:"rank"`
	Manilha bool        `json:"manilha"`
}

// PlayView is a face-up card on the table.
type PlayView struct {
	CardView
	Seat int `json:"seat"`
}

// TrickView is a resolved trick.
type TrickView struct {
	Plays      []PlayView `json:"plays"`
	WinnerSeat int        `json:"winnerSeat"`
}

// Snapshot is the public projection of a game broadcast to the whole room.
type Snapshot struct {
	RoomID            string          `json:"roomId"`
	GameID            string          `json:"gameId"`
	Players           []PlayerView    `json:"players"`
	Round             int             `json:"currentRound"`
	CurrentTurn       int             `json:"currentTurn"`
	Dealer            int             `json:"dealer"`
	Vira              *CardView       `json:"vira"`
	Trick             []PlayView      `json:"playedCards"`
	LastTrick         *TrickView      `json:"lastTrick,omitempty"`
	Scores            [2]int          `json:"scores"`
	TrucoValue        int             `json:"trucoValue"`
	TrucoState        TrucoState      `json:"trucoState"`
	LastTrucoTeam     shared.TeamID   `json:"lastTrucoTeam"`
	PendingTrucoValue int             `json:"pendingTrucoValue,omitempty"`
	TrickWinners      []shared.TeamID `json:"handWinners"`
	WonPiles          [2]int          `json:"wonPiles"`
	GameState         GameState       `json:"gameState"`
	Winner            shared.TeamID   `json:"winner"`
	Version           int64           `json:"version"`
	Timestamp         time.Time       `json:"timestamp"`
}

// PrivateHand is a player's own hand, delivered only to that player.
type PrivateHand struct {
	GameID    string     `json:"gameId"`
	RoomID    string     `json:"roomId"`
	PlayerID  string     `json:"playerId"`
	Cards     []CardView `json:"hand"`
	Timestamp time.Time  `json:"timestamp"`
}

func cardView(c shared.Card) CardView {
	return CardView{Suit: c.Suit, Rank: c.Rank, Manilha: c.Manilha}
}

func playViews(plays []shared.PlayedCard) []PlayView {
	views := make([]PlayView, len(plays))
	for i, pc := range plays {
		views[i] = PlayView{CardView: cardView(pc.Card), Seat: pc.Seat}
	}
	return views
}

// Snapshot builds the public projection of the current state.
func (g *Game) Snapshot() Snapshot {
	players := make([]PlayerView, 0, NumPlayers)
	for _, p := range g.Players {
		players = append(players, PlayerView{
			ID:        p.ID,
			Name:      p.Name,
			Seat:      p.Seat,
			Team:      p.Team(),
			HandCount: p.HandSize(),
		})
	}

	snap := Snapshot{
		RoomID:            g.RoomID,
		GameID:            g.ID,
		Players:           players,
		Round:             g.Round,
		CurrentTurn:       g.CurrentTurn,
		Dealer:            g.Dealer,
		Trick:             playViews(g.CurrentTrick.Plays),
		Scores:            g.Scores(),
		TrucoValue:        g.TrucoValue,
		TrucoState:        g.TrucoState,
		LastTrucoTeam:     g.LastTrucoTeam,
		PendingTrucoValue: g.PendingTrucoValue,
		TrickWinners:      append([]shared.TeamID{}, g.TrickWinners...),
		WonPiles:          [2]int{len(g.Teams[0].Pile), len(g.Teams[1].Pile)},
		GameState:         g.GameState,
		Winner:            g.Winner,
		Version:           g.version,
		Timestamp:         time.Now(),
	}
	if g.Vira != nil {
		v := CardView{Suit: g.Vira.Suit, Rank: g.Vira.Rank}
		snap.Vira = &v
	}
	if g.LastTrick != nil {
		snap.LastTrick = &TrickView{
			Plays:      playViews(g.LastTrick.Plays),
			WinnerSeat: g.LastTrick.WinnerSeat,
		}
	}
	return snap
}

// PrivateHand returns the hand of playerID. ok is false for an unknown player.
func (g *Game) PrivateHand(playerID string) (hand PrivateHand, ok bool) {
	p := g.GetPlayerByID(playerID)
	if p == nil {
		return PrivateHand{}, false
	}
	cards := make([]CardView, len(p.Hand))
	for i, c := range p.Hand {
		cards[i] = cardView(c)
	}
	return PrivateHand{
		GameID:    g.ID,
		RoomID:    g.RoomID,
		PlayerID:  p.ID,
		Cards:     cards,
		Timestamp: time.Now(),
	}, true
}
