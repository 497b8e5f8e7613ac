package database

import (
	"time"

	"truco-game/internal/game"
)

// GameResult is one finished match. Players are listed by seat; seats 0 and 2
// form team 1, seats 1 and 3 team 2.
type GameResult struct {
	ID         string `json:"id"`
	RoomCode   string `json:"room_code"`
	CreatedAt  string `json:"created_at"`
	Player1    string `json:"player1"`
	Player2    string `json:"player2"`
	Player3    string `json:"player3"`
	Player4    string `json:"player4"`
	Team1Score int    `json:"team1_score"`
	Team2Score int    `json:"team2_score"`
	WinnerTeam int    `json:"winner_team"` // 1 or 2
	Rounds     int    `json:"rounds"`
}

// ResultFromGame summarizes a finished game.
func ResultFromGame(g *game.Game) GameResult {
	scores := g.Scores()
	return GameResult{
		ID:         g.ID,
		RoomCode:   g.RoomID,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
		Player1:    g.Players[0].Name,
		Player2:    g.Players[1].Name,
		Player3:    g.Players[2].Name,
		Player4:    g.Players[3].Name,
		Team1Score: scores[0],
		Team2Score: scores[1],
		WinnerTeam: int(g.Winner) + 1,
		Rounds:     g.Round,
	}
}
