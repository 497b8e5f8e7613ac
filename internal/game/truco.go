package game

import (
	"go.uber.org/zap"
)

// Response is a player's answer to a pending truco call.
type Response string

const (
	Accept  Response = "accept"
	Decline Response = "decline"
	Raise   Response = "raise"
)

// CallTruco opens a bid on the caller's turn, or raises a pending call made by
// the other team. The new value is staged until the other team accepts. Once a
// bid is accepted either team may raise again on its turn.
func (g *Game) CallTruco(playerID string) error {
	player, err := g.actor(playerID)
	if err != nil {
		return g.reject("call_truco", playerID, err)
	}
	team := player.Team()

	if g.TrucoState != TrucoCalled && player.Seat != g.CurrentTurn {
		return g.reject("call_truco", playerID, ErrNotYourTurn)
	}
	if g.TrucoState == TrucoCalled && team == g.LastTrucoTeam {
		return g.reject("call_truco", playerID, ErrSameTeamRaise)
	}

	base := g.TrucoValue
	if g.TrucoState == TrucoCalled {
		base = g.PendingTrucoValue
	}
	next, ok := nextTrucoValue(base)
	if !ok {
		return g.reject("call_truco", playerID, ErrTrucoCeiling)
	}
	g.TrucoState, _ = nextTrucoState(g.TrucoState, trucoCall)
	g.LastTrucoTeam = team
	g.PendingTrucoValue = next
	g.logger.Info("truco called",
		zap.String("player_id", playerID),
		zap.Int("team", int(team)),
		zap.Int("current_value", g.TrucoValue),
		zap.Int("pending_value", next),
	)

	g.publish()
	return nil
}

// RespondToTruco answers the pending call. Only the team that did not make the
// call may answer. Declining forfeits the round to the calling team at the
// value in force before the call.
func (g *Game) RespondToTruco(playerID string, response Response) error {
	player, err := g.actor(playerID)
	if err != nil {
		return g.reject("respond_truco", playerID, err)
	}
	if g.TrucoState != TrucoCalled {
		return g.reject("respond_truco", playerID, ErrNoPendingTruco)
	}
	if player.Team() == g.LastTrucoTeam {
		return g.reject("respond_truco", playerID, ErrOwnBid)
	}

	switch response {
	case Accept:
		g.TrucoState, _ = nextTrucoState(g.TrucoState, trucoAccept)
		g.TrucoValue = g.PendingTrucoValue
		g.PendingTrucoValue = 0
		g.logger.Info("truco accepted", zap.String("player_id", playerID), zap.Int("value", g.TrucoValue))

	case Decline:
		g.TrucoState, _ = nextTrucoState(g.TrucoState, trucoDecline)
		caller := g.LastTrucoTeam
		g.logger.Info("truco declined",
			zap.String("player_id", playerID),
			zap.Int("caller_team", int(caller)),
			zap.Int("value", g.TrucoValue),
		)
		g.endRound(caller, g.TrucoValue)

	case Raise:
		return g.CallTruco(playerID)

	default:
		return g.reject("respond_truco", playerID, ErrInvalidResponse)
	}

	g.publish()
	return nil
}
