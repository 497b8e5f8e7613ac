package game

import "errors"

// Protocol violations. A rejected action never changes game state.
var (
	ErrGameFinished    = errors.New("game is already over")
	ErrGameNotStarted  = errors.New("game has not started")
	ErrUnknownPlayer   = errors.New("player is not seated in this game")
	ErrNotYourTurn     = errors.New("not your turn")
	ErrInvalidCard     = errors.New("card not in your hand")
	ErrTrucoPending    = errors.New("truco must be answered before playing")
	ErrSameTeamRaise   = errors.New("your team made the last truco call")
	ErrTrucoCeiling    = errors.New("truco cannot be raised past 12")
	ErrNoPendingTruco  = errors.New("there is no truco call to answer")
	ErrOwnBid          = errors.New("cannot answer your own team's truco call")
	ErrInvalidResponse = errors.New("invalid truco response")
	ErrUnknownAction   = errors.New("unknown action type")
)

// ErrInvalidRoster is returned by NewGame when the seat roster is unusable.
var ErrInvalidRoster = errors.New("a game needs 4 players with distinct ids")
