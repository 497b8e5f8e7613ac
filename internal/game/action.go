package game

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ActionType names a player intent the engine accepts.
type ActionType string

const (
	ActionPlayCard     ActionType = "playCard"
	ActionCallTruco    ActionType = "callTruco"
	ActionRespondTruco ActionType = "respondToTruco"
	ActionRunAway      ActionType = "runAway"
)

// Action is one entry of a room's ordered action stream. ID is used by the
// transport to drop duplicates.
type Action struct {
	ID        string     `json:"id"`
	Type      ActionType `json:"type"`
	PlayerID  string     `json:"playerId"`
	CardIndex int        `json:"cardIndex,omitempty"`
	Response  Response   `json:"response,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// NewAction creates an action with a fresh ID.
func NewAction(actionType ActionType, playerID string) Action {
	return Action{
		ID:        uuid.NewString(),
		Type:      actionType,
		PlayerID:  playerID,
		Timestamp: time.Now(),
	}
}

// PlayCardAction builds a playCard action.
func PlayCardAction(playerID string, cardIndex int) Action {
	a := NewAction(ActionPlayCard, playerID)
	a.CardIndex = cardIndex
	return a
}

// RespondAction builds a respondToTruco action.
func RespondAction(playerID string, response Response) Action {
	a := NewAction(ActionRespondTruco, playerID)
	a.Response = response
	return a
}

// Apply dispatches an action to the matching engine operation.
func (g *Game) Apply(a Action) error {
	switch a.Type {
	case ActionPlayCard:
		return g.PlayCard(a.PlayerID, a.CardIndex)
	case ActionCallTruco:
		return g.CallTruco(a.PlayerID)
	case ActionRespondTruco:
		return g.RespondToTruco(a.PlayerID, a.Response)
	case ActionRunAway:
		return g.RunAway(a.PlayerID)
	default:
		return g.reject(string(a.Type), a.PlayerID, fmt.Errorf("%w: %q", ErrUnknownAction, a.Type))
	}
}
