// Package session connects a rules engine to the outside world: the store that
// fans snapshots out to players and delivers their actions back, and the Room
// that applies those actions one at a time.
package session

import (
	"context"

	"truco-game/internal/game"
)

// ActionHandler receives the actions submitted to a room, in submission order.
type ActionHandler func(game.Action)

// Store is a broadcast channel between a room's engine and its players.
type Store interface {
	game.Publisher

	// Subscribe delivers every action later submitted to roomID. The returned
	// function cancels the subscription.
	Subscribe(roomID string, onAction ActionHandler) (unsubscribe func(), err error)

	// Submit pushes a player action into roomID's action stream.
	Submit(roomID string, action game.Action) error
}

// ResultRecorder persists the outcome of a finished match.
type ResultRecorder interface {
	Record(ctx context.Context, g *game.Game) error
}
