package session

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"truco-game/internal/game"
)

const (
	DefaultQueueSize = 64
	seenLimit        = 1024
	recordTimeout    = 5 * time.Second
)

// RoomOption configures a Room.
type RoomOption func(*Room)

// WithRecorder stores the match result once the game finishes.
func WithRecorder(recorder ResultRecorder) RoomOption {
	return func(r *Room) { r.recorder = recorder }
}

// WithRejectHandler is called for every action the engine refuses.
func WithRejectHandler(fn func(game.Action, error)) RoomOption {
	return func(r *Room) { r.onReject = fn }
}

// WithQueueSize sets how many pending actions the room buffers.
func WithQueueSize(n int) RoomOption {
	return func(r *Room) {
		if n > 0 {
			r.actions = make(chan game.Action, n)
		}
	}
}

// Room owns one game and applies its actions one at a time on a single
// goroutine. Actions with an ID are applied at most once.
type Room struct {
	ID string

	game     *game.Game
	store    Store
	recorder ResultRecorder
	onReject func(game.Action, error)
	actions  chan game.Action
	done     chan struct{}
	logger   *zap.Logger

	seen      map[string]struct{}
	seenOrder []string
}

// NewRoom binds g to store. The game must publish through the same store.
func NewRoom(id string, g *game.Game, store Store, logger *zap.Logger, opts ...RoomOption) *Room {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Room{
		ID:      id,
		game:    g,
		store:   store,
		actions: make(chan game.Action, DefaultQueueSize),
		done:    make(chan struct{}),
		logger:  logger.With(zap.String("room_id", id)),
		seen:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run starts the game and processes actions until it finishes or ctx is
// cancelled. It returns nil when the match ended normally.
func (r *Room) Run(ctx context.Context) error {
	defer close(r.done)

	unsubscribe, err := r.store.Subscribe(r.ID, r.Enqueue)
	if err != nil {
		return fmt.Errorf("subscribe room %s: %w", r.ID, err)
	}
	defer unsubscribe()

	if err := r.game.Start(); err != nil {
		return fmt.Errorf("start room %s: %w", r.ID, err)
	}
	r.logger.Info("room started", zap.String("game_id", r.game.ID))

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("room stopped", zap.Error(ctx.Err()))
			return ctx.Err()
		case action := <-r.actions:
			if r.apply(action) {
				r.finish(ctx)
				return nil
			}
		}
	}
}

// Enqueue queues an action for the room goroutine. It blocks while the queue
// is full and drops the action once the room has stopped.
func (r *Room) Enqueue(action game.Action) {
	select {
	case r.actions <- action:
	case <-r.done:
		r.logger.Debug("room closed, dropping action",
			zap.String("action_id", action.ID),
			zap.String("player_id", action.PlayerID))
	}
}

// Done is closed when Run returns.
func (r *Room) Done() <-chan struct{} {
	return r.done
}

// apply reports whether the game is finished afterwards.
func (r *Room) apply(action game.Action) bool {
	if action.ID != "" {
		if r.duplicate(action.ID) {
			r.logger.Debug("skipping duplicate action", zap.String("action_id", action.ID))
			return false
		}
	}

	if err := r.game.Apply(action); err != nil {
		if r.onReject != nil {
			r.onReject(action, err)
		}
		return false
	}
	return r.game.IsFinished()
}

// duplicate remembers id and reports whether it was already seen. Only the
// most recent seenLimit IDs are kept.
func (r *Room) duplicate(id string) bool {
	if _, ok := r.seen[id]; ok {
		return true
	}
	r.seen[id] = struct{}{}
	r.seenOrder = append(r.seenOrder, id)
	if len(r.seenOrder) > seenLimit {
		delete(r.seen, r.seenOrder[0])
		r.seenOrder = r.seenOrder[1:]
	}
	return false
}

func (r *Room) finish(ctx context.Context) {
	scores := r.game.Scores()
	r.logger.Info("game finished",
		zap.String("game_id", r.game.ID),
		zap.Int("winner", int(r.game.Winner)),
		zap.Int("team_a", scores[0]),
		zap.Int("team_b", scores[1]))

	if r.recorder == nil {
		return
	}
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := r.recorder.Record(recordCtx, r.game); err != nil {
		r.logger.Error("failed to record game result", zap.String("game_id", r.game.ID), zap.Error(err))
	}
}
