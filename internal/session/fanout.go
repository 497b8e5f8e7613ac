package session

import (
	"errors"

	"truco-game/internal/game"
)

// Fanout publishes to several stores and merges their action streams. Actions
// are submitted through the first store only.
type Fanout struct {
	stores []Store
}

// NewFanout combines primary with any number of mirrors.
func NewFanout(primary Store, mirrors ...Store) *Fanout {
	return &Fanout{stores: append([]Store{primary}, mirrors...)}
}

func (f *Fanout) Publish(roomID string, snap game.Snapshot) error {
	var errs []error
	for _, s := range f.stores {
		errs = append(errs, s.Publish(roomID, snap))
	}
	return errors.Join(errs...)
}

func (f *Fanout) PublishPrivate(playerID string, hand game.PrivateHand) error {
	var errs []error
	for _, s := range f.stores {
		errs = append(errs, s.PublishPrivate(playerID, hand))
	}
	return errors.Join(errs...)
}

func (f *Fanout) Subscribe(roomID string, onAction ActionHandler) (func(), error) {
	cancels := make([]func(), 0, len(f.stores))
	unsubscribe := func() {
		for _, cancel := range cancels {
			cancel()
		}
	}

	for _, s := range f.stores {
		cancel, err := s.Subscribe(roomID, onAction)
		if err != nil {
			unsubscribe()
			return nil, err
		}
		cancels = append(cancels, cancel)
	}
	return unsubscribe, nil
}

func (f *Fanout) Submit(roomID string, action game.Action) error {
	return f.stores[0].Submit(roomID, action)
}
