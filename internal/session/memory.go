package session

import (
	"sync"

	"truco-game/internal/game"
)

// MemoryStore is an in-process Store. It keeps every published snapshot and
// the latest hand of each player.
type MemoryStore struct {
	mu          sync.RWMutex
	snapshots   map[string][]game.Snapshot
	hands       map[string]game.PrivateHand
	subscribers map[string]map[int]ActionHandler
	nextID      int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshots:   make(map[string][]game.Snapshot),
		hands:       make(map[string]game.PrivateHand),
		subscribers: make(map[string]map[int]ActionHandler),
	}
}

func (m *MemoryStore) Publish(roomID string, snap game.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[roomID] = append(m.snapshots[roomID], snap)
	return nil
}

func (m *MemoryStore) PublishPrivate(playerID string, hand game.PrivateHand) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands[playerID] = hand
	return nil
}

func (m *MemoryStore) Subscribe(roomID string, onAction ActionHandler) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	if m.subscribers[roomID] == nil {
		m.subscribers[roomID] = make(map[int]ActionHandler)
	}
	m.subscribers[roomID][id] = onAction

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subscribers[roomID], id)
	}, nil
}

// Submit hands the action to every subscriber of roomID on the caller's goroutine.
func (m *MemoryStore) Submit(roomID string, action game.Action) error {
	m.mu.RLock()
	handlers := make([]ActionHandler, 0, len(m.subscribers[roomID]))
	for _, h := range m.subscribers[roomID] {
		handlers = append(handlers, h)
	}
	m.mu.RUnlock()

	for _, h := range handlers {
		h(action)
	}
	return nil
}

// Latest returns the most recent snapshot published for roomID.
func (m *MemoryStore) Latest(roomID string) (game.Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	history := m.snapshots[roomID]
	if len(history) == 0 {
		return game.Snapshot{}, false
	}
	return history[len(history)-1], true
}

// History returns every snapshot published for roomID, oldest first.
func (m *MemoryStore) History(roomID string) []game.Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]game.Snapshot(nil), m.snapshots[roomID]...)
}

// Hand returns the latest hand delivered to playerID.
func (m *MemoryStore) Hand(playerID string) (game.PrivateHand, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	hand, ok := m.hands[playerID]
	return hand, ok
}
