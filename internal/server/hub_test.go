package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"truco-game/internal/game"
	"truco-game/internal/protocol"
	"truco-game/internal/shared"
)

func newTestClient(h *Hub, id string) *Client {
	c := &Client{hub: h, send: make(chan []byte, 256), ID: id}
	h.clientMu.Lock()
	h.clients[c] = true
	h.clientMu.Unlock()
	return c
}

func deliver(t *testing.T, h *Hub, c *Client, msgType string, payload any) {
	t.Helper()
	raw, err := protocol.NewMessage(msgType, payload)
	require.NoError(t, err)
	var msg protocol.Message
	require.NoError(t, json.Unmarshal(raw, &msg))
	h.handleMessage(c, msg)
}

// waitFor reads c's outbox until a message of msgType arrives.
func waitFor(t *testing.T, c *Client, msgType string) protocol.Message {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case raw := <-c.send:
			var msg protocol.Message
			require.NoError(t, json.Unmarshal(raw, &msg))
			if msg.Type == msgType {
				return msg
			}
		case <-timeout:
			t.Fatalf("client %s never received %s", c.ID, msgType)
		}
	}
}

func decode[T any](t *testing.T, msg protocol.Message) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(msg.Payload, &v))
	return v
}

// startTable creates a lobby and fills it, returning clients in seat order.
func startTable(t *testing.T, h *Hub) (string, [game.NumPlayers]*Client) {
	t.Helper()
	var clients [game.NumPlayers]*Client
	names := []string{"Ana", "Bruno", "Carla", "Davi"}
	for i := range clients {
		clients[i] = newTestClient(h, fmt.Sprintf("c%d", i))
	}

	deliver(t, h, clients[0], protocol.TypeCreateGame, protocol.CreateGamePayload{Name: names[0]})
	created := decode[protocol.GameCreatedPayload](t, waitFor(t, clients[0], protocol.TypeGameCreated))
	for i := 1; i < game.NumPlayers; i++ {
		deliver(t, h, clients[i], protocol.TypeJoinGame, protocol.JoinGamePayload{Name: names[i], GameCode: created.GameCode})
	}
	return created.GameCode, clients
}

func TestCreateGame(t *testing.T) {
	h := NewHub(zap.NewNop())
	c := newTestClient(h, "c0")

	deliver(t, h, c, protocol.TypeCreateGame, protocol.CreateGamePayload{Name: "Ana"})
	created := decode[protocol.GameCreatedPayload](t, waitFor(t, c, protocol.TypeGameCreated))
	assert.Len(t, created.GameCode, gameCodeLength)

	lobby := decode[protocol.LobbyUpdatePayload](t, waitFor(t, c, protocol.TypeLobbyUpdate))
	assert.Equal(t, created.GameCode, lobby.GameCode)
	require.Len(t, lobby.Players, 1)
	assert.Equal(t, "Ana", lobby.Players[0].Name)

	deliver(t, h, c, protocol.TypeCreateGame, protocol.CreateGamePayload{Name: "Ana"})
	errPayload := decode[protocol.ErrorPayload](t, waitFor(t, c, protocol.TypeError))
	assert.Contains(t, errPayload.Message, "Already")
}

func TestJoinErrors(t *testing.T) {
	h := NewHub(zap.NewNop())
	host := newTestClient(h, "host")
	deliver(t, h, host, protocol.TypeCreateGame, protocol.CreateGamePayload{Name: "Ana"})
	code := decode[protocol.GameCreatedPayload](t, waitFor(t, host, protocol.TypeGameCreated)).GameCode

	tests := []struct {
		name    string
		payload protocol.JoinGamePayload
		want    string
	}{
		{"unknown code", protocol.JoinGamePayload{Name: "Bruno", GameCode: "ZZZZZ"}, "not found"},
		{"empty name", protocol.JoinGamePayload{Name: "  ", GameCode: code}, "Name cannot be empty"},
		{"empty code", protocol.JoinGamePayload{Name: "Bruno"}, "Game code cannot be empty"},
		{"duplicate name", protocol.JoinGamePayload{Name: "Ana", GameCode: code}, "Name already taken"},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(h, fmt.Sprintf("j%d", i))
			deliver(t, h, c, protocol.TypeJoinGame, tt.payload)
			got := decode[protocol.JoinErrorPayload](t, waitFor(t, c, protocol.TypeJoinError))
			assert.Contains(t, got.Message, tt.want)
		})
	}
}

func TestJoinNormalizesGameCode(t *testing.T) {
	h := NewHub(zap.NewNop())
	host := newTestClient(h, "host")
	deliver(t, h, host, protocol.TypeCreateGame, protocol.CreateGamePayload{Name: "Ana"})
	code := decode[protocol.GameCreatedPayload](t, waitFor(t, host, protocol.TypeGameCreated)).GameCode

	guest := newTestClient(h, "guest")
	deliver(t, h, guest, protocol.TypeJoinGame, protocol.JoinGamePayload{Name: "Bruno", GameCode: " " + strings.ToLower(code) + " "})
	lobby := decode[protocol.LobbyUpdatePayload](t, waitFor(t, guest, protocol.TypeLobbyUpdate))
	assert.Len(t, lobby.Players, 2)
	assert.Equal(t, 1, lobby.Players[1].Position)
}

func TestFullLobbyStartsGame(t *testing.T) {
	h := NewHub(zap.NewNop())
	code, clients := startTable(t, h)

	var turn int
	for seat, c := range clients {
		start := decode[protocol.GameStartPayload](t, waitFor(t, c, protocol.TypeGameStart))
		require.Len(t, start.Players, game.NumPlayers)
		assert.Equal(t, seat, start.Players[seat].Position)
		require.Len(t, start.Teams, 2)
		assert.Equal(t, []string{"c0", "c2"}, []string{start.Teams[0].Players[0].ID, start.Teams[0].Players[1].ID})

		hand := decode[game.PrivateHand](t, waitFor(t, c, protocol.TypeDealHand))
		assert.Equal(t, c.ID, hand.PlayerID)
		assert.Len(t, hand.Cards, shared.HandSize)

		snap := decode[game.Snapshot](t, waitFor(t, c, protocol.TypeGameState))
		assert.Equal(t, code, snap.RoomID)
		assert.Equal(t, game.Playing, snap.GameState)
		turn = snap.CurrentTurn
	}

	h.lobbyMu.RLock()
	_, stillLobby := h.lobbies[code]
	h.lobbyMu.RUnlock()
	assert.False(t, stillLobby)

	// Out of turn play is rejected back to the sender only.
	idle := clients[(turn+1)%game.NumPlayers]
	deliver(t, h, idle, protocol.TypePlayCard, protocol.PlayCardPayload{CardIndex: 0})
	rejected := decode[protocol.ErrorPayload](t, waitFor(t, idle, protocol.TypeError))
	assert.Equal(t, game.ErrNotYourTurn.Error(), rejected.Message)

	deliver(t, h, clients[turn], protocol.TypePlayCard, protocol.PlayCardPayload{CardIndex: 0})
	for _, c := range clients {
		snap := decode[game.Snapshot](t, waitFor(t, c, protocol.TypeGameState))
		require.Len(t, snap.Trick, 1)
		assert.Equal(t, turn, snap.Trick[0].Seat)
		assert.Equal(t, (turn+1)%game.NumPlayers, snap.CurrentTurn)
	}

	// A fifth player finds nothing to join.
	late := newTestClient(h, "late")
	deliver(t, h, late, protocol.TypeJoinGame, protocol.JoinGamePayload{Name: "Eva", GameCode: code})
	waitFor(t, late, protocol.TypeJoinError)
}

func TestGameActionOutsideGame(t *testing.T) {
	h := NewHub(zap.NewNop())
	c := newTestClient(h, "c0")

	deliver(t, h, c, protocol.TypeCallTruco, nil)
	waitFor(t, c, protocol.TypeError)

	deliver(t, h, c, protocol.TypeCreateGame, protocol.CreateGamePayload{Name: "Ana"})
	deliver(t, h, c, protocol.TypeCallTruco, nil)
	got := decode[protocol.ErrorPayload](t, waitFor(t, c, protocol.TypeError))
	assert.Contains(t, got.Message, "not active")
}

func TestLobbyDisconnect(t *testing.T) {
	h := NewHub(zap.NewNop())
	host := newTestClient(h, "host")
	deliver(t, h, host, protocol.TypeCreateGame, protocol.CreateGamePayload{Name: "Ana"})
	code := decode[protocol.GameCreatedPayload](t, waitFor(t, host, protocol.TypeGameCreated)).GameCode

	guest := newTestClient(h, "guest")
	deliver(t, h, guest, protocol.TypeJoinGame, protocol.JoinGamePayload{Name: "Bruno", GameCode: code})
	waitFor(t, host, protocol.TypeLobbyUpdate)
	waitFor(t, host, protocol.TypeLobbyUpdate)

	h.removeClient(guest)
	lobby := decode[protocol.LobbyUpdatePayload](t, waitFor(t, host, protocol.TypeLobbyUpdate))
	require.Len(t, lobby.Players, 1)
	assert.Equal(t, "host", lobby.Players[0].ID)

	_, open := <-guest.send
	for open {
		_, open = <-guest.send
	}

	h.removeClient(host)
	h.lobbyMu.RLock()
	defer h.lobbyMu.RUnlock()
	assert.Empty(t, h.lobbies)
}

func TestDisconnectForfeitsRound(t *testing.T) {
	h := NewHub(zap.NewNop())
	_, clients := startTable(t, h)
	for _, c := range clients {
		waitFor(t, c, protocol.TypeGameState)
	}

	h.removeClient(clients[0])

	left := decode[protocol.PlayerLeftPayload](t, waitFor(t, clients[1], protocol.TypePlayerLeft))
	assert.Equal(t, "c0", left.PlayerID)

	snap := decode[game.Snapshot](t, waitFor(t, clients[1], protocol.TypeGameState))
	assert.Equal(t, [2]int{0, 1}, snap.Scores)
	assert.Equal(t, 2, snap.Round)
}

type recorderFunc func(ctx context.Context, g *game.Game) error

func (f recorderFunc) Record(ctx context.Context, g *game.Game) error { return f(ctx, g) }

func TestFinishedGameIsRecordedAndClosed(t *testing.T) {
	var mu sync.Mutex
	var winners []shared.TeamID
	recorder := recorderFunc(func(_ context.Context, g *game.Game) error {
		mu.Lock()
		defer mu.Unlock()
		winners = append(winners, g.Winner)
		return nil
	})

	h := NewHub(zap.NewNop(), WithRecorder(recorder), WithQueueSize(16))
	code, clients := startTable(t, h)
	waitFor(t, clients[1], protocol.TypeGameState)

	for range shared.MaxScore {
		deliver(t, h, clients[1], protocol.TypeRunAway, nil)
	}

	require.Eventually(t, func() bool {
		h.gameMu.RLock()
		defer h.gameMu.RUnlock()
		_, running := h.rooms[code]
		return !running
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, []shared.TeamID{shared.TeamA}, winners)
	mu.Unlock()

	// Players are free to host a new lobby.
	require.Eventually(t, func() bool {
		h.clientMu.RLock()
		defer h.clientMu.RUnlock()
		return len(h.clientToGame) == 0
	}, time.Second, 10*time.Millisecond)
	deliver(t, h, clients[0], protocol.TypeCreateGame, protocol.CreateGamePayload{Name: "Ana"})
	waitFor(t, clients[0], protocol.TypeGameCreated)
}

func TestPingAndUnknown(t *testing.T) {
	h := NewHub(zap.NewNop())
	c := newTestClient(h, "c0")

	deliver(t, h, c, protocol.TypePing, nil)
	waitFor(t, c, protocol.TypePong)

	deliver(t, h, c, "dance", nil)
	got := decode[protocol.ErrorPayload](t, waitFor(t, c, protocol.TypeError))
	assert.Equal(t, "Unknown message type.", got.Message)
}

func TestRunStopsWithContext(t *testing.T) {
	h := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	c := &Client{hub: h, send: make(chan []byte, 4), ID: "c0"}
	h.register <- c
	h.processMessage <- clientMessage{client: c, message: protocol.Message{Type: protocol.TypePing}}
	waitFor(t, c, protocol.TypePong)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
}
