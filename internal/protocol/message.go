package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"truco-game/internal/game"
)

// Message represents a generic WebSocket message structure.
type Message struct {
	Type    string          `json:"type"`              // Type of the message (e.g., "join_game", "play_card")
	Payload json.RawMessage `json:"payload,omitempty"` // Raw JSON payload, allows flexible structures
}

// Client -> server message types.
const (
	TypeCreateGame   = "create_game"
	TypeJoinGame     = "join_game"
	TypePlayCard     = "play_card"
	TypeCallTruco    = "call_truco"
	TypeRespondTruco = "respond_truco"
	TypeRunAway      = "run_away"
	TypePing         = "ping"
)

// Server -> client message types.
const (
	TypeGameCreated = "game_created"
	TypeLobbyUpdate = "lobby_update"
	TypeJoinError   = "join_error"
	TypeGameStart   = "game_start"
	TypeGameState   = "game_state_update"
	TypeDealHand    = "deal_hand"
	TypeError       = "error"
	TypePlayerLeft  = "player_left"
	TypePong        = "pong"
)

// ErrNotGameAction is returned by ToAction for lobby or control messages.
var ErrNotGameAction = errors.New("message is not a game action")

// --- Client -> Server Payload Structs ---

type CreateGamePayload struct {
	Name string `json:"name"`
}

type JoinGamePayload struct {
	Name     string `json:"name"`
	GameCode string `json:"game_code"`
}

type PlayCardPayload struct {
	CardIndex int `json:"card_index"`
}

type RespondTrucoPayload struct {
	Response game.Response `json:"response"`
}

// --- Server -> Client Payload Structs ---

type GameCreatedPayload struct {
	GameCode string `json:"game_code"`
}

type LobbyUpdatePayload struct {
	GameCode string       `json:"game_code"`
	Players  []PlayerInfo `json:"players"`
}

type JoinErrorPayload struct {
	Message string `json:"message"`
}

type PlayerInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Position int    `json:"position"` // Player's seat in the game (0-3)
}

type TeamInfo struct {
	ID         string       `json:"id"`
	Players    []PlayerInfo `json:"players"`
	Score      int          `json:"score"`
	TeamNumber int          `json:"team_number"`
}

type GameStartPayload struct {
	GameID  string       `json:"game_id"`
	Players []PlayerInfo `json:"players"`
	Teams   []TeamInfo   `json:"teams"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type PlayerLeftPayload struct {
	PlayerID string `json:"player_id"`
}

// Helper function to create a JSON message
func NewMessage(msgType string, payload interface{}) ([]byte, error) {
	if payload == nil {
		return json.Marshal(Message{Type: msgType})
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	return json.Marshal(Message{Type: msgType, Payload: payloadBytes})
}

// ToAction converts an in-game client message into an engine action for
// playerID. Lobby and control messages return ErrNotGameAction.
func ToAction(playerID string, msg Message) (game.Action, error) {
	switch msg.Type {
	case TypePlayCard:
		var payload PlayCardPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return game.Action{}, fmt.Errorf("decode %s payload: %w", msg.Type, err)
		}
		return game.PlayCardAction(playerID, payload.CardIndex), nil

	case TypeCallTruco:
		return game.NewAction(game.ActionCallTruco, playerID), nil

	case TypeRespondTruco:
		var payload RespondTrucoPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return game.Action{}, fmt.Errorf("decode %s payload: %w", msg.Type, err)
		}
		return game.RespondAction(playerID, payload.Response), nil

	case TypeRunAway:
		return game.NewAction(game.ActionRunAway, playerID), nil
	}
	return game.Action{}, fmt.Errorf("%w: %q", ErrNotGameAction, msg.Type)
}

// IsGameAction reports whether msgType is an in-game action message.
func IsGameAction(msgType string) bool {
	switch msgType {
	case TypePlayCard, TypeCallTruco, TypeRespondTruco, TypeRunAway:
		return true
	}
	return false
}
