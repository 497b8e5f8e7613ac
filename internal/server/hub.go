package server

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"truco-game/internal/game"
	"truco-game/internal/protocol"
	"truco-game/internal/session"
	"truco-game/internal/shared"
)

// clientMessage is a helper struct to pass messages along with the client reference.
type clientMessage struct {
	client  *Client
	message protocol.Message
}

const gameCodeLength = 5 // Length of the unique game code

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithMirror publishes every room to store as well, and accepts actions from it.
func WithMirror(store session.Store) HubOption {
	return func(h *Hub) { h.mirror = store }
}

// WithRecorder stores results of finished games.
func WithRecorder(recorder session.ResultRecorder) HubOption {
	return func(h *Hub) { h.recorder = recorder }
}

// WithQueueSize sets the action queue size of new rooms.
func WithQueueSize(n int) HubOption {
	return func(h *Hub) { h.queueSize = n }
}

// WithAllowedOrigins limits WebSocket upgrades to browsers on the given
// origins, e.g. "https://truco.example.com".
func WithAllowedOrigins(origins ...string) HubOption {
	return func(h *Hub) { h.allowedOrigins = origins }
}

// Hub manages active WebSocket connections, lobbies, and game rooms. It is also
// the session.Store of its rooms: snapshots and hands go out to the connected
// clients, and client actions come back through Submit.
type Hub struct {
	clients        map[*Client]bool
	lobbies        map[string][]*Client     // Map game code to list of clients in the lobby
	rooms          map[string]*session.Room // Map game code to running room
	clientToGame   map[*Client]string       // Map client to game code (lobby or active game)
	processMessage chan clientMessage
	register       chan *Client
	unregister     chan *Client
	clientMu       sync.RWMutex
	lobbyMu        sync.RWMutex
	gameMu         sync.RWMutex
	rng            *rand.Rand
	actions        *session.MemoryStore // routes submitted actions to room subscribers
	mirror         session.Store
	recorder       session.ResultRecorder
	queueSize      int
	allowedOrigins []string
	upgrader       websocket.Upgrader
	ctx            context.Context
	logger         *zap.Logger
}

// NewHub creates a new Hub instance.
func NewHub(logger *zap.Logger, opts ...HubOption) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	seed := uint64(time.Now().UnixNano())
	h := &Hub{
		clients:        make(map[*Client]bool),
		lobbies:        make(map[string][]*Client),
		rooms:          make(map[string]*session.Room),
		clientToGame:   make(map[*Client]string),
		processMessage: make(chan clientMessage),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		rng:            rand.New(rand.NewPCG(seed, seed>>1)),
		actions:        session.NewMemoryStore(),
		queueSize:      session.DefaultQueueSize,
		ctx:            context.Background(),
		logger:         logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.upgrader = h.newUpgrader()
	return h
}

// generateGameCode creates a unique alphanumeric game code.
func (h *Hub) generateGameCode() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	for {
		var sb strings.Builder
		for range gameCodeLength {
			sb.WriteByte(letters[h.rng.IntN(len(letters))])
		}
		code := sb.String()

		h.lobbyMu.RLock()
		_, lobbyExists := h.lobbies[code]
		h.lobbyMu.RUnlock()

		h.gameMu.RLock()
		_, gameExists := h.rooms[code]
		h.gameMu.RUnlock()

		if !lobbyExists && !gameExists {
			return code
		}
		h.logger.Debug("game code collided, retrying", zap.String("game_code", code))
	}
}

// Run starts the Hub's main loop. Rooms started by the hub stop with ctx.
func (h *Hub) Run(ctx context.Context) {
	h.ctx = ctx
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("hub stopped")
			return

		case client := <-h.register:
			h.clientMu.Lock()
			h.clients[client] = true
			h.clientMu.Unlock()
			h.logger.Info("client connected", zap.String("client_id", client.ID), zap.String("addr", client.remoteAddr()))

		case client := <-h.unregister:
			h.removeClient(client)

		case clientMsg := <-h.processMessage:
			h.handleMessage(clientMsg.client, clientMsg.message)
		}
	}
}

// removeClient forgets a disconnected client. Leaving a running game forfeits
// the current round.
func (h *Hub) removeClient(client *Client) {
	h.clientMu.Lock()
	gameCode, inGameOrLobby := h.clientToGame[client]
	_, clientExists := h.clients[client]
	if clientExists {
		delete(h.clients, client)
		delete(h.clientToGame, client)
		close(client.send)
	}
	h.clientMu.Unlock()

	if !clientExists {
		return
	}
	log := h.logger.With(zap.String("client_id", client.ID), zap.String("name", client.Name))
	log.Info("client disconnected")
	if !inGameOrLobby {
		return
	}

	h.lobbyMu.Lock()
	lobby, lobbyExists := h.lobbies[gameCode]
	if lobbyExists {
		newLobby := make([]*Client, 0, len(lobby))
		for _, c := range lobby {
			if c != client {
				newLobby = append(newLobby, c)
			}
		}
		if len(newLobby) > 0 {
			h.lobbies[gameCode] = newLobby
		} else {
			delete(h.lobbies, gameCode)
		}
		h.lobbyMu.Unlock()

		log.Info("client left lobby", zap.String("game_code", gameCode), zap.Int("lobby_size", len(newLobby)))
		if len(newLobby) > 0 {
			h.broadcastLobbyUpdate(gameCode, newLobby)
		}
		return
	}
	h.lobbyMu.Unlock()

	h.gameMu.RLock()
	_, gameExists := h.rooms[gameCode]
	h.gameMu.RUnlock()
	if !gameExists {
		log.Warn("client mapped to unknown game code", zap.String("game_code", gameCode))
		return
	}

	log.Info("client left running game, forfeiting round", zap.String("game_code", gameCode))
	leftMsg, _ := protocol.NewMessage(protocol.TypePlayerLeft, protocol.PlayerLeftPayload{PlayerID: client.ID})
	h.broadcastToRoom(gameCode, leftMsg)
	if err := h.Submit(gameCode, game.NewAction(game.ActionRunAway, client.ID)); err != nil {
		log.Warn("failed to submit forfeit", zap.Error(err))
	}
}

// handleMessage processes a message received from a client.
func (h *Hub) handleMessage(client *Client, msg protocol.Message) {
	switch {
	case msg.Type == protocol.TypeCreateGame:
		h.handleCreateGame(client, msg)
	case msg.Type == protocol.TypeJoinGame:
		h.handleJoinGame(client, msg)
	case protocol.IsGameAction(msg.Type):
		h.handleGameAction(client, msg)
	case msg.Type == protocol.TypePing:
		pongMsg, _ := protocol.NewMessage(protocol.TypePong, nil)
		h.sendMessageToClient(client.ID, pongMsg)
	default:
		h.logger.Warn("unknown message type", zap.String("type", msg.Type), zap.String("client_id", client.ID))
		h.sendErrorToClient(client, "Unknown message type.")
	}
}

// handleCreateGame handles a request to create a new game lobby.
func (h *Hub) handleCreateGame(client *Client, msg protocol.Message) {
	h.clientMu.RLock()
	_, alreadyInGame := h.clientToGame[client]
	h.clientMu.RUnlock()
	if alreadyInGame {
		h.sendErrorToClient(client, "Already in a game or lobby.")
		return
	}

	var payload protocol.CreateGamePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		h.logger.Debug("bad create_game payload", zap.String("client_id", client.ID), zap.Error(err))
		h.sendErrorToClient(client, "Invalid create_game message format.")
		return
	}
	name := strings.TrimSpace(payload.Name)
	if name == "" {
		h.sendErrorToClient(client, "Name cannot be empty.")
		return
	}

	gameCode := h.generateGameCode()

	h.clientMu.Lock()
	client.Name = name
	h.clientToGame[client] = gameCode
	h.clientMu.Unlock()

	h.lobbyMu.Lock()
	h.lobbies[gameCode] = []*Client{client}
	h.lobbyMu.Unlock()

	h.logger.Info("lobby created",
		zap.String("game_code", gameCode),
		zap.String("client_id", client.ID),
		zap.String("name", client.Name))

	createdMsg, _ := protocol.NewMessage(protocol.TypeGameCreated, protocol.GameCreatedPayload{GameCode: gameCode})
	h.sendMessageToClient(client.ID, createdMsg)

	h.broadcastLobbyUpdate(gameCode, []*Client{client})
}

// handleJoinGame handles a request to join an existing game lobby.
func (h *Hub) handleJoinGame(client *Client, msg protocol.Message) {
	h.clientMu.RLock()
	_, alreadyInGame := h.clientToGame[client]
	h.clientMu.RUnlock()
	if alreadyInGame {
		h.sendJoinError(client, "Already in a game or lobby.")
		return
	}

	var payload protocol.JoinGamePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		h.logger.Debug("bad join_game payload", zap.String("client_id", client.ID), zap.Error(err))
		h.sendJoinError(client, "Invalid join_game message format.")
		return
	}
	name := strings.TrimSpace(payload.Name)
	if name == "" {
		h.sendJoinError(client, "Name cannot be empty.")
		return
	}
	if payload.GameCode == "" {
		h.sendJoinError(client, "Game code cannot be empty.")
		return
	}
	gameCode := strings.ToUpper(strings.TrimSpace(payload.GameCode))

	h.lobbyMu.Lock()
	lobby, lobbyExists := h.lobbies[gameCode]
	if !lobbyExists {
		h.lobbyMu.Unlock()
		h.sendJoinError(client, "Game code not found.")
		return
	}
	if len(lobby) >= game.NumPlayers {
		h.lobbyMu.Unlock()
		h.sendJoinError(client, "Game lobby is full.")
		return
	}
	for _, existingClient := range lobby {
		if existingClient.Name == name {
			h.lobbyMu.Unlock()
			h.sendJoinError(client, "Name already taken in this lobby.")
			return
		}
	}

	client.Name = name
	newLobby := append(lobby, client)
	full := len(newLobby) == game.NumPlayers
	if full {
		delete(h.lobbies, gameCode)
	} else {
		h.lobbies[gameCode] = newLobby
	}
	h.lobbyMu.Unlock()

	h.clientMu.Lock()
	h.clientToGame[client] = gameCode
	h.clientMu.Unlock()

	h.logger.Info("client joined lobby",
		zap.String("game_code", gameCode),
		zap.String("client_id", client.ID),
		zap.String("name", client.Name),
		zap.Int("lobby_size", len(newLobby)))

	if !full {
		h.broadcastLobbyUpdate(gameCode, newLobby)
		return
	}
	h.startGame(gameCode, newLobby)
}

// startGame seats a full lobby in join order and starts its room.
func (h *Hub) startGame(gameCode string, lobby []*Client) {
	log := h.logger.With(zap.String("game_code", gameCode))

	var store session.Store = h
	if h.mirror != nil {
		store = session.NewFanout(h, h.mirror)
	}

	g, err := game.NewGame(gameCode, clientsToPlayers(lobby), store, h.logger)
	if err != nil {
		log.Error("failed to create game", zap.Error(err))
		errMsg, _ := protocol.NewMessage(protocol.TypeError, protocol.ErrorPayload{Message: "Failed to start game due to internal error."})
		for _, c := range lobby {
			h.sendMessageToClient(c.ID, errMsg)
		}
		h.clientMu.Lock()
		for _, c := range lobby {
			delete(h.clientToGame, c)
		}
		h.clientMu.Unlock()
		return
	}

	room := session.NewRoom(gameCode, g, store, h.logger,
		session.WithRecorder(h.recorder),
		session.WithRejectHandler(h.rejected),
		session.WithQueueSize(h.queueSize),
	)

	h.gameMu.Lock()
	h.rooms[gameCode] = room
	h.gameMu.Unlock()

	log.Info("game created", zap.String("game_id", g.ID), zap.Strings("players", playerNames(lobby)))

	startMsg, err := protocol.NewMessage(protocol.TypeGameStart, gameStartPayload(g))
	if err != nil {
		log.Error("failed to encode game_start", zap.Error(err))
	}
	for _, c := range lobby {
		h.sendMessageToClient(c.ID, startMsg)
	}

	go func() {
		if err := room.Run(h.ctx); err != nil {
			log.Warn("room ended", zap.Error(err))
		}
		h.closeRoom(gameCode)
	}()
}

// closeRoom drops a finished room so its players can start a new game.
func (h *Hub) closeRoom(gameCode string) {
	h.gameMu.Lock()
	delete(h.rooms, gameCode)
	h.gameMu.Unlock()

	h.clientMu.Lock()
	for c, code := range h.clientToGame {
		if code == gameCode {
			delete(h.clientToGame, c)
		}
	}
	h.clientMu.Unlock()
	h.logger.Info("room closed", zap.String("game_code", gameCode))
}

// handleGameAction forwards in-game actions to the client's room.
func (h *Hub) handleGameAction(client *Client, msg protocol.Message) {
	h.clientMu.RLock()
	gameCode, inGame := h.clientToGame[client]
	h.clientMu.RUnlock()
	if !inGame {
		h.sendErrorToClient(client, "You are not in an active game or lobby.")
		return
	}

	h.gameMu.RLock()
	_, gameExists := h.rooms[gameCode]
	h.gameMu.RUnlock()
	if !gameExists {
		h.sendErrorToClient(client, "Game not found or not active.")
		return
	}

	action, err := protocol.ToAction(client.ID, msg)
	if err != nil {
		h.logger.Debug("bad action payload", zap.String("client_id", client.ID), zap.Error(err))
		h.sendErrorToClient(client, "Invalid "+msg.Type+" message format.")
		return
	}
	if err := h.Submit(gameCode, action); err != nil {
		h.logger.Warn("failed to submit action", zap.String("game_code", gameCode), zap.Error(err))
	}
}

// rejected reports a refused action back to the player who sent it.
func (h *Hub) rejected(action game.Action, err error) {
	payload := protocol.ErrorPayload{Message: err.Error()}
	msgBytes, encErr := protocol.NewMessage(protocol.TypeError, payload)
	if encErr != nil {
		return
	}
	h.sendMessageToClient(action.PlayerID, msgBytes)
}

// Publish sends a public snapshot to every client seated in roomID.
func (h *Hub) Publish(roomID string, snap game.Snapshot) error {
	msgBytes, err := protocol.NewMessage(protocol.TypeGameState, snap)
	if err != nil {
		return err
	}
	h.broadcastToRoom(roomID, msgBytes)
	return nil
}

// PublishPrivate sends a hand to its owner only.
func (h *Hub) PublishPrivate(playerID string, hand game.PrivateHand) error {
	msgBytes, err := protocol.NewMessage(protocol.TypeDealHand, hand)
	if err != nil {
		return err
	}
	h.sendMessageToClient(playerID, msgBytes)
	return nil
}

func (h *Hub) Subscribe(roomID string, onAction session.ActionHandler) (func(), error) {
	return h.actions.Subscribe(roomID, onAction)
}

func (h *Hub) Submit(roomID string, action game.Action) error {
	return h.actions.Submit(roomID, action)
}

// Helper to get player names for logging
func playerNames(players []*Client) []string {
	names := make([]string, len(players))
	for i, p := range players {
		names[i] = p.Name
	}
	return names
}

// clientsToPlayers seats clients in join order.
func clientsToPlayers(clients []*Client) [game.NumPlayers]*shared.Player {
	var players [game.NumPlayers]*shared.Player
	for i, c := range clients {
		players[i] = shared.NewPlayer(c.ID, c.Name, i)
	}
	return players
}

func gameStartPayload(g *game.Game) protocol.GameStartPayload {
	payload := protocol.GameStartPayload{GameID: g.ID}
	for _, p := range g.Players {
		payload.Players = append(payload.Players, protocol.PlayerInfo{ID: p.ID, Name: p.Name, Position: p.Seat})
	}
	for i, t := range g.Teams {
		info := protocol.TeamInfo{ID: t.ID, Score: t.Score, TeamNumber: i + 1}
		for _, p := range t.Players {
			info.Players = append(info.Players, protocol.PlayerInfo{ID: p.ID, Name: p.Name, Position: p.Seat})
		}
		payload.Teams = append(payload.Teams, info)
	}
	return payload
}

// sendMessageToClient delivers a message without blocking. A client whose
// buffer is full is disconnected.
func (h *Hub) sendMessageToClient(clientID string, message []byte) {
	h.clientMu.RLock()
	defer h.clientMu.RUnlock()

	for client := range h.clients {
		if client.ID == clientID {
			h.trySend(client, message)
			return
		}
	}
	h.logger.Debug("could not find client to send message", zap.String("client_id", clientID))
}

// trySend must be called with clientMu held.
func (h *Hub) trySend(client *Client, message []byte) {
	select {
	case client.send <- message:
	default:
		h.logger.Warn("client send buffer full, disconnecting", zap.String("client_id", client.ID))
		go func() { h.unregister <- client }()
	}
}

// broadcastToRoom sends a message to every client mapped to gameCode.
func (h *Hub) broadcastToRoom(gameCode string, message []byte) {
	h.clientMu.RLock()
	defer h.clientMu.RUnlock()

	for client, code := range h.clientToGame {
		if code == gameCode {
			h.trySend(client, message)
		}
	}
}

// broadcastToLobby sends a message to all clients currently in a specific lobby.
func (h *Hub) broadcastToLobby(gameCode string, message []byte) {
	h.lobbyMu.RLock()
	lobby, exists := h.lobbies[gameCode]
	clientsToSend := append([]*Client(nil), lobby...)
	h.lobbyMu.RUnlock()
	if !exists {
		h.logger.Debug("broadcast to unknown lobby", zap.String("game_code", gameCode))
		return
	}

	h.clientMu.RLock()
	defer h.clientMu.RUnlock()
	for _, client := range clientsToSend {
		if h.clients[client] {
			h.trySend(client, message)
		}
	}
}

// broadcastLobbyUpdate sends the current list of players in the lobby.
func (h *Hub) broadcastLobbyUpdate(gameCode string, lobby []*Client) {
	playerInfos := make([]protocol.PlayerInfo, len(lobby))
	for i, c := range lobby {
		playerInfos[i] = protocol.PlayerInfo{ID: c.ID, Name: c.Name, Position: i}
	}
	payload := protocol.LobbyUpdatePayload{GameCode: gameCode, Players: playerInfos}
	msgBytes, err := protocol.NewMessage(protocol.TypeLobbyUpdate, payload)
	if err != nil {
		h.logger.Error("failed to encode lobby_update", zap.String("game_code", gameCode), zap.Error(err))
		return
	}
	h.broadcastToLobby(gameCode, msgBytes)
}

// sendErrorToClient sends a generic error message to a specific client.
func (h *Hub) sendErrorToClient(client *Client, errorMsg string) {
	msgBytes, err := protocol.NewMessage(protocol.TypeError, protocol.ErrorPayload{Message: errorMsg})
	if err != nil {
		return
	}
	h.sendMessageToClient(client.ID, msgBytes)
}

// sendJoinError sends a specific join error message to a client.
func (h *Hub) sendJoinError(client *Client, errorMsg string) {
	msgBytes, err := protocol.NewMessage(protocol.TypeJoinError, protocol.JoinErrorPayload{Message: errorMsg})
	if err != nil {
		return
	}
	h.sendMessageToClient(client.ID, msgBytes)
}
