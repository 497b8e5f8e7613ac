package game

import (
	"fmt"
	"math/rand/v2"

	"truco-game/internal/shared"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NumPlayers is the fixed number of seats at a Truco table.
const NumPlayers = 4

// Publisher is the outbound half of the session store. The engine calls it
// after every accepted action; implementations must not block on the network.
type Publisher interface {
	// Publish broadcasts the public projection of the game to the room.
	Publish(roomID string, snap Snapshot) error
	// PublishPrivate delivers a player's own hand to that player only.
	PublishPrivate(playerID string, hand PrivateHand) error
}

// Option configures a Game.
type Option func(*Game)

// WithRand makes every deck shuffle draw from rng.
func WithRand(rng *rand.Rand) Option {
	return func(g *Game) { g.rng = rng }
}

// WithDealer sets the dealer of the first round.
func WithDealer(seat int) Option {
	return func(g *Game) { g.Dealer = ((seat % NumPlayers) + NumPlayers) % NumPlayers }
}

// Game is the Truco rules engine for one match. It is a single-writer state
// machine: callers must serialize every mutating call.
type Game struct {
	ID                string
	RoomID            string
	Players           [NumPlayers]*shared.Player
	Teams             [2]*shared.Team
	Deck              *shared.Deck
	Vira              *shared.Card
	CurrentTrick      *shared.Trick
	LastTrick         *shared.Trick // most recently resolved trick of this round
	CurrentTurn       int
	Dealer            int
	Round             int
	TrickWinners      []shared.TeamID
	TrucoValue        int
	TrucoState        TrucoState
	LastTrucoTeam     shared.TeamID
	PendingTrucoValue int // 0 when no call is pending
	GameState         GameState
	Winner            shared.TeamID

	version   int64
	rng       *rand.Rand
	publisher Publisher
	logger    *zap.Logger
}

// NewGame seats players 0..3 in the given order. Seats 0 and 2 play together
// against seats 1 and 3. The game waits in the Waiting state until Start.
func NewGame(roomID string, players [NumPlayers]*shared.Player, publisher Publisher, logger *zap.Logger, opts ...Option) (*Game, error) {
	seen := make(map[string]bool, NumPlayers)
	for _, p := range players {
		if p == nil || p.ID == "" || seen[p.ID] {
			return nil, ErrInvalidRoster
		}
		seen[p.ID] = true
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	for i, p := range players {
		p.Seat = i
		p.Hand = []shared.Card{}
	}

	g := &Game{
		ID:      uuid.NewString(),
		RoomID:  roomID,
		Players: players,
		Teams: [2]*shared.Team{
			shared.NewTeam(shared.TeamA, players[0], players[2]),
			shared.NewTeam(shared.TeamB, players[1], players[3]),
		},
		CurrentTrick:  shared.NewTrick(),
		TrucoValue:    1,
		TrucoState:    TrucoNone,
		LastTrucoTeam: shared.NoTeam,
		GameState:     Waiting,
		Winner:        shared.NoTeam,
		publisher:     publisher,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = logger.With(zap.String("game_id", g.ID), zap.String("room_id", roomID))
	return g, nil
}

// Start deals the first round and publishes the initial state.
func (g *Game) Start() error {
	if g.GameState != Waiting {
		return fmt.Errorf("start game %s: already in state %s", g.ID, g.GameState)
	}
	g.logger.Info("starting match", zap.Strings("players", g.playerNames()))
	g.startRound()
	g.publish()
	return nil
}

// startRound rebuilds the deck, reveals the vira and deals. Match-scoped
// fields (scores, dealer rotation, round counter) carry over.
func (g *Game) startRound() {
	g.GameState = mustTransition(g.GameState, Dealing)
	g.Round++

	g.TrickWinners = []shared.TeamID{}
	g.TrucoValue = 1
	g.TrucoState = TrucoNone
	g.LastTrucoTeam = shared.NoTeam
	g.PendingTrucoValue = 0
	g.CurrentTrick = shared.NewTrick()
	g.LastTrick = nil
	for _, team := range g.Teams {
		team.ResetPile()
	}

	if g.Deck == nil {
		g.Deck = shared.NewDeckWithRand(g.rng)
	}
	g.Deck.Reset()

	vira, ok := g.Deck.DrawVira()
	if !ok {
		panic(fmt.Sprintf("game %s: deck exhausted before the vira was drawn", g.ID))
	}
	g.Vira = &vira

	hands := g.Deck.Deal(NumPlayers)
	if hands == nil {
		panic(fmt.Sprintf("game %s: deck too small to deal round %d", g.ID, g.Round))
	}
	for i, hand := range hands {
		g.Players[i].Hand = hand
	}

	g.CurrentTurn = (g.Dealer + 1) % NumPlayers
	g.GameState = mustTransition(g.GameState, Playing)

	g.logger.Debug("round dealt",
		zap.Int("round", g.Round),
		zap.Int("dealer", g.Dealer),
		zap.Stringer("vira", vira),
		zap.String("manilha", string(g.Deck.ManilhaRank)),
		zap.Int("first_turn", g.CurrentTurn),
	)
}

// PlayCard plays the card at cardIndex from the player's hand. When it
// completes the trick, the trick (and possibly the round) resolves before
// PlayCard returns.
func (g *Game) PlayCard(playerID string, cardIndex int) error {
	player, err := g.actor(playerID)
	if err != nil {
		return g.reject("play_card", playerID, err)
	}
	if player.Seat != g.CurrentTurn {
		return g.reject("play_card", playerID, ErrNotYourTurn)
	}
	if g.TrucoState == TrucoCalled {
		return g.reject("play_card", playerID, ErrTrucoPending)
	}
	card, ok := player.RemoveCardAt(cardIndex)
	if !ok {
		return g.reject("play_card", playerID, ErrInvalidCard)
	}

	g.CurrentTrick.AddCard(card, player.Seat)
	g.CurrentTurn = (g.CurrentTurn + 1) % NumPlayers
	g.logger.Debug("card played",
		zap.String("player_id", playerID),
		zap.Int("seat", player.Seat),
		zap.Stringer("card", card),
	)

	if g.CurrentTrick.IsComplete(NumPlayers) {
		g.endTrick()
	}

	g.publish()
	return nil
}

// endTrick records the trick winner, who leads the next trick, and ends the
// round once it is decided.
func (g *Game) endTrick() {
	winnerSeat := g.CurrentTrick.DetermineWinner()
	winnerTeam := shared.TeamOf(winnerSeat)

	g.TrickWinners = append(g.TrickWinners, winnerTeam)
	g.Teams[winnerTeam].Collect(g.CurrentTrick.Cards()...)
	g.LastTrick = g.CurrentTrick
	g.CurrentTrick = shared.NewTrick()
	g.CurrentTurn = winnerSeat

	g.logger.Debug("trick won",
		zap.Int("seat", winnerSeat),
		zap.Int("team", int(winnerTeam)),
		zap.Int("trick", len(g.TrickWinners)),
	)

	if team, decided := roundWinner(g.TrickWinners); decided {
		g.endRound(team, g.TrucoValue)
	}
}

// roundWinner decides the round from the trick winners so far. A team wins
// with two tricks; after three tricks without a majority the winner of the
// first trick takes the round.
func roundWinner(trickWinners []shared.TeamID) (shared.TeamID, bool) {
	var wins [2]int
	for _, t := range trickWinners {
		wins[t]++
	}
	switch {
	case wins[shared.TeamA] >= 2:
		return shared.TeamA, true
	case wins[shared.TeamB] >= 2:
		return shared.TeamB, true
	case len(trickWinners) >= 3:
		return trickWinners[0], true
	}
	return shared.NoTeam, false
}

// endRound awards points to team and either finishes the match or deals the
// next round with the dealer advanced by one seat.
func (g *Game) endRound(team shared.TeamID, points int) {
	g.Teams[team].AddScore(points)
	g.logger.Info("round won",
		zap.Int("round", g.Round),
		zap.Int("team", int(team)),
		zap.Int("points", points),
		zap.Ints("scores", g.scoreSlice()),
	)

	for _, t := range g.Teams {
		if t.Score >= shared.MaxScore {
			g.GameState = mustTransition(g.GameState, Finished)
			g.Winner = t.Number
			g.logger.Info("match finished",
				zap.Int("winner", int(t.Number)),
				zap.Ints("scores", g.scoreSlice()),
			)
			return
		}
	}

	g.Dealer = (g.Dealer + 1) % NumPlayers
	g.startRound()
}

// RunAway concedes the round: the other team scores the current round value.
// It is accepted regardless of turn or bidding state.
func (g *Game) RunAway(playerID string) error {
	player, err := g.actor(playerID)
	if err != nil {
		return g.reject("run_away", playerID, err)
	}

	g.logger.Info("player ran away", zap.String("player_id", playerID), zap.Int("seat", player.Seat))
	g.endRound(player.Team().Opponent(), g.TrucoValue)
	g.publish()
	return nil
}

// actor resolves playerID for an action, rejecting actions on a game that is
// not running.
func (g *Game) actor(playerID string) (*shared.Player, error) {
	switch g.GameState {
	case Finished:
		return nil, ErrGameFinished
	case Waiting:
		return nil, ErrGameNotStarted
	}
	player := g.GetPlayerByID(playerID)
	if player == nil {
		return nil, ErrUnknownPlayer
	}
	return player, nil
}

// reject logs a protocol violation and hands the error back to the caller.
func (g *Game) reject(action, playerID string, err error) error {
	g.logger.Debug("action rejected",
		zap.String("action", action),
		zap.String("player_id", playerID),
		zap.Error(err),
	)
	return err
}

// publish sends the public snapshot to the room and each hand to its owner.
func (g *Game) publish() {
	if g.publisher == nil {
		return
	}
	g.version++

	if err := g.publisher.Publish(g.RoomID, g.Snapshot()); err != nil {
		g.logger.Warn("failed to publish snapshot", zap.Int64("version", g.version), zap.Error(err))
	}
	for _, p := range g.Players {
		hand, _ := g.PrivateHand(p.ID)
		if err := g.publisher.PublishPrivate(p.ID, hand); err != nil {
			g.logger.Warn("failed to publish hand", zap.String("player_id", p.ID), zap.Error(err))
		}
	}
}

// --- Utility Helpers ---

// GetPlayerByID finds a player by their ID.
func (g *Game) GetPlayerByID(playerID string) *shared.Player {
	for _, p := range g.Players {
		if p != nil && p.ID == playerID {
			return p
		}
	}
	return nil
}

// GetPlayerIndex returns the seat (0-3) of a player, or -1 if not seated.
func (g *Game) GetPlayerIndex(playerID string) int {
	if p := g.GetPlayerByID(playerID); p != nil {
		return p.Seat
	}
	return -1
}

// Scores returns the match score of both teams.
func (g *Game) Scores() [2]int {
	return [2]int{g.Teams[0].Score, g.Teams[1].Score}
}

// IsFinished reports whether the match is over.
func (g *Game) IsFinished() bool {
	return g.GameState == Finished
}

func (g *Game) scoreSlice() []int {
	s := g.Scores()
	return s[:]
}

func (g *Game) playerNames() []string {
	names := make([]string, 0, NumPlayers)
	for _, p := range g.Players {
		names = append(names, p.Name)
	}
	return names
}
