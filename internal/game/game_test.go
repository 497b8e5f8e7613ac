package game

import (
	"errors"
	"math/rand/v2"
	"testing"

	"truco-game/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recordingPublisher struct {
	snapshots []Snapshot
	hands     map[string][]PrivateHand
	err       error
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{hands: make(map[string][]PrivateHand)}
}

func (r *recordingPublisher) Publish(roomID string, snap Snapshot) error {
	r.snapshots = append(r.snapshots, snap)
	return r.err
}

func (r *recordingPublisher) PublishPrivate(playerID string, hand PrivateHand) error {
	r.hands[playerID] = append(r.hands[playerID], hand)
	return r.err
}

func (r *recordingPublisher) last() Snapshot {
	return r.snapshots[len(r.snapshots)-1]
}

func testPlayers() [NumPlayers]*shared.Player {
	return [NumPlayers]*shared.Player{
		shared.NewPlayer("p0", "Ana", 0),
		shared.NewPlayer("p1", "Bruno", 1),
		shared.NewPlayer("p2", "Carla", 2),
		shared.NewPlayer("p3", "Davi", 3),
	}
}

// newTestGame starts a game whose first trick is led by seat 0.
func newTestGame(t *testing.T) (*Game, *recordingPublisher) {
	t.Helper()
	pub := newRecordingPublisher()
	g, err := NewGame("room-1", testPlayers(), pub, zaptest.NewLogger(t),
		WithRand(rand.New(rand.NewPCG(11, 13))),
		WithDealer(3),
	)
	require.NoError(t, err)
	require.NoError(t, g.Start())
	require.Equal(t, 0, g.CurrentTurn)
	return g, pub
}

func c(suit shared.Suit, rank shared.Rank) shared.Card {
	return shared.NewCard(suit, rank)
}

func rig(g *Game, hands [NumPlayers][]shared.Card) {
	for i, h := range hands {
		g.Players[i].Hand = h
	}
}

// Seat 0 wins tricks 1 and 3, seat 1 wins trick 2 when every seat plays index 0.
func rigSplitRound(g *Game) {
	rig(g, [NumPlayers][]shared.Card{
		{c(shared.Paus, shared.Three), c(shared.Paus, shared.Four), c(shared.Copas, shared.Three)},
		{c(shared.Ouros, shared.Four), c(shared.Ouros, shared.Two), c(shared.Ouros, shared.Five)},
		{c(shared.Copas, shared.Five), c(shared.Espadas, shared.Five), c(shared.Copas, shared.Six)},
		{c(shared.Paus, shared.Six), c(shared.Espadas, shared.Six), c(shared.Espadas, shared.Four)},
	})
}

func playTrick(t *testing.T, g *Game) {
	t.Helper()
	for i := 0; i < NumPlayers; i++ {
		seat := g.CurrentTurn
		require.NoError(t, g.PlayCard(g.Players[seat].ID, 0), "seat %d", seat)
	}
}

func TestNewGameRejectsBadRoster(t *testing.T) {
	players := testPlayers()
	players[2] = shared.NewPlayer("p0", "Dup", 2)
	_, err := NewGame("room", players, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidRoster)

	players = testPlayers()
	players[3] = nil
	_, err = NewGame("room", players, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidRoster)
}

func TestStartDealsFirstRound(t *testing.T) {
	g, pub := newTestGame(t)

	assert.Equal(t, Playing, g.GameState)
	assert.Equal(t, 1, g.Round)
	assert.Equal(t, 1, g.TrucoValue)
	assert.Equal(t, TrucoNone, g.TrucoState)
	require.NotNil(t, g.Vira)
	assert.Equal(t, shared.DeckSize-1-12, g.Deck.Len())

	seen := map[string]bool{}
	for _, p := range g.Players {
		require.Len(t, p.Hand, shared.HandSize)
		for _, card := range p.Hand {
			assert.False(t, card.SameIdentity(*g.Vira))
			assert.False(t, seen[card.String()])
			seen[card.String()] = true
			assert.Equal(t, card.Rank == shared.NextRank(g.Vira.Rank), card.Manilha)
		}
	}

	require.Len(t, pub.snapshots, 1)
	assert.Equal(t, int64(1), pub.last().Version)
	assert.Error(t, g.Start(), "second start must fail")
}

func TestActionsBeforeStart(t *testing.T) {
	g, err := NewGame("room", testPlayers(), nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.ErrorIs(t, g.PlayCard("p1", 0), ErrGameNotStarted)
	assert.ErrorIs(t, g.RunAway("p1"), ErrGameNotStarted)
}

func TestPlayCardRejections(t *testing.T) {
	g, pub := newTestGame(t)
	before := len(pub.snapshots)
	hand := append([]shared.Card{}, g.Players[1].Hand...)

	assert.ErrorIs(t, g.PlayCard("p1", 0), ErrNotYourTurn)
	assert.ErrorIs(t, g.PlayCard("ghost", 0), ErrUnknownPlayer)
	assert.ErrorIs(t, g.PlayCard("p0", 3), ErrInvalidCard)
	assert.ErrorIs(t, g.PlayCard("p0", -1), ErrInvalidCard)

	assert.Equal(t, 0, g.CurrentTurn)
	assert.Len(t, g.Players[0].Hand, shared.HandSize)
	assert.Equal(t, hand, g.Players[1].Hand)
	assert.Empty(t, g.CurrentTrick.Plays)
	assert.Len(t, pub.snapshots, before, "rejected actions publish nothing")
}

func TestPlayCardAdvancesTurn(t *testing.T) {
	g, pub := newTestGame(t)
	card := g.Players[0].Hand[1]

	require.NoError(t, g.PlayCard("p0", 1))

	assert.Equal(t, 1, g.CurrentTurn)
	assert.Len(t, g.Players[0].Hand, 2)
	require.Len(t, g.CurrentTrick.Plays, 1)
	assert.Equal(t, shared.PlayedCard{Card: card, Seat: 0}, g.CurrentTrick.Plays[0])

	snap := pub.last()
	require.Len(t, snap.Trick, 1)
	assert.Equal(t, card.Rank, snap.Trick[0].Rank)
	assert.Equal(t, 2, snap.Players[0].HandCount)
}

func TestTrickWinnerLeadsNextTrick(t *testing.T) {
	g, _ := newTestGame(t)
	rig(g, [NumPlayers][]shared.Card{
		{c(shared.Paus, shared.Four), c(shared.Paus, shared.Five), c(shared.Paus, shared.Six)},
		{c(shared.Ouros, shared.Four), c(shared.Ouros, shared.Five), c(shared.Ouros, shared.Six)},
		{c(shared.Copas, shared.King), c(shared.Copas, shared.Five), c(shared.Copas, shared.Six)},
		{c(shared.Espadas, shared.Jack), c(shared.Espadas, shared.Five), c(shared.Espadas, shared.Six)},
	})

	playTrick(t, g)

	assert.Equal(t, 2, g.CurrentTurn)
	assert.Equal(t, []shared.TeamID{shared.TeamA}, g.TrickWinners)
	assert.Empty(t, g.CurrentTrick.Plays)
	require.NotNil(t, g.LastTrick)
	assert.Equal(t, 2, g.LastTrick.WinnerSeat)
	assert.Len(t, g.Teams[shared.TeamA].Pile, 4)
}

func TestRoundFirstAndThirdTrick(t *testing.T) {
	g, pub := newTestGame(t)
	rigSplitRound(g)

	playTrick(t, g)
	assert.Equal(t, []shared.TeamID{shared.TeamA}, g.TrickWinners)
	assert.Equal(t, 0, g.CurrentTurn)

	playTrick(t, g)
	assert.Equal(t, []shared.TeamID{shared.TeamA, shared.TeamB}, g.TrickWinners)
	assert.Equal(t, 1, g.CurrentTurn)

	playTrick(t, g)

	assert.Equal(t, [2]int{1, 0}, g.Scores())
	assert.Equal(t, 2, g.Round)
	assert.Equal(t, 0, g.Dealer)
	assert.Equal(t, 1, g.CurrentTurn)
	assert.Empty(t, g.TrickWinners)
	assert.Equal(t, 1, g.TrucoValue)
	assert.Empty(t, g.Teams[0].Pile)
	assert.Empty(t, g.Teams[1].Pile)
	for _, p := range g.Players {
		assert.Len(t, p.Hand, shared.HandSize)
	}

	snap := pub.last()
	assert.Equal(t, [2]int{1, 0}, snap.Scores)
	assert.Equal(t, 2, snap.Round)
}

func TestRoundEndsAfterTwoTricks(t *testing.T) {
	g, _ := newTestGame(t)
	rig(g, [NumPlayers][]shared.Card{
		{c(shared.Ouros, shared.Four), c(shared.Ouros, shared.Five), c(shared.Ouros, shared.Six)},
		{c(shared.Paus, shared.Three), c(shared.Paus, shared.Two), c(shared.Paus, shared.Ace)},
		{c(shared.Copas, shared.Four), c(shared.Copas, shared.Five), c(shared.Copas, shared.Six)},
		{c(shared.Espadas, shared.Four), c(shared.Espadas, shared.Five), c(shared.Espadas, shared.Six)},
	})

	playTrick(t, g)
	playTrick(t, g)

	assert.Equal(t, [2]int{0, 1}, g.Scores())
	assert.Equal(t, 2, g.Round)
}

func TestRoundWinnerPolicy(t *testing.T) {
	a, b := shared.TeamA, shared.TeamB
	tests := []struct {
		name    string
		winners []shared.TeamID
		want    shared.TeamID
		decided bool
	}{
		{"none", nil, shared.NoTeam, false},
		{"one trick", []shared.TeamID{a}, shared.NoTeam, false},
		{"split", []shared.TeamID{a, b}, shared.NoTeam, false},
		{"two straight", []shared.TeamID{b, b}, b, true},
		{"first and third", []shared.TeamID{a, b, a}, a, true},
		{"second and third", []shared.TeamID{a, b, b}, b, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, decided := roundWinner(tt.winners)
			assert.Equal(t, tt.decided, decided)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunAwayAwardsOpponents(t *testing.T) {
	g, _ := newTestGame(t)
	require.NoError(t, g.PlayCard("p0", 0))

	// Out of turn is fine for running away.
	require.NoError(t, g.RunAway("p2"))

	assert.Equal(t, [2]int{0, 1}, g.Scores())
	assert.Equal(t, 2, g.Round)
	assert.Empty(t, g.CurrentTrick.Plays)
	assert.ErrorIs(t, g.RunAway("ghost"), ErrUnknownPlayer)
}

func TestReachingTwelveFinishesGame(t *testing.T) {
	g, pub := newTestGame(t)
	g.Teams[shared.TeamA].Score = 11

	require.NoError(t, g.RunAway("p1"))

	assert.Equal(t, Finished, g.GameState)
	assert.True(t, g.IsFinished())
	assert.Equal(t, shared.TeamA, g.Winner)
	assert.Equal(t, [2]int{12, 0}, g.Scores())
	assert.Equal(t, Finished, pub.last().GameState)

	published := len(pub.snapshots)
	turn := g.CurrentTurn
	hands := make([][]shared.Card, NumPlayers)
	for i, p := range g.Players {
		hands[i] = append([]shared.Card{}, p.Hand...)
	}

	for _, p := range g.Players {
		assert.ErrorIs(t, g.PlayCard(p.ID, 0), ErrGameFinished)
		assert.ErrorIs(t, g.CallTruco(p.ID), ErrGameFinished)
		assert.ErrorIs(t, g.RespondToTruco(p.ID, Accept), ErrGameFinished)
		assert.ErrorIs(t, g.RunAway(p.ID), ErrGameFinished)
	}

	assert.Equal(t, Finished, g.GameState)
	assert.Equal(t, [2]int{12, 0}, g.Scores())
	assert.Equal(t, turn, g.CurrentTurn)
	for i, p := range g.Players {
		assert.Equal(t, hands[i], p.Hand)
	}
	assert.Len(t, pub.snapshots, published)
}

func TestScoreIsCappedAtTwelve(t *testing.T) {
	g, _ := newTestGame(t)
	g.Teams[shared.TeamB].Score = 10

	require.NoError(t, g.CallTruco("p0"))
	require.NoError(t, g.RespondToTruco("p1", Accept))
	require.NoError(t, g.RunAway("p0"))

	assert.Equal(t, [2]int{0, 12}, g.Scores())
	assert.Equal(t, shared.TeamB, g.Winner)
}

func TestApplyDispatch(t *testing.T) {
	g, _ := newTestGame(t)

	require.NoError(t, g.Apply(PlayCardAction("p0", 0)))
	assert.Equal(t, 1, g.CurrentTurn)

	require.NoError(t, g.Apply(NewAction(ActionCallTruco, "p1")))
	assert.Equal(t, TrucoCalled, g.TrucoState)

	require.NoError(t, g.Apply(RespondAction("p2", Accept)))
	assert.Equal(t, 3, g.TrucoValue)

	err := g.Apply(NewAction(ActionType("shuffle"), "p1"))
	assert.True(t, errors.Is(err, ErrUnknownAction))

	require.NoError(t, g.Apply(NewAction(ActionRunAway, "p1")))
	assert.Equal(t, [2]int{3, 0}, g.Scores())
}

func TestPublishErrorsDoNotRejectActions(t *testing.T) {
	g, pub := newTestGame(t)
	pub.err = errors.New("store unreachable")

	require.NoError(t, g.PlayCard("p0", 0))
	assert.Equal(t, 1, g.CurrentTurn)
}

func TestIllegalPhaseTransitionPanics(t *testing.T) {
	assert.Panics(t, func() { mustTransition(Finished, Dealing) })
	assert.Panics(t, func() { mustTransition(Waiting, Playing) })
	assert.NotPanics(t, func() { mustTransition(Playing, Dealing) })
}

// Playing whole matches with arbitrary legal moves must keep the match invariants.
func TestFullMatchInvariants(t *testing.T) {
	for seed := uint64(1); seed <= 10; seed++ {
		g, err := NewGame("room", testPlayers(), nil, zaptest.NewLogger(t),
			WithRand(rand.New(rand.NewPCG(seed, 99))))
		require.NoError(t, err)
		require.NoError(t, g.Start())

		prev := g.Scores()
		for steps := 0; !g.IsFinished(); steps++ {
			require.Less(t, steps, 1000, "match did not finish")
			seat := g.CurrentTurn
			require.NotEmpty(t, g.Players[seat].Hand)
			require.NoError(t, g.PlayCard(g.Players[seat].ID, len(g.Players[seat].Hand)-1))

			scores := g.Scores()
			assert.GreaterOrEqual(t, scores[0], prev[0])
			assert.GreaterOrEqual(t, scores[1], prev[1])
			assert.LessOrEqual(t, scores[0], shared.MaxScore)
			assert.LessOrEqual(t, scores[1], shared.MaxScore)
			prev = scores
		}

		scores := g.Scores()
		assert.True(t, scores[0] == shared.MaxScore || scores[1] == shared.MaxScore)
		assert.Equal(t, shared.MaxScore, scores[g.Winner])
	}
}
