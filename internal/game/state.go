package game

import "fmt"

// GameState represents the phase of the match.
type GameState string

const (
	Waiting  GameState = "Waiting"  // Created, first deal not done yet
	Dealing  GameState = "Dealing"  // Deck rebuilt, vira revealed, cards dealt
	Playing  GameState = "Playing"  // Players are playing tricks
	Finished GameState = "Finished" // A team reached MaxScore; terminal
)

// phaseTransitions lists the legal phase changes. Trick and round resolution
// are transient and happen inside Playing.
var phaseTransitions = map[GameState][]GameState{
	Waiting:  {Dealing},
	Dealing:  {Playing},
	Playing:  {Dealing, Finished},
	Finished: {},
}

// TrucoState is the side state machine of the bidding protocol.
type TrucoState string

const (
	TrucoNone     TrucoState = "None"
	TrucoCalled   TrucoState = "Called"
	TrucoAccepted TrucoState = "Accepted"
)

type trucoEvent string

const (
	trucoCall    trucoEvent = "call"
	trucoAccept  trucoEvent = "accept"
	trucoDecline trucoEvent = "decline"
)

// trucoTransitions is the bidding transition table. A missing entry means the
// event is not allowed in that state.
var trucoTransitions = map[TrucoState]map[trucoEvent]TrucoState{
	TrucoNone: {
		trucoCall: TrucoCalled,
	},
	TrucoCalled: {
		trucoCall:    TrucoCalled,
		trucoAccept:  TrucoAccepted,
		trucoDecline: TrucoNone,
	},
	TrucoAccepted: {
		trucoCall: TrucoCalled,
	},
}

// trucoLadder is the sequence of round values a truco call escalates through.
var trucoLadder = []int{1, 3, 6, 9, 12}

// nextTrucoValue returns the ladder step after v. ok is false at the top.
func nextTrucoValue(v int) (next int, ok bool) {
	for i, step := range trucoLadder {
		if step == v && i+1 < len(trucoLadder) {
			return trucoLadder[i+1], true
		}
	}
	return 0, false
}

func canTransition(from, to GameState) bool {
	for _, s := range phaseTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// nextTrucoState looks up the bidding transition for ev.
func nextTrucoState(from TrucoState, ev trucoEvent) (TrucoState, bool) {
	to, ok := trucoTransitions[from][ev]
	return to, ok
}

func mustTransition(from, to GameState) GameState {
	if !canTransition(from, to) {
		panic(fmt.Sprintf("game: illegal phase transition %s -> %s", from, to))
	}
	return to
}
