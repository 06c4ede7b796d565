// Package engine implements the search pipeline: transposition table,
// static exchange evaluation, the hand-crafted evaluator, move picking,
// the negamax kernel and the worker pool that runs it.
package engine

import "github.com/bastidangca/aether/internal/board"

// Score bounds. Mate scores are encoded relative to MateScore so that
// "mate in n plies" is MateScore-n; anything beyond MateScore-MaxPly is a
// mate score.
const (
	Infinity  = 32000
	MateScore = 31000
	MaxPly    = 128
)

// IsMateScore reports whether a score encodes a forced mate.
func IsMateScore(score int) bool {
	return score > MateScore-MaxPly || score < -MateScore+MaxPly
}

// MateDistance converts a mate score into full moves until mate, signed by
// the winning side.
func MateDistance(score int) int {
	n := (MateScore - abs(score) + 1) / 2
	if score < 0 {
		return -n
	}
	return n
}

// scoreToTT converts a search score to its ply-independent TT form by
// pushing mate scores away from the root.
func scoreToTT(score, ply int) int {
	if score > MateScore-MaxPly {
		return score + ply
	}
	if score < -MateScore+MaxPly {
		return score - ply
	}
	return score
}

// scoreFromTT is the inverse of scoreToTT at the probing ply.
func scoreFromTT(score, ply int) int {
	if score > MateScore-MaxPly {
		return score - ply
	}
	if score < -MateScore+MaxPly {
		return score + ply
	}
	return score
}

// Limits bounds one search. Zero values mean unlimited.
type Limits struct {
	Depth     int
	Nodes     int64
	MoveTime  int64 // milliseconds
	Infinite  bool
	Time      [2]int64 // remaining clock per color, milliseconds
	Inc       [2]int64 // increment per color, milliseconds
	MovesToGo int

	MoveOverhead int64 // subtracted from every allocation
	Silent       bool  // suppress info/bestmove output (datagen)
}

// Options gates the selectivity features and carries engine-wide settings.
type Options struct {
	HashMB      int
	Threads     int
	Contempt    int
	UseNullMove bool
	UseProbCut  bool
	UseSingular bool
	UseHistory  bool
	LargePages  bool
	Chess960    bool
}

// DefaultOptions mirrors the UCI option defaults.
func DefaultOptions() Options {
	return Options{
		HashMB:      64,
		Threads:     1,
		UseNullMove: true,
		UseProbCut:  true,
		UseSingular: true,
		UseHistory:  true,
	}
}

// RootScore is one root move with its last-iteration score.
type RootScore struct {
	Move  board.Move
	Score int
}

// Result is the outcome of a search: the best root move, its score, the
// depth the iterative deepener completed, and the scored root list for
// policy sampling in datagen.
type Result struct {
	BestMove   board.Move
	Score      int
	Depth      int
	PV         []board.Move
	RootScores []RootScore
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
