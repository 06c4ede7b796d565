package engine

import "github.com/bastidangca/aether/internal/board"

// AllocateTime turns UCI clock parameters into a hard millisecond budget
// for one move. Zero means no time limit applies.
//
// With remaining time T, increment I and movestogo M (default 30):
// base = T/M, allocated = base + 0.8*I, capped at T - overhead. A movetime
// directive overrides the computation with its value minus overhead.
func AllocateTime(limits Limits, us board.Color) int64 {
	if limits.Infinite {
		return 0
	}
	if limits.MoveTime > 0 {
		alloc := limits.MoveTime - limits.MoveOverhead
		if alloc < 1 {
			alloc = 1
		}
		return alloc
	}

	remaining := limits.Time[us]
	if remaining <= 0 {
		return 0
	}

	mtg := int64(limits.MovesToGo)
	if mtg <= 0 {
		mtg = 30
	}

	alloc := remaining/mtg + limits.Inc[us]*8/10

	cap := remaining - limits.MoveOverhead
	if alloc > cap {
		alloc = cap
	}
	if alloc < 1 {
		alloc = 1
	}
	return alloc
}
