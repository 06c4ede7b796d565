package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bastidangca/aether/internal/board"
)

type rootMove struct {
	move  board.Move
	score int
}

// iterDeep is the per-worker iterative deepening loop. Root moves are
// generated once and re-sorted by score each iteration; the master drives
// aspiration windows and is the sole reporter, while helpers walk the root
// list striped by index modulo the thread count.
func (w *Worker) iterDeep() {
	pos := w.pos
	limits := w.pool.limits
	maxDepth := MaxPly - 1
	if limits.Depth > 0 {
		maxDepth = limits.Depth
	}

	roots := w.generateRootMoves()
	if len(roots) == 0 {
		if w.id == 0 && !limits.Silent {
			fmt.Fprintln(w.pool.out, "bestmove 0000")
		}
		return
	}

	// A prior TT hit seeds the initial ordering.
	if tte, ok := w.pool.tt.Probe(pos.Key()); ok {
		for i := range roots {
			if roots[i].move == tte.Move {
				roots[i].score = Infinity
				break
			}
		}
	}
	sortRootMoves(roots)

	prevScore := 0
	threads := max(w.pool.opts.Threads, 1)
	var completed rootMove
	haveCompleted := false

	for depth := 1; depth <= maxDepth; depth++ {
		if depth > 1 {
			sortRootMoves(roots)
		}

		alpha, beta := -Infinity, Infinity
		useAspiration := w.id == 0 && depth >= 2
		delta := 15
		if useAspiration {
			alpha = max(-Infinity, prevScore-delta)
			beta = min(Infinity, prevScore+delta)
		}

		bestScore := -Infinity
		for {
			if w.stopped() {
				break
			}

			alpha0, beta0 := alpha, beta
			a := alpha
			bestScore = -Infinity

			for i := range roots {
				if w.id != 0 && i%threads != w.id {
					continue
				}

				m := roots[i].move
				pos.MakeMove(m)
				var val int
				if i == 0 && w.id == 0 {
					val = -w.negamax(depth-1, -beta, -a, 1, true, m, board.NoMove)
				} else {
					val = -w.negamax(depth-1, -a-1, -a, 1, true, m, board.NoMove)
					if val > a && val < beta {
						val = -w.negamax(depth-1, -beta, -a, 1, true, m, board.NoMove)
					}
				}
				pos.UnmakeMove(m)
				if w.stopped() {
					break
				}

				roots[i].score = val
				if val > bestScore {
					bestScore = val
				}
				if val > a {
					a = val
				}
				if a >= beta && w.id == 0 {
					break
				}
			}

			if w.stopped() || !useAspiration {
				break
			}

			// Aspiration verdicts compare against the original window, not
			// the working alpha.
			if bestScore <= alpha0 || bestScore >= beta0 {
				delta += delta / 2
				alpha = max(-Infinity, bestScore-delta)
				beta = min(Infinity, bestScore+delta)
				if delta > 2000 {
					alpha, beta = -Infinity, Infinity
					useAspiration = false
				}
				continue
			}
			break
		}

		if w.stopped() {
			break
		}

		if w.id == 0 {
			best := bestRootMove(roots)
			prevScore = best.score
			completed, haveCompleted = best, true
			w.report(depth, roots, best)
			w.pool.tt.Store(pos.Key(), best.move, scoreToTT(best.score, 0),
				w.eval.EvaluateFull(pos), depth, BoundExact)
		}
	}

	// An interrupted iteration leaves partial scores in roots; the answer is
	// the best move of the last completed one.
	best := bestRootMove(roots)
	if haveCompleted {
		best = completed
	}
	w.result = Result{
		BestMove:   best.move,
		Score:      best.score,
		Depth:      w.completedDepth(),
		PV:         w.extractPV(best.move),
		RootScores: rootScores(roots),
	}
	if w.id == 0 && !limits.Silent {
		fmt.Fprintf(w.pool.out, "bestmove %v\n", best.move)
	}
}

func (w *Worker) generateRootMoves() []rootMove {
	var list board.MoveList
	board.GenerateAll(w.pos, &list)

	roots := make([]rootMove, 0, list.Len())
	for i := 0; i < list.Len(); i++ {
		if w.pos.IsLegal(list.Get(i)) {
			roots = append(roots, rootMove{move: list.Get(i), score: -Infinity})
		}
	}
	return roots
}

func sortRootMoves(roots []rootMove) {
	sort.SliceStable(roots, func(i, j int) bool {
		return roots[i].score > roots[j].score
	})
}

func bestRootMove(roots []rootMove) rootMove {
	best := roots[0]
	for _, rm := range roots[1:] {
		if rm.score > best.score {
			best = rm
		}
	}
	return best
}

func rootScores(roots []rootMove) []RootScore {
	sorted := append([]rootMove(nil), roots...)
	sortRootMoves(sorted)
	out := make([]RootScore, len(sorted))
	for i, rm := range sorted {
		out[i] = RootScore{Move: rm.move, Score: rm.score}
	}
	return out
}

// completedDepth tracks the deepest fully reported iteration.
func (w *Worker) completedDepth() int {
	return int(w.pool.completedDepth.Load())
}

// report emits the UCI info line for a finished iteration.
func (w *Worker) report(depth int, roots []rootMove, best rootMove) {
	w.pool.completedDepth.Store(int32(depth))
	if w.pool.limits.Silent {
		return
	}

	elapsed := time.Since(w.pool.startTime)
	ms := elapsed.Milliseconds()
	nodes := w.pool.TotalNodes()
	nps := int64(0)
	if us := elapsed.Microseconds(); us > 0 {
		nps = nodes * 1000000 / us
	}

	var scoreStr string
	if IsMateScore(best.score) {
		scoreStr = fmt.Sprintf("mate %d", MateDistance(best.score))
	} else {
		scoreStr = fmt.Sprintf("cp %d", best.score)
	}

	pv := w.extractPV(best.move)
	pvStrs := make([]string, len(pv))
	for i, m := range pv {
		pvStrs[i] = m.String()
	}

	fmt.Fprintf(w.pool.out, "info depth %d score %s nodes %d time %d nps %d pv %s\n",
		depth, scoreStr, nodes, ms, nps, strings.Join(pvStrs, " "))
}

// extractPV walks the transposition table from the root, guarding against
// illegal TT moves and cycles.
func (w *Worker) extractPV(first board.Move) []board.Move {
	if first == board.NoMove {
		return nil
	}
	pv := []board.Move{first}
	pos := w.pos.Copy()
	pos.MakeMove(first)

	seen := map[uint64]bool{pos.Key(): true}
	for len(pv) < MaxPly {
		tte, ok := w.pool.tt.Probe(pos.Key())
		if !ok || tte.Move == board.NoMove {
			break
		}
		m := tte.Move
		if !board.IsPseudoLegal(pos, m) || !pos.IsLegal(m) {
			break
		}
		pos.MakeMove(m)
		if seen[pos.Key()] {
			pos.UnmakeMove(m)
			break
		}
		seen[pos.Key()] = true
		pv = append(pv, m)
	}
	return pv
}
