package engine

import (
	"math"
	"sync"

	"github.com/bastidangca/aether/internal/board"
	"go.uber.org/atomic"
)

// lmrTable holds the precomputed late-move reductions by depth and move
// index: 1 + ln(d)*ln(m)/2, zero for shallow depths and early moves.
var lmrTable [64][64]int

func init() {
	for d := 1; d < 64; d++ {
		for m := 1; m < 64; m++ {
			if d < 3 || m < 2 {
				continue
			}
			lmrTable[d][m] = int(1.0 + math.Log(float64(d))*math.Log(float64(m))/2.0)
		}
	}
}

// lmpTable caps the number of quiets tried per depth before late-move
// pruning cuts the rest at non-PV nodes.
var lmpTable = [6]int{0, 3, 5, 8, 12, 20}

// Worker is one search thread: a private position copy, private history
// tables and killers, and a share of the root moves. The master (id 0) runs
// on the caller's goroutine; helpers park on a condition variable between
// searches.
type Worker struct {
	id   int
	pool *Pool

	pos     *board.Position
	eval    *Evaluator
	history *History
	killers [MaxPly][2]board.Move

	nodes atomic.Int64

	result Result

	mu        sync.Mutex
	cond      *sync.Cond
	searching bool
	exit      bool
}

func newWorker(id int, pool *Pool) *Worker {
	w := &Worker{
		id:      id,
		pool:    pool,
		eval:    NewEvaluator(pool.params),
		history: NewHistory(),
	}
	w.cond = sync.NewCond(&w.mu)
	if id != 0 {
		go w.run()
	}
	return w
}

// run is the helper loop: park until signaled, search, park again.
func (w *Worker) run() {
	for {
		w.mu.Lock()
		for !w.searching && !w.exit {
			w.cond.Wait()
		}
		if w.exit {
			w.mu.Unlock()
			return
		}
		w.mu.Unlock()

		w.iterDeep()

		w.mu.Lock()
		w.searching = false
		w.cond.Broadcast()
		w.mu.Unlock()
	}
}

// startSearch hands a helper its root position and wakes it.
func (w *Worker) startSearch(pos *board.Position) {
	w.prepare(pos)
	w.mu.Lock()
	w.searching = true
	w.cond.Broadcast()
	w.mu.Unlock()
}

// waitDone blocks until the helper finished its search loop.
func (w *Worker) waitDone() {
	w.mu.Lock()
	for w.searching {
		w.cond.Wait()
	}
	w.mu.Unlock()
}

// prepare resets per-search state shared by master and helpers.
func (w *Worker) prepare(pos *board.Position) {
	w.pos = pos.Copy()
	w.nodes.Store(0)
	w.history.Decay()
	w.eval.SetContempt(w.pool.opts.Contempt)
	w.result = Result{}
	for i := range w.killers {
		w.killers[i][0] = board.NoMove
		w.killers[i][1] = board.NoMove
	}
}

func (w *Worker) useHistory() bool {
	return w.pool.opts.UseHistory
}

func (w *Worker) stopped() bool {
	return w.pool.stop.Load()
}

// tick counts a node and polls the shared stop state every 1024 nodes.
// Only the master converts elapsed time and the node budget into a stop.
func (w *Worker) tick() bool {
	n := w.nodes.Inc()
	if n&1023 == 0 {
		if w.id == 0 {
			w.pool.checkLimits()
		}
		return w.stopped()
	}
	return false
}

// quiescence resolves captures at the horizon. Out of check it stands pat
// on the light evaluation and prunes hopeless captures by a wide delta
// margin; in check it enumerates every move and detects mate.
func (w *Worker) quiescence(alpha, beta, ply int) int {
	if w.tick() || w.stopped() {
		return 0
	}
	pos := w.pos

	if ply >= MaxPly-1 {
		return w.eval.EvaluateFull(pos)
	}

	inCheck := pos.InCheck()

	if !inCheck {
		standPat := w.eval.EvaluateLight(pos)
		if standPat >= beta {
			return beta
		}
		const deltaMargin = 975
		if standPat < alpha-deltaMargin {
			return alpha
		}
		if standPat > alpha {
			alpha = standPat
		}
	}

	var mp *movePicker
	if inCheck {
		mp = newEvasionPicker(pos, w, ply)
	} else {
		mp = newCapturePicker(pos, w, true)
	}

	movesSearched := 0
	for m := mp.next(); m != board.NoMove; m = mp.next() {
		mover := pos.SideToMove()
		pos.MakeMove(m)
		if pos.IsAttacked(pos.KingSquare(mover), pos.SideToMove()) {
			pos.UnmakeMove(m)
			continue
		}
		movesSearched++
		w.pool.tt.Prefetch(pos.Key())

		score := -w.quiescence(-beta, -alpha, ply+1)
		pos.UnmakeMove(m)
		if w.stopped() {
			return 0
		}
		if score >= beta {
			return beta
		}
		if score > alpha {
			alpha = score
		}
	}

	if inCheck && movesSearched == 0 {
		return -MateScore + ply
	}
	return alpha
}

// negamax is the fail-soft alpha-beta kernel with principal variation
// search. excludedMove carves one move out of the tree for the singular
// extension test.
func (w *Worker) negamax(depth, alpha, beta, ply int, nullAllowed bool, prevMove, excludedMove board.Move) int {
	if w.tick() || w.stopped() {
		return 0
	}
	pos := w.pos
	opts := &w.pool.opts

	if ply >= MaxPly-1 {
		return w.eval.EvaluateFull(pos)
	}
	if ply > 0 && (pos.Rule50() >= 100 || pos.IsRepetition()) {
		return 0
	}

	originalAlpha := alpha

	// Mate-distance pruning.
	mateVal := MateScore - ply
	if alpha < -mateVal {
		alpha = -mateVal
	}
	if beta > mateVal-1 {
		beta = mateVal - 1
	}
	if alpha >= beta {
		return alpha
	}

	inCheck := pos.InCheck()
	isPV := beta-alpha > 1
	if inCheck {
		depth++
	}
	if depth <= 0 {
		return w.quiescence(alpha, beta, ply)
	}

	staticEval := w.eval.Evaluate(pos, alpha, beta)

	// Razoring: hopeless shallow nodes drop straight into quiescence.
	if !isPV && !inCheck && depth <= 2 {
		razorMargin := 150
		if depth == 2 {
			razorMargin = 250
		}
		if staticEval+razorMargin < alpha {
			if v := w.quiescence(alpha, beta, ply); v < alpha {
				return alpha
			}
		}
	}

	ttMove := board.NoMove
	tte, ttHit := w.pool.tt.Probe(pos.Key())
	if ttHit {
		ttMove = tte.Move
		if ttMove != board.NoMove && !board.IsPseudoLegal(pos, ttMove) {
			ttMove = board.NoMove
		}
		if int(tte.Depth) >= depth && excludedMove == board.NoMove {
			ttScore := scoreFromTT(int(tte.Score), ply)
			switch tte.Bound {
			case BoundExact:
				return ttScore
			case BoundUpper:
				if ttScore <= alpha {
					return alpha
				}
			case BoundLower:
				if ttScore >= beta {
					return ttScore
				}
			}
		}
	}

	// Internal iterative deepening seeds a TT move for ordering.
	if depth >= 5 && ttMove == board.NoMove {
		w.negamax(depth-2, alpha, beta, ply, false, prevMove, board.NoMove)
		if tte2, ok := w.pool.tt.Probe(pos.Key()); ok {
			tte = tte2
			ttHit = true
			ttMove = tte2.Move
			if ttMove != board.NoMove && !board.IsPseudoLegal(pos, ttMove) {
				ttMove = board.NoMove
			}
		}
	}

	// Singular extension: when every alternative fails well below the TT
	// score, the TT move is forced and deserves an extra ply.
	singularExt := 0
	if opts.UseSingular && depth >= 6 && ttMove != board.NoMove && excludedMove == board.NoMove &&
		ttHit && tte.Bound == BoundExact && int(tte.Depth) >= depth-1 {
		ttScore := scoreFromTT(int(tte.Score), ply)
		singularBeta := ttScore - 60
		altScore := w.negamax(depth-2, singularBeta-1, singularBeta, ply, false, prevMove, ttMove)
		if altScore < singularBeta {
			singularExt = 1
		}
	}

	if !inCheck {
		// Reverse futility pruning.
		if depth <= 3 && staticEval-120*depth >= beta {
			return staticEval
		}

		// ProbCut: a shallow search of winning captures clearing beta by a
		// margin proves the node cuts.
		if opts.UseProbCut && depth >= 5 && abs(beta) < MateScore-100 {
			const probMargin = 120
			var caps board.MoveList
			board.GenerateCaptures(pos, &caps)
			tried := 0
			for i := 0; i < caps.Len() && tried < 6; i++ {
				m := caps.Get(i)
				if SEE(pos, m) <= 0 {
					continue
				}
				mover := pos.SideToMove()
				pos.MakeMove(m)
				if pos.IsAttacked(pos.KingSquare(mover), pos.SideToMove()) {
					pos.UnmakeMove(m)
					continue
				}
				score := -w.negamax(depth-4, -beta-probMargin, -beta-probMargin+1, ply+1, false, board.NoMove, board.NoMove)
				pos.UnmakeMove(m)
				if score >= beta+probMargin {
					return beta + probMargin
				}
				tried++
			}
		}

		// Null-move pruning, with a verification search at depth >= 6.
		if opts.UseNullMove && nullAllowed && depth >= 3 && staticEval >= beta &&
			pos.NonPawnMaterial(pos.SideToMove()) >= 330 {
			reduction := 2
			if depth >= 8 {
				reduction = 3
			}
			pos.MakeNullMove()
			score := -w.negamax(depth-1-reduction, -beta, -beta+1, ply+1, false, board.NoMove, board.NoMove)
			pos.UnmakeNullMove()
			if w.stopped() {
				return 0
			}
			if score >= beta {
				if depth >= 6 {
					verify := w.negamax(depth-1, alpha, beta, ply, false, prevMove, board.NoMove)
					if verify >= beta {
						return beta
					}
				} else {
					return beta
				}
			}
		}
	}

	mp := newMovePicker(pos, w, ttMove, ply, prevMove)
	movesSearched := 0
	bestScore := -Infinity
	bestMove := board.NoMove
	var triedQuiets [256]board.Move
	triedQuietCount := 0

	for m := mp.next(); m != board.NoMove; m = mp.next() {
		if m == excludedMove {
			continue
		}

		isCap := m.IsCapture()
		isPromo := m.IsPromotion()
		isQuiet := !isCap && !isPromo

		if isQuiet && triedQuietCount < len(triedQuiets) {
			triedQuiets[triedQuietCount] = m
			triedQuietCount++
		}

		// Late-move pruning: enough quiets tried at shallow depth.
		if isQuiet && !inCheck && depth <= 5 && movesSearched >= lmpTable[depth] && !isPV {
			break
		}

		// Futility pruning.
		if isQuiet && !inCheck {
			if depth < 6 && staticEval+150*depth <= alpha {
				continue
			}
			if !isPV && depth <= 4 && staticEval+100*depth+50 <= alpha {
				continue
			}
		}

		// SEE pruning of losing captures at depths 4-5.
		seeScore := scoreGoodCaptureBase
		if isCap && !inCheck && !isPromo && depth <= 5 {
			seeScore = SEE(pos, m)
			if depth >= 4 && seeScore < (depth-1)*-50 {
				continue
			}
		}

		mover := pos.SideToMove()
		movedPT := pos.PieceAt(m.From()).Type()
		pos.MakeMove(m)
		if pos.IsAttacked(pos.KingSquare(mover), pos.SideToMove()) {
			pos.UnmakeMove(m)
			continue
		}

		givesCheck := pos.InCheck()
		if depth <= 3 && isCap && !isPromo && !inCheck && !givesCheck && seeScore < 0 {
			pos.UnmakeMove(m)
			continue
		}

		movesSearched++
		w.pool.tt.Prefetch(pos.Key())

		// Extensions: recapture, singular, 7th-rank push, promotion.
		ext := 0
		if prevMove != board.NoMove && m.To() == prevMove.To() && isCap {
			ext = 1
		}
		if m == ttMove {
			ext += singularExt
		}
		if ext == 0 && movedPT == board.Pawn {
			if !isPromo && m.To().RelativeRank(mover) == 6 {
				ext = 1
			}
			if isPromo {
				ext = 1
			}
		}

		var score int
		if movesSearched == 1 {
			score = -w.negamax(depth-1+ext, -beta, -alpha, ply+1, true, m, board.NoMove)
		} else {
			reduction := 0
			if depth >= 3 && !inCheck {
				reduction = lmrTable[min(depth, 63)][min(movesSearched, 63)]
				if isQuiet {
					reduction++
				}
				if ext > 0 || isCap || isPromo || givesCheck {
					reduction = 0
				}
				if reduction > depth-1 {
					reduction = depth - 1
				}
			}
			score = -w.negamax(depth-1-reduction+ext, -alpha-1, -alpha, ply+1, true, m, board.NoMove)
			if score > alpha && reduction > 0 {
				score = -w.negamax(depth-1+ext, -alpha-1, -alpha, ply+1, true, m, board.NoMove)
			}
			if score > alpha && score < beta {
				score = -w.negamax(depth-1+ext, -beta, -alpha, ply+1, true, m, board.NoMove)
			}
		}

		pos.UnmakeMove(m)
		if w.stopped() {
			return 0
		}

		if score > bestScore {
			bestScore = score
			bestMove = m
		}

		if score > alpha {
			alpha = score
			depthBonus := min(depth*depth, 400)

			if score < beta && isCap && ply < MaxPly {
				w.bumpCaptureHistory(m, movedPT, mover, depthBonus/2)
			}

			if alpha >= beta {
				if ply < MaxPly {
					if !isCap {
						if w.killers[ply][0] != m {
							w.killers[ply][1] = w.killers[ply][0]
							w.killers[ply][0] = m
						}
						if opts.UseHistory {
							w.history.UpdateMain(mover, movedPT, m.To(), depthBonus)
							if prevMove != board.NoMove {
								if prevPc := pos.PieceAt(prevMove.To()); prevPc != board.NoPiece {
									w.history.UpdateContinuation(mover, prevPc.Type(), prevMove.To(), movedPT, m.To(), depthBonus)
								}
								w.history.UpdateCounter(mover, prevMove, m)
							}
							// Moves tried before the cutoff earn a malus.
							for i := 0; i < triedQuietCount; i++ {
								bad := triedQuiets[i]
								if bad == m {
									continue
								}
								badPT := pos.PieceAt(bad.From()).Type()
								w.history.UpdateMain(mover, badPT, bad.To(), -depthBonus)
								if prevMove != board.NoMove {
									if prevPc := pos.PieceAt(prevMove.To()); prevPc != board.NoPiece {
										w.history.UpdateContinuation(mover, prevPc.Type(), prevMove.To(), badPT, bad.To(), -depthBonus)
									}
								}
							}
						}
					} else {
						w.bumpCaptureHistory(m, movedPT, mover, depthBonus)
					}
				}
				break
			}
		}
	}

	if movesSearched == 0 {
		if excludedMove != board.NoMove {
			// Everything was excluded; report a fail-low for the singular
			// test rather than a false mate.
			return alpha
		}
		if inCheck {
			return -MateScore + ply
		}
		return 0
	}

	bound := BoundExact
	switch {
	case bestScore <= originalAlpha:
		bound = BoundUpper
	case bestScore >= beta:
		bound = BoundLower
	}
	if excludedMove == board.NoMove {
		w.pool.tt.Store(pos.Key(), bestMove, scoreToTT(bestScore, ply), staticEval, depth, bound)
	}

	return bestScore
}

// bumpCaptureHistory credits the capture-history table for m. The position
// has been unmade, so the victim still sits on the destination square; en
// passant always means a pawn victim.
func (w *Worker) bumpCaptureHistory(m board.Move, movedPT board.PieceType, mover board.Color, bonus int) {
	victim := board.Pawn
	if !m.IsEnPassant() {
		if pc := w.pos.PieceAt(m.To()); pc != board.NoPiece {
			victim = pc.Type()
		} else {
			return
		}
	}
	w.history.UpdateCapture(mover, movedPT, m.To(), victim, bonus)
}
