package engine

import "github.com/bastidangca/aether/internal/board"

// Move picker stages. Each move is yielded at most once: later stages skip
// anything an earlier stage already returned.
const (
	stageTTMove = iota
	stageGenCaptures
	stageGoodCaptures
	stageKillers
	stageGenQuiets
	stageQuiets
	stageBadCaptures
	stageFinished
)

const (
	scoreGoodCaptureBase = 200000
	scoreBadCaptureBase  = -200000
	counterMoveBonus     = 2000
)

// movePicker yields moves in staged order: TT move, winning captures by
// SEE+MVV-LVA+capture-history, killers, quiets by history, losing captures.
// In quiescence mode only the capture stages run; evasion mode runs the
// full pipeline without a TT move.
type movePicker struct {
	pos    *board.Position
	w      *Worker
	list   board.MoveList
	bad    board.MoveList
	scores [256]int
	badSc  [256]int
	isBad  [256]bool

	current    int
	badCurrent int

	ttMove   board.Move
	prevMove board.Move
	killers  [2]board.Move
	ply      int
	stage    int

	capturesOnly bool
	skipBad      bool
	killerIdx    int
}

// newMovePicker builds the main-search picker.
func newMovePicker(pos *board.Position, w *Worker, ttMove board.Move, ply int, prevMove board.Move) *movePicker {
	mp := &movePicker{
		pos:      pos,
		w:        w,
		ttMove:   ttMove,
		prevMove: prevMove,
		ply:      ply,
		stage:    stageTTMove,
	}
	if ply < MaxPly {
		mp.killers = w.killers[ply]
	}
	return mp
}

// newCapturePicker builds the quiescence picker: captures and promotions
// only, optionally dropping losing captures.
func newCapturePicker(pos *board.Position, w *Worker, skipBad bool) *movePicker {
	return &movePicker{
		pos:          pos,
		w:            w,
		stage:        stageGenCaptures,
		capturesOnly: true,
		skipBad:      skipBad,
	}
}

// newEvasionPicker enumerates every move, for in-check quiescence nodes.
func newEvasionPicker(pos *board.Position, w *Worker, ply int) *movePicker {
	mp := &movePicker{
		pos:   pos,
		w:     w,
		ply:   ply,
		stage: stageGenCaptures,
	}
	if ply < MaxPly {
		mp.killers = w.killers[ply]
	}
	return mp
}

func (mp *movePicker) scoreCaptures() {
	pos := mp.pos
	stm := pos.SideToMove()
	for i := 0; i < mp.list.Len(); i++ {
		m := mp.list.Get(i)
		flag := m.Flag()

		victimVal := 0
		victimPT := board.NoPieceType
		if flag == board.FlagEnPassant {
			victimVal = 1
			victimPT = board.Pawn
		} else if victim := pos.PieceAt(m.To()); victim != board.NoPiece {
			victimVal = mvvWeight(victim.Type())
			victimPT = victim.Type()
		}
		if flag&board.FlagPromo != 0 {
			victimVal += mvvWeight(m.PromotionType())
		}

		attackerVal := 1
		attackerPT := board.Pawn
		if attacker := pos.PieceAt(m.From()); attacker != board.NoPiece {
			attackerVal = mvvWeight(attacker.Type())
			attackerPT = attacker.Type()
		}

		see := SEE(pos, m)
		mvvLva := victimVal*10 - attackerVal

		capHist := 0
		if victimPT != board.NoPieceType {
			capHist = mp.w.history.Capture(stm, attackerPT, m.To(), victimPT)
		}

		if see >= 0 {
			mp.scores[i] = scoreGoodCaptureBase + mvvLva + see + capHist
			mp.isBad[i] = false
		} else {
			mp.scores[i] = scoreBadCaptureBase + mvvLva + see + capHist
			mp.isBad[i] = true
		}
	}
}

func mvvWeight(pt board.PieceType) int {
	switch pt {
	case board.Pawn:
		return 1
	case board.Knight, board.Bishop:
		return 3
	case board.Rook:
		return 5
	case board.Queen:
		return 9
	}
	return 0
}

func (mp *movePicker) scoreQuiets() {
	pos := mp.pos
	stm := pos.SideToMove()

	prevTo := board.NoSquare
	prevPT := board.NoPieceType
	if mp.prevMove != board.NoMove {
		prevTo = mp.prevMove.To()
		if pc := pos.PieceAt(prevTo); pc != board.NoPiece {
			prevPT = pc.Type()
		}
	}
	counter := mp.w.history.Counter(stm, mp.prevMove)

	for i := 0; i < mp.list.Len(); i++ {
		m := mp.list.Get(i)
		score := 0
		if mp.w.useHistory() {
			pt := pos.PieceAt(m.From()).Type()
			score = mp.w.history.Main(stm, pt, m.To())
			if prevPT != board.NoPieceType {
				score += mp.w.history.Continuation(stm, prevPT, prevTo, pt, m.To())
			}
			if m == counter {
				score += counterMoveBonus
			}
		}
		mp.scores[i] = score
	}
}

// pickBest selection-sorts one step over the remaining prefix.
func (mp *movePicker) pickBest() board.Move {
	if mp.current >= mp.list.Len() {
		return board.NoMove
	}
	best := mp.current
	for i := mp.current + 1; i < mp.list.Len(); i++ {
		if mp.scores[i] > mp.scores[best] {
			best = i
		}
	}
	mp.list.Swap(mp.current, best)
	mp.scores[mp.current], mp.scores[best] = mp.scores[best], mp.scores[mp.current]
	m := mp.list.Get(mp.current)
	mp.current++
	return m
}

func (mp *movePicker) pickBestBad() board.Move {
	if mp.badCurrent >= mp.bad.Len() {
		return board.NoMove
	}
	best := mp.badCurrent
	for i := mp.badCurrent + 1; i < mp.bad.Len(); i++ {
		if mp.badSc[i] > mp.badSc[best] {
			best = i
		}
	}
	mp.bad.Swap(mp.badCurrent, best)
	mp.badSc[mp.badCurrent], mp.badSc[best] = mp.badSc[best], mp.badSc[mp.badCurrent]
	m := mp.bad.Get(mp.badCurrent)
	mp.badCurrent++
	return m
}

// next yields the next move, NoMove when exhausted.
func (mp *movePicker) next() board.Move {
	for {
		switch mp.stage {
		case stageTTMove:
			mp.stage = stageGenCaptures
			if mp.ttMove != board.NoMove && board.IsPseudoLegal(mp.pos, mp.ttMove) {
				return mp.ttMove
			}

		case stageGenCaptures:
			board.GenerateCaptures(mp.pos, &mp.list)
			if mp.capturesOnly {
				// Quiescence also resolves quiet promotions.
				board.AppendPromotionPushes(mp.pos, &mp.list)
			}
			mp.scoreCaptures()
			mp.bad.Clear()
			good := 0
			for i := 0; i < mp.list.Len(); i++ {
				if mp.isBad[i] {
					mp.bad.Add(mp.list.Get(i))
					mp.badSc[mp.bad.Len()-1] = mp.scores[i]
				} else {
					mp.list.Set(good, mp.list.Get(i))
					mp.scores[good] = mp.scores[i]
					good++
				}
			}
			mp.list.Truncate(good)
			mp.current = 0
			mp.stage = stageGoodCaptures

		case stageGoodCaptures:
			m := mp.pickBest()
			if m == board.NoMove {
				if mp.capturesOnly {
					mp.stage = stageBadCaptures
				} else {
					mp.stage = stageKillers
				}
				continue
			}
			if m == mp.ttMove {
				continue
			}
			return m

		case stageKillers:
			if mp.killerIdx < 2 {
				m := mp.killers[mp.killerIdx]
				mp.killerIdx++
				if m != board.NoMove && m != mp.ttMove && !m.IsCapture() &&
					board.IsPseudoLegal(mp.pos, m) {
					return m
				}
				continue
			}
			mp.stage = stageGenQuiets

		case stageGenQuiets:
			board.GenerateQuiets(mp.pos, &mp.list)
			mp.scoreQuiets()
			mp.current = 0
			mp.stage = stageQuiets

		case stageQuiets:
			m := mp.pickBest()
			if m == board.NoMove {
				mp.stage = stageBadCaptures
				continue
			}
			if m == mp.ttMove || m == mp.killers[0] || m == mp.killers[1] {
				continue
			}
			return m

		case stageBadCaptures:
			if mp.skipBad {
				mp.stage = stageFinished
				continue
			}
			m := mp.pickBestBad()
			if m == board.NoMove {
				mp.stage = stageFinished
				continue
			}
			if m == mp.ttMove || m == mp.killers[0] || m == mp.killers[1] {
				continue
			}
			return m

		case stageFinished:
			return board.NoMove
		}
	}
}
