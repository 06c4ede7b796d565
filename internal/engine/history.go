package engine

import "github.com/bastidangca/aether/internal/board"

// maxHistory bounds every history score; the gravity update keeps values
// inside [-maxHistory, maxHistory] without explicit clamping.
const maxHistory = 16384

// History holds one worker's move-ordering statistics. Tables are exclusive
// to their worker and never read by others. The continuation table is the
// big one, so History lives behind a pointer on the heap.
type History struct {
	// main[side][pieceType][to]
	main [2][6][64]int
	// capture[side][attackerType][to][victimType]
	capture [2][6][64][6]int
	// continuation[side][prevType][prevTo][pieceType][to]
	continuation [2][6][64][6][64]int16
	// counter[side][prevFrom<<6|prevTo]
	counter [2][4096]board.Move
}

// NewHistory returns zeroed tables.
func NewHistory() *History {
	return &History{}
}

// Clear zeroes everything.
func (h *History) Clear() {
	*h = History{}
}

// Decay scales every score by 3/4. Run once at the start of each search so
// stale statistics fade rather than vanish.
func (h *History) Decay() {
	for s := 0; s < 2; s++ {
		for pt := 0; pt < 6; pt++ {
			for to := 0; to < 64; to++ {
				h.main[s][pt][to] = h.main[s][pt][to] * 3 / 4
				for v := 0; v < 6; v++ {
					h.capture[s][pt][to][v] = h.capture[s][pt][to][v] * 3 / 4
				}
				for pt2 := 0; pt2 < 6; pt2++ {
					for to2 := 0; to2 < 64; to2++ {
						h.continuation[s][pt][to][pt2][to2] = int16(int(h.continuation[s][pt][to][pt2][to2]) * 3 / 4)
					}
				}
			}
		}
	}
}

// gravity applies the bounded history update.
func gravity(entry *int, bonus int) {
	*entry += bonus - *entry*abs(bonus)/maxHistory
}

// UpdateMain adjusts the butterfly table for a quiet move.
func (h *History) UpdateMain(side board.Color, pt board.PieceType, to board.Square, bonus int) {
	gravity(&h.main[side][pt][to], bonus)
}

// Main returns the butterfly score for a quiet move.
func (h *History) Main(side board.Color, pt board.PieceType, to board.Square) int {
	return h.main[side][pt][to]
}

// UpdateCapture adjusts the capture history table.
func (h *History) UpdateCapture(side board.Color, pt board.PieceType, to board.Square, victim board.PieceType, bonus int) {
	if victim >= board.King {
		return
	}
	gravity(&h.capture[side][pt][to][victim], bonus)
}

// Capture returns the capture history score.
func (h *History) Capture(side board.Color, pt board.PieceType, to board.Square, victim board.PieceType) int {
	if victim >= board.King {
		return 0
	}
	return h.capture[side][pt][to][victim]
}

// UpdateContinuation adjusts the continuation table for a move following
// the previous move's piece/destination.
func (h *History) UpdateContinuation(side board.Color, prevPT board.PieceType, prevTo board.Square, pt board.PieceType, to board.Square, bonus int) {
	e := &h.continuation[side][prevPT][prevTo][pt][to]
	v := int(*e)
	v += bonus - v*abs(bonus)/maxHistory
	*e = int16(v)
}

// Continuation returns the continuation score.
func (h *History) Continuation(side board.Color, prevPT board.PieceType, prevTo board.Square, pt board.PieceType, to board.Square) int {
	return int(h.continuation[side][prevPT][prevTo][pt][to])
}

// UpdateCounter records a refutation of the previous move.
func (h *History) UpdateCounter(side board.Color, prev board.Move, m board.Move) {
	if prev == board.NoMove {
		return
	}
	h.counter[side][int(prev.From())<<6|int(prev.To())] = m
}

// Counter returns the recorded refutation of prev, NoMove if none.
func (h *History) Counter(side board.Color, prev board.Move) board.Move {
	if prev == board.NoMove {
		return board.NoMove
	}
	return h.counter[side][int(prev.From())<<6|int(prev.To())]
}
