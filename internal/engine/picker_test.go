package engine

import (
	"context"
	"testing"

	"github.com/bastidangca/aether/internal/board"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pickerWorker(t *testing.T) *Worker {
	t.Helper()
	opts := DefaultOptions()
	opts.HashMB = 1
	p := NewPool(context.Background(), opts)
	t.Cleanup(p.Close)
	return p.master
}

// drain pulls every move the picker yields.
func drain(mp *movePicker) []board.Move {
	var out []board.Move
	for m := mp.next(); m != board.NoMove; m = mp.next() {
		out = append(out, m)
	}
	return out
}

// TestPickerYieldsEachMoveOnce: the staged picker covers exactly the
// pseudo-legal move set with no repeats, TT move first.
func TestPickerYieldsEachMoveOnce(t *testing.T) {
	fens := []string{
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"r4rk1/1pp1qppp/p1np1n2/2b1p1B1/2B1P1b1/P1NP1N2/1PP1QPPP/R4RK1 w - - 0 10",
		"rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8",
	}
	for _, fen := range fens {
		w := pickerWorker(t)
		pos := mustPos(t, fen)
		w.pos = pos

		var all board.MoveList
		board.GenerateAll(pos, &all)

		ttMove := all.Get(0)
		mp := newMovePicker(pos, w, ttMove, 0, board.NoMove)
		yielded := drain(mp)

		seen := make(map[board.Move]bool)
		for _, m := range yielded {
			assert.False(t, seen[m], "move %v yielded twice in %s", m, fen)
			seen[m] = true
		}
		assert.Equal(t, all.Len(), len(yielded), "coverage in %s", fen)
		assert.Equal(t, ttMove, yielded[0], "TT move first in %s", fen)
	}
}

func TestPickerSkipsBogusTTMove(t *testing.T) {
	w := pickerWorker(t)
	pos := board.NewPosition()
	w.pos = pos

	// A TT move that is not pseudo-legal here must never surface.
	bogus := board.NewMove(board.E7, board.E5, board.FlagQuiet)
	mp := newMovePicker(pos, w, bogus, 0, board.NoMove)
	for _, m := range drain(mp) {
		assert.NotEqual(t, bogus, m)
	}
}

func TestPickerGoodCapturesBeforeQuiets(t *testing.T) {
	w := pickerWorker(t)
	// exd5 is an even trade after Qxd5 (SEE 0, still a good capture) and
	// White has plenty of quiets.
	pos := mustPos(t, "rnbqkbnr/ppp1pppp/8/3p4/4P3/8/PPPP1PPP/RNBQKBNR w KQkq - 0 2")
	w.pos = pos

	mp := newMovePicker(pos, w, board.NoMove, 0, board.NoMove)
	yielded := drain(mp)
	require.NotEmpty(t, yielded)
	assert.True(t, yielded[0].IsCapture(), "winning capture leads: got %v", yielded[0])
}

func TestPickerKillerOrdering(t *testing.T) {
	w := pickerWorker(t)
	pos := board.NewPosition()
	w.pos = pos

	killer := board.NewMove(board.B1, board.C3, board.FlagQuiet)
	w.killers[3][0] = killer

	mp := newMovePicker(pos, w, board.NoMove, 3, board.NoMove)
	yielded := drain(mp)

	// No captures in the start position, so the killer comes first.
	require.NotEmpty(t, yielded)
	assert.Equal(t, killer, yielded[0])
	// And exactly once.
	count := 0
	for _, m := range yielded {
		if m == killer {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestCapturePickerOnlyCaptures(t *testing.T) {
	w := pickerWorker(t)
	pos := mustPos(t, "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1")
	w.pos = pos

	mp := newCapturePicker(pos, w, false)
	yielded := drain(mp)
	require.NotEmpty(t, yielded)
	for _, m := range yielded {
		assert.True(t, m.IsCapture() || m.IsPromotion(), "non-capture %v from capture picker", m)
	}

	// skipBad drops the losing captures only.
	mpSkip := newCapturePicker(pos, w, true)
	skipped := drain(mpSkip)
	assert.LessOrEqual(t, len(skipped), len(yielded))
	for _, m := range skipped {
		if !m.IsPromotion() {
			assert.GreaterOrEqual(t, SEE(pos, m), 0, "losing capture %v not skipped", m)
		}
	}
}

func TestHistoryGravityBounds(t *testing.T) {
	h := NewHistory()
	for i := 0; i < 1000; i++ {
		h.UpdateMain(board.White, board.Knight, board.F3, 400)
	}
	assert.LessOrEqual(t, h.Main(board.White, board.Knight, board.F3), maxHistory)

	for i := 0; i < 1000; i++ {
		h.UpdateMain(board.White, board.Knight, board.F3, -400)
	}
	assert.GreaterOrEqual(t, h.Main(board.White, board.Knight, board.F3), -maxHistory)
}

func TestHistoryDecay(t *testing.T) {
	h := NewHistory()
	h.UpdateMain(board.White, board.Knight, board.F3, 1000)
	before := h.Main(board.White, board.Knight, board.F3)
	h.Decay()
	after := h.Main(board.White, board.Knight, board.F3)
	assert.Equal(t, before*3/4, after)

	h.UpdateCounter(board.White, board.NewMove(board.E7, board.E5, board.FlagDoublePush), board.NewMove(board.G1, board.F3, board.FlagQuiet))
	assert.NotEqual(t, board.NoMove, h.Counter(board.White, board.NewMove(board.E7, board.E5, board.FlagDoublePush)))
	h.Clear()
	assert.Equal(t, board.NoMove, h.Counter(board.White, board.NewMove(board.E7, board.E5, board.FlagDoublePush)))
}
