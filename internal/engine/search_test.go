package engine

import (
	"context"
	"testing"

	"github.com/bastidangca/aether/internal/board"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T) *Pool {
	t.Helper()
	opts := DefaultOptions()
	opts.HashMB = 16
	p := NewPool(context.Background(), opts)
	t.Cleanup(p.Close)
	return p
}

func searchFEN(t *testing.T, fen string, limits Limits) Result {
	t.Helper()
	limits.Silent = true
	p := newTestPool(t)
	pos := board.NewPosition()
	require.NoError(t, pos.Set(fen))
	return p.Search(pos, limits)
}

// Scenario: position startpos + go depth 1 emits a legal developing move.
func TestSearchStartposDepth1(t *testing.T) {
	res := searchFEN(t, board.StartFEN, Limits{Depth: 1})
	require.NotEqual(t, board.NoMove, res.BestMove)

	pos := board.NewPosition()
	assert.True(t, pos.IsLegal(res.BestMove))
	fromRank := res.BestMove.From().Rank()
	assert.True(t, fromRank == 0 || fromRank == 1, "pawn push or knight move")
}

func TestSearchFindsMateInOne(t *testing.T) {
	// Back-rank mate: Ra1-a8#.
	res := searchFEN(t, "6k1/5ppp/8/8/8/8/5PPP/R5K1 w - - 0 1", Limits{Depth: 4})
	assert.Equal(t, "a1a8", res.BestMove.String())
	assert.True(t, IsMateScore(res.Score))
	assert.Equal(t, 1, MateDistance(res.Score))
}

// Scenario: KRK is a forced mate.
func TestSearchKRKMate(t *testing.T) {
	if testing.Short() {
		t.Skip("mating search skipped in short mode")
	}
	res := searchFEN(t, "8/8/8/8/8/8/4k3/4K2R w K - 0 1", Limits{Depth: 20, Nodes: 20_000_000})
	assert.True(t, IsMateScore(res.Score), "score %d", res.Score)
	assert.GreaterOrEqual(t, MateDistance(res.Score), 1)
}

// Scenario: KPK with a protected passer is winning by at least a piece.
func TestSearchKPKWinning(t *testing.T) {
	if testing.Short() {
		t.Skip("long search skipped in short mode")
	}
	res := searchFEN(t, "3k4/8/3K4/3P4/8/8/8/8 w - - 0 1", Limits{Depth: 18, Nodes: 10_000_000})
	assert.GreaterOrEqual(t, res.Score, 500, "winning pawn endgame")
}

func TestSearchStalemateIsZero(t *testing.T) {
	res := searchFEN(t, "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1", Limits{Depth: 3})
	assert.Equal(t, board.NoMove, res.BestMove)
	assert.Equal(t, 0, res.Score)
}

func TestSearchMatedPosition(t *testing.T) {
	// Smothered mate, black to move with no moves: bestmove 0000.
	res := searchFEN(t, "6rk/5Npp/8/8/8/8/8/6K1 b - - 0 1", Limits{Depth: 3})
	assert.Equal(t, board.NoMove, res.BestMove)
}

// TestSearchDepthZeroMatchesQuiescence: at depth <= 0 the kernel is the
// quiescence search.
func TestSearchDepthZeroMatchesQuiescence(t *testing.T) {
	p := newTestPool(t)
	fens := []string{
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"r4rk1/1pp1qppp/p1np1n2/2b1p1B1/2B1P1b1/P1NP1N2/1PP1QPPP/R4RK1 w - - 0 10",
	}
	for _, fen := range fens {
		pos := board.NewPosition()
		require.NoError(t, pos.Set(fen))

		p.limits = Limits{Silent: true}
		p.stop.Store(false)
		p.allocatedMS = 0
		p.nodesLimit = 0

		w := p.master
		w.prepare(pos)
		a := w.negamax(0, -Infinity, Infinity, 2, true, board.NoMove, board.NoMove)

		w.prepare(pos)
		b := w.quiescence(-Infinity, Infinity, 2)

		assert.Equal(t, b, a, "fen %s", fen)
	}
}

func TestSearchRepetitionIsDraw(t *testing.T) {
	p := newTestPool(t)
	pos := board.NewPosition()
	// Shuffle knights back to the start position once.
	for _, mv := range []string{"g1f3", "g8f6", "f3g1", "f6g8"} {
		pos.MakeMove(board.ParseUCIMove(pos, mv))
	}
	require.True(t, pos.IsRepetition())

	p.limits = Limits{Silent: true}
	p.stop.Store(false)
	w := p.master
	w.prepare(pos)
	// At any non-root ply the repeated position scores zero.
	assert.Equal(t, 0, w.negamax(4, -Infinity, Infinity, 1, true, board.NoMove, board.NoMove))
}

func TestSearchRespectsNodeLimit(t *testing.T) {
	res := searchFEN(t, board.StartFEN, Limits{Nodes: 5000})
	require.NotEqual(t, board.NoMove, res.BestMove)

	pos := board.NewPosition()
	assert.True(t, pos.IsLegal(res.BestMove))
}

func TestSearchStopKeepsCompletedResult(t *testing.T) {
	p := newTestPool(t)
	pos := board.NewPosition()

	// The search runs to its depth limit and the pool then raises the stop
	// flag; the result keeps the completed iteration's legal move and depth.
	res := p.Search(pos, Limits{Depth: 3, Silent: true})
	require.NotEqual(t, board.NoMove, res.BestMove)
	assert.True(t, pos.IsLegal(res.BestMove))
	assert.Equal(t, 3, res.Depth)
}

func TestSearchMultiThreaded(t *testing.T) {
	opts := DefaultOptions()
	opts.HashMB = 16
	opts.Threads = 4
	p := NewPool(context.Background(), opts)
	defer p.Close()

	pos := board.NewPosition()
	require.NoError(t, pos.Set("r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1"))
	res := p.Search(pos, Limits{Depth: 7, Silent: true})

	require.NotEqual(t, board.NoMove, res.BestMove)
	assert.True(t, pos.IsLegal(res.BestMove))

	// A second search on the same pool reuses the parked helpers.
	res2 := p.Search(pos, Limits{Depth: 5, Silent: true})
	require.NotEqual(t, board.NoMove, res2.BestMove)
}

func TestSearchAvoidsHangingQueen(t *testing.T) {
	// Queen attacked by a pawn; any sane depth finds the retreat or better.
	res := searchFEN(t, "rnb1kbnr/pppp1ppp/8/4p3/4P1q1/5N2/PPPP1PPP/RNBQKB1R w KQkq - 2 3", Limits{Depth: 6})
	require.NotEqual(t, board.NoMove, res.BestMove)
	pos := board.NewPosition()
	require.NoError(t, pos.Set("rnb1kbnr/pppp1ppp/8/4p3/4P1q1/5N2/PPPP1PPP/RNBQKB1R w KQkq - 2 3"))
	assert.True(t, pos.IsLegal(res.BestMove))
	// Material is equal and the queen sortie is harmless; the score must
	// not claim a serious disadvantage for White.
	assert.Greater(t, res.Score, -300)
}
