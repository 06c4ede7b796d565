package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Published perft values for the standard test suite.
var perftCases = []struct {
	fen    string
	counts []uint64 // depth 1..n
}{
	{StartFEN, []uint64{20, 400, 8902, 197281, 4865609}},
	{"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		[]uint64{48, 2039, 97862, 4085603}},
	{"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
		[]uint64{14, 191, 2812, 43238, 674624}},
	{"r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1",
		[]uint64{6, 264, 9467, 422333}},
	{"rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8",
		[]uint64{44, 1486, 62379, 2103487}},
	{"r4rk1/1pp1qppp/p1np1n2/2b1p1B1/2B1P1b1/P1NP1N2/1PP1QPPP/R4RK1 w - - 0 10",
		[]uint64{46, 2079, 89890, 3894594}},
}

func TestPerftSuite(t *testing.T) {
	for _, tc := range perftCases {
		pos := NewPosition()
		require.NoError(t, pos.Set(tc.fen))
		for depth, want := range tc.counts {
			got := Perft(pos, depth+1)
			assert.Equal(t, want, got, "fen %s depth %d", tc.fen, depth+1)
		}
	}
}

func TestPerftStartposDeep(t *testing.T) {
	if testing.Short() {
		t.Skip("deep perft skipped in short mode")
	}
	pos := NewPosition()
	assert.Equal(t, uint64(119060324), Perft(pos, 6))
}

// TestPseudoLegalRoundTrip: every generated move passes the validator, the
// generator emits no duplicates, and the capture/quiet split partitions
// full generation.
func TestPseudoLegalRoundTrip(t *testing.T) {
	for _, tc := range perftCases {
		pos := NewPosition()
		require.NoError(t, pos.Set(tc.fen))

		var all, caps, quiets MoveList
		GenerateAll(pos, &all)
		GenerateCaptures(pos, &caps)
		GenerateQuiets(pos, &quiets)

		seen := make(map[Move]bool, all.Len())
		for i := 0; i < all.Len(); i++ {
			m := all.Get(i)
			assert.False(t, seen[m], "duplicate move %v in %s", m, tc.fen)
			seen[m] = true
			assert.True(t, IsPseudoLegal(pos, m), "generated move %v fails validator in %s", m, tc.fen)
		}

		assert.Equal(t, all.Len(), caps.Len()+quiets.Len(), "split mismatch in %s", tc.fen)
		for i := 0; i < caps.Len(); i++ {
			assert.True(t, seen[caps.Get(i)])
		}
		for i := 0; i < quiets.Len(); i++ {
			assert.True(t, seen[quiets.Get(i)])
		}
	}
}

func TestIsPseudoLegalRejectsForeignMoves(t *testing.T) {
	pos := NewPosition()

	assert.False(t, IsPseudoLegal(pos, NoMove))
	// Knight move with a capture flag onto an empty square.
	assert.False(t, IsPseudoLegal(pos, NewMove(G1, F3, FlagCapture)))
	// Pawn push two squares with a quiet flag.
	assert.False(t, IsPseudoLegal(pos, NewMove(E2, E4, FlagQuiet)))
	// Moving the opponent's piece.
	assert.False(t, IsPseudoLegal(pos, NewMove(E7, E6, FlagQuiet)))
	// From an empty square.
	assert.False(t, IsPseudoLegal(pos, NewMove(E4, E5, FlagQuiet)))
	// Castling without the path being checked against another position.
	assert.False(t, IsPseudoLegal(pos, NewMove(E1, G1, FlagCastleKing)))

	// The same encodings are accepted where they belong.
	assert.True(t, IsPseudoLegal(pos, NewMove(E2, E4, FlagDoublePush)))
	assert.True(t, IsPseudoLegal(pos, NewMove(G1, F3, FlagQuiet)))
}

func TestCastlingGeneration(t *testing.T) {
	pos := NewPosition()

	// No castling through occupied squares in the start position.
	var list MoveList
	GenerateAll(pos, &list)
	for i := 0; i < list.Len(); i++ {
		assert.False(t, list.Get(i).IsCastle())
	}

	// Both sides available.
	require.NoError(t, pos.Set("r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1"))
	GenerateAll(pos, &list)
	castles := 0
	for i := 0; i < list.Len(); i++ {
		if list.Get(i).IsCastle() {
			castles++
		}
	}
	assert.Equal(t, 2, castles)

	// King in check: no castling generated.
	require.NoError(t, pos.Set("r3k2r/8/8/8/8/8/4r3/R3K2R w KQkq - 0 1"))
	GenerateAll(pos, &list)
	for i := 0; i < list.Len(); i++ {
		assert.False(t, list.Get(i).IsCastle())
	}

	// King path attacked: only the safe side is generated.
	require.NoError(t, pos.Set("r3k2r/8/8/8/8/8/5r2/R3K2R w KQkq - 0 1"))
	GenerateAll(pos, &list)
	for i := 0; i < list.Len(); i++ {
		m := list.Get(i)
		if m.IsCastle() {
			assert.Equal(t, C1, m.To(), "only queen side castling is legal")
		}
	}
}

func TestPromotionExpansion(t *testing.T) {
	pos := NewPosition()
	require.NoError(t, pos.Set("8/P6k/8/8/8/8/8/K7 w - - 0 1"))

	var list MoveList
	GenerateAll(pos, &list)
	promos := map[PieceType]bool{}
	for i := 0; i < list.Len(); i++ {
		m := list.Get(i)
		if m.IsPromotion() {
			promos[m.PromotionType()] = true
		}
	}
	assert.Len(t, promos, 4, "four distinct promotion pieces")
}

func TestHasLegalMoves(t *testing.T) {
	pos := NewPosition()
	assert.True(t, HasLegalMoves(pos))

	// Stalemate.
	require.NoError(t, pos.Set("7k/5Q2/6K1/8/8/8/8/8 b - - 0 1"))
	assert.False(t, HasLegalMoves(pos))
	assert.False(t, pos.InCheck())

	// Smothered mate.
	require.NoError(t, pos.Set("6rk/5Npp/8/8/8/8/8/6K1 b - - 0 1"))
	assert.True(t, pos.InCheck())
	assert.False(t, HasLegalMoves(pos))
}
