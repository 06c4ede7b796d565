package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFENRoundTrip(t *testing.T) {
	fens := []string{
		StartFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
		"rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8",
		"4k3/8/8/8/8/8/8/4K3 b - - 12 40",
		"rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1",
	}
	for _, fen := range fens {
		pos := NewPosition()
		require.NoError(t, pos.Set(fen))
		assert.Equal(t, fen, pos.FEN())
	}
}

func TestSetRejectsMalformedFEN(t *testing.T) {
	bad := []string{
		"",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP w KQkq - 0 1",      // 7 ranks
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR x KQkq -", // bad side
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq z9 0 1",
		"8/8/8/8/8/8/8/8 w - - 0 1", // no kings
	}
	for _, fen := range bad {
		pos := NewPosition()
		err := pos.Set(fen)
		require.Error(t, err, "fen %q", fen)
		// The failed Set leaves a defined empty state behind.
		assert.Equal(t, Bitboard(0), pos.Occupied())
		assert.Equal(t, NoSquare, pos.EnPassant())
		assert.Equal(t, 0, pos.CastlingRights())
	}
}

// TestMakeUnmakeIdentity plays a scripted game with captures and castling on
// both sides, asserting every make/unmake pair restores all state including
// both Zobrist keys and the stack length. En passant and promotion are
// covered by TestMakeUnmakeEnPassantAndPromotion.
func TestMakeUnmakeIdentity(t *testing.T) {
	pos := NewPosition()

	moves := []string{"e2e4", "d7d5", "e4d5", "g8f6", "g1f3", "f6d5", "f1c4", "e7e6", "e1g1", "f8e7", "d2d4", "e8g8"}
	for _, uciMove := range moves {
		m := ParseUCIMove(pos, uciMove)
		require.NotEqual(t, NoMove, m, "move %s", uciMove)

		before := pos.Copy()
		stackLen := pos.HistoryLen()

		pos.MakeMove(m)
		pos.UnmakeMove(m)

		assert.Equal(t, before.FEN(), pos.FEN(), "after %s", uciMove)
		assert.Equal(t, before.Key(), pos.Key(), "key after %s", uciMove)
		assert.Equal(t, before.PawnKey(), pos.PawnKey(), "pawn key after %s", uciMove)
		assert.Equal(t, stackLen, pos.HistoryLen())

		pos.MakeMove(m)
	}
}

func TestMakeUnmakeEnPassantAndPromotion(t *testing.T) {
	pos := NewPosition()
	require.NoError(t, pos.Set("rnbqkbnr/ppp1p1pp/8/3pPp2/8/8/PPPP1PPP/RNBQKBNR w KQkq f6 0 3"))

	ep := ParseUCIMove(pos, "e5f6")
	require.NotEqual(t, NoMove, ep)
	require.True(t, ep.IsEnPassant())
	before := pos.FEN()
	pos.MakeMove(ep)
	assert.Equal(t, NoPiece, pos.PieceAt(F5), "captured pawn removed")
	pos.UnmakeMove(ep)
	assert.Equal(t, before, pos.FEN())

	require.NoError(t, pos.Set("8/P6k/8/8/8/8/8/K7 w - - 0 1"))
	promo := ParseUCIMove(pos, "a7a8q")
	require.NotEqual(t, NoMove, promo)
	require.True(t, promo.IsPromotion())
	beforeKey := pos.Key()
	beforePawnKey := pos.PawnKey()
	pos.MakeMove(promo)
	assert.Equal(t, WhiteQueen, pos.PieceAt(A8))
	assert.Equal(t, Bitboard(0), pos.PiecesByType(Pawn))
	pos.UnmakeMove(promo)
	assert.Equal(t, beforeKey, pos.Key())
	assert.Equal(t, beforePawnKey, pos.PawnKey())
	assert.Equal(t, WhitePawn, pos.PieceAt(A7))
}

// TestKeyDeterminism: identical placement, side, rights and ep square give
// identical keys regardless of the move order that reached them.
func TestKeyDeterminism(t *testing.T) {
	a := NewPosition()
	for _, mv := range []string{"g1f3", "g8f6", "b1c3", "b8c6"} {
		a.MakeMove(ParseUCIMove(a, mv))
	}

	b := NewPosition()
	for _, mv := range []string{"b1c3", "b8c6", "g1f3", "g8f6"} {
		b.MakeMove(ParseUCIMove(b, mv))
	}

	assert.Equal(t, a.Key(), b.Key())
	assert.Equal(t, a.PawnKey(), b.PawnKey())

	// And the incremental key matches a fresh FEN parse.
	c := NewPosition()
	require.NoError(t, c.Set(a.FEN()))
	assert.Equal(t, a.Key(), c.Key())
}

func TestNullMove(t *testing.T) {
	pos := NewPosition()
	require.NoError(t, pos.Set("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"))

	key := pos.Key()
	rule50 := pos.Rule50()

	pos.MakeNullMove()
	assert.Equal(t, White, pos.SideToMove())
	assert.Equal(t, NoSquare, pos.EnPassant(), "null move clears ep")
	// Null move increments the 50-move counter (source behavior).
	assert.Equal(t, rule50+1, pos.Rule50())
	assert.NotEqual(t, key, pos.Key())

	pos.UnmakeNullMove()
	assert.Equal(t, key, pos.Key())
	assert.Equal(t, rule50, pos.Rule50())
	assert.Equal(t, E3, pos.EnPassant())
}

func TestRepetition(t *testing.T) {
	pos := NewPosition()
	shuffle := []string{"g1f3", "g8f6", "f3g1", "f6g8"}
	for _, mv := range shuffle {
		pos.MakeMove(ParseUCIMove(pos, mv))
	}
	// Back to the start position: first recurrence counts.
	assert.True(t, pos.IsRepetition())

	// An irreversible move invalidates older entries.
	pos.MakeMove(ParseUCIMove(pos, "e2e4"))
	assert.False(t, pos.IsRepetition())
}

func TestIsAttackedAndInCheck(t *testing.T) {
	pos := NewPosition()
	require.NoError(t, pos.Set("4k3/8/8/8/8/8/4r3/4K3 w - - 0 1"))
	assert.True(t, pos.InCheck())
	assert.True(t, pos.IsAttacked(E1, Black))
	assert.False(t, pos.IsAttacked(A8, Black))

	require.NoError(t, pos.Set("4k3/8/8/8/8/8/8/4K3 w - - 0 1"))
	assert.False(t, pos.InCheck())
}

func TestCastlingRightsRevocation(t *testing.T) {
	pos := NewPosition()
	require.NoError(t, pos.Set("r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1"))

	// Rook move revokes its own right only.
	m := ParseUCIMove(pos, "h1g1")
	pos.MakeMove(m)
	assert.Equal(t, CastleWhiteQueen|CastleBlackKing|CastleBlackQueen, pos.CastlingRights())
	pos.UnmakeMove(m)
	assert.Equal(t, CastleWhiteKing|CastleWhiteQueen|CastleBlackKing|CastleBlackQueen, pos.CastlingRights())

	// King move revokes both.
	m = ParseUCIMove(pos, "e1d1")
	pos.MakeMove(m)
	assert.Equal(t, CastleBlackKing|CastleBlackQueen, pos.CastlingRights())
	pos.UnmakeMove(m)

	// Capturing a rook on its origin square revokes the victim's right.
	require.NoError(t, pos.Set("r3k2r/8/8/8/8/6n1/8/R3K2R b KQkq - 0 1"))
	m = ParseUCIMove(pos, "g3h1")
	require.NotEqual(t, NoMove, m)
	pos.MakeMove(m)
	assert.Equal(t, 0, pos.CastlingRights()&CastleWhiteKing)
}

func TestCastlingExecution(t *testing.T) {
	pos := NewPosition()
	require.NoError(t, pos.Set("r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1"))

	oo := ParseUCIMove(pos, "e1g1")
	require.NotEqual(t, NoMove, oo)
	require.True(t, oo.IsCastle())
	pos.MakeMove(oo)
	assert.Equal(t, WhiteKing, pos.PieceAt(G1))
	assert.Equal(t, WhiteRook, pos.PieceAt(F1))
	assert.Equal(t, NoPiece, pos.PieceAt(E1))
	assert.Equal(t, NoPiece, pos.PieceAt(H1))
	pos.UnmakeMove(oo)
	assert.Equal(t, WhiteKing, pos.PieceAt(E1))
	assert.Equal(t, WhiteRook, pos.PieceAt(H1))

	ooo := ParseUCIMove(pos, "e1c1")
	require.NotEqual(t, NoMove, ooo)
	pos.MakeMove(ooo)
	assert.Equal(t, WhiteKing, pos.PieceAt(C1))
	assert.Equal(t, WhiteRook, pos.PieceAt(D1))
	pos.UnmakeMove(ooo)
}
