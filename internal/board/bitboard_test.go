package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBitboardBasics(t *testing.T) {
	var b Bitboard
	b = b.With(E4)
	assert.True(t, b.Has(E4))
	assert.Equal(t, 1, b.Count())
	assert.Equal(t, E4, b.LSB())

	b = b.With(A1).With(H8)
	assert.Equal(t, 3, b.Count())
	assert.Equal(t, A1, b.LSB())
	assert.True(t, b.MoreThanOne())

	popped := b.PopLSB()
	assert.Equal(t, A1, popped)
	assert.Equal(t, 2, b.Count())

	b = b.Without(H8)
	assert.False(t, b.Has(H8))
}

func TestBitboardShifts(t *testing.T) {
	e4 := SquareBB(E4)
	assert.Equal(t, SquareBB(E5), e4.North())
	assert.Equal(t, SquareBB(E3), e4.South())
	assert.Equal(t, SquareBB(F4), e4.East())
	assert.Equal(t, SquareBB(D4), e4.West())
	assert.Equal(t, SquareBB(F5), e4.NorthEast())
	assert.Equal(t, SquareBB(D5), e4.NorthWest())

	// File edges must not wrap.
	assert.Equal(t, Bitboard(0), SquareBB(H4).East())
	assert.Equal(t, Bitboard(0), SquareBB(A4).West())
	assert.Equal(t, Bitboard(0), SquareBB(A4).NorthWest())
	assert.Equal(t, Bitboard(0), SquareBB(H4).SouthEast())
}

func TestBitboardFills(t *testing.T) {
	b := SquareBB(E4)
	assert.Equal(t, FileE&^(Rank1|Rank2|Rank3), b.NorthFill())
	assert.Equal(t, FileE&^(Rank5|Rank6|Rank7|Rank8), b.SouthFill())
}

// TestMagicAgreesWithRayWalk verifies the magic tables against the slow
// reference for every square over pseudo-random occupancies.
func TestMagicAgreesWithRayWalk(t *testing.T) {
	rng := zobristRNG{state: 0xDADB0D}
	for sq := A1; sq <= H8; sq++ {
		assert.Equal(t, SlowBishopAttacks(sq, 0), BishopAttacks(sq, 0))
		assert.Equal(t, SlowRookAttacks(sq, 0), RookAttacks(sq, 0))

		for trial := 0; trial < 128; trial++ {
			occ := Bitboard(rng.next() & rng.next())
			if SlowBishopAttacks(sq, occ) != BishopAttacks(sq, occ) {
				t.Fatalf("bishop mismatch on %v occ %x", sq, occ)
			}
			if SlowRookAttacks(sq, occ) != RookAttacks(sq, occ) {
				t.Fatalf("rook mismatch on %v occ %x", sq, occ)
			}
		}
	}
}

func TestBetweenAndLine(t *testing.T) {
	assert.Equal(t, SquareBB(B2)|SquareBB(C3), Between(A1, D4))
	assert.Equal(t, SquareBB(E2)|SquareBB(E3), Between(E1, E4))
	assert.Equal(t, Bitboard(0), Between(A1, B3))

	assert.True(t, Line(A1, H8).Has(D4))
	assert.True(t, Line(A4, H4).Has(C4))
	assert.Equal(t, Bitboard(0), Line(A1, C2))
}

func TestKnightAndKingAttacks(t *testing.T) {
	assert.Equal(t, 8, KnightAttacks(E4).Count())
	assert.Equal(t, 2, KnightAttacks(A1).Count())
	assert.Equal(t, 8, KingAttacks(E4).Count())
	assert.Equal(t, 3, KingAttacks(A1).Count())

	assert.Equal(t, SquareBB(D5)|SquareBB(F5), PawnAttacks(E4, White))
	assert.Equal(t, SquareBB(D3)|SquareBB(F3), PawnAttacks(E4, Black))
	assert.Equal(t, SquareBB(B5), PawnAttacks(A4, White))
}
