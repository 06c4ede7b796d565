package engine

import "github.com/bastidangca/aether/internal/board"

// seeValues are the exchange values used by SEE and move ordering.
var seeValues = [7]int{100, 320, 330, 500, 900, 20000, 0}

// PieceValue returns the centipawn exchange value of a piece type.
func PieceValue(pt board.PieceType) int {
	return seeValues[pt]
}

// attackersTo collects every piece of both colors attacking sq under the
// given occupancy.
func attackersTo(p *board.Position, sq board.Square, occ board.Bitboard) board.Bitboard {
	queens := p.PiecesByType(board.Queen)
	return board.PawnAttacks(sq, board.Black)&p.Pieces(board.Pawn, board.White) |
		board.PawnAttacks(sq, board.White)&p.Pieces(board.Pawn, board.Black) |
		board.KnightAttacks(sq)&p.PiecesByType(board.Knight) |
		board.KingAttacks(sq)&p.PiecesByType(board.King) |
		board.RookAttacks(sq, occ)&(p.PiecesByType(board.Rook)|queens) |
		board.BishopAttacks(sq, occ)&(p.PiecesByType(board.Bishop)|queens)
}

// leastValuableAttacker picks the cheapest attacker of side among the given
// attackers, returning its square and exchange value, or NoSquare.
func leastValuableAttacker(p *board.Position, attackers board.Bitboard, side board.Color) (board.Square, int) {
	own := attackers & p.PiecesByColor(side)
	if own == 0 {
		return board.NoSquare, 0
	}
	for pt := board.Pawn; pt <= board.King; pt++ {
		if b := own & p.PiecesByType(pt); b != 0 {
			return b.LSB(), seeValues[pt]
		}
	}
	return board.NoSquare, 0
}

// SEE returns the static exchange value of a capture: the minimax outcome
// of the swap sequence on the destination square, each side always
// recapturing with its least valuable attacker. Sliders removed from the
// occupancy reveal x-ray attackers through re-queried rook and bishop rays.
// A king capture ends the sequence since the king cannot recapture into
// attack. Promotions on the initial move substitute the promoted piece for
// the attacker and add the promotion gain to the victim.
func SEE(p *board.Position, m board.Move) int {
	from, to, flag := m.From(), m.To(), m.Flag()

	var gain [64]int
	d := 0

	victimValue := 0
	if flag == board.FlagEnPassant {
		victimValue = seeValues[board.Pawn]
	} else if victim := p.PieceAt(to); victim != board.NoPiece {
		victimValue = seeValues[victim.Type()]
	}

	attackerValue := 0
	if attacker := p.PieceAt(from); attacker != board.NoPiece {
		attackerValue = seeValues[attacker.Type()]
	}
	if flag&board.FlagPromo != 0 {
		attackerValue = seeValues[m.PromotionType()]
		victimValue += attackerValue - seeValues[board.Pawn]
	}

	gain[d] = victimValue
	d++

	occ := p.Occupied().Without(from)
	attackers := attackersTo(p, to, occ).Without(from)

	rooks := p.PiecesByType(board.Rook) | p.PiecesByType(board.Queen)
	bishops := p.PiecesByType(board.Bishop) | p.PiecesByType(board.Queen)
	attackers |= board.RookAttacks(to, occ) & rooks & occ
	attackers |= board.BishopAttacks(to, occ) & bishops & occ

	current := attackerValue
	side := p.SideToMove().Other()

	for d < 63 {
		sq, value := leastValuableAttacker(p, attackers, side)
		if sq == board.NoSquare {
			break
		}

		gain[d] = current - gain[d-1]
		if max(-gain[d-1], gain[d]) < 0 {
			break
		}
		d++
		current = value

		occ = occ.Without(sq)
		attackers = attackers.Without(sq)
		attackers |= board.RookAttacks(to, occ) & rooks & occ
		attackers |= board.BishopAttacks(to, occ) & bishops & occ

		side = side.Other()
	}

	for d--; d > 0; d-- {
		if -gain[d] < gain[d-1] {
			gain[d-1] = -gain[d]
		}
	}
	return gain[0]
}
