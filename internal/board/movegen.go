package board

// Pseudo-legal move generation. Moves may leave the own king in check;
// legality is established by making the move and testing the king square.
// Castling is the exception: its path and attack constraints are fully
// verified here, so generated castling moves are legal as long as the king
// was not in check (which generation also requires).

// GenerateAll emits every pseudo-legal move for the side to move.
func GenerateAll(p *Position, list *MoveList) {
	list.Clear()
	genPawnMoves(p, list, true, true)
	genPieceMoves(p, list, true, true)
	genCastling(p, list)
}

// GenerateCaptures emits captures, en passant and capturing promotions only;
// quiet promotion pushes are emitted by GenerateQuiets.
func GenerateCaptures(p *Position, list *MoveList) {
	list.Clear()
	genPawnMoves(p, list, false, true)
	genPieceMoves(p, list, false, true)
}

// GenerateQuiets emits non-captures, including castling and quiet pushes.
func GenerateQuiets(p *Position, list *MoveList) {
	list.Clear()
	genPawnMoves(p, list, true, false)
	genPieceMoves(p, list, true, false)
	genCastling(p, list)
}

// AppendPromotionPushes appends the quiet promotion pushes without
// clearing the list. The quiescence picker wants promotions alongside
// captures even though the capture/quiet split keeps them with the quiets.
func AppendPromotionPushes(p *Position, list *MoveList) {
	us := p.side
	pawns := p.Pieces(Pawn, us)
	empty := ^p.Occupied()

	var pushes Bitboard
	up := 8
	if us == White {
		pushes = pawns.North() & empty & Rank8
	} else {
		pushes = pawns.South() & empty & Rank1
		up = -8
	}
	for pushes != 0 {
		to := pushes.PopLSB()
		addPromotions(list, Square(int(to)-up), to, FlagPromo)
	}
}

// GenerateLegal emits every legal move for the side to move.
func GenerateLegal(p *Position, list *MoveList) {
	var pseudo MoveList
	GenerateAll(p, &pseudo)
	list.Clear()
	for i := 0; i < pseudo.Len(); i++ {
		if p.IsLegal(pseudo.Get(i)) {
			list.Add(pseudo.Get(i))
		}
	}
}

func genPawnMoves(p *Position, list *MoveList, quiets, captures bool) {
	us := p.side
	pawns := p.Pieces(Pawn, us)
	enemies := p.PiecesByColor(us.Other())
	empty := ^p.Occupied()

	up := 8
	promoFromRank := 6
	startRank := 1
	if us == Black {
		up = -8
		promoFromRank = 1
		startRank = 6
	}

	if quiets {
		var pushOne Bitboard
		if us == White {
			pushOne = pawns.North() & empty
		} else {
			pushOne = pawns.South() & empty
		}
		for b := pushOne; b != 0; {
			to := b.PopLSB()
			from := Square(int(to) - up)
			if from.Rank() == promoFromRank {
				addPromotions(list, from, to, FlagPromo)
			} else {
				list.Add(NewMove(from, to, FlagQuiet))
				if from.Rank() == startRank {
					to2 := Square(int(to) + up)
					if empty.Has(to2) {
						list.Add(NewMove(from, to2, FlagDoublePush))
					}
				}
			}
		}
	}

	if captures {
		genPawnCaps := func(attacks Bitboard, delta int) {
			for b := attacks & enemies; b != 0; {
				to := b.PopLSB()
				from := Square(int(to) - delta)
				if from.Rank() == promoFromRank {
					addPromotions(list, from, to, FlagPromoCapture)
				} else {
					list.Add(NewMove(from, to, FlagCapture))
				}
			}
			if p.epSquare != NoSquare && attacks.Has(p.epSquare) {
				from := Square(int(p.epSquare) - delta)
				list.Add(NewMove(from, p.epSquare, FlagEnPassant))
			}
		}
		if us == White {
			genPawnCaps(pawns.NorthWest(), 7)
			genPawnCaps(pawns.NorthEast(), 9)
		} else {
			genPawnCaps(pawns.SouthWest(), -9)
			genPawnCaps(pawns.SouthEast(), -7)
		}
	}
}

func addPromotions(list *MoveList, from, to Square, base int) {
	list.Add(NewMove(from, to, base|3)) // queen first
	list.Add(NewMove(from, to, base|2))
	list.Add(NewMove(from, to, base|1))
	list.Add(NewMove(from, to, base|0))
}

func genPieceMoves(p *Position, list *MoveList, quiets, captures bool) {
	us := p.side
	enemies := p.PiecesByColor(us.Other())
	occ := p.Occupied()

	for pt := Knight; pt <= King; pt++ {
		for pieces := p.Pieces(pt, us); pieces != 0; {
			from := pieces.PopLSB()
			attacks := Attacks(pt, from, occ, us)
			if captures {
				for b := attacks & enemies; b != 0; {
					list.Add(NewMove(from, b.PopLSB(), FlagCapture))
				}
			}
			if quiets {
				for b := attacks &^ occ; b != 0; {
					list.Add(NewMove(from, b.PopLSB(), FlagQuiet))
				}
			}
		}
	}
}

func genCastling(p *Position, list *MoveList) {
	if p.InCheck() {
		return
	}
	us := p.side
	rights := p.castling

	for side := 0; side < 2; side++ {
		if rights&(CastleWhiteKing<<(side+2*int(us))) == 0 {
			continue
		}
		if m, ok := castleMove(p, us, side); ok {
			list.Add(m)
		}
	}
}

// castleMove validates the stored-rook castling path: every square between
// king and rook empty (excluding both), every square the king crosses
// (destination included) empty except for the rook and unattacked, and the
// rook destination clear of third pieces.
func castleMove(p *Position, us Color, side int) (Move, bool) {
	rookFrom := p.castleRookFrom[us][side]
	if rookFrom == NoSquare || p.mailbox[rookFrom] != NewPiece(Rook, us) {
		return NoMove, false
	}
	kingFrom := p.KingSquare(us)
	if kingFrom.Rank() != rookFrom.Rank() {
		return NoMove, false
	}
	kingTo := CastleKingTo(us, side)
	rookTo := castleRookTo(us, side)
	occ := p.Occupied()
	them := us.Other()
	rank := kingFrom.Rank()

	step := 1
	if rookFrom.File() < kingFrom.File() {
		step = -1
	}
	for f := kingFrom.File() + step; f != rookFrom.File(); f += step {
		if occ.Has(NewSquare(f, rank)) {
			return NoMove, false
		}
	}

	if kingFrom != kingTo {
		kstep := 1
		if kingTo.File() < kingFrom.File() {
			kstep = -1
		}
		for f := kingFrom.File() + kstep; ; f += kstep {
			sq := NewSquare(f, rank)
			if sq != rookFrom && occ.Has(sq) {
				return NoMove, false
			}
			if p.IsAttacked(sq, them) {
				return NoMove, false
			}
			if sq == kingTo {
				break
			}
		}
	}

	if rookTo != rookFrom && rookTo != kingFrom && occ.Has(rookTo) {
		return NoMove, false
	}

	flag := FlagCastleKing
	if side == 1 {
		flag = FlagCastleQueen
	}
	return NewMove(kingFrom, kingTo, flag), true
}

// IsPseudoLegal is the authoritative validator for moves arriving from
// outside the current generation (TT moves, killers, counter-moves). It
// replays every generation constraint and returns true iff the move would
// be emitted by GenerateAll.
func IsPseudoLegal(p *Position, m Move) bool {
	if m == NoMove {
		return false
	}
	from, to, flag := m.From(), m.To(), m.Flag()
	pc := p.mailbox[from]
	if pc == NoPiece || pc.Color() != p.side {
		return false
	}
	pt := pc.Type()
	target := p.mailbox[to]

	if flag == FlagCastleKing || flag == FlagCastleQueen {
		if pt != King || p.InCheck() {
			return false
		}
		side := 0
		if flag == FlagCastleQueen {
			side = 1
		}
		if p.castling&(CastleWhiteKing<<(side+2*int(p.side))) == 0 {
			return false
		}
		want, ok := castleMove(p, p.side, side)
		return ok && want == m
	}

	if target != NoPiece && target.Color() == p.side {
		return false
	}

	if pt == Pawn {
		up := 8
		promoFromRank := 6
		startRank := 1
		if p.side == Black {
			up = -8
			promoFromRank = 1
			startRank = 6
		}
		att := pawnAttackTable[p.side][from]

		switch {
		case flag == FlagQuiet:
			return int(to) == int(from)+up && target == NoPiece && from.Rank() != promoFromRank
		case flag == FlagDoublePush:
			mid := Square(int(from) + up)
			return from.Rank() == startRank && int(to) == int(from)+2*up &&
				target == NoPiece && p.mailbox[mid] == NoPiece
		case flag == FlagCapture:
			return att.Has(to) && target != NoPiece && from.Rank() != promoFromRank
		case flag == FlagEnPassant:
			return to == p.epSquare && att.Has(to) && target == NoPiece
		case flag >= FlagPromo && flag < FlagPromoCapture:
			return from.Rank() == promoFromRank && int(to) == int(from)+up && target == NoPiece
		case flag >= FlagPromoCapture:
			return from.Rank() == promoFromRank && att.Has(to) && target != NoPiece
		}
		return false
	}

	// For the remaining piece moves the flag must agree with the target.
	if target != NoPiece {
		if flag != FlagCapture {
			return false
		}
	} else if flag != FlagQuiet {
		return false
	}
	return Attacks(pt, from, p.Occupied(), p.side).Has(to)
}

// HasLegalMoves reports whether the side to move has any legal move.
func HasLegalMoves(p *Position) bool {
	var list MoveList
	GenerateAll(p, &list)
	for i := 0; i < list.Len(); i++ {
		if p.IsLegal(list.Get(i)) {
			return true
		}
	}
	return false
}

// Perft counts leaf nodes of the legal move tree to the given depth.
func Perft(p *Position, depth int) uint64 {
	if depth == 0 {
		return 1
	}
	var list MoveList
	GenerateAll(p, &list)

	var nodes uint64
	mover := p.side
	for i := 0; i < list.Len(); i++ {
		m := list.Get(i)
		p.MakeMove(m)
		if !p.IsAttacked(p.KingSquare(mover), p.side) {
			nodes += Perft(p, depth-1)
		}
		p.UnmakeMove(m)
	}
	return nodes
}

// PerftDivide returns the per-root-move perft counts at depth.
func PerftDivide(p *Position, depth int) map[Move]uint64 {
	out := make(map[Move]uint64)
	var list MoveList
	GenerateAll(p, &list)

	mover := p.side
	for i := 0; i < list.Len(); i++ {
		m := list.Get(i)
		p.MakeMove(m)
		if !p.IsAttacked(p.KingSquare(mover), p.side) {
			out[m] = Perft(p, depth-1)
		}
		p.UnmakeMove(m)
	}
	return out
}
