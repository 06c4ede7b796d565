package board

import (
	"fmt"
	"strconv"
	"strings"
)

// StartFEN is the standard starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// SetStartpos resets to the standard starting position.
func (p *Position) SetStartpos() {
	_ = p.Set(StartFEN)
}

// clear resets to the defined empty state: no pieces, White to move, no
// rights, no ep square. Set leaves this state behind on a parse error.
func (p *Position) clear() {
	chess960 := p.chess960
	*p = Position{
		epSquare: NoSquare,
		chess960: chess960,
		history:  make([]StateInfo, 0, historyCapacity),
	}
	for sq := range p.mailbox {
		p.mailbox[sq] = NoPiece
	}
	p.castleRookFrom = [2][2]Square{{NoSquare, NoSquare}, {NoSquare, NoSquare}}
	p.key ^= zobristCastle[0]
	p.key ^= zobristEnPassant[NoSquare]
}

// Set initializes the position from a FEN string. The rule50 and fullmove
// fields are optional. On error the position is left empty.
func (p *Position) Set(fen string) error {
	p.clear()

	fields := strings.Fields(fen)
	if len(fields) < 4 {
		err := fmt.Errorf("fen %q: need at least 4 fields, got %d", fen, len(fields))
		p.clear()
		return err
	}

	if err := p.setPlacement(fields[0]); err != nil {
		p.clear()
		return fmt.Errorf("fen %q: %w", fen, err)
	}

	switch fields[1] {
	case "w":
	case "b":
		p.side = Black
		p.key ^= zobristSide
	default:
		p.clear()
		return fmt.Errorf("fen %q: bad side to move %q", fen, fields[1])
	}

	if err := p.setCastling(fields[2]); err != nil {
		p.clear()
		return fmt.Errorf("fen %q: %w", fen, err)
	}

	if fields[3] != "-" {
		sq, err := ParseSquare(fields[3])
		if err != nil {
			p.clear()
			return fmt.Errorf("fen %q: bad en passant square %q", fen, fields[3])
		}
		p.key ^= zobristEnPassant[p.epSquare]
		p.epSquare = sq
		p.key ^= zobristEnPassant[p.epSquare]
	}

	fullmove := 1
	if len(fields) > 4 {
		n, err := strconv.Atoi(fields[4])
		if err != nil || n < 0 {
			p.clear()
			return fmt.Errorf("fen %q: bad halfmove clock %q", fen, fields[4])
		}
		p.rule50 = n
	}
	if len(fields) > 5 {
		n, err := strconv.Atoi(fields[5])
		if err != nil || n < 1 {
			p.clear()
			return fmt.Errorf("fen %q: bad fullmove number %q", fen, fields[5])
		}
		fullmove = n
	}
	p.halfmoves = (fullmove-1)*2 + int(p.side)

	if p.Pieces(King, White).Count() != 1 || p.Pieces(King, Black).Count() != 1 {
		p.clear()
		return fmt.Errorf("fen %q: each side needs exactly one king", fen)
	}
	return nil
}

func (p *Position) setPlacement(placement string) error {
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return fmt.Errorf("placement needs 8 ranks, got %d", len(ranks))
	}
	for i, rankStr := range ranks {
		rank := 7 - i
		file := 0
		for j := 0; j < len(rankStr); j++ {
			c := rankStr[j]
			if c >= '1' && c <= '8' {
				file += int(c - '0')
				continue
			}
			pc := PieceFromChar(c)
			if pc == NoPiece || file > 7 {
				return fmt.Errorf("bad placement rank %d", rank+1)
			}
			p.putPiece(pc, NewSquare(file, rank))
			file++
		}
		if file != 8 {
			return fmt.Errorf("rank %d covers %d files", rank+1, file)
		}
	}
	return nil
}

// setCastling accepts KQkq and, for Chess960 X-FEN, rook file letters A-H.
// The rook origin squares are recorded either way so castling logic never
// assumes corner files.
func (p *Position) setCastling(castling string) error {
	p.key ^= zobristCastle[p.castling]
	defer func() {
		p.key ^= zobristCastle[p.castling]
	}()

	if castling == "-" {
		return nil
	}
	for i := 0; i < len(castling); i++ {
		c := castling[i]
		color := White
		if c >= 'a' && c <= 'z' {
			color = Black
			c -= 'a' - 'A'
		}
		ksq := p.KingSquare(color)
		if p.Pieces(King, color) == 0 {
			return fmt.Errorf("castling rights without a king")
		}

		var rookFrom Square
		var side int
		switch {
		case c == 'K':
			rookFrom = p.outermostRook(color, ksq, 1)
			side = 0
		case c == 'Q':
			rookFrom = p.outermostRook(color, ksq, -1)
			side = 1
		case c >= 'A' && c <= 'H':
			rank := 0
			if color == Black {
				rank = 7
			}
			rookFrom = NewSquare(int(c-'A'), rank)
			side = 0
			if rookFrom < ksq {
				side = 1
			}
		default:
			return fmt.Errorf("bad castling flag %q", string(castling[i]))
		}
		if !rookFrom.IsValid() {
			return fmt.Errorf("castling flag %q without a rook", string(castling[i]))
		}

		p.castleRookFrom[color][side] = rookFrom
		// Bits are laid out WK WQ BK BQ, so the right is side + 2*color.
		p.castling |= CastleWhiteKing << (side + 2*int(color))
	}
	return nil
}

// outermostRook scans from the king toward the board edge in direction dir
// and returns the last own rook found, NoSquare if none.
func (p *Position) outermostRook(c Color, ksq Square, dir int) Square {
	rank := ksq.Rank()
	found := NoSquare
	for f := ksq.File() + dir; f >= 0 && f <= 7; f += dir {
		sq := NewSquare(f, rank)
		if p.mailbox[sq] == NewPiece(Rook, c) {
			found = sq
		}
	}
	return found
}

// FEN returns the FEN string of the position.
func (p *Position) FEN() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			pc := p.mailbox[NewSquare(file, rank)]
			if pc == NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			sb.WriteString(pc.String())
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}

	sb.WriteByte(' ')
	if p.side == White {
		sb.WriteByte('w')
	} else {
		sb.WriteByte('b')
	}

	sb.WriteByte(' ')
	if p.castling == 0 {
		sb.WriteByte('-')
	} else {
		if p.castling&CastleWhiteKing != 0 {
			sb.WriteByte('K')
		}
		if p.castling&CastleWhiteQueen != 0 {
			sb.WriteByte('Q')
		}
		if p.castling&CastleBlackKing != 0 {
			sb.WriteByte('k')
		}
		if p.castling&CastleBlackQueen != 0 {
			sb.WriteByte('q')
		}
	}

	sb.WriteByte(' ')
	sb.WriteString(p.epSquare.String())
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(p.rule50))
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(p.FullmoveNumber()))
	return sb.String()
}
