package board

import "fmt"

// Move packs a move into 16 bits: bits 0-5 the to-square, bits 6-11 the
// from-square, bits 12-15 the flag. Zero doubles as the null move.
type Move uint16

// Move flags. Promotions add the promoted piece (0=N 1=B 2=R 3=Q) to the
// base flag, so bit 3 marks any promotion and bit 2 any capture.
const (
	FlagQuiet        = 0
	FlagDoublePush   = 1
	FlagCastleKing   = 2
	FlagCastleQueen  = 3
	FlagCapture      = 4
	FlagEnPassant    = 5
	FlagPromo        = 8
	FlagPromoCapture = 12
)

// NoMove is the null/invalid move.
const NoMove Move = 0

// NewMove builds a move from its components.
func NewMove(from, to Square, flag int) Move {
	return Move(uint16(to) | uint16(from)<<6 | uint16(flag)<<12)
}

// From returns the origin square.
func (m Move) From() Square {
	return Square(m >> 6 & 0x3F)
}

// To returns the destination square.
func (m Move) To() Square {
	return Square(m & 0x3F)
}

// Flag returns the 4-bit move flag.
func (m Move) Flag() int {
	return int(m >> 12)
}

// IsCapture reports whether the move takes a piece, including en passant and
// promotion-captures.
func (m Move) IsCapture() bool {
	f := m.Flag()
	return f&FlagCapture != 0 || f == FlagEnPassant
}

// IsEnPassant reports whether the move is an en-passant capture.
func (m Move) IsEnPassant() bool {
	return m.Flag() == FlagEnPassant
}

// IsPromotion reports whether the move promotes a pawn.
func (m Move) IsPromotion() bool {
	return m.Flag()&FlagPromo != 0
}

// IsCastle reports whether the move is either castling move.
func (m Move) IsCastle() bool {
	f := m.Flag()
	return f == FlagCastleKing || f == FlagCastleQueen
}

// IsQuiet reports whether the move is neither a capture nor a promotion.
func (m Move) IsQuiet() bool {
	return !m.IsCapture() && !m.IsPromotion()
}

// PromotionType returns the promoted piece type. Valid only for promotions.
func (m Move) PromotionType() PieceType {
	return Knight + PieceType(m.Flag()&3)
}

// String returns the UCI form, e.g. "e2e4" or "e7e8q"; "0000" for NoMove.
func (m Move) String() string {
	if m == NoMove {
		return "0000"
	}
	s := m.From().String() + m.To().String()
	if m.IsPromotion() {
		s += string("nbrq"[m.Flag()&3])
	}
	return s
}

// ParseUCIMove matches a UCI move token against the legal moves of pos.
// Returns NoMove if the token is malformed or names no legal move.
func ParseUCIMove(pos *Position, s string) Move {
	if len(s) < 4 || len(s) > 5 {
		return NoMove
	}
	from, err := ParseSquare(s[0:2])
	if err != nil {
		return NoMove
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return NoMove
	}
	var promo byte
	if len(s) == 5 {
		promo = s[4] | 0x20
		switch promo {
		case 'n', 'b', 'r', 'q':
		default:
			return NoMove
		}
	}

	var list MoveList
	GenerateAll(pos, &list)
	for i := 0; i < list.Len(); i++ {
		m := list.Get(i)
		if m.From() != from || m.To() != to || !pos.IsLegal(m) {
			continue
		}
		if m.IsPromotion() {
			if promo == "nbrq"[m.Flag()&3] {
				return m
			}
			continue
		}
		return m
	}
	return NoMove
}

// MoveList is a fixed-capacity move buffer, sized so full generation from any
// legal position fits without allocation.
type MoveList struct {
	moves [256]Move
	count int
}

// Add appends a move. Overflow past capacity is dropped.
func (ml *MoveList) Add(m Move) {
	if ml.count < len(ml.moves) {
		ml.moves[ml.count] = m
		ml.count++
	}
}

// Len returns the number of moves.
func (ml *MoveList) Len() int {
	return ml.count
}

// Get returns the move at index i.
func (ml *MoveList) Get(i int) Move {
	return ml.moves[i]
}

// Set overwrites the move at index i.
func (ml *MoveList) Set(i int, m Move) {
	ml.moves[i] = m
}

// Swap exchanges two entries.
func (ml *MoveList) Swap(i, j int) {
	ml.moves[i], ml.moves[j] = ml.moves[j], ml.moves[i]
}

// Clear empties the list.
func (ml *MoveList) Clear() {
	ml.count = 0
}

// Truncate shrinks the list to n entries. No-op if already shorter.
func (ml *MoveList) Truncate(n int) {
	if n >= 0 && n < ml.count {
		ml.count = n
	}
}

// Contains reports whether m is in the list.
func (ml *MoveList) Contains(m Move) bool {
	for i := 0; i < ml.count; i++ {
		if ml.moves[i] == m {
			return true
		}
	}
	return false
}

func (ml *MoveList) String() string {
	s := ""
	for i := 0; i < ml.count; i++ {
		s += fmt.Sprintf("%v ", ml.moves[i])
	}
	return s
}
