// Package packed implements the binary training-record formats: the
// 32-byte V1 record and the header-framed V2 extension produced by datagen
// and consumed by the NNUE training tooling.
package packed

import (
	"encoding/binary"
	"fmt"

	"github.com/bastidangca/aether/internal/board"
)

// Record sizes in bytes.
const (
	RecordSizeV1      = 32
	RecordSizeV2      = 37
	RecordSizeV2NoPly = 35
)

const (
	sideToMoveBit = 0x80
	epMask        = 0x7F
)

// Record is one training position. All multi-byte fields are little-endian
// on disk. The V2 fields are zero for V1 records.
type Record struct {
	Occupancy uint64
	Pieces    [16]byte // one nibble per set occupancy bit, lsb-first
	StmEP     byte     // bit 7 side to move (1=black), bits 0-6 ep square (64=none)
	Halfmove  byte
	Fullmove  uint16
	Score     int16 // side-to-move relative centipawns, saturated at 2000
	WDL       byte  // 0=loss 1=draw 2=win for the side to move
	Result    byte  // same encoding, from the game outcome

	// V2 extension.
	Depth    byte
	BestMove uint16
	Ply      uint16
}

// encodePiece packs a piece into a nibble: (type+1) | color<<3.
func encodePiece(p board.Piece) byte {
	return byte(int(p.Type())+1) | byte(p.Color())<<3
}

// decodePiece is the inverse of encodePiece.
func decodePiece(nibble byte) (board.Piece, error) {
	pt := int(nibble&7) - 1
	if pt < 0 || pt > 5 {
		return board.NoPiece, fmt.Errorf("bad piece nibble %#x", nibble)
	}
	c := board.White
	if nibble&8 != 0 {
		c = board.Black
	}
	return board.NewPiece(board.PieceType(pt), c), nil
}

// encodeResult maps a White-relative game result onto the side to move.
func encodeResult(gameResult float32, stmIsBlack bool) byte {
	switch {
	case gameResult > 0.9:
		if stmIsBlack {
			return 0
		}
		return 2
	case gameResult < 0.1:
		if stmIsBlack {
			return 2
		}
		return 0
	}
	return 1
}

// Pack fills a record from a position and its search score. The result
// byte is provisional; SetResult rewrites it once the game finishes.
func Pack(pos *board.Position, score int16, wdl byte, gameResult float32) Record {
	var r Record
	r.Occupancy = uint64(pos.Occupied())

	idx := 0
	for occ := pos.Occupied(); occ != 0; idx++ {
		sq := occ.PopLSB()
		nibble := encodePiece(pos.PieceAt(sq))
		if idx&1 == 0 {
			r.Pieces[idx/2] = nibble
		} else {
			r.Pieces[idx/2] |= nibble << 4
		}
	}

	stmBit := byte(0)
	if pos.SideToMove() == board.Black {
		stmBit = sideToMoveBit
	}
	ep := byte(pos.EnPassant())
	r.StmEP = stmBit | ep&epMask

	r.Halfmove = byte(min(255, pos.Rule50()))
	r.Fullmove = uint16(min(65535, pos.FullmoveNumber()))
	r.Score = score
	r.WDL = wdl
	r.Result = encodeResult(gameResult, stmBit != 0)
	return r
}

// SetResult rewrites the result byte from the final game outcome.
func (r *Record) SetResult(gameResult float32) {
	r.Result = encodeResult(gameResult, r.StmEP&sideToMoveBit != 0)
}

// SideToMove decodes the side-to-move bit.
func (r *Record) SideToMove() board.Color {
	if r.StmEP&sideToMoveBit != 0 {
		return board.Black
	}
	return board.White
}

// EnPassant decodes the ep square, NoSquare if absent.
func (r *Record) EnPassant() board.Square {
	return board.Square(r.StmEP & epMask)
}

// MarshalV1 serializes the 32-byte V1 form.
func (r *Record) MarshalV1() [RecordSizeV1]byte {
	var out [RecordSizeV1]byte
	binary.LittleEndian.PutUint64(out[0:], r.Occupancy)
	copy(out[8:24], r.Pieces[:])
	out[24] = r.StmEP
	out[25] = r.Halfmove
	binary.LittleEndian.PutUint16(out[26:], r.Fullmove)
	binary.LittleEndian.PutUint16(out[28:], uint16(r.Score))
	out[30] = r.WDL
	out[31] = r.Result
	return out
}

// MarshalV2 serializes the V2 form, with or without the trailing ply.
func (r *Record) MarshalV2(hasPly bool) []byte {
	v1 := r.MarshalV1()
	out := make([]byte, 0, RecordSizeV2)
	out = append(out, v1[:]...)
	out = append(out, r.Depth)
	var mv [2]byte
	binary.LittleEndian.PutUint16(mv[:], r.BestMove)
	out = append(out, mv[:]...)
	if hasPly {
		var ply [2]byte
		binary.LittleEndian.PutUint16(ply[:], r.Ply)
		out = append(out, ply[:]...)
	}
	return out
}

// UnmarshalV1 parses a 32-byte V1 record.
func UnmarshalV1(buf []byte) (Record, error) {
	if len(buf) < RecordSizeV1 {
		return Record{}, fmt.Errorf("v1 record needs %d bytes, got %d", RecordSizeV1, len(buf))
	}
	var r Record
	r.Occupancy = binary.LittleEndian.Uint64(buf[0:])
	copy(r.Pieces[:], buf[8:24])
	r.StmEP = buf[24]
	r.Halfmove = buf[25]
	r.Fullmove = binary.LittleEndian.Uint16(buf[26:])
	r.Score = int16(binary.LittleEndian.Uint16(buf[28:]))
	r.WDL = buf[30]
	r.Result = buf[31]
	return r, nil
}

// UnmarshalV2 parses a V2 record with or without the ply field.
func UnmarshalV2(buf []byte, hasPly bool) (Record, error) {
	size := RecordSizeV2NoPly
	if hasPly {
		size = RecordSizeV2
	}
	if len(buf) < size {
		return Record{}, fmt.Errorf("v2 record needs %d bytes, got %d", size, len(buf))
	}
	r, err := UnmarshalV1(buf)
	if err != nil {
		return Record{}, err
	}
	r.Depth = buf[32]
	r.BestMove = binary.LittleEndian.Uint16(buf[33:])
	if hasPly {
		r.Ply = binary.LittleEndian.Uint16(buf[35:])
	}
	return r, nil
}

// Validate runs structural sanity checks used by pack-verify: nibbles must
// decode, each side needs exactly one king, and the ep square must be on
// the board or absent.
func (r *Record) Validate() error {
	occ := board.Bitboard(r.Occupancy)
	n := occ.Count()
	if n > 32 {
		return fmt.Errorf("occupancy has %d men", n)
	}

	kings := [2]int{}
	for i := 0; i < n; i++ {
		nibble := r.Pieces[i/2]
		if i&1 == 1 {
			nibble >>= 4
		}
		pc, err := decodePiece(nibble & 0xF)
		if err != nil {
			return err
		}
		if pc.Type() == board.King {
			kings[pc.Color()]++
		}
	}
	if kings[board.White] != 1 || kings[board.Black] != 1 {
		return fmt.Errorf("kings per side: white=%d black=%d", kings[board.White], kings[board.Black])
	}

	if ep := r.StmEP & epMask; ep > 64 {
		return fmt.Errorf("ep square %d out of range", ep)
	}
	if r.WDL > 2 || r.Result > 2 {
		return fmt.Errorf("wdl/result out of range: %d/%d", r.WDL, r.Result)
	}
	return nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
