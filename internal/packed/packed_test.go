package packed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bastidangca/aether/internal/board"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackStartpos(t *testing.T) {
	pos := board.NewPosition()
	r := Pack(pos, 25, 1, 0.5)

	assert.Equal(t, uint64(pos.Occupied()), r.Occupancy)
	assert.Equal(t, board.White, r.SideToMove())
	assert.Equal(t, board.NoSquare, r.EnPassant())
	assert.Equal(t, byte(0), r.Halfmove)
	assert.Equal(t, uint16(1), r.Fullmove)
	assert.Equal(t, int16(25), r.Score)
	assert.Equal(t, byte(1), r.WDL)
	assert.Equal(t, byte(1), r.Result)
	require.NoError(t, r.Validate())

	// First occupied square is a1: a white rook, nibble (3+1)|0<<3 = 4.
	assert.Equal(t, byte(4), r.Pieces[0]&0xF)
}

func TestPackSideAndEP(t *testing.T) {
	pos := board.NewPosition()
	require.NoError(t, pos.Set("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"))
	r := Pack(pos, -42, 0, 0.0)

	assert.Equal(t, board.Black, r.SideToMove())
	assert.Equal(t, board.E3, r.EnPassant())
	// Black to move and Black won: win for the side to move.
	assert.Equal(t, byte(2), r.Result) // game result 0.0 = black wins; stm black
}

func TestSetResult(t *testing.T) {
	pos := board.NewPosition()
	r := Pack(pos, 0, 1, 0.5)
	assert.Equal(t, byte(1), r.Result)

	r.SetResult(1.0) // white wins, white to move
	assert.Equal(t, byte(2), r.Result)
	r.SetResult(0.0)
	assert.Equal(t, byte(0), r.Result)
}

func TestMarshalRoundTripV1(t *testing.T) {
	pos := board.NewPosition()
	require.NoError(t, pos.Set("r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 3 9"))
	r := Pack(pos, 137, 2, 1.0)

	buf := r.MarshalV1()
	assert.Len(t, buf[:], RecordSizeV1)

	back, err := UnmarshalV1(buf[:])
	require.NoError(t, err)
	assert.Equal(t, r, back)
}

func TestMarshalRoundTripV2(t *testing.T) {
	pos := board.NewPosition()
	r := Pack(pos, -500, 0, 0.0)
	r.Depth = 14
	r.BestMove = uint16(board.NewMove(board.E2, board.E4, board.FlagDoublePush))
	r.Ply = 31

	full := r.MarshalV2(true)
	assert.Len(t, full, RecordSizeV2)
	back, err := UnmarshalV2(full, true)
	require.NoError(t, err)
	assert.Equal(t, r, back)

	noPly := r.MarshalV2(false)
	assert.Len(t, noPly, RecordSizeV2NoPly)
	back2, err := UnmarshalV2(noPly, false)
	require.NoError(t, err)
	assert.Equal(t, uint16(0), back2.Ply)
	assert.Equal(t, r.BestMove, back2.BestMove)
}

func TestHeaderRoundTrip(t *testing.T) {
	h := NewHeader(FlagHasPly)
	assert.True(t, h.HasPly())
	assert.Equal(t, RecordSizeV2, h.RecordSize())

	var buf [HeaderSize]byte
	buf[0], buf[1], buf[2], buf[3] = 'A', 'E', 'T', 'H'
	buf[4] = VersionV2
	buf[5] = FlagHasPly
	buf[6] = EndianLittle

	parsed, ok := ReadHeader(buf[:])
	require.True(t, ok)
	assert.Equal(t, h, parsed)

	_, ok = ReadHeader([]byte("NOPE1234"))
	assert.False(t, ok)
}

func TestDetectReadInfo(t *testing.T) {
	v1 := FormatV1
	v2 := FormatV2

	// Headerless file defaults to V1.
	info, err := DetectReadInfo([]byte{0, 1, 2, 3, 4, 5, 6, 7}, nil)
	require.NoError(t, err)
	assert.Equal(t, FormatV1, info.Format)
	assert.Equal(t, RecordSizeV1, info.RecordSize)

	// Forcing v2 on a headerless file fails.
	_, err = DetectReadInfo([]byte{0, 1, 2, 3, 4, 5, 6, 7}, &v2)
	assert.Error(t, err)

	// Forcing v1 on a headered file fails.
	header := []byte{'A', 'E', 'T', 'H', VersionV2, FlagHasPly, EndianLittle, 0}
	_, err = DetectReadInfo(header, &v1)
	assert.Error(t, err)

	info, err = DetectReadInfo(header, &v2)
	require.NoError(t, err)
	assert.Equal(t, FormatV2, info.Format)
	assert.Equal(t, RecordSizeV2, info.RecordSize)
}

func TestWriterVerifyConvert(t *testing.T) {
	dir := t.TempDir()
	v1Path := filepath.Join(dir, "data.v1")

	w, err := NewWriter(v1Path, FormatV1)
	require.NoError(t, err)

	pos := board.NewPosition()
	for i := 0; i < 5; i++ {
		r := Pack(pos, int16(i*10), 1, 0.5)
		require.NoError(t, w.Write(&r))
	}
	require.NoError(t, w.Close())

	st, err := os.Stat(v1Path)
	require.NoError(t, err)
	assert.Equal(t, int64(5*RecordSizeV1), st.Size())

	count, err := Verify(v1Path, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)

	// Convert and re-verify as v2.
	v2Path := filepath.Join(dir, "data.v2")
	require.NoError(t, ConvertV1ToV2(v1Path, v2Path, true))

	st, err = os.Stat(v2Path)
	require.NoError(t, err)
	assert.Equal(t, int64(HeaderSize+5*RecordSizeV2), st.Size())

	count, err = Verify(v2Path, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)
}

func TestVerifyRejectsTruncated(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.v1")

	pos := board.NewPosition()
	r := Pack(pos, 0, 1, 0.5)
	buf := r.MarshalV1()
	require.NoError(t, os.WriteFile(path, buf[:20], 0o644))

	_, err := Verify(path, nil)
	assert.Error(t, err)
}
