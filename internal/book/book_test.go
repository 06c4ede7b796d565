package book

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bastidangca/aether/internal/board"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleEPD = `# test book
rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - id "start";
r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - bm Bb5;

short line
`

func TestLoadEPD(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "book.epd")
	require.NoError(t, os.WriteFile(path, []byte(sampleEPD), 0o644))

	b, err := LoadEPD(path)
	require.NoError(t, err)
	// Comment, blank and short lines are dropped.
	assert.Equal(t, 2, b.Len())

	pos := board.NewPosition()
	require.NoError(t, b.Pick(pos, 0))
	assert.Equal(t, board.White, pos.SideToMove())

	require.NoError(t, b.Pick(pos, 1))
	assert.Equal(t, board.WhiteKnight, pos.PieceAt(board.F3))

	// Index wraps.
	require.NoError(t, b.Pick(pos, 2))
}

func TestLoadEPDMissingFile(t *testing.T) {
	_, err := LoadEPD("/nonexistent/book.epd")
	assert.Error(t, err)
}

func TestEmptyBook(t *testing.T) {
	var b *Book
	assert.Equal(t, 0, b.Len())

	pos := board.NewPosition()
	empty := &Book{}
	assert.Error(t, empty.Pick(pos, 0))
}
