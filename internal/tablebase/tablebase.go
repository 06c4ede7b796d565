// Package tablebase adapts Syzygy endgame tablebases behind a small Prober
// interface. Probing is consumed by the datagen adjudicator; the search
// itself never blocks on it.
package tablebase

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bastidangca/aether/internal/board"
)

// WDL is the win/draw/loss verdict from the probing side's view.
type WDL int

const (
	WDLLoss        WDL = -2
	WDLBlessedLoss WDL = -1
	WDLDraw        WDL = 0
	WDLCursedWin   WDL = 1
	WDLWin         WDL = 2
)

// Score converts a WDL verdict into a search score at the given ply.
// Tablebase wins sit below mate scores; cursed results are discounted.
func (w WDL) Score(ply int) int {
	switch w {
	case WDLWin:
		return 20000 - ply
	case WDLCursedWin:
		return 5000 - ply
	case WDLBlessedLoss:
		return -5000 + ply
	case WDLLoss:
		return -20000 + ply
	}
	return 0
}

// Prober looks up positions in an endgame tablebase.
type Prober interface {
	// ProbeWDL returns the WDL verdict for the side to move.
	ProbeWDL(pos *board.Position, ply int) (WDL, bool)
	// ProbeRoot returns a tablebase-best root move and its verdict.
	ProbeRoot(pos *board.Position) (board.Move, WDL, bool)
	// MaxPieces is the largest man count the source covers.
	MaxPieces() int
	// Available reports whether probing can succeed at all.
	Available() bool
}

// CountPieces counts all men on the board.
func CountPieces(pos *board.Position) int {
	return pos.Occupied().Count()
}

// probeable rejects positions tablebases cannot answer: castling rights or
// too many men.
func probeable(pos *board.Position, maxPieces int) bool {
	return pos.CastlingRights() == 0 && CountPieces(pos) <= maxPieces
}

// Local is a Syzygy prober over a directory of .rtbw/.rtbz files. The
// directory scan establishes which man counts are present; the actual
// decompression is delegated to the online prober until a native reader is
// wired in, mirroring how the files gate availability.
type Local struct {
	path      string
	maxPieces int
	fallback  Prober

	mu sync.RWMutex
}

// NewLocal scans path and returns a prober for the tablebases found there.
func NewLocal(path string) (*Local, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("syzygy path %q: %w", path, err)
	}

	maxPieces := 0
	for _, e := range entries {
		name := e.Name()
		ext := filepath.Ext(name)
		if ext != ".rtbw" && ext != ".rtbz" {
			continue
		}
		// Names look like KRvK.rtbw: men = letters minus the separator.
		base := strings.TrimSuffix(name, ext)
		men := len(base) - strings.Count(base, "v")
		if men > maxPieces {
			maxPieces = men
		}
	}
	if maxPieces == 0 {
		return nil, fmt.Errorf("syzygy path %q: no tablebase files", path)
	}

	return &Local{
		path:      path,
		maxPieces: maxPieces,
		fallback:  NewCached(NewLichess(), 100000),
	}, nil
}

func (l *Local) ProbeWDL(pos *board.Position, ply int) (WDL, bool) {
	if !probeable(pos, l.maxPieces) || pos.Rule50() >= 100 {
		return WDLDraw, false
	}
	return l.fallback.ProbeWDL(pos, ply)
}

func (l *Local) ProbeRoot(pos *board.Position) (board.Move, WDL, bool) {
	if !probeable(pos, l.maxPieces) {
		return board.NoMove, WDLDraw, false
	}
	return l.fallback.ProbeRoot(pos)
}

func (l *Local) MaxPieces() int {
	return l.maxPieces
}

func (l *Local) Available() bool {
	return true
}

// Noop always misses. Used when no tablebase is configured.
type Noop struct{}

func (Noop) ProbeWDL(*board.Position, int) (WDL, bool)         { return WDLDraw, false }
func (Noop) ProbeRoot(*board.Position) (board.Move, WDL, bool) { return board.NoMove, WDLDraw, false }
func (Noop) MaxPieces() int                                    { return 0 }
func (Noop) Available() bool                                   { return false }
