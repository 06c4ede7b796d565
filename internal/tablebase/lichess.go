package tablebase

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bastidangca/aether/internal/board"
)

// Lichess probes the public Lichess tablebase API. Network-bound and
// rate-limited; wrap it in Cached for anything beyond occasional probes.
type Lichess struct {
	client  *http.Client
	baseURL string
}

// NewLichess returns a prober against tablebase.lichess.ovh.
func NewLichess() *Lichess {
	return &Lichess{
		client:  &http.Client{Timeout: 5 * time.Second},
		baseURL: "https://tablebase.lichess.ovh/standard",
	}
}

type lichessResponse struct {
	Category string `json:"category"`
	DTZ      int    `json:"dtz"`
	Moves    []struct {
		UCI      string `json:"uci"`
		Category string `json:"category"`
	} `json:"moves"`
}

func (l *Lichess) query(pos *board.Position) (*lichessResponse, bool) {
	fen := strings.ReplaceAll(pos.FEN(), " ", "_")
	resp, err := l.client.Get(fmt.Sprintf("%s?fen=%s", l.baseURL, fen))
	if err != nil {
		return nil, false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, false
	}
	var out lichessResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, false
	}
	return &out, true
}

func (l *Lichess) ProbeWDL(pos *board.Position, ply int) (WDL, bool) {
	if !probeable(pos, l.MaxPieces()) {
		return WDLDraw, false
	}
	resp, ok := l.query(pos)
	if !ok {
		return WDLDraw, false
	}
	return categoryToWDL(resp.Category), true
}

func (l *Lichess) ProbeRoot(pos *board.Position) (board.Move, WDL, bool) {
	if !probeable(pos, l.MaxPieces()) {
		return board.NoMove, WDLDraw, false
	}
	resp, ok := l.query(pos)
	if !ok || len(resp.Moves) == 0 {
		return board.NoMove, WDLDraw, false
	}
	m := board.ParseUCIMove(pos, resp.Moves[0].UCI)
	if m == board.NoMove {
		return board.NoMove, WDLDraw, false
	}
	return m, categoryToWDL(resp.Category), true
}

func (l *Lichess) MaxPieces() int {
	return 7
}

func (l *Lichess) Available() bool {
	return true
}

// categoryToWDL folds the ambiguous categories toward a draw.
func categoryToWDL(category string) WDL {
	switch category {
	case "win":
		return WDLWin
	case "cursed-win", "maybe-win":
		return WDLCursedWin
	case "blessed-loss":
		return WDLBlessedLoss
	case "loss":
		return WDLLoss
	}
	return WDLDraw
}

// Cached memoizes an inner prober by Zobrist key. Eviction clears half the
// map once full, which is crude but keeps steady-state hit rates high for
// the repetitive endgame probes datagen issues.
type Cached struct {
	inner   Prober
	maxSize int

	mu    sync.RWMutex
	cache map[uint64]cachedWDL
}

type cachedWDL struct {
	wdl WDL
	ok  bool
}

// NewCached wraps inner with a bounded memo table.
func NewCached(inner Prober, size int) *Cached {
	return &Cached{
		inner:   inner,
		maxSize: size,
		cache:   make(map[uint64]cachedWDL, size/8),
	}
}

func (c *Cached) ProbeWDL(pos *board.Position, ply int) (WDL, bool) {
	c.mu.RLock()
	hit, ok := c.cache[pos.Key()]
	c.mu.RUnlock()
	if ok {
		return hit.wdl, hit.ok
	}

	wdl, found := c.inner.ProbeWDL(pos, ply)

	c.mu.Lock()
	if len(c.cache) >= c.maxSize {
		n := 0
		for k := range c.cache {
			delete(c.cache, k)
			n++
			if n >= c.maxSize/2 {
				break
			}
		}
	}
	c.cache[pos.Key()] = cachedWDL{wdl: wdl, ok: found}
	c.mu.Unlock()

	return wdl, found
}

func (c *Cached) ProbeRoot(pos *board.Position) (board.Move, WDL, bool) {
	// Root probes carry a move and are rare; pass through.
	return c.inner.ProbeRoot(pos)
}

func (c *Cached) MaxPieces() int {
	return c.inner.MaxPieces()
}

func (c *Cached) Available() bool {
	return c.inner.Available()
}
