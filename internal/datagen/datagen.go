// Package datagen runs self-play games and emits packed training records.
// A pool of game workers searches with private engines, a single writer
// goroutine deduplicates and appends records, and SIGINT requests a
// graceful stop observed between moves.
package datagen

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/bastidangca/aether/internal/board"
	"github.com/bastidangca/aether/internal/book"
	"github.com/bastidangca/aether/internal/engine"
	"github.com/bastidangca/aether/internal/packed"
	"github.com/bastidangca/aether/internal/storage"
	"github.com/bastidangca/aether/internal/tablebase"
	"github.com/seekerror/logw"
	"go.uber.org/atomic"
)

// Adjudication and filtering constants.
const (
	mercyCP          = 1000
	mercyPlies       = 8
	winCP            = 700
	winStablePlies   = 6
	drawCP           = 50
	drawPlies        = 20
	drawStartPly     = 30
	minAdjudicateDep = 10
	stableScoreDelta = 40
	stableScorePlies = 6
	maxPlies         = 200
	openingSkipPlies = 10
	mateThreshold    = 20000
	scoreClampCP     = 2000
)

// Config drives one datagen run.
type Config struct {
	NumGames   int64
	NumThreads int
	OutputPath string
	Format     packed.Format
	Seed       uint64
	Chess960   bool

	BookPath           string
	BookRandomWalkPct  int
	OpeningRandomPlies int

	SearchNodes       int64
	SearchNodesJitter float64
	SearchDepth       int
	MinDepth          int
	MinNodes          int64

	RecordEvery       int
	SampleTopN        int
	SampleTopK        int
	TempStart         float64
	TempEnd           float64
	TempSchedulePlies int
	Epsilon           float64
	UseEpsilonGreedy  bool

	Adjudicate bool
	SyzygyPath string

	BalanceEqualCP      int
	BalanceModerateCP   int
	BalanceEqualKeep    int
	BalanceModerateKeep int
	BalanceExtremeKeep  int
	GapSkipCP           int

	WriterLRUSize int
	RecordLRUSize int

	// Resume state is kept in a Badger store in this directory; empty
	// disables persistence and every run starts fresh.
	StatePath string
}

// DefaultConfig mirrors the CLI defaults.
func DefaultConfig() Config {
	return Config{
		NumThreads:          1,
		Format:              packed.FormatV1,
		OpeningRandomPlies:  8,
		SearchDepth:         1,
		RecordEvery:         1,
		SampleTopN:          1,
		SampleTopK:          1,
		TempStart:           1.0,
		TempEnd:             1.0,
		BalanceEqualCP:      200,
		BalanceModerateCP:   600,
		BalanceEqualKeep:    100,
		BalanceModerateKeep: 50,
		BalanceExtremeKeep:  25,
		WriterLRUSize:       4096,
		RecordLRUSize:       512,
	}
}

// Validate rejects inconsistent configurations at the CLI boundary.
func (cfg *Config) Validate() error {
	if cfg.NumGames <= 0 || cfg.NumThreads <= 0 {
		return fmt.Errorf("games and threads must be positive")
	}
	if cfg.OutputPath == "" {
		return fmt.Errorf("output path is required")
	}
	if cfg.SearchDepth < 1 {
		return fmt.Errorf("depth must be at least 1")
	}
	if cfg.MinDepth < 0 {
		return fmt.Errorf("min-depth must be >= 0")
	}
	if cfg.RecordEvery <= 0 {
		return fmt.Errorf("record-every must be >= 1")
	}
	if cfg.SampleTopN <= 0 || cfg.SampleTopK <= 0 {
		return fmt.Errorf("topk must be >= 1")
	}
	if cfg.TempStart <= 0 || cfg.TempEnd <= 0 {
		return fmt.Errorf("temperature values must be > 0")
	}
	if cfg.TempSchedulePlies < 0 {
		return fmt.Errorf("temp-plies must be >= 0")
	}
	if cfg.SearchNodesJitter < 0 {
		return fmt.Errorf("nodes-jitter must be >= 0")
	}
	if cfg.GapSkipCP < 0 {
		return fmt.Errorf("gap-skip-cp must be >= 0")
	}
	if cfg.BookRandomWalkPct < 0 || cfg.BookRandomWalkPct > 100 {
		return fmt.Errorf("book-random-walk-pct must be between 0 and 100")
	}
	return nil
}

type queueItem struct {
	rollingHash uint64
	records     []packed.Record
}

type counters struct {
	gamesCompleted atomic.Int64
	gamesWritten   atomic.Int64
	nodesTotal     atomic.Int64
	positionsTotal atomic.Int64
	duplicates     atomic.Int64
}

// Run executes the configured self-play loop. Blocks until the target game
// count is reached or SIGINT arrives.
func Run(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	stopFlag := atomic.NewBool(false)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		stopFlag.Store(true)
	}()

	var openingBook *book.Book
	if cfg.BookPath != "" {
		b, err := book.LoadEPD(cfg.BookPath)
		if err != nil {
			logw.Errorf(ctx, "opening book unavailable: %v", err)
		} else {
			openingBook = b
			logw.Infof(ctx, "opening book: %d positions", b.Len())
		}
	}

	var tb tablebase.Prober = tablebase.Noop{}
	if cfg.SyzygyPath != "" {
		local, err := tablebase.NewLocal(cfg.SyzygyPath)
		if err != nil {
			logw.Errorf(ctx, "syzygy unavailable: %v", err)
		} else {
			tb = local
		}
	}

	var store *storage.Store
	var checkpoint storage.Checkpoint
	if cfg.StatePath != "" {
		s, err := storage.Open(cfg.StatePath)
		if err != nil {
			logw.Errorf(ctx, "datagen state store unavailable, running fresh: %v", err)
		} else {
			store = s
			defer store.Close()
			if cp, ok, err := store.LoadCheckpoint(); err == nil && ok {
				checkpoint = cp
				logw.Infof(ctx, "resuming datagen: %d games already completed", cp.GamesCompleted)
			}
		}
	}

	out, err := packed.NewWriter(cfg.OutputPath, cfg.Format)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}

	var stats counters
	stats.gamesCompleted.Store(checkpoint.GamesCompleted)
	stats.gamesWritten.Store(checkpoint.GamesCompleted)
	stats.positionsTotal.Store(checkpoint.PositionsWritten)

	writerCh := make(chan queueItem, 4*cfg.NumThreads)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		runWriter(ctx, out, writerCh, &stats, store, cfg.WriterLRUSize)
	}()

	statusDone := make(chan struct{})
	statusStop := make(chan struct{})
	go func() {
		defer close(statusDone)
		runStatus(ctx, &cfg, &stats, statusStop)
	}()

	var wg sync.WaitGroup
	for t := 0; t < cfg.NumThreads; t++ {
		wg.Add(1)
		go func(t int) {
			defer wg.Done()
			g := newGameWorker(ctx, &cfg, uint64(t), openingBook, tb, stopFlag, &stats, writerCh)
			g.loop()
		}(t)
	}
	wg.Wait()

	close(writerCh)
	<-writerDone
	close(statusStop)
	<-statusDone

	if store != nil {
		cp := storage.Checkpoint{
			GamesCompleted:   stats.gamesCompleted.Load(),
			PositionsWritten: stats.positionsTotal.Load(),
			Seed:             cfg.Seed,
		}
		if err := store.SaveCheckpoint(cp); err != nil {
			logw.Errorf(ctx, "checkpoint save failed: %v", err)
		}
	}

	return out.Close()
}

// runWriter drains the queue, dropping duplicate games by rolling hash via
// the in-memory LRU and, when available, the persistent store.
func runWriter(ctx context.Context, out *packed.Writer, ch <-chan queueItem, stats *counters, store *storage.Store, lruSize int) {
	seen := newLRUKeySet(lruSize)
	for item := range ch {
		if seen.contains(item.rollingHash) {
			stats.duplicates.Inc()
			continue
		}
		seen.insert(item.rollingHash)

		if store != nil {
			dup, err := store.MarkGame(item.rollingHash)
			if err != nil {
				logw.Errorf(ctx, "dedup store error: %v", err)
			} else if dup {
				stats.duplicates.Inc()
				continue
			}
		}

		for i := range item.records {
			if err := out.Write(&item.records[i]); err != nil {
				logw.Errorf(ctx, "record write failed: %v", err)
				return
			}
			stats.positionsTotal.Inc()
		}
		stats.gamesWritten.Inc()
	}
}

// runStatus prints a once-a-second progress line to stderr.
func runStatus(ctx context.Context, cfg *Config, stats *counters, stop <-chan struct{}) {
	start := time.Now()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		games := stats.gamesCompleted.Load()
		elapsed := time.Since(start).Seconds()
		var nps, gps float64
		if elapsed > 0 {
			nps = float64(stats.nodesTotal.Load()) / elapsed
			gps = float64(games) / elapsed
		}
		eta := "?"
		if gps > 0 {
			eta = (time.Duration(float64(cfg.NumGames-games)/gps) * time.Second).String()
		}
		fmt.Fprintf(os.Stderr, "[datagen] games %d/%d | written %d | positions %d | nps %.0f | dups %d | eta %s\n",
			games, cfg.NumGames, stats.gamesWritten.Load(), stats.positionsTotal.Load(),
			nps, stats.duplicates.Load(), eta)
	}
}

// gameWorker plays games on one goroutine with a private single-threaded
// search pool.
type gameWorker struct {
	ctx   context.Context
	cfg   *Config
	rng   *rng
	seed  uint64
	book  *book.Book
	tb    tablebase.Prober
	stop  *atomic.Bool
	stats *counters
	outCh chan<- queueItem
	pool  *engine.Pool
}

func newGameWorker(ctx context.Context, cfg *Config, thread uint64, b *book.Book, tb tablebase.Prober, stop *atomic.Bool, stats *counters, outCh chan<- queueItem) *gameWorker {
	seed := mixSeed(cfg.Seed, thread)
	opts := engine.DefaultOptions()
	opts.HashMB = 16
	opts.Threads = 1
	opts.Chess960 = cfg.Chess960
	return &gameWorker{
		ctx:   ctx,
		cfg:   cfg,
		rng:   newRNG(seed),
		seed:  seed,
		book:  b,
		tb:    tb,
		stop:  stop,
		stats: stats,
		outCh: outCh,
		pool:  engine.NewPool(ctx, opts),
	}
}

func (g *gameWorker) loop() {
	defer g.pool.Close()
	for !g.stop.Load() {
		if g.stats.gamesCompleted.Load() >= g.cfg.NumGames {
			return
		}
		g.playGame()
		if g.stats.gamesCompleted.Inc() >= g.cfg.NumGames {
			return
		}
	}
}

// jitterNodes perturbs the per-game node budget by the configured factor.
func (g *gameWorker) jitterNodes() int64 {
	cfg := g.cfg
	if cfg.SearchNodes <= 0 {
		return 0
	}
	if cfg.SearchNodesJitter <= 0 {
		return maxI64(1, cfg.SearchNodes)
	}
	offset := (g.rng.float64()*2 - 1) * cfg.SearchNodesJitter
	factor := 1.0 + offset
	if factor < 0 {
		factor = 0
	}
	return maxI64(1, int64(float64(cfg.SearchNodes)*factor+0.5))
}

func (g *gameWorker) playGame() {
	cfg := g.cfg
	pos := board.NewPosition()
	pos.SetChess960(cfg.Chess960)

	useBook := g.book.Len() > 0
	useRandomWalk := !useBook
	if useBook && cfg.BookRandomWalkPct > 0 && g.rng.intn(100) < cfg.BookRandomWalkPct {
		useRandomWalk = true
	}
	if useBook && !useRandomWalk {
		if err := g.book.Pick(pos, g.rng.intn(g.book.Len())); err != nil {
			pos.SetStartpos()
		}
	}

	gameNodes := g.jitterNodes()
	rollingHash := mixSeed(g.seed, pos.Key())
	records := make([]packed.Record, 0, 64)
	repetitions := map[uint64]int{pos.Key(): 1}
	seen := map[uint64]bool{pos.Key(): true}
	recent := newLRUKeySet(cfg.RecordLRUSize)

	ply := 0
	mercyCounter, winCounter, drawCounter := 0, 0, 0
	stableCounter := 0
	lastEval := 0
	hasLastEval := false
	lastMoveInteresting := false
	result := float32(0.5)

	// Random-walk opening.
	if useRandomWalk && cfg.OpeningRandomPlies > 0 {
		for i := 0; i < cfg.OpeningRandomPlies; i++ {
			m := pickRandomOpeningMove(pos, g.rng, seen)
			if m == board.NoMove {
				break
			}
			rollingHash = splitmix64(rollingHash ^ pos.Key() ^ uint64(m))
			pos.MakeMove(m)
			seen[pos.Key()] = true
			repetitions[pos.Key()]++
			ply++
		}
	}

	for ply < maxPlies && !g.stop.Load() {
		if pos.Rule50() >= 100 || repetitions[pos.Key()] >= 3 {
			result = 0.5
			break
		}
		if isTrivialEndgame(pos) {
			result = 0.5
			break
		}

		if g.tb.Available() && tablebase.CountPieces(pos) <= min(7, g.tb.MaxPieces()) {
			if wdl, ok := g.tb.ProbeWDL(pos, 0); ok {
				score := wdl.Score(0)
				switch {
				case score > 0:
					result = whiteWins(pos.SideToMove() == board.White)
				case score < 0:
					result = whiteWins(pos.SideToMove() == board.Black)
				default:
					result = 0.5
				}
				break
			}
		}

		if !board.HasLegalMoves(pos) {
			if pos.InCheck() {
				result = whiteWins(pos.SideToMove() == board.Black)
			} else {
				result = 0.5
			}
			break
		}

		limits := engine.Limits{Silent: true}
		if cfg.SearchNodes > 0 {
			limits.Nodes = gameNodes
		} else {
			limits.Depth = max(1, cfg.SearchDepth)
		}

		searchResult := g.pool.Search(pos, limits)
		searchNodes := g.pool.TotalNodes()
		g.stats.nodesTotal.Add(searchNodes)

		evalSTM := searchResult.Score
		clamped := clampScore(evalSTM, scoreClampCP, mateThreshold, scoreClampCP)
		wdl := wdlFromCp(clamped)

		gapSkip := false
		if cfg.GapSkipCP > 0 && len(searchResult.RootScores) >= 2 {
			gap := abs(searchResult.RootScores[0].Score - searchResult.RootScores[1].Score)
			gapSkip = gap > cfg.GapSkipCP
		}

		if cfg.Adjudicate {
			depthOK := searchResult.Depth >= minAdjudicateDep
			if depthOK {
				if hasLastEval && abs(evalSTM-lastEval) <= stableScoreDelta {
					stableCounter++
				} else {
					stableCounter = 0
				}
				lastEval = evalSTM
				hasLastEval = true
			} else {
				stableCounter = 0
				hasLastEval = false
			}

			if depthOK && stableCounter >= stableScorePlies {
				if done, res := g.adjudicate(pos, clamped, evalSTM, ply, &mercyCounter, &winCounter, &drawCounter); done {
					result = res
					break
				}
			} else {
				mercyCounter, winCounter, drawCounter = 0, 0, 0
			}
		}

		depthOrNodesOK := true
		if cfg.MinDepth > 0 || cfg.MinNodes > 0 {
			depthOrNodesOK = searchResult.Depth >= cfg.MinDepth || searchNodes >= cfg.MinNodes
		}
		pvOK := len(searchResult.PV) > 0

		shouldKeep := false
		if ply >= openingSkipPlies {
			due := cfg.RecordEvery <= 1 || ply%cfg.RecordEvery == 0
			if due || lastMoveInteresting {
				absScore := abs(clamped)
				keepPct := cfg.BalanceExtremeKeep
				if absScore <= cfg.BalanceEqualCP {
					keepPct = cfg.BalanceEqualKeep
				} else if absScore <= cfg.BalanceModerateCP {
					keepPct = cfg.BalanceModerateKeep
				}
				shouldKeep = g.rng.intn(100) < keepPct
			}
		}

		if shouldKeep && depthOrNodesOK && pvOK && !gapSkip && !recent.contains(pos.Key()) {
			recent.insert(pos.Key())
			rec := packed.Pack(pos, int16(clamped), wdl, 0.5)
			if cfg.Format == packed.FormatV2 {
				rec.Depth = byte(min(255, searchResult.Depth))
				rec.BestMove = uint16(searchResult.BestMove)
				rec.Ply = uint16(min(65535, ply))
			}
			records = append(records, rec)
		}

		var m board.Move
		if ply < cfg.OpeningRandomPlies {
			m = pickRandomOpeningMove(pos, g.rng, seen)
		} else {
			m = pickPolicyMove(searchResult, g.rng, ply, cfg)
		}
		if m == board.NoMove {
			m = searchResult.BestMove
		}
		if m == board.NoMove {
			break
		}

		isCapture := m.IsCapture()
		isPawnMove := pos.PieceAt(m.From()).Type() == board.Pawn

		rollingHash = splitmix64(rollingHash ^ pos.Key() ^ uint64(m))
		pos.MakeMove(m)
		lastMoveInteresting = isCapture || isPawnMove || pos.InCheck()
		seen[pos.Key()] = true
		repetitions[pos.Key()]++
		ply++
	}

	if len(records) > 0 {
		for i := range records {
			records[i].SetResult(result)
		}
		g.outCh <- queueItem{rollingHash: rollingHash, records: records}
	}
}

// adjudicate applies the mercy/win/draw counters once the score is deep
// and stable. Returns the game result when a rule fires.
func (g *gameWorker) adjudicate(pos *board.Position, clamped, evalSTM, ply int, mercy, win, draw *int) (bool, float32) {
	if abs(clamped) >= mercyCP {
		*mercy++
	} else {
		*mercy = 0
	}
	if *mercy >= mercyPlies {
		return true, adjudicatedResult(pos, evalSTM)
	}

	if abs(clamped) >= winCP {
		*win++
	} else {
		*win = 0
	}
	if *win >= winStablePlies {
		return true, adjudicatedResult(pos, evalSTM)
	}

	if ply >= drawStartPly {
		if abs(clamped) <= drawCP {
			*draw++
		} else {
			*draw = 0
		}
		if *draw >= drawPlies {
			return true, 0.5
		}
	}
	return false, 0.5
}

func adjudicatedResult(pos *board.Position, evalSTM int) float32 {
	stmWhite := pos.SideToMove() == board.White
	if evalSTM > 0 {
		return whiteWins(stmWhite)
	}
	return whiteWins(!stmWhite)
}

// whiteWins maps "White is the winner?" onto the result encoding.
func whiteWins(yes bool) float32 {
	if yes {
		return 1.0
	}
	return 0.0
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func maxI64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
