// Package uci implements the Universal Chess Interface front-end: a
// line-oriented loop over stdin/stdout that owns the search pool and the
// current position.
package uci

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/bastidangca/aether/internal/board"
	"github.com/bastidangca/aether/internal/engine"
	"github.com/bastidangca/aether/internal/tablebase"
	"github.com/seekerror/logw"
)

// Name and Author identify the engine on the uci handshake.
const (
	Name    = "Aether"
	Author  = "Basti Dangca"
	Version = "1.0.0"
)

// Handler runs the UCI protocol. Searches run on a background goroutine;
// stop and quit join it before touching shared state.
type Handler struct {
	ctx  context.Context
	pool *engine.Pool
	pos  *board.Position

	moveOverhead int64
	syzygyPath   string
	tb           tablebase.Prober

	searchDone chan struct{}

	out io.Writer
}

// New builds a handler with default options.
func New(ctx context.Context) *Handler {
	return &Handler{
		ctx:          ctx,
		pool:         engine.NewPool(ctx, engine.DefaultOptions()),
		pos:          board.NewPosition(),
		moveOverhead: 10,
	}
}

// Run processes commands until quit or EOF. Malformed commands are silently
// skipped per UCI convention. Returns nil on a clean exit.
func (h *Handler) Run(in io.Reader, out io.Writer) error {
	h.out = out
	h.pool.SetOutput(out)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 1<<16), 1<<20)

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "uci":
			h.handleUCI()
		case "isready":
			fmt.Fprintln(out, "readyok")
		case "setoption":
			h.handleSetOption(args)
		case "ucinewgame":
			h.joinSearch()
			h.pool.Clear()
		case "position":
			h.joinSearch()
			h.handlePosition(args)
		case "go":
			h.handleGo(args)
		case "stop":
			h.pool.Stop()
		case "quit":
			h.joinSearch()
			h.pool.Close()
			return nil
		case "perft":
			h.handlePerft(args, false)
		case "divide":
			h.handlePerft(args, true)
		case "bench":
			h.joinSearch()
			h.handleBench()
		case "tune":
			h.handleTune(args)
		case "d":
			fmt.Fprintln(out, h.pos)
		}
	}
	h.joinSearch()
	h.pool.Close()
	return scanner.Err()
}

func (h *Handler) handleUCI() {
	fmt.Fprintf(h.out, "id name %s %s\n", Name, Version)
	fmt.Fprintf(h.out, "id author %s\n", Author)
	fmt.Fprintln(h.out, "option name Hash type spin default 64 min 1 max 65536")
	fmt.Fprintln(h.out, "option name Threads type spin default 1 min 1 max 64")
	fmt.Fprintln(h.out, "option name MoveOverhead type spin default 10 min 0 max 5000")
	fmt.Fprintln(h.out, "option name Contempt type spin default 0 min -200 max 200")
	fmt.Fprintln(h.out, "option name SyzygyPath type string default <empty>")
	fmt.Fprintln(h.out, "option name UCI_Chess960 type check default false")
	fmt.Fprintln(h.out, "option name NullMove type check default true")
	fmt.Fprintln(h.out, "option name ProbCut type check default true")
	fmt.Fprintln(h.out, "option name SingularExt type check default true")
	fmt.Fprintln(h.out, "option name UseHistory type check default true")
	fmt.Fprintln(h.out, "option name LargePages type check default false")
	fmt.Fprintln(h.out, "uciok")
}

// handleSetOption parses "setoption name X value Y". Option names may
// contain spaces; values run to the end of the line.
func (h *Handler) handleSetOption(args []string) {
	var nameParts, valueParts []string
	target := &nameParts
	for _, a := range args {
		switch a {
		case "name":
			target = &nameParts
		case "value":
			target = &valueParts
		default:
			*target = append(*target, a)
		}
	}
	name := strings.Join(nameParts, " ")
	value := strings.Join(valueParts, " ")
	if name == "" {
		return
	}

	opts := h.pool.Options()
	switch strings.ToLower(name) {
	case "hash":
		if n, err := strconv.Atoi(value); err == nil && n >= 1 {
			h.joinSearch()
			opts.HashMB = n
			h.pool.SetOptions(opts)
		}
	case "threads":
		if n, err := strconv.Atoi(value); err == nil && n >= 1 {
			h.joinSearch()
			opts.Threads = n
			h.pool.SetOptions(opts)
		}
	case "moveoverhead":
		if n, err := strconv.ParseInt(value, 10, 64); err == nil && n >= 0 {
			h.moveOverhead = n
		}
	case "contempt":
		if n, err := strconv.Atoi(value); err == nil {
			opts.Contempt = n
			h.pool.SetOptions(opts)
		}
	case "syzygypath":
		h.joinSearch()
		h.syzygyPath = value
		h.tb = nil
		if value != "" && value != "<empty>" {
			tb, err := tablebase.NewLocal(value)
			if err != nil {
				fmt.Fprintf(h.out, "info string Syzygy initialization failed: %v\n", err)
				break
			}
			h.tb = tb
			fmt.Fprintf(h.out, "info string Syzygy found %d-man TBs\n", tb.MaxPieces())
		}
	case "uci_chess960":
		opts.Chess960 = value == "true"
		h.pool.SetOptions(opts)
		h.pos.SetChess960(opts.Chess960)
	case "nullmove":
		opts.UseNullMove = value == "true"
		h.pool.SetOptions(opts)
	case "probcut":
		opts.UseProbCut = value == "true"
		h.pool.SetOptions(opts)
	case "singularext":
		opts.UseSingular = value == "true"
		h.pool.SetOptions(opts)
	case "usehistory":
		opts.UseHistory = value == "true"
		h.pool.SetOptions(opts)
	case "largepages":
		// Go gives no direct large-page control; accepted for GUI
		// compatibility and treated as a hash reallocation request.
		h.joinSearch()
		opts.LargePages = value == "true"
		h.pool.SetOptions(opts)
		h.pool.TT().Resize(opts.HashMB)
	}
}

// handlePosition applies "position (startpos|fen ...) [moves ...]". Move
// application stops silently at the first illegal token.
func (h *Handler) handlePosition(args []string) {
	if len(args) == 0 {
		return
	}

	moveIdx := len(args)
	for i, a := range args {
		if a == "moves" {
			moveIdx = i
			break
		}
	}

	switch args[0] {
	case "startpos":
		h.pos.SetStartpos()
	case "fen":
		fen := strings.Join(args[1:moveIdx], " ")
		// Parse into a scratch position so a bad FEN leaves the current
		// game state untouched.
		fresh := board.NewPosition()
		fresh.SetChess960(h.pos.Chess960())
		if err := fresh.Set(fen); err != nil {
			logw.Errorf(h.ctx, "position rejected: %v", err)
			return
		}
		h.pos = fresh
	default:
		return
	}

	for _, token := range args[min(moveIdx+1, len(args)):] {
		m := board.ParseUCIMove(h.pos, token)
		if m == board.NoMove {
			logw.Errorf(h.ctx, "illegal move %q in position command", token)
			return
		}
		h.pos.MakeMove(m)
	}
}

// handleGo parses limits and starts the search on a background goroutine.
func (h *Handler) handleGo(args []string) {
	h.joinSearch()

	limits := engine.Limits{MoveOverhead: h.moveOverhead}
	for i := 0; i < len(args); i++ {
		next := func() int64 {
			if i+1 < len(args) {
				i++
				n, _ := strconv.ParseInt(args[i], 10, 64)
				return n
			}
			return 0
		}
		switch args[i] {
		case "wtime":
			limits.Time[board.White] = next()
		case "btime":
			limits.Time[board.Black] = next()
		case "winc":
			limits.Inc[board.White] = next()
		case "binc":
			limits.Inc[board.Black] = next()
		case "movestogo":
			limits.MovesToGo = int(next())
		case "depth":
			limits.Depth = int(next())
		case "nodes":
			limits.Nodes = next()
		case "movetime":
			limits.MoveTime = next()
		case "infinite":
			limits.Infinite = true
		}
	}

	pos := h.pos.Copy()
	h.searchDone = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		h.pool.Search(pos, limits)
	}(h.searchDone)
}

// joinSearch stops and drains any running search.
func (h *Handler) joinSearch() {
	if h.searchDone == nil {
		return
	}
	h.pool.Stop()
	<-h.searchDone
	h.searchDone = nil
}

func (h *Handler) handlePerft(args []string, divide bool) {
	depth := 5
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			depth = n
		}
	}

	start := time.Now()
	var nodes uint64
	if divide {
		for m, n := range board.PerftDivide(h.pos, depth) {
			fmt.Fprintf(h.out, "%v: %d\n", m, n)
			nodes += n
		}
	} else {
		nodes = board.Perft(h.pos, depth)
	}
	ms := time.Since(start).Milliseconds()
	nps := int64(0)
	if ms > 0 {
		nps = int64(nodes) * 1000 / ms
	}
	fmt.Fprintf(h.out, "perft depth %d nodes %d time %d nps %d\n", depth, nodes, ms, nps)
}

// benchFENs is the fixed bench suite: startpos plus three standard perft
// test positions.
var benchFENs = []string{
	board.StartFEN,
	"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
	"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
	"r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1",
}

func (h *Handler) handleBench() {
	var total int64
	start := time.Now()
	for _, fen := range benchFENs {
		pos := board.NewPosition()
		if err := pos.Set(fen); err != nil {
			continue
		}
		h.pool.Search(pos, engine.Limits{Depth: 10, Silent: true})
		total += h.pool.TotalNodes()
	}
	ms := time.Since(start).Milliseconds()
	nps := int64(0)
	if ms > 0 {
		nps = total * 1000 / ms
	}
	fmt.Fprintf(h.out, "Bench: %d nodes %d ms %d nps\n", total, ms, nps)
}

// handleTune supports "tune fen <fen>": a one-line eval trace used by the
// tuning tooling.
func (h *Handler) handleTune(args []string) {
	if len(args) < 2 || args[0] != "fen" {
		return
	}
	pos := board.NewPosition()
	if err := pos.Set(strings.Join(args[1:], " ")); err != nil {
		return
	}
	ev := engine.NewEvaluator(engine.DefaultParams())
	fmt.Fprintf(h.out, "trace,%d\n", ev.EvaluateFull(pos))
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
