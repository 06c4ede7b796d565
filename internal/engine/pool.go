package engine

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/bastidangca/aether/internal/board"
	"github.com/seekerror/logw"
	"go.uber.org/atomic"
)

// Pool owns the shared search context: the transposition table, the option
// set, the stop flag and one worker per thread. The master worker (id 0)
// runs on the goroutine that calls Search; helpers are long-lived and park
// between searches. The pool strictly outlives its workers.
type Pool struct {
	tt     *TransTable
	opts   Options
	params *EvalParams

	master  *Worker
	helpers []*Worker

	stop           *atomic.Bool
	completedDepth *atomic.Int32

	limits      Limits
	startTime   time.Time
	allocatedMS int64
	nodesLimit  int64

	out io.Writer
}

// NewPool builds a search context with the given options.
func NewPool(ctx context.Context, opts Options) *Pool {
	if opts.Threads < 1 {
		opts.Threads = 1
	}
	p := &Pool{
		tt:             NewTransTable(opts.HashMB),
		opts:           opts,
		params:         DefaultParams(),
		stop:           atomic.NewBool(false),
		completedDepth: atomic.NewInt32(0),
		out:            os.Stdout,
	}
	p.master = newWorker(0, p)
	p.setHelperCount(opts.Threads - 1)
	logw.Debugf(ctx, "search pool ready: %d threads, %d MB hash", opts.Threads, opts.HashMB)
	return p
}

// SetOutput redirects info/bestmove lines, stdout by default.
func (p *Pool) SetOutput(w io.Writer) {
	p.out = w
}

// Options returns the current option set.
func (p *Pool) Options() Options {
	return p.opts
}

// SetOptions replaces the option set, resizing the worker set and hash
// table as needed. Must not be called during a search.
func (p *Pool) SetOptions(opts Options) {
	if opts.Threads < 1 {
		opts.Threads = 1
	}
	if opts.HashMB != p.opts.HashMB {
		p.tt.Resize(opts.HashMB)
	}
	p.opts = opts
	p.setHelperCount(opts.Threads - 1)
}

func (p *Pool) setHelperCount(n int) {
	for len(p.helpers) > n {
		w := p.helpers[len(p.helpers)-1]
		w.mu.Lock()
		w.exit = true
		w.cond.Broadcast()
		w.mu.Unlock()
		p.helpers = p.helpers[:len(p.helpers)-1]
	}
	for len(p.helpers) < n {
		p.helpers = append(p.helpers, newWorker(len(p.helpers)+1, p))
	}
}

// TT exposes the shared transposition table.
func (p *Pool) TT() *TransTable {
	return p.tt
}

// TotalNodes sums node counters across all workers.
func (p *Pool) TotalNodes() int64 {
	total := p.master.nodes.Load()
	for _, w := range p.helpers {
		total += w.nodes.Load()
	}
	return total
}

// CompletedDepth reports the deepest iteration the master finished.
func (p *Pool) CompletedDepth() int {
	return int(p.completedDepth.Load())
}

// Stop requests a cooperative stop of the running search.
func (p *Pool) Stop() {
	p.stop.Store(true)
}

// Clear resets the transposition table and every worker's histories, as on
// ucinewgame.
func (p *Pool) Clear() {
	p.tt.Clear()
	p.master.history.Clear()
	for _, w := range p.helpers {
		w.history.Clear()
	}
}

// checkLimits converts elapsed time and the node budget into a stop. Only
// the master calls this; helpers merely read the flag.
func (p *Pool) checkLimits() {
	if p.stop.Load() {
		return
	}
	if p.nodesLimit > 0 && p.TotalNodes() >= p.nodesLimit {
		p.stop.Store(true)
		return
	}
	if p.allocatedMS > 0 && time.Since(p.startTime).Milliseconds() >= p.allocatedMS {
		p.stop.Store(true)
	}
}

// Search runs a full search of pos under the limits on the calling
// goroutine and returns the master's result. Helpers join in and are
// drained before returning; a cooperative stop at any point keeps the last
// completed iteration's answer.
func (p *Pool) Search(pos *board.Position, limits Limits) Result {
	p.stop.Store(false)
	p.completedDepth.Store(0)
	p.limits = limits
	p.startTime = time.Now()
	p.allocatedMS = AllocateTime(limits, pos.SideToMove())
	p.nodesLimit = limits.Nodes
	p.tt.NewSearch()

	for _, w := range p.helpers {
		w.startSearch(pos)
	}

	p.master.prepare(pos)
	p.master.iterDeep()

	p.stop.Store(true)
	for _, w := range p.helpers {
		w.waitDone()
	}

	return p.master.result
}

// Close releases the helper goroutines. The pool is unusable afterwards.
func (p *Pool) Close() {
	p.setHelperCount(0)
}
