// Command aether is a UCI chess engine with self-play data generation.
//
// Without arguments it speaks UCI on stdin/stdout. Subcommands:
//
//	datagen        generate packed self-play training data
//	pack-convert   rewrite a v1 packed file as v2
//	pack-verify    validate a packed file
//	pack-from-pgn  convert a long-algebraic PGN into packed records
//	perft          run a movegen node count on a FEN
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/bastidangca/aether/internal/board"
	"github.com/bastidangca/aether/internal/datagen"
	"github.com/bastidangca/aether/internal/packed"
	"github.com/bastidangca/aether/internal/uci"
	"github.com/seekerror/logw"
)

func main() {
	ctx := context.Background()

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "datagen":
			os.Exit(runDatagen(ctx, os.Args[2:]))
		case "pack-convert":
			os.Exit(runPackConvert(os.Args[2:]))
		case "pack-verify":
			os.Exit(runPackVerify(os.Args[2:]))
		case "pack-from-pgn":
			os.Exit(runPackFromPGN(os.Args[2:]))
		case "perft":
			os.Exit(runPerft(os.Args[2:]))
		}
	}

	h := uci.New(ctx)
	if err := h.Run(os.Stdin, os.Stdout); err != nil {
		logw.Exitf(ctx, "uci loop failed: %v", err)
	}
}

func runDatagen(ctx context.Context, args []string) int {
	cfg := datagen.DefaultConfig()
	var formatStr string

	fs := flag.NewFlagSet("datagen", flag.ExitOnError)
	fs.Int64Var(&cfg.NumGames, "games", 0, "number of games to play")
	fs.IntVar(&cfg.NumThreads, "threads", 1, "worker threads")
	fs.StringVar(&cfg.OutputPath, "out", "", "output file")
	fs.StringVar(&formatStr, "format", "v1", "record format (v1 or v2)")
	fs.Uint64Var(&cfg.Seed, "seed", 0, "rng seed")
	fs.BoolVar(&cfg.Chess960, "chess960", false, "play Chess960 rules")
	fs.StringVar(&cfg.BookPath, "book", "", "EPD opening book")
	fs.IntVar(&cfg.BookRandomWalkPct, "book-random-walk-pct", 0, "percent of games using a random walk instead of the book")
	fs.IntVar(&cfg.OpeningRandomPlies, "random-plies", 8, "random opening plies")
	fs.Int64Var(&cfg.SearchNodes, "nodes", 0, "node budget per move (overrides depth)")
	fs.Float64Var(&cfg.SearchNodesJitter, "nodes-jitter", 0, "relative node budget jitter per game")
	fs.IntVar(&cfg.SearchDepth, "depth", 1, "search depth per move")
	fs.IntVar(&cfg.MinDepth, "min-depth", 0, "minimum depth to record a position")
	fs.Int64Var(&cfg.MinNodes, "min-nodes", 0, "minimum nodes to record a position")
	fs.IntVar(&cfg.RecordEvery, "record-every", 1, "record every n-th ply")
	fs.IntVar(&cfg.SampleTopN, "sample-top-n", 1, "softmax sampling pool size")
	fs.IntVar(&cfg.SampleTopK, "sample-top-k", 1, "epsilon-greedy sampling pool size")
	fs.Float64Var(&cfg.TempStart, "temp-start", 1.0, "softmax temperature at game start")
	fs.Float64Var(&cfg.TempEnd, "temp-end", 1.0, "softmax temperature after the schedule")
	fs.IntVar(&cfg.TempSchedulePlies, "temp-plies", 0, "plies over which temperature interpolates")
	fs.Float64Var(&cfg.Epsilon, "epsilon", 0, "epsilon for epsilon-greedy sampling")
	fs.BoolVar(&cfg.UseEpsilonGreedy, "epsilon-greedy", false, "use epsilon-greedy instead of softmax")
	fs.BoolVar(&cfg.Adjudicate, "adjudicate", false, "adjudicate decided games early")
	fs.StringVar(&cfg.SyzygyPath, "syzygy", "", "Syzygy tablebase directory")
	fs.IntVar(&cfg.BalanceEqualCP, "balance-equal-cp", cfg.BalanceEqualCP, "score bound for the balanced bucket")
	fs.IntVar(&cfg.BalanceModerateCP, "balance-moderate-cp", cfg.BalanceModerateCP, "score bound for the moderate bucket")
	fs.IntVar(&cfg.BalanceEqualKeep, "balance-equal-keep", cfg.BalanceEqualKeep, "keep percentage for balanced positions")
	fs.IntVar(&cfg.BalanceModerateKeep, "balance-moderate-keep", cfg.BalanceModerateKeep, "keep percentage for moderate positions")
	fs.IntVar(&cfg.BalanceExtremeKeep, "balance-extreme-keep", cfg.BalanceExtremeKeep, "keep percentage for extreme positions")
	fs.IntVar(&cfg.GapSkipCP, "gap-skip-cp", 0, "skip positions where the best move wins by more than this")
	fs.IntVar(&cfg.WriterLRUSize, "writer-lru-size", cfg.WriterLRUSize, "writer dedup LRU size")
	fs.StringVar(&cfg.StatePath, "state", "", "Badger directory for resumable run state")
	fs.Parse(args)

	format, err := packed.ParseFormat(formatStr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	cfg.Format = format
	if cfg.Seed == 0 {
		cfg.Seed = uint64(time.Now().UnixNano())
	}

	if err := datagen.Run(ctx, cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runPackConvert(args []string) int {
	fs := flag.NewFlagSet("pack-convert", flag.ExitOnError)
	includePly := fs.Bool("ply", true, "emit the ply field")
	fs.Parse(args)
	rest := fs.Args()
	if len(rest) != 2 {
		fmt.Fprintln(os.Stderr, "usage: aether pack-convert <input.v1> <output.v2>")
		return 1
	}
	if err := packed.ConvertV1ToV2(rest[0], rest[1], *includePly); err != nil {
		fmt.Fprintf(os.Stderr, "conversion failed: %v\n", err)
		return 1
	}
	return 0
}

func runPackVerify(args []string) int {
	fs := flag.NewFlagSet("pack-verify", flag.ExitOnError)
	formatStr := fs.String("format", "", "force format (v1 or v2)")
	fs.Parse(args)
	rest := fs.Args()
	if len(rest) != 1 {
		fmt.Fprintln(os.Stderr, "usage: aether pack-verify [-format v1|v2] <file>")
		return 1
	}

	var forced *packed.Format
	if *formatStr != "" {
		f, err := packed.ParseFormat(*formatStr)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		forced = &f
	}

	count, err := packed.Verify(rest[0], forced)
	if err != nil {
		fmt.Fprintf(os.Stderr, "verify failed: %v\n", err)
		return 1
	}
	fmt.Printf("%d records ok\n", count)
	return 0
}

func runPackFromPGN(args []string) int {
	fs := flag.NewFlagSet("pack-from-pgn", flag.ExitOnError)
	formatStr := fs.String("format", "v1", "record format (v1 or v2)")
	fs.Parse(args)
	rest := fs.Args()
	if len(rest) != 2 {
		fmt.Fprintln(os.Stderr, "usage: aether pack-from-pgn [-format v1|v2] <input.pgn> <output>")
		return 1
	}
	format, err := packed.ParseFormat(*formatStr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := datagen.PGNToPacked(rest[0], rest[1], format); err != nil {
		fmt.Fprintf(os.Stderr, "conversion failed: %v\n", err)
		return 1
	}
	return 0
}

func runPerft(args []string) int {
	fs := flag.NewFlagSet("perft", flag.ExitOnError)
	depth := fs.Int("depth", 5, "perft depth")
	fen := fs.String("fen", board.StartFEN, "position")
	fs.Parse(args)

	pos := board.NewPosition()
	if err := pos.Set(*fen); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	start := time.Now()
	nodes := board.Perft(pos, *depth)
	ms := time.Since(start).Milliseconds()
	nps := int64(0)
	if ms > 0 {
		nps = int64(nodes) * 1000 / ms
	}
	fmt.Printf("perft depth %d nodes %d time %d nps %d\n", *depth, nodes, ms, nps)
	return 0
}
