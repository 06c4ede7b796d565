package datagen

import (
	"math"

	"github.com/bastidangca/aether/internal/board"
	"github.com/bastidangca/aether/internal/engine"
)

// isTrivialEndgame recognizes dead-drawn material: bare kings, a lone
// minor, or minor versus minor, with no pawns or majors to play for.
func isTrivialEndgame(pos *board.Position) bool {
	pawns := pos.PiecesByType(board.Pawn)
	if pawns == 0 {
		majors := pos.PiecesByType(board.Rook) | pos.PiecesByType(board.Queen)
		if majors == 0 {
			whitePieces := pos.PiecesByColor(board.White) &^ pos.Pieces(board.King, board.White)
			blackPieces := pos.PiecesByColor(board.Black) &^ pos.Pieces(board.King, board.Black)

			if whitePieces == 0 && blackPieces == 0 {
				return true
			}

			minors := pos.PiecesByType(board.Knight) | pos.PiecesByType(board.Bishop)
			wc, bc := whitePieces.Count(), blackPieces.Count()

			if wc == 1 && bc == 0 && whitePieces&minors != 0 {
				return true
			}
			if wc == 0 && bc == 1 && blackPieces&minors != 0 {
				return true
			}
			if wc == 1 && bc == 1 && whitePieces&minors != 0 && blackPieces&minors != 0 {
				return true
			}
		}
	}
	return false
}

// pickRandomOpeningMove draws a uniform legal move for the random-walk
// opening, preferring moves that reach a position not yet seen this game.
func pickRandomOpeningMove(pos *board.Position, r *rng, seen map[uint64]bool) board.Move {
	var list board.MoveList
	board.GenerateAll(pos, &list)

	var legal, fresh []board.Move
	for i := 0; i < list.Len(); i++ {
		m := list.Get(i)
		if !pos.IsLegal(m) {
			continue
		}
		legal = append(legal, m)
		pos.MakeMove(m)
		if !seen[pos.Key()] {
			fresh = append(fresh, m)
		}
		pos.UnmakeMove(m)
	}

	pool := fresh
	if len(pool) == 0 {
		pool = legal
	}
	if len(pool) == 0 {
		return board.NoMove
	}
	return pool[r.intn(len(pool))]
}

// temperatureForPly interpolates the sampling temperature over the
// schedule, floored so the softmax never degenerates.
func temperatureForPly(cfg *Config, ply int) float64 {
	if cfg.TempSchedulePlies <= 0 {
		return math.Max(0.01, cfg.TempStart)
	}
	t := float64(min(ply, cfg.TempSchedulePlies))
	span := float64(cfg.TempSchedulePlies)
	temp := cfg.TempStart + (cfg.TempEnd-cfg.TempStart)*(t/span)
	return math.Max(0.01, temp)
}

// pickSoftmaxMove samples among the top-N root moves with a Boltzmann
// distribution over their scores.
func pickSoftmaxMove(scores []engine.RootScore, r *rng, ply int, cfg *Config) board.Move {
	if len(scores) == 0 {
		return board.NoMove
	}
	topN := min(len(scores), max(1, cfg.SampleTopN))
	maxScore := scores[0].Score
	temp := temperatureForPly(cfg, ply)

	weights := make([]float64, topN)
	total := 0.0
	for i := 0; i < topN; i++ {
		w := math.Exp(float64(scores[i].Score-maxScore) / temp)
		weights[i] = w
		total += w
	}
	if total <= 0 {
		return scores[0].Move
	}

	pick := r.float64() * total
	acc := 0.0
	for i := 0; i < topN; i++ {
		acc += weights[i]
		if pick <= acc {
			return scores[i].Move
		}
	}
	return scores[0].Move
}

// pickEpsilonGreedyMove plays the best move except with probability
// epsilon, when a uniform top-K move is played instead.
func pickEpsilonGreedyMove(scores []engine.RootScore, r *rng, cfg *Config) board.Move {
	if len(scores) == 0 {
		return board.NoMove
	}
	topK := min(len(scores), max(1, cfg.SampleTopK))
	if topK <= 1 || cfg.Epsilon <= 0 {
		return scores[0].Move
	}
	if r.float64() < cfg.Epsilon {
		return scores[r.intn(topK)].Move
	}
	return scores[0].Move
}

// pickPolicyMove dispatches on the configured sampling policy.
func pickPolicyMove(result engine.Result, r *rng, ply int, cfg *Config) board.Move {
	if len(result.RootScores) > 0 {
		if cfg.UseEpsilonGreedy {
			return pickEpsilonGreedyMove(result.RootScores, r, cfg)
		}
		return pickSoftmaxMove(result.RootScores, r, ply, cfg)
	}
	return result.BestMove
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
