package engine

import "github.com/bastidangca/aether/internal/board"

// pawnCacheSize is a power of two; the cache is direct-mapped by pawn key.
const pawnCacheSize = 16384

// lazyMargin bounds how far the material+PST+pawn core may sit outside the
// window before the refinement terms are skipped.
const lazyMargin = 350

// PawnEntry caches the pawn-structure evaluation for one pawn key: the
// tapered partial score plus the passed-pawn and pawn-attack bitboards the
// piece evaluation reuses.
type PawnEntry struct {
	Key             uint64
	ScoreMG         int
	ScoreEG         int
	PassedPawns     [2]board.Bitboard
	PawnAttacks     [2]board.Bitboard
	PassedFrontMask [2]board.Bitboard
}

// Evaluator is the hand-crafted evaluator. Each worker owns one, so the
// pawn cache is single-threaded; the parameter set may be shared read-only.
type Evaluator struct {
	params    *EvalParams
	contempt  int
	pawnCache []PawnEntry
}

// NewEvaluator builds an evaluator over the given parameter set.
func NewEvaluator(params *EvalParams) *Evaluator {
	return &Evaluator{
		params:    params,
		pawnCache: make([]PawnEntry, pawnCacheSize),
	}
}

// SetContempt shifts near-drawn scores toward the given centipawn amount.
func (ev *Evaluator) SetContempt(c int) {
	ev.contempt = c
}

func (ev *Evaluator) pstMG(pt board.PieceType, sq board.Square, c board.Color) int {
	idx := sq
	if c == board.White {
		idx = sq.Flip()
	}
	p := ev.params
	switch pt {
	case board.Pawn:
		return p.PawnPSTMG[idx]
	case board.Knight:
		return p.KnightPSTMG[idx]
	case board.Bishop:
		return p.BishopPSTMG[idx]
	case board.Rook:
		return p.RookPSTMG[idx]
	case board.Queen:
		return p.QueenPSTMG[idx]
	default:
		return p.KingPSTMG[idx]
	}
}

func (ev *Evaluator) pstEG(pt board.PieceType, sq board.Square, c board.Color) int {
	idx := sq
	if c == board.White {
		idx = sq.Flip()
	}
	p := ev.params
	switch pt {
	case board.Pawn:
		return p.PawnPSTEG[idx]
	case board.Knight:
		return p.KnightPSTEG[idx]
	case board.Bishop:
		return p.BishopPSTEG[idx]
	case board.Rook:
		return p.RookPSTEG[idx]
	case board.Queen:
		return p.QueenPSTEG[idx]
	default:
		return p.KingPSTEG[idx]
	}
}

// EvaluateLight is material plus PST only, tapered. Quiescence stand-pat
// uses it as the cheap bound.
func (ev *Evaluator) EvaluateLight(pos *board.Position) int {
	mg, eg, phase := ev.materialCore(pos)
	score := taper(mg, eg, phase)
	if pos.SideToMove() == board.Black {
		return -score
	}
	return score
}

func (ev *Evaluator) materialCore(pos *board.Position) (mg, eg, phase int) {
	p := ev.params
	for c := board.White; c <= board.Black; c++ {
		sign := 1
		if c == board.Black {
			sign = -1
		}
		for pt := board.Pawn; pt <= board.King; pt++ {
			bb := pos.Pieces(pt, c)
			phase += bb.Count() * p.PhaseWeights[pt]
			for bb != 0 {
				sq := bb.PopLSB()
				mg += (p.MGVals[pt] + ev.pstMG(pt, sq, c)) * sign
				eg += (p.EGVals[pt] + ev.pstEG(pt, sq, c)) * sign
			}
		}
	}
	return mg, eg, phase
}

// ranksAhead masks every rank strictly in front of sq from c's view.
func ranksAhead(sq board.Square, c board.Color) board.Bitboard {
	if c == board.White {
		if sq.Rank() == 7 {
			return 0
		}
		return ^board.Bitboard(0) << (8 * (sq.Rank() + 1))
	}
	if sq.Rank() == 0 {
		return 0
	}
	return ^board.Bitboard(0) >> (8 * (8 - sq.Rank()))
}

func taper(mg, eg, phase int) int {
	if phase > 24 {
		phase = 24
	}
	return (mg*phase + eg*(24-phase)) / 24
}

// evaluatePawns computes or fetches the pawn-structure entry for the
// position's pawn key.
func (ev *Evaluator) evaluatePawns(pos *board.Position) *PawnEntry {
	key := pos.PawnKey()
	entry := &ev.pawnCache[key&(pawnCacheSize-1)]
	if entry.Key == key {
		return entry
	}

	p := ev.params
	*entry = PawnEntry{Key: key}

	for c := board.White; c <= board.Black; c++ {
		sign := 1
		if c == board.Black {
			sign = -1
		}
		pawns := pos.Pieces(board.Pawn, c)
		themPawns := pos.Pieces(board.Pawn, c.Other())

		var attacks board.Bitboard
		for b := pawns; b != 0; {
			attacks |= board.PawnAttacks(b.PopLSB(), c)
		}
		entry.PawnAttacks[c] = attacks

		for b := pawns; b != 0; {
			sq := b.PopLSB()
			file := sq.File()
			fileMask := board.FileBB(file)
			var adjMask board.Bitboard
			if file > 0 {
				adjMask |= board.FileBB(file - 1)
			}
			if file < 7 {
				adjMask |= board.FileBB(file + 1)
			}

			if pawns&adjMask == 0 {
				entry.ScoreMG -= p.PawnIsolatedMG * sign
				entry.ScoreEG -= p.PawnIsolatedEG * sign
			}
			if (pawns & fileMask).MoreThanOne() {
				entry.ScoreMG -= p.PawnDoubledMG * sign
				entry.ScoreEG -= p.PawnDoubledEG * sign
			}

			forward := ranksAhead(sq, c)
			span := (fileMask | adjMask) & forward

			if span&themPawns == 0 {
				// Passed.
				entry.PassedPawns[c] = entry.PassedPawns[c].With(sq)
				rel := sq.RelativeRank(c)
				entry.ScoreMG += p.PassedRankMG[rel] * sign
				entry.ScoreEG += p.PassedRankEG[rel] * sign

				if attacks.Has(sq) && rel >= 3 {
					entry.ScoreMG += p.PassedSupportedMG * sign
					entry.ScoreEG += p.PassedSupportedEG * sign
				}

				var front board.Square
				if c == board.White {
					front = sq + 8
				} else {
					front = sq - 8
				}
				if front.IsValid() {
					entry.PassedFrontMask[c] = entry.PassedFrontMask[c].With(front)
				}
			} else if themPawns&fileMask&forward == 0 {
				// Candidate: adjacent-file blockers only, all capturable.
				enemyAdj := themPawns & adjMask & forward
				capturable := board.PawnAttacks(sq, c)
				if enemyAdj != 0 && enemyAdj&^capturable == 0 {
					entry.ScoreMG += p.CandidatePassedMG * sign
					entry.ScoreEG += p.CandidatePassedEG * sign
				}
			}
		}

		passed := entry.PassedPawns[c]
		connected := passed & (passed.East() | passed.West())
		n := connected.Count()
		entry.ScoreMG += n * p.PassedConnectedMG * sign
		entry.ScoreEG += n * p.PassedConnectedEG * sign
	}

	// Wing majorities, counted once from White's perspective.
	whitePawns := pos.Pieces(board.Pawn, board.White)
	blackPawns := pos.Pieces(board.Pawn, board.Black)
	queenside := board.FileA | board.FileB | board.FileC | board.FileD
	kingside := board.FileE | board.FileF | board.FileG | board.FileH

	qDiff := (whitePawns & queenside).Count() - (blackPawns & queenside).Count()
	entry.ScoreMG += qDiff * p.PawnMajorityMG
	entry.ScoreEG += qDiff * p.PawnMajorityEG
	kDiff := (whitePawns & kingside).Count() - (blackPawns & kingside).Count()
	entry.ScoreMG += kDiff * p.PawnMajorityMG
	entry.ScoreEG += kDiff * p.PawnMajorityEG

	return entry
}

// Evaluate returns the side-to-move-relative score. When the
// material+PST+pawn core already falls outside [alpha-lazyMargin,
// beta+lazyMargin] the unrefined core score is returned as a bound.
func (ev *Evaluator) Evaluate(pos *board.Position, alpha, beta int) int {
	p := ev.params
	pawnEntry := ev.evaluatePawns(pos)

	coreMG, coreEG, phase := ev.materialCore(pos)
	coreMG += pawnEntry.ScoreMG
	coreEG += pawnEntry.ScoreEG
	core := taper(coreMG, coreEG, phase)
	if pos.SideToMove() == board.Black {
		core = -core
	}
	if core-lazyMargin >= beta || core+lazyMargin <= alpha {
		return core
	}

	mg := pawnEntry.ScoreMG
	eg := pawnEntry.ScoreEG
	phase = 0
	occ := pos.Occupied()

	var attackedBy [2]board.Bitboard
	var restricted [2]board.Bitboard
	var kingRing [2]board.Bitboard
	var kingSq [2]board.Square
	var kingAttackUnits [2]int
	var kingAttackers [2]int

	for c := board.White; c <= board.Black; c++ {
		kingSq[c] = pos.KingSquare(c)
		kingRing[c] = board.KingAttacks(kingSq[c])
	}

	for us := board.White; us <= board.Black; us++ {
		them := us.Other()
		sign := 1
		if us == board.Black {
			sign = -1
		}

		for pt := board.Pawn; pt <= board.King; pt++ {
			bb := pos.Pieces(pt, us)
			phase += bb.Count() * p.PhaseWeights[pt]

			for bb != 0 {
				sq := bb.PopLSB()
				mg += (p.MGVals[pt] + ev.pstMG(pt, sq, us)) * sign
				eg += (p.EGVals[pt] + ev.pstEG(pt, sq, us)) * sign

				attacks := board.Attacks(pt, sq, occ, us)
				attackedBy[us] |= attacks

				if pt != board.King && pt != board.Pawn {
					if zone := attacks & kingRing[them]; zone != 0 {
						kingAttackUnits[them] += p.KingZoneAttackWeights[pt] * zone.Count()
						kingAttackers[them]++
					}

					safeMob := attacks &^ pos.PiecesByColor(us)
					mobCount := safeMob.Count()
					pawnSafe := (safeMob &^ pawnEntry.PawnAttacks[them]).Count()

					if pawnSafe <= 3 {
						if pawnSafe <= 1 {
							mg -= p.RestrictedStrictMG[pt] * sign
							eg -= p.RestrictedStrictEG[pt] * sign
						} else {
							mg -= p.RestrictedMG[pt] * sign
							eg -= p.RestrictedEG[pt] * sign
						}
					}
					if pawnSafe <= 2 {
						restricted[us] = restricted[us].With(sq)
					}
					if (pt == board.Knight || pt == board.Bishop) && mobCount <= 2 {
						mg -= p.InactiveMG * sign
						eg -= p.InactiveEG * sign
					}

					// Safe mobility: own pieces and enemy-pawn-attacked
					// squares excluded.
					mobArea := ^(pos.PiecesByColor(us) | pawnEntry.PawnAttacks[them])
					cnt := (attacks & mobArea).Count()
					idx := int(pt - board.Knight)
					delta := cnt - p.MobilityOffset[idx]
					mg += delta * p.MobilityWeightMG[idx] * sign
					eg += delta * p.MobilityWeightEG[idx] * sign
				}

				switch pt {
				case board.Bishop:
					sameColor := board.LightSquares
					if !board.LightSquares.Has(sq) {
						sameColor = ^board.LightSquares
					}
					if (pos.Pieces(board.Pawn, us) & sameColor).Count() >= 3 {
						mg -= p.BadBishopMG * sign
						eg -= p.BadBishopEG * sign
					}
				case board.Rook:
					fileMask := board.FileBB(sq.File())
					ownPawn := pos.Pieces(board.Pawn, us)&fileMask != 0
					enemyPawn := pos.Pieces(board.Pawn, them)&fileMask != 0
					if !ownPawn {
						if !enemyPawn {
							mg += p.RookOpenFileMG * sign
							eg += p.RookOpenFileEG * sign
						} else {
							mg += p.RookSemiOpenMG * sign
							eg += p.RookSemiOpenEG * sign
						}
					}
					if sq.RelativeRank(us) == 6 {
						mg += p.RookOnSeventhMG * sign
						eg += p.RookOnSeventhEG * sign
					}
					if passed := pawnEntry.PassedPawns[us] & fileMask; passed != 0 {
						pawnSq := passed.LSB()
						behind := (us == board.White && sq < pawnSq) ||
							(us == board.Black && sq > pawnSq)
						if behind {
							mg += p.RookBehindPasserMG * sign
							eg += p.RookBehindPasserEG * sign
						}
					}
				case board.Knight:
					rel := sq.RelativeRank(us)
					if rel >= 3 && rel <= 5 && pawnEntry.PawnAttacks[us].Has(sq) {
						mg += p.KnightOutpostMG * sign
						eg += p.KnightOutpostEG * sign
					}
				}
			}
		}

		if pos.Pieces(board.Bishop, us).Count() >= 2 {
			mg += p.BishopPairMG * sign
			eg += p.BishopPairEG * sign
		}

		blocked := (pawnEntry.PassedFrontMask[us] & occ).Count()
		mg += blocked * p.PassedBlockerMG * sign
		eg += blocked * p.PassedBlockerEG * sign
	}

	// Pressure on cramped pieces that lack pawn cover.
	for us := board.White; us <= board.Black; us++ {
		them := us.Other()
		sign := 1
		if us == board.Black {
			sign = -1
		}
		for targets := restricted[them]; targets != 0; {
			sq := targets.PopLSB()
			if !attackedBy[us].Has(sq) || pawnEntry.PawnAttacks[them].Has(sq) {
				continue
			}
			pt := pos.PieceAt(sq).Type()
			if pt != board.NoPieceType && pt != board.King && pt != board.Pawn {
				mg += p.PressureMG[pt] * sign
				eg += p.PressureEG[pt] * sign
			}
		}
	}

	// King safety: attack units count only with two or more attackers, then
	// feed the quadratic danger table; open and half-open files beside the
	// king add file penalties.
	for us := board.White; us <= board.Black; us++ {
		sign := 1
		if us == board.Black {
			sign = -1
		}

		penalty := 0
		if kingAttackers[us] >= 2 {
			penalty += p.KingSafetyTable[min(kingAttackUnits[us], 99)]
		}

		kf := kingSq[us].File()
		for off := -1; off <= 1; off++ {
			f := kf + off
			if f < 0 || f > 7 {
				continue
			}
			fileMask := board.FileBB(f)
			if pos.Pieces(board.Pawn, us)&fileMask == 0 {
				penalty += p.KingSemiOpenPenalty
				if pos.Pieces(board.Pawn, us.Other())&fileMask == 0 {
					penalty += p.KingOpenFilePenalty
				}
			}
		}

		mg -= penalty * sign
		eg -= penalty / 8 * sign
	}

	if phase > 24 {
		phase = 24
	}
	score := (mg*phase + eg*(24-phase)) / 24

	// Opposite-colored bishop endgames drift drawish: halve when only the
	// two bishops remain beside kings and pawns.
	if phase < 12 &&
		pos.Pieces(board.Bishop, board.White).Count() == 1 &&
		pos.Pieces(board.Bishop, board.Black).Count() == 1 &&
		pos.PiecesByType(board.Knight) == 0 &&
		pos.PiecesByType(board.Rook) == 0 &&
		pos.PiecesByType(board.Queen) == 0 {
		wb := pos.Pieces(board.Bishop, board.White).LSB()
		bb := pos.Pieces(board.Bishop, board.Black).LSB()
		if board.LightSquares.Has(wb) != board.LightSquares.Has(bb) {
			score /= 2
		}
	}

	if pos.SideToMove() == board.Black {
		score = -score
	}

	if abs(score) < 15000 {
		score += p.TempoBonus * phase / 24
	}

	if ev.contempt != 0 && abs(score) < 200 {
		t := 200 - abs(score)
		score += ev.contempt * t / 200
	}

	return score
}

// EvaluateFull evaluates with a wide-open window, never lazily.
func (ev *Evaluator) EvaluateFull(pos *board.Position) int {
	return ev.Evaluate(pos, -Infinity, Infinity)
}
