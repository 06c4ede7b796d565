package engine

// EvalParams is the tunable parameter set of the hand-crafted evaluator.
// Piece-square tables are defined from rank 8 down to rank 1, so White
// lookups flip the square with sq^56 and Black reads directly.
type EvalParams struct {
	MGVals       [6]int
	EGVals       [6]int
	PhaseWeights [6]int

	// Pawn structure.
	PawnIsolatedMG, PawnIsolatedEG int
	PawnDoubledMG, PawnDoubledEG   int
	PassedRankMG, PassedRankEG     [8]int
	PassedSupportedMG              int
	PassedSupportedEG              int
	PassedConnectedMG              int
	PassedConnectedEG              int
	PassedBlockerMG                int
	PassedBlockerEG                int
	CandidatePassedMG              int
	CandidatePassedEG              int
	PawnMajorityMG, PawnMajorityEG int

	// Mobility, indexed N/B/R/Q.
	MobilityOffset   [4]int
	MobilityWeightMG [4]int
	MobilityWeightEG [4]int

	// Cramped pieces.
	RestrictedMG       [6]int
	RestrictedEG       [6]int
	RestrictedStrictMG [6]int
	RestrictedStrictEG [6]int
	PressureMG         [6]int
	PressureEG         [6]int
	InactiveMG         int
	InactiveEG         int

	// Piece placement.
	BishopPairMG, BishopPairEG       int
	BadBishopMG, BadBishopEG         int
	RookOpenFileMG, RookOpenFileEG   int
	RookSemiOpenMG, RookSemiOpenEG   int
	RookOnSeventhMG, RookOnSeventhEG int
	RookBehindPasserMG               int
	RookBehindPasserEG               int
	KnightOutpostMG, KnightOutpostEG int

	// King safety.
	KingZoneAttackWeights [6]int
	KingSafetyTable       [100]int
	KingOpenFilePenalty   int
	KingSemiOpenPenalty   int

	TempoBonus int

	// PSTs.
	PawnPSTMG, PawnPSTEG     [64]int
	KnightPSTMG, KnightPSTEG [64]int
	BishopPSTMG, BishopPSTEG [64]int
	RookPSTMG, RookPSTEG     [64]int
	QueenPSTMG, QueenPSTEG   [64]int
	KingPSTMG, KingPSTEG     [64]int
}

// centerBonus is the shared positional shape for minor and major pieces.
var centerBonus = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 5, 10, 15, 15, 10, 5, 0,
	0, 5, 15, 25, 25, 15, 5, 0,
	0, 5, 15, 25, 25, 15, 5, 0,
	0, 5, 10, 15, 15, 10, 5, 0,
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0,
}

// pawnShape rewards advancement and central presence, rank 8 at the top.
var pawnShape = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	50, 50, 50, 50, 50, 50, 50, 50,
	10, 10, 20, 30, 30, 20, 10, 10,
	5, 5, 10, 25, 25, 10, 5, 5,
	0, 0, 0, 20, 20, 0, 0, 0,
	5, -5, -10, 0, 0, -10, -5, 5,
	5, 10, 10, -20, -20, 10, 10, 5,
	0, 0, 0, 0, 0, 0, 0, 0,
}

// DefaultParams is the tuned baseline.
func DefaultParams() *EvalParams {
	p := &EvalParams{
		MGVals:       [6]int{100, 320, 330, 500, 900, 0},
		EGVals:       [6]int{100, 320, 330, 500, 900, 0},
		PhaseWeights: [6]int{0, 1, 1, 2, 4, 0},

		PawnIsolatedMG: 10, PawnIsolatedEG: 20,
		PawnDoubledMG: 10, PawnDoubledEG: 20,
		PassedRankMG:      [8]int{0, 10, 10, 20, 40, 60, 100, 0},
		PassedRankEG:      [8]int{0, 20, 20, 40, 80, 120, 200, 0},
		PassedSupportedMG: 10, PassedSupportedEG: 15,
		PassedConnectedMG: 10, PassedConnectedEG: 20,
		PassedBlockerMG: -10, PassedBlockerEG: -20,
		CandidatePassedMG: 8, CandidatePassedEG: 12,
		PawnMajorityMG: 4, PawnMajorityEG: 8,

		MobilityOffset:   [4]int{4, 6, 7, 13},
		MobilityWeightMG: [4]int{4, 5, 2, 1},
		MobilityWeightEG: [4]int{4, 5, 4, 2},

		InactiveMG: 20, InactiveEG: 20,

		BishopPairMG: 30, BishopPairEG: 50,
		BadBishopMG: 10, BadBishopEG: 10,
		RookOpenFileMG: 20, RookOpenFileEG: 10,
		RookSemiOpenMG: 10, RookSemiOpenEG: 5,
		RookOnSeventhMG: 40, RookOnSeventhEG: 20,
		RookBehindPasserMG: 15, RookBehindPasserEG: 30,
		KnightOutpostMG: 30, KnightOutpostEG: 20,

		KingZoneAttackWeights: [6]int{0, 2, 2, 3, 5, 0},
		KingOpenFilePenalty:   20,
		KingSemiOpenPenalty:   10,

		TempoBonus: 20,
	}

	for i := 0; i < 100; i++ {
		p.KingSafetyTable[i] = min(i*i/4, 400)
	}

	for i := 0; i < 64; i++ {
		p.PawnPSTMG[i] = pawnShape[i]
		p.PawnPSTEG[i] = pawnShape[i]
		p.KnightPSTMG[i] = centerBonus[i]
		p.KnightPSTEG[i] = centerBonus[i]
		p.BishopPSTMG[i] = centerBonus[i]
		p.BishopPSTEG[i] = centerBonus[i]
		p.RookPSTMG[i] = centerBonus[i] / 2
		p.RookPSTEG[i] = centerBonus[i] / 2
		p.QueenPSTMG[i] = centerBonus[i] / 2
		p.QueenPSTEG[i] = centerBonus[i] / 2
		if i < 16 || i >= 48 {
			p.KingPSTMG[i] = 0
		} else {
			p.KingPSTMG[i] = -10
		}
		p.KingPSTEG[i] = centerBonus[i]
	}

	for pt := 0; pt < 6; pt++ {
		p.RestrictedMG[pt] = 5
		p.RestrictedEG[pt] = 5
		p.RestrictedStrictMG[pt] = 10
		p.RestrictedStrictEG[pt] = 10
		p.PressureMG[pt] = 5
		p.PressureEG[pt] = 5
	}
	return p
}
