package datagen

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/bastidangca/aether/internal/board"
	"github.com/bastidangca/aether/internal/engine"
	"github.com/bastidangca/aether/internal/packed"
)

// PGNToPacked converts a PGN file of long-algebraic games into packed
// records, scoring each position with the static evaluator. Games whose
// move text does not end in 1-0, 0-1 or 1/2-1/2 are skipped; unparseable
// moves end the game early.
func PGNToPacked(pgnPath, outputPath string, format packed.Format) error {
	in, err := os.Open(pgnPath)
	if err != nil {
		return fmt.Errorf("open pgn: %w", err)
	}
	defer in.Close()

	out, err := packed.NewWriter(outputPath, format)
	if err != nil {
		return err
	}

	ev := engine.NewEvaluator(engine.DefaultParams())
	pos := board.NewPosition()

	flushGame := func(moveText string) error {
		tokens := splitMoveText(moveText)
		if len(tokens) == 0 {
			return nil
		}

		var result float32
		switch tokens[len(tokens)-1] {
		case "1-0":
			result = 1.0
		case "0-1":
			result = 0.0
		case "1/2-1/2":
			result = 0.5
		default:
			return nil
		}

		pos.SetStartpos()
		ply := 0
		for _, tok := range tokens {
			if tok == "." || strings.HasSuffix(tok, ".") || tok == "*" ||
				strings.Trim(tok, "0123456789") == "" ||
				tok == "1-0" || tok == "0-1" || tok == "1/2-1/2" {
				continue
			}

			score := ev.EvaluateFull(pos)
			clamped := clampScore(score, scoreClampCP, mateThreshold, scoreClampCP)
			rec := packed.Pack(pos, int16(clamped), wdlFromCp(clamped), result)
			if format == packed.FormatV2 {
				rec.Ply = uint16(min(65535, ply))
			}
			if err := out.Write(&rec); err != nil {
				return err
			}

			m := board.ParseUCIMove(pos, tok)
			if m == board.NoMove {
				break
			}
			pos.MakeMove(m)
			ply++
		}
		return nil
	}

	var moveText strings.Builder
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 1<<16), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "[") {
			if err := flushGame(moveText.String()); err != nil {
				out.Close()
				return err
			}
			moveText.Reset()
			continue
		}
		moveText.WriteString(line)
		moveText.WriteByte(' ')
	}
	if err := flushGame(moveText.String()); err != nil {
		out.Close()
		return err
	}
	if err := scanner.Err(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// splitMoveText tokenizes a PGN move section, detaching move-number dots.
func splitMoveText(text string) []string {
	var spaced strings.Builder
	spaced.Grow(len(text) + 16)
	for _, c := range text {
		if c == '.' {
			spaced.WriteString(" . ")
		} else {
			spaced.WriteRune(c)
		}
	}
	return strings.Fields(spaced.String())
}
