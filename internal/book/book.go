// Package book reads EPD opening books: one position per line, first four
// fields taken as the FEN, '#' lines and blanks skipped.
package book

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/bastidangca/aether/internal/board"
)

// Book is a loaded set of opening positions.
type Book struct {
	fens []string
}

// LoadEPD reads an EPD file. Lines that do not carry at least four fields
// are skipped rather than rejected, matching how real books mix operations
// onto the position fields.
func LoadEPD(path string) (*Book, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open book: %w", err)
	}
	defer f.Close()

	b := &Book{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		b.fens = append(b.fens, strings.Join(fields[:4], " "))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read book: %w", err)
	}
	return b, nil
}

// Len returns the number of entries.
func (b *Book) Len() int {
	if b == nil {
		return 0
	}
	return len(b.fens)
}

// Pick sets pos to entry idx (modulo the book size). Returns an error when
// the stored line fails to parse.
func (b *Book) Pick(pos *board.Position, idx int) error {
	if b.Len() == 0 {
		return fmt.Errorf("empty book")
	}
	return pos.Set(b.fens[idx%len(b.fens)])
}
