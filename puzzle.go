package main

import "time"

// Puzzle sources.
const (
	SourceManual = "manual"
	SourceScan   = "scan"
)

// ClueSheet is a puzzle as typed in or scanned: a size and one raw clue
// line per row and per column.
type ClueSheet struct {
	Size int      `json:"size"`
	Rows []string `json:"rows"`
	Cols []string `json:"cols"`
}

// Puzzle is a catalogued clue sheet with the grid inferred from it.
type Puzzle struct {
	ID        string    `json:"id"`
	Size      int       `json:"size"`
	Rows      []string  `json:"rows"`
	Cols      []string  `json:"cols"`
	Grid      Grid      `json:"grid"`
	Passes    int       `json:"passes"`
	Settled   bool      `json:"settled"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// NewPuzzle solves the clue sheet and wraps the result in a Puzzle.
// The raw clue lists are padded or cut to size lines.
func NewPuzzle(sheet ClueSheet, source string, s Solver) *Puzzle {
	n := max(sheet.Size, 0)
	res := s.Solve(n, ParseClues(sheet.Rows, n), ParseClues(sheet.Cols, n))
	return &Puzzle{
		Size:    n,
		Rows:    fitLines(sheet.Rows, n),
		Cols:    fitLines(sheet.Cols, n),
		Grid:    res.Grid,
		Passes:  res.Passes,
		Settled: res.Settled,
		Source:  source,
	}
}

func fitLines(lines []string, n int) []string {
	out := make([]string, n)
	copy(out, lines)
	return out
}
