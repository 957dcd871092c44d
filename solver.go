package main

import (
	"log/slog"
	"strings"
)

// Grid is a square board of cells, row-major: g[row][col] is 0 (empty) or 1 (filled).
type Grid [][]int

// NewGrid returns an empty n×n grid.
func NewGrid(n int) Grid {
	g := make(Grid, n)
	for i := range g {
		g[i] = make([]int, n)
	}
	return g
}

// Clone returns a deep copy of g.
func (g Grid) Clone() Grid {
	cp := make(Grid, len(g))
	for i, row := range g {
		cp[i] = make([]int, len(row))
		copy(cp[i], row)
	}
	return cp
}

// Column returns a copy of column j.
func (g Grid) Column(j int) []int {
	col := make([]int, len(g))
	for i := range g {
		col[i] = g[i][j]
	}
	return col
}

func (g Grid) setColumn(j int, col []int) {
	for i := range g {
		g[i][j] = col[i]
	}
}

// Filled counts the filled cells.
func (g Grid) Filled() int {
	n := 0
	for _, row := range g {
		for _, c := range row {
			if c != 0 {
				n++
			}
		}
	}
	return n
}

// String draws the grid with '#' for filled and '.' for empty cells.
func (g Grid) String() string {
	var b strings.Builder
	for i, row := range g {
		if i > 0 {
			b.WriteByte('\n')
		}
		for _, c := range row {
			if c != 0 {
				b.WriteByte('#')
			} else {
				b.WriteByte('.')
			}
		}
	}
	return b.String()
}

func (g Grid) fingerprint() string {
	n := len(g)
	b := make([]byte, 0, n*n)
	for _, row := range g {
		for _, c := range row {
			b = append(b, byte(c))
		}
	}
	return string(b)
}

func equalLine(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Mode selects what a line starts from before runs are placed on it.
type Mode int

const (
	// ModeReset rebuilds every line from an empty line.
	ModeReset Mode = iota
	// ModeOverlay places runs on top of the line's current content, so
	// cells are only ever switched on. Column i is read after row i has
	// been written, so it overlays that row's cells too.
	ModeOverlay
)

func (m Mode) String() string {
	if m == ModeOverlay {
		return "overlay"
	}
	return "reset"
}

// Result is the outcome of a solve.
type Result struct {
	Grid    Grid `json:"grid"`
	Passes  int  `json:"passes"`
	Settled bool `json:"settled"`
}

// Solver runs the row/column placement heuristic to a fixpoint.
// The zero value rebuilds lines from scratch and runs until a pass
// changes nothing or the grid starts repeating.
type Solver struct {
	Mode      Mode
	MaxPasses int // 0 means no limit
	Logger    *slog.Logger
}

// Solve parses the raw clue lines and returns the inferred n×n grid.
func Solve(n int, rawRows, rawCols []string) Grid {
	n = max(n, 0)
	return Solver{}.Solve(n, ParseClues(rawRows, n), ParseClues(rawCols, n)).Grid
}

// Solve applies the placement rule to row i then column i, for every i,
// until a whole pass leaves the grid untouched.
//
// Settled is false when the loop was cut short, either by MaxPasses or
// because a pass ended on a grid already produced by an earlier pass:
// from there the passes would repeat forever.
func (s Solver) Solve(n int, rows, cols []Clue) Result {
	n = max(n, 0)
	grid := NewGrid(n)
	seen := map[string]struct{}{grid.fingerprint(): {}}
	res := Result{Grid: grid, Settled: true}

	for changed := true; changed; {
		if s.MaxPasses > 0 && res.Passes >= s.MaxPasses {
			res.Settled = false
			break
		}
		changed = false
		res.Passes++

		for i := 0; i < n; i++ {
			row := s.placeLine(grid[i], clueAt(rows, i))
			if !equalLine(row, grid[i]) {
				grid[i] = row
				changed = true
			}

			// Read after the row write: row i can affect column i.
			cur := grid.Column(i)
			col := s.placeLine(cur, clueAt(cols, i))
			if !equalLine(col, cur) {
				grid.setColumn(i, col)
				changed = true
			}
		}

		if changed {
			key := grid.fingerprint()
			if _, ok := seen[key]; ok {
				res.Settled = false
				break
			}
			seen[key] = struct{}{}
		}
	}

	if s.Logger != nil {
		s.Logger.Debug("solve finished",
			"size", n,
			"mode", s.Mode.String(),
			"passes", res.Passes,
			"settled", res.Settled,
			"filled", grid.Filled(),
		)
	}
	return res
}

// placeLine lays the clue's runs left to right with one-cell gaps.
//
// A run is placed only if cursor+run+len(clue)-1 fits in the line. The
// len(clue) term is the full clue length for every run, not the number of
// runs still to come, so later runs of multi-run clues are often dropped:
// on a line of 5, clue [2 2] places only the first run. The first run that
// does not fit ends placement for the line.
func (s Solver) placeLine(line []int, clue Clue) []int {
	n := len(line)
	out := make([]int, n)
	if s.Mode == ModeOverlay {
		copy(out, line)
	}

	cursor := 0
	for _, run := range clue {
		if cursor+run+len(clue)-1 > n {
			break
		}
		for k := cursor; k < cursor+run; k++ {
			out[k] = 1
		}
		cursor += run + 1
	}
	return out
}

func clueAt(clues []Clue, i int) Clue {
	if i < len(clues) {
		return clues[i]
	}
	return nil
}
