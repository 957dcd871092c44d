package main

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPlaceLine(t *testing.T) {
	tests := []struct {
		name string
		n    int
		clue Clue
		want []int
	}{
		{"single run", 5, Clue{3}, []int{1, 1, 1, 0, 0}},
		{"second run dropped", 5, Clue{2, 2}, []int{1, 1, 0, 0, 0}},
		{"two singles", 5, Clue{1, 1}, []int{1, 0, 1, 0, 0}},
		{"third single dropped", 5, Clue{1, 1, 1}, []int{1, 0, 1, 0, 0}},
		{"zero run still advances", 5, Clue{0, 2}, []int{0, 1, 1, 0, 0}},
		{"run longer than line", 2, Clue{5}, []int{0, 0}},
		{"full line", 4, Clue{4}, []int{1, 1, 1, 1}},
		{"empty clue", 3, Clue{}, []int{0, 0, 0}},
		{"empty line", 0, Clue{1}, []int{}},
		{"huge run", 3, Clue{maxRun}, []int{0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Solver{}.placeLine(make([]int, tt.n), tt.clue)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("placeLine(%d, %v) mismatch (-want +got):\n%s", tt.n, tt.clue, diff)
			}
		})
	}
}

func TestPlaceLineIgnoresCurrentContent(t *testing.T) {
	line := []int{1, 1, 1, 1, 1}
	got := Solver{}.placeLine(line, Clue{2})
	if diff := cmp.Diff([]int{1, 1, 0, 0, 0}, got); diff != "" {
		t.Fatalf("reset mode kept old cells (-want +got):\n%s", diff)
	}
	if line[4] != 1 {
		t.Fatal("placeLine must not modify its input")
	}

	got = Solver{Mode: ModeOverlay}.placeLine([]int{0, 0, 0, 0, 1}, Clue{2})
	if diff := cmp.Diff([]int{1, 1, 0, 0, 1}, got); diff != "" {
		t.Fatalf("overlay mode lost old cells (-want +got):\n%s", diff)
	}
}

func TestSolveFullPipeline(t *testing.T) {
	got := Solve(3, []string{"3", "", ""}, []string{"1", "1", "1"})
	want := Grid{
		{1, 1, 1},
		{0, 0, 0},
		{0, 0, 0},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("grid mismatch (-want +got):\n%s", diff)
	}
}

func TestSolveEmptyGrid(t *testing.T) {
	got := Solve(0, nil, nil)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil grid, got %#v", got)
	}

	res := Solver{}.Solve(0, nil, nil)
	if !res.Settled || res.Passes != 1 {
		t.Fatalf("expected one settled pass, got passes=%d settled=%v", res.Passes, res.Settled)
	}

	if got := Solve(-4, []string{"1"}, []string{"1"}); len(got) != 0 {
		t.Fatalf("negative size should yield an empty grid, got %v", got)
	}
}

func TestSolveIsSquare(t *testing.T) {
	for n := range 8 {
		g := Solve(n, []string{"1,1", "3"}, []string{"2"})
		if len(g) != n {
			t.Fatalf("n=%d: got %d rows", n, len(g))
		}
		for i, row := range g {
			if len(row) != n {
				t.Fatalf("n=%d: row %d has %d cells", n, i, len(row))
			}
		}
	}
}

func TestSolveIdempotent(t *testing.T) {
	rows := []string{"1,1", "5", "2", "", "3x, 1"}
	cols := []string{"2", "1, 2", "5", "", "1"}

	first := Solve(5, rows, cols)
	for range 3 {
		if diff := cmp.Diff(first, Solve(5, rows, cols)); diff != "" {
			t.Fatalf("solve is not repeatable (-first +again):\n%s", diff)
		}
	}
}

func TestSolveSettledGridMatchesEveryLine(t *testing.T) {
	// Row and column clues that agree with each other.
	rows := []string{"2", "2", "", ""}
	cols := []string{"2", "2", "", ""}
	res := Solver{}.Solve(4, ParseClues(rows, 4), ParseClues(cols, 4))
	if !res.Settled {
		t.Fatalf("expected settled solve, took %d passes:\n%s", res.Passes, res.Grid)
	}
	if res.Passes != 2 {
		t.Fatalf("expected 2 passes, got %d", res.Passes)
	}

	s := Solver{}
	for i := range 4 {
		if diff := cmp.Diff(s.placeLine(make([]int, 4), ParseClue(rows[i])), res.Grid[i]); diff != "" {
			t.Errorf("row %d (-rule +grid):\n%s", i, diff)
		}
		if diff := cmp.Diff(s.placeLine(make([]int, 4), ParseClue(cols[i])), res.Grid.Column(i)); diff != "" {
			t.Errorf("col %d (-rule +grid):\n%s", i, diff)
		}
	}
}

func TestSolveStopsOnRepeatingGrid(t *testing.T) {
	// Row 0 wants an empty cell, column 0 wants it filled: each pass
	// flips it back and forth.
	res := Solver{}.Solve(1, []Clue{{}}, []Clue{{1}})
	if res.Settled {
		t.Fatal("expected an unsettled result")
	}
	if res.Passes != 2 {
		t.Fatalf("expected the repeat to be caught on pass 2, got %d", res.Passes)
	}
	if diff := cmp.Diff(Grid{{1}}, res.Grid); diff != "" {
		t.Fatalf("grid mismatch (-want +got):\n%s", diff)
	}

	// A single pass that fills then clears everything ends where it started.
	res = Solver{}.Solve(2, []Clue{{2}, {}}, []Clue{{}, {}})
	if res.Settled || res.Passes != 1 {
		t.Fatalf("expected unsettled after 1 pass, got passes=%d settled=%v", res.Passes, res.Settled)
	}
	if res.Grid.Filled() != 0 {
		t.Fatalf("expected empty grid, got:\n%s", res.Grid)
	}
}

func TestSolveOverlayOnlyAddsCells(t *testing.T) {
	rows := ParseClues([]string{"", "1", "2", "1,1"}, 4)
	cols := ParseClues([]string{"1", "", "3", "1"}, 4)

	s := Solver{Mode: ModeOverlay}
	res := s.Solve(4, rows, cols)
	if !res.Settled {
		t.Fatalf("overlay solve should settle, got:\n%s", res.Grid)
	}

	for i := range 4 {
		row := s.placeLine(make([]int, 4), rows[i])
		col := s.placeLine(make([]int, 4), cols[i])
		for j := range 4 {
			if row[j] == 1 && res.Grid[i][j] != 1 {
				t.Errorf("row %d lost cell %d", i, j)
			}
			if col[j] == 1 && res.Grid[j][i] != 1 {
				t.Errorf("col %d lost cell %d", i, j)
			}
		}
	}

	// The same clues flip-flop in reset mode.
	if reset := (Solver{}).Solve(4, rows, cols); reset.Settled {
		t.Fatalf("expected reset mode to oscillate, got:\n%s", reset.Grid)
	}
}

func TestSolveOverlayKeepsRowCellAgainstEmptyColumn(t *testing.T) {
	rows := []Clue{{1}}
	cols := []Clue{{}}

	// Column 0 is read after row 0 is written, so the overlay keeps the
	// cell the row placed and the grid settles on the next pass.
	res := Solver{Mode: ModeOverlay}.Solve(1, rows, cols)
	if !res.Settled || res.Passes != 2 {
		t.Fatalf("overlay: expected settled after 2 passes, got passes=%d settled=%v", res.Passes, res.Settled)
	}
	if diff := cmp.Diff(Grid{{1}}, res.Grid); diff != "" {
		t.Errorf("overlay grid mismatch (-want +got):\n%s", diff)
	}

	// Reset mode rebuilds the column from empty and returns to the
	// starting grid.
	res = Solver{}.Solve(1, rows, cols)
	if res.Settled || res.Passes != 1 {
		t.Fatalf("reset: expected unsettled after 1 pass, got passes=%d settled=%v", res.Passes, res.Settled)
	}
	if diff := cmp.Diff(Grid{{0}}, res.Grid); diff != "" {
		t.Errorf("reset grid mismatch (-want +got):\n%s", diff)
	}
}

func TestSolveMaxPasses(t *testing.T) {
	res := Solver{MaxPasses: 1}.Solve(3, ParseClues([]string{"3", "", ""}, 3), ParseClues([]string{"1", "1", "1"}, 3))
	if res.Settled || res.Passes != 1 {
		t.Fatalf("expected 1 unsettled pass, got passes=%d settled=%v", res.Passes, res.Settled)
	}
	if res.Grid.Filled() != 3 {
		t.Fatalf("expected first pass output to be kept, got:\n%s", res.Grid)
	}
}

func TestGridString(t *testing.T) {
	g := Grid{{1, 0}, {0, 1}}
	if got := g.String(); got != "#.\n.#" {
		t.Fatalf("unexpected drawing %q", got)
	}
}
