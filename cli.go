package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// puzzleFile is the HCL form of a clue sheet. Each clue is either a
// string ("1, 2") or a list of numbers ([1, 2]):
//
//	size = 3
//	rows = ["3", [], [1]]
//	cols = [[1], "1", "1"]
type puzzleFile struct {
	Size int       `hcl:"size"`
	Rows cty.Value `hcl:"rows"`
	Cols cty.Value `hcl:"cols"`
}

// runSolve implements "picross solve": it reads a puzzle file and prints
// the inferred grid.
func runSolve(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("solve", flag.ContinueOnError)
	file := fs.String("file", "", "HCL puzzle file")
	overlay := fs.Bool("overlay", false, "keep filled cells between passes")
	maxPasses := fs.Int("max-passes", 0, "stop after this many passes (0: no limit)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("solve: -file is required")
	}

	src, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("read puzzle: %w", err)
	}
	sheet, err := DecodePuzzleFile(src, *file)
	if err != nil {
		return err
	}

	s := Solver{MaxPasses: *maxPasses}
	if *overlay {
		s.Mode = ModeOverlay
	}
	n := sheet.Size
	res := s.Solve(n, ParseClues(sheet.Rows, n), ParseClues(sheet.Cols, n))

	fmt.Fprintln(stdout, res.Grid)
	if !res.Settled {
		fmt.Fprintf(stdout, "(stopped after %d passes without settling)\n", res.Passes)
	}
	return nil
}

// DecodePuzzleFile decodes an HCL puzzle file into a clue sheet.
func DecodePuzzleFile(src []byte, filename string) (*ClueSheet, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %s", filename, diags.Error())
	}

	var pf puzzleFile
	diags = gohcl.DecodeBody(file.Body, nil, &pf)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %s", filename, diags.Error())
	}
	if pf.Size < 0 {
		return nil, fmt.Errorf("%s: size must not be negative", filename)
	}

	rows, err := clueLines(pf.Rows)
	if err != nil {
		return nil, fmt.Errorf("%s: rows: %w", filename, err)
	}
	cols, err := clueLines(pf.Cols)
	if err != nil {
		return nil, fmt.Errorf("%s: cols: %w", filename, err)
	}
	return &ClueSheet{Size: pf.Size, Rows: rows, Cols: cols}, nil
}

// clueLines turns a list of clues into raw clue lines.
func clueLines(v cty.Value) ([]string, error) {
	if v.IsNull() || !v.IsWhollyKnown() || !v.CanIterateElements() {
		return nil, fmt.Errorf("expected a list of clues")
	}

	var lines []string
	for it := v.ElementIterator(); it.Next(); {
		_, el := it.Element()
		line, err := clueLine(el)
		if err != nil {
			return nil, fmt.Errorf("clue %d: %w", len(lines), err)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func clueLine(el cty.Value) (string, error) {
	if el.IsNull() {
		return "", nil
	}
	if el.Type() == cty.String || el.Type() == cty.Number {
		s, err := convert.Convert(el, cty.String)
		if err != nil {
			return "", err
		}
		return s.AsString(), nil
	}
	if !el.CanIterateElements() {
		return "", fmt.Errorf("expected a string or a list of numbers, got %s", el.Type().FriendlyName())
	}

	var runs []string
	for it := el.ElementIterator(); it.Next(); {
		_, run := it.Element()
		if run.IsNull() || run.Type() != cty.Number {
			return "", fmt.Errorf("run lengths must be numbers")
		}
		s, err := convert.Convert(run, cty.String)
		if err != nil {
			return "", err
		}
		runs = append(runs, s.AsString())
	}
	return strings.Join(runs, ","), nil
}
