package main

import "strings"

// maxRun caps run lengths so cursor arithmetic cannot overflow on 32-bit ints.
const maxRun = 1 << 30

// Clue is the ordered list of run lengths for one row or column.
type Clue []int

// ParseClue turns a comma-separated clue line into run lengths.
// Tokens are trimmed and read by their leading digits ("3abc" is 3);
// tokens with no leading digits are dropped. It never fails.
func ParseClue(raw string) Clue {
	clue := Clue{}
	for _, tok := range strings.Split(raw, ",") {
		if n, ok := leadingInt(strings.TrimSpace(tok)); ok {
			clue = append(clue, n)
		}
	}
	return clue
}

// ParseClues parses n clue lines. Missing lines yield empty clues and
// extra lines are ignored.
func ParseClues(raw []string, n int) []Clue {
	clues := make([]Clue, n)
	for i := range clues {
		if i < len(raw) {
			clues[i] = ParseClue(raw[i])
		} else {
			clues[i] = Clue{}
		}
	}
	return clues
}

// leadingInt reads the base-10 digit prefix of s, after an optional '+'.
func leadingInt(s string) (int, bool) {
	s = strings.TrimPrefix(s, "+")
	n, digits := 0, 0
	for _, c := range []byte(s) {
		if c < '0' || c > '9' {
			break
		}
		if n <= (maxRun-int(c-'0'))/10 {
			n = n*10 + int(c-'0')
		} else {
			n = maxRun
		}
		digits++
	}
	return n, digits > 0
}
