package main

import (
	"sync"
	"time"
)

// Cell marks a player can put on a board.
const (
	MarkBlank  = 0
	MarkFilled = 1
	MarkCross  = 2
)

// Player represents a connected player.
type Player struct {
	Pseudo   string    `json:"pseudo"`
	Color    string    `json:"color"`
	JoinedAt time.Time `json:"joined_at"`
}

// GameSession is a shared board on which players try to reproduce a puzzle.
type GameSession struct {
	ID        string             `json:"id"`
	PuzzleID  string             `json:"puzzle_id"`
	Players   map[string]*Player `json:"players"`
	State     [][]int            `json:"state"` // marks [row][col]
	CreatedAt time.Time          `json:"created_at"`
	mu        sync.Mutex
}

// playerColors is the palette assigned to players in order.
var playerColors = []string{
	"#2563eb", "#dc2626", "#16a34a", "#9333ea",
	"#ea580c", "#0891b2", "#c026d3", "#ca8a04",
}

// AddPlayer adds a player to the session and returns the player.
// Joining twice with the same pseudo returns the existing player.
func (g *GameSession) AddPlayer(pseudo string) *Player {
	g.mu.Lock()
	defer g.mu.Unlock()

	if p, ok := g.Players[pseudo]; ok {
		return p
	}

	p := &Player{
		Pseudo:   pseudo,
		Color:    playerColors[len(g.Players)%len(playerColors)],
		JoinedAt: time.Now(),
	}
	g.Players[pseudo] = p
	return p
}

// RemovePlayer removes a player from the session.
func (g *GameSession) RemovePlayer(pseudo string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.Players, pseudo)
}

// PlayerList returns a snapshot of the connected players.
func (g *GameSession) PlayerList() map[string]Player {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.playersLocked()
}

func (g *GameSession) playersLocked() map[string]Player {
	out := make(map[string]Player, len(g.Players))
	for k, p := range g.Players {
		out[k] = *p
	}
	return out
}

// SetCell puts a mark at a given position. Returns false if out of bounds.
func (g *GameSession) SetCell(row, col, mark int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if row < 0 || row >= len(g.State) || col < 0 || col >= len(g.State[row]) {
		return false
	}
	g.State[row][col] = mark
	return true
}

// GetState returns a copy of the current board.
func (g *GameSession) GetState() [][]int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Grid(g.State).Clone()
}

// Progress counts the cells whose filled/not-filled status agrees with
// the solution. A crossed cell counts as not filled.
func (g *GameSession) Progress(solution Grid) (matched, total int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.progressLocked(solution)
}

func (g *GameSession) progressLocked(solution Grid) (matched, total int) {

	for i, row := range solution {
		for j, want := range row {
			total++
			if i < len(g.State) && j < len(g.State[i]) && (g.State[i][j] == MarkFilled) == (want == 1) {
				matched++
			}
		}
	}
	return matched, total
}

// GameView is a consistent snapshot of a session for API responses.
type GameView struct {
	ID        string            `json:"id"`
	PuzzleID  string            `json:"puzzle_id"`
	Players   map[string]Player `json:"players"`
	State     [][]int           `json:"state"`
	CreatedAt time.Time         `json:"created_at"`
	Puzzle    *Puzzle           `json:"puzzle,omitempty"`
	Progress  *Progress         `json:"progress,omitempty"`
}

// View snapshots the session under a single lock. When the puzzle is
// known, the view embeds it along with the board's progress towards its
// grid.
func (g *GameSession) View(p *Puzzle) GameView {
	g.mu.Lock()
	defer g.mu.Unlock()

	v := GameView{
		ID:        g.ID,
		PuzzleID:  g.PuzzleID,
		Players:   g.playersLocked(),
		State:     Grid(g.State).Clone(),
		CreatedAt: g.CreatedAt,
		Puzzle:    p,
	}
	if p != nil {
		matched, total := g.progressLocked(p.Grid)
		v.Progress = &Progress{Matched: matched, Total: total, Solved: matched == total}
	}
	return v
}

func (g *GameSession) progressOf(solution Grid) Progress {
	matched, total := g.Progress(solution)
	return Progress{Matched: matched, Total: total, Solved: matched == total}
}
