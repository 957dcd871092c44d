package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	maxUploadSize = 10 << 20 // 10 Mo
	maxBodySize   = 1 << 20
	maxPseudoLen  = 20
)

// ClueScanner reads a clue sheet from a photo of a puzzle.
type ClueScanner interface {
	ScanClues(ctx context.Context, imageData []byte, mimeType string) (*ClueSheet, error)
}

// Server is the main HTTP server.
type Server struct {
	mux         *http.ServeMux
	store       *Store
	scanner     ClueScanner
	solver      Solver
	sse         *Broadcaster
	uploadRL    *rateLimiter
	moveRL      *rateLimiter
	maxGridSize int
	logger      *slog.Logger
}

// NewServer creates a configured HTTP server. scanner may be nil, in
// which case scanning requests are refused.
func NewServer(store *Store, scanner ClueScanner, cfg *Config, logger *slog.Logger) *Server {
	s := &Server{
		mux:         http.NewServeMux(),
		store:       store,
		scanner:     scanner,
		solver:      cfg.NewSolver(logger),
		sse:         NewBroadcaster(logger),
		uploadRL:    newRateLimiter(cfg.Limits.UploadsPerMinute, time.Minute),
		moveRL:      newRateLimiter(cfg.Limits.MovesPerSecond, time.Second),
		maxGridSize: cfg.Limits.MaxGridSize,
		logger:      logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	// Solver API
	s.mux.HandleFunc("POST /api/solve", s.handleSolve)

	// Puzzle API
	s.mux.HandleFunc("POST /api/puzzles", s.handleCreatePuzzle)
	s.mux.HandleFunc("POST /api/puzzles/scan", s.handleScanPuzzle)
	s.mux.HandleFunc("GET /api/puzzles", s.handleListPuzzles)
	s.mux.HandleFunc("GET /api/puzzles/{id}", s.handleGetPuzzle)

	// Game API
	s.mux.HandleFunc("POST /api/games", s.handleCreateGame)
	s.mux.HandleFunc("GET /api/games", s.handleListGames)
	s.mux.HandleFunc("GET /api/games/{id}", s.handleGetGame)
	s.mux.HandleFunc("POST /api/games/{id}/join", s.handleJoinGame)
	s.mux.HandleFunc("POST /api/games/{id}/move", s.handleMove)
	s.mux.HandleFunc("GET /api/games/{id}/events", s.handleGameEvents)

	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "ok")
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
	s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
	s.mux.ServeHTTP(w, r)
}

// --- Solver and puzzle handlers ---

type sheetRequest struct {
	Size *int     `json:"size"`
	Rows []string `json:"rows"`
	Cols []string `json:"cols"`
	Mode string   `json:"mode"`
}

// decodeSheetRequest reads a clue sheet body and the solver to use for it.
// It writes the error response itself and reports false on failure.
func (s *Server) decodeSheetRequest(w http.ResponseWriter, r *http.Request) (ClueSheet, Solver, bool) {
	var req sheetRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Size == nil {
		jsonError(w, "Champs 'size', 'rows' et 'cols' requis", http.StatusBadRequest)
		return ClueSheet{}, Solver{}, false
	}
	if *req.Size < 1 || *req.Size > s.maxGridSize {
		jsonError(w, "Taille de grille invalide", http.StatusBadRequest)
		return ClueSheet{}, Solver{}, false
	}

	solver := s.solver
	if req.Mode != "" {
		mode, err := parseMode(req.Mode)
		if err != nil {
			jsonError(w, "Mode inconnu : reset ou overlay", http.StatusBadRequest)
			return ClueSheet{}, Solver{}, false
		}
		solver.Mode = mode
	}

	return ClueSheet{Size: *req.Size, Rows: req.Rows, Cols: req.Cols}, solver, true
}

// POST /api/solve — solve a clue sheet without storing it.
func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	sheet, solver, ok := s.decodeSheetRequest(w, r)
	if !ok {
		return
	}

	n := sheet.Size
	res := solver.Solve(n, ParseClues(sheet.Rows, n), ParseClues(sheet.Cols, n))
	writeJSON(w, http.StatusOK, res)
}

// POST /api/puzzles — solve a clue sheet and add it to the catalogue.
func (s *Server) handleCreatePuzzle(w http.ResponseWriter, r *http.Request) {
	sheet, solver, ok := s.decodeSheetRequest(w, r)
	if !ok {
		return
	}

	p := s.store.SavePuzzle(NewPuzzle(sheet, SourceManual, solver))
	s.logger.Info("puzzle created", "id", p.ID, "size", p.Size, "settled", p.Settled)
	writeJSON(w, http.StatusCreated, p)
}

// POST /api/puzzles/scan — read clues from a photo, solve and save them.
func (s *Server) handleScanPuzzle(w http.ResponseWriter, r *http.Request) {
	if !s.uploadRL.allow(clientIP(r.RemoteAddr)) {
		jsonError(w, "Trop de requêtes, réessayez plus tard", http.StatusTooManyRequests)
		return
	}

	if s.scanner == nil {
		jsonError(w, "Analyse d'image non configurée", http.StatusServiceUnavailable)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		jsonError(w, "Image trop volumineuse (max 10 Mo)", http.StatusRequestEntityTooLarge)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		jsonError(w, "Champ 'image' requis", http.StatusBadRequest)
		return
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	if !allowedMIME[mimeType] {
		jsonError(w, "Format accepté : JPEG, PNG, WebP ou BMP", http.StatusBadRequest)
		return
	}

	raw, err := io.ReadAll(file)
	if err != nil {
		jsonError(w, "Erreur de lecture de l'image", http.StatusInternalServerError)
		return
	}

	imageData, mimeType, err := prepareImage(raw, mimeType)
	if err != nil {
		s.logger.Warn("rejected upload", "err", err)
		jsonError(w, "Image illisible", http.StatusBadRequest)
		return
	}

	sheet, err := s.scanner.ScanClues(r.Context(), imageData, mimeType)
	if err != nil {
		s.logger.Error("scan clues", "path", r.URL.Path, "err", err)
		if errors.Is(err, ErrInvalidSheet) {
			jsonError(w, "Indices introuvables sur l'image", http.StatusUnprocessableEntity)
			return
		}
		jsonError(w, "Erreur lors de l'analyse de la grille", http.StatusInternalServerError)
		return
	}

	p := s.store.SavePuzzle(NewPuzzle(*sheet, SourceScan, s.solver))
	s.logger.Info("puzzle scanned", "id", p.ID, "size", p.Size, "settled", p.Settled)
	writeJSON(w, http.StatusCreated, p)
}

// GET /api/puzzles — list all puzzles.
func (s *Server) handleListPuzzles(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ListPuzzles())
}

// GET /api/puzzles/{id} — get a single puzzle.
func (s *Server) handleGetPuzzle(w http.ResponseWriter, r *http.Request) {
	p := s.store.GetPuzzle(r.PathValue("id"))
	if p == nil {
		jsonError(w, "Puzzle introuvable", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// --- Game handlers ---

// POST /api/games — open a game on a puzzle.
func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PuzzleID string `json:"puzzle_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PuzzleID == "" {
		jsonError(w, "Champ 'puzzle_id' requis", http.StatusBadRequest)
		return
	}

	game, err := s.store.CreateGame(req.PuzzleID)
	if err != nil {
		jsonError(w, "Puzzle introuvable", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusCreated, game.View(s.store.GetPuzzle(game.PuzzleID)))
}

// GET /api/games — list open games.
func (s *Server) handleListGames(w http.ResponseWriter, _ *http.Request) {
	games := s.store.ListGames()
	views := make([]GameView, 0, len(games))
	for _, g := range games {
		views = append(views, g.View(nil))
	}
	writeJSON(w, http.StatusOK, views)
}

// GET /api/games/{id} — get current game state.
func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	game := s.store.GetGame(r.PathValue("id"))
	if game == nil {
		jsonError(w, "Partie introuvable", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, game.View(s.store.GetPuzzle(game.PuzzleID)))
}

// POST /api/games/{id}/join — join a game with a pseudo.
func (s *Server) handleJoinGame(w http.ResponseWriter, r *http.Request) {
	game := s.store.GetGame(r.PathValue("id"))
	if game == nil {
		jsonError(w, "Partie introuvable", http.StatusNotFound)
		return
	}

	var req struct {
		Pseudo string `json:"pseudo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Pseudo == "" {
		jsonError(w, "Champ 'pseudo' requis", http.StatusBadRequest)
		return
	}

	pseudo := sanitizePseudo(req.Pseudo)
	if pseudo == "" {
		jsonError(w, "Pseudo invalide", http.StatusBadRequest)
		return
	}

	player := game.AddPlayer(pseudo)
	s.sse.Publish(game.ID, Event{Type: EventPlayerJoined, Pseudo: player.Pseudo, Color: player.Color})

	writeJSON(w, http.StatusOK, player)
}

// POST /api/games/{id}/move — mark a cell.
func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	if !s.moveRL.allow(clientIP(r.RemoteAddr)) {
		jsonError(w, "Trop de requêtes, réessayez plus tard", http.StatusTooManyRequests)
		return
	}

	game := s.store.GetGame(r.PathValue("id"))
	if game == nil {
		jsonError(w, "Partie introuvable", http.StatusNotFound)
		return
	}

	var req struct {
		Pseudo string `json:"pseudo"`
		Row    int    `json:"row"`
		Col    int    `json:"col"`
		Mark   *int   `json:"mark"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Mark == nil {
		jsonError(w, "Requête invalide", http.StatusBadRequest)
		return
	}

	mark := *req.Mark
	if mark != MarkBlank && mark != MarkFilled && mark != MarkCross {
		jsonError(w, "Marque invalide : 0 (vide), 1 (rempli) ou 2 (croix)", http.StatusBadRequest)
		return
	}

	if !game.SetCell(req.Row, req.Col, mark) {
		jsonError(w, "Position hors limites", http.StatusBadRequest)
		return
	}

	evt := Event{
		Type:   EventCellUpdate,
		Pseudo: sanitizePseudo(req.Pseudo),
		Row:    &req.Row,
		Col:    &req.Col,
		Mark:   &mark,
	}
	if p := s.store.GetPuzzle(game.PuzzleID); p != nil {
		prog := game.progressOf(p.Grid)
		evt.Progress = &prog
	}
	s.sse.Publish(game.ID, evt)

	w.WriteHeader(http.StatusNoContent)
}

// GET /api/games/{id}/events — SSE stream.
func (s *Server) handleGameEvents(w http.ResponseWriter, r *http.Request) {
	game := s.store.GetGame(r.PathValue("id"))
	if game == nil {
		jsonError(w, "Partie introuvable", http.StatusNotFound)
		return
	}

	playerPseudo := sanitizePseudo(r.URL.Query().Get("pseudo"))

	s.sse.ServeSSE(w, r, game.ID, func(c *client) {
		// Send the current board on connect.
		view := game.View(s.store.GetPuzzle(game.PuzzleID))
		err := c.send(Event{
			Type:     EventGameState,
			State:    view.State,
			Players:  view.Players,
			Progress: view.Progress,
		})
		if err != nil {
			s.logger.Warn("initial game state", "game", game.ID, "err", err)
		}
	}, func() {
		if playerPseudo != "" {
			game.RemovePlayer(playerPseudo)
			s.sse.Publish(game.ID, Event{Type: EventPlayerLeft, Pseudo: playerPseudo})
		}
	})
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// sanitizePseudo trims, NFC-normalises and drops control characters,
// then cuts the pseudo to maxPseudoLen runes.
func sanitizePseudo(s string) string {
	s = norm.NFC.String(strings.TrimSpace(s))
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	if utf8.RuneCountInString(s) > maxPseudoLen {
		s = string([]rune(s)[:maxPseudoLen])
	}
	return strings.TrimSpace(s)
}
