package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "solve" {
		if err := runSolve(os.Args[2:], os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	configPath := flag.String("config", os.Getenv("PICROSS_CONFIG"), "path to an HCL config file")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx := context.Background()

	var scanner ClueScanner
	if cfg.Gemini.Project != "" {
		gemini, err := NewGeminiClient(ctx, cfg.Gemini, cfg.Limits.MaxGridSize)
		if err != nil {
			logger.Error("Impossible d'initialiser Gemini", "err", err)
			os.Exit(1)
		}
		scanner = gemini
		logger.Info("Client Gemini initialisé", "project", cfg.Gemini.Project, "model", cfg.Gemini.Model)
	} else {
		logger.Info("GCP_PROJECT_ID non défini — analyse d'image désactivée")
	}

	srv := NewServer(NewStore(), scanner, cfg, logger)

	logger.Info("Serveur démarré", "addr", cfg.Listen, "solver", cfg.NewSolver(nil).Mode.String())
	if err := http.ListenAndServe(cfg.Listen, srv); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
