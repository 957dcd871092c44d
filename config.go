package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

const (
	defaultListen           = ":8080"
	defaultMaxGridSize      = 20
	defaultUploadsPerMinute = 5
	defaultMovesPerSecond   = 60
)

// Config is the server configuration, read from an HCL file:
//
//	listen    = ":8080"
//	log_level = "debug"
//
//	gemini {
//	  project = env.GCP_PROJECT_ID
//	  region  = "europe-west1"
//	}
//
//	limits {
//	  max_grid_size = 20
//	}
//
//	solver {
//	  mode = "overlay"
//	}
type Config struct {
	Listen   string        `hcl:"listen,optional"`
	LogLevel string        `hcl:"log_level,optional"`
	Gemini   *GeminiConfig `hcl:"gemini,block"`
	Limits   *LimitsConfig `hcl:"limits,block"`
	Solver   *SolverConfig `hcl:"solver,block"`
}

// GeminiConfig selects the Vertex AI project used to scan clue sheets.
// An empty project disables scanning.
type GeminiConfig struct {
	Project string `hcl:"project,optional"`
	Region  string `hcl:"region,optional"`
	Model   string `hcl:"model,optional"`
}

// LimitsConfig bounds the grid size accepted by the API and the per-IP
// rates for image uploads and moves. Zero values take the defaults.
type LimitsConfig struct {
	MaxGridSize      int `hcl:"max_grid_size,optional"`
	UploadsPerMinute int `hcl:"uploads_per_minute,optional"`
	MovesPerSecond   int `hcl:"moves_per_second,optional"`
}

// SolverConfig selects the solver mode ("reset" or "overlay") and an
// optional pass ceiling, 0 meaning none.
type SolverConfig struct {
	Mode      string `hcl:"mode,optional"`
	MaxPasses int    `hcl:"max_passes,optional"`
}

// LoadConfig reads the config file at path, if any, then applies the
// PORT, GCP_PROJECT_ID and GCP_REGION environment variables on top.
func LoadConfig(path string) (*Config, error) {
	env := environ()

	cfg := &Config{}
	if path != "" {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if cfg, err = ParseConfig(src, path, env); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv(env)
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, configError(path, err)
	}
	return cfg, nil
}

// ParseConfig decodes an HCL config. Expressions may read environment
// variables through the env object, as in env.GCP_PROJECT_ID.
func ParseConfig(src []byte, filename string, env map[string]string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %s", filename, diags.Error())
	}

	var cfg Config
	diags = gohcl.DecodeBody(file.Body, envContext(env), &cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %s", filename, diags.Error())
	}
	return &cfg, nil
}

func envContext(env map[string]string) *hcl.EvalContext {
	vals := make(map[string]cty.Value, len(env))
	for k, v := range env {
		vals[k] = cty.StringVal(v)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": cty.ObjectVal(vals)},
	}
}

func environ() map[string]string {
	env := make(map[string]string)
	for _, e := range os.Environ() {
		pair := strings.SplitN(e, "=", 2)
		if len(pair) == 2 {
			env[pair[0]] = pair[1]
		}
	}
	return env
}

func (c *Config) applyEnv(env map[string]string) {
	if port := env["PORT"]; port != "" {
		c.Listen = ":" + port
	}
	if c.Gemini == nil {
		c.Gemini = &GeminiConfig{}
	}
	if project := env["GCP_PROJECT_ID"]; project != "" {
		c.Gemini.Project = project
	}
	if region := env["GCP_REGION"]; region != "" {
		c.Gemini.Region = region
	}
}

func (c *Config) setDefaults() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Gemini == nil {
		c.Gemini = &GeminiConfig{}
	}
	if c.Gemini.Region == "" {
		c.Gemini.Region = defaultRegion
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = defaultModel
	}
	if c.Limits == nil {
		c.Limits = &LimitsConfig{}
	}
	if c.Limits.MaxGridSize <= 0 {
		c.Limits.MaxGridSize = defaultMaxGridSize
	}
	if c.Limits.UploadsPerMinute <= 0 {
		c.Limits.UploadsPerMinute = defaultUploadsPerMinute
	}
	if c.Limits.MovesPerSecond <= 0 {
		c.Limits.MovesPerSecond = defaultMovesPerSecond
	}
	if c.Solver == nil {
		c.Solver = &SolverConfig{}
	}
}

// configError prefixes a validation error with the config file, if any.
func configError(path string, err error) error {
	if path == "" {
		return fmt.Errorf("config: %w", err)
	}
	return fmt.Errorf("config %s: %w", path, err)
}

func (c *Config) validate() error {
	if _, err := parseMode(c.Solver.Mode); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.Solver.MaxPasses < 0 {
		return fmt.Errorf("solver.max_passes must not be negative, got %d", c.Solver.MaxPasses)
	}
	return nil
}

// Level returns the configured log level, info by default.
func (c *Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return lvl, nil
}

// NewSolver builds the solver described by the solver block.
func (c *Config) NewSolver(logger *slog.Logger) Solver {
	mode, _ := parseMode(c.Solver.Mode)
	return Solver{Mode: mode, MaxPasses: c.Solver.MaxPasses, Logger: logger}
}

func parseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "reset":
		return ModeReset, nil
	case "overlay":
		return ModeOverlay, nil
	}
	return 0, fmt.Errorf("unknown solver mode %q", s)
}
