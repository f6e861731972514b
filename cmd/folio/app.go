package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/kalambet/folio/internal/config"
	"github.com/kalambet/folio/internal/gemini"
	"github.com/kalambet/folio/internal/logging"
	"github.com/kalambet/folio/internal/profile"
)

// app bundles what every command that talks to the model needs.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	snapshot *profile.Snapshot
	gemini   *gemini.Client
}

// loadApp reads config, sets up logging on logOut and builds the profile
// snapshot and inference client.
func loadApp(logOut io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := logging.New(logOut, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	if cfg.MissingAPIKey() {
		logger.Warn("no Gemini API key configured; assistant will answer with the offline reply",
			"env", "FOLIO_GEMINI_API_KEY")
	}

	snap, err := loadSnapshot(cfg)
	if err != nil {
		return nil, err
	}

	client := gemini.NewClient(cfg.Gemini.APIKey,
		gemini.WithBaseURL(cfg.Gemini.BaseURL),
		gemini.WithModel(cfg.Gemini.Model),
		gemini.WithAttemptTimeout(cfg.Gemini.AttemptTimeout),
		gemini.WithLogger(logger),
	)

	return &app{cfg: cfg, logger: logger, snapshot: snap, gemini: client}, nil
}

func loadSnapshot(cfg config.Config) (*profile.Snapshot, error) {
	p, err := profile.Load(cfg.Profile.Path)
	if err != nil {
		return nil, err
	}

	var resume string
	if cfg.Profile.ResumePDF != "" {
		resume, err = profile.ExtractResumeText(cfg.Profile.ResumePDF)
		if err != nil {
			// The CV stays downloadable even if its text can't be extracted.
			slog.Warn("resume text unavailable", "path", cfg.Profile.ResumePDF, "error", err)
			resume = ""
		}
	}

	snap, err := profile.NewSnapshot(p, resume)
	if err != nil {
		return nil, fmt.Errorf("building profile context: %w", err)
	}
	return snap, nil
}
