package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/moments/moments-agent/internal/config"
	"github.com/moments/moments-agent/internal/db"
	"github.com/moments/moments-agent/internal/project"
)

// store is the persisted state shared by the server and the project
// commands.
type store struct {
	cfg      *config.EnvConfig
	db       *db.DB
	projects *project.Service
	logger   *slog.Logger
}

func openStore(cfg *config.EnvConfig, logger *slog.Logger) (*store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	repo := project.NewRepository(database.Conn())
	return &store{
		cfg:      cfg,
		db:       database,
		projects: project.NewService(repo, cfg.LibraryDir(), logger),
		logger:   logger,
	}, nil
}

func (s *store) Close() error {
	return s.db.Close()
}

// findProject resolves an exact id or a unique id prefix.
func (s *store) findProject(ctx context.Context, ref string) (*project.Project, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("project id is required")
	}
	if p := s.projects.Get(ctx, ref); p != nil {
		return p, nil
	}
	var match *project.Project
	for _, p := range s.projects.List(ctx) {
		if !strings.HasPrefix(p.ID, ref) {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("project id %q is ambiguous", ref)
		}
		match = p
	}
	if match == nil {
		return nil, fmt.Errorf("project %s not found", ref)
	}
	return match, nil
}

func ensureDeviceID(ctx context.Context, database *db.DB) (string, error) {
	return ensureSecret(ctx, database, "device_id", 16)
}

func ensureAuthToken(ctx context.Context, database *db.DB) (string, error) {
	return ensureSecret(ctx, database, "auth_token", 32)
}

func ensureSecret(ctx context.Context, database *db.DB, key string, size int) (string, error) {
	existing, err := database.GetConfig(ctx, key)
	if err == nil && existing != "" {
		return existing, nil
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	value := hex.EncodeToString(buf)

	if err := database.SetConfig(ctx, key, value); err != nil {
		return "", err
	}
	return value, nil
}
