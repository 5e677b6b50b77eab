// Package deck reconciles the configured card sources with the card store.
package deck

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/conorfennell/revisa/internal/gitsource"
	"github.com/conorfennell/revisa/internal/knol"
	"github.com/conorfennell/revisa/internal/parser"
	"github.com/conorfennell/revisa/internal/storage"
)

// GitSyncFunc fetches a remote deck into localPath.
type GitSyncFunc func(ctx context.Context, repoURL, localPath string, progress io.Writer, logger *slog.Logger) error

// Syncer walks every source and brings the cards table in line with it.
type Syncer struct {
	db       *storage.DB
	logger   *slog.Logger
	reposDir string

	// Git and Progress default to gitsource.Sync and no progress output.
	Git      GitSyncFunc
	Progress io.Writer
	Now      func() time.Time
}

// NewSyncer returns a Syncer cloning git sources under reposDir.
func NewSyncer(db *storage.DB, reposDir string, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		db:       db,
		logger:   logger,
		reposDir: reposDir,
		Git:      gitsource.Sync,
		Now:      time.Now,
	}
}

// SourceReport summarises the reconciliation of one source.
type SourceReport struct {
	SourceID int64    `json:"source_id"`
	Path     string   `json:"path"`
	Parsed   int      `json:"parsed"`
	Inserted int      `json:"inserted"`
	Deleted  int      `json:"deleted"`
	Errors   []string `json:"errors,omitempty"`
}

// Report is the outcome of a full sync.
type Report struct {
	Sources []SourceReport `json:"sources"`
}

// Failed reports whether any source had errors.
func (r Report) Failed() bool {
	for _, s := range r.Sources {
		if len(s.Errors) > 0 {
			return true
		}
	}
	return false
}

// Run iterates over all sources and reconciles them. Failures of a single
// source are logged and recorded in the report; only failures to read the
// source list abort the run.
func (s *Syncer) Run(ctx context.Context) (Report, error) {
	s.logger.Info("starting sync for all sources")
	sources, err := s.db.GetAllSources(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("failed to get sources: %w", err)
	}

	report := Report{Sources: make([]SourceReport, 0, len(sources))}
	if len(sources) == 0 {
		s.logger.Info("no sources configured")
		return report, nil
	}

	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		s.logger.Info("syncing source", "id", source.ID, "type", source.Type, "path", source.Path)
		report.Sources = append(report.Sources, s.syncSource(ctx, source))
	}
	s.logger.Info("sync complete", "sources", len(sources))
	return report, nil
}

func (s *Syncer) syncSource(ctx context.Context, source storage.Source) SourceReport {
	rep := SourceReport{SourceID: source.ID, Path: source.Path}
	dir := source.Path

	switch source.Type {
	case storage.SourceLocal:
	case storage.SourceGit:
		localPath, err := gitsource.LocalPath(s.reposDir, source.Path)
		if err != nil {
			s.logger.Error("error determining local path for git repo", "url", source.Path, "error", err)
			rep.Errors = append(rep.Errors, err.Error())
			return rep
		}
		if err := s.Git(ctx, source.Path, localPath, s.Progress, s.logger); err != nil {
			s.logger.Error("error syncing git repo", "url", source.Path, "error", err)
			rep.Errors = append(rep.Errors, err.Error())
			return rep
		}
		dir = localPath
	default:
		err := fmt.Errorf("unknown source type %q", source.Type)
		s.logger.Error("cannot sync source", "id", source.ID, "error", err)
		rep.Errors = append(rep.Errors, err.Error())
		return rep
	}

	s.reconcile(ctx, source.ID, dir, &rep)
	return rep
}

func (s *Syncer) reconcile(ctx context.Context, sourceID int64, dir string, rep *SourceReport) {
	found := make(map[string]bool)
	now := s.Now()

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}

		fileCards, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			rep.Errors = append(rep.Errors, fmt.Sprintf("parsing %s: %v", path, parseErr))
		}
		for _, card := range fileCards {
			card.Hash = knol.Hash(card)
			rep.Parsed++
			if found[card.Hash] {
				continue
			}
			found[card.Hash] = true

			existing, err := s.db.FindCardByHash(ctx, card.Hash)
			if err != nil {
				rep.Errors = append(rep.Errors, fmt.Sprintf("db check for %s: %v", card.Hash, err))
				continue
			}
			if existing != nil {
				continue
			}
			s.logger.Debug("new card found, inserting", "hash", card.Hash)
			if err := s.db.InsertCard(ctx, card, sourceID, now); err != nil {
				rep.Errors = append(rep.Errors, fmt.Sprintf("db insert for %s: %v", card.Hash, err))
				continue
			}
			rep.Inserted++
		}
		return nil
	})
	if walkErr != nil {
		if errors.Is(walkErr, os.ErrNotExist) {
			walkErr = fmt.Errorf("source directory %s does not exist", dir)
		}
		s.logger.Error("error walking directory", "path", dir, "error", walkErr)
		rep.Errors = append(rep.Errors, walkErr.Error())
		// A missing or unreadable tree must not be read as "every card was removed".
		return
	}

	hashes, err := s.db.CardHashesBySource(ctx, sourceID)
	if err != nil {
		s.logger.Error("error getting cards for source", "source_id", sourceID, "error", err)
		rep.Errors = append(rep.Errors, err.Error())
		return
	}
	for _, h := range hashes {
		if found[h] {
			continue
		}
		s.logger.Info("orphaned card, deleting", "hash", h)
		if err := s.db.DeleteCardByHash(ctx, h); err != nil {
			s.logger.Warn("failed to delete orphaned card", "hash", h, "error", err)
			rep.Errors = append(rep.Errors, err.Error())
			continue
		}
		rep.Deleted++
	}

	if err := s.db.UpdateSourceLastScanned(ctx, sourceID, now); err != nil {
		s.logger.Warn("failed to update last scanned for source", "source_id", sourceID, "error", err)
	}

	s.logger.Info("reconciliation complete",
		"path", dir,
		"parsed_cards", rep.Parsed,
		"inserted", rep.Inserted,
		"orphaned_deleted", rep.Deleted,
		"errors", len(rep.Errors),
	)
}

// AddSource registers a local directory or git URL as a card source.
func AddSource(ctx context.Context, db *storage.DB, path string) (storage.Source, error) {
	sourceType := storage.SourceLocal
	if gitsource.IsRemote(path) {
		sourceType = storage.SourceGit
	} else {
		abs, err := filepath.Abs(path)
		if err != nil {
			return storage.Source{}, fmt.Errorf("resolve %s: %w", path, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return storage.Source{}, fmt.Errorf("source %s: %w", abs, err)
		}
		if !info.IsDir() {
			return storage.Source{}, fmt.Errorf("source %s is not a directory", abs)
		}
		path = abs
	}

	existing, err := db.FindSourceByPath(ctx, path)
	if err != nil {
		return storage.Source{}, err
	}
	if existing != nil {
		return *existing, nil
	}

	id, err := db.InsertSource(ctx, path, sourceType)
	if err != nil {
		return storage.Source{}, err
	}
	return storage.Source{ID: id, Path: path, Type: sourceType}, nil
}
