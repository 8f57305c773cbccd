package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mikeboe/company-researcher/pkg/research"
)

// Reuse thresholds for previous-run sources. A stored run needs refreshing
// when it has fewer than 50 sources, but its sources are still considered
// valid to merge when it has at least 5, is fresh enough, and scored well.
// The two thresholds are intentionally distinct.
const (
	RefreshSourceCount  = 50
	MinReusableSources  = 5
	DefaultMaxSourceAge = 7 * 24 * time.Hour
	DefaultMinQuality   = 60.0
)

// StoredRun is the persisted summary of one research run.
type StoredRun struct {
	ID          uuid.UUID
	Subject     string
	Status      string
	Report      string
	Quality     float64
	SourceCount int
	Iterations  int
	CreatedAt   time.Time
}

// NeedsRefresh reports whether a new search round is warranted despite the
// stored run existing.
func (r *StoredRun) NeedsRefresh() bool {
	return r.SourceCount < RefreshSourceCount
}

// Reusable reports whether the run's sources may seed a new run.
func (r *StoredRun) Reusable(now time.Time, maxAge time.Duration, minQuality float64) bool {
	return r.SourceCount >= MinReusableSources &&
		now.Sub(r.CreatedAt) <= maxAge &&
		r.Quality >= minQuality
}

// RunStore persists research runs and their sources, and serves previous
// sources back to the engine. Implements research.RunStore.
type RunStore struct {
	DB *PostgresDB

	MaxSourceAge time.Duration
	MinQuality   float64
}

func NewRunStore(db *PostgresDB) *RunStore {
	return &RunStore{
		DB:           db,
		MaxSourceAge: DefaultMaxSourceAge,
		MinQuality:   DefaultMinQuality,
	}
}

// SaveRun writes a completed run and its sources. The run ID is returned
// so callers can link logs or archive entries to it.
func (s *RunStore) SaveRun(ctx context.Context, result research.Result) (uuid.UUID, error) {
	gapsJSON, _ := json.Marshal(result.Gaps)

	status := "completed"
	if !result.Success {
		status = "failed"
	}

	runID := uuid.New()
	query := `
		INSERT INTO research_runs (id, subject, status, report, quality, source_count, iterations, gaps)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.DB.Pool.Exec(ctx, query,
		runID, result.Subject, status, result.Report, result.Quality,
		len(result.Sources), result.Iterations, gapsJSON)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to save run: %w", err)
	}

	for _, src := range result.Sources {
		_, err := s.DB.Pool.Exec(ctx, `
			INSERT INTO research_sources (run_id, title, url, content, score, provider, query)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, runID, src.Title, src.URL, src.Content, src.Score, src.Provider, src.Query)
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to save source: %w", err)
		}
	}
	return runID, nil
}

// LatestRun loads the most recent completed run for a subject, nil if none.
func (s *RunStore) LatestRun(ctx context.Context, subject string) (*StoredRun, error) {
	query := `
		SELECT id, subject, status, COALESCE(report, ''), quality, source_count, iterations, created_at
		FROM research_runs
		WHERE LOWER(subject) = LOWER($1) AND status = 'completed'
		ORDER BY created_at DESC
		LIMIT 1
	`
	run := &StoredRun{}
	err := s.DB.Pool.QueryRow(ctx, query, subject).Scan(
		&run.ID, &run.Subject, &run.Status, &run.Report, &run.Quality,
		&run.SourceCount, &run.Iterations, &run.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load latest run: %w", err)
	}
	return run, nil
}

// PreviousRun implements research.RunStore: it returns the latest stored
// run's sources when the reuse checks pass, nil otherwise.
func (s *RunStore) PreviousRun(ctx context.Context, subject string) (*research.PreviousRun, error) {
	run, err := s.LatestRun(ctx, subject)
	if err != nil || run == nil {
		return nil, err
	}
	if !run.Reusable(time.Now(), s.MaxSourceAge, s.MinQuality) {
		return nil, nil
	}

	sources, err := s.RunSources(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	return &research.PreviousRun{
		Sources:   sources,
		Quality:   run.Quality,
		CreatedAt: run.CreatedAt,
	}, nil
}

// RecentRuns lists the most recent completed runs.
func (s *RunStore) RecentRuns(ctx context.Context, limit int) ([]StoredRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.DB.Pool.Query(ctx, `
		SELECT id, subject, status, COALESCE(report, ''), quality, source_count, iterations, created_at
		FROM research_runs
		WHERE status = 'completed'
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []StoredRun
	for rows.Next() {
		var run StoredRun
		if err := rows.Scan(&run.ID, &run.Subject, &run.Status, &run.Report, &run.Quality,
			&run.SourceCount, &run.Iterations, &run.CreatedAt); err != nil {
			continue
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// RunSources loads the stored sources of one run.
func (s *RunStore) RunSources(ctx context.Context, runID uuid.UUID) ([]research.SearchResult, error) {
	rows, err := s.DB.Pool.Query(ctx, `
		SELECT title, url, COALESCE(content, ''), score, provider, query
		FROM research_sources
		WHERE run_id = $1
		ORDER BY id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sources: %w", err)
	}
	defer rows.Close()

	var sources []research.SearchResult
	for rows.Next() {
		var src research.SearchResult
		if err := rows.Scan(&src.Title, &src.URL, &src.Content, &src.Score, &src.Provider, &src.Query); err != nil {
			continue
		}
		sources = append(sources, src)
	}
	return sources, nil
}
