package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mikeboe/company-researcher/pkg/archive"
	"github.com/mikeboe/company-researcher/pkg/profile"
	"github.com/mikeboe/company-researcher/pkg/research"
	"github.com/mikeboe/company-researcher/pkg/store"
)

// EngineFactory builds a research engine for one run, wired to the given
// logger so run output lands in research_logs.
type EngineFactory func(logger *slog.Logger) *research.Engine

type Service struct {
	DB        *store.PostgresDB
	NewEngine EngineFactory
	Archive   *archive.Archive // optional, indexes sources after a run
	Profiles  map[string]*research.Profile
}

func NewService(db *store.PostgresDB, factory EngineFactory) *Service {
	return &Service{
		DB:        db,
		NewEngine: factory,
	}
}

type Run struct {
	ID          uuid.UUID       `json:"id"`
	Subject     string          `json:"subject"`
	Status      string          `json:"status"`
	Report      *string         `json:"report,omitempty"`
	Quality     float64         `json:"quality"`
	SourceCount int             `json:"source_count"`
	Iterations  int             `json:"iterations"`
	Gaps        json.RawMessage `json:"gaps,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Config      json.RawMessage `json:"config,omitempty"`
}

type CreateRunRequest struct {
	Subject  string `json:"subject"`
	Depth    string `json:"depth,omitempty"`
	Strategy string `json:"strategy,omitempty"`
}

func (s *Service) CreateRun(ctx context.Context, req CreateRunRequest) (*Run, error) {
	depth := research.Depth(req.Depth)
	if depth == "" {
		depth = research.DepthStandard
	}
	strategy := research.Strategy(req.Strategy)
	if strategy == "" {
		strategy = research.StrategyAuto
	}

	configJSON, _ := json.Marshal(map[string]interface{}{
		"depth":    depth,
		"strategy": strategy,
	})

	runID := uuid.New()
	query := `
		INSERT INTO research_runs (id, subject, status, config)
		VALUES ($1, $2, 'pending', $3)
		RETURNING id, subject, status, created_at, updated_at
	`

	run := &Run{}
	err := s.DB.Pool.QueryRow(ctx, query, runID, req.Subject, configJSON).Scan(
		&run.ID, &run.Subject, &run.Status, &run.CreatedAt, &run.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	// Start background worker
	go s.runWorker(run.ID, req.Subject, depth, strategy)

	return run, nil
}

func (s *Service) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	query := `
		SELECT id, subject, status, report, quality, source_count, iterations, gaps, created_at, updated_at, config
		FROM research_runs
		WHERE id = $1
	`
	run := &Run{}
	err := s.DB.Pool.QueryRow(ctx, query, id).Scan(
		&run.ID, &run.Subject, &run.Status, &run.Report, &run.Quality,
		&run.SourceCount, &run.Iterations, &run.Gaps, &run.CreatedAt, &run.UpdatedAt, &run.Config,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

func (s *Service) ListRuns(ctx context.Context) ([]Run, error) {
	query := `
		SELECT id, subject, status, report, quality, source_count, iterations, gaps, created_at, updated_at, config
		FROM research_runs
		ORDER BY created_at DESC
		LIMIT 50
	`
	rows, err := s.DB.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.Subject, &run.Status, &run.Report, &run.Quality,
			&run.SourceCount, &run.Iterations, &run.Gaps, &run.CreatedAt, &run.UpdatedAt, &run.Config); err != nil {
			continue
		}
		runs = append(runs, run)
	}
	return runs, nil
}

type LogEntry struct {
	ID        int             `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Level     string          `json:"level"`
	Message   string          `json:"message"`
	Metadata  json.RawMessage `json:"metadata"`
}

func (s *Service) GetRunLogs(ctx context.Context, runID uuid.UUID) ([]LogEntry, error) {
	query := `
		SELECT id, timestamp, level, message, metadata
		FROM research_logs
		WHERE run_id = $1
		ORDER BY id ASC
	`
	rows, err := s.DB.Pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get logs: %w", err)
	}
	defer rows.Close()

	var logs []LogEntry
	for rows.Next() {
		var l LogEntry
		if err := rows.Scan(&l.ID, &l.Timestamp, &l.Level, &l.Message, &l.Metadata); err != nil {
			continue
		}
		logs = append(logs, l)
	}
	return logs, nil
}

func (s *Service) runWorker(runID uuid.UUID, subject string, depth research.Depth, strategy research.Strategy) {
	ctx := context.Background()

	_, _ = s.DB.Pool.Exec(ctx, "UPDATE research_runs SET status = 'running', updated_at = NOW() WHERE id = $1", runID)

	dbLogger := slog.New(NewDBLogHandler(s.DB, runID))

	engine := s.NewEngine(dbLogger)

	// Hook for progress persistence
	engine.OnStateUpdate = func(state research.ResearchState) {
		gapsJSON, err := json.Marshal(state.Gaps)
		if err != nil {
			dbLogger.Error("Failed to marshal gaps", "error", err)
			return
		}

		_, err = s.DB.Pool.Exec(context.Background(),
			"UPDATE research_runs SET quality = $2, source_count = $3, iterations = $4, gaps = $5, updated_at = NOW() WHERE id = $1",
			runID, state.Quality, len(state.Sources), state.Iteration, gapsJSON)

		if err != nil {
			dbLogger.Error("Failed to save progress", "error", err)
		}
	}

	result := engine.ResearchCompany(ctx, subject, s.profileFor(subject), depth, strategy)
	if !result.Success {
		s.failRun(ctx, runID, fmt.Sprintf("Research failed: %v", result.Err))
		return
	}

	gapsJSON, _ := json.Marshal(result.Gaps)
	_, err := s.DB.Pool.Exec(ctx, `
		UPDATE research_runs
		SET status = 'completed', report = $2, quality = $3, source_count = $4, iterations = $5, gaps = $6, updated_at = NOW()
		WHERE id = $1
	`, runID, result.Report, result.Quality, len(result.Sources), result.Iterations, gapsJSON)
	if err != nil {
		dbLogger.Error("Failed to save final report to DB", "error", err)
		return
	}

	for _, src := range result.Sources {
		_, err := s.DB.Pool.Exec(ctx, `
			INSERT INTO research_sources (run_id, title, url, content, score, provider, query)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, runID, src.Title, src.URL, src.Content, src.Score, src.Provider, src.Query)
		if err != nil {
			dbLogger.Error("Failed to save source", "error", err, "url", src.URL)
		}
	}

	if s.Archive != nil {
		if err := s.Archive.IndexRun(ctx, runID, subject, result.Sources); err != nil {
			dbLogger.Error("Failed to index sources", "error", err)
		}
	}
}

// profileFor resolves the configured profile for a subject; nil when no
// profile matches, which the engine treats as topic-style research input.
func (s *Service) profileFor(subject string) *research.Profile {
	return profile.ForSubject(s.Profiles, subject)
}

func (s *Service) failRun(ctx context.Context, runID uuid.UUID, reason string) {
	dbLogger := slog.New(NewDBLogHandler(s.DB, runID))
	dbLogger.Error(reason)

	_, _ = s.DB.Pool.Exec(ctx, "UPDATE research_runs SET status = 'failed', updated_at = NOW() WHERE id = $1", runID)
}
