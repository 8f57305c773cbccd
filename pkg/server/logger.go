package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mikeboe/company-researcher/pkg/store"
)

// DBLogHandler is a slog.Handler that writes records to the research_logs
// table, keyed by run so the API can serve per-run logs.
type DBLogHandler struct {
	DB    *store.PostgresDB
	RunID uuid.UUID
}

func NewDBLogHandler(db *store.PostgresDB, runID uuid.UUID) *DBLogHandler {
	return &DBLogHandler{
		DB:    db,
		RunID: runID,
	}
}

func (h *DBLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return true // Log everything
}

func (h *DBLogHandler) Handle(ctx context.Context, r slog.Record) error {
	attrs := make(map[string]interface{})
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	metaJSON, err := json.Marshal(attrs)
	if err != nil {
		metaJSON = []byte("{}")
	}

	query := `
		INSERT INTO research_logs (run_id, timestamp, level, message, metadata)
		VALUES ($1, $2, $3, $4, $5)
	`

	// Background context so logs persist even if the request context cancels.
	_, err = h.DB.Pool.Exec(context.Background(), query, h.RunID, r.Time, r.Level.String(), r.Message, metaJSON)
	return err
}

func (h *DBLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	// Pre-bound attributes are dropped; run logs carry their context in
	// the record attrs already.
	return h
}

func (h *DBLogHandler) WithGroup(name string) slog.Handler {
	return h
}
