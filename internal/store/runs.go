package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/keepsake/internal/analysis"
)

// Run is a persisted pipeline run.
type Run struct {
	ID                 uuid.UUID        `json:"id"`
	Messages           int              `json:"messages"`
	Batches            int              `json:"batches"`
	FailedBatches      int              `json:"failed_batches"`
	Profile            analysis.Profile `json:"profile"`
	GiftIdeas          string           `json:"gift_ideas"`
	RelationshipReport string           `json:"relationship_report"`
	CreatedAt          time.Time        `json:"created_at"`
}

// WriteRun persists a completed report.
func (s *Store) WriteRun(ctx context.Context, report *analysis.Report) error {
	profile, err := json.Marshal(report.Profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO analysis_runs (id, messages, batches, failed_batches, profile, gift_ideas, relationship_report, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())`,
		report.RunID, report.Messages, report.Batches, report.FailedBatches,
		profile, report.GiftIdeas, report.RelationshipReport,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetRun fetches one persisted run by id.
func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	var (
		run     Run
		profile []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, messages, batches, failed_batches, profile, gift_ideas, relationship_report, created_at
		FROM analysis_runs WHERE id = $1`, id,
	).Scan(&run.ID, &run.Messages, &run.Batches, &run.FailedBatches,
		&profile, &run.GiftIdeas, &run.RelationshipReport, &run.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("select run %s: %w", id, err)
	}
	if err := json.Unmarshal(profile, &run.Profile); err != nil {
		return nil, fmt.Errorf("unmarshal profile: %w", err)
	}
	return &run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, messages, batches, failed_batches, profile, gift_ideas, relationship_report, created_at
		FROM analysis_runs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run     Run
			profile []byte
		)
		if err := rows.Scan(&run.ID, &run.Messages, &run.Batches, &run.FailedBatches,
			&profile, &run.GiftIdeas, &run.RelationshipReport, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if err := json.Unmarshal(profile, &run.Profile); err != nil {
			return nil, fmt.Errorf("unmarshal profile: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
