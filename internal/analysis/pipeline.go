package analysis

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/keepsake/internal/chat"
	"github.com/MikeSquared-Agency/keepsake/internal/events"
	"github.com/MikeSquared-Agency/keepsake/internal/keypool"
)

// ErrNoMessages is returned when a run is started with an empty transcript.
var ErrNoMessages = errors.New("analysis: no messages to analyze")

// Report is the output of one full pipeline run.
type Report struct {
	RunID              uuid.UUID `json:"run_id"`
	Messages           int       `json:"messages"`
	Batches            int       `json:"batches"`
	FailedBatches      int       `json:"failed_batches"`
	Profile            Profile   `json:"profile"`
	GiftIdeas          string    `json:"gift_ideas"`
	RelationshipReport string    `json:"relationship_report"`
}

// Publisher receives pipeline progress events.
type Publisher interface {
	Publish(subject string, data any) error
}

// Pipeline drives one workflow run: batch, extract per batch sequentially,
// aggregate, synthesize. A failed batch contributes an empty mapping and
// never aborts the run; only an empty transcript or an empty credential
// pool does.
type Pipeline struct {
	extractor *Extractor
	synth     *Synthesizer
	keys      *keypool.Rotator
	events    Publisher
	logger    *slog.Logger
	batchSize int
}

func NewPipeline(ext *Extractor, synth *Synthesizer, keys *keypool.Rotator, events Publisher, batchSize int, logger *slog.Logger) *Pipeline {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Pipeline{
		extractor: ext,
		synth:     synth,
		keys:      keys,
		events:    events,
		logger:    logger,
		batchSize: batchSize,
	}
}

func (p *Pipeline) Run(ctx context.Context, msgs []chat.Message) (*Report, error) {
	if len(msgs) == 0 {
		return nil, ErrNoMessages
	}
	if p.keys.AccountCount() == 0 {
		return nil, keypool.ErrNoAccounts
	}

	runID := uuid.New()
	batches := SplitBatches(msgs, p.batchSize)

	p.logger.Info("run started",
		"run_id", runID,
		"messages", len(msgs),
		"batches", len(batches),
	)
	p.publish(events.SubjectRunStarted, map[string]any{
		"run_id":   runID.String(),
		"messages": len(msgs),
		"batches":  len(batches),
	})

	// Extraction is strictly sequential: one batch's call (including its
	// internal retries) completes before the next begins. Results are
	// indexed by batch id, not completion order.
	results := make([]map[string]any, len(batches))
	failed := 0
	for _, b := range batches {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		res := p.extractor.Extract(ctx, b.ID, b.Messages)
		results[b.ID] = res
		if len(res) == 0 {
			failed++
		}

		p.logger.Info("batch extracted",
			"run_id", runID,
			"batch", b.ID,
			"of", len(batches),
			"signals", len(res),
		)
		p.publish(events.SubjectRunBatch, map[string]any{
			"run_id": runID.String(),
			"batch":  b.ID,
			"of":     len(batches),
			"empty":  len(res) == 0,
		})
	}

	profile := Aggregate(results)
	gift := p.synth.GiftRecommendations(ctx, profile)
	relationship := p.synth.RelationshipReport(ctx, profile)

	report := &Report{
		RunID:              runID,
		Messages:           len(msgs),
		Batches:            len(batches),
		FailedBatches:      failed,
		Profile:            profile,
		GiftIdeas:          gift,
		RelationshipReport: relationship,
	}

	p.logger.Info("run completed",
		"run_id", runID,
		"batches", len(batches),
		"failed_batches", failed,
	)
	p.publish(events.SubjectRunCompleted, map[string]any{
		"run_id":         runID.String(),
		"batches":        len(batches),
		"failed_batches": failed,
	})

	return report, nil
}

func (p *Pipeline) publish(subject string, data any) {
	if p.events == nil {
		return
	}
	if err := p.events.Publish(subject, data); err != nil {
		p.logger.Warn("failed to publish event", "subject", subject, "error", err)
	}
}
