package analysis

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/MikeSquared-Agency/keepsake/internal/chat"
	"github.com/MikeSquared-Agency/keepsake/internal/gemini"
	"github.com/MikeSquared-Agency/keepsake/internal/keypool"
)

// maxExtractAttempts bounds credential rotation per batch. Only quota
// errors consume attempts; every other failure abandons the batch at once.
const maxExtractAttempts = 10

// Extractor turns one batch of messages into a schema-tolerant extraction
// mapping via the remote model, rotating credentials on quota errors.
type Extractor struct {
	llm     *gemini.Client
	keys    *keypool.Rotator
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewExtractor(llm *gemini.Client, keys *keypool.Rotator, logger *slog.Logger) *Extractor {
	return &Extractor{
		llm:  llm,
		keys: keys,
		// Free-tier accounts allow only a few requests per minute; one
		// call per second keeps a freshly rotated account under that.
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		logger:  logger,
	}
}

// Extract never fails: an unrecoverable error degrades the batch to an
// empty contribution, keeping results index-aligned with batches.
func (e *Extractor) Extract(ctx context.Context, batchID int, msgs []chat.Message) map[string]any {
	prompt := "TRANSCRIPT:\n" + FormatTranscript(msgs)

	for attempt := 1; attempt <= maxExtractAttempts; attempt++ {
		key, err := e.keys.Acquire(ctx)
		if err != nil {
			e.logger.Error("no credential available", "batch", batchID, "error", err)
			return map[string]any{}
		}

		if err := e.limiter.Wait(ctx); err != nil {
			e.logger.Error("pacing interrupted", "batch", batchID, "error", err)
			return map[string]any{}
		}

		raw, err := e.llm.Generate(ctx, key, extractionSystem, prompt, true)
		if err != nil {
			if gemini.IsRateLimited(err) {
				e.keys.ReportExhausted()
				e.logger.Warn("quota hit, rotating account",
					"batch", batchID,
					"attempt", attempt,
				)
				continue
			}
			// Non-quota failures are presumed non-transient; retrying
			// would only mask prompt or schema defects.
			e.logger.Error("extraction call failed", "batch", batchID, "error", err)
			return map[string]any{}
		}

		var result map[string]any
		if err := json.Unmarshal([]byte(raw), &result); err != nil {
			e.logger.Error("extraction returned invalid JSON", "batch", batchID, "error", err)
			return map[string]any{}
		}
		return result
	}

	e.logger.Error("retry budget exhausted", "batch", batchID, "attempts", maxExtractAttempts)
	return map[string]any{}
}
