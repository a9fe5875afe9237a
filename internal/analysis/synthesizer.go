package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/MikeSquared-Agency/keepsake/internal/gemini"
	"github.com/MikeSquared-Agency/keepsake/internal/keypool"
)

// Synthesis calls get a small rotation budget of their own: they are the
// highest-value calls in the pipeline and should survive a quota hit, but
// anything else degrades to fallback text rather than failing the run.
const maxSynthesisAttempts = 3

const (
	giftFallback   = "Could not generate gift recommendations due to an upstream error."
	reportFallback = "Could not generate the relationship report due to an upstream error."
)

// Synthesizer turns an aggregated profile into the two human-readable
// reports. The two calls are independent: one failing does not affect the
// other.
type Synthesizer struct {
	llm    *gemini.Client
	keys   *keypool.Rotator
	logger *slog.Logger
}

func NewSynthesizer(llm *gemini.Client, keys *keypool.Rotator, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{llm: llm, keys: keys, logger: logger}
}

func (s *Synthesizer) GiftRecommendations(ctx context.Context, profile Profile) string {
	summary, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		s.logger.Error("marshal profile", "error", err)
		return giftFallback
	}
	return s.generate(ctx, "gift recommendations", fmt.Sprintf(giftPrompt, summary), giftFallback)
}

func (s *Synthesizer) RelationshipReport(ctx context.Context, profile Profile) string {
	// Only the relationship-relevant fields go into the prompt; a huge
	// interest list would crowd out the signal.
	data := map[string]any{
		"dynamics":          profile.RelationshipDynamics,
		"inside_jokes":      profile.InsideJokes,
		"closeness":         profile.ClosenessIndicators,
		"sentiment_history": profile.SentimentTrend,
		"topics":            profile.TopicsDiscussed,
	}
	summary, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		s.logger.Error("marshal relationship data", "error", err)
		return reportFallback
	}
	return s.generate(ctx, "relationship report", fmt.Sprintf(relationshipPrompt, summary), reportFallback)
}

func (s *Synthesizer) generate(ctx context.Context, kind, prompt, fallback string) string {
	for attempt := 1; attempt <= maxSynthesisAttempts; attempt++ {
		key, err := s.keys.Acquire(ctx)
		if err != nil {
			s.logger.Error("no credential available", "call", kind, "error", err)
			return fallback
		}

		text, err := s.llm.Generate(ctx, key, "", prompt, false)
		if err != nil {
			if gemini.IsRateLimited(err) {
				s.keys.ReportExhausted()
				s.logger.Warn("quota hit during synthesis", "call", kind, "attempt", attempt)
				continue
			}
			s.logger.Error("synthesis call failed", "call", kind, "error", err)
			return fallback
		}
		return text
	}

	s.logger.Error("synthesis retry budget exhausted", "call", kind)
	return fallback
}
