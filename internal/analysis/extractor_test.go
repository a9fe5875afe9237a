package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"golang.org/x/time/rate"

	"github.com/MikeSquared-Agency/keepsake/internal/gemini"
	"github.com/MikeSquared-Agency/keepsake/internal/keypool"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testAccounts builds n single-key accounts so rotation never has to wait
// out a cooldown inside these tests; cooldown waiting is covered in the
// keypool package.
func testAccounts(n int) []keypool.Account {
	accounts := make([]keypool.Account, n)
	for i := range accounts {
		accounts[i] = keypool.Account{
			ID:   fmt.Sprintf("%d", i+1),
			Keys: []string{fmt.Sprintf("key-%d", i+1)},
		}
	}
	return accounts
}

func newTestExtractor(serverURL string, accounts int) *Extractor {
	llm := gemini.NewClient("test-model")
	llm.SetTestTransport(serverURL)
	keys := keypool.NewRotator(testAccounts(accounts), discardLogger())
	e := NewExtractor(llm, keys, discardLogger())
	e.limiter = rate.NewLimiter(rate.Inf, 0)
	return e
}

func writeText(w http.ResponseWriter, text string) {
	json.NewEncoder(w).Encode(map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]any{{"text": text}}}},
		},
	})
}

func writeQuotaError(w http.ResponseWriter) {
	w.WriteHeader(http.StatusTooManyRequests)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    429,
			"status":  "RESOURCE_EXHAUSTED",
			"message": "Quota exceeded",
		},
	})
}

func TestExtract_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeText(w, `{"explicit_interests": ["coffee"], "sentiment_trend": ["Positive"]}`)
	}))
	defer server.Close()

	e := newTestExtractor(server.URL, 1)
	result := e.Extract(context.Background(), 0, makeMessages(3))

	arr, ok := result["explicit_interests"].([]any)
	if !ok || len(arr) != 1 || arr[0] != "coffee" {
		t.Errorf("explicit_interests = %v", result["explicit_interests"])
	}
}

func TestExtract_RetriesThroughQuotaErrors(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 9 {
			writeQuotaError(w)
			return
		}
		writeText(w, `{"gift_mentions": ["watch"]}`)
	}))
	defer server.Close()

	e := newTestExtractor(server.URL, 10)
	result := e.Extract(context.Background(), 0, makeMessages(3))

	if calls.Load() != 10 {
		t.Errorf("expected 10 calls (9 quota failures + 1 success), got %d", calls.Load())
	}
	arr, ok := result["gift_mentions"].([]any)
	if !ok || len(arr) != 1 || arr[0] != "watch" {
		t.Errorf("gift_mentions = %v", result["gift_mentions"])
	}
}

func TestExtract_BudgetExhausted(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeQuotaError(w)
	}))
	defer server.Close()

	e := newTestExtractor(server.URL, 10)
	result := e.Extract(context.Background(), 3, makeMessages(3))

	if len(result) != 0 {
		t.Errorf("expected empty mapping after exhausted budget, got %v", result)
	}
	if calls.Load() != maxExtractAttempts {
		t.Errorf("expected %d attempts, got %d", maxExtractAttempts, calls.Load())
	}
}

func TestExtract_NonQuotaFailureFailsFast(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	e := newTestExtractor(server.URL, 3)
	result := e.Extract(context.Background(), 0, makeMessages(3))

	if len(result) != 0 {
		t.Errorf("expected empty mapping, got %v", result)
	}
	if calls.Load() != 1 {
		t.Errorf("non-quota failures must not be retried; got %d calls", calls.Load())
	}
}

func TestExtract_InvalidJSONResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeText(w, "sorry, here is some prose instead of JSON")
	}))
	defer server.Close()

	e := newTestExtractor(server.URL, 1)
	result := e.Extract(context.Background(), 0, makeMessages(3))

	if len(result) != 0 {
		t.Errorf("expected empty mapping for unparseable response, got %v", result)
	}
}

func TestExtract_SendsTranscriptAndSchema(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			SystemInstruction *struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"systemInstruction"`
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
			GenerationConfig *struct {
				ResponseMIMEType string `json:"responseMimeType"`
			} `json:"generationConfig"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.GenerationConfig == nil || req.GenerationConfig.ResponseMIMEType != "application/json" {
			t.Error("extraction calls must request JSON output")
		}
		if req.SystemInstruction == nil || len(req.SystemInstruction.Parts) == 0 {
			t.Fatal("missing system instruction")
		}
		sys := req.SystemInstruction.Parts[0].Text
		for _, field := range []string{"explicit_interests", "key_dates", "sentiment_trend"} {
			if !strings.Contains(sys, field) {
				t.Errorf("system instruction missing field %q", field)
			}
		}
		if len(req.Contents) != 1 || !strings.Contains(req.Contents[0].Parts[0].Text, "[2023-02-01 14:00] Alice: message") {
			t.Errorf("prompt missing rendered transcript: %q", req.Contents[0].Parts[0].Text)
		}
		writeText(w, `{}`)
	}))
	defer server.Close()

	e := newTestExtractor(server.URL, 1)
	e.Extract(context.Background(), 0, makeMessages(2))
}
