package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Client calls the Gemini generateContent API for one model. The API key is
// supplied per call: key selection and rotation live above this layer.
type Client struct {
	baseURL string
	model   string
	client  *http.Client
}

func NewClient(model string) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// SetTestTransport points the client at a test server.
func (c *Client) SetTestTransport(baseURL string) {
	c.baseURL = baseURL
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMIMEType string `json:"responseMimeType,omitempty"`
}

type request struct {
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	Contents          []content         `json:"contents"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type response struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// APIError is a non-2xx reply from the API.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s — %s", e.StatusCode, e.Status, e.Message)
}

// IsRateLimited reports whether err is a quota or rate-limit rejection.
// Providers are inconsistent about which channel carries the signal, so
// both the HTTP status and the error message are checked.
func IsRateLimited(err error) bool {
	apiErr, ok := err.(*APIError)
	if !ok {
		return false
	}
	if apiErr.StatusCode == http.StatusTooManyRequests {
		return true
	}
	if apiErr.Status == "RESOURCE_EXHAUSTED" {
		return true
	}
	msg := strings.ToLower(apiErr.Message)
	return strings.Contains(msg, "quota") || strings.Contains(msg, "rate limit")
}

// Generate sends a prompt to the model and returns the text of the first
// candidate. When jsonMode is set, the API is asked for a JSON document
// instead of free text.
func (c *Client) Generate(ctx context.Context, apiKey, system, prompt string, jsonMode bool) (string, error) {
	reqBody := request{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: prompt}}},
		},
	}
	if system != "" {
		reqBody.SystemInstruction = &content{Parts: []part{{Text: system}}}
	}
	if jsonMode {
		reqBody.GenerationConfig = &generationConfig{ResponseMIMEType: "application/json"}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("api call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errResp errorResponse
		if json.Unmarshal(respBody, &errResp) == nil {
			apiErr.Status = errResp.Error.Status
			apiErr.Message = errResp.Error.Message
		} else {
			apiErr.Message = string(respBody)
		}
		return "", apiErr
	}

	var apiResp response
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if len(apiResp.Candidates) == 0 || len(apiResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response content")
	}

	return apiResp.Candidates[0].Content.Parts[0].Text, nil
}
