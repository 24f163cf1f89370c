package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	geminiBaseURL      = "https://generativelanguage.googleapis.com/v1beta"
	geminiModel        = "gemini-flash-latest"
	geminiTimeout      = 30 * time.Second
	geminiMaxRetries   = 3
	geminiInitialDelay = 1 * time.Second

	// Returned when the model accepts the request but safety filters
	// strip the candidate text.
	blockedFallback = "Visit the links below for more info."
)

// Client generates record label overviews via the Gemini REST API.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *zap.Logger

	initialDelay time.Duration
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
	SafetySettings   []safetySetting  `json:"safetySettings"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	TopK            int     `json:"topK"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

type geminiError struct {
	Error struct {
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// NewClient creates a new Gemini client
func NewClient(apiKey string, logger *zap.Logger) *Client {
	return &Client{
		apiKey:       apiKey,
		baseURL:      geminiBaseURL,
		client:       &http.Client{Timeout: geminiTimeout},
		logger:       logger,
		initialDelay: geminiInitialDelay,
	}
}

// Available reports whether the client has an API key to work with
func (c *Client) Available() bool {
	return c.apiKey != ""
}

// Model returns the model identifier used for generation
func (c *Client) Model() string {
	return geminiModel
}

// GenerateLabelOverview asks the model for a short factual overview of a
// record label. A safety-blocked response yields a generic fallback text
// rather than an error.
func (c *Client) GenerateLabelOverview(ctx context.Context, labelName string) (string, error) {
	if !c.Available() {
		return "", fmt.Errorf("GEMINI_API_KEY not set")
	}

	prompt := fmt.Sprintf(`Write a brief overview about the record label "%s" in one paragraph. `+
		`Maximum 4 sentences. Include founding year if known, music genres, and notable artists. `+
		`Be concise and factual. Use plain text only, no markdown formatting.`, labelName)

	req := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     0.7,
			TopP:            0.8,
			TopK:            40,
			MaxOutputTokens: 300,
		},
		SafetySettings: []safetySetting{
			{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_NONE"},
			{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_NONE"},
			{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_NONE"},
			{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_NONE"},
		},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, geminiModel, c.apiKey)

	var lastErr error
	for attempt := 0; attempt < geminiMaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt))) * c.initialDelay
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("failed to create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(httpReq)
		if err != nil {
			lastErr = fmt.Errorf("HTTP request failed: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response body: %w", err)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			var apiErr geminiError
			if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
				lastErr = fmt.Errorf("gemini API error (%d): %s", resp.StatusCode, apiErr.Error.Message)
			} else {
				lastErr = fmt.Errorf("gemini API error (%d)", resp.StatusCode)
			}

			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				continue
			}
			return "", lastErr
		}

		var geminiResp geminiResponse
		if err := json.Unmarshal(respBody, &geminiResp); err != nil {
			return "", fmt.Errorf("failed to decode response: %w", err)
		}

		if len(geminiResp.Candidates) == 0 {
			return "", fmt.Errorf("no candidates returned for label %q", labelName)
		}

		parts := geminiResp.Candidates[0].Content.Parts
		if len(parts) == 0 {
			c.logger.Warn("gemini response blocked by safety filters",
				zap.String("label", labelName),
				zap.String("finish_reason", geminiResp.Candidates[0].FinishReason))
			return blockedFallback, nil
		}

		return strings.TrimSpace(parts[0].Text), nil
	}

	return "", fmt.Errorf("max retries (%d) exceeded: %w", geminiMaxRetries, lastErr)
}
