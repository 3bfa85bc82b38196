// internal/llmclient/gemini_client.go
package llmclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/xkilldash9x/som-agent/api/schemas"
	"github.com/xkilldash9x/som-agent/internal/config"
	"github.com/xkilldash9x/som-agent/internal/llmutil"
)

// GeminiClient implements schemas.DecisionClient against the Gemini
// generateContent API with inline image data.
type GeminiClient struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
	cfg        config.VisionConfig

	// newBackOff is swappable so tests can disable retries.
	newBackOff func() backoff.BackOff
}

// -- Gemini API request/response structures (internal to this file) --

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiSystemInstruction struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequestPayload struct {
	Contents          []geminiContent          `json:"contents"`
	SystemInstruction *geminiSystemInstruction `json:"system_instruction,omitempty"`
	GenerationConfig  geminiGenerationConfig   `json:"generationConfig"`
}

type geminiResponsePayload struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// NewGeminiClient initializes the client.
func NewGeminiClient(cfg config.VisionConfig, logger *zap.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required (set GEMINI_API_KEY)")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent", cfg.Model)
	}

	timeout := cfg.APITimeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}

	return &GeminiClient{
		apiKey:   cfg.APIKey,
		endpoint: endpoint,
		cfg:      cfg,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.Named("llmclient.gemini"),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxElapsedTime = 2 * time.Minute
			b.MaxInterval = 30 * time.Second
			return b
		},
	}, nil
}

// NextAction sends the marked screenshot and step context to the model and
// returns the decided action. Unparseable model output never surfaces as a Go
// error; it becomes an ActionError request carrying a truncated diagnostic of
// the raw response. A returned error means the service itself was
// unreachable.
func (c *GeminiClient) NextAction(ctx context.Context, req schemas.DecisionRequest) (*schemas.ActionRequest, error) {
	raw, err := c.generate(ctx, req)
	if err != nil {
		return nil, err
	}

	action, parseErr := llmutil.ParseJSONResponse[schemas.ActionRequest](raw)
	if parseErr != nil {
		c.logger.Warn("Decision response was not parseable, synthesizing error action.",
			zap.Error(parseErr))
		return &schemas.ActionRequest{
			Kind:  schemas.ActionError,
			Error: fmt.Sprintf("failed to parse decision response: %s", llmutil.Truncate(raw, 200)),
		}, nil
	}

	if err := action.Validate(); err != nil {
		// Structurally invalid decisions still flow to the resolver, which
		// converts them into failed results the loop can recover from; log
		// the defect at the boundary where it was observed.
		c.logger.Warn("Decision service returned an invalid action.",
			zap.String("kind", string(action.Kind)), zap.Error(err))
	}

	return action, nil
}

// generate performs the HTTP round trip with retries.
func (c *GeminiClient) generate(ctx context.Context, req schemas.DecisionRequest) (string, error) {
	payload := c.buildRequestPayload(req)

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request payload: %w", err)
	}

	var responseContent string

	operation := func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create HTTP request: %w", err))
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-goog-api-key", c.apiKey)

		start := time.Now()
		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			c.logger.Warn("Network error during decision request, retrying.", zap.Error(err))
			return fmt.Errorf("failed to execute HTTP request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			return c.handleAPIError(resp.StatusCode, respBody)
		}

		var responsePayload geminiResponsePayload
		if err := json.Unmarshal(respBody, &responsePayload); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode response payload: %w", err))
		}
		if len(responsePayload.Candidates) == 0 {
			return backoff.Permanent(fmt.Errorf("gemini API returned no candidates"))
		}

		var text string
		for _, part := range responsePayload.Candidates[0].Content.Parts {
			text += part.Text
		}
		responseContent = text

		c.logger.Debug("Decision request complete.",
			zap.Duration("duration", time.Since(start)),
			zap.Int("total_tokens", responsePayload.UsageMetadata.TotalTokenCount))
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(c.newBackOff(), ctx)); err != nil {
		return "", fmt.Errorf("decision request failed: %w", err)
	}
	return responseContent, nil
}

// buildRequestPayload assembles the multimodal prompt: the marked screenshot
// as inline data followed by the step context text.
func (c *GeminiClient) buildRequestPayload(req schemas.DecisionRequest) geminiRequestPayload {
	parts := make([]geminiPart, 0, 2)
	if len(req.Image) > 0 {
		parts = append(parts, geminiPart{
			InlineData: &geminiInlineData{
				MimeType: "image/jpeg",
				Data:     base64.StdEncoding.EncodeToString(req.Image),
			},
		})
	}
	parts = append(parts, geminiPart{Text: buildUserPrompt(req)})

	return geminiRequestPayload{
		Contents: []geminiContent{
			{Role: "user", Parts: parts},
		},
		SystemInstruction: &geminiSystemInstruction{
			Parts: []geminiPart{{Text: systemPrompt}},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     c.cfg.Temperature,
			MaxOutputTokens: c.cfg.MaxTokens,
		},
	}
}

// handleAPIError classifies HTTP failures as retryable or permanent.
func (c *GeminiClient) handleAPIError(status int, body []byte) error {
	errMsg := fmt.Errorf("gemini API error (status %d): %s", status, llmutil.Truncate(string(body), 300))

	// Rate limits and server-side failures are worth retrying; everything
	// else in the 4xx range is a request defect.
	if status == http.StatusTooManyRequests || status >= 500 {
		c.logger.Warn("Retryable API error.", zap.Int("status", status))
		return errMsg
	}
	return backoff.Permanent(errMsg)
}
