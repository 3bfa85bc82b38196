// internal/llmclient/gemini_client_test.go
package llmclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/som-agent/api/schemas"
	"github.com/xkilldash9x/som-agent/internal/config"
)

// geminiResponse builds a minimal successful generateContent body around the
// given model text.
func geminiResponse(text string) string {
	body := map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]any{{"text": text}}}},
		},
	}
	raw, _ := json.Marshal(body)
	return string(raw)
}

func newTestClient(t *testing.T, endpoint string) *GeminiClient {
	t.Helper()
	client, err := NewGeminiClient(config.VisionConfig{
		APIKey:   "test-key",
		Model:    "gemini-2.5-flash",
		Endpoint: endpoint,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	// Single attempt; retry behavior is asserted explicitly where needed.
	client.newBackOff = func() backoff.BackOff { return &backoff.StopBackOff{} }
	return client
}

func TestNewGeminiClientRequiresAPIKey(t *testing.T) {
	_, err := NewGeminiClient(config.VisionConfig{}, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")
}

func TestNextActionParsesFencedDecision(t *testing.T) {
	var gotAuth atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("x-goog-api-key"))
		fmt.Fprint(w, geminiResponse("```json\n{\"action\": \"click\", \"element\": 4, \"thought\": \"search button\"}\n```"))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	action, err := client.NextAction(context.Background(), schemas.DecisionRequest{
		Task:            "find cats",
		Image:           []byte{0xff, 0xd8},
		ElementsSummary: "Interactive elements on page:\n[4] <button> Search",
	})
	require.NoError(t, err)

	assert.Equal(t, schemas.ActionClick, action.Kind)
	assert.Equal(t, 4, action.Element)
	assert.Equal(t, "search button", action.Thought)
	assert.Equal(t, "test-key", gotAuth.Load())
}

func TestNextActionUnparseableBecomesErrorAction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, geminiResponse("I would rather describe the page in prose."))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	action, err := client.NextAction(context.Background(), schemas.DecisionRequest{Task: "anything"})
	require.NoError(t, err, "unparseable output must not surface as a transport error")

	assert.Equal(t, schemas.ActionError, action.Kind)
	assert.Contains(t, action.Error, "failed to parse decision response")
	assert.Contains(t, action.Error, "describe the page in prose")
}

func TestNextActionPermanentAPIError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error": "bad request"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	// Permissive backoff: a 400 must still not be retried.
	client := newTestClient(t, server.URL)
	client.newBackOff = func() backoff.BackOff { return backoff.NewExponentialBackOff() }

	_, err := client.NextAction(context.Background(), schemas.DecisionRequest{Task: "anything"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Equal(t, int32(1), calls.Load(), "4xx responses are permanent, no retries")
}

func TestNextActionRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, geminiResponse(`{"action": "wait"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	client.newBackOff = func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = 0
		return b
	}

	action, err := client.NextAction(context.Background(), schemas.DecisionRequest{Task: "anything"})
	require.NoError(t, err)
	assert.Equal(t, schemas.ActionWait, action.Kind)
	assert.Equal(t, int32(2), calls.Load())
}

func TestNextActionEmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"candidates": []}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.NextAction(context.Background(), schemas.DecisionRequest{Task: "anything"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no candidates")
}

func TestBuildRequestPayloadIncludesImageAndPrompt(t *testing.T) {
	client := newTestClient(t, "http://unused.test")

	payload := client.buildRequestPayload(schemas.DecisionRequest{
		Task:            "buy socks",
		Image:           []byte{1, 2, 3},
		CurrentURL:      "https://shop.test",
		ElementsSummary: "Interactive elements on page:\n[1] <a> Socks",
		History: []schemas.HistoryEntry{
			{Kind: schemas.ActionGoto, URL: "https://shop.test", Result: "Navigated to https://shop.test"},
		},
	})

	require.Len(t, payload.Contents, 1)
	parts := payload.Contents[0].Parts
	require.Len(t, parts, 2)
	require.NotNil(t, parts[0].InlineData)
	assert.Equal(t, "image/jpeg", parts[0].InlineData.MimeType)

	assert.Contains(t, parts[1].Text, "Task: buy socks")
	assert.Contains(t, parts[1].Text, "Current URL: https://shop.test")
	assert.Contains(t, parts[1].Text, "Navigated to https://shop.test")
	assert.Contains(t, parts[1].Text, "[1] <a> Socks")

	require.NotNil(t, payload.SystemInstruction)
	assert.Contains(t, payload.SystemInstruction.Parts[0].Text, "browser agent")
}
