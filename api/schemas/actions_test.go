// api/schemas/actions_test.go
package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionRequestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		req     ActionRequest
		wantErr string
	}{
		{
			name: "valid goto",
			req:  ActionRequest{Kind: ActionGoto, URL: "https://example.com"},
		},
		{
			name:    "goto without URL",
			req:     ActionRequest{Kind: ActionGoto},
			wantErr: "no URL provided",
		},
		{
			name: "valid click",
			req:  ActionRequest{Kind: ActionClick, Element: 3},
		},
		{
			name:    "click without element",
			req:     ActionRequest{Kind: ActionClick},
			wantErr: "no element specified",
		},
		{
			name:    "click with negative element",
			req:     ActionRequest{Kind: ActionClick, Element: -1},
			wantErr: "no element specified",
		},
		{
			name: "valid type",
			req:  ActionRequest{Kind: ActionType, Element: 2, Text: "hello"},
		},
		{
			name:    "type without element",
			req:     ActionRequest{Kind: ActionType, Text: "hello"},
			wantErr: "no element specified",
		},
		{
			name:    "type without text",
			req:     ActionRequest{Kind: ActionType, Element: 2},
			wantErr: "no text provided",
		},
		{
			name: "scroll needs nothing extra",
			req:  ActionRequest{Kind: ActionScroll},
		},
		{
			name: "press needs nothing extra",
			req:  ActionRequest{Kind: ActionPress},
		},
		{
			name: "done needs nothing extra",
			req:  ActionRequest{Kind: ActionDone},
		},
		{
			name:    "unknown kind",
			req:     ActionRequest{Kind: ActionKind("fly")},
			wantErr: "unknown action kind",
		},
		{
			name:    "empty kind",
			req:     ActionRequest{},
			wantErr: "unknown action kind",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
			}
		})
	}
}

func TestActionRequestDescribe(t *testing.T) {
	assert.Equal(t, "Go to https://x.dev", (&ActionRequest{Kind: ActionGoto, URL: "https://x.dev"}).Describe())
	assert.Equal(t, "Click element [7]", (&ActionRequest{Kind: ActionClick, Element: 7}).Describe())
	assert.Equal(t, `Type "cats" into element [2]`, (&ActionRequest{Kind: ActionType, Element: 2, Text: "cats"}).Describe())

	// Scroll and press report their defaults when the field is absent.
	assert.Equal(t, "Scroll down", (&ActionRequest{Kind: ActionScroll}).Describe())
	assert.Equal(t, "Press Enter", (&ActionRequest{Kind: ActionPress}).Describe())
	assert.Equal(t, "Press Tab", (&ActionRequest{Kind: ActionPress, Key: "Tab"}).Describe())
}

func TestFailureGuaranteesDiagnostic(t *testing.T) {
	res := Failure("click failed", "")
	assert.False(t, res.Success)
	assert.Equal(t, "click failed", res.Message)
	assert.Equal(t, "click failed", res.Error, "diagnostic must never be empty on failure")

	res = Failure("click failed", "element vanished")
	assert.Equal(t, "element vanished", res.Error)
}

func TestSuccessf(t *testing.T) {
	res := Successf("navigated to %s", "https://example.com")
	assert.True(t, res.Success)
	assert.Equal(t, "navigated to https://example.com", res.Message)
	assert.Empty(t, res.Error)
}

func TestHistoryEntryErrored(t *testing.T) {
	assert.False(t, HistoryEntry{Kind: ActionClick, Result: "ok"}.Errored())
	assert.True(t, HistoryEntry{Kind: ActionClick, Error: "boom"}.Errored())
}

func TestTailHistory(t *testing.T) {
	history := []HistoryEntry{
		{Kind: ActionGoto}, {Kind: ActionClick}, {Kind: ActionType},
	}

	assert.Len(t, TailHistory(history, 10), 3)
	tail := TailHistory(history, 2)
	require.Len(t, tail, 2)
	assert.Equal(t, ActionClick, tail[0].Kind)
	assert.Equal(t, ActionType, tail[1].Kind)
	assert.Empty(t, TailHistory(nil, 5))
}
