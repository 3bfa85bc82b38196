// internal/llmutil/parser_test.go
package llmutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type decision struct {
	Action  string `json:"action"`
	Element int    `json:"element"`
	Thought string `json:"thought"`
}

func TestParseJSONResponse(t *testing.T) {
	t.Run("plain object", func(t *testing.T) {
		got, err := ParseJSONResponse[decision](`{"action": "click", "element": 5}`)
		require.NoError(t, err)
		assert.Equal(t, "click", got.Action)
		assert.Equal(t, 5, got.Element)
	})

	t.Run("fenced with language tag", func(t *testing.T) {
		raw := "```json\n{\"action\": \"goto\", \"thought\": \"open the site\"}\n```"
		got, err := ParseJSONResponse[decision](raw)
		require.NoError(t, err)
		assert.Equal(t, "goto", got.Action)
		assert.Equal(t, "open the site", got.Thought)
	})

	t.Run("fenced without language tag", func(t *testing.T) {
		raw := "```\n{\"action\": \"wait\"}\n```"
		got, err := ParseJSONResponse[decision](raw)
		require.NoError(t, err)
		assert.Equal(t, "wait", got.Action)
	})

	t.Run("object embedded in prose", func(t *testing.T) {
		raw := `Sure! The next step is: {"action": "type", "element": 2} Good luck.`
		got, err := ParseJSONResponse[decision](raw)
		require.NoError(t, err)
		assert.Equal(t, "type", got.Action)
		assert.Equal(t, 2, got.Element)
	})

	t.Run("surrounding whitespace", func(t *testing.T) {
		got, err := ParseJSONResponse[decision]("  \n {\"action\": \"done\"} \n ")
		require.NoError(t, err)
		assert.Equal(t, "done", got.Action)
	})

	t.Run("no JSON at all", func(t *testing.T) {
		_, err := ParseJSONResponse[decision]("I cannot decide right now.")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to unmarshal")
	})

	t.Run("malformed object", func(t *testing.T) {
		_, err := ParseJSONResponse[decision](`{"action": "click", "element": }`)
		require.Error(t, err)
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "abcde", Truncate("abcde", 5))
	assert.Equal(t, "abc...", Truncate("abcdef", 3))
	assert.Equal(t, "", Truncate("abc", 0))
}
