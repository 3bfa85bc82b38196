// internal/marks/summary_test.go
package marks

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/som-agent/api/schemas"
)

func TestSummarizeEmpty(t *testing.T) {
	assert.Equal(t, "No interactive elements found on page.", Summarize(nil))
	assert.Equal(t, EmptySummary, Summarize([]schemas.InteractiveElement{}))
}

func TestSummarizeListsElements(t *testing.T) {
	elements := []schemas.InteractiveElement{
		{Index: 1, Tag: "a", Text: "Home"},
		{Index: 2, Tag: "input", Text: ""},
		{Index: 3, Tag: "button", Text: strings.Repeat("x", 40)},
	}

	got := Summarize(elements)
	lines := strings.Split(got, "\n")
	assert.Equal(t, "Interactive elements on page:", lines[0])
	assert.Equal(t, "[1] <a> Home", lines[1])
	assert.Equal(t, "[2] <input> ", lines[2])

	// Long labels are previewed at 30 characters.
	assert.Equal(t, "[3] <button> "+strings.Repeat("x", 30)+"...", lines[3])
}
