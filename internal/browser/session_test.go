// internal/browser/session_test.go
package browser

import (
	"testing"

	"github.com/chromedp/chromedp/kb"
	"github.com/stretchr/testify/assert"
)

func TestResolveKey(t *testing.T) {
	assert.Equal(t, kb.Enter, resolveKey("Enter"))
	assert.Equal(t, kb.Escape, resolveKey("Escape"))
	assert.Equal(t, kb.PageDown, resolveKey("PageDown"))

	// Single characters and unknown names pass through unchanged.
	assert.Equal(t, "a", resolveKey("a"))
	assert.Equal(t, "F13", resolveKey("F13"))
}
