// internal/marks/summary.go
package marks

import (
	"strings"

	"github.com/xkilldash9x/som-agent/api/schemas"
)

// EmptySummary is the exact text sent to the decision service when a scan
// found nothing interactive.
const EmptySummary = "No interactive elements found on page."

// Summarize renders the element arena as the text block accompanying the
// marked screenshot.
func Summarize(elements []schemas.InteractiveElement) string {
	if len(elements) == 0 {
		return EmptySummary
	}

	var b strings.Builder
	b.WriteString("Interactive elements on page:")
	for _, el := range elements {
		b.WriteString("\n")
		b.WriteString(el.String())
	}
	return b.String()
}
