// api/schemas/elements.go
package schemas

import "fmt"

// InteractiveElement describes one interactive node captured during a single
// page scan. Instances are valid only for the step that produced them; the
// Index is re-assigned on every scan and must never be cached across steps.
type InteractiveElement struct {
	// Index is the 1-based identity of the element within one scan. Values
	// are contiguous, ordered by (floor(top/50), left) to give reading order.
	Index int `json:"index"`
	// Selector is a best-effort locator used only as the fallback interaction
	// path. Selectors starting with "//" are XPath, everything else is CSS.
	Selector string `json:"selector"`
	Tag      string `json:"tag"`
	// Text is the extracted label, whitespace-collapsed and truncated to 100
	// characters by the scanner.
	Text string `json:"text"`
	// CenterX/CenterY are viewport pixel coordinates of the element center,
	// the primary interaction target.
	CenterX int `json:"x"`
	CenterY int `json:"y"`
	Width   int `json:"width"`
	Height  int `json:"height"`
}

// String renders the element the way it is presented to the decision service.
func (e InteractiveElement) String() string {
	preview := e.Text
	if len(preview) > 30 {
		preview = preview[:30] + "..."
	}
	return fmt.Sprintf("[%d] <%s> %s", e.Index, e.Tag, preview)
}
