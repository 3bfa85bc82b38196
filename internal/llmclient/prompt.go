// internal/llmclient/prompt.go
package llmclient

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/som-agent/api/schemas"
)

// historyWindow bounds how many prior steps are echoed into the prompt.
const historyWindow = 10

// systemPrompt instructs the model on the Set-of-Marks protocol and the
// closed action vocabulary.
const systemPrompt = `You are a browser agent. You control a web browser to complete the user's task.

On the screenshot, interactive elements are marked with red numbered labels.
Analyze the screenshot and decide which action to perform next.

IMPORTANT RULES:
1. Use ONLY element numbers that are visible on the screenshot
2. Do NOT invent elements or numbers
3. To open a website, use goto
4. When the task is complete, use done
5. If you need information from the user, use ask
6. If the page is still loading, use wait
7. Before clicking, confirm the element is visible on the screenshot

Respond with ONLY a valid JSON object (no markdown, no code fences):

Possible actions:
{"action": "goto", "url": "https://example.com", "thought": "why I am doing this"}
{"action": "click", "element": 5, "thought": "clicking the search button"}
{"action": "type", "element": 3, "text": "text to enter", "thought": "entering the search query"}
{"action": "press", "key": "Enter", "thought": "pressing Enter to submit the form"}
{"action": "scroll", "direction": "down", "thought": "scrolling to see more"}
{"action": "wait", "thought": "waiting for the page to load"}
{"action": "done", "result": "description of the outcome"}
{"action": "ask", "question": "question for the user"}

The "thought" field is required for click, type, scroll, wait, goto and press.
After typing into a search field, use press Enter to submit.`

// buildUserPrompt renders the per-step context block accompanying the
// screenshot.
func buildUserPrompt(req schemas.DecisionRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n\n", req.Task)
	fmt.Fprintf(&b, "Current URL: %s\n", req.CurrentURL)

	if history := renderHistory(req.History); history != "" {
		b.WriteString(history)
	}

	b.WriteString("\n")
	b.WriteString(req.ElementsSummary)
	b.WriteString("\n\nLook at the screenshot and decide the next action.")
	return b.String()
}

// renderHistory formats the trailing action history with per-kind detail and
// outcome echoes.
func renderHistory(history []schemas.HistoryEntry) string {
	entries := schemas.TailHistory(history, historyWindow)
	if len(entries) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\nAction history:\n")
	for i, h := range entries {
		fmt.Fprintf(&b, "%d. %s\n", i+1, describeHistoryEntry(h))
		if h.Result != "" {
			fmt.Fprintf(&b, "   Result: %s\n", h.Result)
		}
		if h.Error != "" {
			fmt.Fprintf(&b, "   Error: %s\n", h.Error)
		}
	}
	return b.String()
}

func describeHistoryEntry(h schemas.HistoryEntry) string {
	switch h.Kind {
	case schemas.ActionClick:
		return fmt.Sprintf("Clicked element [%d]", h.Element)
	case schemas.ActionType:
		return fmt.Sprintf("Typed %q into element [%d]", h.Text, h.Element)
	case schemas.ActionGoto:
		return fmt.Sprintf("Navigated to %s", h.URL)
	case schemas.ActionScroll:
		return fmt.Sprintf("Scrolled %s", h.Direction)
	case schemas.ActionPress:
		key := h.Key
		if key == "" {
			key = "Enter"
		}
		return fmt.Sprintf("Pressed %s", key)
	case schemas.ActionWait:
		return "Waited for page load"
	case schemas.ActionAsk:
		return fmt.Sprintf("Asked: %s (answer: %s)", h.Question, h.Answer)
	case schemas.ActionError:
		return "Decision error"
	default:
		return string(h.Kind)
	}
}
