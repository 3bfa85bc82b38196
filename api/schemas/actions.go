// api/schemas/actions.go
package schemas

import "fmt"

// ActionKind enumerates the closed set of actions the decision service may
// request. Using a dedicated type prevents stray strings from entering the
// resolver.
type ActionKind string

const (
	ActionGoto   ActionKind = "goto"
	ActionClick  ActionKind = "click"
	ActionType   ActionKind = "type"
	ActionScroll ActionKind = "scroll"
	ActionPress  ActionKind = "press"
	ActionWait   ActionKind = "wait"
	ActionDone   ActionKind = "done"
	ActionAsk    ActionKind = "ask"
	ActionError  ActionKind = "error"
)

// knownKinds is the validation whitelist for ActionRequest.
var knownKinds = map[ActionKind]struct{}{
	ActionGoto:   {},
	ActionClick:  {},
	ActionType:   {},
	ActionScroll: {},
	ActionPress:  {},
	ActionWait:   {},
	ActionDone:   {},
	ActionAsk:    {},
	ActionError:  {},
}

// ActionRequest is one decision emitted by the decision service. Only the
// fields relevant to Kind are populated; Validate enforces the per-kind
// requirements before the request reaches the resolver. Element references
// are by scan index and are only meaningful against the element set produced
// in the same step.
type ActionRequest struct {
	Kind ActionKind `json:"action"`

	// goto
	URL string `json:"url,omitempty"`
	// click, type (1-based scan index; 0 means absent)
	Element int `json:"element,omitempty"`
	// type
	Text string `json:"text,omitempty"`
	// scroll: one of down, up, left, right (defaulted to down by the resolver)
	Direction string `json:"direction,omitempty"`
	// press
	Key string `json:"key,omitempty"`
	// done
	Result string `json:"result,omitempty"`
	// ask
	Question string `json:"question,omitempty"`
	// error
	Error string `json:"error,omitempty"`

	// Thought is the model's free-text rationale, logged but never executed.
	Thought string `json:"thought,omitempty"`
}

// Validate checks the structural requirements for the request's kind. It does
// not verify that a referenced element index exists; that requires the
// current scan and is the resolver's job.
func (a *ActionRequest) Validate() error {
	if _, ok := knownKinds[a.Kind]; !ok {
		return fmt.Errorf("unknown action kind %q", a.Kind)
	}

	switch a.Kind {
	case ActionGoto:
		if a.URL == "" {
			return fmt.Errorf("no URL provided for goto action")
		}
	case ActionClick:
		if a.Element <= 0 {
			return fmt.Errorf("no element specified for click action")
		}
	case ActionType:
		if a.Element <= 0 {
			return fmt.Errorf("no element specified for type action")
		}
		if a.Text == "" {
			return fmt.Errorf("no text provided for type action")
		}
	}
	return nil
}

// Describe produces a short human-readable summary of the request for logs
// and step display.
func (a *ActionRequest) Describe() string {
	switch a.Kind {
	case ActionGoto:
		return fmt.Sprintf("Go to %s", a.URL)
	case ActionClick:
		return fmt.Sprintf("Click element [%d]", a.Element)
	case ActionType:
		return fmt.Sprintf("Type %q into element [%d]", a.Text, a.Element)
	case ActionScroll:
		dir := a.Direction
		if dir == "" {
			dir = "down"
		}
		return fmt.Sprintf("Scroll %s", dir)
	case ActionPress:
		key := a.Key
		if key == "" {
			key = "Enter"
		}
		return fmt.Sprintf("Press %s", key)
	case ActionWait:
		return "Wait for page load"
	case ActionDone:
		return fmt.Sprintf("Done: %s", a.Result)
	case ActionAsk:
		return fmt.Sprintf("Ask: %s", a.Question)
	case ActionError:
		return fmt.Sprintf("Error: %s", a.Error)
	default:
		return fmt.Sprintf("Unknown action: %s", a.Kind)
	}
}

// ActionResult is the structured outcome of resolving one ActionRequest.
// Successful operations always carry an empty Error; failed operations always
// carry a non-empty diagnostic.
type ActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// Failure builds a failed result, guaranteeing a non-empty diagnostic.
func Failure(message, diagnostic string) ActionResult {
	if diagnostic == "" {
		diagnostic = message
	}
	return ActionResult{Success: false, Message: message, Error: diagnostic}
}

// Successf builds a successful result with a formatted message.
func Successf(format string, args ...any) ActionResult {
	return ActionResult{Success: true, Message: fmt.Sprintf(format, args...)}
}
