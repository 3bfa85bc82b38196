// internal/agent/agent.go
package agent

import (
	"context"

	"go.uber.org/zap"

	"github.com/xkilldash9x/som-agent/api/schemas"
	"github.com/xkilldash9x/som-agent/internal/config"
	"github.com/xkilldash9x/som-agent/internal/marks"
)

// Error circuit breaker parameters. The breaker inspects a trailing window of
// history entries, not a strict consecutive run; the numbers are deliberate
// product constants.
const (
	breakerMinStep   = 3
	errorWindow      = 5
	errorThreshold   = 3
	promptHistoryLen = 10
)

// Agent orchestrates the scan, render, decide, resolve, stabilize cycle over
// bounded steps. It owns the append-only history; the per-step element arena
// never escapes a step.
type Agent struct {
	cfg    config.AgentConfig
	logger *zap.Logger

	browser  Browser
	scanner  Scanner
	renderer Renderer
	decider  schemas.DecisionClient
	resolver Resolver
	onAsk    schemas.UserQuery

	history []schemas.HistoryEntry
}

// stepOutcome is the controller-internal result of one loop iteration.
type stepOutcome struct {
	done    bool
	message string
	errored bool
}

// New wires the controller to its collaborators. onAsk may be nil, in which
// case ask actions are answered with an empty string.
func New(
	cfg config.AgentConfig,
	logger *zap.Logger,
	browser Browser,
	scanner Scanner,
	renderer Renderer,
	decider schemas.DecisionClient,
	resolver Resolver,
	onAsk schemas.UserQuery,
) *Agent {
	if onAsk == nil {
		onAsk = func(string) (string, error) { return "", nil }
	}
	return &Agent{
		cfg:      cfg,
		logger:   logger.Named("agent"),
		browser:  browser,
		scanner:  scanner,
		renderer: renderer,
		decider:  decider,
		resolver: resolver,
		onAsk:    onAsk,
	}
}

// History returns the controller's full history. The slice is owned by the
// agent; callers must not mutate it.
func (a *Agent) History() []schemas.HistoryEntry {
	return a.history
}

// Run executes the step loop for one task until the decision service declares
// it done, the error circuit breaker trips, the step budget is exhausted, or
// the context is canceled.
func (a *Agent) Run(ctx context.Context, task string) (string, error) {
	a.history = nil
	a.logger.Info("Starting task.", zap.String("task", task), zap.Int("max_steps", a.cfg.MaxSteps))

	for step := 1; step <= a.cfg.MaxSteps; step++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		a.logger.Info("Step.", zap.Int("step", step), zap.Int("max_steps", a.cfg.MaxSteps))
		out := a.step(ctx, task)

		if out.done {
			a.logger.Info("Task completed.", zap.String("result", out.message))
			return out.message, nil
		}

		if out.errored && step > breakerMinStep {
			if n := a.recentErrorCount(errorWindow); n >= errorThreshold {
				a.logger.Error("Too many errors in recent steps, stopping.",
					zap.Int("recent_errors", n), zap.Int("window", errorWindow))
				return "", ErrTooManyErrors
			}
		}
	}

	a.logger.Warn("Max steps reached without completion.")
	return "", ErrMaxStepsReached
}

// step runs one full cycle. All failures are absorbed into history entries;
// the loop itself never aborts on a single bad step.
func (a *Agent) step(ctx context.Context, task string) stepOutcome {
	screenshot, err := a.browser.Screenshot(ctx)
	if err != nil {
		return a.recordStepFailure("screenshot failed", err)
	}

	elements, err := a.scanner.Scan(ctx)
	if err != nil {
		return a.recordStepFailure("element scan failed", err)
	}
	a.logger.Debug("Scanned elements.", zap.Int("count", len(elements)))

	marked, err := a.renderer.Render(screenshot, elements)
	if err != nil {
		return a.recordStepFailure("marker rendering failed", err)
	}

	currentURL, err := a.browser.CurrentURL(ctx)
	if err != nil {
		a.logger.Debug("Could not read current URL.", zap.Error(err))
	}

	decision, err := a.decider.NextAction(ctx, schemas.DecisionRequest{
		Image:           marked,
		Task:            task,
		History:         schemas.TailHistory(a.history, promptHistoryLen),
		CurrentURL:      currentURL,
		ElementsSummary: marks.Summarize(elements),
	})
	if err != nil {
		return a.recordStepFailure("decision request failed", err)
	}

	a.logger.Info("Decision.",
		zap.String("action", decision.Describe()),
		zap.String("thought", decision.Thought))

	switch decision.Kind {
	case schemas.ActionDone:
		msg := decision.Result
		if msg == "" {
			msg = "Task completed"
		}
		return stepOutcome{done: true, message: msg}

	case schemas.ActionAsk:
		return a.handleAsk(decision)

	case schemas.ActionError:
		// Decision-service-reported failure (for example an unparseable
		// response): soft error for this step.
		a.logger.Warn("Decision service reported an error.", zap.String("error", decision.Error))
		a.history = append(a.history, schemas.HistoryEntry{
			Kind:  schemas.ActionError,
			Error: decision.Error,
		})
		return stepOutcome{errored: true}
	}

	result := a.resolver.Execute(ctx, decision, elements)
	if result.Success {
		a.logger.Info("Action succeeded.", zap.String("message", result.Message))
	} else {
		a.logger.Warn("Action failed.",
			zap.String("message", result.Message), zap.String("error", result.Error))
	}

	if err := a.browser.WaitForStable(ctx); err != nil {
		a.logger.Debug("Page stabilization interrupted.", zap.Error(err))
	}

	a.history = append(a.history, buildHistoryEntry(decision, result))
	return stepOutcome{errored: !result.Success}
}

// handleAsk routes a question to the user without touching the page, then
// records the exchange so the decision service sees the answer next step.
func (a *Agent) handleAsk(decision *schemas.ActionRequest) stepOutcome {
	question := decision.Question
	if question == "" {
		question = "Need more information"
	}

	answer, err := a.onAsk(question)
	if err != nil {
		return a.recordStepFailure("user query failed", err)
	}

	a.history = append(a.history, schemas.HistoryEntry{
		Kind:     schemas.ActionAsk,
		Question: question,
		Answer:   answer,
	})
	return stepOutcome{}
}

// recordStepFailure logs and records an error-kind history entry for
// failures occurring outside action resolution (driver, decision transport,
// user query).
func (a *Agent) recordStepFailure(what string, err error) stepOutcome {
	a.logger.Warn("Step failed.", zap.String("stage", what), zap.Error(err))
	a.history = append(a.history, schemas.HistoryEntry{
		Kind:  schemas.ActionError,
		Error: what + ": " + err.Error(),
	})
	return stepOutcome{errored: true}
}

// recentErrorCount counts error-flagged entries in the trailing window.
func (a *Agent) recentErrorCount(window int) int {
	count := 0
	for _, h := range schemas.TailHistory(a.history, window) {
		if h.Errored() {
			count++
		}
	}
	return count
}

// buildHistoryEntry records the outcome plus the kind-specific echoed fields.
func buildHistoryEntry(decision *schemas.ActionRequest, result schemas.ActionResult) schemas.HistoryEntry {
	entry := schemas.HistoryEntry{Kind: decision.Kind}
	if result.Success {
		entry.Result = result.Message
	} else {
		entry.Error = result.Error
	}

	switch decision.Kind {
	case schemas.ActionClick:
		entry.Element = decision.Element
	case schemas.ActionType:
		entry.Element = decision.Element
		entry.Text = decision.Text
	case schemas.ActionGoto:
		entry.URL = decision.URL
	case schemas.ActionScroll:
		entry.Direction = decision.Direction
	case schemas.ActionPress:
		key := decision.Key
		if key == "" {
			key = "Enter"
		}
		entry.Key = key
	}
	return entry
}
