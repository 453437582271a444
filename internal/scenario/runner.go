package scenario

import (
	"context"
	"time"

	"github.com/loykin/dqtprobe/internal/common"
	"github.com/loykin/dqtprobe/internal/outcome"
)

// StepResult is the immutable record of one executed step.
type StepResult struct {
	Seq       int
	Name      string
	Kind      Kind
	Action    string
	Expected  string
	Actual    outcome.Actual
	Verdict   outcome.Verdict
	Tolerated bool
}

// Result aggregates a whole run. Passed is true iff every non-tolerated
// step's verdict passed and the run was not aborted.
type Result struct {
	Scenario   string
	Steps      []StepResult
	Passed     bool
	Aborted    bool
	StartedAt  time.Time
	FinishedAt time.Time
}

// ExitCode maps the overall verdict onto a process exit status.
func (r *Result) ExitCode() int {
	if r.Passed {
		return 0
	}
	return 1
}

func (r *Result) finish() {
	r.FinishedAt = time.Now()
	r.Passed = !r.Aborted
	for _, s := range r.Steps {
		if !s.Verdict.Pass && !s.Tolerated {
			r.Passed = false
		}
	}
}

// Runner executes scenarios strictly in sequence against one broker.
type Runner struct {
	Broker Broker
	Logger *common.Logger
}

func NewRunner(br Broker) *Runner {
	return &Runner{
		Broker: br,
		Logger: common.GetLogger().WithComponent("runner"),
	}
}

// Run executes every step in order, classifying each observed outcome
// against the step's declared expectation. A step is never retried. A
// failing verdict aborts the remaining steps unless the step tolerates
// failure; a transport-level outcome aborts regardless of tolerance since
// it invalidates the meaning of any expectation.
func (r *Runner) Run(ctx context.Context, sc Scenario) *Result {
	logger := r.Logger
	if logger == nil {
		logger = common.GetLogger().WithComponent("runner")
	}
	logger = logger.WithScenario(sc.Name)

	res := &Result{Scenario: sc.Name, StartedAt: time.Now()}
	logger.Info("scenario started", "steps", len(sc.Steps))

	for i, step := range sc.Steps {
		slog := logger.WithStep(step.Name)
		slog.Info("executing step",
			"seq", i+1, "kind", string(step.Kind),
			"action", step.Action.Describe(), "expected", step.Expect.String())

		actual := outcome.FromError(step.Action.Run(ctx, r.Broker))
		verdict := outcome.Classify(step.Expect, actual)

		sr := StepResult{
			Seq:      i + 1,
			Name:     step.Name,
			Kind:     step.Kind,
			Action:   step.Action.Describe(),
			Expected: step.Expect.String(),
			Actual:   actual,
			Verdict:  verdict,
		}

		switch {
		case verdict.Pass:
			slog.Info("step passed", "actual", actual.String())
		case actual.Status == outcome.StatusTransport:
			// Tolerance does not apply: nothing semantic was observed.
			slog.Error("step aborted the run",
				"expected", step.Expect.String(), "actual", actual.String(), "detail", verdict.Detail)
			res.Steps = append(res.Steps, sr)
			res.Aborted = true
			res.finish()
			logger.Error("scenario aborted on transport failure", "step", step.Name)
			return res
		case step.Tolerate:
			sr.Tolerated = true
			slog.Warn("step failed but failure is tolerated",
				"expected", step.Expect.String(), "actual", actual.String(), "detail", verdict.Detail)
		default:
			slog.Error("step failed",
				"expected", step.Expect.String(), "actual", actual.String(), "detail", verdict.Detail)
			res.Steps = append(res.Steps, sr)
			res.Aborted = true
			res.finish()
			logger.Error("scenario aborted", "step", step.Name, "remaining", len(sc.Steps)-i-1)
			return res
		}

		res.Steps = append(res.Steps, sr)
	}

	res.finish()
	if res.Passed {
		logger.Info("scenario passed", "steps", len(res.Steps))
	} else {
		logger.Error("scenario failed", "steps", len(res.Steps))
	}
	return res
}
