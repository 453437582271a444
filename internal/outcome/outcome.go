// Package outcome classifies observed step results against declared expectations.
package outcome

import (
	"fmt"
	"strings"
)

// Status describes how a step's operation concluded.
type Status int

const (
	// StatusSuccess: the operation completed and the broker accepted it.
	StatusSuccess Status = iota
	// StatusFailure: the broker rejected the operation with a semantic,
	// structured failure (channel exception, admin API error).
	StatusFailure
	// StatusTransport: the operation never reached a semantic result
	// (connection refused, auth failure, unexpected client error).
	StatusTransport
)

// String returns the string representation of the status
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	case StatusTransport:
		return "transport-error"
	default:
		return "unknown"
	}
}

// Actual is the observed result of executing one step. It is immutable once
// produced; Code and Reason are only meaningful when Status != StatusSuccess.
type Actual struct {
	Status Status
	Code   int
	Reason string
}

// String renders the actual outcome for trace output.
func (a Actual) String() string {
	switch a.Status {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		if a.Code != 0 {
			return fmt.Sprintf("failure (code=%d) %s", a.Code, a.Reason)
		}
		return fmt.Sprintf("failure: %s", a.Reason)
	default:
		return fmt.Sprintf("transport error: %s", a.Reason)
	}
}

// FailurePattern matches a broker rejection. The numeric condition code is
// the primary signal; TextContains narrows it further when both are set, and
// is the sole criterion only when no structured code is obtainable. Relying
// on reason text alone would break whenever broker wording changes.
type FailurePattern struct {
	Code         int
	TextContains string
}

// Matches reports whether the actual failure satisfies the pattern.
func (p FailurePattern) Matches(a Actual) bool {
	if p.Code != 0 && a.Code != 0 {
		if a.Code != p.Code {
			return false
		}
		if p.TextContains != "" && !strings.Contains(a.Reason, p.TextContains) {
			return false
		}
		return true
	}
	// No structured code on one side: fall back to the reason text.
	if p.TextContains != "" {
		return strings.Contains(a.Reason, p.TextContains)
	}
	// Pattern without text: any failure code is acceptable when the
	// pattern itself declared none.
	return p.Code == 0 || a.Code == p.Code
}

// String renders the pattern for mismatch messages.
func (p FailurePattern) String() string {
	switch {
	case p.Code != 0 && p.TextContains != "":
		return fmt.Sprintf("code=%d, text contains %q", p.Code, p.TextContains)
	case p.Code != 0:
		return fmt.Sprintf("code=%d", p.Code)
	case p.TextContains != "":
		return fmt.Sprintf("text contains %q", p.TextContains)
	default:
		return "any failure"
	}
}

// Expected is a step's declared outcome, fixed before the step executes.
type Expected struct {
	failure bool
	pattern FailurePattern
}

// ExpectSuccess declares that the step's operation must succeed.
func ExpectSuccess() Expected {
	return Expected{}
}

// ExpectFailure declares that the step's operation must be rejected by the
// broker with a failure matching the given pattern.
func ExpectFailure(p FailurePattern) Expected {
	return Expected{failure: true, pattern: p}
}

// WantsFailure reports whether the expectation is a failure expectation.
func (e Expected) WantsFailure() bool { return e.failure }

// Pattern returns the failure pattern; meaningful only when WantsFailure.
func (e Expected) Pattern() FailurePattern { return e.pattern }

// String renders the expectation for trace output.
func (e Expected) String() string {
	if e.failure {
		return fmt.Sprintf("failure (%s)", e.pattern)
	}
	return "success"
}

// Verdict is the classification of one step, immutable once produced.
type Verdict struct {
	Pass   bool
	Detail string
}

// Classify decides whether the actual outcome satisfies the expectation.
// It is a pure function of its inputs; the decision covers the four
// expected/actual combinations plus the transport-error case, which is a
// failure regardless of what was expected because no semantic result exists
// to compare against.
func Classify(expected Expected, actual Actual) Verdict {
	if actual.Status == StatusTransport {
		return Verdict{
			Pass:   false,
			Detail: fmt.Sprintf("infrastructure error, not a semantic result: %s", actual.Reason),
		}
	}

	if !expected.WantsFailure() {
		if actual.Status == StatusSuccess {
			return Verdict{Pass: true}
		}
		return Verdict{
			Pass:   false,
			Detail: fmt.Sprintf("operation was required to succeed, but it failed: %s", actual.String()),
		}
	}

	if actual.Status == StatusSuccess {
		return Verdict{
			Pass:   false,
			Detail: fmt.Sprintf("failure was expected (%s) but operation succeeded", expected.Pattern()),
		}
	}
	if expected.Pattern().Matches(actual) {
		return Verdict{Pass: true}
	}
	return Verdict{
		Pass: false,
		Detail: fmt.Sprintf("failure occurred but did not match expected pattern: got %s, wanted %s",
			actual.String(), expected.Pattern()),
	}
}
