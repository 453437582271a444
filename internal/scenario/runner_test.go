package scenario

import (
	"context"
	"errors"
	"testing"

	"github.com/loykin/dqtprobe/internal/outcome"
)

// fakeAdmin implements AdminClient in memory and records the calls it saw.
type fakeAdmin struct {
	calls []string

	createErr error
	deleteErr error
	grantErr  error
	setErr    error

	dqt    string
	dqtSet bool
	dqtErr error

	args    map[string]any
	argsErr error
}

func (f *fakeAdmin) CreateVhost(_ context.Context, name string) error {
	f.calls = append(f.calls, "create:"+name)
	return f.createErr
}

func (f *fakeAdmin) DeleteVhost(_ context.Context, name string) error {
	f.calls = append(f.calls, "delete:"+name)
	return f.deleteErr
}

func (f *fakeAdmin) GrantPermissions(_ context.Context, vhost, user, configure, write, read string) error {
	f.calls = append(f.calls, "grant:"+vhost+":"+user+":"+configure+write+read)
	return f.grantErr
}

func (f *fakeAdmin) DefaultQueueType(_ context.Context, vhost string) (string, bool, error) {
	f.calls = append(f.calls, "dqt:"+vhost)
	return f.dqt, f.dqtSet, f.dqtErr
}

func (f *fakeAdmin) SetDefaultQueueType(_ context.Context, vhost, value string) error {
	f.calls = append(f.calls, "setdqt:"+vhost+":"+value)
	if f.setErr != nil {
		return f.setErr
	}
	f.dqt, f.dqtSet = value, true
	return nil
}

func (f *fakeAdmin) QueueArguments(_ context.Context, vhost, queue string) (map[string]any, error) {
	f.calls = append(f.calls, "qargs:"+vhost+":"+queue)
	return f.args, f.argsErr
}

// fakeQueue implements QueueClient; declareErrs are consumed in order, nil
// entries meaning success, and the last entry repeats.
type fakeQueue struct {
	declares    int
	declareErrs []error
}

func (f *fakeQueue) DeclareQueue(_ context.Context, _, _ string, _ bool, _ map[string]any) error {
	i := f.declares
	f.declares++
	if len(f.declareErrs) == 0 {
		return nil
	}
	if i >= len(f.declareErrs) {
		i = len(f.declareErrs) - 1
	}
	return f.declareErrs[i]
}

func testBroker(a *fakeAdmin, q *fakeQueue) Broker {
	return Broker{Admin: a, Queue: q}
}

func TestRunner_AllStepsPass(t *testing.T) {
	admin := &fakeAdmin{}
	br := testBroker(admin, &fakeQueue{})
	sc := Scenario{Name: "ok", Steps: []Step{
		{Name: "create", Kind: KindAdmin, Action: &CreateVhost{Vhost: "v"}, Expect: outcome.ExpectSuccess()},
		{Name: "declare", Kind: KindProtocol, Action: &DeclareQueue{Vhost: "v", Queue: "q", Durable: true}, Expect: outcome.ExpectSuccess()},
	}}

	res := NewRunner(br).Run(context.Background(), sc)
	if !res.Passed || res.Aborted {
		t.Fatalf("expected pass, got %+v", res)
	}
	if res.ExitCode() != 0 {
		t.Fatalf("expected exit code 0, got %d", res.ExitCode())
	}
	if len(res.Steps) != 2 {
		t.Fatalf("expected 2 step results, got %d", len(res.Steps))
	}
	if res.Steps[0].Seq != 1 || res.Steps[1].Seq != 2 {
		t.Fatalf("step results out of order: %+v", res.Steps)
	}
}

func TestRunner_NonToleratedFailureAborts(t *testing.T) {
	admin := &fakeAdmin{createErr: &outcome.BrokerError{Code: 500, Reason: "boom"}}
	br := testBroker(admin, &fakeQueue{})
	sc := Scenario{Name: "abort", Steps: []Step{
		{Name: "create", Kind: KindAdmin, Action: &CreateVhost{Vhost: "v"}, Expect: outcome.ExpectSuccess()},
		{Name: "never runs", Kind: KindAdmin, Action: &DeleteVhost{Vhost: "v"}, Expect: outcome.ExpectSuccess()},
	}}

	res := NewRunner(br).Run(context.Background(), sc)
	if res.Passed {
		t.Fatalf("expected failure")
	}
	if !res.Aborted {
		t.Fatalf("expected aborted run")
	}
	if res.ExitCode() != 1 {
		t.Fatalf("expected exit code 1, got %d", res.ExitCode())
	}
	if len(res.Steps) != 1 {
		t.Fatalf("remaining steps must not execute, got %d results", len(res.Steps))
	}
	for _, c := range admin.calls {
		if c == "delete:v" {
			t.Fatalf("second step executed after abort")
		}
	}
}

func TestRunner_ToleratedFailureContinues(t *testing.T) {
	admin := &fakeAdmin{deleteErr: &outcome.BrokerError{Code: 500, Reason: "internal"}}
	br := testBroker(admin, &fakeQueue{})
	sc := Scenario{Name: "tolerate", Steps: []Step{
		{Name: "cleanup", Kind: KindAdmin, Action: &DeleteVhost{Vhost: "v"}, Expect: outcome.ExpectSuccess(), Tolerate: true},
		{Name: "create", Kind: KindAdmin, Action: &CreateVhost{Vhost: "v"}, Expect: outcome.ExpectSuccess()},
	}}

	res := NewRunner(br).Run(context.Background(), sc)
	if !res.Passed {
		t.Fatalf("tolerated failure must not fail the run, got %+v", res)
	}
	if len(res.Steps) != 2 {
		t.Fatalf("expected both steps executed, got %d", len(res.Steps))
	}
	if !res.Steps[0].Tolerated || res.Steps[0].Verdict.Pass {
		t.Fatalf("first step should be a tolerated failure: %+v", res.Steps[0])
	}
}

func TestRunner_IdempotentCleanupOnRerun(t *testing.T) {
	// The control-plane client maps "not found" deletes to success, so a
	// rerun's tolerated cleanup step classifies as pass outright.
	admin := &fakeAdmin{deleteErr: nil}
	br := testBroker(admin, &fakeQueue{})
	sc := Scenario{Name: "rerun", Steps: []Step{
		{Name: "cleanup", Kind: KindAdmin, Action: &DeleteVhost{Vhost: "gone"}, Expect: outcome.ExpectSuccess(), Tolerate: true},
	}}

	res := NewRunner(br).Run(context.Background(), sc)
	if !res.Passed || !res.Steps[0].Verdict.Pass || res.Steps[0].Tolerated {
		t.Fatalf("absent-target cleanup should pass cleanly: %+v", res.Steps[0])
	}
}

func TestRunner_TransportErrorAbortsDespiteTolerance(t *testing.T) {
	admin := &fakeAdmin{deleteErr: &outcome.TransportError{Op: "delete vhost", Err: errors.New("connection refused")}}
	br := testBroker(admin, &fakeQueue{})
	sc := Scenario{Name: "transport", Steps: []Step{
		{Name: "cleanup", Kind: KindAdmin, Action: &DeleteVhost{Vhost: "v"}, Expect: outcome.ExpectSuccess(), Tolerate: true},
		{Name: "never runs", Kind: KindAdmin, Action: &CreateVhost{Vhost: "v"}, Expect: outcome.ExpectSuccess()},
	}}

	res := NewRunner(br).Run(context.Background(), sc)
	if res.Passed || !res.Aborted {
		t.Fatalf("transport error must abort regardless of tolerance: %+v", res)
	}
	if len(res.Steps) != 1 {
		t.Fatalf("no further steps may run after a transport error")
	}
	if res.Steps[0].Tolerated {
		t.Fatalf("transport failures are never marked tolerated")
	}
}

func TestRunner_ExpectedFailureIsPass(t *testing.T) {
	q := &fakeQueue{declareErrs: []error{&outcome.BrokerError{
		Code:   406,
		Reason: "PRECONDITION_FAILED - inequivalent arg 'x-queue-type' for queue 'q' in vhost 'v': received the value 'undefined' of type 'longstr' but current is none",
	}}}
	br := testBroker(&fakeAdmin{}, q)
	sc := Scenario{Name: "repro", Steps: []Step{
		{
			Name:   "redeclare",
			Kind:   KindProtocol,
			Action: &DeclareQueue{Vhost: "v", Queue: "q", Durable: true},
			Expect: outcome.ExpectFailure(outcome.FailurePattern{Code: 406, TextContains: "x-queue-type"}),
		},
	}}

	res := NewRunner(br).Run(context.Background(), sc)
	if !res.Passed {
		t.Fatalf("expected failure matching the pattern must pass: %+v", res.Steps[0])
	}
}

func TestRunner_UnexpectedSuccessFails(t *testing.T) {
	br := testBroker(&fakeAdmin{}, &fakeQueue{})
	sc := Scenario{Name: "notrepro", Steps: []Step{
		{
			Name:   "redeclare",
			Kind:   KindProtocol,
			Action: &DeclareQueue{Vhost: "v", Queue: "q", Durable: true},
			Expect: outcome.ExpectFailure(outcome.FailurePattern{Code: 406, TextContains: "x-queue-type"}),
		},
	}}

	res := NewRunner(br).Run(context.Background(), sc)
	if res.Passed {
		t.Fatalf("unexpected success must fail the run")
	}
}

func TestRunner_OverallVerdictProperty(t *testing.T) {
	// Overall pass iff every non-tolerated step passes.
	cases := []struct {
		name     string
		tolerate bool
		fail     bool
		want     bool
	}{
		{"pass strict", false, false, true},
		{"pass tolerated", true, false, true},
		{"fail strict", false, true, false},
		{"fail tolerated", true, true, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			admin := &fakeAdmin{}
			if tc.fail {
				admin.createErr = &outcome.BrokerError{Code: 500, Reason: "nope"}
			}
			sc := Scenario{Name: "prop", Steps: []Step{
				{Name: "s", Kind: KindAdmin, Action: &CreateVhost{Vhost: "v"}, Expect: outcome.ExpectSuccess(), Tolerate: tc.tolerate},
			}}
			res := NewRunner(testBroker(admin, &fakeQueue{})).Run(context.Background(), sc)
			if res.Passed != tc.want {
				t.Fatalf("want passed=%v, got %v", tc.want, res.Passed)
			}
		})
	}
}

func TestRunner_StepResultCarriesExpectedAndActual(t *testing.T) {
	admin := &fakeAdmin{createErr: &outcome.BrokerError{Code: 500, Reason: "boom"}}
	sc := Scenario{Name: "diag", Steps: []Step{
		{Name: "create", Kind: KindAdmin, Action: &CreateVhost{Vhost: "v"}, Expect: outcome.ExpectSuccess()},
	}}
	res := NewRunner(testBroker(admin, &fakeQueue{})).Run(context.Background(), sc)
	sr := res.Steps[0]
	if sr.Expected != "success" {
		t.Fatalf("expected outcome missing from result: %+v", sr)
	}
	if sr.Actual.Code != 500 || sr.Actual.Status != outcome.StatusFailure {
		t.Fatalf("actual outcome missing from result: %+v", sr)
	}
	if sr.Verdict.Detail == "" {
		t.Fatalf("mismatch detail must be recorded for diagnosis")
	}
}
