package scenario

import "github.com/loykin/dqtprobe/internal/outcome"

// preconditionFailed is the AMQP reply code for an inequivalent-argument
// rejection on redeclare.
const preconditionFailed = 406

// ReproParams configures the built-in default-queue-type scenario.
type ReproParams struct {
	Vhost string
	Queue string
	User  string
	// Cleanup deletes the vhost at the end of a run. Off by default so the
	// broken state stays inspectable after a reproduction.
	Cleanup bool
}

func (p *ReproParams) setDefaults() {
	if p.Vhost == "" {
		p.Vhost = "dqt_bug_repro"
	}
	if p.Queue == "" {
		p.Queue = "test_queue"
	}
	if p.User == "" {
		p.User = "guest"
	}
}

// DefaultQueueTypeRepro is the fixed scenario reproducing the broker defect:
// a vhost whose default_queue_type metadata holds the literal string
// "undefined" makes redeclaration of an argument-less queue fail with
// PRECONDITION_FAILED, because the broker injects the literal as the
// effective x-queue-type and compares it against the stored "none".
func DefaultQueueTypeRepro(p ReproParams) Scenario {
	p.setDefaults()

	steps := []Step{
		{
			Name:   "cleanup leftover vhost",
			Kind:   KindAdmin,
			Action: &DeleteVhost{Vhost: p.Vhost},
			Expect: outcome.ExpectSuccess(),
			// Reruns must not fail on admin errors during cleanup.
			Tolerate: true,
		},
		{
			Name:   "create vhost",
			Kind:   KindAdmin,
			Action: &CreateVhost{Vhost: p.Vhost},
			Expect: outcome.ExpectSuccess(),
		},
		{
			Name:   "grant permissions",
			Kind:   KindAdmin,
			Action: &GrantPermissions{Vhost: p.Vhost, User: p.User},
			Expect: outcome.ExpectSuccess(),
		},
		{
			// The declare carries no x-queue-type, simulating legacy
			// client behavior.
			Name:   "declare queue without x-queue-type",
			Kind:   KindProtocol,
			Action: &DeclareQueue{Vhost: p.Vhost, Queue: p.Queue, Durable: true},
			Expect: outcome.ExpectSuccess(),
		},
		{
			Name:   "verify stored x-queue-type is absent",
			Kind:   KindAdmin,
			Action: &CheckQueueArg{Vhost: p.Vhost, Queue: p.Queue, Key: "x-queue-type", Absent: true},
			Expect: outcome.ExpectSuccess(),
		},
		{
			Name:   "verify default_queue_type is unset",
			Kind:   KindAdmin,
			Action: &CheckDefaultQueueType{Vhost: p.Vhost, Unset: true},
			Expect: outcome.ExpectSuccess(),
		},
		{
			Name:   "set default_queue_type to literal undefined",
			Kind:   KindAdmin,
			Action: &SetDefaultQueueType{Vhost: p.Vhost, Value: "undefined"},
			Expect: outcome.ExpectSuccess(),
		},
		{
			Name:   "read back default_queue_type",
			Kind:   KindAdmin,
			Action: &CheckDefaultQueueType{Vhost: p.Vhost, Equals: "undefined"},
			Expect: outcome.ExpectSuccess(),
		},
		{
			// The reproduction itself: identical redeclare, rejected.
			Name:   "redeclare queue with identical parameters",
			Kind:   KindProtocol,
			Action: &DeclareQueue{Vhost: p.Vhost, Queue: p.Queue, Durable: true},
			Expect: outcome.ExpectFailure(outcome.FailurePattern{
				Code:         preconditionFailed,
				TextContains: "x-queue-type",
			}),
		},
		{
			Name:   "work around by setting default_queue_type to classic",
			Kind:   KindAdmin,
			Action: &SetDefaultQueueType{Vhost: p.Vhost, Value: "classic"},
			Expect: outcome.ExpectSuccess(),
		},
		{
			Name:   "read back default_queue_type after workaround",
			Kind:   KindAdmin,
			Action: &CheckDefaultQueueType{Vhost: p.Vhost, Equals: "classic"},
			Expect: outcome.ExpectSuccess(),
		},
		{
			Name:   "redeclare queue after workaround",
			Kind:   KindProtocol,
			Action: &DeclareQueue{Vhost: p.Vhost, Queue: p.Queue, Durable: true},
			Expect: outcome.ExpectSuccess(),
		},
		{
			Name:   "redeclare queue again to confirm idempotence",
			Kind:   KindProtocol,
			Action: &DeclareQueue{Vhost: p.Vhost, Queue: p.Queue, Durable: true},
			Expect: outcome.ExpectSuccess(),
		},
	}

	if p.Cleanup {
		steps = append(steps, Step{
			Name:     "delete vhost",
			Kind:     KindAdmin,
			Action:   &DeleteVhost{Vhost: p.Vhost},
			Expect:   outcome.ExpectSuccess(),
			Tolerate: true,
		})
	}

	return Scenario{Name: "default-queue-type-repro", Steps: steps}
}
