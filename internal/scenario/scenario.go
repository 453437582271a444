// Package scenario models an ordered conformance scenario and runs it
// against a live broker through injected control-plane and protocol clients.
package scenario

import (
	"context"

	"github.com/loykin/dqtprobe/internal/outcome"
)

// Kind distinguishes administrative steps from wire-protocol steps.
type Kind string

const (
	KindAdmin    Kind = "admin"
	KindProtocol Kind = "protocol"
)

// AdminClient is the control-plane surface the runner needs. Implementations
// return nil on success, *outcome.BrokerError for structured failures and
// *outcome.TransportError when no semantic result was obtained.
type AdminClient interface {
	CreateVhost(ctx context.Context, name string) error
	// DeleteVhost is idempotent: deleting an absent vhost is success.
	DeleteVhost(ctx context.Context, name string) error
	GrantPermissions(ctx context.Context, vhost, user, configure, write, read string) error
	DefaultQueueType(ctx context.Context, vhost string) (value string, set bool, err error)
	SetDefaultQueueType(ctx context.Context, vhost, value string) error
	QueueArguments(ctx context.Context, vhost, queue string) (map[string]any, error)
}

// QueueClient is the wire-level surface the runner needs.
type QueueClient interface {
	DeclareQueue(ctx context.Context, vhost, name string, durable bool, args map[string]any) error
}

// Broker bundles the two client interfaces. It is passed explicitly into
// every action so the runner can execute against fakes in tests.
type Broker struct {
	Admin AdminClient
	Queue QueueClient
}

// Action is one operation of a step.
type Action interface {
	Describe() string
	Run(ctx context.Context, br Broker) error
}

// Step pairs an action with its expectation, declared before execution.
type Step struct {
	Name   string
	Kind   Kind
	Action Action
	Expect outcome.Expected
	// Tolerate downgrades a failing verdict to a recorded, non-fatal one.
	// It accepts any failure; a step that must fail in a specific way
	// declares ExpectFailure instead.
	Tolerate bool
}

// Scenario is a fixed, ordered sequence of steps. Order is significant and
// set at definition time; steps never run in parallel or out of order.
type Scenario struct {
	Name  string
	Steps []Step
}
