// Package dqtprobe reproduces and verifies a broker defect: a vhost whose
// default_queue_type metadata holds the literal string "undefined" makes
// redeclaration of existing queues fail with PRECONDITION_FAILED.
package dqtprobe

import (
	"context"
	"io"

	"github.com/loykin/dqtprobe/internal/amqpc"
	"github.com/loykin/dqtprobe/internal/mgmt"
	"github.com/loykin/dqtprobe/internal/outcome"
	"github.com/loykin/dqtprobe/internal/scenario"
	"github.com/loykin/dqtprobe/internal/store"
)

// Re-export commonly used types for public API

// Scenario is a fixed, ordered sequence of steps.
type Scenario = scenario.Scenario

// Step pairs an action with its declared expectation.
type Step = scenario.Step

// Broker bundles the control-plane and protocol clients a scenario runs against.
type Broker = scenario.Broker

// AdminClient is the control-plane surface scenarios need.
type AdminClient = scenario.AdminClient

// QueueClient is the wire-level surface scenarios need.
type QueueClient = scenario.QueueClient

// Result aggregates a whole run.
type Result = scenario.Result

// StepResult is the record of one executed step.
type StepResult = scenario.StepResult

// ReproParams configures the built-in reproduction scenario.
type ReproParams = scenario.ReproParams

// Expected is a step's declared outcome.
type Expected = outcome.Expected

// FailurePattern matches a broker rejection by condition code and reason text.
type FailurePattern = outcome.FailurePattern

// Verdict is the classification of one step.
type Verdict = outcome.Verdict

// BrokerError is a semantic rejection by the broker.
type BrokerError = outcome.BrokerError

// TransportError means an operation never produced a semantic result.
type TransportError = outcome.TransportError

// ExpectSuccess declares that a step's operation must succeed.
func ExpectSuccess() Expected { return outcome.ExpectSuccess() }

// ExpectFailure declares that a step's operation must be rejected with a
// failure matching the pattern.
func ExpectFailure(p FailurePattern) Expected { return outcome.ExpectFailure(p) }

// ManagementConfig configures the management API client.
type ManagementConfig = mgmt.Config

// ManagementClient issues administrative commands against the management API.
type ManagementClient = mgmt.Client

// NewManagementClient builds a management API client.
func NewManagementClient(cfg ManagementConfig) *ManagementClient { return mgmt.New(cfg) }

// AMQPConfig configures the protocol client.
type AMQPConfig = amqpc.Config

// AMQPClient declares queues over the wire protocol.
type AMQPClient = amqpc.Client

// NewAMQPClient builds a protocol client.
func NewAMQPClient(cfg AMQPConfig) *AMQPClient { return amqpc.New(cfg) }

// Run executes the scenario strictly in sequence against the broker.
func Run(ctx context.Context, br Broker, sc Scenario) *Result {
	return scenario.NewRunner(br).Run(ctx, sc)
}

// DefaultScenario returns the built-in default-queue-type reproduction.
func DefaultScenario(p ReproParams) Scenario {
	return scenario.DefaultQueueTypeRepro(p)
}

// LoadScenario decodes a scenario definition from YAML.
func LoadScenario(r io.Reader) (Scenario, error) { return scenario.Load(r) }

// LoadScenarioFromFile loads a scenario definition from a YAML file.
func LoadScenarioFromFile(path string) (Scenario, error) { return scenario.LoadFromFile(path) }

// Store persists scenario run history.
type Store = store.Store

// StoreConfig selects and configures the history backend.
type StoreConfig = store.Config

// StoreDBFileName is the default sqlite filename used for run history.
const StoreDBFileName = store.DbFileName

// OpenStore opens (and initializes) the configured run history store.
func OpenStore(cfg StoreConfig) (*Store, error) { return store.Open(cfg) }
