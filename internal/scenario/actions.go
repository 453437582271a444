package scenario

import (
	"context"
	"fmt"

	"github.com/loykin/dqtprobe/internal/outcome"
)

// DeleteVhost removes a virtual host; absence counts as success.
type DeleteVhost struct {
	Vhost string `mapstructure:"vhost"`
}

func (a *DeleteVhost) Describe() string {
	return fmt.Sprintf("delete vhost %q", a.Vhost)
}

func (a *DeleteVhost) Run(ctx context.Context, br Broker) error {
	return br.Admin.DeleteVhost(ctx, a.Vhost)
}

// CreateVhost creates a virtual host.
type CreateVhost struct {
	Vhost string `mapstructure:"vhost"`
}

func (a *CreateVhost) Describe() string {
	return fmt.Sprintf("create vhost %q", a.Vhost)
}

func (a *CreateVhost) Run(ctx context.Context, br Broker) error {
	return br.Admin.CreateVhost(ctx, a.Vhost)
}

// GrantPermissions grants a user access patterns on a vhost. Empty patterns
// default to ".*".
type GrantPermissions struct {
	Vhost     string `mapstructure:"vhost"`
	User      string `mapstructure:"user"`
	Configure string `mapstructure:"configure"`
	Write     string `mapstructure:"write"`
	Read      string `mapstructure:"read"`
}

func (a *GrantPermissions) Describe() string {
	return fmt.Sprintf("grant %q full access on vhost %q", a.User, a.Vhost)
}

func (a *GrantPermissions) Run(ctx context.Context, br Broker) error {
	configure, write, read := a.Configure, a.Write, a.Read
	if configure == "" {
		configure = ".*"
	}
	if write == "" {
		write = ".*"
	}
	if read == "" {
		read = ".*"
	}
	return br.Admin.GrantPermissions(ctx, a.Vhost, a.User, configure, write, read)
}

// DeclareQueue declares a queue over the wire protocol with the given
// argument table. No arguments are injected client-side.
type DeclareQueue struct {
	Vhost   string         `mapstructure:"vhost"`
	Queue   string         `mapstructure:"queue"`
	Durable bool           `mapstructure:"durable"`
	Args    map[string]any `mapstructure:"args"`
}

func (a *DeclareQueue) Describe() string {
	return fmt.Sprintf("declare queue %q in vhost %q (durable=%v, args=%d)",
		a.Queue, a.Vhost, a.Durable, len(a.Args))
}

func (a *DeclareQueue) Run(ctx context.Context, br Broker) error {
	return br.Queue.DeclareQueue(ctx, a.Vhost, a.Queue, a.Durable, a.Args)
}

// CheckQueueArg verifies the stored argument table of a queue: either that
// a key is absent, or that it holds an expected value. A mismatch is a
// semantic failure, not a transport one, so it classifies like any other
// broker outcome.
type CheckQueueArg struct {
	Vhost  string `mapstructure:"vhost"`
	Queue  string `mapstructure:"queue"`
	Key    string `mapstructure:"key"`
	Absent bool   `mapstructure:"absent"`
	Equals string `mapstructure:"equals"`
}

func (a *CheckQueueArg) Describe() string {
	if a.Absent {
		return fmt.Sprintf("verify queue %q has no stored %q argument", a.Queue, a.Key)
	}
	return fmt.Sprintf("verify queue %q has %q = %q", a.Queue, a.Key, a.Equals)
}

func (a *CheckQueueArg) Run(ctx context.Context, br Broker) error {
	args, err := br.Admin.QueueArguments(ctx, a.Vhost, a.Queue)
	if err != nil {
		return err
	}
	got, present := args[a.Key]
	if a.Absent {
		if present {
			return &outcome.BrokerError{
				Reason: fmt.Sprintf("argument %q unexpectedly stored for queue %q: %v", a.Key, a.Queue, got),
			}
		}
		return nil
	}
	if !present {
		return &outcome.BrokerError{
			Reason: fmt.Sprintf("argument %q not stored for queue %q, wanted %q", a.Key, a.Queue, a.Equals),
		}
	}
	if fmt.Sprint(got) != a.Equals {
		return &outcome.BrokerError{
			Reason: fmt.Sprintf("argument %q for queue %q is %v, wanted %q", a.Key, a.Queue, got, a.Equals),
		}
	}
	return nil
}

// CheckDefaultQueueType verifies the vhost's default_queue_type metadata:
// either that it is unset, or that it holds exactly the expected literal.
type CheckDefaultQueueType struct {
	Vhost  string `mapstructure:"vhost"`
	Unset  bool   `mapstructure:"unset"`
	Equals string `mapstructure:"equals"`
}

func (a *CheckDefaultQueueType) Describe() string {
	if a.Unset {
		return fmt.Sprintf("verify vhost %q has no default_queue_type set", a.Vhost)
	}
	return fmt.Sprintf("verify vhost %q default_queue_type is %q", a.Vhost, a.Equals)
}

func (a *CheckDefaultQueueType) Run(ctx context.Context, br Broker) error {
	value, set, err := br.Admin.DefaultQueueType(ctx, a.Vhost)
	if err != nil {
		return err
	}
	if a.Unset {
		if set {
			return &outcome.BrokerError{
				Reason: fmt.Sprintf("default_queue_type of vhost %q is %q, wanted unset", a.Vhost, value),
			}
		}
		return nil
	}
	if !set {
		return &outcome.BrokerError{
			Reason: fmt.Sprintf("default_queue_type of vhost %q is unset, wanted %q", a.Vhost, a.Equals),
		}
	}
	if value != a.Equals {
		return &outcome.BrokerError{
			Reason: fmt.Sprintf("default_queue_type of vhost %q is %q, wanted %q", a.Vhost, value, a.Equals),
		}
	}
	return nil
}

// SetDefaultQueueType merges the default_queue_type metadata field.
type SetDefaultQueueType struct {
	Vhost string `mapstructure:"vhost"`
	Value string `mapstructure:"value"`
}

func (a *SetDefaultQueueType) Describe() string {
	return fmt.Sprintf("set default_queue_type of vhost %q to %q", a.Vhost, a.Value)
}

func (a *SetDefaultQueueType) Run(ctx context.Context, br Broker) error {
	return br.Admin.SetDefaultQueueType(ctx, a.Vhost, a.Value)
}

type actionEntry struct {
	kind    Kind
	factory func() Action
}

// actionRegistry maps YAML action names onto typed actions; the entry's kind
// is the default when a step omits one and validated against a declared one.
var actionRegistry = map[string]actionEntry{
	"delete_vhost":             {KindAdmin, func() Action { return &DeleteVhost{} }},
	"create_vhost":             {KindAdmin, func() Action { return &CreateVhost{} }},
	"grant_permissions":        {KindAdmin, func() Action { return &GrantPermissions{} }},
	"declare_queue":            {KindProtocol, func() Action { return &DeclareQueue{} }},
	"check_queue_arg":          {KindAdmin, func() Action { return &CheckQueueArg{} }},
	"check_default_queue_type": {KindAdmin, func() Action { return &CheckDefaultQueueType{} }},
	"set_default_queue_type":   {KindAdmin, func() Action { return &SetDefaultQueueType{} }},
}
