package outcome

import (
	"errors"
	"fmt"
)

// BrokerError is a semantic rejection by the broker: an AMQP channel
// exception or a structured control-plane failure. Code carries the numeric
// condition (AMQP reply code or HTTP status) when one was provided.
type BrokerError struct {
	Code   int
	Reason string
}

func (e *BrokerError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("broker rejected operation (code=%d): %s", e.Code, e.Reason)
	}
	return fmt.Sprintf("broker rejected operation: %s", e.Reason)
}

// TransportError means the operation never produced a semantic result:
// the connection could not be established, authentication failed, or the
// client hit an error unrelated to the operation's semantics.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// FromError maps a step action's error into an Actual outcome. A nil error
// is success; a BrokerError is a semantic failure. Everything else,
// including errors of unknown shape, is treated as a transport error since
// it invalidates the meaning of any expectation.
func FromError(err error) Actual {
	if err == nil {
		return Actual{Status: StatusSuccess}
	}
	var be *BrokerError
	if errors.As(err, &be) {
		return Actual{Status: StatusFailure, Code: be.Code, Reason: be.Reason}
	}
	var te *TransportError
	if errors.As(err, &te) {
		return Actual{Status: StatusTransport, Reason: te.Error()}
	}
	return Actual{Status: StatusTransport, Reason: err.Error()}
}
