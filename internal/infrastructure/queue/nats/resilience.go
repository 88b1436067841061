package nats

import (
	"context"
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/unimind/uniquery/internal/core/domain"
	"github.com/unimind/uniquery/internal/infrastructure/resilience"
)

// connectionErrors are broker-side conditions a publish can recover from by
// retrying once the connection heals. Anything else is a malformed publish
// that retrying cannot fix.
var connectionErrors = []error{
	nats.ErrNoServers,
	nats.ErrTimeout,
	nats.ErrConnectionClosed,
	nats.ErrDisconnected,
}

func classifyNATSError(err error) resilience.ErrorClassification {
	switch {
	case err == nil:
		return resilience.ErrorClassification{}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return resilience.ErrorClassification{}
	case resilience.IsCircuitOpen(err), isConnectionError(err):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	default:
		return resilience.ErrorClassification{RecordFailure: true}
	}
}

func isConnectionError(err error) bool {
	for _, candidate := range connectionErrors {
		if errors.Is(err, candidate) {
			return true
		}
	}
	return false
}

// wrapTemporaryIfNeeded tags recoverable publish failures as ErrTemporary,
// so an upload that only failed to enqueue its processing event surfaces as
// a retryable condition to the caller.
func wrapTemporaryIfNeeded(err error) error {
	switch {
	case err == nil, domain.IsKind(err, domain.ErrTemporary):
		return err
	case classifyNATSError(err).Retryable:
		return domain.WrapError(domain.ErrTemporary, "nats publish", err)
	default:
		return err
	}
}
