package nats

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/nats-io/nats.go"

	"github.com/unimind/uniquery/internal/core/domain"
)

func TestClassifyNATSError(t *testing.T) {
	cases := []struct {
		name          string
		err           error
		retryable     bool
		recordFailure bool
	}{
		{"cancellation is ignored", context.Canceled, false, false},
		{"no servers retries", nats.ErrNoServers, true, true},
		{"wrapped disconnect retries", fmt.Errorf("publish: %w", nats.ErrDisconnected), true, true},
		{"bad payload trips without retry", nats.ErrMaxPayload, false, true},
		{"unknown failure trips without retry", errors.New("subject rejected"), false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			class := classifyNATSError(tc.err)
			if class.Retryable != tc.retryable || class.RecordFailure != tc.recordFailure {
				t.Fatalf("classifyNATSError(%v) = %+v, want retryable=%v recordFailure=%v",
					tc.err, class, tc.retryable, tc.recordFailure)
			}
		})
	}
}

func TestWrapTemporaryTagsConnectionFailures(t *testing.T) {
	err := wrapTemporaryIfNeeded(nats.ErrConnectionClosed)
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}

	err = wrapTemporaryIfNeeded(errors.New("subject rejected"))
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("non-recoverable publish must not be tagged temporary: %v", err)
	}
}
