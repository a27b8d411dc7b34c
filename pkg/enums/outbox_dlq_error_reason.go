package enums

import "fmt"

// OutboxDLQErrorReason records why the publisher gave up on an event.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonNonRetryable
}

func ParseOutboxDLQErrorReason(value string) (OutboxDLQErrorReason, error) {
	if r := OutboxDLQErrorReason(value); r.IsValid() {
		return r, nil
	}
	return "", fmt.Errorf("invalid dead letter reason %q", value)
}
