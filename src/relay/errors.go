package relay

import (
	"fmt"
)

// MalformedEnvelopeError is returned when a queue message does not carry a
// usable object creation event.
type MalformedEnvelopeError struct {
	MessageID string
	Err       error
}

func (err *MalformedEnvelopeError) Error() string {
	return fmt.Sprintf("Malformed envelope in message %s: %s", err.MessageID, err.Err)
}

func (err *MalformedEnvelopeError) Unwrap() error {
	return err.Err
}
