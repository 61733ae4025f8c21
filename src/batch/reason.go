package batch

import (
	"context"
	"errors"
	"github.com/michaelfecher/cross-account-access/src/iam"
	"github.com/michaelfecher/cross-account-access/src/relay"
	"github.com/michaelfecher/cross-account-access/src/storage"
)

// FailureReason names the error kind of a failed item for logs and metrics.
func FailureReason(err error) string {
	if err == nil {
		return ""
	}
	var malformed *relay.MalformedEnvelopeError
	var acquisition *iam.CredentialAcquisitionError
	switch {
	case errors.As(err, &malformed):
		return "MalformedEnvelope"
	case errors.As(err, &acquisition):
		return "CredentialAcquisitionError"
	case storage.KindOf(err) != 0:
		return storage.KindOf(err).String()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Timeout"
	}
	return "Unknown"
}
