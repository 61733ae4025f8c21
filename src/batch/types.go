package batch

import (
	"github.com/michaelfecher/cross-account-access/src/relay"
	"github.com/sirupsen/logrus"
)

var (
	log = logrus.WithField("prefix", "batch")
)

// Result of one queue message. Err is nil for processed and skipped items.
type Result struct {
	MessageID string
	Outcome   relay.Outcome
	Err       error
}

// Failed reports whether the message must be redelivered.
func (result Result) Failed() bool {
	return result.Err != nil
}
