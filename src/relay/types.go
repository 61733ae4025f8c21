package relay

import (
	"context"
	"github.com/sirupsen/logrus"
	"time"
)

const (
	// ObjectCreated is the only EventBridge detail type which is relayed.
	ObjectCreated = "Object Created"
)

var (
	log = logrus.WithField("prefix", "relay")
)

// Processor relays a single object from the input location to the output
// location.
type Processor interface {
	// Copy the object named by item, prepending a header. Items outside the
	// configured input convention are Skipped with a nil error.
	Process(ctx context.Context, item *WorkItem) (Outcome, error)
}

// Outcome of a successfully handled item.
type Outcome int

const (
	Processed Outcome = iota
	Skipped
)

func (outcome Outcome) String() string {
	switch outcome {
	case Processed:
		return "processed"
	case Skipped:
		return "skipped"
	}
	return "unknown"
}

// WorkItem is one object creation notification, parsed from a queue message.
type WorkItem struct {
	ID         string
	Source     string
	DetailType string
	Account    string
	Bucket     string
	Key        string
	Size       int64
	RequestID  string
	Time       time.Time
}

// Settings are the per-deployment constants of a Processor.
type Settings struct {
	SourceBucket      string
	DestinationBucket string
	// Keys outside InputPrefix are skipped. Empty matches every key.
	InputPrefix string
	// Replaces InputPrefix in the destination key. Empty keeps the key as is.
	OutputPrefix string
	// When set, the first path segment below InputPrefix must equal it.
	TenantSegment string
	ProcessorID   string
	DeploymentID  string
}
