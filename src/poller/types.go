package poller

import (
	"context"
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/michaelfecher/cross-account-access/src/batch"
	"github.com/sirupsen/logrus"
)

const (
	maxMessages     = 10
	waitTimeSeconds = 20
	receiveCount    = "ApproximateReceiveCount"
)

var (
	log = logrus.WithField("prefix", "poller")
)

// SQSClient specifies the subset of SQS API calls used by the Poller.
type SQSClient interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// BatchProcessor handles a received batch and reports one result per message.
type BatchProcessor interface {
	Process(ctx context.Context, messages []events.SQSMessage) []batch.Result
}

// Poller feeds an SQS queue to a BatchProcessor when not running inside
// Lambda.
type Poller interface {
	// Poll until the context is done.
	Run(ctx context.Context) error
	// Receive and handle a single batch. Returns the number of messages
	// received.
	PollOnce(ctx context.Context) (int, error)
}
