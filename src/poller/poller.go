package poller

import (
	"context"
	"fmt"
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/michaelfecher/cross-account-access/src/utils"
	"github.com/sirupsen/logrus"
	"strconv"
	"time"
)

const (
	errorBackoffBase = time.Second
	errorBackoffMax  = time.Minute
)

// NewPoller creates a Poller for queueURL. Messages received more than
// maxReceiveCount times are deleted without being handled; zero disables the
// check.
func NewPoller(client SQSClient, queueURL string, processor BatchProcessor, maxReceiveCount int) Poller {
	return &sqsPoller{
		client:          client,
		queueURL:        queueURL,
		processor:       processor,
		maxReceiveCount: maxReceiveCount,
		logger:          log.WithField("queue", queueURL),
	}
}

func (poller *sqsPoller) Run(ctx context.Context) error {
	poller.logger.Info("Polling queue")
	failures := 0
	for {
		select {
		case <-ctx.Done():
			poller.logger.Info("Stopped polling queue")
			return nil
		default:
		}

		_, err := poller.PollOnce(ctx)
		if err == nil {
			failures = 0
			continue
		}
		if ctx.Err() != nil {
			continue
		}
		failures++
		backoff := utils.CappedExponentialBackoff(errorBackoffBase, errorBackoffMax, failures)
		poller.logger.WithFields(logrus.Fields{
			"error":   err.Error(),
			"backoff": backoff,
		}).Warn("Unable to poll queue")
		sleepContext(ctx, backoff)
	}
}

func (poller *sqsPoller) PollOnce(ctx context.Context) (int, error) {
	output, err := poller.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:                    aws.String(poller.queueURL),
		MaxNumberOfMessages:         maxMessages,
		WaitTimeSeconds:             waitTimeSeconds,
		MessageSystemAttributeNames: []types.MessageSystemAttributeName{receiveCount},
	})
	if err != nil {
		return 0, fmt.Errorf("Unable to receive messages: %w", err)
	}
	if len(output.Messages) == 0 {
		return 0, nil
	}

	messages := make([]events.SQSMessage, 0, len(output.Messages))
	receipts := make(map[string]*string, len(output.Messages))
	for _, message := range output.Messages {
		id := aws.ToString(message.MessageId)
		if poller.exhausted(message) {
			poller.logger.WithFields(logrus.Fields{
				"message-id":    id,
				"receive-count": message.Attributes[receiveCount],
			}).Error("Message exceeded the receive limit, dropping it")
			if err := poller.delete(ctx, message.ReceiptHandle); err != nil {
				poller.logger.WithFields(logrus.Fields{
					"message-id": id,
					"error":      err.Error(),
				}).Warn("Unable to delete exhausted message")
			}
			continue
		}
		receipts[id] = message.ReceiptHandle
		messages = append(messages, toEvent(message))
	}

	for _, result := range poller.processor.Process(ctx, messages) {
		if result.Failed() {
			continue
		}
		if err := poller.delete(ctx, receipts[result.MessageID]); err != nil {
			return len(output.Messages), err
		}
	}
	return len(output.Messages), nil
}

func (poller *sqsPoller) exhausted(message types.Message) bool {
	if poller.maxReceiveCount <= 0 {
		return false
	}
	count, err := strconv.Atoi(message.Attributes[receiveCount])
	if err != nil {
		return false
	}
	return count > poller.maxReceiveCount
}

func (poller *sqsPoller) delete(ctx context.Context, receiptHandle *string) error {
	_, err := poller.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(poller.queueURL),
		ReceiptHandle: receiptHandle,
	})
	if err != nil {
		return fmt.Errorf("Unable to delete message: %w", err)
	}
	return nil
}

func toEvent(message types.Message) events.SQSMessage {
	return events.SQSMessage{
		MessageId:     aws.ToString(message.MessageId),
		ReceiptHandle: aws.ToString(message.ReceiptHandle),
		Body:          aws.ToString(message.Body),
		Md5OfBody:     aws.ToString(message.MD5OfBody),
		Attributes:    message.Attributes,
		EventSource:   "aws:sqs",
	}
}

func sleepContext(ctx context.Context, duration time.Duration) {
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

type sqsPoller struct {
	client          SQSClient
	queueURL        string
	processor       BatchProcessor
	maxReceiveCount int
	logger          *logrus.Entry
}
