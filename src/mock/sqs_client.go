package mock

import (
	"context"
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"sync"
)

// SQSClient implements github.com/michaelfecher/cross-account-access/src/poller.SQSClient.
// Each ReceiveMessage call returns the next queued batch, or nothing once the
// batches run out.
type SQSClient struct {
	ReceiveErr error
	DeleteErr  error
	Inputs     []*sqs.ReceiveMessageInput
	batches    [][]types.Message
	deleted    []string
	deleteErrs map[string]error
	mutex      sync.Mutex
}

// NewSQSClient returns a mock SQSClient with no messages.
func NewSQSClient() *SQSClient {
	return &SQSClient{deleteErrs: make(map[string]error)}
}

// SetDeleteError fails every delete of the given receipt handle with err.
func (mock *SQSClient) SetDeleteError(receiptHandle string, err error) {
	mock.mutex.Lock()
	defer mock.mutex.Unlock()
	mock.deleteErrs[receiptHandle] = err
}

// AddBatch queues a batch for a later ReceiveMessage call.
func (mock *SQSClient) AddBatch(messages ...types.Message) {
	mock.mutex.Lock()
	defer mock.mutex.Unlock()
	mock.batches = append(mock.batches, messages)
}

// Deleted returns the receipt handles of every deleted message in order.
func (mock *SQSClient) Deleted() []string {
	mock.mutex.Lock()
	defer mock.mutex.Unlock()
	return append([]string{}, mock.deleted...)
}

// Receives returns the number of ReceiveMessage calls.
func (mock *SQSClient) Receives() int {
	mock.mutex.Lock()
	defer mock.mutex.Unlock()
	return len(mock.Inputs)
}

func (mock *SQSClient) ReceiveMessage(ctx context.Context, input *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	mock.mutex.Lock()
	defer mock.mutex.Unlock()

	mock.Inputs = append(mock.Inputs, input)
	if mock.ReceiveErr != nil {
		return nil, mock.ReceiveErr
	}
	if len(mock.batches) == 0 {
		return &sqs.ReceiveMessageOutput{}, nil
	}
	batch := mock.batches[0]
	mock.batches = mock.batches[1:]
	return &sqs.ReceiveMessageOutput{Messages: batch}, nil
}

func (mock *SQSClient) DeleteMessage(ctx context.Context, input *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	mock.mutex.Lock()
	defer mock.mutex.Unlock()

	if mock.DeleteErr != nil {
		return nil, mock.DeleteErr
	}
	if err, ok := mock.deleteErrs[aws.ToString(input.ReceiptHandle)]; ok {
		return nil, err
	}
	mock.deleted = append(mock.deleted, aws.ToString(input.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

// SQSMessage builds a received message from an SQS message event.
func SQSMessage(message events.SQSMessage, receiveCount string) types.Message {
	return types.Message{
		MessageId:     aws.String(message.MessageId),
		ReceiptHandle: aws.String(message.ReceiptHandle),
		Body:          aws.String(message.Body),
		Attributes:    map[string]string{"ApproximateReceiveCount": receiveCount},
	}
}
