package batch

import (
	"context"
	"github.com/aws/aws-lambda-go/events"
	"time"
)

// processItemJob handles one message of a batch on a pooled queue and reports
// its Result exactly once.
type processItemJob struct {
	ctx     context.Context
	handler *Handler
	index   int
	message events.SQSMessage
	results chan<- indexedResult
	result  Result
}

// indexedResult is a Result and the position of its message in the batch.
type indexedResult struct {
	index  int
	result Result
}

func newProcessItemJob(ctx context.Context, handler *Handler, index int, message events.SQSMessage, results chan<- indexedResult) *processItemJob {
	return &processItemJob{
		ctx:     ctx,
		handler: handler,
		index:   index,
		message: message,
		results: results,
	}
}

func (job *processItemJob) ID() string {
	return "batch/process-item/" + job.message.MessageId
}

// Items are attempted once; redelivery is left to the queue service.
func (job *processItemJob) AllowedAttempts() int {
	return 1
}

func (job *processItemJob) Backoff(attempt int) time.Duration {
	return 0
}

// Perform runs under the invocation's context, not the queue's.
func (job *processItemJob) Perform(_ context.Context) error {
	job.result = job.handler.processMessage(job.ctx, job.message)
	return job.result.Err
}

func (job *processItemJob) Complete(err error) {
	job.results <- indexedResult{index: job.index, result: job.result}
}
