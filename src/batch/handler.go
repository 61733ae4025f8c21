package batch

import (
	"context"
	"github.com/aws/aws-lambda-go/events"
	"github.com/michaelfecher/cross-account-access/src/metrics"
	"github.com/michaelfecher/cross-account-access/src/queue"
	"github.com/michaelfecher/cross-account-access/src/relay"
	"github.com/sirupsen/logrus"
	"time"
)

// NewHandler creates a batch Handler. When jobQueue is nil items are handled
// one after another, otherwise they are fanned out over the queue, which must
// be running. A nil metrics records nothing.
func NewHandler(processor relay.Processor, jobQueue queue.JobQueue, recorder *metrics.Metrics) *Handler {
	return &Handler{
		processor: processor,
		jobQueue:  jobQueue,
		metrics:   recorder,
		clock:     time.Now,
	}
}

// HandleBatch is the Lambda entry point for an SQS event source mapping with
// ReportBatchItemFailures enabled. Every record is attempted once and every
// failed record is listed in the response; per-item errors never fail the
// invocation.
func (handler *Handler) HandleBatch(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	results := handler.Process(ctx, event.Records)
	return Response(results), nil
}

// Process handles every message and returns one Result per message, in the
// order of the input.
func (handler *Handler) Process(ctx context.Context, messages []events.SQSMessage) []Result {
	handler.metrics.ObserveBatch()
	log.WithField("size", len(messages)).Debug("Handling batch")

	var results []Result
	if handler.jobQueue == nil || len(messages) < 2 {
		results = make([]Result, len(messages))
		for i, message := range messages {
			results[i] = handler.processMessage(ctx, message)
		}
	} else {
		results = handler.fanOut(ctx, messages)
	}

	failed := 0
	for _, result := range results {
		if result.Failed() {
			failed++
		}
	}
	log.WithFields(logrus.Fields{
		"size":   len(messages),
		"failed": failed,
	}).Info("Handled batch")
	return results
}

// Response lists the failed messages so only those are redelivered.
func Response(results []Result) events.SQSEventResponse {
	response := events.SQSEventResponse{
		BatchItemFailures: []events.SQSBatchItemFailure{},
	}
	for _, result := range results {
		if result.Failed() {
			response.BatchItemFailures = append(response.BatchItemFailures,
				events.SQSBatchItemFailure{ItemIdentifier: result.MessageID})
		}
	}
	return response
}

func (handler *Handler) fanOut(ctx context.Context, messages []events.SQSMessage) []Result {
	resultChan := make(chan indexedResult, len(messages))
	pending := 0
	for i, message := range messages {
		if !handler.enqueue(ctx, newProcessItemJob(ctx, handler, i, message, resultChan)) {
			log.WithField("unqueued", len(messages)-i).Warn("Batch deadline reached while enqueuing items")
			break
		}
		pending++
	}

	results := make([]Result, len(messages))
	done := make([]bool, len(messages))
	for ; pending > 0; pending-- {
		select {
		case indexed := <-resultChan:
			results[indexed.index] = indexed.result
			done[indexed.index] = true
		case <-ctx.Done():
			log.WithField("pending", pending).Warn("Batch deadline reached before every item finished")
			pending = 0
		}
	}

	for i, message := range messages {
		if !done[i] {
			results[i] = Result{MessageID: message.MessageId, Err: ctx.Err()}
		}
	}
	return results
}

// enqueue gives up when ctx is done before the queue accepts the job.
func (handler *Handler) enqueue(ctx context.Context, job *processItemJob) bool {
	enqueued := make(chan struct{})
	go func() {
		handler.jobQueue.Enqueue(job)
		close(enqueued)
	}()
	select {
	case <-enqueued:
		return true
	case <-ctx.Done():
		return false
	}
}

func (handler *Handler) processMessage(ctx context.Context, message events.SQSMessage) Result {
	start := handler.clock()
	logger := log.WithField("message-id", message.MessageId)
	result := Result{MessageID: message.MessageId}

	item, err := relay.ParseMessage(message)
	if err == nil {
		result.Outcome, err = handler.processor.Process(ctx, item)
	}
	result.Err = err

	elapsed := handler.clock().Sub(start)
	if err != nil {
		reason := FailureReason(err)
		logger.WithFields(logrus.Fields{
			"reason": reason,
			"error":  err.Error(),
		}).Warn("Item failed")
		handler.metrics.ObserveItem(metrics.ResultFailed, reason, elapsed)
		return result
	}

	if result.Outcome == relay.Skipped {
		handler.metrics.ObserveItem(metrics.ResultSkipped, "", elapsed)
	} else {
		handler.metrics.ObserveItem(metrics.ResultProcessed, "", elapsed)
	}
	return result
}

// Handler turns a batch of SQS messages into per-item results.
type Handler struct {
	processor relay.Processor
	jobQueue  queue.JobQueue
	metrics   *metrics.Metrics
	clock     func() time.Time
}
