package batch_test

import (
	"context"
	"errors"
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/smithy-go"
	. "github.com/michaelfecher/cross-account-access/src/batch"
	"github.com/michaelfecher/cross-account-access/src/iam"
	"github.com/michaelfecher/cross-account-access/src/metrics"
	"github.com/michaelfecher/cross-account-access/src/mock"
	"github.com/michaelfecher/cross-account-access/src/queue"
	"github.com/michaelfecher/cross-account-access/src/relay"
	"github.com/michaelfecher/cross-account-access/src/storage"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"strings"
	"time"
)

var _ = Describe("Handler", func() {
	const (
		source      = "source-bucket"
		destination = "destination-bucket"
	)

	var (
		ctx       context.Context
		s3Client  *mock.S3Client
		processor relay.Processor
		registry  *prometheus.Registry
		recorder  *metrics.Metrics
		subject   *Handler
	)

	message := func(id, key string) events.SQSMessage {
		return mock.ObjectCreatedMessage(id, source, key)
	}

	BeforeEach(func() {
		ctx = context.Background()
		s3Client = mock.NewS3Client()
		now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		processor = relay.NewProcessor(relay.Settings{
			SourceBucket:      source,
			DestinationBucket: destination,
			InputPrefix:       "input/",
			ProcessorID:       "s3-relay",
			DeploymentID:      "dev",
		}, storage.NewS3ObjectStore(s3Client), nil, func() time.Time { return now })
		registry = prometheus.NewRegistry()
		recorder = metrics.New(registry)
		subject = NewHandler(processor, nil, recorder)
	})

	Describe("HandleBatch", func() {
		Context("When every item succeeds", func() {
			BeforeEach(func() {
				for _, key := range []string{"input/a.txt", "input/b.txt", "input/c.txt"} {
					s3Client.AddObject(source, key, []byte("body of "+key), "text/plain")
				}
			})

			It("Reports no failures and writes every object", func() {
				response, err := subject.HandleBatch(ctx, events.SQSEvent{Records: []events.SQSMessage{
					message("m1", "input/a.txt"),
					message("m2", "input/b.txt"),
					message("m3", "input/c.txt"),
				}})
				Expect(err).To(BeNil())
				Expect(response.BatchItemFailures).To(BeEmpty())
				Expect(s3Client.Puts()).To(Equal(3))

				for _, key := range []string{"input/a.txt", "input/b.txt", "input/c.txt"} {
					written, ok := s3Client.Object(destination, key)
					Expect(ok).To(BeTrue())
					Expect(string(written.Body)).To(Equal(
						"# Processed by dev at 2024-03-01T12:00:00Z\n# Source: " + key + "\n\nbody of " + key))
				}
			})
		})

		Context("When the key is outside the input prefix", func() {
			It("Reports no failures and writes nothing", func() {
				response, err := subject.HandleBatch(ctx, events.SQSEvent{Records: []events.SQSMessage{
					message("m1", "other/file.txt"),
				}})
				Expect(err).To(BeNil())
				Expect(response.BatchItemFailures).To(BeEmpty())
				Expect(s3Client.Puts()).To(Equal(0))
			})
		})

		Context("When the body is not valid JSON", func() {
			It("Reports that message as failed", func() {
				response, err := subject.HandleBatch(ctx, events.SQSEvent{Records: []events.SQSMessage{
					{MessageId: "m-bad", Body: "{not json"},
				}})
				Expect(err).To(BeNil())
				Expect(response.BatchItemFailures).To(Equal([]events.SQSBatchItemFailure{
					{ItemIdentifier: "m-bad"},
				}))
			})
		})

		Context("When one read is denied", func() {
			BeforeEach(func() {
				s3Client.AddObject(source, "input/denied.txt", []byte("x"), "")
				s3Client.SetGetError(source, "input/denied.txt", &smithy.GenericAPIError{Code: "AccessDenied"})
				s3Client.AddObject(source, "input/ok.txt", []byte("y"), "")
			})

			It("Fails only that item", func() {
				response, err := subject.HandleBatch(ctx, events.SQSEvent{Records: []events.SQSMessage{
					message("m1", "input/denied.txt"),
					message("m2", "input/ok.txt"),
				}})
				Expect(err).To(BeNil())
				Expect(response.BatchItemFailures).To(Equal([]events.SQSBatchItemFailure{
					{ItemIdentifier: "m1"},
				}))
				_, ok := s3Client.Object(destination, "input/ok.txt")
				Expect(ok).To(BeTrue())
			})

			It("Counts the failure by reason", func() {
				subject.HandleBatch(ctx, events.SQSEvent{Records: []events.SQSMessage{
					message("m1", "input/denied.txt"),
					message("m2", "input/ok.txt"),
				}})
				expected := `
# HELP s3_relay_items_total Total number of queue messages handled, by result and failure reason
# TYPE s3_relay_items_total counter
s3_relay_items_total{reason="SourceAccessDenied",result="failed"} 1
s3_relay_items_total{reason="none",result="processed"} 1
`
				err := testutil.GatherAndCompare(registry, strings.NewReader(expected), "s3_relay_items_total")
				Expect(err).To(BeNil())
			})
		})

		Context("With an empty batch", func() {
			It("Returns an empty failure list", func() {
				response, err := subject.HandleBatch(ctx, events.SQSEvent{})
				Expect(err).To(BeNil())
				Expect(response.BatchItemFailures).NotTo(BeNil())
				Expect(response.BatchItemFailures).To(BeEmpty())
			})
		})
	})

	Describe("Process", func() {
		BeforeEach(func() {
			s3Client.AddObject(source, "input/a.txt", []byte("a"), "")
		})

		It("Returns one result per message in input order", func() {
			results := subject.Process(ctx, []events.SQSMessage{
				message("m1", "input/a.txt"),
				message("m2", "other/b.txt"),
				message("m3", "input/missing.txt"),
			})
			Expect(results).To(HaveLen(3))
			Expect(results[0]).To(Equal(Result{MessageID: "m1", Outcome: relay.Processed}))
			Expect(results[1]).To(Equal(Result{MessageID: "m2", Outcome: relay.Skipped}))
			Expect(results[2].MessageID).To(Equal("m3"))
			Expect(results[2].Failed()).To(BeTrue())
			Expect(errors.Is(results[2].Err, storage.SourceNotFound)).To(BeTrue())
		})

		Context("With a job queue", func() {
			It("Fans the items out and collects every result", func() {
				jobQueue := mock.NewInlineJobQueue(ctx)
				subject = NewHandler(processor, jobQueue, nil)
				results := subject.Process(ctx, []events.SQSMessage{
					message("m1", "input/a.txt"),
					message("m2", "input/missing.txt"),
				})
				Expect(jobQueue.JobIDs()).To(Equal([]string{
					"batch/process-item/m1",
					"batch/process-item/m2",
				}))
				Expect(results[0].Failed()).To(BeFalse())
				Expect(results[1].Failed()).To(BeTrue())
			})

			It("Works with a pooled queue", func() {
				jobQueue := queue.NewPooledJobQueue(4, 3)
				go jobQueue.Run(ctx)
				defer jobQueue.Stop()
				Eventually(jobQueue.IsRunning).Should(BeTrue())

				subject = NewHandler(processor, jobQueue, nil)
				messages := []events.SQSMessage{}
				for _, id := range []string{"m1", "m2", "m3", "m4", "m5"} {
					key := "input/" + id
					s3Client.AddObject(source, key, []byte(id), "")
					messages = append(messages, message(id, key))
				}
				messages = append(messages, events.SQSMessage{MessageId: "m-bad", Body: "nope"})

				response := Response(subject.Process(ctx, messages))
				Expect(response.BatchItemFailures).To(Equal([]events.SQSBatchItemFailure{
					{ItemIdentifier: "m-bad"},
				}))
				Expect(s3Client.Puts()).To(Equal(5))
			})

			It("Fails the unfinished items once the context is done", func() {
				jobQueue := mock.NewJobQueue()
				subject = NewHandler(processor, jobQueue, nil)
				cancelled, cancel := context.WithCancel(ctx)
				cancel()
				results := subject.Process(cancelled, []events.SQSMessage{
					message("m1", "input/a.txt"),
					message("m2", "input/a.txt"),
				})
				Expect(results).To(HaveLen(2))
				for _, result := range results {
					Expect(errors.Is(result.Err, context.Canceled)).To(BeTrue())
				}
				Expect(s3Client.Puts()).To(Equal(0))
			})

			It("Keeps results in input order when message IDs repeat", func() {
				messages := []events.SQSMessage{
					message("", "input/a.txt"),
					message("", "input/missing.txt"),
				}
				sequential := subject.Process(ctx, messages)

				subject = NewHandler(processor, mock.NewInlineJobQueue(ctx), nil)
				results := subject.Process(ctx, messages)
				Expect(results).To(HaveLen(2))
				Expect(results[0].Failed()).To(BeFalse())
				Expect(results[1].Failed()).To(BeTrue())
				Expect(errors.Is(results[1].Err, storage.SourceNotFound)).To(BeTrue())
				Expect(Response(results)).To(Equal(Response(sequential)))
				Expect(Response(results).BatchItemFailures).To(HaveLen(1))
			})

			It("Stops enqueuing once the context is done", func() {
				jobQueue := queue.NewPooledJobQueue(1, 1)
				subject = NewHandler(processor, jobQueue, nil)
				deadline, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
				defer cancel()

				resultChan := make(chan []Result, 1)
				go func() {
					resultChan <- subject.Process(deadline, []events.SQSMessage{
						message("m1", "input/a.txt"),
						message("m2", "input/a.txt"),
						message("m3", "input/a.txt"),
					})
				}()

				var results []Result
				Eventually(resultChan, time.Second).Should(Receive(&results))
				Expect(results).To(HaveLen(3))
				for _, result := range results {
					Expect(errors.Is(result.Err, context.DeadlineExceeded)).To(BeTrue())
				}
				Expect(s3Client.Puts()).To(Equal(0))
			})
		})
	})
})

var _ = Describe("FailureReason", func() {
	It("Names each error kind", func() {
		Expect(FailureReason(nil)).To(Equal(""))
		Expect(FailureReason(&relay.MalformedEnvelopeError{Err: errors.New("x")})).To(Equal("MalformedEnvelope"))
		Expect(FailureReason(&iam.CredentialAcquisitionError{Err: errors.New("x")})).To(Equal("CredentialAcquisitionError"))
		Expect(FailureReason(&storage.Error{Kind: storage.DestinationWriteError, Err: errors.New("x")})).To(Equal("DestinationWriteError"))
		Expect(FailureReason(context.DeadlineExceeded)).To(Equal("Timeout"))
		Expect(FailureReason(errors.New("x"))).To(Equal("Unknown"))
	})
})
