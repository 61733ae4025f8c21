package queue_test

import (
	"context"
	"errors"
	. "github.com/michaelfecher/cross-account-access/src/queue"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"sync"
	"time"
)

type jobStruct struct {
	id              string
	allowedAttempts int
	backoff         func(int) time.Duration
	perform         func(context.Context) error
	complete        func(error)
}

func (job *jobStruct) ID() string {
	return job.id
}

func (job *jobStruct) AllowedAttempts() int {
	return job.allowedAttempts
}

func (job *jobStruct) Backoff(attempt int) time.Duration {
	return job.backoff(attempt)
}

func (job *jobStruct) Perform(ctx context.Context) error {
	return job.perform(ctx)
}

func (job *jobStruct) Complete(err error) {
	if job.complete != nil {
		job.complete(err)
	}
}

type ctxKey struct{}

var _ = Describe("pooledJobQueue", func() {
	const (
		queueSize = 4
		poolSize  = 4
	)

	var (
		jobQueue JobQueue
		ctx      context.Context
	)

	BeforeEach(func() {
		ctx = context.WithValue(context.Background(), ctxKey{}, "run-context")
		jobQueue = NewPooledJobQueue(queueSize, poolSize)
		go func() {
			defer GinkgoRecover()
			err := jobQueue.Run(ctx)
			Expect(err).To(BeNil())
		}()
		Eventually(jobQueue.IsRunning).Should(BeTrue())
	})

	AfterEach(func() {
		if jobQueue.IsRunning() {
			Expect(jobQueue.Stop()).To(Succeed())
		}
	})

	Describe("Run", func() {
		It("Refuses to run twice", func() {
			Expect(jobQueue.Run(ctx)).ToNot(Succeed())
		})
	})

	Describe("Stop", func() {
		It("Refuses to stop a stopped queue", func() {
			Expect(jobQueue.Stop()).To(Succeed())
			Expect(jobQueue.IsRunning()).To(BeFalse())
			Expect(jobQueue.Stop()).ToNot(Succeed())
		})
	})

	Describe("Enqueuing a job on a running queue", func() {
		const (
			id              = "test-job"
			allowedAttempts = 2
		)

		var (
			mutex     sync.Mutex
			attempts  int
			completed chan error
			failUntil int
			job       *jobStruct
		)

		BeforeEach(func() {
			attempts = 0
			completed = make(chan error, 8)
			job = &jobStruct{
				id:              id,
				allowedAttempts: allowedAttempts,
				backoff: func(attempt int) time.Duration {
					return 0
				},
				perform: func(jobCtx context.Context) error {
					Expect(jobCtx.Value(ctxKey{})).To(Equal("run-context"))
					mutex.Lock()
					defer mutex.Unlock()
					attempts++
					if attempts <= failUntil {
						return errors.New("Job failed")
					}
					return nil
				},
				complete: func(err error) {
					completed <- err
				},
			}
		})

		Context("When the job succeeds", func() {
			BeforeEach(func() {
				failUntil = 0
			})

			It("Runs the job and completes it once", func() {
				jobQueue.Enqueue(job)
				Eventually(completed, 5*time.Second).Should(Receive(BeNil()))
				Consistently(completed, 100*time.Millisecond).ShouldNot(Receive())
			})
		})

		Context("When the job fails and then succeeds", func() {
			BeforeEach(func() {
				failUntil = 1
			})

			It("Only runs the job until it succeeds", func() {
				jobQueue.Enqueue(job)
				Eventually(completed, 5*time.Second).Should(Receive(BeNil()))
				mutex.Lock()
				defer mutex.Unlock()
				Expect(attempts).To(Equal(2))
			})
		})

		Context("When the job fails repeatedly", func() {
			BeforeEach(func() {
				failUntil = 100
			})

			It("Retries until it runs out of attempts and completes with the error", func() {
				jobQueue.Enqueue(job)
				var err error
				Eventually(completed, 5*time.Second).Should(Receive(&err))
				Expect(err).To(MatchError("Job failed"))
				mutex.Lock()
				defer mutex.Unlock()
				Expect(attempts).To(Equal(allowedAttempts))
			})
		})
	})
})
