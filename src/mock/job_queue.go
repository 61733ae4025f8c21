package mock

import (
	"context"
	"github.com/michaelfecher/cross-account-access/src/queue"
	"sync"
)

// NewJobQueue initializes a new mock job queue which only records jobs.
func NewJobQueue() *JobQueue {
	return &JobQueue{
		Jobs: make([]queue.Job, 0),
	}
}

// NewInlineJobQueue initializes a mock job queue which performs each job once,
// synchronously, inside Enqueue.
func NewInlineJobQueue(ctx context.Context) *JobQueue {
	return &JobQueue{
		Jobs:   make([]queue.Job, 0),
		inline: true,
		ctx:    ctx,
	}
}

// Enqueue puts a job onto the job queue.
func (queue *JobQueue) Enqueue(job queue.Job) {
	queue.mutex.Lock()
	queue.Jobs = append(queue.Jobs, job)
	queue.mutex.Unlock()

	if queue.inline {
		job.Complete(job.Perform(queue.ctx))
	}
}

// Run does nothing.
func (queue *JobQueue) Run(ctx context.Context) error {
	return nil
}

// Stop does nothing.
func (queue *JobQueue) Stop() error {
	return nil
}

// IsRunning is always false.
func (queue *JobQueue) IsRunning() bool {
	return false
}

// JobIDs returns the IDs of every enqueued job in order.
func (queue *JobQueue) JobIDs() []string {
	queue.mutex.Lock()
	defer queue.mutex.Unlock()
	ids := make([]string, len(queue.Jobs))
	for i, job := range queue.Jobs {
		ids[i] = job.ID()
	}
	return ids
}

// JobQueue implements queue.JobQueue, but doesn't actually run jobs unless
// created with NewInlineJobQueue.
type JobQueue struct {
	Jobs   []queue.Job
	inline bool
	ctx    context.Context
	mutex  sync.Mutex
}
