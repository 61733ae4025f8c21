package iam

import (
	"context"
	"github.com/michaelfecher/cross-account-access/src/queue"
	"github.com/michaelfecher/cross-account-access/src/utils"
	"github.com/sirupsen/logrus"
	"time"
)

// refreshCredentialJob refreshes the cached credential when it is stale.
type refreshCredentialJob struct {
	cache  CredentialCache
	logger *logrus.Entry
}

// NewRefreshCredentialJob creates a job which keeps the cache warm so item
// processing rarely waits on STS.
func NewRefreshCredentialJob(cache CredentialCache) queue.Job {
	return &refreshCredentialJob{
		cache: cache,
		logger: logrus.WithFields(logrus.Fields{
			"prefix": "iam/refresh-credential",
			"role":   cache.RoleARN(),
		}),
	}
}

func (job *refreshCredentialJob) ID() string {
	return "iam/refresh-credential/" + job.cache.RoleARN()
}

func (job *refreshCredentialJob) AllowedAttempts() int {
	return 3
}

func (job *refreshCredentialJob) Backoff(attempt int) time.Duration {
	return utils.ExponentialBackoff(time.Second, attempt)
}

func (job *refreshCredentialJob) Perform(ctx context.Context) error {
	job.logger.Debug("Refreshing credential if stale")
	return job.cache.RefreshIfStale(ctx)
}

func (job *refreshCredentialJob) Complete(err error) {
	if err != nil {
		job.logger.WithField("error", err.Error()).Warn("Unable to refresh credential")
	}
}
