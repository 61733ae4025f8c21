package iam

import (
	"context"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/sirupsen/logrus"
	"time"
)

const (
	// SessionDuration is the lifetime requested for every assumed role session.
	SessionDuration = time.Hour
	// RefreshBuffer is subtracted from a credential's expiry when deciding
	// whether it may still be handed out.
	RefreshBuffer = 5 * time.Minute
)

var (
	log = logrus.WithField("prefix", "iam")
)

// STSClient specifies the subset of STS API calls used by the CredentialCache.
type STSClient interface {
	AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error)
}

// CredentialCache holds the temporary credentials of a single assumed role and
// refreshes them when they are absent or close to expiry.
type CredentialCache interface {
	// Return credentials which remain valid for at least RefreshBuffer,
	// assuming the role if needed.
	Credentials(ctx context.Context) (*CredentialBundle, error)
	// Assume the role if there are no cached credentials or they are stale.
	RefreshIfStale(ctx context.Context) error
	// Expiration of the cached credentials, if any.
	Expiration() (time.Time, bool)
	// The role which is assumed.
	RoleARN() string
}

// Clock returns the current time. It is swapped out in tests.
type Clock func() time.Time
