package iam

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts/types"
	"time"
)

// CredentialBundle is an immutable set of temporary credentials returned by a
// successful AssumeRole call.
type CredentialBundle struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Expiration      time.Time
}

// NewCredentialBundle converts STS credentials into a bundle. Every field must
// be present.
func NewCredentialBundle(creds *types.Credentials) (*CredentialBundle, error) {
	if creds == nil {
		return nil, errIncompleteBundle("credentials")
	}
	bundle := &CredentialBundle{
		AccessKeyID:     aws.ToString(creds.AccessKeyId),
		SecretAccessKey: aws.ToString(creds.SecretAccessKey),
		SessionToken:    aws.ToString(creds.SessionToken),
	}
	if creds.Expiration != nil {
		bundle.Expiration = creds.Expiration.UTC()
	}
	switch {
	case bundle.AccessKeyID == "":
		return nil, errIncompleteBundle("access key id")
	case bundle.SecretAccessKey == "":
		return nil, errIncompleteBundle("secret access key")
	case bundle.SessionToken == "":
		return nil, errIncompleteBundle("session token")
	case bundle.Expiration.IsZero():
		return nil, errIncompleteBundle("expiration")
	}
	return bundle, nil
}

// Valid reports whether the bundle may be handed out at now, i.e. it expires
// more than buffer after now.
func (bundle *CredentialBundle) Valid(now time.Time, buffer time.Duration) bool {
	if bundle == nil {
		return false
	}
	return now.Before(bundle.Expiration.Add(-buffer))
}

// Provider returns an aws.CredentialsProvider which always yields this bundle.
func (bundle *CredentialBundle) Provider() aws.CredentialsProvider {
	return credentials.NewStaticCredentialsProvider(
		bundle.AccessKeyID,
		bundle.SecretAccessKey,
		bundle.SessionToken,
	)
}
