package storage

import (
	"context"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
)

var (
	log = logrus.WithField("prefix", "storage")
)

// S3Client specifies the subset of S3 API calls used by the ObjectStore.
type S3Client interface {
	manager.UploadAPIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// ObjectStore reads and writes whole objects. A nil credentials provider means
// the client's own credentials are used.
type ObjectStore interface {
	// Fetch the content, content type and metadata of an object.
	Get(ctx context.Context, bucket, key string, creds aws.CredentialsProvider) (*Object, error)
	// Write an object, replacing any existing object at the key.
	Put(ctx context.Context, bucket, key string, object *Object, creds aws.CredentialsProvider) error
}

// Object is the full content of a stored object.
type Object struct {
	Body        []byte
	ContentType string
	Metadata    map[string]string
}
