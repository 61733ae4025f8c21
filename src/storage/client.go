package storage

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ClientOptions overrides the defaults of the S3 client, mostly for running
// against S3-compatible endpoints locally.
type ClientOptions struct {
	Region         string
	Endpoint       string
	ForcePathStyle bool
}

// NewS3Client builds an S3 client from an SDK config. Per-request credentials
// are supplied by the ObjectStore, so the client keeps the config's own.
func NewS3Client(awsConfig aws.Config, options ClientOptions) *s3.Client {
	return s3.NewFromConfig(awsConfig, func(opts *s3.Options) {
		if options.Region != "" {
			opts.Region = options.Region
		}
		if options.Endpoint != "" {
			opts.BaseEndpoint = aws.String(options.Endpoint)
		}
		opts.UsePathStyle = options.ForcePathStyle
	})
}
