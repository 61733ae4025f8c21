package storage

import (
	"bytes"
	"context"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
	"io"
)

// NewS3ObjectStore creates an ObjectStore backed by client. Writes go through
// an upload manager so large objects are sent in parts.
func NewS3ObjectStore(client S3Client) ObjectStore {
	return &s3ObjectStore{
		client:   client,
		uploader: manager.NewUploader(client),
	}
}

func (store *s3ObjectStore) Get(ctx context.Context, bucket, key string, creds aws.CredentialsProvider) (*Object, error) {
	logger := log.WithFields(logrus.Fields{"bucket": bucket, "key": key})
	logger.Debug("Fetching object")

	output, err := store.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, withCredentials(creds)...)
	if err != nil {
		return nil, readError(bucket, key, err)
	}
	defer output.Body.Close()

	body, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, &Error{Kind: SourceReadError, Bucket: bucket, Key: key, Err: err}
	}

	logger.WithField("size", len(body)).Debug("Fetched object")
	return &Object{
		Body:        body,
		ContentType: aws.ToString(output.ContentType),
		Metadata:    output.Metadata,
	}, nil
}

func (store *s3ObjectStore) Put(ctx context.Context, bucket, key string, object *Object, creds aws.CredentialsProvider) error {
	logger := log.WithFields(logrus.Fields{"bucket": bucket, "key": key})
	logger.WithField("size", len(object.Body)).Debug("Writing object")

	input := &s3.PutObjectInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		Body:     bytes.NewReader(object.Body),
		Metadata: object.Metadata,
	}
	if object.ContentType != "" {
		input.ContentType = aws.String(object.ContentType)
	}

	_, err := store.uploader.Upload(ctx, input, func(uploader *manager.Uploader) {
		uploader.ClientOptions = append(uploader.ClientOptions, withCredentials(creds)...)
	})
	if err != nil {
		return writeError(bucket, key, err)
	}
	return nil
}

func withCredentials(creds aws.CredentialsProvider) []func(*s3.Options) {
	if creds == nil {
		return nil
	}
	return []func(*s3.Options){
		func(opts *s3.Options) {
			opts.Credentials = creds
		},
	}
}

type s3ObjectStore struct {
	client   S3Client
	uploader *manager.Uploader
}
