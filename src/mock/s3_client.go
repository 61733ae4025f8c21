package mock

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"io"
	"sync"
)

// S3Object is an object held by the mock S3Client.
type S3Object struct {
	Body        []byte
	ContentType string
	Metadata    map[string]string
	Credentials aws.CredentialsProvider
}

// S3Client implements github.com/michaelfecher/cross-account-access/src/storage.S3Client
// with an in-memory set of buckets.
type S3Client struct {
	// Errors returned by GetObject, keyed by "bucket/key".
	GetErrors map[string]error
	// Errors returned by PutObject, keyed by "bucket/key".
	PutErrors map[string]error
	// Credentials used for each GetObject call, in order.
	GetCredentials []aws.CredentialsProvider
	objects        map[string]*S3Object
	puts           int
	mutex          sync.Mutex
}

// NewS3Client returns an empty mock S3Client.
func NewS3Client() *S3Client {
	return &S3Client{
		GetErrors: make(map[string]error),
		PutErrors: make(map[string]error),
		objects:   make(map[string]*S3Object),
	}
}

// AddObject stores an object directly.
func (mock *S3Client) AddObject(bucket, key string, body []byte, contentType string) {
	mock.mutex.Lock()
	defer mock.mutex.Unlock()
	mock.objects[objectID(bucket, key)] = &S3Object{Body: body, ContentType: contentType}
}

// Object returns a stored object.
func (mock *S3Client) Object(bucket, key string) (*S3Object, bool) {
	mock.mutex.Lock()
	defer mock.mutex.Unlock()
	object, ok := mock.objects[objectID(bucket, key)]
	return object, ok
}

// Puts returns the number of successful PutObject calls.
func (mock *S3Client) Puts() int {
	mock.mutex.Lock()
	defer mock.mutex.Unlock()
	return mock.puts
}

// SetGetError makes GetObject fail for one object.
func (mock *S3Client) SetGetError(bucket, key string, err error) {
	mock.mutex.Lock()
	defer mock.mutex.Unlock()
	mock.GetErrors[objectID(bucket, key)] = err
}

// SetPutError makes PutObject fail for one object.
func (mock *S3Client) SetPutError(bucket, key string, err error) {
	mock.mutex.Lock()
	defer mock.mutex.Unlock()
	mock.PutErrors[objectID(bucket, key)] = err
}

func (mock *S3Client) GetObject(ctx context.Context, input *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	mock.mutex.Lock()
	defer mock.mutex.Unlock()

	id := objectID(aws.ToString(input.Bucket), aws.ToString(input.Key))
	mock.GetCredentials = append(mock.GetCredentials, resolveCredentials(optFns))
	if err, ok := mock.GetErrors[id]; ok {
		return nil, err
	}
	object, ok := mock.objects[id]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("The specified key does not exist.")}
	}
	output := &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(object.Body)),
		ContentLength: aws.Int64(int64(len(object.Body))),
		Metadata:      object.Metadata,
	}
	if object.ContentType != "" {
		output.ContentType = aws.String(object.ContentType)
	}
	return output, nil
}

func (mock *S3Client) PutObject(ctx context.Context, input *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	var body []byte
	if input.Body != nil {
		var err error
		body, err = io.ReadAll(input.Body)
		if err != nil {
			return nil, err
		}
	}

	mock.mutex.Lock()
	defer mock.mutex.Unlock()

	id := objectID(aws.ToString(input.Bucket), aws.ToString(input.Key))
	if err, ok := mock.PutErrors[id]; ok {
		return nil, err
	}
	mock.objects[id] = &S3Object{
		Body:        body,
		ContentType: aws.ToString(input.ContentType),
		Metadata:    input.Metadata,
		Credentials: resolveCredentials(optFns),
	}
	mock.puts++
	return &s3.PutObjectOutput{}, nil
}

func (mock *S3Client) UploadPart(ctx context.Context, input *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return nil, errMultipart
}

func (mock *S3Client) CreateMultipartUpload(ctx context.Context, input *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return nil, errMultipart
}

func (mock *S3Client) CompleteMultipartUpload(ctx context.Context, input *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return nil, errMultipart
}

func (mock *S3Client) AbortMultipartUpload(ctx context.Context, input *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return nil, errMultipart
}

var errMultipart = errors.New("Multipart uploads are not supported by the mock")

func objectID(bucket, key string) string {
	return fmt.Sprintf("%s/%s", bucket, key)
}

func resolveCredentials(optFns []func(*s3.Options)) aws.CredentialsProvider {
	opts := s3.Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return opts.Credentials
}
