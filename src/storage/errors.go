package storage

import (
	"errors"
	"fmt"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"net/http"
)

// Kind classifies an object store failure. A Kind is itself an error and
// errors.Is(err, storage.SourceNotFound) matches any wrapped *Error.
type Kind int

const (
	SourceNotFound Kind = iota + 1
	SourceAccessDenied
	SourceReadError
	DestinationWriteError
	DestinationAccessDenied
)

var kindNames = map[Kind]string{
	SourceNotFound:          "SourceNotFound",
	SourceAccessDenied:      "SourceAccessDenied",
	SourceReadError:         "SourceReadError",
	DestinationWriteError:   "DestinationWriteError",
	DestinationAccessDenied: "DestinationAccessDenied",
}

func (kind Kind) String() string {
	if name, ok := kindNames[kind]; ok {
		return name
	}
	return "Unknown"
}

func (kind Kind) Error() string {
	return kind.String()
}

// Error is returned by every ObjectStore operation which fails.
type Error struct {
	Kind   Kind
	Bucket string
	Key    string
	Err    error
}

func (err *Error) Error() string {
	return fmt.Sprintf("%s: s3://%s/%s: %s", err.Kind, err.Bucket, err.Key, err.Err)
}

func (err *Error) Unwrap() error {
	return err.Err
}

// Is matches a bare Kind.
func (err *Error) Is(target error) bool {
	kind, ok := target.(Kind)
	return ok && kind == err.Kind
}

// KindOf returns the Kind of a storage error, or zero for other errors.
func KindOf(err error) Kind {
	var storageErr *Error
	if errors.As(err, &storageErr) {
		return storageErr.Kind
	}
	return 0
}

func readError(bucket, key string, err error) *Error {
	kind := SourceReadError
	switch {
	case isNotFound(err):
		kind = SourceNotFound
	case isAccessDenied(err):
		kind = SourceAccessDenied
	}
	return &Error{Kind: kind, Bucket: bucket, Key: key, Err: err}
}

func writeError(bucket, key string, err error) *Error {
	kind := DestinationWriteError
	if isAccessDenied(err) {
		kind = DestinationAccessDenied
	}
	return &Error{Kind: kind, Bucket: bucket, Key: key, Err: err}
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return statusCode(err) == http.StatusNotFound
}

func isAccessDenied(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "Forbidden", "AllAccessDisabled", "InvalidAccessKeyId", "ExpiredToken":
			return true
		}
	}
	return statusCode(err) == http.StatusForbidden
}

func statusCode(err error) int {
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode()
	}
	return 0
}
