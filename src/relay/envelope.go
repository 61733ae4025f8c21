package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"github.com/aws/aws-lambda-go/events"
	"strings"
)

// ParseMessage extracts a WorkItem from the EventBridge envelope carried in the
// body of an SQS message.
func ParseMessage(message events.SQSMessage) (*WorkItem, error) {
	malformed := func(err error) error {
		return &MalformedEnvelopeError{MessageID: message.MessageId, Err: err}
	}

	body := strings.TrimSpace(message.Body)
	if body == "" {
		return nil, malformed(errors.New("Empty message body"))
	}

	var envelope events.CloudWatchEvent
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		return nil, malformed(err)
	}
	if len(envelope.Detail) == 0 || string(envelope.Detail) == "null" {
		return nil, malformed(errors.New("Missing detail"))
	}

	var detail objectDetail
	if err := json.Unmarshal(envelope.Detail, &detail); err != nil {
		return nil, malformed(fmt.Errorf("Invalid detail: %w", err))
	}
	switch {
	case detail.Bucket.Name == "":
		return nil, malformed(errors.New("Missing detail.bucket.name"))
	case detail.Object.Key == "":
		return nil, malformed(errors.New("Missing detail.object.key"))
	}

	return &WorkItem{
		ID:         message.MessageId,
		Source:     envelope.Source,
		DetailType: envelope.DetailType,
		Account:    envelope.AccountID,
		Bucket:     detail.Bucket.Name,
		Key:        detail.Object.Key,
		Size:       detail.Object.Size,
		RequestID:  detail.RequestID,
		Time:       envelope.Time.UTC(),
	}, nil
}

type objectDetail struct {
	Bucket struct {
		Name string `json:"name"`
	} `json:"bucket"`
	Object struct {
		Key  string `json:"key"`
		Size int64  `json:"size"`
		ETag string `json:"etag"`
	} `json:"object"`
	RequestID string `json:"request-id"`
	Reason    string `json:"reason"`
}
