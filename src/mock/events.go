package mock

import (
	"encoding/json"
	"github.com/aws/aws-lambda-go/events"
)

// ObjectCreatedBody returns an EventBridge "Object Created" envelope as it
// arrives in an SQS message body.
func ObjectCreatedBody(bucket, key string, size int64) string {
	body, _ := json.Marshal(map[string]interface{}{
		"version":     "0",
		"id":          "17793124-05d4-b198-2fde-7ededc63b103",
		"source":      "aws.s3",
		"detail-type": "Object Created",
		"account":     "111122223333",
		"time":        "2024-03-01T12:00:00Z",
		"region":      "eu-central-1",
		"resources":   []string{"arn:aws:s3:::" + bucket},
		"detail": map[string]interface{}{
			"version": "0",
			"bucket":  map[string]string{"name": bucket},
			"object": map[string]interface{}{
				"key":  key,
				"size": size,
				"etag": "b1946ac92492d2347c6235b4d2611184",
			},
			"request-id": "N4N7GDK58NMKJ12R",
			"requester":  "111122223333",
			"reason":     "PutObject",
		},
	})
	return string(body)
}

// ObjectCreatedMessage wraps ObjectCreatedBody in an SQS message.
func ObjectCreatedMessage(messageID, bucket, key string) events.SQSMessage {
	return events.SQSMessage{
		MessageId:     messageID,
		ReceiptHandle: "receipt-" + messageID,
		Body:          ObjectCreatedBody(bucket, key, 5),
		EventSource:   "aws:sqs",
	}
}
