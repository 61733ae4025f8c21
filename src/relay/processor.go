package relay

import (
	"context"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/michaelfecher/cross-account-access/src/iam"
	"github.com/michaelfecher/cross-account-access/src/storage"
	"github.com/sirupsen/logrus"
	"time"
)

// Metadata attached to every relayed object.
const (
	MetadataSourceKey   = "source-key"
	MetadataProcessor   = "processor"
	MetadataProcessedAt = "processed-at"
)

// NewProcessor creates a Processor which reads and writes through store. When
// cache is nil the store's own credentials are used, otherwise every request
// is signed with the assumed role's credentials. A nil clock defaults to
// time.Now.
func NewProcessor(settings Settings, store storage.ObjectStore, cache iam.CredentialCache, clock iam.Clock) Processor {
	if clock == nil {
		clock = time.Now
	}
	return &processor{
		settings: settings,
		store:    store,
		cache:    cache,
		clock:    clock,
	}
}

func (processor *processor) Process(ctx context.Context, item *WorkItem) (Outcome, error) {
	logger := log.WithFields(logrus.Fields{
		"message-id": item.ID,
		"bucket":     item.Bucket,
		"key":        item.Key,
	})

	if reason := processor.skipReason(item); reason != "" {
		logger.WithField("reason", reason).Info("Skipping item")
		return Skipped, nil
	}

	creds, err := processor.credentials(ctx)
	if err != nil {
		return Processed, err
	}

	object, err := processor.store.Get(ctx, item.Bucket, item.Key, creds)
	if err != nil {
		return Processed, err
	}

	now := processor.clock().UTC()
	outputKey := processor.settings.OutputKey(item.Key)
	err = processor.store.Put(ctx, processor.settings.DestinationBucket, outputKey, &storage.Object{
		Body:        Transform(object.Body, processor.settings.DeploymentID, item.Key, now),
		ContentType: object.ContentType,
		Metadata: map[string]string{
			MetadataSourceKey:   item.Key,
			MetadataProcessor:   processor.settings.ProcessorID,
			MetadataProcessedAt: now.Format(time.RFC3339),
		},
	}, creds)
	if err != nil {
		return Processed, err
	}

	logger.WithFields(logrus.Fields{
		"destination-bucket": processor.settings.DestinationBucket,
		"destination-key":    outputKey,
		"size":               len(object.Body),
	}).Info("Relayed object")
	return Processed, nil
}

func (processor *processor) skipReason(item *WorkItem) string {
	switch {
	case item.DetailType != "" && item.DetailType != ObjectCreated:
		return "detail-type"
	case item.Bucket != processor.settings.SourceBucket:
		return "bucket"
	case !processor.settings.Matches(item.Key):
		return "key"
	}
	return ""
}

func (processor *processor) credentials(ctx context.Context) (aws.CredentialsProvider, error) {
	if processor.cache == nil {
		return nil, nil
	}
	bundle, err := processor.cache.Credentials(ctx)
	if err != nil {
		return nil, err
	}
	return bundle.Provider(), nil
}

type processor struct {
	settings Settings
	store    storage.ObjectStore
	cache    iam.CredentialCache
	clock    iam.Clock
}
