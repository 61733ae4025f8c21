package iam

import (
	"context"
	"fmt"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/sirupsen/logrus"
	"strings"
	"sync"
	"time"
)

const (
	maxSessionNameLength = 64
)

// NewCredentialCache accepts an STSClient and creates an empty cache for the
// credentials of roleARN. Session names are built from sessionPrefix and the
// current time. A nil clock defaults to time.Now.
func NewCredentialCache(client STSClient, roleARN, sessionPrefix string, clock Clock) CredentialCache {
	if clock == nil {
		clock = time.Now
	}
	return &credentialCache{
		client:        client,
		roleARN:       roleARN,
		sessionPrefix: sessionPrefix,
		clock:         clock,
		logger:        log.WithField("role", roleARN),
	}
}

func (cache *credentialCache) Credentials(ctx context.Context) (*CredentialBundle, error) {
	if bundle := cache.freshBundle(); bundle != nil {
		return bundle, nil
	}

	cache.refreshMutex.Lock()
	defer cache.refreshMutex.Unlock()

	// Another caller may have refreshed while we waited.
	if bundle := cache.freshBundle(); bundle != nil {
		cache.logger.Debug("Credential was refreshed by another caller")
		return bundle, nil
	}

	return cache.assumeRole(ctx)
}

func (cache *credentialCache) RefreshIfStale(ctx context.Context) error {
	_, err := cache.Credentials(ctx)
	return err
}

func (cache *credentialCache) Expiration() (time.Time, bool) {
	cache.bundleMutex.RLock()
	defer cache.bundleMutex.RUnlock()
	if cache.bundle == nil {
		return time.Time{}, false
	}
	return cache.bundle.Expiration, true
}

func (cache *credentialCache) RoleARN() string {
	return cache.roleARN
}

func (cache *credentialCache) freshBundle() *CredentialBundle {
	cache.bundleMutex.RLock()
	bundle := cache.bundle
	cache.bundleMutex.RUnlock()

	if bundle.Valid(cache.clock(), RefreshBuffer) {
		return bundle
	}
	return nil
}

// assumeRole must be called with refreshMutex held.
func (cache *credentialCache) assumeRole(ctx context.Context) (*CredentialBundle, error) {
	sessionName := cache.generateSessionName()
	logger := cache.logger.WithField("session", sessionName)
	logger.Debug("Assuming role")

	output, err := cache.client.AssumeRole(ctx, &sts.AssumeRoleInput{
		RoleArn:         aws.String(cache.roleARN),
		RoleSessionName: aws.String(sessionName),
		DurationSeconds: aws.Int32(int32(SessionDuration / time.Second)),
	})
	if err != nil {
		logger.WithField("error", err.Error()).Warn("Unable to assume role")
		return nil, &CredentialAcquisitionError{RoleARN: cache.roleARN, Err: err}
	}

	var bundle *CredentialBundle
	if output == nil {
		err = errIncompleteBundle("credentials")
	} else {
		bundle, err = NewCredentialBundle(output.Credentials)
	}
	if err != nil {
		logger.WithField("error", err.Error()).Warn("Role assumption returned an incomplete bundle")
		return nil, &CredentialAcquisitionError{RoleARN: cache.roleARN, Err: err}
	}

	if !bundle.Valid(cache.clock(), RefreshBuffer) {
		err = fmt.Errorf("Credential expires at %s, within the %s refresh buffer",
			bundle.Expiration.Format(time.RFC3339), RefreshBuffer)
		logger.WithField("error", err.Error()).Warn("Role assumption returned a short-lived credential")
		return nil, &CredentialAcquisitionError{RoleARN: cache.roleARN, Err: err}
	}

	cache.bundleMutex.Lock()
	cache.bundle = bundle
	cache.bundleMutex.Unlock()

	logger.WithFields(logrus.Fields{
		"expiration": bundle.Expiration.Format(time.RFC3339),
	}).Info("Credential successfully fetched")

	return bundle, nil
}

// generateSessionName builds a traceable session name which satisfies the STS
// constraints: at most 64 characters of [\w+=,.@-].
func (cache *credentialCache) generateSessionName() string {
	name := fmt.Sprintf("%s-%d", cache.sessionPrefix, cache.clock().Unix())
	name = strings.Map(func(char rune) rune {
		if sessionNameChar(char) {
			return char
		}
		return '-'
	}, name)
	if len(name) > maxSessionNameLength {
		name = name[len(name)-maxSessionNameLength:]
	}
	return name
}

func sessionNameChar(char rune) bool {
	switch {
	case char >= 'a' && char <= 'z', char >= 'A' && char <= 'Z', char >= '0' && char <= '9':
		return true
	}
	return strings.ContainsRune("_+=,.@-", char)
}

type credentialCache struct {
	client        STSClient
	roleARN       string
	sessionPrefix string
	clock         Clock
	bundle        *CredentialBundle
	bundleMutex   sync.RWMutex
	refreshMutex  sync.Mutex
	logger        *logrus.Entry
}
