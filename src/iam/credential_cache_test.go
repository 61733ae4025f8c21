package iam_test

import (
	"context"
	"errors"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts/types"
	. "github.com/michaelfecher/cross-account-access/src/iam"
	"github.com/michaelfecher/cross-account-access/src/mock"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"sync"
	"time"
)

func stsCredentials(accessKeyID string, expiration time.Time) *types.Credentials {
	return &types.Credentials{
		AccessKeyId:     aws.String(accessKeyID),
		SecretAccessKey: aws.String("fakesecretaccesskey"),
		SessionToken:    aws.String("fakesessiontoken"),
		Expiration:      aws.Time(expiration),
	}
}

var _ = Describe("CredentialCache", func() {
	const (
		role   = "arn:aws:iam::012345678901:role/cross-account-writer"
		prefix = "s3-relay"
	)

	var (
		ctx     context.Context
		client  *mock.STSClient
		now     time.Time
		clock   Clock
		subject CredentialCache
	)

	BeforeEach(func() {
		ctx = context.Background()
		client = mock.NewSTSClient()
		now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		clock = func() time.Time { return now }
		subject = NewCredentialCache(client, role, prefix, clock)
	})

	Describe("Credentials", func() {
		Context("When the role cannot be assumed", func() {
			BeforeEach(func() {
				client.SetError(errors.New("AccessDenied: not authorized to perform sts:AssumeRole"))
			})

			It("Returns a CredentialAcquisitionError and caches nothing", func() {
				creds, err := subject.Credentials(ctx)
				Expect(creds).To(BeNil())
				var acqErr *CredentialAcquisitionError
				Expect(errors.As(err, &acqErr)).To(BeTrue())
				Expect(acqErr.RoleARN).To(Equal(role))
				_, ok := subject.Expiration()
				Expect(ok).To(BeFalse())
			})
		})

		Context("When the role can be assumed", func() {
			BeforeEach(func() {
				client.SetCredentials(role, stsCredentials("first", now.Add(time.Hour)))
			})

			It("Returns all four fields of the credentials", func() {
				creds, err := subject.Credentials(ctx)
				Expect(err).To(BeNil())
				Expect(creds.AccessKeyID).To(Equal("first"))
				Expect(creds.SecretAccessKey).To(Equal("fakesecretaccesskey"))
				Expect(creds.SessionToken).To(Equal("fakesessiontoken"))
				Expect(creds.Expiration).To(Equal(now.Add(time.Hour)))
			})

			It("Requests a one hour session with a traceable name", func() {
				_, err := subject.Credentials(ctx)
				Expect(err).To(BeNil())
				Expect(client.Inputs).To(HaveLen(1))
				input := client.Inputs[0]
				Expect(*input.RoleArn).To(Equal(role))
				Expect(*input.DurationSeconds).To(Equal(int32(3600)))
				Expect(*input.RoleSessionName).To(Equal("s3-relay-1709294400"))
			})

			It("Reuses the credentials for calls ten seconds apart", func() {
				first, err := subject.Credentials(ctx)
				Expect(err).To(BeNil())
				now = now.Add(10 * time.Second)
				second, err := subject.Credentials(ctx)
				Expect(err).To(BeNil())
				Expect(second).To(BeIdenticalTo(first))
				Expect(client.Calls()).To(Equal(1))
			})

			It("Calls STS at most once for any sequence before the refresh buffer", func() {
				for i := 0; i < 20; i++ {
					_, err := subject.Credentials(ctx)
					Expect(err).To(BeNil())
					now = now.Add(2 * time.Minute)
				}
				Expect(client.Calls()).To(Equal(1))
			})

			Context("And the clock reaches the refresh buffer", func() {
				BeforeEach(func() {
					_, err := subject.Credentials(ctx)
					Expect(err).To(BeNil())
					now = now.Add(3560 * time.Second)
					client.SetCredentials(role, stsCredentials("second", now.Add(time.Hour)))
				})

				It("Refreshes them exactly once and returns the new bundle thereafter", func() {
					creds, err := subject.Credentials(ctx)
					Expect(err).To(BeNil())
					Expect(creds.AccessKeyID).To(Equal("second"))
					Expect(client.Calls()).To(Equal(2))

					again, err := subject.Credentials(ctx)
					Expect(err).To(BeNil())
					Expect(again).To(BeIdenticalTo(creds))
					Expect(client.Calls()).To(Equal(2))
				})

				Context("But the refresh fails", func() {
					BeforeEach(func() {
						client.SetError(errors.New("Throttling: Rate exceeded"))
					})

					It("Surfaces the error and leaves the old bundle in place", func() {
						creds, err := subject.Credentials(ctx)
						Expect(creds).To(BeNil())
						Expect(err).To(MatchError(ContainSubstring("Rate exceeded")))
						expiration, ok := subject.Expiration()
						Expect(ok).To(BeTrue())
						Expect(expiration).To(Equal(time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC)))
					})
				})
			})

			Context("When called exactly at expiry minus the buffer", func() {
				It("Treats the credentials as stale", func() {
					_, err := subject.Credentials(ctx)
					Expect(err).To(BeNil())
					now = now.Add(time.Hour - RefreshBuffer)
					_, err = subject.Credentials(ctx)
					Expect(err).ToNot(BeNil())
					Expect(client.Calls()).To(Equal(2))
				})
			})
		})

		Context("When STS returns an incomplete bundle", func() {
			BeforeEach(func() {
				creds := stsCredentials("partial", now.Add(time.Hour))
				creds.SessionToken = nil
				client.SetCredentials(role, creds)
			})

			It("Returns an error wrapping ErrIncompleteBundle", func() {
				creds, err := subject.Credentials(ctx)
				Expect(creds).To(BeNil())
				Expect(errors.Is(err, ErrIncompleteBundle)).To(BeTrue())
			})
		})

		Context("When STS returns credentials expiring within the buffer", func() {
			BeforeEach(func() {
				client.SetCredentials(role, stsCredentials("short", now.Add(4*time.Minute)))
			})

			It("Treats the result as an error", func() {
				creds, err := subject.Credentials(ctx)
				Expect(creds).To(BeNil())
				var acqErr *CredentialAcquisitionError
				Expect(errors.As(err, &acqErr)).To(BeTrue())
				_, ok := subject.Expiration()
				Expect(ok).To(BeFalse())
			})
		})

		Context("When called concurrently on an empty cache", func() {
			BeforeEach(func() {
				client.SetCredentials(role, stsCredentials("shared", now.Add(time.Hour)))
			})

			It("Performs a single refresh and hands every caller the same bundle", func() {
				const callers = 32
				var (
					waitGroup sync.WaitGroup
					results   = make([]*CredentialBundle, callers)
				)
				waitGroup.Add(callers)
				for i := 0; i < callers; i++ {
					go func(i int) {
						defer GinkgoRecover()
						defer waitGroup.Done()
						creds, err := subject.Credentials(ctx)
						Expect(err).To(BeNil())
						results[i] = creds
					}(i)
				}
				waitGroup.Wait()
				Expect(client.Calls()).To(Equal(1))
				for _, creds := range results {
					Expect(creds).To(BeIdenticalTo(results[0]))
				}
			})
		})
	})

	Describe("RefreshIfStale", func() {
		BeforeEach(func() {
			client.SetCredentials(role, stsCredentials("fresh", now.Add(time.Hour)))
		})

		It("Fetches when empty and does nothing while fresh", func() {
			Expect(subject.RefreshIfStale(ctx)).To(Succeed())
			Expect(subject.RefreshIfStale(ctx)).To(Succeed())
			Expect(client.Calls()).To(Equal(1))
			expiration, ok := subject.Expiration()
			Expect(ok).To(BeTrue())
			Expect(expiration).To(Equal(now.Add(time.Hour)))
		})
	})
})
