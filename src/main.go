package main

import (
	"context"
	"flag"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/michaelfecher/cross-account-access/src/app"
	relaylog "github.com/michaelfecher/cross-account-access/src/log"
	"github.com/michaelfecher/cross-account-access/src/storage"
	"github.com/sirupsen/logrus"
	"os"
	"os/signal"
	"syscall"
)

var (
	log = logrus.WithFields(logrus.Fields{"prefix": "main"})

	mode       = flag.String("mode", app.ModeLambda, "Run mode: 'lambda' to serve SQS batches as a Lambda function, 'poll' to long poll QUEUE_URL")
	listenAddr = flag.String("listen-addr", "", "Address of the status server in poll mode, overrides LISTEN_ADDR")
)

func main() {
	flag.Parse()

	config, err := app.LoadConfig()
	if err != nil {
		fatal(err, "Unable to read configuration from the environment")
	}
	if *listenAddr != "" {
		config.ListenAddr = *listenAddr
	}
	if err = config.Validate(*mode); err != nil {
		fatal(err, "Invalid configuration")
	}
	if err = relaylog.Configure(logrus.StandardLogger(), config.LogLevel, config.LogFormat); err != nil {
		fatal(err, "Invalid log configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var options []func(*awsconfig.LoadOptions) error
	if config.Region != "" {
		options = append(options, awsconfig.WithRegion(config.Region))
	}
	awsConfig, err := awsconfig.LoadDefaultConfig(ctx, options...)
	if err != nil {
		fatal(err, "Unable to load AWS configuration")
	}
	stsClient := sts.NewFromConfig(awsConfig)
	s3Client := storage.NewS3Client(awsConfig, storage.ClientOptions{
		Region:         config.Region,
		Endpoint:       config.Endpoint,
		ForcePathStyle: config.ForcePathStyle,
	})
	errChan := make(chan error, 1)

	log.WithFields(logrus.Fields{
		"mode":        *mode,
		"source":      config.SourceBucket,
		"destination": config.DestinationBucket,
		"role":        config.RoleARN,
	}).Info("Configured")

	if *mode == app.ModeLambda {
		inst := app.New(config, stsClient, s3Client, nil, errChan)
		inst.Start(ctx)
		go func() {
			if err := <-errChan; err != nil {
				fatal(err, "Fatal error, exiting")
			}
		}()
		lambda.StartWithOptions(inst.Handler.HandleBatch, lambda.WithContext(ctx))
		return
	}

	inst := app.New(config, stsClient, s3Client, sqs.NewFromConfig(awsConfig), errChan)
	inst.Run(ctx)

	select {
	case err = <-errChan:
		fatal(err, "Fatal error, exiting")
	case <-ctx.Done():
		log.Info("Shutting down")
	}
}

func fatal(err error, message string) {
	log.WithFields(logrus.Fields{
		"error": err.Error(),
	}).Error(message)
	os.Exit(1)
}
