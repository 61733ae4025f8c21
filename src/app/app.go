package app

import (
	"context"
	"errors"
	"github.com/michaelfecher/cross-account-access/src/batch"
	"github.com/michaelfecher/cross-account-access/src/http"
	"github.com/michaelfecher/cross-account-access/src/iam"
	"github.com/michaelfecher/cross-account-access/src/metrics"
	"github.com/michaelfecher/cross-account-access/src/poller"
	"github.com/michaelfecher/cross-account-access/src/queue"
	"github.com/michaelfecher/cross-account-access/src/relay"
	"github.com/michaelfecher/cross-account-access/src/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	stdLog "log"
	netHTTP "net/http"
	"time"
)

const (
	shutdownTimeout = 5 * time.Second
)

// New creates a new application with the given config and wires every
// component. sqsClient is only used in poll mode and may be nil otherwise.
func New(config *Config, stsClient iam.STSClient, s3Client storage.S3Client, sqsClient poller.SQSClient, errorChan chan<- error) *App {
	app := &App{
		Config:    config,
		STSClient: stsClient,
		S3Client:  s3Client,
		SQSClient: sqsClient,
		Registry:  prometheus.NewRegistry(),
		JobQueue:  queue.NewPooledJobQueue(config.Workers*2, config.Workers),
		ErrorChan: errorChan,
	}

	if config.RoleARN != "" {
		app.Cache = iam.NewCredentialCache(stsClient, config.RoleARN, config.SessionNamePrefix, nil)
		metrics.RegisterCredentialExpiry(app.Registry, app.Cache.Expiration)
	}
	app.Metrics = metrics.New(app.Registry)

	store := storage.NewS3ObjectStore(s3Client)
	processor := relay.NewProcessor(config.Settings(), store, app.Cache, nil)

	var fanOut queue.JobQueue
	if config.Workers > 1 {
		fanOut = app.JobQueue
	}
	app.Handler = batch.NewHandler(processor, fanOut, app.Metrics)
	return app
}

// Start runs the job queue, which must be running before the Handler is
// used. This is all Lambda mode needs.
func (app *App) Start(ctx context.Context) {
	log.WithField("workers", app.Config.Workers).Info("Starting the app")
	go app.queueWorker(ctx)
}

// Run starts the long running poll mode asynchronously: the job queue, the
// credential refresh, the status server and the SQS poller.
func (app *App) Run(ctx context.Context) {
	log.Info("Running the app")

	app.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	handler := http.NewStatusHandler(http.StatusInfo{
		Deployment:        app.Config.DeploymentID,
		Processor:         app.Config.ProcessorID,
		SourceBucket:      app.Config.SourceBucket,
		DestinationBucket: app.Config.DestinationBucket,
	}, app.Cache, app.Registry, nil)
	sqsPoller := poller.NewPoller(app.SQSClient, app.Config.QueueURL, app.Handler, app.Config.MaxReceiveCount)

	app.Start(ctx)
	if app.Cache != nil {
		go app.refreshCredentialWorker(ctx)
	}
	go app.httpWorker(ctx, handler)
	go app.pollWorker(ctx, sqsPoller)
}

func (app *App) queueWorker(ctx context.Context) {
	wlog := log.WithFields(logrus.Fields{"worker": "job-queue"})
	wlog.Info("Starting")
	go func() {
		<-ctx.Done()
		_ = app.JobQueue.Stop()
	}()
	err := app.JobQueue.Run(ctx)
	if err != nil {
		wlog.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Error("Failed to run the job queue")
		app.report(ctx, err)
	}
}

// report sends err to ErrorChan, giving up once ctx is done.
func (app *App) report(ctx context.Context, err error) {
	if app.ErrorChan == nil {
		return
	}
	select {
	case app.ErrorChan <- err:
	case <-ctx.Done():
	}
}

func (app *App) refreshCredentialWorker(ctx context.Context) {
	ticker := time.NewTicker(app.Config.CredentialRefreshPeriod)
	defer ticker.Stop()
	wlog := log.WithFields(logrus.Fields{"worker": "refresh-credential"})
	wlog.Info("Starting")

	for {
		wlog.Debug("Refreshing credential")
		app.JobQueue.Enqueue(iam.NewRefreshCredentialJob(app.Cache))
		select {
		case <-ctx.Done():
			wlog.Info("Stopping")
			return
		case <-ticker.C:
		}
	}
}

func (app *App) httpWorker(ctx context.Context, handler netHTTP.Handler) {
	wlog := log.WithFields(logrus.Fields{"worker": "http"})
	writer := wlog.Logger.Writer()
	defer writer.Close()
	server := netHTTP.Server{
		Addr:           app.Config.ListenAddr,
		Handler:        handler,
		ReadTimeout:    app.Config.ReadTimeout,
		WriteTimeout:   app.Config.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
		ErrorLog:       stdLog.New(writer, "", 0),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	wlog.WithField("addr", app.Config.ListenAddr).Info("Starting")
	err := server.ListenAndServe()
	if errors.Is(err, netHTTP.ErrServerClosed) {
		wlog.Info("Stopped")
		return
	}
	wlog.WithFields(logrus.Fields{
		"error": err.Error(),
	}).Error("Failed to serve HTTP")
	app.report(ctx, err)
}

func (app *App) pollWorker(ctx context.Context, sqsPoller poller.Poller) {
	wlog := log.WithFields(logrus.Fields{"worker": "poller"})
	wlog.Info("Starting")
	err := sqsPoller.Run(ctx)
	if err != nil {
		wlog.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Error("Failed to poll")
		app.report(ctx, err)
		return
	}
	wlog.Info("Stopped")
}
