package app

import (
	"github.com/michaelfecher/cross-account-access/src/batch"
	"github.com/michaelfecher/cross-account-access/src/iam"
	"github.com/michaelfecher/cross-account-access/src/metrics"
	"github.com/michaelfecher/cross-account-access/src/poller"
	"github.com/michaelfecher/cross-account-access/src/queue"
	"github.com/michaelfecher/cross-account-access/src/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"time"
)

// Run modes.
const (
	ModeLambda = "lambda"
	ModePoll   = "poll"
)

var (
	log = logrus.WithField("prefix", "app")
)

// App holds the state of the application.
type App struct {
	Config    *Config
	STSClient iam.STSClient
	S3Client  storage.S3Client
	SQSClient poller.SQSClient
	Registry  *prometheus.Registry
	Cache     iam.CredentialCache
	JobQueue  queue.JobQueue
	Metrics   *metrics.Metrics
	Handler   *batch.Handler
	ErrorChan chan<- error
}

// Config holds application configuration, read from the environment.
type Config struct {
	SourceBucket      string `env:"SOURCE_BUCKET,required"`
	DestinationBucket string `env:"DESTINATION_BUCKET,required"`
	InputPrefix       string `env:"INPUT_PREFIX" envDefault:"input/"`
	OutputPrefix      string `env:"OUTPUT_PREFIX"`
	TenantSegment     string `env:"TENANT_SEGMENT"`
	RoleARN           string `env:"ASSUME_ROLE_ARN"`
	SessionNamePrefix string `env:"SESSION_NAME_PREFIX" envDefault:"s3-relay"`
	ProcessorID       string `env:"PROCESSOR_ID" envDefault:"s3-relay"`
	DeploymentID      string `env:"DEPLOYMENT_ID" envDefault:"dev"`

	Region         string `env:"AWS_REGION"`
	Endpoint       string `env:"S3_ENDPOINT"`
	ForcePathStyle bool   `env:"S3_FORCE_PATH_STYLE"`

	Workers   int    `env:"WORKERS" envDefault:"1"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	QueueURL                string        `env:"QUEUE_URL"`
	MaxReceiveCount         int           `env:"MAX_RECEIVE_COUNT" envDefault:"5"`
	ListenAddr              string        `env:"LISTEN_ADDR" envDefault:":8080"`
	ReadTimeout             time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"1m"`
	WriteTimeout            time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"1m"`
	CredentialRefreshPeriod time.Duration `env:"CREDENTIAL_REFRESH_PERIOD" envDefault:"1m"`
}
