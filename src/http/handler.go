package http

import (
	"encoding/json"
	"github.com/michaelfecher/cross-account-access/src/iam"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"net/http"
	"time"
)

const (
	healthPath  = "/healthz"
	statusPath  = "/status"
	metricsPath = "/metrics"
)

var (
	log = logrus.WithField("prefix", "http")
)

// NewStatusHandler creates a http.Handler which serves liveness, the state of
// the credential cache and the metrics in gatherer. cache may be nil when no
// role is assumed.
func NewStatusHandler(info StatusInfo, cache iam.CredentialCache, gatherer prometheus.Gatherer, clock iam.Clock) http.Handler {
	if clock == nil {
		clock = time.Now
	}
	return &httpHandler{
		info:    info,
		cache:   cache,
		metrics: promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
		clock:   clock,
	}
}

func (handler *httpHandler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	logger := log.WithFields(logrus.Fields{
		"path":       request.URL.Path,
		"method":     request.Method,
		"remoteAddr": request.RemoteAddr,
	})

	if request.Method != http.MethodGet {
		logger.Debug("Rejecting method")
		writer.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	switch request.URL.Path {
	case healthPath:
		logger.Debug("Serving health request")
		handler.write(writer, []byte("ok"), logger)
	case statusPath:
		logger.Debug("Serving status request")
		handler.serveStatusRequest(writer, logger)
	case metricsPath:
		logger.Debug("Serving metrics request")
		handler.metrics.ServeHTTP(writer, request)
	default:
		logger.Debug("Unknown path")
		writer.WriteHeader(http.StatusNotFound)
	}
}

func (handler *httpHandler) serveStatusRequest(writer http.ResponseWriter, logger *logrus.Entry) {
	status := &StatusResponse{
		Deployment:        handler.info.Deployment,
		Processor:         handler.info.Processor,
		SourceBucket:      handler.info.SourceBucket,
		DestinationBucket: handler.info.DestinationBucket,
	}
	if handler.cache != nil {
		status.RoleARN = handler.cache.RoleARN()
		if expiration, ok := handler.cache.Expiration(); ok {
			status.CredentialExpiration = &expiration
			status.CredentialFresh = handler.clock().Before(expiration.Add(-iam.RefreshBuffer))
		}
	}

	response, err := json.Marshal(status)
	if err != nil {
		logger.WithField("error", err.Error()).Warn("Unable to serialize JSON")
		writer.WriteHeader(http.StatusInternalServerError)
		return
	}
	writer.Header().Set("Content-Type", "application/json")
	handler.write(writer, response, logger)
}

func (handler *httpHandler) write(writer http.ResponseWriter, body []byte, logger *logrus.Entry) {
	_, err := writer.Write(body)
	if err != nil {
		logger.WithField("error", err.Error()).Warn("Unable to write response")
		return
	}
	logger.Debug("Successfully responded")
}

type httpHandler struct {
	info    StatusInfo
	cache   iam.CredentialCache
	metrics http.Handler
	clock   iam.Clock
}
