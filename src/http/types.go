package http

import (
	"time"
)

// StatusResponse is the body of a successful /status request.
type StatusResponse struct {
	Deployment           string
	Processor            string
	SourceBucket         string
	DestinationBucket    string
	RoleARN              string     `json:",omitempty"`
	CredentialExpiration *time.Time `json:",omitempty"`
	CredentialFresh      bool
}

// StatusInfo holds the static part of a StatusResponse.
type StatusInfo struct {
	Deployment        string
	Processor         string
	SourceBucket      string
	DestinationBucket string
}
