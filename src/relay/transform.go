package relay

import (
	"fmt"
	"time"
)

// Header is prepended to every relayed object.
func Header(deploymentID, sourceKey string, at time.Time) string {
	return fmt.Sprintf("# Processed by %s at %s\n# Source: %s\n\n",
		deploymentID, at.UTC().Format(time.RFC3339), sourceKey)
}

// Transform returns a new body made of the header followed by the unmodified
// original bytes.
func Transform(body []byte, deploymentID, sourceKey string, at time.Time) []byte {
	header := Header(deploymentID, sourceKey, at)
	out := make([]byte, 0, len(header)+len(body))
	out = append(out, header...)
	return append(out, body...)
}
