package download

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// FailureKind classifies a downloader failure.
type FailureKind int

const (
	FailureOther FailureKind = iota
	// FailureQualityUnavailable means the requested quality does not exist
	// for the item; a lower quality may still succeed.
	FailureQualityUnavailable
)

// qualityUnavailable lists lower-cased fragments of the downloader's
// "requested bitrate not available" diagnostics.
var qualityUnavailable = []string{
	"wrongbitrate",
	"not found at desired bitrate",
}

// ClassifyFailure inspects a Runner error.
func ClassifyFailure(err error) FailureKind {
	if err == nil {
		return FailureOther
	}
	text := err.Error()
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		text = exitErr.Output
	}
	text = strings.ToLower(text)
	for _, sig := range qualityUnavailable {
		if strings.Contains(text, sig) {
			return FailureQualityUnavailable
		}
	}
	return FailureOther
}
