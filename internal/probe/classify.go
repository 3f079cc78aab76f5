package probe

import (
	"strings"

	"github.com/hamed0406/downdetector/internal/domain"
)

const (
	// SuccessMarker appears anywhere in an echo reply line ("64 bytes from 1.1.1.1: ...").
	SuccessMarker = "bytes from"
	// TimeoutMarker starts the line ping prints for an unanswered request.
	TimeoutMarker = "Request timeout"
)

// Classify maps one chunk of ping output to an outcome. It never fails:
// anything that is neither a reply nor a timeout is unknown.
func Classify(message string) domain.Outcome {
	switch {
	case strings.Contains(message, SuccessMarker):
		return domain.OutcomeSuccess
	case strings.HasPrefix(message, TimeoutMarker):
		return domain.OutcomeDown
	default:
		return domain.OutcomeUnknown
	}
}
