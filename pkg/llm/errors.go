package llm

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind partitions model failures into the cases callers branch on.
type ErrorKind int

const (
	// KindOther is any model failure without special handling.
	KindOther ErrorKind = iota
	// KindRateLimited means the provider rejected the call for quota or
	// throttling reasons.
	KindRateLimited
	// KindSafetyRejected means the provider refused the content itself.
	KindSafetyRejected
)

func (k ErrorKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindSafetyRejected:
		return "safety_rejected"
	default:
		return "other"
	}
}

// ModelError is a tagged model failure. Extractors branch on Kind with
// errors.As instead of sniffing message text.
type ModelError struct {
	Kind     ErrorKind
	Provider string
	Status   int
	Message  string
}

func (e *ModelError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s model error (%s, status %d): %s", e.Provider, e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s model error (%s): %s", e.Provider, e.Kind, e.Message)
}

// safetyMarkers are the provider phrasings that indicate a content
// refusal. Matching is confined to this package.
var safetyMarkers = []string{"unsafe", "guardrail", "safety"}

// classifyError tags a provider failure. Status 429 is a rate limit;
// safety marker substrings in the message are a content refusal.
func classifyError(provider string, status int, message string) *ModelError {
	kind := KindOther

	if status == http.StatusTooManyRequests {
		kind = KindRateLimited
	} else {
		lower := strings.ToLower(message)
		for _, marker := range safetyMarkers {
			if strings.Contains(lower, marker) {
				kind = KindSafetyRejected
				break
			}
		}
	}

	return &ModelError{
		Kind:     kind,
		Provider: provider,
		Status:   status,
		Message:  message,
	}
}
