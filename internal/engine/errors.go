/*
PURPOSE:
  Error taxonomy of the streaming client.

REQUIREMENTS:
  Implementation-discovered:
  - Retry logs and error cells need short, readable messages.

ARCHITECTURE INTEGRATION:
  - Used by: internal/engine/client.go, internal/engine/stream.go

ERROR HANDLING:
  - Sentinels are matched with errors.Is.

IMPLEMENTATION RULES:
  - Body excerpts are truncated by runes, never bytes.

USAGE:
    errors.Is(err, ErrTimeout)

SELF-HEALING INSTRUCTIONS:
  - None.

RELATED FILES:
  - internal/engine/client.go

MAINTENANCE:
  - Add a sentinel when a new failure class needs distinct handling.
*/

package engine

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	// ErrNetwork covers connection failures and broken streams.
	ErrNetwork = errors.New("network error")
	// ErrTimeout is returned when a call exceeds its configured timeout.
	ErrTimeout = errors.New("request timed out")
	// ErrInvalidRequest is reported by the agent as a plain-text line instead of stream data.
	ErrInvalidRequest = errors.New("invalid request")
)

// bodyExcerptLimit is the number of runes of an error body kept in messages.
const bodyExcerptLimit = 200

// HTTPStatusError is returned for a non-2xx response.
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// excerpt trims s and cuts it to at most limit runes.
func excerpt(s string, limit int) string {
	s = strings.TrimSpace(strings.ToValidUTF8(s, ""))
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}
