package remote

import (
	"errors"
	"fmt"
	"net/http"
)

// RemoteError is the single failure type of every Client method. StatusCode
// is 0 when no HTTP response was received.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("remote: %s", e.Message)
	}
	return fmt.Sprintf("remote: %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a RemoteError with status 404.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// StatusCode returns the status of a RemoteError in err's chain, or 0.
func StatusCode(err error) int {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.StatusCode
	}
	return 0
}
