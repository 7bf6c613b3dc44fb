package cosmic

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNoWriteKey is returned by mutations on a client built without a write key.
var ErrNoWriteKey = errors.New("cosmic: write key not configured")

// APIError is a non-2xx answer from the store.
type APIError struct {
	Op      string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("cosmic %s: status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("cosmic %s: status %d: %s", e.Op, e.Status, e.Message)
}

// IsNotFound reports whether err is the store's not-found answer, including
// a FindOne that matched nothing.
func IsNotFound(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == http.StatusNotFound
}
