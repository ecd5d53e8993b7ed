package garmin

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNoTicket means the SSO response did not contain a service ticket,
	// usually because the credentials were wrong.
	ErrNoTicket = errors.New("couldn't find ticket in the login response")
	// ErrUnknownFormat is returned for export formats the exporter cannot produce.
	ErrUnknownFormat = errors.New("unknown export format")
)

// StatusError is a non-2xx answer from Garmin Connect.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("got HTTP %d for %s", e.StatusCode, e.URL)
}

// IsNotFound reports whether err is a 404 StatusError.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}
