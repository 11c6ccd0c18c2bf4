package tallylib

import (
	"encoding/json"
	"errors"
	"net/http"
)

var (
	// ErrNoMatch is returned by a dataset if it has no record for a
	// given IP address. This is not a failure: such addresses are
	// silently excluded from the tally.
	ErrNoMatch = errors.New("address does not have a match in dataset")

	// ErrCannotConvert is returned by Resolver which works with
	// ConversionFail policy if resolved country cannot be mapped to
	// alpha-3 code.
	ErrCannotConvert = errors.New("cannot convert country to alpha-3 code")

	ErrResolverShutdown     = errors.New("resolver instance was shutdown")
	ErrContextIsClosed      = errors.New("context is closed")
	ErrCircuitBreakerOpened = errors.New("circuit breaker is opened")
	ErrCircuitBreakerIgnore = errors.New("this error should be ignored by circuit breaker")
)

type jsonHTTPError struct {
	Error struct {
		Message string `json:"message"`
		Context string `json:"context"`
	} `json:"error"`
}

// HTTPError is an error which knows how to present itself as a JSON
// response.
type HTTPError struct {
	message    string
	err        error
	statusCode int
}

func (h *HTTPError) Message() string {
	if h == nil {
		return ""
	}

	return h.message
}

func (h *HTTPError) Err() string {
	if err := errors.Unwrap(h); err != nil {
		return err.Error()
	}

	return ""
}

func (h *HTTPError) StatusCode() int {
	if h != nil && h.statusCode != 0 {
		return h.statusCode
	}

	return http.StatusInternalServerError
}

func (h *HTTPError) Unwrap() error {
	if h == nil {
		return nil
	}

	return h.err
}

func (h *HTTPError) Error() string {
	switch {
	case h == nil:
		return ""
	case h.err != nil && h.message != "":
		return h.message + ": " + h.err.Error()
	case h.err != nil:
		return h.err.Error()
	}

	return h.message
}

func (h *HTTPError) MarshalJSON() ([]byte, error) {
	value := jsonHTTPError{}
	value.Error.Message = h.Message()
	value.Error.Context = h.Err()

	return json.Marshal(&value)
}

// NewHTTPError wraps err with a message for a client. Zero statusCode
// means 500.
func NewHTTPError(err error, message string, statusCode int) *HTTPError {
	return &HTTPError{
		message:    message,
		err:        err,
		statusCode: statusCode,
	}
}
