package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNoFileSelected     = errors.New("Please select an image first")
	ErrEmptyResponse      = errors.New("Empty response received from server")
	ErrSubmissionInFlight = errors.New("an analysis is already in progress")
)

const (
	genericMessage = "Something went wrong"
	parseMessage   = "Unexpected response from server"
)

// TransportError covers network failures and non-success statuses.
// StatusCode is zero when no response was received.
type TransportError struct {
	StatusCode int
	Status     string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("Network error: %v", e.Err)
	}
	return fmt.Sprintf("Server error: %s", e.Status)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ParseError is a non-empty body that could not be used as a result.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse response: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// UserMessage maps any submission error to the single string shown in the view.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var transportErr *TransportError
	var parseErr *ParseError

	switch {
	case errors.Is(err, ErrNoFileSelected):
		return ErrNoFileSelected.Error()
	case errors.Is(err, ErrEmptyResponse):
		return ErrEmptyResponse.Error()
	case errors.As(err, &transportErr):
		return transportErr.Error()
	case errors.As(err, &parseErr):
		return parseMessage
	default:
		return genericMessage
	}
}
