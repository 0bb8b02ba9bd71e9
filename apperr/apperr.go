// Package apperr defines the error kinds an itinerary build can fail with.
//
// Every failure leaving a pipeline stage wraps exactly one of the sentinel
// kinds below, so callers branch with errors.Is and never on message text.
// Image resolution has no kind: it degrades to a placeholder instead of failing.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrConfiguration  = errors.New("configuration error")
	ErrInvalidRequest = errors.New("invalid trip request")
	ErrGeneration     = errors.New("generation failure")
	ErrParse          = errors.New("parse failure")
	ErrRender         = errors.New("render failure")
	ErrDelivery       = errors.New("delivery failure")
)

// ConfigError lists every missing or invalid setting at once.
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", ErrConfiguration, strings.Join(e.Problems, "; "))
}

func (e *ConfigError) Is(target error) bool { return target == ErrConfiguration }

// GenerationError carries the last cause after the bounded retry gave up.
type GenerationError struct {
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s after %d attempt(s): %v", ErrGeneration, e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func (e *GenerationError) Is(target error) bool { return target == ErrGeneration }

// ParseError reports why raw model output did not yield a usable itinerary.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", ErrParse, e.Reason)
}

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// Parsef builds a ParseError from a format string.
func Parsef(format string, args ...any) error {
	return &ParseError{Reason: fmt.Sprintf(format, args...)}
}

// RenderError names the itinerary field the layout engine could not encode.
type RenderError struct {
	Field string
	Err   error
}

func (e *RenderError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %v", ErrRender, e.Err)
	}
	return fmt.Sprintf("%s: field %s: %v", ErrRender, e.Field, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

func (e *RenderError) Is(target error) bool { return target == ErrRender }

// DeliveryError wraps an email transport failure.
type DeliveryError struct {
	Recipient string
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s: send to %s: %v", ErrDelivery, e.Recipient, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

func (e *DeliveryError) Is(target error) bool { return target == ErrDelivery }

type kindMeta struct {
	name   string
	status int
}

var kinds = []struct {
	err  error
	meta kindMeta
}{
	{ErrConfiguration, kindMeta{"configuration_error", http.StatusServiceUnavailable}},
	{ErrInvalidRequest, kindMeta{"invalid_request", http.StatusBadRequest}},
	{ErrGeneration, kindMeta{"generation_failure", http.StatusBadGateway}},
	{ErrParse, kindMeta{"parse_failure", http.StatusUnprocessableEntity}},
	{ErrRender, kindMeta{"render_failure", http.StatusInternalServerError}},
	{ErrDelivery, kindMeta{"delivery_failure", http.StatusBadGateway}},
}

// Kind returns the snake_case name of err's kind, "canceled" for context
// cancellation and "internal" for anything unclassified. Cancellation wins
// over the stage that happened to be running.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	if isCanceled(err) {
		return "canceled"
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.meta.name
		}
	}
	return "internal"
}

// HTTPStatus maps err's kind to a response code.
func HTTPStatus(err error) int {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.meta.status
		}
	}
	return http.StatusInternalServerError
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
