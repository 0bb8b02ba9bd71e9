package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&ConfigError{Problems: []string{"OPENAI_API_KEY is not set"}}, "configuration_error"},
		{fmt.Errorf("decode: %w", ErrInvalidRequest), "invalid_request"},
		{&GenerationError{Attempts: 2, Err: errors.New("quota")}, "generation_failure"},
		{Parsef("no day segments"), "parse_failure"},
		{&RenderError{Field: "days[0].title", Err: errors.New("rune")}, "render_failure"},
		{&DeliveryError{Recipient: "a@b.com", Err: errors.New("dial")}, "delivery_failure"},
		{fmt.Errorf("build: %w", context.Canceled), "canceled"},
		{&GenerationError{Attempts: 1, Err: context.Canceled}, "canceled"},
		{&DeliveryError{Recipient: "a@b.com", Err: fmt.Errorf("smtp: %w", context.Canceled)}, "canceled"},
		{errors.New("boom"), "internal"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Kind(tc.err))
	}
}

func TestGenerationErrorUnwrapsCause(t *testing.T) {
	cause := context.DeadlineExceeded
	err := fmt.Errorf("generate: %w", &GenerationError{Attempts: 2, Err: cause})

	assert.ErrorIs(t, err, ErrGeneration)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "after 2 attempt(s)")
}

func TestRenderErrorNamesField(t *testing.T) {
	err := &RenderError{Field: "days[1].stops[0].activity", Err: errors.New("unencodable rune")}

	var re *RenderError
	assert.True(t, errors.As(fmt.Errorf("render: %w", err), &re))
	assert.Equal(t, "days[1].stops[0].activity", re.Field)
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatus(Parsef("x")))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(ErrInvalidRequest))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("x")))
}
