package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"not found", NotFound("x"), ErrorTypeNotFound},
		{"validation", ValidationError("x", nil), ErrorTypeValidation},
		{"invalid path", InvalidPath("/../x", "path traversal is not allowed"), ErrorTypeInvalidPath},
		{"conflict", Conflict("x"), ErrorTypeConflict},
		{"wrapped", fmt.Errorf("restoring /a: %w", Conflict("x")), ErrorTypeConflict},
		{"plain", errors.New("boom"), ErrorTypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TypeOf(tt.err))
			assert.True(t, Is(tt.err, tt.want))
		})
	}

	assert.False(t, Is(nil, ErrorTypeInternal))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NotFoundf("File not found: %s", "/a")))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(ValidationError("bad", nil)))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(InvalidPath("/a", "bad")))
	assert.Equal(t, http.StatusConflict, HTTPStatus(fmt.Errorf("wrap: %w", Conflict("dup"))))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}

func TestInvalidPath_Message(t *testing.T) {
	err := InvalidPath("/a\x00b", "invalid characters")
	assert.Equal(t, `invalid path "/a\x00b": invalid characters`, err.Error())
	assert.Equal(t, map[string]string{"path": "/a\x00b"}, err.Details)
}

func TestFrom(t *testing.T) {
	e, ok := From(fmt.Errorf("wrap: %w", NotFound("gone")))
	assert.True(t, ok)
	assert.Equal(t, "gone", e.Message)

	_, ok = From(errors.New("plain"))
	assert.False(t, ok)
}
