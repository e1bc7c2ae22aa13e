package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"uigen/internal/config"
	"uigen/internal/middleware"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApp_Handler(t *testing.T) {
	cfg := config.Default()
	cfg.Database.InMemory = true

	a, err := New(cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"health", http.MethodGet, "/health", http.StatusOK},
		{"tools", http.MethodGet, "/api/tools", http.StatusOK},
		{"missing project", http.MethodGet, "/api/projects/nope", http.StatusNotFound},
		{"wrong method", http.MethodPatch, "/api/projects", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			req.Header.Set(middleware.RequestIDHeader, "req-1")
			rec := httptest.NewRecorder()

			a.Handler().ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "req-1", rec.Header().Get(middleware.RequestIDHeader))
		})
	}
}
