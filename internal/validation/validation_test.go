package validation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"uigen/internal/errors"
	"uigen/internal/vfs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCreateProjectRequest(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"name": "demo", "files": {"/App.jsx": "x"}}`, false},
		{"missing name", `{"files": {}}`, true},
		{"unknown field", `{"name": "demo", "owner": "me"}`, true},
		{"malformed", `{"name":`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/projects", strings.NewReader(tt.body))
			req, err := ValidateCreateProjectRequest(r)
			if tt.wantErr {
				assert.True(t, errors.Is(err, errors.ErrorTypeValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "demo", req.Name)
		})
	}
}

func TestValidateReplaceFilesRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"files": {"/a.txt": "a"}, "nodes": {}}`))
	_, err := ValidateReplaceFilesRequest(r)
	assert.Error(t, err)

	r = httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"nodes": {"/a": {"type": "directory", "name": "a", "path": "/a"}}}`))
	req, err := ValidateReplaceFilesRequest(r)
	require.NoError(t, err)
	assert.Equal(t, vfs.DirectoryType, req.Nodes["/a"].Type)
}

func TestValidateToolCallRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name": "file_manager"}`))
	_, err := ValidateToolCallRequest(r)
	assert.Error(t, err)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name": "file_manager", "arguments": {"command": "delete", "path": "/a"}}`))
	req, err := ValidateToolCallRequest(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"command": "delete", "path": "/a"}`, string(req.Arguments))
}

func TestLineRange(t *testing.T) {
	tests := []struct {
		query   string
		want    *vfs.ViewRange
		wantErr bool
	}{
		{"", nil, false},
		{"start=2", &vfs.ViewRange{Start: 2, End: -1}, false},
		{"start=2&end=5", &vfs.ViewRange{Start: 2, End: 5}, false},
		{"end=3", &vfs.ViewRange{Start: 1, End: 3}, false},
		{"start=x", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/view?"+tt.query, nil)
			got, err := LineRange(r)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
