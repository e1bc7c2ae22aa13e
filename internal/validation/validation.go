package validation

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"uigen/internal/errors"
	"uigen/internal/vfs"
)

// MaxBodySize bounds request bodies; a project upload is at most a few
// megabytes of source.
const MaxBodySize = 32 << 20

type Validator interface {
	Validate() error
}

type CreateProjectRequest struct {
	Name  string            `json:"name"`
	Files map[string]string `json:"files,omitempty"`
}

func (r *CreateProjectRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.ValidationError("name is required", nil)
	}
	return nil
}

// ReplaceFilesRequest replaces a project's tree. Nodes, when present, keep
// empty directories; otherwise Files (path -> content) is used.
type ReplaceFilesRequest struct {
	Files map[string]string             `json:"files,omitempty"`
	Nodes map[string]vfs.SerializedNode `json:"nodes,omitempty"`
	Note  string                        `json:"note,omitempty"`
}

func (r *ReplaceFilesRequest) Validate() error {
	if r.Files != nil && r.Nodes != nil {
		return errors.ValidationError("only one of files or nodes may be given", nil)
	}
	return nil
}

type ToolCallRequest struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

func (r *ToolCallRequest) Validate() error {
	if r.Name == "" {
		return errors.ValidationError("name is required", nil)
	}
	if len(r.Arguments) == 0 {
		return errors.ValidationError("arguments are required", nil)
	}
	return nil
}

// Decode reads a JSON body into v and validates it.
func Decode(r *http.Request, v Validator) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.ValidationError("invalid request body", map[string]string{"error": err.Error()})
	}
	return v.Validate()
}

func ValidateCreateProjectRequest(r *http.Request) (*CreateProjectRequest, error) {
	var req CreateProjectRequest
	if err := Decode(r, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func ValidateReplaceFilesRequest(r *http.Request) (*ReplaceFilesRequest, error) {
	var req ReplaceFilesRequest
	if err := Decode(r, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func ValidateToolCallRequest(r *http.Request) (*ToolCallRequest, error) {
	var req ToolCallRequest
	if err := Decode(r, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// LineRange parses the optional start/end query parameters of a view
// request. It returns nil when neither is set.
func LineRange(r *http.Request) (*vfs.ViewRange, error) {
	q := r.URL.Query()
	start, end := q.Get("start"), q.Get("end")
	if start == "" && end == "" {
		return nil, nil
	}

	rng := &vfs.ViewRange{Start: 1, End: -1}
	if start != "" {
		n, err := strconv.Atoi(start)
		if err != nil {
			return nil, errors.ValidationError(fmt.Sprintf("invalid start: %q", start), nil)
		}
		rng.Start = n
	}
	if end != "" {
		n, err := strconv.Atoi(end)
		if err != nil {
			return nil, errors.ValidationError(fmt.Sprintf("invalid end: %q", end), nil)
		}
		rng.End = n
	}
	return rng, nil
}
