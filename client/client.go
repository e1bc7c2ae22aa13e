// Package client talks to a running uigen server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"uigen/internal/diff"
	apperrors "uigen/internal/errors"
	"uigen/internal/project"
	"uigen/internal/tools"
	"uigen/internal/vfs"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: time.Second * 10,
		},
	}
}

// Project operations
func (c *Client) CreateProject(ctx context.Context, name string, files map[string]string) (*project.Project, error) {
	var p project.Project
	body := map[string]any{"name": name, "files": files}
	if err := c.do(ctx, http.MethodPost, "/api/projects", body, http.StatusCreated, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) ListProjects(ctx context.Context) ([]*project.Project, error) {
	var projects []*project.Project
	if err := c.do(ctx, http.MethodGet, "/api/projects", nil, http.StatusOK, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

func (c *Client) GetProject(ctx context.Context, id string) (*project.Project, error) {
	var p project.Project
	if err := c.do(ctx, http.MethodGet, projectPath(id), nil, http.StatusOK, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) DeleteProject(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, projectPath(id), nil, http.StatusNoContent, nil)
}

// File operations
func (c *Client) Files(ctx context.Context, id string) (map[string]vfs.SerializedNode, error) {
	var nodes map[string]vfs.SerializedNode
	if err := c.do(ctx, http.MethodGet, projectPath(id)+"/files", nil, http.StatusOK, &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

// ReplaceFiles swaps the project's tree for files (path -> content).
func (c *Client) ReplaceFiles(ctx context.Context, id string, files map[string]string, note string) (map[string]vfs.SerializedNode, error) {
	var nodes map[string]vfs.SerializedNode
	body := map[string]any{"files": files, "note": note}
	if err := c.do(ctx, http.MethodPut, projectPath(id)+"/files", body, http.StatusOK, &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

// ReplaceNodes swaps the project's tree for serialized nodes, keeping empty
// directories.
func (c *Client) ReplaceNodes(ctx context.Context, id string, nodes map[string]vfs.SerializedNode, note string) (map[string]vfs.SerializedNode, error) {
	var out map[string]vfs.SerializedNode
	body := map[string]any{"nodes": nodes, "note": note}
	if err := c.do(ctx, http.MethodPut, projectPath(id)+"/files", body, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// View returns the editor rendering of path; rng may be nil.
func (c *Client) View(ctx context.Context, id, path string, rng *vfs.ViewRange) (string, error) {
	q := url.Values{}
	q.Set("path", path)
	if rng != nil {
		q.Set("start", fmt.Sprint(rng.Start))
		q.Set("end", fmt.Sprint(rng.End))
	}

	resp, err := c.send(ctx, http.MethodGet, projectPath(id)+"/view?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", decodeError(resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Tool operations
func (c *Client) Tools(ctx context.Context) ([]tools.Definition, error) {
	var defs []tools.Definition
	if err := c.do(ctx, http.MethodGet, "/api/tools", nil, http.StatusOK, &defs); err != nil {
		return nil, err
	}
	return defs, nil
}

func (c *Client) CallTool(ctx context.Context, id, name string, args json.RawMessage) (*tools.Result, error) {
	var res tools.Result
	body := map[string]any{"name": name, "arguments": args}
	if err := c.do(ctx, http.MethodPost, projectPath(id)+"/tools", body, http.StatusOK, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Revision operations
func (c *Client) Revisions(ctx context.Context, id string) ([]project.Revision, error) {
	var revs []project.Revision
	if err := c.do(ctx, http.MethodGet, projectPath(id)+"/revisions", nil, http.StatusOK, &revs); err != nil {
		return nil, err
	}
	return revs, nil
}

func (c *Client) Restore(ctx context.Context, id, ref string) (*project.Project, error) {
	var p project.Project
	path := fmt.Sprintf("%s/revisions/%s/restore", projectPath(id), url.PathEscape(ref))
	if err := c.do(ctx, http.MethodPost, path, nil, http.StatusOK, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Diff compares revision from with to; an empty to means the current one.
func (c *Client) Diff(ctx context.Context, id, from, to string) ([]diff.FileDiff, error) {
	q := url.Values{}
	q.Set("from", from)
	if to != "" {
		q.Set("to", to)
	}
	var diffs []diff.FileDiff
	if err := c.do(ctx, http.MethodGet, projectPath(id)+"/diff?"+q.Encode(), nil, http.StatusOK, &diffs); err != nil {
		return nil, err
	}
	return diffs, nil
}

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, http.StatusOK, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any, want int, out any) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.httpClient.Do(req)
}

// decodeError turns a server error body back into a typed error so callers
// can branch on apperrors.TypeOf.
func decodeError(resp *http.Response) error {
	var e apperrors.Error
	if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Type == "" {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}
	return &e
}

func projectPath(id string) string {
	return "/api/projects/" + url.PathEscape(id)
}
