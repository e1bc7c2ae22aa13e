// internal/api/handlers.go
package api

import (
	"encoding/json"
	"net/http"

	"uigen/internal/diff"
	"uigen/internal/errors"
	"uigen/internal/logging"
	"uigen/internal/session"
	"uigen/internal/tools"
	"uigen/internal/validation"
	"uigen/internal/vfs"

	"go.uber.org/zap"
)

// DiffContextLines is how much unchanged text surrounds each diff hunk.
const DiffContextLines = 3

// ProjectHandler serves projects, their files and tool calls.
type ProjectHandler struct {
	manager    *session.Manager
	dispatcher *tools.Dispatcher
	diff       *diff.Engine
	logger     *logging.Logger
}

func NewProjectHandler(manager *session.Manager, dispatcher *tools.Dispatcher, logger *logging.Logger) *ProjectHandler {
	if logger == nil {
		logger = logging.Nop()
	}
	return &ProjectHandler{
		manager:    manager,
		dispatcher: dispatcher,
		diff:       diff.NewEngine(DiffContextLines),
		logger:     logger,
	}
}

// Register mounts every route on mux.
func (h *ProjectHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", Health)
	mux.HandleFunc("GET /api/tools", h.Tools)

	mux.HandleFunc("POST /api/projects", h.Create)
	mux.HandleFunc("GET /api/projects", h.List)
	mux.HandleFunc("GET /api/projects/{id}", h.Get)
	mux.HandleFunc("DELETE /api/projects/{id}", h.Delete)

	mux.HandleFunc("GET /api/projects/{id}/files", h.Files)
	mux.HandleFunc("PUT /api/projects/{id}/files", h.ReplaceFiles)
	mux.HandleFunc("GET /api/projects/{id}/view", h.View)
	mux.HandleFunc("POST /api/projects/{id}/tools", h.CallTool)

	mux.HandleFunc("GET /api/projects/{id}/revisions", h.Revisions)
	mux.HandleFunc("POST /api/projects/{id}/revisions/{hash}/restore", h.Restore)
	mux.HandleFunc("GET /api/projects/{id}/diff", h.Diff)
}

func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *ProjectHandler) Tools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, tools.Definitions())
}

func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, err := validation.ValidateCreateProjectRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	p, err := h.manager.Create(r.Context(), req.Name, req.Files)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.manager.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.manager.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Files returns the project's serialized tree keyed by path.
func (h *ProjectHandler) Files(w http.ResponseWriter, r *http.Request) {
	var nodes map[string]vfs.SerializedNode
	err := h.manager.View(r.Context(), r.PathValue("id"), func(fs *vfs.FileSystem) error {
		nodes = fs.Serialize()
		return nil
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nodes)
}

// ReplaceFiles swaps the whole tree for the uploaded one.
func (h *ProjectHandler) ReplaceFiles(w http.ResponseWriter, r *http.Request) {
	req, err := validation.ValidateReplaceFilesRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	note := req.Note
	if note == "" {
		note = "replace files"
	}

	var nodes map[string]vfs.SerializedNode
	err = h.manager.Do(r.Context(), r.PathValue("id"), note, func(fs *vfs.FileSystem) error {
		var err error
		if req.Nodes != nil {
			err = fs.DeserializeFromNodes(req.Nodes)
		} else {
			err = fs.Deserialize(req.Files)
		}
		nodes = fs.Serialize()
		return err
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nodes)
}

// View renders a file or directory the way the editor tool shows it.
func (h *ProjectHandler) View(w http.ResponseWriter, r *http.Request) {
	rng, err := validation.LineRange(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		path = "/"
	}

	var out string
	err = h.manager.View(r.Context(), r.PathValue("id"), func(fs *vfs.FileSystem) error {
		var err error
		out, err = fs.ViewFile(path, rng)
		return err
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(out))
}

// CallTool executes one model tool call. Tool failures are part of a 200
// response; only unknown tools and missing projects are HTTP errors.
func (h *ProjectHandler) CallTool(w http.ResponseWriter, r *http.Request) {
	req, err := validation.ValidateToolCallRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var res tools.Result
	err = h.manager.Do(r.Context(), r.PathValue("id"), ToolNote(req.Name, req.Arguments), func(fs *vfs.FileSystem) error {
		var err error
		res, err = h.dispatcher.Execute(fs, req.Name, req.Arguments)
		if err != nil {
			return errors.ValidationError(err.Error(), nil)
		}
		return nil
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *ProjectHandler) Revisions(w http.ResponseWriter, r *http.Request) {
	p, err := h.manager.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p.History)
}

func (h *ProjectHandler) Restore(w http.ResponseWriter, r *http.Request) {
	p, err := h.manager.Restore(r.Context(), r.PathValue("id"), r.PathValue("hash"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Diff compares two revisions (?from=&to=, to defaults to the current one).
func (h *ProjectHandler) Diff(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	q := r.URL.Query()
	if q.Get("from") == "" {
		h.writeError(w, r, errors.ValidationError("from is required", nil))
		return
	}

	_, from, err := h.manager.Snapshot(r.Context(), id, q.Get("from"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_, to, err := h.manager.Snapshot(r.Context(), id, q.Get("to"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.diff.Trees(FileContents(from), FileContents(to)))
}

// FileContents extracts path -> content for the files of a serialized tree.
func FileContents(nodes map[string]vfs.SerializedNode) map[string]string {
	out := make(map[string]string, len(nodes))
	for p, n := range nodes {
		if n.Type == vfs.FileType && n.Content != nil {
			out[p] = *n.Content
		}
	}
	return out
}

// ToolNote labels the revision a tool call produces, e.g.
// "str_replace_editor create /App.jsx".
func ToolNote(name string, raw json.RawMessage) string {
	var args struct {
		Command string `json:"command"`
		Path    string `json:"path"`
	}
	json.Unmarshal(raw, &args)
	note := name
	if args.Command != "" {
		note += " " + args.Command
	}
	if args.Path != "" {
		note += " " + args.Path
	}
	return note
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *ProjectHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	body := errors.Internal("internal server error")

	if appErr, ok := errors.From(err); ok {
		body = appErr
	}
	if status >= http.StatusInternalServerError {
		h.logger.WithRequestID(r.Context()).Error("request failed", zap.Error(err))
	} else if errors.Is(err, errors.ErrorTypeInvalidPath) {
		h.logger.WithRequestID(r.Context()).Warn("request used an invalid path", zap.Error(err))
	}
	writeJSON(w, status, body)
}
