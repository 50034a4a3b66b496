package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ding-dong-qiang/blockchain-storage-system/internal/common"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/logging"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/services"
	"github.com/go-chi/chi/v5"
)

type ctxKey struct{}

// Handler holds the API route handlers.
type Handler struct {
	gate *services.Gate
	log  logging.Logger
}

func NewHandler(gate *services.Gate, log logging.Logger) *Handler {
	return &Handler{gate: gate, log: log.With("component", "api")}
}

// fail writes err with its mapped status. Server-side failures are logged
// and answered with a generic message.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		h.log.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, status, errorBody("internal error"))
		return
	}
	h.log.Debug(r.Context(), "request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	writeJSON(w, status, errorBody(err.Error()))
}

// RequireSession rejects requests while no workspace is open and passes the
// workspace to handlers through the request context.
func (h *Handler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, ok := h.gate.Current()
		if !ok {
			h.fail(w, r, fmt.Errorf("%w: no open session", common.ErrUnauthorized))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, ws)))
	})
}

func workspace(r *http.Request) *services.Workspace {
	return r.Context().Value(ctxKey{}).(*services.Workspace)
}

// Login handles POST /api/session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	ws, err := h.gate.Login(r.Context(), req.Secret)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Identity: ws.Keys.Identity()})
}

// Logout handles DELETE /api/session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.gate.Logout(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GenerateKeys handles POST /api/keys.
func (h *Handler) GenerateKeys(w http.ResponseWriter, r *http.Request) {
	kp, err := h.gate.GenerateIdentity()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, kp)
}

// ListFiles handles GET /api/files.
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := workspace(r).Files.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fileListResponse{Files: files, Total: len(files)})
}

// CreateFile handles POST /api/files. With autoSuffix a taken title gets the
// first free " (n)" suffix instead of a 409.
func (h *Handler) CreateFile(w http.ResponseWriter, r *http.Request) {
	var req createFileRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	files := workspace(r).Files
	title := req.Title
	if req.AutoSuffix {
		unique, err := files.UniqueTitle(r.Context(), title)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		title = unique
	}

	rec, err := files.Create(r.Context(), title, req.Content)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// GetFile handles GET /api/files/{id}.
func (h *Handler) GetFile(w http.ResponseWriter, r *http.Request) {
	rec, err := workspace(r).Files.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// UpdateFile handles PUT /api/files/{id}.
func (h *Handler) UpdateFile(w http.ResponseWriter, r *http.Request) {
	var req updateFileRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	rec, err := workspace(r).Files.UpdateContent(r.Context(), chi.URLParam(r, "id"), *req.Content)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// RenameFile handles PATCH /api/files/{id}.
func (h *Handler) RenameFile(w http.ResponseWriter, r *http.Request) {
	var req renameFileRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	rec, err := workspace(r).Files.Rename(r.Context(), chi.URLParam(r, "id"), req.Title)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// DeleteFile handles DELETE /api/files/{id}.
func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	if err := workspace(r).Files.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Sync handles POST /api/sync: a synchronous mirror run.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	cid, err := workspace(r).Mirror.Sync(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, syncResponse{ContentID: cid})
}

// Restore handles POST /api/restore.
func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	if err := workspace(r).Mirror.Restore(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoteExists handles GET /api/remote/exists.
func (h *Handler) RemoteExists(w http.ResponseWriter, r *http.Request) {
	exists, err := workspace(r).Mirror.RemoteExists(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, existsResponse{Exists: exists})
}
