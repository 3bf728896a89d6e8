package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/inkwell/internal/apperr"
	"github.com/starford/inkwell/internal/storage"
	"github.com/starford/inkwell/internal/workspace"
)

// Publisher pushes document change events to connected clients.
// A nil Publisher disables event delivery.
type Publisher interface {
	PublishFileEvent(kind, path string)
}

// Handler holds API route handlers.
type Handler struct {
	ctrl   *workspace.Controller
	mgr    *storage.Manager
	events Publisher
}

// NewHandler creates a new Handler.
func NewHandler(ctrl *workspace.Controller, mgr *storage.Manager, events Publisher) *Handler {
	return &Handler{ctrl: ctrl, mgr: mgr, events: events}
}

func (h *Handler) publish(kind, path string) {
	if h.events != nil {
		h.events.PublishFileEvent(kind, path)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

// ListFiles handles GET /api/workspace/files.
//
//	@Summary		List workspace documents, newest first
//	@Tags			workspace
//	@Produce		json
//	@Success		200	{object}	FileListResponse
//	@Security		BearerAuth
//	@Router			/workspace/files [get]
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.ctrl.Files()
	if err != nil {
		slog.Error("list files failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, FileListResponse{Files: files, Total: len(files)})
}

// OpenDocument handles POST /api/workspace/open.
//
//	@Summary		Open a document, replacing the current one
//	@Tags			workspace
//	@Accept			json
//	@Produce		json
//	@Param			body	body		OpenRequest	true	"Document to open"
//	@Success		200		{object}	Document
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/workspace/open [post]
func (h *Handler) OpenDocument(w http.ResponseWriter, r *http.Request) {
	var req OpenRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	doc, err := h.ctrl.Open(req.Path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("open failed", slog.String("path", req.Path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// CreateArticle handles POST /api/workspace/create.
//
//	@Summary		Create a new dated article and open it
//	@Tags			workspace
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateRequest	true	"Article title"
//	@Success		201		{object}	Document
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/workspace/create [post]
func (h *Handler) CreateArticle(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("title is required"))
		return
	}
	doc, err := h.ctrl.Create(req.Title)
	if err != nil {
		slog.Error("create failed", slog.String("title", req.Title), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	h.publish("created", doc.Path)
	writeJSON(w, http.StatusCreated, doc)
}

// CurrentDocument handles GET /api/workspace/current.
//
//	@Summary		Get the open document
//	@Tags			workspace
//	@Produce		json
//	@Success		200	{object}	Document
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/workspace/current [get]
func (h *Handler) CurrentDocument(w http.ResponseWriter, r *http.Request) {
	doc := h.ctrl.Current()
	if doc == nil {
		writeJSON(w, http.StatusNotFound, errorBody("no open document"))
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// SetBody handles PUT /api/workspace/body.
//
//	@Summary		Replace the open document's body
//	@Tags			workspace
//	@Accept			json
//	@Success		200	{object}	map[string]bool
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/workspace/body [put]
func (h *Handler) SetBody(w http.ResponseWriter, r *http.Request) {
	var req BodyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.ctrl.SetBody(req.Body); err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("no open document"))
		return
	}
	writeJSON(w, http.StatusOK, successBody())
}

// SetTheme handles PUT /api/workspace/theme.
//
//	@Summary		Replace the open document's theme selection
//	@Tags			workspace
//	@Accept			json
//	@Success		200	{object}	map[string]bool
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/workspace/theme [put]
func (h *Handler) SetTheme(w http.ResponseWriter, r *http.Request) {
	var req ThemeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Theme == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("theme is required"))
		return
	}
	if err := h.ctrl.SetTheme(req.Theme, req.ThemeName); err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("no open document"))
		return
	}
	writeJSON(w, http.StatusOK, successBody())
}

// SaveDocument handles POST /api/workspace/save. It persists immediately,
// ahead of any pending autosave.
//
//	@Summary		Save the open document now
//	@Tags			workspace
//	@Success		200	{object}	map[string]bool
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/workspace/save [post]
func (h *Handler) SaveDocument(w http.ResponseWriter, r *http.Request) {
	doc := h.ctrl.Current()
	if err := h.ctrl.Save(); err != nil {
		if errors.Is(err, workspace.ErrNoDocument) {
			writeJSON(w, http.StatusNotFound, errorBody("no open document"))
		} else {
			slog.Error("save failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("save failed"))
		}
		return
	}
	if doc != nil {
		h.publish("saved", doc.Path)
	}
	writeJSON(w, http.StatusOK, successBody())
}

// RenameDocument handles POST /api/workspace/rename.
//
//	@Summary		Rename the open document
//	@Tags			workspace
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	Document
//	@Failure		404	{object}	errResponse
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/workspace/rename [post]
func (h *Handler) RenameDocument(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	if err := h.ctrl.Rename(req.Name); err != nil {
		switch {
		case errors.Is(err, workspace.ErrNoDocument):
			writeJSON(w, http.StatusNotFound, errorBody("no open document"))
		case errors.Is(err, apperr.ErrConflict):
			writeJSON(w, http.StatusConflict, errorBody("target name already exists"))
		default:
			slog.Error("rename failed", slog.String("name", req.Name), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	doc := h.ctrl.Current()
	h.publish("renamed", doc.Path)
	writeJSON(w, http.StatusOK, doc)
}

// DeleteDocument handles DELETE /api/workspace/current.
//
//	@Summary		Delete the open document
//	@Tags			workspace
//	@Success		204	"Document deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/workspace/current [delete]
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	doc := h.ctrl.Current()
	if err := h.ctrl.Delete(); err != nil {
		if errors.Is(err, workspace.ErrNoDocument) {
			writeJSON(w, http.StatusNotFound, errorBody("no open document"))
		} else {
			slog.Error("delete failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	if doc != nil {
		h.publish("deleted", doc.Path)
	}
	w.WriteHeader(http.StatusNoContent)
}

// StorageStatus handles GET /api/storage.
//
//	@Summary		Describe the active storage backend
//	@Tags			storage
//	@Produce		json
//	@Success		200	{object}	StorageStatus
//	@Security		BearerAuth
//	@Router			/storage [get]
func (h *Handler) StorageStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StorageStatus{
		Adapter:            string(h.mgr.Type()),
		DirectorySupported: h.mgr.DirectorySupported(),
		Dirty:              h.ctrl.Dirty(),
		Saving:             h.ctrl.Saving(),
	})
}

// SelectStorage handles POST /api/storage/select. Switching backends
// resets the open document.
//
//	@Summary		Switch the storage backend
//	@Tags			storage
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SelectStorageRequest	true	"Backend type"
//	@Success		200		{object}	InitResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/storage/select [post]
func (h *Handler) SelectStorage(w http.ResponseWriter, r *http.Request) {
	var req SelectStorageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	t := storage.Type(req.Type)
	if t != storage.TypeDirectory && t != storage.TypeRecordStore {
		writeJSON(w, http.StatusBadRequest, errorBody("unknown storage type"))
		return
	}
	res, err := h.mgr.SetAdapter(r.Context(), t)
	if err != nil {
		if errors.Is(err, apperr.ErrUnavailable) {
			writeJSON(w, http.StatusBadRequest, errorBody("directory workspace is not configured"))
			return
		}
		slog.Error("select storage failed", slog.String("type", req.Type), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	h.ctrl.Reset()
	writeJSON(w, http.StatusOK, InitResponse{Ready: res.Ready, Message: res.Message})
}

// MigrateLayout handles POST /api/storage/migrate. Only the directory
// backend supports layout migration; partial failures report how many
// documents moved so the call can be retried.
//
//	@Summary		Migrate a flat workspace to the folder layout
//	@Tags			storage
//	@Produce		json
//	@Success		200	{object}	MigrateResponse
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/storage/migrate [post]
func (h *Handler) MigrateLayout(w http.ResponseWriter, r *http.Request) {
	dir, ok := h.mgr.Active().(*storage.Dir)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("migration requires the directory backend"))
		return
	}
	res, err := dir.MigrateToFolderMode(r.Context())
	if err != nil {
		var partial *apperr.PartialMigrationError
		if errors.As(err, &partial) {
			writeJSON(w, http.StatusConflict, MigrateResponse{
				Migrated: partial.Completed,
				Message:  err.Error(),
			})
			return
		}
		slog.Error("migrate failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	h.ctrl.Reset()
	writeJSON(w, http.StatusOK, MigrateResponse{Migrated: res.Migrated, Message: res.Message})
}
