package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/inkwell/internal/storage"
	"github.com/starford/inkwell/internal/workspace"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// workspaceRoot resolves the per-document images directory for assets.
func NewRouter(ctrl *workspace.Controller, mgr *storage.Manager, events Publisher, authEnabled bool, token string, sseHandler http.Handler, workspaceRoot string) chi.Router {
	h := NewHandler(ctrl, mgr, events)
	ah := NewAssetHandler(workspaceRoot, ctrl, mgr)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Workspace listing and document lifecycle.
	r.Get("/workspace/files", h.ListFiles)
	r.Post("/workspace/open", h.OpenDocument)
	r.Post("/workspace/create", h.CreateArticle)
	r.Get("/workspace/current", h.CurrentDocument)
	r.Delete("/workspace/current", h.DeleteDocument)
	r.Post("/workspace/save", h.SaveDocument)
	r.Post("/workspace/rename", h.RenameDocument)

	// Edits to the open document.
	r.Put("/workspace/body", h.SetBody)
	r.Put("/workspace/theme", h.SetTheme)

	// Storage backend control.
	r.Get("/storage", h.StorageStatus)
	r.Post("/storage/select", h.SelectStorage)
	r.Post("/storage/migrate", h.MigrateLayout)

	// Asset upload and retrieval for the open document.
	r.Post("/assets", ah.Upload)
	r.Get("/assets/{filename}", ah.ServeFile)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
