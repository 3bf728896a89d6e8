package api

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/starford/inkwell/internal/storage"
	"github.com/starford/inkwell/internal/workspace"
)

const (
	assetDir       = "images"
	maxUploadBytes = 50 << 20 // 50 MB
)

// AssetHandler accepts and serves image uploads for the open document.
// Assets only exist on the directory backend, stored in an images
// directory next to the article they belong to.
type AssetHandler struct {
	root string
	ctrl *workspace.Controller
	mgr  *storage.Manager
}

// NewAssetHandler creates a handler rooted at the workspace directory.
func NewAssetHandler(root string, ctrl *workspace.Controller, mgr *storage.Manager) *AssetHandler {
	return &AssetHandler{root: root, ctrl: ctrl, mgr: mgr}
}

// assetPath resolves the images directory for the open document: next to
// the article file in folder layout, at the workspace root in flat layout.
func (h *AssetHandler) assetPath() (string, error) {
	if h.mgr.Type() != storage.TypeDirectory {
		return "", fmt.Errorf("assets require the directory backend")
	}
	doc := h.ctrl.Current()
	if doc == nil {
		return "", fmt.Errorf("no open document")
	}
	if doc.IsFolder {
		folder := doc.Path
		if i := strings.IndexByte(folder, '/'); i >= 0 {
			folder = folder[:i]
		}
		return filepath.Join(h.root, folder, assetDir), nil
	}
	return filepath.Join(h.root, assetDir), nil
}

// safeName validates that the filename is a plain name (no path separators,
// no traversal) and returns the absolute path under the images dir.
func (h *AssetHandler) safeName(base, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("filename is required")
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("invalid filename: %s", name)
	}
	abs := filepath.Join(base, cleaned)
	if !strings.HasPrefix(abs, base+string(os.PathSeparator)) && abs != base {
		return "", fmt.Errorf("path escapes images directory")
	}
	return abs, nil
}

// ServeFile handles GET /assets/{filename} for the open document.
func (h *AssetHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	base, err := h.assetPath()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	abs, err := h.safeName(base, chi.URLParam(r, "filename"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, statErr := os.Stat(abs); os.IsNotExist(statErr) {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, abs)
}

// Upload handles POST /api/assets (multipart/form-data, field "file").
func (h *AssetHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	base, err := h.assetPath()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	abs, err := h.safeName(base, header.Filename)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	if err := os.MkdirAll(base, 0o755); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to create images dir"))
		return
	}

	dst, err := os.Create(abs)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to create file"))
		return
	}
	defer dst.Close()

	written, err := io.Copy(dst, file)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to write file"))
		return
	}

	writeJSON(w, http.StatusCreated, AssetUploadResponse{
		Filename: header.Filename,
		Size:     written,
		URL:      assetDir + "/" + header.Filename,
	})
}
