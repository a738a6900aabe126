package handlers

import (
	"errors"
	"net/http"

	"github.com/Leothelion6721/Whatsapp-attachments/internal/storage"
)

// FilesHandler serves stored attachment bytes back by generated file name.
type FilesHandler struct {
	store *storage.DiskStore
}

func NewFilesHandler(store *storage.DiskStore) *FilesHandler {
	return &FilesHandler{store: store}
}

func (h *FilesHandler) Get(w http.ResponseWriter, r *http.Request) {
	path, err := h.store.Path(r.PathValue("filename"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "File not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}
	http.ServeFile(w, r, path)
}
