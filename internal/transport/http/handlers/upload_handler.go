package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"

	"github.com/Leothelion6721/Whatsapp-attachments/internal/observability"
	"github.com/Leothelion6721/Whatsapp-attachments/internal/storage"
	"github.com/Leothelion6721/Whatsapp-attachments/internal/transport/http/middleware"
)

// allowedExts is the upload extension allow-list: images, pdf, doc/docx,
// txt, zip, mp4, mp3, webm.
var allowedExts = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".webp": {},
	".pdf": {}, ".doc": {}, ".docx": {}, ".txt": {}, ".zip": {},
	".mp4": {}, ".mp3": {}, ".webm": {},
}

// allowedMimes is checked against the sniffed content type, not the
// client-declared one.
var allowedMimes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"text/plain",
	"application/zip",
	"video/mp4",
	"audio/mpeg",
	"video/webm",
	"audio/webm",
}

// UploadHandler is the one-shot upload endpoint. It stores bytes and hands
// the attachment descriptor back to the caller only; linking the descriptor
// to a chat happens over the WebSocket with a follow-up sendMessage. It
// never touches the chat registries, so uploads run entirely outside the
// router's lock.
type UploadHandler struct {
	store    *storage.DiskStore
	maxBytes int64
	enabled  bool
}

func NewUploadHandler(store *storage.DiskStore, maxBytes int64, enabled bool) *UploadHandler {
	return &UploadHandler{store: store, maxBytes: maxBytes, enabled: enabled}
}

func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if !h.enabled {
		observability.Uploads.WithLabelValues("disabled").Inc()
		writeError(w, http.StatusServiceUnavailable, "UPLOADS_DISABLED", "Uploads are disabled")
		return
	}

	userID := middleware.GetUserID(r.Context())

	// Some slack over the ceiling for the multipart framing itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+64*1024)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			observability.Uploads.WithLabelValues("too_large").Inc()
			writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "File exceeds the upload size limit")
			return
		}
		writeError(w, http.StatusBadRequest, "INVALID_UPLOAD", "Multipart field 'file' is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			observability.Uploads.WithLabelValues("too_large").Inc()
			writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "File exceeds the upload size limit")
			return
		}
		observability.Uploads.WithLabelValues("storage_failure").Inc()
		writeError(w, http.StatusInternalServerError, "STORAGE_FAILURE", "Could not read upload")
		return
	}
	if int64(len(data)) > h.maxBytes {
		observability.Uploads.WithLabelValues("too_large").Inc()
		writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "File exceeds the upload size limit")
		return
	}

	detected := mimetype.Detect(data)
	if !extAllowed(header.Filename) || !mimeAllowed(detected) {
		observability.Uploads.WithLabelValues("unsupported_type").Inc()
		writeError(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "File type is not allowed")
		return
	}

	attachment, err := h.store.Save(header.Filename, detected.String(), bytes.NewReader(data))
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("upload: storage failure")
		observability.Uploads.WithLabelValues("storage_failure").Inc()
		writeError(w, http.StatusInternalServerError, "STORAGE_FAILURE", "Could not store upload")
		return
	}

	observability.Uploads.WithLabelValues("ok").Inc()
	log.Info().
		Str("user_id", userID.String()).
		Str("file_name", attachment.FileName).
		Int64("size", attachment.Size).
		Msg("attachment stored")

	writeJSON(w, http.StatusCreated, map[string]any{
		"attachment": attachment,
		"chat_id":    r.FormValue("chat_id"),
	})
}

func extAllowed(name string) bool {
	_, ok := allowedExts[strings.ToLower(filepath.Ext(name))]
	return ok
}

func mimeAllowed(m *mimetype.MIME) bool {
	if strings.HasPrefix(m.String(), "image/") {
		return true
	}
	for _, allowed := range allowedMimes {
		if m.Is(allowed) {
			return true
		}
	}
	return false
}
