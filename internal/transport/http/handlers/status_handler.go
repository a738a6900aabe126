package handlers

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/Leothelion6721/Whatsapp-attachments/internal/service"
)

// StatusHandler serves the read-only aggregate counters plus the upload
// feature flag.
type StatusHandler struct {
	svc            *service.ChatService
	uploadsEnabled bool
}

func NewStatusHandler(svc *service.ChatService, uploadsEnabled bool) *StatusHandler {
	return &StatusHandler{svc: svc, uploadsEnabled: uploadsEnabled}
}

func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("status: stats error")
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"users":           stats.Users,
		"chats":           stats.Chats,
		"messages":        stats.Messages,
		"uploads_enabled": h.uploadsEnabled,
	})
}
