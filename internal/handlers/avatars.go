package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/contactsbook/apiserver/internal/services"
	"github.com/contactsbook/apiserver/internal/storage"
	"github.com/contactsbook/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AvatarHandler serves stored avatar images.
type AvatarHandler struct {
	avatarService *services.AvatarService
	logger        *zap.Logger
}

// AvatarRouter registers the public avatar route on the given router.
func AvatarRouter(r chi.Router, avatarService *services.AvatarService, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	handler := &AvatarHandler{avatarService: avatarService, logger: logger}

	r.Get("/{name}", handler.GetAvatar)
}

func (h *AvatarHandler) GetAvatar(w http.ResponseWriter, r *http.Request) {
	rc, contentType, err := h.avatarService.Open(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, storage.ErrObjectNotFound) {
			writeError(w, http.StatusNotFound, "Not found")
			return
		}
		h.logger.Error("open avatar", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'none'")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("stream avatar", zap.Error(err))
	}
}
