package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/contactsbook/apiserver/internal/services"
	"github.com/contactsbook/apiserver/types"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const notFoundContactText = "Not found"

// ContactHandler provides HTTP handlers for contacts.
type ContactHandler struct {
	contactService *services.ContactService
	logger         *zap.Logger
}

// NewContactHandler constructs a handler with the provided service.
func NewContactHandler(contactService *services.ContactService, logger *zap.Logger) *ContactHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContactHandler{contactService: contactService, logger: logger}
}

// ContactRouter registers contact routes on the given router. Every route
// requires authentication.
func ContactRouter(
	r chi.Router,
	contactService *services.ContactService,
	authMiddleware func(http.Handler) http.Handler,
	logger *zap.Logger,
) {
	handler := NewContactHandler(contactService, logger)

	r.Use(authMiddleware)
	r.Get("/", handler.ListContacts)
	r.Post("/", handler.CreateContact)
	r.Route("/{contactID}", func(r chi.Router) {
		r.Get("/", handler.GetContact)
		r.Put("/", handler.UpdateContact)
		r.Delete("/", handler.DeleteContact)
		r.Patch("/favorite", handler.UpdateFavorite)
	})
}

func (h *ContactHandler) ListContacts(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter, err := parseContactFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, total, err := h.contactService.List(r.Context(), filter, offset, limit)
	if err != nil {
		writeServiceError(w, h.logger, err, "")
		return
	}

	writeJSON(w, http.StatusOK, ContactListResponse{
		Items: items,
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

func (h *ContactHandler) GetContact(w http.ResponseWriter, r *http.Request) {
	contact, err := h.contactService.Get(r.Context(), chi.URLParam(r, "contactID"))
	if err != nil {
		writeServiceError(w, h.logger, err, notFoundContactText)
		return
	}

	writeJSON(w, http.StatusOK, contact)
}

func (h *ContactHandler) CreateContact(w http.ResponseWriter, r *http.Request) {
	var req services.ContactInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.contactService.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, err, "")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *ContactHandler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	var req services.ContactInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "missing fields")
		return
	}

	updated, err := h.contactService.Update(r.Context(), chi.URLParam(r, "contactID"), req)
	if err != nil {
		writeServiceError(w, h.logger, err, notFoundContactText)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *ContactHandler) UpdateFavorite(w http.ResponseWriter, r *http.Request) {
	var req FavoriteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "missing field favorite")
		return
	}

	updated, err := h.contactService.UpdateFavorite(r.Context(), chi.URLParam(r, "contactID"), req.Favorite)
	if err != nil {
		writeServiceError(w, h.logger, err, notFoundContactText)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *ContactHandler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	if err := h.contactService.Delete(r.Context(), chi.URLParam(r, "contactID")); err != nil {
		writeServiceError(w, h.logger, err, notFoundContactText)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "contact deleted"})
}

func parseContactFilter(r *http.Request) (types.ContactFilter, error) {
	var filter types.ContactFilter
	if raw := strings.TrimSpace(r.URL.Query().Get("favorite")); raw != "" {
		favorite, err := strconv.ParseBool(raw)
		if err != nil {
			return types.ContactFilter{}, errors.New("invalid favorite")
		}
		filter.Favorite = &favorite
	}
	return filter, nil
}

// ContactListResponse is the paginated list response payload.
type ContactListResponse struct {
	Items []types.Contact `json:"items"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
	Total int             `json:"total"`
}

type FavoriteRequest struct {
	Favorite *bool `json:"favorite"`
}
