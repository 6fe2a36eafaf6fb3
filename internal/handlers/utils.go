package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/contactsbook/apiserver/internal/services"
	"github.com/contactsbook/apiserver/internal/store"
	"github.com/contactsbook/apiserver/types"
	"go.uber.org/zap"
)

const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100
)

type contextKey string

const contextUserKey contextKey = "user"

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Message string `json:"message"`
}

// MessageResponse is a plain acknowledgement payload.
type MessageResponse struct {
	Message string `json:"message"`
}

func withUser(ctx context.Context, user types.User) context.Context {
	return context.WithValue(ctx, contextUserKey, user)
}

func userFromContext(ctx context.Context) (types.User, error) {
	user, ok := ctx.Value(contextUserKey).(types.User)
	if !ok || user.ID == "" {
		return types.User{}, errors.New("missing user")
	}
	return user, nil
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Message: message})
}

// writeServiceError maps service errors to status codes. Unknown errors are
// logged and reported as 500 without detail.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error, notFound string) {
	var vErr *services.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, vErr.Message)
	case errors.Is(err, services.ErrEmailInUse):
		writeError(w, http.StatusConflict, "Email in use")
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Email or password is wrong")
	case errors.Is(err, services.ErrNotAuthorized):
		writeError(w, http.StatusUnauthorized, "Not authorized")
	case errors.Is(err, services.ErrAlreadyVerified):
		writeError(w, http.StatusBadRequest, "Verification has already been passed")
	case errors.Is(err, store.ErrNotFound) && notFound != "":
		writeError(w, http.StatusNotFound, notFound)
	default:
		logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("invalid request")
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.New("invalid request")
	}
	return nil
}

func parsePagination(r *http.Request) (page, limit, offset int, err error) {
	page = defaultPage
	limit = defaultLimit

	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			return 0, 0, 0, errors.New("invalid page")
		}
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return 0, 0, 0, errors.New("invalid limit")
		}
	}

	if limit > maxLimit {
		limit = maxLimit
	}
	// Keeps offset within 32 bits for every store backend.
	if page-1 > math.MaxInt32/limit {
		return 0, 0, 0, errors.New("invalid page")
	}

	offset = (page - 1) * limit
	return page, limit, offset, nil
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MessageResponse{Message: "ok"})
}
