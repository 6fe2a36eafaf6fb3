package handlers

import (
	"errors"
	"net/http"

	"github.com/contactsbook/apiserver/internal/auth"
	"github.com/contactsbook/apiserver/internal/services"
	"github.com/contactsbook/apiserver/types"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	maxAvatarBytes   = 8 << 20
	formFieldAvatar  = "avatar"
	notFoundUserText = "User not found"
)

// UserHandler provides account endpoints.
type UserHandler struct {
	userService   *services.UserService
	avatarService *services.AvatarService
	logger        *zap.Logger
}

// NewUserHandler constructs a UserHandler with the provided dependencies.
func NewUserHandler(userService *services.UserService, avatarService *services.AvatarService, logger *zap.Logger) *UserHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserHandler{
		userService:   userService,
		avatarService: avatarService,
		logger:        logger,
	}
}

// UserRouter registers account routes on the given router.
func UserRouter(
	r chi.Router,
	userService *services.UserService,
	avatarService *services.AvatarService,
	authMiddleware func(http.Handler) http.Handler,
	logger *zap.Logger,
) {
	handler := NewUserHandler(userService, avatarService, logger)

	r.Post("/signup", handler.Signup)
	r.Post("/login", handler.Login)
	r.Get("/verify/{verificationToken}", handler.Verify)
	r.Post("/verify", handler.ResendVerification)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/logout", handler.Logout)
		r.Get("/current", handler.Current)
		r.Patch("/", handler.UpdateSubscription)
		r.Patch("/avatars", handler.UpdateAvatar)
	})
}

// RequireAuth admits requests whose bearer token matches the user's stored
// session and injects that user into the request context.
func RequireAuth(authn *auth.Authenticator, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, _, err := authn.AuthenticateRequest(r)
			if err != nil {
				if errors.Is(err, auth.ErrUnauthorized) {
					writeError(w, http.StatusUnauthorized, "Not authorized")
					return
				}
				logger.Error("authenticate request", zap.Error(err))
				writeError(w, http.StatusInternalServerError, "Internal server error")
				return
			}
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
		})
	}
}

func (h *UserHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userService.Signup(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, h.logger, err, "")
		return
	}

	writeJSON(w, http.StatusCreated, SignupResponse{User: user})
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, h.logger, err, "")
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	if err := h.userService.Logout(r.Context(), user.ID); err != nil {
		writeServiceError(w, h.logger, err, "")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) Current(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	profile, err := h.userService.Current(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, h.logger, err, "")
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

func (h *UserHandler) UpdateSubscription(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	var req SubscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := h.userService.UpdateSubscription(r.Context(), user.ID, req.Subscription)
	if err != nil {
		writeServiceError(w, h.logger, err, "")
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

func (h *UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	upload, cleanup, err := parseAvatarUpload(w, r)
	defer cleanup()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	avatarURL, err := h.avatarService.Upload(r.Context(), &user, upload)
	if err != nil {
		writeServiceError(w, h.logger, err, "")
		return
	}

	writeJSON(w, http.StatusOK, AvatarResponse{AvatarURL: avatarURL})
}

func (h *UserHandler) Verify(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "verificationToken")
	if err := h.userService.Verify(r.Context(), token); err != nil {
		writeServiceError(w, h.logger, err, notFoundUserText)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Verification successful"})
}

func (h *UserHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req ResendVerificationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "missing required field email")
		return
	}

	if err := h.userService.ResendVerification(r.Context(), req.Email); err != nil {
		writeServiceError(w, h.logger, err, notFoundUserText)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Verification email sent"})
}

// parseAvatarUpload returns a nil upload when the request carries no file.
func parseAvatarUpload(w http.ResponseWriter, r *http.Request) (*services.AvatarUpload, func(), error) {
	noop := func() {}

	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarBytes)
	if err := r.ParseMultipartForm(maxAvatarBytes); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, noop, nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, noop, errors.New("file too large")
		}
		return nil, noop, errors.New("invalid multipart form")
	}

	removeForm := func() { _ = r.MultipartForm.RemoveAll() }

	file, header, err := r.FormFile(formFieldAvatar)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, removeForm, nil
		}
		return nil, removeForm, errors.New("invalid avatar file")
	}

	upload := &services.AvatarUpload{
		Filename: header.Filename,
		File:     file,
	}
	return upload, func() {
		_ = file.Close()
		removeForm()
	}, nil
}

type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SubscriptionRequest struct {
	Subscription string `json:"subscription"`
}

type ResendVerificationRequest struct {
	Email string `json:"email"`
}

type SignupResponse struct {
	User types.PublicUser `json:"user"`
}

type AvatarResponse struct {
	AvatarURL string `json:"avatarURL"`
}
