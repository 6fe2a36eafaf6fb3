package services

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"

	"github.com/contactsbook/apiserver/internal/auth"
	"github.com/contactsbook/apiserver/internal/store"
	"github.com/contactsbook/apiserver/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const gravatarBaseURL = "//www.gravatar.com/avatar/"

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	GetByVerificationToken(ctx context.Context, token string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	UpdateToken(ctx context.Context, id string, token *string) error
	UpdateAvatar(ctx context.Context, id, avatarURL string) error
	UpdateSubscription(ctx context.Context, id, subscription string) error
	MarkVerified(ctx context.Context, id string) error
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token string        `json:"token"`
	User  types.Profile `json:"user"`
}

// UserService encapsulates account use-cases.
type UserService struct {
	repo   UserRepository
	hasher *auth.PasswordHasher
	tokens *auth.TokenIssuer
	events *VerificationEvents
	logger *zap.Logger
}

func NewUserService(
	repo UserRepository,
	hasher *auth.PasswordHasher,
	tokens *auth.TokenIssuer,
	events *VerificationEvents,
	logger *zap.Logger,
) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		repo:   repo,
		hasher: hasher,
		tokens: tokens,
		events: events,
		logger: logger,
	}
}

// Signup registers a new unverified account. No session token is issued.
func (s *UserService) Signup(ctx context.Context, email, password string) (types.PublicUser, error) {
	email = normalizeEmail(email)
	if err := validateCredentials(email, password); err != nil {
		return types.PublicUser{}, err
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return types.PublicUser{}, ErrEmailInUse
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.PublicUser{}, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return types.PublicUser{}, err
	}

	verificationToken := uuid.NewString()
	user, err := s.repo.Create(ctx, types.User{
		Email:             email,
		PasswordHash:      hash,
		Subscription:      types.SubscriptionStarter,
		AvatarURL:         gravatarURL(email),
		VerificationToken: &verificationToken,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return types.PublicUser{}, ErrEmailInUse
		}
		return types.PublicUser{}, err
	}

	if err := s.events.Publish(ctx, user.Email, verificationToken); err != nil {
		s.logger.Warn("publish verification event failed",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
	}
	return user.Public(), nil
}

// Login checks credentials and stores a fresh token, replacing any previous session.
func (s *UserService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = normalizeEmail(email)
	if err := validateCredentials(email, password); err != nil {
		return LoginResult{}, err
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	ok, err := s.hasher.Compare(user.PasswordHash, password)
	if err != nil {
		return LoginResult{}, err
	}
	if !ok {
		return LoginResult{}, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return LoginResult{}, err
	}
	if err := s.repo.UpdateToken(ctx, user.ID, &token); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	return LoginResult{Token: token, User: user.Profile()}, nil
}

// Logout clears the stored token so the presented one stops authenticating.
func (s *UserService) Logout(ctx context.Context, userID string) error {
	if err := s.repo.UpdateToken(ctx, userID, nil); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotAuthorized
		}
		return err
	}
	return nil
}

// Current returns the profile of the authenticated user.
func (s *UserService) Current(ctx context.Context, userID string) (types.Profile, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Profile{}, ErrNotAuthorized
		}
		return types.Profile{}, err
	}
	return user.Profile(), nil
}

func (s *UserService) UpdateSubscription(ctx context.Context, userID, subscription string) (types.Profile, error) {
	switch subscription {
	case types.SubscriptionStarter, types.SubscriptionPro, types.SubscriptionBusiness:
	case "":
		return types.Profile{}, newValidationError("subscription", `"subscription" is required`)
	default:
		return types.Profile{}, newValidationError("subscription", `"subscription" must be one of [starter, pro, business]`)
	}

	if err := s.repo.UpdateSubscription(ctx, userID, subscription); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Profile{}, ErrNotAuthorized
		}
		return types.Profile{}, err
	}
	return s.Current(ctx, userID)
}

// Verify confirms the email owning token. Unknown tokens return store.ErrNotFound.
func (s *UserService) Verify(ctx context.Context, token string) error {
	if token == "" {
		return store.ErrNotFound
	}
	user, err := s.repo.GetByVerificationToken(ctx, token)
	if err != nil {
		return err
	}
	return s.repo.MarkVerified(ctx, user.ID)
}

// ResendVerification publishes the verification event again for an unverified account.
func (s *UserService) ResendVerification(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return newValidationError("email", "missing required field email")
	}
	if err := validateEmail(email); err != nil {
		return err
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.Verify || user.VerificationToken == nil {
		return ErrAlreadyVerified
	}
	return s.events.Publish(ctx, user.Email, *user.VerificationToken)
}

func gravatarURL(email string) string {
	sum := md5.Sum([]byte(normalizeEmail(email)))
	return gravatarBaseURL + hex.EncodeToString(sum[:])
}
