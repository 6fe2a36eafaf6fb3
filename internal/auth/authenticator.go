package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/contactsbook/apiserver/internal/store"
	"github.com/contactsbook/apiserver/types"
)

// ErrUnauthorized is returned for every rejected credential or token.
var ErrUnauthorized = errors.New("Not authorized")

// UserFinder loads users by id.
type UserFinder interface {
	GetByID(ctx context.Context, id string) (types.User, error)
}

// Authenticator accepts a bearer token only while it is cryptographically valid
// and still equal to the token stored on the user record. Clearing or replacing
// the stored token revokes it before expiry.
type Authenticator struct {
	tokens *TokenIssuer
	users  UserFinder
}

func NewAuthenticator(tokens *TokenIssuer, users UserFinder) *Authenticator {
	return &Authenticator{tokens: tokens, users: users}
}

// Authenticate resolves the user owning tokenString.
func (a *Authenticator) Authenticate(ctx context.Context, tokenString string) (types.User, error) {
	subject, err := a.tokens.Subject(tokenString)
	if err != nil {
		return types.User{}, ErrUnauthorized
	}

	user, err := a.users.GetByID(ctx, subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrUnauthorized
		}
		return types.User{}, err
	}

	if user.Token == nil || subtle.ConstantTimeCompare([]byte(*user.Token), []byte(tokenString)) != 1 {
		return types.User{}, ErrUnauthorized
	}
	return user, nil
}

// AuthenticateRequest extracts the bearer token from r and authenticates it.
func (a *Authenticator) AuthenticateRequest(r *http.Request) (types.User, string, error) {
	tokenString, err := BearerToken(r)
	if err != nil {
		return types.User{}, "", ErrUnauthorized
	}
	user, err := a.Authenticate(r.Context(), tokenString)
	if err != nil {
		return types.User{}, "", err
	}
	return user, tokenString, nil
}

// BearerToken returns the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
