package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/contactsbook/apiserver/types"
	"github.com/lib/pq"
)

const (
	pqUniqueViolation = "23505"
	pqInvalidTextRepr = "22P02"
	userColumns       = `id, email, password_hash, token, subscription, avatar_url, verify, verification_token, created_at, updated_at`
)

// UserRepository handles persistence for users in PostgreSQL.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.getOne(ctx, query, email)
}

func (r *UserRepository) GetByVerificationToken(ctx context.Context, token string) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE verification_token = $1`
	return r.getOne(ctx, query, token)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (types.User, error) {
	var user types.User
	var token, verificationToken sql.NullString
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&token,
		&user.Subscription,
		&user.AvatarURL,
		&user.Verify,
		&verificationToken,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	user.Token = fromNullString(token)
	user.VerificationToken = fromNullString(verificationToken)
	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	const query = `
		INSERT INTO users (email, password_hash, token, subscription, avatar_url, verify, verification_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		user.Email,
		user.PasswordHash,
		toNullString(user.Token),
		user.Subscription,
		user.AvatarURL,
		user.Verify,
		toNullString(user.VerificationToken),
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID); err != nil {
		if isUniqueViolation(err) {
			return types.User{}, ErrDuplicate
		}
		return types.User{}, err
	}
	return user, nil
}

// UpdateToken sets or, with a nil token, clears the session token of a user.
func (r *UserRepository) UpdateToken(ctx context.Context, id string, token *string) error {
	const query = `UPDATE users SET token = $1, updated_at = $2 WHERE id = $3`
	return r.exec(ctx, query, toNullString(token), time.Now(), id)
}

func (r *UserRepository) UpdateAvatar(ctx context.Context, id, avatarURL string) error {
	const query = `UPDATE users SET avatar_url = $1, updated_at = $2 WHERE id = $3`
	return r.exec(ctx, query, avatarURL, time.Now(), id)
}

func (r *UserRepository) UpdateSubscription(ctx context.Context, id, subscription string) error {
	const query = `UPDATE users SET subscription = $1, updated_at = $2 WHERE id = $3`
	return r.exec(ctx, query, subscription, time.Now(), id)
}

// MarkVerified flags the user's email as confirmed and drops the verification token.
func (r *UserRepository) MarkVerified(ctx context.Context, id string) error {
	const query = `UPDATE users SET verify = TRUE, verification_token = NULL, updated_at = $1 WHERE id = $2`
	return r.exec(ctx, query, time.Now(), id)
}

func (r *UserRepository) exec(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isInvalidID(err) {
			return ErrNotFound
		}
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func toNullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func fromNullString(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

// isInvalidID reports a malformed uuid literal, which can never match a row.
func isInvalidID(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqInvalidTextRepr
}
