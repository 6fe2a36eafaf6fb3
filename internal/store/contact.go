package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/contactsbook/apiserver/types"
)

const contactColumns = `id, name, email, phone, favorite, created_at, updated_at`

// ContactRepository handles persistence for contacts in PostgreSQL.
type ContactRepository struct {
	db *sql.DB
}

func NewContactRepository(db *sql.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

func (r *ContactRepository) List(ctx context.Context, filter types.ContactFilter, offset, limit int) ([]types.Contact, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	where := ""
	args := []any{}
	if filter.Favorite != nil {
		where = " WHERE favorite = $1"
		args = append(args, *filter.Favorite)
	}

	countQuery := `SELECT COUNT(1) FROM contacts` + where
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := fmt.Sprintf(`SELECT %s FROM contacts%s ORDER BY created_at, id OFFSET $%d LIMIT $%d`,
		contactColumns, where, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, listQuery, append(args, offset, limit)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	contacts := make([]types.Contact, 0, limit)
	for rows.Next() {
		var contact types.Contact
		if err := rows.Scan(
			&contact.ID,
			&contact.Name,
			&contact.Email,
			&contact.Phone,
			&contact.Favorite,
			&contact.CreatedAt,
			&contact.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		contacts = append(contacts, contact)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return contacts, total, nil
}

func (r *ContactRepository) Get(ctx context.Context, id string) (types.Contact, error) {
	const query = `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1`
	var contact types.Contact
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&contact.ID,
		&contact.Name,
		&contact.Email,
		&contact.Phone,
		&contact.Favorite,
		&contact.CreatedAt,
		&contact.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
			return types.Contact{}, ErrNotFound
		}
		return types.Contact{}, err
	}
	return contact, nil
}

func (r *ContactRepository) Create(ctx context.Context, contact types.Contact) (types.Contact, error) {
	now := time.Now()
	contact.CreatedAt = now
	contact.UpdatedAt = now

	const query = `
		INSERT INTO contacts (name, email, phone, favorite, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		contact.Name,
		contact.Email,
		contact.Phone,
		contact.Favorite,
		contact.CreatedAt,
		contact.UpdatedAt,
	).Scan(&contact.ID); err != nil {
		return types.Contact{}, err
	}
	return contact, nil
}

func (r *ContactRepository) Update(ctx context.Context, contact types.Contact) (types.Contact, error) {
	const query = `
		UPDATE contacts
		SET name = $1,
			email = $2,
			phone = $3,
			favorite = $4,
			updated_at = $5
		WHERE id = $6
		RETURNING ` + contactColumns
	return r.updateOne(ctx, query, contact.Name, contact.Email, contact.Phone, contact.Favorite, time.Now(), contact.ID)
}

func (r *ContactRepository) UpdateFavorite(ctx context.Context, id string, favorite bool) (types.Contact, error) {
	const query = `
		UPDATE contacts
		SET favorite = $1,
			updated_at = $2
		WHERE id = $3
		RETURNING ` + contactColumns
	return r.updateOne(ctx, query, favorite, time.Now(), id)
}

func (r *ContactRepository) updateOne(ctx context.Context, query string, args ...any) (types.Contact, error) {
	var contact types.Contact
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&contact.ID,
		&contact.Name,
		&contact.Email,
		&contact.Phone,
		&contact.Favorite,
		&contact.CreatedAt,
		&contact.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
			return types.Contact{}, ErrNotFound
		}
		return types.Contact{}, err
	}
	return contact, nil
}

func (r *ContactRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM contacts WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
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
