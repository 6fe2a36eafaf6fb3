package services

import (
	"context"
	"strings"

	"github.com/contactsbook/apiserver/types"
)

// ContactRepository defines persistence operations for contacts.
type ContactRepository interface {
	List(ctx context.Context, filter types.ContactFilter, offset, limit int) ([]types.Contact, int, error)
	Get(ctx context.Context, id string) (types.Contact, error)
	Create(ctx context.Context, contact types.Contact) (types.Contact, error)
	Update(ctx context.Context, contact types.Contact) (types.Contact, error)
	UpdateFavorite(ctx context.Context, id string, favorite bool) (types.Contact, error)
	Delete(ctx context.Context, id string) error
}

// ContactInput carries the fields of a create or update request. Nil fields are absent.
type ContactInput struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	Favorite *bool   `json:"favorite"`
}

func (in ContactInput) empty() bool {
	return in.Name == nil && in.Email == nil && in.Phone == nil && in.Favorite == nil
}

// ContactService encapsulates contact use-cases.
type ContactService struct {
	repo ContactRepository
}

func NewContactService(repo ContactRepository) *ContactService {
	return &ContactService{repo: repo}
}

func (s *ContactService) List(ctx context.Context, filter types.ContactFilter, offset, limit int) ([]types.Contact, int, error) {
	return s.repo.List(ctx, filter, offset, limit)
}

func (s *ContactService) Get(ctx context.Context, id string) (types.Contact, error) {
	return s.repo.Get(ctx, id)
}

// Create requires name, email and phone.
func (s *ContactService) Create(ctx context.Context, in ContactInput) (types.Contact, error) {
	for _, field := range []struct {
		name  string
		value *string
	}{
		{"name", in.Name},
		{"email", in.Email},
		{"phone", in.Phone},
	} {
		if field.value == nil || strings.TrimSpace(*field.value) == "" {
			return types.Contact{}, newValidationError(field.name, "missing required "+field.name+" field")
		}
	}

	contact := types.Contact{}
	applyContactInput(&contact, in)
	if err := validateContact(contact); err != nil {
		return types.Contact{}, err
	}
	return s.repo.Create(ctx, contact)
}

// Update merges the present fields of in onto the stored contact.
func (s *ContactService) Update(ctx context.Context, id string, in ContactInput) (types.Contact, error) {
	if in.empty() {
		return types.Contact{}, newValidationError("body", "missing fields")
	}

	contact, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Contact{}, err
	}
	applyContactInput(&contact, in)
	if err := validateContact(contact); err != nil {
		return types.Contact{}, err
	}
	return s.repo.Update(ctx, contact)
}

func (s *ContactService) UpdateFavorite(ctx context.Context, id string, favorite *bool) (types.Contact, error) {
	if favorite == nil {
		return types.Contact{}, newValidationError("favorite", "missing field favorite")
	}
	return s.repo.UpdateFavorite(ctx, id, *favorite)
}

func (s *ContactService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func applyContactInput(contact *types.Contact, in ContactInput) {
	if in.Name != nil {
		contact.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		contact.Email = strings.TrimSpace(*in.Email)
	}
	if in.Phone != nil {
		contact.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Favorite != nil {
		contact.Favorite = *in.Favorite
	}
}

func validateContact(contact types.Contact) error {
	if contact.Name == "" {
		return newValidationError("name", `"name" is not allowed to be empty`)
	}
	if contact.Email != "" && !isValidEmail(contact.Email) {
		return newValidationError("email", `"email" must be a valid email`)
	}
	if contact.Phone == "" {
		return newValidationError("phone", `"phone" is not allowed to be empty`)
	}
	return nil
}
