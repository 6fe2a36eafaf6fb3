package types

import "time"

// Contact is an address book entry.
type Contact struct {
	// ID is the unique identifier of the contact, assigned by the store.
	ID string `json:"id" db:"id"`

	// Name is the display name of the contact.
	Name string `json:"name" db:"name"`

	// Email is the contact's email address.
	Email string `json:"email" db:"email"`

	// Phone is the contact's phone number, stored as entered.
	Phone string `json:"phone" db:"phone"`

	// Favorite marks contacts pinned by the user.
	Favorite bool `json:"favorite" db:"favorite"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// ContactFilter narrows contact listings.
type ContactFilter struct {
	// Favorite, when set, restricts the listing to contacts with that flag.
	Favorite *bool
}
