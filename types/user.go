package types

import "time"

// Subscription plans a user can be on.
const (
	SubscriptionStarter  = "starter"
	SubscriptionPro      = "pro"
	SubscriptionBusiness = "business"
)

// User represents an account in the system.
// It contains credentials, session state and profile metadata.
type User struct {
	// ID is the unique identifier of the user, assigned by the store.
	ID string `json:"id" db:"id"`

	// Email is the user's login and contact address. Unique across users.
	Email string `json:"email" db:"email"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// Token is the most recently issued session token, or nil after logout.
	// A token presented by a client is only accepted while it equals this value.
	Token *string `json:"-" db:"token"`

	// Subscription is the plan tag of the user.
	Subscription string `json:"subscription" db:"subscription"`

	// AvatarURL points at the user's profile image.
	AvatarURL string `json:"avatarURL" db:"avatar_url"`

	// Verify reports whether the email address has been confirmed.
	Verify bool `json:"verify" db:"verify"`

	// VerificationToken is the one-time token mailed to confirm the address.
	// It is cleared once the address is verified.
	VerificationToken *string `json:"-" db:"verification_token"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// PublicUser is the client-facing projection of a User.
type PublicUser struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Subscription string    `json:"subscription"`
	AvatarURL    string    `json:"avatarURL"`
	Verify       bool      `json:"verify"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Public returns the projection of u that is safe to send to clients.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:           u.ID,
		Email:        u.Email,
		Subscription: u.Subscription,
		AvatarURL:    u.AvatarURL,
		Verify:       u.Verify,
		CreatedAt:    u.CreatedAt,
	}
}

// Profile is the minimal user view returned by login and current-user lookups.
type Profile struct {
	Email        string `json:"email"`
	Subscription string `json:"subscription"`
}

// Profile returns the email/subscription view of u.
func (u User) Profile() Profile {
	return Profile{Email: u.Email, Subscription: u.Subscription}
}
