package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"a@b.com", true},
		{"first.last+tag@mail.example.org", true},
		{"user@xn--80ak6aa92e.com", true},
		{"user@localhost", false},
		{"user@example.c0m", false},
		{"@example.com", false},
		{"user@", false},
		{"user@@example.com", false},
		{"us..er@example.com", false},
		{"user@-example.com", false},
		{"user@exa_mple.com", false},
		{"user name@example.com", false},
		{strings.Repeat("a", 250) + "@b.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.want, isValidEmail(tt.email))
		})
	}
}

func TestValidateCredentials(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		field    string
		message  string
	}{
		{"missing email", "", "abc", "email", `"email" is required`},
		{"bad email checked first", "nope", "x", "email", `"email" must be a valid email`},
		{"missing password", "a@b.com", "", "password", `"password" is required`},
		{"short password", "a@b.com", "ab", "password", `"password" fails to match the required pattern: /^[a-zA-Z0-9]{3,30}$/`},
		{"symbol in password", "a@b.com", "abc!", "password", `"password" fails to match the required pattern: /^[a-zA-Z0-9]{3,30}$/`},
		{"long password", "a@b.com", strings.Repeat("a", 31), "password", `"password" fails to match the required pattern: /^[a-zA-Z0-9]{3,30}$/`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateCredentials(tt.email, tt.password)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
			assert.Equal(t, tt.message, vErr.Message)
		})
	}

	assert.NoError(t, validateCredentials("a@b.com", "abc"))
	assert.NoError(t, validateCredentials("a@b.com", strings.Repeat("Z9", 15)))
}
