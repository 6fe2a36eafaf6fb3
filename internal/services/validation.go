package services

import (
	"regexp"
	"strings"
)

const maxEmailLength = 254

var (
	passwordPattern   = regexp.MustCompile(`^[a-zA-Z0-9]{3,30}$`)
	emailLocalPattern = regexp.MustCompile("^[A-Za-z0-9!#$%&'*+/=?^_`{|}~-]+(\\.[A-Za-z0-9!#$%&'*+/=?^_`{|}~-]+)*$")
	domainLabel       = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9-]{0,61}[A-Za-z0-9])?$`)
	tldPattern        = regexp.MustCompile(`^([A-Za-z]{2,63}|xn--[A-Za-z0-9-]{1,59})$`)
)

// validateCredentials checks email first, then password, and reports the first failure.
func validateCredentials(email, password string) error {
	if err := validateEmail(email); err != nil {
		return err
	}
	if password == "" {
		return newValidationError("password", `"password" is required`)
	}
	if !passwordPattern.MatchString(password) {
		return newValidationError("password", `"password" fails to match the required pattern: /^[a-zA-Z0-9]{3,30}$/`)
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return newValidationError("email", `"email" is required`)
	}
	if !isValidEmail(email) {
		return newValidationError("email", `"email" must be a valid email`)
	}
	return nil
}

// isValidEmail accepts dot-atom local parts and domains of at least two labels
// ending in an alphabetic or punycode TLD.
func isValidEmail(email string) bool {
	if len(email) > maxEmailLength {
		return false
	}
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	local, domain := email[:at], email[at+1:]
	if len(local) > 64 || !emailLocalPattern.MatchString(local) {
		return false
	}

	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if !domainLabel.MatchString(label) {
			return false
		}
	}
	return tldPattern.MatchString(labels[len(labels)-1])
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
