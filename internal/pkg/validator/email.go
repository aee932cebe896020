package validator

import (
	"errors"
	"strings"
)

var (
	ErrInvalidEmail = errors.New("invalid email format")
)

// DomainSet is a case-insensitive set of email domains.
type DomainSet map[string]struct{}

func NewDomainSet(domains ...string) DomainSet {
	s := make(DomainSet, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			s[d] = struct{}{}
		}
	}
	return s
}

func (s DomainSet) Contains(domain string) bool {
	if domain == "" {
		return false
	}
	_, ok := s[strings.ToLower(domain)]
	return ok
}

// EmailDomain returns the lowercased part after the last "@", or "" when the
// address has none.
func EmailDomain(email string) string {
	i := strings.LastIndex(email, "@")
	if i < 0 {
		return ""
	}
	return strings.ToLower(email[i+1:])
}

func ValidateEmail(email string) error {
	parts := strings.Split(email, "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return ErrInvalidEmail
	}
	if strings.ContainsAny(email, " \t\r\n") {
		return ErrInvalidEmail
	}
	if !strings.Contains(parts[1], ".") || strings.HasPrefix(parts[1], ".") || strings.HasSuffix(parts[1], ".") {
		return ErrInvalidEmail
	}
	return nil
}
