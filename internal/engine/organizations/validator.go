package organizations

import (
	"errors"
	"net/url"
	"strings"

	"muralhub/internal/pkg/slug"
	"muralhub/internal/pkg/validator"
	"muralhub/internal/platform/models"
)

const minPasswordLength = 8

func ValidateSignup(in *SignupInput) error {
	if strings.TrimSpace(in.OrganizationName) == "" || slug.Slugify(in.OrganizationName) == "" {
		return errors.New("organization_name is required")
	}
	if err := validator.ValidateEmail(in.Email); err != nil {
		return errors.New("email is invalid")
	}
	if len(in.Password) < minPasswordLength {
		return errors.New("password must be at least 8 characters")
	}
	return ValidateLinks(models.OrganizationLinks{Email: in.ContactEmail, Website: in.Website})
}

// ValidateLinks accepts empty fields; set fields must be a valid address and
// an absolute http(s) URL.
func ValidateLinks(links models.OrganizationLinks) error {
	if links.Email != "" {
		if err := validator.ValidateEmail(links.Email); err != nil {
			return errors.New("links.email is invalid")
		}
	}

	if links.Website != "" {
		u, err := url.Parse(links.Website)
		if err != nil || u.Host == "" {
			return errors.New("invalid links.website format")
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return errors.New("links.website must start with http:// or https://")
		}
	}

	return nil
}
