package models

import "strings"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// OrganizationLinks holds the public contact points of an organizer. Email
// and Website double as ownership evidence when someone claims the record.
type OrganizationLinks struct {
	Email   string `json:"email,omitempty" yaml:"email"`
	Website string `json:"website,omitempty" yaml:"website"`
}

type Organization struct {
	ID         string            `json:"id"`
	Slug       string            `json:"slug"`
	Name       string            `json:"name"`
	OwnerID    string            `json:"owner_id"`
	Links      OrganizationLinks `json:"links"`
	IsComplete bool              `json:"is_complete"`
	CreatedAt  int64             `json:"created_at"`
	UpdatedAt  int64             `json:"updated_at"`
}

type User struct {
	ID           string   `json:"id"`
	Email        string   `json:"email"`
	PasswordHash string   `json:"-"`
	FullName     string   `json:"full_name"`
	Roles        []string `json:"roles"`
	LastLoginAt  *int64   `json:"last_login_at,omitempty"`
	CreatedAt    int64    `json:"created_at"`
	UpdatedAt    int64    `json:"updated_at"`

	Organizations []*Organization `json:"organizations,omitempty"`
}

func (u *User) HasRole(role string) bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool {
	return u.HasRole(RoleAdmin)
}
