package claims

import (
	"context"
	"fmt"
	"strings"

	"muralhub/internal/pkg/slug"
	"muralhub/internal/pkg/validator"
	"muralhub/internal/platform/models"
)

type OrganizationFinder interface {
	GetBySlug(ctx context.Context, slug string) (*models.Organization, error)
}

type UserFinder interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Match is what the matcher learned about a name/email pair.
type Match struct {
	Slug            string `json:"slug"`
	IsNew           bool   `json:"is_new"`
	OrgID           string `json:"org_id,omitempty"`
	OrgOwnerID      string `json:"org_owner_id,omitempty"`
	OrgOwnerIsAdmin bool   `json:"org_owner_is_admin"`
	OrgEmailDomain  string `json:"org_email_domain,omitempty"`
	OrgDomain       string `json:"org_domain,omitempty"`
	EmailDomain     string `json:"email_domain,omitempty"`
	EmailMatches    bool   `json:"email_matches"`
	DomainsMatch    bool   `json:"domains_match"`

	// OwnerEmail is empty when the owner record could not be resolved.
	OwnerEmail string `json:"-"`
}

type Matcher struct {
	orgs    OrganizationFinder
	users   UserFinder
	generic validator.DomainSet
}

func NewMatcher(orgs OrganizationFinder, users UserFinder, generic validator.DomainSet) *Matcher {
	return &Matcher{orgs: orgs, users: users, generic: generic}
}

// Match looks up the organization by the slug of name and decides whether
// email is authoritative for it. It never writes.
func (m *Matcher) Match(ctx context.Context, name, email string) (Match, error) {
	res := Match{
		Slug:        slug.Slugify(name),
		EmailDomain: validator.EmailDomain(email),
	}

	org, err := m.orgs.GetBySlug(ctx, res.Slug)
	if err != nil {
		return Match{}, fmt.Errorf("looking up organization %q: %w", res.Slug, err)
	}
	if org == nil {
		res.IsNew = true
		return res, nil
	}

	res.OrgID = org.ID
	res.OrgOwnerID = org.OwnerID

	owner, err := m.users.GetByID(ctx, org.OwnerID)
	if err != nil {
		return Match{}, fmt.Errorf("looking up owner of %q: %w", res.Slug, err)
	}
	if owner != nil {
		res.OrgOwnerIsAdmin = owner.IsAdmin()
		res.OwnerEmail = owner.Email
	}

	orgEmail := strings.ToLower(org.Links.Email)
	res.OrgDomain = strings.ToLower(org.Links.Website)
	res.OrgEmailDomain = validator.EmailDomain(orgEmail)

	// Literal address comparison: the input is not case-folded.
	res.EmailMatches = orgEmail != "" && orgEmail == email

	// Substring containment tolerates "www." prefixes and multi-domain
	// website fields.
	websiteMatch := res.OrgDomain != "" && res.EmailDomain != "" &&
		strings.Contains(res.OrgDomain, res.EmailDomain)

	emailDomainMatch := res.OrgEmailDomain != "" &&
		(!m.generic.Contains(res.OrgEmailDomain) || res.EmailMatches) &&
		res.OrgEmailDomain == res.EmailDomain

	res.DomainsMatch = emailDomainMatch || websiteMatch

	return res, nil
}

// IsGeneric reports whether domain is a consumer email provider.
func (m *Matcher) IsGeneric(domain string) bool {
	return m.generic.Contains(domain)
}
