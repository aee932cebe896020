package claims

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"muralhub/internal/pkg/slug"
	"muralhub/internal/pkg/validator"
)

type NameStatus string

const (
	// NameStatusNone is returned for blank input and encodes as JSON null.
	NameStatusNone        NameStatus = ""
	NameStatusUserIsAdmin NameStatus = "userIsAdmin"
	NameStatusOwnedByUser NameStatus = "ownedByUser"
	NameStatusAvailable   NameStatus = "available"
)

func (s NameStatus) MarshalJSON() ([]byte, error) {
	if s == NameStatusNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(s))
}

type Service struct {
	orgs       OrganizationFinder
	users      UserFinder
	matcher    *Matcher
	contactURL string
	metrics    *Metrics
}

func NewService(orgs OrganizationFinder, users UserFinder, generic validator.DomainSet, contactURL string, metrics *Metrics) *Service {
	return &Service{
		orgs:       orgs,
		users:      users,
		matcher:    NewMatcher(orgs, users, generic),
		contactURL: contactURL,
		metrics:    metrics,
	}
}

func (s *Service) ContactURL() string {
	return s.contactURL
}

// CheckClaim decides whether the holder of email may create or take over
// the organization called name. A blank name fails with ErrNameRequired.
// Identical inputs against unchanged data always produce the same outcome.
func (s *Service) CheckClaim(ctx context.Context, name, email string) (Outcome, error) {
	outcome, _, err := s.Explain(ctx, name, email)
	return outcome, err
}

// Explain is CheckClaim plus the underlying match, for operators.
func (s *Service) Explain(ctx context.Context, name, email string) (Outcome, Match, error) {
	if strings.TrimSpace(name) == "" || slug.Slugify(name) == "" {
		s.metrics.observeDecision(KindRejected)
		return Outcome{}, Match{}, ErrNameRequired
	}

	m, err := s.matcher.Match(ctx, name, email)
	if err != nil {
		return Outcome{}, Match{}, err
	}

	outcome := Decide(m, email, s.matcher.IsGeneric, s.contactURL)
	s.metrics.observeDecision(outcome.Kind)

	log.Info().
		Str("slug", m.Slug).
		Str("email_domain", m.EmailDomain).
		Bool("is_new", m.IsNew).
		Bool("domains_match", m.DomainsMatch).
		Str("outcome", string(outcome.Kind)).
		Msg("organization claim checked")

	return outcome, m, nil
}

// CheckName reports how the signed-in user relates to the organization
// name they are typing. ErrNameTaken means someone else owns it.
func (s *Service) CheckName(ctx context.Context, name, userID string) (NameStatus, error) {
	status, err := s.checkName(ctx, name, userID)
	switch {
	case err == nil && status == NameStatusNone:
		s.metrics.observeNameCheck("blank")
	case err == nil:
		s.metrics.observeNameCheck(string(status))
	case errors.Is(err, ErrNameTaken):
		s.metrics.observeNameCheck("taken")
	}
	return status, err
}

func (s *Service) checkName(ctx context.Context, name, userID string) (NameStatus, error) {
	orgSlug := slug.Slugify(name)
	if strings.TrimSpace(name) == "" || orgSlug == "" {
		return NameStatusNone, nil
	}

	org, err := s.orgs.GetBySlug(ctx, orgSlug)
	if err != nil {
		return NameStatusNone, fmt.Errorf("looking up organization %q: %w", orgSlug, err)
	}
	if org == nil {
		return NameStatusAvailable, nil
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return NameStatusNone, fmt.Errorf("looking up user: %w", err)
	}
	if user == nil {
		return NameStatusNone, ErrUserNotFound
	}

	if user.IsAdmin() {
		return NameStatusUserIsAdmin, nil
	}
	if org.OwnerID == user.ID {
		return NameStatusOwnedByUser, nil
	}

	owner, err := s.users.GetByID(ctx, org.OwnerID)
	if err != nil {
		return NameStatusNone, fmt.Errorf("looking up owner of %q: %w", orgSlug, err)
	}
	if owner.IsAdmin() {
		return NameStatusAvailable, nil
	}

	log.Debug().Str("slug", orgSlug).Str("user_id", userID).Msg("organization name taken")
	return NameStatusNone, ErrNameTaken
}
