package organizations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"muralhub/internal/engine/claims"
	"muralhub/internal/engine/notify"
	"muralhub/internal/platform/audit"
	"muralhub/internal/platform/models"
	"muralhub/internal/platform/repositories"
)

var (
	ErrAccountExists   = errors.New("an account with this email already exists")
	ErrNotFound        = errors.New("organization not found")
	ErrForbidden       = errors.New("not allowed to modify this organization")
	ErrNoFallbackAdmin = errors.New("fallback admin user is not configured")
)

// InvalidInputError wraps validation failures so handlers can map them to
// 400 responses.
type InvalidInputError struct {
	Err error
}

func (e *InvalidInputError) Error() string { return e.Err.Error() }
func (e *InvalidInputError) Unwrap() error { return e.Err }

type Notifier interface {
	NotifyClaimBlocked(payload notify.ClaimBlocked)
}

type SignupInput struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	FullName         string `json:"full_name"`
	OrganizationName string `json:"organization_name"`
	ContactEmail     string `json:"contact_email"`
	Website          string `json:"website"`
}

type SignupResult struct {
	User         *models.User         `json:"user"`
	Organization *models.Organization `json:"organization"`
	Claimed      bool                 `json:"claimed"`
}

type Service struct {
	orgRepo            *repositories.OrganizationRepository
	userRepo           *repositories.UserRepository
	claims             *claims.Service
	audit              *audit.Logger
	notifier           Notifier
	fallbackAdminEmail string
}

func NewService(orgRepo *repositories.OrganizationRepository, userRepo *repositories.UserRepository, claimsSvc *claims.Service, auditLog *audit.Logger, notifier Notifier, fallbackAdminEmail string) *Service {
	return &Service{
		orgRepo:            orgRepo,
		userRepo:           userRepo,
		claims:             claimsSvc,
		audit:              auditLog,
		notifier:           notifier,
		fallbackAdminEmail: fallbackAdminEmail,
	}
}

// Signup creates an account together with its organization, or claims an
// existing admin-owned organization for the new account. The claim check
// runs first; the slug UNIQUE constraint settles races it cannot see.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*SignupResult, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.OrganizationName = strings.TrimSpace(in.OrganizationName)
	if err := ValidateSignup(&in); err != nil {
		return nil, &InvalidInputError{Err: err}
	}

	outcome, match, err := s.claims.Explain(ctx, in.OrganizationName, in.Email)
	if err != nil {
		return nil, err
	}
	return s.admit(ctx, in, outcome, match)
}

// admit carries out a claim outcome. Only admin-owned organizations are ever
// transferred.
func (s *Service) admit(ctx context.Context, in SignupInput, outcome claims.Outcome, match claims.Match) (*SignupResult, error) {
	switch outcome.Kind {
	case claims.KindBlocked:
		if s.notifier != nil {
			s.notifier.NotifyClaimBlocked(notify.ClaimBlocked{
				OrganizationSlug: match.Slug,
				OrganizationID:   match.OrgID,
				Email:            in.Email,
				FullName:         in.FullName,
				Reason:           outcome.Message,
			})
		}
		return nil, outcome.Err()
	case claims.KindAllowed:
		if outcome.ClaimAsOwner {
			return nil, ErrAccountExists
		}
		if match.IsNew || !match.OrgOwnerIsAdmin {
			return nil, claims.ErrNameTaken
		}
		return s.claim(ctx, in, match)
	case claims.KindUnknown:
		if !outcome.IsNew {
			return nil, claims.ErrNameTaken
		}
		return s.create(ctx, in, match.Slug)
	default:
		return nil, claims.ErrNameTaken
	}
}

func (s *Service) newUser(in SignupInput) (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	now := time.Now().Unix()
	return &models.User{
		ID:           "usr_" + uuid.NewString(),
		Email:        in.Email,
		PasswordHash: string(hashedPassword),
		FullName:     in.FullName,
		Roles:        []string{models.RoleUser},
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (s *Service) create(ctx context.Context, in SignupInput, orgSlug string) (*SignupResult, error) {
	user, err := s.newUser(in)
	if err != nil {
		return nil, err
	}

	contactEmail := in.ContactEmail
	if contactEmail == "" {
		contactEmail = in.Email
	}

	now := time.Now().Unix()
	org := &models.Organization{
		ID:        "org_" + uuid.NewString(),
		Slug:      orgSlug,
		Name:      in.OrganizationName,
		OwnerID:   user.ID,
		Links:     models.OrganizationLinks{Email: contactEmail, Website: in.Website},
		CreatedAt: now,
		UpdatedAt: now,
	}

	tx, err := s.orgRepo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.userRepo.CreateTx(ctx, tx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	if err := s.orgRepo.CreateTx(ctx, tx, org); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, claims.ErrNameTaken
		}
		return nil, fmt.Errorf("creating organization: %w", err)
	}

	if err := s.audit.LogTx(ctx, tx, user.ID, audit.ActionOrganizationCreated, audit.ResourceOrganization, org.ID, map[string]interface{}{
		"slug": org.Slug,
	}); err != nil {
		return nil, fmt.Errorf("writing audit log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.Info().Str("org_id", org.ID).Str("slug", org.Slug).Str("user_id", user.ID).Msg("organization created")
	return &SignupResult{User: user, Organization: org}, nil
}

func (s *Service) claim(ctx context.Context, in SignupInput, match claims.Match) (*SignupResult, error) {
	user, err := s.newUser(in)
	if err != nil {
		return nil, err
	}

	tx, err := s.orgRepo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.userRepo.CreateTx(ctx, tx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	if err := s.orgRepo.TransferOwnerTx(ctx, tx, match.OrgID, match.OrgOwnerID, user.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Someone else claimed or removed it since the check.
			return nil, claims.ErrNameTaken
		}
		return nil, fmt.Errorf("claiming organization: %w", err)
	}

	if err := s.audit.LogTx(ctx, tx, user.ID, audit.ActionOrganizationClaimed, audit.ResourceOrganization, match.OrgID, map[string]interface{}{
		"slug":           match.Slug,
		"previous_owner": match.OrgOwnerID,
	}); err != nil {
		return nil, fmt.Errorf("writing audit log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	org, err := s.orgRepo.GetByID(ctx, match.OrgID)
	if err != nil {
		return nil, err
	}

	log.Info().Str("org_id", match.OrgID).Str("slug", match.Slug).Str("user_id", user.ID).Msg("organization claimed")
	return &SignupResult{User: user, Organization: org, Claimed: true}, nil
}

// DeleteAccount removes a user. Organizations they own move to the fallback
// admin in the same transaction, so no organization is ever left ownerless.
func (s *Service) DeleteAccount(ctx context.Context, userID string) (int64, error) {
	if s.fallbackAdminEmail == "" {
		return 0, ErrNoFallbackAdmin
	}
	fallback, err := s.userRepo.GetByEmail(ctx, s.fallbackAdminEmail)
	if err != nil {
		return 0, err
	}
	if fallback == nil || !fallback.IsAdmin() {
		return 0, ErrNoFallbackAdmin
	}
	if fallback.ID == userID {
		return 0, ErrForbidden
	}

	tx, err := s.orgRepo.BeginTx(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	moved, err := s.orgRepo.ReassignOwnerTx(ctx, tx, userID, fallback.ID)
	if err != nil {
		return 0, fmt.Errorf("reassigning organizations: %w", err)
	}

	if err := s.userRepo.DeleteTx(ctx, tx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, claims.ErrUserNotFound
		}
		return 0, fmt.Errorf("deleting user: %w", err)
	}

	if moved > 0 {
		if err := s.audit.LogTx(ctx, tx, userID, audit.ActionOwnershipTransferred, audit.ResourceUser, userID, map[string]interface{}{
			"new_owner":     fallback.ID,
			"organizations": moved,
		}); err != nil {
			return 0, fmt.Errorf("writing audit log: %w", err)
		}
	}
	if err := s.audit.LogTx(ctx, tx, userID, audit.ActionUserDeleted, audit.ResourceUser, userID, nil); err != nil {
		return 0, fmt.Errorf("writing audit log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	log.Info().Str("user_id", userID).Int64("organizations_moved", moved).Msg("account deleted")
	return moved, nil
}

func (s *Service) Get(ctx context.Context, orgSlug string) (*models.Organization, error) {
	org, err := s.orgRepo.GetBySlug(ctx, orgSlug)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, ErrNotFound
	}
	return org, nil
}

type UpdateInput struct {
	Links      *models.OrganizationLinks `json:"links"`
	IsComplete *bool                     `json:"is_complete"`
}

// UpdateLinks edits an organization's public links. Only the owner or an admin
// may do so.
func (s *Service) UpdateLinks(ctx context.Context, orgSlug, userID string, in UpdateInput) (*models.Organization, error) {
	org, err := s.Get(ctx, orgSlug)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, claims.ErrUserNotFound
	}
	if org.OwnerID != user.ID && !user.IsAdmin() {
		return nil, ErrForbidden
	}

	if in.Links != nil {
		if err := ValidateLinks(*in.Links); err != nil {
			return nil, &InvalidInputError{Err: err}
		}
		org.Links = *in.Links
	}
	if in.IsComplete != nil {
		org.IsComplete = *in.IsComplete
	}

	if err := s.orgRepo.UpdateLinks(ctx, org); err != nil {
		return nil, err
	}

	s.audit.Log(ctx, userID, audit.ActionOrganizationLinksEdited, audit.ResourceOrganization, org.ID, map[string]interface{}{
		"email":       org.Links.Email,
		"website":     org.Links.Website,
		"is_complete": org.IsComplete,
	})
	return org, nil
}
