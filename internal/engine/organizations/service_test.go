package organizations

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"muralhub/internal/engine/claims"
	"muralhub/internal/engine/notify"
	"muralhub/internal/pkg/validator"
	"muralhub/internal/platform/audit"
	"muralhub/internal/platform/config"
	"muralhub/internal/platform/database/dbtest"
	"muralhub/internal/platform/models"
	"muralhub/internal/platform/repositories"
)

const fallbackEmail = "team@muralhub.app"

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notify.ClaimBlocked
}

func (n *recordingNotifier) NotifyClaimBlocked(payload notify.ClaimBlocked) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, payload)
}

// racingOrgFinder runs race once, right after the first slug lookup, to
// stand in for a concurrent writer landing between check and commit.
type racingOrgFinder struct {
	*repositories.OrganizationRepository
	race func()
	once sync.Once
}

func (r *racingOrgFinder) GetBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	org, err := r.OrganizationRepository.GetBySlug(ctx, slug)
	if r.race != nil {
		r.once.Do(r.race)
	}
	return org, err
}

type fixture struct {
	svc      *Service
	finder   *racingOrgFinder
	orgs     *repositories.OrganizationRepository
	users    *repositories.UserRepository
	audit    *audit.Logger
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)

	orgs := repositories.NewOrganizationRepository(db)
	users := repositories.NewUserRepository(db)
	auditLog := audit.NewLogger(db)
	notifier := &recordingNotifier{}
	finder := &racingOrgFinder{OrganizationRepository: orgs}
	claimsSvc := claims.NewService(finder, users, validator.NewDomainSet(config.DefaultGenericEmailDomains...), "mailto:support@muralhub.app", nil)

	return &fixture{
		svc:      NewService(orgs, users, claimsSvc, auditLog, notifier, fallbackEmail),
		finder:   finder,
		orgs:     orgs,
		users:    users,
		audit:    auditLog,
		notifier: notifier,
	}
}

func (f *fixture) seedUser(t *testing.T, id, email string, roles ...string) *models.User {
	t.Helper()
	now := time.Now().Unix()
	u := &models.User{ID: id, Email: email, Roles: roles, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *fixture) seedOrg(t *testing.T, slug, name, ownerID string, links models.OrganizationLinks) *models.Organization {
	t.Helper()
	now := time.Now().Unix()
	org := &models.Organization{ID: "org_" + slug, Slug: slug, Name: name, OwnerID: ownerID, Links: links, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, f.orgs.Create(context.Background(), org))
	return org
}

func signupInput(email, orgName string) SignupInput {
	return SignupInput{Email: email, Password: "correct-horse", FullName: "Jane Doe", OrganizationName: orgName}
}

func TestSignup_CreatesOrganization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Signup(ctx, signupInput("info@paintcollective.org", "Paint Collective"))
	require.NoError(t, err)
	assert.False(t, res.Claimed)
	assert.Equal(t, "paint-collective", res.Organization.Slug)
	assert.Equal(t, res.User.ID, res.Organization.OwnerID)
	assert.Equal(t, "info@paintcollective.org", res.Organization.Links.Email)
	assert.Equal(t, []string{models.RoleUser}, res.User.Roles)

	stored, err := f.orgs.GetBySlug(ctx, "paint-collective")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, res.User.ID, stored.OwnerID)

	entries, err := f.audit.ListByResource(ctx, audit.ResourceOrganization, stored.ID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionOrganizationCreated, entries[0].Action)
}

func TestSignup_ExistingOrganization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Signup(ctx, signupInput("info@paintcollective.org", "Paint Collective"))
	require.NoError(t, err)

	t.Run("colleague is rejected", func(t *testing.T) {
		_, err := f.svc.Signup(ctx, signupInput("jane@paintcollective.org", "paint collective"))
		assert.ErrorIs(t, err, claims.ErrNameTaken)
	})

	t.Run("owner signing up again", func(t *testing.T) {
		_, err := f.svc.Signup(ctx, signupInput("info@paintcollective.org", "Paint Collective"))
		assert.ErrorIs(t, err, ErrAccountExists)
	})

	t.Run("unrelated corporate email", func(t *testing.T) {
		_, err := f.svc.Signup(ctx, signupInput("bob@elsewhere.org", "Paint Collective"))
		assert.ErrorIs(t, err, claims.ErrNameTaken)
	})
}

func TestSignup_ClaimsAdminOwnedOrganization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin := f.seedUser(t, "usr_admin", fallbackEmail, models.RoleAdmin)
	f.seedOrg(t, "mural-city", "Mural City", admin.ID, models.OrganizationLinks{Website: "https://muralcity.org"})

	res, err := f.svc.Signup(ctx, signupInput("jane@muralcity.org", "Mural City"))
	require.NoError(t, err)
	assert.True(t, res.Claimed)
	assert.Equal(t, res.User.ID, res.Organization.OwnerID)

	// Once claimed it is no longer open to the next colleague.
	_, err = f.svc.Signup(ctx, signupInput("sam@muralcity.org", "Mural City"))
	assert.ErrorIs(t, err, claims.ErrNameTaken)

	entries, err := f.audit.ListByResource(ctx, audit.ResourceOrganization, "org_mural-city", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionOrganizationClaimed, entries[0].Action)
	assert.Equal(t, admin.ID, entries[0].Metadata["previous_owner"])
}

func TestSignup_SlugTakenAfterCheck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rival := f.seedUser(t, "usr_rival", "info@paintcollective.org")
	f.finder.race = func() {
		f.seedOrg(t, "paint-collective", "Paint Collective", rival.ID, models.OrganizationLinks{Email: rival.Email})
	}

	_, err := f.svc.Signup(ctx, signupInput("jane@otherwalls.org", "Paint Collective"))
	assert.ErrorIs(t, err, claims.ErrNameTaken)

	u, err := f.users.GetByEmail(ctx, "jane@otherwalls.org")
	require.NoError(t, err)
	assert.Nil(t, u, "losing the slug must roll back the new account")

	org, err := f.orgs.GetBySlug(ctx, "paint-collective")
	require.NoError(t, err)
	assert.Equal(t, rival.ID, org.OwnerID)
}

func TestSignup_ClaimLosesToConcurrentTransfer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin := f.seedUser(t, "usr_admin", fallbackEmail, models.RoleAdmin)
	rival := f.seedUser(t, "usr_rival", "sam@muralcity.org")
	f.seedOrg(t, "mural-city", "Mural City", admin.ID, models.OrganizationLinks{Website: "https://muralcity.org"})

	f.finder.race = func() {
		tx, err := f.orgs.BeginTx(ctx)
		require.NoError(t, err)
		require.NoError(t, f.orgs.TransferOwnerTx(ctx, tx, "org_mural-city", admin.ID, rival.ID))
		require.NoError(t, tx.Commit())
	}

	_, err := f.svc.Signup(ctx, signupInput("jane@muralcity.org", "Mural City"))
	assert.ErrorIs(t, err, claims.ErrNameTaken)

	u, err := f.users.GetByEmail(ctx, "jane@muralcity.org")
	require.NoError(t, err)
	assert.Nil(t, u)

	org, err := f.orgs.GetBySlug(ctx, "mural-city")
	require.NoError(t, err)
	assert.Equal(t, rival.ID, org.OwnerID)

	entries, err := f.audit.ListByResource(ctx, audit.ResourceOrganization, "org_mural-city", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAdmit_OnlyTransfersAdminOwnedOrganizations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := f.seedUser(t, "usr_owner", "info@paintcollective.org")
	f.seedOrg(t, "paint-collective", "Paint Collective", owner.ID, models.OrganizationLinks{Email: owner.Email})

	match := claims.Match{
		Slug:         "paint-collective",
		OrgID:        "org_paint-collective",
		OrgOwnerID:   owner.ID,
		DomainsMatch: true,
	}
	_, err := f.svc.admit(ctx, signupInput("jane@paintcollective.org", "Paint Collective"), claims.Allowed(), match)
	assert.ErrorIs(t, err, claims.ErrNameTaken)

	_, err = f.svc.admit(ctx, signupInput("jane@paintcollective.org", "Paint Collective"), claims.Allowed(), claims.Match{Slug: "paint-collective", IsNew: true})
	assert.ErrorIs(t, err, claims.ErrNameTaken)

	org, err := f.orgs.GetBySlug(ctx, "paint-collective")
	require.NoError(t, err)
	assert.Equal(t, owner.ID, org.OwnerID)

	u, err := f.users.GetByEmail(ctx, "jane@paintcollective.org")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestSignup_BlockedNotifiesSupport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Signup(ctx, signupInput("owner@gmail.com", "Gmail Crew"))
	require.NoError(t, err)

	_, err = f.svc.Signup(ctx, signupInput("other@gmail.com", "Gmail Crew"))
	var blocked *claims.BlockedError
	require.True(t, errors.As(err, &blocked))
	assert.Equal(t, claims.MsgVerifyEmail, blocked.Message)
	assert.Equal(t, "mailto:support@muralhub.app", blocked.ContactURL)

	require.Len(t, f.notifier.calls, 1)
	assert.Equal(t, "gmail-crew", f.notifier.calls[0].OrganizationSlug)
	assert.Equal(t, "other@gmail.com", f.notifier.calls[0].Email)

	u, err := f.users.GetByEmail(ctx, "other@gmail.com")
	require.NoError(t, err)
	assert.Nil(t, u, "blocked signup must not create the account")
}

func TestSignup_InvalidInput(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		in   SignupInput
	}{
		{"Missing organization", signupInput("a@b.org", "   ")},
		{"Punctuation only", signupInput("a@b.org", "!!!")},
		{"Bad email", signupInput("not-an-email", "Org")},
		{"Short password", SignupInput{Email: "a@b.org", Password: "short", OrganizationName: "Org"}},
		{"Bad website", SignupInput{Email: "a@b.org", Password: "correct-horse", OrganizationName: "Org", Website: "ftp://org.example"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Signup(context.Background(), tt.in)
			var invalid *InvalidInputError
			assert.True(t, errors.As(err, &invalid), "got %v", err)
		})
	}
}

func TestDeleteAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin := f.seedUser(t, "usr_admin", fallbackEmail, models.RoleAdmin)
	res, err := f.svc.Signup(ctx, signupInput("info@paintcollective.org", "Paint Collective"))
	require.NoError(t, err)

	moved, err := f.svc.DeleteAccount(ctx, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), moved)

	org, err := f.orgs.GetBySlug(ctx, "paint-collective")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, org.OwnerID)

	u, err := f.users.GetByID(ctx, res.User.ID)
	require.NoError(t, err)
	assert.Nil(t, u)

	// The organization is now open to a verified colleague.
	claimed, err := f.svc.Signup(ctx, signupInput("jane@paintcollective.org", "Paint Collective"))
	require.NoError(t, err)
	assert.True(t, claimed.Claimed)

	_, err = f.svc.DeleteAccount(ctx, admin.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.DeleteAccount(ctx, "usr_missing")
	assert.ErrorIs(t, err, claims.ErrUserNotFound)
}

func TestDeleteAccount_NoFallbackAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Signup(ctx, signupInput("info@paintcollective.org", "Paint Collective"))
	require.NoError(t, err)

	_, err = f.svc.DeleteAccount(ctx, res.User.ID)
	assert.ErrorIs(t, err, ErrNoFallbackAdmin)

	// A non-admin at the fallback address does not count.
	f.seedUser(t, "usr_fake", fallbackEmail, models.RoleUser)
	_, err = f.svc.DeleteAccount(ctx, res.User.ID)
	assert.ErrorIs(t, err, ErrNoFallbackAdmin)
}

func TestUpdateLinks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin := f.seedUser(t, "usr_admin", fallbackEmail, models.RoleAdmin)
	stranger := f.seedUser(t, "usr_stranger", "bob@elsewhere.org")
	res, err := f.svc.Signup(ctx, signupInput("info@paintcollective.org", "Paint Collective"))
	require.NoError(t, err)

	complete := true
	links := &models.OrganizationLinks{Email: "hello@paintcollective.org", Website: "https://paintcollective.org"}

	org, err := f.svc.UpdateLinks(ctx, "paint-collective", res.User.ID, UpdateInput{Links: links, IsComplete: &complete})
	require.NoError(t, err)
	assert.Equal(t, *links, org.Links)
	assert.True(t, org.IsComplete)

	_, err = f.svc.UpdateLinks(ctx, "paint-collective", stranger.ID, UpdateInput{Links: links})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.UpdateLinks(ctx, "paint-collective", admin.ID, UpdateInput{IsComplete: new(bool)})
	require.NoError(t, err)

	_, err = f.svc.UpdateLinks(ctx, "paint-collective", admin.ID, UpdateInput{Links: &models.OrganizationLinks{Website: "paintcollective"}})
	var invalid *InvalidInputError
	assert.True(t, errors.As(err, &invalid))

	_, err = f.svc.UpdateLinks(ctx, "missing", admin.ID, UpdateInput{})
	assert.ErrorIs(t, err, ErrNotFound)

	stored, err := f.svc.Get(ctx, "paint-collective")
	require.NoError(t, err)
	assert.False(t, stored.IsComplete)
	assert.Equal(t, "https://paintcollective.org", stored.Links.Website)
}
