package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"muralhub/internal/pkg/slug"
	"muralhub/internal/platform/database"
	"muralhub/internal/platform/models"
	"muralhub/internal/platform/repositories"
)

type fixtures struct {
	Users         []userFixture         `yaml:"users"`
	Organizations []organizationFixture `yaml:"organizations"`
}

type userFixture struct {
	Email    string   `yaml:"email"`
	Password string   `yaml:"password"`
	FullName string   `yaml:"full_name"`
	Roles    []string `yaml:"roles"`
}

// organizationFixture names its owner by email; the owner must be listed in
// users or already exist.
type organizationFixture struct {
	Name       string                   `yaml:"name"`
	Owner      string                   `yaml:"owner"`
	Links      models.OrganizationLinks `yaml:"links"`
	IsComplete bool                     `yaml:"is_complete"`
}

type seedResult struct {
	UsersCreated         int
	OrganizationsCreated int
	Skipped              int
}

func seedCmd(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load users and organizations from a YAML fixture file",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			fx, err := parseFixtures(f)
			if err != nil {
				return err
			}

			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := database.Migrate(db); err != nil {
				return err
			}

			res, err := seed(cmd.Context(), db, fx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "users created: %d, organizations created: %d, skipped: %d\n",
				res.UsersCreated, res.OrganizationsCreated, res.Skipped)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Fixture file (YAML)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func parseFixtures(r io.Reader) (*fixtures, error) {
	var fx fixtures
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	return &fx, nil
}

// seed inserts fixtures that are not present yet. Users match by email and
// organizations by slug, so running it twice is harmless.
func seed(ctx context.Context, db *sql.DB, fx *fixtures) (*seedResult, error) {
	users := repositories.NewUserRepository(db)
	orgs := repositories.NewOrganizationRepository(db)
	res := &seedResult{}
	now := time.Now().Unix()

	for _, uf := range fx.Users {
		existing, err := users.GetByEmail(ctx, uf.Email)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			res.Skipped++
			continue
		}

		var hash string
		if uf.Password != "" {
			b, err := bcrypt.GenerateFromPassword([]byte(uf.Password), bcrypt.DefaultCost)
			if err != nil {
				return nil, err
			}
			hash = string(b)
		}
		roles := uf.Roles
		if len(roles) == 0 {
			roles = []string{models.RoleUser}
		}

		if err := users.Create(ctx, &models.User{
			ID:           "usr_" + uuid.NewString(),
			Email:        strings.TrimSpace(uf.Email),
			PasswordHash: hash,
			FullName:     uf.FullName,
			Roles:        roles,
			CreatedAt:    now,
			UpdatedAt:    now,
		}); err != nil {
			return nil, fmt.Errorf("user %s: %w", uf.Email, err)
		}
		res.UsersCreated++
	}

	for _, of := range fx.Organizations {
		orgSlug := slug.Slugify(of.Name)
		if orgSlug == "" {
			return nil, fmt.Errorf("organization %q has no usable name", of.Name)
		}

		existing, err := orgs.GetBySlug(ctx, orgSlug)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			res.Skipped++
			continue
		}

		owner, err := users.GetByEmail(ctx, of.Owner)
		if err != nil {
			return nil, err
		}
		if owner == nil {
			return nil, fmt.Errorf("organization %q: owner %q not found", of.Name, of.Owner)
		}

		if err := orgs.Create(ctx, &models.Organization{
			ID:         "org_" + uuid.NewString(),
			Slug:       orgSlug,
			Name:       of.Name,
			OwnerID:    owner.ID,
			Links:      of.Links,
			IsComplete: of.IsComplete,
			CreatedAt:  now,
			UpdatedAt:  now,
		}); err != nil {
			return nil, fmt.Errorf("organization %q: %w", of.Name, err)
		}
		res.OrganizationsCreated++
	}

	log.Info().Int("users", res.UsersCreated).Int("organizations", res.OrganizationsCreated).Int("skipped", res.Skipped).Msg("fixtures seeded")
	return res, nil
}
