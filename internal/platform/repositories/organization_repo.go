package repositories

import (
	"context"
	"database/sql"
	"time"

	"muralhub/internal/platform/database"
	"muralhub/internal/platform/models"
)

const organizationColumns = `id, slug, name, owner_id, contact_email, website, is_complete, created_at, updated_at`

type OrganizationRepository struct {
	db *sql.DB
}

func NewOrganizationRepository(db *sql.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

func (r *OrganizationRepository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return r.db.BeginTx(ctx, nil)
}

func (r *OrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	return createOrganization(ctx, r.db, org)
}

func (r *OrganizationRepository) CreateTx(ctx context.Context, tx *sql.Tx, org *models.Organization) error {
	return createOrganization(ctx, tx, org)
}

func createOrganization(ctx context.Context, q querier, org *models.Organization) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO organizations (`+organizationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, org.ID, org.Slug, org.Name, org.OwnerID, org.Links.Email, org.Links.Website, org.IsComplete, org.CreatedAt, org.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *OrganizationRepository) GetByID(ctx context.Context, id string) (*models.Organization, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+organizationColumns+` FROM organizations WHERE id = ?`, id)
	return scanOrganization(row)
}

// GetBySlug returns nil, nil when no organization has the slug.
func (r *OrganizationRepository) GetBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+organizationColumns+` FROM organizations WHERE slug = ?`, slug)
	return scanOrganization(row)
}

func (r *OrganizationRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Organization, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+organizationColumns+` FROM organizations WHERE owner_id = ? ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orgs []*models.Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		orgs = append(orgs, org)
	}
	return orgs, rows.Err()
}

// TransferOwnerTx hands orgID to newOwnerID only if it still belongs to
// expectedOwnerID; otherwise it returns sql.ErrNoRows.
func (r *OrganizationRepository) TransferOwnerTx(ctx context.Context, tx *sql.Tx, orgID, expectedOwnerID, newOwnerID string) error {
	res, err := tx.ExecContext(ctx, `UPDATE organizations SET owner_id = ?, updated_at = ? WHERE id = ? AND owner_id = ?`, newOwnerID, time.Now().Unix(), orgID, expectedOwnerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ReassignOwnerTx moves every organization owned by fromUserID to toUserID
// and reports how many changed hands.
func (r *OrganizationRepository) ReassignOwnerTx(ctx context.Context, tx *sql.Tx, fromUserID, toUserID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `UPDATE organizations SET owner_id = ?, updated_at = ? WHERE owner_id = ?`, toUserID, time.Now().Unix(), fromUserID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *OrganizationRepository) UpdateLinks(ctx context.Context, org *models.Organization) error {
	org.UpdatedAt = time.Now().Unix()
	_, err := r.db.ExecContext(ctx, `
		UPDATE organizations SET contact_email = ?, website = ?, is_complete = ?, updated_at = ?
		WHERE id = ?
	`, org.Links.Email, org.Links.Website, org.IsComplete, org.UpdatedAt, org.ID)
	return err
}

func scanOrganization(s scanner) (*models.Organization, error) {
	org := &models.Organization{}
	err := s.Scan(&org.ID, &org.Slug, &org.Name, &org.OwnerID, &org.Links.Email, &org.Links.Website, &org.IsComplete, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return org, nil
}
