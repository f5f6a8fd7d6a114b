package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mmynk/giveback/internal/models"
	"github.com/mmynk/giveback/internal/storage"
)

// CreateOrganization persists a new organization in pending status.
func (q *queries) CreateOrganization(ctx context.Context, org *models.Organization) error {
	if org.ID == "" {
		org.ID = uuid.New().String()
	}
	if org.Status == "" {
		org.Status = models.OrganizationStatusPending
	}
	if org.CreatedAt == 0 {
		org.CreatedAt = time.Now().Unix()
	}
	org.UpdatedAt = org.CreatedAt

	_, err := q.db.ExecContext(ctx,
		`INSERT INTO organizations (id, name, description, status, owner_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		org.ID, org.Name, org.Description, org.Status, org.OwnerID, org.CreatedAt, org.UpdatedAt,
	)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("%w: owner %s", storage.ErrNotFound, org.OwnerID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert organization: %w", err)
	}

	return nil
}

// GetOrganization retrieves an organization by ID.
func (q *queries) GetOrganization(ctx context.Context, id string) (*models.Organization, error) {
	org := &models.Organization{}
	err := q.db.QueryRowContext(ctx,
		`SELECT id, name, description, status, owner_id, created_at, updated_at
		 FROM organizations WHERE id = ?`,
		id,
	).Scan(&org.ID, &org.Name, &org.Description, &org.Status, &org.OwnerID, &org.CreatedAt, &org.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: organization %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	return org, nil
}

// ListOrganizations retrieves one page of organizations and the total count.
func (q *queries) ListOrganizations(ctx context.Context, limit, offset int) ([]*models.Organization, int, error) {
	var total int
	if err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM organizations").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count organizations: %w", err)
	}

	rows, err := q.db.QueryContext(ctx,
		`SELECT id, name, description, status, owner_id, created_at, updated_at
		 FROM organizations ORDER BY created_at, id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var orgs []*models.Organization
	for rows.Next() {
		org := &models.Organization{}
		if err := rows.Scan(&org.ID, &org.Name, &org.Description, &org.Status, &org.OwnerID, &org.CreatedAt, &org.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, org)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate organizations: %w", err)
	}

	return orgs, total, nil
}
