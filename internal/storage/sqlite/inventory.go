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

// CreateBeneficiary persists a new beneficiary for an organization.
func (q *queries) CreateBeneficiary(ctx context.Context, b *models.Beneficiary) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.CreatedAt == 0 {
		b.CreatedAt = time.Now().Unix()
	}

	_, err := q.db.ExecContext(ctx,
		`INSERT INTO beneficiaries (id, name, description, organization_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		b.ID, b.Name, b.Description, b.OrganizationID, b.CreatedAt,
	)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("%w: organization %s", storage.ErrNotFound, b.OrganizationID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert beneficiary: %w", err)
	}

	return nil
}

// GetBeneficiary retrieves a beneficiary by ID.
func (q *queries) GetBeneficiary(ctx context.Context, id string) (*models.Beneficiary, error) {
	b := &models.Beneficiary{}
	err := q.db.QueryRowContext(ctx,
		`SELECT id, name, description, organization_id, created_at FROM beneficiaries WHERE id = ?`,
		id,
	).Scan(&b.ID, &b.Name, &b.Description, &b.OrganizationID, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: beneficiary %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get beneficiary: %w", err)
	}

	return b, nil
}

// CreateInventoryItem records goods sent to a beneficiary.
func (q *queries) CreateInventoryItem(ctx context.Context, item *models.InventoryItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.CreatedAt == 0 {
		item.CreatedAt = time.Now().Unix()
	}

	_, err := q.db.ExecContext(ctx,
		`INSERT INTO inventory_items (id, name, quantity, beneficiary_id, date_sent, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		item.ID, item.Name, item.Quantity, item.BeneficiaryID, item.DateSent, item.CreatedAt,
	)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("%w: beneficiary %s", storage.ErrNotFound, item.BeneficiaryID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert inventory item: %w", err)
	}

	return nil
}

// ListInventoryItems retrieves all items sent to a beneficiary, newest first.
func (q *queries) ListInventoryItems(ctx context.Context, beneficiaryID string) ([]*models.InventoryItem, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, name, quantity, beneficiary_id, date_sent, created_at
		 FROM inventory_items WHERE beneficiary_id = ? ORDER BY date_sent DESC, id`,
		beneficiaryID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory items: %w", err)
	}
	defer rows.Close()

	var items []*models.InventoryItem
	for rows.Next() {
		item := &models.InventoryItem{}
		if err := rows.Scan(&item.ID, &item.Name, &item.Quantity, &item.BeneficiaryID, &item.DateSent, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan inventory item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate inventory items: %w", err)
	}

	return items, nil
}
