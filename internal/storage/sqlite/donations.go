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

const donationColumns = `id, amount, currency, frequency, payment_method, is_anonymous,
	next_payment_date, status, payment_intent_id, organization_id, created_at, updated_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// CreateDonation persists a new donation.
func (q *queries) CreateDonation(ctx context.Context, d *models.Donation) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.Status == "" {
		d.Status = models.DonationStatusPending
	}
	if d.CreatedAt == 0 {
		d.CreatedAt = time.Now().Unix()
	}
	d.UpdatedAt = d.CreatedAt

	_, err := q.db.ExecContext(ctx,
		`INSERT INTO donations (`+donationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Amount, d.Currency, string(d.Frequency), string(d.PaymentMethod), d.IsAnonymous,
		nullInt64(d.NextPaymentDate), string(d.Status), nullString(d.PaymentIntentID),
		d.OrganizationID, d.CreatedAt, d.UpdatedAt,
	)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("%w: organization %s", storage.ErrNotFound, d.OrganizationID)
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: donation %s", storage.ErrConflict, d.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert donation: %w", err)
	}

	return nil
}

// GetDonation retrieves a donation by ID.
func (q *queries) GetDonation(ctx context.Context, id string) (*models.Donation, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+donationColumns+` FROM donations WHERE id = ?`,
		id,
	)
	d, err := scanDonation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: donation %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get donation: %w", err)
	}

	return d, nil
}

// ListDonationsByOrganization retrieves all donations made to an organization.
func (q *queries) ListDonationsByOrganization(ctx context.Context, organizationID string) ([]*models.Donation, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+donationColumns+` FROM donations WHERE organization_id = ? ORDER BY created_at DESC, id`,
		organizationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list donations by organization: %w", err)
	}
	defer rows.Close()

	var donations []*models.Donation
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan donation: %w", err)
		}
		donations = append(donations, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate donations: %w", err)
	}

	return donations, nil
}

// AddDonor links a user to a donation.
func (q *queries) AddDonor(ctx context.Context, donationID, userID string) error {
	_, err := q.db.ExecContext(ctx,
		"INSERT INTO donor_donations (user_id, donation_id) VALUES (?, ?)",
		userID, donationID,
	)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("%w: donor %s or donation %s", storage.ErrNotFound, userID, donationID)
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: donor %s already linked to donation %s", storage.ErrConflict, userID, donationID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert donor: %w", err)
	}

	return nil
}

// ListDonors retrieves the user IDs linked to a donation.
func (q *queries) ListDonors(ctx context.Context, donationID string) ([]string, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT user_id FROM donor_donations WHERE donation_id = ? ORDER BY user_id",
		donationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get donors: %w", err)
	}
	defer rows.Close()

	donors := []string{}
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan donor: %w", err)
		}
		donors = append(donors, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate donors: %w", err)
	}

	return donors, nil
}

// SetPaymentIntent stores the processor's intent reference on a donation.
// The update only applies while the reference is unset or already equal, so
// retries are harmless and a different intent is never silently replaced.
func (q *queries) SetPaymentIntent(ctx context.Context, donationID, paymentIntentID string) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE donations SET payment_intent_id = ?, updated_at = ?
		 WHERE id = ? AND (payment_intent_id IS NULL OR payment_intent_id = ?)`,
		paymentIntentID, time.Now().Unix(), donationID, paymentIntentID,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: payment intent %s belongs to another donation", storage.ErrConflict, paymentIntentID)
	}
	if err != nil {
		return fmt.Errorf("failed to set payment intent: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check payment intent update: %w", err)
	}
	if n == 1 {
		return nil
	}

	// Nothing updated: the donation is missing or holds another intent.
	if _, err := q.GetDonation(ctx, donationID); err != nil {
		return err
	}
	return fmt.Errorf("%w: donation %s already has a different payment intent", storage.ErrConflict, donationID)
}

// CompleteDonation transitions a pending donation to completed.
func (q *queries) CompleteDonation(ctx context.Context, donationID string) (bool, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE donations SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(models.DonationStatusCompleted), time.Now().Unix(), donationID, string(models.DonationStatusPending),
	)
	if err != nil {
		return false, fmt.Errorf("failed to complete donation: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check donation update: %w", err)
	}

	return n == 1, nil
}

func scanDonation(row rowScanner) (*models.Donation, error) {
	d := &models.Donation{}
	var (
		frequency, method, status string
		nextPayment               sql.NullInt64
		intentID                  sql.NullString
	)

	err := row.Scan(&d.ID, &d.Amount, &d.Currency, &frequency, &method, &d.IsAnonymous,
		&nextPayment, &status, &intentID, &d.OrganizationID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}

	d.Frequency = models.Frequency(frequency)
	d.PaymentMethod = models.PaymentMethod(method)
	d.Status = models.DonationStatus(status)
	if nextPayment.Valid {
		d.NextPaymentDate = nextPayment.Int64
	}
	if intentID.Valid {
		d.PaymentIntentID = intentID.String
	}

	return d, nil
}
