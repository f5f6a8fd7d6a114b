package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mmynk/giveback/internal/models"
	"github.com/mmynk/giveback/internal/storage"
)

// RecordPaymentEvent persists a processed payment event. A second event with
// the same ID is ignored and reported as not recorded.
func (q *queries) RecordPaymentEvent(ctx context.Context, event *models.PaymentEvent) (bool, error) {
	if event.ReceivedAt == 0 {
		event.ReceivedAt = time.Now().Unix()
	}

	res, err := q.db.ExecContext(ctx,
		`INSERT INTO payment_events (id, type, donation_id, payment_intent_id, outcome, received_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO NOTHING`,
		event.ID, event.Type, event.DonationID, nullString(event.PaymentIntentID), event.Outcome, event.ReceivedAt,
	)
	if isForeignKeyViolation(err) {
		return false, fmt.Errorf("%w: donation %s", storage.ErrNotFound, event.DonationID)
	}
	if err != nil {
		return false, fmt.Errorf("failed to insert payment event: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check payment event insert: %w", err)
	}

	return n == 1, nil
}

// GetPaymentEvent retrieves a recorded payment event by its processor ID.
func (q *queries) GetPaymentEvent(ctx context.Context, id string) (*models.PaymentEvent, error) {
	event := &models.PaymentEvent{}
	var intentID sql.NullString

	err := q.db.QueryRowContext(ctx,
		`SELECT id, type, donation_id, payment_intent_id, outcome, received_at
		 FROM payment_events WHERE id = ?`,
		id,
	).Scan(&event.ID, &event.Type, &event.DonationID, &intentID, &event.Outcome, &event.ReceivedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: payment event %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment event: %w", err)
	}

	if intentID.Valid {
		event.PaymentIntentID = intentID.String
	}

	return event, nil
}
