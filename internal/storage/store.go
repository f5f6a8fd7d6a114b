// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/giveback/internal/models"
)

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a write would violate a uniqueness rule or
	// overwrite a value that is already set differently.
	ErrConflict = errors.New("record conflict")
)

// Queries is the set of reads and writes available both on the store and
// inside a transaction.
type Queries interface {
	// CreateUser persists a new user. Returns ErrConflict if the email is taken.
	CreateUser(ctx context.Context, user *models.User) error
	// GetUserByEmail returns ErrNotFound if no user has the email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	CreateOrganization(ctx context.Context, org *models.Organization) error
	GetOrganization(ctx context.Context, id string) (*models.Organization, error)
	// ListOrganizations returns one page of organizations ordered by creation
	// time, together with the total number of organizations.
	ListOrganizations(ctx context.Context, limit, offset int) ([]*models.Organization, int, error)

	// CreateDonation inserts a donation row. The ID and timestamps are filled
	// in when empty.
	CreateDonation(ctx context.Context, donation *models.Donation) error
	GetDonation(ctx context.Context, id string) (*models.Donation, error)
	ListDonationsByOrganization(ctx context.Context, organizationID string) ([]*models.Donation, error)

	// AddDonor links a user to a donation through the join table.
	AddDonor(ctx context.Context, donationID, userID string) error
	// ListDonors returns the user IDs linked to a donation.
	ListDonors(ctx context.Context, donationID string) ([]string, error)

	// SetPaymentIntent stores the processor intent reference on a donation.
	// Setting the same reference twice is a no-op; setting a different one
	// returns ErrConflict.
	SetPaymentIntent(ctx context.Context, donationID, paymentIntentID string) error

	// CompleteDonation moves a donation from pending to completed. It reports
	// whether this call performed the transition; false means the donation was
	// not pending anymore.
	CompleteDonation(ctx context.Context, donationID string) (bool, error)

	// RecordPaymentEvent stores a processed event. It reports false without
	// error if an event with the same ID was already recorded.
	RecordPaymentEvent(ctx context.Context, event *models.PaymentEvent) (bool, error)
	GetPaymentEvent(ctx context.Context, id string) (*models.PaymentEvent, error)

	CreateBeneficiary(ctx context.Context, beneficiary *models.Beneficiary) error
	GetBeneficiary(ctx context.Context, id string) (*models.Beneficiary, error)

	CreateInventoryItem(ctx context.Context, item *models.InventoryItem) error
	ListInventoryItems(ctx context.Context, beneficiaryID string) ([]*models.InventoryItem, error)
}

// Store defines the interface for storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	Queries

	// WithTx runs fn inside a single transaction. The transaction commits if fn
	// returns nil and rolls back if fn returns an error or panics.
	// fn must only use the Queries it is given.
	WithTx(ctx context.Context, fn func(q Queries) error) error

	// Close releases any resources held by the store.
	Close() error
}
