package models

// OrganizationStatusPending is the status every organization starts in.
// Other statuses are assigned by administrative processes outside this service.
const OrganizationStatusPending = "pending"

// Organization is a cause that receives donations.
type Organization struct {
	ID          string
	Name        string
	Description string
	Status      string

	// OwnerID is the user who registered the organization.
	OwnerID string

	CreatedAt int64
	UpdatedAt int64
}

// Beneficiary receives in-kind goods on behalf of an organization.
type Beneficiary struct {
	ID             string
	Name           string
	Description    string
	OrganizationID string
	CreatedAt      int64
}

// InventoryItem records goods sent to a beneficiary.
type InventoryItem struct {
	ID            string
	Name          string
	Quantity      int
	BeneficiaryID string

	// DateSent is the Unix timestamp (midnight UTC) of the shipping date.
	DateSent  int64
	CreatedAt int64
}
