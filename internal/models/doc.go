// Package models defines the core domain models for giveback.
//
// # Entities
//
//   - User: registered account; takes part in donations as a donor
//   - Organization: a cause that receives donations and owns beneficiaries
//   - Donation: a pledge or card payment made to an organization
//   - Beneficiary: a recipient of in-kind goods, owned by an organization
//   - InventoryItem: goods sent to a beneficiary
//   - PaymentEvent: a verified payment processor notification that was applied
//
// # Design Principles
//
//  1. Relationships are ID strings, not pointers, so models stay flat and
//     storage code owns all joins.
//  2. Money is int64 minor units plus an ISO 4217 currency code. Conversion from
//     user-entered decimal amounts lives in the calculator package.
//  3. Timestamps are Unix seconds.
//
// # Donation lifecycle
//
// A donation is created pending and moves to completed exactly once, when a
// verified payment-succeeded event is reconciled against it:
//
//	pending --(payment_intent.succeeded)--> completed
package models
