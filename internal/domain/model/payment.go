package model

import "time"

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Payment tracks one hosted-checkout session from creation to webhook
// confirmation. CreditAmount is granted to the ledger on success.
type Payment struct {
	ID           string
	UserID       string
	Provider     string
	SessionID    string
	CreditAmount int
	AmountCents  int64
	Currency     string
	Status       PaymentStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
