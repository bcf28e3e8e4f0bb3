package adapter

import "context"

// CheckoutSession is a hosted payment page created with the provider.
type CheckoutSession struct {
	ID  string
	URL string
}

// WebhookEvent is a provider notification, already signature-verified.
type WebhookEvent struct {
	Type         string
	SessionID    string
	UserID       string
	CreditAmount int
	AmountCents  int64
	Currency     string
}

// PaymentGateway is the port for the hosted checkout provider.
type PaymentGateway interface {
	Name() string
	// CreateCheckoutSession opens a hosted checkout for quantity credit units
	// on behalf of userID and returns the redirect URL.
	CreateCheckoutSession(ctx context.Context, userID string, quantity int) (*CheckoutSession, error)
	// ParseWebhook verifies the signature header and decodes the event.
	ParseWebhook(payload []byte, signatureHeader string) (*WebhookEvent, error)
}
