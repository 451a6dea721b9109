package payments

import "context"

// Intent is a provider-side record authorizing a single charge attempt.
type Intent struct {
	ID           string
	ClientSecret string
}

// Event is a verified provider webhook notification.
type Event struct {
	Type     string
	IntentID string
	Metadata map[string]string
}

const EventPaymentSucceeded = "payment_intent.succeeded"

// Gateway abstracts the payment provider. One instance is constructed at
// startup and injected; nothing holds a package-level client.
type Gateway interface {
	CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*Intent, error)
	// VerifyEvent authenticates a webhook payload against the shared secret
	// before any of its contents are trusted. Returns
	// domain.ErrInvalidSignature (wrapped) on failure.
	VerifyEvent(payload []byte, signature string) (*Event, error)
}
