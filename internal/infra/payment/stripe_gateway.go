package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"essaygenius/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*StripeGateway)(nil)

// WebhookTolerance bounds the age of a signed webhook payload.
const WebhookTolerance = 5 * time.Minute

var (
	ErrBadSignature   = errors.New("stripe: webhook signature mismatch")
	ErrStaleTimestamp = errors.New("stripe: webhook timestamp outside tolerance")
)

// StripeGateway implements PaymentGateway over the Stripe REST API with
// form-encoded requests. Checkout mode is one-off payment for credit packs.
type StripeGateway struct {
	secretKey     string
	priceID       string
	webhookSecret string
	frontendURL   string
	baseURL       string
	client        *http.Client
	now           func() time.Time
}

func NewStripeGateway(secretKey, priceID, webhookSecret, frontendURL string) *StripeGateway {
	return &StripeGateway{
		secretKey:     secretKey,
		priceID:       priceID,
		webhookSecret: webhookSecret,
		frontendURL:   strings.TrimRight(frontendURL, "/"),
		baseURL:       "https://api.stripe.com/v1",
		client:        &http.Client{Timeout: 30 * time.Second},
		now:           time.Now,
	}
}

func (g *StripeGateway) Name() string { return "stripe" }

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, userID string, quantity int) (*adapter.CheckoutSession, error) {
	if quantity <= 0 {
		return nil, errors.New("stripe: quantity must be positive")
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("line_items[0][price]", g.priceID)
	form.Set("line_items[0][quantity]", strconv.Itoa(quantity))
	form.Set("success_url", g.frontendURL+"/payment-success?session_id={CHECKOUT_SESSION_ID}")
	form.Set("cancel_url", g.frontendURL+"/payment-cancelled")
	form.Set("metadata[user_id]", userID)
	form.Set("metadata[credit_amount]", strconv.Itoa(quantity))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+g.secretKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stripe: create session: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.Unmarshal(body, &apiErr)
		return nil, fmt.Errorf("stripe http %d: %s", resp.StatusCode, apiErr.Error.Message)
	}

	var session struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, err
	}
	return &adapter.CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

// ParseWebhook verifies the Stripe-Signature header (t=...,v1=... with an
// HMAC-SHA256 over "{t}.{payload}") and decodes checkout.session.completed
// events. Other event types come back with an empty SessionID and can be
// acknowledged without action.
func (g *StripeGateway) ParseWebhook(payload []byte, signatureHeader string) (*adapter.WebhookEvent, error) {
	ts, sigs, err := parseSignatureHeader(signatureHeader)
	if err != nil {
		return nil, err
	}

	age := g.now().Sub(time.Unix(ts, 0))
	if age > WebhookTolerance || age < -WebhookTolerance {
		return nil, ErrStaleTimestamp
	}

	signed := strconv.FormatInt(ts, 10) + "." + string(payload)
	mac := hmac.New(sha256.New, []byte(g.webhookSecret))
	mac.Write([]byte(signed))
	expected := hex.EncodeToString(mac.Sum(nil))

	ok := false
	for _, s := range sigs {
		if subtle.ConstantTimeCompare([]byte(s), []byte(expected)) == 1 {
			ok = true
			break
		}
	}
	if !ok {
		return nil, ErrBadSignature
	}

	var event struct {
		Type string `json:"type"`
		Data struct {
			Object struct {
				ID          string `json:"id"`
				AmountTotal int64  `json:"amount_total"`
				Currency    string `json:"currency"`
				Metadata    struct {
					UserID       string `json:"user_id"`
					CreditAmount string `json:"credit_amount"`
				} `json:"metadata"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("stripe: decode event: %w", err)
	}

	out := &adapter.WebhookEvent{Type: event.Type}
	if event.Type != "checkout.session.completed" {
		return out, nil
	}

	credits, err := strconv.Atoi(event.Data.Object.Metadata.CreditAmount)
	if err != nil {
		return nil, fmt.Errorf("stripe: bad credit_amount metadata: %w", err)
	}
	out.SessionID = event.Data.Object.ID
	out.UserID = event.Data.Object.Metadata.UserID
	out.CreditAmount = credits
	out.AmountCents = event.Data.Object.AmountTotal
	out.Currency = event.Data.Object.Currency
	return out, nil
}

func parseSignatureHeader(header string) (ts int64, v1 []string, err error) {
	if header == "" {
		return 0, nil, errors.New("stripe: missing signature header")
	}
	for _, part := range strings.Split(header, ",") {
		k, v, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch k {
		case "t":
			ts, err = strconv.ParseInt(v, 10, 64)
			if err != nil {
				return 0, nil, errors.New("stripe: bad signature timestamp")
			}
		case "v1":
			v1 = append(v1, v)
		}
	}
	if ts == 0 || len(v1) == 0 {
		return 0, nil, errors.New("stripe: malformed signature header")
	}
	return ts, v1, nil
}
