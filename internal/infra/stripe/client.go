package stripe

import (
	"context"
	"strings"

	"classbook/internal/pkg/config"
	"classbook/internal/pkg/errs"
	"classbook/internal/usecase/commands"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
)

var (
	ErrAPIKeyRequired      = errs.New("stripe api key is required")
	ErrPriceLookupFailed   = errs.New("failed to look up drop-in price")
	ErrIntentCreateFailed  = errs.New("failed to create payment intent")
	ErrSignatureInvalid    = errs.New("webhook signature verification failed")
	ErrWebhookSecretNeeded = errs.New("stripe webhook secret is required")
)

// Gateway wraps Stripe's API client for drop-in settlement.
type Gateway struct {
	api           *client.API
	currency      string
	signingSecret string
}

func NewGateway(cfg config.StripeConfig) (*Gateway, error) {
	key := strings.TrimSpace(cfg.SecretKey)
	if key == "" {
		return nil, ErrAPIKeyRequired
	}
	secret := strings.TrimSpace(cfg.WebhookSecret)
	if secret == "" {
		return nil, ErrWebhookSecretNeeded
	}

	currency := cfg.Currency
	if currency == "" {
		currency = "usd"
	}

	return &Gateway{
		api:           client.New(key, nil),
		currency:      currency,
		signingSecret: secret,
	}, nil
}

// CreateDropInIntent creates one payment intent covering the whole booking
// request. The booking ids ride in the intent metadata so the webhook can
// find them without any shared state.
func (g *Gateway) CreateDropInIntent(ctx context.Context, req commands.DropInIntentRequest) (*commands.DropInIntent, error) {
	price, err := g.api.Prices.Get(req.PriceID, &stripe.PriceParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return nil, errs.Mark(err, ErrPriceLookupFailed)
	}

	quantity := int64(req.Quantity)
	if quantity < 1 {
		quantity = 1
	}
	amount := price.UnitAmount * quantity

	currency := g.currency
	if price.Currency != "" {
		currency = string(price.Currency)
	}

	params := &stripe.PaymentIntentParams{
		Params:   stripe.Params{Context: ctx},
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: map[string]string{
			"tenant_id":   req.TenantID.String(),
			"user_id":     req.UserID.String(),
			"booking_ids": joinBookingIDs(req.BookingIDs),
		},
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, errs.Mark(err, ErrIntentCreateFailed)
	}

	return &commands.DropInIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		AmountCents:  pi.Amount,
		Currency:     string(pi.Currency),
	}, nil
}

func joinBookingIDs(ids []uuid.UUID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ",")
}

// ParseBookingIDs recovers the booking ids from intent metadata. Malformed
// entries are skipped rather than failing the whole event.
func ParseBookingIDs(metadata map[string]string) []uuid.UUID {
	raw, ok := metadata["booking_ids"]
	if !ok || raw == "" {
		return nil
	}
	var ids []uuid.UUID
	for _, part := range strings.Split(raw, ",") {
		id, err := uuid.Parse(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// VerifyEvent checks the webhook signature and parses the event payload.
func (g *Gateway) VerifyEvent(payload []byte, signatureHeader string) (stripe.Event, error) {
	event, err := webhook.ConstructEvent(payload, signatureHeader, g.signingSecret)
	if err != nil {
		return stripe.Event{}, errs.Mark(err, ErrSignatureInvalid)
	}
	return event, nil
}
