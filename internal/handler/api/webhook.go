package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	infrastripe "classbook/internal/infra/stripe"
	"classbook/internal/pkg/errs"
	"classbook/internal/usecase/commands"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"
)

const maxWebhookBodyBytes = 65536

// EventVerifier checks a webhook payload's signature and decodes the event.
type EventVerifier interface {
	VerifyEvent(payload []byte, signatureHeader string) (stripe.Event, error)
}

type WebhookHandler struct {
	verifier     EventVerifier
	settlement   commands.SettlementCommands
	subscription commands.SubscriptionCommands
}

func NewWebhookHandler(
	verifier EventVerifier,
	settlement commands.SettlementCommands,
	subscription commands.SubscriptionCommands,
) *WebhookHandler {
	return &WebhookHandler{
		verifier:     verifier,
		settlement:   settlement,
		subscription: subscription,
	}
}

// HandleStripeEvent is the single intake for payment provider events.
// Unknown event types are acknowledged so the provider stops retrying them.
func (h *WebhookHandler) HandleStripeEvent(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Failed to read request body",
		})
		return
	}

	event, err := h.verifier.VerifyEvent(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Invalid webhook signature",
		})
		return
	}

	switch event.Type {
	case "payment_intent.succeeded":
		h.handlePaymentIntentSucceeded(c, event)
	case "customer.subscription.created",
		"customer.subscription.updated",
		"customer.subscription.deleted":
		h.handleSubscriptionEvent(c, event)
	default:
		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}

func (h *WebhookHandler) handlePaymentIntentSucceeded(c *gin.Context, event stripe.Event) {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Malformed payment intent payload",
		})
		return
	}

	bookingIDs := infrastripe.ParseBookingIDs(intent.Metadata)
	if len(bookingIDs) == 0 {
		// Not one of ours; acknowledge so the provider does not retry.
		slog.Warn("payment intent succeeded without booking metadata", "payment_intent_id", intent.ID)
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	// Unsettleable bookings (cancelled, missing, class filled first) are
	// skipped inside the use case; an error here is transient, and a 500
	// makes the provider redeliver.
	results, err := h.settlement.ConfirmPaymentIntent(c.Request.Context(), intent.ID, bookingIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to settle bookings",
		})
		return
	}

	if len(results) < len(bookingIDs) {
		slog.Warn("payment intent settled partially",
			"payment_intent_id", intent.ID,
			"settled", len(results),
			"referenced", len(bookingIDs))
	}
	c.JSON(http.StatusOK, gin.H{"received": true, "settled": len(results)})
}

func (h *WebhookHandler) handleSubscriptionEvent(c *gin.Context, event stripe.Event) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Malformed subscription payload",
		})
		return
	}

	cmdEvent, err := toSubscriptionEvent(&sub)
	if err != nil {
		slog.Warn("subscription event missing required metadata",
			"subscription_id", sub.ID, "error", err.Error())
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	result, err := h.subscription.ApplySubscriptionEvent(c.Request.Context(), *cmdEvent)
	if err != nil {
		if errs.Is(err, commands.ErrUnknownSubscriptionStatus) {
			slog.Warn("ignoring subscription event with unknown status",
				"subscription_id", sub.ID, "status", string(sub.Status))
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to apply subscription event",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"received":          true,
		"status":            string(result.Status),
		"cancelledBookings": result.CancelledBookings,
	})
}

// toSubscriptionEvent maps the provider payload onto the internal event.
// Tenant, user, and plan ids ride in subscription metadata, set when the
// subscription is created at checkout.
func toSubscriptionEvent(sub *stripe.Subscription) (*commands.SubscriptionEvent, error) {
	tenantID, err := uuid.Parse(sub.Metadata["tenant_id"])
	if err != nil {
		return nil, errors.New("missing or invalid tenant_id metadata")
	}
	userID, err := uuid.Parse(sub.Metadata["user_id"])
	if err != nil {
		return nil, errors.New("missing or invalid user_id metadata")
	}
	planID, err := uuid.Parse(sub.Metadata["plan_id"])
	if err != nil {
		return nil, errors.New("missing or invalid plan_id metadata")
	}

	var periodStart, periodEnd time.Time
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		periodStart = time.Unix(item.CurrentPeriodStart, 0).UTC()
		periodEnd = time.Unix(item.CurrentPeriodEnd, 0).UTC()
	}

	var cancelAt *time.Time
	if sub.CancelAt > 0 {
		t := time.Unix(sub.CancelAt, 0).UTC()
		cancelAt = &t
	}

	return &commands.SubscriptionEvent{
		ExternalID:         sub.ID,
		TenantID:           tenantID,
		UserID:             userID,
		PlanID:             planID,
		Status:             string(sub.Status),
		CurrentPeriodStart: periodStart,
		CurrentPeriodEnd:   periodEnd,
		CancelAt:           cancelAt,
	}, nil
}
