package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"busara/internal/domain"
	"busara/internal/reconcile"
	"busara/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"
)

// CardWebhookHandler ingests Stripe events for the push-confirm rail. The
// signature is verified before the body is parsed; unverified callbacks are
// never processed.
type CardWebhookHandler struct {
	intents       *repository.PaymentIntentRepository
	rec           *reconcile.Reconciler
	signingSecret string
	logger        *zap.Logger
}

func NewCardWebhookHandler(intents *repository.PaymentIntentRepository, rec *reconcile.Reconciler, signingSecret string, logger *zap.Logger) *CardWebhookHandler {
	return &CardWebhookHandler{intents: intents, rec: rec, signingSecret: signingSecret, logger: logger}
}

func (h *CardWebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	event, err := webhook.ConstructEvent(body, c.GetHeader("Stripe-Signature"), h.signingSecret)
	if err != nil {
		h.logger.Warn("invalid webhook signature",
			zap.String("provider", "card"),
			zap.String("ip", c.ClientIP()),
			zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	switch event.Type {
	case "payment_intent.succeeded", "payment_intent.payment_failed":
	default:
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event payload"})
		return
	}
	intent, err := h.intents.GetByExternalRef(pi.ID)
	if err != nil {
		h.logger.Warn("card event for unknown reference", zap.String("external_ref", pi.ID))
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	outcome := domain.OutcomeFailed
	desc := string(pi.Status)
	amount := decimal.Zero
	if event.Type == "payment_intent.succeeded" {
		outcome = domain.OutcomeSucceeded
		amount = decimal.NewFromInt(pi.AmountReceived).Div(decimal.NewFromInt(100))
	} else if pi.LastPaymentError != nil {
		desc = string(pi.LastPaymentError.Code)
	}
	if _, err := h.rec.Settle(c.Request.Context(), intent.ID, outcome, reconcile.ProviderResult{
		Amount:     amount,
		ResultDesc: desc,
	}); err != nil {
		h.logger.Error("settle from webhook failed", zap.String("intent_id", intent.ID), zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
