package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"busara/internal/domain"
	"busara/internal/reconcile"
	"busara/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// mpesaCallback is the aggregator's payload after an STK push resolves.
type mpesaCallback struct {
	CheckoutRequestID string `json:"checkout_request_id"`
	ResultCode        string `json:"result_code"`
	ResultDescription string `json:"result_description"`
	Amount            string `json:"amount"`
	Currency          string `json:"currency"`
	CustomerPhone     string `json:"customer_phone"`
	ReceiptNumber     string `json:"receipt_number"`
	AccountReference  string `json:"account_reference"`
}

// MpesaWebhookHandler ingests aggregator callbacks for the push-poll rail. The
// callback races the status poller; both funnel into the reconciler, so
// whichever lands first wins and the other is a no-op.
type MpesaWebhookHandler struct {
	intents *repository.PaymentIntentRepository
	rec     *reconcile.Reconciler
	secret  string
	logger  *zap.Logger
}

func NewMpesaWebhookHandler(intents *repository.PaymentIntentRepository, rec *reconcile.Reconciler, secret string, logger *zap.Logger) *MpesaWebhookHandler {
	if secret == "" {
		logger.Warn("mpesa webhook secret not configured, callbacks will NOT be verified")
	}
	return &MpesaWebhookHandler{intents: intents, rec: rec, secret: secret, logger: logger}
}

func (h *MpesaWebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if h.secret != "" && !h.verifySignature(body, c.GetHeader("X-Webhook-Signature")) {
		h.logger.Warn("invalid webhook signature",
			zap.String("provider", "mpesa"),
			zap.String("ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}
	var payload mpesaCallback
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if payload.CheckoutRequestID == "" {
		h.logger.Warn("mpesa callback without checkout_request_id, acknowledging")
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}
	// The reference is the only value trusted from the callback; the owner is
	// resolved through the stored intent, never from the payload.
	intent, err := h.intents.GetByExternalRef(payload.CheckoutRequestID)
	if err != nil {
		h.logger.Warn("mpesa callback for unknown reference",
			zap.String("checkout_request_id", payload.CheckoutRequestID))
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	outcome := domain.OutcomeFailed
	if code, err := strconv.Atoi(payload.ResultCode); err == nil && code == 0 {
		outcome = domain.OutcomeSucceeded
	}
	amount := decimal.Zero
	if payload.Amount != "" {
		if a, err := decimal.NewFromString(payload.Amount); err == nil {
			amount = a
		}
	}
	if _, err := h.rec.Settle(c.Request.Context(), intent.ID, outcome, reconcile.ProviderResult{
		Amount:     amount,
		ResultDesc: payload.ResultDescription,
		PayerPhone: payload.CustomerPhone,
		Receipt:    payload.ReceiptNumber,
	}); err != nil {
		// Still acknowledge: the signal was received; reconciliation anomalies
		// are flagged internally, and a retry storm would not fix them.
		h.logger.Error("settle from webhook failed", zap.String("intent_id", intent.ID), zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *MpesaWebhookHandler) verifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}
