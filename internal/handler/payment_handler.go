package handler

import (
	"errors"
	"fmt"
	"net/http"

	"busara/internal/domain"
	"busara/internal/poller"
	"busara/internal/repository"
	"busara/pkg/payment"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PaymentHandler starts payments for an already-created owning entity and
// reports intent status. The entity is created pending by its own form
// endpoint first; payment references it by (owner_type, owner_id).
type PaymentHandler struct {
	intents       *repository.PaymentIntentRepository
	memberships   *repository.MembershipRepository
	donations     *repository.DonationRepository
	orders        *repository.OrderRepository
	registrations *repository.EventRegistrationRepository
	card          payment.CardCharger
	mpesa         payment.PushPoller
	watcher       *poller.Poller
	logger        *zap.Logger
}

func NewPaymentHandler(
	intents *repository.PaymentIntentRepository,
	memberships *repository.MembershipRepository,
	donations *repository.DonationRepository,
	orders *repository.OrderRepository,
	registrations *repository.EventRegistrationRepository,
	card payment.CardCharger,
	mpesa payment.PushPoller,
	watcher *poller.Poller,
	logger *zap.Logger,
) *PaymentHandler {
	return &PaymentHandler{
		intents:       intents,
		memberships:   memberships,
		donations:     donations,
		orders:        orders,
		registrations: registrations,
		card:          card,
		mpesa:         mpesa,
		watcher:       watcher,
		logger:        logger,
	}
}

type initiateRequest struct {
	OwnerType string `json:"owner_type" binding:"required,oneof=membership donation order event_registration"`
	OwnerID   uint   `json:"owner_id" binding:"required"`
	Phone     string `json:"phone"`
}

// ownerAmount resolves the entity behind (ownerType, ownerID) and returns its
// charge amount. Only pending entities may start a payment.
func (h *PaymentHandler) ownerAmount(kind domain.OwnerKind, id uint) (int64, error) {
	switch kind {
	case domain.OwnerMembership:
		m, err := h.memberships.GetByID(id)
		if err != nil {
			return 0, err
		}
		if m.PaymentStatus != domain.PaymentPending {
			return 0, fmt.Errorf("membership %d is not pending payment", id)
		}
		return m.AmountCents, nil
	case domain.OwnerDonation:
		d, err := h.donations.GetByID(id)
		if err != nil {
			return 0, err
		}
		if d.PaymentStatus != domain.PaymentPending {
			return 0, fmt.Errorf("donation %d is not pending payment", id)
		}
		return d.AmountCents, nil
	case domain.OwnerOrder:
		o, err := h.orders.GetByID(id)
		if err != nil {
			return 0, err
		}
		if o.PaymentStatus != domain.PaymentPending {
			return 0, fmt.Errorf("order %d is not pending payment", id)
		}
		return o.TotalCents, nil
	case domain.OwnerEventRegistration:
		reg, err := h.registrations.GetByID(id)
		if err != nil {
			return 0, err
		}
		if reg.PaymentStatus != domain.PaymentPending {
			return 0, fmt.Errorf("registration %d is not pending payment", id)
		}
		return reg.AmountCents, nil
	}
	return 0, domain.ErrUnknownOwner
}

// InitiateCard creates an intent on the push-confirm rail and returns the
// client secret the payer's browser confirms with. Resolution arrives on the
// card webhook.
func (h *PaymentHandler) InitiateCard(c *gin.Context) {
	var req initiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	kind := domain.OwnerKind(req.OwnerType)
	amount, err := h.ownerAmount(kind, req.OwnerID)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, domain.ErrOwnerNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	intent, err := h.intents.Create(kind, req.OwnerID, amount, "KES", domain.ProviderCard)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicatePendingIntent) {
			c.JSON(http.StatusConflict, gin.H{"error": "a payment for this item is already in progress"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "payment could not be started"})
		return
	}
	ci, err := h.card.CreateIntent(c.Request.Context(), amount, "KES", map[string]string{
		"intent_id":         intent.ID,
		"account_reference": fmt.Sprintf("%s_%d", kind, req.OwnerID),
	})
	if err != nil {
		h.logger.Error("card intent create failed", zap.String("intent_id", intent.ID), zap.Error(err))
		_ = h.intents.Transition(intent.ID, domain.IntentFailed, "provider rejected intent creation")
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment provider unavailable, try again", "intent_id": intent.ID})
		return
	}
	if err := h.intents.AttachExternalRef(intent.ID, ci.ExternalRef); err != nil {
		h.logger.Error("external ref attach failed", zap.String("intent_id", intent.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "payment could not be started", "intent_id": intent.ID})
		return
	}
	if err := h.intents.Transition(intent.ID, domain.IntentProviderAccepted, ""); err != nil {
		h.logger.Error("transition to provider_accepted failed", zap.String("intent_id", intent.ID), zap.Error(err))
	}
	c.JSON(http.StatusCreated, gin.H{
		"intent_id":     intent.ID,
		"client_secret": ci.ClientSecret,
		"amount_cents":  amount,
		"currency":      "KES",
		"status":        "processing",
	})
}

// InitiateMpesa creates an intent on the push-poll rail, sends the STK prompt,
// and arms the server-side poller. Returns 202 immediately; the caller tracks
// progress on GET /payments/:id.
func (h *PaymentHandler) InitiateMpesa(c *gin.Context) {
	var req initiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	phone, err := payment.NormalizePhone(req.Phone)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone is not a valid subscriber number"})
		return
	}
	kind := domain.OwnerKind(req.OwnerType)
	amount, err := h.ownerAmount(kind, req.OwnerID)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, domain.ErrOwnerNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	intent, err := h.intents.Create(kind, req.OwnerID, amount, "KES", domain.ProviderMpesa)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicatePendingIntent) {
			c.JSON(http.StatusConflict, gin.H{"error": "a payment for this item is already in progress"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "payment could not be started"})
		return
	}
	resp, err := h.mpesa.InitiatePush(c.Request.Context(), payment.PushRequest{
		Phone:            phone,
		AmountCents:      amount,
		Currency:         "KES",
		AccountReference: fmt.Sprintf("%s_%d", kind, req.OwnerID),
		Description:      fmt.Sprintf("Busara Trust %s payment", kind),
	})
	if err != nil {
		h.logger.Error("stk push failed", zap.String("intent_id", intent.ID), zap.Error(err))
		_ = h.intents.Transition(intent.ID, domain.IntentFailed, "push initiation failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment provider unavailable, try again", "intent_id": intent.ID})
		return
	}
	if err := h.intents.AttachExternalRef(intent.ID, resp.ExternalRef); err != nil {
		h.logger.Error("external ref attach failed", zap.String("intent_id", intent.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "payment could not be started", "intent_id": intent.ID})
		return
	}
	if err := h.intents.Transition(intent.ID, domain.IntentProviderAccepted, ""); err != nil {
		h.logger.Error("transition to provider_accepted failed", zap.String("intent_id", intent.ID), zap.Error(err))
	}
	h.watcher.Watch(intent.ID, resp.ExternalRef)
	c.JSON(http.StatusAccepted, gin.H{
		"intent_id": intent.ID,
		"status":    "processing",
		"message":   "Check your phone and enter your M-Pesa PIN to complete payment.",
	})
}

// Status reports the caller-facing view of an intent: processing, succeeded,
// failed, or timeout. Provider error text is never relayed.
func (h *PaymentHandler) Status(c *gin.Context) {
	intent, err := h.intents.GetByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"intent_id": intent.ID,
		"status":    publicStatus(intent.Status),
	})
}

// CancelWatch stops the server-side poll for an intent when the owning session
// is torn down. The intent itself stays live; a webhook can still resolve it.
func (h *PaymentHandler) CancelWatch(c *gin.Context) {
	intent, err := h.intents.GetByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
		return
	}
	h.watcher.Cancel(intent.ID)
	c.JSON(http.StatusOK, gin.H{"intent_id": intent.ID, "status": publicStatus(intent.Status)})
}

func publicStatus(s domain.IntentStatus) string {
	switch s {
	case domain.IntentSucceeded:
		return "succeeded"
	case domain.IntentFailed:
		return "failed"
	case domain.IntentExpired:
		return "timeout"
	}
	return "processing"
}
