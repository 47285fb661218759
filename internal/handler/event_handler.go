package handler

import (
	"net/http"

	"busara/internal/domain"
	"busara/internal/models"
	"busara/internal/repository"

	"github.com/gin-gonic/gin"
)

type EventRegistrationHandler struct {
	repo *repository.EventRegistrationRepository
}

func NewEventRegistrationHandler(repo *repository.EventRegistrationRepository) *EventRegistrationHandler {
	return &EventRegistrationHandler{repo: repo}
}

// Create registers an attendee for a paid event in PENDING. The ticket is
// issued only when reconciliation confirms payment.
func (h *EventRegistrationHandler) Create(c *gin.Context) {
	var req struct {
		EventID      uint   `json:"event_id" binding:"required"`
		AttendeeName string `json:"attendee_name" binding:"required"`
		Email        string `json:"email" binding:"required,email"`
		Phone        string `json:"phone"`
		AmountKES    int64  `json:"amount_kes" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reg := &models.EventRegistration{
		EventID:       req.EventID,
		AttendeeName:  req.AttendeeName,
		Email:         req.Email,
		Phone:         req.Phone,
		AmountCents:   req.AmountKES * 100,
		PaymentStatus: domain.PaymentPending,
	}
	if err := h.repo.Create(reg); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration create failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"registration": reg,
		"message":      "Registration recorded. Complete payment to confirm your ticket.",
	})
}

func (h *EventRegistrationHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	reg, err := h.repo.GetByID(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "registration not found"})
		return
	}
	c.JSON(http.StatusOK, reg)
}
