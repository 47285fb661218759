package handler

import (
	"net/http"

	"busara/internal/domain"
	"busara/internal/models"
	"busara/internal/repository"

	"github.com/gin-gonic/gin"
)

// Annual membership fees in KES cents per tier.
var membershipFees = map[string]int64{
	"INDIVIDUAL":  250000,
	"STUDENT":     100000,
	"INSTITUTION": 1000000,
}

type MembershipHandler struct {
	repo *repository.MembershipRepository
}

func NewMembershipHandler(repo *repository.MembershipRepository) *MembershipHandler {
	return &MembershipHandler{repo: repo}
}

// Create registers a membership application in PENDING. Activation happens
// only through payment reconciliation.
func (h *MembershipHandler) Create(c *gin.Context) {
	var req struct {
		MemberName string `json:"member_name" binding:"required"`
		Email      string `json:"email" binding:"required,email"`
		Phone      string `json:"phone"`
		Tier       string `json:"tier" binding:"required,oneof=INDIVIDUAL STUDENT INSTITUTION"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	m := &models.Membership{
		MemberName:    req.MemberName,
		Email:         req.Email,
		Phone:         req.Phone,
		Tier:          req.Tier,
		AmountCents:   membershipFees[req.Tier],
		PaymentStatus: domain.PaymentPending,
	}
	if err := h.repo.Create(m); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership create failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"membership":   m,
		"amount_cents": m.AmountCents,
		"message":      "Membership recorded. Complete payment to activate.",
	})
}

func (h *MembershipHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	m, err := h.repo.GetByID(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "membership not found"})
		return
	}
	c.JSON(http.StatusOK, m)
}
