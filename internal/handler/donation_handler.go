package handler

import (
	"net/http"
	"strconv"

	"busara/internal/domain"
	"busara/internal/models"
	"busara/internal/repository"

	"github.com/gin-gonic/gin"
)

type DonationHandler struct {
	repo *repository.DonationRepository
}

func NewDonationHandler(repo *repository.DonationRepository) *DonationHandler {
	return &DonationHandler{repo: repo}
}

func (h *DonationHandler) Create(c *gin.Context) {
	var req struct {
		DonorName string `json:"donor_name"`
		Email     string `json:"email"`
		Phone     string `json:"phone"`
		AmountKES int64  `json:"amount_kes" binding:"required,min=1"`
		Message   string `json:"message"`
		Anonymous bool   `json:"anonymous"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	d := &models.Donation{
		DonorName:     req.DonorName,
		Email:         req.Email,
		Phone:         req.Phone,
		AmountCents:   req.AmountKES * 100,
		Currency:      "KES",
		Message:       req.Message,
		Anonymous:     req.Anonymous,
		PaymentStatus: domain.PaymentPending,
	}
	if err := h.repo.Create(d); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "donation create failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"donation": d,
		"message":  "Thank you. Complete payment to finish your donation.",
	})
}

func (h *DonationHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	d, err := h.repo.GetByID(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "donation not found"})
		return
	}
	c.JSON(http.StatusOK, d)
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}
