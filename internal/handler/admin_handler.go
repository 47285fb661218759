package handler

import (
	"net/http"
	"strconv"

	"busara/internal/middleware"
	"busara/internal/repository"

	"github.com/gin-gonic/gin"
)

// AdminHandler is the manual-review surface: open reconciliation flags and the
// raw intent list.
type AdminHandler struct {
	flags   *repository.ReviewFlagRepository
	intents *repository.PaymentIntentRepository
}

func NewAdminHandler(flags *repository.ReviewFlagRepository, intents *repository.PaymentIntentRepository) *AdminHandler {
	return &AdminHandler{flags: flags, intents: intents}
}

func (h *AdminHandler) ListReviewFlags(c *gin.Context) {
	flags, err := h.flags.ListOpen()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"flags": flags})
}

func (h *AdminHandler) ResolveReviewFlag(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.flags.Resolve(id, middleware.AdminEmail(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "resolve failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"resolved": true})
}

func (h *AdminHandler) ListPayments(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	intents, err := h.intents.List(limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": intents})
}
