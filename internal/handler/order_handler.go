package handler

import (
	"net/http"

	"busara/internal/domain"
	"busara/internal/models"
	"busara/internal/repository"

	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	repo *repository.OrderRepository
}

func NewOrderHandler(repo *repository.OrderRepository) *OrderHandler {
	return &OrderHandler{repo: repo}
}

// Create places a shop order in PENDING, reserving stock for each line item.
// Prices come from the catalogue, never from the request.
func (h *OrderHandler) Create(c *gin.Context) {
	var req struct {
		CustomerName string `json:"customer_name" binding:"required"`
		Email        string `json:"email" binding:"required,email"`
		Phone        string `json:"phone"`
		ShippingAddr string `json:"shipping_addr"`
		Items        []struct {
			ProductID uint `json:"product_id" binding:"required"`
			Quantity  int  `json:"quantity" binding:"required,min=1"`
		} `json:"items" binding:"required,min=1,dive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var items []models.OrderItem
	var total int64
	for _, it := range req.Items {
		p, err := h.repo.GetProduct(it.ProductID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		items = append(items, models.OrderItem{
			ProductID:  p.ID,
			Title:      p.Title,
			Quantity:   it.Quantity,
			PriceCents: p.PriceCents,
		})
		total += p.PriceCents * int64(it.Quantity)
	}
	o := &models.Order{
		CustomerName:  req.CustomerName,
		Email:         req.Email,
		Phone:         req.Phone,
		ShippingAddr:  req.ShippingAddr,
		TotalCents:    total,
		PaymentStatus: domain.PaymentPending,
		Items:         items,
	}
	if err := h.repo.CreateWithReservation(o); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"order":   o,
		"message": "Order placed. Complete payment to confirm.",
	})
}

func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	o, err := h.repo.GetByID(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}
	c.JSON(http.StatusOK, o)
}
