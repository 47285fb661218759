package models

import (
	"time"

	"busara/internal/domain"
)

// Order is a shop purchase (books, merchandise). Stock is reserved at
// creation, fulfilled on payment, released on failure.
type Order struct {
	ID            uint                 `gorm:"primaryKey" json:"id"`
	CustomerName  string               `gorm:"size:200;not null" json:"customer_name"`
	Email         string               `gorm:"size:255;not null" json:"email"`
	Phone         string               `gorm:"size:20" json:"phone"`
	ShippingAddr  string               `gorm:"type:text" json:"shipping_addr"`
	TotalCents    int64                `gorm:"not null" json:"total_cents"`
	PaymentStatus domain.PaymentStatus `gorm:"size:20;not null;index" json:"payment_status"`
	FulfilledAt   *time.Time           `json:"fulfilled_at"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
}

func (Order) TableName() string {
	return "orders"
}

type OrderItem struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	OrderID    uint   `gorm:"not null;index" json:"order_id"`
	ProductID  uint   `gorm:"not null;index" json:"product_id"`
	Title      string `gorm:"size:255;not null" json:"title"`
	Quantity   int    `gorm:"not null" json:"quantity"`
	PriceCents int64  `gorm:"not null" json:"price_cents"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

// Product carries shop stock. Reserved counts stock held by pending orders.
type Product struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Title      string    `gorm:"size:255;not null" json:"title"`
	PriceCents int64     `gorm:"not null" json:"price_cents"`
	Stock      int       `gorm:"not null;default:0" json:"stock"`
	Reserved   int       `gorm:"not null;default:0" json:"reserved"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Product) TableName() string {
	return "products"
}
