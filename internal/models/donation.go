package models

import (
	"time"

	"busara/internal/domain"
)

type Donation struct {
	ID            uint                 `gorm:"primaryKey" json:"id"`
	DonorName     string               `gorm:"size:200" json:"donor_name"`
	Email         string               `gorm:"size:255" json:"email"`
	Phone         string               `gorm:"size:20" json:"phone"`
	AmountCents   int64                `gorm:"not null" json:"amount_cents"`
	Currency      string               `gorm:"size:3;default:'KES'" json:"currency"`
	Message       string               `gorm:"type:text" json:"message"`
	Anonymous     bool                 `gorm:"default:false" json:"anonymous"`
	PaymentStatus domain.PaymentStatus `gorm:"size:20;not null;index" json:"payment_status"`
	Processed     bool                 `gorm:"default:false" json:"processed"`
	ProcessedAt   *time.Time           `json:"processed_at"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

func (Donation) TableName() string {
	return "donations"
}
