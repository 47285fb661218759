package models

import (
	"time"

	"busara/internal/domain"
)

type Membership struct {
	ID                uint                 `gorm:"primaryKey" json:"id"`
	MemberName        string               `gorm:"size:200;not null" json:"member_name"`
	Email             string               `gorm:"size:255;not null;index" json:"email"`
	Phone             string               `gorm:"size:20" json:"phone"`
	Tier              string               `gorm:"size:30;not null" json:"tier"` // INDIVIDUAL, STUDENT, INSTITUTION
	AmountCents       int64                `gorm:"not null" json:"amount_cents"`
	PaymentStatus     domain.PaymentStatus `gorm:"size:20;not null;index" json:"payment_status"`
	IsActive          bool                 `gorm:"default:false" json:"is_active"`
	SubscriptionStart *time.Time           `json:"subscription_start"`
	SubscriptionEnd   *time.Time           `json:"subscription_end"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

func (Membership) TableName() string {
	return "memberships"
}
