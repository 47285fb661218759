package models

import (
	"time"

	"busara/internal/domain"
)

// PaymentIntent is the durable record of one attempt to collect an amount for
// one owning entity. ExternalRef is the provider-assigned id, unknown until the
// provider acknowledges the request, immutable once set; it is the only value
// trusted from inbound provider signals.
type PaymentIntent struct {
	ID          string              `gorm:"primaryKey;size:36" json:"id"`
	Provider    string              `gorm:"size:20;not null;index" json:"provider"`
	ExternalRef *string             `gorm:"size:255;uniqueIndex" json:"external_ref"`
	AmountCents int64               `gorm:"not null" json:"amount_cents"`
	Currency    string              `gorm:"size:3;default:'KES'" json:"currency"`
	OwnerType   domain.OwnerKind    `gorm:"size:30;not null;index:idx_intent_owner" json:"owner_type"`
	OwnerID     uint                `gorm:"not null;index:idx_intent_owner" json:"owner_id"`
	Status      domain.IntentStatus `gorm:"size:20;not null;index" json:"status"`
	ResultDesc  string              `gorm:"size:255" json:"result_desc"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	ResolvedAt  *time.Time          `json:"resolved_at"`
}

func (PaymentIntent) TableName() string {
	return "payment_intents"
}
