package models

import (
	"time"

	"busara/internal/domain"
)

type EventRegistration struct {
	ID            uint                 `gorm:"primaryKey" json:"id"`
	EventID       uint                 `gorm:"not null;index" json:"event_id"`
	AttendeeName  string               `gorm:"size:200;not null" json:"attendee_name"`
	Email         string               `gorm:"size:255;not null" json:"email"`
	Phone         string               `gorm:"size:20" json:"phone"`
	AmountCents   int64                `gorm:"not null" json:"amount_cents"`
	PaymentStatus domain.PaymentStatus `gorm:"size:20;not null;index" json:"payment_status"`
	TicketCode    string               `gorm:"size:36;index" json:"ticket_code"`
	ConfirmedAt   *time.Time           `json:"confirmed_at"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

func (EventRegistration) TableName() string {
	return "event_registrations"
}
