package models

import "time"

// Notification is one dispatched (or attempted) message about a payment
// outcome. Persisted before sending so failed sends can be retried out of band.
type Notification struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	IntentID  string     `gorm:"size:36;index" json:"intent_id"`
	Recipient string     `gorm:"size:255;not null" json:"recipient"`
	Subject   string     `gorm:"size:255;not null" json:"subject"`
	Body      string     `gorm:"type:text" json:"body"`
	Sent      bool       `gorm:"default:false;index" json:"sent"`
	SentAt    *time.Time `json:"sent_at"`
	CreatedAt time.Time  `json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}
