package models

import "time"

// ReviewFlag records a reconciliation anomaly (amount mismatch, failed owner
// activation) for manual review. The owning entity is not activated when the
// flag is written.
type ReviewFlag struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	IntentID     string     `gorm:"size:36;not null;index" json:"intent_id"`
	Reason       string     `gorm:"size:50;not null" json:"reason"` // AMOUNT_MISMATCH, ACTIVATION_ERROR
	Detail       string     `gorm:"type:text" json:"detail"`
	Resolved     bool       `gorm:"default:false;index" json:"resolved"`
	ResolvedBy   string     `gorm:"size:100" json:"resolved_by"`
	ResolvedAt   *time.Time `json:"resolved_at"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (ReviewFlag) TableName() string {
	return "review_flags"
}
