package repository

import (
	"time"

	"busara/internal/models"

	"gorm.io/gorm"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(n *models.Notification) error {
	return r.db.Create(n).Error
}

func (r *NotificationRepository) MarkSent(id uint) error {
	now := time.Now()
	return r.db.Model(&models.Notification{}).Where("id = ?", id).Updates(map[string]interface{}{
		"sent":    true,
		"sent_at": &now,
	}).Error
}

// ListUnsent feeds the out-of-band retry sweep.
func (r *NotificationRepository) ListUnsent(limit int) ([]models.Notification, error) {
	var ns []models.Notification
	err := r.db.Where("sent = ?", false).Order("created_at asc").Limit(limit).Find(&ns).Error
	return ns, err
}
