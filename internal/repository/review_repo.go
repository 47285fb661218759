package repository

import (
	"time"

	"busara/internal/models"

	"gorm.io/gorm"
)

type ReviewFlagRepository struct {
	db *gorm.DB
}

func NewReviewFlagRepository(db *gorm.DB) *ReviewFlagRepository {
	return &ReviewFlagRepository{db: db}
}

func (r *ReviewFlagRepository) Create(f *models.ReviewFlag) error {
	return r.db.Create(f).Error
}

func (r *ReviewFlagRepository) ListOpen() ([]models.ReviewFlag, error) {
	var flags []models.ReviewFlag
	err := r.db.Where("resolved = ?", false).Order("created_at asc").Find(&flags).Error
	return flags, err
}

func (r *ReviewFlagRepository) Resolve(id uint, resolvedBy string) error {
	now := time.Now()
	return r.db.Model(&models.ReviewFlag{}).Where("id = ?", id).Updates(map[string]interface{}{
		"resolved":    true,
		"resolved_by": resolvedBy,
		"resolved_at": &now,
	}).Error
}
