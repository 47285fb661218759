package repository

import (
	"errors"

	"busara/internal/domain"
	"busara/internal/models"

	"gorm.io/gorm"
)

type DonationRepository struct {
	db *gorm.DB
}

func NewDonationRepository(db *gorm.DB) *DonationRepository {
	return &DonationRepository{db: db}
}

func (r *DonationRepository) Create(d *models.Donation) error {
	return r.db.Create(d).Error
}

func (r *DonationRepository) GetByID(id uint) (*models.Donation, error) {
	var d models.Donation
	err := r.db.First(&d, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrOwnerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DonationRepository) Update(d *models.Donation) error {
	return r.db.Save(d).Error
}
