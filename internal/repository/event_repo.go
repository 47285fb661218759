package repository

import (
	"errors"

	"busara/internal/domain"
	"busara/internal/models"

	"gorm.io/gorm"
)

type EventRegistrationRepository struct {
	db *gorm.DB
}

func NewEventRegistrationRepository(db *gorm.DB) *EventRegistrationRepository {
	return &EventRegistrationRepository{db: db}
}

func (r *EventRegistrationRepository) Create(reg *models.EventRegistration) error {
	return r.db.Create(reg).Error
}

func (r *EventRegistrationRepository) GetByID(id uint) (*models.EventRegistration, error) {
	var reg models.EventRegistration
	err := r.db.First(&reg, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrOwnerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *EventRegistrationRepository) Update(reg *models.EventRegistration) error {
	return r.db.Save(reg).Error
}
