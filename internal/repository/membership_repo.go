package repository

import (
	"errors"

	"busara/internal/domain"
	"busara/internal/models"

	"gorm.io/gorm"
)

type MembershipRepository struct {
	db *gorm.DB
}

func NewMembershipRepository(db *gorm.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

func (r *MembershipRepository) Create(m *models.Membership) error {
	return r.db.Create(m).Error
}

func (r *MembershipRepository) GetByID(id uint) (*models.Membership, error) {
	var m models.Membership
	err := r.db.First(&m, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrOwnerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MembershipRepository) Update(m *models.Membership) error {
	return r.db.Save(m).Error
}
