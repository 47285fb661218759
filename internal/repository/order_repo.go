package repository

import (
	"errors"
	"fmt"

	"busara/internal/domain"
	"busara/internal/models"

	"gorm.io/gorm"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// CreateWithReservation creates the order and reserves stock for every item in
// one transaction. Insufficient stock aborts the whole order.
func (r *OrderRepository) CreateWithReservation(o *models.Order) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		for _, item := range o.Items {
			res := tx.Model(&models.Product{}).
				Where("id = ? AND stock - reserved >= ?", item.ProductID, item.Quantity).
				Update("reserved", gorm.Expr("reserved + ?", item.Quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("insufficient stock for product %d", item.ProductID)
			}
		}
		return tx.Create(o).Error
	})
}

func (r *OrderRepository) GetByID(id uint) (*models.Order, error) {
	var o models.Order
	err := r.db.Preload("Items").First(&o, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrOwnerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) Update(o *models.Order) error {
	return r.db.Save(o).Error
}

// FulfillReservations converts the order's reserved stock into sold stock.
func (r *OrderRepository) FulfillReservations(orderID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var items []models.OrderItem
		if err := tx.Where("order_id = ?", orderID).Find(&items).Error; err != nil {
			return err
		}
		for _, item := range items {
			if err := tx.Model(&models.Product{}).
				Where("id = ?", item.ProductID).
				Updates(map[string]interface{}{
					"reserved": gorm.Expr("reserved - ?", item.Quantity),
					"stock":    gorm.Expr("stock - ?", item.Quantity),
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ReleaseReservations returns reserved stock to the pool after a failed or
// expired payment.
func (r *OrderRepository) ReleaseReservations(orderID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var items []models.OrderItem
		if err := tx.Where("order_id = ?", orderID).Find(&items).Error; err != nil {
			return err
		}
		for _, item := range items {
			if err := tx.Model(&models.Product{}).
				Where("id = ?", item.ProductID).
				Update("reserved", gorm.Expr("reserved - ?", item.Quantity)).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *OrderRepository) GetProduct(id uint) (*models.Product, error) {
	var p models.Product
	err := r.db.First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrOwnerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
