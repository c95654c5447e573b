package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/easydigitaldownloads/edd-campaign-tracker/internal/models"

	"gorm.io/gorm"
)

// OrderMetaRepository reads and writes per-order metadata rows. Each key is
// expected to appear at most once per order.
type OrderMetaRepository struct {
	db *gorm.DB
}

func NewOrderMetaRepository(db *gorm.DB) *OrderMetaRepository {
	return &OrderMetaRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *OrderMetaRepository) WithTx(tx *gorm.DB) *OrderMetaRepository {
	return &OrderMetaRepository{db: tx}
}

// Transaction runs fn with a repository bound to a single transaction.
func (r *OrderMetaRepository) Transaction(ctx context.Context, fn func(repo *OrderMetaRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}

// Get returns the value stored under key for the order. ok is false when
// no row exists.
func (r *OrderMetaRepository) Get(ctx context.Context, orderID uint, key string) (value string, ok bool, err error) {
	var meta models.OrderMeta
	err = r.db.WithContext(ctx).
		Where("order_id = ? AND meta_key = ?", orderID, key).
		Order("id asc").
		First(&meta).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read order meta %q for order %d: %w", key, orderID, err)
	}
	return meta.MetaValue, true, nil
}

// Exists reports whether the order has a row for key.
func (r *OrderMetaRepository) Exists(ctx context.Context, orderID uint, key string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.OrderMeta{}).
		Where("order_id = ? AND meta_key = ?", orderID, key).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check order meta %q for order %d: %w", key, orderID, err)
	}
	return count > 0, nil
}

// Add inserts a new row for key.
func (r *OrderMetaRepository) Add(ctx context.Context, orderID uint, key, value string) error {
	meta := models.OrderMeta{OrderID: orderID, MetaKey: key, MetaValue: value}
	if err := r.db.WithContext(ctx).Create(&meta).Error; err != nil {
		return fmt.Errorf("failed to add order meta %q for order %d: %w", key, orderID, err)
	}
	return nil
}

// Update overwrites the row for key, inserting it when missing.
func (r *OrderMetaRepository) Update(ctx context.Context, orderID uint, key, value string) error {
	res := r.db.WithContext(ctx).Model(&models.OrderMeta{}).
		Where("order_id = ? AND meta_key = ?", orderID, key).
		Update("meta_value", value)
	if res.Error != nil {
		return fmt.Errorf("failed to update order meta %q for order %d: %w", key, orderID, res.Error)
	}
	if res.RowsAffected == 0 {
		return r.Add(ctx, orderID, key, value)
	}
	return nil
}

// Delete removes every row for key.
func (r *OrderMetaRepository) Delete(ctx context.Context, orderID uint, key string) error {
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND meta_key = ?", orderID, key).
		Delete(&models.OrderMeta{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete order meta %q for order %d: %w", key, orderID, err)
	}
	return nil
}

// OrderIDsWithKey lists the orders that have a row for key and whose value
// contains substr. An empty substr matches every value.
func (r *OrderMetaRepository) OrderIDsWithKey(ctx context.Context, key, substr string) ([]uint, error) {
	q := r.db.WithContext(ctx).Model(&models.OrderMeta{}).Where("meta_key = ?", key)
	if substr != "" {
		q = q.Where("meta_value LIKE ?", "%"+substr+"%")
	}

	var ids []uint
	if err := q.Distinct().Order("order_id asc").Pluck("order_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders with meta %q: %w", key, err)
	}
	return ids, nil
}
