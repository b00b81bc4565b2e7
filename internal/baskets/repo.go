package baskets

import (
	"context"
	"errors"

	"github.com/rdelrosario/sari-pos/pkg/db/models"
	"github.com/rdelrosario/sari-pos/pkg/enums"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrBasketNotFound is returned when no cached basket matches the key.
var ErrBasketNotFound = errors.New("pending basket not found")

// ErrBasketAlreadyClaimed is returned when a cashier tries to claim a
// basket another till already turned into a sale.
var ErrBasketAlreadyClaimed = errors.New("pending basket already claimed")

// Repository caches requester-submitted baskets in the local store. Baskets
// are created externally and only consumed here: claimed at checkout, then
// removed once the resulting sale syncs.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds the pending basket repository over the local store.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByKey loads one cached basket.
func (r *Repository) FindByKey(ctx context.Context, basketKey string) (*models.PendingBasket, error) {
	var basket models.PendingBasket
	err := r.db.WithContext(ctx).Where("basket_key = ?", basketKey).First(&basket).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBasketNotFound
		}
		return nil, err
	}
	return &basket, nil
}

// ListPending returns unclaimed baskets in submission order.
func (r *Repository) ListPending(ctx context.Context) ([]models.PendingBasket, error) {
	var rows []models.PendingBasket
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.BasketStatusPending).
		Order("basket_number").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Upsert refreshes one cached basket from the shared remote pool.
func (r *Repository) Upsert(ctx context.Context, basket models.PendingBasket) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "basket_key"}},
			UpdateAll: true,
		}).
		Create(&basket).Error
}

// Claim marks a basket as consumed by a cashier. It succeeds exactly once
// per basket; a second claim reports the conflict instead of silently
// double-selling the same request.
func (r *Repository) Claim(ctx context.Context, basketKey string) (*models.PendingBasket, error) {
	basket, err := r.FindByKey(ctx, basketKey)
	if err != nil {
		return nil, err
	}
	result := r.db.WithContext(ctx).
		Model(&models.PendingBasket{}).
		Where("basket_key = ? AND status = ?", basketKey, enums.BasketStatusPending).
		Update("status", enums.BasketStatusClaimed)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrBasketAlreadyClaimed
	}
	basket.Status = enums.BasketStatusClaimed
	return basket, nil
}

// Remove drops a consumed basket from the cache. Called after the sale it
// produced has been acknowledged remotely; removing an absent key is a no-op
// so the sync path stays idempotent.
func (r *Repository) Remove(ctx context.Context, basketKey string) error {
	return r.db.WithContext(ctx).
		Where("basket_key = ?", basketKey).
		Delete(&models.PendingBasket{}).Error
}
