package catalog

import (
	"context"
	"errors"

	"github.com/rdelrosario/sari-pos/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrItemNotFound is returned when the cached catalog has no such item.
var ErrItemNotFound = errors.New("catalog item not found")

// Repository persists the locally cached catalog.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a catalog repository bound to the local store.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByID loads one cached item.
func (r *Repository) FindByID(ctx context.Context, itemID string) (*models.CatalogItem, error) {
	var item models.CatalogItem
	err := r.db.WithContext(ctx).Where("item_id = ?", itemID).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

// ListVisible returns the items a cashier can sell: anything with stock left.
// Items optimistically decremented to zero drop out until the next refresh.
func (r *Repository) ListVisible(ctx context.Context) ([]models.CatalogItem, error) {
	var items []models.CatalogItem
	err := r.db.WithContext(ctx).
		Where("quantity > 0").
		Order("category, name").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ReplaceAll refreshes the cache from an authoritative remote snapshot.
func (r *Repository) ReplaceAll(ctx context.Context, items []models.CatalogItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.CatalogItem{}).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
}

// Upsert inserts or refreshes one cached item.
func (r *Repository) Upsert(ctx context.Context, item models.CatalogItem) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "item_id"}},
			UpdateAll: true,
		}).
		Create(&item).Error
}

// DecrementFloorZero subtracts qty from the cached quantity, flooring at zero.
func (r *Repository) DecrementFloorZero(ctx context.Context, itemID string, qty int) error {
	if qty <= 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.CatalogItem{}).
		Where("item_id = ?", itemID).
		Update("quantity", gorm.Expr(
			"CASE WHEN quantity > ? THEN quantity - ? ELSE 0 END", qty, qty,
		)).Error
}

// Quantity reads the cached quantity for one item.
func (r *Repository) Quantity(ctx context.Context, itemID string) (int, error) {
	item, err := r.FindByID(ctx, itemID)
	if err != nil {
		return 0, err
	}
	return item.Quantity, nil
}
