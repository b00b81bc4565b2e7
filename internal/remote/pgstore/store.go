package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rdelrosario/sari-pos/pkg/db/models"
	"github.com/rdelrosario/sari-pos/pkg/enums"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TransactionStore is the authoritative ledger of accepted sales.
type TransactionStore struct {
	db *gorm.DB
}

// NewTransactionStore builds the remote transaction store.
func NewTransactionStore(db *gorm.DB) (*TransactionStore, error) {
	if db == nil {
		return nil, fmt.Errorf("remote db required")
	}
	return &TransactionStore{db: db}, nil
}

// PutIfAbsent writes one sale keyed by its transaction id. A record that
// already exists is left untouched and reported as not inserted, which is
// what makes replaying a half-synced transaction safe.
func (s *TransactionStore) PutIfAbsent(ctx context.Context, txn *models.PosTransaction) (bool, error) {
	if txn == nil || txn.TxnID == "" {
		return false, fmt.Errorf("transaction with id required")
	}
	record := *txn
	record.State = enums.TransactionStateCompleted
	now := time.Now().UTC()
	record.SyncedAt = &now

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "txn_id"}},
			DoNothing: true,
		}).
		Create(&record)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// BasketStore manages the shared pool of requester-submitted baskets.
type BasketStore struct {
	db *gorm.DB
}

// NewBasketStore builds the remote basket store.
func NewBasketStore(db *gorm.DB) (*BasketStore, error) {
	if db == nil {
		return nil, fmt.Errorf("remote db required")
	}
	return &BasketStore{db: db}, nil
}

// Remove retires a consumed basket from the shared pool. Removing a basket
// that is already gone is a no-op so sync replays stay idempotent.
func (s *BasketStore) Remove(ctx context.Context, basketKey string) error {
	return s.db.WithContext(ctx).
		Where("basket_key = ?", basketKey).
		Delete(&models.PendingBasket{}).Error
}

// ListPending returns the unclaimed baskets, oldest request first, for
// refreshing the local cache.
func (s *BasketStore) ListPending(ctx context.Context) ([]models.PendingBasket, error) {
	var rows []models.PendingBasket
	err := s.db.WithContext(ctx).
		Where("status = ?", enums.BasketStatusPending).
		Order("basket_number").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// StockStore is the authoritative inventory collaborator.
type StockStore struct {
	db *gorm.DB
}

// NewStockStore builds the remote stock store.
func NewStockStore(db *gorm.DB) (*StockStore, error) {
	if db == nil {
		return nil, fmt.Errorf("remote db required")
	}
	return &StockStore{db: db}, nil
}

// CurrentQuantity reads the authoritative quantity for one item.
func (s *StockStore) CurrentQuantity(ctx context.Context, category, itemID string) (int, error) {
	var item models.CatalogItem
	err := s.db.WithContext(ctx).
		Where("item_id = ? AND category = ?", itemID, category).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return item.Quantity, nil
}

// Deduct subtracts a sold amount from the authoritative quantity. The guard
// in the WHERE clause makes over-deduction a rejection instead of a negative
// quantity; the reason and actor travel with the log line the caller emits.
func (s *StockStore) Deduct(ctx context.Context, category, itemID string, amount int, reason, actor string) (bool, error) {
	if amount <= 0 {
		return false, fmt.Errorf("deduct amount must be positive, got %d", amount)
	}
	result := s.db.WithContext(ctx).
		Model(&models.CatalogItem{}).
		Where("item_id = ? AND category = ? AND quantity >= ?", itemID, category, amount).
		Update("quantity", gorm.Expr("quantity - ?", amount))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Catalog returns the full authoritative catalog for cache refreshes.
func (s *StockStore) Catalog(ctx context.Context) ([]models.CatalogItem, error) {
	var items []models.CatalogItem
	err := s.db.WithContext(ctx).
		Order("category, name").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
