package txqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rdelrosario/sari-pos/pkg/db/models"
	"github.com/rdelrosario/sari-pos/pkg/enums"
	"gorm.io/gorm"
)

// ErrTransactionNotFound is returned when no queued row matches the txn id.
var ErrTransactionNotFound = errors.New("queued transaction not found")

// Queue is the durable FIFO of sales owed to the remote store. Rows live in
// the pending partition from the moment checkout confirms until the remote
// acknowledges them, across crashes and restarts.
type Queue struct {
	db *gorm.DB
}

// NewQueue builds the offline transaction queue over the local store.
func NewQueue(db *gorm.DB) (*Queue, error) {
	if db == nil {
		return nil, fmt.Errorf("local store required")
	}
	return &Queue{db: db}, nil
}

// Enqueue appends one composed transaction to the pending partition. This
// happens before any network attempt; the row survives a crash between
// checkout confirmation and remote acknowledgment.
func (q *Queue) Enqueue(ctx context.Context, txn *models.PosTransaction) error {
	if txn == nil {
		return fmt.Errorf("transaction required")
	}
	if txn.TxnID == "" {
		return fmt.Errorf("transaction id required")
	}
	txn.State = enums.TransactionStatePending
	if txn.EnqueuedAt.IsZero() {
		txn.EnqueuedAt = time.Now().UTC()
	}
	return q.db.WithContext(ctx).Create(txn).Error
}

// PeekAll returns every pending transaction, oldest first. Rows are not
// claimed or locked; callers remove or complete them individually.
func (q *Queue) PeekAll(ctx context.Context) ([]models.PosTransaction, error) {
	var rows []models.PosTransaction
	err := q.db.WithContext(ctx).
		Where("state = ?", enums.TransactionStatePending).
		Order("enqueued_at, txn_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Count reports how many sales are still owed to the remote store.
func (q *Queue) Count(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.WithContext(ctx).
		Model(&models.PosTransaction{}).
		Where("state = ?", enums.TransactionStatePending).
		Count(&count).Error
	return count, err
}

// MarkCompleted moves one acknowledged transaction out of the pending
// partition, recording when the remote accepted it.
func (q *Queue) MarkCompleted(ctx context.Context, txnID string, syncedAt time.Time) error {
	result := q.db.WithContext(ctx).
		Model(&models.PosTransaction{}).
		Where("txn_id = ? AND state = ?", txnID, enums.TransactionStatePending).
		Updates(map[string]any{
			"state":     enums.TransactionStateCompleted,
			"synced_at": syncedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

// Remove deletes one pending row outright. Used for operator-driven voids,
// not the normal sync path, which keeps acknowledged rows as completed.
func (q *Queue) Remove(ctx context.Context, txnID string) error {
	result := q.db.WithContext(ctx).
		Where("txn_id = ? AND state = ?", txnID, enums.TransactionStatePending).
		Delete(&models.PosTransaction{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

// FindByID loads one transaction from either partition.
func (q *Queue) FindByID(ctx context.Context, txnID string) (*models.PosTransaction, error) {
	var row models.PosTransaction
	err := q.db.WithContext(ctx).Where("txn_id = ?", txnID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &row, nil
}

// ListCompleted returns acknowledged sales, newest first, for receipts and
// end-of-day reporting.
func (q *Queue) ListCompleted(ctx context.Context, limit int) ([]models.PosTransaction, error) {
	query := q.db.WithContext(ctx).
		Where("state = ?", enums.TransactionStateCompleted).
		Order("sold_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.PosTransaction
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
