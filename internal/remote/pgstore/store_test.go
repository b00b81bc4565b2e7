package pgstore

import (
	"context"
	"testing"
	"time"

	"github.com/rdelrosario/sari-pos/pkg/db/models"
	"github.com/rdelrosario/sari-pos/pkg/enums"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.PosTransaction{}, &models.PendingBasket{}, &models.CatalogItem{}))
	return conn
}

func TestPutIfAbsentIsIdempotent(t *testing.T) {
	store, err := NewTransactionStore(newTestDB(t))
	require.NoError(t, err)
	ctx := context.Background()

	txn := &models.PosTransaction{
		TxnID:           "t-1",
		State:           enums.TransactionStatePending,
		StaffID:         "staff-1",
		DeviceID:        "till-1",
		GrandTotalCents: 5000,
		SoldAt:          time.Now().UTC(),
		EnqueuedAt:      time.Now().UTC(),
	}

	inserted, err := store.PutIfAbsent(ctx, txn)
	require.NoError(t, err)
	require.True(t, inserted, "first put should insert")

	// Replay after a simulated crash between remote write and local removal.
	replay := *txn
	replay.GrandTotalCents = 9999
	inserted, err = store.PutIfAbsent(ctx, &replay)
	require.NoError(t, err)
	assert.False(t, inserted, "replay must not insert a second record")

	var count int64
	require.NoError(t, store.db.Model(&models.PosTransaction{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	var stored models.PosTransaction
	require.NoError(t, store.db.Where("txn_id = ?", "t-1").First(&stored).Error)
	assert.EqualValues(t, 5000, stored.GrandTotalCents, "replay must not overwrite the original record")
	assert.Equal(t, enums.TransactionStateCompleted, stored.State)
	assert.NotNil(t, stored.SyncedAt)
}

func TestBasketRemoveIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	store, err := NewBasketStore(db)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, db.Create(&models.PendingBasket{
		BasketKey: "basket-1", BasketNumber: 1, RequesterName: "Aling Nena",
		Status: enums.BasketStatusPending,
	}).Error)

	require.NoError(t, store.Remove(ctx, "basket-1"))
	require.NoError(t, store.Remove(ctx, "basket-1"), "second remove should be a no-op")
}

func TestStockDeductGuardsAgainstOverdraw(t *testing.T) {
	db := newTestDB(t)
	store, err := NewStockStore(db)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, db.Create(&models.CatalogItem{
		ItemID: "sku-cola", Name: "Coke Sakto", Category: "drinks",
		PriceCents: 2000, Quantity: 3,
	}).Error)

	ok, err := store.Deduct(ctx, "drinks", "sku-cola", 2, "sale", "staff-1")
	require.NoError(t, err)
	require.True(t, ok)

	qty, err := store.CurrentQuantity(ctx, "drinks", "sku-cola")
	require.NoError(t, err)
	assert.Equal(t, 1, qty)

	// Not enough left for 2 more; must reject, never go negative.
	ok, err = store.Deduct(ctx, "drinks", "sku-cola", 2, "sale", "staff-1")
	require.NoError(t, err)
	assert.False(t, ok, "over-deduction must be rejected")

	qty, err = store.CurrentQuantity(ctx, "drinks", "sku-cola")
	require.NoError(t, err)
	assert.Equal(t, 1, qty, "rejected deduct must not change quantity")
}

func TestCurrentQuantityUnknownItemIsZero(t *testing.T) {
	store, err := NewStockStore(newTestDB(t))
	require.NoError(t, err)

	qty, err := store.CurrentQuantity(context.Background(), "drinks", "ghost")
	require.NoError(t, err)
	assert.Zero(t, qty)
}
