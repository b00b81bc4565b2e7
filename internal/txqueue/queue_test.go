package txqueue

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rdelrosario/sari-pos/pkg/db/models"
	"github.com/rdelrosario/sari-pos/pkg/enums"
	"github.com/rdelrosario/sari-pos/pkg/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.PosTransaction{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	queue, err := NewQueue(conn)
	if err != nil {
		t.Fatalf("NewQueue: %v", err)
	}
	return queue
}

func sampleTxn(id string, enqueuedAt time.Time) *models.PosTransaction {
	return &models.PosTransaction{
		TxnID:    id,
		StaffID:  "staff-1",
		DeviceID: "till-1",
		Lines: []types.CartLine{
			{ItemID: "sku-cola", Name: "Coke Sakto", Quantity: 1, UnitPriceCents: 2000},
		},
		TotalCents:      2000,
		GrandTotalCents: 2000,
		RevenueCents:    2000,
		PaymentMethod:   enums.PaymentMethodCash,
		SoldAt:          enqueuedAt,
		EnqueuedAt:      enqueuedAt,
	}
}

func TestEnqueueForcesPendingState(t *testing.T) {
	queue := newTestQueue(t)
	ctx := context.Background()

	txn := sampleTxn("t-1", time.Now().UTC())
	txn.State = enums.TransactionStateCompleted
	if err := queue.Enqueue(ctx, txn); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	stored, err := queue.FindByID(ctx, "t-1")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if stored.State != enums.TransactionStatePending {
		t.Fatalf("expected pending state, got %s", stored.State)
	}
	if len(stored.Lines) != 1 || stored.Lines[0].ItemID != "sku-cola" {
		t.Fatalf("lines did not round-trip: %+v", stored.Lines)
	}
}

func TestEnqueueRejectsDuplicateID(t *testing.T) {
	queue := newTestQueue(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := queue.Enqueue(ctx, sampleTxn("t-1", now)); err != nil {
		t.Fatalf("first enqueue failed: %v", err)
	}
	if err := queue.Enqueue(ctx, sampleTxn("t-1", now)); err == nil {
		t.Fatal("expected duplicate id to fail")
	}
}

func TestPeekAllOldestFirst(t *testing.T) {
	queue := newTestQueue(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	// Insert newest first to prove ordering comes from the query.
	for i := 4; i >= 0; i-- {
		txn := sampleTxn(fmt.Sprintf("t-%d", i), base.Add(time.Duration(i)*time.Minute))
		if err := queue.Enqueue(ctx, txn); err != nil {
			t.Fatalf("enqueue failed: %v", err)
		}
	}

	rows, err := queue.PeekAll(ctx)
	if err != nil {
		t.Fatalf("peek failed: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(rows))
	}
	for i, row := range rows {
		if want := fmt.Sprintf("t-%d", i); row.TxnID != want {
			t.Fatalf("row %d: expected %s, got %s", i, want, row.TxnID)
		}
	}
}

func TestMarkCompletedLeavesAuditRow(t *testing.T) {
	queue := newTestQueue(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	if err := queue.Enqueue(ctx, sampleTxn("t-1", now)); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if err := queue.MarkCompleted(ctx, "t-1", now); err != nil {
		t.Fatalf("mark completed failed: %v", err)
	}

	count, err := queue.Count(ctx)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty pending partition, got %d", count)
	}

	stored, err := queue.FindByID(ctx, "t-1")
	if err != nil {
		t.Fatalf("completed row should remain: %v", err)
	}
	if stored.State != enums.TransactionStateCompleted {
		t.Fatalf("expected completed state, got %s", stored.State)
	}
	if stored.SyncedAt == nil || !stored.SyncedAt.Equal(now) {
		t.Fatalf("expected synced_at %v, got %v", now, stored.SyncedAt)
	}

	// Completing twice is a conflict, not a silent no-op.
	if err := queue.MarkCompleted(ctx, "t-1", now); !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
}

func TestRemoveOnlyTouchesPending(t *testing.T) {
	queue := newTestQueue(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := queue.Enqueue(ctx, sampleTxn("t-1", now)); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if err := queue.MarkCompleted(ctx, "t-1", now); err != nil {
		t.Fatalf("mark completed failed: %v", err)
	}
	if err := queue.Remove(ctx, "t-1"); !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("completed rows must not be removable, got %v", err)
	}

	if err := queue.Enqueue(ctx, sampleTxn("t-2", now)); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if err := queue.Remove(ctx, "t-2"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if _, err := queue.FindByID(ctx, "t-2"); !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("expected removed row to be gone, got %v", err)
	}
}

func TestListCompletedNewestFirst(t *testing.T) {
	queue := newTestQueue(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		txn := sampleTxn(fmt.Sprintf("t-%d", i), base.Add(time.Duration(i)*time.Hour))
		if err := queue.Enqueue(ctx, txn); err != nil {
			t.Fatalf("enqueue failed: %v", err)
		}
		if err := queue.MarkCompleted(ctx, txn.TxnID, base.Add(3*time.Hour)); err != nil {
			t.Fatalf("mark completed failed: %v", err)
		}
	}

	rows, err := queue.ListCompleted(ctx, 2)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].TxnID != "t-2" || rows[1].TxnID != "t-1" {
		t.Fatalf("unexpected order: %s, %s", rows[0].TxnID, rows[1].TxnID)
	}
}
