package pos

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rdelrosario/sari-pos/internal/compose"
	"github.com/rdelrosario/sari-pos/internal/stock"
	"github.com/rdelrosario/sari-pos/internal/syncer"
	"github.com/rdelrosario/sari-pos/pkg/config"
	"github.com/rdelrosario/sari-pos/pkg/db/models"
	"github.com/rdelrosario/sari-pos/pkg/enums"
	pkgerrors "github.com/rdelrosario/sari-pos/pkg/errors"
	"github.com/rdelrosario/sari-pos/pkg/logger"
	"github.com/rdelrosario/sari-pos/pkg/types"
)

type fakeMirror struct {
	cart    types.Cart
	cleared int
}

func (f *fakeMirror) Cart() types.Cart { return f.cart.Clone() }

func (f *fakeMirror) ApplyLocalEdit(cart types.Cart) types.Cart {
	cart.StaffID = "staff-1"
	cart.Version = f.cart.Version + 1
	f.cart = cart.Clone()
	return f.cart.Clone()
}

func (f *fakeMirror) Mutate(edit func(cart *types.Cart)) types.Cart {
	next := f.cart.Clone()
	edit(&next)
	next.StaffID = "staff-1"
	next.Version = f.cart.Version + 1
	f.cart = next
	return f.cart.Clone()
}

func (f *fakeMirror) Clear(_ context.Context) error {
	f.cleared++
	f.cart = types.Cart{StaffID: "staff-1", Version: f.cart.Version + 1}
	return nil
}

type fakeCatalog struct {
	items map[string]models.CatalogItem
}

func (f *fakeCatalog) FindByID(_ context.Context, itemID string) (*models.CatalogItem, error) {
	item, ok := f.items[itemID]
	if !ok {
		return nil, errors.New("catalog item not found")
	}
	return &item, nil
}

type fakeBaskets struct {
	baskets map[string]*models.PendingBasket
	claimed []string
}

func (f *fakeBaskets) Claim(_ context.Context, basketKey string) (*models.PendingBasket, error) {
	basket, ok := f.baskets[basketKey]
	if !ok {
		return nil, errors.New("pending basket not found")
	}
	f.claimed = append(f.claimed, basketKey)
	return basket, nil
}

type fakeLedger struct {
	remoteStock map[string]int
	localStock  map[string]int
	localErr    error
	deductions  map[enums.DeductionMode][]types.CartLine
	deductErr   error
}

func (f *fakeLedger) AvailableQuantity(_ context.Context, itemID string) (int, error) {
	if f.localErr != nil {
		return 0, f.localErr
	}
	return f.localStock[itemID], nil
}

func (f *fakeLedger) ReserveOnCheckout(_ context.Context, lines []types.CartLine) ([]stock.Shortage, error) {
	var shortages []stock.Shortage
	for _, line := range lines {
		if line.Custom || line.StockSnapshot != nil {
			continue
		}
		if available := f.remoteStock[line.ItemID]; available < line.Quantity {
			shortages = append(shortages, stock.Shortage{
				ItemID: line.ItemID, Name: line.Name,
				Available: available, Requested: line.Quantity,
			})
		}
	}
	return shortages, nil
}

func (f *fakeLedger) ApplyDeduction(_ context.Context, lines []types.CartLine, mode enums.DeductionMode, _, _ string) error {
	if f.deductions == nil {
		f.deductions = map[enums.DeductionMode][]types.CartLine{}
	}
	f.deductions[mode] = append(f.deductions[mode], lines...)
	if mode == enums.DeductionModeLocalOptimistic {
		for _, line := range lines {
			if qty := f.localStock[line.ItemID] - line.Quantity; qty > 0 {
				f.localStock[line.ItemID] = qty
			} else {
				f.localStock[line.ItemID] = 0
			}
		}
	}
	return f.deductErr
}

type fakeTxQueue struct {
	rows []*models.PosTransaction
}

func (f *fakeTxQueue) Enqueue(_ context.Context, txn *models.PosTransaction) error {
	txn.State = enums.TransactionStatePending
	f.rows = append(f.rows, txn)
	return nil
}

func (f *fakeTxQueue) Count(_ context.Context) (int64, error) {
	var pending int64
	for _, row := range f.rows {
		if row.State == enums.TransactionStatePending {
			pending++
		}
	}
	return pending, nil
}

type fakeSync struct {
	queue   *fakeTxQueue
	failIDs map[string]bool
	err     error
	passes  int
}

func (f *fakeSync) SyncAll(_ context.Context) (*syncer.Report, error) {
	f.passes++
	if f.err != nil {
		return nil, f.err
	}
	report := &syncer.Report{Outcome: enums.SyncOutcomeDrained}
	for _, row := range f.queue.rows {
		if row.State != enums.TransactionStatePending {
			continue
		}
		if f.failIDs[row.TxnID] {
			report.Failures = append(report.Failures, syncer.Failure{TxnID: row.TxnID, Err: errors.New("write failed")})
			continue
		}
		row.State = enums.TransactionStateCompleted
		report.Synced++
	}
	return report, nil
}

type staticOracle bool

func (o staticOracle) HasConnectivity(_ context.Context) bool { return bool(o) }

type posFixture struct {
	service *Service
	mirror  *fakeMirror
	catalog *fakeCatalog
	baskets *fakeBaskets
	ledger  *fakeLedger
	queue   *fakeTxQueue
	sync    *fakeSync
	oracle  *staticOracle
}

func newFixture(t *testing.T, online bool) *posFixture {
	t.Helper()
	mirror := &fakeMirror{cart: types.Cart{StaffID: "staff-1"}}
	catalog := &fakeCatalog{items: map[string]models.CatalogItem{
		"sku-cola": {ItemID: "sku-cola", Name: "Coke Sakto", Category: "drinks", PriceCents: 2000, Quantity: 10},
		"sku-rice": {ItemID: "sku-rice", Name: "Rice 1kg", Category: "staples", PriceCents: 5000, Quantity: 8},
	}}
	snapshot := 12
	baskets := &fakeBaskets{baskets: map[string]*models.PendingBasket{
		"basket-1": {
			BasketKey: "basket-1", BasketNumber: 1, RequesterName: "Aling Nena",
			Status: enums.BasketStatusPending,
			Lines: []types.CartLine{
				{ItemID: "sku-eggs", Name: "Eggs", Quantity: 6, UnitPriceCents: 900, StockSnapshot: &snapshot},
			},
		},
	}}
	ledger := &fakeLedger{
		remoteStock: map[string]int{"sku-cola": 10, "sku-rice": 8},
		localStock:  map[string]int{"sku-cola": 10, "sku-rice": 8},
	}
	queue := &fakeTxQueue{}
	syncEngine := &fakeSync{queue: queue}
	oracle := staticOracle(online)
	composer := compose.NewComposer(
		config.VATConfig{Enabled: true, Inclusive: true, RatePercent: 12},
		compose.WithClock(func() time.Time { return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC) }),
	)
	log := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	service, err := NewService(mirror, catalog, baskets, ledger, queue, syncEngine, &oracle, composer, log, "till-1")
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &posFixture{
		service: service, mirror: mirror, catalog: catalog, baskets: baskets,
		ledger: ledger, queue: queue, sync: syncEngine, oracle: &oracle,
	}
}

func TestAddToCartMergesLines(t *testing.T) {
	fx := newFixture(t, true)
	ctx := context.Background()

	if _, err := fx.service.AddToCart(ctx, "sku-cola", 1); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	cart, err := fx.service.AddToCart(ctx, "sku-cola", 2)
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if len(cart.Lines) != 1 || cart.Lines[0].Quantity != 3 {
		t.Fatalf("expected merged line with qty 3, got %+v", cart.Lines)
	}
	if cart.Lines[0].UnitPriceCents != 2000 {
		t.Fatalf("price not taken from catalog: %d", cart.Lines[0].UnitPriceCents)
	}
}

func TestAddToCartUnknownItem(t *testing.T) {
	fx := newFixture(t, true)
	_, err := fx.service.AddToCart(context.Background(), "ghost", 1)
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestUpdateQuantityZeroRemovesLine(t *testing.T) {
	fx := newFixture(t, true)
	ctx := context.Background()

	if _, err := fx.service.AddToCart(ctx, "sku-cola", 2); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	cart, err := fx.service.UpdateQuantity(ctx, "sku-cola", 0)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !cart.Empty() {
		t.Fatalf("expected empty cart, got %+v", cart.Lines)
	}
}

func TestSelectBasketLoadsSnapshotLines(t *testing.T) {
	fx := newFixture(t, true)
	cart, err := fx.service.SelectBasket(context.Background(), "basket-1")
	if err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if cart.CustomerName != "Aling Nena" {
		t.Fatalf("requester not carried: %q", cart.CustomerName)
	}
	if len(cart.Lines) != 1 || cart.Lines[0].StockSnapshot == nil {
		t.Fatalf("snapshot lines not loaded: %+v", cart.Lines)
	}
	if len(fx.baskets.claimed) != 1 {
		t.Fatal("basket was not claimed")
	}
}

func TestCheckoutOnlineHappyPath(t *testing.T) {
	fx := newFixture(t, true)
	ctx := context.Background()

	if _, err := fx.service.AddToCart(ctx, "sku-cola", 2); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	result, err := fx.service.Checkout(ctx, compose.Payment{
		Method:            enums.PaymentMethodCash,
		CashReceivedCents: 5000,
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if result.OfflinePending {
		t.Fatal("online checkout must not be offline-pending")
	}
	if result.Transaction.GrandTotalCents != 4000 || result.Transaction.ChangeCents != 1000 {
		t.Fatalf("unexpected totals: %+v", result.Transaction)
	}
	if fx.sync.passes != 1 {
		t.Fatalf("expected one immediate sync pass, got %d", fx.sync.passes)
	}
	if got := fx.ledger.deductions[enums.DeductionModeRemoteConfirmed]; len(got) != 1 {
		t.Fatalf("expected remote-confirmed deduction, got %+v", fx.ledger.deductions)
	}
	if fx.mirror.cleared != 1 {
		t.Fatal("cart not cleared after checkout")
	}
	count, _ := fx.service.PendingSyncCount(ctx)
	if count != 0 {
		t.Fatalf("expected nothing pending, got %d", count)
	}
}

func TestCheckoutShortageBlocksSale(t *testing.T) {
	// Requesting 5 of an item with remote stock 3.
	fx := newFixture(t, true)
	ctx := context.Background()
	fx.ledger.remoteStock["sku-cola"] = 3

	if _, err := fx.service.AddToCart(ctx, "sku-cola", 5); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	_, err := fx.service.Checkout(ctx, compose.Payment{
		Method:            enums.PaymentMethodCash,
		CashReceivedCents: 20000,
	})
	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeShortage {
		t.Fatalf("expected shortage error, got %v", err)
	}
	shortages, ok := coded.Details().([]stock.Shortage)
	if !ok || len(shortages) != 1 {
		t.Fatalf("expected shortage details, got %v", coded.Details())
	}
	if shortages[0].Available != 3 || shortages[0].Requested != 5 || shortages[0].Name != "Coke Sakto" {
		t.Fatalf("unexpected shortage: %+v", shortages[0])
	}
	if len(fx.queue.rows) != 0 {
		t.Fatal("blocked checkout must not enqueue")
	}
}

func TestCheckoutOfflineQueuesAndDeductsLocally(t *testing.T) {
	fx := newFixture(t, false)
	ctx := context.Background()

	if _, err := fx.service.AddToCart(ctx, "sku-cola", 2); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	result, err := fx.service.Checkout(ctx, compose.Payment{
		Method:            enums.PaymentMethodCash,
		CashReceivedCents: 5000,
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if !result.OfflinePending {
		t.Fatal("offline checkout must be offline-pending")
	}
	if result.Transaction == nil {
		t.Fatal("offline checkout must still return the record")
	}
	count, _ := fx.service.PendingSyncCount(ctx)
	if count != 1 {
		t.Fatalf("expected 1 pending transaction, got %d", count)
	}
	if fx.ledger.localStock["sku-cola"] != 8 {
		t.Fatalf("local stock not decremented: %d", fx.ledger.localStock["sku-cola"])
	}
	if fx.sync.passes != 0 {
		t.Fatal("offline checkout must not attempt a sync pass")
	}
}

func TestCheckoutOfflineUnreadableCacheBlocks(t *testing.T) {
	// A cache row that cannot be read cannot vouch for stock; the sale
	// blocks as if the item were out.
	fx := newFixture(t, false)
	ctx := context.Background()

	if _, err := fx.service.AddToCart(ctx, "sku-cola", 2); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	fx.ledger.localErr = errors.New("database is locked")

	_, err := fx.service.Checkout(ctx, compose.Payment{
		Method:            enums.PaymentMethodCash,
		CashReceivedCents: 5000,
	})
	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeShortage {
		t.Fatalf("expected shortage error, got %v", err)
	}
	shortages, ok := coded.Details().([]stock.Shortage)
	if !ok || len(shortages) != 1 || shortages[0].Available != 0 {
		t.Fatalf("expected a zero-available shortage, got %v", coded.Details())
	}
	if len(fx.queue.rows) != 0 {
		t.Fatal("blocked checkout must not enqueue")
	}
}

func TestCheckoutOnlineSyncFailureDowngrades(t *testing.T) {
	fx := newFixture(t, true)
	ctx := context.Background()
	fx.sync.err = errors.New("broker unreachable")

	if _, err := fx.service.AddToCart(ctx, "sku-cola", 1); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	result, err := fx.service.Checkout(ctx, compose.Payment{
		Method:            enums.PaymentMethodCash,
		CashReceivedCents: 2000,
	})
	if err != nil {
		t.Fatalf("a sync failure must never fail the sale: %v", err)
	}
	if !result.OfflinePending {
		t.Fatal("expected downgrade to offline-pending")
	}
	count, _ := fx.service.PendingSyncCount(ctx)
	if count != 1 {
		t.Fatalf("transaction must stay queued, pending=%d", count)
	}
}

func TestCheckoutPartialDeductionIsWarning(t *testing.T) {
	fx := newFixture(t, true)
	ctx := context.Background()
	fx.ledger.deductErr = pkgerrors.New(pkgerrors.CodePartialDeduct, "some stock deductions did not apply")

	if _, err := fx.service.AddToCart(ctx, "sku-cola", 1); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	result, err := fx.service.Checkout(ctx, compose.Payment{
		Method:            enums.PaymentMethodCash,
		CashReceivedCents: 2000,
	})
	if err != nil {
		t.Fatalf("partial deduction must not fail the sale: %v", err)
	}
	if result.DeductionWarning == nil {
		t.Fatal("expected deduction warning on result")
	}
}

func TestCheckoutFromBasketCarriesKey(t *testing.T) {
	fx := newFixture(t, true)
	ctx := context.Background()

	if _, err := fx.service.SelectBasket(ctx, "basket-1"); err != nil {
		t.Fatalf("select failed: %v", err)
	}
	result, err := fx.service.Checkout(ctx, compose.Payment{
		Method:            enums.PaymentMethodCash,
		CashReceivedCents: 10000,
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if result.Transaction.BasketKey == nil || *result.Transaction.BasketKey != "basket-1" {
		t.Fatalf("basket key not carried: %v", result.Transaction.BasketKey)
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	fx := newFixture(t, true)
	_, err := fx.service.Checkout(context.Background(), compose.Payment{
		Method: enums.PaymentMethodCash,
	})
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
