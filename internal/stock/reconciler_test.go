package stock

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/rdelrosario/sari-pos/pkg/enums"
	pkgerrors "github.com/rdelrosario/sari-pos/pkg/errors"
	"github.com/rdelrosario/sari-pos/pkg/logger"
	"github.com/rdelrosario/sari-pos/pkg/types"
)

type fakeCache struct {
	quantities map[string]int
	decrements map[string]int
	decErr     error
}

func (f *fakeCache) Quantity(_ context.Context, itemID string) (int, error) {
	qty, ok := f.quantities[itemID]
	if !ok {
		return 0, errors.New("not cached")
	}
	return qty, nil
}

func (f *fakeCache) DecrementFloorZero(_ context.Context, itemID string, qty int) error {
	if f.decErr != nil {
		return f.decErr
	}
	if f.decrements == nil {
		f.decrements = map[string]int{}
	}
	f.decrements[itemID] += qty
	return nil
}

type fakeRemote struct {
	quantities map[string]int
	lookupErr  error
	deducted   map[string]int
	deductErr  map[string]error
	rejected   map[string]bool
}

func (f *fakeRemote) CurrentQuantity(_ context.Context, _, itemID string) (int, error) {
	if f.lookupErr != nil {
		return 0, f.lookupErr
	}
	return f.quantities[itemID], nil
}

func (f *fakeRemote) Deduct(_ context.Context, _, itemID string, amount int, _, _ string) (bool, error) {
	if err := f.deductErr[itemID]; err != nil {
		return false, err
	}
	if f.rejected[itemID] {
		return false, nil
	}
	if f.deducted == nil {
		f.deducted = map[string]int{}
	}
	f.deducted[itemID] += amount
	return true, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newTestReconciler(t *testing.T, cache *fakeCache, remote *fakeRemote) *Reconciler {
	t.Helper()
	rec, err := NewReconciler(cache, remote, testLogger())
	if err != nil {
		t.Fatalf("NewReconciler: %v", err)
	}
	return rec
}

func intPtr(v int) *int { return &v }

func TestNewReconcilerValidates(t *testing.T) {
	if _, err := NewReconciler(nil, &fakeRemote{}, testLogger()); err == nil {
		t.Fatal("expected error for nil cache")
	}
	if _, err := NewReconciler(&fakeCache{}, nil, testLogger()); err == nil {
		t.Fatal("expected error for nil remote")
	}
}

func TestReserveOnCheckoutReportsShortage(t *testing.T) {
	remote := &fakeRemote{quantities: map[string]int{"sku-cola": 3}}
	rec := newTestReconciler(t, &fakeCache{}, remote)

	shortages, err := rec.ReserveOnCheckout(context.Background(), []types.CartLine{
		{ItemID: "sku-cola", Name: "Coke Sakto", Category: "drinks", Quantity: 5},
	})
	if err != nil {
		t.Fatalf("ReserveOnCheckout: %v", err)
	}
	if len(shortages) != 1 {
		t.Fatalf("expected 1 shortage, got %d", len(shortages))
	}
	got := shortages[0]
	if got.Name != "Coke Sakto" || got.Available != 3 || got.Requested != 5 {
		t.Fatalf("unexpected shortage %+v", got)
	}
	if want := "Coke Sakto: 3 available, 5 requested"; got.String() != want {
		t.Fatalf("String() = %q, want %q", got.String(), want)
	}
}

func TestReserveOnCheckoutExemptions(t *testing.T) {
	// Remote has no stock at all; exempt lines must never reach it.
	remote := &fakeRemote{quantities: map[string]int{}}
	rec := newTestReconciler(t, &fakeCache{}, remote)

	shortages, err := rec.ReserveOnCheckout(context.Background(), []types.CartLine{
		{ItemID: "custom-1", Name: "Pandesal (special)", Quantity: 2, Custom: true},
		{ItemID: "sku-eggs", Name: "Eggs", Quantity: 6, StockSnapshot: intPtr(12)},
	})
	if err != nil {
		t.Fatalf("ReserveOnCheckout: %v", err)
	}
	if len(shortages) != 0 {
		t.Fatalf("expected no shortages, got %+v", shortages)
	}
}

func TestReserveOnCheckoutLookupFailure(t *testing.T) {
	remote := &fakeRemote{lookupErr: errors.New("network unreachable")}
	rec := newTestReconciler(t, &fakeCache{}, remote)

	_, err := rec.ReserveOnCheckout(context.Background(), []types.CartLine{
		{ItemID: "sku-cola", Name: "Coke Sakto", Quantity: 1},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestApplyDeductionRemoteConfirmed(t *testing.T) {
	remote := &fakeRemote{quantities: map[string]int{"sku-cola": 10}}
	rec := newTestReconciler(t, &fakeCache{}, remote)

	err := rec.ApplyDeduction(context.Background(), []types.CartLine{
		{ItemID: "sku-cola", Category: "drinks", Quantity: 2},
		{ItemID: "custom-1", Quantity: 1, Custom: true},
	}, enums.DeductionModeRemoteConfirmed, "sale", "staff-1")
	if err != nil {
		t.Fatalf("ApplyDeduction: %v", err)
	}
	if remote.deducted["sku-cola"] != 2 {
		t.Fatalf("expected remote deduction of 2, got %d", remote.deducted["sku-cola"])
	}
	if _, ok := remote.deducted["custom-1"]; ok {
		t.Fatal("custom line must not be deducted remotely")
	}
}

func TestApplyDeductionPartialFailureIsWarning(t *testing.T) {
	remote := &fakeRemote{
		deductErr: map[string]error{"sku-eggs": errors.New("timeout")},
		rejected:  map[string]bool{"sku-rice": true},
	}
	rec := newTestReconciler(t, &fakeCache{}, remote)

	err := rec.ApplyDeduction(context.Background(), []types.CartLine{
		{ItemID: "sku-cola", Quantity: 1},
		{ItemID: "sku-eggs", Quantity: 6},
		{ItemID: "sku-rice", Quantity: 2},
	}, enums.DeductionModeRemoteConfirmed, "sale", "staff-1")
	if err == nil {
		t.Fatal("expected partial-deduction warning")
	}
	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodePartialDeduct {
		t.Fatalf("expected partial deduction code, got %v", err)
	}
	// The line that worked must still have applied.
	if remote.deducted["sku-cola"] != 1 {
		t.Fatalf("successful line not applied: %+v", remote.deducted)
	}
}

func TestApplyDeductionLocalOptimistic(t *testing.T) {
	cache := &fakeCache{quantities: map[string]int{"sku-cola": 4}}
	remote := &fakeRemote{}
	rec := newTestReconciler(t, cache, remote)

	err := rec.ApplyDeduction(context.Background(), []types.CartLine{
		{ItemID: "sku-cola", Quantity: 3},
	}, enums.DeductionModeLocalOptimistic, "sale", "staff-1")
	if err != nil {
		t.Fatalf("ApplyDeduction: %v", err)
	}
	if cache.decrements["sku-cola"] != 3 {
		t.Fatalf("expected local decrement of 3, got %d", cache.decrements["sku-cola"])
	}
	if len(remote.deducted) != 0 {
		t.Fatalf("offline path must not call the remote, got %+v", remote.deducted)
	}
}

func TestApplyDeductionRejectsUnknownMode(t *testing.T) {
	rec := newTestReconciler(t, &fakeCache{}, &fakeRemote{})
	err := rec.ApplyDeduction(context.Background(), nil, enums.DeductionMode("bogus"), "sale", "staff-1")
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAvailableQuantityReadsCache(t *testing.T) {
	cache := &fakeCache{quantities: map[string]int{"sku-cola": 7}}
	rec := newTestReconciler(t, cache, &fakeRemote{})
	qty, err := rec.AvailableQuantity(context.Background(), "sku-cola")
	if err != nil {
		t.Fatalf("AvailableQuantity: %v", err)
	}
	if qty != 7 {
		t.Fatalf("expected 7, got %d", qty)
	}
}
