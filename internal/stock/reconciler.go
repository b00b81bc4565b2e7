package stock

import (
	"context"
	"fmt"

	"github.com/rdelrosario/sari-pos/pkg/enums"
	pkgerrors "github.com/rdelrosario/sari-pos/pkg/errors"
	"github.com/rdelrosario/sari-pos/pkg/logger"
	"github.com/rdelrosario/sari-pos/pkg/types"
	"go.uber.org/multierr"
)

type cacheRepo interface {
	Quantity(ctx context.Context, itemID string) (int, error)
	DecrementFloorZero(ctx context.Context, itemID string, qty int) error
}

type remoteInventory interface {
	CurrentQuantity(ctx context.Context, category, itemID string) (int, error)
	Deduct(ctx context.Context, category, itemID string, amount int, reason, actor string) (bool, error)
}

// Shortage reports one line whose requested quantity exceeds what the
// authoritative inventory can supply.
type Shortage struct {
	ItemID    string `json:"item_id"`
	Name      string `json:"name"`
	Available int    `json:"available"`
	Requested int    `json:"requested"`
}

func (s Shortage) String() string {
	return fmt.Sprintf("%s: %d available, %d requested", s.Name, s.Available, s.Requested)
}

// Reconciler keeps the locally visible stock view consistent with sales
// applied on both the online and offline checkout paths.
type Reconciler struct {
	cache  cacheRepo
	remote remoteInventory
	log    *logger.Logger
}

// NewReconciler builds the stock reconciler.
func NewReconciler(cache cacheRepo, remote remoteInventory, log *logger.Logger) (*Reconciler, error) {
	if cache == nil {
		return nil, fmt.Errorf("catalog cache required")
	}
	if remote == nil {
		return nil, fmt.Errorf("remote inventory required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Reconciler{cache: cache, remote: remote, log: log}, nil
}

// AvailableQuantity reads the locally cached quantity for one item.
func (r *Reconciler) AvailableQuantity(ctx context.Context, itemID string) (int, error) {
	return r.cache.Quantity(ctx, itemID)
}

// ReserveOnCheckout re-validates every stock-tracked line against the
// authoritative remote quantity before payment is presented. Custom lines
// and basket-sourced lines carrying a pre-validated snapshot are exempt.
// Any shortage blocks checkout; quantities are never clamped down.
func (r *Reconciler) ReserveOnCheckout(ctx context.Context, lines []types.CartLine) ([]Shortage, error) {
	var shortages []Shortage
	for _, line := range lines {
		if line.Custom || line.StockSnapshot != nil {
			continue
		}
		available, err := r.remote.CurrentQuantity(ctx, line.Category, line.ItemID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stock lookup failed")
		}
		if available < line.Quantity {
			shortages = append(shortages, Shortage{
				ItemID:    line.ItemID,
				Name:      line.Name,
				Available: available,
				Requested: line.Quantity,
			})
		}
	}
	return shortages, nil
}

// ApplyDeduction reflects a completed sale in the inventory views.
//
// In remote-confirmed mode each line is delegated to the remote collaborator;
// line failures are collected and returned as a single partial-deduction
// warning because the sale is already final and must not roll back.
//
// In local-optimistic mode only the cached quantities are decremented,
// floored at zero. The decrement is not replayed against the remote during
// later sync; the remote reconciles true stock from the synced transaction.
func (r *Reconciler) ApplyDeduction(ctx context.Context, lines []types.CartLine, mode enums.DeductionMode, reason, actor string) error {
	if !mode.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown deduction mode %q", mode))
	}
	var failed error
	for _, line := range lines {
		if line.Custom || line.Quantity <= 0 {
			continue
		}
		switch mode {
		case enums.DeductionModeRemoteConfirmed:
			ok, err := r.remote.Deduct(ctx, line.Category, line.ItemID, line.Quantity, reason, actor)
			if err != nil {
				failed = multierr.Append(failed, fmt.Errorf("deduct %s: %w", line.ItemID, err))
				continue
			}
			if !ok {
				failed = multierr.Append(failed, fmt.Errorf("deduct %s: rejected by inventory", line.ItemID))
			}
		case enums.DeductionModeLocalOptimistic:
			if err := r.cache.DecrementFloorZero(ctx, line.ItemID, line.Quantity); err != nil {
				failed = multierr.Append(failed, fmt.Errorf("decrement %s: %w", line.ItemID, err))
			}
		}
	}
	if failed == nil {
		return nil
	}
	if mode == enums.DeductionModeRemoteConfirmed {
		r.log.Warn(ctx, fmt.Sprintf("partial stock deduction, manual reconciliation needed: %v", failed))
		return pkgerrors.Wrap(pkgerrors.CodePartialDeduct, failed, "some stock deductions did not apply")
	}
	return failed
}
