package pos

import (
	"context"
	"fmt"
	"sync"

	"github.com/rdelrosario/sari-pos/internal/compose"
	"github.com/rdelrosario/sari-pos/internal/stock"
	"github.com/rdelrosario/sari-pos/internal/syncer"
	"github.com/rdelrosario/sari-pos/pkg/db/models"
	"github.com/rdelrosario/sari-pos/pkg/enums"
	pkgerrors "github.com/rdelrosario/sari-pos/pkg/errors"
	"github.com/rdelrosario/sari-pos/pkg/logger"
	"github.com/rdelrosario/sari-pos/pkg/types"
)

type cartState interface {
	Cart() types.Cart
	ApplyLocalEdit(cart types.Cart) types.Cart
	Mutate(edit func(cart *types.Cart)) types.Cart
	Clear(ctx context.Context) error
}

type itemLoader interface {
	FindByID(ctx context.Context, itemID string) (*models.CatalogItem, error)
}

type basketClaimer interface {
	Claim(ctx context.Context, basketKey string) (*models.PendingBasket, error)
}

type stockLedger interface {
	AvailableQuantity(ctx context.Context, itemID string) (int, error)
	ReserveOnCheckout(ctx context.Context, lines []types.CartLine) ([]stock.Shortage, error)
	ApplyDeduction(ctx context.Context, lines []types.CartLine, mode enums.DeductionMode, reason, actor string) error
}

type transactionQueue interface {
	Enqueue(ctx context.Context, txn *models.PosTransaction) error
	Count(ctx context.Context) (int64, error)
}

type syncRunner interface {
	SyncAll(ctx context.Context) (*syncer.Report, error)
}

type connectivityOracle interface {
	HasConnectivity(ctx context.Context) bool
}

type transactionComposer interface {
	Compose(cart types.Cart, payment compose.Payment, deviceID, basketKey string) (*models.PosTransaction, error)
}

// CheckoutResult is what the cashier sees after confirmation. The sale is
// final either way; OfflinePending only changes the message on the receipt.
type CheckoutResult struct {
	Transaction *models.PosTransaction
	// OfflinePending means the sale is durably queued but not yet
	// acknowledged by the remote store.
	OfflinePending bool
	// DeductionWarning carries a partial remote stock deduction. The sale
	// stands; the inventory gap is reconciled manually.
	DeductionWarning error
}

// Service is the single entry point the tills drive. It owns the live cart
// through the mirror and wires every checkout through the durability gate.
type Service struct {
	mirror   cartState
	catalog  itemLoader
	baskets  basketClaimer
	stock    stockLedger
	queue    transactionQueue
	syncer   syncRunner
	oracle   connectivityOracle
	composer transactionComposer
	log      *logger.Logger
	deviceID string

	mu           sync.Mutex
	activeBasket string
}

// NewService builds the POS facade.
func NewService(
	mirror cartState,
	catalog itemLoader,
	baskets basketClaimer,
	ledger stockLedger,
	queue transactionQueue,
	syncRunner syncRunner,
	oracle connectivityOracle,
	composer transactionComposer,
	log *logger.Logger,
	deviceID string,
) (*Service, error) {
	if mirror == nil {
		return nil, fmt.Errorf("cart mirror required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if baskets == nil {
		return nil, fmt.Errorf("basket repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	if queue == nil {
		return nil, fmt.Errorf("transaction queue required")
	}
	if syncRunner == nil {
		return nil, fmt.Errorf("sync engine required")
	}
	if oracle == nil {
		return nil, fmt.Errorf("connectivity oracle required")
	}
	if composer == nil {
		return nil, fmt.Errorf("composer required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if deviceID == "" {
		return nil, fmt.Errorf("device id required")
	}
	return &Service{
		mirror:   mirror,
		catalog:  catalog,
		baskets:  baskets,
		stock:    ledger,
		queue:    queue,
		syncer:   syncRunner,
		oracle:   oracle,
		composer: composer,
		log:      log,
		deviceID: deviceID,
	}, nil
}

// Cart returns the current cart snapshot.
func (s *Service) Cart() types.Cart {
	return s.mirror.Cart()
}

// AddToCart adds a catalog item, merging into an existing line when the
// item is already in the cart.
func (s *Service) AddToCart(ctx context.Context, itemID string, quantity int) (types.Cart, error) {
	if quantity <= 0 {
		return types.Cart{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	item, err := s.catalog.FindByID(ctx, itemID)
	if err != nil {
		return types.Cart{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, fmt.Sprintf("item %s", itemID))
	}
	return s.mirror.Mutate(func(cart *types.Cart) {
		for i := range cart.Lines {
			if cart.Lines[i].ItemID == itemID && !cart.Lines[i].Custom {
				cart.Lines[i].Quantity += quantity
				return
			}
		}
		cart.Lines = append(cart.Lines, types.CartLine{
			ItemID:         item.ItemID,
			Name:           item.Name,
			Category:       item.Category,
			Quantity:       quantity,
			UnitPriceCents: item.PriceCents,
		})
	}), nil
}

// AddCustomLine appends a manually priced line, including e-wallet cash
// movements. Custom lines skip remote stock validation.
func (s *Service) AddCustomLine(ctx context.Context, line types.CartLine) (types.Cart, error) {
	line.Custom = true
	if err := line.Validate(); err != nil {
		return types.Cart{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid custom line")
	}
	return s.mirror.Mutate(func(cart *types.Cart) {
		cart.Lines = append(cart.Lines, line)
	}), nil
}

// UpdateQuantity sets one line's quantity. Zero removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, itemID string, quantity int) (types.Cart, error) {
	if quantity < 0 {
		return types.Cart{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	if !s.cartHasLine(itemID) {
		return types.Cart{}, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("item %s is not in the cart", itemID))
	}
	if quantity == 0 {
		return s.RemoveFromCart(ctx, itemID)
	}
	return s.mirror.Mutate(func(cart *types.Cart) {
		for i := range cart.Lines {
			if cart.Lines[i].ItemID == itemID {
				cart.Lines[i].Quantity = quantity
				return
			}
		}
	}), nil
}

// RemoveFromCart drops one line.
func (s *Service) RemoveFromCart(ctx context.Context, itemID string) (types.Cart, error) {
	if !s.cartHasLine(itemID) {
		return types.Cart{}, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("item %s is not in the cart", itemID))
	}
	return s.mirror.Mutate(func(cart *types.Cart) {
		for i := range cart.Lines {
			if cart.Lines[i].ItemID == itemID {
				cart.Lines = append(cart.Lines[:i], cart.Lines[i+1:]...)
				return
			}
		}
	}), nil
}

// ClearCart empties the cart, releases any selected basket reference and
// deletes the remote mirror.
func (s *Service) ClearCart(ctx context.Context) error {
	s.mu.Lock()
	s.activeBasket = ""
	s.mu.Unlock()
	return s.mirror.Clear(ctx)
}

// SelectBasket claims a requester-submitted basket and loads its lines as
// the live cart. The lines keep their stock snapshots, so checkout skips
// re-validating them.
func (s *Service) SelectBasket(ctx context.Context, basketKey string) (types.Cart, error) {
	basket, err := s.baskets.Claim(ctx, basketKey)
	if err != nil {
		return types.Cart{}, pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, fmt.Sprintf("claiming basket %s", basketKey))
	}

	s.mu.Lock()
	s.activeBasket = basket.BasketKey
	s.mu.Unlock()

	cart := s.mirror.ApplyLocalEdit(types.Cart{
		CustomerName: basket.RequesterName,
		Lines:        basket.Lines,
	})
	s.log.Info(s.log.WithStaffID(ctx, cart.StaffID),
		fmt.Sprintf("basket %d claimed for %s", basket.BasketNumber, basket.RequesterName))
	return cart, nil
}

// Checkout finalizes the sale: validate, reserve stock, compose, persist to
// the durable queue, then attempt the remote path. Anything past the
// enqueue never fails the sale; connectivity trouble downgrades it to
// offline-pending and the queue carries it forward.
func (s *Service) Checkout(ctx context.Context, payment compose.Payment) (*CheckoutResult, error) {
	cart := s.mirror.Cart()
	if cart.Empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	online := s.oracle.HasConnectivity(ctx)
	if err := s.reserve(ctx, cart.Lines, online); err != nil {
		return nil, err
	}

	s.mu.Lock()
	basketKey := s.activeBasket
	s.mu.Unlock()

	txn, err := s.composer.Compose(cart, payment, s.deviceID, basketKey)
	if err != nil {
		return nil, err
	}

	// The durability gate. From here on the sale is final.
	if err := s.queue.Enqueue(ctx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persisting transaction")
	}
	ctx = s.log.WithTransactionID(ctx, txn.TxnID)

	result := &CheckoutResult{Transaction: txn}
	if online {
		s.settleOnline(ctx, txn, result)
	} else {
		s.settleOffline(ctx, txn, result)
	}

	if err := s.ClearCart(ctx); err != nil {
		s.log.Warn(ctx, fmt.Sprintf("clearing cart after checkout: %v", err))
	}
	return result, nil
}

// SyncNow runs a drain pass on operator request.
func (s *Service) SyncNow(ctx context.Context) (*syncer.Report, error) {
	return s.syncer.SyncAll(ctx)
}

// PendingSyncCount reports how many sales are still owed to the remote.
func (s *Service) PendingSyncCount(ctx context.Context) (int64, error) {
	return s.queue.Count(ctx)
}

// reserve blocks checkout on any shortage. Online it asks the authoritative
// store through the ledger; offline it falls back to the cached quantities,
// which optimistic deductions keep honest between catalog refreshes.
func (s *Service) reserve(ctx context.Context, lines []types.CartLine, online bool) error {
	var shortages []stock.Shortage
	if online {
		var err error
		shortages, err = s.stock.ReserveOnCheckout(ctx, lines)
		if err != nil {
			return err
		}
	} else {
		for _, line := range lines {
			if line.Custom || line.StockSnapshot != nil {
				continue
			}
			available, err := s.stock.AvailableQuantity(ctx, line.ItemID)
			if err != nil {
				// An unreadable cache row cannot vouch for stock, so it
				// blocks exactly like a zero quantity.
				s.log.Warn(ctx, fmt.Sprintf("offline stock lookup for %s failed: %v", line.ItemID, err))
				available = 0
			}
			if available < line.Quantity {
				shortages = append(shortages, stock.Shortage{
					ItemID:    line.ItemID,
					Name:      line.Name,
					Available: available,
					Requested: line.Quantity,
				})
			}
		}
	}
	if len(shortages) > 0 {
		return pkgerrors.New(pkgerrors.CodeShortage, shortages[0].String()).WithDetails(shortages)
	}
	return nil
}

// settleOnline drains the queue (this sale included) and applies the
// remote-confirmed stock deduction. Failures downgrade to offline-pending
// rather than surfacing as a failed sale.
func (s *Service) settleOnline(ctx context.Context, txn *models.PosTransaction, result *CheckoutResult) {
	report, err := s.syncer.SyncAll(ctx)
	if err != nil {
		s.log.Warn(ctx, fmt.Sprintf("immediate sync failed, sale queued: %v", err))
		s.settleOffline(ctx, txn, result)
		return
	}
	for _, failure := range report.Failures {
		if failure.TxnID == txn.TxnID {
			s.settleOffline(ctx, txn, result)
			return
		}
	}

	err = s.stock.ApplyDeduction(ctx, txn.Lines, enums.DeductionModeRemoteConfirmed, "sale "+txn.TxnID, txn.StaffID)
	if err != nil {
		result.DeductionWarning = err
	}
}

// settleOffline applies the optimistic local deduction; the queued record
// will carry the sale to the remote on the next sync pass.
func (s *Service) settleOffline(ctx context.Context, txn *models.PosTransaction, result *CheckoutResult) {
	result.OfflinePending = true
	err := s.stock.ApplyDeduction(ctx, txn.Lines, enums.DeductionModeLocalOptimistic, "sale "+txn.TxnID, txn.StaffID)
	if err != nil {
		s.log.Warn(ctx, fmt.Sprintf("optimistic stock deduction failed: %v", err))
	}
	s.log.Info(ctx, "sale saved offline, will sync")
}

func (s *Service) cartHasLine(itemID string) bool {
	for _, line := range s.mirror.Cart().Lines {
		if line.ItemID == itemID {
			return true
		}
	}
	return false
}
