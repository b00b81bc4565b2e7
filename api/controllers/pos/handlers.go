package pos

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rdelrosario/sari-pos/api/responses"
	"github.com/rdelrosario/sari-pos/api/validators"
	"github.com/rdelrosario/sari-pos/internal/compose"
	possvc "github.com/rdelrosario/sari-pos/internal/pos"
	"github.com/rdelrosario/sari-pos/internal/syncer"
	"github.com/rdelrosario/sari-pos/pkg/db/models"
	pkgerrors "github.com/rdelrosario/sari-pos/pkg/errors"
	"github.com/rdelrosario/sari-pos/pkg/logger"
	"github.com/rdelrosario/sari-pos/pkg/types"
)

// Service is the slice of the POS facade the HTTP surface drives.
type Service interface {
	Cart() types.Cart
	AddToCart(ctx context.Context, itemID string, quantity int) (types.Cart, error)
	AddCustomLine(ctx context.Context, line types.CartLine) (types.Cart, error)
	UpdateQuantity(ctx context.Context, itemID string, quantity int) (types.Cart, error)
	RemoveFromCart(ctx context.Context, itemID string) (types.Cart, error)
	ClearCart(ctx context.Context) error
	SelectBasket(ctx context.Context, basketKey string) (types.Cart, error)
	Checkout(ctx context.Context, payment compose.Payment) (*possvc.CheckoutResult, error)
	SyncNow(ctx context.Context) (*syncer.Report, error)
	PendingSyncCount(ctx context.Context) (int64, error)
}

type basketLister interface {
	ListPending(ctx context.Context) ([]models.PendingBasket, error)
}

type catalogReader interface {
	ListVisible(ctx context.Context) ([]models.CatalogItem, error)
	ReplaceAll(ctx context.Context, items []models.CatalogItem) error
}

type remoteCatalog interface {
	Catalog(ctx context.Context) ([]models.CatalogItem, error)
}

type completedLister interface {
	ListCompleted(ctx context.Context, limit int) ([]models.PosTransaction, error)
}

// CartFetch returns the live cart.
func CartFetch(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, svc.Cart())
	}
}

// CartAddItem adds a catalog item to the cart.
func CartAddItem(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cart, err := svc.AddToCart(r.Context(), payload.ItemID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}

// CartAddCustomLine appends a manually priced line or cash movement.
func CartAddCustomLine(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload customLineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		line, err := payload.toLine()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cart, err := svc.AddCustomLine(r.Context(), line)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}

// CartUpdateQuantity sets one line's quantity; zero removes it.
func CartUpdateQuantity(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID := chi.URLParam(r, "itemId")
		var payload updateQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cart, err := svc.UpdateQuantity(r.Context(), itemID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}

// CartRemoveItem drops one line from the cart.
func CartRemoveItem(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cart, err := svc.RemoveFromCart(r.Context(), chi.URLParam(r, "itemId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}

// CartClear empties the cart and deletes the remote mirror.
func CartClear(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.ClearCart(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, svc.Cart())
	}
}

// BasketList returns the unclaimed pending baskets.
func BasketList(repo basketLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		baskets, err := repo.ListPending(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]basketResponse, len(baskets))
		for i, basket := range baskets {
			out[i] = newBasketResponse(basket)
		}
		responses.WriteSuccess(w, out)
	}
}

// BasketSelect claims a basket and loads it as the live cart.
func BasketSelect(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cart, err := svc.SelectBasket(r.Context(), chi.URLParam(r, "basketKey"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}

// Checkout finalizes the sale. An offline-pending sale answers 202: the
// record is durable but the remote has not acknowledged it yet.
func Checkout(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payment, err := payload.toPayment()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Checkout(r.Context(), payment)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := http.StatusOK
		if result.OfflinePending {
			status = http.StatusAccepted
		}
		responses.WriteSuccessStatus(w, status, newCheckoutResponse(result))
	}
}

// SyncRun triggers a drain pass on operator request.
func SyncRun(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := svc.SyncNow(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSyncReportResponse(report))
	}
}

// SyncStatus reports the pending transaction count.
func SyncStatus(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, err := svc.PendingSyncCount(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"pending": count})
	}
}

// TransactionList returns completed sales for receipts and reports.
func TransactionList(queue completedLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "limit must be a positive integer"))
				return
			}
			limit = parsed
		}
		rows, err := queue.ListCompleted(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]transactionResponse, len(rows))
		for i := range rows {
			out[i] = newTransactionResponse(&rows[i])
		}
		responses.WriteSuccess(w, out)
	}
}

// CatalogList returns the sellable cached catalog.
func CatalogList(repo catalogReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := repo.ListVisible(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]catalogItemResponse, len(items))
		for i, item := range items {
			out[i] = newCatalogItemResponse(item)
		}
		responses.WriteSuccess(w, out)
	}
}

// CatalogRefresh replaces the cached catalog with the authoritative remote
// snapshot, clearing any optimistic decrements.
func CatalogRefresh(repo catalogReader, remote remoteCatalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if remote == nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeDependency, "remote catalog not configured"))
			return
		}
		items, err := remote.Catalog(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetching remote catalog"))
			return
		}
		if err := repo.ReplaceAll(r.Context(), items); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int{"items": len(items)})
	}
}
