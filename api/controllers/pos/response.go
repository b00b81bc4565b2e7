package pos

import (
	"time"

	possvc "github.com/rdelrosario/sari-pos/internal/pos"
	"github.com/rdelrosario/sari-pos/internal/syncer"
	"github.com/rdelrosario/sari-pos/pkg/db/models"
	"github.com/rdelrosario/sari-pos/pkg/types"
)

type transactionResponse struct {
	TxnID              string           `json:"txn_id"`
	State              string           `json:"state"`
	StaffID            string           `json:"staff_id"`
	DeviceID           string           `json:"device_id"`
	CustomerName       string           `json:"customer_name,omitempty"`
	Lines              []types.CartLine `json:"lines"`
	TotalCents         int64            `json:"total_cents"`
	VATEnabled         bool             `json:"vat_enabled"`
	VATInclusive       bool             `json:"vat_inclusive"`
	VATRatePercent     float64          `json:"vat_rate_percent"`
	VATCents           int64            `json:"vat_cents"`
	GrandTotalCents    int64            `json:"grand_total_cents"`
	RevenueCents       int64            `json:"revenue_cents"`
	PaymentMethod      string           `json:"payment_method"`
	CashReceivedCents  int64            `json:"cash_received_cents"`
	ChangeCents        int64            `json:"change_cents"`
	DiscountStaffID    string           `json:"discount_staff_id,omitempty"`
	DiscountSavedCents int64            `json:"discount_saved_cents,omitempty"`
	BasketKey          *string          `json:"basket_key,omitempty"`
	SoldAt             time.Time        `json:"sold_at"`
	SyncedAt           *time.Time       `json:"synced_at,omitempty"`
}

func newTransactionResponse(txn *models.PosTransaction) transactionResponse {
	return transactionResponse{
		TxnID:              txn.TxnID,
		State:              txn.State.String(),
		StaffID:            txn.StaffID,
		DeviceID:           txn.DeviceID,
		CustomerName:       txn.CustomerName,
		Lines:              txn.Lines,
		TotalCents:         txn.TotalCents,
		VATEnabled:         txn.VATEnabled,
		VATInclusive:       txn.VATInclusive,
		VATRatePercent:     txn.VATRatePercent,
		VATCents:           txn.VATCents,
		GrandTotalCents:    txn.GrandTotalCents,
		RevenueCents:       txn.RevenueCents,
		PaymentMethod:      txn.PaymentMethod.String(),
		CashReceivedCents:  txn.CashReceivedCents,
		ChangeCents:        txn.ChangeCents,
		DiscountStaffID:    txn.DiscountStaffID,
		DiscountSavedCents: txn.DiscountSavedCents,
		BasketKey:          txn.BasketKey,
		SoldAt:             txn.SoldAt,
		SyncedAt:           txn.SyncedAt,
	}
}

type checkoutResponse struct {
	Transaction      transactionResponse `json:"transaction"`
	OfflinePending   bool                `json:"offline_pending"`
	Message          string              `json:"message,omitempty"`
	DeductionWarning string              `json:"deduction_warning,omitempty"`
}

func newCheckoutResponse(result *possvc.CheckoutResult) checkoutResponse {
	resp := checkoutResponse{
		Transaction:    newTransactionResponse(result.Transaction),
		OfflinePending: result.OfflinePending,
	}
	if result.OfflinePending {
		resp.Message = "saved offline, will sync"
	}
	if result.DeductionWarning != nil {
		resp.DeductionWarning = result.DeductionWarning.Error()
	}
	return resp
}

type syncFailureResponse struct {
	TxnID string `json:"txn_id"`
	Error string `json:"error"`
}

type syncReportResponse struct {
	Synced   int                   `json:"synced"`
	Outcome  string                `json:"outcome"`
	Failures []syncFailureResponse `json:"failures,omitempty"`
}

func newSyncReportResponse(report *syncer.Report) syncReportResponse {
	resp := syncReportResponse{
		Synced:  report.Synced,
		Outcome: report.Outcome.String(),
	}
	for _, failure := range report.Failures {
		resp.Failures = append(resp.Failures, syncFailureResponse{
			TxnID: failure.TxnID,
			Error: failure.Err.Error(),
		})
	}
	return resp
}

type basketResponse struct {
	BasketKey     string           `json:"basket_key"`
	BasketNumber  int              `json:"basket_number"`
	RequesterName string           `json:"requester_name"`
	Status        string           `json:"status"`
	Lines         []types.CartLine `json:"lines"`
	CreatedAt     time.Time        `json:"created_at"`
}

func newBasketResponse(basket models.PendingBasket) basketResponse {
	return basketResponse{
		BasketKey:     basket.BasketKey,
		BasketNumber:  basket.BasketNumber,
		RequesterName: basket.RequesterName,
		Status:        basket.Status.String(),
		Lines:         basket.Lines,
		CreatedAt:     basket.CreatedAt,
	}
}

type catalogItemResponse struct {
	ItemID     string `json:"item_id"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	PriceCents int64  `json:"price_cents"`
	Quantity   int    `json:"quantity"`
}

func newCatalogItemResponse(item models.CatalogItem) catalogItemResponse {
	return catalogItemResponse{
		ItemID:     item.ItemID,
		Name:       item.Name,
		Category:   item.Category,
		PriceCents: item.PriceCents,
		Quantity:   item.Quantity,
	}
}
