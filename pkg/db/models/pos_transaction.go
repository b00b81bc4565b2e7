package models

import (
	"time"

	"github.com/rdelrosario/sari-pos/pkg/enums"
	"github.com/rdelrosario/sari-pos/pkg/types"
)

// PosTransaction is a fully-priced, immutable sale record. The TxnID doubles
// as the idempotency key for remote writes. State selects the durable
// partition: pending rows are owed to the remote store, completed rows are
// the permanent audit trail.
type PosTransaction struct {
	TxnID              string                 `gorm:"column:txn_id;primaryKey"`
	State              enums.TransactionState `gorm:"column:state;not null;index"`
	StaffID            string                 `gorm:"column:staff_id;not null"`
	DeviceID           string                 `gorm:"column:device_id;not null"`
	CustomerName       string                 `gorm:"column:customer_name"`
	Lines              []types.CartLine       `gorm:"column:lines;serializer:json"`
	TotalCents         int64                  `gorm:"column:total_cents;not null"`
	VATEnabled         bool                   `gorm:"column:vat_enabled;not null"`
	VATInclusive       bool                   `gorm:"column:vat_inclusive;not null"`
	VATRatePercent     float64                `gorm:"column:vat_rate_percent;not null"`
	VATCents           int64                  `gorm:"column:vat_cents;not null"`
	GrandTotalCents    int64                  `gorm:"column:grand_total_cents;not null"`
	RevenueCents       int64                  `gorm:"column:revenue_cents;not null"`
	PaymentMethod      enums.PaymentMethod    `gorm:"column:payment_method;not null"`
	CashReceivedCents  int64                  `gorm:"column:cash_received_cents;not null;default:0"`
	ChangeCents        int64                  `gorm:"column:change_cents;not null;default:0"`
	DiscountStaffID    string                 `gorm:"column:discount_staff_id"`
	DiscountSavedCents int64                  `gorm:"column:discount_saved_cents;not null;default:0"`
	BasketKey          *string                `gorm:"column:basket_key"`
	SoldAt             time.Time              `gorm:"column:sold_at;not null"`
	EnqueuedAt         time.Time              `gorm:"column:enqueued_at;not null;index"`
	SyncedAt           *time.Time             `gorm:"column:synced_at"`
}

// TableName pins the goose-managed table name.
func (PosTransaction) TableName() string {
	return "pos_transactions"
}
