package compose

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rdelrosario/sari-pos/pkg/config"
	"github.com/rdelrosario/sari-pos/pkg/db/models"
	"github.com/rdelrosario/sari-pos/pkg/enums"
	pkgerrors "github.com/rdelrosario/sari-pos/pkg/errors"
	"github.com/rdelrosario/sari-pos/pkg/types"
	"github.com/shopspring/decimal"
)

// Payment captures what the cashier collected at confirmation time.
type Payment struct {
	Method            enums.PaymentMethod
	CashReceivedCents int64
	// DiscountStaffID identifies who authorized discount mode. Authorization
	// happens before compose; it is recorded here, never re-checked.
	DiscountStaffID string
}

// Composer turns a frozen cart snapshot into an immutable priced record.
// Pricing is a pure function of its inputs plus the VAT settings captured at
// construction; the clock and id source are injectable for tests.
type Composer struct {
	vat   config.VATConfig
	now   func() time.Time
	newID func(at time.Time) string
}

// Option adjusts composer construction.
type Option func(*Composer)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(c *Composer) { c.now = now }
}

// WithIDSource overrides transaction id generation.
func WithIDSource(newID func(at time.Time) string) Option {
	return func(c *Composer) { c.newID = newID }
}

// NewComposer builds the transaction composer with the given VAT settings.
func NewComposer(vat config.VATConfig, opts ...Option) *Composer {
	c := &Composer{
		vat:   vat,
		now:   time.Now,
		newID: TransactionID,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TransactionID builds a sortable, collision-resistant id from the sale
// timestamp and a short random suffix.
func TransactionID(at time.Time) string {
	short := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("%d-%s", at.UnixMilli(), short)
}

// Compose prices the cart and assembles the queued record. The cart is
// deep-copied first so later edits cannot reach the frozen snapshot.
// basketKey references the originating pending basket, empty when none.
func (c *Composer) Compose(cart types.Cart, payment Payment, deviceID, basketKey string) (*models.PosTransaction, error) {
	if cart.Empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if err := cart.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cart")
	}
	if !payment.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown payment method %q", payment.Method))
	}

	snapshot := cart.Clone()
	soldAt := c.now().UTC()

	var totalCents int64
	var principalCents int64
	var discountSavedCents int64
	discounted := false
	for _, line := range snapshot.Lines {
		totalCents += line.EffectivePriceCents() * int64(line.Quantity)
		if line.CashMovement != nil {
			principalCents += line.CashMovement.PrincipalCents
		}
		if line.Discounted() {
			discounted = true
			if line.OriginalPriceCents != nil {
				saved := *line.OriginalPriceCents - *line.DiscountedPriceCents
				if saved > 0 {
					discountSavedCents += saved * int64(line.Quantity)
				}
			}
		}
	}

	vatCents, grandTotalCents := c.vatBreakdown(totalCents)

	revenueCents := grandTotalCents - principalCents

	var changeCents int64
	if payment.Method == enums.PaymentMethodCash {
		changeCents = payment.CashReceivedCents - grandTotalCents
		if changeCents < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf(
				"cash received %d is short of grand total %d", payment.CashReceivedCents, grandTotalCents))
		}
	}

	txn := &models.PosTransaction{
		TxnID:              c.newID(soldAt),
		State:              enums.TransactionStatePending,
		StaffID:            snapshot.StaffID,
		DeviceID:           deviceID,
		CustomerName:       snapshot.CustomerName,
		Lines:              snapshot.Lines,
		TotalCents:         totalCents,
		VATEnabled:         c.vat.Enabled,
		VATInclusive:       c.vat.Inclusive,
		VATRatePercent:     c.vat.RatePercent,
		VATCents:           vatCents,
		GrandTotalCents:    grandTotalCents,
		RevenueCents:       revenueCents,
		PaymentMethod:      payment.Method,
		CashReceivedCents:  payment.CashReceivedCents,
		ChangeCents:        changeCents,
		SoldAt:             soldAt,
		EnqueuedAt:         soldAt,
		DiscountSavedCents: discountSavedCents,
	}
	if discounted {
		txn.DiscountStaffID = payment.DiscountStaffID
	}
	if basketKey != "" {
		key := basketKey
		txn.BasketKey = &key
	}
	return txn, nil
}

// vatBreakdown splits the line total into the VAT amount and the grand
// total under the configured regime. Inclusive VAT is carved out of the
// total; exclusive VAT is added on top. Amounts round half up to the cent.
func (c *Composer) vatBreakdown(totalCents int64) (vatCents, grandTotalCents int64) {
	if !c.vat.Enabled || c.vat.RatePercent == 0 {
		return 0, totalCents
	}
	total := decimal.NewFromInt(totalCents)
	rate := decimal.NewFromFloat(c.vat.RatePercent).Div(decimal.NewFromInt(100))
	if c.vat.Inclusive {
		vat := total.Sub(total.Div(decimal.NewFromInt(1).Add(rate))).Round(0)
		return vat.IntPart(), totalCents
	}
	vat := total.Mul(rate).Round(0)
	return vat.IntPart(), totalCents + vat.IntPart()
}
