package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/rdelrosario/sari-pos/pkg/enums"
)

// CashMovement annotates an e-wallet cash-in/cash-out line. The principal is
// the cash actually moved for the customer; only the fee is revenue.
type CashMovement struct {
	Direction      enums.CashDirection `json:"direction"`
	Provider       string              `json:"provider"`
	PrincipalCents int64               `json:"principal_cents"`
	FeeCents       int64               `json:"fee_cents"`
}

// CartLine is one entry in a cart. Custom lines carry a synthetic item id and
// are exempt from remote stock validation, as are basket-sourced lines with a
// pre-validated stock snapshot.
type CartLine struct {
	ItemID               string        `json:"item_id"`
	Name                 string        `json:"name"`
	Category             string        `json:"category"`
	Quantity             int           `json:"quantity"`
	UnitPriceCents       int64         `json:"unit_price_cents"`
	DiscountedPriceCents *int64        `json:"discounted_price_cents,omitempty"`
	OriginalPriceCents   *int64        `json:"original_price_cents,omitempty"`
	Custom               bool          `json:"custom,omitempty"`
	StockSnapshot        *int          `json:"stock_snapshot,omitempty"`
	CashMovement         *CashMovement `json:"cash_movement,omitempty"`
}

// EffectivePriceCents returns the price used for every total calculation:
// the discounted price when present, the unit price otherwise.
func (l CartLine) EffectivePriceCents() int64 {
	if l.DiscountedPriceCents != nil {
		return *l.DiscountedPriceCents
	}
	return l.UnitPriceCents
}

// Discounted reports whether the line carries a discount override.
func (l CartLine) Discounted() bool {
	return l.DiscountedPriceCents != nil
}

// Validate enforces the line invariants.
func (l CartLine) Validate() error {
	if strings.TrimSpace(l.ItemID) == "" {
		return fmt.Errorf("line item id is required")
	}
	if l.Quantity <= 0 {
		return fmt.Errorf("line %s: quantity must be positive", l.ItemID)
	}
	if l.UnitPriceCents < 0 {
		return fmt.Errorf("line %s: unit price cannot be negative", l.ItemID)
	}
	if l.DiscountedPriceCents != nil {
		if l.OriginalPriceCents == nil {
			return fmt.Errorf("line %s: discounted price requires the original price", l.ItemID)
		}
		if *l.DiscountedPriceCents < 0 {
			return fmt.Errorf("line %s: discounted price cannot be negative", l.ItemID)
		}
	}
	if l.CashMovement != nil && !l.CashMovement.Direction.IsValid() {
		return fmt.Errorf("line %s: invalid cash direction %q", l.ItemID, l.CashMovement.Direction)
	}
	return nil
}

// Cart is the mutable in-progress sale owned by one staff identity. Version
// is a monotonic sequence bumped on every local edit; devices discard remote
// updates that are not newer than their own last-pushed version.
type Cart struct {
	StaffID      string     `json:"staff_id"`
	CustomerName string     `json:"customer_name,omitempty"`
	Version      int64      `json:"version"`
	Lines        []CartLine `json:"lines"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Empty reports whether the cart has no lines.
func (c Cart) Empty() bool {
	return len(c.Lines) == 0
}

// Clone returns a deep copy so a frozen snapshot cannot alias live edits.
func (c Cart) Clone() Cart {
	out := c
	out.Lines = make([]CartLine, len(c.Lines))
	copy(out.Lines, c.Lines)
	for i, line := range c.Lines {
		if line.DiscountedPriceCents != nil {
			v := *line.DiscountedPriceCents
			out.Lines[i].DiscountedPriceCents = &v
		}
		if line.OriginalPriceCents != nil {
			v := *line.OriginalPriceCents
			out.Lines[i].OriginalPriceCents = &v
		}
		if line.StockSnapshot != nil {
			v := *line.StockSnapshot
			out.Lines[i].StockSnapshot = &v
		}
		if line.CashMovement != nil {
			v := *line.CashMovement
			out.Lines[i].CashMovement = &v
		}
	}
	return out
}

// Validate enforces cart invariants across all lines.
func (c Cart) Validate() error {
	if strings.TrimSpace(c.StaffID) == "" {
		return fmt.Errorf("cart staff id is required")
	}
	for _, line := range c.Lines {
		if err := line.Validate(); err != nil {
			return err
		}
	}
	return nil
}
