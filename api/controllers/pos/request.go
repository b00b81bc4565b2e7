package pos

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rdelrosario/sari-pos/internal/compose"
	"github.com/rdelrosario/sari-pos/pkg/enums"
	pkgerrors "github.com/rdelrosario/sari-pos/pkg/errors"
	"github.com/rdelrosario/sari-pos/pkg/types"
)

type addItemRequest struct {
	ItemID   string `json:"item_id" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,min=1"`
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"min=0"`
}

type cashMovementPayload struct {
	Direction      string `json:"direction" validate:"required,oneof=cash_in cash_out"`
	Provider       string `json:"provider" validate:"required"`
	PrincipalCents int64  `json:"principal_cents" validate:"required,min=1"`
	FeeCents       int64  `json:"fee_cents" validate:"min=0"`
}

type customLineRequest struct {
	Name                 string               `json:"name" validate:"required"`
	Quantity             int                  `json:"quantity" validate:"required,min=1"`
	UnitPriceCents       int64                `json:"unit_price_cents" validate:"min=0"`
	DiscountedPriceCents *int64               `json:"discounted_price_cents,omitempty"`
	CashMovement         *cashMovementPayload `json:"cash_movement,omitempty"`
}

func (r customLineRequest) toLine() (types.CartLine, error) {
	line := types.CartLine{
		ItemID:         "custom-" + strings.SplitN(uuid.NewString(), "-", 2)[0],
		Name:           r.Name,
		Quantity:       r.Quantity,
		UnitPriceCents: r.UnitPriceCents,
		Custom:         true,
	}
	if r.DiscountedPriceCents != nil {
		original := r.UnitPriceCents
		line.DiscountedPriceCents = r.DiscountedPriceCents
		line.OriginalPriceCents = &original
	}
	if r.CashMovement != nil {
		direction, err := enums.ParseCashDirection(r.CashMovement.Direction)
		if err != nil {
			return types.CartLine{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cash direction")
		}
		line.CashMovement = &types.CashMovement{
			Direction:      direction,
			Provider:       r.CashMovement.Provider,
			PrincipalCents: r.CashMovement.PrincipalCents,
			FeeCents:       r.CashMovement.FeeCents,
		}
	}
	return line, nil
}

type checkoutRequest struct {
	PaymentMethod     string `json:"payment_method" validate:"required,oneof=cash e_wallet"`
	CashReceivedCents int64  `json:"cash_received_cents" validate:"min=0"`
	DiscountStaffID   string `json:"discount_staff_id,omitempty"`
}

func (r checkoutRequest) toPayment() (compose.Payment, error) {
	method, err := enums.ParsePaymentMethod(r.PaymentMethod)
	if err != nil {
		return compose.Payment{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err,
			fmt.Sprintf("invalid payment method %q", r.PaymentMethod))
	}
	return compose.Payment{
		Method:            method,
		CashReceivedCents: r.CashReceivedCents,
		DiscountStaffID:   r.DiscountStaffID,
	}, nil
}
