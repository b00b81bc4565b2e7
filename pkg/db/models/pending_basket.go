package models

import (
	"time"

	"github.com/rdelrosario/sari-pos/pkg/enums"
	"github.com/rdelrosario/sari-pos/pkg/types"
)

// PendingBasket caches a requester-submitted basket awaiting a cashier. Lines
// carry the server-known stock snapshot taken when the basket was created, so
// checkout skips re-validating them against remote stock.
type PendingBasket struct {
	BasketKey     string             `gorm:"column:basket_key;primaryKey"`
	BasketNumber  int                `gorm:"column:basket_number;not null"`
	RequesterName string             `gorm:"column:requester_name;not null"`
	Status        enums.BasketStatus `gorm:"column:status;not null;default:'pending';index"`
	Lines         []types.CartLine   `gorm:"column:lines;serializer:json"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the goose-managed table name.
func (PendingBasket) TableName() string {
	return "pending_baskets"
}
