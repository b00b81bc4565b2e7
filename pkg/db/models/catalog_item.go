package models

import "time"

// CatalogItem is the locally cached view of one sellable item. Quantity is
// read-mostly and only the stock reconciler mutates it.
type CatalogItem struct {
	ItemID     string    `gorm:"column:item_id;primaryKey"`
	Name       string    `gorm:"column:name;not null"`
	Category   string    `gorm:"column:category;not null;index"`
	PriceCents int64     `gorm:"column:price_cents;not null;default:0"`
	Quantity   int       `gorm:"column:quantity;not null;default:0"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the goose-managed table name.
func (CatalogItem) TableName() string {
	return "catalog_items"
}
