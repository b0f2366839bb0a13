// Package models holds the GORM persistence models for the hub store and
// their converters to and from domain entities. Column types stay within
// the subset both PostgreSQL and SQLite understand.
package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ngs/omnihub/internal/domain/catalog"
)

// ProductModel is the persistence model for the Product domain entity
type ProductModel struct {
	SKU         string                `gorm:"type:varchar(64);primaryKey"`
	NameAR      string                `gorm:"type:varchar(255);not null"`
	NameEN      string                `gorm:"type:varchar(255);not null"`
	DescAR      string                `gorm:"type:text"`
	DescEN      string                `gorm:"type:text"`
	Brand       string                `gorm:"type:varchar(128);index"`
	Status      catalog.ProductStatus `gorm:"type:varchar(20);not null;default:'draft'"`
	CategoryKey string                `gorm:"type:varchar(128);index"`
	Weight      float64               `gorm:"not null;default:0"`
	Barcode     string                `gorm:"type:varchar(64);index"`
	Images      string                `gorm:"type:text"`
	SourceScope catalog.Scope         `gorm:"type:varchar(20);not null;index"`
	UpdatedAt   time.Time             `gorm:"not null;autoUpdateTime"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product entity
func (m *ProductModel) ToDomain() *catalog.Product {
	var images []string
	if m.Images != "" {
		_ = json.Unmarshal([]byte(m.Images), &images)
	}
	return &catalog.Product{
		SKU:         m.SKU,
		NameAR:      m.NameAR,
		NameEN:      m.NameEN,
		DescAR:      m.DescAR,
		DescEN:      m.DescEN,
		Brand:       m.Brand,
		Status:      m.Status,
		CategoryKey: m.CategoryKey,
		Weight:      m.Weight,
		Barcode:     m.Barcode,
		Images:      images,
		SourceScope: m.SourceScope,
		UpdatedAt:   m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain Product entity
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.SKU = p.SKU
	m.NameAR = p.NameAR
	m.NameEN = p.NameEN
	m.DescAR = p.DescAR
	m.DescEN = p.DescEN
	m.Brand = p.Brand
	m.Status = p.Status
	m.CategoryKey = p.CategoryKey
	m.Weight = p.Weight
	m.Barcode = p.Barcode
	if len(p.Images) > 0 {
		if b, err := json.Marshal(p.Images); err == nil {
			m.Images = string(b)
		}
	} else {
		m.Images = ""
	}
	m.SourceScope = p.SourceScope
	m.UpdatedAt = p.UpdatedAt
}

// InventoryModel is the persistence model for the Inventory domain entity.
// Sellable quantity is derived in the domain, never stored.
type InventoryModel struct {
	SKU         string    `gorm:"type:varchar(64);primaryKey"`
	StockOnHand int       `gorm:"not null;default:0"`
	ReservedQty int       `gorm:"not null;default:0"`
	SafetyStock int       `gorm:"not null;default:0"`
	UpdatedAt   time.Time `gorm:"not null;autoUpdateTime"`
}

// TableName returns the table name for GORM
func (InventoryModel) TableName() string {
	return "inventories"
}

// ToDomain converts the persistence model to a domain Inventory entity
func (m *InventoryModel) ToDomain() *catalog.Inventory {
	return &catalog.Inventory{
		SKU:         m.SKU,
		StockOnHand: m.StockOnHand,
		ReservedQty: m.ReservedQty,
		SafetyStock: m.SafetyStock,
		UpdatedAt:   m.UpdatedAt,
	}
}

// PricingModel is the persistence model for the Pricing domain entity
type PricingModel struct {
	SKU             string          `gorm:"type:varchar(64);primaryKey"`
	BaseCostSAR     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TargetMarginPct decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	VATIncluded     bool            `gorm:"not null;default:true"`
	UpdatedAt       time.Time       `gorm:"not null;autoUpdateTime"`
}

// TableName returns the table name for GORM
func (PricingModel) TableName() string {
	return "pricings"
}

// ToDomain converts the persistence model to a domain Pricing entity
func (m *PricingModel) ToDomain() *catalog.Pricing {
	return &catalog.Pricing{
		SKU:             m.SKU,
		BaseCostSAR:     m.BaseCostSAR,
		TargetMarginPct: m.TargetMarginPct,
		VATIncluded:     m.VATIncluded,
		UpdatedAt:       m.UpdatedAt,
	}
}
