package catalog

import "time"

// ProductStatus represents the lifecycle state of a product
type ProductStatus string

const (
	// ProductStatusDraft indicates the product is not yet published
	ProductStatusDraft ProductStatus = "draft"
	// ProductStatusPublish indicates the product is live
	ProductStatusPublish ProductStatus = "publish"
)

// IsValid returns true if the status is valid
func (s ProductStatus) IsValid() bool {
	return s == ProductStatusDraft || s == ProductStatusPublish
}

// String returns the string representation of ProductStatus
func (s ProductStatus) String() string {
	return string(s)
}

// Product is a catalog product identified by SKU. Products are created by
// bulk scope loads, updated by repeated loads and never hard-deleted.
type Product struct {
	SKU         string
	NameAR      string
	NameEN      string
	DescAR      string
	DescEN      string
	Brand       string
	Status      ProductStatus
	CategoryKey string
	Weight      float64
	Barcode     string
	Images      []string
	SourceScope Scope
	UpdatedAt   time.Time
}

// HasBilingualNames reports whether both the Arabic and English names are
// set; rollout gates require both.
func (p *Product) HasBilingualNames() bool {
	return p.NameAR != "" && p.NameEN != ""
}
