package restocked

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// StockStatus describes the availability of a variant.
type StockStatus string

// StockStatus values.
const (
	InStock      StockStatus = "in_stock"
	OutOfStock   StockStatus = "out_of_stock"
	StockUnknown StockStatus = "unknown"
)

// Valid reports whether s is a known stock status.
func (s StockStatus) Valid() bool {
	switch s {
	case InStock, OutOfStock, StockUnknown:
		return true
	}
	return false
}

// Product represents a tracked catalog entry, deduplicated by its
// normalized source URL. A product is created on the first successful
// extraction of a URL and updated on every subsequent ingestion.
type Product struct {
	ID           string    `json:"id"`
	URL          string    `json:"url"`
	Name         string    `json:"name"`
	MainImageURL string    `json:"mainImageUrl"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Validate returns an error if the product contains invalid fields.
func (p *Product) Validate() error {
	if p.URL == "" {
		return Errorf(EINVALID, "product URL required")
	}
	if p.Name == "" {
		return Errorf(EINVALID, "product name required")
	}
	return nil
}

// Attribute is a single key/value pair of a variant's configuration,
// e.g. {size: "M"}.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Attributes is the ordered attribute set identifying one purchasable
// configuration. Identity is defined by the normalized set, not by order.
type Attributes []Attribute

// Normalize returns a canonical copy: keys and values trimmed, keys
// lowercased, pairs sorted by key. Two attribute sets describe the same
// variant iff their normalized forms are equal.
func (a Attributes) Normalize() Attributes {
	out := make(Attributes, len(a))
	for i, attr := range a {
		out[i] = Attribute{
			Key:   strings.ToLower(strings.TrimSpace(attr.Key)),
			Value: strings.TrimSpace(attr.Value),
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Fingerprint returns a stable hash of the normalized attribute set,
// used to match variants across re-extractions. Values are compared
// case-insensitively.
func (a Attributes) Fingerprint() string {
	var sb strings.Builder
	for _, attr := range a.Normalize() {
		sb.WriteString(attr.Key)
		sb.WriteByte('=')
		sb.WriteString(strings.ToLower(attr.Value))
		sb.WriteByte(';')
	}
	return fmt.Sprintf("%016x", xxhash.Sum64String(sb.String()))
}

// String renders the attribute set for display, e.g. "color=Red, size=M".
func (a Attributes) String() string {
	parts := make([]string, len(a))
	for i, attr := range a {
		parts[i] = attr.Key + "=" + attr.Value
	}
	return strings.Join(parts, ", ")
}

// Variant represents one purchasable configuration of a product.
// Within one product no two variants share a normalized attribute set.
type Variant struct {
	ID          string      `json:"id"`
	ProductID   string      `json:"productId"`
	Attributes  Attributes  `json:"attributes"`
	PriceCents  *int64      `json:"priceCents"`
	StockStatus StockStatus `json:"stockStatus"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// PricePoint is one append-only price observation for a variant.
type PricePoint struct {
	ID         string    `json:"id"`
	VariantID  string    `json:"variantId"`
	PriceCents int64     `json:"priceCents"`
	RecordedAt time.Time `json:"recordedAt"`
}

// StockPoint is one append-only stock observation for a variant.
type StockPoint struct {
	ID         string      `json:"id"`
	VariantID  string      `json:"variantId"`
	Status     StockStatus `json:"status"`
	RecordedAt time.Time   `json:"recordedAt"`
}

// VariantChange pairs a variant's persisted state before an ingestion with
// its state after. Previous is nil for a first-ever observation.
type VariantChange struct {
	Previous *Variant
	Current  *Variant
}

// IngestResult holds the outcome of reconciling an ExtractedProduct
// against the store.
type IngestResult struct {
	Product  *Product
	Variants []*Variant
	Changes  []VariantChange
	Notes    []string
}

// ProductService manages products, variants and their observation history.
type ProductService interface {
	// Ingest reconciles an extracted product against the store in one
	// transaction: upserts the product by normalized URL, matches variants
	// by attribute fingerprint, and stages history rows for changed values.
	// Ingesting identical input twice produces no new rows.
	Ingest(ctx context.Context, extracted *ExtractedProduct) (*IngestResult, error)

	// FindProductByID retrieves a product by ID.
	// Returns ENOTFOUND if the product does not exist.
	FindProductByID(ctx context.Context, id string) (*Product, error)

	// FindProductByURL retrieves a product by normalized source URL.
	// Returns ENOTFOUND if the product does not exist.
	FindProductByURL(ctx context.Context, url string) (*Product, error)

	// FindProducts retrieves products matching the filter.
	FindProducts(ctx context.Context, filter ProductFilter) ([]*Product, error)

	// FindVariantByID retrieves a variant by ID.
	// Returns ENOTFOUND if the variant does not exist.
	FindVariantByID(ctx context.Context, id string) (*Variant, error)

	// FindVariantsByProduct retrieves all variants of a product in a
	// stable order.
	FindVariantsByProduct(ctx context.Context, productID string) ([]*Variant, error)

	// PriceHistory returns a variant's price observations, newest first.
	PriceHistory(ctx context.Context, variantID string, limit int) ([]*PricePoint, error)

	// StockHistory returns a variant's stock observations, newest first.
	StockHistory(ctx context.Context, variantID string, limit int) ([]*StockPoint, error)
}

// ProductFilter represents a filter for FindProducts.
type ProductFilter struct {
	ID  *string `json:"id"`
	URL *string `json:"url"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}
