package restocked

// ExtractedProduct is the canonical representation of a product page as
// produced by an extraction strategy, before reconciliation with the store.
type ExtractedProduct struct {
	// URL is the normalized source URL the page was extracted from.
	URL string

	// Name is the product title. Always non-empty for a plausible result.
	Name string

	// MainImageURL is the primary product image, if found.
	MainImageURL string

	// PriceCents is the product-level price, inherited by variants that
	// carry no override.
	PriceCents *int64

	// StockStatus is the product-level availability, inherited by variants
	// that carry no override.
	StockStatus StockStatus

	// Variants are the purchasable configurations. Empty when the page
	// exposes no attribute axes; ingestion then records a single default
	// variant.
	Variants []ExtractedVariant

	// Notes records non-fatal extraction observations, e.g. variant
	// truncation.
	Notes []string
}

// ExtractedVariant is one attribute combination observed on a page.
type ExtractedVariant struct {
	Attributes  Attributes
	PriceCents  *int64
	StockStatus StockStatus
}

// Plausible reports whether the extraction produced a usable product:
// a non-empty name and at least one price (product-level or per-variant).
func (p *ExtractedProduct) Plausible() bool {
	if p == nil || p.Name == "" {
		return false
	}
	if p.PriceCents != nil {
		return true
	}
	for _, v := range p.Variants {
		if v.PriceCents != nil {
			return true
		}
	}
	return false
}

// Axis is one variant attribute dimension with its finite value set,
// e.g. {Name: "size", Values: ["S", "M", "L"]}.
type Axis struct {
	Name   string
	Values []string
}

// ExtractStrategy is one algorithm for turning raw page content into a
// canonical product. Strategies are tried in priority order; the first
// plausible result wins and partial results from failed strategies are
// discarded entirely.
type ExtractStrategy interface {
	// Name identifies the strategy in notes and logs.
	Name() string

	// Extract parses html fetched from url. It returns ENOPRODUCT when the
	// page holds no product the strategy can recognize; this is an
	// expected outcome, not a fault.
	Extract(html, url string) (*ExtractedProduct, error)
}

// Extractor turns fetched pages into canonical products.
type Extractor interface {
	Extract(html, url string) (*ExtractedProduct, error)
}
