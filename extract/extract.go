// Package extract provides product extraction orchestration: an ordered
// chain of extraction strategies plus the shared parsing helpers and the
// capped variant-combination expansion they rely on.
package extract

import (
	"strings"

	"github.com/minute-repeater/restocked"
)

// Ensure Chain implements restocked.Extractor at compile time.
var _ restocked.Extractor = (*Chain)(nil)

// Chain tries extraction strategies in priority order and returns the
// first plausible result. Partial output from a failed strategy is
// discarded entirely, never merged into a later strategy's result.
type Chain struct {
	strategies []restocked.ExtractStrategy
}

// NewChain creates a Chain with strategies in priority order.
func NewChain(strategies ...restocked.ExtractStrategy) *Chain {
	return &Chain{strategies: strategies}
}

// Extract runs the strategies in order. It returns ENOPRODUCT when no
// strategy yields a plausible product; for pages with recognizable
// structure that still cannot be mapped it returns EUNSUPPORTED. Both are
// expected outcomes for unsupported sites, not faults.
func (c *Chain) Extract(html, url string) (*restocked.ExtractedProduct, error) {
	sawStructure := false
	for _, strategy := range c.strategies {
		product, err := strategy.Extract(html, url)
		if err != nil {
			continue
		}
		if product.Plausible() {
			product.URL = url
			inherit(product)
			return product, nil
		}
		if product.Name != "" {
			sawStructure = true
		}
	}
	if sawStructure {
		return nil, restocked.Errorf(restocked.EUNSUPPORTED, "page layout at %s is not supported", url)
	}
	return nil, restocked.Errorf(restocked.ENOPRODUCT, "no product found at %s", url)
}

// inherit fills variant-level price and stock from the product level for
// variants without an explicit override.
func inherit(product *restocked.ExtractedProduct) {
	for i := range product.Variants {
		v := &product.Variants[i]
		if v.PriceCents == nil {
			v.PriceCents = product.PriceCents
		}
		if v.StockStatus == "" || v.StockStatus == restocked.StockUnknown {
			if product.StockStatus != "" && product.StockStatus != restocked.StockUnknown {
				v.StockStatus = product.StockStatus
			} else if v.StockStatus == "" {
				v.StockStatus = restocked.StockUnknown
			}
		}
	}
}

// ParsePriceCents parses a human-formatted price ("29.99", "1.299,00 €",
// "$1,299") into cents. Returns false when the string holds no parseable
// amount.
func ParsePriceCents(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	// Keep digits and separators only; everything else is currency noise.
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}
	raw := b.String()
	if raw == "" {
		return 0, false
	}

	// Decide which separator is the decimal point. With both present the
	// later one wins; a lone separator followed by exactly two digits is
	// treated as decimal, otherwise as a thousands separator.
	lastDot := strings.LastIndexByte(raw, '.')
	lastComma := strings.LastIndexByte(raw, ',')
	decimal := -1
	switch {
	case lastDot >= 0 && lastComma >= 0:
		decimal = max(lastDot, lastComma)
	case lastDot >= 0:
		if len(raw)-lastDot-1 == 2 {
			decimal = lastDot
		}
	case lastComma >= 0:
		if len(raw)-lastComma-1 == 2 {
			decimal = lastComma
		}
	}

	var wholePart, centPart string
	if decimal >= 0 {
		wholePart, centPart = raw[:decimal], raw[decimal+1:]
	} else {
		wholePart, centPart = raw, "00"
	}
	wholePart = strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, wholePart)
	if wholePart == "" {
		wholePart = "0"
	}
	if len(centPart) != 2 {
		return 0, false
	}

	var cents int64
	for _, r := range wholePart + centPart {
		if r < '0' || r > '9' {
			return 0, false
		}
		cents = cents*10 + int64(r-'0')
		if cents < 0 {
			return 0, false
		}
	}
	if wholePart == "0" && centPart == "00" {
		return 0, false
	}
	return cents, true
}

// ParseAvailability maps schema.org availability values and common
// storefront phrases to a stock status.
func ParseAvailability(s string) restocked.StockStatus {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.TrimPrefix(v, "https://schema.org/")
	v = strings.TrimPrefix(v, "http://schema.org/")

	switch v {
	case "instock", "instoreonly", "onlineonly", "limitedavailability", "presale", "preorder":
		return restocked.InStock
	case "outofstock", "soldout", "discontinued", "backorder":
		return restocked.OutOfStock
	}

	switch {
	case strings.Contains(v, "out of stock"), strings.Contains(v, "sold out"),
		strings.Contains(v, "unavailable"), strings.Contains(v, "currently not available"):
		return restocked.OutOfStock
	case strings.Contains(v, "in stock"), strings.Contains(v, "available"):
		return restocked.InStock
	}

	return restocked.StockUnknown
}
