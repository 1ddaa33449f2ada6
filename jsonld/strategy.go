// Package jsonld extracts product data from embedded JSON-LD structured
// data (schema.org Product graphs). It is the highest-priority extraction
// strategy: when a site ships machine-readable product markup there is no
// reason to guess at its DOM.
package jsonld

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/minute-repeater/restocked"
	"github.com/minute-repeater/restocked/extract"
)

// Ensure Strategy implements restocked.ExtractStrategy at compile time.
var _ restocked.ExtractStrategy = (*Strategy)(nil)

// Strategy extracts products from <script type="application/ld+json">
// blocks, including @graph wrappers and top-level arrays.
type Strategy struct {
	maxVariants int
}

// NewStrategy creates a Strategy with the given variant truncation cap.
// A non-positive cap uses extract.DefaultMaxVariants.
func NewStrategy(maxVariants int) *Strategy {
	return &Strategy{maxVariants: maxVariants}
}

// Name identifies the strategy.
func (s *Strategy) Name() string { return "jsonld" }

// Extract scans all JSON-LD script blocks for a Product node. Malformed
// blocks are skipped, not fatal; sites routinely ship broken JSON next to
// valid blocks.
func (s *Strategy) Extract(html, url string) (*restocked.ExtractedProduct, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, restocked.Errorf(restocked.EINVALID, "failed to parse HTML: %v", err)
	}

	var node map[string]any
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		var raw any
		if err := json.Unmarshal([]byte(sel.Text()), &raw); err != nil {
			return true
		}
		if found := findProductNode(raw, 0); found != nil {
			node = found
			return false
		}
		return true
	})

	if node == nil {
		return nil, restocked.Errorf(restocked.ENOPRODUCT, "no JSON-LD product data at %s", url)
	}

	return s.build(node, url), nil
}

// maxDepth bounds the recursive graph walk; real-world graphs are shallow.
const maxDepth = 6

// findProductNode walks a decoded JSON-LD value looking for the first node
// whose @type includes "Product".
func findProductNode(v any, depth int) map[string]any {
	if depth > maxDepth {
		return nil
	}
	switch node := v.(type) {
	case []any:
		for _, item := range node {
			if found := findProductNode(item, depth+1); found != nil {
				return found
			}
		}
	case map[string]any:
		if hasType(node, "Product") {
			return node
		}
		for _, key := range []string{"@graph", "mainEntity", "itemListElement", "item"} {
			if child, ok := node[key]; ok {
				if found := findProductNode(child, depth+1); found != nil {
					return found
				}
			}
		}
	}
	return nil
}

func hasType(node map[string]any, want string) bool {
	switch t := node["@type"].(type) {
	case string:
		return strings.EqualFold(t, want)
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.EqualFold(s, want) {
				return true
			}
		}
	}
	return false
}

// build maps a Product node to the canonical representation.
func (s *Strategy) build(node map[string]any, url string) *restocked.ExtractedProduct {
	product := &restocked.ExtractedProduct{
		URL:          url,
		Name:         stringField(node, "name"),
		MainImageURL: imageURL(node["image"]),
		StockStatus:  restocked.StockUnknown,
	}

	offers := offerList(node["offers"])
	switch len(offers) {
	case 0:
	case 1:
		price, status := offerPriceStatus(offers[0])
		product.PriceCents = price
		product.StockStatus = status
	default:
		variants := make([]restocked.ExtractedVariant, 0, len(offers))
		for i, offer := range offers {
			price, status := offerPriceStatus(offer)
			variants = append(variants, restocked.ExtractedVariant{
				Attributes:  offerAttributes(offer, i),
				PriceCents:  price,
				StockStatus: status,
			})
		}
		var note string
		product.Variants, note = extract.TruncateVariants(variants, s.maxVariants)
		if note != "" {
			product.Notes = append(product.Notes, note)
		}
		// Product-level price falls back to the first offer so the
		// plausibility check and inheritance have something to work with.
		product.PriceCents = product.Variants[0].PriceCents
		product.StockStatus = product.Variants[0].StockStatus
	}

	return product
}

// offerList flattens the offers field: a single Offer object, an array of
// Offers, or an AggregateOffer wrapping an "offers" array.
func offerList(v any) []map[string]any {
	switch node := v.(type) {
	case map[string]any:
		if hasType(node, "AggregateOffer") {
			if inner := offerList(node["offers"]); len(inner) > 0 {
				return inner
			}
		}
		return []map[string]any{node}
	case []any:
		out := make([]map[string]any, 0, len(node))
		for _, item := range node {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

func offerPriceStatus(offer map[string]any) (*int64, restocked.StockStatus) {
	price := priceCents(offer["price"])
	if price == nil {
		price = priceCents(offer["lowPrice"])
	}
	if price == nil {
		if spec, ok := offer["priceSpecification"].(map[string]any); ok {
			price = priceCents(spec["price"])
		}
	}

	status := restocked.StockUnknown
	if avail := stringField(offer, "availability"); avail != "" {
		status = extract.ParseAvailability(avail)
	}
	return price, status
}

// offerAttributes derives a variant's attribute set from an offer.
// Preference order: itemOffered.additionalProperty pairs, explicit
// size/color fields, offer or item name, then sku as a last resort.
func offerAttributes(offer map[string]any, position int) restocked.Attributes {
	item, _ := offer["itemOffered"].(map[string]any)

	if item != nil {
		if props, ok := item["additionalProperty"].([]any); ok {
			var attrs restocked.Attributes
			for _, p := range props {
				prop, ok := p.(map[string]any)
				if !ok {
					continue
				}
				name := stringField(prop, "name")
				value := scalarString(prop["value"])
				if name != "" && value != "" {
					attrs = append(attrs, restocked.Attribute{Key: name, Value: value})
				}
			}
			if len(attrs) > 0 {
				return attrs
			}
		}
	}

	var attrs restocked.Attributes
	for _, src := range []map[string]any{item, offer} {
		if src == nil {
			continue
		}
		for _, key := range []string{"size", "color"} {
			if v := scalarString(src[key]); v != "" {
				attrs = append(attrs, restocked.Attribute{Key: key, Value: v})
			}
		}
		if len(attrs) > 0 {
			return attrs
		}
	}

	for _, src := range []map[string]any{item, offer} {
		if src == nil {
			continue
		}
		if name := stringField(src, "name"); name != "" {
			return restocked.Attributes{{Key: "option", Value: name}}
		}
	}
	if sku := stringField(offer, "sku"); sku != "" {
		return restocked.Attributes{{Key: "sku", Value: sku}}
	}
	return restocked.Attributes{{Key: "option", Value: fmt.Sprintf("#%d", position+1)}}
}

func priceCents(v any) *int64 {
	switch val := v.(type) {
	case float64:
		if val <= 0 {
			return nil
		}
		cents := int64(math.Round(val * 100))
		return &cents
	case string:
		if cents, ok := extract.ParsePriceCents(val); ok {
			return &cents
		}
	}
	return nil
}

func stringField(node map[string]any, key string) string {
	if node == nil {
		return ""
	}
	s, _ := node[key].(string)
	return strings.TrimSpace(s)
}

// scalarString renders a JSON scalar as a string; numbers lose no
// precision for the attribute values seen in practice.
func scalarString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		if val == math.Trunc(val) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	}
	return ""
}

// imageURL handles the image field's common shapes: a URL string, an array
// of URLs, or an ImageObject.
func imageURL(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case []any:
		for _, item := range val {
			if s := imageURL(item); s != "" {
				return s
			}
		}
	case map[string]any:
		return stringField(val, "url")
	}
	return ""
}
