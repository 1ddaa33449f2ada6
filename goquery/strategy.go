// Package goquery provides the DOM-heuristics extraction strategy. It is
// the fallback for pages without usable structured data: product name,
// image, price and stock are located through prioritized CSS selector
// lists, and variant axes are read from select elements and radio groups.
package goquery

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/minute-repeater/restocked"
	"github.com/minute-repeater/restocked/extract"
)

// selectorConfig is one CSS selector with the attribute to read.
// An empty attr reads the node text.
type selectorConfig struct {
	selector string
	attr     string
}

// Selector lists are tried in order; the first hit wins.
var (
	nameSelectors = []selectorConfig{
		{`meta[property="og:title"]`, "content"},
		{`[itemprop="name"]`, "content"},
		{`[itemprop="name"]`, ""},
		{`h1`, ""},
	}

	imageSelectors = []selectorConfig{
		{`meta[property="og:image"]`, "content"},
		{`[itemprop="image"]`, "content"},
		{`img[itemprop="image"]`, "src"},
	}

	priceSelectors = []selectorConfig{
		{`meta[property="product:price:amount"]`, "content"},
		{`meta[property="og:price:amount"]`, "content"},
		{`[itemprop="price"]`, "content"},
		{`[itemprop="price"]`, ""},
		{`[data-price]`, "data-price"},
		{`.product-price`, ""},
		{`.price-current`, ""},
		{`.price`, ""},
	}

	availabilitySelectors = []selectorConfig{
		{`link[itemprop="availability"]`, "href"},
		{`[itemprop="availability"]`, "href"},
		{`[itemprop="availability"]`, "content"},
		{`meta[property="og:availability"]`, "content"},
		{`meta[property="product:availability"]`, "content"},
		{`.stock-status`, ""},
		{`.availability`, ""},
		{`.stock`, ""},
	}

	addToCartSelector = `button.add-to-cart, button[name="add"], #add-to-cart, [data-action="add-to-cart"]`
)

// quantityAxis matches select names that pick an amount, not a variant.
var quantityAxis = regexp.MustCompile(`(?i)^(qty|quantity|amount|count)$`)

// placeholderValue matches first-option placeholders like "Choose a size".
var placeholderValue = regexp.MustCompile(`(?i)^(select|choose|pick|please)\b`)

// Ensure Strategy implements restocked.ExtractStrategy at compile time.
var _ restocked.ExtractStrategy = (*Strategy)(nil)

// Strategy extracts products through DOM heuristics.
type Strategy struct {
	maxVariants int
}

// NewStrategy creates a Strategy with the given variant truncation cap.
// A non-positive cap uses extract.DefaultMaxVariants.
func NewStrategy(maxVariants int) *Strategy {
	return &Strategy{maxVariants: maxVariants}
}

// Name identifies the strategy.
func (s *Strategy) Name() string { return "dom" }

// Extract locates product fields with the selector lists and expands
// variant axes into the capped cartesian product.
func (s *Strategy) Extract(html, url string) (*restocked.ExtractedProduct, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, restocked.Errorf(restocked.EINVALID, "failed to parse HTML: %v", err)
	}

	name := firstMatch(doc, nameSelectors)
	if name == "" {
		return nil, restocked.Errorf(restocked.ENOPRODUCT, "no product name found at %s", url)
	}

	product := &restocked.ExtractedProduct{
		URL:          url,
		Name:         name,
		MainImageURL: firstMatch(doc, imageSelectors),
		StockStatus:  stockStatus(doc),
	}

	for _, config := range priceSelectors {
		raw := matchValue(doc, config)
		if raw == "" {
			continue
		}
		if cents, ok := extract.ParsePriceCents(raw); ok {
			product.PriceCents = &cents
			break
		}
	}

	axes := collectAxes(doc)
	variants, note := extract.ExpandVariants(axes, s.maxVariants)
	product.Variants = variants
	if note != "" {
		product.Notes = append(product.Notes, note)
	}

	return product, nil
}

// stockStatus reads availability markers, falling back to the add-to-cart
// control: an enabled button implies in stock, a disabled one the opposite.
func stockStatus(doc *goquery.Document) restocked.StockStatus {
	for _, config := range availabilitySelectors {
		if raw := matchValue(doc, config); raw != "" {
			if status := extract.ParseAvailability(raw); status != restocked.StockUnknown {
				return status
			}
		}
	}

	button := doc.Find(addToCartSelector).First()
	if button.Length() > 0 {
		if _, disabled := button.Attr("disabled"); disabled {
			return restocked.OutOfStock
		}
		return restocked.InStock
	}

	return restocked.StockUnknown
}

// collectAxes gathers variant attribute axes from select elements and
// radio-button fieldsets, in document order.
func collectAxes(doc *goquery.Document) []restocked.Axis {
	var axes []restocked.Axis

	doc.Find("select").Each(func(_ int, sel *goquery.Selection) {
		name := axisName(doc, sel)
		if name == "" || quantityAxis.MatchString(name) {
			return
		}
		var values []string
		sel.Find("option").Each(func(_ int, opt *goquery.Selection) {
			text := strings.TrimSpace(opt.Text())
			if text == "" || placeholderValue.MatchString(text) {
				return
			}
			if _, disabled := opt.Attr("disabled"); disabled {
				return
			}
			values = append(values, text)
		})
		if len(values) > 0 {
			axes = append(axes, restocked.Axis{Name: name, Values: values})
		}
	})

	doc.Find("fieldset").Each(func(_ int, fs *goquery.Selection) {
		radios := fs.Find(`input[type="radio"]`)
		if radios.Length() < 2 {
			return
		}
		name := strings.TrimSpace(fs.Find("legend").First().Text())
		if name == "" {
			name, _ = radios.First().Attr("name")
		}
		if name == "" || quantityAxis.MatchString(name) {
			return
		}
		var values []string
		radios.Each(func(_ int, radio *goquery.Selection) {
			value := radioLabel(fs, radio)
			if value != "" {
				values = append(values, value)
			}
		})
		if len(values) > 0 {
			axes = append(axes, restocked.Axis{Name: name, Values: values})
		}
	})

	return axes
}

// axisName derives a readable axis name for a select element from its
// label, aria-label, name or id.
func axisName(doc *goquery.Document, sel *goquery.Selection) string {
	if id, ok := sel.Attr("id"); ok && id != "" {
		label := doc.Find(`label[for="` + id + `"]`).First()
		if text := strings.TrimSpace(label.Text()); text != "" {
			return strings.TrimSuffix(text, ":")
		}
	}
	for _, attr := range []string{"aria-label", "data-option-name", "name", "id"} {
		if v, ok := sel.Attr(attr); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

// radioLabel resolves the display value of a radio input: its label text,
// its value attribute otherwise.
func radioLabel(scope, radio *goquery.Selection) string {
	if id, ok := radio.Attr("id"); ok && id != "" {
		label := scope.Find(`label[for="` + id + `"]`).First()
		if text := strings.TrimSpace(label.Text()); text != "" {
			return text
		}
	}
	if parent := radio.Parent(); goquery.NodeName(parent) == "label" {
		if text := strings.TrimSpace(parent.Text()); text != "" {
			return text
		}
	}
	value, _ := radio.Attr("value")
	return strings.TrimSpace(value)
}

func firstMatch(doc *goquery.Document, configs []selectorConfig) string {
	for _, config := range configs {
		if v := matchValue(doc, config); v != "" {
			return v
		}
	}
	return ""
}

func matchValue(doc *goquery.Document, config selectorConfig) string {
	sel := doc.Find(config.selector).First()
	if sel.Length() == 0 {
		return ""
	}
	if config.attr != "" {
		v, _ := sel.Attr(config.attr)
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(sel.Text())
}
