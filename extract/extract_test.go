package extract_test

import (
	"testing"

	"github.com/minute-repeater/restocked"
	"github.com/minute-repeater/restocked/extract"
	"github.com/minute-repeater/restocked/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cents(n int64) *int64 { return &n }

func TestChain_Extract(t *testing.T) {
	t.Parallel()

	t.Run("returns first plausible result", func(t *testing.T) {
		t.Parallel()

		first := &mock.ExtractStrategy{
			NameFn: func() string { return "first" },
			ExtractFn: func(html, url string) (*restocked.ExtractedProduct, error) {
				return nil, restocked.Errorf(restocked.ENOPRODUCT, "nothing here")
			},
		}
		second := &mock.ExtractStrategy{
			NameFn: func() string { return "second" },
			ExtractFn: func(html, url string) (*restocked.ExtractedProduct, error) {
				return &restocked.ExtractedProduct{Name: "Widget", PriceCents: cents(1999)}, nil
			},
		}

		chain := extract.NewChain(first, second)
		product, err := chain.Extract("<html></html>", "https://shop.example.com/widget")

		require.NoError(t, err)
		assert.Equal(t, "Widget", product.Name)
		assert.Equal(t, "https://shop.example.com/widget", product.URL)
	})

	t.Run("discards partial results from earlier strategies", func(t *testing.T) {
		t.Parallel()

		// Name but no price anywhere: not plausible.
		partial := &mock.ExtractStrategy{
			ExtractFn: func(html, url string) (*restocked.ExtractedProduct, error) {
				return &restocked.ExtractedProduct{Name: "Partial", MainImageURL: "https://x/img.jpg"}, nil
			},
		}
		complete := &mock.ExtractStrategy{
			ExtractFn: func(html, url string) (*restocked.ExtractedProduct, error) {
				return &restocked.ExtractedProduct{Name: "Widget", PriceCents: cents(1999)}, nil
			},
		}

		chain := extract.NewChain(partial, complete)
		product, err := chain.Extract("<html></html>", "https://shop.example.com/widget")

		require.NoError(t, err)
		assert.Equal(t, "Widget", product.Name)
		assert.Empty(t, product.MainImageURL, "nothing from the partial result leaks through")
	})

	t.Run("returns ENOPRODUCT when no strategy finds anything", func(t *testing.T) {
		t.Parallel()

		strategy := &mock.ExtractStrategy{
			ExtractFn: func(html, url string) (*restocked.ExtractedProduct, error) {
				return nil, restocked.Errorf(restocked.ENOPRODUCT, "nothing here")
			},
		}

		chain := extract.NewChain(strategy)
		_, err := chain.Extract("<html></html>", "https://example.com/about")
		assert.Equal(t, restocked.ENOPRODUCT, restocked.ErrorCode(err))
	})

	t.Run("returns EUNSUPPORTED when structure was seen but unusable", func(t *testing.T) {
		t.Parallel()

		strategy := &mock.ExtractStrategy{
			ExtractFn: func(html, url string) (*restocked.ExtractedProduct, error) {
				return &restocked.ExtractedProduct{Name: "Recognized But Priceless"}, nil
			},
		}

		chain := extract.NewChain(strategy)
		_, err := chain.Extract("<html></html>", "https://shop.example.com/widget")
		assert.Equal(t, restocked.EUNSUPPORTED, restocked.ErrorCode(err))
	})

	t.Run("variants inherit product-level price and stock", func(t *testing.T) {
		t.Parallel()

		strategy := &mock.ExtractStrategy{
			ExtractFn: func(html, url string) (*restocked.ExtractedProduct, error) {
				return &restocked.ExtractedProduct{
					Name:        "Shirt",
					PriceCents:  cents(2500),
					StockStatus: restocked.InStock,
					Variants: []restocked.ExtractedVariant{
						{Attributes: restocked.Attributes{{Key: "size", Value: "M"}}},
						{
							Attributes:  restocked.Attributes{{Key: "size", Value: "L"}},
							PriceCents:  cents(2700),
							StockStatus: restocked.OutOfStock,
						},
					},
				}, nil
			},
		}

		chain := extract.NewChain(strategy)
		product, err := chain.Extract("<html></html>", "https://shop.example.com/shirt")
		require.NoError(t, err)

		assert.Equal(t, int64(2500), *product.Variants[0].PriceCents, "inherited")
		assert.Equal(t, restocked.InStock, product.Variants[0].StockStatus, "inherited")
		assert.Equal(t, int64(2700), *product.Variants[1].PriceCents, "override kept")
		assert.Equal(t, restocked.OutOfStock, product.Variants[1].StockStatus, "override kept")
	})
}

func TestParsePriceCents(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"29.99", 2999, true},
		{"$29.99", 2999, true},
		{"1,299.00", 129900, true},
		{"1.299,00 €", 129900, true},
		{"€1.299,00", 129900, true},
		{"$1,299", 129900, true},
		{"1299", 129900, true},
		{"1.299", 129900, true},
		{"0.00", 0, false},
		{"", 0, false},
		{"free", 0, false},
		{"Price: 49.50 USD", 4950, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, ok := extract.ParsePriceCents(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseAvailability(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want restocked.StockStatus
	}{
		{"https://schema.org/InStock", restocked.InStock},
		{"http://schema.org/OutOfStock", restocked.OutOfStock},
		{"InStock", restocked.InStock},
		{"SoldOut", restocked.OutOfStock},
		{"PreOrder", restocked.InStock},
		{"In stock, ships today", restocked.InStock},
		{"Currently sold out", restocked.OutOfStock},
		{"This item is unavailable", restocked.OutOfStock},
		{"", restocked.StockUnknown},
		{"whatever", restocked.StockUnknown},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, extract.ParseAvailability(tt.in))
		})
	}
}
