package sqlite_test

import (
	"context"
	"testing"

	"github.com/minute-repeater/restocked"
	"github.com/minute-repeater/restocked/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cents(n int64) *int64 { return &n }

func ingestTestProduct(t *testing.T, svc *sqlite.ProductService, extracted *restocked.ExtractedProduct) *restocked.IngestResult {
	t.Helper()
	result, err := svc.Ingest(context.Background(), extracted)
	require.NoError(t, err)
	return result
}

func TestProductService_Ingest(t *testing.T) {
	t.Parallel()

	t.Run("creates product and default variant on first observation", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewProductService(db)

		result := ingestTestProduct(t, svc, &restocked.ExtractedProduct{
			URL:         "https://shop.example.com/widget",
			Name:        "Widget",
			PriceCents:  cents(1999),
			StockStatus: restocked.InStock,
		})

		assert.NotEmpty(t, result.Product.ID)
		assert.Equal(t, "https://shop.example.com/widget", result.Product.URL)
		require.Len(t, result.Variants, 1)
		assert.Empty(t, result.Variants[0].Attributes)
		assert.Equal(t, int64(1999), *result.Variants[0].PriceCents)
		assert.Equal(t, restocked.InStock, result.Variants[0].StockStatus)

		require.Len(t, result.Changes, 1)
		assert.Nil(t, result.Changes[0].Previous, "first observation has no prior state")
	})

	t.Run("first observation stages history rows", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewProductService(db)
		ctx := context.Background()

		result := ingestTestProduct(t, svc, &restocked.ExtractedProduct{
			URL:         "https://shop.example.com/widget",
			Name:        "Widget",
			PriceCents:  cents(1999),
			StockStatus: restocked.InStock,
		})

		variantID := result.Variants[0].ID
		prices, err := svc.PriceHistory(ctx, variantID, 0)
		require.NoError(t, err)
		require.Len(t, prices, 1)
		assert.Equal(t, int64(1999), prices[0].PriceCents)

		stocks, err := svc.StockHistory(ctx, variantID, 0)
		require.NoError(t, err)
		require.Len(t, stocks, 1)
		assert.Equal(t, restocked.InStock, stocks[0].Status)
	})

	t.Run("re-ingesting identical input produces no new history", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewProductService(db)
		ctx := context.Background()

		extracted := &restocked.ExtractedProduct{
			URL:         "https://shop.example.com/widget",
			Name:        "Widget",
			PriceCents:  cents(1999),
			StockStatus: restocked.InStock,
		}

		first := ingestTestProduct(t, svc, extracted)
		second := ingestTestProduct(t, svc, extracted)

		assert.Equal(t, first.Product.ID, second.Product.ID)
		require.Len(t, second.Variants, 1)
		assert.Equal(t, first.Variants[0].ID, second.Variants[0].ID)

		prices, err := svc.PriceHistory(ctx, first.Variants[0].ID, 0)
		require.NoError(t, err)
		assert.Len(t, prices, 1, "unchanged price should not append history")

		stocks, err := svc.StockHistory(ctx, first.Variants[0].ID, 0)
		require.NoError(t, err)
		assert.Len(t, stocks, 1, "unchanged stock should not append history")
	})

	t.Run("changed price appends history and reports previous state", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewProductService(db)
		ctx := context.Background()

		first := ingestTestProduct(t, svc, &restocked.ExtractedProduct{
			URL:        "https://shop.example.com/widget",
			Name:       "Widget",
			PriceCents: cents(1999),
		})
		second := ingestTestProduct(t, svc, &restocked.ExtractedProduct{
			URL:        "https://shop.example.com/widget",
			Name:       "Widget",
			PriceCents: cents(1499),
		})

		require.Len(t, second.Changes, 1)
		require.NotNil(t, second.Changes[0].Previous)
		assert.Equal(t, int64(1999), *second.Changes[0].Previous.PriceCents)
		assert.Equal(t, int64(1499), *second.Changes[0].Current.PriceCents)

		prices, err := svc.PriceHistory(ctx, first.Variants[0].ID, 0)
		require.NoError(t, err)
		require.Len(t, prices, 2)
		assert.Equal(t, int64(1499), prices[0].PriceCents, "newest first")
	})

	t.Run("matches variants regardless of attribute order and case", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewProductService(db)

		first := ingestTestProduct(t, svc, &restocked.ExtractedProduct{
			URL:  "https://shop.example.com/shirt",
			Name: "Shirt",
			Variants: []restocked.ExtractedVariant{{
				Attributes: restocked.Attributes{
					{Key: "Size", Value: "M"},
					{Key: "Color", Value: "Red"},
				},
				PriceCents: cents(2500),
			}},
		})
		second := ingestTestProduct(t, svc, &restocked.ExtractedProduct{
			URL:  "https://shop.example.com/shirt",
			Name: "Shirt",
			Variants: []restocked.ExtractedVariant{{
				Attributes: restocked.Attributes{
					{Key: "color", Value: "red"},
					{Key: "size", Value: "M"},
				},
				PriceCents: cents(2500),
			}},
		})

		require.Len(t, second.Variants, 1)
		assert.Equal(t, first.Variants[0].ID, second.Variants[0].ID,
			"same normalized attribute set should resolve to the same variant")
	})

	t.Run("absent variants are left untouched", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewProductService(db)
		ctx := context.Background()

		sizeM := restocked.Attributes{{Key: "size", Value: "M"}}
		sizeL := restocked.Attributes{{Key: "size", Value: "L"}}

		first := ingestTestProduct(t, svc, &restocked.ExtractedProduct{
			URL:  "https://shop.example.com/shirt",
			Name: "Shirt",
			Variants: []restocked.ExtractedVariant{
				{Attributes: sizeM, PriceCents: cents(2500), StockStatus: restocked.InStock},
				{Attributes: sizeL, PriceCents: cents(2500), StockStatus: restocked.InStock},
			},
		})

		// Second extraction sees only size M.
		ingestTestProduct(t, svc, &restocked.ExtractedProduct{
			URL:  "https://shop.example.com/shirt",
			Name: "Shirt",
			Variants: []restocked.ExtractedVariant{
				{Attributes: sizeM, PriceCents: cents(2500), StockStatus: restocked.InStock},
			},
		})

		variants, err := svc.FindVariantsByProduct(ctx, first.Product.ID)
		require.NoError(t, err)
		assert.Len(t, variants, 2, "missing variant must not be deleted")

		for _, v := range variants {
			if v.Attributes.Fingerprint() == sizeL.Fingerprint() {
				assert.Equal(t, restocked.InStock, v.StockStatus,
					"absent variant keeps its last known state")
			}
		}
	})

	t.Run("merges duplicate attribute combinations in one ingestion", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewProductService(db)

		result := ingestTestProduct(t, svc, &restocked.ExtractedProduct{
			URL:  "https://shop.example.com/shirt",
			Name: "Shirt",
			Variants: []restocked.ExtractedVariant{
				{Attributes: restocked.Attributes{{Key: "size", Value: "M"}}, PriceCents: cents(2500)},
				{Attributes: restocked.Attributes{{Key: "Size", Value: "m"}}, PriceCents: cents(2600)},
			},
		})

		assert.Len(t, result.Variants, 1, "first occurrence wins")
		assert.Equal(t, int64(2500), *result.Variants[0].PriceCents)
		assert.Contains(t, result.Notes, "duplicate variant combinations merged")
	})

	t.Run("missing price tracks stock only", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewProductService(db)
		ctx := context.Background()

		result := ingestTestProduct(t, svc, &restocked.ExtractedProduct{
			URL:         "https://shop.example.com/widget",
			Name:        "Widget",
			StockStatus: restocked.OutOfStock,
		})

		require.Len(t, result.Variants, 1)
		assert.Nil(t, result.Variants[0].PriceCents)

		prices, err := svc.PriceHistory(ctx, result.Variants[0].ID, 0)
		require.NoError(t, err)
		assert.Empty(t, prices)

		stocks, err := svc.StockHistory(ctx, result.Variants[0].ID, 0)
		require.NoError(t, err)
		assert.Len(t, stocks, 1)
	})

	t.Run("updates product name and image on re-ingestion", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewProductService(db)
		ctx := context.Background()

		ingestTestProduct(t, svc, &restocked.ExtractedProduct{
			URL:        "https://shop.example.com/widget",
			Name:       "Widget",
			PriceCents: cents(1999),
		})
		ingestTestProduct(t, svc, &restocked.ExtractedProduct{
			URL:          "https://shop.example.com/widget",
			Name:         "Widget Pro",
			MainImageURL: "https://shop.example.com/widget.jpg",
			PriceCents:   cents(1999),
		})

		product, err := svc.FindProductByURL(ctx, "https://shop.example.com/widget")
		require.NoError(t, err)
		assert.Equal(t, "Widget Pro", product.Name)
		assert.Equal(t, "https://shop.example.com/widget.jpg", product.MainImageURL)
	})

	t.Run("deduplicates URLs that differ only in tracking params", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewProductService(db)

		first := ingestTestProduct(t, svc, &restocked.ExtractedProduct{
			URL:        "https://shop.example.com/widget?utm_source=mail",
			Name:       "Widget",
			PriceCents: cents(1999),
		})
		second := ingestTestProduct(t, svc, &restocked.ExtractedProduct{
			URL:        "https://shop.example.com/widget",
			Name:       "Widget",
			PriceCents: cents(1999),
		})

		assert.Equal(t, first.Product.ID, second.Product.ID)
	})

	t.Run("returns EINVALID for empty name", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewProductService(db)

		_, err := svc.Ingest(context.Background(), &restocked.ExtractedProduct{
			URL: "https://shop.example.com/widget",
		})
		require.Error(t, err)
		assert.Equal(t, restocked.EINVALID, restocked.ErrorCode(err))
	})
}

func TestProductService_Find(t *testing.T) {
	t.Parallel()

	t.Run("returns ENOTFOUND for unknown product", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewProductService(db)

		_, err := svc.FindProductByID(context.Background(), "missing")
		assert.Equal(t, restocked.ENOTFOUND, restocked.ErrorCode(err))

		_, err = svc.FindVariantByID(context.Background(), "missing")
		assert.Equal(t, restocked.ENOTFOUND, restocked.ErrorCode(err))
	})

	t.Run("filters and paginates products", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewProductService(db)
		ctx := context.Background()

		for _, url := range []string{
			"https://shop.example.com/a",
			"https://shop.example.com/b",
			"https://shop.example.com/c",
		} {
			ingestTestProduct(t, svc, &restocked.ExtractedProduct{
				URL:        url,
				Name:       "Item",
				PriceCents: cents(100),
			})
		}

		all, err := svc.FindProducts(ctx, restocked.ProductFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 3)

		limited, err := svc.FindProducts(ctx, restocked.ProductFilter{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, limited, 2)

		url := "https://shop.example.com/b"
		byURL, err := svc.FindProducts(ctx, restocked.ProductFilter{URL: &url})
		require.NoError(t, err)
		require.Len(t, byURL, 1)
		assert.Equal(t, url, byURL[0].URL)
	})
}
