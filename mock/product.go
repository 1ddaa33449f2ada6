package mock

import (
	"context"

	"github.com/minute-repeater/restocked"
)

var _ restocked.ProductService = (*ProductService)(nil)

// ProductService is a mock implementation of restocked.ProductService.
type ProductService struct {
	IngestFn                func(ctx context.Context, extracted *restocked.ExtractedProduct) (*restocked.IngestResult, error)
	FindProductByIDFn       func(ctx context.Context, id string) (*restocked.Product, error)
	FindProductByURLFn      func(ctx context.Context, url string) (*restocked.Product, error)
	FindProductsFn          func(ctx context.Context, filter restocked.ProductFilter) ([]*restocked.Product, error)
	FindVariantByIDFn       func(ctx context.Context, id string) (*restocked.Variant, error)
	FindVariantsByProductFn func(ctx context.Context, productID string) ([]*restocked.Variant, error)
	PriceHistoryFn          func(ctx context.Context, variantID string, limit int) ([]*restocked.PricePoint, error)
	StockHistoryFn          func(ctx context.Context, variantID string, limit int) ([]*restocked.StockPoint, error)
}

func (s *ProductService) Ingest(ctx context.Context, extracted *restocked.ExtractedProduct) (*restocked.IngestResult, error) {
	return s.IngestFn(ctx, extracted)
}

func (s *ProductService) FindProductByID(ctx context.Context, id string) (*restocked.Product, error) {
	return s.FindProductByIDFn(ctx, id)
}

func (s *ProductService) FindProductByURL(ctx context.Context, url string) (*restocked.Product, error) {
	return s.FindProductByURLFn(ctx, url)
}

func (s *ProductService) FindProducts(ctx context.Context, filter restocked.ProductFilter) ([]*restocked.Product, error) {
	return s.FindProductsFn(ctx, filter)
}

func (s *ProductService) FindVariantByID(ctx context.Context, id string) (*restocked.Variant, error) {
	return s.FindVariantByIDFn(ctx, id)
}

func (s *ProductService) FindVariantsByProduct(ctx context.Context, productID string) ([]*restocked.Variant, error) {
	return s.FindVariantsByProductFn(ctx, productID)
}

func (s *ProductService) PriceHistory(ctx context.Context, variantID string, limit int) ([]*restocked.PricePoint, error) {
	return s.PriceHistoryFn(ctx, variantID, limit)
}

func (s *ProductService) StockHistory(ctx context.Context, variantID string, limit int) ([]*restocked.StockPoint, error) {
	return s.StockHistoryFn(ctx, variantID, limit)
}
