package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minute-repeater/restocked"
)

// Compile-time interface verification.
var _ restocked.ProductService = (*ProductService)(nil)

// ProductService implements restocked.ProductService using SQLite.
type ProductService struct {
	db *DB
}

// NewProductService creates a new ProductService.
func NewProductService(db *DB) *ProductService {
	return &ProductService{db: db}
}

// Ingest reconciles an extracted product against the store in a single
// transaction, so a crash mid-item leaves either the pre- or the
// post-item state, never a partial write.
//
// The product is upserted by normalized URL; variants are matched by
// attribute fingerprint and updated in place or inserted. Variants seen
// previously but absent from this extraction are left untouched. History
// rows are staged only when the observed value differs from the variant's
// last recorded one, or no record exists yet.
func (s *ProductService) Ingest(ctx context.Context, extracted *restocked.ExtractedProduct) (*restocked.IngestResult, error) {
	if extracted == nil || extracted.Name == "" {
		return nil, restocked.Errorf(restocked.EINVALID, "extracted product name required")
	}
	normalizedURL, err := restocked.NormalizeURL(extracted.URL)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	product, err := upsertProduct(ctx, tx, extracted, normalizedURL, now)
	if err != nil {
		return nil, err
	}

	result := &restocked.IngestResult{
		Product: product,
		Notes:   append([]string(nil), extracted.Notes...),
	}

	// A page without attribute axes still has one purchasable
	// configuration; it is recorded as a single attribute-less variant.
	incoming := extracted.Variants
	if len(incoming) == 0 {
		incoming = []restocked.ExtractedVariant{{
			PriceCents:  extracted.PriceCents,
			StockStatus: extracted.StockStatus,
		}}
	}

	seen := make(map[string]bool, len(incoming))
	merged := 0
	for _, ev := range incoming {
		fingerprint := ev.Attributes.Fingerprint()
		if seen[fingerprint] {
			// No two variants of one product may share a normalized
			// attribute set; later duplicates in the input are merged away.
			merged++
			continue
		}
		seen[fingerprint] = true

		change, err := reconcileVariant(ctx, tx, product.ID, fingerprint, ev, now)
		if err != nil {
			return nil, err
		}
		result.Variants = append(result.Variants, change.Current)
		result.Changes = append(result.Changes, change)
	}
	if merged > 0 {
		result.Notes = append(result.Notes, "duplicate variant combinations merged")
	}

	if err := tx.Commit(); err != nil {
		return nil, storeError(err)
	}
	return result, nil
}

// upsertProduct creates or refreshes the product row keyed by URL.
func upsertProduct(ctx context.Context, tx *sql.Tx, extracted *restocked.ExtractedProduct, url string, now time.Time) (*restocked.Product, error) {
	product := &restocked.Product{
		URL:          url,
		Name:         extracted.Name,
		MainImageURL: extracted.MainImageURL,
	}

	var createdAt string
	err := tx.QueryRowContext(ctx, `
		SELECT id, created_at FROM products WHERE url = ?
	`, url).Scan(&product.ID, &createdAt)

	switch {
	case err == nil:
		product.CreatedAt, err = parseTime(createdAt, "created_at")
		if err != nil {
			return nil, err
		}
		product.UpdatedAt = now
		if _, err := tx.ExecContext(ctx, `
			UPDATE products SET name = ?, main_image_url = ?, updated_at = ? WHERE id = ?
		`, product.Name, product.MainImageURL, formatTime(now), product.ID); err != nil {
			return nil, storeError(err)
		}

	case errors.Is(err, sql.ErrNoRows):
		product.ID = uuid.New().String()
		product.CreatedAt = now
		product.UpdatedAt = now
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO products (id, url, name, main_image_url, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, product.ID, product.URL, product.Name, product.MainImageURL,
			formatTime(now), formatTime(now)); err != nil {
			return nil, storeError(err)
		}

	default:
		return nil, storeError(err)
	}

	return product, nil
}

// reconcileVariant matches one extracted variant against the store and
// stages history rows for changed observations.
func reconcileVariant(ctx context.Context, tx *sql.Tx, productID, fingerprint string, ev restocked.ExtractedVariant, now time.Time) (restocked.VariantChange, error) {
	status := ev.StockStatus
	if !status.Valid() {
		status = restocked.StockUnknown
	}

	var change restocked.VariantChange

	prev, err := findVariantByFingerprint(ctx, tx, productID, fingerprint)
	if err != nil {
		return change, err
	}

	current := &restocked.Variant{
		ProductID:   productID,
		Attributes:  ev.Attributes.Normalize(),
		PriceCents:  ev.PriceCents,
		StockStatus: status,
		UpdatedAt:   now,
	}

	if prev != nil {
		change.Previous = prev
		current.ID = prev.ID
		current.CreatedAt = prev.CreatedAt
		if _, err := tx.ExecContext(ctx, `
			UPDATE variants SET price_cents = ?, stock_status = ?, updated_at = ? WHERE id = ?
		`, nullableCents(current.PriceCents), string(status), formatTime(now), current.ID); err != nil {
			return change, storeError(err)
		}
	} else {
		current.ID = uuid.New().String()
		current.CreatedAt = now
		attrs, err := encodeAttributes(current.Attributes)
		if err != nil {
			return change, err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO variants (id, product_id, attributes, fingerprint, price_cents, stock_status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, current.ID, productID, attrs, fingerprint, nullableCents(current.PriceCents),
			string(status), formatTime(now), formatTime(now)); err != nil {
			return change, storeError(err)
		}
	}
	change.Current = current

	if err := stagePriceHistory(ctx, tx, current, now); err != nil {
		return change, err
	}
	if err := stageStockHistory(ctx, tx, current, now); err != nil {
		return change, err
	}

	return change, nil
}

// stagePriceHistory appends a price observation when it differs from the
// last recorded one or none exists. History is append-only.
func stagePriceHistory(ctx context.Context, tx *sql.Tx, v *restocked.Variant, now time.Time) error {
	if v.PriceCents == nil {
		return nil
	}

	var last int64
	err := tx.QueryRowContext(ctx, `
		SELECT price_cents FROM variant_price_history
		WHERE variant_id = ? ORDER BY recorded_at DESC LIMIT 1
	`, v.ID).Scan(&last)
	switch {
	case err == nil:
		if last == *v.PriceCents {
			return nil
		}
	case errors.Is(err, sql.ErrNoRows):
	default:
		return storeError(err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO variant_price_history (id, variant_id, price_cents, recorded_at)
		VALUES (?, ?, ?, ?)
	`, uuid.New().String(), v.ID, *v.PriceCents, formatTime(now))
	return storeError(err)
}

// stageStockHistory appends a stock observation under the same rules.
func stageStockHistory(ctx context.Context, tx *sql.Tx, v *restocked.Variant, now time.Time) error {
	var last string
	err := tx.QueryRowContext(ctx, `
		SELECT status FROM variant_stock_history
		WHERE variant_id = ? ORDER BY recorded_at DESC LIMIT 1
	`, v.ID).Scan(&last)
	switch {
	case err == nil:
		if last == string(v.StockStatus) {
			return nil
		}
	case errors.Is(err, sql.ErrNoRows):
	default:
		return storeError(err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO variant_stock_history (id, variant_id, status, recorded_at)
		VALUES (?, ?, ?, ?)
	`, uuid.New().String(), v.ID, string(v.StockStatus), formatTime(now))
	return storeError(err)
}

func findVariantByFingerprint(ctx context.Context, tx *sql.Tx, productID, fingerprint string) (*restocked.Variant, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT id, product_id, attributes, price_cents, stock_status, created_at, updated_at
		FROM variants
		WHERE product_id = ? AND fingerprint = ?
	`, productID, fingerprint)
	v, err := scanVariant(row)
	if err != nil {
		if restocked.ErrorCode(err) == restocked.ENOTFOUND {
			return nil, nil
		}
		return nil, err
	}
	return v, nil
}

// FindProductByID retrieves a product by ID.
func (s *ProductService) FindProductByID(ctx context.Context, id string) (*restocked.Product, error) {
	return s.findProduct(ctx, "id = ?", id)
}

// FindProductByURL retrieves a product by normalized source URL.
func (s *ProductService) FindProductByURL(ctx context.Context, url string) (*restocked.Product, error) {
	normalized, err := restocked.NormalizeURL(url)
	if err != nil {
		return nil, err
	}
	return s.findProduct(ctx, "url = ?", normalized)
}

func (s *ProductService) findProduct(ctx context.Context, where string, arg any) (*restocked.Product, error) {
	var product restocked.Product
	var createdAt, updatedAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, url, name, main_image_url, created_at, updated_at
		FROM products
		WHERE `+where, arg).Scan(&product.ID, &product.URL, &product.Name,
		&product.MainImageURL, &createdAt, &updatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, restocked.Errorf(restocked.ENOTFOUND, "product not found")
	}
	if err != nil {
		return nil, storeError(err)
	}

	if product.CreatedAt, err = parseTime(createdAt, "created_at"); err != nil {
		return nil, err
	}
	if product.UpdatedAt, err = parseTime(updatedAt, "updated_at"); err != nil {
		return nil, err
	}
	return &product, nil
}

// FindProducts retrieves products matching the filter.
func (s *ProductService) FindProducts(ctx context.Context, filter restocked.ProductFilter) ([]*restocked.Product, error) {
	var query strings.Builder
	var args []any

	query.WriteString("SELECT id, url, name, main_image_url, created_at, updated_at FROM products WHERE 1=1")

	if filter.ID != nil {
		query.WriteString(" AND id = ?")
		args = append(args, *filter.ID)
	}
	if filter.URL != nil {
		query.WriteString(" AND url = ?")
		args = append(args, *filter.URL)
	}

	query.WriteString(" ORDER BY created_at DESC")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, storeError(err)
	}
	defer rows.Close()

	var products []*restocked.Product
	for rows.Next() {
		var product restocked.Product
		var createdAt, updatedAt string

		if err := rows.Scan(&product.ID, &product.URL, &product.Name,
			&product.MainImageURL, &createdAt, &updatedAt); err != nil {
			return nil, storeError(err)
		}
		if product.CreatedAt, err = parseTime(createdAt, "created_at"); err != nil {
			return nil, err
		}
		if product.UpdatedAt, err = parseTime(updatedAt, "updated_at"); err != nil {
			return nil, err
		}
		products = append(products, &product)
	}
	return products, rows.Err()
}

// FindVariantByID retrieves a variant by ID.
func (s *ProductService) FindVariantByID(ctx context.Context, id string) (*restocked.Variant, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, product_id, attributes, price_cents, stock_status, created_at, updated_at
		FROM variants
		WHERE id = ?
	`, id)
	return scanVariant(row)
}

// FindVariantsByProduct retrieves all variants of a product, oldest first.
func (s *ProductService) FindVariantsByProduct(ctx context.Context, productID string) ([]*restocked.Variant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, attributes, price_cents, stock_status, created_at, updated_at
		FROM variants
		WHERE product_id = ?
		ORDER BY created_at, id
	`, productID)
	if err != nil {
		return nil, storeError(err)
	}
	defer rows.Close()

	var variants []*restocked.Variant
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}
	return variants, rows.Err()
}

// PriceHistory returns a variant's price observations, newest first.
func (s *ProductService) PriceHistory(ctx context.Context, variantID string, limit int) ([]*restocked.PricePoint, error) {
	var query strings.Builder
	var args []any
	query.WriteString(`
		SELECT id, variant_id, price_cents, recorded_at
		FROM variant_price_history
		WHERE variant_id = ?
		ORDER BY recorded_at DESC`)
	args = append(args, variantID)
	appendPagination(&query, &args, limit, 0)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, storeError(err)
	}
	defer rows.Close()

	var points []*restocked.PricePoint
	for rows.Next() {
		var point restocked.PricePoint
		var recordedAt string
		if err := rows.Scan(&point.ID, &point.VariantID, &point.PriceCents, &recordedAt); err != nil {
			return nil, storeError(err)
		}
		if point.RecordedAt, err = parseTime(recordedAt, "recorded_at"); err != nil {
			return nil, err
		}
		points = append(points, &point)
	}
	return points, rows.Err()
}

// StockHistory returns a variant's stock observations, newest first.
func (s *ProductService) StockHistory(ctx context.Context, variantID string, limit int) ([]*restocked.StockPoint, error) {
	var query strings.Builder
	var args []any
	query.WriteString(`
		SELECT id, variant_id, status, recorded_at
		FROM variant_stock_history
		WHERE variant_id = ?
		ORDER BY recorded_at DESC`)
	args = append(args, variantID)
	appendPagination(&query, &args, limit, 0)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, storeError(err)
	}
	defer rows.Close()

	var points []*restocked.StockPoint
	for rows.Next() {
		var point restocked.StockPoint
		var status, recordedAt string
		if err := rows.Scan(&point.ID, &point.VariantID, &status, &recordedAt); err != nil {
			return nil, storeError(err)
		}
		point.Status = restocked.StockStatus(status)
		if point.RecordedAt, err = parseTime(recordedAt, "recorded_at"); err != nil {
			return nil, err
		}
		points = append(points, &point)
	}
	return points, rows.Err()
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanVariant(row scanner) (*restocked.Variant, error) {
	var v restocked.Variant
	var attrs, status, createdAt, updatedAt string
	var price sql.NullInt64

	err := row.Scan(&v.ID, &v.ProductID, &attrs, &price, &status, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, restocked.Errorf(restocked.ENOTFOUND, "variant not found")
	}
	if err != nil {
		return nil, storeError(err)
	}

	if v.Attributes, err = decodeAttributes(attrs); err != nil {
		return nil, err
	}
	if price.Valid {
		v.PriceCents = &price.Int64
	}
	v.StockStatus = restocked.StockStatus(status)
	if v.CreatedAt, err = parseTime(createdAt, "created_at"); err != nil {
		return nil, err
	}
	if v.UpdatedAt, err = parseTime(updatedAt, "updated_at"); err != nil {
		return nil, err
	}
	return &v, nil
}

func nullableCents(cents *int64) any {
	if cents == nil {
		return nil
	}
	return *cents
}
