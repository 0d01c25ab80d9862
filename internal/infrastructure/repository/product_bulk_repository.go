package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mohammadpnp/catalog-import/internal/domain/catalog"
)

// SQLSTATE codes for lock contention that a retry can clear.
var busyCodes = map[string]struct{}{
	"40P01": {}, // deadlock_detected
	"55P03": {}, // lock_not_available
	"40001": {}, // serialization_failure
}

var stagingColumns = []string{
	"job_id", "row_index", "tmp_id", "name", "slug", "category_id", "brand_id",
	"code", "catalog_number", "cross_number", "artikyl_number", "applicability",
	"price", "in_stock", "is_new", "is_update",
}

// dbtx is what pgx.Tx and *pgxpool.Pool share.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

var _ catalog.ProductWriter = (*ProductBulkRepository)(nil)

// ProductBulkRepository writes product batches with COPY into a staging
// table followed by set-based insert and update statements.
type ProductBulkRepository struct {
	pool *pgxpool.Pool
}

func NewProductBulkRepository(pool *pgxpool.Pool) *ProductBulkRepository {
	return &ProductBulkRepository{pool: pool}
}

func (r *ProductBulkRepository) WriteBatch(ctx context.Context, jobID string, batch []catalog.BatchItem, transactional bool) (catalog.BatchResult, error) {
	if len(batch) == 0 {
		return catalog.BatchResult{}, nil
	}
	if !transactional {
		result, err := writeBatch(ctx, r.pool, jobID, batch)
		return result, classifyStoreError(err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return catalog.BatchResult{}, classifyStoreError(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx)

	result, err := writeBatch(ctx, tx, jobID, batch)
	if err != nil {
		return catalog.BatchResult{}, classifyStoreError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return catalog.BatchResult{}, classifyStoreError(fmt.Errorf("commit product batch: %w", err))
	}
	return result, nil
}

// SaveProduct writes one item outside any batch. applied is false when an
// insert hit an existing id or slug, or an update found nothing to change.
func (r *ProductBulkRepository) SaveProduct(ctx context.Context, item catalog.BatchItem) (bool, error) {
	p := item.Product
	var (
		tag pgconn.CommandTag
		err error
	)
	if item.Update {
		tag, err = r.pool.Exec(ctx, `
UPDATE products
SET name = $2, category_id = $3, brand_id = $4, code = $5, catalog_number = $6,
    cross_number = $7, artikyl_number = $8, applicability = $9, updated_at = NOW()
WHERE tmp_id = $1
`, p.TmpID, p.Name, p.CategoryID, p.BrandID, p.Code, p.CatalogNumber, p.CrossNumber, p.ArtikylNumber, p.Applicability)
	} else {
		tag, err = r.pool.Exec(ctx, `
INSERT INTO products (
  tmp_id, name, slug, category_id, brand_id, code, catalog_number, cross_number,
  artikyl_number, applicability, price, in_stock, is_featured, is_new, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, FALSE, $13, NOW(), NOW())
ON CONFLICT DO NOTHING
`, p.TmpID, p.Name, p.Slug, p.CategoryID, p.BrandID, p.Code, p.CatalogNumber, p.CrossNumber,
			p.ArtikylNumber, p.Applicability, p.Price, p.InStock, p.IsNew)
	}
	if err != nil {
		return false, classifyStoreError(fmt.Errorf("save product %s: %w", p.TmpID, err))
	}
	return tag.RowsAffected() == 1, nil
}

func writeBatch(ctx context.Context, db dbtx, jobID string, batch []catalog.BatchItem) (catalog.BatchResult, error) {
	if _, err := db.Exec(ctx, "DELETE FROM stg_products WHERE job_id = $1", jobID); err != nil {
		return catalog.BatchResult{}, fmt.Errorf("reset stg_products: %w", err)
	}

	rows := make([][]any, 0, len(batch))
	for _, item := range batch {
		p := item.Product
		rows = append(rows, []any{
			jobID, item.Row, p.TmpID, p.Name, p.Slug, p.CategoryID, p.BrandID,
			p.Code, p.CatalogNumber, p.CrossNumber, p.ArtikylNumber, p.Applicability,
			p.Price, p.InStock, p.IsNew, item.Update,
		})
	}
	if _, err := db.CopyFrom(ctx, pgx.Identifier{"stg_products"}, stagingColumns, pgx.CopyFromRows(rows)); err != nil {
		return catalog.BatchResult{}, fmt.Errorf("copy products staging: %w", err)
	}

	created, err := insertStagedProducts(ctx, db, jobID)
	if err != nil {
		return catalog.BatchResult{}, err
	}

	tag, err := db.Exec(ctx, `
UPDATE products p
SET name = s.name,
    category_id = s.category_id,
    brand_id = s.brand_id,
    code = s.code,
    catalog_number = s.catalog_number,
    cross_number = s.cross_number,
    artikyl_number = s.artikyl_number,
    applicability = s.applicability,
    updated_at = NOW()
FROM stg_products s
WHERE s.job_id = $1 AND s.is_update AND p.tmp_id = s.tmp_id
`, jobID)
	if err != nil {
		return catalog.BatchResult{}, fmt.Errorf("update staged products: %w", err)
	}
	updated := tag.RowsAffected()

	if _, err := db.Exec(ctx, "DELETE FROM stg_products WHERE job_id = $1", jobID); err != nil {
		return catalog.BatchResult{}, fmt.Errorf("cleanup stg_products: %w", err)
	}

	return catalog.BatchResult{
		Created: created,
		Updated: updated,
		Skipped: int64(len(batch)) - created - updated,
	}, nil
}

func insertStagedProducts(ctx context.Context, db dbtx, jobID string) (int64, error) {
	rows, err := db.Query(ctx, `
INSERT INTO products (
  tmp_id, name, slug, category_id, brand_id, code, catalog_number, cross_number,
  artikyl_number, applicability, price, in_stock, is_featured, is_new, created_at, updated_at
)
SELECT tmp_id, name, slug, category_id, brand_id, code, catalog_number, cross_number,
       artikyl_number, applicability, price, in_stock, FALSE, is_new, NOW(), NOW()
FROM stg_products
WHERE job_id = $1 AND NOT is_update
ORDER BY row_index
ON CONFLICT DO NOTHING
RETURNING id
`, jobID)
	if err != nil {
		return 0, fmt.Errorf("insert staged products: %w", err)
	}
	defer rows.Close()

	var created int64
	for rows.Next() {
		created++
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("insert staged products: %w", err)
	}
	return created, nil
}

func classifyStoreError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if _, busy := busyCodes[pgErr.Code]; busy {
			return fmt.Errorf("%w: %v", catalog.ErrStoreBusy, err)
		}
	}
	return err
}
