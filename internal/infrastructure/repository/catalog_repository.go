package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/mohammadpnp/catalog-import/internal/domain/catalog"
	"github.com/mohammadpnp/catalog-import/internal/infrastructure/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

var (
	_ catalog.CatalogStore       = (*CatalogRepository)(nil)
	_ catalog.CatalogMaintenance = (*CatalogRepository)(nil)
)

// CatalogRepository reads and maintains brands, categories and products
// through gorm. Bulk product writes live in ProductBulkRepository.
type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) LoadBrands(ctx context.Context) ([]catalog.Brand, error) {
	var rows []models.Brand
	if err := r.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load brands: %w", err)
	}
	out := make([]catalog.Brand, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainBrand(row))
	}
	return out, nil
}

func (r *CatalogRepository) LoadCategories(ctx context.Context) ([]catalog.Category, error) {
	var rows []models.Category
	if err := r.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	out := make([]catalog.Category, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainCategory(row))
	}
	return out, nil
}

func (r *CatalogRepository) LoadProductKeys(ctx context.Context) (catalog.ProductKeys, error) {
	var keys catalog.ProductKeys
	if err := r.db.WithContext(ctx).Model(&models.Product{}).Pluck("tmp_id", &keys.TmpIDs).Error; err != nil {
		return catalog.ProductKeys{}, fmt.Errorf("load product ids: %w", err)
	}
	if err := r.db.WithContext(ctx).Model(&models.Product{}).Pluck("slug", &keys.Slugs).Error; err != nil {
		return catalog.ProductKeys{}, fmt.Errorf("load product slugs: %w", err)
	}
	return keys, nil
}

// GetOrCreateBrand inserts brand unless its slug exists and returns the
// stored row. created is false when another writer got there first.
func (r *CatalogRepository) GetOrCreateBrand(ctx context.Context, brand catalog.Brand) (catalog.Brand, bool, error) {
	row := models.Brand{Name: brand.Name, Slug: brand.Slug, Description: brand.Description}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "slug"}}, DoNothing: true}).
		Create(&row)
	if res.Error != nil {
		return catalog.Brand{}, false, fmt.Errorf("insert brand: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return toDomainBrand(row), true, nil
	}

	var existing models.Brand
	if err := r.db.WithContext(ctx).First(&existing, "slug = ?", brand.Slug).Error; err != nil {
		return catalog.Brand{}, false, fmt.Errorf("fetch brand %q: %w", brand.Slug, err)
	}
	return toDomainBrand(existing), false, nil
}

func (r *CatalogRepository) GetOrCreateCategory(ctx context.Context, category catalog.Category) (catalog.Category, bool, error) {
	row := models.Category{
		Name:        category.Name,
		Slug:        category.Slug,
		Description: category.Description,
		ParentID:    category.ParentID,
		IsActive:    category.IsActive,
		SortOrder:   category.SortOrder,
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "slug"}}, DoNothing: true}).
		Create(&row)
	if res.Error != nil {
		return catalog.Category{}, false, fmt.Errorf("insert category: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return toDomainCategory(row), true, nil
	}

	var existing models.Category
	if err := r.db.WithContext(ctx).First(&existing, "slug = ?", category.Slug).Error; err != nil {
		return catalog.Category{}, false, fmt.Errorf("fetch category %q: %w", category.Slug, err)
	}
	return toDomainCategory(existing), false, nil
}

func (r *CatalogRepository) DeleteProducts(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Where("1 = 1").Delete(&models.Product{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete products: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *CatalogRepository) ClearCatalog(ctx context.Context, keepCategories, keepBrands bool) (catalog.ClearResult, error) {
	var result catalog.ClearResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("1 = 1").Delete(&models.Product{})
		if res.Error != nil {
			return fmt.Errorf("delete products: %w", res.Error)
		}
		result.Products = res.RowsAffected

		if !keepBrands {
			res = tx.Where("1 = 1").Delete(&models.Brand{})
			if res.Error != nil {
				return fmt.Errorf("delete brands: %w", res.Error)
			}
			result.Brands = res.RowsAffected
		}
		if !keepCategories {
			res = tx.Where("1 = 1").Delete(&models.Category{})
			if res.Error != nil {
				return fmt.Errorf("delete categories: %w", res.Error)
			}
			result.Categories = res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return catalog.ClearResult{}, fmt.Errorf("clear catalog: %w", err)
	}
	return result, nil
}

func (r *CatalogRepository) ClearFeatured(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("is_featured = ?", true).
		Update("is_featured", false)
	if res.Error != nil {
		return 0, fmt.Errorf("clear featured: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// FeatureRandomProducts flags up to count random in-stock products, limited
// to brands whose name contains brandFilter when it is set.
func (r *CatalogRepository) FeatureRandomProducts(ctx context.Context, count int, brandFilter string) ([]catalog.Product, error) {
	var picked []models.Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&models.Product{}).Select("products.*").Where("products.in_stock = ?", true)
		if brandFilter != "" {
			q = q.Joins("JOIN brands ON brands.id = products.brand_id").
				Where("brands.name ILIKE ?", "%"+likeEscaper.Replace(brandFilter)+"%")
		}
		if err := q.Order("RANDOM()").Limit(count).Find(&picked).Error; err != nil {
			return fmt.Errorf("pick products: %w", err)
		}
		if len(picked) == 0 {
			return nil
		}

		ids := make([]int64, 0, len(picked))
		for i := range picked {
			ids = append(ids, picked[i].ID)
			picked[i].IsFeatured = true
		}
		return tx.Model(&models.Product{}).Where("id IN ?", ids).Update("is_featured", true).Error
	})
	if err != nil {
		return nil, fmt.Errorf("feature products: %w", err)
	}

	out := make([]catalog.Product, 0, len(picked))
	for _, row := range picked {
		out = append(out, toDomainProduct(row))
	}
	return out, nil
}

func (r *CatalogRepository) ProductImageRefs(ctx context.Context, afterID int64, limit int) ([]catalog.ProductImageRef, error) {
	var rows []models.Product
	if err := r.db.WithContext(ctx).
		Select("id", "tmp_id", "name", "category_id").
		Where("id > ?", afterID).
		Order("id").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list product image refs: %w", err)
	}

	out := make([]catalog.ProductImageRef, 0, len(rows))
	for _, row := range rows {
		out = append(out, catalog.ProductImageRef{
			ID:         row.ID,
			TmpID:      row.TmpID,
			Name:       row.Name,
			CategoryID: row.CategoryID,
		})
	}
	return out, nil
}

func toDomainBrand(row models.Brand) catalog.Brand {
	return catalog.Brand{ID: row.ID, Name: row.Name, Slug: row.Slug, Description: row.Description}
}

func toDomainCategory(row models.Category) catalog.Category {
	return catalog.Category{
		ID:          row.ID,
		Name:        row.Name,
		Slug:        row.Slug,
		Description: row.Description,
		ParentID:    row.ParentID,
		IsActive:    row.IsActive,
		SortOrder:   row.SortOrder,
	}
}

func toDomainProduct(row models.Product) catalog.Product {
	return catalog.Product{
		ID:            row.ID,
		TmpID:         row.TmpID,
		Name:          row.Name,
		Slug:          row.Slug,
		CategoryID:    row.CategoryID,
		BrandID:       row.BrandID,
		Code:          row.Code,
		CatalogNumber: row.CatalogNumber,
		CrossNumber:   row.CrossNumber,
		ArtikylNumber: row.ArtikylNumber,
		Applicability: row.Applicability,
		Price:         row.Price,
		InStock:       row.InStock,
		IsFeatured:    row.IsFeatured,
		IsNew:         row.IsNew,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}
