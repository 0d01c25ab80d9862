package catalogimport

import (
	"context"
	"fmt"
	"strings"

	"github.com/mohammadpnp/catalog-import/internal/domain/catalog"
	"go.uber.org/zap"
)

const categorySlugPrefix = "category"

type resolverStore interface {
	LoadBrands(ctx context.Context) ([]catalog.Brand, error)
	LoadCategories(ctx context.Context) ([]catalog.Category, error)
	GetOrCreateBrand(ctx context.Context, brand catalog.Brand) (catalog.Brand, bool, error)
	GetOrCreateCategory(ctx context.Context, category catalog.Category) (catalog.Category, bool, error)
}

// ResolverSession maps producer names and section ids to stored brands and
// categories for the lifetime of one import job. It is not safe for
// concurrent use.
type ResolverSession struct {
	store  resolverStore
	logger *zap.Logger

	brands     map[string]catalog.Brand
	categories map[string]catalog.Category

	createdBrands     int64
	createdCategories int64
}

func NewResolverSession(ctx context.Context, store resolverStore, logger *zap.Logger) (*ResolverSession, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	brands, err := store.LoadBrands(ctx)
	if err != nil {
		return nil, fmt.Errorf("load brands: %w", err)
	}
	categories, err := store.LoadCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}

	s := &ResolverSession{
		store:      store,
		logger:     logger,
		brands:     make(map[string]catalog.Brand, len(brands)),
		categories: make(map[string]catalog.Category, len(categories)),
	}
	for _, b := range brands {
		s.brands[b.Slug] = b
	}
	for _, c := range categories {
		s.categories[c.Slug] = c
	}

	logger.Info("resolver session seeded",
		zap.Int("brands", len(s.brands)),
		zap.Int("categories", len(s.categories)),
	)
	return s, nil
}

// BrandSlug derives the brand key; names without ASCII content get a hashed slug.
func BrandSlug(producer string) string {
	producer = strings.TrimSpace(producer)
	if producer == "" {
		return catalog.UnknownBrandSlug
	}
	if slug := catalog.Slugify(producer); slug != "" {
		return slug
	}
	return "brand-" + shortHash(producer)
}

func CategorySlug(section string) string {
	section = strings.TrimSpace(section)
	if section == "" {
		return catalog.UncategorizedSlug
	}
	slug := catalog.Slugify(categorySlugPrefix + "-" + section)
	if slug == categorySlugPrefix {
		return categorySlugPrefix + "-" + shortHash(section)
	}
	return slug
}

// Brand returns the brand for producer; ok is false when producer is empty.
func (s *ResolverSession) Brand(ctx context.Context, producer string) (catalog.Brand, bool, error) {
	producer = strings.TrimSpace(producer)
	if producer == "" {
		return catalog.Brand{}, false, nil
	}

	slug := BrandSlug(producer)
	if brand, found := s.brands[slug]; found {
		return brand, true, nil
	}

	brand, err := s.createBrand(ctx, catalog.NewBrandForProducer(producer, slug))
	if err != nil {
		return catalog.Brand{}, false, err
	}
	return brand, true, nil
}

// Category returns the category for section; ok is false when section is empty.
func (s *ResolverSession) Category(ctx context.Context, section string) (catalog.Category, bool, error) {
	section = CleanSectionID(section)
	if section == "" {
		return catalog.Category{}, false, nil
	}

	slug := CategorySlug(section)
	if category, found := s.categories[slug]; found {
		return category, true, nil
	}

	category, err := s.createCategory(ctx, catalog.NewCategoryForSection(section, slug))
	if err != nil {
		return catalog.Category{}, false, err
	}
	return category, true, nil
}

func (s *ResolverSession) UnknownBrand(ctx context.Context) (catalog.Brand, error) {
	if brand, found := s.brands[catalog.UnknownBrandSlug]; found {
		return brand, nil
	}
	return s.createBrand(ctx, catalog.UnknownBrand())
}

func (s *ResolverSession) Uncategorized(ctx context.Context) (catalog.Category, error) {
	if category, found := s.categories[catalog.UncategorizedSlug]; found {
		return category, nil
	}
	return s.createCategory(ctx, catalog.UncategorizedCategory())
}

func (s *ResolverSession) Created() (brands, categories int64) {
	return s.createdBrands, s.createdCategories
}

// CategoriesByID exposes the cached categories, used to walk parent chains.
func (s *ResolverSession) CategoriesByID() map[int64]catalog.Category {
	out := make(map[int64]catalog.Category, len(s.categories))
	for _, c := range s.categories {
		out[c.ID] = c
	}
	return out
}

func (s *ResolverSession) createBrand(ctx context.Context, brand catalog.Brand) (catalog.Brand, error) {
	stored, created, err := s.store.GetOrCreateBrand(ctx, brand)
	if err != nil {
		return catalog.Brand{}, fmt.Errorf("get or create brand %q: %w", brand.Slug, err)
	}
	s.brands[stored.Slug] = stored
	if stored.Slug != brand.Slug {
		s.brands[brand.Slug] = stored
	}
	if created {
		s.createdBrands++
		s.logger.Info("brand created", zap.String("name", stored.Name), zap.String("slug", stored.Slug))
	}
	return stored, nil
}

func (s *ResolverSession) createCategory(ctx context.Context, category catalog.Category) (catalog.Category, error) {
	stored, created, err := s.store.GetOrCreateCategory(ctx, category)
	if err != nil {
		return catalog.Category{}, fmt.Errorf("get or create category %q: %w", category.Slug, err)
	}
	s.categories[stored.Slug] = stored
	if stored.Slug != category.Slug {
		s.categories[category.Slug] = stored
	}
	if created {
		s.createdCategories++
		s.logger.Info("category created", zap.String("name", stored.Name), zap.String("slug", stored.Slug))
	}
	return stored, nil
}
