package catalog

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	PlaceholderName          = "Товар без названия"
	PlaceholderApplicability = "Уточняйте"

	UnknownBrandSlug = "unknown"
	UnknownBrandName = "Неизвестный"

	UncategorizedSlug = "uncategorized"
	UncategorizedName = "Без категории"

	MaxNameLength          = 200
	MaxCatalogNumberLength = 50
	MaxCrossNumberLength   = 100
	MaxArtikylNumberLength = 100
	MaxApplicabilityLength = 500

	// MaxCategoryDepth bounds parent-chain walks; cycles are not rejected on write.
	MaxCategoryDepth = 5
)

type Category struct {
	ID          int64
	Name        string
	Slug        string
	Description string
	ParentID    *int64
	IsActive    bool
	SortOrder   int
}

type Brand struct {
	ID          int64
	Name        string
	Slug        string
	Description string
}

type Product struct {
	ID            int64
	TmpID         string
	Name          string
	Slug          string
	CategoryID    int64
	BrandID       int64
	Code          string
	CatalogNumber string
	CrossNumber   string
	ArtikylNumber string
	Applicability string
	Price         decimal.Decimal
	InStock       bool
	IsFeatured    bool
	IsNew         bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func NewCategoryForSection(section, slug string) Category {
	return Category{
		Name:        "Категория " + section,
		Slug:        slug,
		Description: "Автоматически созданная категория для " + section,
		IsActive:    true,
	}
}

func NewBrandForProducer(producer, slug string) Brand {
	return Brand{
		Name:        Truncate(producer, 100),
		Slug:        slug,
		Description: "Автоматически созданный бренд для " + producer,
	}
}

func UncategorizedCategory() Category {
	return Category{Name: UncategorizedName, Slug: UncategorizedSlug, IsActive: true}
}

func UnknownBrand() Brand {
	return Brand{Name: UnknownBrandName, Slug: UnknownBrandSlug}
}

// RootCategory walks the parent chain up to MaxCategoryDepth steps.
func RootCategory(start Category, byID map[int64]Category) Category {
	current := start
	for depth := 0; depth < MaxCategoryDepth; depth++ {
		if current.ParentID == nil {
			return current
		}
		parent, ok := byID[*current.ParentID]
		if !ok {
			return current
		}
		current = parent
	}
	return current
}

// ImagePath is the location asset servers use for a product's main image.
func ImagePath(rootCategorySlug, externalID string) string {
	return fmt.Sprintf("%s/%s.jpg", rootCategorySlug, externalID)
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

func OrDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// ProductImageRef is the slice of a product the image coverage check needs.
type ProductImageRef struct {
	ID         int64
	TmpID      string
	Name       string
	CategoryID int64
}

// ClearResult counts rows removed by a catalog clear.
type ClearResult struct {
	Products   int64
	Brands     int64
	Categories int64
}
