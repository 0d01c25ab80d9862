package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID          int64  `gorm:"primaryKey"`
	Name        string `gorm:"size:200;not null"`
	Slug        string `gorm:"size:200;not null;uniqueIndex"`
	Description string `gorm:"type:text;not null;default:''"`
	ParentID    *int64 `gorm:"index"`
	IsActive    bool   `gorm:"not null;default:true"`
	SortOrder   int    `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Category) TableName() string {
	return "categories"
}

type Brand struct {
	ID          int64  `gorm:"primaryKey"`
	Name        string `gorm:"size:200;not null"`
	Slug        string `gorm:"size:200;not null;uniqueIndex"`
	Description string `gorm:"type:text;not null;default:''"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Brand) TableName() string {
	return "brands"
}

type Product struct {
	ID            int64           `gorm:"primaryKey"`
	TmpID         string          `gorm:"column:tmp_id;size:100;not null;index"`
	Name          string          `gorm:"size:200;not null"`
	Slug          string          `gorm:"size:255;not null;uniqueIndex"`
	CategoryID    int64           `gorm:"not null;index"`
	BrandID       int64           `gorm:"not null;index"`
	Code          string          `gorm:"size:50;not null;default:''"`
	CatalogNumber string          `gorm:"size:50;not null;default:''"`
	CrossNumber   string          `gorm:"size:100;not null;default:''"`
	ArtikylNumber string          `gorm:"size:100;not null;default:''"`
	Applicability string          `gorm:"size:500;not null;default:''"`
	Price         decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0"`
	InStock       bool            `gorm:"not null;default:true"`
	IsFeatured    bool            `gorm:"not null;default:false;index"`
	IsNew         bool            `gorm:"not null;default:true"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (Product) TableName() string {
	return "products"
}

// StgProduct is the COPY target for one batch; rows are removed after the
// batch is merged.
type StgProduct struct {
	JobID         string          `gorm:"type:uuid;not null;index:idx_stg_products_job_row,priority:1"`
	RowIndex      int64           `gorm:"not null;index:idx_stg_products_job_row,priority:2"`
	TmpID         string          `gorm:"column:tmp_id;size:100;not null"`
	Name          string          `gorm:"size:200;not null"`
	Slug          string          `gorm:"size:255;not null;default:''"`
	CategoryID    int64           `gorm:"not null"`
	BrandID       int64           `gorm:"not null"`
	Code          string          `gorm:"size:50;not null"`
	CatalogNumber string          `gorm:"size:50;not null"`
	CrossNumber   string          `gorm:"size:100;not null"`
	ArtikylNumber string          `gorm:"size:100;not null"`
	Applicability string          `gorm:"size:500;not null"`
	Price         decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	InStock       bool            `gorm:"not null"`
	IsNew         bool            `gorm:"not null"`
	IsUpdate      bool            `gorm:"not null"`
}

func (StgProduct) TableName() string {
	return "stg_products"
}
