package models

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

const productTmpIDIndex = "idx_products_tmp_id"

// AutoMigrate creates or alters every table the importer uses.
func AutoMigrate(db *gorm.DB) error {
	if err := dropUniqueTmpIDIndex(db); err != nil {
		return err
	}
	if err := db.AutoMigrate(
		&Category{},
		&Brand{},
		&Product{},
		&StgProduct{},
		&ImportJob{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// dropUniqueTmpIDIndex removes a unique tmp_id index left by older schemas so
// AutoMigrate can recreate it as a plain one.
func dropUniqueTmpIDIndex(db *gorm.DB) error {
	var defs []string
	if err := db.Raw(
		"SELECT indexdef FROM pg_indexes WHERE tablename = ? AND indexname = ?",
		Product{}.TableName(), productTmpIDIndex,
	).Scan(&defs).Error; err != nil {
		return fmt.Errorf("inspect tmp_id index: %w", err)
	}
	if len(defs) == 0 || !strings.Contains(strings.ToUpper(defs[0]), "UNIQUE") {
		return nil
	}
	if err := db.Exec("DROP INDEX IF EXISTS " + productTmpIDIndex).Error; err != nil {
		return fmt.Errorf("drop unique tmp_id index: %w", err)
	}
	return nil
}
