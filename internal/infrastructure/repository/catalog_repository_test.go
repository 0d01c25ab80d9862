package repository_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/mohammadpnp/catalog-import/internal/domain/catalog"
	"github.com/mohammadpnp/catalog-import/internal/infrastructure/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateBrand_Created(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewCatalogRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "brands"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	mock.ExpectCommit()

	brand, created, err := repo.GetOrCreateBrand(context.Background(), catalog.Brand{Name: "Acme", Slug: "acme"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(5), brand.ID)
	assert.Equal(t, "acme", brand.Slug)
}

func TestGetOrCreateBrand_Existing(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewCatalogRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "brands"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "brands"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug"}).AddRow(7, "ACME", "acme"))

	brand, created, err := repo.GetOrCreateBrand(context.Background(), catalog.Brand{Name: "Acme", Slug: "acme"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(7), brand.ID)
	assert.Equal(t, "ACME", brand.Name)
}

func TestGetOrCreateCategory_Created(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewCatalogRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "categories"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectCommit()

	category, created, err := repo.GetOrCreateCategory(context.Background(), catalog.NewCategoryForSection("10", "category-10"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(11), category.ID)
	assert.Equal(t, "Категория 10", category.Name)
}

func TestLoadProductKeys(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewCatalogRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "tmp_id" FROM "products"`)).
		WillReturnRows(sqlmock.NewRows([]string{"tmp_id"}).AddRow("A1").AddRow("A2"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "slug" FROM "products"`)).
		WillReturnRows(sqlmock.NewRows([]string{"slug"}).AddRow("pad-a1").AddRow("disk-a2"))

	keys, err := repo.LoadProductKeys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2"}, keys.TmpIDs)
	assert.Equal(t, []string{"pad-a1", "disk-a2"}, keys.Slugs)
}

func TestClearCatalog_KeepBrands(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewCatalogRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "products"`)).
		WillReturnResult(sqlmock.NewResult(0, 120))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "categories"`)).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectCommit()

	result, err := repo.ClearCatalog(context.Background(), false, true)
	require.NoError(t, err)
	assert.Equal(t, catalog.ClearResult{Products: 120, Categories: 4}, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductImageRefs(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewCatalogRepository(gormDB)

	mock.ExpectQuery(`SELECT .*"tmp_id".* FROM "products"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tmp_id", "name", "category_id"}).
			AddRow(11, "T11", "Pad", 3).
			AddRow(12, "T12", "Disk", 4))

	refs, err := repo.ProductImageRefs(context.Background(), 10, 2)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, catalog.ProductImageRef{ID: 12, TmpID: "T12", Name: "Disk", CategoryID: 4}, refs[1])
}
