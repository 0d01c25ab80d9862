package models

import (
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return gormDB, mock
}

func TestDropUniqueTmpIDIndex_DropsLegacyUniqueIndex(t *testing.T) {
	gormDB, mock := setupMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT indexdef FROM pg_indexes`)).
		WithArgs("products", productTmpIDIndex).
		WillReturnRows(sqlmock.NewRows([]string{"indexdef"}).
			AddRow("CREATE UNIQUE INDEX idx_products_tmp_id ON public.products USING btree (tmp_id)"))
	mock.ExpectExec(regexp.QuoteMeta(`DROP INDEX IF EXISTS idx_products_tmp_id`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, dropUniqueTmpIDIndex(gormDB))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDropUniqueTmpIDIndex_KeepsPlainIndex(t *testing.T) {
	gormDB, mock := setupMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT indexdef FROM pg_indexes`)).
		WithArgs("products", productTmpIDIndex).
		WillReturnRows(sqlmock.NewRows([]string{"indexdef"}).
			AddRow("CREATE INDEX idx_products_tmp_id ON public.products USING btree (tmp_id)"))

	require.NoError(t, dropUniqueTmpIDIndex(gormDB))
	assert.NoError(t, mock.ExpectationsWereMet())
}
