package models_test

import (
	"sync"
	"testing"

	"github.com/mohammadpnp/catalog-import/internal/infrastructure/db/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

func TestProductTmpIDIsIndexedNotUnique(t *testing.T) {
	s, err := schema.Parse(&models.Product{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)

	field := s.LookUpField("tmp_id")
	require.NotNil(t, field)
	assert.Contains(t, field.TagSettings, "INDEX")
	assert.NotContains(t, field.TagSettings, "UNIQUEINDEX")
	assert.NotContains(t, field.TagSettings, "UNIQUE")
	assert.False(t, field.Unique)

	slug := s.LookUpField("slug")
	require.NotNil(t, slug)
	assert.Contains(t, slug.TagSettings, "UNIQUEINDEX")
}
