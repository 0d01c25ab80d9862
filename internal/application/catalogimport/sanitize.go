package catalogimport

import (
	"fmt"
	"strings"

	"github.com/mohammadpnp/catalog-import/internal/domain/catalog"
)

const unsafeChars = "\"'<>[]{}"

var unsafeStripper = strings.NewReplacer(
	`"`, "", `'`, "", "<", "", ">", "", "[", "", "]", "", "{", "", "}", "",
)

// Sanitizer handles quote, bracket and angle-bracket characters in
// identifiers and names according to its mode.
type Sanitizer struct {
	mode catalog.SanitizeMode
}

func NewSanitizer(mode catalog.SanitizeMode) Sanitizer {
	if mode == "" {
		mode = catalog.SanitizeStrip
	}
	return Sanitizer{mode: mode}
}

func (s Sanitizer) Apply(row catalog.SourceRow) (catalog.SourceRow, error) {
	if s.mode == catalog.SanitizeOff {
		return row, nil
	}

	fields := []struct {
		name  string
		value *string
	}{
		{"TMP_ID", &row.TmpID},
		{"NAME", &row.Name},
		{"CATALOG_NUMBER", &row.CatalogNumber},
		{"ARTIKYL_NUMBER", &row.ArtikylNumber},
		{"CROSS_NUMBER", &row.CrossNumber},
	}

	for _, f := range fields {
		if !strings.ContainsAny(*f.value, unsafeChars) {
			continue
		}
		if s.mode == catalog.SanitizeReject {
			return row, fmt.Errorf("%w: %s contains %q", ErrUnsafeCharacters, f.name, *f.value)
		}
		*f.value = strings.TrimSpace(unsafeStripper.Replace(*f.value))
	}
	return row, nil
}
