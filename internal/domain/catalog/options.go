package catalog

import (
	"path/filepath"
	"strings"
)

const (
	DefaultBatchSize = 5000
	MaxBatchSize     = 50000
)

// ImportMode decides what happens to a row whose external id is already stored.
type ImportMode string

const (
	// ModeDuplicate stores the row as a new product under a -dupN suffixed id.
	ModeDuplicate ImportMode = "duplicate"
	// ModeUpdate rewrites the stored product in place on first sight.
	ModeUpdate ImportMode = "update"
)

func ParseImportMode(raw string) (ImportMode, error) {
	switch ImportMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ModeDuplicate:
		return ModeDuplicate, nil
	case ModeUpdate:
		return ModeUpdate, nil
	}
	return "", ErrInvalidImportMode
}

type SanitizeMode string

const (
	SanitizeOff    SanitizeMode = "off"
	SanitizeStrip  SanitizeMode = "strip"
	SanitizeReject SanitizeMode = "reject"
)

func ParseSanitizeMode(raw string) (SanitizeMode, error) {
	switch SanitizeMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", SanitizeStrip:
		return SanitizeStrip, nil
	case SanitizeOff:
		return SanitizeOff, nil
	case SanitizeReject:
		return SanitizeReject, nil
	}
	return "", ErrInvalidSanitizeMode
}

type SourceFormat string

const (
	FormatDelimited SourceFormat = "delimited"
	FormatDBF       SourceFormat = "dbf"
	FormatXLSX      SourceFormat = "xlsx"
)

func FormatForPath(path string) SourceFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".dbf":
		return FormatDBF
	case ".xlsx":
		return FormatXLSX
	}
	return FormatDelimited
}

// ImportOptions are the knobs a start trigger carries.
type ImportOptions struct {
	BatchSize           int          `json:"batch_size"`
	Delimiter           string       `json:"delimiter,omitempty"`
	Encoding            string       `json:"encoding,omitempty"`
	DisableTransactions bool         `json:"disable_transactions"`
	ClearExisting       bool         `json:"clear_existing"`
	SkipRows            int64        `json:"skip_rows"`
	TestLines           int64        `json:"test_lines"`
	Mode                ImportMode   `json:"mode"`
	Sanitize            SanitizeMode `json:"sanitize"`
}

// Normalize fills defaults and validates the option set.
func (o ImportOptions) Normalize() (ImportOptions, error) {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.BatchSize > MaxBatchSize {
		return o, ErrInvalidBatchSize
	}
	if o.SkipRows < 0 || o.TestLines < 0 {
		return o, ErrInvalidRowWindow
	}
	if o.Delimiter == `\t` {
		o.Delimiter = "\t"
	}
	if len([]rune(o.Delimiter)) > 1 {
		return o, ErrInvalidDelimiter
	}
	if strings.EqualFold(strings.TrimSpace(o.Encoding), "auto") {
		o.Encoding = ""
	}

	mode, err := ParseImportMode(string(o.Mode))
	if err != nil {
		return o, err
	}
	o.Mode = mode

	sanitize, err := ParseSanitizeMode(string(o.Sanitize))
	if err != nil {
		return o, err
	}
	o.Sanitize = sanitize

	return o, nil
}
