package catalog

import "errors"

var (
	ErrJobNotFound          = errors.New("import job not found")
	ErrImportAlreadyRunning = errors.New("another import is already processing")
	ErrInvalidTransition    = errors.New("invalid import job status transition")

	// ErrStoreBusy marks lock contention that is worth retrying.
	ErrStoreBusy = errors.New("store busy")

	ErrInvalidImportMode   = errors.New("invalid import mode")
	ErrInvalidSanitizeMode = errors.New("invalid sanitize mode")
	ErrInvalidBatchSize    = errors.New("invalid batch size")
	ErrInvalidRowWindow    = errors.New("skip_rows and test_lines must not be negative")
	ErrInvalidDelimiter    = errors.New("delimiter must be a single character")
)
