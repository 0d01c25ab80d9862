package catalogimport

import "errors"

var (
	ErrInvalidImportSource = errors.New("invalid import source")
	ErrCreateImportJob     = errors.New("failed to create import job")
	ErrJobAlreadyFinished  = errors.New("import job already finished")

	ErrUndecodableSource  = errors.New("source does not decode with any candidate encoding")
	ErrUnrecognizedLayout = errors.New("source does not split into the expected columns")
	ErrUnsafeCharacters   = errors.New("row contains unsafe characters")

	errInvalidBytes = errors.New("invalid byte sequence")
)
