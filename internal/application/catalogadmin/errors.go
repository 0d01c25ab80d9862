package catalogadmin

import "errors"

var (
	ErrClearNotConfirmed = errors.New("catalog clear requires confirmation")
	ErrInvalidCount      = errors.New("featured count must be positive")
)
