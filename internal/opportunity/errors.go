package opportunity

import "errors"

var (
	ErrNotFound        = errors.New("opportunity not found")
	ErrInvalidSnapshot = errors.New("invalid snapshot")
	ErrEmptyBatch      = errors.New("request body must contain a list of snapshots")
)
