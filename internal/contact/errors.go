package contact

import "errors"

var (
	ErrNotFound         = errors.New("opportunity not found")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrDispatchInFlight = errors.New("the same contact was dispatched moments ago")
)
