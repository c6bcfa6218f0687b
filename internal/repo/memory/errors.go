package memory

import "errors"

var (
	errConflict  = errors.New("unique constraint violated")
	errLastOwner = errors.New("room must retain at least one owner")
)
