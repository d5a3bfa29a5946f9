package regmap

import "errors"

var (
	// ErrDuplicateName is returned when a register name is allocated twice.
	ErrDuplicateName = errors.New("duplicate register name")

	// ErrFinalized is returned when Allocate is called after Finalize.
	ErrFinalized = errors.New("register map already finalized")
)
