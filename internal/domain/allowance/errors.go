package allowance

import "errors"

var (
	ErrInvalidShiftType = errors.New("shift type must be EST or PST")
	ErrNotEnabled       = errors.New("allowances are not enabled for this department")
)
