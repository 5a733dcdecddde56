package department

import "errors"

var (
	ErrNotFound          = errors.New("department not found")
	ErrRequiredFields    = errors.New("required fields missing")
	ErrInvalidName       = errors.New(`names cannot contain "|"`)
	ErrProcessNotFound   = errors.New("process not found")
	ErrEmployeeNotFound  = errors.New("employee not found")
	ErrEmployeeExists    = errors.New("employee already exists in process")
	ErrShiftNotFound     = errors.New("shift not found")
	ErrShiftExists       = errors.New("shift code already exists")
	ErrUserNotFound      = errors.New("user not found")
	ErrUsernameTaken     = errors.New("username already exists in department")
	ErrInvalidRole       = errors.New("invalid role")
	ErrAdminRoleDenied   = errors.New("only system administrators can assign the admin role")
	ErrPasswordEmpty     = errors.New("password cannot be empty")
	ErrPasswordMismatch  = errors.New("passwords do not match")
	ErrPasswordTooShort  = errors.New("password must be at least 6 characters long")
	ErrNoChanges         = errors.New("no changes specified")
	ErrIncorrectPassword = errors.New("incorrect password")
)
