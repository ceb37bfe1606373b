package numbers

import "errors"

var (
	ErrValidation     = errors.New("numbers: invalid input")
	ErrNotFound       = errors.New("numbers: number not found")
	ErrUnauthorized   = errors.New("numbers: resource not owned by tenant")
	ErrNumberNotOwned = errors.New("numbers: caller id not owned, inactive or not voice capable")
	ErrNoPhoneNumber  = errors.New("numbers: tenant has no usable phone number")
	ErrConflict       = errors.New("numbers: number already held")

	// errDefaultTaken is returned by Insert when the tenant already has a default.
	errDefaultTaken = errors.New("numbers: tenant already has a default number")
)
