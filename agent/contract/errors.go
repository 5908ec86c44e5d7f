package contract

import "errors"

var (
	ErrConfiguration   = errors.New("configuration is invalid")
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrValidation      = errors.New("validation failed")
	ErrParse           = errors.New("could not parse date string")
	ErrPastTime        = errors.New("booking time must be in the future")
)
