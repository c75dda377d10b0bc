package service

import "errors"

// Sentinel categories the HTTP layer maps onto status codes.
var (
	ErrValidation = errors.New("validation")       // 400
	ErrForbidden  = errors.New("forbidden")        // 403
	ErrNotFound   = errors.New("not found")        // 404
	ErrConflict   = errors.New("conflict")         // 409
	ErrOutOfStock = errors.New("not enough stock") // 400
)
