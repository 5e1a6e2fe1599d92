// Package common defines sentinel errors and small helpers shared by the
// client and server sides of gophbank. Callers should use errors.Is to match
// the error values.
package common

import "errors"

var (
	// Lookup errors.
	ErrorNotFound = errors.New("not found")

	// Authentication errors.
	ErrorUnauthorized = errors.New("unauthorized")

	// Input validation errors.
	ErrorInvalidFormat = errors.New("invalid format")

	ErrorInternal = errors.New("internal error")
)
