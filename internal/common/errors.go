// Package common defines the sentinel errors and small helpers shared by the
// storage, service and transport layers. Callers should use errors.Is to match
// these values; concrete failures wrap them together with their cause.
package common

import "errors"

var (
	// Input errors.
	ErrValidation     = errors.New("validation error")
	ErrDuplicateTitle = errors.New("duplicate title")

	// Lookup errors.
	ErrNotFound = errors.New("not found")

	// The record exists but cannot be read back.
	ErrDecryption = errors.New("decryption failed")
	ErrIntegrity  = errors.New("integrity error")

	// Local persistence failures (write/read errors, quota).
	ErrStorage = errors.New("storage error")

	// Remote mirror failures. Never fatal to local operations.
	ErrRemoteSync = errors.New("remote sync error")

	// Session errors.
	ErrUnauthorized = errors.New("unauthorized")
)
