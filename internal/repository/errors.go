// Package repository implements the account store. The sentinel values
// below let higher layers distinguish store outcomes without inspecting
// driver errors.
package repository

import "errors"

// ErrNotFound is returned when no account matches the lookup.
var ErrNotFound = errors.New("account not found")

// ErrConflict is returned when a write would violate a uniqueness
// constraint, such as registering an email that is already taken.
// Handlers should translate this into a friendly "email taken" response.
var ErrConflict = errors.New("conflict")

// ErrAlreadyVerified is returned when a ticket is reissued for an account
// whose email has been verified.
var ErrAlreadyVerified = errors.New("account already verified")
