// Package repository holds the sentinel errors shared by store implementations.
// Usecases translate them into domain errors.
package repository

import "errors"

// ErrNotFound covers missing rows, inactive users and reset tokens that no
// longer match.
var ErrNotFound = errors.New("repository: not found")

// ErrConflict reports a duplicate email.
var ErrConflict = errors.New("repository: email already registered")
