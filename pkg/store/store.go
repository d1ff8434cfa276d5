// Package store provides the Scylla-backed user, group and message stores
// consumed by the gateway.
package store

import "errors"

// ErrNotFound reports that a row the caller asked for does not exist.
var ErrNotFound = errors.New("store: not found")
