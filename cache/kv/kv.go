// Package kv holds the value types shared by the cache backends.
package kv

import "errors"

// ErrNotFound is returned when a key or member does not exist.
var ErrNotFound = errors.New("cache: key not found")

// Z is a sorted-set member with its score.
type Z struct {
	Member string
	Score  float64
}
