// Package id provides unique identifier generation for previews.
package id

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

// Prefix starts every preview ID.
const Prefix = "pvw-"

// Generate creates a new unique, time-sortable preview ID.
// Example: pvw-01hq3k5n6x7y8z9a0b1c2d3e4f
func Generate() string {
	return Prefix + strings.ToLower(ulid.Make().String())
}
