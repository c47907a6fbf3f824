package utils

import "github.com/oklog/ulid/v2"

// NewID returns a lexically sortable unique identifier
func NewID() string {
	return ulid.Make().String()
}
