package catalog

import (
	"crypto/sha1"
	"encoding/base64"
)

// DefaultIDLength is the length of identifiers assigned by the importer
const DefaultIDLength = 3

// IDAllocator hands out short URL-safe identifiers derived from a seed.
// Short IDs keep share tokens compact. Not safe for concurrent use.
type IDAllocator struct {
	length int
	used   map[string]bool
}

// NewIDAllocator creates an allocator producing IDs of the given length
func NewIDAllocator(length int) *IDAllocator {
	if length <= 0 {
		length = DefaultIDLength
	}
	return &IDAllocator{
		length: length,
		used:   make(map[string]bool),
	}
}

// Next returns the ID for seed. On collision the first character is
// replaced with '_'.
func (a *IDAllocator) Next(seed string) string {
	sum := sha1.Sum([]byte(seed))
	encoded := base64.URLEncoding.EncodeToString(sum[:])

	n := a.length
	if n > len(encoded) {
		n = len(encoded)
	}
	id := encoded[:n]

	if a.used[id] {
		id = "_" + id[1:]
	}
	a.used[id] = true

	return id
}

// Reserve marks an existing ID as taken
func (a *IDAllocator) Reserve(id string) {
	a.used[id] = true
}
