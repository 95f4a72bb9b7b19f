// Package cache records which named entities were already transmitted in a
// session.
//
// A name present in the cache means its UPDATE message, and for mesh data
// its raw blocks, have been written to the connection. The cache belongs to
// one session and is discarded with it.
package cache

import "fmt"

// Kind is a class of cacheable entity.
type Kind uint8

const (
	// MeshData covers raw meshes and plugin instances; they share one
	// namespace on the server.
	MeshData Kind = iota
	Material

	numKinds
)

func (k Kind) String() string {
	switch k {
	case MeshData:
		return "mesh-data"
	case Material:
		return "material"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Cache is a pair of name sets. The zero value is not usable; use New.
type Cache struct {
	sets [numKinds]map[string]struct{}
}

// New returns an empty cache.
func New() *Cache {
	c := &Cache{}
	c.Reset()
	return c
}

func (c *Cache) set(k Kind) map[string]struct{} {
	if k >= numKinds {
		panic(fmt.Sprintf("cache: unknown entity kind %d", uint8(k)))
	}
	return c.sets[k]
}

// AlreadySent reports whether name was marked sent for kind.
func (c *Cache) AlreadySent(k Kind, name string) bool {
	_, ok := c.set(k)[name]
	return ok
}

// MarkSent records that name has been fully transmitted.
func (c *Cache) MarkSent(k Kind, name string) {
	c.set(k)[name] = struct{}{}
}

// Forget removes name so that the next export sends it again.
func (c *Cache) Forget(k Kind, name string) {
	delete(c.set(k), name)
}

// Len returns the number of names recorded for kind.
func (c *Cache) Len(k Kind) int {
	return len(c.set(k))
}

// Reset clears every set.
func (c *Cache) Reset() {
	for i := range c.sets {
		c.sets[i] = make(map[string]struct{})
	}
}
