// Package hashing provides the stable hash-code generators used to map data
// elements onto shard hash ranges. The same input must hash to the same value
// in every process of the cluster, so the generators here avoid anything
// seeded per process.
package hashing

import "hash/fnv"

// HashCodeGenerator produces a signed 32-bit hash code for a data element key.
type HashCodeGenerator interface {
	HashCode(key string) int32
}

// FNV1aHashCodeGenerator hashes keys with 32-bit FNV-1a and reinterprets the
// result as a signed 32-bit integer, covering the full int32 range.
type FNV1aHashCodeGenerator struct{}

// NewFNV1aHashCodeGenerator creates a stateless FNV-1a hash code generator.
func NewFNV1aHashCodeGenerator() *FNV1aHashCodeGenerator {
	return &FNV1aHashCodeGenerator{}
}

// HashCode returns the signed 32-bit FNV-1a hash of key.
func (g *FNV1aHashCodeGenerator) HashCode(key string) int32 {
	h := fnv.New32a()
	// fnv's Write never returns an error.
	_, _ = h.Write([]byte(key))
	return int32(h.Sum32())
}
