// Package storage implements the device-local key→document store backing
// every collection. Each collection is one JSON document under one key;
// there is no sub-document addressing.
package storage

import "context"

// Store is a synchronous key→JSON-document mapping.
//
// Get returns (nil, nil) for an absent key: absence is a legitimate state
// for a collection, not an error.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
