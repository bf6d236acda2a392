package core

import (
	"context"
)

type (
	// KVStore is the durable key→document storage behind the attendance cache,
	// the pending-write queue and the roster store. Values are whole documents:
	// callers read, modify in memory and write the full value back.
	KVStore interface {
		// Get returns ErrKeyNotFound when nothing is stored under key.
		Get(ctx context.Context, key string) ([]byte, error)
		Set(ctx context.Context, key string, value []byte) error
		Delete(ctx context.Context, key string) error
		// Keys lists stored keys starting with prefix, sorted.
		Keys(ctx context.Context, prefix string) ([]string, error)
	}
)

// Namespace joins key parts with ":" under prefix, e.g. Namespace("rollcall", "attendance", "queue").
func Namespace(prefix string, parts ...string) string {
	key := prefix
	for _, p := range parts {
		if key != "" {
			key += ":"
		}
		key += p
	}
	return key
}
