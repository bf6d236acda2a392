package inmemdb

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/trezcool/rollcall/core"
)

// KVStore keeps documents in memory. Nothing survives the process.
type KVStore struct {
	mutex sync.RWMutex
	table map[string][]byte
}

var _ core.KVStore = (*KVStore)(nil)

func NewKVStore() *KVStore {
	return &KVStore{table: make(map[string][]byte)}
}

func (db *KVStore) Get(_ context.Context, key string) ([]byte, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	val, ok := db.table[key]
	if !ok {
		return nil, core.ErrKeyNotFound
	}
	return copyBytes(val), nil
}

func (db *KVStore) Set(_ context.Context, key string, value []byte) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.table[key] = copyBytes(value)
	return nil
}

func (db *KVStore) Delete(_ context.Context, key string) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	delete(db.table, key)
	return nil
}

func (db *KVStore) Keys(_ context.Context, prefix string) ([]string, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	keys := make([]string, 0, len(db.table))
	for k := range db.table {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// callers must not share the stored slice
func copyBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
