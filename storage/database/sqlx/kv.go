package sqlxrepos

import (
	"context"
	"database/sql"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/rollcall/core"
)

const (
	getQuery = `SELECT payload FROM kv_store WHERE scope_key = ?`
	setQuery = `INSERT INTO kv_store (scope_key, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (scope_key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`
	deleteQuery = `DELETE FROM kv_store WHERE scope_key = ?`
	keysQuery   = `SELECT scope_key FROM kv_store WHERE scope_key LIKE ? ESCAPE '\'`
)

// KVStore keeps documents in the kv_store table. A Set replaces the whole document.
type KVStore struct {
	db *sqlx.DB
}

var _ core.KVStore = (*KVStore)(nil)

func NewKVStore(db *sqlx.DB) *KVStore {
	return &KVStore{db: db}
}

func (repo KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	var payload string
	if err := repo.db.GetContext(ctx, &payload, repo.db.Rebind(getQuery), key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrKeyNotFound
		}
		return nil, errors.Wrapf(err, "selecting %s", key)
	}
	return []byte(payload), nil
}

func (repo KVStore) Set(ctx context.Context, key string, value []byte) error {
	now := core.NowFunc().UTC()
	if _, err := repo.db.ExecContext(ctx, repo.db.Rebind(setQuery), key, string(value), now); err != nil {
		return errors.Wrapf(err, "upserting %s", key)
	}
	return nil
}

func (repo KVStore) Delete(ctx context.Context, key string) error {
	if _, err := repo.db.ExecContext(ctx, repo.db.Rebind(deleteQuery), key); err != nil {
		return errors.Wrapf(err, "deleting %s", key)
	}
	return nil
}

func (repo KVStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys := make([]string, 0)
	if err := repo.db.SelectContext(ctx, &keys, repo.db.Rebind(keysQuery), likePrefix(prefix)); err != nil {
		return nil, errors.Wrapf(err, "listing keys under %s", prefix)
	}
	// collations differ between engines
	sort.Strings(keys)
	return keys, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePrefix(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}
