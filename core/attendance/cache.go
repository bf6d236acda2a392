package attendance

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/rollcall/core"
)

// Cache persists attendance snapshots per scope. Each Set overwrites the whole
// list stored under the scope; there is no expiry. Writes, and the read-modify-write
// of Update, are serialized by mu.
type Cache struct {
	store  core.KVStore
	prefix string
	logger core.Logger
	mu     sync.Mutex
}

func NewCache(store core.KVStore, prefix string, logger core.Logger) *Cache {
	return &Cache{store: store, prefix: prefix, logger: logger}
}

// Get returns the records stored under scope. found is false if nothing was ever stored.
func (c *Cache) Get(ctx context.Context, scope Scope) (records []Record, found bool, err error) {
	data, err := c.store.Get(ctx, scope.Key(c.prefix))
	if err != nil {
		if errors.Is(err, core.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, errors.Wrapf(err, "reading cache %s", scope)
	}

	var raw []Record
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, false, errors.Wrapf(err, "decoding cache %s", scope)
	}
	records = make([]Record, 0, len(raw))
	for _, rec := range raw {
		switch {
		case rec.Version == 0:
			rec.Version = FormatVersion
		case rec.Version > FormatVersion:
			c.logger.Warn("skipping cached record with unknown format version", map[string]interface{}{
				"scope": string(scope), "id": rec.ID, "version": rec.Version,
			})
			continue
		}
		records = append(records, rec)
	}
	return records, true, nil
}

func (c *Cache) Set(ctx context.Context, scope Scope, records []Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.set(ctx, scope, records)
}

// Update replaces the records of scope with fn's result, fn receiving the stored
// ones. Nothing is written when the stored list cannot be read.
func (c *Cache) Update(ctx context.Context, scope Scope, fn func(records []Record) []Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	records, _, err := c.Get(ctx, scope)
	if err != nil {
		return err
	}
	return c.set(ctx, scope, fn(records))
}

func (c *Cache) set(ctx context.Context, scope Scope, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	for i := range records {
		if records[i].Version == 0 {
			records[i].Version = FormatVersion
		}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return errors.Wrapf(err, "encoding cache %s", scope)
	}
	if err := c.store.Set(ctx, scope.Key(c.prefix), data); err != nil {
		return errors.Wrapf(err, "writing cache %s", scope)
	}
	return nil
}

// Upsert returns records with rec in place of the entry sharing its class-day,
// or its server id; rec is prepended when there is none. At most one record per
// (teacher, section, subject, day) survives. Placeholder ids only match with the class-day.
func Upsert(records []Record, rec Record) []Record {
	out := make([]Record, 0, len(records)+1)
	var replaced bool
	for _, r := range records {
		if r.sameClassDay(rec) || (r.ID == rec.ID && !rec.IsLocal()) {
			if !replaced {
				out = append(out, rec)
				replaced = true
			}
			continue
		}
		out = append(out, r)
	}
	if !replaced {
		out = append([]Record{rec}, out...)
	}
	return out
}

// FindClassDay returns the record for the class-day described by the arguments.
// A record matches on assignment id when both sides know it, otherwise on section and subject.
func FindClassDay(records []Record, assignmentID, section, subject, day string) (Record, bool) {
	for _, r := range records {
		if r.Day() != day {
			continue
		}
		if r.AssignmentID.Valid && r.AssignmentID.String != "" && assignmentID != "" {
			if r.AssignmentID.String == assignmentID {
				return r, true
			}
			continue
		}
		if r.AssignedSection == section && r.Subject.String == subject {
			return r, true
		}
	}
	return Record{}, false
}
