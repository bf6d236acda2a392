package attendance

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/rollcall/core"
)

// Queue is the durable list of PendingWrites. It is stored newest first and
// drained oldest first. Every operation reads the persisted list, modifies it
// and writes it back while holding mu.
type Queue struct {
	store  core.KVStore
	key    string
	logger core.Logger
	mu     sync.Mutex
}

func NewQueue(store core.KVStore, prefix string, logger core.Logger) *Queue {
	return &Queue{store: store, key: queueScope.Key(prefix), logger: logger}
}

// load returns the stored list, newest first.
func (q *Queue) load(ctx context.Context) ([]PendingWrite, error) {
	data, err := q.store.Get(ctx, q.key)
	if err != nil {
		if errors.Is(err, core.ErrKeyNotFound) {
			return []PendingWrite{}, nil
		}
		return nil, errors.Wrap(err, "reading queue")
	}
	var items []PendingWrite
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, errors.Wrap(err, "decoding queue")
	}
	for i := range items {
		if items[i].Version == 0 {
			items[i].Version = FormatVersion
		}
	}
	return items, nil
}

func (q *Queue) save(ctx context.Context, items []PendingWrite) error {
	if items == nil {
		items = []PendingWrite{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return errors.Wrap(err, "encoding queue")
	}
	if err := q.store.Set(ctx, q.key, data); err != nil {
		return errors.Wrap(err, "writing queue")
	}
	return nil
}

// Enqueue durably adds item to the head of the stored list.
func (q *Queue) Enqueue(ctx context.Context, item PendingWrite) error {
	if item.ID == "" {
		return errors.New("pending write without id")
	}
	if item.Version == 0 {
		item.Version = FormatVersion
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.load(ctx)
	if err != nil {
		return err
	}
	items = append([]PendingWrite{item}, items...)
	return q.save(ctx, items)
}

// DrainAll returns the queued items, oldest first. Items stay queued until Remove.
func (q *Queue) DrainAll(ctx context.Context) ([]PendingWrite, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.load(ctx)
	if err != nil {
		return nil, err
	}
	drained := make([]PendingWrite, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		if items[i].Version > FormatVersion {
			// a later item must not overtake one this build cannot replay
			q.logger.Warn("holding queue at write with unknown format version", map[string]interface{}{
				"id": items[i].ID, "version": items[i].Version,
			})
			break
		}
		drained = append(drained, items[i])
	}
	return drained, nil
}

// Remove deletes the items with the given ids, keeping the others in their order.
func (q *Queue) Remove(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.load(ctx)
	if err != nil {
		return err
	}
	kept := make([]PendingWrite, 0, len(items))
	for _, item := range items {
		if _, ok := set[item.ID]; !ok {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(items) {
		return nil
	}
	return q.save(ctx, kept)
}

func (q *Queue) Len(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.load(ctx)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}
