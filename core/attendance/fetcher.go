package attendance

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/rollcall/core"
)

// Fetcher reads class attendance from the remote API and falls back to the
// cache when the remote is unreachable.
type Fetcher struct {
	remote Remote
	cache  *Cache
	queue  *Queue
	logger core.Logger
}

func NewFetcher(remote Remote, cache *Cache, queue *Queue, logger core.Logger) *Fetcher {
	return &Fetcher{remote: remote, cache: cache, queue: queue, logger: logger}
}

func (f *Fetcher) GetClassAttendance(ctx context.Context, teacherID, section, assignmentID string) (FetchResult, error) {
	scope := ClassScope(teacherID, section)
	records, err := f.remote.GetClassAttendance(ctx, Query{
		TeacherID:    teacherID,
		Section:      section,
		AssignmentID: assignmentID,
	})
	if err == nil {
		for i := range records {
			if records[i].TeacherID == "" {
				records[i].TeacherID = teacherID
			}
			records[i].Version = FormatVersion
		}
		f.store(ctx, scope, records)
		return FetchResult{Records: records}, nil
	}
	if core.IsConfigError(err) {
		return FetchResult{}, err
	}

	f.logger.Warn("fetching class attendance failed; reading cache", err, map[string]interface{}{"scope": string(scope)},
		core.Person{ID: teacherID})
	cached, found, cErr := f.cache.Get(ctx, scope)
	if cErr != nil {
		f.logger.Error("reading cached class attendance", cErr, core.Person{ID: teacherID})
	}
	if !found || len(cached) == 0 {
		return FetchResult{}, errors.Wrap(err, "fetching class attendance")
	}
	return FetchResult{
		Records: cached,
		Cached:  true,
		Message: "Showing saved attendance; the server could not be reached.",
	}, nil
}

// store writes fetched records to the cache. Cached records of class-days with
// a queued write win over the server copy, and local-only records the server
// does not know yet are kept, so that pending attendance stays visible.
func (f *Fetcher) store(ctx context.Context, scope Scope, fetched []Record) {
	pending := f.pendingClassDays(ctx)
	err := f.cache.Update(ctx, scope, func(cached []Record) []Record {
		merged := make([]Record, 0, len(fetched)+len(cached))
		used := make(map[int]bool, len(cached))
		for _, srv := range fetched {
			rec := srv
			for i, c := range cached {
				if used[i] || !c.sameClassDay(srv) {
					continue
				}
				used[i] = true
				if _, ok := pending[classDayKey(c.AssignmentID.String, c.Day())]; ok {
					rec = c
					rec.ID = srv.ID
				}
				break
			}
			merged = append(merged, rec)
		}
		for i, c := range cached {
			if !used[i] && c.IsLocal() {
				merged = append(merged, c)
			}
		}
		return merged
	})
	if err != nil {
		f.logger.Error("caching class attendance", err)
	}
}

func (f *Fetcher) pendingClassDays(ctx context.Context) map[string]struct{} {
	days := make(map[string]struct{})
	if f.queue == nil {
		return days
	}
	items, err := f.queue.DrainAll(ctx)
	if err != nil {
		f.logger.Error("reading queue", err)
		return days
	}
	for _, item := range items {
		day := item.Payload.Date.String
		if !item.Payload.Date.Valid || day == "" {
			day = core.Day(item.CreatedAt)
		}
		days[classDayKey(item.Payload.AssignmentID, day)] = struct{}{}
	}
	return days
}

func classDayKey(assignmentID, day string) string {
	return assignmentID + "|" + day
}
