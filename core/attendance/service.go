package attendance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"golang.org/x/sync/singleflight"

	"github.com/trezcool/rollcall/core"
)

const (
	msgSaved  = "Attendance saved."
	msgQueued = "Attendance saved on this device only. It will be sent when the connection is back."
)

var newPendingID = uuid.NewString // mockable

// classState is what the device knows about a class-day on the server.
type classState int

const (
	stateUnknown classState = iota
	stateNoRecord
	stateSubmitted
)

// Service submits attendance to the remote API, queueing what cannot be sent
// and keeping the cache in line with the latest local intent.
type Service struct {
	remote  Remote
	cache   *Cache
	queue   *Queue
	fetcher *Fetcher
	logger  core.Logger
	flights singleflight.Group
	ids     localIDs
}

func NewService(remote Remote, cache *Cache, queue *Queue, logger core.Logger) *Service {
	return &Service{
		remote:  remote,
		cache:   cache,
		queue:   queue,
		fetcher: NewFetcher(remote, cache, queue, logger),
		logger:  logger,
	}
}

func (svc *Service) Cache() *Cache { return svc.cache }
func (svc *Service) Queue() *Queue { return svc.queue }

// GetClassAttendance reads through to the remote API, see Fetcher.
func (svc *Service) GetClassAttendance(ctx context.Context, teacherID, section, assignmentID string) (FetchResult, error) {
	return svc.fetcher.GetClassAttendance(ctx, teacherID, section, assignmentID)
}

// Submit records the attendance of one class-day. Unless the request is invalid
// or the configuration is unusable, the attendance is never lost: it is either
// confirmed by the server or queued for replay, and the cache reflects it in both cases.
func (svc *Service) Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	if err := req.Validate(); err != nil {
		return SubmitResult{}, err
	}
	// a caller going away does not abandon the write; remote calls carry their own timeout
	ctx = context.WithoutCancel(ctx)
	now := core.NowFunc()
	day := req.Date
	if day == "" {
		day = core.Day(now)
	}
	blob, err := EncodeEntries(req.Entries)
	if err != nil {
		return SubmitResult{}, err
	}
	usr := core.Person{ID: req.TeacherID}

	// earlier writes for this class-day must reach the server first
	behind, err := svc.settlePending(ctx, req.AssignmentID, day)
	if err != nil {
		return SubmitResult{}, err
	}

	knownID := req.AttendanceID
	state := stateUnknown
	if knownID == "" && !req.ForceUpdate && !behind {
		if knownID, state, err = svc.discover(ctx, req, day); err != nil {
			return SubmitResult{}, err
		}
	}
	amend := knownID != "" || state == stateSubmitted || req.ForceUpdate || behind

	payload := Payload{
		AssignmentID: req.AssignmentID,
		TeacherID:    req.TeacherID,
		Date:         null.StringFrom(day),
		AttendanceID: null.NewString(knownID, knownID != ""),
		Attendance:   req.Entries,
	}

	var (
		mode Mode
		wRes WriteResult
		wErr error
	)
	if behind {
		wErr = errors.New("earlier attendance for this class is still queued")
	} else {
		mode, wRes, wErr = svc.write(ctx, payload, amend || state == stateUnknown, usr)
		if core.IsConfigError(wErr) {
			return SubmitResult{}, wErr
		}
	}

	if wErr == nil {
		if mode == ModeSubmit {
			// a created record's server id is learned on the next fetch
			knownID = ""
		}
		rec := svc.writeThrough(ctx, req, knownID, day, blob, now, true)
		msg := wRes.Message
		if msg == "" {
			msg = msgSaved
		}
		svc.logger.Info("attendance sent", map[string]interface{}{"mode": mode, "record": rec.ID}, usr)
		return SubmitResult{
			Success:    true,
			Mode:       mode,
			RecordID:   rec.ID,
			Message:    msg,
			SavedCount: wRes.SavedCount,
		}, nil
	}

	mode = ModeSubmit
	if amend {
		mode = ModeUpdate
	}
	item := PendingWrite{
		Version:   FormatVersion,
		ID:        newPendingID(),
		CreatedAt: now.UTC(),
		Mode:      mode,
		Payload:   payload,
	}
	if err := svc.queue.Enqueue(ctx, item); err != nil {
		svc.logger.Error("queueing attendance failed", err, usr)
		return SubmitResult{}, errors.Wrap(err, "queueing attendance")
	}
	svc.logger.Warn("attendance queued", wErr, map[string]interface{}{"pending": item.ID, "mode": mode}, usr)

	rec := svc.writeThrough(ctx, req, knownID, day, blob, now, false)
	return SubmitResult{
		Success:   true,
		Queued:    true,
		Mode:      mode,
		RecordID:  rec.ID,
		PendingID: item.ID,
		Message:   msgQueued,
	}, nil
}

// settlePending flushes the queue when it holds writes for the class-day and
// reports whether some are still waiting.
func (svc *Service) settlePending(ctx context.Context, assignmentID, day string) (bool, error) {
	has := func() (bool, error) {
		items, err := svc.queue.DrainAll(ctx)
		if err != nil {
			return false, err
		}
		for _, item := range items {
			if item.Payload.AssignmentID == assignmentID && item.Payload.Date.String == day {
				return true, nil
			}
		}
		return false, nil
	}

	pending, err := has()
	if err != nil {
		svc.logger.Error("reading queue", err)
		return false, nil
	}
	if !pending {
		return false, nil
	}
	if _, err := svc.Flush(ctx); err != nil {
		if core.IsConfigError(err) {
			return false, err
		}
		svc.logger.Warn("flushing queue", err)
	}
	if pending, err = has(); err != nil {
		svc.logger.Error("reading queue", err)
		return true, nil
	}
	return pending, nil
}

// discover asks the read-through fetcher whether the server already holds the class-day.
func (svc *Service) discover(ctx context.Context, req SubmitRequest, day string) (string, classState, error) {
	res, err := svc.fetcher.GetClassAttendance(ctx, req.TeacherID, req.Section, req.AssignmentID)
	if err != nil {
		if core.IsConfigError(err) {
			return "", stateUnknown, err
		}
		svc.logger.Debug("attendance state unknown", err)
		return "", stateUnknown, nil
	}
	if rec, ok := FindClassDay(res.Records, req.AssignmentID, req.Section, req.Subject, day); ok {
		switch {
		case !rec.IsLocal():
			return rec.ID, stateSubmitted, nil
		case rec.Confirmed:
			// the server holds it under an id this device has not learned yet
			return "", stateSubmitted, nil
		}
		return "", stateUnknown, nil
	}
	if res.Cached {
		return "", stateUnknown, nil
	}
	return "", stateNoRecord, nil
}

// write amends first when tryUpdate is set, falling back to a create when the
// server has nothing to amend. A create refused because the class-day is
// already recorded is retried as an amend.
func (svc *Service) write(ctx context.Context, p Payload, tryUpdate bool, usr core.Person) (Mode, WriteResult, error) {
	if tryUpdate {
		res, err := svc.remote.UpdateAttendance(ctx, p)
		if err == nil {
			return ModeUpdate, res, nil
		}
		if !IsMissingRecord(err) {
			return ModeUpdate, res, err
		}
		svc.logger.Debug("no attendance to amend; submitting instead", usr)
		p.AttendanceID = null.String{}
	}
	res, err := svc.remote.SubmitAttendance(ctx, p)
	if err != nil && !tryUpdate && IsAlreadySubmitted(err) {
		svc.logger.Debug("attendance already submitted; amending instead", usr)
		res, err = svc.remote.UpdateAttendance(ctx, p)
		return ModeUpdate, res, err
	}
	return ModeSubmit, res, err
}

// writeThrough upserts the submitted attendance into the class and teacher
// scopes. confirmed tells whether the server accepted the write; a class-day
// once confirmed stays so. Failures are logged: the cache is best-effort.
func (svc *Service) writeThrough(ctx context.Context, req SubmitRequest, knownID, day, blob string, now time.Time, confirmed bool) Record {
	logged := now
	if day != core.Day(now) {
		if t, err := time.ParseInLocation(core.DayLayout, day, now.Location()); err == nil {
			logged = t
		}
	}
	build := func(classRecs []Record) Record {
		rec := Record{
			Version:         FormatVersion,
			ID:              knownID,
			TeacherID:       req.TeacherID,
			AssignedSection: req.Section,
			Subject:         null.NewString(req.Subject, req.Subject != ""),
			AssignmentID:    null.StringFrom(req.AssignmentID),
			AttendanceBlob:  blob,
			DateLogged:      logged,
			Confirmed:       confirmed,
		}
		if prev, ok := FindClassDay(classRecs, req.AssignmentID, req.Section, req.Subject, day); ok {
			if rec.ID == "" {
				rec.ID = prev.ID
			}
			rec.Confirmed = rec.Confirmed || prev.Confirmed
		}
		if rec.ID == "" {
			rec.ID = svc.ids.next(now)
		}
		return rec
	}

	usr := core.Person{ID: req.TeacherID}
	var rec Record
	err := svc.cache.Update(ctx, ClassScope(req.TeacherID, req.Section), func(classRecs []Record) []Record {
		rec = build(classRecs)
		return Upsert(classRecs, rec)
	})
	if err != nil {
		svc.logger.Error("caching class attendance", err, usr)
		if rec.ID == "" {
			// the class list could not be read and is left untouched
			rec = build(nil)
		}
	}

	if err := svc.cache.Update(ctx, AllScope(req.TeacherID), func(allRecs []Record) []Record {
		return Upsert(allRecs, rec)
	}); err != nil {
		svc.logger.Error("caching attendance", err, usr)
	}
	return rec
}

// Flush replays queued writes oldest first and stops at the first failure.
// Concurrent calls share a single pass.
func (svc *Service) Flush(ctx context.Context) (FlushResult, error) {
	v, err, shared := svc.flights.Do("flush", func() (interface{}, error) {
		return svc.flush(ctx)
	})
	res, _ := v.(FlushResult)
	res.Coalesced = shared
	return res, err
}

func (svc *Service) flush(ctx context.Context) (FlushResult, error) {
	items, err := svc.queue.DrainAll(ctx)
	if err != nil {
		return FlushResult{}, err
	}
	if len(items) == 0 {
		return FlushResult{Succeeded: []string{}}, nil
	}

	res := FlushResult{Succeeded: make([]string, 0, len(items))}
	var fatal error
	for _, item := range items {
		res.Attempted++
		if err := svc.replay(ctx, item); err != nil {
			res.Halted = true
			res.LastError = err.Error()
			if core.IsConfigError(err) {
				fatal = err
			}
			svc.logger.Warn("replay halted", err, map[string]interface{}{
				"pending": item.ID, "mode": item.Mode, "attempted": res.Attempted,
			}, core.Person{ID: item.Payload.TeacherID})
			break
		}
		res.Succeeded = append(res.Succeeded, item.ID)
	}

	if err := svc.queue.Remove(ctx, res.Succeeded...); err != nil {
		return res, errors.Wrap(err, "removing replayed writes")
	}
	if res.Remaining, err = svc.queue.Len(ctx); err != nil {
		return res, err
	}
	if len(res.Succeeded) > 0 {
		svc.logger.Info("queued attendance sent", map[string]interface{}{
			"sent": len(res.Succeeded), "remaining": res.Remaining,
		})
	}
	return res, fatal
}

func (svc *Service) replay(ctx context.Context, item PendingWrite) error {
	switch item.Mode {
	case ModeSubmit:
		_, err := svc.remote.SubmitAttendance(ctx, item.Payload)
		if err == nil || !IsAlreadySubmitted(err) {
			return err
		}
		// recorded while this write waited, e.g. by an earlier write of the class-day
		_, err = svc.remote.UpdateAttendance(ctx, item.Payload)
		return err
	case ModeUpdate:
		_, err := svc.remote.UpdateAttendance(ctx, item.Payload)
		if err == nil || !IsMissingRecord(err) {
			return err
		}
		p := item.Payload
		p.AttendanceID = null.String{}
		_, err = svc.remote.SubmitAttendance(ctx, p)
		return err
	default:
		return errors.Errorf("unknown pending write mode %q", item.Mode)
	}
}
