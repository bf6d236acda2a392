package attendance

import (
	"context"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/rollcall/core"
	"github.com/trezcool/rollcall/services/logger"
	"github.com/trezcool/rollcall/storage/database/inmem"
)

const (
	teacherID    = "T1"
	section      = "Grade 3 - A"
	assignmentID = "A100"
	subject      = "Math"
	prefix       = "rollcall"
)

var testNow = time.Date(2024, time.March, 4, 9, 30, 0, 0, time.Local)

type fixture struct {
	store  *inmemdb.KVStore
	remote *RemoteMock
	logger *logsvc.ConsoleLogger
	svc    *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	origNow, origID := core.NowFunc, newPendingID
	core.NowFunc = func() time.Time { return testNow }
	var n atomic.Int32
	newPendingID = func() string {
		return "pending-" + strconv.Itoa(int(n.Add(1)))
	}
	t.Cleanup(func() { core.NowFunc, newPendingID = origNow, origID })

	f := &fixture{
		store:  inmemdb.NewKVStore(),
		remote: NewRemoteMock(),
		logger: logsvc.NewConsoleLoggerMock(),
	}
	f.svc = newService(f.store, f.remote, f.logger)
	return f
}

func newService(store core.KVStore, remote Remote, logger core.Logger) *Service {
	return NewService(remote, NewCache(store, prefix, logger), NewQueue(store, prefix, logger), logger)
}

func request(statuses ...Status) SubmitRequest {
	entries := make([]Entry, 0, len(statuses))
	for i, st := range statuses {
		entries = append(entries, Entry{StudentID: "S" + strconv.Itoa(i+1), Status: st})
	}
	return SubmitRequest{
		TeacherID:    teacherID,
		AssignmentID: assignmentID,
		Section:      section,
		Subject:      subject,
		Entries:      entries,
	}
}

func serverRecord(id string, day time.Time, entries ...Entry) Record {
	blob, _ := EncodeEntries(entries)
	return Record{
		ID:              id,
		AssignedSection: section,
		Subject:         null.StringFrom(subject),
		AssignmentID:    null.StringFrom(assignmentID),
		AttendanceBlob:  blob,
		DateLogged:      day,
	}
}

func pendingWrite(id, assignment string, mode Mode, createdAt time.Time) PendingWrite {
	return PendingWrite{
		ID:        id,
		CreatedAt: createdAt,
		Mode:      mode,
		Payload: Payload{
			AssignmentID: assignment,
			TeacherID:    teacherID,
			Date:         null.StringFrom(core.Day(createdAt)),
			Attendance:   []Entry{{StudentID: "S1", Status: StatusPresent}},
		},
	}
}

func queueLen(t *testing.T, q *Queue) int {
	t.Helper()
	n, err := q.Len(context.Background())
	if err != nil {
		t.Fatalf("Queue.Len() failed: %v", err)
	}
	return n
}
