package attendance

import (
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/rollcall/core"
)

// FormatVersion tags every persisted Record and PendingWrite.
// Entities without a tag (0) predate versioning and are read as version 1.
const FormatVersion = 1

// localIDPrefix marks record ids generated on the device before the server assigned one.
const localIDPrefix = "local-"

// Status is a student's attendance status.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
)

var Statuses = []Status{StatusPresent, StatusAbsent, StatusLate}

func (s Status) IsValid() bool {
	for _, st := range Statuses {
		if s == st {
			return true
		}
	}
	return false
}

// ParseStatus accepts a status in any case.
func ParseStatus(s string) (Status, error) {
	st := Status(core.CleanString(s, true /* lower */))
	if !st.IsValid() {
		return "", errors.Errorf("invalid attendance status %q", s)
	}
	return st, nil
}

// Mode is the remote write a PendingWrite replays with.
type Mode string

const (
	ModeSubmit Mode = "submit"
	ModeUpdate Mode = "update"
)

// Entry is one student's mark.
type Entry struct {
	StudentID string `json:"studentId" validate:"required"`
	Status    Status `json:"status" validate:"attstatus"`
}

// EncodeEntries serializes entries into an attendance blob, keeping their order.
func EncodeEntries(entries []Entry) (string, error) {
	if entries == nil {
		entries = []Entry{}
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return "", errors.Wrap(err, "encoding attendance entries")
	}
	return string(b), nil
}

// DecodeEntries parses an attendance blob.
func DecodeEntries(blob string) ([]Entry, error) {
	var entries []Entry
	if strings.TrimSpace(blob) == "" {
		return entries, nil
	}
	if err := json.Unmarshal([]byte(blob), &entries); err != nil {
		return nil, errors.Wrap(err, "decoding attendance blob")
	}
	return entries, nil
}

// Record is the last-known snapshot of one class-day attendance sheet.
type Record struct {
	Version         int         `json:"v"`
	ID              string      `json:"id"`
	TeacherID       string      `json:"teacherId"`
	AssignedSection string      `json:"assignedSection"`
	Subject         null.String `json:"subject"`
	AssignmentID    null.String `json:"assignmentId"`
	AttendanceBlob  string      `json:"attendanceBlob"`
	DateLogged      time.Time   `json:"dateLogged"`
	// Confirmed marks a placeholder record whose class-day the server is known to hold.
	Confirmed bool `json:"confirmed,omitempty"`
}

func (r Record) Entries() ([]Entry, error) {
	return DecodeEntries(r.AttendanceBlob)
}

// Day returns the calendar day the record was logged for.
func (r Record) Day() string {
	return core.Day(r.DateLogged)
}

// IsLocal reports whether the record id is a device placeholder.
func (r Record) IsLocal() bool {
	return IsLocalID(r.ID)
}

// sameClassDay reports whether both records describe the same (teacher, section, subject, day).
func (r Record) sameClassDay(o Record) bool {
	return r.TeacherID == o.TeacherID &&
		r.AssignedSection == o.AssignedSection &&
		r.Subject.String == o.Subject.String &&
		r.Day() == o.Day()
}

func IsLocalID(id string) bool {
	return strings.HasPrefix(id, localIDPrefix)
}

// NewLocalID returns a placeholder record id for t.
func NewLocalID(t time.Time) string {
	return localIDPrefix + strconv.FormatInt(t.UnixMilli(), 10)
}

// localIDs hands out placeholder ids that stay distinct when writes share a
// millisecond: a taken timestamp is bumped past the last one issued.
type localIDs struct {
	mu   sync.Mutex
	last int64
}

func (g *localIDs) next(t time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ms := t.UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return NewLocalID(time.UnixMilli(ms))
}

// Payload carries everything needed to (re)play a remote write.
type Payload struct {
	AssignmentID string      `json:"assignmentId"`
	TeacherID    string      `json:"teacherId"`
	Date         null.String `json:"date"`
	AttendanceID null.String `json:"attendanceId"`
	Attendance   []Entry     `json:"attendance"`
}

// PendingWrite is a remote write not yet confirmed by the server.
type PendingWrite struct {
	Version   int       `json:"v"`
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Mode      Mode      `json:"mode"`
	Payload   Payload   `json:"payload"`
}

// Query selects remote attendance records.
type Query struct {
	TeacherID    string
	Section      string
	AssignmentID string
}

// WriteResult is the remote answer to a create or amend call.
type WriteResult struct {
	Message    string
	SavedCount int
}

// SubmitRequest is a caller-supplied attendance set for one class-day.
type SubmitRequest struct {
	TeacherID    string  `json:"teacher_id" validate:"required"`
	AssignmentID string  `json:"assignment_id" validate:"required"`
	Section      string  `json:"section" validate:"required"`
	Subject      string  `json:"subject"`
	Date         string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
	AttendanceID string  `json:"attendance_id"`
	ForceUpdate  bool    `json:"force_update"`
	Entries      []Entry `json:"entries" validate:"required,min=1,dive"`
}

func (req *SubmitRequest) Validate() error {
	req.TeacherID = core.CleanString(req.TeacherID)
	req.AssignmentID = core.CleanString(req.AssignmentID)
	req.Section = core.CleanString(req.Section)
	req.Subject = core.CleanString(req.Subject)
	req.Date = core.CleanString(req.Date)
	req.AttendanceID = core.CleanString(req.AttendanceID)
	for i := range req.Entries {
		req.Entries[i].StudentID = core.CleanString(req.Entries[i].StudentID)
		req.Entries[i].Status = Status(core.CleanString(string(req.Entries[i].Status), true /* lower */))
	}
	return core.TranslateValidation(core.Validate.Struct(req))
}

// SubmitResult reports how a submission was persisted. Queued results are
// successes: the attendance is saved on the device and will be replayed.
type SubmitResult struct {
	Success    bool   `json:"success"`
	Queued     bool   `json:"queued"`
	Mode       Mode   `json:"mode"`
	RecordID   string `json:"record_id"`
	PendingID  string `json:"pending_id,omitempty"`
	Message    string `json:"message"`
	SavedCount int    `json:"saved_count,omitempty"`
}

// FlushResult summarizes one replay pass over the queue.
type FlushResult struct {
	Attempted int      `json:"attempted"`
	Succeeded []string `json:"succeeded"`
	Remaining int      `json:"remaining"`
	Halted    bool     `json:"halted"`
	LastError string   `json:"last_error,omitempty"`
	Coalesced bool     `json:"coalesced"`
}

// FetchResult holds class records and whether they came from the local cache.
type FetchResult struct {
	Records []Record `json:"records"`
	Cached  bool     `json:"cached"`
	Message string   `json:"message,omitempty"`
}
