package echoapi

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/rollcall/services/remote"
)

// class is what the backend knows about an assignment.
type class struct {
	Section string
	Subject string
}

// store is the in-memory attendance table of the stub backend.
type store struct {
	mu      sync.Mutex
	seq     int
	classes map[string]class
	records []remote.RecordDTO
	nowFunc func() time.Time
}

func newStore() *store {
	return &store{classes: make(map[string]class), nowFunc: time.Now}
}

func (s *store) addAssignment(id, section, subject string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.classes[id] = class{Section: section, Subject: subject}
}

func (s *store) day(req remote.WriteRequest) string {
	if req.Date.Valid && req.Date.String != "" {
		return req.Date.String
	}
	return s.nowFunc().Format("2006-01-02")
}

// find returns the index of the record for the assignment and day, or -1.
func (s *store) find(assignmentID, day string) int {
	for i, r := range s.records {
		if r.AssignmentID.String == assignmentID && r.DateLogged.Format("2006-01-02") == day {
			return i
		}
	}
	return -1
}

func (s *store) findID(id string) int {
	for i, r := range s.records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (s *store) create(req remote.WriteRequest, blob string) (remote.RecordDTO, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	day := s.day(req)
	if s.find(req.AssignmentID, day) >= 0 {
		return remote.RecordDTO{}, false
	}
	logged, err := time.Parse("2006-01-02", day)
	if err != nil {
		logged = s.nowFunc()
	}
	s.seq++
	cls := s.classes[req.AssignmentID]
	rec := remote.RecordDTO{
		ID:              strconv.Itoa(s.seq),
		TeacherID:       req.TeacherID,
		AssignedSection: cls.Section,
		Subject:         null.NewString(cls.Subject, cls.Subject != ""),
		AssignmentID:    null.StringFrom(req.AssignmentID),
		AttendanceBlob:  blob,
		DateLogged:      logged,
	}
	s.records = append(s.records, rec)
	return rec, true
}

func (s *store) update(req remote.WriteRequest, blob string) (remote.RecordDTO, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var idx int
	if req.AttendanceID.Valid && req.AttendanceID.String != "" {
		idx = s.findID(req.AttendanceID.String)
	} else {
		idx = s.find(req.AssignmentID, s.day(req))
	}
	if idx < 0 {
		return remote.RecordDTO{}, false
	}
	s.records[idx].AttendanceBlob = blob
	return s.records[idx], true
}

func (s *store) list(req remote.GetRequest) []remote.RecordDTO {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]remote.RecordDTO, 0)
	for _, r := range s.records {
		if r.TeacherID != req.TeacherID {
			continue
		}
		if req.AssignmentID != "" {
			if r.AssignmentID.String != req.AssignmentID {
				continue
			}
		} else if r.AssignedSection != req.Section {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DateLogged.After(out[j].DateLogged) })
	return out
}
