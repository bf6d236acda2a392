package remote

import (
	"encoding/json"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/rollcall/core/attendance"
)

// endpoints of the attendance API, relative to the base URL
const (
	EndpointSubmit = "class_attendance"
	EndpointUpdate = "update_class_attendance"
	EndpointGet    = "get_class_attendance"

	APIKeyParam = "api_key"
)

type (
	// WriteRequest is the body of a create or amend call.
	WriteRequest struct {
		AssignmentID string             `json:"assignment_id"`
		TeacherID    string             `json:"teacher_id"`
		Date         null.String        `json:"date"`
		AttendanceID null.String        `json:"attendance_id"`
		Attendance   []attendance.Entry `json:"attendance"`
	}

	// GetRequest is the body of a list call.
	GetRequest struct {
		TeacherID    string `json:"teacher_id"`
		Section      string `json:"section"`
		AssignmentID string `json:"assignment_id,omitempty"`
	}

	// Response is the envelope of every reply.
	Response struct {
		Success    bool            `json:"success"`
		Message    string          `json:"message"`
		SavedCount int             `json:"saved_count,omitempty"`
		Data       json.RawMessage `json:"data,omitempty"`
	}

	// RecordDTO is an attendance record as the API lists it.
	RecordDTO struct {
		ID              string      `json:"id"`
		TeacherID       string      `json:"teacher_id"`
		AssignedSection string      `json:"assigned_section"`
		Subject         null.String `json:"subject"`
		AssignmentID    null.String `json:"assignment_id"`
		AttendanceBlob  string      `json:"attendance_blob"`
		DateLogged      time.Time   `json:"date_logged"`
	}
)

func NewWriteRequest(p attendance.Payload) WriteRequest {
	return WriteRequest{
		AssignmentID: p.AssignmentID,
		TeacherID:    p.TeacherID,
		Date:         p.Date,
		AttendanceID: p.AttendanceID,
		Attendance:   p.Attendance,
	}
}

func (dto RecordDTO) Record() attendance.Record {
	return attendance.Record{
		Version:         attendance.FormatVersion,
		ID:              dto.ID,
		TeacherID:       dto.TeacherID,
		AssignedSection: dto.AssignedSection,
		Subject:         dto.Subject,
		AssignmentID:    dto.AssignmentID,
		AttendanceBlob:  dto.AttendanceBlob,
		DateLogged:      dto.DateLogged,
	}
}
