package attendance

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// missingRecordText is how the remote API words an amend against a class-day
// it has no attendance for.
const missingRecordText = "no existing attendance record found"

// alreadySubmittedText is how the remote API refuses a second create for a class-day.
const alreadySubmittedText = "already submitted"

var (
	// ErrMissingRecord signals that an update found no base record to amend.
	ErrMissingRecord = errors.New(missingRecordText)
	// ErrAlreadySubmitted signals that a create found the class-day already recorded.
	ErrAlreadySubmitted = errors.New("attendance " + alreadySubmittedText)
)

// Remote is the attendance API of the backend.
type Remote interface {
	// SubmitAttendance creates the attendance of a class-day. It fails with an error
	// whose message contains "already submitted" when the class-day has one.
	SubmitAttendance(ctx context.Context, p Payload) (WriteResult, error)
	// UpdateAttendance amends existing attendance. It fails with an error whose
	// message contains "no existing attendance record found" when there is none.
	UpdateAttendance(ctx context.Context, p Payload) (WriteResult, error)
	GetClassAttendance(ctx context.Context, q Query) ([]Record, error)
}

// IsMissingRecord reports whether err is the remote "no existing attendance
// record found" failure, matched on the message since that is all the API gives.
func IsMissingRecord(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrMissingRecord) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), missingRecordText)
}

// IsAlreadySubmitted reports whether err is the remote refusal of a create for
// a class-day that already has attendance.
func IsAlreadySubmitted(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAlreadySubmitted) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), alreadySubmittedText)
}
