package attendance

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// ErrOffline is what RemoteMock returns to simulate an unreachable server.
var ErrOffline = errors.New("dial tcp: network is unreachable")

// RemoteMock is a scriptable Remote recording every call it receives.
// Unset funcs succeed (writes) or return no records (reads).
type RemoteMock struct {
	mu sync.Mutex

	SubmitFunc func(ctx context.Context, p Payload) (WriteResult, error)
	UpdateFunc func(ctx context.Context, p Payload) (WriteResult, error)
	GetFunc    func(ctx context.Context, q Query) ([]Record, error)

	Submits []Payload
	Updates []Payload
	Gets    []Query
}

var _ Remote = (*RemoteMock)(nil)

func NewRemoteMock() *RemoteMock {
	return &RemoteMock{}
}

// NewOfflineRemoteMock returns a RemoteMock whose every call fails with ErrOffline.
func NewOfflineRemoteMock() *RemoteMock {
	m := &RemoteMock{}
	m.GoOffline()
	return m
}

func (m *RemoteMock) GoOffline() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SubmitFunc = func(context.Context, Payload) (WriteResult, error) { return WriteResult{}, ErrOffline }
	m.UpdateFunc = func(context.Context, Payload) (WriteResult, error) { return WriteResult{}, ErrOffline }
	m.GetFunc = func(context.Context, Query) ([]Record, error) { return nil, ErrOffline }
}

func (m *RemoteMock) GoOnline() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SubmitFunc, m.UpdateFunc, m.GetFunc = nil, nil, nil
}

func (m *RemoteMock) SubmitAttendance(ctx context.Context, p Payload) (WriteResult, error) {
	m.mu.Lock()
	m.Submits = append(m.Submits, p)
	fn := m.SubmitFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, p)
	}
	return WriteResult{Message: "Attendance saved", SavedCount: len(p.Attendance)}, nil
}

func (m *RemoteMock) UpdateAttendance(ctx context.Context, p Payload) (WriteResult, error) {
	m.mu.Lock()
	m.Updates = append(m.Updates, p)
	fn := m.UpdateFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, p)
	}
	return WriteResult{Message: "Attendance updated", SavedCount: len(p.Attendance)}, nil
}

func (m *RemoteMock) GetClassAttendance(ctx context.Context, q Query) ([]Record, error) {
	m.mu.Lock()
	m.Gets = append(m.Gets, q)
	fn := m.GetFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, q)
	}
	return []Record{}, nil
}

// Calls returns the number of submit, update and get calls received so far.
func (m *RemoteMock) Calls() (submits, updates, gets int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Submits), len(m.Updates), len(m.Gets)
}
