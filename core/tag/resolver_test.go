package tag

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/rollcall/core"
	"github.com/trezcool/rollcall/services/logger"
	"github.com/trezcool/rollcall/storage/database/inmem"
)

var roster = []Student{
	{ID: "S1", Name: "Ada", CardID: "04 A2 3B FF"},
	{ID: "S2", Name: "Grace", CardID: "42"},
	{ID: "S3", Name: "Linus"},
}

func TestResolver(t *testing.T) {
	logger := logsvc.NewConsoleLoggerMock()
	r := NewResolver(roster, logger)
	assert.Equal(t, 2, r.Len())
	assert.Empty(t, r.Collisions())

	tests := []struct {
		name   string
		scan   Scan
		want   string
		wantOK bool
	}{
		{name: "text record", scan: Scan{Records: []Record{NewTextRecord("id=42", "en")}}, want: "S2", wantOK: true},
		{name: "hardware id", scan: Scan{ID: []byte{0x04, 0xa2, 0x3b, 0xff}}, want: "S1", wantOK: true},
		{name: "unknown card", scan: Scan{Serial: "ffff"}},
		{name: "nothing to read", scan: Scan{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Resolve(tt.scan)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Len(t, logger.Entries(logsvc.LevelInfo), 1, "unknown card is logged")

	id, ok := r.Lookup(" 04a23bFF ")
	assert.True(t, ok)
	assert.Equal(t, "S1", id)
}

func TestResolver_Collisions(t *testing.T) {
	logger := logsvc.NewConsoleLoggerMock()
	r := NewResolver([]Student{
		{ID: "S1", CardID: "abc"},
		{ID: "S2", CardID: " ABC "},
		{ID: "S2", CardID: "abc"},
	}, logger)

	id, ok := r.Lookup("abc")
	assert.True(t, ok)
	assert.Equal(t, "S2", id)
	assert.Equal(t, []Collision{{CardID: "abc", Previous: "S1", Winner: "S2"}}, r.Collisions())
	assert.Len(t, logger.Entries(logsvc.LevelWarn), 1)
}

func TestParseRoster(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		rf, err := ParseRoster(strings.NewReader(`
teacher: " T1 "
students:
  - id: S1
    name: Ada
    card_id: "04 A2 3B FF"
  - id: S2
    name: Grace
`))
		require.NoError(t, err)
		assert.Equal(t, "T1", rf.TeacherID)
		assert.Equal(t, roster[:1], rf.Students[:1])
		assert.Len(t, rf.Students, 2)
	})

	t.Run("student without id", func(t *testing.T) {
		_, err := ParseRoster(strings.NewReader("teacher: T1\nstudents:\n  - name: Ada\n"))
		var vErr *core.ValidationError
		assert.ErrorAs(t, err, &vErr)
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := ParseRoster(strings.NewReader("teacher: T1\nclass: 3A\nstudents:\n  - id: S1\n"))
		assert.Error(t, err)
	})
}

func TestRosterStore(t *testing.T) {
	ctx := context.Background()
	store := inmemdb.NewKVStore()
	rs := NewRosterStore(store, "rollcall", logsvc.NewConsoleLoggerMock())

	_, err := rs.Resolver(ctx, "T1")
	assert.ErrorIs(t, err, ErrNoRoster)

	require.NoError(t, rs.Save(ctx, "T1", roster))
	_, err = store.Get(ctx, "rollcall:roster:T1")
	require.NoError(t, err)

	r, err := rs.Resolver(ctx, "T1")
	require.NoError(t, err)
	id, ok := r.Resolve(Scan{Records: []Record{NewURIRecord("https://school.example/?id=42")}})
	assert.True(t, ok)
	assert.Equal(t, "S2", id)
}
