package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/rollcall/core/attendance"
	"github.com/trezcool/rollcall/core/tag"
	"github.com/trezcool/rollcall/services/logger"
	"github.com/trezcool/rollcall/tests"
)

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func newTestCLI(t *testing.T) (*commandLine, *attendance.RemoteMock, *bytes.Buffer) {
	t.Helper()
	conf := testutil.Config(t)
	mock := attendance.NewRemoteMock()
	out := &bytes.Buffer{}
	cli := &commandLine{
		out:    out,
		conf:   conf,
		logger: logsvc.NewConsoleLoggerMock(),
		db:     testutil.OpenDB(t, conf.Storage),
		remote: mock,
	}
	t.Cleanup(cli.close)
	return cli, mock, out
}

// runJSON runs args with JSON output and decodes it into v.
func runJSON(t *testing.T, cli *commandLine, out *bytes.Buffer, v interface{}, args ...string) {
	t.Helper()
	out.Reset()
	require.NoError(t, cli.run(append([]string{"-o", "json"}, args...)))
	require.NoError(t, json.Unmarshal(out.Bytes(), v), out.String())
}

func runTests(t *testing.T, cli *commandLine, tests []cliTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(tt.args)
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
			case tt.wantErrStr != "":
				if err == nil || err.Error() != tt.wantErrStr {
					t.Errorf("cli.run() error = %v, wantErrStr %s", err, tt.wantErrStr)
				}
			case err != nil:
				t.Errorf("cli.run() unexpected error = %v", err)
			}
		})
	}
}

var submitArgs = []string{"submit", "--teacher", "T1", "--assignment", "A100", "--section", "Grade 3 - A", "--subject", "Math"}

func Test_commandLine_run(t *testing.T) {
	cli, _, _ := newTestCLI(t)

	runTests(t, cli, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErrStr: `unknown command "lol" for "rollcall"`},
		{name: "unknown output", args: []string{"-o", "xml", "queue"}, wantErrStr: `unknown output format "xml"`},
		{name: "submit: no entries", args: submitArgs, wantErrStr: "requires at least 1 arg(s), only received 0"},
		{name: "submit: bad entry", args: append(submitArgs[:len(submitArgs):len(submitArgs)], "S1"), wantErrStr: `"S1": expected STUDENT_ID=STATUS`},
		{name: "submit: bad status", args: append(submitArgs[:len(submitArgs):len(submitArgs)], "S1=asleep"), wantErrStr: `invalid attendance status "asleep"`},
		{name: "submit: missing flag", args: []string{"submit", "--teacher", "T1", "S1=present"},
			wantErrStr: `required flag(s) "assignment", "section" not set`},
		{name: "table output", args: []string{"-o", "table", "queue"}},
	})
}

func Test_commandLine_submitFlushQueue(t *testing.T) {
	cli, mock, out := newTestCLI(t)

	// offline: the attendance is queued
	mock.GoOffline()
	var res attendance.SubmitResult
	runJSON(t, cli, out, &res, append(submitArgs, "S1=present", "S2=Absent")...)
	assert.True(t, res.Queued)
	assert.Equal(t, attendance.ModeSubmit, res.Mode)

	var items []attendance.PendingWrite
	runJSON(t, cli, out, &items, "queue")
	require.Len(t, items, 1)
	assert.Equal(t, []attendance.Entry{
		{StudentID: "S1", Status: attendance.StatusPresent},
		{StudentID: "S2", Status: attendance.StatusAbsent},
	}, items[0].Payload.Attendance)

	var records []attendance.Record
	runJSON(t, cli, out, &records, "records", "--teacher", "T1")
	require.Len(t, records, 1)
	assert.Equal(t, res.RecordID, records[0].ID)

	// back online
	mock.GoOnline()
	var flushed attendance.FlushResult
	runJSON(t, cli, out, &flushed, "flush")
	assert.Equal(t, []string{res.PendingID}, flushed.Succeeded)
	assert.Zero(t, flushed.Remaining)

	runJSON(t, cli, out, &items, "queue")
	assert.Empty(t, items)
}

func Test_commandLine_fetch(t *testing.T) {
	cli, mock, out := newTestCLI(t)
	mock.GetFunc = func(context.Context, attendance.Query) ([]attendance.Record, error) {
		return []attendance.Record{{ID: "srv-1", AssignedSection: "Grade 3 - A", AttendanceBlob: "[]", DateLogged: time.Now()}}, nil
	}

	var res attendance.FetchResult
	runJSON(t, cli, out, &res, "fetch", "--teacher", "T1", "--section", "Grade 3 - A")
	assert.False(t, res.Cached)
	require.Len(t, res.Records, 1)

	mock.GoOffline()
	runJSON(t, cli, out, &res, "fetch", "--teacher", "T1", "--section", "Grade 3 - A")
	assert.True(t, res.Cached)
	assert.Equal(t, "srv-1", res.Records[0].ID)
}

func Test_commandLine_sync(t *testing.T) {
	cli, mock, out := newTestCLI(t)
	mock.GoOffline()
	require.NoError(t, cli.run(append(submitArgs, "S1=late")))
	mock.GoOnline()

	notifyContext := notifyContextFunc
	notifyContextFunc = func(parent context.Context, _ ...os.Signal) (context.Context, context.CancelFunc) {
		// interrupted shortly after the first flush
		return context.WithTimeout(parent, 300*time.Millisecond)
	}
	defer func() { notifyContextFunc = notifyContext }()

	require.NoError(t, cli.run([]string{"sync"}))
	var items []attendance.PendingWrite
	runJSON(t, cli, out, &items, "queue")
	assert.Empty(t, items)
}

func Test_commandLine_roster(t *testing.T) {
	cli, _, out := newTestCLI(t)

	path := filepath.Join(t.TempDir(), "roster.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
teacher: T1
students:
  - id: S1
    name: Ada
    card_id: "04 A2 3B FF"
  - id: S2
    name: Grace
    card_id: "42"
  - id: S3
    name: Alan
    card_id: "42"
`), 0o600))

	var imported struct {
		Students   int             `json:"students"`
		Cards      int             `json:"cards"`
		Collisions []tag.Collision `json:"collisions"`
	}
	runJSON(t, cli, out, &imported, "roster", "import", path)
	assert.Equal(t, 3, imported.Students)
	assert.Equal(t, 2, imported.Cards)
	assert.Equal(t, []tag.Collision{{CardID: "42", Previous: "S2", Winner: "S3"}}, imported.Collisions)

	type scanned struct {
		CardID    string `json:"card_id"`
		StudentID string `json:"student_id"`
		Matched   bool   `json:"matched"`
	}
	ndef := "d101105402656e73747564656e743f69643d3432" // text record "student?id=42"
	tests := []struct {
		name string
		args []string
		want scanned
	}{
		{name: "uri", args: []string{"--uri", "https://school.example/card?id=42"}, want: scanned{"42", "S3", true}},
		{name: "text", args: []string{"--text", "id=42"}, want: scanned{"42", "S3", true}},
		{name: "ndef", args: []string{"--ndef", ndef}, want: scanned{"42", "S3", true}},
		{name: "hardware id", args: []string{"--id", "04A23BFF"}, want: scanned{"04a23bff", "S1", true}},
		{name: "unknown", args: []string{"--serial", "nope"}, want: scanned{CardID: "nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got scanned
			runJSON(t, cli, out, &got, append([]string{"scan", "--teacher", "T1"}, tt.args...)...)
			assert.Equal(t, tt.want, got)
		})
	}

	runTests(t, cli, []cliTest{
		{name: "no roster", args: []string{"scan", "--teacher", "T9", "--serial", "x"}, wantErr: tag.ErrNoRoster},
		{name: "bad hex", args: []string{"scan", "--teacher", "T1", "--id", "zz"},
			wantErrStr: "--id: encoding/hex: invalid byte: U+007A 'z'"},
		{name: "missing file", args: []string{"roster", "import", filepath.Join(t.TempDir(), "nope.yaml")},
			wantErr: os.ErrNotExist},
	})
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _, _ := newTestCLI(t)

	var got []string
	gooseRun := gooseRunFunc
	gooseRunFunc = func(_ context.Context, _ *sqlx.DB, engine, command string, args ...string) error {
		if command == "lol" {
			return errors.Errorf("%q: no such command", command)
		}
		got = append([]string{engine, command}, args...)
		return nil
	}
	defer func() { gooseRunFunc = gooseRun }()

	runTests(t, cli, []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: `"lol": no such command`},
		{name: "up-to", args: []string{"migrate", "up-to", "1"}},
	})
	assert.Equal(t, []string{"sqlite", "up-to", "1"}, got)
}
