package echoapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/rollcall/services/logger"
	"github.com/trezcool/rollcall/services/remote"
)

const apiKey = "secret"

func newTestServer() Server {
	s := NewServer(&Options{APIKey: apiKey, DisableReqLogs: true, Logger: logsvc.NewConsoleLoggerMock()})
	s.AddAssignment("A100", "Grade 3 - A", "Math")
	return s
}

func call(t *testing.T, s Server, endpoint, key, body string) (int, remote.Response) {
	t.Helper()
	target := "/" + endpoint
	if key != "" {
		target += "?api_key=" + key
	}
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	var res remote.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res), rec.Body.String())
	return rec.Code, res
}

const writeBody = `{"assignment_id":"A100","teacher_id":"T1","date":"2024-03-04","attendance":[{"studentId":"S1","status":"present"}]}`

func TestServer(t *testing.T) {
	s := newTestServer()

	tests := []struct {
		name       string
		endpoint   string
		key        string
		body       string
		wantStatus int
		wantMsg    string
	}{
		{name: "missing key", endpoint: remote.EndpointSubmit, body: writeBody, wantStatus: http.StatusBadRequest},
		{name: "wrong key", endpoint: remote.EndpointSubmit, key: "nope", body: writeBody, wantStatus: http.StatusUnauthorized},
		{name: "update before submit", endpoint: remote.EndpointUpdate, key: apiKey, body: writeBody,
			wantStatus: http.StatusNotFound, wantMsg: msgMissingRecord},
		{name: "submit", endpoint: remote.EndpointSubmit, key: apiKey, body: writeBody, wantStatus: http.StatusCreated},
		{name: "submit twice", endpoint: remote.EndpointSubmit, key: apiKey, body: writeBody, wantStatus: http.StatusConflict},
		{name: "update", endpoint: remote.EndpointUpdate, key: apiKey, body: writeBody, wantStatus: http.StatusOK},
		{name: "invalid status", endpoint: remote.EndpointSubmit, key: apiKey,
			body:       `{"assignment_id":"A100","teacher_id":"T1","attendance":[{"studentId":"S1","status":"gone"}]}`,
			wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, res := call(t, s, tt.endpoint, tt.key, tt.body)
			assert.Equal(t, tt.wantStatus, code)
			assert.Equal(t, code < 300, res.Success)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, res.Message)
			}
		})
	}

	t.Run("list", func(t *testing.T) {
		code, res := call(t, s, remote.EndpointGet, apiKey, `{"teacher_id":"T1","section":"Grade 3 - A"}`)
		require.Equal(t, http.StatusOK, code)
		var recs []remote.RecordDTO
		require.NoError(t, json.Unmarshal(res.Data, &recs))
		require.Len(t, recs, 1)
		assert.Equal(t, "Grade 3 - A", recs[0].AssignedSection)
		assert.Equal(t, "Math", recs[0].Subject.String)
		assert.Equal(t, "2024-03-04", recs[0].DateLogged.Format("2006-01-02"))
	})

	t.Run("offline", func(t *testing.T) {
		s.SetOffline(true)
		defer s.SetOffline(false)
		code, res := call(t, s, remote.EndpointGet, apiKey, `{"teacher_id":"T1","section":"Grade 3 - A"}`)
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.False(t, res.Success)
	})
}
