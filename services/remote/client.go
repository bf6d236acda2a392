package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/rollcall/core"
	"github.com/trezcool/rollcall/core/attendance"
)

const maxBodySize = 4 << 20

// Error is a reply of the API that did not succeed.
type Error struct {
	Op         string
	StatusCode int
	Message    string
}

func (err *Error) Error() string {
	return fmt.Sprintf("%s: %s (status %d)", err.Op, err.Message, err.StatusCode)
}

// Client calls the remote attendance API.
type Client struct {
	baseURL string
	key     string
	timeout time.Duration
	http    *http.Client
	logger  core.Logger
}

var _ attendance.Remote = (*Client)(nil)

// NewClient does not check the configuration: a missing base URL or key is
// reported as a core.ConfigError by each call, before any network access.
func NewClient(conf core.APIConfig, logger core.Logger) *Client {
	timeout := conf.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(conf.BaseURL, "/"),
		key:     conf.Key,
		timeout: timeout,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (c *Client) SubmitAttendance(ctx context.Context, p attendance.Payload) (attendance.WriteResult, error) {
	return c.write(ctx, EndpointSubmit, p)
}

func (c *Client) UpdateAttendance(ctx context.Context, p attendance.Payload) (attendance.WriteResult, error) {
	return c.write(ctx, EndpointUpdate, p)
}

func (c *Client) write(ctx context.Context, endpoint string, p attendance.Payload) (attendance.WriteResult, error) {
	res, err := c.post(ctx, endpoint, NewWriteRequest(p))
	if err != nil {
		return attendance.WriteResult{}, err
	}
	return attendance.WriteResult{Message: res.Message, SavedCount: res.SavedCount}, nil
}

func (c *Client) GetClassAttendance(ctx context.Context, q attendance.Query) ([]attendance.Record, error) {
	res, err := c.post(ctx, EndpointGet, GetRequest{
		TeacherID:    q.TeacherID,
		Section:      q.Section,
		AssignmentID: q.AssignmentID,
	})
	if err != nil {
		return nil, err
	}

	var dtos []RecordDTO
	if len(res.Data) > 0 && string(res.Data) != "null" {
		if err := json.Unmarshal(res.Data, &dtos); err != nil {
			return nil, errors.Wrap(err, "decoding class attendance")
		}
	}
	records := make([]attendance.Record, 0, len(dtos))
	for _, dto := range dtos {
		records = append(records, dto.Record())
	}
	return records, nil
}

func (c *Client) endpointURL(endpoint string) (string, error) {
	if c.baseURL == "" {
		return "", core.NewConfigError("api.baseurl", "remote API base URL is not set")
	}
	if c.key == "" {
		return "", core.NewConfigError("api.key", "remote API key is not set")
	}
	u, err := url.Parse(c.baseURL + "/" + endpoint)
	if err != nil {
		return "", core.NewConfigError("api.baseurl", err.Error())
	}
	q := u.Query()
	q.Set(APIKeyParam, c.key)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) post(ctx context.Context, endpoint string, body interface{}) (Response, error) {
	target, err := c.endpointURL(endpoint)
	if err != nil {
		return Response{}, err
	}
	data, err := json.Marshal(body)
	if err != nil {
		return Response{}, errors.Wrapf(err, "encoding %s request", endpoint)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(data))
	if err != nil {
		return Response{}, errors.Wrapf(err, "building %s request", endpoint)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		// do not leak the key through the url in the error
		var uErr *url.Error
		if errors.As(err, &uErr) {
			err = uErr.Err
		}
		return Response{}, errors.Wrapf(err, "calling %s", endpoint)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return Response{}, errors.Wrapf(err, "reading %s response", endpoint)
	}
	c.logger.Debug("remote call", map[string]interface{}{
		"endpoint": endpoint, "status": resp.StatusCode, "took": time.Since(start).String(),
	})

	var res Response
	decodeErr := json.Unmarshal(raw, &res)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := res.Message
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return Response{}, &Error{Op: endpoint, StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return Response{}, errors.Wrapf(decodeErr, "decoding %s response", endpoint)
	}
	if !res.Success {
		msg := res.Message
		if msg == "" {
			msg = "request failed"
		}
		return Response{}, &Error{Op: endpoint, StatusCode: resp.StatusCode, Message: msg}
	}
	return res, nil
}
