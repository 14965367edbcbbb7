package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go-presence/internal/agent/session"
	"go-presence/internal/domain"
)

// CurrentActivity is the decoded answer of the current-activity fetch.
type CurrentActivity struct {
	Type             domain.ActivityType
	StartTime        *time.Time
	ShouldBlock      bool
	TimeLimitMinutes *int
}

// StartedActivity is the decoded answer of a start/on-desk call.
type StartedActivity struct {
	Type             domain.ActivityType
	StartTime        time.Time
	TimeLimitMinutes *int
}

// Client is the activity API collaborator consumed by the presence store.
type Client interface {
	FetchCurrent(ctx context.Context) (CurrentActivity, error)
	StartActivity(ctx context.Context, t domain.ActivityType) (StartedActivity, error)
	GoOnDesk(ctx context.Context) (StartedActivity, error)
}

type httpClient struct {
	baseURL string
	http    *http.Client
	sess    session.Store
}

// NewHTTPClient builds the production client. Timeout behavior is owned
// by the injected http.Client; the presence layer adds none of its own.
func NewHTTPClient(baseURL string, hc *http.Client, sess session.Store) Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &httpClient{baseURL: baseURL, http: hc, sess: sess}
}

type activityPayload struct {
	Type      string `json:"type"`
	StartTime string `json:"startTime"`
}

type currentActivityBody struct {
	Success     bool             `json:"success"`
	Activity    *activityPayload `json:"activity"`
	ShouldBlock bool             `json:"shouldBlock"`
	TimeLimit   *int             `json:"timeLimit"`
}

type startActivityBody struct {
	Success   bool             `json:"success"`
	Activity  *activityPayload `json:"activity"`
	TimeLimit *int             `json:"timeLimit"`
}

func (c *httpClient) FetchCurrent(ctx context.Context) (CurrentActivity, error) {
	var body currentActivityBody
	if err := c.do(ctx, http.MethodGet, "/api/v1/activities/current", nil, &body); err != nil {
		return CurrentActivity{}, err
	}
	if !body.Success {
		return CurrentActivity{}, fmt.Errorf("current-activity request rejected")
	}

	out := CurrentActivity{
		Type:             domain.ActivityOnDesk,
		ShouldBlock:      body.ShouldBlock,
		TimeLimitMinutes: body.TimeLimit,
	}
	if body.Activity != nil {
		out.Type = domain.ActivityType(body.Activity.Type)
		if ts, err := time.Parse(time.RFC3339, body.Activity.StartTime); err == nil {
			out.StartTime = &ts
		}
	}
	return out, nil
}

func (c *httpClient) StartActivity(ctx context.Context, t domain.ActivityType) (StartedActivity, error) {
	req := map[string]string{"type": string(t)}
	var body startActivityBody
	if err := c.do(ctx, http.MethodPost, "/api/v1/activities/start", req, &body); err != nil {
		return StartedActivity{}, err
	}
	return decodeStarted(t, body)
}

func (c *httpClient) GoOnDesk(ctx context.Context) (StartedActivity, error) {
	var body startActivityBody
	if err := c.do(ctx, http.MethodPost, "/api/v1/activities/on-desk", nil, &body); err != nil {
		return StartedActivity{}, err
	}
	return decodeStarted(domain.ActivityOnDesk, body)
}

func decodeStarted(t domain.ActivityType, body startActivityBody) (StartedActivity, error) {
	if !body.Success || body.Activity == nil {
		return StartedActivity{}, fmt.Errorf("start-activity request rejected")
	}
	ts, err := time.Parse(time.RFC3339, body.Activity.StartTime)
	if err != nil {
		return StartedActivity{}, fmt.Errorf("malformed startTime %q: %w", body.Activity.StartTime, err)
	}
	return StartedActivity{
		Type:             t,
		StartTime:        ts,
		TimeLimitMinutes: body.TimeLimit,
	}, nil
}

func (c *httpClient) do(ctx context.Context, method, path string, in, out interface{}) error {
	var reqBody *bytes.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.sess.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("activity api returned %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
