// Package client calls the dashboard's own HTTP API. The CLI uses it to
// list, create and delete jobs and to feed its read cache.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"resilio-dashboard/internal/cache"
	"resilio-dashboard/internal/model"
	"resilio-dashboard/internal/normalize"
)

// APIError is a non-2xx answer from the dashboard.
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
	}
	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+e.Fields[key])
	}
	return fmt.Sprintf("%s (status %d): %s", e.Message, e.Status, strings.Join(parts, "; "))
}

type Client struct {
	http *resty.Client
}

func New(server string, timeout time.Duration) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(server, "/")).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
	}
}

type envelope[T any] struct {
	Data   T      `json:"data"`
	Source string `json:"source"`
}

func (c *Client) Agents(ctx context.Context) ([]model.Agent, error) {
	var out envelope[model.AgentList]
	if err := c.call(ctx, http.MethodGet, "/agents", nil, &out); err != nil {
		return nil, err
	}
	return out.Data.Agents, nil
}

func (c *Client) Jobs(ctx context.Context) ([]model.Job, error) {
	var out envelope[model.JobList]
	if err := c.call(ctx, http.MethodGet, "/jobs", nil, &out); err != nil {
		return nil, err
	}
	return out.Data.Jobs, nil
}

func (c *Client) Info(ctx context.Context) (model.SystemInfo, error) {
	var out envelope[model.SystemInfo]
	if err := c.call(ctx, http.MethodGet, "/info", nil, &out); err != nil {
		return model.SystemInfo{}, err
	}
	return out.Data, nil
}

func (c *Client) Job(ctx context.Context, id string) (model.Job, error) {
	var out envelope[model.JobResult]
	if err := c.call(ctx, http.MethodGet, "/jobs/"+url.PathEscape(id), nil, &out); err != nil {
		return model.Job{}, err
	}
	return out.Data.Job, nil
}

// CreateJob submits a draft. It satisfies builder.Submitter.
func (c *Client) CreateJob(ctx context.Context, req model.CreateJobRequest) (model.Job, error) {
	var raw json.RawMessage
	if err := c.call(ctx, http.MethodPost, "/jobs", req, &raw); err != nil {
		return model.Job{}, err
	}

	// Upstream answers are passed through by the dashboard, so ids may be
	// numeric and the job may or may not be wrapped.
	if obj, err := normalize.Job(raw, time.Now()); err == nil {
		var job model.Job
		if data, err := json.Marshal(obj); err == nil && json.Unmarshal(data, &job) == nil && job.ID != "" {
			return job, nil
		}
	}
	// Upstream accepted the job but answered in a shape we cannot read.
	return model.Job{Name: req.Name, Status: model.JobQueued}, nil
}

func (c *Client) DeleteJob(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/jobs/"+url.PathEscape(id), nil, nil)
}

func (c *Client) Refresh(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/refresh", nil, nil)
}

func (c *Client) Dashboard(ctx context.Context) (model.DashboardSummary, error) {
	var out envelope[model.DashboardSummary]
	if err := c.call(ctx, http.MethodGet, "/dashboard", nil, &out); err != nil {
		return model.DashboardSummary{}, err
	}
	return out.Data, nil
}

// CacheSpecs feeds a client-side read cache from the dashboard API.
func (c *Client) CacheSpecs(agents, jobs, info time.Duration) []cache.Spec {
	return []cache.Spec{
		{Resource: cache.Agents, Interval: agents, Source: source(c.Agents)},
		{Resource: cache.Jobs, Interval: jobs, Source: source(c.Jobs)},
		{Resource: cache.Info, Interval: info, Source: source(c.Info)},
	}
}

func source[T any](fetch func(context.Context) (T, error)) cache.Source {
	return func(ctx context.Context) (any, error) {
		value, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		return value, nil
	}
}

func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	if resp.IsError() {
		apiErr := &APIError{Status: resp.StatusCode(), Message: resp.Status()}
		var payload model.ErrorResponse
		if json.Unmarshal(resp.Body(), &payload) == nil && payload.Error != "" {
			apiErr.Message = payload.Error
			apiErr.Fields = payload.Fields
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
