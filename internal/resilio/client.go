// Package resilio is the REST client for the upstream sync-service
// management API.
package resilio

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"resilio-dashboard/internal/model"
	"resilio-dashboard/internal/telemetry"
)

const (
	PathAgents = "/api/v2/agents"
	PathInfo   = "/api/v2/info"
	PathJobs   = "/api/v2/jobs"
)

// JobPath returns the upstream path of a single job.
func JobPath(id string) string {
	return PathJobs + "/" + url.PathEscape(id)
}

type route struct {
	method string
	prefix string
	withID bool
}

var allowedRoutes = []route{
	{http.MethodGet, PathAgents, false},
	{http.MethodGet, PathInfo, false},
	{http.MethodGet, PathJobs, false},
	{http.MethodPost, PathJobs, false},
	{http.MethodGet, PathJobs + "/", true},
	{http.MethodDelete, PathJobs + "/", true},
}

func allowed(method, path string) bool {
	for _, r := range allowedRoutes {
		if r.method != method {
			continue
		}
		if !r.withID {
			if path == r.prefix {
				return true
			}
			continue
		}
		id, ok := strings.CutPrefix(path, r.prefix)
		if ok && id != "" && !strings.Contains(id, "/") {
			return true
		}
	}
	return false
}

// Response is a raw upstream answer.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

func (r Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// StatusError reports a non-2xx answer to a read.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   []byte
}

func (e *StatusError) Error() string {
	snippet := strings.TrimSpace(string(e.Body))
	if len(snippet) > 512 {
		snippet = snippet[:512]
	}
	return fmt.Sprintf("request %s %s failed with status %d: %s", e.Method, e.Path, e.Status, snippet)
}

// Client talks to the upstream API with bearer auth. It never retries.
type Client struct {
	baseURL string
	http    *resty.Client
}

func NewClient(baseURL, token string, timeout time.Duration, insecureSkipVerify bool) *Client {
	baseURL = strings.TrimRight(baseURL, "/")

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetRetryCount(0)

	if token != "" {
		client.SetAuthToken(token)
	}
	if insecureSkipVerify {
		client.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}

	return &Client{baseURL: baseURL, http: client}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) GetAgents(ctx context.Context) ([]byte, error) {
	return c.read(ctx, PathAgents)
}

func (c *Client) GetInfo(ctx context.Context) ([]byte, error) {
	return c.read(ctx, PathInfo)
}

func (c *Client) GetJobs(ctx context.Context) ([]byte, error) {
	return c.read(ctx, PathJobs)
}

func (c *Client) GetJob(ctx context.Context, id string) ([]byte, error) {
	return c.read(ctx, JobPath(id))
}

// CreateJob posts the draft. Any HTTP answer is returned as a Response;
// err is set only when no answer was received.
func (c *Client) CreateJob(ctx context.Context, req model.CreateJobRequest) (Response, error) {
	return c.do(ctx, http.MethodPost, PathJobs, req)
}

// DeleteJob has the same error contract as CreateJob.
func (c *Client) DeleteJob(ctx context.Context, id string) (Response, error) {
	return c.do(ctx, http.MethodDelete, JobPath(id), nil)
}

func (c *Client) read(ctx context.Context, path string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, &StatusError{Method: http.MethodGet, Path: path, Status: resp.Status, Body: resp.Body}
	}
	return resp.Body, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (Response, error) {
	if !allowed(method, path) {
		return Response{}, fmt.Errorf("%s %s is not an allowed upstream call", method, path)
	}

	ctx, span := telemetry.StartSpan(ctx, "upstream "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		),
	)
	defer span.End()

	carrier := http.Header{}
	telemetry.Inject(ctx, carrier)

	req := c.http.R().SetContext(ctx)
	for key := range carrier {
		req.SetHeader(key, carrier.Get(key))
	}
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport error")
		return Response{}, fmt.Errorf("request %s %s: %w", method, path, err)
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode()))
	if resp.StatusCode() >= 400 {
		span.SetStatus(codes.Error, resp.Status())
	}

	return Response{
		Status:      resp.StatusCode(),
		ContentType: resp.Header().Get("Content-Type"),
		Body:        resp.Body(),
	}, nil
}
