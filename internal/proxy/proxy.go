// Package proxy answers dashboard reads and job mutations from the upstream
// API, the sample dataset, or the mock job store, depending on the mode.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"resilio-dashboard/internal/demo"
	"resilio-dashboard/internal/model"
	"resilio-dashboard/internal/resilio"
	"resilio-dashboard/internal/store"
)

type Mode string

const (
	// ModeMock never contacts the upstream.
	ModeMock Mode = "mock"
	// ModeLive surfaces upstream read failures as 502.
	ModeLive Mode = "live"
	// ModeFallback answers failed reads from sample data.
	ModeFallback Mode = "fallback"
)

func ParseMode(value string) (Mode, error) {
	switch Mode(value) {
	case ModeMock, ModeLive, ModeFallback:
		return Mode(value), nil
	}
	return "", fmt.Errorf("unknown proxy mode %q", value)
}

const SourceFallback = "fallback"

// Upstream is the subset of the upstream client the proxy needs.
type Upstream interface {
	GetAgents(ctx context.Context) ([]byte, error)
	GetInfo(ctx context.Context) ([]byte, error)
	GetJobs(ctx context.Context) ([]byte, error)
	GetJob(ctx context.Context, id string) ([]byte, error)
	CreateJob(ctx context.Context, req model.CreateJobRequest) (resilio.Response, error)
	DeleteJob(ctx context.Context, id string) (resilio.Response, error)
}

// Result is an HTTP status plus a JSON-encodable body.
type Result struct {
	Status int
	Body   any
}

// Failed reports whether the result carries an error body.
func (r Result) Failed() bool {
	return r.Status >= 400
}

// Fallback reports whether the body was served from sample data after an
// upstream failure.
func (r Result) Fallback() bool {
	resp, ok := r.Body.(model.Response)
	return ok && resp.Source == SourceFallback
}

type Service struct {
	mode     Mode
	upstream Upstream
	jobs     store.JobStore
	fixtures *demo.Dataset
	now      func() time.Time
	newID    func() string
}

// New builds a Service. upstream may be nil only in mock mode.
func New(mode Mode, upstream Upstream, jobs store.JobStore, fixtures *demo.Dataset) (*Service, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}
	if mode != ModeMock && upstream == nil {
		return nil, fmt.Errorf("%s mode requires an upstream client", mode)
	}
	if jobs == nil || fixtures == nil {
		return nil, errors.New("job store and fixtures are required")
	}

	return &Service{
		mode:     mode,
		upstream: upstream,
		jobs:     jobs,
		fixtures: fixtures,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return "job-" + uuid.NewString() },
	}, nil
}

func (s *Service) Mode() Mode {
	return s.mode
}

func ok(method, path string, data any) Result {
	return Result{
		Status: http.StatusOK,
		Body:   model.Response{Data: data, Method: method, Path: path, Status: http.StatusOK},
	}
}

func failure(status int, message string, details any) Result {
	return Result{
		Status: status,
		Body:   model.ErrorResponse{Error: message, Details: details, Status: status},
	}
}

var errJobNotFound = failure(http.StatusNotFound, "Job not found", nil)
