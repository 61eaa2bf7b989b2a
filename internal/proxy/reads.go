package proxy

import (
	"context"
	"errors"
	"net/http"
	"time"

	"resilio-dashboard/internal/logging"
	"resilio-dashboard/internal/model"
	"resilio-dashboard/internal/normalize"
	"resilio-dashboard/internal/resilio"
	"resilio-dashboard/internal/store"
)

func (s *Service) Agents(ctx context.Context) Result {
	return s.read(ctx, "agents", resilio.PathAgents,
		func(ctx context.Context, now time.Time) (any, error) {
			body, err := s.upstream.GetAgents(ctx)
			if err != nil {
				return nil, err
			}
			return normalize.Agents(body, now)
		},
		func(_ context.Context, now time.Time) (any, error) {
			return model.AgentList{Agents: s.fixtures.Agents(now)}, nil
		},
	)
}

func (s *Service) Jobs(ctx context.Context) Result {
	return s.read(ctx, "jobs", resilio.PathJobs,
		func(ctx context.Context, now time.Time) (any, error) {
			body, err := s.upstream.GetJobs(ctx)
			if err != nil {
				return nil, err
			}
			return normalize.Jobs(body, now)
		},
		func(ctx context.Context, _ time.Time) (any, error) {
			jobs, err := s.jobs.List(ctx)
			if err != nil {
				return nil, err
			}
			return model.JobList{Jobs: jobs}, nil
		},
	)
}

func (s *Service) Info(ctx context.Context) Result {
	return s.read(ctx, "info", resilio.PathInfo,
		func(ctx context.Context, now time.Time) (any, error) {
			body, err := s.upstream.GetInfo(ctx)
			if err != nil {
				return nil, err
			}
			return normalize.Info(body, now)
		},
		func(ctx context.Context, _ time.Time) (any, error) {
			info := s.fixtures.Info()
			jobs, err := s.jobs.List(ctx)
			if err != nil {
				return nil, err
			}
			info.ActiveJobs = 0
			for _, job := range jobs {
				if job.Active() {
					info.ActiveJobs++
				}
			}
			return info, nil
		},
	)
}

// Job looks up a single job.
func (s *Service) Job(ctx context.Context, id string) Result {
	path := resilio.JobPath(id)

	fromStore := func(ctx context.Context) Result {
		job, err := s.jobs.Get(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return errJobNotFound
		}
		if err != nil {
			return failure(http.StatusInternalServerError, "Failed to load job", err.Error())
		}
		return ok(http.MethodGet, path, model.JobResult{Job: job})
	}

	if s.mode == ModeMock {
		return fromStore(ctx)
	}

	body, err := s.upstream.GetJob(ctx, id)
	var job map[string]any
	if err == nil {
		job, err = normalize.Job(body, s.now())
	}
	if err == nil {
		return ok(http.MethodGet, path, map[string]any{"job": job})
	}

	var statusErr *resilio.StatusError
	if errors.As(err, &statusErr) && statusErr.Status == http.StatusNotFound {
		return errJobNotFound
	}
	if s.mode == ModeLive {
		logging.Errorf("upstream job %s failed: %v", id, err)
		return failure(http.StatusBadGateway, "Failed to fetch job", err.Error())
	}

	logging.Warnf("upstream job %s failed, answering from sample data: %v", id, err)
	result := fromStore(ctx)
	if resp, isResp := result.Body.(model.Response); isResp {
		resp.Source = SourceFallback
		result.Body = resp
	}
	return result
}

type loader func(ctx context.Context, now time.Time) (any, error)

func (s *Service) read(ctx context.Context, resource, path string, live, sample loader) Result {
	now := s.now()

	if s.mode == ModeMock {
		data, err := sample(ctx, now)
		if err != nil {
			return failure(http.StatusInternalServerError, "Failed to load "+resource, err.Error())
		}
		return ok(http.MethodGet, path, data)
	}

	data, err := live(ctx, now)
	if err == nil {
		return Result{Status: http.StatusOK, Body: withRequestInfo(data, path)}
	}

	if s.mode == ModeLive {
		logging.Errorf("upstream %s failed: %v", resource, err)
		return failure(http.StatusBadGateway, "Failed to fetch "+resource, err.Error())
	}

	logging.Warnf("upstream %s failed, answering from sample data: %v", resource, err)
	data, sampleErr := sample(ctx, now)
	if sampleErr != nil {
		return failure(http.StatusBadGateway, "Failed to fetch "+resource, err.Error())
	}
	result := ok(http.MethodGet, path, data)
	resp := result.Body.(model.Response)
	resp.Source = SourceFallback
	result.Body = resp
	return result
}

// withRequestInfo fills method, path and status into a normalized list
// envelope unless the upstream already set them. Record-shaped payloads
// are wrapped as data.
func withRequestInfo(data any, path string) any {
	env, isEnvelope := data.(normalize.Envelope)
	if !isEnvelope {
		return model.Response{Data: data, Method: http.MethodGet, Path: path, Status: http.StatusOK}
	}

	defaults := map[string]any{"method": http.MethodGet, "path": path, "status": http.StatusOK}
	for key, value := range defaults {
		if _, present := env[key]; !present {
			env[key] = value
		}
	}
	return env
}
