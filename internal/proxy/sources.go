package proxy

import (
	"context"
	"errors"
	"time"

	"resilio-dashboard/internal/cache"
	"resilio-dashboard/internal/model"
)

// CacheSpecs binds the read operations to cache entries. Error and fallback
// results count as failed fetches so the cache keeps its last good value.
func (s *Service) CacheSpecs(agents, jobs, info time.Duration) []cache.Spec {
	return []cache.Spec{
		{Resource: cache.Agents, Interval: agents, Source: resultSource(s.Agents)},
		{Resource: cache.Jobs, Interval: jobs, Source: resultSource(s.Jobs)},
		{Resource: cache.Info, Interval: info, Source: resultSource(s.Info)},
	}
}

var errFallback = errors.New("upstream unavailable, serving sample data")

func resultSource(read func(context.Context) Result) cache.Source {
	return func(ctx context.Context) (any, error) {
		result := read(ctx)
		if result.Fallback() {
			return result, errFallback
		}
		if result.Failed() {
			if body, ok := result.Body.(model.ErrorResponse); ok {
				return result, errors.New(body.Error)
			}
			return result, errors.New("read failed")
		}
		return result, nil
	}
}
