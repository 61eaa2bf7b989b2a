package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingSource struct {
	calls atomic.Int32
	err   error
}

func (s *countingSource) fetch(context.Context) (any, error) {
	n := s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return int(n), nil
}

func newTestCache(t *testing.T) (*Cache, map[Resource]*countingSource) {
	t.Helper()
	sources := map[Resource]*countingSource{Agents: {}, Jobs: {}, Info: {}}
	c, err := New(
		Spec{Resource: Agents, Interval: 30 * time.Second, Source: sources[Agents].fetch},
		Spec{Resource: Jobs, Interval: 10 * time.Second, Source: sources[Jobs].fetch},
		Spec{Resource: Info, Interval: 60 * time.Second, Source: sources[Info].fetch},
	)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return c, sources
}

func TestGetFetchesOnceUntilInvalidated(t *testing.T) {
	c, sources := newTestCache(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		snap, err := c.Get(ctx, Jobs)
		if err != nil {
			t.Fatalf("Get returned error: %v", err)
		}
		if snap.Value != 1 || snap.Stale {
			t.Fatalf("unexpected snapshot: %+v", snap)
		}
	}
	if got := sources[Jobs].calls.Load(); got != 1 {
		t.Fatalf("expected a single fetch, got %d", got)
	}

	c.Invalidate(Jobs)
	snap, _ := c.Get(ctx, Jobs)
	if snap.Value != 2 {
		t.Fatalf("expected refetch after invalidation, got %v", snap.Value)
	}
}

func TestJobMutationInvalidatesOnlyJobs(t *testing.T) {
	c, sources := newTestCache(t)
	ctx := context.Background()
	for _, r := range []Resource{Agents, Jobs, Info} {
		if _, err := c.Get(ctx, r); err != nil {
			t.Fatalf("Get %s: %v", r, err)
		}
	}

	c.Invalidate(Jobs)
	for _, r := range []Resource{Agents, Jobs, Info} {
		_, _ = c.Get(ctx, r)
	}

	if sources[Jobs].calls.Load() != 2 {
		t.Fatalf("expected jobs to be refetched")
	}
	if sources[Agents].calls.Load() != 1 || sources[Info].calls.Load() != 1 {
		t.Fatalf("agents and info must stay cached")
	}
}

func TestRefreshFetchesAgentsAndJobsButNotInfo(t *testing.T) {
	c, sources := newTestCache(t)
	ctx := context.Background()

	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}

	if sources[Agents].calls.Load() != 2 || sources[Jobs].calls.Load() != 2 {
		t.Fatalf("expected agents and jobs fetched on every refresh")
	}
	if sources[Info].calls.Load() != 0 {
		t.Fatalf("info must not be fetched by a manual refresh")
	}
}

func TestFailedFetchKeepsLastGoodValue(t *testing.T) {
	source := &countingSource{}
	c, err := New(Spec{Resource: Agents, Interval: time.Minute, Source: source.fetch})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := context.Background()

	if _, err := c.Get(ctx, Agents); err != nil {
		t.Fatalf("Get returned error: %v", err)
	}

	source.err = errors.New("upstream down")
	if err := c.Refresh(ctx); err == nil {
		t.Fatalf("expected refresh error")
	}

	snap, err := c.Get(ctx, Agents)
	if err != nil {
		t.Fatalf("Get with last good value returned error: %v", err)
	}
	if snap.Value != 1 || !snap.Stale || snap.LastError == nil {
		t.Fatalf("expected stale last good value with error, got %+v", snap)
	}

	status := c.Status()
	if len(status) != 1 || status[0].LastError != "upstream down" || !status[0].Stale {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestFailedFetchPlaceholderIsReplacedOnSuccess(t *testing.T) {
	fail := true
	c, err := New(Spec{Resource: Jobs, Interval: time.Minute, Source: func(context.Context) (any, error) {
		if fail {
			return "sample", errors.New("offline")
		}
		return "live", nil
	}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := context.Background()

	snap, err := c.Get(ctx, Jobs)
	if err != nil || snap.Value != "sample" || !snap.Stale {
		t.Fatalf("expected stale placeholder, got %+v err=%v", snap, err)
	}

	fail = false
	c.Invalidate(Jobs)
	snap, _ = c.Get(ctx, Jobs)
	if snap.Value != "live" || snap.Stale {
		t.Fatalf("expected live value, got %+v", snap)
	}
}

func TestFailedFetchAfterInvalidationIsRetriedOnNextGet(t *testing.T) {
	source := &countingSource{}
	c, err := New(Spec{Resource: Jobs, Interval: time.Minute, Source: source.fetch})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := context.Background()

	if snap, _ := c.Get(ctx, Jobs); snap.Value != 1 {
		t.Fatalf("expected first value, got %v", snap.Value)
	}

	c.Invalidate(Jobs)
	source.err = errors.New("upstream down")
	snap, err := c.Get(ctx, Jobs)
	if err != nil || snap.Value != 1 || !snap.Stale {
		t.Fatalf("expected stale last good value, got %+v err=%v", snap, err)
	}

	source.err = nil
	snap, _ = c.Get(ctx, Jobs)
	if snap.Value != 3 || snap.Stale {
		t.Fatalf("expected the failed fetch to be retried, got %+v", snap)
	}
	if got := source.calls.Load(); got != 3 {
		t.Fatalf("expected 3 fetches, got %d", got)
	}
}

func TestGetReturnsErrorWithoutAnyValue(t *testing.T) {
	source := &countingSource{err: errors.New("boom")}
	c, _ := New(Spec{Resource: Info, Interval: time.Minute, Source: source.fetch})

	if _, err := c.Get(context.Background(), Info); err == nil {
		t.Fatalf("expected error when nothing was ever fetched")
	}
	if c.Ready() {
		t.Fatalf("cache without values must not be ready")
	}
}

func TestFetchStraddlingInvalidationStaysInvalid(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32

	c, err := New(Spec{Resource: Jobs, Interval: time.Minute, Source: func(context.Context) (any, error) {
		n := calls.Add(1)
		if n == 1 {
			close(started)
			<-release
		}
		return int(n), nil
	}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.Get(ctx, Jobs)
	}()

	<-started
	c.Invalidate(Jobs)
	close(release)
	<-done

	snap, _ := c.Get(ctx, Jobs)
	if snap.Value != 2 {
		t.Fatalf("expected the straddling result to be refetched, got %v", snap.Value)
	}
}

func TestStartFetchesEveryResourceAndStops(t *testing.T) {
	c, sources := newTestCache(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c.Start(ctx)
	if !c.Ready() {
		t.Fatalf("expected cache ready after start")
	}
	for r, s := range sources {
		if s.calls.Load() != 1 {
			t.Fatalf("expected one initial fetch of %s, got %d", r, s.calls.Load())
		}
	}
}

func TestUnknownResourceAndBadSpecs(t *testing.T) {
	c, _ := newTestCache(t)
	if _, err := c.Get(context.Background(), "folders"); !errors.Is(err, ErrUnknownResource) {
		t.Fatalf("expected ErrUnknownResource, got %v", err)
	}

	noop := func(context.Context) (any, error) { return nil, nil }
	if _, err := New(Spec{Resource: Jobs, Interval: 0, Source: noop}); err == nil {
		t.Fatalf("expected error for zero interval")
	}
	if _, err := New(Spec{Resource: Jobs, Interval: time.Second}); err == nil {
		t.Fatalf("expected error for missing source")
	}
}
