// Package cache keeps the last fetched agents, jobs and system info and
// re-fetches each on its own interval.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"resilio-dashboard/internal/logging"
	"resilio-dashboard/internal/model"
)

type Resource string

const (
	Agents Resource = "agents"
	Jobs   Resource = "jobs"
	Info   Resource = "info"
)

var ErrUnknownResource = errors.New("unknown cache resource")

// Source fetches a fresh value. A failed fetch may still return a
// placeholder value; it is served only until a fetch succeeds.
type Source func(ctx context.Context) (any, error)

type Spec struct {
	Resource Resource
	Interval time.Duration
	Source   Source
}

// Snapshot is a point-in-time copy of one entry.
type Snapshot struct {
	Resource  Resource
	Value     any
	FetchedAt time.Time
	Stale     bool
	LastError error
}

type entry struct {
	resource Resource
	interval time.Duration
	source   Source

	// fetchMu serializes fetches of this entry.
	fetchMu sync.Mutex

	mu         sync.RWMutex
	value      any
	hasValue   bool
	good       bool
	fetchedAt  time.Time
	valid      bool
	generation uint64
	lastErr    error
	cronID     cron.EntryID
}

type Cache struct {
	entries map[Resource]*entry
	order   []Resource
	now     func() time.Time

	mu        sync.Mutex
	scheduler *cron.Cron
	baseCtx   context.Context
}

func New(specs ...Spec) (*Cache, error) {
	c := &Cache{
		entries: make(map[Resource]*entry, len(specs)),
		now:     time.Now,
	}
	for _, spec := range specs {
		if spec.Interval <= 0 {
			return nil, fmt.Errorf("%s interval must be > 0", spec.Resource)
		}
		if spec.Source == nil {
			return nil, fmt.Errorf("%s has no source", spec.Resource)
		}
		if _, dup := c.entries[spec.Resource]; dup {
			return nil, fmt.Errorf("duplicate resource %s", spec.Resource)
		}
		c.entries[spec.Resource] = &entry{resource: spec.Resource, interval: spec.Interval, source: spec.Source}
		c.order = append(c.order, spec.Resource)
	}
	return c, nil
}

// Start fetches every resource once, then schedules periodic re-fetches
// until ctx is done.
func (c *Cache) Start(ctx context.Context) {
	c.mu.Lock()
	if c.scheduler != nil {
		c.mu.Unlock()
		return
	}
	c.baseCtx = ctx
	c.scheduler = cron.New()
	for _, resource := range c.order {
		c.scheduleLocked(c.entries[resource])
	}
	scheduler := c.scheduler
	c.mu.Unlock()

	for _, resource := range c.order {
		c.entries[resource].fetch(ctx, c.now, true)
	}

	scheduler.Start()
	go func() {
		<-ctx.Done()
		<-scheduler.Stop().Done()
	}()
}

func (c *Cache) scheduleLocked(e *entry) {
	if e.cronID != 0 {
		c.scheduler.Remove(e.cronID)
	}
	ctx := c.baseCtx
	id, err := c.scheduler.AddFunc(fmt.Sprintf("@every %s", e.interval), func() {
		e.fetch(ctx, c.now, true)
	})
	if err != nil {
		logging.Errorf("schedule %s refresh: %v", e.resource, err)
		return
	}
	e.cronID = id
}

// Get returns the cached value, fetching first when the entry is empty or
// invalidated.
func (c *Cache) Get(ctx context.Context, resource Resource) (Snapshot, error) {
	e, ok := c.entries[resource]
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrUnknownResource, resource)
	}

	if !e.isValid() {
		e.fetch(ctx, c.now, false)
	}

	snap := e.snapshot(c.now())
	if snap.Value == nil && snap.LastError != nil {
		return snap, snap.LastError
	}
	return snap, nil
}

// Refresh re-fetches agents and jobs now and restarts their schedules.
// System info keeps its own cadence.
func (c *Cache) Refresh(ctx context.Context) error {
	var errs []error
	for _, resource := range []Resource{Agents, Jobs} {
		e, ok := c.entries[resource]
		if !ok {
			continue
		}
		if err := e.fetch(ctx, c.now, true); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", resource, err))
		}

		c.mu.Lock()
		if c.scheduler != nil {
			c.scheduleLocked(e)
		}
		c.mu.Unlock()
	}
	return errors.Join(errs...)
}

// Invalidate marks one entry stale so the next Get re-fetches it.
func (c *Cache) Invalidate(resource Resource) {
	e, ok := c.entries[resource]
	if !ok {
		return
	}
	e.mu.Lock()
	e.valid = false
	e.generation++
	e.mu.Unlock()
}

// Ready reports whether every entry holds a value.
func (c *Cache) Ready() bool {
	for _, e := range c.entries {
		e.mu.RLock()
		has := e.hasValue
		e.mu.RUnlock()
		if !has {
			return false
		}
	}
	return true
}

// Status lists every entry in registration order.
func (c *Cache) Status() []model.CacheStatus {
	now := c.now()
	out := make([]model.CacheStatus, 0, len(c.order))
	for _, resource := range c.order {
		snap := c.entries[resource].snapshot(now)
		status := model.CacheStatus{Resource: string(resource), Stale: snap.Stale}
		if !snap.FetchedAt.IsZero() {
			fetchedAt := snap.FetchedAt.UTC()
			status.FetchedAt = &fetchedAt
		}
		if snap.LastError != nil {
			status.LastError = snap.LastError.Error()
		}
		out = append(out, status)
	}
	return out
}

func (e *entry) isValid() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.valid
}

// fetch calls the source and stores the outcome. Without force it returns
// early when another caller completed a fetch while this one waited. An
// invalidation that lands during the call leaves the entry invalid.
func (e *entry) fetch(ctx context.Context, now func() time.Time, force bool) error {
	e.fetchMu.Lock()
	defer e.fetchMu.Unlock()

	e.mu.RLock()
	generation := e.generation
	valid := e.valid
	e.mu.RUnlock()
	if valid && !force {
		return nil
	}

	value, err := e.source(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()

	if err != nil {
		logging.Warnf("refresh %s failed: %v", e.resource, err)
		e.lastErr = err
		if !e.good && value != nil {
			e.value = value
			e.hasValue = true
			e.fetchedAt = now()
		}
	} else {
		e.value = value
		e.hasValue = true
		e.good = true
		e.fetchedAt = now()
		e.lastErr = nil
	}
	// A failed fetch never validates the entry, so the next read retries
	// instead of serving data from before an invalidation.
	e.valid = err == nil && e.generation == generation
	return err
}

func (e *entry) snapshot(now time.Time) Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	snap := Snapshot{
		Resource:  e.resource,
		Value:     e.value,
		FetchedAt: e.fetchedAt,
		LastError: e.lastErr,
	}
	switch {
	case !e.valid, e.lastErr != nil, !e.good:
		snap.Stale = true
	case !e.fetchedAt.IsZero() && now.Sub(e.fetchedAt) > 2*e.interval:
		snap.Stale = true
	}
	return snap
}
