// Package builder holds a job draft while it is being edited and submits
// it once it validates.
package builder

import (
	"context"
	"errors"
	"sync"

	"resilio-dashboard/internal/cache"
	"resilio-dashboard/internal/model"
)

type State string

const (
	StateEmpty      State = "empty"
	StateEditing    State = "editing"
	StateValidating State = "validating"
	StateSubmitting State = "submitting"
	StateSuccess    State = "success"
	StateError      State = "error"
)

var (
	ErrNoSelection = errors.New("nothing selected to add")
	ErrBusy        = errors.New("a submission is already in progress")
)

type Submitter interface {
	CreateJob(ctx context.Context, req model.CreateJobRequest) (model.Job, error)
}

type Invalidator interface {
	Invalidate(resource cache.Resource)
}

// Selection is a staged binding: the picked id plus the permission and path
// it will be bound with.
type Selection struct {
	ID         int64
	Permission model.Permission
	Path       model.JobPath
}

type Builder struct {
	submitter   Submitter
	invalidator Invalidator

	mu     sync.Mutex
	state  State
	draft  model.CreateJobRequest
	group  *Selection
	agent  *Selection
	fields model.FieldErrors
	err    error
	result *model.Job
}

// New returns an empty builder. invalidator may be nil.
func New(submitter Submitter, invalidator Invalidator) *Builder {
	return &Builder{
		submitter:   submitter,
		invalidator: invalidator,
		state:       StateEmpty,
		draft:       emptyDraft(),
	}
}

func emptyDraft() model.CreateJobRequest {
	return model.CreateJobRequest{
		Type:   model.JobTypeSync,
		Groups: []model.JobGroup{},
		Agents: []model.JobAgent{},
	}
}

// edit applies fn to the draft and moves the builder back to editing.
func (b *Builder) edit(fn func(d *model.CreateJobRequest)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(&b.draft)
	if b.state != StateSubmitting {
		b.state = StateEditing
	}
}

func (b *Builder) SetName(name string) {
	b.edit(func(d *model.CreateJobRequest) { d.Name = name })
}

func (b *Builder) SetType(t model.JobType) {
	b.edit(func(d *model.CreateJobRequest) { d.Type = t })
}

func (b *Builder) SetDescription(description string) {
	b.edit(func(d *model.CreateJobRequest) { d.Description = description })
}

func (b *Builder) SetScheduler(s *model.JobScheduler) {
	b.edit(func(d *model.CreateJobRequest) { d.Scheduler = s })
}

func (b *Builder) SetTriggers(t *model.JobTriggers) {
	b.edit(func(d *model.CreateJobRequest) { d.Triggers = t })
}

func (b *Builder) SetScript(s *model.JobScript) {
	b.edit(func(d *model.CreateJobRequest) { d.Script = s })
}

func (b *Builder) SetSettings(s *model.JobSettings) {
	b.edit(func(d *model.CreateJobRequest) { d.Settings = s })
}

func (b *Builder) AddNotification(n model.JobNotification) {
	b.edit(func(d *model.CreateJobRequest) { d.Notifications = append(d.Notifications, n) })
}

func (b *Builder) SelectGroup(sel Selection) {
	b.edit(func(*model.CreateJobRequest) { b.group = &sel })
}

func (b *Builder) SelectAgent(sel Selection) {
	b.edit(func(*model.CreateJobRequest) { b.agent = &sel })
}

func (b *Builder) CanAddGroup() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.group != nil && b.group.ID != 0
}

func (b *Builder) CanAddAgent() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.agent != nil && b.agent.ID != 0
}

// AddGroup binds the staged group selection and clears it. Binding an id
// that is already bound replaces the earlier binding.
func (b *Builder) AddGroup() error {
	if !b.CanAddGroup() {
		return ErrNoSelection
	}
	b.mu.Lock()
	sel := *b.group
	b.group = nil
	b.mu.Unlock()

	b.edit(func(d *model.CreateJobRequest) {
		binding := model.JobGroup{ID: sel.ID, Permission: sel.Permission, Path: sel.Path}
		for i := range d.Groups {
			if d.Groups[i].ID == sel.ID {
				d.Groups[i] = binding
				return
			}
		}
		d.Groups = append(d.Groups, binding)
	})
	return nil
}

// AddAgent is AddGroup for agents.
func (b *Builder) AddAgent() error {
	if !b.CanAddAgent() {
		return ErrNoSelection
	}
	b.mu.Lock()
	sel := *b.agent
	b.agent = nil
	b.mu.Unlock()

	b.edit(func(d *model.CreateJobRequest) {
		binding := model.JobAgent{ID: sel.ID, Permission: sel.Permission, Path: sel.Path}
		for i := range d.Agents {
			if d.Agents[i].ID == sel.ID {
				d.Agents[i] = binding
				return
			}
		}
		d.Agents = append(d.Agents, binding)
	})
	return nil
}

func (b *Builder) RemoveGroup(id int64) bool {
	removed := false
	b.edit(func(d *model.CreateJobRequest) {
		for i := range d.Groups {
			if d.Groups[i].ID == id {
				d.Groups = append(d.Groups[:i:i], d.Groups[i+1:]...)
				removed = true
				return
			}
		}
	})
	return removed
}

func (b *Builder) RemoveAgent(id int64) bool {
	removed := false
	b.edit(func(d *model.CreateJobRequest) {
		for i := range d.Agents {
			if d.Agents[i].ID == id {
				d.Agents = append(d.Agents[:i:i], d.Agents[i+1:]...)
				removed = true
				return
			}
		}
	})
	return removed
}

// Submit validates the draft and, when valid, hands it to the submitter.
// Field errors return the builder to editing without a submit. A failed
// submit keeps the draft; nothing is retried.
func (b *Builder) Submit(ctx context.Context) error {
	b.mu.Lock()
	if b.state == StateSubmitting {
		b.mu.Unlock()
		return ErrBusy
	}

	b.state = StateValidating
	b.err = nil
	b.result = nil
	req := cloneDraft(b.draft)
	req.Normalize()
	if err := req.Validate(); err != nil {
		b.state = StateEditing
		var fields model.FieldErrors
		if errors.As(err, &fields) {
			b.fields = fields
		}
		b.mu.Unlock()
		return err
	}
	b.fields = nil
	b.state = StateSubmitting
	b.mu.Unlock()

	job, err := b.submitter.CreateJob(ctx, req)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.state = StateError
		b.err = err
		return err
	}

	b.state = StateSuccess
	b.result = &job
	b.draft = emptyDraft()
	b.group = nil
	b.agent = nil
	if b.invalidator != nil {
		b.invalidator.Invalidate(cache.Jobs)
	}
	return nil
}

// Reset discards the draft and any outcome.
func (b *Builder) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateEmpty
	b.draft = emptyDraft()
	b.group = nil
	b.agent = nil
	b.fields = nil
	b.err = nil
	b.result = nil
}

func (b *Builder) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Draft returns a copy of the current draft.
func (b *Builder) Draft() model.CreateJobRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return cloneDraft(b.draft)
}

func (b *Builder) FieldErrors() model.FieldErrors {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(model.FieldErrors, len(b.fields))
	for k, v := range b.fields {
		out[k] = v
	}
	return out
}

// Err is the last submission error, shown next to the form.
func (b *Builder) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Result is the job created by the last successful submit.
func (b *Builder) Result() (model.Job, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.result == nil {
		return model.Job{}, false
	}
	return *b.result, true
}

func cloneDraft(d model.CreateJobRequest) model.CreateJobRequest {
	d.Groups = append([]model.JobGroup{}, d.Groups...)
	d.Agents = append([]model.JobAgent{}, d.Agents...)
	d.Notifications = append([]model.JobNotification(nil), d.Notifications...)
	return d
}
