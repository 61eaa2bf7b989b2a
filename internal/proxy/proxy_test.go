package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"resilio-dashboard/internal/demo"
	"resilio-dashboard/internal/model"
	"resilio-dashboard/internal/normalize"
	"resilio-dashboard/internal/resilio"
	"resilio-dashboard/internal/store"
)

type fakeUpstream struct {
	calls int

	agents, info, jobs, job []byte
	readErr                 error

	createResp resilio.Response
	deleteResp resilio.Response
	mutateErr  error
	created    []model.CreateJobRequest
}

func (f *fakeUpstream) get(body []byte) ([]byte, error) {
	f.calls++
	if f.readErr != nil {
		return nil, f.readErr
	}
	return body, nil
}

func (f *fakeUpstream) GetAgents(context.Context) ([]byte, error)      { return f.get(f.agents) }
func (f *fakeUpstream) GetInfo(context.Context) ([]byte, error)        { return f.get(f.info) }
func (f *fakeUpstream) GetJobs(context.Context) ([]byte, error)        { return f.get(f.jobs) }
func (f *fakeUpstream) GetJob(context.Context, string) ([]byte, error) { return f.get(f.job) }

func (f *fakeUpstream) CreateJob(_ context.Context, req model.CreateJobRequest) (resilio.Response, error) {
	f.calls++
	f.created = append(f.created, req)
	return f.createResp, f.mutateErr
}

func (f *fakeUpstream) DeleteJob(context.Context, string) (resilio.Response, error) {
	f.calls++
	return f.deleteResp, f.mutateErr
}

var fixedNow = time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC)

func newService(t *testing.T, mode Mode, upstream Upstream) (*Service, *store.MemoryStore) {
	t.Helper()
	fixtures := demo.MustLoad()
	jobs := store.NewMemoryStore(fixtures.Jobs(fixedNow))

	svc, err := New(mode, upstream, jobs, fixtures)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	svc.now = func() time.Time { return fixedNow }
	svc.newID = func() string { return "job-test" }
	return svc, jobs
}

func validDraft() model.CreateJobRequest {
	return model.CreateJobRequest{
		Name: "Nightly",
		Type: model.JobTypeSync,
		Agents: []model.JobAgent{
			{ID: 2, Permission: model.PermReadWrite, Path: model.JobPath{Linux: "/srv/nightly"}},
		},
	}
}

func TestNewRequiresUpstreamOutsideMockMode(t *testing.T) {
	fixtures := demo.MustLoad()
	if _, err := New(ModeLive, nil, store.NewMemoryStore(nil), fixtures); err == nil {
		t.Fatalf("expected error for live mode without upstream")
	}
	if _, err := New("sideways", nil, store.NewMemoryStore(nil), fixtures); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestMockCreateAppendsExactlyOneQueuedJob(t *testing.T) {
	svc, jobs := newService(t, ModeMock, nil)
	ctx := context.Background()
	before, _ := jobs.List(ctx)

	result := svc.CreateJob(ctx, validDraft())
	if result.Status != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %+v", result.Status, result.Body)
	}

	after, _ := jobs.List(ctx)
	if len(after) != len(before)+1 {
		t.Fatalf("expected exactly one job appended, %d -> %d", len(before), len(after))
	}
	created := after[len(after)-1]
	if created.ID != "job-test" || created.Status != model.JobQueued || created.Progress != 0 {
		t.Fatalf("unexpected created job: %+v", created)
	}
	if !created.StartTime.Equal(fixedNow) {
		t.Fatalf("expected start time now, got %s", created.StartTime)
	}
	if created.AgentID != "2" || created.AgentName != "Backup Server" {
		t.Fatalf("expected agent taken from first binding, got %s/%s", created.AgentID, created.AgentName)
	}

	resp := result.Body.(model.Response)
	if resp.Method != http.MethodPost || resp.Path != "/api/v2/jobs" || resp.Status != http.StatusCreated {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
}

func TestMockCreateUsesPlaceholderForUnknownAgent(t *testing.T) {
	svc, _ := newService(t, ModeMock, nil)
	draft := validDraft()
	draft.Agents[0].ID = 404

	result := svc.CreateJob(context.Background(), draft)
	job := result.Body.(model.Response).Data.(model.JobResult).Job
	if job.AgentName != "Mock Agent" {
		t.Fatalf("expected placeholder agent name, got %q", job.AgentName)
	}
}

func TestCreateWithEmptyNameNeverCallsUpstream(t *testing.T) {
	upstream := &fakeUpstream{}
	svc, _ := newService(t, ModeFallback, upstream)

	draft := validDraft()
	draft.Name = "   "
	result := svc.CreateJob(context.Background(), draft)

	if result.Status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", result.Status)
	}
	if upstream.calls != 0 {
		t.Fatalf("expected no upstream call, got %d", upstream.calls)
	}
	body := result.Body.(model.ErrorResponse)
	if body.Fields["name"] == "" {
		t.Fatalf("expected name field error, got %+v", body.Fields)
	}
}

func TestLiveCreateReportsUpstreamError(t *testing.T) {
	cases := []struct {
		name   string
		resp   resilio.Response
		status int
		want   string
	}{
		{"message", resilio.Response{Status: 409, Body: []byte(`{"message":"name taken","code":7}`)}, 409, "name taken"},
		{"error", resilio.Response{Status: 422, Body: []byte(`{"error":"bad path"}`)}, 422, "bad path"},
		{"json without message", resilio.Response{Status: 422, Body: []byte(`{"code":7}`)}, 422, "HTTP error! status: 422"},
		{"status text", resilio.Response{Status: 503, Body: []byte(`oops`)}, 503, "Service Unavailable"},
		{"empty body", resilio.Response{Status: 502}, 502, "Bad Gateway"},
		{"unknown status", resilio.Response{Status: 599}, 599, "HTTP error! status: 599"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, jobs := newService(t, ModeFallback, &fakeUpstream{createResp: tc.resp})
			before, _ := jobs.List(context.Background())

			result := svc.CreateJob(context.Background(), validDraft())
			if result.Status != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, result.Status)
			}
			body := result.Body.(model.ErrorResponse)
			if body.Error != tc.want || body.Status != tc.status {
				t.Fatalf("unexpected error body: %+v", body)
			}
			if _, decodeErr := decodeJSON(tc.resp.Body); decodeErr != nil && body.Details != nil {
				t.Fatalf("unparsable body should carry no details, got %#v", body.Details)
			}

			after, _ := jobs.List(context.Background())
			if len(after) != len(before) {
				t.Fatalf("upstream create failure must not touch the mock store")
			}
		})
	}
}

func TestLiveCreateTransportErrorIs500(t *testing.T) {
	svc, _ := newService(t, ModeLive, &fakeUpstream{mutateErr: errors.New("dial tcp: refused")})

	result := svc.CreateJob(context.Background(), validDraft())
	if result.Status != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", result.Status)
	}
	if result.Body.(model.ErrorResponse).Error != "dial tcp: refused" {
		t.Fatalf("unexpected body: %+v", result.Body)
	}
}

func TestLiveCreatePassesUpstreamJSONThrough(t *testing.T) {
	upstream := &fakeUpstream{createResp: resilio.Response{Status: 201, Body: []byte(`{"id":42}`)}}
	svc, _ := newService(t, ModeLive, upstream)

	result := svc.CreateJob(context.Background(), validDraft())
	if result.Status != http.StatusCreated {
		t.Fatalf("expected 201, got %d", result.Status)
	}
	body, isMap := result.Body.(map[string]any)
	if !isMap || body["id"] != json.Number("42") {
		t.Fatalf("unexpected body %#v", result.Body)
	}
	if len(upstream.created) != 1 || upstream.created[0].Name != "Nightly" {
		t.Fatalf("unexpected upstream draft: %+v", upstream.created)
	}
}

func TestMockDelete(t *testing.T) {
	svc, jobs := newService(t, ModeMock, nil)
	ctx := context.Background()

	missing := svc.DeleteJob(ctx, "nope")
	if missing.Status != http.StatusNotFound || missing.Body.(model.ErrorResponse).Error != "Job not found" {
		t.Fatalf("unexpected result for missing job: %+v", missing)
	}

	before, _ := jobs.List(ctx)
	result := svc.DeleteJob(ctx, "job-2")
	if result.Status != http.StatusOK {
		t.Fatalf("expected 200, got %d", result.Status)
	}
	removed := result.Body.(model.Response).Data.(model.JobResult).Job
	if removed.ID != "job-2" {
		t.Fatalf("expected removed job returned, got %+v", removed)
	}
	after, _ := jobs.List(ctx)
	if len(after) != len(before)-1 {
		t.Fatalf("expected exactly one entry removed")
	}
}

func TestLiveDeleteSynthesizesSuccess(t *testing.T) {
	cases := map[string]resilio.Response{
		"empty":        {Status: 204},
		"non-json":     {Status: 200, ContentType: "text/plain", Body: []byte("ok")},
		"invalid json": {Status: 200, ContentType: "application/json", Body: []byte("{oops")},
	}
	for name, resp := range cases {
		svc, _ := newService(t, ModeLive, &fakeUpstream{deleteResp: resp})
		result := svc.DeleteJob(context.Background(), "job-9")
		if result.Status != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", name, result.Status)
		}
		data := result.Body.(model.Response).Data
		if data != (model.DeleteResult{ID: "job-9", Deleted: true}) {
			t.Fatalf("%s: unexpected data %#v", name, data)
		}
	}

	svc, _ := newService(t, ModeLive, &fakeUpstream{deleteResp: resilio.Response{
		Status: 200, ContentType: "application/json; charset=utf-8", Body: []byte(`{"removed":true}`),
	}})
	result := svc.DeleteJob(context.Background(), "job-9")
	data, isMap := result.Body.(model.Response).Data.(map[string]any)
	if !isMap || data["removed"] != true {
		t.Fatalf("expected upstream JSON wrapped as data, got %#v", result.Body)
	}
}

func TestLiveDeleteFailures(t *testing.T) {
	for name, upstream := range map[string]*fakeUpstream{
		"status":    {deleteResp: resilio.Response{Status: 404}},
		"transport": {mutateErr: errors.New("timeout")},
	} {
		svc, _ := newService(t, ModeFallback, upstream)
		result := svc.DeleteJob(context.Background(), "job-1")
		if result.Status != http.StatusInternalServerError {
			t.Fatalf("%s: expected 500, got %d", name, result.Status)
		}
		if result.Body.(model.ErrorResponse).Error != "Failed to delete job" {
			t.Fatalf("%s: unexpected body %+v", name, result.Body)
		}
	}
}

func TestFallbackOnUpstreamFailure(t *testing.T) {
	upstream := &fakeUpstream{readErr: &resilio.StatusError{Method: "GET", Path: resilio.PathJobs, Status: 500}}
	svc, _ := newService(t, ModeFallback, upstream)

	result := svc.Jobs(context.Background())
	if result.Status != http.StatusOK || !result.Fallback() {
		t.Fatalf("expected fallback result, got %d %+v", result.Status, result.Body)
	}
	list := result.Body.(model.Response).Data.(model.JobList)
	if len(list.Jobs) != 4 {
		t.Fatalf("expected sample jobs, got %d", len(list.Jobs))
	}
}

func TestFallbackOnUnrecognizedShape(t *testing.T) {
	svc, _ := newService(t, ModeFallback, &fakeUpstream{agents: []byte(`"just a string"`)})

	result := svc.Agents(context.Background())
	if !result.Fallback() {
		t.Fatalf("expected fallback for unrecognized payload")
	}
}

func TestLiveModeReadFailureIs502(t *testing.T) {
	svc, _ := newService(t, ModeLive, &fakeUpstream{readErr: errors.New("connection refused")})

	for name, result := range map[string]Result{
		"agents": svc.Agents(context.Background()),
		"jobs":   svc.Jobs(context.Background()),
		"info":   svc.Info(context.Background()),
	} {
		if result.Status != http.StatusBadGateway || result.Fallback() {
			t.Fatalf("%s: expected 502 without fallback, got %d", name, result.Status)
		}
	}
}

func TestLiveJobsAreNormalized(t *testing.T) {
	upstream := &fakeUpstream{jobs: []byte(`[{"id":"a","startTime":1700000000,"totalBytes":1700000000}]`)}
	svc, _ := newService(t, ModeLive, upstream)

	result := svc.Jobs(context.Background())
	env, isEnvelope := result.Body.(normalize.Envelope)
	if !isEnvelope {
		t.Fatalf("expected normalized envelope, got %T", result.Body)
	}
	if env["path"] != "/api/v2/jobs" || env["method"] != http.MethodGet || env["status"] != http.StatusOK {
		t.Fatalf("expected request info in envelope, got %#v", env)
	}
	job := env["data"].(map[string]any)["jobs"].([]any)[0].(map[string]any)
	if job["startTime"] != "2023-11-14T22:13:20Z" {
		t.Fatalf("unexpected startTime %v", job["startTime"])
	}
	if job["totalBytes"] != json.Number("1700000000") {
		t.Fatalf("non-timestamp field changed: %v", job["totalBytes"])
	}
}

func TestMockInfoCountsActiveJobs(t *testing.T) {
	svc, _ := newService(t, ModeMock, nil)
	info := svc.Info(context.Background()).Body.(model.Response).Data.(model.SystemInfo)
	if info.ActiveJobs != 2 {
		t.Fatalf("expected 2 active sample jobs, got %d", info.ActiveJobs)
	}
}

func TestJobLookup(t *testing.T) {
	svc, _ := newService(t, ModeMock, nil)
	if r := svc.Job(context.Background(), "job-1"); r.Status != http.StatusOK {
		t.Fatalf("expected 200 for sample job, got %d", r.Status)
	}
	if r := svc.Job(context.Background(), "missing"); r.Status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", r.Status)
	}

	live, _ := newService(t, ModeLive, &fakeUpstream{readErr: &resilio.StatusError{Status: 404}})
	if r := live.Job(context.Background(), "x"); r.Status != http.StatusNotFound {
		t.Fatalf("expected upstream 404 to map to 404, got %d", r.Status)
	}

	wrapped, _ := newService(t, ModeLive, &fakeUpstream{job: []byte(`{"data":{"job":{"id":"x","endTime":1700000000}}}`)})
	r := wrapped.Job(context.Background(), "x")
	job := r.Body.(model.Response).Data.(map[string]any)["job"].(map[string]any)
	if job["endTime"] != "2023-11-14T22:13:20Z" {
		t.Fatalf("unexpected job %#v", job)
	}
}

func TestCacheSpecsTreatFallbackAsFailure(t *testing.T) {
	svc, _ := newService(t, ModeFallback, &fakeUpstream{readErr: errors.New("down")})
	specs := svc.CacheSpecs(time.Second, time.Second, time.Second)
	if len(specs) != 3 {
		t.Fatalf("expected 3 specs, got %d", len(specs))
	}

	value, err := specs[1].Source(context.Background())
	if err == nil {
		t.Fatalf("expected fallback to be reported as a failed fetch")
	}
	if result, ok := value.(Result); !ok || !result.Fallback() {
		t.Fatalf("expected fallback result as placeholder, got %#v", value)
	}

	mock, _ := newService(t, ModeMock, nil)
	if _, err := mock.CacheSpecs(time.Second, time.Second, time.Second)[0].Source(context.Background()); err != nil {
		t.Fatalf("mock reads must succeed: %v", err)
	}
}
