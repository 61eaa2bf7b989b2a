package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"resilio-dashboard/internal/cache"
	"resilio-dashboard/internal/logging"
	"resilio-dashboard/internal/model"
	"resilio-dashboard/internal/proxy"
)

type jobService interface {
	Job(ctx context.Context, id string) proxy.Result
	CreateJob(ctx context.Context, req model.CreateJobRequest) proxy.Result
	DeleteJob(ctx context.Context, id string) proxy.Result
	Mode() proxy.Mode
}

type readCache interface {
	Get(ctx context.Context, resource cache.Resource) (cache.Snapshot, error)
	Refresh(ctx context.Context) error
	Invalidate(resource cache.Resource)
	Ready() bool
	Status() []model.CacheStatus
}

type Options struct {
	Title      string
	MockForced bool
	Intervals  model.PollIntervals
}

// API hosts the dashboard endpoints. Reads come from the cache; job
// mutations go to the service and invalidate the jobs entry.
type API struct {
	jobs    jobService
	reads   readCache
	options Options
	now     func() time.Time
	mux     *http.ServeMux
	handler http.Handler
}

const maxBodyBytes = 1 << 20

func New(jobs jobService, reads readCache, options Options) *API {
	api := &API{
		jobs:    jobs,
		reads:   reads,
		options: options,
		now:     time.Now,
		mux:     http.NewServeMux(),
	}

	api.mux.HandleFunc("/agents", api.handleRead(cache.Agents))
	api.mux.HandleFunc("/info", api.handleRead(cache.Info))
	api.mux.HandleFunc("/jobs", api.handleJobs)
	api.mux.HandleFunc("/jobs/{id}", api.handleJob)
	api.mux.HandleFunc("/refresh", api.handleRefresh)
	api.mux.HandleFunc("/dashboard", api.handleDashboard)
	api.mux.HandleFunc("/healthz", api.handleHealthz)
	api.mux.HandleFunc("/readyz", api.handleReadyz)
	api.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, model.ErrorResponse{Error: "not found"})
	})
	api.handler = traced(api.mux)

	return api
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

func (a *API) handleRead(resource cache.Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		a.serveCached(w, r, resource)
	}
}

func (a *API) serveCached(w http.ResponseWriter, r *http.Request, resource cache.Resource) {
	snap, err := a.reads.Get(r.Context(), resource)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, model.ErrorResponse{
			Error:   "Failed to fetch " + string(resource),
			Details: err.Error(),
			Status:  http.StatusBadGateway,
		})
		return
	}

	result, ok := snap.Value.(proxy.Result)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, model.ErrorResponse{Error: "unexpected cache value"})
		return
	}
	if snap.Stale {
		w.Header().Set("X-Cache-Stale", "true")
	}
	if !snap.FetchedAt.IsZero() {
		w.Header().Set("X-Cache-Fetched-At", snap.FetchedAt.UTC().Format(time.RFC3339))
	}
	writeJSON(w, result.Status, result.Body)
}

func (a *API) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.serveCached(w, r, cache.Jobs)
	case http.MethodPost:
		a.createJob(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (a *API) createJob(w http.ResponseWriter, r *http.Request) {
	var req model.CreateJobRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{
			Error:   "Invalid request body",
			Details: err.Error(),
			Status:  http.StatusBadRequest,
		})
		return
	}

	result := a.jobs.CreateJob(r.Context(), req)
	if !result.Failed() {
		a.reads.Invalidate(cache.Jobs)
	}
	writeJSON(w, result.Status, result.Body)
}

func (a *API) handleJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	switch r.Method {
	case http.MethodGet:
		result := a.jobs.Job(r.Context(), id)
		writeJSON(w, result.Status, result.Body)
	case http.MethodDelete:
		result := a.jobs.DeleteJob(r.Context(), id)
		if !result.Failed() {
			a.reads.Invalidate(cache.Jobs)
		}
		writeJSON(w, result.Status, result.Body)
	default:
		methodNotAllowed(w)
	}
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	err := a.reads.Refresh(r.Context())
	body := refreshResponse{
		Data:   refreshData{Refreshed: []string{string(cache.Agents), string(cache.Jobs)}, Cache: a.reads.Status()},
		Method: http.MethodPost,
		Path:   "/refresh",
		Status: http.StatusOK,
	}
	if err != nil {
		logging.Warnf("manual refresh: %v", err)
		body.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, body)
}

func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	summary := model.DashboardSummary{
		Title:       a.options.Title,
		Mode:        string(a.jobs.Mode()),
		MockForced:  a.options.MockForced,
		GeneratedAt: a.now().UTC(),
		Intervals:   a.options.Intervals,
	}

	if snap, err := a.reads.Get(r.Context(), cache.Agents); err == nil {
		for _, status := range statuses(snap.Value, "agents") {
			summary.Agents.Add(model.AgentStatus(status))
		}
	}
	if snap, err := a.reads.Get(r.Context(), cache.Jobs); err == nil {
		for _, status := range statuses(snap.Value, "jobs") {
			summary.Jobs.Add(model.JobStatus(status))
		}
	}
	summary.Cache = a.reads.Status()

	writeJSON(w, http.StatusOK, model.Response{
		Data:   summary,
		Method: http.MethodGet,
		Path:   "/dashboard",
		Status: http.StatusOK,
	})
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (a *API) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if !a.reads.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]bool{"ready": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ready": true})
}

// statuses extracts data.<key>[].status from a cached read result,
// whichever concrete body type it carries.
func statuses(value any, key string) []string {
	result, ok := value.(proxy.Result)
	if !ok || result.Failed() {
		return nil
	}
	raw, err := json.Marshal(result.Body)
	if err != nil {
		return nil
	}

	var envelope struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil
	}
	var items []struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(envelope.Data[key], &items); err != nil {
		return nil
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Status)
	}
	return out
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type refreshData struct {
	Refreshed []string            `json:"refreshed"`
	Cache     []model.CacheStatus `json:"cache"`
}

type refreshResponse struct {
	Data   refreshData `json:"data"`
	Method string      `json:"method"`
	Path   string      `json:"path"`
	Status int         `json:"status"`
	Error  string      `json:"error,omitempty"`
}
