package resilio

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"resilio-dashboard/internal/model"
)

func TestDoRejectsUnknownRoute(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("request must not reach the server: %s %s", r.Method, r.URL.Path)
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "token", 2*time.Second, false)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/v2/agents"},
		{http.MethodDelete, PathJobs},
		{http.MethodGet, "/api/v2/jobs/"},
		{http.MethodGet, "/api/v2/jobs/a/runs"},
		{http.MethodGet, "/api/v2/users"},
	} {
		_, err := client.do(context.Background(), tc.method, tc.path, nil)
		if err == nil || !strings.Contains(err.Error(), "not an allowed") {
			t.Fatalf("%s %s: expected allowlist error, got %v", tc.method, tc.path, err)
		}
	}
}

func TestGetJobsSendsBearerToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/v2/jobs" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Fatalf("missing bearer token, got %q", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"job-1"}]`))
	}))
	defer ts.Close()

	client := NewClient(ts.URL+"/", "secret", 2*time.Second, false)
	body, err := client.GetJobs(context.Background())
	if err != nil {
		t.Fatalf("GetJobs failed: %v", err)
	}
	if string(body) != `[{"id":"job-1"}]` {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestReadReturnsStatusError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("maintenance"))
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "token", 2*time.Second, false)
	_, err := client.GetInfo(context.Background())

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.Status != http.StatusServiceUnavailable || statusErr.Path != PathInfo {
		t.Fatalf("unexpected status error: %+v", statusErr)
	}
	if !strings.Contains(err.Error(), "maintenance") {
		t.Fatalf("expected body snippet in error, got %v", err)
	}
}

func TestCreateJobPostsDraftAndReturnsErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != PathJobs {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
			t.Fatalf("unexpected content type %q", r.Header.Get("Content-Type"))
		}
		raw, _ := io.ReadAll(r.Body)
		var draft model.CreateJobRequest
		if err := json.Unmarshal(raw, &draft); err != nil {
			t.Fatalf("invalid body: %v", err)
		}
		if draft.Name != "Nightly" || len(draft.Agents) != 1 || draft.Agents[0].ID != 7 {
			t.Fatalf("unexpected draft: %+v", draft)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"name taken"}`))
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "token", 2*time.Second, false)
	resp, err := client.CreateJob(context.Background(), model.CreateJobRequest{
		Name:   "Nightly",
		Type:   model.JobTypeSync,
		Agents: []model.JobAgent{{ID: 7, Permission: model.PermReadWrite, Path: model.JobPath{Linux: "/srv"}}},
	})
	if err != nil {
		t.Fatalf("CreateJob transport error: %v", err)
	}
	if resp.OK() || resp.Status != http.StatusConflict {
		t.Fatalf("expected 409 response, got %d", resp.Status)
	}
	if !strings.Contains(string(resp.Body), "name taken") {
		t.Fatalf("unexpected body %s", resp.Body)
	}
}

func TestDeleteJobEscapesID(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Fatalf("unexpected method %s", r.Method)
		}
		if r.URL.EscapedPath() != "/api/v2/jobs/job%201" {
			t.Fatalf("unexpected path %s", r.URL.EscapedPath())
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "token", 2*time.Second, false)
	resp, err := client.DeleteJob(context.Background(), "job 1")
	if err != nil {
		t.Fatalf("DeleteJob failed: %v", err)
	}
	if resp.Status != http.StatusNoContent || len(resp.Body) != 0 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestTransportErrorIsReturned(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := ts.URL
	ts.Close()

	client := NewClient(url, "token", time.Second, false)
	if _, err := client.GetAgents(context.Background()); err == nil {
		t.Fatalf("expected transport error")
	}
	if _, err := client.DeleteJob(context.Background(), "x"); err == nil {
		t.Fatalf("expected transport error on delete")
	}
}

func TestInsecureSkipVerifyReachesTLSServer(t *testing.T) {
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"version":"2.7.3"}`))
	}))
	defer ts.Close()

	if _, err := NewClient(ts.URL, "token", 2*time.Second, false).GetInfo(context.Background()); err == nil {
		t.Fatalf("expected certificate error with verification on")
	}
	if _, err := NewClient(ts.URL, "token", 2*time.Second, true).GetInfo(context.Background()); err != nil {
		t.Fatalf("expected success with verification off: %v", err)
	}
}
