package demo

import (
	"testing"
	"time"

	"resilio-dashboard/internal/model"
)

func TestLoadEmbeddedFixtures(t *testing.T) {
	d, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	agents := d.Agents(now)
	if len(agents) != 3 {
		t.Fatalf("expected 3 sample agents, got %d", len(agents))
	}
	if agents[0].ID != "1" || !agents[0].IsLocal {
		t.Fatalf("unexpected first agent: %+v", agents[0])
	}
	if !agents[2].LastSeen.Equal(now.Add(-time.Hour)) {
		t.Fatalf("expected offline agent seen an hour ago, got %s", agents[2].LastSeen)
	}

	jobs := d.Jobs(now)
	if len(jobs) != 4 {
		t.Fatalf("expected 4 sample jobs, got %d", len(jobs))
	}

	statuses := map[model.JobStatus]bool{}
	for _, job := range jobs {
		statuses[job.Status] = true
		if !job.Type.Valid() {
			t.Fatalf("job %s has invalid type %q", job.ID, job.Type)
		}
		if job.AgentName == "" {
			t.Fatalf("job %s has no agent name", job.ID)
		}
		if len(job.Agents) == 0 {
			t.Fatalf("job %s has no agent bindings", job.ID)
		}
	}
	for _, want := range []model.JobStatus{model.JobRunning, model.JobCompleted, model.JobFailed, model.JobQueued} {
		if !statuses[want] {
			t.Fatalf("expected a %s job in the sample set", want)
		}
	}

	if jobs[1].EndTime == nil || !jobs[1].EndTime.Equal(now.Add(-time.Hour)) {
		t.Fatalf("expected completed job to end an hour ago, got %v", jobs[1].EndTime)
	}
	if jobs[0].EndTime != nil {
		t.Fatalf("running job must not have an end time")
	}

	info := d.Info()
	if info.TotalAgents != 3 || info.Uptime != 86400 {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestJobsReturnsIndependentCopies(t *testing.T) {
	d := MustLoad()
	now := time.Now()

	first := d.Jobs(now)
	first[0].Agents[0].Permission = model.PermSelectiveRW
	first[0].Name = "changed"

	second := d.Jobs(now)
	if second[0].Name == "changed" || second[0].Agents[0].Permission == model.PermSelectiveRW {
		t.Fatalf("rendered jobs must not share state with the dataset")
	}
}

func TestAgentName(t *testing.T) {
	d := MustLoad()
	if name, ok := d.AgentName("2"); !ok || name != "Backup Server" {
		t.Fatalf("unexpected lookup result %q %v", name, ok)
	}
	if _, ok := d.AgentName("99"); ok {
		t.Fatalf("expected unknown agent lookup to fail")
	}
}

func TestParseRejectsBadFixtures(t *testing.T) {
	cases := map[string]string{
		"bad offset":   "agents:\n  - id: \"1\"\n    last_seen_ago: soon\n",
		"missing id":   "jobs:\n  - name: x\n    type: sync\n",
		"unknown type": "jobs:\n  - id: j\n    type: teleport\n",
		"duplicate":    "agents:\n  - id: \"1\"\n  - id: \"1\"\n",
	}
	for name, input := range cases {
		if _, err := Parse([]byte(input)); err == nil {
			t.Fatalf("%s: expected parse error", name)
		}
	}
}
