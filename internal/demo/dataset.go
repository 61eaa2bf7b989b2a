// Package demo holds the sample dataset served in mock mode and as the
// fallback when the upstream sync service cannot be reached.
package demo

import (
	_ "embed"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"resilio-dashboard/internal/model"
)

//go:embed fixtures.yaml
var fixturesYAML []byte

type agentFixture struct {
	model.Agent `yaml:",inline"`
	LastSeenAgo string `yaml:"last_seen_ago"`
}

type jobFixture struct {
	ID               string           `yaml:"id"`
	Name             string           `yaml:"name"`
	Type             model.JobType    `yaml:"type"`
	Description      string           `yaml:"description"`
	Status           model.JobStatus  `yaml:"status"`
	Progress         float64          `yaml:"progress"`
	StartedAgo       string           `yaml:"started_ago"`
	EndedAgo         string           `yaml:"ended_ago"`
	AgentID          string           `yaml:"agent_id"`
	FilesProcessed   int64            `yaml:"files_processed"`
	TotalFiles       int64            `yaml:"total_files"`
	BytesTransferred int64            `yaml:"bytes_transferred"`
	TotalBytes       int64            `yaml:"total_bytes"`
	ErrorMessage     string           `yaml:"error_message"`
	Groups           []model.JobGroup `yaml:"groups"`
	Agents           []model.JobAgent `yaml:"agents"`

	startOffset time.Duration
	endOffset   *time.Duration
}

type fixtureFile struct {
	Info   model.SystemInfo `yaml:"info"`
	Agents []agentFixture   `yaml:"agents"`
	Jobs   []jobFixture     `yaml:"jobs"`
}

// Dataset is an immutable set of sample agents, jobs and system info.
// Times are stored as offsets and rendered relative to a caller-supplied
// instant.
type Dataset struct {
	info      model.SystemInfo
	agents    []agentFixture
	lastSeen  []time.Duration
	jobs      []jobFixture
	agentName map[string]string
}

// Load parses the embedded fixtures.
func Load() (*Dataset, error) {
	return Parse(fixturesYAML)
}

// MustLoad is Load for package initialization in binaries and tests.
func MustLoad() *Dataset {
	d, err := Load()
	if err != nil {
		panic(err)
	}
	return d
}

// Parse builds a dataset from YAML in the fixtures.yaml layout.
func Parse(data []byte) (*Dataset, error) {
	var file fixtureFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode fixtures: %w", err)
	}

	d := &Dataset{
		info:      file.Info,
		agents:    file.Agents,
		lastSeen:  make([]time.Duration, len(file.Agents)),
		jobs:      file.Jobs,
		agentName: make(map[string]string, len(file.Agents)),
	}

	for i, agent := range file.Agents {
		if strings.TrimSpace(agent.ID) == "" {
			return nil, fmt.Errorf("fixture agent %d has no id", i)
		}
		if _, dup := d.agentName[agent.ID]; dup {
			return nil, fmt.Errorf("duplicate fixture agent id %q", agent.ID)
		}
		d.agentName[agent.ID] = agent.Name

		offset, err := parseOffset(agent.LastSeenAgo)
		if err != nil {
			return nil, fmt.Errorf("fixture agent %q: last_seen_ago: %w", agent.ID, err)
		}
		d.lastSeen[i] = offset
	}

	for i := range d.jobs {
		job := &d.jobs[i]
		if strings.TrimSpace(job.ID) == "" {
			return nil, fmt.Errorf("fixture job %d has no id", i)
		}
		if !job.Type.Valid() {
			return nil, fmt.Errorf("fixture job %q: unknown type %q", job.ID, job.Type)
		}

		start, err := parseOffset(job.StartedAgo)
		if err != nil {
			return nil, fmt.Errorf("fixture job %q: started_ago: %w", job.ID, err)
		}
		job.startOffset = start

		if job.EndedAgo != "" {
			end, err := parseOffset(job.EndedAgo)
			if err != nil {
				return nil, fmt.Errorf("fixture job %q: ended_ago: %w", job.ID, err)
			}
			job.endOffset = &end
		}
	}

	return d, nil
}

func parseOffset(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative offset %s", value)
	}
	return d, nil
}

// Agents renders the sample agents with lastSeen relative to now.
func (d *Dataset) Agents(now time.Time) []model.Agent {
	now = now.UTC()
	out := make([]model.Agent, 0, len(d.agents))
	for i, fixture := range d.agents {
		agent := fixture.Agent
		agent.LastSeen = now.Add(-d.lastSeen[i])
		out = append(out, agent)
	}
	return out
}

// Jobs renders the sample jobs with start and end times relative to now.
func (d *Dataset) Jobs(now time.Time) []model.Job {
	now = now.UTC()
	out := make([]model.Job, 0, len(d.jobs))
	for _, fixture := range d.jobs {
		job := model.Job{
			ID:               fixture.ID,
			Name:             fixture.Name,
			Type:             fixture.Type,
			Description:      fixture.Description,
			Status:           fixture.Status,
			Progress:         fixture.Progress,
			StartTime:        now.Add(-fixture.startOffset),
			AgentID:          fixture.AgentID,
			AgentName:        d.agentName[fixture.AgentID],
			FilesProcessed:   fixture.FilesProcessed,
			TotalFiles:       fixture.TotalFiles,
			BytesTransferred: fixture.BytesTransferred,
			TotalBytes:       fixture.TotalBytes,
			ErrorMessage:     fixture.ErrorMessage,
			Groups:           append([]model.JobGroup(nil), fixture.Groups...),
			Agents:           append([]model.JobAgent(nil), fixture.Agents...),
		}
		if fixture.endOffset != nil {
			end := now.Add(-*fixture.endOffset)
			job.EndTime = &end
		}
		out = append(out, job)
	}
	return out
}

// Info returns the sample system info.
func (d *Dataset) Info() model.SystemInfo {
	return d.info
}

// AgentName looks up a sample agent's display name.
func (d *Dataset) AgentName(id string) (string, bool) {
	name, ok := d.agentName[id]
	return name, ok
}
