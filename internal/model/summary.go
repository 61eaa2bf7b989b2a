package model

import "time"

// DashboardSummary backs the /dashboard endpoint.
type DashboardSummary struct {
	Title       string        `json:"title"`
	Mode        string        `json:"mode"`
	MockForced  bool          `json:"mockForced"`
	GeneratedAt time.Time     `json:"generatedAt"`
	Intervals   PollIntervals `json:"pollIntervals"`
	Agents      AgentCounts   `json:"agents"`
	Jobs        JobCounts     `json:"jobs"`
	Cache       []CacheStatus `json:"cache"`
}

// PollIntervals are in seconds.
type PollIntervals struct {
	Agents int `json:"agents"`
	Jobs   int `json:"jobs"`
	Info   int `json:"info"`
}

type AgentCounts struct {
	Total      int `json:"total"`
	Online     int `json:"online"`
	Offline    int `json:"offline"`
	Connecting int `json:"connecting"`
}

type JobCounts struct {
	Total     int `json:"total"`
	Running   int `json:"running"`
	Queued    int `json:"queued"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Paused    int `json:"paused"`
}

func (c *AgentCounts) Add(status AgentStatus) {
	c.Total++
	switch status {
	case AgentOnline:
		c.Online++
	case AgentOffline:
		c.Offline++
	case AgentConnecting:
		c.Connecting++
	}
}

func (c *JobCounts) Add(status JobStatus) {
	c.Total++
	switch status {
	case JobRunning:
		c.Running++
	case JobQueued:
		c.Queued++
	case JobCompleted:
		c.Completed++
	case JobFailed:
		c.Failed++
	case JobPaused:
		c.Paused++
	}
}

// CacheStatus describes one read-cache entry.
type CacheStatus struct {
	Resource  string     `json:"resource"`
	FetchedAt *time.Time `json:"fetchedAt,omitempty"`
	Stale     bool       `json:"stale"`
	LastError string     `json:"lastError,omitempty"`
}
