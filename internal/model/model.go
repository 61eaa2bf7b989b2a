package model

import "time"

type AgentStatus string

const (
	AgentOnline     AgentStatus = "online"
	AgentOffline    AgentStatus = "offline"
	AgentConnecting AgentStatus = "connecting"
)

type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobPaused    JobStatus = "paused"
	JobQueued    JobStatus = "queued"
)

// Agent is a sync-service instance as reported by the upstream API.
// Upstream ids may be numeric; they are always carried as strings here.
type Agent struct {
	ID       string      `json:"id" yaml:"id"`
	Name     string      `json:"name" yaml:"name"`
	Status   AgentStatus `json:"status" yaml:"status"`
	LastSeen time.Time   `json:"lastSeen" yaml:"-"`
	Version  string      `json:"version" yaml:"version"`
	OS       string      `json:"os" yaml:"os"`
	IP       string      `json:"ip" yaml:"ip"`
	Port     int         `json:"port" yaml:"port"`
	IsLocal  bool        `json:"isLocal" yaml:"is_local"`
	Folders  int         `json:"folders" yaml:"folders"`
	Peers    int         `json:"peers" yaml:"peers"`
}

// Job is a unit of sync work tracked by status and progress.
type Job struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Type             JobType    `json:"type"`
	Description      string     `json:"description,omitempty"`
	Status           JobStatus  `json:"status"`
	Progress         float64    `json:"progress"`
	StartTime        time.Time  `json:"startTime"`
	EndTime          *time.Time `json:"endTime,omitempty"`
	AgentID          string     `json:"agentId"`
	AgentName        string     `json:"agentName"`
	FilesProcessed   int64      `json:"filesProcessed"`
	TotalFiles       int64      `json:"totalFiles"`
	BytesTransferred int64      `json:"bytesTransferred"`
	TotalBytes       int64      `json:"totalBytes"`
	ErrorMessage     string     `json:"errorMessage,omitempty"`
	Groups           []JobGroup `json:"groups,omitempty"`
	Agents           []JobAgent `json:"agents,omitempty"`
}

// Active reports whether the job still occupies an agent.
func (j Job) Active() bool {
	return j.Status == JobRunning || j.Status == JobQueued
}

type SystemInfo struct {
	Version     string `json:"version" yaml:"version"`
	OS          string `json:"os" yaml:"os"`
	Build       string `json:"build,omitempty" yaml:"build"`
	Uptime      int64  `json:"uptime" yaml:"uptime"`
	TotalAgents int    `json:"totalAgents" yaml:"total_agents"`
	ActiveJobs  int    `json:"activeJobs" yaml:"active_jobs"`
}

// Response is the envelope every dashboard endpoint answers with.
type Response struct {
	Data   any    `json:"data"`
	Method string `json:"method"`
	Path   string `json:"path"`
	Status int    `json:"status"`
	Source string `json:"source,omitempty"`
}

// ErrorResponse is returned for failed mutations and lookups.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details any               `json:"details,omitempty"`
	Status  int               `json:"status,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type AgentList struct {
	Agents []Agent `json:"agents"`
}

type JobList struct {
	Jobs []Job `json:"jobs"`
}

type JobResult struct {
	Job Job `json:"job"`
}

type DeleteResult struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}
