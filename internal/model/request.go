package model

type JobType string

const (
	JobTypeDistribution   JobType = "distribution"
	JobTypeConsolidation  JobType = "consolidation"
	JobTypeScript         JobType = "script"
	JobTypeSync           JobType = "sync"
	JobTypeFileCaching    JobType = "file_caching"
	JobTypeHybridWork     JobType = "hybrid_work"
	JobTypeTieringArchive JobType = "storage_tiering_and_archival"
)

var jobTypes = map[JobType]struct{}{
	JobTypeDistribution:   {},
	JobTypeConsolidation:  {},
	JobTypeScript:         {},
	JobTypeSync:           {},
	JobTypeFileCaching:    {},
	JobTypeHybridWork:     {},
	JobTypeTieringArchive: {},
}

func (t JobType) Valid() bool {
	_, ok := jobTypes[t]
	return ok
}

type Permission string

const (
	PermReadOnly    Permission = "ro"
	PermReadWrite   Permission = "rw"
	PermSelectiveRO Permission = "sro"
	PermSelectiveRW Permission = "srw"
)

func (p Permission) Valid() bool {
	switch p {
	case PermReadOnly, PermReadWrite, PermSelectiveRO, PermSelectiveRW:
		return true
	}
	return false
}

type Role string

const (
	RoleRegular        Role = "regular"
	RolePrimaryStorage Role = "primary_storage"
	RoleCachingGateway Role = "caching_gateway"
	RoleEndUser        Role = "enduser"
)

func (r Role) Valid() bool {
	switch r {
	case RoleRegular, RolePrimaryStorage, RoleCachingGateway, RoleEndUser:
		return true
	}
	return false
}

var pathMacros = map[string]struct{}{
	"%FOLDERS_STORAGE%": {},
	"%HOME%":            {},
	"%USERPROFILE%":     {},
	"%DOWNLOADS%":       {},
	"%USERDEFINED%":     {},
	"%GETFILES%":        {},
}

// JobPath maps a binding to a location per platform, or to a macro.
type JobPath struct {
	Macro      string `json:"macro,omitempty"`
	Linux      string `json:"linux,omitempty"`
	LinuxCache string `json:"linux_cache,omitempty"`
	Win        string `json:"win,omitempty"`
	OSX        string `json:"osx,omitempty"`
	Android    string `json:"android,omitempty"`
	Xbox       string `json:"xbox,omitempty"`
}

func (p JobPath) Empty() bool {
	return p == JobPath{}
}

type JobGroup struct {
	ID             int64      `json:"id"`
	Path           JobPath    `json:"path"`
	Role           Role       `json:"role,omitempty"`
	FilePolicyID   *int64     `json:"file_policy_id,omitempty"`
	PriorityAgents *bool      `json:"priority_agents,omitempty"`
	LockServer     *bool      `json:"lock_server,omitempty"`
	Permission     Permission `json:"permission"`
}

type JobAgent struct {
	ID              int64      `json:"id"`
	Permission      Permission `json:"permission"`
	Path            JobPath    `json:"path"`
	StorageConfigID *int64     `json:"storage_config_id,omitempty"`
	Role            Role       `json:"role,omitempty"`
	FilePolicyID    *int64     `json:"file_policy_id,omitempty"`
	PriorityAgents  *bool      `json:"priority_agents,omitempty"`
	LockServer      *bool      `json:"lock_server,omitempty"`
}

// CreateJobRequest is the job draft submitted to the upstream API.
type CreateJobRequest struct {
	Name          string            `json:"name"`
	Type          JobType           `json:"type"`
	Description   string            `json:"description,omitempty"`
	Groups        []JobGroup        `json:"groups"`
	Agents        []JobAgent        `json:"agents"`
	Triggers      *JobTriggers      `json:"triggers,omitempty"`
	Script        *JobScript        `json:"script,omitempty"`
	Scheduler     *JobScheduler     `json:"scheduler,omitempty"`
	Settings      *JobSettings      `json:"settings,omitempty"`
	Notifications []JobNotification `json:"notifications,omitempty"`
}

type JobTriggers struct {
	PreIndexing  *JobCommand `json:"pre_indexing,omitempty"`
	PreMove      *JobCommand `json:"pre_move,omitempty"`
	PostDownload *JobCommand `json:"post_download,omitempty"`
	Complete     *JobCommand `json:"complete,omitempty"`
}

type JobCommand struct {
	Linux   *CommandDetails `json:"linux,omitempty"`
	Win     *CommandDetails `json:"win,omitempty"`
	OSX     *CommandDetails `json:"osx,omitempty"`
	Android *CommandDetails `json:"android,omitempty"`
	Xbox    *CommandDetails `json:"xbox,omitempty"`
}

type CommandDetails struct {
	Script string `json:"script"`
	Shell  string `json:"shell,omitempty"`
	Ext    string `json:"ext,omitempty"`
}

type JobScript struct {
	Linux *CommandDetails `json:"linux,omitempty"`
	Win   *CommandDetails `json:"win,omitempty"`
	OSX   *CommandDetails `json:"osx,omitempty"`
}

type ScheduleType string

const (
	ScheduleOnce     ScheduleType = "once"
	ScheduleManually ScheduleType = "manually"
	ScheduleMinutes  ScheduleType = "minutes"
	ScheduleHourly   ScheduleType = "hourly"
	ScheduleDaily    ScheduleType = "daily"
	ScheduleWeekly   ScheduleType = "weekly"
	ScheduleMonthly  ScheduleType = "monthly"
)

// JobScheduler is passed through to the upstream scheduler untouched.
// Time is either a single number of seconds since midnight or a list of them.
type JobScheduler struct {
	Type          ScheduleType    `json:"type"`
	Time          any             `json:"time,omitempty"`
	Every         int             `json:"every,omitempty"`
	Days          []int           `json:"days,omitempty"`
	Start         int64           `json:"start,omitempty"`
	Finish        int64           `json:"finish,omitempty"`
	SkipIfRunning *bool           `json:"skip_if_running,omitempty"`
	Config        []MonthlyConfig `json:"config,omitempty"`
}

type MonthlyConfig struct {
	Offset    int    `json:"offset"`
	Unit      string `json:"unit"`
	Direction string `json:"direction"`
	Time      int    `json:"time"`
}

type TimeRange struct {
	Max *int64 `json:"max,omitempty"`
	Min *int64 `json:"min,omitempty"`
}

type JobProfile struct {
	DeleteSyncedFiles    *bool      `json:"delete_synced_files,omitempty"`
	DeleteSyncedFilesTTL *int64     `json:"delete_synced_files_ttl,omitempty"`
	ArchiveBy            string     `json:"archive_by,omitempty"`
	FilesList            string     `json:"files_list,omitempty"`
	ModificationTime     *TimeRange `json:"modification_time,omitempty"`
	AccessTime           *TimeRange `json:"access_time,omitempty"`
	AWSS3StorageClass    string     `json:"aws_s3_storage_class,omitempty"`
	AWSS3RetrievalTier   string     `json:"aws_s3_retrieval_tier,omitempty"`
}

type JobSettings struct {
	Priority                       *int        `json:"priority,omitempty"`
	UseRAMOptimization             *bool       `json:"use_ram_optimization,omitempty"`
	ReferenceAgentID               *int64      `json:"reference_agent_id,omitempty"`
	ReferenceInstanceID            *int64      `json:"reference_instance_id,omitempty"`
	ReferenceInstanceType          string      `json:"reference_instance_type,omitempty"`
	Profile                        *JobProfile `json:"profile,omitempty"`
	DeleteSyncedFiles              *bool       `json:"delete_synced_files,omitempty"`
	DeleteSyncedFilesTTL           *int64      `json:"delete_synced_files_ttl,omitempty"`
	ArchiveBy                      string      `json:"archive_by,omitempty"`
	FilesList                      string      `json:"files_list,omitempty"`
	ModificationTime               *TimeRange  `json:"modification_time,omitempty"`
	AccessTime                     *TimeRange  `json:"access_time,omitempty"`
	AWSS3StorageClass              string      `json:"aws_s3_storage_class,omitempty"`
	AWSS3RetrievalTier             string      `json:"aws_s3_retrieval_tier,omitempty"`
	UseFileLocking                 *bool       `json:"use_file_locking,omitempty"`
	FileLocksTimeout               *int64      `json:"file_locks_timeout,omitempty"`
	FileLocksSyncInterval          *int64      `json:"file_locks_sync_interval,omitempty"`
	FileLocksIgnoreList            string      `json:"file_locks_ignore_list,omitempty"`
	FileLocksAllowedAccessNoServer string      `json:"file_locks_allowed_access_when_no_server,omitempty"`
	MapFolderToDriver              string      `json:"map_folder_to_driver,omitempty"`
	UseNewCipher                   *bool       `json:"use_new_cipher,omitempty"`
	PostCommandLocalTime           *int64      `json:"post_command_local_time,omitempty"`
	PreMoveCommandLocalTime        *int64      `json:"pre_move_command_local_time,omitempty"`
	ProfileID                      *int64      `json:"profile_id,omitempty"`
}

type NotificationTrigger string

const (
	NotifyRunFinished    NotificationTrigger = "JOB_RUN_FINISHED"
	NotifyRunFailed      NotificationTrigger = "JOB_RUN_FAILED"
	NotifyRunNotComplete NotificationTrigger = "JOB_RUN_NOT_COMPLETE"
	NotifyRunError       NotificationTrigger = "JOB_RUN_ERROR"
)

type JobNotification struct {
	Destinations []NotificationDestination `json:"destinations"`
	Trigger      NotificationTrigger       `json:"trigger"`
	Settings     NotificationSettings      `json:"settings"`
}

type NotificationDestination struct {
	Email     string `json:"email,omitempty"`
	UserID    *int64 `json:"user_id,omitempty"`
	WebHookID *int64 `json:"web_hook_id,omitempty"`
}

type NotificationSettings struct {
	ErrorCode                   string `json:"error_code,omitempty"`
	NotifyAfterErrorTimeout     *bool  `json:"notify_after_error_timeout,omitempty"`
	ErrorTimeout                *int64 `json:"error_timeout,omitempty"`
	NotifyOnErrorRemove         *bool  `json:"notify_on_error_remove,omitempty"`
	CompleteTimeout             *int64 `json:"complete_timeout,omitempty"`
	DontSendIfNoDataTransferred *bool  `json:"dont_send_if_no_data_transferred,omitempty"`
}
