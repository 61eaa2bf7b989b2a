package model

import (
	"fmt"
	"sort"
	"strings"
)

// FieldErrors maps a field path (e.g. "agents[0].permission") to a message.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	keys := make([]string, 0, len(e))
	for key := range e {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+e[key])
	}
	return "invalid job request: " + strings.Join(parts, "; ")
}

// Normalize fills defaults the upstream API expects.
func (r *CreateJobRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
	if r.Type == "" {
		r.Type = JobTypeSync
	}
	if r.Groups == nil {
		r.Groups = []JobGroup{}
	}
	if r.Agents == nil {
		r.Agents = []JobAgent{}
	}
}

// Validate reports every problem with the draft. A job needs a name and at
// least one agent binding; group bindings are optional.
func (r CreateJobRequest) Validate() error {
	errs := FieldErrors{}

	if strings.TrimSpace(r.Name) == "" {
		errs["name"] = "Job name is required"
	}
	if r.Type != "" && !r.Type.Valid() {
		errs["type"] = fmt.Sprintf("unknown job type %q", r.Type)
	}

	if len(r.Agents) == 0 {
		errs["agents"] = "Please add at least one agent"
	}
	for i, agent := range r.Agents {
		validateBinding(errs, fmt.Sprintf("agents[%d]", i), agent.ID, agent.Permission, agent.Path, agent.Role)
	}
	for i, group := range r.Groups {
		validateBinding(errs, fmt.Sprintf("groups[%d]", i), group.ID, group.Permission, group.Path, group.Role)
	}

	if r.Scheduler != nil {
		validateScheduler(errs, *r.Scheduler)
	}
	for i, notification := range r.Notifications {
		validateNotification(errs, fmt.Sprintf("notifications[%d]", i), notification)
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func validateBinding(errs FieldErrors, prefix string, id int64, perm Permission, path JobPath, role Role) {
	if id <= 0 {
		errs[prefix+".id"] = "id must be positive"
	}
	if !perm.Valid() {
		errs[prefix+".permission"] = fmt.Sprintf("unknown permission %q", perm)
	}
	if path.Empty() {
		errs[prefix+".path"] = "a path or macro is required"
	} else if path.Macro != "" {
		if _, ok := pathMacros[path.Macro]; !ok {
			errs[prefix+".path.macro"] = fmt.Sprintf("unknown macro %q", path.Macro)
		}
	}
	if role != "" && !role.Valid() {
		errs[prefix+".role"] = fmt.Sprintf("unknown role %q", role)
	}
}

func validateScheduler(errs FieldErrors, s JobScheduler) {
	switch s.Type {
	case ScheduleOnce, ScheduleManually, ScheduleDaily:
	case ScheduleMinutes, ScheduleHourly:
		if s.Every <= 0 {
			errs["scheduler.every"] = fmt.Sprintf("%s schedule requires every > 0", s.Type)
		}
	case ScheduleWeekly:
		if len(s.Days) == 0 {
			errs["scheduler.days"] = "weekly schedule requires at least one day"
		}
		for _, day := range s.Days {
			if day < 0 || day > 6 {
				errs["scheduler.days"] = fmt.Sprintf("day %d is outside 0..6", day)
				break
			}
		}
	case ScheduleMonthly:
		for i, cfg := range s.Config {
			if !monthlyUnits[cfg.Unit] {
				errs[fmt.Sprintf("scheduler.config[%d].unit", i)] = fmt.Sprintf("unknown unit %q", cfg.Unit)
			}
			if cfg.Direction != "month_beginning" && cfg.Direction != "month_end" {
				errs[fmt.Sprintf("scheduler.config[%d].direction", i)] = fmt.Sprintf("unknown direction %q", cfg.Direction)
			}
		}
	default:
		errs["scheduler.type"] = fmt.Sprintf("unknown schedule type %q", s.Type)
	}
}

var monthlyUnits = map[string]bool{
	"day": true, "monday": true, "tuesday": true, "wednesday": true,
	"thursday": true, "friday": true, "saturday": true, "sunday": true,
}

func validateNotification(errs FieldErrors, prefix string, n JobNotification) {
	switch n.Trigger {
	case NotifyRunFinished, NotifyRunFailed, NotifyRunNotComplete, NotifyRunError:
	default:
		errs[prefix+".trigger"] = fmt.Sprintf("unknown trigger %q", n.Trigger)
	}
	if len(n.Destinations) == 0 {
		errs[prefix+".destinations"] = "at least one destination is required"
	}
}
