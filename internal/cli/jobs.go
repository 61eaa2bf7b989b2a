package cli

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"resilio-dashboard/internal/builder"
	"resilio-dashboard/internal/model"
)

func newJobsCommand(dial dialer) *cobra.Command {
	jobs := &cobra.Command{
		Use:   "jobs",
		Short: "manage sync jobs",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list jobs",
		Args:  requireArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := dial(cmd).Jobs(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return writeJSON(cmd, list)
			}
			return printJobs(cmd, list)
		},
	}

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "show one job",
		Args:  requireArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := dial(cmd).Job(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return writeJSON(cmd, job)
			}
			printJob(cmd, job)
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "delete a job",
		Args:  requireArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := dial(cmd).DeleteJob(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted job %s\n", args[0])
			return nil
		},
	}

	jobs.AddCommand(listCmd, getCmd, newCreateCommand(dial), deleteCmd)
	return jobs
}

func newCreateCommand(dial dialer) *cobra.Command {
	create := &cobra.Command{
		Use:   "create",
		Short: "create a job",
		Long: "Create a job. Bindings are ID:PERMISSION:PATH, for example 3:rw:/srv/data.\n" +
			"PATH may be a macro such as %HOME%; --os picks the platform field for literal paths.",
		Args: requireArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			name, _ := flags.GetString("name")
			jobType, _ := flags.GetString("type")
			description, _ := flags.GetString("description")
			agents, _ := flags.GetStringArray("agent")
			groups, _ := flags.GetStringArray("group")
			osName, _ := flags.GetString("os")
			schedule, _ := flags.GetString("schedule")
			every, _ := flags.GetInt("every")

			b := builder.New(dial(cmd), nil)
			b.SetName(name)
			b.SetType(model.JobType(jobType))
			b.SetDescription(description)
			if schedule != "" {
				b.SetScheduler(&model.JobScheduler{Type: model.ScheduleType(schedule), Every: every})
			}

			for _, raw := range agents {
				sel, err := parseBinding(raw, osName)
				if err != nil {
					return &usageError{err: fmt.Errorf("--agent %q: %w", raw, err)}
				}
				b.SelectAgent(sel)
				if err := b.AddAgent(); err != nil {
					return err
				}
			}
			for _, raw := range groups {
				sel, err := parseBinding(raw, osName)
				if err != nil {
					return &usageError{err: fmt.Errorf("--group %q: %w", raw, err)}
				}
				b.SelectGroup(sel)
				if err := b.AddGroup(); err != nil {
					return err
				}
			}

			if err := b.Submit(cmd.Context()); err != nil {
				var fields model.FieldErrors
				if errors.As(err, &fields) {
					printFieldErrors(cmd, fields)
					return &usageError{err: errors.New("job request is invalid")}
				}
				return err
			}

			job, _ := b.Result()
			if jsonOutput(cmd) {
				return writeJSON(cmd, job)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created job %s (%s, %s)\n", job.ID, job.Name, job.Status)
			return nil
		},
	}

	flags := create.Flags()
	flags.String("name", "", "job name")
	flags.String("type", string(model.JobTypeSync), "job type")
	flags.String("description", "", "job description")
	flags.StringArray("agent", nil, "agent binding ID:PERMISSION:PATH (repeatable)")
	flags.StringArray("group", nil, "group binding ID:PERMISSION:PATH (repeatable)")
	flags.String("os", "linux", "platform for literal paths: linux, win, osx, android, xbox")
	flags.String("schedule", "", "scheduler type: once, manually, minutes, hourly, daily, weekly, monthly")
	flags.Int("every", 0, "interval for minutes and hourly schedules")
	return create
}

// parseBinding reads ID:PERMISSION:PATH. The path keeps any further colons.
func parseBinding(raw, osName string) (builder.Selection, error) {
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) != 3 {
		return builder.Selection{}, errors.New("expected ID:PERMISSION:PATH")
	}

	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || id <= 0 {
		return builder.Selection{}, fmt.Errorf("invalid id %q", parts[0])
	}

	sel := builder.Selection{ID: id, Permission: model.Permission(parts[1])}
	path := parts[2]
	if strings.HasPrefix(path, "%") && strings.HasSuffix(path, "%") {
		sel.Path.Macro = path
		return sel, nil
	}

	switch osName {
	case "linux":
		sel.Path.Linux = path
	case "win":
		sel.Path.Win = path
	case "osx":
		sel.Path.OSX = path
	case "android":
		sel.Path.Android = path
	case "xbox":
		sel.Path.Xbox = path
	default:
		return builder.Selection{}, fmt.Errorf("unknown --os %q", osName)
	}
	return sel, nil
}

func printFieldErrors(cmd *cobra.Command, fields model.FieldErrors) {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", key, fields[key])
	}
}
