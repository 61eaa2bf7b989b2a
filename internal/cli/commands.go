package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"resilio-dashboard/internal/model"
)

type dialer func(cmd *cobra.Command) Dashboard

func newAgentsCommand(dial dialer) *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "list agents",
		Args:  requireArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			agents, err := dial(cmd).Agents(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return writeJSON(cmd, agents)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tOS\tADDRESS\tVERSION\tLAST SEEN")
			for _, a := range agents {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s:%d\t%s\t%s\n",
					a.ID, a.Name, a.Status, a.OS, a.IP, a.Port, a.Version, since(a.LastSeen))
			}
			return tw.Flush()
		},
	}
}

func newInfoCommand(dial dialer) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "show sync service information",
		Args:  requireArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			info, err := dial(cmd).Info(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return writeJSON(cmd, info)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Version:      %s\n", info.Version)
			if info.Build != "" {
				fmt.Fprintf(out, "Build:        %s\n", info.Build)
			}
			fmt.Fprintf(out, "OS:           %s\n", info.OS)
			fmt.Fprintf(out, "Uptime:       %s\n", (time.Duration(info.Uptime) * time.Second).String())
			fmt.Fprintf(out, "Agents:       %d\n", info.TotalAgents)
			fmt.Fprintf(out, "Active jobs:  %d\n", info.ActiveJobs)
			return nil
		},
	}
}

func newRefreshCommand(dial dialer) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "ask the dashboard to re-fetch agents and jobs now",
		Args:  requireArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := dial(cmd).Refresh(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "refreshed agents and jobs")
			return nil
		},
	}
}

func printJobs(cmd *cobra.Command, jobs []model.Job) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tSTATUS\tPROGRESS\tTRANSFERRED\tAGENT\tSTARTED")
	for _, j := range jobs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.0f%%\t%s\t%s\t%s\n",
			j.ID, j.Name, j.Type, j.Status, j.Progress, transferred(j), j.AgentName, since(j.StartTime))
	}
	return tw.Flush()
}

func printJob(cmd *cobra.Command, j model.Job) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:           %s\n", j.ID)
	fmt.Fprintf(out, "Name:         %s\n", j.Name)
	fmt.Fprintf(out, "Type:         %s\n", j.Type)
	if j.Description != "" {
		fmt.Fprintf(out, "Description:  %s\n", j.Description)
	}
	fmt.Fprintf(out, "Status:       %s (%.0f%%)\n", j.Status, j.Progress)
	if j.AgentName != "" || j.AgentID != "" {
		fmt.Fprintf(out, "Agent:        %s (%s)\n", j.AgentName, j.AgentID)
	}
	fmt.Fprintf(out, "Files:        %s / %s\n", humanize.Comma(j.FilesProcessed), humanize.Comma(j.TotalFiles))
	fmt.Fprintf(out, "Transferred:  %s\n", transferred(j))
	fmt.Fprintf(out, "Started:      %s\n", since(j.StartTime))
	if j.EndTime != nil {
		fmt.Fprintf(out, "Ended:        %s\n", since(*j.EndTime))
	}
	if j.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:        %s\n", j.ErrorMessage)
	}
	for _, a := range j.Agents {
		fmt.Fprintf(out, "  agent %d  %s  %s\n", a.ID, a.Permission, describePath(a.Path))
	}
	for _, g := range j.Groups {
		fmt.Fprintf(out, "  group %d  %s  %s\n", g.ID, g.Permission, describePath(g.Path))
	}
}

func transferred(j model.Job) string {
	if j.TotalBytes <= 0 {
		return humanize.Bytes(uint64(max(j.BytesTransferred, 0)))
	}
	return humanize.Bytes(uint64(max(j.BytesTransferred, 0))) + " / " + humanize.Bytes(uint64(j.TotalBytes))
}

func since(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

func describePath(p model.JobPath) string {
	var parts []string
	for _, field := range []struct{ name, value string }{
		{"macro", p.Macro},
		{"linux", p.Linux},
		{"win", p.Win},
		{"osx", p.OSX},
		{"android", p.Android},
		{"xbox", p.Xbox},
	} {
		if field.value != "" {
			parts = append(parts, field.name+"="+field.value)
		}
	}
	return strings.Join(parts, " ")
}
