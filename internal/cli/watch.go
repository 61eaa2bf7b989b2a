package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"resilio-dashboard/internal/cache"
	"resilio-dashboard/internal/model"
)

func newWatchCommand(dial dialer) *cobra.Command {
	watch := &cobra.Command{
		Use:   "watch",
		Short: "poll agents, jobs and info and print a summary line",
		Args:  requireArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			agentsEvery, _ := flags.GetDuration("agents-interval")
			jobsEvery, _ := flags.GetDuration("jobs-interval")
			infoEvery, _ := flags.GetDuration("info-interval")
			printEvery, _ := flags.GetDuration("print-interval")
			count, _ := flags.GetInt("count")
			if printEvery <= 0 {
				return &usageError{err: fmt.Errorf("--print-interval must be > 0")}
			}

			reads, err := cache.New(dial(cmd).CacheSpecs(agentsEvery, jobsEvery, infoEvery)...)
			if err != nil {
				return &usageError{err: err}
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			reads.Start(ctx)

			ticker := time.NewTicker(printEvery)
			defer ticker.Stop()
			for printed := 0; ; {
				if err := printSummary(cmd, reads); err != nil {
					return err
				}
				printed++
				if count > 0 && printed >= count {
					return nil
				}
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			}
		},
	}

	flags := watch.Flags()
	flags.Duration("agents-interval", 30*time.Second, "agent poll interval")
	flags.Duration("jobs-interval", 10*time.Second, "job poll interval")
	flags.Duration("info-interval", 60*time.Second, "info poll interval")
	flags.Duration("print-interval", 5*time.Second, "summary print interval")
	flags.Int("count", 0, "stop after this many summaries (0 runs until interrupted)")
	return watch
}

type watchLine struct {
	Time     time.Time         `json:"time"`
	Agents   model.AgentCounts `json:"agents"`
	Jobs     model.JobCounts   `json:"jobs"`
	Version  string            `json:"version,omitempty"`
	Uptime   int64             `json:"uptime"`
	Bytes    int64             `json:"bytesTransferred"`
	Stale    bool              `json:"stale"`
	LastErrs []string          `json:"errors,omitempty"`
}

func printSummary(cmd *cobra.Command, reads *cache.Cache) error {
	ctx := cmd.Context()
	line := watchLine{Time: time.Now().UTC()}

	record := func(snap cache.Snapshot, err error) {
		if err != nil {
			line.LastErrs = append(line.LastErrs, err.Error())
			line.Stale = true
			return
		}
		if snap.Stale {
			line.Stale = true
		}
		if snap.LastError != nil {
			line.LastErrs = append(line.LastErrs, snap.LastError.Error())
		}
	}

	snap, err := reads.Get(ctx, cache.Agents)
	record(snap, err)
	if agents, ok := snap.Value.([]model.Agent); ok {
		for _, a := range agents {
			line.Agents.Add(a.Status)
		}
	}

	snap, err = reads.Get(ctx, cache.Jobs)
	record(snap, err)
	if jobs, ok := snap.Value.([]model.Job); ok {
		for _, j := range jobs {
			line.Jobs.Add(j.Status)
			line.Bytes += j.BytesTransferred
		}
	}

	snap, err = reads.Get(ctx, cache.Info)
	record(snap, err)
	if info, ok := snap.Value.(model.SystemInfo); ok {
		line.Version = info.Version
		line.Uptime = info.Uptime
	}

	if jsonOutput(cmd) {
		return writeJSON(cmd, line)
	}

	stale := ""
	if line.Stale {
		stale = " [stale]"
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(),
		"%s  agents %d/%d online  jobs: %d running, %d queued, %d failed, %d completed  %s moved%s\n",
		line.Time.Format(time.TimeOnly),
		line.Agents.Online, line.Agents.Total,
		line.Jobs.Running, line.Jobs.Queued, line.Jobs.Failed, line.Jobs.Completed,
		humanize.Bytes(uint64(max(line.Bytes, 0))), stale,
	)
	return err
}
