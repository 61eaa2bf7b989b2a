// Package cli implements resilioctl, a command line client for the
// dashboard API.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"resilio-dashboard/internal/cache"
	"resilio-dashboard/internal/model"
)

const (
	ExitSuccess      = 0
	ExitRuntimeError = 1
	ExitInvalidUsage = 2
)

const defaultServer = "http://localhost:8080"

// Dashboard is the API the commands run against.
type Dashboard interface {
	Agents(ctx context.Context) ([]model.Agent, error)
	Jobs(ctx context.Context) ([]model.Job, error)
	Job(ctx context.Context, id string) (model.Job, error)
	Info(ctx context.Context) (model.SystemInfo, error)
	CreateJob(ctx context.Context, req model.CreateJobRequest) (model.Job, error)
	DeleteJob(ctx context.Context, id string) error
	Refresh(ctx context.Context) error
	CacheSpecs(agents, jobs, info time.Duration) []cache.Spec
}

// Connect builds a Dashboard for the --server and --timeout flags.
type Connect func(server string, timeout time.Duration) Dashboard

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context, args []string, connect Connect, out, errOut io.Writer) int {
	cmd := NewRootCommand(connect, out, errOut)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(errOut, "error:", err)
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			return ExitInvalidUsage
		}
		return ExitRuntimeError
	}
	return ExitSuccess
}

func NewRootCommand(connect Connect, out, errOut io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "resilioctl",
		Short:         "inspect and manage sync jobs through the dashboard API",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	server := os.Getenv("RESILIO_DASHBOARD_URL")
	if server == "" {
		server = defaultServer
	}
	root.PersistentFlags().String("server", server, "dashboard base URL")
	root.PersistentFlags().Duration("timeout", 10*time.Second, "request timeout")
	root.PersistentFlags().Bool("json", false, "print JSON instead of tables")

	dial := func(cmd *cobra.Command) Dashboard {
		server, _ := cmd.Flags().GetString("server")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		return connect(server, timeout)
	}

	root.AddCommand(
		newAgentsCommand(dial),
		newJobsCommand(dial),
		newInfoCommand(dial),
		newRefreshCommand(dial),
		newWatchCommand(dial),
	)
	return root
}

type usageError struct {
	err error
}

func (u *usageError) Error() string {
	if u.err == nil {
		return "invalid usage"
	}
	return u.err.Error()
}

func requireArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return &usageError{err: fmt.Errorf("requires exactly %d argument(s)", n)}
		}
		return nil
	}
}

func jsonOutput(cmd *cobra.Command) bool {
	enabled, _ := cmd.Flags().GetBool("json")
	return enabled
}

func writeJSON(cmd *cobra.Command, value any) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
