package commands

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/leapstack-labs/leapclean/internal/cli/output"
	"github.com/leapstack-labs/leapclean/pkg/core"
	"github.com/spf13/cobra"
)

// RunInfo is the JSON form of a run.
type RunInfo struct {
	ID          string         `json:"id"`
	JobType     string         `json:"job_type"`
	Status      string         `json:"status"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Config      map[string]any `json:"config,omitempty"`
	Used        []string       `json:"used,omitempty"`
	Logged      []string       `json:"logged,omitempty"`
}

func newRunInfo(run *core.Run) RunInfo {
	return RunInfo{
		ID:          run.ID,
		JobType:     run.JobType,
		Status:      string(run.Status),
		StartedAt:   run.StartedAt,
		CompletedAt: run.CompletedAt,
		Config:      run.Config,
	}
}

// NewRunsCommand creates the runs command group.
func NewRunsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "runs",
		Aliases: []string{"run"},
		Short:   "Inspect recorded runs",
	}
	cmd.AddCommand(newRunsListCommand())
	cmd.AddCommand(newRunsShowCommand())
	return cmd
}

func newRunsListCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRunsList(cmd, limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")
	return cmd
}

func runRunsList(cmd *cobra.Command, limit int) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	runs, err := cmdCtx.Store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		infos := make([]RunInfo, 0, len(runs))
		for _, run := range runs {
			infos = append(infos, newRunInfo(run))
		}
		return r.JSON(infos)
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.ID,
			run.JobType,
			r.Styles().Status(string(run.Status)).Render(string(run.Status)),
			run.StartedAt.Local().Format(time.DateTime),
			formatDuration(run),
		})
	}
	r.Table([]string{"ID", "JOB TYPE", "STATUS", "STARTED", "DURATION"}, rows)
	return nil
}

func newRunsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a run with its configuration and artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunsShow(cmd, args[0])
		},
	}
}

func runRunsShow(cmd *cobra.Command, id string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	run, err := cmdCtx.Store.GetRun(ctx, id)
	if err != nil {
		return fmt.Errorf("run %s: %w", id, err)
	}
	links, err := cmdCtx.Store.RunArtifacts(ctx, id)
	if err != nil {
		return err
	}

	info := newRunInfo(run)
	for _, l := range links {
		switch l.Direction {
		case core.LinkUsed:
			info.Used = append(info.Used, l.Version.Ref())
		case core.LinkLogged:
			info.Logged = append(info.Logged, l.Version.Ref())
		}
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(info)
	}

	r.Header(1, "Run "+run.ID)
	r.KeyValue("Job type", run.JobType)
	r.KeyValue("Status", r.Styles().Status(info.Status).Render(info.Status))
	r.KeyValue("Started", run.StartedAt.Local().Format(time.DateTime))
	if run.CompletedAt != nil {
		r.KeyValue("Completed", run.CompletedAt.Local().Format(time.DateTime))
		r.KeyValue("Duration", formatDuration(run))
	}

	if len(run.Config) > 0 {
		r.Println("")
		r.Header(2, "Config")
		keys := make([]string, 0, len(run.Config))
		for k := range run.Config {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			r.KeyValue(k, fmt.Sprint(run.Config[k]))
		}
	}

	if len(links) > 0 {
		r.Println("")
		r.Header(2, "Artifacts")
		rows := make([][]string, 0, len(links))
		for _, l := range links {
			rows = append(rows, []string{
				string(l.Direction),
				l.Version.Ref(),
				l.Version.Type,
				strconv.FormatInt(l.Version.Size, 10),
			})
		}
		r.Table([]string{"DIRECTION", "REF", "TYPE", "SIZE"}, rows)
	}
	return nil
}

func formatDuration(run *core.Run) string {
	if run.CompletedAt == nil {
		return "-"
	}
	return run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
}
