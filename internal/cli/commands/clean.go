package commands

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/leapstack-labs/leapclean/internal/cleaning"
	"github.com/leapstack-labs/leapclean/internal/cli/output"
	"github.com/leapstack-labs/leapclean/internal/table"
	"github.com/spf13/cobra"
)

// CleanOptions are the pipeline parameters taken from the command line.
type CleanOptions struct {
	cleaning.Params
}

// cleanFlags lists the pipeline flags. All are required.
var cleanFlags = []string{
	"input_artifact", "output_artifact", "output_type",
	"output_description", "min_price", "max_price",
}

// AddCleanFlags registers the pipeline flags on cmd and marks them required.
func AddCleanFlags(cmd *cobra.Command, opts *CleanOptions) {
	f := cmd.Flags()
	f.StringVar(&opts.InputArtifact, "input_artifact", "", "Fully-qualified name for the input artifact")
	f.StringVar(&opts.OutputArtifact, "output_artifact", "", "Name for the output artifact")
	f.StringVar(&opts.OutputType, "output_type", "", "Type for the output artifact")
	f.StringVar(&opts.OutputDescription, "output_description", "", "Description for the output artifact")
	f.IntVar(&opts.MinPrice, "min_price", 0, "Minimum price to consider")
	f.IntVar(&opts.MaxPrice, "max_price", 0, "Maximum price to consider")

	for _, name := range cleanFlags {
		_ = cmd.MarkFlagRequired(name)
	}
}

// CleanResult is the JSON form of a completed cleaning run.
type CleanResult struct {
	Ref          string  `json:"ref"`
	RunID        string  `json:"run_id"`
	InputRows    int     `json:"input_rows"`
	OutputRows   int     `json:"output_rows"`
	DroppedRows  int     `json:"dropped_rows"`
	MissingDates int     `json:"missing_dates"`
	Digest       string  `json:"digest"`
	Seconds      float64 `json:"duration_seconds"`
}

// RunClean runs the cleaning pipeline with the loaded configuration.
func RunClean(cmd *cobra.Command, opts *CleanOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	cfg := cmdCtx.Cfg
	logger := cmdCtx.Logger

	engine, err := table.Open(ctx, cfg.DatabasePath, logger)
	if err != nil {
		return err
	}
	defer func() { _ = engine.Close() }()

	pipeline := cleaning.New(cleaning.Config{
		Store:   cmdCtx.Store,
		Tables:  engine,
		JobType: cfg.JobType,
		Logger:  logger,
	})

	res, err := pipeline.Run(ctx, opts.Params)
	if err != nil {
		return err
	}

	if cfg.MetricsFile != "" {
		m := cleaning.NewMetrics()
		m.Observe(res)
		if err := m.WriteFile(cfg.MetricsFile); err != nil {
			// The run is already finalized; a metrics failure does not undo it.
			logger.Warn("failed to write metrics", slog.String("path", cfg.MetricsFile), slog.Any("error", err))
		}
	}

	return renderClean(cmdCtx.Renderer, res)
}

func renderClean(r *output.Renderer, res *cleaning.Result) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(CleanResult{
			Ref:          res.Ref(),
			RunID:        res.Run.ID,
			InputRows:    res.InputRows,
			OutputRows:   res.OutputRows,
			DroppedRows:  res.DroppedRows(),
			MissingDates: res.MissingDates,
			Digest:       res.Output.Digest,
			Seconds:      res.Duration.Seconds(),
		})
	}

	r.Success(fmt.Sprintf("Logged %s", res.Ref()))
	r.KeyValue("Run", res.Run.ID)
	r.KeyValue("Rows in", strconv.Itoa(res.InputRows))
	r.KeyValue("Rows out", strconv.Itoa(res.OutputRows))
	r.KeyValue("Dropped", strconv.Itoa(res.DroppedRows()))
	r.KeyValue("Missing dates", strconv.Itoa(res.MissingDates))
	return nil
}
