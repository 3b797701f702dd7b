// Package cleaning implements the basic cleaning job: fetch a tabular
// artifact, drop price outliers, normalize review dates and publish the
// result as a new artifact.
package cleaning

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/leapstack-labs/leapclean/internal/artifact"
	"github.com/leapstack-labs/leapclean/internal/table"
	"github.com/leapstack-labs/leapclean/pkg/core"
)

// Required columns.
const (
	PriceColumn      = "price"
	LastReviewColumn = "last_review"
)

// DefaultJobType is the job type runs are recorded under.
const DefaultJobType = "basic_cleaning"

// Store is the artifact store the pipeline fetches from and publishes to.
type Store interface {
	BeginRun(ctx context.Context, jobType string, config map[string]any) (*core.Run, error)
	UseArtifact(ctx context.Context, run *core.Run, ref string) (string, error)
	LogArtifact(ctx context.Context, run *core.Run, a *artifact.Artifact) (*core.ArtifactVersion, error)
	FinishRun(ctx context.Context, run *core.Run) error
}

// TableIO reads and writes delimited files.
type TableIO interface {
	ReadDelimited(ctx context.Context, path string) (*table.Table, error)
	WriteDelimited(ctx context.Context, t *table.Table, path string) error
}

// Params are the parameters of one cleaning run. All are required.
type Params struct {
	InputArtifact     string
	OutputArtifact    string
	OutputType        string
	OutputDescription string
	MinPrice          int
	MaxPrice          int
}

// Validate checks the parameters before anything is fetched.
func (p Params) Validate() error {
	required := []struct{ flag, value string }{
		{"input_artifact", p.InputArtifact},
		{"output_artifact", p.OutputArtifact},
		{"output_type", p.OutputType},
		{"output_description", p.OutputDescription},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("%w: %s is required", core.ErrInvalidParams, r.flag)
		}
	}
	if err := core.ValidateArtifactName(p.ArtifactName()); err != nil {
		return fmt.Errorf("%w: output_artifact: %v", core.ErrInvalidParams, err)
	}
	if err := checkBounds(p.MinPrice, p.MaxPrice); err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidParams, err)
	}
	return nil
}

// ArtifactName is the name the output is published under: the base name
// of the local output file.
func (p Params) ArtifactName() string {
	return filepath.Base(p.OutputArtifact)
}

// Config returns the parameters as run configuration.
func (p Params) Config() map[string]any {
	return map[string]any{
		"input_artifact":     p.InputArtifact,
		"output_artifact":    p.OutputArtifact,
		"output_type":        p.OutputType,
		"output_description": p.OutputDescription,
		"min_price":          p.MinPrice,
		"max_price":          p.MaxPrice,
	}
}

// Result describes a completed run.
type Result struct {
	Run          *core.Run
	Output       *core.ArtifactVersion
	InputRows    int
	OutputRows   int
	MissingDates int
	Duration     time.Duration
}

// Ref is the reference of the published artifact.
func (r *Result) Ref() string {
	return r.Output.Ref()
}

// DroppedRows is the number of rows removed by the price filter.
func (r *Result) DroppedRows() int {
	return r.InputRows - r.OutputRows
}

// Config configures a Pipeline.
type Config struct {
	Store   Store
	Tables  TableIO
	JobType string
	Logger  *slog.Logger
}

// Pipeline runs the cleaning job.
type Pipeline struct {
	store   Store
	tables  TableIO
	jobType string
	logger  *slog.Logger
}

// New creates a pipeline.
func New(cfg Config) *Pipeline {
	jobType := cfg.JobType
	if jobType == "" {
		jobType = DefaultJobType
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{
		store:   cfg.Store,
		tables:  cfg.Tables,
		jobType: jobType,
		logger:  logger,
	}
}

// Run executes the job. Each step completes before the next starts and the
// first failure is returned as is: nothing is retried, the run is left
// unfinished and files already written stay on disk.
func (p *Pipeline) Run(ctx context.Context, params Params) (*Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	run, err := p.store.BeginRun(ctx, p.jobType, params.Config())
	if err != nil {
		return nil, err
	}
	logger := p.logger.With(slog.String("run_id", run.ID))

	logger.Info("locating and reading the artifact", slog.String("artifact", params.InputArtifact))
	inputPath, err := p.store.UseArtifact(ctx, run, params.InputArtifact)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", params.InputArtifact, err)
	}

	data, err := p.tables.ReadDelimited(ctx, inputPath)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", params.InputArtifact, err)
	}
	if err := data.Require(PriceColumn, LastReviewColumn); err != nil {
		return nil, fmt.Errorf("loading %s: %w: %w", params.InputArtifact, core.ErrDataFormat, err)
	}

	logger.Info("dropping the outliers and making other corrections",
		slog.Int("min_price", params.MinPrice),
		slog.Int("max_price", params.MaxPrice))
	cleaned, err := FilterPriceRange(data, PriceColumn, params.MinPrice, params.MaxPrice)
	if err != nil {
		return nil, fmt.Errorf("filtering: %w: %w", core.ErrDataFormat, err)
	}
	missing, err := NormalizeDates(cleaned, LastReviewColumn)
	if err != nil {
		return nil, fmt.Errorf("normalizing dates: %w: %w", core.ErrDataFormat, err)
	}
	logger.Debug("cleaned table",
		slog.Int("input_rows", data.Len()),
		slog.Int("output_rows", cleaned.Len()),
		slog.Int("missing_dates", missing))

	logger.Info("locally saving the cleaned sample", slog.String("path", params.OutputArtifact))
	if err := p.tables.WriteDelimited(ctx, cleaned, params.OutputArtifact); err != nil {
		return nil, fmt.Errorf("saving %s: %w", params.OutputArtifact, err)
	}

	logger.Info("loading and logging the saved clean sample")
	out := artifact.New(params.ArtifactName(), params.OutputType, params.OutputDescription)
	if err := out.AddFile(params.OutputArtifact); err != nil {
		return nil, fmt.Errorf("attaching %s: %w", params.OutputArtifact, err)
	}
	published, err := p.store.LogArtifact(ctx, run, out)
	if err != nil {
		return nil, fmt.Errorf("publishing %s: %w", out.Name, err)
	}

	logger.Info("deleting local saves and ending run")
	if err := os.Remove(params.OutputArtifact); err != nil {
		return nil, fmt.Errorf("%w: removing %s: %v", core.ErrFilesystem, params.OutputArtifact, err)
	}

	if err := p.store.FinishRun(ctx, run); err != nil {
		return nil, err
	}

	return &Result{
		Run:          run,
		Output:       published,
		InputRows:    data.Len(),
		OutputRows:   cleaned.Len(),
		MissingDates: missing,
		Duration:     time.Since(start),
	}, nil
}
