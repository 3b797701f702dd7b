package commands

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/leapstack-labs/leapclean/internal/artifact"
	"github.com/leapstack-labs/leapclean/internal/cli/output"
	"github.com/leapstack-labs/leapclean/pkg/core"
	"github.com/spf13/cobra"
)

// UploadJobType is the job type of runs created by "artifacts put".
const UploadJobType = "upload"

// VersionInfo is the JSON form of an artifact version.
type VersionInfo struct {
	Ref         string    `json:"ref"`
	Name        string    `json:"name"`
	Version     int       `json:"version"`
	Type        string    `json:"type"`
	Description string    `json:"description,omitempty"`
	File        string    `json:"file"`
	Size        int64     `json:"size"`
	Digest      string    `json:"digest"`
	RunID       string    `json:"run_id"`
	CreatedAt   time.Time `json:"created_at"`
}

func newVersionInfo(v *core.ArtifactVersion) VersionInfo {
	return VersionInfo{
		Ref:         v.Ref(),
		Name:        v.Name,
		Version:     v.Version,
		Type:        v.Type,
		Description: v.Description,
		File:        v.FileName,
		Size:        v.Size,
		Digest:      v.Digest,
		RunID:       v.RunID,
		CreatedAt:   v.CreatedAt,
	}
}

// NewArtifactsCommand creates the artifacts command group.
func NewArtifactsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "artifacts",
		Aliases: []string{"artifact"},
		Short:   "Manage versioned artifacts",
		Long: `Log, list and download artifacts in the local artifact store.

Every log creates a new immutable version. References take the form
name, name:latest or name:vN.`,
	}

	cmd.AddCommand(newArtifactsPutCommand())
	cmd.AddCommand(newArtifactsListCommand())
	cmd.AddCommand(newArtifactsGetCommand())
	return cmd
}

type putOptions struct {
	Name        string
	Type        string
	Description string
}

func newArtifactsPutCommand() *cobra.Command {
	opts := &putOptions{}

	cmd := &cobra.Command{
		Use:   "put <file>",
		Short: "Log a local file as a new artifact version",
		Example: `  # Publish the raw sample
  leapclean artifacts put sample.csv --type raw_data --description "Raw listings sample"

  # Publish under a different name
  leapclean artifacts put data/listings.csv --name sample.csv --type raw_data`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArtifactsPut(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "Artifact name (default: file base name)")
	cmd.Flags().StringVar(&opts.Type, "type", "", "Artifact type")
	cmd.Flags().StringVar(&opts.Description, "description", "", "Artifact description")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func runArtifactsPut(cmd *cobra.Command, path string, opts *putOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	store := cmdCtx.Store
	r := cmdCtx.Renderer

	name := opts.Name
	if name == "" {
		name = filepath.Base(path)
	}

	run, err := store.BeginRun(ctx, UploadJobType, map[string]any{
		"file":        path,
		"name":        name,
		"type":        opts.Type,
		"description": opts.Description,
	})
	if err != nil {
		return err
	}

	a := artifact.New(name, opts.Type, opts.Description)
	if err := a.AddFile(path); err != nil {
		return err
	}
	v, err := store.LogArtifact(ctx, run, a)
	if err != nil {
		return err
	}
	if err := store.FinishRun(ctx, run); err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(newVersionInfo(v))
	}
	r.Success(fmt.Sprintf("Logged %s", v.Ref()))
	r.KeyValue("Type", v.Type)
	r.KeyValue("Size", strconv.FormatInt(v.Size, 10))
	r.KeyValue("Digest", v.Digest)
	r.KeyValue("Run", run.ID)
	return nil
}

func newArtifactsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list [name]",
		Short: "List artifact versions",
		Long: `List every version of the named artifact, or of all artifacts.

Output adapts to environment:
  - Terminal: table
  - Piped/Scripted: Markdown table

Use --output json for machine-readable output.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return runArtifactsList(cmd, name)
		},
	}
}

func runArtifactsList(cmd *cobra.Command, name string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	versions, err := cmdCtx.Store.ListVersions(cmd.Context(), name)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		infos := make([]VersionInfo, 0, len(versions))
		for _, v := range versions {
			infos = append(infos, newVersionInfo(v))
		}
		return r.JSON(infos)
	}

	rows := make([][]string, 0, len(versions))
	for _, v := range versions {
		rows = append(rows, []string{
			v.Ref(),
			v.Type,
			strconv.FormatInt(v.Size, 10),
			shortDigest(v.Digest),
			v.CreatedAt.Local().Format(time.DateTime),
		})
	}
	r.Table([]string{"REF", "TYPE", "SIZE", "DIGEST", "CREATED"}, rows)
	return nil
}

type getOptions struct {
	Dest string
}

func newArtifactsGetCommand() *cobra.Command {
	opts := &getOptions{}

	cmd := &cobra.Command{
		Use:   "get <ref>",
		Short: "Download an artifact version",
		Example: `  # Download the latest cleaned sample
  leapclean artifacts get clean_sample.csv

  # Download a pinned version into ./out
  leapclean artifacts get clean_sample.csv:v2 --dest out`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArtifactsGet(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.Dest, "dest", "", "Destination directory (default: download_dir)")
	return cmd
}

func runArtifactsGet(cmd *cobra.Command, ref string, opts *getOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	v, err := cmdCtx.Store.Resolve(ctx, ref)
	if err != nil {
		return err
	}

	dest := opts.Dest
	if dest == "" {
		dest = cmdCtx.Cfg.DownloadDir
	}
	path, err := cmdCtx.Store.Download(ctx, v, dest)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(struct {
			VersionInfo
			Path string `json:"path"`
		}{newVersionInfo(v), path})
	}
	r.Success(fmt.Sprintf("Downloaded %s", v.Ref()))
	r.KeyValue("Path", path)
	return nil
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
