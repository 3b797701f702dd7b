package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapclean/internal/cli/commands"
	"github.com/leapstack-labs/leapclean/internal/cli/config"
	"github.com/leapstack-labs/leapclean/internal/testutil"
	"github.com/leapstack-labs/leapclean/pkg/core"
)

// project is a temp dir with a leapclean.yaml and a published raw sample.
type project struct {
	dir    string
	config string
}

func newProject(t *testing.T) *project {
	t.Helper()
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	dir := t.TempDir()
	cfgPath := testutil.WriteFile(t, dir, "leapclean.yaml", `store_dir: artifacts
state_path: state.db
download_dir: downloads
output: json
`)
	p := &project{dir: dir, config: cfgPath}

	src := testutil.WriteCSV(t, dir, "sample.csv",
		"id,price,last_review",
		"1,50,2019-05-21",
		"2,9999,2019-05-22",
		"3,120,2019-13-45",
	)
	_, _, err := p.run(t, "artifacts", "put", src, "--type", "raw_data")
	require.NoError(t, err)
	return p
}

func (p *project) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(append([]string{"--config", p.config}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func cleanArgs(output string, minPrice, maxPrice string) []string {
	return []string{
		"--input_artifact", "sample.csv:latest",
		"--output_artifact", output,
		"--output_type", "clean_sample",
		"--output_description", "Data with outliers and null values removed",
		"--min_price", minPrice,
		"--max_price", maxPrice,
	}
}

func TestRoot_Clean(t *testing.T) {
	p := newProject(t)
	out := filepath.Join(p.dir, "clean_sample.csv")
	metrics := filepath.Join(p.dir, "metrics", "leapclean.prom")

	stdout, stderr, err := p.run(t, append(cleanArgs(out, "10", "500"), "--metrics-file", metrics)...)
	require.NoError(t, err, stderr)

	var res commands.CleanResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.Equal(t, "clean_sample.csv:v0", res.Ref)
	assert.Equal(t, 3, res.InputRows)
	assert.Equal(t, 2, res.OutputRows)
	assert.Equal(t, 1, res.DroppedRows)
	assert.Equal(t, 1, res.MissingDates)

	testutil.AssertNotExists(t, out)
	assert.Contains(t, testutil.ReadFile(t, metrics), `leapclean_rows_output{artifact="clean_sample.csv"} 2`)

	for _, msg := range []string{
		"locating and reading the artifact",
		"dropping the outliers and making other corrections",
		"locally saving the cleaned sample",
		"loading and logging the saved clean sample",
		"deleting local saves and ending run",
	} {
		assert.Contains(t, stderr, msg)
	}

	stdout, _, err = p.run(t, "artifacts", "get", res.Ref, "--dest", filepath.Join(p.dir, "got"))
	require.NoError(t, err)
	var got struct {
		Path string `json:"path"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, "id,price,last_review\n1,50,2019-05-21\n3,120,\n", testutil.ReadFile(t, got.Path))
}

func TestRoot_CleanJSONLogs(t *testing.T) {
	p := newProject(t)
	out := filepath.Join(p.dir, "clean_sample.csv")

	_, stderr, err := p.run(t, append(cleanArgs(out, "10", "500"), "--log-format", "json", "-v")...)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	require.NotEmpty(t, lines)
	for _, line := range lines {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		assert.Contains(t, entry, "msg")
	}
	assert.Contains(t, stderr, `"level":"DEBUG"`)
}

func TestRoot_RequiredFlags(t *testing.T) {
	p := newProject(t)

	_, _, err := p.run(t, "--input_artifact", "sample.csv:latest")
	require.Error(t, err)
	for _, flag := range []string{"output_artifact", "output_type", "output_description", "min_price", "max_price"} {
		assert.Contains(t, err.Error(), flag)
	}
}

func TestRoot_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    func(p *project) []string
		wantErr error
	}{
		{
			name: "unknown artifact",
			args: func(p *project) []string {
				args := cleanArgs(filepath.Join(p.dir, "clean_sample.csv"), "10", "500")
				args[1] = "nope.csv:latest"
				return args
			},
			wantErr: core.ErrArtifactNotFound,
		},
		{
			name: "min greater than max",
			args: func(p *project) []string {
				return cleanArgs(filepath.Join(p.dir, "clean_sample.csv"), "500", "10")
			},
			wantErr: core.ErrInvalidParams,
		},
		{
			name: "unwritable output",
			args: func(p *project) []string {
				return cleanArgs(filepath.Join(p.dir, "missing", "clean_sample.csv"), "10", "500")
			},
			wantErr: core.ErrFilesystem,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newProject(t)
			_, _, err := p.run(t, tt.args(p)...)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			testutil.AssertNotExists(t, filepath.Join(p.dir, "clean_sample.csv"))
		})
	}
}

func TestRoot_NonIntegerPrice(t *testing.T) {
	p := newProject(t)
	_, _, err := p.run(t, cleanArgs(filepath.Join(p.dir, "clean_sample.csv"), "ten", "500")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_price")
}

func TestRoot_InvalidConfig(t *testing.T) {
	p := newProject(t)
	_, _, err := p.run(t, "runs", "list", "--log-format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_format")
}

func TestRoot_Version(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "leapclean "+Version)
}

func TestRoot_Subcommands(t *testing.T) {
	cmd := NewRootCmd()
	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"artifacts", "runs", "version", "completion"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}

func TestCompletionCommand(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"completion", "bash"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "leapclean")
}

func TestNewLogger(t *testing.T) {
	buf := new(bytes.Buffer)

	logger := NewLogger(buf, &config.Config{LogFormat: config.LogFormatText})
	logger.Debug("hidden")
	logger.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")

	buf.Reset()
	logger = NewLogger(buf, &config.Config{LogFormat: config.LogFormatJSON, Verbose: true})
	logger.Debug("visible")
	assert.Contains(t, buf.String(), `"msg":"visible"`)
}

func TestGetConfig_Default(t *testing.T) {
	cfg := GetConfig(t.Context())
	assert.Equal(t, config.DefaultJobType, cfg.JobType)
}

func TestMain(m *testing.M) {
	// LEAPCLEAN_* variables would override the test projects' config.
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "LEAPCLEAN_") {
			_ = os.Unsetenv(strings.SplitN(kv, "=", 2)[0])
		}
	}
	os.Exit(m.Run())
}
