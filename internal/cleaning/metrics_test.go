package cleaning

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapclean/internal/testutil"
	"github.com/leapstack-labs/leapclean/pkg/core"
)

func TestMetrics_WriteFile(t *testing.T) {
	completed := time.Unix(1700000000, 0).UTC()
	res := &Result{
		Run:          &core.Run{ID: "run-1", Status: core.RunStatusCompleted, CompletedAt: &completed},
		Output:       &core.ArtifactVersion{Name: "clean_sample.csv", Version: 0},
		InputRows:    6,
		OutputRows:   4,
		MissingDates: 2,
		Duration:     1500 * time.Millisecond,
	}

	m := NewMetrics()
	m.Observe(res)

	path := filepath.Join(t.TempDir(), "textfile", "leapclean.prom")
	require.NoError(t, m.WriteFile(path))

	got := testutil.ReadFile(t, path)
	for _, line := range []string{
		`leapclean_rows_input{artifact="clean_sample.csv"} 6`,
		`leapclean_rows_output{artifact="clean_sample.csv"} 4`,
		`leapclean_rows_dropped{artifact="clean_sample.csv"} 2`,
		`leapclean_dates_missing{artifact="clean_sample.csv"} 2`,
		`leapclean_run_duration_seconds{artifact="clean_sample.csv"} 1.5`,
		`leapclean_last_success_timestamp_seconds{artifact="clean_sample.csv"} 1.7e+09`,
		"# TYPE leapclean_rows_input gauge",
	} {
		assert.Contains(t, got, line)
	}
}
