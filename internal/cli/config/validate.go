package config

import (
	"fmt"
	"strings"
)

var validOutputs = []string{"auto", "text", "markdown", "json"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.StoreDir == "" {
		return fmt.Errorf("store_dir is required")
	}
	if c.StatePath == "" {
		return fmt.Errorf("state_path is required")
	}
	if c.DownloadDir == "" {
		return fmt.Errorf("download_dir is required")
	}
	if strings.TrimSpace(c.JobType) == "" {
		return fmt.Errorf("job_type is required")
	}

	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("invalid log_format %q (want %s or %s)", c.LogFormat, LogFormatText, LogFormatJSON)
	}

	for _, o := range validOutputs {
		if c.OutputFormat == o {
			return nil
		}
	}
	return fmt.Errorf("invalid output %q (want one of %s)", c.OutputFormat, strings.Join(validOutputs, ", "))
}
