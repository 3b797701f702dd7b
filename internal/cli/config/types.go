// Package config provides configuration management for the LeapClean CLI.
//
// Settings are layered: built-in defaults, then leapclean.yaml, then
// LEAPCLEAN_* environment variables, then explicitly set persistent flags.
// Pipeline parameters are not configuration and never pass through here.
package config

// Config holds all CLI configuration options.
type Config struct {
	StoreDir     string `koanf:"store_dir"`
	StatePath    string `koanf:"state_path"`
	DownloadDir  string `koanf:"download_dir"`
	DatabasePath string `koanf:"database"`
	JobType      string `koanf:"job_type"`
	MetricsFile  string `koanf:"metrics_file"`
	LogFormat    string `koanf:"log_format"`
	Verbose      bool   `koanf:"verbose"`
	OutputFormat string `koanf:"output"`

	// ProjectRoot is the directory relative paths are resolved against.
	// Set by the loader, never read from configuration.
	ProjectRoot string `koanf:"-"`
}

// Default configuration values.
const (
	DefaultStoreDir    = ".leapclean/artifacts"
	DefaultStateFile   = ".leapclean/state.db"
	DefaultDownloadDir = ".leapclean/downloads"
	DefaultDatabase    = ":memory:"
	DefaultJobType     = "basic_cleaning"
	DefaultLogFormat   = "text"
	DefaultOutput      = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Default returns a Config populated with the default values, unresolved.
func Default() *Config {
	return &Config{
		StoreDir:     DefaultStoreDir,
		StatePath:    DefaultStateFile,
		DownloadDir:  DefaultDownloadDir,
		DatabasePath: DefaultDatabase,
		JobType:      DefaultJobType,
		LogFormat:    DefaultLogFormat,
		OutputFormat: DefaultOutput,
	}
}
