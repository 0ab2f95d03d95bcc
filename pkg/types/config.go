package types

import "errors"

// Config holds backend selection and parameters for Backend.Attach.
type Config struct {
	Backend string `json:"backend" yaml:"backend"`
	DataDir string `json:"data_dir" yaml:"data_dir"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// Config validation errors.
var (
	ErrBackendEmpty   = errors.New("backend must not be empty")
	ErrBackendUnknown = errors.New("unknown backend")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	return nil
}

// CaptureSettings are the capture policies, read at every clipboard event.
type CaptureSettings struct {
	AutoDeduplicate bool `json:"auto_deduplicate" yaml:"auto_deduplicate" mapstructure:"auto_deduplicate"`
	AutoSort        bool `json:"auto_sort" yaml:"auto_sort" mapstructure:"auto_sort"`
	CopyPlain       bool `json:"copy_plain" yaml:"copy_plain" mapstructure:"copy_plain"`
	// GuardDuplicates collapses concurrent identical events while
	// AutoDeduplicate is on. Off by default.
	GuardDuplicates bool `json:"guard_duplicates" yaml:"guard_duplicates" mapstructure:"guard_duplicates"`
}

// FastPath reports whether duplicate lookup can be skipped entirely.
func (s CaptureSettings) FastPath() bool {
	return !s.AutoDeduplicate && !s.AutoSort
}
