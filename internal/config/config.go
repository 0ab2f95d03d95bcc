// Package config loads config.yaml with viper and publishes the capture
// settings the reconciliation engine reads at every event.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/scraps/internal/paths"
	"github.com/mesh-intelligence/scraps/pkg/types"
)

// EnvPrefix prefixes environment overrides, e.g. SCRAPS_CAPTURE_AUTO_SORT.
const EnvPrefix = "SCRAPS"

// Config keys.
const (
	KeyBackend         = "backend"
	KeyDataDir         = "data_dir"
	KeyAutoDeduplicate = "capture.auto_deduplicate"
	KeyAutoSort        = "capture.auto_sort"
	KeyCopyPlain       = "capture.copy_plain"
	KeyGuardDuplicates = "capture.guard_duplicates"
	KeyFilter          = "capture.filter"
	KeyVisibleLimit    = "capture.visible_limit"
)

// DefaultVisibleLimit caps the rows loaded into the visible list.
const DefaultVisibleLimit = 100

// Settings is the decoded config.yaml.
type Settings struct {
	Backend string  `mapstructure:"backend" yaml:"backend"`
	DataDir string  `mapstructure:"data_dir" yaml:"data_dir,omitempty"`
	Capture Capture `mapstructure:"capture" yaml:"capture"`
}

// Capture holds the capture policies and the visible-list settings.
type Capture struct {
	types.CaptureSettings `mapstructure:",squash" yaml:",inline"`

	// Filter is the initial group filter: all, text, files or image.
	Filter       string `mapstructure:"filter" yaml:"filter"`
	VisibleLimit int    `mapstructure:"visible_limit" yaml:"visible_limit"`
}

// Defaults returns the settings used for keys absent from config.yaml.
// Deduplication and sorting are off.
func Defaults() Settings {
	return Settings{
		Backend: types.BackendSQLite,
		Capture: Capture{
			Filter:       types.GroupAll,
			VisibleLimit: DefaultVisibleLimit,
		},
	}
}

// Validate checks backend, filter and limit.
func (s Settings) Validate() error {
	if err := (types.Config{Backend: s.Backend}).Validate(); err != nil {
		return fmt.Errorf("backend %q: %w", s.Backend, err)
	}
	if !types.ValidFilter(s.Capture.Filter) {
		return fmt.Errorf("%w: capture.filter %q", types.ErrInvalidGroup, s.Capture.Filter)
	}
	if s.Capture.VisibleLimit < 0 {
		return errors.New("capture.visible_limit must not be negative")
	}
	return nil
}

// Load reads config.yaml from configDir, creating the directory and a
// default file on first run. Capture keys and backend can be overridden
// from the environment. data_dir is not bound: SCRAPS_DATA_DIR ranks below
// the file and is applied by paths.ResolveDataDir.
func Load(configDir string) (*viper.Viper, Settings, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, Settings{}, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := writeDefaultIfMissing(paths.ConfigFile(configDir)); err != nil {
		return nil, Settings{}, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range []string{KeyBackend, KeyAutoDeduplicate, KeyAutoSort, KeyCopyPlain, KeyGuardDuplicates, KeyFilter, KeyVisibleLimit} {
		if err := v.BindEnv(key); err != nil {
			return nil, Settings{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, Settings{}, fmt.Errorf("read config: %w", err)
		}
	}

	s, err := decode(v)
	if err != nil {
		return nil, Settings{}, err
	}
	return v, s, nil
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault(KeyBackend, d.Backend)
	v.SetDefault(KeyDataDir, "")
	v.SetDefault(KeyAutoDeduplicate, d.Capture.AutoDeduplicate)
	v.SetDefault(KeyAutoSort, d.Capture.AutoSort)
	v.SetDefault(KeyCopyPlain, d.Capture.CopyPlain)
	v.SetDefault(KeyGuardDuplicates, d.Capture.GuardDuplicates)
	v.SetDefault(KeyFilter, d.Capture.Filter)
	v.SetDefault(KeyVisibleLimit, d.Capture.VisibleLimit)
}

func decode(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid config: %w", err)
	}
	return s, nil
}

const defaultHeader = `# scraps configuration
#
# capture.auto_deduplicate  keep one row per identical content
# capture.auto_sort         move a re-copied entry back to the top
# capture.copy_plain        ignore html and rtf, keep plain text
# capture.guard_duplicates  collapse identical events captured at the same time
# capture.filter            initial group filter: all, text, files, image
#
# Capture settings are reloaded while "scraps watch" runs.

`

// writeDefaultIfMissing writes Defaults() to path unless the file exists.
func writeDefaultIfMissing(path string) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	d := Defaults()
	data, err := yaml.Marshal(&d)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, append([]byte(defaultHeader), data...), 0o644)
}
