package config

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/scraps/internal/logging"
	"github.com/mesh-intelligence/scraps/pkg/types"
)

// Live holds the current settings and swaps them when config.yaml changes.
// Readers never block: every read returns a consistent snapshot.
type Live struct {
	v   *viper.Viper
	log logging.Logger

	current atomic.Pointer[Settings]

	mu       sync.Mutex
	onChange []func(prev, next Settings)
}

// NewLive wraps a viper instance returned by Load.
func NewLive(v *viper.Viper, initial Settings, log logging.Logger) *Live {
	if log == nil {
		log = logging.Discard()
	}
	l := &Live{v: v, log: log}
	l.current.Store(&initial)
	return l
}

// Settings returns the current snapshot.
func (l *Live) Settings() Settings {
	return *l.current.Load()
}

// CaptureSettings returns the current capture policies.
func (l *Live) CaptureSettings() types.CaptureSettings {
	return l.current.Load().Capture.CaptureSettings
}

// OnChange registers fn to run after every successful reload.
func (l *Live) OnChange(fn func(prev, next Settings)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, fn)
}

// Reload rereads config.yaml. An invalid file leaves the current settings
// in place.
func (l *Live) Reload() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.v.ReadInConfig(); err != nil {
		return err
	}
	return l.apply()
}

// apply decodes the viper state and publishes it. Callers hold mu.
func (l *Live) apply() error {
	next, err := decode(l.v)
	if err != nil {
		return err
	}
	prev := l.current.Swap(&next)
	for _, fn := range l.onChange {
		fn(*prev, next)
	}
	return nil
}

// Watch follows config.yaml until ctx is done. Viper rereads the file on
// every write; invalid contents are logged and ignored.
func (l *Live) Watch(ctx context.Context) {
	l.v.OnConfigChange(func(ev fsnotify.Event) {
		if ctx.Err() != nil {
			return
		}
		l.mu.Lock()
		defer l.mu.Unlock()
		if err := l.apply(); err != nil {
			l.log.Warn(ctx, "ignoring config change", "file", ev.Name, "err", err)
			return
		}
		l.log.Info(ctx, "config reloaded", "file", ev.Name)
	})
	l.v.WatchConfig()
}
