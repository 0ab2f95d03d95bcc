package classify

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

var errEmptyPath = errors.New("empty path")

// PathResolver turns raw file and image values into clean absolute paths,
// expanding a leading "~/" to the user's home directory.
type PathResolver struct {
	homeDir func() (string, error)
}

// NewPathResolver returns a resolver that uses the current user's home directory.
func NewPathResolver() *PathResolver {
	return &PathResolver{homeDir: os.UserHomeDir}
}

// Resolve returns the canonical absolute form of value.
func (r *PathResolver) Resolve(_ context.Context, value string) (string, error) {
	p := strings.TrimSpace(value)
	if p == "" {
		return "", errEmptyPath
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := r.homeDir()
		if err != nil {
			return "", err
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return filepath.Abs(p)
}
