package classify

import (
	"context"
	"net/mail"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Text subtypes reported by TextDetector.
const (
	SubtypeURL   = "url"
	SubtypeEmail = "email"
	SubtypeColor = "color"
	SubtypePath  = "path"
)

var (
	hexColorRe  = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3,4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)
	funcColorRe = regexp.MustCompile(`^(?i:rgba?|hsla?)\(\s*[-+0-9.%]+(?:\s*[,/\s]\s*[-+0-9.%]+){2,3}\s*\)$`)
)

var urlSchemes = map[string]bool{
	"http":  true,
	"https": true,
	"ftp":   true,
}

// TextDetector recognizes URLs, email addresses, CSS colors and existing
// absolute file-system paths.
type TextDetector struct {
	stat func(string) (os.FileInfo, error)
}

// NewTextDetector returns a detector that checks paths against the local
// file system.
func NewTextDetector() *TextDetector {
	return &TextDetector{stat: os.Stat}
}

// DetectSubtype returns the subtype label for text, or "" when nothing matches.
func (d *TextDetector) DetectSubtype(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s := strings.TrimSpace(text)
	if s == "" || strings.ContainsAny(s, "\n\r") {
		return "", nil
	}
	switch {
	case isURL(s):
		return SubtypeURL, nil
	case isEmail(s):
		return SubtypeEmail, nil
	case hexColorRe.MatchString(s) || funcColorRe.MatchString(s):
		return SubtypeColor, nil
	case d.isPath(s):
		return SubtypePath, nil
	}
	return "", nil
}

func isURL(s string) bool {
	if strings.ContainsAny(s, " \t") {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return urlSchemes[strings.ToLower(u.Scheme)] && u.Host != ""
}

func isEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func (d *TextDetector) isPath(s string) bool {
	if !filepath.IsAbs(s) {
		return false
	}
	_, err := d.stat(s)
	return err == nil
}
