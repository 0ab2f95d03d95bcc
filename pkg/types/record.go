package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimeLayout is the persisted createTime format. It is fixed width and UTC so
// that lexical order of the TEXT column equals chronological order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// legacyTimeLayout is accepted on read for records imported from older exports.
const legacyTimeLayout = "2006-01-02 15:04:05"

// Record is the persisted form of a HistoryEntry: the payload is serialized
// into Value and booleans are stored as 0/1 integers.
type Record struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Group      string `json:"group"`
	Value      string `json:"value"`
	Search     string `json:"search"`
	Count      int    `json:"count"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	Favorite   int    `json:"favorite"`
	CreateTime string `json:"createTime"`
	Note       string `json:"note,omitempty"`
	Subtype    string `json:"subtype,omitempty"`
}

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a persisted createTime.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range []string{TimeLayout, time.RFC3339Nano, legacyTimeLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parsing createTime %q: unrecognized layout", s)
}

// BoolToInt maps a boolean onto its persisted 0/1 form.
func BoolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// IntToBool reverses BoolToInt: any non-zero value is true.
func IntToBool(i int) bool {
	return i != 0
}

// EncodeFiles serializes an ordered path list for the value column.
func EncodeFiles(paths []string) (string, error) {
	if paths == nil {
		paths = []string{}
	}
	data, err := json.Marshal(paths)
	if err != nil {
		return "", fmt.Errorf("encoding file list: %w", err)
	}
	return string(data), nil
}

// DecodeFiles parses a value column written by EncodeFiles.
func DecodeFiles(value string) ([]string, error) {
	var paths []string
	if err := json.Unmarshal([]byte(value), &paths); err != nil {
		return nil, fmt.Errorf("decoding file list: %w", err)
	}
	if paths == nil {
		paths = []string{}
	}
	return paths, nil
}

// ToRecord converts an entry to its persisted form.
// Returns ErrInvalidData if the content variant does not match the group.
func ToRecord(e HistoryEntry) (Record, error) {
	if e.Content == nil || e.Content.Group() != e.Group {
		return Record{}, fmt.Errorf("%w: entry %s has group %q but content %T", ErrInvalidData, e.ID, e.Group, e.Content)
	}
	r := Record{
		ID:         e.ID,
		Type:       e.Type,
		Group:      e.Group,
		Search:     e.Search,
		Count:      e.Count,
		Favorite:   BoolToInt(e.Favorite),
		CreateTime: FormatTime(e.CreateTime),
		Note:       e.Note,
	}
	switch c := e.Content.(type) {
	case TextContent:
		r.Value = c.Value
		r.Subtype = c.Subtype
	case FilesContent:
		v, err := EncodeFiles(c.Paths)
		if err != nil {
			return Record{}, err
		}
		r.Value = v
	case ImageContent:
		r.Value = c.Path
		r.Width = c.Width
		r.Height = c.Height
	}
	return r, nil
}

// Entry converts a persisted record back to its in-memory form.
func (r Record) Entry() (HistoryEntry, error) {
	created, err := ParseTime(r.CreateTime)
	if err != nil {
		return HistoryEntry{}, err
	}
	e := HistoryEntry{
		ID:         r.ID,
		Type:       r.Type,
		Group:      r.Group,
		Search:     r.Search,
		Count:      r.Count,
		Favorite:   IntToBool(r.Favorite),
		CreateTime: created,
		Note:       r.Note,
	}
	switch r.Group {
	case GroupText:
		e.Content = TextContent{Value: r.Value, Subtype: r.Subtype}
	case GroupFiles:
		paths, err := DecodeFiles(r.Value)
		if err != nil {
			return HistoryEntry{}, fmt.Errorf("record %s: %w", r.ID, err)
		}
		e.Content = FilesContent{Paths: paths}
	case GroupImage:
		e.Content = ImageContent{Path: r.Value, Width: r.Width, Height: r.Height}
	default:
		return HistoryEntry{}, fmt.Errorf("%w: record %s has group %q", ErrInvalidGroup, r.ID, r.Group)
	}
	return e, nil
}
