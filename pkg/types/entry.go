package types

import "time"

// Entry groups. A group is the coarse category of an entry's payload and
// determines which Content variant the entry carries.
const (
	GroupText  = "text"
	GroupFiles = "files"
	GroupImage = "image"
)

// GroupAll is the UI filter value that matches every group.
const GroupAll = "all"

// Entry types, as reported by the clipboard event source.
const (
	TypeText  = "text"
	TypeHTML  = "html"
	TypeRTF   = "rtf"
	TypeImage = "image"
	TypeFiles = "files"
)

var validGroups = map[string]bool{
	GroupText:  true,
	GroupFiles: true,
	GroupImage: true,
}

// ValidGroup reports whether g is one of the entry groups.
func ValidGroup(g string) bool {
	return validGroups[g]
}

// ValidFilter reports whether g is a valid UI group filter ("all" or a group).
func ValidFilter(g string) bool {
	return g == GroupAll || validGroups[g]
}

// Content is the group-specific payload of an entry. Exactly one variant is
// populated per entry: TextContent, FilesContent or ImageContent.
type Content interface {
	// Group returns the entry group the variant belongs to.
	Group() string
	isContent()
}

// TextContent holds text, html and rtf payloads.
type TextContent struct {
	Value   string `json:"value"`
	Subtype string `json:"subtype,omitempty"` // Semantic refinement, plain text only.
}

// FilesContent holds an ordered list of file-system paths.
type FilesContent struct {
	Paths []string `json:"paths"`
}

// ImageContent references an image stored on disk.
type ImageContent struct {
	Path   string `json:"path"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func (TextContent) Group() string  { return GroupText }
func (FilesContent) Group() string { return GroupFiles }
func (ImageContent) Group() string { return GroupImage }

func (TextContent) isContent()  {}
func (FilesContent) isContent() {}
func (ImageContent) isContent() {}

// HistoryEntry is one clipboard capture in its in-memory form. The payload
// stays in native form in Content; see Record for the persisted form.
type HistoryEntry struct {
	ID         string    `json:"id"`   // UUID v7, assigned at capture, immutable.
	Type       string    `json:"type"` // Fine-grained payload kind (one of the Type constants).
	Group      string    `json:"group"`
	Content    Content   `json:"content"`
	Search     string    `json:"search"` // Flattened searchable representation.
	Count      int       `json:"count,omitempty"`
	Favorite   bool      `json:"favorite"`
	CreateTime time.Time `json:"createTime"` // Capture time; also the recency key.
	Note       string    `json:"note,omitempty"`
}

// Text returns the text payload and true when the entry is in the text group.
func (e HistoryEntry) Text() (TextContent, bool) {
	c, ok := e.Content.(TextContent)
	return c, ok
}

// Files returns the file list payload and true when the entry is in the files group.
func (e HistoryEntry) Files() (FilesContent, bool) {
	c, ok := e.Content.(FilesContent)
	return c, ok
}

// Image returns the image payload and true when the entry is in the image group.
func (e HistoryEntry) Image() (ImageContent, bool) {
	c, ok := e.Content.(ImageContent)
	return c, ok
}

// Subtype returns the text subtype, or "" for entries outside the text group.
func (e HistoryEntry) Subtype() string {
	if c, ok := e.Content.(TextContent); ok {
		return c.Subtype
	}
	return ""
}

// Preview returns a single-line display value for the entry.
func (e HistoryEntry) Preview() string {
	switch c := e.Content.(type) {
	case TextContent:
		if e.Search != "" {
			return e.Search
		}
		return c.Value
	case FilesContent:
		return e.Search
	case ImageContent:
		return c.Path
	default:
		return ""
	}
}
