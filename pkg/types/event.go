package types

// TextItem is a text-like clipboard payload (plain text, html or rtf).
type TextItem struct {
	Type  string `json:"type,omitempty"`
	Value string `json:"value"`
	Count int    `json:"count,omitempty"`
}

// FilesItem is a list of copied file-system paths.
type FilesItem struct {
	Type  string   `json:"type,omitempty"`
	Value []string `json:"value"`
	Count int      `json:"count,omitempty"`
}

// ImageItem references a copied image saved by the event source.
type ImageItem struct {
	Type   string `json:"type,omitempty"`
	Value  string `json:"value"`
	Count  int    `json:"count,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// ClipboardEvent is one clipboard change notification. Any subset of the
// payload fields may be present.
type ClipboardEvent struct {
	Files *FilesItem `json:"files,omitempty"`
	Image *ImageItem `json:"image,omitempty"`
	HTML  *TextItem  `json:"html,omitempty"`
	RTF   *TextItem  `json:"rtf,omitempty"`
	Text  *TextItem  `json:"text,omitempty"`
}

// HasFiles reports whether the event carries at least one file path.
func (ev ClipboardEvent) HasFiles() bool { return ev.Files != nil && len(ev.Files.Value) > 0 }

// HasImage reports whether the event carries an image reference.
func (ev ClipboardEvent) HasImage() bool { return ev.Image != nil && ev.Image.Value != "" }

// HasHTML reports whether the event carries non-empty html.
func (ev ClipboardEvent) HasHTML() bool { return ev.HTML != nil && ev.HTML.Value != "" }

// HasRTF reports whether the event carries non-empty rtf.
func (ev ClipboardEvent) HasRTF() bool { return ev.RTF != nil && ev.RTF.Value != "" }

// HasText reports whether the event carries non-empty plain text.
func (ev ClipboardEvent) HasText() bool { return ev.Text != nil && ev.Text.Value != "" }

// Empty reports whether every payload field is absent or empty, as happens
// when the clipboard is cleared.
func (ev ClipboardEvent) Empty() bool {
	return !ev.HasFiles() && !ev.HasImage() && !ev.HasHTML() && !ev.HasRTF() && !ev.HasText()
}
