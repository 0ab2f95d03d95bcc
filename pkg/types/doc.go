// Package types defines the clipboard history entry, its per-group content
// variants, the persisted record form and the serialization boundary between
// them, store query shapes, configuration, and the standard errors used
// across scraps.
package types
