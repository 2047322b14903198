package models

// Category groups posts. Posts reference it by slug.
type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Color       string `json:"color,omitempty"`
	// PostCount is computed on read and never stored authoritatively.
	PostCount int `json:"postCount,omitempty"`
}

// RecordID implements the client cache key.
func (c Category) RecordID() int64 { return c.ID }
