package models

// Media describes one uploaded file.
type Media struct {
	ID         int64  `json:"id"`
	Filename   string `json:"filename"`
	URL        string `json:"url"`
	Type       string `json:"type"`
	Size       int64  `json:"size"`
	UploadedBy int64  `json:"uploadedBy"`
	UploadedAt string `json:"uploadedAt"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
}

// RecordID implements the client cache key.
func (m Media) RecordID() int64 { return m.ID }
