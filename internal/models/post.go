package models

// Status values accepted for Post.Status.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

// Post represents an article managed in the admin panel.
type Post struct {
	ID            int64    `json:"id"`
	Title         string   `json:"title"`
	Slug          string   `json:"slug"`
	Content       string   `json:"content"`
	Excerpt       string   `json:"excerpt"`
	Status        string   `json:"status"`
	AuthorID      int64    `json:"authorId"`
	Category      string   `json:"category"`
	Tags          []string `json:"tags"`
	FeaturedImage string   `json:"featuredImage,omitempty"`
	CreatedAt     string   `json:"createdAt,omitempty"`
	UpdatedAt     string   `json:"updatedAt,omitempty"`
	PublishedAt   string   `json:"publishedAt,omitempty"`
}

// RecordID implements the client cache key.
func (p Post) RecordID() int64 { return p.ID }

// IsValidStatus reports whether status is one of the known post statuses.
func IsValidStatus(status string) bool {
	switch status {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}
