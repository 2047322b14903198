package client

import (
	"strings"

	"cmsadmin/internal/models"
)

// PostFilter narrows the posts page. Empty fields match everything.
type PostFilter struct {
	Text     string
	Status   string
	Category string
}

// FilterPosts matches Text against title and excerpt, case-insensitively.
func FilterPosts(posts []models.Post, f PostFilter) []models.Post {
	text := strings.ToLower(strings.TrimSpace(f.Text))
	out := make([]models.Post, 0, len(posts))
	for _, p := range posts {
		if text != "" &&
			!strings.Contains(strings.ToLower(p.Title), text) &&
			!strings.Contains(strings.ToLower(p.Excerpt), text) {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		out = append(out, p)
	}
	return out
}

// UserFilter narrows the users page.
type UserFilter struct {
	Text string
	Role string
}

// FilterUsers matches Text against name and email.
func FilterUsers(users []models.User, f UserFilter) []models.User {
	text := strings.ToLower(strings.TrimSpace(f.Text))
	out := make([]models.User, 0, len(users))
	for _, u := range users {
		if text != "" &&
			!strings.Contains(strings.ToLower(u.Name), text) &&
			!strings.Contains(strings.ToLower(u.Email), text) {
			continue
		}
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		out = append(out, u)
	}
	return out
}

// UserUpdatePayload drops a blank password so editing a user keeps the old one.
func UserUpdatePayload(form models.Record) models.Record {
	if strings.TrimSpace(form.String("password")) == "" {
		return form.Without("password")
	}
	return form.Clone()
}

// WithSlug fills "slug" from the source field when the form left it blank.
func WithSlug(form models.Record, source string) models.Record {
	out := form.Clone()
	if strings.TrimSpace(out.String("slug")) == "" {
		out["slug"] = models.Slugify(out.String(source))
	}
	return out
}
