// Package seed builds demo content for local development and tests.
package seed

import (
	"fmt"
	"strings"
	"time"

	"cmsadmin/internal/models"

	"github.com/brianvoe/gofakeit/v6"
)

// DefaultCategories are the categories every seeded store starts with.
var DefaultCategories = []models.Category{
	{Name: "Tecnologia", Description: "Novidades e análises de tecnologia", Color: "#3b82f6"},
	{Name: "Programação", Description: "Tutoriais e boas práticas de código", Color: "#10b981"},
	{Name: "Design", Description: "Interfaces, tipografia e experiência do usuário", Color: "#f59e0b"},
	{Name: "Negócios", Description: "Empreendedorismo e gestão", Color: "#ef4444"},
	{Name: "Carreira", Description: "Dicas para crescer na profissão", Color: "#8b5cf6"},
}

var tagPool = []string{"go", "react", "cms", "api", "ux", "cloud", "dicas", "tutorial", "carreira", "produtividade"}

// Factory builds domain entities with fake content. The records it returns
// are not persisted.
type Factory struct {
	faker *gofakeit.Faker
	now   time.Time
	// MaxDays bounds how far back createdAt is spread.
	MaxDays int
}

// NewFactory creates a Factory. A zero seed picks a random one.
func NewFactory(seed int64, now time.Time) *Factory {
	return &Factory{faker: gofakeit.New(seed), now: now, MaxDays: 90}
}

func (f *Factory) pastTime() time.Time {
	maxDays := f.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	return f.faker.DateRange(f.now.AddDate(0, 0, -maxDays), f.now)
}

// BuildUser returns a user with a unique-looking email and the given role.
func (f *Factory) BuildUser(role, password string) models.User {
	first, last := f.faker.FirstName(), f.faker.LastName()
	return models.User{
		Name:      first + " " + last,
		Email:     strings.ToLower(fmt.Sprintf("%s.%s.%d@example.com", first, last, f.faker.Number(100, 999))),
		Password:  password,
		Role:      role,
		CreatedAt: models.Timestamp(f.pastTime()),
	}
}

// BuildPost returns a post written by authorID in one of categories.
func (f *Factory) BuildPost(authorID int64, categories []string) models.Post {
	title := strings.TrimSuffix(f.faker.Sentence(f.faker.Number(3, 7)), ".")
	created := f.pastTime()

	post := models.Post{
		Title:     title,
		Content:   "<p>" + f.faker.Paragraph(3, 4, 12, "</p><p>") + "</p>",
		Excerpt:   f.faker.Sentence(14),
		Status:    f.faker.RandomString([]string{models.StatusPublished, models.StatusPublished, models.StatusDraft, models.StatusArchived}),
		AuthorID:  authorID,
		Tags:      f.tags(),
		CreatedAt: models.Timestamp(created),
		UpdatedAt: models.Timestamp(created),
	}
	if len(categories) > 0 {
		post.Category = categories[f.faker.Number(0, len(categories)-1)]
	}
	if f.faker.Bool() {
		post.FeaturedImage = fmt.Sprintf("https://picsum.photos/seed/%s/1200/630", f.faker.UUID())
	}
	if post.Status != models.StatusDraft {
		post.PublishedAt = models.Timestamp(created.Add(time.Duration(f.faker.Number(1, 48)) * time.Hour))
	}
	return post
}

func (f *Factory) tags() []string {
	n := f.faker.Number(1, 3)
	seen := make(map[string]bool, n)
	out := make([]string, 0, n)
	for len(out) < n {
		tag := f.faker.RandomString(tagPool)
		if seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
