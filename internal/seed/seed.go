package seed

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"cmsadmin/internal/models"
	"cmsadmin/internal/repository"
	"cmsadmin/internal/service"
)

// Admin credentials of the seeded administrator.
const (
	AdminEmail    = "admin@example.com"
	AdminPassword = "admin123"
	AdminName     = "Administrador"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumPosts    int
	ShouldClean bool
	// HashPasswords stores bcrypt hashes instead of plain passwords.
	HashPasswords bool
	// RandSeed makes the fake content reproducible. Zero picks a random seed.
	RandSeed int64
}

// Summary counts what a run created.
type Summary struct {
	Users      int
	Categories int
	Posts      int
}

// Seeder writes demo content through the collection service, so records get
// the same slugs, timestamps and password handling as API writes.
type Seeder struct {
	repo repository.DocumentRepository
	now  func() time.Time
}

// NewSeeder creates a Seeder over repo.
func NewSeeder(repo repository.DocumentRepository) *Seeder {
	return &Seeder{repo: repo, now: time.Now}
}

// ClearAll removes every record of every collection.
func (s *Seeder) ClearAll(ctx context.Context) error {
	log.Println("🧹 Cleaning existing data...")
	for _, c := range models.Collections {
		if err := s.repo.Truncate(ctx, c); err != nil {
			return fmt.Errorf("truncate %s: %w", c, err)
		}
	}
	return nil
}

// Run seeds settings, the admin account, users, categories and posts.
func (s *Seeder) Run(ctx context.Context, opts Options) (Summary, error) {
	var sum Summary
	if opts.ShouldClean {
		if err := s.ClearAll(ctx); err != nil {
			return sum, err
		}
	}

	svc := service.NewCollectionService(s.repo, service.CollectionOptions{HashPasswords: opts.HashPasswords})
	factory := NewFactory(opts.RandSeed, s.now())

	if err := s.seedSettings(ctx); err != nil {
		return sum, err
	}

	admin, err := s.create(ctx, svc, models.CollectionUsers, models.User{
		Name:     AdminName,
		Email:    AdminEmail,
		Password: AdminPassword,
		Role:     models.RoleAdmin,
	})
	if err != nil {
		return sum, fmt.Errorf("create admin: %w", err)
	}
	adminID, _ := admin.ID()
	authors := []int64{adminID}
	sum.Users++

	roles := []string{models.RoleEditor, models.RoleAuthor, models.RoleAuthor}
	for i := 0; i < opts.NumUsers; i++ {
		u, err := s.create(ctx, svc, models.CollectionUsers, factory.BuildUser(roles[i%len(roles)], "senha123"))
		if err != nil {
			return sum, fmt.Errorf("create user: %w", err)
		}
		id, _ := u.ID()
		authors = append(authors, id)
		sum.Users++
	}
	log.Printf("✅ Created %d users", sum.Users)

	slugs := make([]string, 0, len(DefaultCategories))
	for _, c := range DefaultCategories {
		rec, err := s.create(ctx, svc, models.CollectionCategories, c)
		if err != nil {
			return sum, fmt.Errorf("create category %q: %w", c.Name, err)
		}
		slugs = append(slugs, rec.String("slug"))
		sum.Categories++
	}
	log.Printf("✅ Created %d categories", sum.Categories)

	for i := 0; i < opts.NumPosts; i++ {
		post := factory.BuildPost(authors[i%len(authors)], slugs)
		if _, err := s.create(ctx, svc, models.CollectionPosts, post); err != nil {
			return sum, fmt.Errorf("create post: %w", err)
		}
		sum.Posts++
	}
	log.Printf("✅ Created %d posts", sum.Posts)

	return sum, nil
}

// seedSettings writes the default settings, replacing any existing singleton.
func (s *Seeder) seedSettings(ctx context.Context) error {
	rec, err := models.ToRecord(models.DefaultSettings())
	if err != nil {
		return err
	}
	if _, err := s.repo.Delete(ctx, models.CollectionSettings, models.SettingsID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("reset settings: %w", err)
	}
	if _, err := s.repo.Create(ctx, models.CollectionSettings, rec); err != nil {
		return fmt.Errorf("create settings: %w", err)
	}
	return nil
}

func (s *Seeder) create(ctx context.Context, svc *service.CollectionService, collection string, v any) (models.Record, error) {
	rec, err := models.ToRecord(v)
	if err != nil {
		return nil, err
	}
	// Zero ids from the typed models mean "assign one".
	if id, ok := rec.ID(); ok && id == 0 {
		delete(rec, "id")
	}
	stored, _, err := svc.Create(ctx, service.WriteInput{Collection: collection, Payload: rec})
	return stored, err
}
