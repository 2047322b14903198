// Command seed populates the configured store with demo content.
package main

import (
	"context"
	"flag"
	"log"

	"cmsadmin/internal/bootstrap"
	"cmsadmin/internal/config"
	"cmsadmin/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 10, "Number of users to create besides the admin")
	numPosts := flag.Int("posts", 40, "Number of posts to create")
	shouldClean := flag.Bool("clean", true, "Remove existing records before seeding")
	randSeed := flag.Int64("seed", 0, "Random seed for reproducible content (0 = random)")
	flag.Parse()

	log.Println("🌱 CMS Seeder")
	log.Println("=============")
	log.Printf("Target: %d users, %d posts, clean=%v\n", *numUsers, *numPosts, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	repo, err := bootstrap.OpenRepository(cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer repo.Close()

	sum, err := seed.NewSeeder(repo).Run(ctx, seed.Options{
		NumUsers:      *numUsers,
		NumPosts:      *numPosts,
		ShouldClean:   *shouldClean,
		HashPasswords: cfg.PasswordHashing,
		RandSeed:      *randSeed,
	})
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✨ Done: %d users, %d categories, %d posts.", sum.Users, sum.Categories, sum.Posts)
	log.Printf("🔑 Admin login: %s / %s", seed.AdminEmail, seed.AdminPassword)
	log.Println("📧 Other users have the password: senha123")
}
