// Command main populates the document store with test data for Moodboard.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"moodboard/internal/config"
	"moodboard/internal/seed"
	"moodboard/internal/server"
)

func main() {
	numUsers := flag.Int("users", 10, "Number of users to create")
	vibesPerUser := flag.Int("vibes", 5, "Number of vibes per user")
	numCommunities := flag.Int("communities", 3, "Number of communities to create")
	shouldClean := flag.Bool("clean", true, "Clean the store before seeding")
	flag.Parse()

	log.Println("🌱 Moodboard Seeder")
	log.Println("===================")
	log.Printf("Target: %d users, %d vibes each, %d communities, clean=%v\n",
		*numUsers, *vibesPerUser, *numCommunities, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.StorageDriver == config.DriverMemory {
		log.Fatal("❌ STORAGE_DRIVER=memory holds data in-process; seeding it here would be discarded on exit")
	}

	docs, err := server.OpenDocumentStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open document store: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := seed.Seed(ctx, docs, cfg.JWTSecret, seed.Options{
		NumUsers:       *numUsers,
		VibesPerUser:   *vibesPerUser,
		NumCommunities: *numCommunities,
		ShouldClean:    *shouldClean,
	}); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Println("✨ All done! The store is now populated with test data.")
	log.Println("📧 All test users have the password: Password1")
}
