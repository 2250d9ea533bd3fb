package seed

import (
	"context"
	"fmt"
	"log"

	"moodboard/internal/models"
	"moodboard/internal/storage"
)

// Options configures a seeding run.
type Options struct {
	NumUsers       int
	VibesPerUser   int
	NumCommunities int
	ShouldClean    bool
}

// Seed populates the document store with demo users, vibes, friendships,
// and communities.
func Seed(ctx context.Context, docs storage.DocumentStore, secret string, opts Options) error {
	if opts.NumUsers <= 0 {
		opts.NumUsers = 10
	}
	if opts.VibesPerUser <= 0 {
		opts.VibesPerUser = 5
	}
	if opts.NumCommunities <= 0 {
		opts.NumCommunities = 3
	}

	log.Printf("Seeding %d users, %d vibes each, %d communities...",
		opts.NumUsers, opts.VibesPerUser, opts.NumCommunities)

	if opts.ShouldClean {
		if err := Clean(ctx, docs); err != nil {
			return fmt.Errorf("clean: %w", err)
		}
	}

	f := NewFactory(docs, secret)

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		user, err := f.CreateUser(ctx)
		if err != nil {
			return err
		}
		users = append(users, user)

		for j := 0; j < opts.VibesPerUser; j++ {
			if _, err := f.CreateVibe(ctx, user); err != nil {
				return err
			}
		}
	}

	// Chain friendships so every user has at least one friend.
	for i := 1; i < len(users); i++ {
		if err := f.Befriend(ctx, users[i-1], users[i]); err != nil {
			return err
		}
	}

	for i := 0; i < opts.NumCommunities && i < len(users); i++ {
		owner := users[i]
		members := users[i+1:]
		if len(members) > 4 {
			members = members[:4]
		}
		community, err := f.CreateCommunity(ctx, owner, members)
		if err != nil {
			return err
		}
		if _, err := f.docs.Add(ctx, storage.CollectionCommunityPosts, mustEncode(models.CommunityPost{
			CommunityID: community.ID,
			UserID:      owner.ID,
			Username:    owner.Username,
			Text:        "Welcome to " + community.Name + "!",
			Timestamp:   models.InstantOf(f.clock()),
			LikedBy:     []string{},
		})); err != nil {
			return err
		}
	}

	log.Printf("Seeding complete: %d users", len(users))
	return nil
}

// Clean removes all seedable collections. Destructive; development only.
func Clean(ctx context.Context, docs storage.DocumentStore) error {
	collections := []string{
		storage.CollectionCommunityPosts,
		storage.CollectionCommunities,
		storage.CollectionNotifications,
		storage.CollectionVibes,
		storage.CollectionUsers,
		storage.CollectionCredentials,
	}
	for _, collection := range collections {
		if err := docs.DeleteWhere(ctx, collection); err != nil {
			return fmt.Errorf("clear %s: %w", collection, err)
		}
	}
	return nil
}

func mustEncode(v any) storage.Doc {
	doc, err := storage.Encode(v)
	if err != nil {
		panic(err)
	}
	return doc
}
