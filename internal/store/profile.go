package store

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"moodboard/internal/models"
	"moodboard/internal/storage"
	"moodboard/internal/validation"
)

// Word lists for placeholder usernames.
var (
	usernameAdjectives = []string{"Happy", "Calm", "Bright", "Kind", "Gentle", "Peaceful", "Joyful", "Warm"}
	usernameNouns      = []string{"Lotus", "River", "Mountain", "Star", "Moon", "Cloud", "Wind", "Light"}
)

// UpdateUsername changes the current user's username after checking it is
// not taken, confirming remotely before mirroring locally.
func (s *Store) UpdateUsername(ctx context.Context, username string) error {
	user := s.currentUser()
	if user == nil {
		return models.NewUnauthorizedError("Not signed in")
	}
	if err := validation.ValidateUsername(username); err != nil {
		return models.NewValidationError(err.Error())
	}

	taken, err := s.usernameExists(ctx, username, user.ID)
	if err != nil {
		return models.NewRemoteError(err)
	}
	if taken {
		return models.NewConflictError("username", username)
	}

	if err := s.docs.Update(ctx, storage.CollectionUsers, user.ID, storage.Set("username", username)); err != nil {
		return models.NewRemoteError(err)
	}

	s.mu.Lock()
	if s.user != nil {
		s.user.Username = username
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

// RegenerateUsername replaces the username with a random adjective-noun pair.
func (s *Store) RegenerateUsername(ctx context.Context) error {
	username := fmt.Sprintf("%s%s%d",
		usernameAdjectives[rand.Intn(len(usernameAdjectives))],
		usernameNouns[rand.Intn(len(usernameNouns))],
		rand.Intn(100))
	return s.UpdateUsername(ctx, username)
}

// UpdateAvatar points the profile at a new avatar image reference.
func (s *Store) UpdateAvatar(ctx context.Context, avatarURL string) error {
	user := s.currentUser()
	if user == nil {
		return models.NewUnauthorizedError("Not signed in")
	}

	if err := s.docs.Update(ctx, storage.CollectionUsers, user.ID, storage.Set("avatarUrl", avatarURL)); err != nil {
		return models.NewRemoteError(err)
	}

	s.mu.Lock()
	if s.user != nil {
		s.user.AvatarURL = avatarURL
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

// SearchUsers returns users whose username starts with the query, case
// insensitively, ordered by username.
func (s *Store) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	if query == "" {
		return nil, nil
	}
	docs, err := s.docs.Query(ctx, storage.CollectionUsers, storage.Query{OrderBy: "username"})
	if err != nil {
		return nil, models.NewRemoteError(err)
	}
	users, err := storage.DecodeAll[models.User](docs)
	if err != nil {
		return nil, models.NewRemoteError(err)
	}

	prefix := strings.ToLower(query)
	matched := users[:0]
	for _, u := range users {
		if strings.HasPrefix(strings.ToLower(u.Username), prefix) {
			matched = append(matched, u)
		}
	}
	return matched, nil
}

// AllUsers lists users ordered by username, capped.
func (s *Store) AllUsers(ctx context.Context) ([]models.User, error) {
	docs, err := s.docs.Query(ctx, storage.CollectionUsers, storage.Query{OrderBy: "username", Limit: 50})
	if err != nil {
		return nil, models.NewRemoteError(err)
	}
	return storage.DecodeAll[models.User](docs)
}

// LookupUser fetches another user's public profile.
func (s *Store) LookupUser(ctx context.Context, userID string) (*models.User, error) {
	user := s.lookupUser(ctx, userID)
	if user == nil {
		return nil, models.NewNotFoundError("user", userID)
	}
	return user, nil
}

func (s *Store) usernameExists(ctx context.Context, username, excludeUserID string) (bool, error) {
	docs, err := s.docs.Query(ctx, storage.CollectionUsers, storage.Query{
		Filters: []storage.Filter{storage.Where("username", username)},
	})
	if err != nil {
		return false, err
	}
	for _, doc := range docs {
		if id, _ := doc["id"].(string); id != excludeUserID {
			return true, nil
		}
	}
	return false, nil
}
