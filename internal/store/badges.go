package store

import (
	"context"

	"moodboard/internal/models"
	"moodboard/internal/storage"
)

// ComputeEarnedBadges derives the badges a user should hold from their
// profile counters and own posts. It is pure and idempotent: on unchanged
// inputs it returns the same set, and the result never shrinks a stored set
// because callers persist only the union. Ad-category badges are never
// derived here.
func ComputeEarnedBadges(user *models.User, posts []models.Vibe) []string {
	var earned []string
	add := func(id string) { earned = append(earned, id) }

	add(models.BadgeFounding)

	postCount := len(posts)
	if postCount >= 1 {
		add(models.BadgeFirstPost)
	}
	if postCount >= 3 {
		add(models.BadgeThreePosts)
	}
	if postCount >= 10 {
		add(models.BadgeTenPosts)
	}

	if user.Streak >= 7 {
		add(models.BadgeStreak7)
	}
	if user.Streak >= 30 {
		add(models.BadgeStreak30)
	}
	if user.Streak >= 100 {
		add(models.BadgeStreak100)
	}

	if len(user.Friends) >= 5 {
		add(models.BadgeMitra)
	}
	if len(user.JoinedCircles) >= 3 {
		add(models.BadgeSangha)
	}

	totalLikes := 0
	cities := map[string]bool{}
	for _, post := range posts {
		totalLikes += post.Likes
		if post.City != "" {
			cities[post.City] = true
		}
	}
	if totalLikes >= 50 {
		add(models.BadgeDilSe)
	}
	if len(cities) >= 3 {
		add(models.BadgeDesiVibes)
	}

	return earned
}

// RefreshBadges recomputes the current user's earned badges and persists the
// union when anything new was unlocked. It returns the ids granted by this
// evaluation, empty when nothing changed.
func (s *Store) RefreshBadges(ctx context.Context) ([]string, error) {
	user := s.currentUser()
	if user == nil {
		return nil, models.NewUnauthorizedError("Not signed in")
	}

	posts, err := s.UserVibes(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	earned := ComputeEarnedBadges(user, posts)
	merged := cloneStrings(user.Badges)
	var granted []string
	for _, id := range earned {
		if !containsString(merged, id) {
			merged = append(merged, id)
			granted = append(granted, id)
		}
	}
	if len(granted) == 0 {
		return nil, nil
	}

	if err := s.docs.Update(ctx, storage.CollectionUsers, user.ID, storage.Set("badges", merged)); err != nil {
		return nil, models.NewRemoteError(err)
	}

	s.mu.Lock()
	if s.user != nil {
		s.user.Badges = merged
	}
	s.mu.Unlock()
	s.notify()
	return granted, nil
}

// UnlockAdBadge grants an ad-gated badge after an explicit user action.
// Ad badges bypass derivation entirely; unlocking one twice is a no-op.
func (s *Store) UnlockAdBadge(ctx context.Context, badgeID string) error {
	user := s.currentUser()
	if user == nil {
		return models.NewUnauthorizedError("Not signed in")
	}
	badge, ok := models.BadgeByID(badgeID)
	if !ok {
		return models.NewNotFoundError("badge", badgeID)
	}
	if badge.Category != models.BadgeCategoryAd {
		return models.NewValidationError("This badge cannot be unlocked by watching an ad")
	}
	if user.HasBadge(badgeID) {
		return nil
	}

	updated := append(cloneStrings(user.Badges), badgeID)
	if err := s.docs.Update(ctx, storage.CollectionUsers, user.ID, storage.Set("badges", updated)); err != nil {
		return models.NewRemoteError(err)
	}

	s.mu.Lock()
	if s.user != nil {
		s.user.Badges = updated
	}
	s.mu.Unlock()
	s.notify()
	return nil
}
