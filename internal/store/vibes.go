package store

import (
	"context"
	"errors"
	"time"

	"moodboard/internal/models"
	"moodboard/internal/storage"
)

// SubscribeVibes establishes the live vibe feed. Re-subscribing tears down
// the previous subscription first, so calling it again (e.g. on refresh) is
// idempotent. The returned cancel stops the feed.
func (s *Store) SubscribeVibes(ctx context.Context) (func(), error) {
	s.mu.Lock()
	prev := s.unsubVibes
	s.unsubVibes = nil
	s.mu.Unlock()
	if prev != nil {
		prev()
	}

	query := storage.Query{OrderBy: "timestamp", Desc: true}
	cancel, err := s.docs.Subscribe(ctx, storage.CollectionVibes, query, func(docs []storage.Doc) {
		vibes, err := storage.DecodeAll[models.Vibe](docs)
		if err != nil {
			s.logger.Error("failed to decode vibe feed", "error", err)
			return
		}
		s.mu.Lock()
		s.vibes = vibes
		s.mu.Unlock()
		s.notify()
	})
	if err != nil {
		return nil, models.NewRemoteError(err)
	}

	s.mu.Lock()
	s.unsubVibes = cancel
	s.mu.Unlock()
	return cancel, nil
}

// PostMood creates a vibe and advances the user's streak and mood score.
// This path is not optimistic: the post and the profile counters are
// confirmed remotely first, and local state changes only on success.
func (s *Store) PostMood(ctx context.Context, mood, text, city, emoji string) error {
	user := s.currentUser()
	if user == nil {
		return models.NewUnauthorizedError("Not signed in")
	}
	if mood == "" {
		return models.NewValidationError("Mood is required")
	}
	if len([]rune(text)) > models.MaxVibeTextLen {
		return models.NewValidationError("Vibe text is too long")
	}
	if city == "" {
		city = models.UnknownCity
	}
	if emoji == "" {
		emoji = models.MoodEmoji(mood)
	}

	now := models.InstantOf(s.clock())
	vibe := models.Vibe{
		UserID:    user.ID,
		Username:  user.Username,
		Mood:      mood,
		Emoji:     emoji,
		Text:      text,
		City:      city,
		Timestamp: now,
		LikedBy:   []string{},
	}
	doc, err := storage.Encode(vibe)
	if err != nil {
		return models.NewRemoteError(err)
	}
	if _, err := s.docs.Add(ctx, storage.CollectionVibes, doc); err != nil {
		return models.NewRemoteError(err)
	}

	streak := nextStreak(user.Streak, user.LastPostedDate, now, s.loc)
	moodScore := user.MoodScore + 1
	err = s.docs.Update(ctx, storage.CollectionUsers, user.ID,
		storage.Set("streak", streak),
		storage.Set("lastPostedDate", now.UnixMilli()),
		storage.Set("moodScore", moodScore),
	)
	if err != nil {
		return models.NewRemoteError(err)
	}

	s.mu.Lock()
	if s.user != nil {
		s.user.Streak = streak
		s.user.LastPostedDate = &now
		s.user.MoodScore = moodScore
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

// nextStreak advances the consecutive-day counter. Posting again on the same
// calendar day keeps the streak, the next day extends it, and any gap resets
// it to one.
func nextStreak(prev int, last *models.Instant, now models.Instant, loc *time.Location) int {
	if last == nil {
		return 1
	}
	switch models.DaysBetween(*last, now, loc) {
	case 0:
		return prev
	case 1:
		return prev + 1
	default:
		return 1
	}
}

// ToggleLike flips the caller's like on a vibe, optimistically. The remote
// write is the one place the single-document transaction primitive is used,
// keeping likes equal to the liked-by set size under concurrent toggles.
// Toggling a vibe not present locally is a no-op.
func (s *Store) ToggleLike(ctx context.Context, vibeID string) error {
	user := s.currentUser()
	if user == nil {
		return nil
	}
	userID := user.ID

	s.mu.Lock()
	idx := -1
	for i := range s.vibes {
		if s.vibes[i].ID == vibeID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	ownerID := s.vibes[idx].UserID
	wasLiked := s.vibes[idx].LikedByUser(userID)
	s.mu.Unlock()

	err := s.runOptimistic(ctx, func() func() {
		i := -1
		for j := range s.vibes {
			if s.vibes[j].ID == vibeID {
				i = j
				break
			}
		}
		if i < 0 {
			return func() {}
		}
		prev := s.vibes[i]
		if wasLiked {
			s.vibes[i].LikedBy = removeString(prev.LikedBy, userID)
			s.vibes[i].Likes = prev.Likes - 1
		} else {
			s.vibes[i].LikedBy = append(cloneStrings(prev.LikedBy), userID)
			s.vibes[i].Likes = prev.Likes + 1
		}
		return func() {
			for j := range s.vibes {
				if s.vibes[j].ID == vibeID {
					s.vibes[j] = prev
					return
				}
			}
		}
	}, func(ctx context.Context) error {
		return s.toggleLikeRemote(ctx, vibeID, userID)
	})
	if err != nil {
		return err
	}

	// Best effort: the like already succeeded, a failed notification must
	// not undo it.
	if !wasLiked && ownerID != userID {
		if err := s.createNotification(ctx, models.NotificationLike, userID, ownerID, vibeID); err != nil {
			s.logger.Warn("failed to create like notification", "vibeId", vibeID, "error", err)
		}
	}
	return nil
}

func (s *Store) toggleLikeRemote(ctx context.Context, vibeID, userID string) error {
	err := s.docs.RunTransaction(ctx, storage.CollectionVibes, vibeID, func(doc storage.Doc) (storage.Doc, error) {
		var vibe models.Vibe
		if err := storage.Decode(doc, &vibe); err != nil {
			return nil, err
		}
		if vibe.LikedByUser(userID) {
			vibe.LikedBy = removeString(vibe.LikedBy, userID)
		} else {
			vibe.LikedBy = append(vibe.LikedBy, userID)
		}
		vibe.Likes = len(vibe.LikedBy)
		return storage.Encode(vibe)
	})
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return models.NewNotFoundError("vibe", vibeID)
	case errors.Is(err, storage.ErrConflict):
		return models.NewConflictError("vibe", vibeID)
	default:
		return err
	}
}

// UpdateVibe edits a vibe's text, confirming remotely before mirroring the
// change locally.
func (s *Store) UpdateVibe(ctx context.Context, vibeID, text string) error {
	if len([]rune(text)) > models.MaxVibeTextLen {
		return models.NewValidationError("Vibe text is too long")
	}
	if err := s.docs.Update(ctx, storage.CollectionVibes, vibeID, storage.Set("text", text)); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.NewNotFoundError("vibe", vibeID)
		}
		return models.NewRemoteError(err)
	}

	s.mu.Lock()
	for i := range s.vibes {
		if s.vibes[i].ID == vibeID {
			s.vibes[i].Text = text
			break
		}
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

// DeleteVibe removes a vibe, confirming remotely first.
func (s *Store) DeleteVibe(ctx context.Context, vibeID string) error {
	if err := s.docs.Delete(ctx, storage.CollectionVibes, vibeID); err != nil {
		return models.NewRemoteError(err)
	}

	s.mu.Lock()
	kept := s.vibes[:0]
	for _, v := range s.vibes {
		if v.ID != vibeID {
			kept = append(kept, v)
		}
	}
	s.vibes = kept
	s.mu.Unlock()
	s.notify()
	return nil
}

// UserVibes returns the given user's vibes, newest first.
func (s *Store) UserVibes(ctx context.Context, userID string) ([]models.Vibe, error) {
	docs, err := s.docs.Query(ctx, storage.CollectionVibes, storage.Query{
		Filters: []storage.Filter{storage.Where("userId", userID)},
		OrderBy: "timestamp",
		Desc:    true,
	})
	if err != nil {
		return nil, models.NewRemoteError(err)
	}
	vibes, err := storage.DecodeAll[models.Vibe](docs)
	if err != nil {
		return nil, models.NewRemoteError(err)
	}
	return vibes, nil
}
