package store

import (
	"context"

	"moodboard/internal/models"
	"moodboard/internal/storage"
)

// Friend-request transitions mutate symmetric fields on two user documents.
// The writes use set-union and set-remove operators, which are commutative
// and convergent, so the two documents converge without a cross-document
// transaction even when requests race.

// SendFriendRequest records a pending request from the current user to the
// target, optimistically, and notifies the target.
func (s *Store) SendFriendRequest(ctx context.Context, targetUserID string) error {
	user := s.currentUser()
	if user == nil {
		return models.NewUnauthorizedError("Not signed in")
	}
	if targetUserID == user.ID {
		return models.NewValidationError("Cannot send friend request to yourself")
	}
	userID := user.ID

	err := s.runOptimistic(ctx, func() func() {
		if s.user == nil {
			return func() {}
		}
		prev := s.user.SentFriendRequests
		s.user.SentFriendRequests = append(cloneStrings(prev), targetUserID)
		return func() {
			if s.user != nil {
				s.user.SentFriendRequests = prev
			}
		}
	}, func(ctx context.Context) error {
		if err := s.docs.Update(ctx, storage.CollectionUsers, userID,
			storage.Union("sentFriendRequests", targetUserID)); err != nil {
			return err
		}
		return s.docs.Update(ctx, storage.CollectionUsers, targetUserID,
			storage.Union("friendRequests", userID))
	})
	if err != nil {
		return err
	}

	if err := s.createNotification(ctx, models.NotificationFriendRequest, userID, targetUserID, ""); err != nil {
		s.logger.Warn("failed to create friend request notification", "targetUserId", targetUserID, "error", err)
	}
	return nil
}

// AcceptFriendRequest turns a received request into a friendship on both
// sides and notifies the requester.
func (s *Store) AcceptFriendRequest(ctx context.Context, targetUserID string) error {
	user := s.currentUser()
	if user == nil {
		return models.NewUnauthorizedError("Not signed in")
	}
	userID := user.ID

	err := s.runOptimistic(ctx, func() func() {
		if s.user == nil {
			return func() {}
		}
		prevFriends := s.user.Friends
		prevRequests := s.user.FriendRequests
		s.user.Friends = append(cloneStrings(prevFriends), targetUserID)
		s.user.FriendRequests = removeString(prevRequests, targetUserID)
		return func() {
			if s.user != nil {
				s.user.Friends = prevFriends
				s.user.FriendRequests = prevRequests
			}
		}
	}, func(ctx context.Context) error {
		if err := s.docs.Update(ctx, storage.CollectionUsers, userID,
			storage.Union("friends", targetUserID),
			storage.Remove("friendRequests", targetUserID)); err != nil {
			return err
		}
		return s.docs.Update(ctx, storage.CollectionUsers, targetUserID,
			storage.Union("friends", userID),
			storage.Remove("sentFriendRequests", userID))
	})
	if err != nil {
		return err
	}

	if err := s.createNotification(ctx, models.NotificationFriendAccept, userID, targetUserID, ""); err != nil {
		s.logger.Warn("failed to create friend accept notification", "targetUserId", targetUserID, "error", err)
	}
	return nil
}

// RejectFriendRequest drops a received request without creating a
// friendship. No notification is sent.
func (s *Store) RejectFriendRequest(ctx context.Context, targetUserID string) error {
	user := s.currentUser()
	if user == nil {
		return models.NewUnauthorizedError("Not signed in")
	}
	userID := user.ID

	return s.runOptimistic(ctx, func() func() {
		if s.user == nil {
			return func() {}
		}
		prev := s.user.FriendRequests
		s.user.FriendRequests = removeString(prev, targetUserID)
		return func() {
			if s.user != nil {
				s.user.FriendRequests = prev
			}
		}
	}, func(ctx context.Context) error {
		if err := s.docs.Update(ctx, storage.CollectionUsers, userID,
			storage.Remove("friendRequests", targetUserID)); err != nil {
			return err
		}
		return s.docs.Update(ctx, storage.CollectionUsers, targetUserID,
			storage.Remove("sentFriendRequests", userID))
	})
}

// CancelFriendRequest withdraws a request the current user sent.
func (s *Store) CancelFriendRequest(ctx context.Context, targetUserID string) error {
	user := s.currentUser()
	if user == nil {
		return models.NewUnauthorizedError("Not signed in")
	}
	userID := user.ID

	return s.runOptimistic(ctx, func() func() {
		if s.user == nil {
			return func() {}
		}
		prev := s.user.SentFriendRequests
		s.user.SentFriendRequests = removeString(prev, targetUserID)
		return func() {
			if s.user != nil {
				s.user.SentFriendRequests = prev
			}
		}
	}, func(ctx context.Context) error {
		if err := s.docs.Update(ctx, storage.CollectionUsers, userID,
			storage.Remove("sentFriendRequests", targetUserID)); err != nil {
			return err
		}
		return s.docs.Update(ctx, storage.CollectionUsers, targetUserID,
			storage.Remove("friendRequests", userID))
	})
}

// RemoveFriend dissolves an existing friendship on both sides.
func (s *Store) RemoveFriend(ctx context.Context, targetUserID string) error {
	user := s.currentUser()
	if user == nil {
		return models.NewUnauthorizedError("Not signed in")
	}
	userID := user.ID

	return s.runOptimistic(ctx, func() func() {
		if s.user == nil {
			return func() {}
		}
		prev := s.user.Friends
		s.user.Friends = removeString(prev, targetUserID)
		return func() {
			if s.user != nil {
				s.user.Friends = prev
			}
		}
	}, func(ctx context.Context) error {
		if err := s.docs.Update(ctx, storage.CollectionUsers, userID,
			storage.Remove("friends", targetUserID)); err != nil {
			return err
		}
		return s.docs.Update(ctx, storage.CollectionUsers, targetUserID,
			storage.Remove("friends", userID))
	})
}
