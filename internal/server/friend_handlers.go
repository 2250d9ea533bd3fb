package server

import (
	"moodboard/internal/cache"
	"moodboard/internal/feed"
	"moodboard/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// SendFriendRequest handles POST /api/friends/requests/:userId.
func (s *Server) SendFriendRequest(c *fiber.Ctx) error {
	st, err := s.sessionFor(c)
	if err != nil {
		return nil
	}
	targetID, err := requireParam(c, "userId", "user id")
	if err != nil {
		return nil
	}

	if err := st.SendFriendRequest(c.Context(), targetID); err != nil {
		return respondOpError(c, err)
	}
	s.publishToUser(c, targetID, feed.Event{Type: feed.EventNotification})
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Friend request sent"})
}

// AcceptFriendRequest handles POST /api/friends/requests/:userId/accept.
func (s *Server) AcceptFriendRequest(c *fiber.Ctx) error {
	st, err := s.sessionFor(c)
	if err != nil {
		return nil
	}
	targetID, err := requireParam(c, "userId", "user id")
	if err != nil {
		return nil
	}

	if err := st.AcceptFriendRequest(c.Context(), targetID); err != nil {
		return respondOpError(c, err)
	}
	if selfID, ok := middleware.UserIDFromLocals(c); ok {
		s.invalidateProfiles(c, targetID, selfID)
	}
	s.publishToUser(c, targetID, feed.Event{Type: feed.EventNotification})
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Friend request accepted"})
}

// RejectFriendRequest handles POST /api/friends/requests/:userId/reject.
func (s *Server) RejectFriendRequest(c *fiber.Ctx) error {
	st, err := s.sessionFor(c)
	if err != nil {
		return nil
	}
	targetID, err := requireParam(c, "userId", "user id")
	if err != nil {
		return nil
	}

	if err := st.RejectFriendRequest(c.Context(), targetID); err != nil {
		return respondOpError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Friend request rejected"})
}

// CancelFriendRequest handles DELETE /api/friends/requests/:userId.
func (s *Server) CancelFriendRequest(c *fiber.Ctx) error {
	st, err := s.sessionFor(c)
	if err != nil {
		return nil
	}
	targetID, err := requireParam(c, "userId", "user id")
	if err != nil {
		return nil
	}

	if err := st.CancelFriendRequest(c.Context(), targetID); err != nil {
		return respondOpError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Friend request cancelled"})
}

// RemoveFriend handles DELETE /api/friends/:userId.
func (s *Server) RemoveFriend(c *fiber.Ctx) error {
	st, err := s.sessionFor(c)
	if err != nil {
		return nil
	}
	targetID, err := requireParam(c, "userId", "user id")
	if err != nil {
		return nil
	}

	if err := st.RemoveFriend(c.Context(), targetID); err != nil {
		return respondOpError(c, err)
	}
	if selfID, ok := middleware.UserIDFromLocals(c); ok {
		s.invalidateProfiles(c, targetID, selfID)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Friend removed"})
}

// GetNotifications handles GET /api/notifications. The list is refetched so
// notifications created by other users since hydration show up.
func (s *Server) GetNotifications(c *fiber.Ctx) error {
	st, err := s.sessionFor(c)
	if err != nil {
		return nil
	}

	if err := st.FetchNotifications(c.Context()); err != nil {
		return respondOpError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"notifications": st.State().Notifications,
	})
}

// MarkNotificationRead handles POST /api/notifications/:id/read.
func (s *Server) MarkNotificationRead(c *fiber.Ctx) error {
	st, err := s.sessionFor(c)
	if err != nil {
		return nil
	}
	notificationID, err := requireParam(c, "id", "notification id")
	if err != nil {
		return nil
	}

	if err := st.MarkNotificationRead(c.Context(), notificationID); err != nil {
		return respondOpError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Notification read"})
}

// invalidateProfiles drops cached profiles after a mutation that touched
// friendship state on both sides.
func (s *Server) invalidateProfiles(c *fiber.Ctx, userIDs ...string) {
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, cache.UserProfileKey(id))
	}
	cache.Invalidate(c.Context(), keys...)
}
