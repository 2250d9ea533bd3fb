package server

import (
	"moodboard/internal/cache"
	"moodboard/internal/feed"
	"moodboard/internal/middleware"
	"moodboard/internal/models"
	"moodboard/internal/store"

	"github.com/gofiber/fiber/v2"
)

// GetCommunities handles GET /api/communities.
func (s *Server) GetCommunities(c *fiber.Ctx) error {
	st, err := s.sessionFor(c)
	if err != nil {
		return nil
	}

	if err := st.FetchCommunities(c.Context()); err != nil {
		return respondOpError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"communities": st.State().Communities,
	})
}

// CreateCommunity handles POST /api/communities.
func (s *Server) CreateCommunity(c *fiber.Ctx) error {
	st, err := s.sessionFor(c)
	if err != nil {
		return nil
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		BannerURL   string `json:"bannerUrl"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	community, opErr := st.CreateCommunity(c.Context(), req.Name, req.Description, req.BannerURL)
	if opErr != nil {
		return respondOpError(c, opErr)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"community": community})
}

// EditCommunity handles PUT /api/communities/:id.
func (s *Server) EditCommunity(c *fiber.Ctx) error {
	st, err := s.sessionFor(c)
	if err != nil {
		return nil
	}
	communityID, err := requireParam(c, "id", "community id")
	if err != nil {
		return nil
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		BannerURL   string `json:"bannerUrl"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := st.EditCommunity(c.Context(), communityID, req.Name, req.Description, req.BannerURL); err != nil {
		return respondOpError(c, err)
	}
	cache.Invalidate(c.Context(), cache.CommunityKey(communityID))
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Community updated"})
}

// DeleteCommunity handles DELETE /api/communities/:id.
func (s *Server) DeleteCommunity(c *fiber.Ctx) error {
	st, err := s.sessionFor(c)
	if err != nil {
		return nil
	}
	communityID, err := requireParam(c, "id", "community id")
	if err != nil {
		return nil
	}

	if err := st.DeleteCommunity(c.Context(), communityID); err != nil {
		return respondOpError(c, err)
	}
	cache.Invalidate(c.Context(), cache.CommunityKey(communityID))
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Community deleted"})
}

// JoinCommunity handles POST /api/communities/:id/join.
func (s *Server) JoinCommunity(c *fiber.Ctx) error {
	st, err := s.sessionFor(c)
	if err != nil {
		return nil
	}
	communityID, err := requireParam(c, "id", "community id")
	if err != nil {
		return nil
	}

	if err := st.JoinCommunity(c.Context(), communityID); err != nil {
		return respondOpError(c, err)
	}
	cache.Invalidate(c.Context(), cache.CommunityKey(communityID))
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Joined community"})
}

// LeaveCommunity handles POST /api/communities/:id/leave.
func (s *Server) LeaveCommunity(c *fiber.Ctx) error {
	st, err := s.sessionFor(c)
	if err != nil {
		return nil
	}
	communityID, err := requireParam(c, "id", "community id")
	if err != nil {
		return nil
	}

	if err := st.LeaveCommunity(c.Context(), communityID); err != nil {
		return respondOpError(c, err)
	}
	cache.Invalidate(c.Context(), cache.CommunityKey(communityID))
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Left community"})
}

// RequestToJoin handles POST /api/communities/:id/requests.
func (s *Server) RequestToJoin(c *fiber.Ctx) error {
	st, err := s.sessionFor(c)
	if err != nil {
		return nil
	}
	communityID, err := requireParam(c, "id", "community id")
	if err != nil {
		return nil
	}

	if err := st.RequestToJoin(c.Context(), communityID); err != nil {
		return respondOpError(c, err)
	}
	s.notifyCommunityAdmins(c, st, communityID)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Join request sent"})
}

// AcceptJoinRequest handles POST /api/communities/:id/requests/:userId/accept.
func (s *Server) AcceptJoinRequest(c *fiber.Ctx) error {
	st, err := s.sessionFor(c)
	if err != nil {
		return nil
	}
	communityID, err := requireParam(c, "id", "community id")
	if err != nil {
		return nil
	}
	userID, err := requireParam(c, "userId", "user id")
	if err != nil {
		return nil
	}

	if err := st.AcceptJoinRequest(c.Context(), communityID, userID); err != nil {
		return respondOpError(c, err)
	}
	cache.Invalidate(c.Context(), cache.CommunityKey(communityID))
	s.publishToUser(c, userID, feed.Event{Type: feed.EventNotification})
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Join request accepted"})
}

// RejectJoinRequest handles POST /api/communities/:id/requests/:userId/reject.
func (s *Server) RejectJoinRequest(c *fiber.Ctx) error {
	st, err := s.sessionFor(c)
	if err != nil {
		return nil
	}
	communityID, err := requireParam(c, "id", "community id")
	if err != nil {
		return nil
	}
	userID, err := requireParam(c, "userId", "user id")
	if err != nil {
		return nil
	}

	if err := st.RejectJoinRequest(c.Context(), communityID, userID); err != nil {
		return respondOpError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Join request rejected"})
}

// RemoveMember handles DELETE /api/communities/:id/members/:userId.
func (s *Server) RemoveMember(c *fiber.Ctx) error {
	st, err := s.sessionFor(c)
	if err != nil {
		return nil
	}
	communityID, err := requireParam(c, "id", "community id")
	if err != nil {
		return nil
	}
	userID, err := requireParam(c, "userId", "user id")
	if err != nil {
		return nil
	}

	if err := st.RemoveMember(c.Context(), communityID, userID); err != nil {
		return respondOpError(c, err)
	}
	cache.Invalidate(c.Context(), cache.CommunityKey(communityID))
	s.publishToUser(c, userID, feed.Event{Type: feed.EventNotification})
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Member removed"})
}

// PromoteAdmin handles POST /api/communities/:id/admins/:userId.
func (s *Server) PromoteAdmin(c *fiber.Ctx) error {
	st, err := s.sessionFor(c)
	if err != nil {
		return nil
	}
	communityID, err := requireParam(c, "id", "community id")
	if err != nil {
		return nil
	}
	userID, err := requireParam(c, "userId", "user id")
	if err != nil {
		return nil
	}

	if err := st.PromoteAdmin(c.Context(), communityID, userID); err != nil {
		return respondOpError(c, err)
	}
	cache.Invalidate(c.Context(), cache.CommunityKey(communityID))
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Admin promoted"})
}

// DemoteAdmin handles DELETE /api/communities/:id/admins/:userId.
func (s *Server) DemoteAdmin(c *fiber.Ctx) error {
	st, err := s.sessionFor(c)
	if err != nil {
		return nil
	}
	communityID, err := requireParam(c, "id", "community id")
	if err != nil {
		return nil
	}
	userID, err := requireParam(c, "userId", "user id")
	if err != nil {
		return nil
	}

	if err := st.DemoteAdmin(c.Context(), communityID, userID); err != nil {
		return respondOpError(c, err)
	}
	cache.Invalidate(c.Context(), cache.CommunityKey(communityID))
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Admin demoted"})
}

// InviteUser handles POST /api/communities/:id/invites/:userId.
func (s *Server) InviteUser(c *fiber.Ctx) error {
	st, err := s.sessionFor(c)
	if err != nil {
		return nil
	}
	communityID, err := requireParam(c, "id", "community id")
	if err != nil {
		return nil
	}
	userID, err := requireParam(c, "userId", "user id")
	if err != nil {
		return nil
	}

	if err := st.InviteUser(c.Context(), communityID, userID); err != nil {
		return respondOpError(c, err)
	}
	s.publishToUser(c, userID, feed.Event{Type: feed.EventNotification})
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Invite sent"})
}

// AcceptInvite handles POST /api/invites/:notificationId/accept. The body
// names the community the invite refers to.
func (s *Server) AcceptInvite(c *fiber.Ctx) error {
	st, err := s.sessionFor(c)
	if err != nil {
		return nil
	}
	notificationID, err := requireParam(c, "notificationId", "notification id")
	if err != nil {
		return nil
	}

	var req struct {
		CommunityID string `json:"communityId"`
	}
	if err := c.BodyParser(&req); err != nil || req.CommunityID == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("communityId is required"))
	}

	if err := st.AcceptInvite(c.Context(), notificationID, req.CommunityID); err != nil {
		return respondOpError(c, err)
	}
	cache.Invalidate(c.Context(), cache.CommunityKey(req.CommunityID))
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Invite accepted"})
}

// RejectInvite handles POST /api/invites/:notificationId/reject.
func (s *Server) RejectInvite(c *fiber.Ctx) error {
	st, err := s.sessionFor(c)
	if err != nil {
		return nil
	}
	notificationID, err := requireParam(c, "notificationId", "notification id")
	if err != nil {
		return nil
	}

	if err := st.RejectInvite(c.Context(), notificationID); err != nil {
		return respondOpError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Invite rejected"})
}

// GetCommunityPosts handles GET /api/communities/:id/posts.
func (s *Server) GetCommunityPosts(c *fiber.Ctx) error {
	st, err := s.sessionFor(c)
	if err != nil {
		return nil
	}
	communityID, err := requireParam(c, "id", "community id")
	if err != nil {
		return nil
	}

	posts, opErr := st.CommunityPosts(c.Context(), communityID)
	if opErr != nil {
		return respondOpError(c, opErr)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"posts": posts})
}

// PostToCommunity handles POST /api/communities/:id/posts.
func (s *Server) PostToCommunity(c *fiber.Ctx) error {
	st, err := s.sessionFor(c)
	if err != nil {
		return nil
	}
	communityID, err := requireParam(c, "id", "community id")
	if err != nil {
		return nil
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := s.requireCommunityMember(c, st, communityID); err != nil {
		return nil
	}
	post, opErr := st.PostToCommunity(c.Context(), communityID, req.Text)
	if opErr != nil {
		return respondOpError(c, opErr)
	}
	cache.Invalidate(c.Context(), cache.CommunityKey(communityID))
	s.publishBroadcast(c, feed.Event{Type: feed.EventCommunityPost, Payload: post})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"post": post})
}

// requireCommunityMember rejects posts from non-members. The state container
// mirrors the client model, which only shows the composer to members, so the
// check lives at the API boundary. On failure the response is already
// written and errResponseWritten is returned.
func (s *Server) requireCommunityMember(c *fiber.Ctx, st *store.Store, communityID string) error {
	if err := st.FetchCommunities(c.Context()); err != nil {
		_ = respondOpError(c, err)
		return errResponseWritten
	}

	userID, _ := middleware.UserIDFromLocals(c)
	for _, community := range st.State().Communities {
		if community.ID != communityID {
			continue
		}
		if !community.IsMember(userID) {
			_ = models.RespondWithError(c, fiber.StatusForbidden,
				models.NewUnauthorizedError("Only members can post to this community"))
			return errResponseWritten
		}
		return nil
	}

	_ = models.RespondWithError(c, fiber.StatusNotFound,
		models.NewNotFoundError("community", communityID))
	return errResponseWritten
}

// notifyCommunityAdmins pushes a notification event to every admin of the
// community so pending join requests surface without a refresh.
func (s *Server) notifyCommunityAdmins(c *fiber.Ctx, st *store.Store, communityID string) {
	for _, community := range st.State().Communities {
		if community.ID != communityID {
			continue
		}
		for _, adminID := range community.Admins {
			s.publishToUser(c, adminID, feed.Event{Type: feed.EventNotification})
		}
		return
	}
}
