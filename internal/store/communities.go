package store

import (
	"context"
	"errors"

	"moodboard/internal/models"
	"moodboard/internal/storage"
)

// FetchCommunities loads all communities, newest first.
func (s *Store) FetchCommunities(ctx context.Context) error {
	docs, err := s.docs.Query(ctx, storage.CollectionCommunities, storage.Query{
		OrderBy: "createdAt",
		Desc:    true,
	})
	if err != nil {
		return models.NewRemoteError(err)
	}
	communities, err := storage.DecodeAll[models.Community](docs)
	if err != nil {
		return models.NewRemoteError(err)
	}

	s.mu.Lock()
	s.communities = communities
	s.mu.Unlock()
	s.notify()
	return nil
}

// CreateCommunity creates a community owned by the current user, confirming
// remotely before prepending it to local state.
func (s *Store) CreateCommunity(ctx context.Context, name, description, bannerURL string) (*models.Community, error) {
	user := s.currentUser()
	if user == nil {
		return nil, models.NewUnauthorizedError("Not signed in")
	}
	if name == "" {
		return nil, models.NewValidationError("Community name is required")
	}

	community := models.Community{
		Name:         name,
		Description:  description,
		BannerURL:    bannerURL,
		CreatedBy:    user.ID,
		Members:      []string{user.ID},
		Admins:       []string{user.ID},
		JoinRequests: []string{},
		CreatedAt:    models.InstantOf(s.clock()),
	}
	doc, err := storage.Encode(community)
	if err != nil {
		return nil, models.NewRemoteError(err)
	}
	id, err := s.docs.Add(ctx, storage.CollectionCommunities, doc)
	if err != nil {
		return nil, models.NewRemoteError(err)
	}
	community.ID = id

	s.mu.Lock()
	s.communities = append([]models.Community{community}, s.communities...)
	s.mu.Unlock()
	s.notify()
	return &community, nil
}

// EditCommunity updates a community's descriptive fields. Admin only.
func (s *Store) EditCommunity(ctx context.Context, communityID, name, description, bannerURL string) error {
	user := s.currentUser()
	if user == nil {
		return models.NewUnauthorizedError("Not signed in")
	}
	community := s.findCommunity(communityID)
	if community == nil {
		return models.NewNotFoundError("community", communityID)
	}
	if !community.IsAdmin(user.ID) {
		return models.NewUnauthorizedError("Only admins can edit a community")
	}
	if name == "" {
		return models.NewValidationError("Community name is required")
	}

	err := s.docs.Update(ctx, storage.CollectionCommunities, communityID,
		storage.Set("name", name),
		storage.Set("description", description),
		storage.Set("bannerUrl", bannerURL),
	)
	if err != nil {
		return models.NewRemoteError(err)
	}

	s.mu.Lock()
	for i := range s.communities {
		if s.communities[i].ID == communityID {
			s.communities[i].Name = name
			s.communities[i].Description = description
			s.communities[i].BannerURL = bannerURL
			break
		}
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

// DeleteCommunity removes a community. Owner only.
func (s *Store) DeleteCommunity(ctx context.Context, communityID string) error {
	user := s.currentUser()
	if user == nil {
		return models.NewUnauthorizedError("Not signed in")
	}
	community := s.findCommunity(communityID)
	if community == nil {
		return models.NewNotFoundError("community", communityID)
	}
	if community.CreatedBy != user.ID {
		return models.NewUnauthorizedError("Only the owner can delete a community")
	}

	if err := s.docs.Delete(ctx, storage.CollectionCommunities, communityID); err != nil {
		return models.NewRemoteError(err)
	}

	s.mu.Lock()
	kept := s.communities[:0]
	for _, c := range s.communities {
		if c.ID != communityID {
			kept = append(kept, c)
		}
	}
	s.communities = kept
	s.mu.Unlock()
	s.notify()
	return nil
}

// JoinCommunity adds the current user as a member, optimistically.
func (s *Store) JoinCommunity(ctx context.Context, communityID string) error {
	user := s.currentUser()
	if user == nil {
		return models.NewUnauthorizedError("Not signed in")
	}
	userID := user.ID

	return s.runOptimistic(ctx, func() func() {
		restoreCommunity := s.mutateCommunity(communityID, func(c *models.Community) {
			c.Members = append(cloneStrings(c.Members), userID)
		})
		var prevCircles []string
		if s.user != nil {
			prevCircles = s.user.JoinedCircles
			s.user.JoinedCircles = append(cloneStrings(prevCircles), communityID)
		}
		return func() {
			restoreCommunity()
			if s.user != nil {
				s.user.JoinedCircles = prevCircles
			}
		}
	}, func(ctx context.Context) error {
		if err := s.docs.Update(ctx, storage.CollectionCommunities, communityID,
			storage.Union("members", userID)); err != nil {
			return err
		}
		return s.docs.Update(ctx, storage.CollectionUsers, userID,
			storage.Union("joinedCircles", communityID))
	})
}

// LeaveCommunity removes the current user from members and admins,
// optimistically. The owner cannot leave.
func (s *Store) LeaveCommunity(ctx context.Context, communityID string) error {
	user := s.currentUser()
	if user == nil {
		return models.NewUnauthorizedError("Not signed in")
	}
	userID := user.ID
	if community := s.findCommunity(communityID); community != nil && community.CreatedBy == userID {
		return models.NewValidationError("The owner cannot leave their own community")
	}

	return s.runOptimistic(ctx, func() func() {
		restoreCommunity := s.mutateCommunity(communityID, func(c *models.Community) {
			c.Members = removeString(c.Members, userID)
			c.Admins = removeString(c.Admins, userID)
		})
		var prevCircles []string
		if s.user != nil {
			prevCircles = s.user.JoinedCircles
			s.user.JoinedCircles = removeString(prevCircles, communityID)
		}
		return func() {
			restoreCommunity()
			if s.user != nil {
				s.user.JoinedCircles = prevCircles
			}
		}
	}, func(ctx context.Context) error {
		if err := s.docs.Update(ctx, storage.CollectionCommunities, communityID,
			storage.Remove("members", userID),
			storage.Remove("admins", userID)); err != nil {
			return err
		}
		return s.docs.Update(ctx, storage.CollectionUsers, userID,
			storage.Remove("joinedCircles", communityID))
	})
}

// RequestToJoin files a pending join request, optimistically, and notifies
// the community's admins.
func (s *Store) RequestToJoin(ctx context.Context, communityID string) error {
	user := s.currentUser()
	if user == nil {
		return models.NewUnauthorizedError("Not signed in")
	}
	userID := user.ID
	community := s.findCommunity(communityID)
	if community != nil && community.IsMember(userID) {
		return models.NewValidationError("Already a member")
	}

	err := s.runOptimistic(ctx, func() func() {
		return s.mutateCommunity(communityID, func(c *models.Community) {
			c.JoinRequests = append(cloneStrings(c.JoinRequests), userID)
		})
	}, func(ctx context.Context) error {
		return s.docs.Update(ctx, storage.CollectionCommunities, communityID,
			storage.Union("joinRequests", userID))
	})
	if err != nil {
		return err
	}

	// Best effort: notify every admin (the owner counts even when not
	// listed) except the requester.
	admins := map[string]bool{}
	if community != nil {
		admins[community.CreatedBy] = true
		for _, adminID := range community.Admins {
			admins[adminID] = true
		}
	}
	for adminID := range admins {
		if adminID == userID {
			continue
		}
		if err := s.createNotification(ctx, models.NotificationJoinRequest, userID, adminID, communityID); err != nil {
			s.logger.Warn("failed to create join request notification", "communityId", communityID, "error", err)
		}
	}
	return nil
}

// AcceptJoinRequest converts a pending request into membership. Admin only.
func (s *Store) AcceptJoinRequest(ctx context.Context, communityID, userID string) error {
	actor := s.currentUser()
	if actor == nil {
		return models.NewUnauthorizedError("Not signed in")
	}
	community := s.findCommunity(communityID)
	if community == nil {
		return models.NewNotFoundError("community", communityID)
	}
	if !community.IsAdmin(actor.ID) {
		return models.NewUnauthorizedError("Only admins can accept join requests")
	}

	err := s.runOptimistic(ctx, func() func() {
		return s.mutateCommunity(communityID, func(c *models.Community) {
			c.JoinRequests = removeString(c.JoinRequests, userID)
			c.Members = append(cloneStrings(c.Members), userID)
		})
	}, func(ctx context.Context) error {
		return s.docs.Update(ctx, storage.CollectionCommunities, communityID,
			storage.Remove("joinRequests", userID),
			storage.Union("members", userID))
	})
	if err != nil {
		return err
	}

	if err := s.createNotification(ctx, models.NotificationJoinAccept, actor.ID, userID, communityID); err != nil {
		s.logger.Warn("failed to create join accept notification", "communityId", communityID, "error", err)
	}
	return nil
}

// RejectJoinRequest drops a pending request. Admin only, no notification.
func (s *Store) RejectJoinRequest(ctx context.Context, communityID, userID string) error {
	actor := s.currentUser()
	if actor == nil {
		return models.NewUnauthorizedError("Not signed in")
	}
	if community := s.findCommunity(communityID); community != nil && !community.IsAdmin(actor.ID) {
		return models.NewUnauthorizedError("Only admins can reject join requests")
	}

	return s.runOptimistic(ctx, func() func() {
		return s.mutateCommunity(communityID, func(c *models.Community) {
			c.JoinRequests = removeString(c.JoinRequests, userID)
		})
	}, func(ctx context.Context) error {
		return s.docs.Update(ctx, storage.CollectionCommunities, communityID,
			storage.Remove("joinRequests", userID))
	})
}

// RemoveMember expels a member, stripping admin status in the same write,
// and notifies the removed user. Admin only; the owner is unremovable.
func (s *Store) RemoveMember(ctx context.Context, communityID, userID string) error {
	actor := s.currentUser()
	if actor == nil {
		return models.NewUnauthorizedError("Not signed in")
	}
	community := s.findCommunity(communityID)
	if community == nil {
		return models.NewNotFoundError("community", communityID)
	}
	if !community.IsAdmin(actor.ID) {
		return models.NewUnauthorizedError("Only admins can remove members")
	}
	if userID == community.CreatedBy {
		return models.NewValidationError("The owner cannot be removed")
	}

	err := s.runOptimistic(ctx, func() func() {
		return s.mutateCommunity(communityID, func(c *models.Community) {
			c.Members = removeString(c.Members, userID)
			c.Admins = removeString(c.Admins, userID)
		})
	}, func(ctx context.Context) error {
		return s.docs.Update(ctx, storage.CollectionCommunities, communityID,
			storage.Remove("members", userID),
			storage.Remove("admins", userID))
	})
	if err != nil {
		return err
	}

	if err := s.createNotification(ctx, models.NotificationCommunityRemove, actor.ID, userID, communityID); err != nil {
		s.logger.Warn("failed to create removal notification", "communityId", communityID, "error", err)
	}
	return nil
}

// PromoteAdmin grants a member the admin role, optimistically. Admin only.
func (s *Store) PromoteAdmin(ctx context.Context, communityID, userID string) error {
	actor := s.currentUser()
	if actor == nil {
		return models.NewUnauthorizedError("Not signed in")
	}
	community := s.findCommunity(communityID)
	if community == nil {
		return models.NewNotFoundError("community", communityID)
	}
	if !community.IsAdmin(actor.ID) {
		return models.NewUnauthorizedError("Only admins can promote members")
	}
	if !community.IsMember(userID) {
		return models.NewValidationError("Only members can be promoted")
	}

	return s.runOptimistic(ctx, func() func() {
		return s.mutateCommunity(communityID, func(c *models.Community) {
			c.Admins = append(cloneStrings(c.Admins), userID)
		})
	}, func(ctx context.Context) error {
		return s.docs.Update(ctx, storage.CollectionCommunities, communityID,
			storage.Union("admins", userID))
	})
}

// DemoteAdmin revokes the admin role. Owner only; the owner's implicit
// admin role cannot be revoked.
func (s *Store) DemoteAdmin(ctx context.Context, communityID, userID string) error {
	actor := s.currentUser()
	if actor == nil {
		return models.NewUnauthorizedError("Not signed in")
	}
	community := s.findCommunity(communityID)
	if community == nil {
		return models.NewNotFoundError("community", communityID)
	}
	if community.CreatedBy != actor.ID {
		return models.NewUnauthorizedError("Only the owner can demote admins")
	}
	if userID == community.CreatedBy {
		return models.NewValidationError("The owner cannot be demoted")
	}

	return s.runOptimistic(ctx, func() func() {
		return s.mutateCommunity(communityID, func(c *models.Community) {
			c.Admins = removeString(c.Admins, userID)
		})
	}, func(ctx context.Context) error {
		return s.docs.Update(ctx, storage.CollectionCommunities, communityID,
			storage.Remove("admins", userID))
	})
}

// InviteUser sends a community invite notification to another user.
func (s *Store) InviteUser(ctx context.Context, communityID, userID string) error {
	actor := s.currentUser()
	if actor == nil {
		return models.NewUnauthorizedError("Not signed in")
	}
	if err := s.createNotification(ctx, models.NotificationCommunityInvite, actor.ID, userID, communityID); err != nil {
		return models.NewRemoteError(err)
	}
	return nil
}

// AcceptInvite joins the community named by an invite notification and marks
// the notification read, remotely first.
func (s *Store) AcceptInvite(ctx context.Context, notificationID, communityID string) error {
	user := s.currentUser()
	if user == nil {
		return models.NewUnauthorizedError("Not signed in")
	}
	userID := user.ID

	if err := s.docs.Update(ctx, storage.CollectionCommunities, communityID,
		storage.Union("members", userID)); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.NewNotFoundError("community", communityID)
		}
		return models.NewRemoteError(err)
	}
	if err := s.docs.Update(ctx, storage.CollectionUsers, userID,
		storage.Union("joinedCircles", communityID)); err != nil {
		return models.NewRemoteError(err)
	}
	if err := s.docs.Update(ctx, storage.CollectionNotifications, notificationID,
		storage.Set("read", true)); err != nil {
		s.logger.Warn("failed to mark invite read", "notificationId", notificationID, "error", err)
	}

	s.mu.Lock()
	for i := range s.communities {
		if s.communities[i].ID == communityID && !s.communities[i].IsMember(userID) {
			s.communities[i].Members = append(cloneStrings(s.communities[i].Members), userID)
		}
	}
	if s.user != nil && !containsString(s.user.JoinedCircles, communityID) {
		s.user.JoinedCircles = append(cloneStrings(s.user.JoinedCircles), communityID)
	}
	for i := range s.notifications {
		if s.notifications[i].ID == notificationID {
			s.notifications[i].Read = true
		}
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

// RejectInvite dismisses an invite by marking its notification read.
func (s *Store) RejectInvite(ctx context.Context, notificationID string) error {
	return s.MarkNotificationRead(ctx, notificationID)
}

// PostToCommunity writes a post into a community's feed and bumps the
// community's last-post marker.
func (s *Store) PostToCommunity(ctx context.Context, communityID, text string) (*models.CommunityPost, error) {
	user := s.currentUser()
	if user == nil {
		return nil, models.NewUnauthorizedError("Not signed in")
	}
	if text == "" {
		return nil, models.NewValidationError("Post text is required")
	}

	now := models.InstantOf(s.clock())
	post := models.CommunityPost{
		CommunityID: communityID,
		UserID:      user.ID,
		Username:    user.Username,
		UserAvatar:  user.AvatarURL,
		Text:        text,
		Timestamp:   now,
		LikedBy:     []string{},
	}
	doc, err := storage.Encode(post)
	if err != nil {
		return nil, models.NewRemoteError(err)
	}
	id, err := s.docs.Add(ctx, storage.CollectionCommunityPosts, doc)
	if err != nil {
		return nil, models.NewRemoteError(err)
	}
	post.ID = id

	if err := s.docs.Update(ctx, storage.CollectionCommunities, communityID,
		storage.Set("lastPostAt", now.UnixMilli())); err != nil {
		s.logger.Warn("failed to bump lastPostAt", "communityId", communityID, "error", err)
	}
	return &post, nil
}

// CommunityPosts returns a community's feed, newest first.
func (s *Store) CommunityPosts(ctx context.Context, communityID string) ([]models.CommunityPost, error) {
	docs, err := s.docs.Query(ctx, storage.CollectionCommunityPosts, storage.Query{
		Filters: []storage.Filter{storage.Where("communityId", communityID)},
		OrderBy: "timestamp",
		Desc:    true,
	})
	if err != nil {
		return nil, models.NewRemoteError(err)
	}
	posts, err := storage.DecodeAll[models.CommunityPost](docs)
	if err != nil {
		return nil, models.NewRemoteError(err)
	}
	return posts, nil
}

// findCommunity returns a copy of the named community from local state.
func (s *Store) findCommunity(communityID string) *models.Community {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.communities {
		if s.communities[i].ID == communityID {
			c := s.communities[i]
			return &c
		}
	}
	return nil
}

// mutateCommunity applies fn to the named community under the lock already
// held by the caller and returns a restore for the previous value.
func (s *Store) mutateCommunity(communityID string, fn func(*models.Community)) func() {
	for i := range s.communities {
		if s.communities[i].ID == communityID {
			prev := s.communities[i]
			fn(&s.communities[i])
			return func() {
				for j := range s.communities {
					if s.communities[j].ID == communityID {
						s.communities[j] = prev
						return
					}
				}
			}
		}
	}
	return func() {}
}
