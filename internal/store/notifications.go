package store

import (
	"context"
	"errors"

	"moodboard/internal/models"
	"moodboard/internal/storage"
)

const notificationFetchLimit = 50

// FetchNotifications loads the current user's notifications, newest first,
// capped, with sender display fields resolved.
func (s *Store) FetchNotifications(ctx context.Context) error {
	user := s.currentUser()
	if user == nil {
		return models.NewUnauthorizedError("Not signed in")
	}

	docs, err := s.docs.Query(ctx, storage.CollectionNotifications, storage.Query{
		Filters: []storage.Filter{storage.Where("receiverId", user.ID)},
		OrderBy: "createdAt",
		Desc:    true,
		Limit:   notificationFetchLimit,
	})
	if err != nil {
		return models.NewRemoteError(err)
	}
	notifications, err := storage.DecodeAll[models.Notification](docs)
	if err != nil {
		return models.NewRemoteError(err)
	}

	// Resolve sender display fields once per distinct sender. A sender
	// whose profile is gone just renders without a name.
	senders := map[string]*models.User{}
	for i := range notifications {
		senderID := notifications[i].SenderID
		if senderID == "" {
			continue
		}
		sender, seen := senders[senderID]
		if !seen {
			sender = s.lookupUser(ctx, senderID)
			senders[senderID] = sender
		}
		if sender != nil {
			notifications[i].SenderName = sender.Username
			notifications[i].SenderAvatar = sender.AvatarURL
		}
	}

	s.mu.Lock()
	s.notifications = notifications
	s.mu.Unlock()
	s.notify()
	return nil
}

// MarkNotificationRead marks one notification as read, remotely first.
func (s *Store) MarkNotificationRead(ctx context.Context, notificationID string) error {
	if err := s.docs.Update(ctx, storage.CollectionNotifications, notificationID, storage.Set("read", true)); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.NewNotFoundError("notification", notificationID)
		}
		return models.NewRemoteError(err)
	}

	s.mu.Lock()
	for i := range s.notifications {
		if s.notifications[i].ID == notificationID {
			s.notifications[i].Read = true
			break
		}
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

// createNotification writes a directed event record. Callers on best-effort
// paths log and ignore the returned error.
func (s *Store) createNotification(ctx context.Context, typ models.NotificationType, senderID, receiverID, targetID string) error {
	doc, err := storage.Encode(models.Notification{
		Type:       typ,
		SenderID:   senderID,
		ReceiverID: receiverID,
		TargetID:   targetID,
		CreatedAt:  models.InstantOf(s.clock()),
	})
	if err != nil {
		return err
	}
	_, err = s.docs.Add(ctx, storage.CollectionNotifications, doc)
	return err
}

func (s *Store) lookupUser(ctx context.Context, userID string) *models.User {
	raw, err := s.docs.Get(ctx, storage.CollectionUsers, userID)
	if err != nil {
		return nil
	}
	var user models.User
	if err := storage.Decode(raw, &user); err != nil {
		return nil
	}
	return &user
}
