package models

// NotificationType identifies the event a notification records.
type NotificationType string

const (
	// NotificationLike is sent when a user likes someone else's vibe.
	NotificationLike NotificationType = "like"
	// NotificationFriendRequest is sent when a friend request arrives.
	NotificationFriendRequest NotificationType = "friend_request"
	// NotificationFriendAccept is sent when a friend request is accepted.
	NotificationFriendAccept NotificationType = "friend_accept"
	// NotificationCommunityInvite is sent when a user is invited to a community.
	NotificationCommunityInvite NotificationType = "community_invite"
	// NotificationJoinRequest is sent to community admins on a join request.
	NotificationJoinRequest NotificationType = "join_request"
	// NotificationJoinAccept is sent when a join request is accepted.
	NotificationJoinAccept NotificationType = "join_accept"
	// NotificationCommunityRemove is sent to a member removed from a community.
	NotificationCommunityRemove NotificationType = "community_remove"
)

// Notification is a directed event record. It is created as a side effect of
// another action and only ever mutated by marking it read.
type Notification struct {
	ID         string           `json:"id"`
	Type       NotificationType `json:"type"`
	SenderID   string           `json:"senderId"`
	ReceiverID string           `json:"receiverId"`
	TargetID   string           `json:"targetId,omitempty"`
	Read       bool             `json:"read"`
	CreatedAt  Instant          `json:"createdAt"`

	// Populated on fetch for display; never persisted.
	SenderName   string `json:"senderName,omitempty"`
	SenderAvatar string `json:"senderAvatar,omitempty"`
}
