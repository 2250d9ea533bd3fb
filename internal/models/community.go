package models

// Community is a named group ("mood circle") with membership and moderation
// roles.
//
// Invariants: CreatedBy is always a member, and JoinRequests is disjoint from
// Members. The creator is implicitly an admin whether or not it appears in
// Admins, and can never be demoted or removed.
type Community struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	BannerURL    string   `json:"bannerUrl,omitempty"`
	CreatedBy    string   `json:"createdBy"`
	Members      []string `json:"members"`
	Admins       []string `json:"admins"`
	JoinRequests []string `json:"joinRequests"`
	CreatedAt    Instant  `json:"createdAt"`
	LastPostAt   *Instant `json:"lastPostAt,omitempty"`
}

// IsMember reports whether the given user id is a member.
func (c *Community) IsMember(userID string) bool {
	return contains(c.Members, userID)
}

// IsAdmin reports whether the given user id moderates this community.
// The creator is always an admin.
func (c *Community) IsAdmin(userID string) bool {
	return userID == c.CreatedBy || contains(c.Admins, userID)
}

// HasJoinRequest reports whether the given user id has a pending join request.
func (c *Community) HasJoinRequest(userID string) bool {
	return contains(c.JoinRequests, userID)
}
