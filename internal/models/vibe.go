package models

// MaxVibeTextLen is the maximum length of a vibe's text body.
const MaxVibeTextLen = 100

// UnknownCity is the fallback city label when no location is available.
const UnknownCity = "Somewhere in India"

// Vibe is a single mood post.
//
// Likes always equals len(LikedBy) once a toggle settles; the pair is only
// ever mutated together inside a single-document transaction.
type Vibe struct {
	ID        string   `json:"id"`
	UserID    string   `json:"userId"`
	Username  string   `json:"username"`
	Mood      string   `json:"mood"`
	Emoji     string   `json:"emoji,omitempty"`
	Text      string   `json:"text"`
	City      string   `json:"city"`
	Timestamp Instant  `json:"timestamp"`
	Likes     int      `json:"likes"`
	LikedBy   []string `json:"likedBy"`
}

// LikedByUser reports whether the given user id has liked this vibe.
func (v *Vibe) LikedByUser(userID string) bool {
	return contains(v.LikedBy, userID)
}

// CommunityPost is a message inside a community's feed. It mirrors Vibe
// minus the mood and city attributes, scoped to a community.
type CommunityPost struct {
	ID          string   `json:"id"`
	CommunityID string   `json:"communityId"`
	UserID      string   `json:"userId"`
	Username    string   `json:"username"`
	UserAvatar  string   `json:"userAvatar,omitempty"`
	Text        string   `json:"text"`
	Timestamp   Instant  `json:"timestamp"`
	Likes       int      `json:"likes"`
	LikedBy     []string `json:"likedBy"`
}
