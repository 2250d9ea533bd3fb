package models

// User represents a member of the Moodboard application, including the
// social graph and gamification state attached to the account.
//
// The friend sets are pairwise consistent: if A appears in B.Friends then B
// appears in A.Friends, and an id in B.FriendRequests implies B's id in that
// user's SentFriendRequests. A counterpart id never appears in more than one
// of the three sets at a time.
type User struct {
	ID                 string   `json:"id"`
	Username           string   `json:"username"`
	Streak             int      `json:"streak"`
	Badges             []string `json:"badges"`
	JoinedCircles      []string `json:"joinedCircles"`
	CreatedAt          Instant  `json:"createdAt"`
	AvatarURL          string   `json:"avatarUrl,omitempty"`
	LastPostedDate     *Instant `json:"lastPostedDate,omitempty"`
	MoodScore          int      `json:"moodScore"`
	Friends            []string `json:"friends,omitempty"`
	FriendRequests     []string `json:"friendRequests,omitempty"`
	SentFriendRequests []string `json:"sentFriendRequests,omitempty"`
}

// HasBadge reports whether the user has unlocked the given badge id.
func (u *User) HasBadge(id string) bool {
	return contains(u.Badges, id)
}

// IsFriend reports whether the given user id is in the friends set.
func (u *User) IsFriend(id string) bool {
	return contains(u.Friends, id)
}

func contains(set []string, id string) bool {
	for _, v := range set {
		if v == id {
			return true
		}
	}
	return false
}
