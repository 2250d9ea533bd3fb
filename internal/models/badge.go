package models

// BadgeCategory groups badges by how they are earned.
type BadgeCategory string

const (
	// BadgeCategoryStreak badges unlock at consecutive-day thresholds.
	BadgeCategoryStreak BadgeCategory = "streak"
	// BadgeCategorySocial badges unlock through friends, circles, and likes.
	BadgeCategorySocial BadgeCategory = "social"
	// BadgeCategoryMood badges unlock through mood-pattern criteria.
	BadgeCategoryMood BadgeCategory = "mood"
	// BadgeCategoryAd badges unlock only by explicit user action (ad view)
	// and are never derived automatically.
	BadgeCategoryAd BadgeCategory = "ad"
	// BadgeCategorySpecial badges cover milestones and one-off awards.
	BadgeCategorySpecial BadgeCategory = "special"
)

// Badge ids referenced by the derivation rules.
const (
	BadgeStreak7       = "streak_7"
	BadgeStreak30      = "streak_30"
	BadgeStreak100     = "streak_100"
	BadgeMitra         = "social_mitra"
	BadgeSangha        = "social_sangha"
	BadgeDilSe         = "social_dil_se"
	BadgeFirstPost     = "milestone_first_post"
	BadgeThreePosts    = "milestone_3_posts"
	BadgeTenPosts      = "milestone_10_posts"
	BadgeDesiVibes     = "special_desi"
	BadgeFounding      = "special_founding"
	BadgeAdSupporter   = "ad_supporter"
	BadgeAdSuperFan    = "ad_super_fan"
	BadgeEarlyBird     = "early_bird"
	BadgeNightOwl      = "night_owl"
	BadgeMoodShanti    = "mood_shanti"
	BadgeMoodJosh      = "mood_josh"
)

// Badge describes an unlockable achievement. Once granted a badge id stays in
// the user's badge set permanently; only ad-category badges bypass automatic
// derivation.
type Badge struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Emoji       string        `json:"emoji"`
	Description string        `json:"description"`
	Criteria    string        `json:"criteria"`
	Category    BadgeCategory `json:"category"`
}

// BadgeCatalog is the full set of badges known to the application.
var BadgeCatalog = []Badge{
	{ID: BadgeStreak7, Name: "Rishi", Emoji: "🧘", Description: "Maintained a 7-day mood streak.", Criteria: "Log your mood for 7 consecutive days.", Category: BadgeCategoryStreak},
	{ID: BadgeStreak30, Name: "Tapasya", Emoji: "🔥", Description: "Maintained a 30-day mood streak.", Criteria: "Log your mood for 30 consecutive days.", Category: BadgeCategoryStreak},
	{ID: BadgeStreak100, Name: "Yogi", Emoji: "🕉️", Description: "Maintained a 100-day mood streak.", Criteria: "Log your mood for 100 consecutive days.", Category: BadgeCategoryStreak},
	{ID: BadgeEarlyBird, Name: "Early Bird", Emoji: "🌅", Description: "Posted a mood before 8 AM for 3 days in a row.", Criteria: "Post before 8 AM, 3 days consecutively.", Category: BadgeCategoryStreak},
	{ID: BadgeNightOwl, Name: "Night Owl", Emoji: "🦉", Description: "Posted a mood after 11 PM for 3 days in a row.", Criteria: "Post after 11 PM, 3 days consecutively.", Category: BadgeCategoryStreak},
	{ID: BadgeMitra, Name: "Mitra", Emoji: "🤝", Description: "Added 5 friends.", Criteria: "Connect with 5 friends.", Category: BadgeCategorySocial},
	{ID: BadgeSangha, Name: "Sangha", Emoji: "🏘️", Description: "Joined 3 Mood Circles.", Criteria: "Join 3 different Mood Circles.", Category: BadgeCategorySocial},
	{ID: BadgeDilSe, Name: "Dil Se", Emoji: "❤️", Description: "Received 50 likes on vibes.", Criteria: "Get a total of 50 likes on your posts.", Category: BadgeCategorySocial},
	{ID: BadgeMoodShanti, Name: "Shanti", Emoji: "🕊️", Description: "Logged \"Calm\" or \"Peaceful\" mood 5 times in a week.", Criteria: "Log calm/peaceful moods 5 times in 7 days.", Category: BadgeCategoryMood},
	{ID: BadgeMoodJosh, Name: "Josh", Emoji: "⚡", Description: "Logged \"Excited\" or \"Energetic\" mood 5 times in a week.", Criteria: "Log excited/energetic moods 5 times in 7 days.", Category: BadgeCategoryMood},
	{ID: BadgeFirstPost, Name: "First Vibe", Emoji: "🎉", Description: "Posted your first mood!", Criteria: "Share your first mood to unlock.", Category: BadgeCategorySpecial},
	{ID: BadgeThreePosts, Name: "Vibe Starter", Emoji: "✨", Description: "Posted 3 moods.", Criteria: "Share 3 moods to unlock.", Category: BadgeCategorySpecial},
	{ID: BadgeTenPosts, Name: "Vibe Master", Emoji: "🌟", Description: "Posted 10 moods.", Criteria: "Share 10 moods to unlock.", Category: BadgeCategorySpecial},
	{ID: BadgeDesiVibes, Name: "Desi Vibes", Emoji: "🇮🇳", Description: "Posted a vibe from 3 different Indian cities.", Criteria: "Post from 3 different cities.", Category: BadgeCategorySpecial},
	{ID: BadgeFounding, Name: "Founding Member", Emoji: "🚀", Description: "Welcome to Moodboard!", Criteria: "Awarded to all early members.", Category: BadgeCategorySpecial},
	{ID: BadgeAdSupporter, Name: "Supporter", Emoji: "💎", Description: "Supported the app by watching an ad.", Criteria: "Watch an ad to unlock.", Category: BadgeCategoryAd},
	{ID: BadgeAdSuperFan, Name: "Super Fan", Emoji: "🌟", Description: "Watched 5 ads to support the community.", Criteria: "Watch 5 ads to unlock.", Category: BadgeCategoryAd},
}

// BadgeByID looks a badge up in the catalog.
func BadgeByID(id string) (Badge, bool) {
	for _, b := range BadgeCatalog {
		if b.ID == id {
			return b, true
		}
	}
	return Badge{}, false
}
