package store

import (
	"context"
	"reflect"
	"sort"
	"testing"

	"moodboard/internal/models"
)

func TestComputeEarnedBadgesThresholds(t *testing.T) {
	vibes := func(n int) []models.Vibe {
		out := make([]models.Vibe, n)
		for i := range out {
			out[i] = models.Vibe{City: "Mumbai"}
		}
		return out
	}

	cases := []struct {
		name  string
		user  models.User
		posts []models.Vibe
		want  []string
	}{
		{
			name: "fresh account",
			want: []string{models.BadgeFounding},
		},
		{
			name:  "first post",
			posts: vibes(1),
			want:  []string{models.BadgeFounding, models.BadgeFirstPost},
		},
		{
			name:  "three posts",
			posts: vibes(3),
			want:  []string{models.BadgeFounding, models.BadgeFirstPost, models.BadgeThreePosts},
		},
		{
			name: "week streak",
			user: models.User{Streak: 7},
			want: []string{models.BadgeFounding, models.BadgeStreak7},
		},
		{
			name: "hundred day streak implies the lower tiers",
			user: models.User{Streak: 100},
			want: []string{models.BadgeFounding, models.BadgeStreak7, models.BadgeStreak30, models.BadgeStreak100},
		},
		{
			name: "five friends",
			user: models.User{Friends: []string{"a", "b", "c", "d", "e"}},
			want: []string{models.BadgeFounding, models.BadgeMitra},
		},
		{
			name: "three circles",
			user: models.User{JoinedCircles: []string{"c1", "c2", "c3"}},
			want: []string{models.BadgeFounding, models.BadgeSangha},
		},
		{
			name: "fifty likes",
			posts: []models.Vibe{
				{Likes: 30, City: "Mumbai"},
				{Likes: 20, City: "Mumbai"},
			},
			want: []string{models.BadgeFounding, models.BadgeFirstPost, models.BadgeDilSe},
		},
		{
			name: "three cities",
			posts: []models.Vibe{
				{City: "Mumbai"},
				{City: "Delhi"},
				{City: "Pune"},
			},
			want: []string{models.BadgeFounding, models.BadgeFirstPost, models.BadgeThreePosts, models.BadgeDesiVibes},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeEarnedBadges(&tc.user, tc.posts)
			sort.Strings(got)
			sort.Strings(tc.want)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("earned = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestComputeEarnedBadgesIsIdempotent(t *testing.T) {
	user := models.User{
		Streak:        12,
		Friends:       []string{"a", "b", "c", "d", "e"},
		JoinedCircles: []string{"c1", "c2", "c3"},
	}
	posts := []models.Vibe{
		{Likes: 25, City: "Mumbai"},
		{Likes: 25, City: "Delhi"},
		{Likes: 10, City: "Pune"},
	}

	first := ComputeEarnedBadges(&user, posts)
	second := ComputeEarnedBadges(&user, posts)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated evaluation diverged: %v then %v", first, second)
	}

	seen := map[string]bool{}
	for _, id := range first {
		if seen[id] {
			t.Errorf("duplicate badge id %q", id)
		}
		seen[id] = true
	}
}

func TestComputeEarnedBadgesNeverDerivesAdBadges(t *testing.T) {
	user := models.User{Streak: 500, Friends: make([]string, 20)}
	posts := make([]models.Vibe, 50)
	for i := range posts {
		posts[i] = models.Vibe{Likes: 10, City: "Mumbai"}
	}

	for _, id := range ComputeEarnedBadges(&user, posts) {
		badge, ok := models.BadgeByID(id)
		if !ok {
			t.Errorf("derived unknown badge id %q", id)
			continue
		}
		if badge.Category == models.BadgeCategoryAd {
			t.Errorf("derived ad badge %q", id)
		}
	}
}

func TestRefreshBadgesPersistsUnionAndNeverShrinks(t *testing.T) {
	f := newFixture(t)
	alice := f.signUp(t, "alice@example.com", "alice")
	ctx := context.Background()

	// Badge earned manually (ad category) must survive derivation.
	if err := f.store.UnlockAdBadge(ctx, models.BadgeAdSupporter); err != nil {
		t.Fatalf("UnlockAdBadge: %v", err)
	}

	f.seedVibe(t, models.Vibe{UserID: alice.ID, City: "Mumbai", Mood: "Happy", Timestamp: models.InstantOf(*f.now)})

	granted, err := f.store.RefreshBadges(ctx)
	if err != nil {
		t.Fatalf("RefreshBadges: %v", err)
	}
	if !containsString(granted, models.BadgeFirstPost) {
		t.Errorf("granted = %v, want milestone_first_post", granted)
	}

	stored := f.storedUser(t, alice.ID)
	for _, id := range []string{models.BadgeAdSupporter, models.BadgeFounding, models.BadgeFirstPost} {
		if !containsString(stored.Badges, id) {
			t.Errorf("stored badges = %v, missing %q", stored.Badges, id)
		}
	}

	// A second refresh with unchanged inputs grants nothing and leaves the
	// stored set identical.
	again, err := f.store.RefreshBadges(ctx)
	if err != nil {
		t.Fatalf("second RefreshBadges: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("second refresh granted %v, want nothing", again)
	}
	if after := f.storedUser(t, alice.ID).Badges; !reflect.DeepEqual(after, stored.Badges) {
		t.Errorf("badge set changed across refreshes: %v then %v", stored.Badges, after)
	}
}

func TestUnlockAdBadgeRules(t *testing.T) {
	f := newFixture(t)
	alice := f.signUp(t, "alice@example.com", "alice")
	ctx := context.Background()

	if err := f.store.UnlockAdBadge(ctx, models.BadgeStreak7); err == nil {
		t.Error("expected unlocking a non-ad badge to fail")
	}
	if err := f.store.UnlockAdBadge(ctx, "no_such_badge"); err == nil {
		t.Error("expected unlocking an unknown badge to fail")
	}

	if err := f.store.UnlockAdBadge(ctx, models.BadgeAdSupporter); err != nil {
		t.Fatalf("UnlockAdBadge: %v", err)
	}
	if err := f.store.UnlockAdBadge(ctx, models.BadgeAdSupporter); err != nil {
		t.Fatalf("repeat UnlockAdBadge: %v", err)
	}

	badges := f.storedUser(t, alice.ID).Badges
	count := 0
	for _, id := range badges {
		if id == models.BadgeAdSupporter {
			count++
		}
	}
	if count != 1 {
		t.Errorf("ad badge appears %d times in %v, want exactly once", count, badges)
	}
}
