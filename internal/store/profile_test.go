package store

import (
	"context"
	"strings"
	"testing"

	"moodboard/internal/models"
)

func TestUpdateUsername(t *testing.T) {
	f := newFixture(t)
	alice := f.signUp(t, "alice@example.com", "alice")
	ctx := context.Background()

	if err := f.store.UpdateUsername(ctx, "alice_2"); err != nil {
		t.Fatalf("UpdateUsername: %v", err)
	}
	if got := f.storedUser(t, alice.ID).Username; got != "alice_2" {
		t.Errorf("stored username = %q, want alice_2", got)
	}
	if got := f.store.State().User.Username; got != "alice_2" {
		t.Errorf("local username = %q, want alice_2", got)
	}
}

func TestUpdateUsernameRejectsTakenName(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, models.User{ID: "bob", Username: "bob", CreatedAt: models.InstantOf(*f.now)})
	f.signUp(t, "alice@example.com", "alice")

	err := f.store.UpdateUsername(context.Background(), "bob")
	if err == nil {
		t.Fatal("expected a conflict error for a taken username")
	}
	if !models.IsConflict(err) {
		t.Errorf("err = %v, want conflict", err)
	}
}

func TestUpdateUsernameKeepingOwnNameIsAllowed(t *testing.T) {
	f := newFixture(t)
	f.signUp(t, "alice@example.com", "alice")

	if err := f.store.UpdateUsername(context.Background(), "alice"); err != nil {
		t.Errorf("re-saving own username failed: %v", err)
	}
}

func TestUpdateUsernameValidation(t *testing.T) {
	f := newFixture(t)
	f.signUp(t, "alice@example.com", "alice")
	ctx := context.Background()

	for _, bad := range []string{"ab", "_leading", "trailing-", "has space", strings.Repeat("x", 31)} {
		if err := f.store.UpdateUsername(ctx, bad); err == nil {
			t.Errorf("username %q accepted, want rejection", bad)
		}
	}
}

func TestRegenerateUsername(t *testing.T) {
	f := newFixture(t)
	alice := f.signUp(t, "alice@example.com", "alice")

	if err := f.store.RegenerateUsername(context.Background()); err != nil {
		t.Fatalf("RegenerateUsername: %v", err)
	}
	got := f.storedUser(t, alice.ID).Username
	if got == "alice" {
		t.Fatal("username unchanged after regeneration")
	}

	var matched bool
	for _, adj := range usernameAdjectives {
		for _, noun := range usernameNouns {
			prefix := adj + noun
			if strings.HasPrefix(got, prefix) && len(got) > len(prefix) {
				matched = true
			}
		}
	}
	if !matched {
		t.Errorf("generated username %q does not follow the adjective+noun+number shape", got)
	}
}

func TestUpdateAvatar(t *testing.T) {
	f := newFixture(t)
	alice := f.signUp(t, "alice@example.com", "alice")

	if err := f.store.UpdateAvatar(context.Background(), "https://cdn.example.com/a.png"); err != nil {
		t.Fatalf("UpdateAvatar: %v", err)
	}
	if got := f.storedUser(t, alice.ID).AvatarURL; got != "https://cdn.example.com/a.png" {
		t.Errorf("avatarUrl = %q", got)
	}
}

func TestSearchUsersPrefixCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, models.User{ID: "u1", Username: "Bright", CreatedAt: models.InstantOf(*f.now)})
	f.seedUser(t, models.User{ID: "u2", Username: "brightside", CreatedAt: models.InstantOf(*f.now)})
	f.seedUser(t, models.User{ID: "u3", Username: "dim", CreatedAt: models.InstantOf(*f.now)})
	f.signUp(t, "alice@example.com", "alice")

	got, err := f.store.SearchUsers(context.Background(), "bRiGh")
	if err != nil {
		t.Fatalf("SearchUsers: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d users, want 2: %+v", len(got), got)
	}
	for _, u := range got {
		if !strings.HasPrefix(strings.ToLower(u.Username), "brigh") {
			t.Errorf("unexpected match %q", u.Username)
		}
	}
}

func TestLookupUserMissing(t *testing.T) {
	f := newFixture(t)
	f.signUp(t, "alice@example.com", "alice")

	if _, err := f.store.LookupUser(context.Background(), "ghost"); err == nil {
		t.Error("expected not-found for a missing user")
	}
}
