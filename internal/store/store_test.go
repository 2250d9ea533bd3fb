package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"moodboard/internal/auth"
	"moodboard/internal/models"
	"moodboard/internal/storage"
)

type fixture struct {
	store    *Store
	docs     *failableStore
	provider *auth.Local
	now      *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	docs := &failableStore{inner: storage.NewMemory()}
	provider := auth.NewLocal(docs, "test-secret")
	now := time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)

	s := New(docs, provider,
		WithClock(func() time.Time { return now }),
		WithLocation(time.UTC),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	s.Start(context.Background())
	t.Cleanup(s.Close)

	return &fixture{store: s, docs: docs, provider: provider, now: &now}
}

func (f *fixture) advanceDays(n int) {
	*f.now = f.now.Add(time.Duration(n) * 24 * time.Hour)
}

func (f *fixture) signUp(t *testing.T, email, username string) *models.User {
	t.Helper()
	if err := f.store.SignUp(context.Background(), email, "Password1", username); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	user := f.store.State().User
	if user == nil {
		t.Fatal("expected a signed-in user after SignUp")
	}
	return user
}

func (f *fixture) seedUser(t *testing.T, user models.User) {
	t.Helper()
	doc, err := storage.Encode(user)
	if err != nil {
		t.Fatalf("encode user: %v", err)
	}
	if err := f.docs.Set(context.Background(), storage.CollectionUsers, user.ID, doc); err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func (f *fixture) seedVibe(t *testing.T, vibe models.Vibe) string {
	t.Helper()
	doc, err := storage.Encode(vibe)
	if err != nil {
		t.Fatalf("encode vibe: %v", err)
	}
	if vibe.ID != "" {
		if err := f.docs.Set(context.Background(), storage.CollectionVibes, vibe.ID, doc); err != nil {
			t.Fatalf("seed vibe: %v", err)
		}
		return vibe.ID
	}
	id, err := f.docs.Add(context.Background(), storage.CollectionVibes, doc)
	if err != nil {
		t.Fatalf("seed vibe: %v", err)
	}
	return id
}

func (f *fixture) storedUser(t *testing.T, userID string) models.User {
	t.Helper()
	raw, err := f.docs.Get(context.Background(), storage.CollectionUsers, userID)
	if err != nil {
		t.Fatalf("get user %s: %v", userID, err)
	}
	var user models.User
	if err := storage.Decode(raw, &user); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	return user
}

// failableStore delegates to the in-memory store and fails selected
// operations on demand, for exercising rollback paths.
type failableStore struct {
	inner           *storage.Memory
	failUpdate      bool
	failTransaction bool
}

var errInjected = errors.New("injected remote failure")

func (f *failableStore) Get(ctx context.Context, collection, id string) (storage.Doc, error) {
	return f.inner.Get(ctx, collection, id)
}

func (f *failableStore) Set(ctx context.Context, collection, id string, doc storage.Doc) error {
	return f.inner.Set(ctx, collection, id, doc)
}

func (f *failableStore) Add(ctx context.Context, collection string, doc storage.Doc) (string, error) {
	return f.inner.Add(ctx, collection, doc)
}

func (f *failableStore) Update(ctx context.Context, collection, id string, updates ...storage.Update) error {
	if f.failUpdate {
		return errInjected
	}
	return f.inner.Update(ctx, collection, id, updates...)
}

func (f *failableStore) Delete(ctx context.Context, collection, id string) error {
	return f.inner.Delete(ctx, collection, id)
}

func (f *failableStore) Query(ctx context.Context, collection string, q storage.Query) ([]storage.Doc, error) {
	return f.inner.Query(ctx, collection, q)
}

func (f *failableStore) Count(ctx context.Context, collection string, filters ...storage.Filter) (int, error) {
	return f.inner.Count(ctx, collection, filters...)
}

func (f *failableStore) DeleteWhere(ctx context.Context, collection string, filters ...storage.Filter) error {
	return f.inner.DeleteWhere(ctx, collection, filters...)
}

func (f *failableStore) RunTransaction(ctx context.Context, collection, id string, fn func(storage.Doc) (storage.Doc, error)) error {
	if f.failTransaction {
		return errInjected
	}
	return f.inner.RunTransaction(ctx, collection, id, fn)
}

func (f *failableStore) Subscribe(ctx context.Context, collection string, q storage.Query, fn func([]storage.Doc)) (func(), error) {
	return f.inner.Subscribe(ctx, collection, q, fn)
}

func TestSignUpCreatesProfile(t *testing.T) {
	f := newFixture(t)
	user := f.signUp(t, "alice@example.com", "alice")

	if user.Username != "alice" {
		t.Errorf("username = %q, want alice", user.Username)
	}
	if !user.HasBadge(models.BadgeFounding) {
		t.Error("expected the founding badge on a fresh profile")
	}
	if user.Streak != 0 || user.MoodScore != 0 {
		t.Errorf("fresh profile has streak=%d moodScore=%d, want zeros", user.Streak, user.MoodScore)
	}

	stored := f.storedUser(t, user.ID)
	if stored.Username != "alice" {
		t.Errorf("stored username = %q, want alice", stored.Username)
	}
}

func TestLoginResolvesProfileThroughSessionObserver(t *testing.T) {
	f := newFixture(t)
	alice := f.signUp(t, "alice@example.com", "alice")
	if err := f.store.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if f.store.State().User != nil {
		t.Fatal("expected no user after logout")
	}

	if err := f.store.Login(context.Background(), "alice@example.com", "Password1"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	state := f.store.State()
	if state.User == nil || state.User.ID != alice.ID {
		t.Fatal("expected the profile to be resolved after login")
	}
	if state.AuthError != "" {
		t.Errorf("authError = %q, want empty", state.AuthError)
	}
}

func TestLoginFailureSurfacesAuthError(t *testing.T) {
	f := newFixture(t)
	f.signUp(t, "alice@example.com", "alice")
	f.store.Logout(context.Background())

	err := f.store.Login(context.Background(), "alice@example.com", "wrong-password")
	if err == nil {
		t.Fatal("expected an error for a wrong password")
	}
	state := f.store.State()
	if state.AuthError != "Incorrect password" {
		t.Errorf("authError = %q, want %q", state.AuthError, "Incorrect password")
	}

	f.store.ClearAuthError()
	if got := f.store.State().AuthError; got != "" {
		t.Errorf("authError after clear = %q, want empty", got)
	}
}

func TestSessionResolutionSynthesizesMissingProfile(t *testing.T) {
	f := newFixture(t)
	// Account exists in the identity provider but has no profile document.
	if _, err := f.provider.CreateAccount(context.Background(), "ghost@example.com", "Password1"); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	state := f.store.State()
	if state.User == nil {
		t.Fatal("expected a synthesized profile")
	}
	if state.User.Username == "" {
		t.Error("synthesized profile must have a placeholder username")
	}
	if !state.User.HasBadge(models.BadgeFounding) {
		t.Error("synthesized profile must carry the founding badge")
	}
}

func TestSessionResolutionBackfillsMoodScore(t *testing.T) {
	f := newFixture(t)
	session, err := f.provider.CreateAccount(context.Background(), "old@example.com", "Password1")
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	f.provider.SignOut(context.Background())

	// Overwrite the profile as a pre-moodScore document with two posts.
	f.seedUser(t, models.User{ID: session.UserID, Username: "oldtimer", CreatedAt: models.InstantOf(*f.now)})
	f.seedVibe(t, models.Vibe{UserID: session.UserID, Username: "oldtimer", Mood: "Happy", Timestamp: models.InstantOf(*f.now)})
	f.seedVibe(t, models.Vibe{UserID: session.UserID, Username: "oldtimer", Mood: "Calm", Timestamp: models.InstantOf(*f.now)})

	if err := f.store.Login(context.Background(), "old@example.com", "Password1"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	state := f.store.State()
	if state.User == nil || state.User.MoodScore != 2 {
		t.Fatalf("moodScore = %v, want 2", state.User)
	}
	if stored := f.storedUser(t, session.UserID); stored.MoodScore != 2 {
		t.Errorf("stored moodScore = %d, want 2", stored.MoodScore)
	}
}

func TestDeleteAccountCascades(t *testing.T) {
	f := newFixture(t)
	alice := f.signUp(t, "alice@example.com", "alice")
	f.seedVibe(t, models.Vibe{UserID: alice.ID, Username: "alice", Mood: "Happy", Timestamp: models.InstantOf(*f.now)})
	if _, err := f.store.CreateCommunity(context.Background(), "chai lovers", "tea time", ""); err != nil {
		t.Fatalf("CreateCommunity: %v", err)
	}

	if err := f.store.DeleteAccount(context.Background()); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}

	ctx := context.Background()
	if n, _ := f.docs.Count(ctx, storage.CollectionVibes, storage.Where("userId", alice.ID)); n != 0 {
		t.Errorf("vibes left after cascade: %d", n)
	}
	if n, _ := f.docs.Count(ctx, storage.CollectionCommunities, storage.Where("createdBy", alice.ID)); n != 0 {
		t.Errorf("communities left after cascade: %d", n)
	}
	if _, err := f.docs.Get(ctx, storage.CollectionUsers, alice.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Error("profile document should be gone")
	}
	if f.store.State().User != nil {
		t.Error("expected no user after account deletion")
	}
}

func TestSubscribeFiresImmediatelyAndOnChange(t *testing.T) {
	f := newFixture(t)

	var snapshots []Snapshot
	cancel := f.store.Subscribe(func(snap Snapshot) {
		snapshots = append(snapshots, snap)
	})
	defer cancel()

	if len(snapshots) != 1 {
		t.Fatalf("observer fired %d times on registration, want 1", len(snapshots))
	}

	f.signUp(t, "alice@example.com", "alice")
	if len(snapshots) < 2 {
		t.Fatal("observer did not fire on state change")
	}
	last := snapshots[len(snapshots)-1]
	if last.User == nil || last.User.Username != "alice" {
		t.Error("latest snapshot missing the signed-up user")
	}

	cancel()
	before := len(snapshots)
	f.store.ClearAuthError()
	if len(snapshots) != before {
		t.Error("observer fired after cancellation")
	}
}
