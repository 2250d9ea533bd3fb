// Package store implements the observable application state container. It
// holds the signed-in user's profile, the vibe feed, notifications and
// communities, and mediates every mutation between callers and the document
// store, applying optimistic local updates and rolling them back on remote
// failure.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"moodboard/internal/auth"
	"moodboard/internal/models"
	"moodboard/internal/storage"
)

// Snapshot is an immutable view of the application state handed to
// observers. Slices are copies; mutating a snapshot never affects the store.
type Snapshot struct {
	User           *models.User
	Vibes          []models.Vibe
	Notifications  []models.Notification
	Communities    []models.Community
	HasPostedToday bool
	IsLoading      bool
	AuthError      string
}

// Store is the application state container. All state transitions go through
// its named operations; UI layers read snapshots and never mutate state
// directly. A single mutex stands in for the event loop that serialized
// state transitions in the mobile client.
type Store struct {
	docs     storage.DocumentStore
	provider auth.Provider
	logger   *slog.Logger
	clock    func() time.Time
	loc      *time.Location

	mu            sync.Mutex
	user          *models.User
	vibes         []models.Vibe
	notifications []models.Notification
	communities   []models.Community
	isLoading     bool
	authError     string
	resolving     bool

	observers map[int]func(Snapshot)
	nextObs   int

	unsubVibes  func()
	stopSession func()
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithClock overrides the wall clock, for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) { s.clock = clock }
}

// WithLocation sets the location used for calendar-day boundaries.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) { s.loc = loc }
}

// New creates a state container bound to a document store and an identity
// provider. The store starts in the loading state until Start resolves the
// initial session.
func New(docs storage.DocumentStore, provider auth.Provider, opts ...Option) *Store {
	s := &Store{
		docs:      docs,
		provider:  provider,
		logger:    slog.Default(),
		clock:     time.Now,
		loc:       time.Local,
		isLoading: true,
		observers: make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start subscribes to the identity provider's session stream and resolves
// the profile for whatever session is already active. The subscription lives
// for the lifetime of the store.
func (s *Store) Start(ctx context.Context) {
	s.stopSession = s.provider.ObserveSession(func(session *auth.Session) {
		s.onSessionChange(ctx, session)
	})
}

// Close tears down the session subscription and any live feed subscription.
func (s *Store) Close() {
	s.mu.Lock()
	unsubVibes := s.unsubVibes
	s.unsubVibes = nil
	stopSession := s.stopSession
	s.stopSession = nil
	s.mu.Unlock()

	if unsubVibes != nil {
		unsubVibes()
	}
	if stopSession != nil {
		stopSession()
	}
}

// Subscribe registers a state observer. The observer fires immediately with
// the current snapshot and then after every state transition.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	snap := s.snapshotLocked()
	s.mu.Unlock()

	fn(snap)

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// State returns the current snapshot.
func (s *Store) State() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// SignUp creates an account and its profile document. Session resolution is
// suppressed while the account is created so the chosen username wins over
// the default-profile synthesis the resolver would otherwise perform.
func (s *Store) SignUp(ctx context.Context, email, password, username string) error {
	s.mu.Lock()
	s.authError = ""
	s.resolving = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.resolving = false
		s.mu.Unlock()
	}()

	session, err := s.provider.CreateAccount(ctx, email, password)
	if err != nil {
		return s.failAuth(err)
	}

	profile := s.newProfile(session.UserID, username)
	doc, err := storage.Encode(profile)
	if err != nil {
		return models.NewRemoteError(err)
	}
	if err := s.docs.Set(ctx, storage.CollectionUsers, session.UserID, doc); err != nil {
		return s.failAuth(err)
	}

	s.mu.Lock()
	s.user = &profile
	s.isLoading = false
	s.mu.Unlock()
	s.notify()
	return nil
}

// Login authenticates credentials. Profile resolution happens through the
// session observer.
func (s *Store) Login(ctx context.Context, email, password string) error {
	s.mu.Lock()
	s.authError = ""
	s.mu.Unlock()

	if _, err := s.provider.SignIn(ctx, email, password); err != nil {
		return s.failAuth(err)
	}
	return nil
}

// Logout signs out and clears the session-scoped state.
func (s *Store) Logout(ctx context.Context) error {
	if err := s.provider.SignOut(ctx); err != nil {
		s.logger.Error("logout failed", "error", err)
		return models.NewRemoteError(err)
	}
	s.mu.Lock()
	s.authError = ""
	s.mu.Unlock()
	s.notify()
	return nil
}

// DeleteAccount removes the user's vibes, created communities, community
// posts and profile, then deletes the identity-provider account.
func (s *Store) DeleteAccount(ctx context.Context) error {
	s.mu.Lock()
	user := s.user
	s.mu.Unlock()
	if user == nil {
		return nil
	}

	if err := s.docs.DeleteWhere(ctx, storage.CollectionVibes, storage.Where("userId", user.ID)); err != nil {
		return models.NewRemoteError(err)
	}
	if err := s.docs.DeleteWhere(ctx, storage.CollectionCommunities, storage.Where("createdBy", user.ID)); err != nil {
		return models.NewRemoteError(err)
	}
	if err := s.docs.DeleteWhere(ctx, storage.CollectionCommunityPosts, storage.Where("userId", user.ID)); err != nil {
		return models.NewRemoteError(err)
	}
	if err := s.docs.Delete(ctx, storage.CollectionUsers, user.ID); err != nil {
		return models.NewRemoteError(err)
	}
	if err := s.provider.DeleteCurrentAccount(ctx); err != nil {
		return models.NewRemoteError(err)
	}

	s.mu.Lock()
	s.authError = ""
	s.mu.Unlock()
	s.notify()
	return nil
}

// ClearAuthError clears the surfaced auth error.
func (s *Store) ClearAuthError() {
	s.mu.Lock()
	s.authError = ""
	s.mu.Unlock()
	s.notify()
}

func (s *Store) onSessionChange(ctx context.Context, session *auth.Session) {
	if session == nil {
		s.mu.Lock()
		s.user = nil
		s.isLoading = false
		s.mu.Unlock()
		s.notify()
		return
	}

	s.mu.Lock()
	if s.resolving {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	profile, err := s.resolveProfile(ctx, session.UserID)
	s.mu.Lock()
	if err != nil {
		s.user = nil
		s.isLoading = false
		s.authError = "Database Error: " + err.Error()
	} else {
		s.user = profile
		s.isLoading = false
		s.authError = ""
	}
	s.mu.Unlock()
	s.notify()
}

// resolveProfile loads the profile for a session. A missing profile is
// repaired with a synthesized default, and a profile predating the
// moodScore field gets it backfilled from the historical post count.
func (s *Store) resolveProfile(ctx context.Context, userID string) (*models.User, error) {
	raw, err := s.docs.Get(ctx, storage.CollectionUsers, userID)
	if errors.Is(err, storage.ErrNotFound) {
		profile := s.newProfile(userID, fmt.Sprintf("User%d", rand.Intn(10000)))
		doc, encErr := storage.Encode(profile)
		if encErr != nil {
			return nil, encErr
		}
		if err := s.docs.Set(ctx, storage.CollectionUsers, userID, doc); err != nil {
			return nil, err
		}
		s.logger.Warn("session had no profile, created default", "userId", userID)
		return &profile, nil
	}
	if err != nil {
		return nil, err
	}

	var profile models.User
	if err := storage.Decode(raw, &profile); err != nil {
		return nil, err
	}

	if profile.MoodScore == 0 {
		count, err := s.docs.Count(ctx, storage.CollectionVibes, storage.Where("userId", userID))
		if err == nil && count > 0 {
			if err := s.docs.Update(ctx, storage.CollectionUsers, userID, storage.Set("moodScore", count)); err == nil {
				profile.MoodScore = count
			}
		}
	}
	return &profile, nil
}

func (s *Store) newProfile(userID, username string) models.User {
	return models.User{
		ID:            userID,
		Username:      username,
		Badges:        []string{models.BadgeFounding},
		JoinedCircles: []string{},
		CreatedAt:     models.InstantOf(s.clock()),
	}
}

func (s *Store) failAuth(err error) error {
	message := auth.Message(err)
	s.mu.Lock()
	s.authError = message
	s.isLoading = false
	s.mu.Unlock()
	s.notify()
	return models.NewAuthError(message, err)
}

// notify fans the current snapshot out to all observers, outside the lock.
func (s *Store) notify() {
	s.mu.Lock()
	snap := s.snapshotLocked()
	observers := make([]func(Snapshot), 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	s.mu.Unlock()

	for _, fn := range observers {
		fn(snap)
	}
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Vibes:         append([]models.Vibe(nil), s.vibes...),
		Notifications: append([]models.Notification(nil), s.notifications...),
		Communities:   append([]models.Community(nil), s.communities...),
		IsLoading:     s.isLoading,
		AuthError:     s.authError,
	}
	if s.user != nil {
		u := *s.user
		snap.User = &u
		if u.LastPostedDate != nil {
			snap.HasPostedToday = models.SameDay(*u.LastPostedDate, models.InstantOf(s.clock()), s.loc)
		}
	}
	return snap
}

// currentUser returns a pointer to the live user under the caller-held
// assumption that the store lock is NOT held. It is a convenience for
// operations that bail out when signed out.
func (s *Store) currentUser() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func containsString(in []string, v string) bool {
	for _, e := range in {
		if e == v {
			return true
		}
	}
	return false
}

func cloneStrings(in []string) []string {
	return append([]string(nil), in...)
}

func removeString(in []string, v string) []string {
	out := make([]string, 0, len(in))
	for _, e := range in {
		if e != v {
			out = append(out, e)
		}
	}
	return out
}
