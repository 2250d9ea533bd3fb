// Package seed provides helpers to create demo data for development and
// testing. These helpers write through the same document-store contract the
// application uses, so seeded data behaves exactly like user-created data.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"moodboard/internal/auth"
	"moodboard/internal/models"
	"moodboard/internal/storage"

	"github.com/brianvoe/gofakeit/v6"
)

var seedCities = []string{
	"Mumbai", "Delhi", "Bengaluru", "Pune", "Chennai",
	"Hyderabad", "Kolkata", "Jaipur", "Goa", "Kochi",
}

var communityNames = []string{
	"chai-lovers", "midnight-overthinkers", "monday-survivors",
	"gym-vibes", "street-food-hunters", "lo-fi-study",
	"cricket-talk", "startup-gossip", "rainy-day-readers",
}

// Factory builds domain entities and persists them through the document
// store and identity provider.
type Factory struct {
	docs     storage.DocumentStore
	provider *auth.Local
	rng      *rand.Rand
	clock    func() time.Time
}

// NewFactory creates a Factory bound to the given document store. The
// secret signs tokens for seeded accounts; every account gets the password
// "Password1".
func NewFactory(docs storage.DocumentStore, secret string) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	return &Factory{
		docs:     docs,
		provider: auth.NewLocal(docs, secret),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		clock:    time.Now,
	}
}

// WithClock overrides the factory's wall clock, for tests.
func (f *Factory) WithClock(clock func() time.Time) *Factory {
	f.clock = clock
	return f
}

// CreateUser registers credentials and a profile for a generated user.
// Optional override functions may modify the profile before it is saved.
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*models.User)) (*models.User, error) {
	email := fmt.Sprintf("%s%d@example.com", gofakeit.Username(), gofakeit.Number(100, 999))
	session, err := f.provider.CreateAccount(ctx, email, "Password1")
	if err != nil {
		return nil, fmt.Errorf("seed account: %w", err)
	}

	user := models.User{
		ID:            session.UserID,
		Username:      fmt.Sprintf("%s-%s-%d", gofakeit.AdjectiveDescriptive(), gofakeit.NounAbstract(), gofakeit.Number(10, 99)),
		AvatarURL:     fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
		Badges:        []string{models.BadgeFounding},
		JoinedCircles: []string{},
		CreatedAt:     models.InstantOf(f.clock().Add(-time.Duration(f.rng.Intn(90*24)) * time.Hour)),
	}
	for _, override := range overrides {
		override(&user)
	}

	doc, err := storage.Encode(user)
	if err != nil {
		return nil, err
	}
	if err := f.docs.Set(ctx, storage.CollectionUsers, user.ID, doc); err != nil {
		return nil, fmt.Errorf("seed profile: %w", err)
	}
	return &user, nil
}

// CreateVibe persists a generated vibe for the given user, spread over the
// past few weeks so feeds and streak math have realistic data.
func (f *Factory) CreateVibe(ctx context.Context, user *models.User, overrides ...func(*models.Vibe)) (*models.Vibe, error) {
	mood := models.Moods[f.rng.Intn(len(models.Moods))]
	posted := f.clock().Add(-time.Duration(f.rng.Intn(21*24)) * time.Hour)

	vibe := models.Vibe{
		UserID:    user.ID,
		Username:  user.Username,
		Mood:      mood.Label,
		Emoji:     mood.Emoji,
		Text:      gofakeit.Sentence(f.rng.Intn(8) + 3),
		City:      seedCities[f.rng.Intn(len(seedCities))],
		Timestamp: models.InstantOf(posted),
		LikedBy:   []string{},
	}
	for _, override := range overrides {
		override(&vibe)
	}

	doc, err := storage.Encode(vibe)
	if err != nil {
		return nil, err
	}
	id, err := f.docs.Add(ctx, storage.CollectionVibes, doc)
	if err != nil {
		return nil, fmt.Errorf("seed vibe: %w", err)
	}
	vibe.ID = id
	return &vibe, nil
}

// CreateCommunity persists a community owned by the given user, with the
// given extra members.
func (f *Factory) CreateCommunity(ctx context.Context, owner *models.User, members []*models.User, overrides ...func(*models.Community)) (*models.Community, error) {
	memberIDs := []string{owner.ID}
	for _, m := range members {
		memberIDs = append(memberIDs, m.ID)
	}

	community := models.Community{
		Name:         communityNames[f.rng.Intn(len(communityNames))] + fmt.Sprintf("-%d", gofakeit.Number(10, 99)),
		Description:  gofakeit.Sentence(8),
		CreatedBy:    owner.ID,
		Members:      memberIDs,
		Admins:       []string{owner.ID},
		JoinRequests: []string{},
		CreatedAt:    models.InstantOf(f.clock()),
	}
	for _, override := range overrides {
		override(&community)
	}

	doc, err := storage.Encode(community)
	if err != nil {
		return nil, err
	}
	id, err := f.docs.Add(ctx, storage.CollectionCommunities, doc)
	if err != nil {
		return nil, fmt.Errorf("seed community: %w", err)
	}
	community.ID = id

	for _, userID := range memberIDs {
		if err := f.docs.Update(ctx, storage.CollectionUsers, userID,
			storage.Union("joinedCircles", id)); err != nil {
			return nil, fmt.Errorf("seed membership: %w", err)
		}
	}
	return &community, nil
}

// Befriend links two users and records the accepted-request notification the
// normal flow would have produced.
func (f *Factory) Befriend(ctx context.Context, a, b *models.User) error {
	if err := f.docs.Update(ctx, storage.CollectionUsers, a.ID,
		storage.Union("friends", b.ID)); err != nil {
		return err
	}
	if err := f.docs.Update(ctx, storage.CollectionUsers, b.ID,
		storage.Union("friends", a.ID)); err != nil {
		return err
	}

	note := models.Notification{
		Type:       models.NotificationFriendAccept,
		SenderID:   b.ID,
		ReceiverID: a.ID,
		CreatedAt:  models.InstantOf(f.clock()),
	}
	doc, err := storage.Encode(note)
	if err != nil {
		return err
	}
	_, err = f.docs.Add(ctx, storage.CollectionNotifications, doc)
	return err
}
