package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moodboard/internal/storage"
)

const testSecret = "test-secret"

func newLocal(t *testing.T) *Local {
	t.Helper()
	return NewLocal(storage.NewMemory(), testSecret)
}

func TestCreateAccountAndSignIn(t *testing.T) {
	l := newLocal(t)
	ctx := context.Background()

	created, err := l.CreateAccount(ctx, "Mira@Example.com", "Password1")
	require.NoError(t, err)
	assert.NotEmpty(t, created.UserID)
	assert.Equal(t, "mira@example.com", created.Email, "email is normalized")
	assert.NotEmpty(t, created.Token)

	require.NoError(t, l.SignOut(ctx))
	assert.Nil(t, l.CurrentSession())

	// sign-in is case-insensitive on email and keeps the same user id
	signed, err := l.SignIn(ctx, "MIRA@example.com", "Password1")
	require.NoError(t, err)
	assert.Equal(t, created.UserID, signed.UserID)
	assert.Same(t, signed, l.CurrentSession())
}

func TestCreateAccountRejections(t *testing.T) {
	l := newLocal(t)
	ctx := context.Background()

	_, err := l.CreateAccount(ctx, "not-an-email", "Password1")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = l.CreateAccount(ctx, "mira@example.com", "")
	assert.ErrorIs(t, err, ErrInvalidCredential)

	_, err = l.CreateAccount(ctx, "mira@example.com", "Password1")
	require.NoError(t, err)
	_, err = l.CreateAccount(ctx, "mira@example.com", "Different1")
	assert.ErrorIs(t, err, ErrEmailInUse)
}

func TestSignInRejections(t *testing.T) {
	l := newLocal(t)
	ctx := context.Background()

	_, err := l.SignIn(ctx, "nobody@example.com", "Password1")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = l.CreateAccount(ctx, "mira@example.com", "Password1")
	require.NoError(t, err)

	_, err = l.SignIn(ctx, "mira@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrWrongPassword)
}

func TestTokenClaims(t *testing.T) {
	l := newLocal(t)
	ctx := context.Background()

	session, err := l.CreateAccount(ctx, "mira@example.com", "Password1")
	require.NoError(t, err)

	parsed, err := jwt.Parse(session.Token, func(*jwt.Token) (any, error) {
		return []byte(testSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, session.UserID, claims["sub"])
	assert.Equal(t, "mira@example.com", claims["email"])
	assert.Equal(t, "moodboard-api", claims["iss"])
	assert.NotEmpty(t, claims["jti"])

	exp, err := claims.GetExpirationTime()
	require.NoError(t, err)
	assert.True(t, exp.After(time.Now()))
}

func TestSessionObservers(t *testing.T) {
	l := newLocal(t)
	ctx := context.Background()

	var seen []*Session
	cancel := l.ObserveSession(func(s *Session) { seen = append(seen, s) })
	defer cancel()

	require.Len(t, seen, 1)
	assert.Nil(t, seen[0], "observer fires immediately with the signed-out state")

	session, err := l.CreateAccount(ctx, "mira@example.com", "Password1")
	require.NoError(t, err)
	require.Len(t, seen, 2)
	assert.Same(t, session, seen[1])

	require.NoError(t, l.SignOut(ctx))
	require.Len(t, seen, 3)
	assert.Nil(t, seen[2])

	cancel()
	_, err = l.SignIn(ctx, "mira@example.com", "Password1")
	require.NoError(t, err)
	assert.Len(t, seen, 3, "cancelled observer no longer fires")
}

func TestResumeEstablishesSessionWithoutToken(t *testing.T) {
	l := newLocal(t)

	var seen []*Session
	defer l.ObserveSession(func(s *Session) { seen = append(seen, s) })()

	session := l.Resume("user-1", "mira@example.com")
	assert.Equal(t, "user-1", session.UserID)
	assert.Empty(t, session.Token)
	assert.Same(t, session, l.CurrentSession())
	require.Len(t, seen, 2)
	assert.Same(t, session, seen[1])
}

func TestDeleteCurrentAccount(t *testing.T) {
	l := newLocal(t)
	ctx := context.Background()

	// without a session it is a no-op
	require.NoError(t, l.DeleteCurrentAccount(ctx))

	_, err := l.CreateAccount(ctx, "mira@example.com", "Password1")
	require.NoError(t, err)

	require.NoError(t, l.DeleteCurrentAccount(ctx))
	assert.Nil(t, l.CurrentSession())

	_, err = l.SignIn(ctx, "mira@example.com", "Password1")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
