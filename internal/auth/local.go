package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"moodboard/internal/storage"
)

const tokenTTL = time.Hour * 24 * 7

// Local is a Provider backed by a credentials collection in the document
// store. Credential documents are keyed by normalized email so lookups are
// point reads.
type Local struct {
	docs   storage.DocumentStore
	secret string

	mu        sync.Mutex
	current   *Session
	observers map[int]func(*Session)
	nextObs   int
}

type credentialDoc struct {
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
	UserID       string `json:"userId"`
	CreatedAt    int64  `json:"createdAt"`
}

// NewLocal creates a credential-backed identity provider.
func NewLocal(docs storage.DocumentStore, secret string) *Local {
	return &Local{
		docs:      docs,
		secret:    secret,
		observers: make(map[int]func(*Session)),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 {
		return false
	}
	domain := email[at+1:]
	return strings.Contains(domain, ".") && !strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
}

// CreateAccount registers new credentials and signs the account in.
func (l *Local) CreateAccount(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if !validEmail(email) {
		return nil, ErrInvalidEmail
	}
	if password == "" {
		return nil, ErrInvalidCredential
	}

	if _, err := l.docs.Get(ctx, storage.CollectionCredentials, email); err == nil {
		return nil, ErrEmailInUse
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	cred := credentialDoc{
		Email:        email,
		PasswordHash: string(hash),
		UserID:       uuid.NewString(),
		CreatedAt:    time.Now().UnixMilli(),
	}
	doc, err := storage.Encode(cred)
	if err != nil {
		return nil, err
	}
	if err := l.docs.Set(ctx, storage.CollectionCredentials, email, doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	return l.establish(cred.UserID, email)
}

// SignIn checks credentials and establishes a session.
func (l *Local) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if !validEmail(email) {
		return nil, ErrInvalidEmail
	}

	raw, err := l.docs.Get(ctx, storage.CollectionCredentials, email)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	var cred credentialDoc
	if err := storage.Decode(raw, &cred); err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)) != nil {
		return nil, ErrWrongPassword
	}

	return l.establish(cred.UserID, email)
}

// SignOut clears the current session. Signing out while signed out is a no-op.
func (l *Local) SignOut(_ context.Context) error {
	l.mu.Lock()
	if l.current == nil {
		l.mu.Unlock()
		return nil
	}
	l.current = nil
	observers := l.observerList()
	l.mu.Unlock()

	for _, fn := range observers {
		fn(nil)
	}
	return nil
}

// DeleteCurrentAccount removes the signed-in account's credentials and
// signs out. Without a session it is a no-op.
func (l *Local) DeleteCurrentAccount(ctx context.Context) error {
	l.mu.Lock()
	current := l.current
	l.mu.Unlock()
	if current == nil {
		return nil
	}
	if err := l.docs.Delete(ctx, storage.CollectionCredentials, current.Email); err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	return l.SignOut(ctx)
}

// Resume establishes a session for an account that already proved its
// identity elsewhere, such as a request carrying a verified token. No
// credentials are checked and no new token is minted.
func (l *Local) Resume(userID, email string) *Session {
	session := &Session{UserID: userID, Email: email}

	l.mu.Lock()
	l.current = session
	observers := l.observerList()
	l.mu.Unlock()

	for _, fn := range observers {
		fn(session)
	}
	return session
}

// CurrentSession returns the active session, or nil when signed out.
func (l *Local) CurrentSession() *Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// ObserveSession registers a session observer. The observer fires
// immediately with the current state, then on every transition.
func (l *Local) ObserveSession(fn func(*Session)) func() {
	l.mu.Lock()
	id := l.nextObs
	l.nextObs++
	l.observers[id] = fn
	current := l.current
	l.mu.Unlock()

	fn(current)

	return func() {
		l.mu.Lock()
		delete(l.observers, id)
		l.mu.Unlock()
	}
}

func (l *Local) establish(userID, email string) (*Session, error) {
	token, err := l.generateToken(userID, email)
	if err != nil {
		return nil, err
	}
	session := &Session{UserID: userID, Email: email, Token: token}

	l.mu.Lock()
	l.current = session
	observers := l.observerList()
	l.mu.Unlock()

	for _, fn := range observers {
		fn(session)
	}
	return session, nil
}

func (l *Local) observerList() []func(*Session) {
	out := make([]func(*Session), 0, len(l.observers))
	for _, fn := range l.observers {
		out = append(out, fn)
	}
	return out
}

func (l *Local) generateToken(userID, email string) (string, error) {
	if l.secret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"iss":   "moodboard-api",
		"aud":   "moodboard-client",
		"exp":   now.Add(tokenTTL).Unix(),
		"iat":   now.Unix(),
		"nbf":   now.Unix(),
		"jti":   fmt.Sprintf("%d-%s", now.Unix(), uuid.New().String()[:8]),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(l.secret))
}
