package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"moodboard/internal/auth"
	"moodboard/internal/cache"
	"moodboard/internal/config"
	"moodboard/internal/middleware"
	"moodboard/internal/models"
	"moodboard/internal/storage"
	"moodboard/internal/storage/dynamo"
	"moodboard/internal/storage/gormdoc"
	"moodboard/internal/store"

	"github.com/gofiber/fiber/v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// OpenDocumentStore opens the document store named by STORAGE_DRIVER.
func OpenDocumentStore(cfg *config.Config) (storage.DocumentStore, error) {
	var feed storage.ChangeFeed = storage.NewLocalChangeFeed()
	if rdb := cache.GetClient(); rdb != nil {
		feed = storage.NewRedisChangeFeed(rdb)
	}

	switch cfg.StorageDriver {
	case config.DriverPostgres:
		db, err := gorm.Open(postgres.Open(cfg.PostgresDSN()), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return nil, fmt.Errorf("postgres connect: %w", err)
		}
		return gormdoc.New(db, feed)
	case config.DriverDynamo:
		client, err := dynamo.NewClient(context.Background(), cfg.AWSRegion)
		if err != nil {
			return nil, fmt.Errorf("dynamo client: %w", err)
		}
		return dynamo.New(client, cfg.DynamoTable, feed), nil
	default:
		return storage.NewMemory(), nil
	}
}

// sessionFor returns the state container for the authenticated user,
// creating and hydrating one on first use. The hydrated store mirrors what
// the client app holds after login: live vibe feed, notifications, and
// communities.
func (s *Server) sessionFor(c *fiber.Ctx) (*store.Store, error) {
	userID, ok := middleware.UserIDFromLocals(c)
	if !ok {
		_ = models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Authorization required"))
		return nil, errResponseWritten
	}

	s.sessMu.Lock()
	if sess, exists := s.sessions[userID]; exists {
		sess.lastSeen = time.Now()
		s.sessMu.Unlock()
		return sess.store, nil
	}
	s.sessMu.Unlock()

	sess, err := s.openSession(context.Background(), userID, middleware.EmailFromLocals(c))
	if err != nil {
		_ = models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewRemoteError(err))
		return nil, errResponseWritten
	}

	s.sessMu.Lock()
	if existing, exists := s.sessions[userID]; exists {
		// Lost the race to another request; keep the first session.
		s.sessMu.Unlock()
		sess.store.Close()
		return existing.store, nil
	}
	s.sessions[userID] = sess
	s.sessMu.Unlock()
	return sess.store, nil
}

// openSession builds and hydrates a state container for an authenticated
// user without checking credentials again.
func (s *Server) openSession(ctx context.Context, userID, email string) (*session, error) {
	provider := auth.NewLocal(s.docs, s.config.JWTSecret)
	st := store.New(s.docs, provider,
		store.WithLogger(s.logger.Logger))
	st.Start(ctx)
	provider.Resume(userID, email)

	snap := st.State()
	if snap.User == nil {
		st.Close()
		if snap.AuthError != "" {
			return nil, errors.New(snap.AuthError)
		}
		return nil, fmt.Errorf("no profile for user %s", userID)
	}

	if _, err := st.SubscribeVibes(ctx); err != nil {
		st.Close()
		return nil, err
	}
	if err := st.FetchNotifications(ctx); err != nil {
		st.Close()
		return nil, err
	}
	if err := st.FetchCommunities(ctx); err != nil {
		st.Close()
		return nil, err
	}

	return &session{store: st, provider: provider, lastSeen: time.Now()}, nil
}

// adoptSession registers a store created by a signup or login handler.
func (s *Server) adoptSession(userID string, sess *session) {
	s.sessMu.Lock()
	if old, exists := s.sessions[userID]; exists {
		old.store.Close()
	}
	s.sessions[userID] = sess
	s.sessMu.Unlock()
}

// dropSession removes and closes a user's session, if any.
func (s *Server) dropSession(userID string) {
	s.sessMu.Lock()
	sess, exists := s.sessions[userID]
	delete(s.sessions, userID)
	s.sessMu.Unlock()
	if exists {
		sess.store.Close()
	}
}

// respondOpError maps a state-operation error onto an HTTP status.
func respondOpError(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		status := fiber.StatusInternalServerError
		switch appErr.Code {
		case "NOT_FOUND":
			status = fiber.StatusNotFound
		case "VALIDATION_ERROR":
			status = fiber.StatusBadRequest
		case "UNAUTHORIZED", "AUTH_ERROR":
			status = fiber.StatusUnauthorized
		case "CONFLICT":
			status = fiber.StatusConflict
		}
		return models.RespondWithError(c, status, appErr)
	}
	return models.RespondWithError(c, fiber.StatusInternalServerError, err)
}

// requireParam extracts a non-empty route parameter. On failure it writes a
// 400 JSON response and returns errResponseWritten.
func requireParam(c *fiber.Ctx, name, label string) (string, error) {
	v := c.Params(name)
	if v == "" {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Missing "+label))
		return "", errResponseWritten
	}
	return v, nil
}
