package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"moodboard/internal/auth"
	"moodboard/internal/middleware"
	"moodboard/internal/models"
	"moodboard/internal/store"
	"moodboard/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// Signup handles POST /api/auth/signup. On success it returns the freshly
// minted token and the new profile.
func (s *Server) Signup(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Username, email, and password are required"))
	}
	if err := validation.ValidateUsername(req.Username); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}
	if err := validation.ValidateEmail(req.Email); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}

	provider := auth.NewLocal(s.docs, s.config.JWTSecret)
	st := store.New(s.docs, provider, store.WithLogger(s.logger.Logger))
	st.Start(context.Background())

	if err := st.SignUp(c.Context(), req.Email, req.Password, req.Username); err != nil {
		st.Close()
		return respondAuthError(c, err)
	}

	session := provider.CurrentSession()
	if session == nil {
		st.Close()
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewRemoteError(fmt.Errorf("no session after signup")))
	}

	s.finishLogin(c.Context(), st, provider, session.UserID)

	snap := st.State()
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token": session.Token,
		"user":  snap.User,
	})
}

// Login handles POST /api/auth/login.
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	provider := auth.NewLocal(s.docs, s.config.JWTSecret)
	st := store.New(s.docs, provider, store.WithLogger(s.logger.Logger))
	st.Start(context.Background())

	if err := st.Login(c.Context(), req.Email, req.Password); err != nil {
		st.Close()
		return respondAuthError(c, err)
	}

	session := provider.CurrentSession()
	if session == nil {
		st.Close()
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid credentials"))
	}

	s.finishLogin(c.Context(), st, provider, session.UserID)

	snap := st.State()
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"token": session.Token,
		"user":  snap.User,
	})
}

// finishLogin hydrates the freshly signed-in store and registers it as the
// user's server-side session. Hydration failures are tolerated; later
// requests retry through sessionFor.
func (s *Server) finishLogin(ctx context.Context, st *store.Store, provider *auth.Local, userID string) {
	if _, err := st.SubscribeVibes(ctx); err != nil {
		s.logger.Warn("vibe feed subscription failed on login", "userId", userID, "error", err)
	}
	if err := st.FetchNotifications(ctx); err != nil {
		s.logger.Warn("notification hydration failed on login", "userId", userID, "error", err)
	}
	if err := st.FetchCommunities(ctx); err != nil {
		s.logger.Warn("community hydration failed on login", "userId", userID, "error", err)
	}
	s.adoptSession(userID, &session{store: st, provider: provider, lastSeen: time.Now()})
}

// Logout handles POST /api/auth/logout. The presented token's id goes on
// the revocation blacklist until it would have expired anyway.
func (s *Server) Logout(c *fiber.Ctx) error {
	userID, _ := middleware.UserIDFromLocals(c)

	if jti, exp := middleware.TokenMetaFromLocals(c); jti != "" && s.redis != nil {
		ttl := time.Until(exp)
		if ttl <= 0 {
			ttl = time.Minute
		}
		if err := s.redis.Set(c.Context(), "blacklist:"+jti, "1", ttl).Err(); err != nil {
			s.logger.Warn("token blacklist write failed", "error", err)
		}
	}

	s.dropSession(userID)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Logged out"})
}

// DeleteAccount handles DELETE /api/auth/account. It removes the user's
// vibes, created communities, community posts, profile, and credentials.
func (s *Server) DeleteAccount(c *fiber.Ctx) error {
	st, err := s.sessionFor(c)
	if err != nil {
		return nil
	}

	if err := st.DeleteAccount(c.Context()); err != nil {
		return respondOpError(c, err)
	}

	userID, _ := middleware.UserIDFromLocals(c)
	s.dropSession(userID)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Account deleted"})
}

// respondAuthError maps identity-provider failures to 401/409/500.
func respondAuthError(c *fiber.Ctx, err error) error {
	status := fiber.StatusUnauthorized
	switch {
	case isAuthErr(err, auth.ErrEmailInUse):
		status = fiber.StatusConflict
	case isAuthErr(err, auth.ErrInvalidEmail):
		status = fiber.StatusBadRequest
	case isAuthErr(err, auth.ErrNetwork):
		status = fiber.StatusInternalServerError
	}
	return models.RespondWithError(c, status, err)
}

func isAuthErr(err, target error) bool {
	// AppError.Unwrap exposes the wrapped provider error.
	return errors.Is(err, target)
}
