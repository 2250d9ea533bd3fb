package server

import (
	"time"

	"moodboard/internal/cache"
	"moodboard/internal/middleware"
	"moodboard/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/users/me.
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	st, err := s.sessionFor(c)
	if err != nil {
		return nil
	}

	snap := st.State()
	if snap.User == nil {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("user", "me"))
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"user":           snap.User,
		"hasPostedToday": snap.HasPostedToday,
	})
}

// UpdateUsername handles PUT /api/users/me/username.
func (s *Server) UpdateUsername(c *fiber.Ctx) error {
	st, err := s.sessionFor(c)
	if err != nil {
		return nil
	}

	var req struct {
		Username string `json:"username"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := st.UpdateUsername(c.Context(), req.Username); err != nil {
		return respondOpError(c, err)
	}
	s.invalidateSelfProfile(c)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"user": st.State().User})
}

// RegenerateUsername handles POST /api/users/me/username/regenerate.
func (s *Server) RegenerateUsername(c *fiber.Ctx) error {
	st, err := s.sessionFor(c)
	if err != nil {
		return nil
	}

	if err := st.RegenerateUsername(c.Context()); err != nil {
		return respondOpError(c, err)
	}
	s.invalidateSelfProfile(c)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"user": st.State().User})
}

// UpdateAvatar handles PUT /api/users/me/avatar.
func (s *Server) UpdateAvatar(c *fiber.Ctx) error {
	st, err := s.sessionFor(c)
	if err != nil {
		return nil
	}

	var req struct {
		AvatarURL string `json:"avatarUrl"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := st.UpdateAvatar(c.Context(), req.AvatarURL); err != nil {
		return respondOpError(c, err)
	}
	s.invalidateSelfProfile(c)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"user": st.State().User})
}

// SearchUsers handles GET /api/users/search?q=.
func (s *Server) SearchUsers(c *fiber.Ctx) error {
	st, err := s.sessionFor(c)
	if err != nil {
		return nil
	}

	query := c.Query("q")
	if query == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Query parameter q is required"))
	}

	users, opErr := st.SearchUsers(c.Context(), query)
	if opErr != nil {
		return respondOpError(c, opErr)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"users": users})
}

// GetAllUsers handles GET /api/users.
func (s *Server) GetAllUsers(c *fiber.Ctx) error {
	st, err := s.sessionFor(c)
	if err != nil {
		return nil
	}

	users, opErr := st.AllUsers(c.Context())
	if opErr != nil {
		return respondOpError(c, opErr)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"users": users})
}

// GetUserProfile handles GET /api/users/:id, serving from the profile cache
// when warm.
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	st, err := s.sessionFor(c)
	if err != nil {
		return nil
	}
	userID, err := requireParam(c, "id", "user id")
	if err != nil {
		return nil
	}

	var user models.User
	cacheErr := cache.CacheAside(c.Context(), cache.UserProfileKey(userID), &user,
		s.cacheTTL(), func() error {
			found, lookupErr := st.LookupUser(c.Context(), userID)
			if lookupErr != nil {
				return lookupErr
			}
			user = *found
			return nil
		})
	if cacheErr != nil {
		return respondOpError(c, cacheErr)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"user": user})
}

// RefreshBadges handles POST /api/badges/refresh, returning any newly
// earned badges.
func (s *Server) RefreshBadges(c *fiber.Ctx) error {
	st, err := s.sessionFor(c)
	if err != nil {
		return nil
	}

	granted, opErr := st.RefreshBadges(c.Context())
	if opErr != nil {
		return respondOpError(c, opErr)
	}
	if len(granted) > 0 {
		s.invalidateSelfProfile(c)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"granted": granted,
		"user":    st.State().User,
	})
}

// UnlockAdBadge handles POST /api/badges/:id/unlock.
func (s *Server) UnlockAdBadge(c *fiber.Ctx) error {
	st, err := s.sessionFor(c)
	if err != nil {
		return nil
	}
	badgeID, err := requireParam(c, "id", "badge id")
	if err != nil {
		return nil
	}

	if err := st.UnlockAdBadge(c.Context(), badgeID); err != nil {
		return respondOpError(c, err)
	}
	s.invalidateSelfProfile(c)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"user": st.State().User})
}

func (s *Server) invalidateSelfProfile(c *fiber.Ctx) {
	if userID, ok := middleware.UserIDFromLocals(c); ok {
		cache.Invalidate(c.Context(), cache.UserProfileKey(userID))
	}
}

func (s *Server) cacheTTL() time.Duration {
	if s.config.CacheTTLSeconds > 0 {
		return time.Duration(s.config.CacheTTLSeconds) * time.Second
	}
	return 5 * time.Minute
}
