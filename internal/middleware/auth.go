// Package middleware provides authentication, metrics, and rate-limiting
// middleware for the application.
package middleware

import (
	"context"
	"strings"
	"time"

	"moodboard/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

// ContextKey is the type for values stored in the request's UserContext.
type ContextKey string

// UserIDKey carries the authenticated user id through the request context.
const UserIDKey ContextKey = "userID"

// Token issuer and audience accepted by the auth middleware. They must match
// the values minted by the identity provider.
const (
	TokenIssuer   = "moodboard-api"
	TokenAudience = "moodboard-client"
)

// AuthRequired returns middleware that enforces a valid bearer token and
// stores the subject user id in c.Locals("userID"). rdb may be nil; when set,
// revoked token ids (jti) are checked against the blacklist.
func AuthRequired(secret string, rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		tokenString := ""
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
		if tokenString == "" {
			// WebSocket clients cannot set headers; allow the query form.
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		claims, err := parseToken(tokenString, secret)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError(err.Error()))
		}

		if claims.JTI != "" && rdb != nil {
			blacklisted, err := rdb.Exists(c.Context(), "blacklist:"+claims.JTI).Result()
			if err == nil && blacklisted > 0 {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Token has been revoked"))
			}
		}

		c.Locals("userID", claims.UserID)
		c.Locals("userEmail", claims.Email)
		c.Locals("tokenJTI", claims.JTI)
		c.Locals("tokenExp", claims.ExpiresAt)
		c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, claims.UserID))
		return c.Next()
	}
}

// TokenClaims are the validated claims AuthRequired extracts from a token.
type TokenClaims struct {
	UserID    string
	Email     string
	JTI       string
	ExpiresAt time.Time
}

// parseToken validates the signature, issuer, and audience, and returns the
// claims the handlers care about.
func parseToken(tokenString, secret string) (TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return TokenClaims{}, fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return TokenClaims{}, fiber.NewError(fiber.StatusUnauthorized, "Invalid token claims")
	}
	if issuer, issuerOk := claims["iss"].(string); !issuerOk || issuer != TokenIssuer {
		return TokenClaims{}, fiber.NewError(fiber.StatusUnauthorized, "Invalid token issuer")
	}
	if audience, audienceOk := claims["aud"].(string); !audienceOk || audience != TokenAudience {
		return TokenClaims{}, fiber.NewError(fiber.StatusUnauthorized, "Invalid token audience")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return TokenClaims{}, fiber.NewError(fiber.StatusUnauthorized, "Invalid subject claim")
	}

	out := TokenClaims{UserID: sub}
	out.Email, _ = claims["email"].(string)
	out.JTI, _ = claims["jti"].(string)
	if exp, expErr := claims.GetExpirationTime(); expErr == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}

// UserIDFromLocals extracts the authenticated user id set by AuthRequired.
func UserIDFromLocals(c *fiber.Ctx) (string, bool) {
	userID, ok := c.Locals("userID").(string)
	return userID, ok && userID != ""
}

// EmailFromLocals extracts the token's email claim set by AuthRequired.
func EmailFromLocals(c *fiber.Ctx) string {
	email, _ := c.Locals("userEmail").(string)
	return email
}

// TokenMetaFromLocals extracts the token id and expiry set by AuthRequired,
// for revocation on logout.
func TokenMetaFromLocals(c *fiber.Ctx) (jti string, exp time.Time) {
	jti, _ = c.Locals("tokenJTI").(string)
	exp, _ = c.Locals("tokenExp").(time.Time)
	return jti, exp
}
