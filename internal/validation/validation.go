// Package validation provides input validation utilities.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"moodboard/internal/models"
)

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	digitRegex    = regexp.MustCompile(`[0-9]`)
)

// ValidatePassword checks if a password meets security requirements.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}
	if len(password) > 128 {
		return fmt.Errorf("password must not exceed 128 characters")
	}

	hasUpper := false
	hasLower := false
	for _, r := range password {
		if unicode.IsUpper(r) {
			hasUpper = true
		}
		if unicode.IsLower(r) {
			hasLower = true
		}
	}
	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !digitRegex.MatchString(password) {
		return fmt.Errorf("password must contain at least one digit")
	}

	return nil
}

// ValidateUsername checks if a username meets requirements.
func ValidateUsername(username string) error {
	if len(username) < 3 {
		return fmt.Errorf("username must be at least 3 characters long")
	}
	if len(username) > 30 {
		return fmt.Errorf("username must not exceed 30 characters")
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username can only contain letters, numbers, underscores, and hyphens")
	}
	if username[0] == '_' || username[0] == '-' || username[len(username)-1] == '_' || username[len(username)-1] == '-' {
		return fmt.Errorf("username cannot start or end with underscore or hyphen")
	}

	return nil
}

// ValidateEmail checks basic email format.
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	if len(email) > 254 {
		return fmt.Errorf("email must not exceed 254 characters")
	}

	return nil
}

// ValidateMood accepts any label from the fixed vocabulary, or a single-word
// custom label. A custom label matching a vocabulary label is deliberately
// allowed.
func ValidateMood(mood string) error {
	if mood == "" {
		return fmt.Errorf("mood is required")
	}
	for _, m := range models.Moods {
		if m.Label == mood {
			return nil
		}
	}
	if strings.ContainsAny(mood, " \t\n") {
		return fmt.Errorf("custom mood must be a single word")
	}
	if len([]rune(mood)) > 20 {
		return fmt.Errorf("custom mood must not exceed 20 characters")
	}

	return nil
}

// ValidateVibeText enforces the vibe text length cap.
func ValidateVibeText(text string) error {
	if len([]rune(text)) > models.MaxVibeTextLen {
		return fmt.Errorf("vibe text must not exceed %d characters", models.MaxVibeTextLen)
	}

	return nil
}

// ValidateCommunityName checks a community name.
func ValidateCommunityName(name string) error {
	name = strings.TrimSpace(name)
	if len(name) < 3 {
		return fmt.Errorf("community name must be at least 3 characters long")
	}
	if len(name) > 40 {
		return fmt.Errorf("community name must not exceed 40 characters")
	}

	return nil
}
