package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePassword(t *testing.T) {
	cases := []struct {
		name     string
		password string
		wantErr  string
	}{
		{"valid", "Password1", ""},
		{"too short", "Pw1", "at least 8"},
		{"too long", "A1" + strings.Repeat("a", 127), "not exceed 128"},
		{"no uppercase", "password1", "uppercase"},
		{"no lowercase", "PASSWORD1", "lowercase"},
		{"no digit", "Passwords", "digit"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePassword(tc.password)
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tc.wantErr)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	cases := []struct {
		name     string
		username string
		wantErr  string
	}{
		{"valid", "brave-otter-42", ""},
		{"valid with underscore", "mira_k", ""},
		{"too short", "ab", "at least 3"},
		{"too long", strings.Repeat("a", 31), "not exceed 30"},
		{"illegal characters", "mira k!", "can only contain"},
		{"leading hyphen", "-mira", "cannot start or end"},
		{"trailing underscore", "mira_", "cannot start or end"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateUsername(tc.username)
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tc.wantErr)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("mira@example.com"))
	assert.NoError(t, ValidateEmail("first.last+tag@sub.example.co"))
	assert.Error(t, ValidateEmail("not-an-email"))
	assert.Error(t, ValidateEmail("missing@tld"))
	assert.Error(t, ValidateEmail("@example.com"))
}

func TestValidateMood(t *testing.T) {
	assert.NoError(t, ValidateMood("Happy"))
	assert.NoError(t, ValidateMood("Overthinking"))
	assert.NoError(t, ValidateMood("grateful"), "single-word custom moods are allowed")
	assert.Error(t, ValidateMood(""))
	assert.ErrorContains(t, ValidateMood("very tired"), "single word")
	assert.ErrorContains(t, ValidateMood(strings.Repeat("x", 21)), "not exceed 20")
}

func TestValidateVibeText(t *testing.T) {
	assert.NoError(t, ValidateVibeText(""))
	assert.NoError(t, ValidateVibeText(strings.Repeat("a", 100)))
	assert.Error(t, ValidateVibeText(strings.Repeat("a", 101)))
	// the cap counts runes, not bytes
	assert.NoError(t, ValidateVibeText(strings.Repeat("é", 100)))
}

func TestValidateCommunityName(t *testing.T) {
	assert.NoError(t, ValidateCommunityName("midnight thoughts"))
	assert.Error(t, ValidateCommunityName("ab"))
	assert.Error(t, ValidateCommunityName("  a  "))
	assert.Error(t, ValidateCommunityName(strings.Repeat("n", 41)))
}
