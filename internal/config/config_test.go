package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_ValidateStorageDriver(t *testing.T) {
	tests := []struct {
		name        string
		driver      string
		dynamoTable string
		expectError bool
	}{
		{"Memory driver", "memory", "", false},
		{"Postgres driver", "postgres", "", false},
		{"Dynamo driver with table", "dynamo", "moodboard", false},
		{"Dynamo driver without table", "dynamo", "", true},
		{"Unknown driver", "cassandra", "", true},
		{"Empty driver", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{
				Port:          "8480",
				Env:           "development",
				JWTSecret:     "secure-secret-at-least-32-chars-long",
				StorageDriver: tt.driver,
				DynamoTable:   tt.dynamoTable,
			}

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateProduction(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{"Strong production config", func(c *Config) {}, false},
		{"Default JWT secret", func(c *Config) {
			c.JWTSecret = "your-secret-key-change-in-production"
		}, true},
		{"Short JWT secret", func(c *Config) {
			c.JWTSecret = "short"
		}, true},
		{"Memory driver in production", func(c *Config) {
			c.StorageDriver = "memory"
		}, true},
		{"Weak DB password with postgres", func(c *Config) {
			c.DBPassword = "password"
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{
				Port:          "8480",
				Env:           "production",
				JWTSecret:     "secure-secret-at-least-32-chars-long",
				StorageDriver: "postgres",
				DBPassword:    "an-actual-strong-password",
				DBSSLMode:     "require",
			}
			tt.mutate(c)

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_PostgresDSN(t *testing.T) {
	c := &Config{
		DBHost:     "db.internal",
		DBPort:     "5433",
		DBUser:     "mood",
		DBPassword: "pw",
		DBName:     "moodboard",
		DBSSLMode:  "require",
	}
	assert.Equal(t,
		"host=db.internal port=5433 user=mood password=pw dbname=moodboard sslmode=require",
		c.PostgresDSN())
}
