package config

import (
	"fmt"
	"strconv"
	"time"
)

// Environment variables for the control server's token settings.
const (
	EnvControlSecret     = "JOBARU_CONTROL_SECRET"
	EnvControlTokenHours = "JOBARU_CONTROL_TOKEN_HOURS"
)

// JWTConfig holds the signing settings for control server tokens.
type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

// NewJWTConfig reads JOBARU_CONTROL_SECRET (required) and
// JOBARU_CONTROL_TOKEN_HOURS (default: 12) via getenv.
func NewJWTConfig(getenv func(string) string) (*JWTConfig, error) {
	secret := getenv(EnvControlSecret)
	if secret == "" {
		return nil, fmt.Errorf("%s is required but not set", EnvControlSecret)
	}

	hoursStr := getenv(EnvControlTokenHours)
	if hoursStr == "" {
		hoursStr = "12"
	}
	hours, err := strconv.Atoi(hoursStr)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %v", EnvControlTokenHours, err)
	}

	cfg := &JWTConfig{Secret: secret, ExpirationHours: hours}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Expiration is the token lifetime.
func (c *JWTConfig) Expiration() time.Duration {
	return time.Duration(c.ExpirationHours) * time.Hour
}

func (c *JWTConfig) normalize() error {
	if len(c.Secret) < 16 {
		return fmt.Errorf("%s must be at least 16 characters", EnvControlSecret)
	}
	if c.ExpirationHours < 1 {
		return fmt.Errorf("%s must be at least 1 hour, got: %d", EnvControlTokenHours, c.ExpirationHours)
	}
	return nil
}
