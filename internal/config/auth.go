package config

import "time"

type AuthConfig struct {
	JWTSecret     string
	JWTTTL        time.Duration
	NonceTTL      time.Duration
	SIWEDomain    string
	SIWEStatement string
}

func loadAuth() AuthConfig {
	return AuthConfig{
		JWTSecret:     mustenv("JWT_SECRET"),
		JWTTTL:        durationEnvHours("JWT_TTL", 24*time.Hour),
		NonceTTL:      durationEnvSeconds("AUTH_NONCE_TTL", 5*time.Minute),
		SIWEDomain:    getenv("SIWE_DOMAIN", ""),
		SIWEStatement: getenv("SIWE_STATEMENT", ""),
	}
}
