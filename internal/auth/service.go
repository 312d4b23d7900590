package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/Libertai/libertai-inference/internal/config"
	"github.com/Libertai/libertai-inference/internal/store"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spruceid/siwe-go"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type Claims struct {
	Address string
	jwt.RegisteredClaims
}

// Service authenticates users by wallet signature and issues address-scoped
// JWTs. Users are not pre-registered; the ledger creates them lazily on first
// credit, so login only proves control of the address.
type Service struct {
	secret    []byte
	ttl       time.Duration
	nonces    *nonceStore
	domain    string
	statement string
}

func NewService(cfg config.AuthConfig) *Service {
	return &Service{
		secret:    []byte(cfg.JWTSecret),
		ttl:       cfg.JWTTTL,
		nonces:    newNonceStore(cfg.NonceTTL),
		domain:    strings.TrimSpace(cfg.SIWEDomain),
		statement: strings.TrimSpace(cfg.SIWEStatement),
	}
}

func (s *Service) IssueNonce() (string, error) {
	return s.nonces.Issue()
}

// LoginWithSIWE verifies a signed SIWE message and returns a JWT bound to the
// signing address.
func (s *Service) LoginWithSIWE(message, signature string) (string, error) {
	if strings.TrimSpace(message) == "" || strings.TrimSpace(signature) == "" {
		return "", ErrInvalidCredentials
	}

	parsed, err := siwe.ParseMessage(message)
	if err != nil {
		return "", ErrInvalidCredentials
	}
	nonce := parsed.GetNonce()
	if !s.nonces.Has(nonce) {
		return "", ErrInvalidCredentials
	}
	var domain *string
	if s.domain != "" {
		d := s.domain
		domain = &d
	}
	if s.statement != "" {
		if stmt := parsed.GetStatement(); stmt == nil || strings.TrimSpace(*stmt) != s.statement {
			return "", ErrInvalidCredentials
		}
	}
	if _, err := parsed.Verify(signature, domain, &nonce, nil); err != nil {
		return "", ErrInvalidCredentials
	}
	s.nonces.Consume(nonce)

	addr := store.NormalizeAddress(parsed.GetAddress().Hex())
	now := time.Now()
	claims := Claims{
		Address: addr,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   addr,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *Service) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidCredentials
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidCredentials
}
