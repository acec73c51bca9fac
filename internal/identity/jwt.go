package identity

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/KirkDiggler/vtt-api/internal/errors"
	"github.com/KirkDiggler/vtt-api/internal/pkg/clock"
)

const defaultTokenTTL = 24 * time.Hour

// Claims is the JWT payload. Subject carries the user ID.
type Claims struct {
	jwt.RegisteredClaims
	DisplayName string `json:"name,omitempty"`
}

// TokenConfig holds the dependencies for the JWT token service
type TokenConfig struct {
	SigningSecret string
	Issuer        string

	// TokenTTL bounds issued token lifetimes. Zero means 24 hours.
	TokenTTL time.Duration

	Clock clock.Clock
}

// Validate ensures all required dependencies are provided
func (c *TokenConfig) Validate() error {
	vb := errors.NewValidationBuilder()
	if c.SigningSecret == "" {
		vb.RequiredField("SigningSecret")
	}
	if c.Clock == nil {
		vb.RequiredField("Clock")
	}
	return vb.Build()
}

// TokenService issues and verifies signed bearer tokens
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	clock  clock.Clock
}

// NewTokenService creates a token service from the config
func NewTokenService(cfg *TokenConfig) (*TokenService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	ttl := cfg.TokenTTL
	if ttl == 0 {
		ttl = defaultTokenTTL
	}

	return &TokenService{
		secret: []byte(cfg.SigningSecret),
		issuer: cfg.Issuer,
		ttl:    ttl,
		clock:  cfg.Clock,
	}, nil
}

// Issue signs a token for the user
func (s *TokenService) Issue(user *User) (string, error) {
	if user == nil || user.ID == "" {
		return "", errors.InvalidArgument("user ID cannot be empty")
	}

	now := s.clock.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		DisplayName: user.DisplayName,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}
	return signed, nil
}

// Verify parses a bearer token and returns the user it names
func (s *TokenService) Verify(tokenString string) (*User, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Unauthenticated("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.clock.Now))
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeUnauthenticated, "invalid token")
	}
	if !token.Valid || claims.Subject == "" {
		return nil, errors.Unauthenticated("invalid token")
	}

	return &User{ID: claims.Subject, DisplayName: claims.DisplayName}, nil
}
