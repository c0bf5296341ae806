package service

import (
	"time"

	"github.com/keilmann/allowance-tracker-go/internal/domain"
	"github.com/keilmann/allowance-tracker-go/internal/port"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthService issues session tokens for the single household credential
// taken from configuration. All API surfaces the browser client talks to
// sit behind it.
type AuthService struct {
	secret    []byte
	accessTTL time.Duration

	user     string
	passHash string

	sessions port.Cache[string] // refresh token -> subject
	logger   *zap.Logger
}

// TokenPair is returned on login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// NewAuthService creates the auth service. sessions should be a TTL cache
// sized to the configured session lifetime.
func NewAuthService(secret string, accessTTL time.Duration, user, passHash string, sessions port.Cache[string], logger *zap.Logger) *AuthService {
	return &AuthService{
		secret:    []byte(secret),
		accessTTL: accessTTL,
		user:      user,
		passHash:  passHash,
		sessions:  sessions,
		logger:    logger,
	}
}

// Login checks the household credentials and issues a token pair.
func (s *AuthService) Login(user, password string) (*TokenPair, error) {
	if s.passHash == "" {
		return nil, &domain.ErrUnauthorized{Message: "login is not configured"}
	}
	if user != s.user {
		return nil, &domain.ErrUnauthorized{}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.passHash), []byte(password)); err != nil {
		s.logger.Warn("failed login attempt", zap.String("user", user))
		return nil, &domain.ErrUnauthorized{}
	}

	return s.issue(user)
}

// Refresh exchanges a live refresh token for a fresh pair. The old token is
// revoked.
func (s *AuthService) Refresh(refreshToken string) (*TokenPair, error) {
	subject, ok := s.sessions.Get(refreshToken)
	if !ok {
		return nil, &domain.ErrUnauthorized{Message: "invalid or expired refresh token"}
	}
	s.sessions.Delete(refreshToken)

	return s.issue(subject)
}

// Logout revokes a refresh token.
func (s *AuthService) Logout(refreshToken string) {
	s.sessions.Delete(refreshToken)
}

// VerifyAccessToken validates a bearer token and returns its subject.
func (s *AuthService) VerifyAccessToken(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, &domain.ErrUnauthorized{Message: "unexpected signing method"}
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", &domain.ErrUnauthorized{Message: "invalid token"}
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return "", &domain.ErrUnauthorized{Message: "invalid token claims"}
	}
	return claims.Subject, nil
}

func (s *AuthService) issue(subject string) (*TokenPair, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
	}

	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, err
	}

	refresh := uuid.NewString()
	s.sessions.Set(refresh, subject)

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}
