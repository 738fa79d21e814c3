package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"memberhub.org/internal/ids"
)

const defaultIssuer = "memberhub"

// ErrInvalidToken indicates the token failed validation.
var ErrInvalidToken = errors.New("identity: invalid token")

// Claims are the JWT claims carried by an access token. Role mirrors the
// account's role claim at issue time; privileged decisions re-resolve the
// role from the directory and never trust this value.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenPair is an access token plus its rotating refresh companion.
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// Service authenticates credentials and issues tokens.
type Service struct {
	accounts Provider
	refresh  RefreshTokenStore

	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithIssuer overrides the token issuer claim.
func WithIssuer(issuer string) ServiceOption {
	return func(s *Service) {
		if strings.TrimSpace(issuer) != "" {
			s.issuer = strings.TrimSpace(issuer)
		}
	}
}

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.accessTTL = ttl
		}
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs a token service signing with the given HS256 secret.
func NewService(accounts Provider, refresh RefreshTokenStore, secret string, opts ...ServiceOption) (*Service, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("identity: signing secret is required")
	}
	svc := &Service{
		accounts:   accounts,
		refresh:    refresh,
		secret:     []byte(secret),
		issuer:     defaultIssuer,
		accessTTL:  15 * time.Minute,
		refreshTTL: 14 * 24 * time.Hour,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// SignIn verifies email/password credentials and mints a fresh token pair.
// Disabled accounts and unknown emails both surface ErrInvalidCredentials so
// callers cannot probe which addresses exist.
func (s *Service) SignIn(ctx context.Context, email, password string) (TokenPair, Account, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return TokenPair{}, Account{}, ErrInvalidCredentials
	}
	acct, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return TokenPair{}, Account{}, ErrInvalidCredentials
	}
	if acct.Disabled {
		return TokenPair{}, Account{}, ErrInvalidCredentials
	}
	if err := VerifyPassword(acct.PasswordHash, password); err != nil {
		return TokenPair{}, Account{}, ErrInvalidCredentials
	}
	pair, err := s.mintTokens(ctx, acct)
	if err != nil {
		return TokenPair{}, Account{}, err
	}
	return pair, acct, nil
}

// Refresh rotates the presented refresh token and issues a new pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, Account, error) {
	tokenID, secret, err := splitRefreshToken(refreshToken)
	if err != nil {
		return TokenPair{}, Account{}, ErrInvalidToken
	}
	record, err := s.refresh.Find(ctx, tokenID)
	if err != nil {
		return TokenPair{}, Account{}, ErrInvalidToken
	}
	if record.Revoked || s.now().After(record.ExpiresAt) {
		return TokenPair{}, Account{}, ErrInvalidToken
	}
	if !secureCompareHash(record.TokenHash, secret) {
		// A mismatched secret for a live id smells like token theft; burn it.
		_ = s.refresh.MarkRevoked(ctx, record.ID)
		return TokenPair{}, Account{}, ErrInvalidToken
	}
	acct, err := s.accounts.Get(ctx, record.UserID)
	if err != nil {
		return TokenPair{}, Account{}, ErrInvalidToken
	}
	if acct.Disabled {
		return TokenPair{}, Account{}, ErrInvalidToken
	}
	if err := s.refresh.MarkRevoked(ctx, record.ID); err != nil {
		return TokenPair{}, Account{}, err
	}
	pair, err := s.mintTokens(ctx, acct)
	if err != nil {
		return TokenPair{}, Account{}, err
	}
	return pair, acct, nil
}

// Revoke invalidates a single refresh token.
func (s *Service) Revoke(ctx context.Context, refreshToken string) error {
	tokenID, _, err := splitRefreshToken(refreshToken)
	if err != nil {
		return ErrInvalidToken
	}
	return s.refresh.MarkRevoked(ctx, tokenID)
}

// RevokeAll invalidates every refresh token a user holds.
func (s *Service) RevokeAll(ctx context.Context, userID string) error {
	return s.refresh.MarkRevokedByUser(ctx, userID)
}

// IssueTokens mints a pair directly for a known account (post-signup).
func (s *Service) IssueTokens(ctx context.Context, acct Account) (TokenPair, error) {
	return s.mintTokens(ctx, acct)
}

// VerifyAccess checks an access token's signature and registered claims.
func (s *Service) VerifyAccess(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *Service) mintTokens(ctx context.Context, acct Account) (TokenPair, error) {
	now := s.now().UTC()
	accessExp := now.Add(s.accessTTL)
	claims := Claims{
		Email: acct.Email,
		Role:  acct.RoleClaim,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   acct.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExp),
			ID:        uuid.NewString(),
		},
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign token: %w", err)
	}

	refreshString, record, err := s.generateRefreshToken(acct.ID, now)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.refresh.Create(ctx, record); err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refreshString,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: record.ExpiresAt,
	}, nil
}

func (s *Service) generateRefreshToken(userID string, now time.Time) (string, *RefreshToken, error) {
	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", nil, err
	}
	secret := base64.RawURLEncoding.EncodeToString(secretBytes)
	tokenID := ids.New()
	sum := sha256.Sum256([]byte(secret))
	rec := &RefreshToken{
		ID:        tokenID,
		UserID:    userID,
		TokenHash: hex.EncodeToString(sum[:]),
		ExpiresAt: now.Add(s.refreshTTL),
		CreatedAt: now,
	}
	return tokenID + "." + secret, rec, nil
}

func splitRefreshToken(raw string) (id, secret string, err error) {
	parts := strings.Split(strings.TrimSpace(raw), ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.New("invalid refresh token format")
	}
	return parts[0], parts[1], nil
}

func secureCompareHash(expectedHash, secret string) bool {
	sum := sha256.Sum256([]byte(secret))
	actual := hex.EncodeToString(sum[:])
	if len(expectedHash) != len(actual) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expectedHash), []byte(actual)) == 1
}
