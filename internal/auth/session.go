package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/raicesdev/bienesraices/internal/krypto"
)

// ErrInvalidSession indicates a session token failed verification.
var ErrInvalidSession = errors.New("invalid session")

// SessionClaims is the identity carried by a session token.
type SessionClaims struct {
	AccountID uuid.UUID
	Name      string
}

// sessionClaims is the wire shape of the claims.
type sessionClaims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// SessionManager issues and verifies stateless session tokens.
//
// Tokens are HMAC-signed and carry the account identity and an expiry, so
// they can be verified without a database lookup. The flip side is that the
// server cannot revoke them: a token stays valid until its natural expiry,
// even after logout. That trade-off is accepted, the TTL bounds the damage.
type SessionManager struct {
	key krypto.Key
	ttl time.Duration

	// NowFunc is used to get the current time.
	// Exposed for testing purposes.
	NowFunc func() time.Time
}

func NewSessionManager(key krypto.Key, ttl time.Duration) *SessionManager {
	return &SessionManager{
		key:     key,
		ttl:     ttl,
		NowFunc: time.Now,
	}
}

// Issue creates a signed session token for the provided account.
func (m *SessionManager) Issue(a Account) (string, error) {
	now := m.NowFunc()

	claims := sessionClaims{
		Name: a.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key.SecretValue())
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	return token, nil
}

// TTL returns the configured lifetime of issued tokens.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Verify checks the signature and expiry of a session token and returns the
// embedded claims. Any failure is reported as ErrInvalidSession.
func (m *SessionManager) Verify(raw string) (SessionClaims, error) {
	var claims sessionClaims

	_, err := jwt.ParseWithClaims(raw, &claims, func(_ *jwt.Token) (any, error) {
		return m.key.SecretValue(), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return m.NowFunc() }),
	)
	if err != nil {
		return SessionClaims{}, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	accountID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return SessionClaims{}, fmt.Errorf("%w: malformed subject", ErrInvalidSession)
	}

	return SessionClaims{
		AccountID: accountID,
		Name:      claims.Name,
	}, nil
}
