package auth_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/raicesdev/bienesraices/internal/auth"
	"github.com/raicesdev/bienesraices/internal/krypto"
)

const testSessionKey = "2b671594b775f371eab4050b4d58326682df6b1a6cc2e886717b1a26b4d6c45d"

func newSessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()

	key, err := krypto.ParseKey(testSessionKey)
	if err != nil {
		t.Fatalf("failed to parse key: %v", err)
	}

	return auth.NewSessionManager(key, time.Hour)
}

func testAccount() auth.Account {
	return auth.Account{
		ID:   uuid.MustParse("af8988c4-db09-4023-a2a4-04922ee26b5c"),
		Name: "Juan",
	}
}

func Test_SessionManager_IssueVerify(t *testing.T) {
	t.Run("ok, round trip", func(t *testing.T) {
		m := newSessionManager(t)
		account := testAccount()

		raw, err := m.Issue(account)
		if err != nil {
			t.Fatalf("failed to issue token: %v", err)
		}

		claims, err := m.Verify(raw)
		if err != nil {
			t.Fatalf("failed to verify token: %v", err)
		}

		if claims.AccountID != account.ID {
			t.Errorf("got account id %s, want %s", claims.AccountID, account.ID)
		}

		if claims.Name != account.Name {
			t.Errorf("got name %q, want %q", claims.Name, account.Name)
		}
	})

	t.Run("fail, tampered signature", func(t *testing.T) {
		m := newSessionManager(t)

		raw, err := m.Issue(testAccount())
		if err != nil {
			t.Fatalf("failed to issue token: %v", err)
		}

		// Flip a character in the signature segment.
		i := strings.LastIndex(raw, ".") + 1
		sig := []byte(raw[i:])
		if sig[0] == 'A' {
			sig[0] = 'B'
		} else {
			sig[0] = 'A'
		}
		tampered := raw[:i] + string(sig)

		_, err = m.Verify(tampered)
		if !errors.Is(err, auth.ErrInvalidSession) {
			t.Fatalf("expected error %v, got %v", auth.ErrInvalidSession, err)
		}
	})

	t.Run("fail, signed with different key", func(t *testing.T) {
		m := newSessionManager(t)

		otherKey, err := krypto.ParseKey("90303dfed7994260ea4817a5ca8a392915cd401115b2f97495dadfcbcd14adbf")
		if err != nil {
			t.Fatalf("failed to parse key: %v", err)
		}

		other := auth.NewSessionManager(otherKey, time.Hour)
		raw, err := other.Issue(testAccount())
		if err != nil {
			t.Fatalf("failed to issue token: %v", err)
		}

		_, err = m.Verify(raw)
		if !errors.Is(err, auth.ErrInvalidSession) {
			t.Fatalf("expected error %v, got %v", auth.ErrInvalidSession, err)
		}
	})

	t.Run("fail, expired token", func(t *testing.T) {
		m := newSessionManager(t)

		raw, err := m.Issue(testAccount())
		if err != nil {
			t.Fatalf("failed to issue token: %v", err)
		}

		// Simulate the current time being past the TTL.
		m.NowFunc = func() time.Time {
			return time.Now().Add(time.Hour + time.Second)
		}

		_, err = m.Verify(raw)
		if !errors.Is(err, auth.ErrInvalidSession) {
			t.Fatalf("expected error %v, got %v", auth.ErrInvalidSession, err)
		}
	})

	t.Run("fail, alg none rejected", func(t *testing.T) {
		m := newSessionManager(t)

		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
			Subject:   testAccount().ID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})
		raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		if err != nil {
			t.Fatalf("failed to create token: %v", err)
		}

		_, err = m.Verify(raw)
		if !errors.Is(err, auth.ErrInvalidSession) {
			t.Fatalf("expected error %v, got %v", auth.ErrInvalidSession, err)
		}
	})

	t.Run("fail, garbage input", func(t *testing.T) {
		m := newSessionManager(t)

		for _, raw := range []string{"", "not-a-token", "a.b.c"} {
			_, err := m.Verify(raw)
			if !errors.Is(err, auth.ErrInvalidSession) {
				t.Fatalf("input %q: expected error %v, got %v", raw, auth.ErrInvalidSession, err)
			}
		}
	})
}
