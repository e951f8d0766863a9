package krypto_test

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/raicesdev/bienesraices/internal/krypto"
)

func Test_Token_GenerateAndParse(t *testing.T) {
	t.Run("ok, round trip via string", func(t *testing.T) {
		token := must(krypto.GenerateToken())

		parsed, err := krypto.ParseToken(token.String())
		if err != nil {
			t.Fatalf("failed to parse token: %v", err)
		}

		if parsed != token {
			t.Errorf("got\n%v\nwant\n%v\n", parsed, token)
		}
	})

	t.Run("ok, tokens are unique", func(t *testing.T) {
		t1 := must(krypto.GenerateToken())
		t2 := must(krypto.GenerateToken())

		if t1 == t2 {
			t.Errorf("expected two generated tokens to differ")
		}
	})

	failCases := map[string]string{
		"empty":       "",
		"too short":   "abcdef",
		"too long":    strings.Repeat("ab", 33),
		"invalid hex": strings.Repeat("zz", 32),
	}

	for name, raw := range failCases {
		t.Run(name, func(t *testing.T) {
			_, err := krypto.ParseToken(raw)
			if !errors.Is(err, krypto.ErrInvalidToken) {
				t.Errorf("wanted %v, got %v (via errors.Is)", krypto.ErrInvalidToken, err)
			}
		})
	}
}

func Test_Token_PreventLogExposure(t *testing.T) {
	token := must(krypto.GenerateToken())

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	logger.Info("attempting to log a token", "token", token)

	s := buf.String()
	if !strings.Contains(s, krypto.SecretMarker) {
		t.Errorf("log output\n%s\ndoes not contain secret marker: %s", s, krypto.SecretMarker)
	}

	if strings.Contains(s, token.String()) {
		t.Errorf("log output\n%s\ncontains raw token", s)
	}
}
