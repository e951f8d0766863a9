package krypto

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2 parameters used for new hashes. Existing hashes embed their own
// parameters, so these can be changed without invalidating stored hashes.
const (
	argon2Variant     = "argon2id"
	argon2MemoryKiB   = 47104
	argon2Iterations  = 1
	argon2Parallelism = 1

	saltLen = 16
	hashLen = 32
)

// ErrInvalidInput indicates data could not be hashed or parsed as a hash.
var ErrInvalidInput = errors.New("invalid input")

// Argon2Hash is a parsed argon2 hash in the common
// "$argon2id$v=19$m=...,t=...,p=...$salt$hash" notation.
type Argon2Hash struct {
	Variant     string
	Version     int
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	Salt        []byte
	Hash        []byte
}

// HashArgon2 hashes the provided data with a random salt using the argon2id
// algorithm and the parameters above.
func HashArgon2(data []byte) (Argon2Hash, error) {
	if len(data) == 0 {
		return Argon2Hash{}, fmt.Errorf("no data to hash: %w", ErrInvalidInput)
	}

	salt, err := genRandomBytes(saltLen)
	if err != nil {
		return Argon2Hash{}, err
	}

	hash := argon2.IDKey(data, salt, argon2Iterations, argon2MemoryKiB, argon2Parallelism, hashLen)

	return Argon2Hash{
		Variant:     argon2Variant,
		Version:     argon2.Version,
		MemoryKiB:   argon2MemoryKiB,
		Iterations:  argon2Iterations,
		Parallelism: argon2Parallelism,
		Salt:        salt,
		Hash:        hash,
	}, nil
}

// ParseArgon2Hash parses a hash in the string notation described on Argon2Hash.
func ParseArgon2Hash(raw string) (Argon2Hash, error) {
	parts := strings.Split(raw, "$")
	if len(parts) != 6 || parts[0] != "" {
		return Argon2Hash{}, fmt.Errorf("malformed argon2 hash: %w", ErrInvalidInput)
	}

	h := Argon2Hash{
		Variant: parts[1],
	}

	if h.Variant != argon2Variant {
		return Argon2Hash{}, fmt.Errorf("unsupported argon2 variant %q: %w", h.Variant, ErrInvalidInput)
	}

	if _, err := fmt.Sscanf(parts[2], "v=%d", &h.Version); err != nil {
		return Argon2Hash{}, fmt.Errorf("malformed argon2 version: %w", ErrInvalidInput)
	}

	if h.Version != argon2.Version {
		return Argon2Hash{}, fmt.Errorf("unsupported argon2 version %d: %w", h.Version, ErrInvalidInput)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &h.MemoryKiB, &h.Iterations, &h.Parallelism); err != nil {
		return Argon2Hash{}, fmt.Errorf("malformed argon2 parameters: %w", ErrInvalidInput)
	}

	var err error
	h.Salt, err = base64.RawStdEncoding.Strict().DecodeString(parts[4])
	if err != nil {
		return Argon2Hash{}, fmt.Errorf("malformed argon2 salt: %w", ErrInvalidInput)
	}

	h.Hash, err = base64.RawStdEncoding.Strict().DecodeString(parts[5])
	if err != nil {
		return Argon2Hash{}, fmt.Errorf("malformed argon2 hash: %w", ErrInvalidInput)
	}

	return h, nil
}

// MatchBytes reports whether data hashes to h using the parameters and salt
// embedded in h. A malformed or zero hash never matches, it does not error.
func (h Argon2Hash) MatchBytes(data []byte) bool {
	if h.Iterations == 0 || len(h.Salt) == 0 || len(h.Hash) == 0 {
		return false
	}

	other := argon2.IDKey(data, h.Salt, h.Iterations, h.MemoryKiB, h.Parallelism, uint32(len(h.Hash)))

	return subtle.ConstantTimeCompare(h.Hash, other) == 1
}

func (h Argon2Hash) String() string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		h.Variant,
		h.Version,
		h.MemoryKiB, h.Iterations, h.Parallelism,
		base64.RawStdEncoding.EncodeToString(h.Salt),
		base64.RawStdEncoding.EncodeToString(h.Hash),
	)
}

func (h Argon2Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Argon2Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseArgon2Hash(string(text))
	if err != nil {
		return err
	}

	*h = parsed
	return nil
}

// Scan implements sql.Scanner so hashes can be read from database columns.
func (h *Argon2Hash) Scan(src any) error {
	s, ok := src.(string)
	if !ok {
		return fmt.Errorf("cannot scan %T into Argon2Hash", src)
	}

	return h.UnmarshalText([]byte(s))
}
