// Package security holds the credential primitives: password hashing and
// refresh-token digests.
package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"

	"go-users-api/internal/model"
	"go-users-api/pkg/apierror"
)

const argon2Prefix = "$argon2id$"

var errInvalidDigest = errors.New("invalid password digest")

// Digest is the stored form of a password. Salt is empty for bcrypt, which embeds it in Hash.
type Digest struct {
	Salt string
	Hash string
}

type PasswordHasher interface {
	Hash(plaintext string) (Digest, error)
	Verify(plaintext string, digest Digest) (bool, error)
	NeedsUpgrade(digest Digest) bool
}

type Argon2Params struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	SaltLen uint32
	KeyLen  uint32
}

// DefaultArgon2Params follows the OWASP argon2id baseline.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Time:    1,
		Memory:  64 * 1024,
		Threads: 4,
		SaltLen: 16,
		KeyLen:  32,
	}
}

type Argon2idHasher struct {
	params Argon2Params
}

func NewArgon2idHasher(params Argon2Params) *Argon2idHasher {
	defaults := DefaultArgon2Params()
	if params.Time == 0 {
		params.Time = defaults.Time
	}
	if params.Memory < 8*1024 {
		params.Memory = defaults.Memory
	}
	if params.Threads == 0 {
		params.Threads = defaults.Threads
	}
	if params.SaltLen < 8 {
		params.SaltLen = defaults.SaltLen
	}
	if params.KeyLen < 16 {
		params.KeyLen = defaults.KeyLen
	}

	return &Argon2idHasher{params: params}
}

func (h *Argon2idHasher) Hash(plaintext string) (Digest, error) {
	if plaintext == "" {
		return Digest{}, emptyPasswordError()
	}

	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return Digest{}, fmt.Errorf("generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(plaintext), salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLen)

	return Digest{
		Salt: base64.RawStdEncoding.EncodeToString(salt),
		Hash: fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s",
			argon2Prefix, argon2.Version, h.params.Memory, h.params.Time, h.params.Threads,
			base64.RawStdEncoding.EncodeToString(key)),
	}, nil
}

// Verify also accepts legacy bcrypt digests so they can be upgraded after a successful login.
func (h *Argon2idHasher) Verify(plaintext string, digest Digest) (bool, error) {
	if isBcrypt(digest.Hash) {
		return verifyBcrypt(plaintext, digest)
	}

	return verifyArgon2(plaintext, digest)
}

// NeedsUpgrade reports digests produced by another algorithm or weaker parameters.
func (h *Argon2idHasher) NeedsUpgrade(digest Digest) bool {
	if !strings.HasPrefix(digest.Hash, argon2Prefix) {
		return true
	}

	want := fmt.Sprintf("$m=%d,t=%d,p=%d$", h.params.Memory, h.params.Time, h.params.Threads)
	return !strings.Contains(digest.Hash, want)
}

type BcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = 12
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(plaintext string) (Digest, error) {
	if plaintext == "" {
		return Digest{}, emptyPasswordError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return Digest{}, apierror.Wrap(model.ErrValidation, "VALIDATION_ERROR", "password is too long", "password", http.StatusBadRequest)
		}
		return Digest{}, fmt.Errorf("bcrypt hash: %w", err)
	}

	return Digest{Hash: string(hash)}, nil
}

// Verify also accepts argon2id digests so switching hashers does not lock users out;
// NeedsUpgrade then moves them to bcrypt on their next login.
func (h *BcryptHasher) Verify(plaintext string, digest Digest) (bool, error) {
	if strings.HasPrefix(digest.Hash, argon2Prefix) {
		return verifyArgon2(plaintext, digest)
	}
	if !isBcrypt(digest.Hash) {
		return false, errInvalidDigest
	}
	return verifyBcrypt(plaintext, digest)
}

func (h *BcryptHasher) NeedsUpgrade(digest Digest) bool {
	if !isBcrypt(digest.Hash) {
		return true
	}

	cost, err := bcrypt.Cost([]byte(digest.Hash))
	return err != nil || cost < h.cost
}

func isBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$")
}

func verifyArgon2(plaintext string, digest Digest) (bool, error) {
	parts := strings.Split(digest.Hash, "$")
	if len(parts) != 5 || parts[1] != "argon2id" {
		return false, errInvalidDigest
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false, errInvalidDigest
	}

	var memory, iterations, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return false, errInvalidDigest
	}
	if threads == 0 || threads > 255 || iterations == 0 {
		return false, errInvalidDigest
	}

	salt, err := base64.RawStdEncoding.DecodeString(digest.Salt)
	if err != nil || len(salt) == 0 {
		return false, errInvalidDigest
	}

	expected, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(expected) == 0 || len(expected) > 1024 {
		return false, errInvalidDigest
	}

	computed := argon2.IDKey([]byte(plaintext), salt, iterations, memory, uint8(threads), uint32(len(expected)))

	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}

func verifyBcrypt(plaintext string, digest Digest) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest.Hash), []byte(plaintext))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, errInvalidDigest
	}
	return true, nil
}

func emptyPasswordError() error {
	return apierror.Wrap(model.ErrValidation, "VALIDATION_ERROR", "password is required", "password", http.StatusBadRequest)
}
