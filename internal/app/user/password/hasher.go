package password

import (
	"errors"
	"strings"

	customErrors "github.com/peitalin/dt-auth-service/internal/domain/user/errors"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

var DefaultParams = &argon2id.Params{
	Memory:      64 * 1024, // 64 MiB
	Iterations:  2,
	Parallelism: 4,
	SaltLength:  16,
	KeyLength:   32,
}

type Hasher interface {
	Hash(plain string) (string, error)
	// Verify reports whether plain matches hash. needsRehash is set when the
	// stored hash uses a legacy scheme and should be replaced.
	Verify(plain, hash string) (ok bool, needsRehash bool, err error)
}

// Argon2Hasher hashes with argon2id and a process-wide pepper. Legacy bcrypt
// hashes still verify; they are reported as needing a rehash.
type Argon2Hasher struct {
	params *argon2id.Params
	pepper string
}

func NewArgon2Hasher(pepper string, params *argon2id.Params) *Argon2Hasher {
	if params == nil {
		params = DefaultParams
	}
	return &Argon2Hasher{params: params, pepper: pepper}
}

func (h *Argon2Hasher) Hash(plain string) (string, error) {
	hash, err := argon2id.CreateHash(plain+h.pepper, h.params)
	if err != nil {
		return "", customErrors.WrapInternal(err, "hash password")
	}
	return hash, nil
}

func (h *Argon2Hasher) Verify(plain, hash string) (bool, bool, error) {
	if isBcrypt(hash) {
		err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain+h.pepper))
		switch {
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return false, false, nil
		case err != nil:
			return false, false, customErrors.WrapInternal(err, "verify bcrypt hash")
		}
		return true, true, nil
	}

	ok, params, err := argon2id.CheckHash(plain+h.pepper, hash)
	if err != nil {
		return false, false, customErrors.WrapInternal(err, "verify argon2id hash")
	}
	if !ok {
		return false, false, nil
	}
	return true, weaker(params, h.params), nil
}

func isBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") ||
		strings.HasPrefix(hash, "$2b$") ||
		strings.HasPrefix(hash, "$2y$")
}

func weaker(have, want *argon2id.Params) bool {
	return have.Memory < want.Memory ||
		have.Iterations < want.Iterations ||
		have.KeyLength < want.KeyLength
}
