// Package cryptox implements password hashing for admin credentials.
//
// Two schemes co-exist. Passwords set before the migration were stored as
// scrypt digests with a 16-byte hex salt (the legacy scheme). Every password
// set now is derived with argon2id, whose salt string embeds its own cost
// parameters (the current scheme). Which one applies is decided by the shape
// of the stored values alone, see Classify.
package cryptox

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"

	"github.com/dmitrijs2005/folioguard/internal/common"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/scrypt"
)

// Legacy scrypt parameters (the Node.js crypto.scrypt defaults).
const (
	legacyN         = 16384
	legacyR         = 8
	legacyP         = 1
	legacyKeyLength = 64
	legacySaltBytes = 16
)

// ErrUnsupportedSalt is returned by Hash for a non-empty salt that is neither
// a legacy hex salt nor an encoded argon2id salt.
var ErrUnsupportedSalt = errors.New("unsupported salt format")

// Hashed is a derived (hash, salt) pair ready for storage.
type Hashed struct {
	Hash string
	Salt string
}

// PasswordHasher derives and verifies password hashes.
type PasswordHasher interface {
	Hash(password, salt string) (Hashed, error)
	Verify(password, hash, salt string) bool
}

// Argon2Params are the cost parameters of the current scheme.
type Argon2Params struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Params returns the production cost: 64 MiB, 3 passes, 4 lanes.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 4,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Hasher is the PasswordHasher used by the server.
type Hasher struct {
	params Argon2Params
}

var _ PasswordHasher = (*Hasher)(nil)

// NewHasher returns a Hasher producing argon2id digests with params.
func NewHasher(params Argon2Params) *Hasher {
	return &Hasher{params: params}
}

// Hash derives a digest for password.
//
// A legacy-shaped salt recomputes the legacy scrypt digest with exactly that
// salt. An encoded argon2id salt is reused together with its parameters. An
// empty salt produces a fresh argon2id pair.
func (h *Hasher) Hash(password, salt string) (Hashed, error) {
	if salt == "" {
		raw := common.GenerateRandByteArray(int(h.params.SaltLength))
		return h.argon2(password, h.params, raw), nil
	}

	if IsLegacySalt(salt) {
		hash, err := legacyDerive(password, salt)
		if err != nil {
			return Hashed{}, err
		}
		return Hashed{Hash: hash, Salt: salt}, nil
	}

	p, raw, err := decodeArgon2Salt(salt)
	if err != nil {
		return Hashed{}, err
	}
	p.KeyLength = h.params.KeyLength
	return h.argon2(password, p, raw), nil
}

// Verify reports whether password matches the stored hash and salt.
func (h *Hasher) Verify(password, hash, salt string) bool {
	switch c := Classify(hash, salt).(type) {
	case LegacyCredential:
		return verifyLegacy(password, c)
	case CurrentCredential:
		return verifyArgon2(password, c)
	case BcryptCredential:
		return bcrypt.CompareHashAndPassword([]byte(c.Hash), []byte(password)) == nil
	default:
		return false
	}
}

func (h *Hasher) argon2(password string, p Argon2Params, raw []byte) Hashed {
	key := argon2.IDKey([]byte(password), raw, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)
	return Hashed{
		Hash: base64.RawStdEncoding.EncodeToString(key),
		Salt: encodeArgon2Salt(p, raw),
	}
}

func verifyArgon2(password string, c CurrentCredential) bool {
	want, err := base64.RawStdEncoding.DecodeString(c.Hash)
	if err != nil || len(want) == 0 {
		return false
	}
	got := argon2.IDKey([]byte(password), c.RawSalt, c.Params.Iterations, c.Params.Memory, c.Params.Parallelism, uint32(len(want)))
	return subtle.ConstantTimeCompare(want, got) == 1
}

func verifyLegacy(password string, c LegacyCredential) bool {
	want, err := hex.DecodeString(c.Hash)
	if err != nil {
		return false
	}
	got, err := legacyDerive(password, c.Salt)
	if err != nil {
		return false
	}
	gotRaw, _ := hex.DecodeString(got)
	return subtle.ConstantTimeCompare(want, gotRaw) == 1
}

// legacyDerive runs scrypt over the hex-decoded salt and returns the key as
// lowercase hex.
func legacyDerive(password, salt string) (string, error) {
	saltRaw, err := hex.DecodeString(salt)
	if err != nil {
		return "", err
	}
	key, err := scrypt.Key([]byte(password), saltRaw, legacyN, legacyR, legacyP, legacyKeyLength)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(key), nil
}

// GenerateLegacySalt returns 16 random bytes as 32 lowercase hex characters.
// It exists for importing and testing pre-migration accounts.
func GenerateLegacySalt() (string, error) {
	return common.MakeRandHexString(legacySaltBytes)
}
