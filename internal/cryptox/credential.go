package cryptox

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Scheme names the hashing method a stored credential was produced with.
type Scheme string

const (
	SchemeLegacy   Scheme = "legacy-scrypt"
	SchemeArgon2id Scheme = "argon2id"
	SchemeBcrypt   Scheme = "bcrypt"
	SchemeUnknown  Scheme = "unknown"
)

var (
	legacySaltPattern = regexp.MustCompile(`^[0-9a-fA-F]{32}$`)
	legacyHashPattern = regexp.MustCompile(`^[0-9a-fA-F]{128}$`)
)

// Credential is a stored (hash, salt) pair tagged by its scheme.
// Values are produced by Classify only.
type Credential interface {
	Scheme() Scheme
}

// LegacyCredential is a scrypt digest: 32 hex chars of salt, 128 hex chars of hash.
type LegacyCredential struct {
	Hash string
	Salt string
}

// CurrentCredential is an argon2id digest. The salt string embeds the cost
// parameters and the raw salt.
type CurrentCredential struct {
	Hash    string
	Salt    string
	Params  Argon2Params
	RawSalt []byte
}

// BcryptCredential is a self-contained bcrypt digest imported from older
// provisioning scripts. It is only ever verified, never produced.
type BcryptCredential struct {
	Hash string
}

// UnknownCredential never verifies.
type UnknownCredential struct{}

func (LegacyCredential) Scheme() Scheme  { return SchemeLegacy }
func (CurrentCredential) Scheme() Scheme { return SchemeArgon2id }
func (BcryptCredential) Scheme() Scheme  { return SchemeBcrypt }
func (UnknownCredential) Scheme() Scheme { return SchemeUnknown }

// IsLegacySalt reports whether salt has the fixed-width hex shape of the
// legacy scheme.
func IsLegacySalt(salt string) bool {
	return legacySaltPattern.MatchString(salt)
}

// IsLegacyFormat reports whether both hash and salt have the legacy shape.
func IsLegacyFormat(hash, salt string) bool {
	return legacySaltPattern.MatchString(salt) && legacyHashPattern.MatchString(hash)
}

// Classify inspects the shapes of hash and salt and returns the matching
// credential variant. No explicit version column is needed.
func Classify(hash, salt string) Credential {
	if IsLegacyFormat(hash, salt) {
		return LegacyCredential{Hash: hash, Salt: salt}
	}
	if p, raw, err := decodeArgon2Salt(salt); err == nil && hash != "" {
		return CurrentCredential{Hash: hash, Salt: salt, Params: p, RawSalt: raw}
	}
	if isBcryptHash(hash) {
		return BcryptCredential{Hash: hash}
	}
	return UnknownCredential{}
}

func isBcryptHash(hash string) bool {
	if len(hash) != 60 {
		return false
	}
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(hash, prefix) {
			return true
		}
	}
	return false
}

func encodeArgon2Salt(p Argon2Params, raw []byte) string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s",
		argon2.Version, p.Memory, p.Iterations, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(raw))
}

// decodeArgon2Salt parses "$argon2id$v=19$m=65536,t=3,p=4$<b64>".
func decodeArgon2Salt(s string) (Argon2Params, []byte, error) {
	var p Argon2Params

	parts := strings.Split(s, "$")
	if len(parts) != 5 || parts[0] != "" || parts[1] != "argon2id" {
		return p, nil, ErrUnsupportedSalt
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return p, nil, ErrUnsupportedSalt
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Parallelism); err != nil {
		return p, nil, ErrUnsupportedSalt
	}
	if p.Iterations < 1 || p.Parallelism < 1 || p.Memory < 8*uint32(p.Parallelism) {
		return p, nil, ErrUnsupportedSalt
	}

	raw, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(raw) == 0 {
		return p, nil, ErrUnsupportedSalt
	}
	p.SaltLength = uint32(len(raw))

	return p, raw, nil
}
