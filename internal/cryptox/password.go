// Package cryptox implements the hybrid RSA+AES wire-crypto primitives and
// password digest derivation used by the server's authentication table and
// protocol parser.
package cryptox

import (
	"crypto/subtle"

	"golang.org/x/crypto/argon2"
)

// saltSize and digestSize are the dimensions of a derived password digest.
// 16 bytes of salt and a 32-byte Argon2id output give each AuthEntry a
// fixed-width pass_hash field, as spec.md §3 requires.
const (
	saltSize   = 16
	digestSize = 32
)

// DeriveMasterKey runs Argon2id over password with the given salt, producing
// a fixed-width digest. Used both to derive a fresh AuthEntry's pass_hash at
// registration and to recompute a candidate digest at login.
func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, digestSize)
}

// NewPasswordDigest derives a fresh random salt and the Argon2id digest of
// password under that salt. The caller stores (salt, digest) as the
// AuthEntry's pass_hash material.
func NewPasswordDigest(password []byte, randSalt func(int) []byte) (salt, digest []byte) {
	salt = randSalt(saltSize)
	digest = DeriveMasterKey(password, salt)
	return salt, digest
}

// VerifyPasswordDigest recomputes the Argon2id digest of candidate under
// salt and compares it to digest in constant time. A byte-for-byte match is
// success; spec.md §9 flags a reference implementation that inverted this
// comparison as a bug, and this function deliberately implements the correct
// polarity.
func VerifyPasswordDigest(candidate, salt, digest []byte) bool {
	recomputed := DeriveMasterKey(candidate, salt)
	return subtle.ConstantTimeCompare(recomputed, digest) == 1
}

// CombinePassHash packs salt and digest into the single pass_hash field the
// persistence log format provides (spec.md §6.2 has no separate salt
// field): a fixed-width SaltSize prefix followed by the digest.
func CombinePassHash(salt, digest []byte) []byte {
	return append(append([]byte(nil), salt...), digest...)
}

// SplitPassHash reverses CombinePassHash.
func SplitPassHash(combined []byte) (salt, digest []byte, ok bool) {
	if len(combined) != saltSize+digestSize {
		return nil, nil, false
	}
	return combined[:saltSize], combined[saltSize:], true
}

// SaltSize and DigestSize expose the dimensions of CombinePassHash's output
// for callers that need to size buffers without duplicating constants.
const (
	SaltSize   = saltSize
	DigestSize = digestSize
)
