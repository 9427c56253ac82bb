package cryptox

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
)

// RSAKeyBits is the modulus size used for the server's keypair, matching
// the reference implementation's 2048-bit default.
const RSAKeyBits = 2048

// RSABlockSize is the size in bytes of one RSA-encrypted envelope
// (LEN_RKBLOCK in spec.md §6.1): the modulus size in bytes.
const RSABlockSize = RSAKeyBits / 8

// oaepOverhead is 2*hLen+2 for OAEP with SHA-256, where hLen is the SHA-256
// digest size.
const oaepOverhead = 2*sha256.Size + 2

// EnvelopeContentSize is LEN_RBLOCK_CONTENT: the largest plaintext an
// RSA-OAEP envelope of RSABlockSize bytes can carry.
const EnvelopeContentSize = RSABlockSize - oaepOverhead

// GenerateRSAKeyPair creates a fresh RSA keypair of RSAKeyBits modulus size.
func GenerateRSAKeyPair() (*rsa.PrivateKey, error) {
	return rsa.GenerateKey(rand.Reader, RSAKeyBits)
}

// EncryptOAEP RSA-OAEP-encrypts plaintext (at most EnvelopeContentSize
// bytes) under pub, using SHA-256 as the OAEP hash.
func EncryptOAEP(pub *rsa.PublicKey, plaintext []byte) ([]byte, error) {
	return rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, plaintext, nil)
}

// DecryptOAEP RSA-OAEP-decrypts ciphertext under priv.
func DecryptOAEP(priv *rsa.PrivateKey, ciphertext []byte) ([]byte, error) {
	return rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, ciphertext, nil)
}
