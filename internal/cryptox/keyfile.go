package cryptox

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

// ErrKeyFileAsymmetry is returned by LoadOrGenerateKeyPair when exactly one
// of the two key files exists: spec.md §6.3 treats this as a fatal startup
// error rather than silently regenerating or silently proceeding.
var ErrKeyFileAsymmetry = errors.New("cryptox: exactly one of the public/private key files exists")

const (
	pemPublicType  = "RSA PUBLIC KEY"
	pemPrivateType = "RSA PRIVATE KEY"
)

// LoadOrGenerateKeyPair loads the <basename>.pub/<basename>.pri keypair if
// both exist, generates and persists a fresh keypair if neither exists, and
// fails with ErrKeyFileAsymmetry if only one exists.
func LoadOrGenerateKeyPair(basename string) (priv *rsa.PrivateKey, pubPEM []byte, err error) {
	pubPath, priPath := basename+".pub", basename+".pri"

	_, pubErr := os.Stat(pubPath)
	_, priErr := os.Stat(priPath)
	pubExists, priExists := pubErr == nil, priErr == nil

	switch {
	case pubExists && priExists:
		return loadKeyPair(pubPath, priPath)
	case !pubExists && !priExists:
		return generateAndSaveKeyPair(pubPath, priPath)
	default:
		return nil, nil, ErrKeyFileAsymmetry
	}
}

func loadKeyPair(pubPath, priPath string) (*rsa.PrivateKey, []byte, error) {
	pubPEM, err := os.ReadFile(pubPath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading public key file: %w", err)
	}
	priPEM, err := os.ReadFile(priPath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading private key file: %w", err)
	}

	priv, err := DecodePrivateKeyPEM(priPEM)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding private key: %w", err)
	}
	return priv, pubPEM, nil
}

func generateAndSaveKeyPair(pubPath, priPath string) (*rsa.PrivateKey, []byte, error) {
	priv, err := GenerateRSAKeyPair()
	if err != nil {
		return nil, nil, fmt.Errorf("generating RSA key pair: %w", err)
	}

	pubPEM := EncodePublicKeyPEM(&priv.PublicKey)
	priPEM := EncodePrivateKeyPEM(priv)

	if err := os.WriteFile(pubPath, pubPEM, 0o644); err != nil {
		return nil, nil, fmt.Errorf("writing public key file: %w", err)
	}
	if err := os.WriteFile(priPath, priPEM, 0o600); err != nil {
		return nil, nil, fmt.Errorf("writing private key file: %w", err)
	}

	return priv, pubPEM, nil
}

// EncodePublicKeyPEM PKIX-encodes pub and wraps it in a PEM block.
func EncodePublicKeyPEM(pub *rsa.PublicKey) []byte {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		// pub is always a valid *rsa.PublicKey here; marshal cannot fail.
		panic(err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemPublicType, Bytes: der})
}

// EncodePrivateKeyPEM PKCS#1-encodes priv and wraps it in a PEM block.
func EncodePrivateKeyPEM(priv *rsa.PrivateKey) []byte {
	der := x509.MarshalPKCS1PrivateKey(priv)
	return pem.EncodeToMemory(&pem.Block{Type: pemPrivateType, Bytes: der})
}

// DecodePublicKeyPEM parses a PEM-wrapped PKIX public key.
func DecodePublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("cryptox: no PEM block found")
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("cryptox: PEM block is not an RSA public key")
	}
	return pub, nil
}

// DecodePrivateKeyPEM parses a PEM-wrapped PKCS#1 private key.
func DecodePrivateKeyPEM(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("cryptox: no PEM block found")
	}
	return x509.ParsePKCS1PrivateKey(block.Bytes)
}
