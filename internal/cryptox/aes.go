package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"errors"
)

// AESKeySize and AESIVSize are the wire sizes of the per-request AES-256-CBC
// key and IV, matching the 32+16 byte layout of the envelope in spec.md §6.1.
const (
	AESKeySize = 32
	AESIVSize  = 16
)

var errPadding = errors.New("cryptox: invalid PKCS#7 padding")

// EncryptCBC pads plaintext with PKCS#7 to the AES block size and encrypts
// it with AES-256 in CBC mode under key/iv.
func EncryptCBC(key, iv, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	padded := pkcs7Pad(plaintext, block.BlockSize())
	out := make([]byte, len(padded))

	mode := cipher.NewCBCEncrypter(block, iv)
	mode.CryptBlocks(out, padded)
	return out, nil
}

// DecryptCBC decrypts ciphertext with AES-256 in CBC mode under key/iv and
// strips the PKCS#7 padding.
func DecryptCBC(key, iv, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) == 0 || len(ciphertext)%block.BlockSize() != 0 {
		return nil, errPadding
	}

	out := make([]byte, len(ciphertext))
	mode := cipher.NewCBCDecrypter(block, iv)
	mode.CryptBlocks(out, ciphertext)

	return pkcs7Unpad(out, block.BlockSize())
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padding := bytes.Repeat([]byte{byte(padLen)}, padLen)
	return append(append([]byte{}, data...), padding...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	n := len(data)
	if n == 0 || n%blockSize != 0 {
		return nil, errPadding
	}
	padLen := int(data[n-1])
	if padLen == 0 || padLen > blockSize || padLen > n {
		return nil, errPadding
	}
	for _, b := range data[n-padLen:] {
		if int(b) != padLen {
			return nil, errPadding
		}
	}
	return data[:n-padLen], nil
}
