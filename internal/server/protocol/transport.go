package protocol

import (
	"bytes"
	"crypto/rsa"
	"fmt"
	"net"

	"github.com/dmitrijs2005/gophkeeper/internal/cryptox"
	"github.com/dmitrijs2005/gophkeeper/internal/netx"
)

// keyFetchMagic is the literal prefix recognized as the "KEY" bootstrap
// shortcut (spec.md §4.6 step 2 / §6.1), padded to RSABlockSize bytes.
var keyFetchMagic = []byte(CmdKeyFetch)

// Request is a fully decrypted, parsed incoming message: the command
// mnemonic plus the still-encrypted-body's decryption context.
type Request struct {
	Command string
	AESKey  []byte
	AESIV   []byte
	Body    []byte // AES-CBC-decrypted plaintext
}

// ReadRequest implements the per-connection state machine of spec.md §4.6
// steps 1-5: read the RSA block, detect the KEY shortcut, decrypt the
// envelope, read the body, and decrypt it. isKeyFetch is true when the
// caller should instead respond with the raw public key and close.
//
// When the AES-CBC body fails to decrypt, the envelope itself was still
// readable, so the returned Request carries AESKey/AESIV (but no Body) even
// though err is non-nil: the caller can use them to attempt an encrypted
// ERR_CRYPTO reply (spec.md §4.6/§7) instead of dropping the connection
// silently, which is the right response only for failures before any AES
// key is known (bad RSA block, truncated reads).
func ReadRequest(conn net.Conn, priv *rsa.PrivateKey) (req *Request, isKeyFetch bool, err error) {
	block, err := netx.ReadExactly(conn, cryptox.RSABlockSize)
	if err != nil {
		return nil, false, fmt.Errorf("protocol: read envelope block: %w", err)
	}

	if bytes.HasPrefix(block, keyFetchMagic) {
		return nil, true, nil
	}

	env, err := ParseEnvelope(priv, block)
	if err != nil {
		return nil, false, err
	}

	bodyCipher, err := netx.ReadExactly(conn, int(env.BodyLen))
	if err != nil {
		return nil, false, fmt.Errorf("protocol: read body: %w", err)
	}

	plaintext, err := cryptox.DecryptCBC(env.AESKey, env.AESIV, bodyCipher)
	if err != nil {
		return &Request{Command: env.Command, AESKey: env.AESKey, AESIV: env.AESIV},
			false, fmt.Errorf("%s: %w", RespErrCrypto, err)
	}

	return &Request{Command: env.Command, AESKey: env.AESKey, AESIV: env.AESIV, Body: plaintext}, false, nil
}

// WriteKeyFetchReply sends the PEM-encoded public key and leaves the
// connection ready to be closed by the caller.
func WriteKeyFetchReply(conn net.Conn, pub *rsa.PublicKey) error {
	return netx.SendReliably(conn, cryptox.EncodePublicKeyPEM(pub))
}

// WriteReply AES-CBC-encrypts plaintext under the request's key/IV (a
// fresh encrypt-mode cipher context, per spec.md §4.6 step 7) and writes it
// to conn.
func WriteReply(conn net.Conn, aesKey, aesIV []byte, plaintext []byte) error {
	ciphertext, err := cryptox.EncryptCBC(aesKey, aesIV, plaintext)
	if err != nil {
		return fmt.Errorf("protocol: encrypt reply: %w", err)
	}
	return netx.SendReliably(conn, ciphertext)
}
