// Package wireclient implements the client side of the hybrid RSA+AES wire
// protocol: one fresh TCP connection per command, an RSA-OAEP envelope
// carrying a freshly generated AES-256-CBC key/IV, and the AES-encrypted
// body that follows it. This mirrors the reference client's
// client_send_cmd, which dials anew for every request rather than holding
// a session open.
package wireclient

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"net"
	"time"

	"github.com/dmitrijs2005/gophkeeper/internal/common"
	"github.com/dmitrijs2005/gophkeeper/internal/cryptox"
	"github.com/dmitrijs2005/gophkeeper/internal/netx"
	"github.com/dmitrijs2005/gophkeeper/internal/server/protocol"
)

// DialTimeout bounds how long a single command's connection attempt may
// take before it is abandoned.
const DialTimeout = 10 * time.Second

// Client sends commands to one server address, authenticating each one
// with the given RSA public key. It holds no session state beyond that
// cached key: every call opens its own connection.
type Client struct {
	addr string
	pub  *rsa.PublicKey
}

// New dials addr once to fetch and cache the server's public key via the
// KEY bootstrap shortcut (spec.md §4.6 step 2), then returns a Client ready
// to issue commands.
func New(addr string) (*Client, error) {
	pub, err := fetchPublicKey(addr)
	if err != nil {
		return nil, fmt.Errorf("wireclient: fetching server public key from %s: %w", addr, err)
	}
	return &Client{addr: addr, pub: pub}, nil
}

// NewWithKey builds a Client around an already-known server public key,
// skipping the bootstrap round trip (used when a cached key from a prior
// run is still valid).
func NewWithKey(addr string, pub *rsa.PublicKey) *Client {
	return &Client{addr: addr, pub: pub}
}

// PublicKey returns the cached server public key, for callers that want to
// persist it for a future run.
func (c *Client) PublicKey() *rsa.PublicKey {
	return c.pub
}

func fetchPublicKey(addr string) (*rsa.PublicKey, error) {
	conn, err := net.DialTimeout("tcp", addr, DialTimeout)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	block := make([]byte, cryptox.RSABlockSize)
	copy(block, []byte(protocol.CmdKeyFetch))
	if _, err := rand.Read(block[len(protocol.CmdKeyFetch):]); err != nil {
		return nil, fmt.Errorf("filling key-fetch padding: %w", err)
	}

	if err := netx.SendReliably(conn, block); err != nil {
		return nil, err
	}

	pemBytes, err := netx.ReadToEOF(conn)
	if err != nil {
		return nil, err
	}

	return cryptox.DecodePublicKeyPEM(pemBytes)
}

// send dials a fresh connection, builds the RSA envelope around a
// freshly generated AES key/IV, writes the envelope block followed by the
// AES-encrypted body, and returns the decrypted reply (spec.md §4.6).
func (c *Client) send(command string, body []byte) ([]byte, error) {
	conn, err := net.DialTimeout("tcp", c.addr, DialTimeout)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	aesKey := make([]byte, cryptox.AESKeySize)
	aesIV := make([]byte, cryptox.AESIVSize)
	if _, err := rand.Read(aesKey); err != nil {
		return nil, fmt.Errorf("generating AES key: %w", err)
	}
	if _, err := rand.Read(aesIV); err != nil {
		return nil, fmt.Errorf("generating AES IV: %w", err)
	}

	cipherBody, err := cryptox.EncryptCBC(aesKey, aesIV, body)
	if err != nil {
		return nil, fmt.Errorf("%w: encrypting body: %v", common.ErrCrypto, err)
	}

	padding := make([]byte, cryptox.EnvelopeContentSize-fixedEnvelopeHeaderLen)
	if _, err := rand.Read(padding); err != nil {
		return nil, fmt.Errorf("generating envelope padding: %w", err)
	}
	plaintext := protocol.BuildEnvelopePlaintext(command, aesKey, aesIV, uint32(len(cipherBody)), padding)

	envelope, err := cryptox.EncryptOAEP(c.pub, plaintext)
	if err != nil {
		return nil, fmt.Errorf("%w: encrypting envelope: %v", common.ErrCrypto, err)
	}

	if err := netx.SendReliably(conn, envelope); err != nil {
		return nil, err
	}
	if err := netx.SendReliably(conn, cipherBody); err != nil {
		return nil, err
	}

	replyCipher, err := netx.ReadToEOF(conn)
	if err != nil {
		return nil, err
	}
	reply, err := cryptox.DecryptCBC(aesKey, aesIV, replyCipher)
	if err != nil {
		return nil, fmt.Errorf("%w: decrypting reply: %v", common.ErrCrypto, err)
	}
	return reply, nil
}

// fixedEnvelopeHeaderLen is the command mnemonic (3 bytes, regardless of
// the command's actual length) plus the AES key, IV, and body-length
// fields that precede the random padding in the envelope plaintext.
const fixedEnvelopeHeaderLen = 3 + cryptox.AESKeySize + cryptox.AESIVSize + 4
