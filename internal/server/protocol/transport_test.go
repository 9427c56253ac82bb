package protocol

import (
	"bytes"
	"net"
	"testing"

	"github.com/dmitrijs2005/gophkeeper/internal/cryptox"
	"github.com/dmitrijs2005/gophkeeper/internal/netx"
)

func TestReadRequest_BodyDecryptFailureCarriesAESKey(t *testing.T) {
	priv, err := cryptox.GenerateRSAKeyPair()
	if err != nil {
		t.Fatalf("GenerateRSAKeyPair: %v", err)
	}

	aesKey := bytes.Repeat([]byte{0x11}, cryptox.AESKeySize)
	aesIV := bytes.Repeat([]byte{0x22}, cryptox.AESIVSize)
	// Not a multiple of the AES block size, so DecryptCBC fails on this body
	// even though the envelope itself decrypted cleanly.
	badBodyCipher := []byte{0x01, 0x02, 0x03}

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	padding := bytes.Repeat([]byte{0x00}, cryptox.EnvelopeContentSize-envelopeHeaderLen)
	plaintext := BuildEnvelopePlaintext(CmdKVGet, aesKey, aesIV, uint32(len(badBodyCipher)), padding)
	envCipher, err := cryptox.EncryptOAEP(&priv.PublicKey, plaintext)
	if err != nil {
		t.Fatalf("EncryptOAEP: %v", err)
	}

	go func() {
		_ = netx.SendReliably(clientConn, envCipher)
		_ = netx.SendReliably(clientConn, badBodyCipher)
	}()

	req, isKeyFetch, err := ReadRequest(serverConn, priv)
	if err == nil {
		t.Fatal("expected a body-decrypt error")
	}
	if isKeyFetch {
		t.Fatal("did not expect a key-fetch request")
	}
	if req == nil {
		t.Fatal("expected a non-nil Request carrying the AES key/IV")
	}
	if !bytes.Equal(req.AESKey, aesKey) {
		t.Fatal("AES key not threaded through on decrypt failure")
	}
	if !bytes.Equal(req.AESIV, aesIV) {
		t.Fatal("AES IV not threaded through on decrypt failure")
	}
	if req.Body != nil {
		t.Fatal("expected no plaintext body on decrypt failure")
	}
}

func TestReadRequest_EnvelopeFailureReturnsNilRequest(t *testing.T) {
	priv, err := cryptox.GenerateRSAKeyPair()
	if err != nil {
		t.Fatalf("GenerateRSAKeyPair: %v", err)
	}

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	garbage := bytes.Repeat([]byte{0xFF}, cryptox.RSABlockSize)
	go func() { _ = netx.SendReliably(clientConn, garbage) }()

	req, isKeyFetch, err := ReadRequest(serverConn, priv)
	if err == nil {
		t.Fatal("expected an envelope parse error")
	}
	if isKeyFetch {
		t.Fatal("did not expect a key-fetch request")
	}
	if req != nil {
		t.Fatal("expected a nil Request when no AES key was ever recovered")
	}
}
