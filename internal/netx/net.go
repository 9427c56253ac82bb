// Package netx implements reliable framed I/O over a net.Conn, used by the
// server's protocol parser and the client to exchange fixed- and
// variable-length buffers without short reads or short writes.
package netx

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
)

// SendReliably writes the whole of msg to conn, looping over short writes.
func SendReliably(conn net.Conn, msg []byte) error {
	total := 0
	for total < len(msg) {
		n, err := conn.Write(msg[total:])
		if err != nil {
			return fmt.Errorf("netx: short write at %d/%d bytes: %w", total, len(msg), err)
		}
		total += n
	}
	return nil
}

// ReadExactly reads exactly n bytes from conn, looping over short reads. It
// returns io.ErrUnexpectedEOF if the connection closes before n bytes
// arrive.
func ReadExactly(conn net.Conn, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(conn, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadToEOF reads from conn until the peer closes the connection,
// returning everything it received.
func ReadToEOF(conn net.Conn) ([]byte, error) {
	return io.ReadAll(conn)
}

// PutUint32 and GetUint32 encode/decode the little-endian uint32 length
// prefixes used throughout the wire protocol (spec.md §6.1/§6.2).
func PutUint32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func GetUint32(b []byte) uint32 {
	return binary.LittleEndian.Uint32(b)
}
