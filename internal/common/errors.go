// Package common defines shared sentinel errors and small utility helpers
// used across the server and client. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Storage-facade errors. Each maps to exactly one wire response
	// constant in internal/server/protocol.
	ErrUserExists     = errors.New("user already exists")
	ErrNoSuchUser     = errors.New("no such user")
	ErrBadCredentials = errors.New("bad credentials")
	ErrNoData         = errors.New("no data")
	ErrKeyAbsent      = errors.New("key not found")
	ErrKeyExists      = errors.New("key already exists")
	ErrMsgFormat      = errors.New("malformed message")
	ErrCrypto         = errors.New("cryptographic operation failed")
	ErrTransmit       = errors.New("transmission error")
	ErrInvalidCmd     = errors.New("invalid command")
	ErrQuota          = errors.New("quota exceeded")
	ErrPlugin         = errors.New("plugin error")

	// ErrInternal covers unexpected, non-wire-mapped failures (disk I/O,
	// corrupt log records) that should never reach a client verbatim.
	ErrInternal = errors.New("internal error")
)
