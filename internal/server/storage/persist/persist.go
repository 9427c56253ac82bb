// Package persist implements the append-only durability log and snapshot
// compaction used by the storage facade: every record begins with an
// 8-byte ASCII magic identifying its type, followed by little-endian
// u32-length-prefixed fields. There are no checksums, trailers, or version
// prefixes — the magic bytes alone identify record type.
package persist

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/gophkeeper/internal/filex"
)

// Magic values for each record type. Exactly 8 ASCII bytes each.
const (
	MagicAuthAuth = "AUTHAUTH" // baseline snapshot: one full auth row
	MagicAuthDiff = "AUTHDIFF" // incremental: a user's content changed
	MagicKV       = "KVKVKVKV" // baseline snapshot or incremental insert
	MagicKVUpdate = "KVUPDATE" // incremental: upsert took the update branch
	MagicKVDelete = "KVDELETE" // incremental: key removed
)

const magicLen = 8

// ErrFormat reports a corrupt or unrecognized log file: an unknown magic
// encountered short of EOF.
var ErrFormat = errors.New("persist: malformed log record")

// AuthRecord is one user's durable identity: salt+digest pass hash and
// free-form content, as captured in an AUTHAUTH or AUTHDIFF record.
type AuthRecord struct {
	Username string
	PassHash []byte // AUTHAUTH only; empty in AUTHDIFF
	Content  []byte
}

// KVRecord is one key/value pair, as captured in a KVKVKVKV or KVUPDATE
// record.
type KVRecord struct {
	Key   string
	Value []byte
}

// Visitor receives each record read from the log, in file order.
type Visitor struct {
	OnAuthFull   func(AuthRecord)
	OnAuthDiff   func(username string, content []byte)
	OnKVFull     func(KVRecord)
	OnKVUpdate   func(KVRecord)
	OnKVDelete   func(key string)
}

// Log wraps an append-mode file handle used for incremental durability
// writes, plus the path used for baseline snapshot compaction.
type Log struct {
	path string
	f    *os.File
	w    *bufio.Writer
}

// Load reads every record in path (if it exists) into visitor callbacks,
// then reopens the file in append mode for incremental writes. If path
// does not exist, an empty Log is returned ready for first use.
func Load(path string, v Visitor) (*Log, error) {
	if _, err := os.Stat(path); err == nil {
		if err := replay(path, v); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("persist: stat %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("persist: open %s for append: %w", path, err)
	}
	return &Log{path: path, f: f, w: bufio.NewWriter(f)}, nil
}

func replay(path string, v Visitor) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("persist: open %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	for {
		magic := make([]byte, magicLen)
		if _, err := io.ReadFull(r, magic); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("%w: truncated magic: %v", ErrFormat, err)
		}

		switch string(magic) {
		case MagicAuthAuth:
			username, err := readLenPrefixed(r)
			if err != nil {
				return err
			}
			passHash, err := readLenPrefixed(r)
			if err != nil {
				return err
			}
			content, err := readLenPrefixed(r)
			if err != nil {
				return err
			}
			if v.OnAuthFull != nil {
				v.OnAuthFull(AuthRecord{Username: string(username), PassHash: passHash, Content: content})
			}
		case MagicAuthDiff:
			username, err := readLenPrefixed(r)
			if err != nil {
				return err
			}
			content, err := readLenPrefixed(r)
			if err != nil {
				return err
			}
			if v.OnAuthDiff != nil {
				v.OnAuthDiff(string(username), content)
			}
		case MagicKV:
			key, err := readLenPrefixed(r)
			if err != nil {
				return err
			}
			value, err := readLenPrefixed(r)
			if err != nil {
				return err
			}
			if v.OnKVFull != nil {
				v.OnKVFull(KVRecord{Key: string(key), Value: value})
			}
		case MagicKVUpdate:
			key, err := readLenPrefixed(r)
			if err != nil {
				return err
			}
			value, err := readLenPrefixed(r)
			if err != nil {
				return err
			}
			if v.OnKVUpdate != nil {
				v.OnKVUpdate(KVRecord{Key: string(key), Value: value})
			}
		case MagicKVDelete:
			key, err := readLenPrefixed(r)
			if err != nil {
				return err
			}
			if v.OnKVDelete != nil {
				v.OnKVDelete(string(key))
			}
		default:
			return fmt.Errorf("%w: unrecognized magic %q", ErrFormat, magic)
		}
	}
}

func readLenPrefixed(r io.Reader) ([]byte, error) {
	lenBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, lenBuf); err != nil {
		return nil, fmt.Errorf("%w: truncated length prefix: %v", ErrFormat, err)
	}
	n := binary.LittleEndian.Uint32(lenBuf)
	buf := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("%w: truncated field of %d bytes: %v", ErrFormat, n, err)
		}
	}
	return buf, nil
}

func writeLenPrefixed(w *bufio.Writer, b []byte) {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(b)))
	w.Write(lenBuf[:])
	w.Write(b)
}

// AppendAuthFull records a newly registered user. Must be called with the
// relevant auth bucket's exclusive lock held, per the durability contract.
func (l *Log) AppendAuthFull(rec AuthRecord) error {
	l.w.WriteString(MagicAuthAuth)
	writeLenPrefixed(l.w, []byte(rec.Username))
	writeLenPrefixed(l.w, rec.PassHash)
	writeLenPrefixed(l.w, rec.Content)
	return l.flush()
}

// AppendAuthDiff records a content change for an existing user.
func (l *Log) AppendAuthDiff(username string, content []byte) error {
	l.w.WriteString(MagicAuthDiff)
	writeLenPrefixed(l.w, []byte(username))
	writeLenPrefixed(l.w, content)
	return l.flush()
}

// AppendKVFull records a KV insert.
func (l *Log) AppendKVFull(rec KVRecord) error {
	l.w.WriteString(MagicKV)
	writeLenPrefixed(l.w, []byte(rec.Key))
	writeLenPrefixed(l.w, rec.Value)
	return l.flush()
}

// AppendKVUpdate records the update branch of a KV upsert.
func (l *Log) AppendKVUpdate(rec KVRecord) error {
	l.w.WriteString(MagicKVUpdate)
	writeLenPrefixed(l.w, []byte(rec.Key))
	writeLenPrefixed(l.w, rec.Value)
	return l.flush()
}

// AppendKVDelete records a KV delete.
func (l *Log) AppendKVDelete(key string) error {
	l.w.WriteString(MagicKVDelete)
	writeLenPrefixed(l.w, []byte(key))
	return l.flush()
}

func (l *Log) flush() error {
	if err := l.w.Flush(); err != nil {
		return fmt.Errorf("persist: flush: %w", err)
	}
	return l.f.Sync()
}

// Close closes the underlying append-mode file handle.
func (l *Log) Close() error {
	return l.f.Close()
}

// Snapshot atomically rewrites the log as a baseline: every auth row as an
// AUTHAUTH record followed by every KV pair as a KVKVKVKV record, written
// to a temp file and renamed into place. After Snapshot returns, the Log's
// append-mode handle is reopened against the freshly-installed file so
// subsequent incremental appends land after the new baseline.
func (l *Log) Snapshot(auths []AuthRecord, kvs []KVRecord) error {
	var buf []byte
	bw := newByteWriter(&buf)
	for _, a := range auths {
		bw.WriteString(MagicAuthAuth)
		bw.writeLenPrefixed([]byte(a.Username))
		bw.writeLenPrefixed(a.PassHash)
		bw.writeLenPrefixed(a.Content)
	}
	for _, kv := range kvs {
		bw.WriteString(MagicKV)
		bw.writeLenPrefixed([]byte(kv.Key))
		bw.writeLenPrefixed(kv.Value)
	}

	if err := l.f.Close(); err != nil {
		return fmt.Errorf("persist: close before snapshot: %w", err)
	}
	if err := filex.WriteFileAtomic(l.path, buf, 0o600); err != nil {
		return fmt.Errorf("persist: write snapshot: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("persist: reopen after snapshot: %w", err)
	}
	l.f = f
	l.w = bufio.NewWriter(f)
	return nil
}

type byteWriter struct {
	buf *[]byte
}

func newByteWriter(buf *[]byte) *byteWriter { return &byteWriter{buf: buf} }

func (b *byteWriter) WriteString(s string) { *b.buf = append(*b.buf, s...) }

func (b *byteWriter) writeLenPrefixed(data []byte) {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(data)))
	*b.buf = append(*b.buf, lenBuf[:]...)
	*b.buf = append(*b.buf, data...)
}
