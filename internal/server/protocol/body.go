package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// Body plaintext layouts (spec.md §6.1): newline-delimited text fields
// followed, where applicable, by one or more 32-bit little-endian
// length-prefixed binary payloads, matching the persistence log's own
// u32-length-prefixed record format on the same spec page.

// RegisterOrBareAuthBody covers REG, BYE, SAV, ALL, KVA, KVT: "user\npass".
type RegisterOrBareAuthBody struct {
	User string
	Pass string
}

func ParseBareAuthBody(plaintext []byte) (RegisterOrBareAuthBody, error) {
	fields := strings.SplitN(string(plaintext), "\n", 2)
	if len(fields) != 2 {
		return RegisterOrBareAuthBody{}, fmt.Errorf("%w: expected user\\npass", errBadBody)
	}
	return RegisterOrBareAuthBody{User: fields[0], Pass: fields[1]}, nil
}

func EncodeBareAuthBody(b RegisterOrBareAuthBody) []byte {
	return []byte(b.User + "\n" + b.Pass)
}

// GetContentBody covers GET: "user\npass\nwho".
type GetContentBody struct {
	User string
	Pass string
	Who  string
}

func ParseGetContentBody(plaintext []byte) (GetContentBody, error) {
	fields := strings.SplitN(string(plaintext), "\n", 3)
	if len(fields) != 3 {
		return GetContentBody{}, fmt.Errorf("%w: expected user\\npass\\nwho", errBadBody)
	}
	return GetContentBody{User: fields[0], Pass: fields[1], Who: fields[2]}, nil
}

func EncodeGetContentBody(b GetContentBody) []byte {
	return []byte(b.User + "\n" + b.Pass + "\n" + b.Who)
}

// SetContentBody covers SET: "user\npass\n" followed by a u32-length-prefixed
// content payload.
type SetContentBody struct {
	User    string
	Pass    string
	Content []byte
}

func ParseSetContentBody(plaintext []byte) (SetContentBody, error) {
	user, pass, rest, err := splitTwoLines(plaintext)
	if err != nil {
		return SetContentBody{}, err
	}
	content, _, err := readLenPrefixedField(rest)
	if err != nil {
		return SetContentBody{}, err
	}
	return SetContentBody{User: user, Pass: pass, Content: content}, nil
}

func EncodeSetContentBody(b SetContentBody) []byte {
	var buf []byte
	buf = append(buf, []byte(b.User+"\n"+b.Pass+"\n")...)
	buf = appendLenPrefixedField(buf, b.Content)
	return buf
}

// KVPutBody covers KVI, KVU: "user\npass" followed by a u32-length-prefixed
// key and a u32-length-prefixed value.
type KVPutBody struct {
	User  string
	Pass  string
	Key   []byte
	Value []byte
}

func ParseKVPutBody(plaintext []byte) (KVPutBody, error) {
	user, pass, rest, err := splitTwoLines(plaintext)
	if err != nil {
		return KVPutBody{}, err
	}
	key, rest, err := readLenPrefixedField(rest)
	if err != nil {
		return KVPutBody{}, err
	}
	value, _, err := readLenPrefixedField(rest)
	if err != nil {
		return KVPutBody{}, err
	}
	return KVPutBody{User: user, Pass: pass, Key: key, Value: value}, nil
}

func EncodeKVPutBody(b KVPutBody) []byte {
	var buf []byte
	buf = append(buf, []byte(b.User+"\n"+b.Pass+"\n")...)
	buf = appendLenPrefixedField(buf, b.Key)
	buf = appendLenPrefixedField(buf, b.Value)
	return buf
}

// KVKeyBody covers KVG, KVD: "user\npass\nkey" (newline-delimited; the key
// itself is assumed not to contain a newline, consistent with the
// printable-key bound in spec.md §3).
type KVKeyBody struct {
	User string
	Pass string
	Key  string
}

func ParseKVKeyBody(plaintext []byte) (KVKeyBody, error) {
	fields := strings.SplitN(string(plaintext), "\n", 3)
	if len(fields) != 3 {
		return KVKeyBody{}, fmt.Errorf("%w: expected user\\npass\\nkey", errBadBody)
	}
	return KVKeyBody{User: fields[0], Pass: fields[1], Key: fields[2]}, nil
}

func EncodeKVKeyBody(b KVKeyBody) []byte {
	return []byte(b.User + "\n" + b.Pass + "\n" + b.Key)
}

// RegisterPluginBody covers REGMR: "user\npass\nname" followed by a
// u32-length-prefixed plugin executable blob.
type RegisterPluginBody struct {
	User string
	Pass string
	Name string
	Blob []byte
}

func ParseRegisterPluginBody(plaintext []byte) (RegisterPluginBody, error) {
	user, pass, rest, err := splitTwoLines(plaintext)
	if err != nil {
		return RegisterPluginBody{}, err
	}
	nameRaw, rest, err := splitOneLine(rest)
	if err != nil {
		return RegisterPluginBody{}, err
	}
	blob, _, err := readLenPrefixedField(rest)
	if err != nil {
		return RegisterPluginBody{}, err
	}
	return RegisterPluginBody{User: user, Pass: pass, Name: nameRaw, Blob: blob}, nil
}

func EncodeRegisterPluginBody(b RegisterPluginBody) []byte {
	var buf []byte
	buf = append(buf, []byte(b.User+"\n"+b.Pass+"\n"+b.Name+"\n")...)
	buf = appendLenPrefixedField(buf, b.Blob)
	return buf
}

// InvokePluginBody covers INVMR: "user\npass\nname".
type InvokePluginBody struct {
	User string
	Pass string
	Name string
}

func ParseInvokePluginBody(plaintext []byte) (InvokePluginBody, error) {
	fields := strings.SplitN(string(plaintext), "\n", 3)
	if len(fields) != 3 {
		return InvokePluginBody{}, fmt.Errorf("%w: expected user\\npass\\nname", errBadBody)
	}
	return InvokePluginBody{User: fields[0], Pass: fields[1], Name: fields[2]}, nil
}

func EncodeInvokePluginBody(b InvokePluginBody) []byte {
	return []byte(b.User + "\n" + b.Pass + "\n" + b.Name)
}

var errBadBody = fmt.Errorf("%s", RespErrMsgFmt)

func splitOneLine(b []byte) (string, []byte, error) {
	idx := indexByte(b, '\n')
	if idx < 0 {
		return "", nil, fmt.Errorf("%w: missing newline field", errBadBody)
	}
	return string(b[:idx]), b[idx+1:], nil
}

func splitTwoLines(b []byte) (user, pass string, rest []byte, err error) {
	user, rest, err = splitOneLine(b)
	if err != nil {
		return "", "", nil, err
	}
	pass, rest, err = splitOneLine(rest)
	if err != nil {
		return "", "", nil, err
	}
	return user, pass, rest, nil
}

// readLenPrefixedField reads a 4-byte little-endian length followed by that
// many bytes, the binary framing used for every payload embedded in an
// otherwise text body (spec.md §6.1).
func readLenPrefixedField(b []byte) (payload []byte, rest []byte, err error) {
	if len(b) < 4 {
		return nil, nil, fmt.Errorf("%w: length field truncated", errBadBody)
	}
	n := binary.LittleEndian.Uint32(b[:4])
	b = b[4:]
	if uint64(len(b)) < uint64(n) {
		return nil, nil, fmt.Errorf("%w: length field %d exceeds remaining body", errBadBody, n)
	}
	return b[:n], b[n:], nil
}

func appendLenPrefixedField(buf []byte, payload []byte) []byte {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	buf = append(buf, lenBuf[:]...)
	return append(buf, payload...)
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// EncodeDataReply builds the "OK<4-byte-length><bytes>" reply format for
// data-bearing success responses (spec.md §6.1).
func EncodeDataReply(data []byte) []byte {
	buf := make([]byte, 0, len(RespOK)+4+len(data))
	buf = append(buf, []byte(RespOK)...)
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(data)))
	buf = append(buf, lenBuf[:]...)
	return append(buf, data...)
}

// DecodeDataReply is the client-side inverse of EncodeDataReply: it
// recognizes the "OK<4-byte-length><bytes>" layout and extracts the
// payload. ok is false for any reply that isn't in that layout (a bare
// "OK", or any ERR_* response), in which case the caller should treat
// reply as one of the plain response constants instead.
func DecodeDataReply(reply []byte) (data []byte, ok bool) {
	prefix := []byte(RespOK)
	if len(reply) < len(prefix)+4 || !bytes.HasPrefix(reply, prefix) {
		return nil, false
	}
	n := binary.LittleEndian.Uint32(reply[len(prefix) : len(prefix)+4])
	payload := reply[len(prefix)+4:]
	if uint64(len(payload)) != uint64(n) {
		return nil, false
	}
	return payload, true
}
