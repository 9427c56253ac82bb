package protocol

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestBareAuthBody_RoundTrip(t *testing.T) {
	want := RegisterOrBareAuthBody{User: "alice", Pass: "hunter2"}
	got, err := ParseBareAuthBody(EncodeBareAuthBody(want))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestGetContentBody_RoundTrip(t *testing.T) {
	want := GetContentBody{User: "alice", Pass: "p", Who: "bob"}
	got, err := ParseGetContentBody(EncodeGetContentBody(want))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestSetContentBody_RoundTrip(t *testing.T) {
	want := SetContentBody{User: "alice", Pass: "p", Content: []byte("hello, world")}
	got, err := ParseSetContentBody(EncodeSetContentBody(want))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.User != want.User || got.Pass != want.Pass || !bytes.Equal(got.Content, want.Content) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestSetContentBody_EmptyContent(t *testing.T) {
	want := SetContentBody{User: "alice", Pass: "p", Content: []byte{}}
	got, err := ParseSetContentBody(EncodeSetContentBody(want))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got.Content) != 0 {
		t.Fatalf("expected empty content, got %v", got.Content)
	}
}

func TestKVPutBody_RoundTrip(t *testing.T) {
	want := KVPutBody{User: "bob", Pass: "p", Key: []byte("k1"), Value: []byte("binary\x00value")}
	got, err := ParseKVPutBody(EncodeKVPutBody(want))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.User != want.User || got.Pass != want.Pass ||
		!bytes.Equal(got.Key, want.Key) || !bytes.Equal(got.Value, want.Value) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestKVKeyBody_RoundTrip(t *testing.T) {
	want := KVKeyBody{User: "bob", Pass: "p", Key: "k1"}
	got, err := ParseKVKeyBody(EncodeKVKeyBody(want))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestRegisterPluginBody_RoundTrip(t *testing.T) {
	want := RegisterPluginBody{User: "admin", Pass: "p", Name: "wordcount", Blob: []byte{0x01, 0x02, 0x03}}
	got, err := ParseRegisterPluginBody(EncodeRegisterPluginBody(want))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.User != want.User || got.Pass != want.Pass || got.Name != want.Name || !bytes.Equal(got.Blob, want.Blob) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestInvokePluginBody_RoundTrip(t *testing.T) {
	want := InvokePluginBody{User: "bob", Pass: "p", Name: "wordcount"}
	got, err := ParseInvokePluginBody(EncodeInvokePluginBody(want))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestParseKVPutBody_TruncatedLengthIsError(t *testing.T) {
	bad := []byte("user\npass\n")
	bad = append(bad, 100, 0, 0, 0) // u32 LE length of 100, far more than the body has left
	bad = append(bad, []byte("short")...)
	if _, err := ParseKVPutBody(bad); err == nil {
		t.Fatal("expected error for a length prefix exceeding remaining body")
	}
}

func TestEncodeDataReply_CarriesOKAndLengthPrefix(t *testing.T) {
	payload := []byte("result data")
	reply := EncodeDataReply(payload)
	if !bytes.HasPrefix(reply, []byte(RespOK)) {
		t.Fatal("expected reply to start with OK")
	}
	if !bytes.HasSuffix(reply, payload) {
		t.Fatal("expected reply to end with the payload bytes")
	}
	if got := binary.LittleEndian.Uint32(reply[len(RespOK) : len(RespOK)+4]); got != uint32(len(payload)) {
		t.Fatalf("expected length prefix %d, got %d", len(payload), got)
	}
}
