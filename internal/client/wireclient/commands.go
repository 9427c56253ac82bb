package wireclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophkeeper/internal/common"
	"github.com/dmitrijs2005/gophkeeper/internal/server/protocol"
)

// mapReplyErr is the client-side inverse of the server's mapStorageErr: it
// turns a plain (non-data-bearing) response constant into the sentinel
// error a caller can match with errors.Is.
func mapReplyErr(reply []byte) error {
	switch string(reply) {
	case protocol.RespOK, protocol.RespOKInsert, protocol.RespOKUpdate:
		return nil
	case protocol.RespErrUserExists:
		return common.ErrUserExists
	case protocol.RespErrNoUser:
		return common.ErrNoSuchUser
	case protocol.RespErrLogin:
		return common.ErrBadCredentials
	case protocol.RespErrNoData:
		return common.ErrNoData
	case protocol.RespErrKey:
		return common.ErrKeyAbsent
	case protocol.RespErrMsgFmt:
		return common.ErrMsgFormat
	case protocol.RespErrCrypto:
		return common.ErrCrypto
	case protocol.RespErrXmit:
		return common.ErrTransmit
	case protocol.RespErrInvCmd:
		return common.ErrInvalidCmd
	case protocol.RespErrQuota:
		return common.ErrQuota
	case protocol.RespErrSO:
		return common.ErrPlugin
	default:
		return fmt.Errorf("%w: unrecognized reply %q", common.ErrInternal, reply)
	}
}

// Register creates a new account.
func (c *Client) Register(user, pass string) error {
	reply, err := c.send(protocol.CmdRegister, protocol.EncodeBareAuthBody(protocol.RegisterOrBareAuthBody{User: user, Pass: pass}))
	if err != nil {
		return err
	}
	return mapReplyErr(reply)
}

// Bye authenticates and asks the server to drain and shut down.
func (c *Client) Bye(user, pass string) error {
	reply, err := c.send(protocol.CmdBye, protocol.EncodeBareAuthBody(protocol.RegisterOrBareAuthBody{User: user, Pass: pass}))
	if err != nil {
		return err
	}
	return mapReplyErr(reply)
}

// Save asks the server to flush a snapshot. The caller must be the admin user.
func (c *Client) Save(user, pass string) error {
	reply, err := c.send(protocol.CmdSave, protocol.EncodeBareAuthBody(protocol.RegisterOrBareAuthBody{User: user, Pass: pass}))
	if err != nil {
		return err
	}
	return mapReplyErr(reply)
}

// SetContent replaces the caller's own content blob.
func (c *Client) SetContent(user, pass string, content []byte) error {
	reply, err := c.send(protocol.CmdSetContent, protocol.EncodeSetContentBody(protocol.SetContentBody{User: user, Pass: pass, Content: content}))
	if err != nil {
		return err
	}
	return mapReplyErr(reply)
}

// GetContent fetches who's content blob, once user/pass authenticates.
func (c *Client) GetContent(user, pass, who string) ([]byte, error) {
	reply, err := c.send(protocol.CmdGetContent, protocol.EncodeGetContentBody(protocol.GetContentBody{User: user, Pass: pass, Who: who}))
	if err != nil {
		return nil, err
	}
	return decodeData(reply)
}

// AllUsers lists every registered username, newline-joined in the reply
// payload.
func (c *Client) AllUsers(user, pass string) ([]byte, error) {
	reply, err := c.send(protocol.CmdAllUsers, protocol.EncodeBareAuthBody(protocol.RegisterOrBareAuthBody{User: user, Pass: pass}))
	if err != nil {
		return nil, err
	}
	return decodeData(reply)
}

// KVInsert inserts key=value into the global store, failing if key exists.
func (c *Client) KVInsert(user, pass string, key, value []byte) error {
	reply, err := c.send(protocol.CmdKVInsert, protocol.EncodeKVPutBody(protocol.KVPutBody{User: user, Pass: pass, Key: key, Value: value}))
	if err != nil {
		return err
	}
	return mapReplyErr(reply)
}

// KVUpsert inserts or updates key=value, reporting which it did via the
// returned bool (true for a fresh insert, false for an update).
func (c *Client) KVUpsert(user, pass string, key, value []byte) (inserted bool, err error) {
	reply, err := c.send(protocol.CmdKVUpsert, protocol.EncodeKVPutBody(protocol.KVPutBody{User: user, Pass: pass, Key: key, Value: value}))
	if err != nil {
		return false, err
	}
	switch string(reply) {
	case protocol.RespOKInsert:
		return true, nil
	case protocol.RespOKUpdate:
		return false, nil
	default:
		return false, mapReplyErr(reply)
	}
}

// KVGet fetches the value stored under key.
func (c *Client) KVGet(user, pass, key string) ([]byte, error) {
	reply, err := c.send(protocol.CmdKVGet, protocol.EncodeKVKeyBody(protocol.KVKeyBody{User: user, Pass: pass, Key: key}))
	if err != nil {
		return nil, err
	}
	return decodeData(reply)
}

// KVDelete removes key from the global store.
func (c *Client) KVDelete(user, pass, key string) error {
	reply, err := c.send(protocol.CmdKVDelete, protocol.EncodeKVKeyBody(protocol.KVKeyBody{User: user, Pass: pass, Key: key}))
	if err != nil {
		return err
	}
	return mapReplyErr(reply)
}

// KVKeys lists every key currently in the global store.
func (c *Client) KVKeys(user, pass string) ([]byte, error) {
	reply, err := c.send(protocol.CmdKVKeys, protocol.EncodeBareAuthBody(protocol.RegisterOrBareAuthBody{User: user, Pass: pass}))
	if err != nil {
		return nil, err
	}
	return decodeData(reply)
}

// KVTop lists the most-recently-touched keys, most recent first.
func (c *Client) KVTop(user, pass string) ([]byte, error) {
	reply, err := c.send(protocol.CmdKVTop, protocol.EncodeBareAuthBody(protocol.RegisterOrBareAuthBody{User: user, Pass: pass}))
	if err != nil {
		return nil, err
	}
	return decodeData(reply)
}

// RegisterPlugin uploads and registers a map/reduce executable under name.
// The caller must be the admin user.
func (c *Client) RegisterPlugin(user, pass, name string, blob []byte) error {
	reply, err := c.send(protocol.CmdRegisterMR, protocol.EncodeRegisterPluginBody(protocol.RegisterPluginBody{User: user, Pass: pass, Name: name, Blob: blob}))
	if err != nil {
		return err
	}
	return mapReplyErr(reply)
}

// InvokePlugin runs the named registered plugin over the current contents
// of the global store and returns its reduce output. ctx is accepted for
// API symmetry with the server side's context-bounded invocation, but the
// server enforces its own timeout independent of the caller's deadline.
func (c *Client) InvokePlugin(ctx context.Context, user, pass, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	reply, err := c.send(protocol.CmdInvokeMR, protocol.EncodeInvokePluginBody(protocol.InvokePluginBody{User: user, Pass: pass, Name: name}))
	if err != nil {
		return nil, err
	}
	return decodeData(reply)
}

func decodeData(reply []byte) ([]byte, error) {
	if data, ok := protocol.DecodeDataReply(reply); ok {
		return data, nil
	}
	if err := mapReplyErr(reply); err != nil {
		return nil, err
	}
	return nil, errors.New("wireclient: expected data reply, got bare OK")
}
