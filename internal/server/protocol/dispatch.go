package protocol

import (
	"context"
	"crypto/rsa"
	"errors"
	"net"
	"strings"

	"github.com/dmitrijs2005/gophkeeper/internal/common"
	"github.com/dmitrijs2005/gophkeeper/internal/logging"
	"github.com/dmitrijs2005/gophkeeper/internal/server/storage"
)

// HandleConnection drives one full pass of the per-connection state machine
// (spec.md §4.6): it reads exactly one request, dispatches it against
// store, writes exactly one reply, and closes the connection. shutdown is
// true when the request was a BYE that authenticated, telling the caller's
// worker pool to begin cooperative drain.
func HandleConnection(ctx context.Context, conn net.Conn, priv *rsa.PrivateKey, pub *rsa.PublicKey, store *storage.Storage, logger logging.Logger) (shutdown bool, err error) {
	defer conn.Close()

	req, isKeyFetch, err := ReadRequest(conn, priv)
	if err != nil {
		if logger != nil {
			logger.Warn(ctx, "protocol: reading request failed", "err", err, "remote", conn.RemoteAddr())
		}
		// A populated AESKey means the envelope decrypted fine and only the
		// AES-CBC body failed: reply with an encrypted ERR_CRYPTO rather than
		// dropping silently (spec.md §4.6/§7). Any earlier failure (bad RSA
		// block, truncated reads) leaves req nil, since no AES key is known
		// yet to encrypt a reply with.
		if req != nil && req.AESKey != nil {
			if werr := WriteReply(conn, req.AESKey, req.AESIV, []byte(RespErrCrypto)); werr != nil && logger != nil {
				logger.Warn(ctx, "protocol: writing ERR_CRYPTO reply failed", "err", werr, "remote", conn.RemoteAddr())
			}
		}
		return false, err
	}
	if isKeyFetch {
		return false, WriteKeyFetchReply(conn, pub)
	}

	reply, shutdown := dispatch(ctx, store, req)
	if werr := WriteReply(conn, req.AESKey, req.AESIV, reply); werr != nil {
		if logger != nil {
			logger.Warn(ctx, "protocol: writing reply failed", "err", werr, "command", req.Command)
		}
		return shutdown, werr
	}
	return shutdown, nil
}

// dispatch is the mnemonic-to-handler lookup table spec.md §4.6 describes.
func dispatch(ctx context.Context, store *storage.Storage, req *Request) (reply []byte, shutdown bool) {
	switch req.Command {
	case CmdRegister:
		return dispatchRegister(store, req.Body), false
	case CmdBye:
		return dispatchBye(store, req.Body)
	case CmdSave:
		return dispatchSave(store, req.Body), false
	case CmdSetContent:
		return dispatchSetContent(store, req.Body), false
	case CmdGetContent:
		return dispatchGetContent(store, req.Body), false
	case CmdAllUsers:
		return dispatchAllUsers(store, req.Body), false
	case CmdKVInsert:
		return dispatchKVInsert(store, req.Body), false
	case CmdKVUpsert:
		return dispatchKVUpsert(store, req.Body), false
	case CmdKVGet:
		return dispatchKVGet(store, req.Body), false
	case CmdKVDelete:
		return dispatchKVDelete(store, req.Body), false
	case CmdKVKeys:
		return dispatchKVKeys(store, req.Body), false
	case CmdKVTop:
		return dispatchKVTop(store, req.Body), false
	case CmdRegisterMR:
		return dispatchRegisterPlugin(store, req.Body), false
	case CmdInvokeMR:
		return dispatchInvokePlugin(ctx, store, req.Body), false
	default:
		return []byte(RespErrInvCmd), false
	}
}

func dispatchRegister(store *storage.Storage, body []byte) []byte {
	b, err := ParseBareAuthBody(body)
	if err != nil {
		return []byte(RespErrMsgFmt)
	}
	if len(b.User) > MaxUsernameLen || len(b.Pass) > MaxPasswordLen {
		return []byte(RespErrMsgFmt)
	}
	if err := store.Register(b.User, b.Pass); err != nil {
		return mapStorageErr(err)
	}
	return []byte(RespOK)
}

func dispatchBye(store *storage.Storage, body []byte) ([]byte, bool) {
	b, err := ParseBareAuthBody(body)
	if err != nil {
		return []byte(RespErrMsgFmt), false
	}
	if len(b.User) > MaxUsernameLen || len(b.Pass) > MaxPasswordLen {
		return []byte(RespErrMsgFmt), false
	}
	if err := store.Authenticate(b.User, b.Pass); err != nil {
		return mapStorageErr(err), false
	}
	return []byte(RespOK), true
}

func dispatchSave(store *storage.Storage, body []byte) []byte {
	b, err := ParseBareAuthBody(body)
	if err != nil {
		return []byte(RespErrMsgFmt)
	}
	if len(b.User) > MaxUsernameLen || len(b.Pass) > MaxPasswordLen {
		return []byte(RespErrMsgFmt)
	}
	if err := store.Save(b.User, b.Pass); err != nil {
		return mapStorageErr(err)
	}
	return []byte(RespOK)
}

func dispatchSetContent(store *storage.Storage, body []byte) []byte {
	b, err := ParseSetContentBody(body)
	if err != nil {
		return []byte(RespErrMsgFmt)
	}
	if len(b.User) > MaxUsernameLen || len(b.Pass) > MaxPasswordLen || len(b.Content) > MaxContentLen {
		return []byte(RespErrMsgFmt)
	}
	if err := store.SetContent(b.User, b.Pass, b.Content); err != nil {
		return mapStorageErr(err)
	}
	return []byte(RespOK)
}

func dispatchGetContent(store *storage.Storage, body []byte) []byte {
	b, err := ParseGetContentBody(body)
	if err != nil {
		return []byte(RespErrMsgFmt)
	}
	if len(b.User) > MaxUsernameLen || len(b.Pass) > MaxPasswordLen || len(b.Who) > MaxUsernameLen {
		return []byte(RespErrMsgFmt)
	}
	content, err := store.GetContent(b.User, b.Pass, b.Who)
	if err != nil {
		return mapStorageErr(err)
	}
	return EncodeDataReply(content)
}

func dispatchAllUsers(store *storage.Storage, body []byte) []byte {
	b, err := ParseBareAuthBody(body)
	if err != nil {
		return []byte(RespErrMsgFmt)
	}
	if len(b.User) > MaxUsernameLen || len(b.Pass) > MaxPasswordLen {
		return []byte(RespErrMsgFmt)
	}
	users, err := store.AllUsers(b.User, b.Pass)
	if err != nil {
		return mapStorageErr(err)
	}
	return EncodeDataReply([]byte(strings.Join(users, "\n")))
}

func dispatchKVInsert(store *storage.Storage, body []byte) []byte {
	b, err := ParseKVPutBody(body)
	if err != nil {
		return []byte(RespErrMsgFmt)
	}
	if len(b.User) > MaxUsernameLen || len(b.Pass) > MaxPasswordLen || len(b.Key) > MaxKeyLen || len(b.Value) > MaxValueLen {
		return []byte(RespErrMsgFmt)
	}
	if err := store.KVInsert(b.User, b.Pass, string(b.Key), b.Value); err != nil {
		return mapStorageErr(err)
	}
	return []byte(RespOK)
}

func dispatchKVUpsert(store *storage.Storage, body []byte) []byte {
	b, err := ParseKVPutBody(body)
	if err != nil {
		return []byte(RespErrMsgFmt)
	}
	if len(b.User) > MaxUsernameLen || len(b.Pass) > MaxPasswordLen || len(b.Key) > MaxKeyLen || len(b.Value) > MaxValueLen {
		return []byte(RespErrMsgFmt)
	}
	outcome, err := store.KVUpsert(b.User, b.Pass, string(b.Key), b.Value)
	if err != nil {
		return mapStorageErr(err)
	}
	if outcome == storage.UpsertInserted {
		return []byte(RespOKInsert)
	}
	return []byte(RespOKUpdate)
}

func dispatchKVGet(store *storage.Storage, body []byte) []byte {
	b, err := ParseKVKeyBody(body)
	if err != nil {
		return []byte(RespErrMsgFmt)
	}
	if len(b.User) > MaxUsernameLen || len(b.Pass) > MaxPasswordLen || len(b.Key) > MaxKeyLen {
		return []byte(RespErrMsgFmt)
	}
	value, err := store.KVGet(b.User, b.Pass, b.Key)
	if err != nil {
		return mapStorageErr(err)
	}
	return EncodeDataReply(value)
}

func dispatchKVDelete(store *storage.Storage, body []byte) []byte {
	b, err := ParseKVKeyBody(body)
	if err != nil {
		return []byte(RespErrMsgFmt)
	}
	if len(b.User) > MaxUsernameLen || len(b.Pass) > MaxPasswordLen || len(b.Key) > MaxKeyLen {
		return []byte(RespErrMsgFmt)
	}
	if err := store.KVDelete(b.User, b.Pass, b.Key); err != nil {
		return mapStorageErr(err)
	}
	return []byte(RespOK)
}

func dispatchKVKeys(store *storage.Storage, body []byte) []byte {
	b, err := ParseBareAuthBody(body)
	if err != nil {
		return []byte(RespErrMsgFmt)
	}
	if len(b.User) > MaxUsernameLen || len(b.Pass) > MaxPasswordLen {
		return []byte(RespErrMsgFmt)
	}
	keys, err := store.KVKeys(b.User, b.Pass)
	if err != nil {
		return mapStorageErr(err)
	}
	return EncodeDataReply([]byte(strings.Join(keys, "\n")))
}

func dispatchKVTop(store *storage.Storage, body []byte) []byte {
	b, err := ParseBareAuthBody(body)
	if err != nil {
		return []byte(RespErrMsgFmt)
	}
	if len(b.User) > MaxUsernameLen || len(b.Pass) > MaxPasswordLen {
		return []byte(RespErrMsgFmt)
	}
	top, err := store.KVTop(b.User, b.Pass)
	if err != nil {
		return mapStorageErr(err)
	}
	return EncodeDataReply([]byte(top))
}

func dispatchRegisterPlugin(store *storage.Storage, body []byte) []byte {
	b, err := ParseRegisterPluginBody(body)
	if err != nil {
		return []byte(RespErrMsgFmt)
	}
	if len(b.User) > MaxUsernameLen || len(b.Pass) > MaxPasswordLen ||
		len(b.Name) > MaxPluginNameLen || len(b.Blob) > MaxPluginBlobLen {
		return []byte(RespErrMsgFmt)
	}
	if err := store.RegisterPlugin(b.User, b.Pass, b.Name, b.Blob); err != nil {
		return mapStorageErr(err)
	}
	return []byte(RespOK)
}

func dispatchInvokePlugin(ctx context.Context, store *storage.Storage, body []byte) []byte {
	b, err := ParseInvokePluginBody(body)
	if err != nil {
		return []byte(RespErrMsgFmt)
	}
	if len(b.User) > MaxUsernameLen || len(b.Pass) > MaxPasswordLen || len(b.Name) > MaxPluginNameLen {
		return []byte(RespErrMsgFmt)
	}
	output, err := store.InvokePlugin(ctx, b.User, b.Pass, b.Name)
	if err != nil {
		return mapStorageErr(err)
	}
	return EncodeDataReply(output)
}

// mapStorageErr maps a storage-facade sentinel error to its wire response
// constant (spec.md §4.4's response catalog).
func mapStorageErr(err error) []byte {
	switch {
	case errors.Is(err, common.ErrUserExists):
		return []byte(RespErrUserExists)
	case errors.Is(err, common.ErrNoSuchUser):
		return []byte(RespErrNoUser)
	case errors.Is(err, common.ErrBadCredentials):
		return []byte(RespErrLogin)
	case errors.Is(err, common.ErrNoData):
		return []byte(RespErrNoData)
	case errors.Is(err, common.ErrKeyAbsent), errors.Is(err, common.ErrKeyExists):
		return []byte(RespErrKey)
	case errors.Is(err, common.ErrInvalidCmd):
		return []byte(RespErrInvCmd)
	case errors.Is(err, common.ErrQuota):
		return []byte(RespErrQuota)
	case errors.Is(err, common.ErrMsgFormat):
		return []byte(RespErrMsgFmt)
	case errors.Is(err, common.ErrCrypto):
		return []byte(RespErrCrypto)
	case errors.Is(err, common.ErrTransmit):
		return []byte(RespErrXmit)
	case errors.Is(err, common.ErrPlugin):
		return []byte(RespErrSO)
	default:
		return []byte(RespErrSO)
	}
}
