// Package protocol implements the wire envelope, body codecs, and the
// fixed command/response constant tables used by the KV server.
package protocol

// Command mnemonics: fixed three-character strings, the first field of
// every decrypted envelope.
const (
	CmdKeyFetch  = "KEY" // not really a command: the bootstrap shortcut
	CmdRegister  = "REG"
	CmdBye       = "BYE"
	CmdSave      = "SAV"
	CmdSetContent = "SET"
	CmdGetContent = "GET"
	CmdAllUsers  = "ALL"
	CmdKVInsert  = "KVI"
	CmdKVUpsert  = "KVU"
	CmdKVGet     = "KVG"
	CmdKVDelete  = "KVD"
	CmdKVKeys    = "KVA"
	CmdKVTop     = "KVT"
	CmdRegisterMR = "REGMR"
	CmdInvokeMR   = "INVMR"
)

// Response constants: literal strings sent back to the client, forming the
// entire error/success vocabulary of the protocol.
const (
	RespOK         = "OK"
	RespOKInsert   = "OKINS"
	RespOKUpdate   = "OKUPD"
	RespErrUserExists = "ERR_USER_EXISTS"
	RespErrNoUser  = "ERR_NO_USER"
	RespErrLogin   = "ERR_LOGIN"
	RespErrNoData  = "ERR_NO_DATA"
	RespErrKey     = "ERR_KEY"
	RespErrMsgFmt  = "ERR_MSG_FMT"
	RespErrCrypto  = "ERR_CRYPTO"
	RespErrXmit    = "ERR_XMIT"
	RespErrInvCmd  = "ERR_INV_CMD"
	RespErrQuota   = "ERR_QUOTA"
	RespErrSO      = "ERR_SO"
)

// Field bounds, enforced before any lock is taken (spec.md §4.4). Values
// chosen to match the reference implementation's defaults; they are not
// configurable per-request.
const (
	MaxUsernameLen = 64
	MaxPasswordLen = 256
	MaxKeyLen      = 256
	MaxValueLen    = 1 << 20 // 1 MiB
	MaxContentLen  = 1 << 20
	MaxPluginNameLen = 64
	MaxPluginBlobLen = 8 << 20 // 8 MiB
)
