package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophkeeper/internal/common"
)

// TestKVInsert_DuplicateKeyDoesNotConsumeQuota verifies the charge-on-success
// ordering of §7: KVInsert checks quota before attempting the insert, but
// only calls Add from shardmap's onSuccess callback, so a rejected
// duplicate-key insert leaves the request quota untouched.
func TestKVInsert_DuplicateKeyDoesNotConsumeQuota(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	cfg := testConfig(t, clock)
	cfg.Quota.RequestAmount = 2
	path := filepath.Join(t.TempDir(), "kv.dat")
	s, err := Open(path, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Shutdown() })

	require.NoError(t, s.Register("alice", "hunter2"))
	require.NoError(t, s.KVInsert("alice", "hunter2", "a", []byte("1"))) // request 1/2

	for i := 0; i < 5; i++ {
		err = s.KVInsert("alice", "hunter2", "a", []byte("2"))
		assert.ErrorIs(t, err, common.ErrKeyExists)
	}

	// The 5 rejected duplicate inserts above must not have consumed quota:
	// one request slot is still free.
	_, err = s.KVKeys("alice", "hunter2") // request 2/2
	require.NoError(t, err)

	_, err = s.KVKeys("alice", "hunter2") // request 3/2: over quota
	assert.ErrorIs(t, err, common.ErrQuota)
}

// TestKVDelete_AbsentKeyDoesNotConsumeQuota mirrors the insert case for
// KVDelete: deleting a key that was never inserted (or already removed)
// must not charge the request quota.
func TestKVDelete_AbsentKeyDoesNotConsumeQuota(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	cfg := testConfig(t, clock)
	cfg.Quota.RequestAmount = 1
	path := filepath.Join(t.TempDir(), "kv.dat")
	s, err := Open(path, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Shutdown() })

	require.NoError(t, s.Register("alice", "hunter2"))

	for i := 0; i < 5; i++ {
		err = s.KVDelete("alice", "hunter2", "missing")
		assert.ErrorIs(t, err, common.ErrKeyAbsent)
	}

	// None of the 5 failed deletes above should have consumed the single
	// request slot.
	require.NoError(t, s.KVInsert("alice", "hunter2", "a", []byte("1")))
}

// TestKVInsert_UploadQuotaChargedOnlyOnce verifies KVInsert's upload charge
// is tied to the same success callback: a duplicate-key insert of a large
// value must not charge upload quota a second time.
func TestKVInsert_UploadQuotaChargedOnlyOnce(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	cfg := testConfig(t, clock)
	cfg.Quota.UploadAmount = 10
	cfg.Quota.RequestAmount = 100
	path := filepath.Join(t.TempDir(), "kv.dat")
	s, err := Open(path, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Shutdown() })

	require.NoError(t, s.Register("alice", "hunter2"))
	require.NoError(t, s.KVInsert("alice", "hunter2", "a", []byte("12345"))) // upload 5/10

	err = s.KVInsert("alice", "hunter2", "a", []byte("67890")) // rejected duplicate, 5 more bytes
	assert.ErrorIs(t, err, common.ErrKeyExists)

	// If the rejected duplicate had still charged upload quota, this insert
	// of 5 more bytes (bringing the total to 15) would now fail.
	require.NoError(t, s.KVInsert("alice", "hunter2", "b", []byte("67890")))
}
