package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophkeeper/internal/common"
)

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

func testConfig(t *testing.T, clock *fakeClock) Config {
	t.Helper()
	return Config{
		Buckets:       4,
		TopSize:       3,
		AdminUsername: "admin",
		PluginDir:     filepath.Join(t.TempDir(), "plugins"),
		Quota: QuotaSpec{
			UploadAmount:   1 << 20,
			DownloadAmount: 1 << 20,
			RequestAmount:  1000,
			Duration:       time.Minute,
			Clock:          clock,
		},
	}
}

func openTestStorage(t *testing.T) *Storage {
	t.Helper()
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	path := filepath.Join(t.TempDir(), "kv.dat")
	s, err := Open(path, testConfig(t, clock))
	require.NoError(t, err)
	t.Cleanup(func() { s.Shutdown() })
	return s
}

func TestRegisterAndAuthenticate_RoundTrips(t *testing.T) {
	s := openTestStorage(t)

	require.NoError(t, s.Register("alice", "hunter2"))

	_, err := s.authenticate("alice", "hunter2")
	require.NoError(t, err)

	_, err = s.authenticate("alice", "wrong")
	assert.ErrorIs(t, err, common.ErrBadCredentials)

	_, err = s.authenticate("bob", "whatever")
	assert.ErrorIs(t, err, common.ErrBadCredentials)
}

func TestRegister_DuplicateUsernameFails(t *testing.T) {
	s := openTestStorage(t)
	require.NoError(t, s.Register("alice", "hunter2"))
	err := s.Register("alice", "other")
	assert.ErrorIs(t, err, common.ErrUserExists)
}

func TestSetAndGetContent_RequiresAuthentication(t *testing.T) {
	s := openTestStorage(t)
	require.NoError(t, s.Register("alice", "hunter2"))
	require.NoError(t, s.Register("bob", "swordfish"))

	require.NoError(t, s.SetContent("alice", "hunter2", []byte("alice's secrets")))

	got, err := s.GetContent("bob", "swordfish", "alice")
	require.NoError(t, err)
	assert.Equal(t, []byte("alice's secrets"), got)

	_, err = s.GetContent("alice", "wrong", "alice")
	assert.ErrorIs(t, err, common.ErrBadCredentials)

	_, err = s.GetContent("bob", "swordfish", "nobody")
	assert.ErrorIs(t, err, common.ErrNoSuchUser)
}

func TestGetContent_EmptyContentIsNoData(t *testing.T) {
	s := openTestStorage(t)
	require.NoError(t, s.Register("alice", "hunter2"))

	_, err := s.GetContent("alice", "hunter2", "alice")
	assert.ErrorIs(t, err, common.ErrNoData)
}

func TestAllUsers_ListsEveryRegisteredUser(t *testing.T) {
	s := openTestStorage(t)
	require.NoError(t, s.Register("alice", "hunter2"))
	require.NoError(t, s.Register("bob", "swordfish"))

	users, err := s.AllUsers("alice", "hunter2")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, users)
}

func TestKVInsert_DuplicateKeyFails(t *testing.T) {
	s := openTestStorage(t)
	require.NoError(t, s.Register("alice", "hunter2"))

	require.NoError(t, s.KVInsert("alice", "hunter2", "k1", []byte("v1")))
	err := s.KVInsert("alice", "hunter2", "k1", []byte("v2"))
	assert.ErrorIs(t, err, common.ErrKeyExists)
}

func TestKVGet_AbsentKeyFails(t *testing.T) {
	s := openTestStorage(t)
	require.NoError(t, s.Register("alice", "hunter2"))

	_, err := s.KVGet("alice", "hunter2", "missing")
	assert.ErrorIs(t, err, common.ErrKeyAbsent)
}

func TestKVUpsert_DistinguishesInsertFromUpdate(t *testing.T) {
	s := openTestStorage(t)
	require.NoError(t, s.Register("alice", "hunter2"))

	outcome, err := s.KVUpsert("alice", "hunter2", "k1", []byte("v1"))
	require.NoError(t, err)
	assert.Equal(t, UpsertInserted, outcome)

	outcome, err = s.KVUpsert("alice", "hunter2", "k1", []byte("v2"))
	require.NoError(t, err)
	assert.Equal(t, UpsertUpdated, outcome)

	got, err := s.KVGet("alice", "hunter2", "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)
}

func TestKVDelete_RemovesKeyAndIsIdempotentFailure(t *testing.T) {
	s := openTestStorage(t)
	require.NoError(t, s.Register("alice", "hunter2"))
	require.NoError(t, s.KVInsert("alice", "hunter2", "k1", []byte("v1")))

	require.NoError(t, s.KVDelete("alice", "hunter2", "k1"))

	_, err := s.KVGet("alice", "hunter2", "k1")
	assert.ErrorIs(t, err, common.ErrKeyAbsent)

	err = s.KVDelete("alice", "hunter2", "k1")
	assert.ErrorIs(t, err, common.ErrKeyAbsent)
}

func TestKVKeys_ReturnsSortedUnderlyingOrderIndependentSet(t *testing.T) {
	s := openTestStorage(t)
	require.NoError(t, s.Register("alice", "hunter2"))
	require.NoError(t, s.KVInsert("alice", "hunter2", "b", []byte("2")))
	require.NoError(t, s.KVInsert("alice", "hunter2", "a", []byte("1")))

	keys, err := s.KVKeys("alice", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)
}

func TestKVTop_TracksMostRecentlyUsedFirst(t *testing.T) {
	s := openTestStorage(t)
	require.NoError(t, s.Register("alice", "hunter2"))
	require.NoError(t, s.KVInsert("alice", "hunter2", "a", []byte("1")))
	require.NoError(t, s.KVInsert("alice", "hunter2", "b", []byte("2")))
	_, err := s.KVGet("alice", "hunter2", "a")
	require.NoError(t, err)

	top, err := s.KVTop("alice", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "a\nb", top)
}

func TestKVTop_EvictsLeastRecentBeyondCapacity(t *testing.T) {
	s := openTestStorage(t)
	require.NoError(t, s.Register("alice", "hunter2"))
	// TopSize is 3 in testConfig.
	for _, k := range []string{"a", "b", "c", "d"} {
		require.NoError(t, s.KVInsert("alice", "hunter2", k, []byte(k)))
	}

	top, err := s.KVTop("alice", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "d\nc\nb", top)
}

func TestChargeQuotas_RejectsOverRequestQuotaWithoutMutating(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	cfg := testConfig(t, clock)
	cfg.Quota.RequestAmount = 2
	path := filepath.Join(t.TempDir(), "kv.dat")
	s, err := Open(path, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Shutdown() })

	require.NoError(t, s.Register("alice", "hunter2"))
	require.NoError(t, s.KVInsert("alice", "hunter2", "a", []byte("1"))) // request 1/2
	_, err = s.KVKeys("alice", "hunter2")                                // request 2/2
	require.NoError(t, err)

	_, err = s.KVKeys("alice", "hunter2") // request 3/2: over quota
	assert.ErrorIs(t, err, common.ErrQuota)

	clock.now = clock.now.Add(2 * time.Minute)
	_, err = s.KVKeys("alice", "hunter2")
	assert.NoError(t, err)
}

func TestSave_RequiresAdminAndReloadsSurviving(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	cfg := testConfig(t, clock)
	path := filepath.Join(t.TempDir(), "kv.dat")
	s, err := Open(path, cfg)
	require.NoError(t, err)

	require.NoError(t, s.Register("admin", "adminpass"))
	require.NoError(t, s.Register("alice", "hunter2"))
	require.NoError(t, s.KVInsert("alice", "hunter2", "k1", []byte("v1")))

	err = s.Save("alice", "hunter2")
	assert.ErrorIs(t, err, common.ErrInvalidCmd)

	require.NoError(t, s.Save("admin", "adminpass"))
	require.NoError(t, s.Shutdown())

	reopened, err := Open(path, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Shutdown() })

	got, err := reopened.KVGet("alice", "hunter2", "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)
}

func TestRegisterPlugin_RequiresAdmin(t *testing.T) {
	s := openTestStorage(t)
	require.NoError(t, s.Register("admin", "adminpass"))
	require.NoError(t, s.Register("alice", "hunter2"))

	err := s.RegisterPlugin("alice", "hunter2", "count", []byte("#!/bin/sh\n"))
	assert.ErrorIs(t, err, common.ErrInvalidCmd)

	err = s.RegisterPlugin("admin", "adminpass", "count", []byte("#!/bin/sh\n"))
	assert.NoError(t, err)
}

func TestInvokePlugin_UnregisteredNameFails(t *testing.T) {
	s := openTestStorage(t)
	require.NoError(t, s.Register("alice", "hunter2"))

	_, err := s.InvokePlugin(context.Background(), "alice", "hunter2", "nonexistent")
	assert.ErrorIs(t, err, common.ErrPlugin)
}
