// Package storage composes the sharded maps, quota trackers, MRU index,
// and persistence log into the authenticated key-value operation set: the
// component spec.md calls the storage facade.
package storage

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophkeeper/internal/common"
	"github.com/dmitrijs2005/gophkeeper/internal/cryptox"
	"github.com/dmitrijs2005/gophkeeper/internal/logging"
	"github.com/dmitrijs2005/gophkeeper/internal/server/mapreduce"
	"github.com/dmitrijs2005/gophkeeper/internal/server/storage/mru"
	"github.com/dmitrijs2005/gophkeeper/internal/server/storage/persist"
	"github.com/dmitrijs2005/gophkeeper/internal/server/storage/quota"
	"github.com/dmitrijs2005/gophkeeper/internal/server/storage/shardmap"
)

// AuthEntry is one user's durable identity plus its three independent
// sliding-window quota trackers (spec.md §3). Username is immutable once
// created; PassSalt/PassDigest are never exposed outside this package.
type AuthEntry struct {
	Username   string
	PassSalt   []byte
	PassDigest []byte
	Content    []byte

	Uploads   *quota.Tracker
	Downloads *quota.Tracker
	Requests  *quota.Tracker
}

// UpsertOutcome distinguishes the insert and update branches of KVUpsert,
// matching the protocol's OKINS/OKUPD distinction.
type UpsertOutcome int

const (
	UpsertInserted UpsertOutcome = iota
	UpsertUpdated
)

// QuotaSpec configures the three per-user trackers created alongside every
// new AuthEntry.
type QuotaSpec struct {
	UploadAmount   int64
	DownloadAmount int64
	RequestAmount  int64
	Duration       time.Duration
	Clock          quota.Clock // nil uses quota.RealClock
}

// Storage is the quota-aware, authenticated facade over the auth table,
// the KV store, the MRU index, and the persistence log.
type Storage struct {
	auths  *shardmap.Map[string, *AuthEntry]
	kv     *shardmap.Map[string, []byte]
	mruIdx *mru.Index
	log    *persist.Log

	plugins *mapreduce.Registry

	quotaSpec QuotaSpec
	admin     string
	logger    logging.Logger
}

// Config bundles the construction-time parameters of a Storage instance.
type Config struct {
	Buckets       int
	TopSize       int
	AdminUsername string
	PluginDir     string
	Quota         QuotaSpec
	Logger        logging.Logger
}

// Open loads path (if it exists) and returns a ready-to-use Storage. If
// path does not exist, it is created empty and an empty Storage is
// returned.
func Open(path string, cfg Config) (*Storage, error) {
	pluginDir := cfg.PluginDir
	if pluginDir == "" {
		pluginDir = path + ".plugins"
	}
	plugins, err := mapreduce.NewRegistry(pluginDir, cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	s := &Storage{
		auths:     shardmap.NewStringKeyed[*AuthEntry](cfg.Buckets),
		kv:        shardmap.NewStringKeyed[[]byte](cfg.Buckets),
		mruIdx:    mru.New(cfg.TopSize),
		plugins:   plugins,
		quotaSpec: cfg.Quota,
		admin:     cfg.AdminUsername,
		logger:    cfg.Logger,
	}

	clock := cfg.Quota.Clock
	if clock == nil {
		clock = quota.RealClock
	}

	log, err := persist.Load(path, persist.Visitor{
		OnAuthFull: func(r persist.AuthRecord) {
			salt, digest, _ := cryptox.SplitPassHash(r.PassHash)
			s.auths.Insert(r.Username, &AuthEntry{
				Username:   r.Username,
				PassSalt:   salt,
				PassDigest: digest,
				Content:    r.Content,
				Uploads:    quota.NewWithClock(cfg.Quota.UploadAmount, cfg.Quota.Duration, clock),
				Downloads:  quota.NewWithClock(cfg.Quota.DownloadAmount, cfg.Quota.Duration, clock),
				Requests:   quota.NewWithClock(cfg.Quota.RequestAmount, cfg.Quota.Duration, clock),
			}, nil)
		},
		OnAuthDiff: func(username string, content []byte) {
			s.auths.With(username, func(e **AuthEntry) {
				(*e).Content = content
			})
		},
		OnKVFull: func(r persist.KVRecord) {
			s.kv.Insert(r.Key, r.Value, nil)
		},
		OnKVUpdate: func(r persist.KVRecord) {
			s.kv.Upsert(r.Key, r.Value, nil, nil)
		},
		OnKVDelete: func(key string) {
			s.kv.Remove(key, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("storage: load: %w", err)
	}
	s.log = log
	return s, nil
}

// authenticate looks up user, recomputes the password digest, and
// compares it to the stored digest in constant time. Returns the matched
// entry and common.ErrBadCredentials on any mismatch (unknown user and
// wrong password are deliberately indistinguishable to the caller).
func (s *Storage) authenticate(user, pass string) (*AuthEntry, error) {
	var entry *AuthEntry
	s.auths.WithReadonly(user, func(e *AuthEntry) { entry = e })
	if entry == nil {
		return nil, common.ErrBadCredentials
	}
	if !cryptox.VerifyPasswordDigest([]byte(pass), entry.PassSalt, entry.PassDigest) {
		return nil, common.ErrBadCredentials
	}
	return entry, nil
}

// Register creates a new user with empty content and fresh quota
// trackers. Returns common.ErrUserExists if the username is taken.
func (s *Storage) Register(user, pass string) error {
	salt, digest := cryptox.NewPasswordDigest([]byte(pass), func(n int) []byte {
		return common.GenerateRandByteArray(n)
	})

	clock := s.quotaSpec.Clock
	if clock == nil {
		clock = quota.RealClock
	}

	entry := &AuthEntry{
		Username:   user,
		PassSalt:   salt,
		PassDigest: digest,
		Uploads:    quota.NewWithClock(s.quotaSpec.UploadAmount, s.quotaSpec.Duration, clock),
		Downloads:  quota.NewWithClock(s.quotaSpec.DownloadAmount, s.quotaSpec.Duration, clock),
		Requests:   quota.NewWithClock(s.quotaSpec.RequestAmount, s.quotaSpec.Duration, clock),
	}

	var appendErr error
	inserted := s.auths.Insert(user, entry, func() {
		appendErr = s.log.AppendAuthFull(persist.AuthRecord{
			Username: user, PassHash: cryptox.CombinePassHash(salt, digest), Content: nil,
		})
	})
	if !inserted {
		return common.ErrUserExists
	}
	if appendErr != nil {
		return fmt.Errorf("%w: %v", common.ErrInternal, appendErr)
	}
	return nil
}

// Authenticate verifies user's credentials without performing any other
// operation, for commands (BYE) whose entire effect is the auth check
// itself.
func (s *Storage) Authenticate(user, pass string) error {
	_, err := s.authenticate(user, pass)
	return err
}

// IsAdmin reports whether user is the configured admin username.
func (s *Storage) IsAdmin(user string) bool {
	return subtle.ConstantTimeCompare([]byte(user), []byte(s.admin)) == 1
}

// SetContent replaces the authenticated user's own content.
func (s *Storage) SetContent(user, pass string, content []byte) error {
	if _, err := s.authenticate(user, pass); err != nil {
		return err
	}

	var appendErr error
	s.auths.With(user, func(e **AuthEntry) {
		(*e).Content = content
		appendErr = s.log.AppendAuthDiff(user, content)
	})
	if appendErr != nil {
		return fmt.Errorf("%w: %v", common.ErrInternal, appendErr)
	}
	return nil
}

// GetContent returns who's content, provided user authenticates.
func (s *Storage) GetContent(user, pass, who string) ([]byte, error) {
	if _, err := s.authenticate(user, pass); err != nil {
		return nil, err
	}

	var content []byte
	var found bool
	found = s.auths.WithReadonly(who, func(e *AuthEntry) { content = e.Content })
	if !found {
		return nil, common.ErrNoSuchUser
	}
	if len(content) == 0 {
		return nil, common.ErrNoData
	}
	return content, nil
}

// AllUsers returns every username, sorted in ascending order.
func (s *Storage) AllUsers(user, pass string) ([]string, error) {
	if _, err := s.authenticate(user, pass); err != nil {
		return nil, err
	}
	return s.auths.Keys(func(a, b string) bool { return a < b }), nil
}

// Save authenticates user as the admin and triggers a snapshot-and-compact
// of the persistence log. The scan over both tables is the serialization
// point: no concurrent KV or auth mutation can be observed half-written.
func (s *Storage) Save(user, pass string) error {
	entry, err := s.authenticate(user, pass)
	if err != nil {
		return err
	}
	if !s.IsAdmin(entry.Username) {
		return common.ErrInvalidCmd
	}

	var auths []persist.AuthRecord
	var kvs []persist.KVRecord
	var snapshotErr error

	s.auths.ForEachReadonly(func(username string, e *AuthEntry) {
		auths = append(auths, persist.AuthRecord{
			Username: username,
			PassHash: cryptox.CombinePassHash(e.PassSalt, e.PassDigest),
			Content:  e.Content,
		})
	}, func() {
		s.kv.ForEachReadonly(func(key string, value []byte) {
			kvs = append(kvs, persist.KVRecord{Key: key, Value: value})
		}, func() {
			snapshotErr = s.log.Snapshot(auths, kvs)
		})
	})

	if snapshotErr != nil {
		return fmt.Errorf("%w: %v", common.ErrInternal, snapshotErr)
	}
	return nil
}

// Shutdown flushes and closes the persistence log. Called once, after the
// worker pool has fully drained (spec.md §5).
func (s *Storage) Shutdown() error {
	return s.log.Close()
}

// checkQuotas reports common.ErrQuota, without mutating anything, if any of
// the given amounts would exceed its tracker, rejecting on the first
// tripped tracker per spec.md §9's resolution of that open question.
// Checking before taking the KV bucket lock (spec.md §5's documented
// alternative to acquiring the auth bucket lock first) avoids a lock-order
// inversion with AllUsers/Save's whole-table scans, at the cost of a narrow
// window in which a concurrent request against the same user could be
// checked out of order with this one.
func (s *Storage) checkQuotas(entry *AuthEntry, uploadAmt, downloadAmt, requestAmt int64) error {
	if uploadAmt > 0 && !entry.Uploads.Check(uploadAmt) {
		return common.ErrQuota
	}
	if downloadAmt > 0 && !entry.Downloads.Check(downloadAmt) {
		return common.ErrQuota
	}
	if requestAmt > 0 && !entry.Requests.Check(requestAmt) {
		return common.ErrQuota
	}
	return nil
}

// addQuotas adds to each tracker unconditionally. Callers that gate a table
// mutation (KVInsert, KVDelete) must only call this from the mutation's
// onSuccess callback, so a failed insert/delete (duplicate or absent key)
// never consumes quota (spec.md §4.4: "add" runs only on success).
func (s *Storage) addQuotas(entry *AuthEntry, uploadAmt, downloadAmt, requestAmt int64) {
	if uploadAmt > 0 {
		entry.Uploads.Add(uploadAmt)
	}
	if downloadAmt > 0 {
		entry.Downloads.Add(downloadAmt)
	}
	if requestAmt > 0 {
		entry.Requests.Add(requestAmt)
	}
}

// chargeQuotas checks then unconditionally adds, for callers (KVUpsert,
// KVGet, KVKeys, KVTop, InvokePlugin) that charge without gating a table
// mutation that can be rejected. KVGet charges only after finding the key;
// InvokePlugin charges before the plug-in runs, so a failed invocation
// still consumes its request.
func (s *Storage) chargeQuotas(entry *AuthEntry, uploadAmt, downloadAmt, requestAmt int64) error {
	if err := s.checkQuotas(entry, uploadAmt, downloadAmt, requestAmt); err != nil {
		return err
	}
	s.addQuotas(entry, uploadAmt, downloadAmt, requestAmt)
	return nil
}

// KVInsert inserts key/value into the shared store, provided user
// authenticates and none of its upload/request quotas are exceeded. MRU is
// touched on success, per spec.md §4.4.
func (s *Storage) KVInsert(user, pass, key string, value []byte) error {
	entry, err := s.authenticate(user, pass)
	if err != nil {
		return err
	}
	uploadAmt, requestAmt := int64(len(value)), int64(1)
	if err := s.checkQuotas(entry, uploadAmt, 0, requestAmt); err != nil {
		return err
	}

	var appendErr error
	inserted := s.kv.Insert(key, value, func() {
		appendErr = s.log.AppendKVFull(persist.KVRecord{Key: key, Value: value})
		s.addQuotas(entry, uploadAmt, 0, requestAmt)
	})
	if !inserted {
		return common.ErrKeyExists
	}
	if appendErr != nil {
		return fmt.Errorf("%w: %v", common.ErrInternal, appendErr)
	}
	s.mruIdx.Insert(key)
	return nil
}

// KVUpsert inserts or overwrites key/value, reporting which branch ran.
func (s *Storage) KVUpsert(user, pass, key string, value []byte) (UpsertOutcome, error) {
	entry, err := s.authenticate(user, pass)
	if err != nil {
		return 0, err
	}
	if err := s.chargeQuotas(entry, int64(len(value)), 0, 1); err != nil {
		return 0, err
	}

	var appendErr error
	inserted := s.kv.Upsert(key, value, func() {
		appendErr = s.log.AppendKVFull(persist.KVRecord{Key: key, Value: value})
	}, func() {
		appendErr = s.log.AppendKVUpdate(persist.KVRecord{Key: key, Value: value})
	})
	if appendErr != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrInternal, appendErr)
	}
	s.mruIdx.Insert(key)
	if inserted {
		return UpsertInserted, nil
	}
	return UpsertUpdated, nil
}

// KVGet returns key's value, provided user authenticates and its download
// quota is not exceeded.
func (s *Storage) KVGet(user, pass, key string) ([]byte, error) {
	entry, err := s.authenticate(user, pass)
	if err != nil {
		return nil, err
	}

	var value []byte
	found := s.kv.WithReadonly(key, func(v []byte) { value = v })
	if !found {
		return nil, common.ErrKeyAbsent
	}

	if err := s.chargeQuotas(entry, 0, int64(len(value)), 1); err != nil {
		return nil, err
	}
	s.mruIdx.Insert(key)
	return value, nil
}

// KVDelete removes key from the shared store.
func (s *Storage) KVDelete(user, pass, key string) error {
	entry, err := s.authenticate(user, pass)
	if err != nil {
		return err
	}
	if err := s.checkQuotas(entry, 0, 0, 1); err != nil {
		return err
	}

	var appendErr error
	removed := s.kv.Remove(key, func() {
		appendErr = s.log.AppendKVDelete(key)
		s.addQuotas(entry, 0, 0, 1)
	})
	if !removed {
		return common.ErrKeyAbsent
	}
	if appendErr != nil {
		return fmt.Errorf("%w: %v", common.ErrInternal, appendErr)
	}
	s.mruIdx.Remove(key)
	return nil
}

// KVKeys returns every key in the shared store, sorted in ascending order.
func (s *Storage) KVKeys(user, pass string) ([]string, error) {
	entry, err := s.authenticate(user, pass)
	if err != nil {
		return nil, err
	}
	if err := s.chargeQuotas(entry, 0, 0, 1); err != nil {
		return nil, err
	}
	return s.kv.Keys(func(a, b string) bool { return a < b }), nil
}

// KVTop returns the MRU index's keys, most-recent first.
func (s *Storage) KVTop(user, pass string) (string, error) {
	entry, err := s.authenticate(user, pass)
	if err != nil {
		return "", err
	}
	if err := s.chargeQuotas(entry, 0, 0, 1); err != nil {
		return "", err
	}
	return s.mruIdx.Get(), nil
}

// RegisterPlugin stores blob as the named map/reduce plug-in, provided user
// authenticates as the configured admin (spec.md §9). Existing
// registrations under the same name are replaced.
func (s *Storage) RegisterPlugin(user, pass, name string, blob []byte) error {
	entry, err := s.authenticate(user, pass)
	if err != nil {
		return err
	}
	if !s.IsAdmin(entry.Username) {
		return common.ErrInvalidCmd
	}
	return s.plugins.Register(name, blob)
}

// InvokePlugin authenticates user, then runs the named plug-in's map phase
// over a snapshot of the entire shared KV store followed by its reduce
// phase, returning the reduce phase's single output. Any registered user
// may invoke a plug-in; only registration is admin-gated.
func (s *Storage) InvokePlugin(ctx context.Context, user, pass, name string) ([]byte, error) {
	entry, err := s.authenticate(user, pass)
	if err != nil {
		return nil, err
	}
	if err := s.chargeQuotas(entry, 0, 0, 1); err != nil {
		return nil, err
	}

	snapshot := make(map[string][]byte)
	s.kv.ForEachReadonly(func(key string, value []byte) {
		snapshot[key] = value
	}, nil)

	return s.plugins.Invoke(ctx, name, snapshot)
}
