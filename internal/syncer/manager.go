package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jinxingedu/kindersync/internal/common"
	"github.com/jinxingedu/kindersync/internal/config"
	"github.com/jinxingedu/kindersync/internal/logging"
	"github.com/jinxingedu/kindersync/internal/models"
	"github.com/jinxingedu/kindersync/internal/notify"
	"github.com/jinxingedu/kindersync/internal/oss"
	"github.com/jinxingedu/kindersync/internal/storage"
)

// Transport is the remote side of the sync manager.
type Transport interface {
	Get(ctx context.Context, resource string) oss.Result
	Put(ctx context.Context, resource string, data []byte) error
}

// Manager reconciles the remote bucket with the local store. It owns the
// session sync state: which collections have completed a remote read (the
// upload guard's precondition), the last sync time, and the bulk-sync
// in-flight flag.
//
// Per-collection operations serialize on a per-key mutex, so two concurrent
// downloads of the same collection cannot interleave their read-merge-write
// cycles. Different collections proceed independently.
type Manager struct {
	cfg       *config.Config
	store     storage.Store
	transport Transport
	log       logging.Logger
	notifier  notify.Notifier

	mu          sync.Mutex
	keyLocks    map[string]*sync.Mutex
	cloudLoaded map[string]bool
	lastSync    time.Time
	syncing     bool
}

func NewManager(ctx context.Context, cfg *config.Config, store storage.Store, transport Transport, log logging.Logger, notifier notify.Notifier) *Manager {
	m := &Manager{
		cfg:         cfg,
		store:       store,
		transport:   transport,
		log:         log,
		notifier:    notifier,
		keyLocks:    make(map[string]*sync.Mutex),
		cloudLoaded: make(map[string]bool),
	}

	var ts string
	if ok, err := storage.GetJSON(ctx, store, KeyLastSync, &ts); err == nil && ok {
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			m.lastSync = parsed
		}
	}
	return m
}

func (m *Manager) keyLock(storageKey string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.keyLocks[storageKey]
	if !ok {
		l = &sync.Mutex{}
		m.keyLocks[storageKey] = l
	}
	return l
}

func (m *Manager) markLoaded(storageKey string) {
	m.mu.Lock()
	m.cloudLoaded[storageKey] = true
	m.mu.Unlock()
}

func (m *Manager) isLoaded(storageKey string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cloudLoaded[storageKey]
}

func (m *Manager) touchLastSync(ctx context.Context) {
	now := time.Now()
	m.mu.Lock()
	m.lastSync = now
	m.mu.Unlock()
	if err := storage.SetJSON(ctx, m.store, KeyLastSync, now.Format(time.RFC3339)); err != nil {
		m.log.Warn(ctx, "failed to persist last sync time", "error", err)
	}
}

// Download fetches one array collection, reconciles it with the local copy
// and persists the winner. The returned slice is always renderable: on any
// remote failure the local copy comes back along with the error.
//
// A non-empty local document is never replaced by an empty remote one. A
// truncated remote object would otherwise propagate into every client's
// cache within one sync cycle.
func (m *Manager) Download(ctx context.Context, key string) ([]models.Record, error) {
	col, err := Lookup(key)
	if err != nil {
		return nil, err
	}
	if col.DateScoped {
		return nil, fmt.Errorf("collection %s requires a date, use DownloadDate", key)
	}
	if !m.cfg.IsConfigured() {
		return nil, common.ErrorNotConfigured
	}

	lock := m.keyLock(col.Key)
	lock.Lock()
	defer lock.Unlock()

	var local []models.Record
	if _, err := storage.GetJSON(ctx, m.store, col.Key, &local); err != nil {
		m.log.Warn(ctx, "local document unreadable, treating as empty", "key", col.Key, "error", err)
		local = nil
	}

	res := m.transport.Get(ctx, col.RemotePath(m.cfg.Prefix, ""))
	if res.Err != nil {
		m.log.Warn(ctx, "download failed, keeping local copy", "key", col.Key, "error", res.Err)
		return local, res.Err
	}
	if res.Data == nil {
		// the object does not exist yet; the remote read still completed
		m.markLoaded(col.Key)
		return local, nil
	}

	var remote []models.Record
	if err := json.Unmarshal(res.Data, &remote); err != nil {
		return local, fmt.Errorf("failed to decode remote %s: %w", col.Key, err)
	}
	remote = models.DedupeByID(models.Normalize(remote))

	if len(remote) == 0 && len(local) > 0 {
		m.log.Warn(ctx, "remote collection is empty, keeping local copy",
			"key", col.Key, "localCount", len(local))
		m.notifier.EnqueueNotice(notify.KindEmptyRemote,
			fmt.Sprintf("remote %s is empty, kept %d local records", col.Key, len(local)))
		m.markLoaded(col.Key)
		return local, nil
	}

	if dups := models.DuplicateNames(remote); len(dups) > 0 {
		m.notifier.EnqueueNotice(notify.KindDuplicateNames,
			fmt.Sprintf("%s has %d duplicated names", col.Key, len(dups)))
	}

	if err := storage.SetJSON(ctx, m.store, col.Key, remote); err != nil {
		return local, err
	}
	m.markLoaded(col.Key)
	m.touchLastSync(ctx)
	m.log.Info(ctx, "collection downloaded", "key", col.Key, "records", len(remote))
	return remote, nil
}

// DownloadDate fetches one day of a date-scoped collection and shallow-merges
// it into the local id-keyed index, remote winning per field. Whole-document
// replacement would discard same-day edits made locally since the last sync.
func (m *Manager) DownloadDate(ctx context.Context, key, date string) (map[string]models.Record, error) {
	col, err := Lookup(key)
	if err != nil {
		return nil, err
	}
	if !col.DateScoped || date == "" {
		return nil, fmt.Errorf("collection %s is not date scoped", key)
	}
	if !m.cfg.IsConfigured() {
		return nil, common.ErrorNotConfigured
	}

	storageKey := col.StorageKey(date)
	lock := m.keyLock(storageKey)
	lock.Lock()
	defer lock.Unlock()

	local := map[string]models.Record{}
	if _, err := storage.GetJSON(ctx, m.store, storageKey, &local); err != nil {
		m.log.Warn(ctx, "local document unreadable, treating as empty", "key", storageKey, "error", err)
		local = map[string]models.Record{}
	}

	res := m.transport.Get(ctx, col.RemotePath(m.cfg.Prefix, date))
	if res.Err != nil {
		return local, res.Err
	}
	if res.Data == nil {
		m.markLoaded(storageKey)
		return local, nil
	}

	var remote map[string]models.Record
	if err := json.Unmarshal(res.Data, &remote); err != nil {
		return local, fmt.Errorf("failed to decode remote %s: %w", storageKey, err)
	}

	for id, rr := range remote {
		if lr, ok := local[id]; ok {
			for field, v := range rr {
				lr[field] = v
			}
		} else {
			local[id] = rr
		}
	}

	if err := storage.SetJSON(ctx, m.store, storageKey, local); err != nil {
		return local, err
	}
	m.markLoaded(storageKey)
	m.touchLastSync(ctx)
	return local, nil
}

// SafeUpload pushes one collection's local document to the bucket, subject to
// the data-loss guards. A refused upload makes no network call and returns a
// sentinel naming the failed precondition.
func (m *Manager) SafeUpload(ctx context.Context, key string) error {
	col, err := Lookup(key)
	if err != nil {
		return err
	}
	if col.DateScoped {
		return fmt.Errorf("collection %s requires a date, use SafeUploadDate", key)
	}
	return m.upload(ctx, col, "")
}

// SafeUploadDate pushes one day of a date-scoped collection.
func (m *Manager) SafeUploadDate(ctx context.Context, key, date string) error {
	col, err := Lookup(key)
	if err != nil {
		return err
	}
	if !col.DateScoped || date == "" {
		return fmt.Errorf("collection %s is not date scoped", key)
	}
	return m.upload(ctx, col, date)
}

func (m *Manager) upload(ctx context.Context, col Collection, date string) error {
	if !m.cfg.IsConfigured() {
		return common.ErrorNotConfigured
	}

	storageKey := col.StorageKey(date)
	lock := m.keyLock(storageKey)
	lock.Lock()
	defer lock.Unlock()

	data, err := m.store.Get(ctx, storageKey)
	if err != nil {
		return err
	}
	if data == nil {
		if col.DateScoped {
			data = []byte("{}")
		} else {
			data = []byte("[]")
		}
	}

	count, err := recordCount(data, col.DateScoped)
	if err != nil {
		return fmt.Errorf("local document %s is corrupt: %w", storageKey, err)
	}

	if !col.Force {
		if !m.isLoaded(storageKey) {
			m.notifier.EnqueueNotice(notify.KindUploadRefused,
				fmt.Sprintf("%s: cloud copy not loaded yet, download first", storageKey))
			return common.ErrorCloudNotLoaded
		}
		if col.MinUpload > 0 && count < col.MinUpload {
			m.notifier.EnqueueNotice(notify.KindUploadRefused,
				fmt.Sprintf("%s: only %d records, floor is %d", storageKey, count, col.MinUpload))
			return common.ErrorBelowFloor
		}
		if col.MaxUpload > 0 && count > col.MaxUpload {
			m.notifier.EnqueueNotice(notify.KindUploadRefused,
				fmt.Sprintf("%s: %d records exceeds ceiling %d", storageKey, count, col.MaxUpload))
			return common.ErrorAboveCeiling
		}
	}

	if err := m.transport.Put(ctx, col.RemotePath(m.cfg.Prefix, date), data); err != nil {
		return err
	}
	m.touchLastSync(ctx)
	m.log.Info(ctx, "collection uploaded", "key", storageKey, "records", count)
	return nil
}

func recordCount(data []byte, dateScoped bool) (int, error) {
	if dateScoped {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(data, &obj); err != nil {
			return 0, err
		}
		return len(obj), nil
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(data, &arr); err != nil {
		return 0, err
	}
	return len(arr), nil
}

func (m *Manager) setSyncing() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.syncing {
		return common.ErrorSyncInFlight
	}
	m.syncing = true
	return nil
}

func (m *Manager) clearSyncing() {
	m.mu.Lock()
	m.syncing = false
	m.mu.Unlock()
}

// DownloadAll refreshes every non-date-scoped collection, pacing requests
// with the configured pause. The progress callback, if non-nil, is invoked
// once per collection. The first error does not stop the sweep; the last one
// is returned.
func (m *Manager) DownloadAll(ctx context.Context, progress func(key string, err error)) error {
	if !m.cfg.IsConfigured() {
		return common.ErrorNotConfigured
	}
	if err := m.setSyncing(); err != nil {
		return err
	}
	defer m.clearSyncing()

	var lastErr error
	for i, col := range Collections() {
		if col.DateScoped {
			continue
		}
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(m.cfg.CollectionPause):
			}
		}
		_, err := m.Download(ctx, col.Key)
		if err != nil {
			lastErr = err
		}
		if progress != nil {
			progress(col.Key, err)
		}
	}
	return lastErr
}

// UploadAll pushes every bulk-sync collection through the guarded upload
// path. Collections flagged out of bulk sync (the staff roster) are skipped:
// they only move on an explicit per-collection command.
func (m *Manager) UploadAll(ctx context.Context, progress func(key string, err error)) error {
	if !m.cfg.IsConfigured() {
		return common.ErrorNotConfigured
	}
	if err := m.setSyncing(); err != nil {
		return err
	}
	defer m.clearSyncing()

	var lastErr error
	first := true
	for _, col := range Collections() {
		if col.DateScoped || !col.BulkSync {
			continue
		}
		if !first {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(m.cfg.CollectionPause):
			}
		}
		first = false
		err := m.upload(ctx, col, "")
		if err != nil {
			lastErr = err
		}
		if progress != nil {
			progress(col.Key, err)
		}
	}
	return lastErr
}

// Initialize seeds missing local documents so the UI always has something to
// render, then refreshes from the remote when configured. A download failure
// is not fatal at startup: the client stays usable on cached data.
func (m *Manager) Initialize(ctx context.Context) error {
	for _, col := range Collections() {
		if col.DateScoped {
			continue
		}
		var local []models.Record
		ok, err := storage.GetJSON(ctx, m.store, col.Key, &local)
		if err != nil {
			return err
		}
		if !ok || len(local) == 0 {
			if err := m.store.Set(ctx, col.Key, []byte("[]")); err != nil {
				return err
			}
			continue
		}
		// existing local data is cleaned in place, never discarded
		cleaned := models.DedupeByID(models.Normalize(local))
		if err := storage.SetJSON(ctx, m.store, col.Key, cleaned); err != nil {
			return err
		}
	}

	if !m.cfg.IsConfigured() {
		m.log.Info(ctx, "cloud sync not configured, running on local data only")
		return nil
	}

	if err := m.DownloadAll(ctx, nil); err != nil && !errors.Is(err, common.ErrorSyncInFlight) {
		m.log.Warn(ctx, "initial sync incomplete, continuing on local data", "error", err)
	}
	return nil
}

// Status is a point-in-time snapshot of the sync state.
type Status struct {
	Configured bool
	Bucket     string
	Syncing    bool
	LastSync   time.Time
	Loaded     []string
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	loaded := make([]string, 0, len(m.cloudLoaded))
	for k, ok := range m.cloudLoaded {
		if ok {
			loaded = append(loaded, k)
		}
	}
	sort.Strings(loaded)
	return Status{
		Configured: m.cfg.IsConfigured(),
		Bucket:     m.cfg.Bucket,
		Syncing:    m.syncing,
		LastSync:   m.lastSync,
		Loaded:     loaded,
	}
}
