// Package syncer reconciles remote and local state per named collection:
// download-merge-persist on the way in, guarded uploads on the way out.
package syncer

import "github.com/jinxingedu/kindersync/internal/common"

// Collection keys as stored locally and remotely.
const (
	KeyAllUsers          = "kt_all_users"
	KeyAuthorizedPhones  = "kt_authorized_phones"
	KeyStudents          = "kt_students"
	KeyStaff             = "kt_staff"
	KeyHealthRecords     = "kt_health_records"
	KeyAttendanceRecords = "kt_attendance_records"
	KeyMealPlans         = "kt_meal_plans"

	// KeyLastSync is a reserved local key, never synced.
	KeyLastSync = "kt_last_sync_time"
)

// Collection describes how one named collection is synchronized.
//
// MinUpload and MaxUpload bound the record count an upload will accept:
// the floor protects the shared remote copy from a cold or mis-filtered
// client, the ceiling catches runaway duplication. Zero disables a bound.
// ForceUpload collections skip both bounds and the loaded-first check
// (they are small curated lists an admin must be able to rewrite outright).
type Collection struct {
	Key        string
	MinUpload  int
	MaxUpload  int
	DateScoped bool
	BulkSync   bool
	Force      bool
}

var collections = []Collection{
	{Key: KeyAllUsers, Force: true, BulkSync: true},
	{Key: KeyAuthorizedPhones, Force: true, BulkSync: true},
	{Key: KeyStudents, MinUpload: 10, MaxUpload: 300, BulkSync: true},
	// staff is deliberately excluded from bulk upload: the roster drives
	// every permission decision, so it only moves on an explicit command.
	{Key: KeyStaff, MinUpload: 20, MaxUpload: 100},
	{Key: KeyHealthRecords, DateScoped: true},
	{Key: KeyAttendanceRecords, DateScoped: true},
	{Key: KeyMealPlans, BulkSync: true},
}

var byKey = func() map[string]Collection {
	m := make(map[string]Collection, len(collections))
	for _, c := range collections {
		m[c.Key] = c
	}
	return m
}()

// Lookup resolves a collection by key.
func Lookup(key string) (Collection, error) {
	c, ok := byKey[key]
	if !ok {
		return Collection{}, common.ErrorUnknownCollection
	}
	return c, nil
}

// Collections returns the registry in declaration order.
func Collections() []Collection {
	out := make([]Collection, len(collections))
	copy(out, collections)
	return out
}

// StorageKey returns the local document key, date-qualified for date-scoped
// collections.
func (c Collection) StorageKey(date string) string {
	if c.DateScoped && date != "" {
		return c.Key + "_" + date
	}
	return c.Key
}

// RemotePath returns the object key inside the bucket.
func (c Collection) RemotePath(prefix, date string) string {
	return prefix + "/" + c.StorageKey(date) + ".json"
}
