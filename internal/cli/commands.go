package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jinxingedu/kindersync/internal/access"
	"github.com/jinxingedu/kindersync/internal/common"
	"github.com/jinxingedu/kindersync/internal/models"
	"github.com/jinxingedu/kindersync/internal/storage"
	"github.com/jinxingedu/kindersync/internal/syncer"
)

// Status prints the sync subsystem state and who is logged in.
func (a *App) Status(ctx context.Context) {
	st := a.manager.Status()

	if !st.Configured {
		fmt.Fprintln(a.out, "cloud sync: not configured (set endpoint, region, bucket and credentials)")
	} else {
		fmt.Fprintf(a.out, "cloud sync: configured, bucket %s\n", st.Bucket)
	}
	if st.LastSync.IsZero() {
		fmt.Fprintln(a.out, "last sync: never")
	} else {
		fmt.Fprintln(a.out, "last sync:", st.LastSync.Format("2006-01-02 15:04:05"))
	}
	if st.Syncing {
		fmt.Fprintln(a.out, "a bulk sync is in flight")
	}
	for _, key := range st.Loaded {
		fmt.Fprintln(a.out, "loaded this session:", key)
	}

	user, err := a.resolver.CurrentUser(ctx)
	if err != nil {
		fmt.Fprintln(a.out, "user: not logged in")
		return
	}
	fmt.Fprintf(a.out, "user: %s (%s)\n", user.Name, user.Role)
}

// Init seeds the local cache and runs a best-effort initial sync.
func (a *App) Init(ctx context.Context) {
	if err := a.manager.Initialize(ctx); err != nil {
		fmt.Fprintln(a.out, "initialization failed:", err)
		return
	}
	fmt.Fprintln(a.out, "local cache ready")
}

// Sync refreshes every collection from the remote.
func (a *App) Sync(ctx context.Context) {
	err := a.manager.DownloadAll(ctx, func(key string, err error) {
		if err != nil {
			fmt.Fprintf(a.out, "  %s: %v\n", key, err)
			return
		}
		fmt.Fprintf(a.out, "  %s: ok\n", key)
	})
	switch {
	case errors.Is(err, common.ErrorNotConfigured):
		fmt.Fprintln(a.out, "cloud sync is not configured")
	case errors.Is(err, common.ErrorSyncInFlight):
		fmt.Fprintln(a.out, "a sync is already running")
	case err != nil:
		fmt.Fprintln(a.out, "sync finished with errors")
	default:
		fmt.Fprintln(a.out, "sync complete")
	}
	a.Notices()
}

// Download refreshes a single collection, date-qualified when given.
func (a *App) Download(ctx context.Context, key, date string) {
	var err error
	var n int
	if date != "" {
		var recs map[string]models.Record
		recs, err = a.manager.DownloadDate(ctx, key, date)
		n = len(recs)
	} else {
		var recs []models.Record
		recs, err = a.manager.Download(ctx, key)
		n = len(recs)
	}
	if err != nil {
		fmt.Fprintf(a.out, "download %s failed: %v\n", key, err)
		return
	}
	fmt.Fprintf(a.out, "%s: %d records\n", key, n)
}

// Upload pushes one collection through the guarded upload path, translating
// the guard sentinels into the messages users actually see.
func (a *App) Upload(ctx context.Context, key, date string) {
	var err error
	if date != "" {
		err = a.manager.SafeUploadDate(ctx, key, date)
	} else {
		err = a.manager.SafeUpload(ctx, key)
	}

	switch {
	case errors.Is(err, common.ErrorCloudNotLoaded):
		fmt.Fprintf(a.out, "%s: refused, download the cloud copy first\n", key)
	case errors.Is(err, common.ErrorBelowFloor):
		fmt.Fprintf(a.out, "%s: refused, suspiciously few records\n", key)
	case errors.Is(err, common.ErrorAboveCeiling):
		fmt.Fprintf(a.out, "%s: refused, abnormal record count\n", key)
	case err != nil:
		fmt.Fprintf(a.out, "upload %s failed: %v\n", key, err)
	default:
		fmt.Fprintf(a.out, "%s: uploaded\n", key)
	}
}

// UploadAll pushes every bulk-sync collection.
func (a *App) UploadAll(ctx context.Context) {
	err := a.manager.UploadAll(ctx, func(key string, err error) {
		if err != nil {
			fmt.Fprintf(a.out, "  %s: %v\n", key, err)
			return
		}
		fmt.Fprintf(a.out, "  %s: ok\n", key)
	})
	if err != nil {
		fmt.Fprintln(a.out, "upload finished with errors")
		return
	}
	fmt.Fprintln(a.out, "upload complete")
}

// Students lists the student records visible to the current user.
func (a *App) Students(ctx context.Context) {
	user, err := a.resolver.CurrentUser(ctx)
	if err != nil {
		fmt.Fprintln(a.out, "log in first")
		return
	}

	var students []models.Record
	if _, err := storage.GetJSON(ctx, a.store, syncer.KeyStudents, &students); err != nil {
		fmt.Fprintln(a.out, "failed to read students:", err)
		return
	}

	res := access.FilterStudents(students, user)
	if len(res.Records) == 0 {
		if res.Hint != "" {
			fmt.Fprintln(a.out, res.Hint)
		} else {
			fmt.Fprintln(a.out, "no students")
		}
		return
	}

	for _, r := range res.Records {
		var s models.Student
		if err := models.As(r, &s); err != nil {
			fmt.Fprintf(a.out, "  %-20s %s\n", r.Name(), r.Class())
			continue
		}
		if s.Allergies != "" {
			fmt.Fprintf(a.out, "  %-20s %-8s allergies: %s\n", s.Name, s.ClassName(), s.Allergies)
		} else {
			fmt.Fprintf(a.out, "  %-20s %s\n", s.Name, s.ClassName())
		}
	}
	if res.CanEdit {
		fmt.Fprintf(a.out, "%d students (editable)\n", len(res.Records))
	} else {
		fmt.Fprintf(a.out, "%d students (read only)\n", len(res.Records))
	}
}

// Assign rewrites a staff member's class assignment and pushes the roster.
func (a *App) Assign(ctx context.Context, staffID string, classes []string) {
	actor, err := a.resolver.CurrentUser(ctx)
	if err != nil {
		fmt.Fprintln(a.out, "log in first")
		return
	}

	assign := func(ctx context.Context, s storage.Store) error {
		return access.AssignClasses(ctx, s, actor, staffID, classes)
	}
	if a.db != nil {
		// roster and user directory move together or not at all
		err = storage.UpdateTx(ctx, a.db, assign)
	} else {
		err = assign(ctx, a.store)
	}
	if err != nil {
		fmt.Fprintln(a.out, "assignment failed:", err)
		return
	}
	fmt.Fprintf(a.out, "assigned %v to %s\n", classes, staffID)
	a.Upload(ctx, syncer.KeyStaff, "")
}

// Reset wipes the local cache after an explicit confirmation. The remote
// copies are untouched; the next sync rebuilds the cache.
func (a *App) Reset(ctx context.Context) {
	answer, err := GetSimpleText(a.reader, "Wipe the local cache? The cloud copies stay intact. (yes/no)", a.out)
	if err != nil || answer != "yes" {
		fmt.Fprintln(a.out, "cancelled")
		return
	}
	if err := a.store.Clear(ctx); err != nil {
		fmt.Fprintln(a.out, "reset failed:", err)
		return
	}
	fmt.Fprintln(a.out, "local cache cleared, run 'init' to rebuild")
}

// Ping probes the bucket endpoint and reports the round-trip latency.
func (a *App) Ping(ctx context.Context) {
	if !a.config.IsConfigured() {
		fmt.Fprintln(a.out, "cloud sync is not configured")
		return
	}

	col, err := syncer.Lookup(syncer.KeyStudents)
	if err != nil {
		fmt.Fprintln(a.out, "probe failed:", err)
		return
	}
	latency, err := a.remote.Health(ctx, col.RemotePath(a.config.Prefix, ""))
	if err != nil {
		fmt.Fprintln(a.out, "endpoint unreachable:", err)
		return
	}
	fmt.Fprintf(a.out, "endpoint reachable, %s\n", latency.Round(time.Millisecond))
}

// Notices drains and prints pending sync warnings.
func (a *App) Notices() {
	for _, n := range a.notices.Drain() {
		fmt.Fprintf(a.out, "! [%s] %s\n", n.Kind, n.Message)
	}
}
