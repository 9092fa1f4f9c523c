// Package engine restores a profile's equipment tree from a captured
// snapshot, applied selectively by container slot with rollback on failure.
package engine

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"gearline/internal/config"
	"gearline/internal/domain"
	"gearline/internal/events"
	"gearline/internal/guard"
	"gearline/internal/ratelimit"
	"gearline/internal/store"
)

// ModVersion is the running producer/consumer version snapshots are checked
// against.
const ModVersion = "1.4.2"

// Logger abstracts logging so callers can use logrus, stdlib log, or any
// other logger that satisfies this interface.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// nopLogger silently discards all messages.
type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

var hexTypeID = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// Engine runs restoration attempts. One call fully completes before
// returning; concurrent calls for different identities are safe, the same
// identity must be serialized by the host.
type Engine struct {
	Store   store.Store
	Limiter *ratelimit.Limiter
	Config  *config.Config
	Events  *events.Writer
	Log     Logger
	Version string

	Now   func() time.Time
	Sleep func(time.Duration)
}

// New wires an engine. The equipment-root constant is shape-checked here; a
// value that does not look like a 24-digit hex template id is warned about
// but still honored.
func New(st store.Store, cfg *config.Config, log Logger) *Engine {
	if log == nil {
		log = nopLogger{}
	}
	if cfg == nil {
		cfg = config.Default()
	}
	if !hexTypeID.MatchString(cfg.EquipmentRootTypeID) {
		log.Warnf("equipment root type id %q does not look like a 24-digit hex template id",
			guard.SanitizeForLog(cfg.EquipmentRootTypeID))
	}
	return &Engine{
		Store:   st,
		Limiter: ratelimit.New(cfg.MinRestoreInterval()),
		Config:  cfg,
		Log:     log,
		Version: ModVersion,
		Now:     time.Now,
		Sleep:   time.Sleep,
	}
}

// TryRestore applies the stored snapshot for identityKey to collection,
// mutating it in place. Managed slots are replaced, everything else is left
// untouched. On any failure after mutation begins the collection is rolled
// back to its pre-call state; the caller always receives a definitive
// outcome.
func (e *Engine) TryRestore(ctx context.Context, identityKey string, collection *[]domain.Record) domain.RestoreOutcome {
	out := domain.RestoreOutcome{AttemptID: uuid.NewString()}
	logKey := guard.SanitizeForLog(identityKey)

	fail := func(kind domain.FailKind, msg string) domain.RestoreOutcome {
		out.Succeeded = false
		out.FailKind = kind
		out.ErrorMessage = msg
		e.recordEvent(ctx, "restore.failure", identityKey, out)
		return out
	}

	if collection == nil {
		return fail(domain.FailInput, "record collection is nil")
	}
	if !guard.IsValidIdentity(identityKey) {
		e.Log.Warnf("restore rejected: invalid identity %q", logKey)
		return fail(domain.FailInput, "invalid identity key")
	}
	if !e.Limiter.Allow(identityKey) {
		e.Log.Debugf("restore rate limited for %s", logKey)
		return fail(domain.FailRateLimited, "restore attempted too soon, try again later")
	}

	exists, err := e.Store.Exists(identityKey)
	if err != nil {
		return fail(domain.FailTransientIO, fmt.Sprintf("check snapshot: %v", err))
	}
	if !exists {
		e.Log.Debugf("no snapshot for %s", logKey)
		return fail(domain.FailNotFound, "no snapshot found")
	}

	size, err := e.Store.SizeOf(identityKey)
	if err != nil {
		return fail(domain.FailTransientIO, fmt.Sprintf("stat snapshot: %v", err))
	}
	if size > e.Config.MaxSnapshotFileSizeBytes {
		e.Log.Warnf("snapshot for %s is %d bytes, limit %d; discarding", logKey, size, e.Config.MaxSnapshotFileSizeBytes)
		e.discard(identityKey)
		return fail(domain.FailCorrupt, fmt.Sprintf("snapshot exceeds size limit (%d > %d bytes)", size, e.Config.MaxSnapshotFileSizeBytes))
	}

	data, err := e.readWithRetry(identityKey)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fail(domain.FailNotFound, "no snapshot found")
		}
		return fail(domain.FailTransientIO, fmt.Sprintf("read snapshot: %v", err))
	}

	snap, verr := decodeSnapshot(data)
	if verr != nil {
		e.Log.Warnf("snapshot for %s rejected: %v", logKey, verr)
		e.discard(identityKey)
		return fail(domain.FailCorrupt, verr.Error())
	}

	switch verdict, detail := checkVersion(e.Version, snap.ModVersion); verdict {
	case versionReject:
		e.Log.Warnf("snapshot for %s rejected: %s", logKey, detail)
		e.discard(identityKey)
		return fail(domain.FailCorrupt, detail)
	case versionWarn:
		e.Log.Warnf("snapshot for %s: %s", logKey, detail)
	}

	snapRoot, ok := findEquipmentRoot(snap.Items, e.Config.EquipmentRootTypeID)
	if !ok {
		e.Log.Warnf("snapshot for %s has no equipment root, discarding", logKey)
		e.discard(identityKey)
		return fail(domain.FailCorrupt, "snapshot has no equipment root")
	}
	targetRoot, ok := findEquipmentRoot(*collection, e.Config.EquipmentRootTypeID)
	if !ok {
		return fail(domain.FailInput, "record collection has no equipment root")
	}

	maxDepth := e.Config.MaxParentTraversalDepth
	lookup := buildIndex(snap.Items)
	rootSlots := buildRootSlotMap(snap.Items, snapRoot.ID, lookup, maxDepth, e.Log)

	included := toLowerSet(snap.IncludedSlots)
	empty := toLowerSet(snap.EmptySlots)
	snapshotSlots := directChildSlots(snap.Items, snapRoot.ID)

	backup := backupRecords(*collection)

	removed := 0
	var added addResult
	merr := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("mutation panic: %v", r)
			}
		}()
		removed = removeManagedSlotItems(collection, targetRoot.ID, included, snapshotSlots, empty, maxDepth, e.Log)
		existing := idSet(*collection)
		added = addSnapshotItems(collection, snap.Items, targetRoot.ID, snapRoot.ID,
			included, rootSlots, existing, e.Config.EquipmentRootTypeID, e.Log)
		return nil
	}()
	if merr != nil {
		rollbackRecords(collection, backup)
		out.RolledBack = true
		e.Log.Errorf("restore for %s failed mid-apply, collection rolled back: %v", logKey, merr)
		// Snapshot stays in place so the host can retry.
		return fail(domain.FailUnexpected, merr.Error())
	}

	if err := e.Store.Delete(identityKey); err != nil {
		e.Log.Errorf("snapshot for %s applied but could not be discarded: %v", logKey, err)
	}

	out.Succeeded = true
	out.ItemsAdded = added.added
	out.DuplicatesSkipped = added.duplicates
	out.NonManagedSkipped = added.nonManaged
	e.Log.Infof("restore for %s applied: removed=%d added=%d duplicates=%d non_managed=%d",
		logKey, removed, out.ItemsAdded, out.DuplicatesSkipped, out.NonManagedSkipped)
	e.recordEvent(ctx, "restore.success", identityKey, out)
	return out
}

// ClearSnapshot deletes any stored snapshot for identityKey. Best effort:
// failures are logged, never returned.
func (e *Engine) ClearSnapshot(ctx context.Context, identityKey string) {
	if !guard.IsValidIdentity(identityKey) {
		e.Log.Warnf("clear rejected: invalid identity %q", guard.SanitizeForLog(identityKey))
		return
	}
	if err := e.Store.Delete(identityKey); err != nil {
		e.Log.Warnf("clear snapshot for %s: %v", guard.SanitizeForLog(identityKey), err)
		return
	}
	if e.Events != nil {
		_ = e.Events.Append(ctx, "snapshot.cleared", identityKey, "", nil)
	}
}

// readWithRetry reads the snapshot blob, retrying transient failures with a
// linearly increasing blocking delay. Empty content and content that does
// not open with a JSON structural character count as transient, since the
// producer may still be writing.
func (e *Engine) readWithRetry(key string) ([]byte, error) {
	retries := e.Config.MaxFileReadRetries
	base := e.Config.RetryDelay()
	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		if attempt > 1 {
			e.Sleep(time.Duration(attempt-1) * base)
		}
		data, err := e.Store.Read(key)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, err
			}
			lastErr = err
			e.Log.Debugf("snapshot read attempt %d/%d failed: %v", attempt, retries, err)
			continue
		}
		if !looksLikeJSON(data) {
			lastErr = errors.New("content is empty or not yet valid JSON")
			e.Log.Debugf("snapshot read attempt %d/%d: %v", attempt, retries, lastErr)
			continue
		}
		return data, nil
	}
	return nil, fmt.Errorf("read snapshot after %d attempts: %w", retries, lastErr)
}

func looksLikeJSON(data []byte) bool {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		default:
			return b == '{' || b == '['
		}
	}
	return false
}

// discard deletes a snapshot judged invalid; such snapshots are never
// retried.
func (e *Engine) discard(key string) {
	if err := e.Store.Delete(key); err != nil {
		e.Log.Warnf("discard snapshot for %s: %v", guard.SanitizeForLog(key), err)
	}
}

func (e *Engine) recordEvent(ctx context.Context, evtType, identity string, out domain.RestoreOutcome) {
	if e.Events == nil {
		return
	}
	payload := events.EventPayload{
		"succeeded":           out.Succeeded,
		"items_added":         out.ItemsAdded,
		"duplicates_skipped":  out.DuplicatesSkipped,
		"non_managed_skipped": out.NonManagedSkipped,
	}
	if out.FailKind != domain.FailNone {
		payload["fail_kind"] = string(out.FailKind)
		payload["error"] = out.ErrorMessage
	}
	if err := e.Events.Append(ctx, evtType, identity, out.AttemptID, payload); err != nil {
		e.Log.Warnf("append audit event: %v", err)
	}
}

// findEquipmentRoot returns the first record whose type matches the
// equipment-root constant. First match wins when duplicates exist.
func findEquipmentRoot(items []domain.Record, rootTypeID string) (domain.Record, bool) {
	for _, it := range items {
		if it.TypeID == rootTypeID {
			return it, true
		}
	}
	return domain.Record{}, false
}

func idSet(items []domain.Record) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, it := range items {
		if it.ID != "" {
			out[it.ID] = struct{}{}
		}
	}
	return out
}
