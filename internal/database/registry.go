package database

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/firmos/backend/internal/guardian"
)

// WorkstreamRegistry is the in-process source of truth for workstream
// snapshots: agents push updated snapshots, the Guardian and the release
// QC step read them. When a Supabase client is attached, every write is
// mirrored to firmos_workstreams best-effort; the in-memory copy always
// wins for reads.
type WorkstreamRegistry struct {
	mu        sync.RWMutex
	snapshots map[string]guardian.WorkstreamContext
	persist   *SupabaseClient
	logger    *log.Logger
}

// NewWorkstreamRegistry creates a registry. persist may be nil for a
// purely in-memory registry.
func NewWorkstreamRegistry(persist *SupabaseClient) *WorkstreamRegistry {
	return &WorkstreamRegistry{
		snapshots: make(map[string]guardian.WorkstreamContext),
		persist:   persist,
		logger:    log.New(log.Writer(), "[WORKSTREAMS] ", log.LstdFlags),
	}
}

// Put registers or replaces a workstream snapshot.
func (r *WorkstreamRegistry) Put(ctx guardian.WorkstreamContext) {
	r.mu.Lock()
	r.snapshots[ctx.WorkstreamID] = ctx
	r.mu.Unlock()

	if r.persist == nil {
		return
	}
	payload, err := json.Marshal(ctx)
	if err != nil {
		r.logger.Printf("⚠️  Failed to marshal workstream %s: %v", ctx.WorkstreamID, err)
		return
	}
	if err := r.persist.UpsertWorkstream(&WorkstreamRow{
		WorkstreamID: ctx.WorkstreamID,
		PackID:       ctx.PackID,
		Jurisdiction: string(ctx.Jurisdiction),
		Payload:      payload,
	}); err != nil {
		r.logger.Printf("⚠️  Failed to persist workstream %s: %v", ctx.WorkstreamID, err)
	}
}

// Snapshot returns the current snapshot for workstreamID. Implements
// release.SnapshotSource.
func (r *WorkstreamRegistry) Snapshot(workstreamID string) (guardian.WorkstreamContext, bool) {
	r.mu.RLock()
	ctx, ok := r.snapshots[workstreamID]
	r.mu.RUnlock()
	return ctx, ok
}

// List returns the ids of all registered workstreams.
func (r *WorkstreamRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.snapshots))
	for id := range r.snapshots {
		ids = append(ids, id)
	}
	return ids
}
