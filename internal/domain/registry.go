package domain

import "sync"

// OfferedRegistry tracks workout ids that have already been surfaced as part
// of some candidate. Once an id is in the registry it is never offered again,
// for any plan entry, until the registry is cleared alongside an anchor reset.
//
// The matching pass itself never writes here: it reads a snapshot at pass
// start and the caller merges the pass's used ids at pass end.
type OfferedRegistry struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

// NewOfferedRegistry builds a registry seeded with previously persisted ids.
func NewOfferedRegistry(seed []string) *OfferedRegistry {
	r := &OfferedRegistry{ids: make(map[string]struct{}, len(seed))}
	for _, id := range seed {
		if id != "" {
			r.ids[id] = struct{}{}
		}
	}
	return r
}

// Snapshot returns a copy of the current id set for use by one matching pass.
func (r *OfferedRegistry) Snapshot() map[string]struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]struct{}, len(r.ids))
	for id := range r.ids {
		out[id] = struct{}{}
	}
	return out
}

// Merge adds the pass's used ids and returns the ids that were not present
// before, so the caller can persist only the delta.
func (r *OfferedRegistry) Merge(ids []string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	added := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := r.ids[id]; ok {
			continue
		}
		r.ids[id] = struct{}{}
		added = append(added, id)
	}
	return added
}

// Contains reports whether the id has already been offered.
func (r *OfferedRegistry) Contains(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.ids[id]
	return ok
}

// Clear empties the registry. Called on anchor reset: stale ids referencing a
// since-reset ingestion history must not suppress future legitimate matches.
func (r *OfferedRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = make(map[string]struct{})
}

// Len returns the number of tracked ids.
func (r *OfferedRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ids)
}
