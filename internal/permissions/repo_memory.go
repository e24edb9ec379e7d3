package permissions

import (
	"context"
	"sync"
)

// MemoryRepo is a simple in-memory repository useful for tests and early
// development. Keyed by (family_file_id, contact_id, child_id).
//
// NOTE: This is not intended for production; use the Postgres implementation.
type MemoryRepo struct {
	mu    sync.Mutex
	perms map[memKey]CirclePermission
}

type memKey struct {
	family  string
	contact string
	child   string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{perms: make(map[memKey]CirclePermission)}
}

func (r *MemoryRepo) Get(ctx context.Context, familyFileID, contactID, childID string) (CirclePermission, bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.perms[memKey{familyFileID, contactID, childID}]
	return p, ok, nil
}

func (r *MemoryRepo) ListByFamily(ctx context.Context, familyFileID, contactID string) ([]CirclePermission, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []CirclePermission
	for k, p := range r.perms {
		if k.family != familyFileID {
			continue
		}
		if contactID != "" && k.contact != contactID {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *MemoryRepo) ListByContact(ctx context.Context, contactID string) ([]CirclePermission, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []CirclePermission
	for k, p := range r.perms {
		if k.contact == contactID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *MemoryRepo) Upsert(ctx context.Context, p CirclePermission) (CirclePermission, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.perms[memKey{p.FamilyFileID, p.ContactID, p.ChildID}] = p
	return p, nil
}
