package store

import (
	"context"
	"fmt"
	"sync"
)

// AvailabilityFunc computes Profile.AvailableTreesBucket for a freshly
// loaded profile.
type AvailabilityFunc func(ctx context.Context, p Profile) (int, error)

// ProfileHandle holds the in-memory current profile of a play session.
// Profile reads never touch the database; Reload refreshes the copy.
//
// ProfileHandle is safe for concurrent use.
type ProfileHandle struct {
	repo *ProfileRepo

	mu        sync.RWMutex
	current   Profile
	available AvailabilityFunc
}

// NewProfileHandle wraps p. Call Reload to compute availability.
func NewProfileHandle(repo *ProfileRepo, p *Profile) *ProfileHandle {
	return &ProfileHandle{repo: repo, current: *p}
}

// SetAvailability installs the hook that computes AvailableTreesBucket on
// every Reload.
func (h *ProfileHandle) SetAvailability(fn AvailabilityFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.available = fn
}

// Profile returns a copy of the current profile.
func (h *ProfileHandle) Profile() Profile {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Update mutates the in-memory profile. Call Save to persist.
func (h *ProfileHandle) Update(fn func(p *Profile)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn(&h.current)
}

// Reload re-reads the profile from the database and recomputes its
// availability. The in-memory copy is replaced only on success.
func (h *ProfileHandle) Reload(ctx context.Context) error {
	h.mu.RLock()
	id := h.current.ID
	available := h.available
	h.mu.RUnlock()

	p, err := h.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("reload profile: %w", err)
	}
	if available != nil {
		n, err := available(ctx, *p)
		if err != nil {
			return fmt.Errorf("reload profile availability: %w", err)
		}
		p.AvailableTreesBucket = n
	}

	h.mu.Lock()
	h.current = *p
	h.mu.Unlock()
	return nil
}

// Save persists the in-memory profile's editable fields.
func (h *ProfileHandle) Save(ctx context.Context) error {
	p := h.Profile()
	return h.repo.Save(ctx, &p)
}
