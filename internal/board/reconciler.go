package board

import (
	"encoding/json"
	"fmt"
	"sync"

	"inkpad/internal/services/notebooks"
)

// Reconciler applies snapshots relayed from the user's other sessions.
// A snapshot replaces the open notebook wholesale, but only when it is for
// this user and the notebook currently open; anything else is ignored.
// Last write to arrive wins.
type Reconciler struct {
	mu      sync.Mutex
	userID  string
	current *notebooks.Notebook
	applied uint64
	ignored uint64
}

// NewReconciler creates a reconciler for one user's session.
func NewReconciler(userID string) *Reconciler {
	return &Reconciler{userID: userID}
}

// Open sets the notebook remote snapshots are matched against. Pass nil
// when no notebook is open.
func (r *Reconciler) Open(nb *notebooks.Notebook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = nb
}

// Current returns the notebook as last seen, local or reconciled.
func (r *Reconciler) Current() *notebooks.Notebook {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// ApplyNotebook replaces the open notebook with the snapshot when userID
// and notebookID both match. It reports whether the snapshot was applied.
func (r *Reconciler) ApplyNotebook(userID, notebookID string, snapshot json.RawMessage) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if userID != r.userID || r.current == nil || r.current.ID.Hex() != notebookID {
		r.ignored++
		return false, nil
	}

	var nb notebooks.Notebook
	if err := json.Unmarshal(snapshot, &nb); err != nil {
		r.ignored++
		return false, fmt.Errorf("decode notebook snapshot: %w", err)
	}

	r.current = &nb
	r.applied++
	return true, nil
}

// Stats returns how many snapshots were applied and ignored.
func (r *Reconciler) Stats() (applied, ignored uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.applied, r.ignored
}
