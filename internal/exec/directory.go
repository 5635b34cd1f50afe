package exec

import (
	"sync"

	"github.com/rxtech-lab/argo-exec/pkg/errors"
)

// IDDirectory maintains the bidirectional mapping between local order ids
// and venue-assigned remote ids. The two directions are always updated
// together, keeping the mapping a partial bijection: no remote id resolves
// from two local ids and vice versa.
type IDDirectory struct {
	mu            sync.Mutex
	localToRemote map[int64]int64
	remoteToLocal map[int64]int64
}

// NewIDDirectory creates an empty directory.
func NewIDDirectory() *IDDirectory {
	return &IDDirectory{
		localToRemote: make(map[int64]int64),
		remoteToLocal: make(map[int64]int64),
	}
}

// Bind registers the pair (localID, remoteID) in both directions. Binding
// the same pair again is a no-op; binding either id to a different partner
// is a conflict.
func (d *IDDirectory) Bind(localID, remoteID int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if existing, ok := d.localToRemote[localID]; ok && existing != remoteID {
		return errors.Newf(errors.ErrCodeDirectoryConflict,
			"local id %d already bound to remote id %d", localID, existing)
	}

	if existing, ok := d.remoteToLocal[remoteID]; ok && existing != localID {
		return errors.Newf(errors.ErrCodeDirectoryConflict,
			"remote id %d already bound to local id %d", remoteID, existing)
	}

	d.localToRemote[localID] = remoteID
	d.remoteToLocal[remoteID] = localID

	return nil
}

// RemoteFor resolves a local id to its remote id.
func (d *IDDirectory) RemoteFor(localID int64) (int64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	remoteID, ok := d.localToRemote[localID]

	return remoteID, ok
}

// LocalFor resolves a remote id to its local id.
func (d *IDDirectory) LocalFor(remoteID int64) (int64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	localID, ok := d.remoteToLocal[remoteID]

	return localID, ok
}

// Len returns the number of bound pairs.
func (d *IDDirectory) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.localToRemote)
}
