package store

import "sync"

// UIDIndex maps content hashes to the identifier the record is currently
// known by. Shared by all datasets of an engine.
type UIDIndex struct {
	byHash map[string]string
	mu     sync.RWMutex
}

// NewUIDIndex creates an empty index
func NewUIDIndex() *UIDIndex {
	return &UIDIndex{byHash: make(map[string]string)}
}

// Track records that content with hash belongs to uid
func (x *UIDIndex) Track(hash, uid string) {
	if hash == "" || uid == "" {
		return
	}
	x.mu.Lock()
	x.byHash[hash] = uid
	x.mu.Unlock()
}

// Lookup returns the identifier tracked for hash
func (x *UIDIndex) Lookup(hash string) (string, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	uid, ok := x.byHash[hash]
	return uid, ok
}

// GetUID resolves hash to the current identifier. An unknown hash resolves
// to itself, which is the identifier a record gets when it is created.
func (x *UIDIndex) GetUID(hash string) string {
	if uid, ok := x.Lookup(hash); ok {
		return uid
	}
	return hash
}
