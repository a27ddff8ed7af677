package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// MemBlob is an in-memory CAS blob. It backs the "memory" store backend
// for local development and gives tests a faithful conditional-write
// primitive without a remote.
type MemBlob struct {
	mu      sync.RWMutex
	content []byte
	rev     Revision
}

// NewMemBlob creates an empty in-memory blob.
func NewMemBlob() *MemBlob {
	return &MemBlob{rev: revisionOf(nil)}
}

// Fetch returns a copy of the current content and its revision.
func (m *MemBlob) Fetch(ctx context.Context) ([]byte, Revision, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]byte, len(m.content))
	copy(out, m.content)
	return out, m.rev, nil
}

// CompareAndSwap replaces the content only when base matches the current
// revision, mirroring the remote store's conditional-replace semantics.
func (m *MemBlob) CompareAndSwap(ctx context.Context, content []byte, base Revision) (Revision, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if base != m.rev {
		return "", &ConflictError{Expected: base, Current: m.rev}
	}
	m.content = make([]byte, len(content))
	copy(m.content, content)
	m.rev = revisionOf(m.content)
	return m.rev, nil
}

// revisionOf derives a content-addressed revision, truncated the same
// way short content hashes are used elsewhere in the codebase.
func revisionOf(content []byte) Revision {
	sum := sha256.Sum256(content)
	return Revision(hex.EncodeToString(sum[:])[:16])
}
