package review

import (
	"sync"

	"github.com/google/uuid"
)

// PreviewStore holds encoded candidate images behind opaque tokens so the
// booth page can show them before they are confirmed.
type PreviewStore struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewPreviewStore creates an empty store.
func NewPreviewStore() *PreviewStore {
	return &PreviewStore{items: make(map[string][]byte)}
}

// Put stores data and returns its token.
func (p *PreviewStore) Put(data []byte) string {
	token := uuid.NewString()

	p.mu.Lock()
	p.items[token] = data
	p.mu.Unlock()

	return token
}

// Get returns the image for token.
func (p *PreviewStore) Get(token string) ([]byte, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	data, ok := p.items[token]
	return data, ok
}

// Revoke forgets token. Revoking an unknown token is a no-op.
func (p *PreviewStore) Revoke(token string) {
	if token == "" {
		return
	}
	p.mu.Lock()
	delete(p.items, token)
	p.mu.Unlock()
}

// Len returns the number of live previews.
func (p *PreviewStore) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.items)
}
