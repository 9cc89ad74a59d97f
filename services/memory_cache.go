package services

import (
	"strings"
	"sync"

	"tax-document-platform/models"
)

// MemoryCache is the bounded in-process fallback store behind the last
// search tier. It is injected into its consumers rather than shared as
// ambient global state, lives for the process lifetime and is safe for
// concurrent use. Entries are appended on ingestion and soft-deleted on
// document removal; the capacity bound evicts oldest entries first.
type MemoryCache struct {
	mu       sync.RWMutex
	capacity int
	entries  []cacheEntry
}

type cacheEntry struct {
	doc     models.Document
	deleted bool
}

func NewMemoryCache(capacity int) *MemoryCache {
	if capacity <= 0 {
		capacity = 500
	}
	return &MemoryCache{capacity: capacity}
}

// Add appends the document, replacing any live entry with the same id.
func (c *MemoryCache) Add(doc models.Document) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.entries {
		if c.entries[i].doc.ID == doc.ID && !c.entries[i].deleted {
			c.entries[i].doc = doc
			return
		}
	}

	c.entries = append(c.entries, cacheEntry{doc: doc})
	if len(c.entries) > c.capacity {
		c.entries = c.entries[len(c.entries)-c.capacity:]
	}
}

// Remove soft-deletes the entry; the slot stays until evicted.
func (c *MemoryCache) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.entries {
		if c.entries[i].doc.ID == id {
			c.entries[i].deleted = true
		}
	}
}

// Find scans name and text case-insensitively for the query substring.
func (c *MemoryCache) Find(query string, limit int) []models.Document {
	c.mu.RLock()
	defer c.mu.RUnlock()

	lowerQuery := strings.ToLower(query)
	var matches []models.Document
	for _, entry := range c.entries {
		if entry.deleted {
			continue
		}
		if strings.Contains(strings.ToLower(entry.doc.ExtractedText), lowerQuery) ||
			strings.Contains(strings.ToLower(entry.doc.OriginalName), lowerQuery) {
			matches = append(matches, entry.doc)
			if len(matches) >= limit {
				break
			}
		}
	}
	return matches
}

// Len counts live entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, entry := range c.entries {
		if !entry.deleted {
			n++
		}
	}
	return n
}
