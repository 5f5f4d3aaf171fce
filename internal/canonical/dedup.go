package canonical

import "container/list"

// SourceRefLRU deduplicates raw events by source_ref across ingestion
// passes. Re-processing an already-seen source_ref is a no-op
// (last-write-wins on identical content, never additive).
// Not thread-safe; the canonicalizer runs single-threaded upstream of
// the replay workers.
type SourceRefLRU struct {
	capacity int
	cache    map[string]*list.Element
	lruList  *list.List

	evictions int64
}

type lruEntry struct {
	key string
}

func NewSourceRefLRU(capacity int) *SourceRefLRU {
	return &SourceRefLRU{
		capacity: capacity,
		cache:    make(map[string]*list.Element, capacity),
		lruList:  list.New(),
	}
}

// Seen reports whether the key was already processed, recording it if not.
// Promotes existing keys to the front.
func (lru *SourceRefLRU) Seen(key string) bool {
	if elem, exists := lru.cache[key]; exists {
		lru.lruList.MoveToFront(elem)
		return true
	}

	entry := &lruEntry{key: key}
	elem := lru.lruList.PushFront(entry)
	lru.cache[key] = elem

	if lru.lruList.Len() > lru.capacity {
		lru.evictOldest()
	}
	return false
}

func (lru *SourceRefLRU) evictOldest() {
	elem := lru.lruList.Back()
	if elem != nil {
		lru.lruList.Remove(elem)
		entry := elem.Value.(*lruEntry)
		delete(lru.cache, entry.key)
		lru.evictions++
	}
}

// Size returns current number of entries.
func (lru *SourceRefLRU) Size() int {
	return lru.lruList.Len()
}

// Evictions returns total evictions (for metrics).
func (lru *SourceRefLRU) Evictions() int64 {
	return lru.evictions
}

// WarmFromKeys preloads source refs persisted from a previous run so the
// first batch after a restart still deduplicates correctly.
func (lru *SourceRefLRU) WarmFromKeys(keys []string) {
	for _, key := range keys {
		if _, exists := lru.cache[key]; exists {
			continue
		}
		entry := &lruEntry{key: key}
		elem := lru.lruList.PushFront(entry)
		lru.cache[key] = elem

		if lru.lruList.Len() > lru.capacity {
			lru.evictOldest()
		}
	}
}
