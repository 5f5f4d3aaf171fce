package canonical

import (
	"fmt"
	"testing"
)

// ============================================================================
// Test: LRU semantics
// ============================================================================

func TestSourceRefLRU_SeenRecordsAndReports(t *testing.T) {
	lru := NewSourceRefLRU(16)

	if lru.Seen("tx1") {
		t.Error("first sighting must report unseen")
	}
	if !lru.Seen("tx1") {
		t.Error("second sighting must report seen")
	}
	if lru.Size() != 1 {
		t.Errorf("size: got %d, want 1", lru.Size())
	}
}

func TestSourceRefLRU_EvictsOldestAtCapacity(t *testing.T) {
	lru := NewSourceRefLRU(3)

	for i := 0; i < 4; i++ {
		lru.Seen(fmt.Sprintf("tx%d", i))
	}

	if lru.Size() != 3 {
		t.Errorf("size: got %d, want capacity 3", lru.Size())
	}
	if lru.Evictions() != 1 {
		t.Errorf("evictions: got %d, want 1", lru.Evictions())
	}
	// tx0 was evicted, so it reads as unseen again.
	if lru.Seen("tx0") {
		t.Error("evicted key must read as unseen")
	}
}

func TestSourceRefLRU_SeenPromotesAgainstEviction(t *testing.T) {
	lru := NewSourceRefLRU(3)
	lru.Seen("tx0")
	lru.Seen("tx1")
	lru.Seen("tx2")

	// Touch tx0 so tx1 is now the oldest.
	lru.Seen("tx0")
	lru.Seen("tx3")

	if !lru.Seen("tx0") {
		t.Error("promoted key must survive the eviction")
	}
}

func TestSourceRefLRU_WarmFromKeys(t *testing.T) {
	lru := NewSourceRefLRU(16)
	lru.WarmFromKeys([]string{"tx1", "tx2", "tx2"})

	if lru.Size() != 2 {
		t.Errorf("size after warm: got %d, want 2", lru.Size())
	}
	if !lru.Seen("tx1") || !lru.Seen("tx2") {
		t.Error("warmed keys must read as seen")
	}
	if lru.Seen("tx3") {
		t.Error("unwarmed key must read as unseen")
	}
}
