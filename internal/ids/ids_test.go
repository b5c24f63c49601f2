package ids

import (
	"strings"
	"testing"
	"time"
)

func TestWithPrefixIsUniqueAndOrdered(t *testing.T) {
	fixed := time.UnixMilli(1700000000000)
	g := NewGenerator(func() time.Time { return fixed })

	seen := make(map[string]bool)
	prev := ""
	for range 1000 {
		id := g.WithPrefix(ProjectPrefix)
		if !strings.HasPrefix(id, "proj-") {
			t.Fatalf("Unexpected id %q", id)
		}
		if seen[id] {
			t.Fatalf("Duplicate id %q", id)
		}
		if id <= prev {
			t.Fatalf("Expected %q to sort after %q", id, prev)
		}
		seen[id] = true
		prev = id
	}
}

func TestGenerateUsesClock(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	g := NewGenerator(func() time.Time { return at })

	if got := g.Generate().Time(); got != uint64(at.UnixMilli()) {
		t.Errorf("Expected timestamp %d, got %d", at.UnixMilli(), got)
	}
}
