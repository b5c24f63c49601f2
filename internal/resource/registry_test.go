package resource

import (
	"strings"
	"sync"
	"testing"

	"github.com/lehigh-university-libraries/studio/internal/apperrors"
)

func TestAcquireOpenRelease(t *testing.T) {
	r := NewRegistry()

	h := r.Acquire([]byte("video-bytes"), "video/mp4")
	if !strings.HasPrefix(h, "blob:") {
		t.Errorf("Expected blob handle, got %q", h)
	}

	data, mime, err := r.Open(h)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if string(data) != "video-bytes" || mime != "video/mp4" {
		t.Errorf("Unexpected contents %q %q", data, mime)
	}

	if !r.Release(h) {
		t.Error("First release should report true")
	}
	if r.Release(h) {
		t.Error("Second release should be a no-op")
	}
	if _, _, err := r.Open(h); !apperrors.IsNotFound(err) {
		t.Errorf("Expected not found after release, got %v", err)
	}
	if r.Len() != 0 {
		t.Errorf("Expected no live handles, got %d", r.Len())
	}
}

func TestReleaseIgnoresForeignHandles(t *testing.T) {
	r := NewRegistry()
	for _, h := range []string{"", "https://example.com/v.mp4", "blob:unknown"} {
		if r.Release(h) {
			t.Errorf("Release(%q) should report false", h)
		}
	}
}

func TestConcurrentAcquireRelease(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	var mu sync.Mutex
	released := 0

	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h := r.Acquire([]byte{1}, "video/mp4")
			for range 3 {
				if r.Release(h) {
					mu.Lock()
					released++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	if released != 20 {
		t.Errorf("Expected each handle released exactly once, got %d releases", released)
	}
}
