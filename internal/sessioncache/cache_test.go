package sessioncache

import (
	"fmt"
	"testing"

	"pharma.fit/pharmascout/internal/pipeline"
)

func TestPutAndGet(t *testing.T) {
	t.Parallel()

	c := New(3)
	c.Put("a", pipeline.Result{SessionID: "a", Success: true})

	got, ok := c.Get("a")
	if !ok {
		t.Fatalf("Get(a) missed")
	}
	if got.SessionID != "a" || !got.Success {
		t.Fatalf("got %+v, want session a", got)
	}

	if _, ok := c.Get("missing"); ok {
		t.Fatalf("Get(missing) hit")
	}
}

func TestEvictsOldestPastCapacity(t *testing.T) {
	t.Parallel()

	c := New(10)
	for i := 0; i < 11; i++ {
		id := fmt.Sprintf("s%d", i)
		c.Put(id, pipeline.Result{SessionID: id})
	}

	if c.Len() != 10 {
		t.Fatalf("Len = %d, want 10", c.Len())
	}
	if _, ok := c.Get("s0"); ok {
		t.Fatalf("oldest session s0 must be evicted")
	}
	if _, ok := c.Get("s1"); !ok {
		t.Fatalf("s1 must still be retained")
	}
	if _, ok := c.Get("s10"); !ok {
		t.Fatalf("newest session s10 must be retained")
	}
}

func TestRePutRefreshesPosition(t *testing.T) {
	t.Parallel()

	c := New(2)
	c.Put("a", pipeline.Result{SessionID: "a"})
	c.Put("b", pipeline.Result{SessionID: "b"})

	// Refresh "a"; the next insert must evict "b" instead.
	c.Put("a", pipeline.Result{SessionID: "a", Success: true})
	c.Put("c", pipeline.Result{SessionID: "c"})

	if _, ok := c.Get("b"); ok {
		t.Fatalf("b must be evicted after a was refreshed")
	}
	got, ok := c.Get("a")
	if !ok {
		t.Fatalf("refreshed a must be retained")
	}
	if !got.Success {
		t.Fatalf("re-put must overwrite the stored result")
	}
}

func TestZeroCapacityFallsBackToDefault(t *testing.T) {
	t.Parallel()

	c := New(0)
	for i := 0; i < DefaultCapacity+5; i++ {
		c.Put(fmt.Sprintf("s%d", i), pipeline.Result{})
	}
	if c.Len() != DefaultCapacity {
		t.Fatalf("Len = %d, want default capacity %d", c.Len(), DefaultCapacity)
	}
}

func TestEmptySessionIDIgnored(t *testing.T) {
	t.Parallel()

	c := New(2)
	c.Put("", pipeline.Result{})
	if c.Len() != 0 {
		t.Fatalf("Len = %d, want 0 after empty-id put", c.Len())
	}
}
