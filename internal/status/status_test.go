package status

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestAtomicFloatSetGet(t *testing.T) {
	var f AtomicFloat
	f.Set(3.5)
	if got := f.Get(); got != 3.5 {
		t.Fatalf("expected 3.5, got %v", got)
	}
}

func TestAtomicFloatAddIsCumulative(t *testing.T) {
	var f AtomicFloat
	f.Set(10)
	if got := f.Add(5); got != 15 {
		t.Fatalf("expected 15, got %v", got)
	}
	if got := f.Get(); got != 15 {
		t.Fatalf("Get after Add expected 15, got %v", got)
	}
}

func TestAtomicFloatConcurrentAdd(t *testing.T) {
	var f AtomicFloat
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.Add(1)
		}()
	}
	wg.Wait()
	if got := f.Get(); got != 100 {
		t.Fatalf("expected 100 after 100 concurrent adds, got %v", got)
	}
}

func TestAtomicStringTruncatesToMax(t *testing.T) {
	var s AtomicString
	long := "this string is definitely longer than twenty characters"
	s.Store(long)
	if got := s.Load(); len(got) != MaxStringLen {
		t.Fatalf("expected truncation to %d chars, got %q (%d chars)", MaxStringLen, got, len(got))
	}
}

func TestAtomicStringZeroValueIsEmpty(t *testing.T) {
	var s AtomicString
	if got := s.Load(); got != "" {
		t.Fatalf("expected empty string for zero value, got %q", got)
	}
}

func TestMetricMapGetIsIdempotentPerKey(t *testing.T) {
	m := NewMetricMap[atomic.Int64]()
	a := m.Get("ticks")
	a.Store(42)
	b := m.Get("ticks")
	if b.Load() != 42 {
		t.Fatalf("expected second Get to return the same cell, got %d", b.Load())
	}
	if m.Count() != 1 {
		t.Fatalf("expected 1 registered metric, got %d", m.Count())
	}
}

func TestMetricMapRangeIsSortedByKey(t *testing.T) {
	m := NewMetricMap[atomic.Int64]()
	m.Get("b")
	m.Get("a")
	m.Get("c")

	var order []string
	m.Range(func(key string, _ *atomic.Int64) { order = append(order, key) })

	want := []string{"a", "b", "c"}
	for i, k := range want {
		if order[i] != k {
			t.Fatalf("expected sorted order %v, got %v", want, order)
		}
	}
}

func TestRegistryTotalCount(t *testing.T) {
	r := NewRegistry()
	r.Ints.Get("pending_commands")
	r.Floats.Get("temp_c")
	r.Bools.Get("homed")

	if r.TotalCount() != 3 {
		t.Fatalf("expected TotalCount 3, got %d", r.TotalCount())
	}
}
