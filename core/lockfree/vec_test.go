package lockfree

import (
	"errors"
	"runtime"
	"sync"
	"testing"
)

func TestVecPushGet(t *testing.T) {
	v := NewVec[string](2)
	if _, ok := v.Get(0); ok {
		t.Fatalf("Get(0) ok = true on empty vec, want false")
	}
	i, err := v.Push("a")
	if err != nil || i != 0 {
		t.Fatalf("Push(a) = %d, %v, want 0, nil", i, err)
	}
	if _, err := v.Push("b"); err != nil {
		t.Fatalf("Push(b) error = %v", err)
	}
	if _, err := v.Push("c"); !errors.Is(err, ErrFull) {
		t.Fatalf("Push(c) error = %v, want %v", err, ErrFull)
	}
	if got, ok := v.Get(1); !ok || got != "b" {
		t.Fatalf("Get(1) = %q, %v, want b, true", got, ok)
	}
	if got := v.Len(); got != 2 {
		t.Fatalf("Len() = %d, want 2", got)
	}
}

func TestVecConcurrentPush(t *testing.T) {
	oldProcs := runtime.GOMAXPROCS(4)
	defer runtime.GOMAXPROCS(oldProcs)

	const (
		producers = 8
		perProd   = 500
		total     = producers * perProd
	)
	v := NewVec[int](total)

	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(p int) {
			defer wg.Done()
			<-start
			for i := 0; i < perProd; i++ {
				if _, err := v.Push(p*perProd + i); err != nil {
					t.Errorf("Push() error = %v", err)
					return
				}
			}
		}(p)
	}
	close(start)
	wg.Wait()

	seen := make([]bool, total)
	count := 0
	v.Range(func(_ int, item int) bool {
		if seen[item] {
			t.Fatalf("value %d published twice", item)
		}
		seen[item] = true
		count++
		return true
	})
	if count != total {
		t.Fatalf("published = %d, want %d", count, total)
	}
}
