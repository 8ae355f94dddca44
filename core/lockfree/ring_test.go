package lockfree

import (
	"runtime"
	"sync"
	"testing"
)

func TestRingTryPopEmpty(t *testing.T) {
	r := NewRing[int](4)
	if _, ok := r.TryPop(); ok {
		t.Fatalf("TryPop() ok = true, want false")
	}
}

func TestRingTryPushFull(t *testing.T) {
	r := NewRing[int](3)
	if got := r.Cap(); got != 4 {
		t.Fatalf("Cap() = %d, want 4", got)
	}
	for i := 0; i < r.Cap(); i++ {
		if ok := r.TryPush(i); !ok {
			t.Fatalf("TryPush() ok = false at slot %d, want true", i)
		}
	}
	if ok := r.TryPush(99); ok {
		t.Fatalf("TryPush() ok = true when full, want false")
	}
	for i := 0; i < r.Cap(); i++ {
		got, ok := r.TryPop()
		if !ok || got != i {
			t.Fatalf("TryPop() = %d, %v, want %d, true", got, ok, i)
		}
	}
}

func TestRingConcurrentProducers(t *testing.T) {
	oldProcs := runtime.GOMAXPROCS(1)
	defer runtime.GOMAXPROCS(oldProcs)

	const (
		producers = 4
		perProd   = 10_000
		total     = producers * perProd
	)
	r := NewRing[uint32](8)

	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(producers)
	for producerID := 0; producerID < producers; producerID++ {
		go func(producerID int) {
			defer wg.Done()
			<-start
			for i := 0; i < perProd; i++ {
				for !r.TryPush(uint32(producerID*perProd + i)) {
					runtime.Gosched()
				}
			}
		}(producerID)
	}
	close(start)

	seen := make([]bool, total)
	for i := 0; i < total; {
		id, ok := r.TryPop()
		if !ok {
			runtime.Gosched()
			continue
		}
		if int(id) >= total {
			t.Fatalf("TryPop() id = %d, want < %d", id, total)
		}
		if seen[id] {
			t.Fatalf("TryPop() duplicate id %d", id)
		}
		seen[id] = true
		i++
	}
	wg.Wait()
}
