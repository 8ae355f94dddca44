package lockfree

import (
	"errors"
	"testing"
)

type dropCounter struct{ n *int }

func (d dropCounter) Drop() { *d.n++ }

func TestOptionInsertTake(t *testing.T) {
	var o Option[int]
	if _, ok := o.Take(); ok {
		t.Fatalf("Take() ok = true on empty option, want false")
	}
	if _, err := o.Insert(5); err != nil {
		t.Fatalf("Insert(5) error = %v", err)
	}
	if !o.IsSome() {
		t.Fatalf("IsSome() = false after Insert")
	}
	got, ok := o.Take()
	if !ok || got != 5 {
		t.Fatalf("Take() = %d, %v, want 5, true", got, ok)
	}
	if o.IsSome() {
		t.Fatalf("IsSome() = true after Take")
	}
}

func TestOptionInsertDropsOld(t *testing.T) {
	drops := 0
	var o Option[dropCounter]
	o.Insert(dropCounter{n: &drops})
	o.Insert(dropCounter{n: &drops})
	if drops != 1 {
		t.Fatalf("drops = %d, want 1", drops)
	}
}

type marker struct{}

var markerDrops int

func (marker) Drop() { markerDrops++ }

func TestOptionInsertDropsOldZeroSized(t *testing.T) {
	markerDrops = 0
	var o Option[marker]
	o.Insert(marker{})
	if markerDrops != 0 {
		t.Fatalf("drops = %d after first Insert, want 0", markerDrops)
	}
	o.Insert(marker{})
	if markerDrops != 1 {
		t.Fatalf("drops = %d after overwriting, want 1", markerDrops)
	}
	if _, ok := o.Take(); !ok {
		t.Fatalf("Take() ok = false, want true")
	}
	o.Insert(marker{})
	if markerDrops != 1 {
		t.Fatalf("drops = %d after Insert into empty option, want 1", markerDrops)
	}
}

func TestOptionContended(t *testing.T) {
	var o Option[int]
	o.tag.Store(optBorrowed)

	back, err := o.Insert(9)
	if !errors.Is(err, ErrContended) {
		t.Fatalf("Insert() error = %v, want %v", err, ErrContended)
	}
	if back != 9 {
		t.Fatalf("Insert() returned %d, want 9", back)
	}
	if _, ok := o.Take(); ok {
		t.Fatalf("Take() ok = true while borrowed, want false")
	}
	if got := o.tag.Load(); got != optBorrowed {
		t.Fatalf("tag = %d, want borrowed", got)
	}
}

func TestOptionZeroSized(t *testing.T) {
	var o Option[struct{}]
	if _, ok := o.Take(); ok {
		t.Fatalf("Take() ok = true on empty option, want false")
	}
	o.Insert(struct{}{})
	o.Insert(struct{}{})
	if _, ok := o.Take(); !ok {
		t.Fatalf("Take() ok = false after Insert, want true")
	}
	if _, ok := o.Take(); ok {
		t.Fatalf("second Take() ok = true, want false")
	}
}
