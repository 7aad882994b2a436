package runtime

import (
	"testing"

	"github.com/mvsc-lang/mvsc/internal/machine"
)

func intArray(vals ...int64) Array {
	elems := make([]machine.Value, len(vals))
	for i, v := range vals {
		elems[i] = v
	}
	meta := ArrayMetatype(IntMetatype())
	return NewArray(elems, meta)
}

func TestArrayRetainSharesStorage(t *testing.T) {
	a := intArray(1, 2, 3)
	b := a.Retain()

	if a.IsUnique() || b.IsUnique() {
		t.Fatalf("expected shared storage to report non-unique after Retain")
	}

	c := b.Set(0, int64(99))
	if a.Get(0) != int64(1) {
		t.Fatalf("mutating through one handle must not affect the other: got %v", a.Get(0))
	}
	if c.Get(0) != int64(99) {
		t.Fatalf("expected mutated copy to observe the write, got %v", c.Get(0))
	}
}

func TestArrayUniqIdempotentWhenAlreadyUnique(t *testing.T) {
	a := intArray(1, 2, 3)
	if !a.IsUnique() {
		t.Fatalf("a freshly constructed array must be unique")
	}
	u := a.Uniq()
	if u.hdr != a.hdr {
		t.Fatalf("Uniq on an already-unique array must be a no-op (spec invariant 8), got a new header")
	}
}

func TestArrayUniqClonesWhenShared(t *testing.T) {
	a := intArray(1, 2, 3)
	b := a.Retain()
	u := b.Uniq()
	if u.hdr == a.hdr {
		t.Fatalf("Uniq on shared storage must allocate a new header")
	}
	if !u.IsUnique() {
		t.Fatalf("the freshly cloned array must report unique")
	}
}

func TestArrayEqual(t *testing.T) {
	a := intArray(1, 2, 3)
	b := a.Retain()
	if !a.Equal(b) {
		t.Fatalf("arrays sharing storage must compare equal")
	}

	c := intArray(1, 2, 3)
	if !a.Equal(c) {
		t.Fatalf("arrays with equal elements but distinct storage must compare equal")
	}

	d := intArray(1, 2, 4)
	if a.Equal(d) {
		t.Fatalf("arrays differing in an element must not compare equal")
	}
}

// Resolves the open question of whether array_uniq on an array of
// non-trivial (themselves-arrays) elements may shortcut to a block copy:
// it must not. It goes through the element metatype's Copy, which for an
// array-typed element is Retain — sharing the inner storage rather than
// deep-cloning it — so uniquifying the outer array leaves the inner
// arrays' own COW protection intact.
func TestArrayOfNonTrivialElementsUniqRetainsElementsNotClones(t *testing.T) {
	elemMeta := ArrayMetatype(IntMetatype()) // an array-of-int is itself non-trivial
	inner1 := intArray(1, 2)
	outer := NewArray([]machine.Value{inner1}, ArrayMetatype(elemMeta))

	shared := outer.Retain()
	uniqued := shared.Uniq()

	gotInner := uniqued.Get(0).(Array)
	if gotInner.hdr != inner1.hdr {
		t.Fatalf("array_uniq must retain (share storage with) a non-trivial element's own Copy, not deep-clone it")
	}
	if gotInner.IsUnique() {
		t.Fatalf("expected the inner array's refcount to have been bumped by the retain")
	}

	mutated := gotInner.Set(0, int64(99))
	if inner1.Get(0) != int64(1) {
		t.Fatalf("mutating the retained-and-shared inner array must still uniquify before writing, got inner1[0]=%v", inner1.Get(0))
	}
	if mutated.Get(0) != int64(99) {
		t.Fatalf("expected the mutated inner array to observe the write, got %v", mutated.Get(0))
	}
}
