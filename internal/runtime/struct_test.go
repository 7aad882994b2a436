package runtime

import (
	"testing"

	"github.com/mvsc-lang/mvsc/internal/machine"
)

func pointLayout() *machine.StructLayout {
	return &machine.StructLayout{
		Name: "P",
		Fields: []machine.StructField{
			{Name: "f", Meta: IntMetatype()},
			{Name: "s", Meta: IntMetatype()},
		},
	}
}

// TestStructCopyIsolatesFields reproduces spec.md §8's COW example:
// `struct P { var f: Int; var s: Int } in var p = P(4, 2) in var q = p in
// q.s = 8 in p.s` must yield 2, p.s's initial value — mutating q must never
// affect p.
func TestStructCopyIsolatesFields(t *testing.T) {
	layout := pointLayout()
	meta := StructMetatype(layout, true)

	p := NewStruct(layout, []machine.Value{int64(4), int64(2)})
	q := meta.Copy(p).(StructVal)

	q = q.Set("s", int64(8))

	if p.Get("s") != int64(2) {
		t.Fatalf("mutating q must not affect p, got p.s=%v", p.Get("s"))
	}
	if q.Get("s") != int64(8) {
		t.Fatalf("expected q.s=8, got %v", q.Get("s"))
	}
}

func TestStructCopyRetainsArrayFields(t *testing.T) {
	arrMeta := ArrayMetatype(IntMetatype())
	layout := &machine.StructLayout{
		Name:   "Box",
		Fields: []machine.StructField{{Name: "items", Meta: arrMeta}},
	}
	meta := StructMetatype(layout, false)

	a := intArray(1, 2, 3)
	box := NewStruct(layout, []machine.Value{a})
	copied := meta.Copy(box).(StructVal)

	copiedArr := copied.Get("items").(Array)
	if copiedArr.hdr != a.hdr {
		t.Fatalf("a struct copy must retain (share) its array field, not deep-clone it")
	}
	if copiedArr.IsUnique() {
		t.Fatalf("expected the retain to have bumped the array's refcount")
	}
}
