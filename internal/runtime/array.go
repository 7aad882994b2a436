// Package runtime implements mvs-calculus's composite value
// representations — copy-on-write arrays, structs, closures, and the
// type-erased Any existential — grounded directly on the atomic,
// acquire/release reference-counted state machine in
// original_source/Runtime/runtime.cc, generalized from raw pointers and
// manual malloc/free to Go slices and garbage-collected headers.
package runtime

import (
	"sync/atomic"

	"github.com/mvsc-lang/mvsc/internal/machine"
)

// arrayHeader is the shared storage behind every Array handle that
// aliases it, mirroring runtime.cc's ArrayHeader (refc, count, capacity).
// Go's GC reclaims it once unreachable; refc exists purely to decide
// whether Uniq must clone, exactly as in the original.
type arrayHeader struct {
	refc  int64
	elems []machine.Value
	meta  *machine.Metatype // the array's own metatype (ElemMeta set)
}

// Array is a COW handle: copying the Go value (via Retain) is cheap and
// shares storage; mutating through Set always goes through Uniq first.
type Array struct {
	hdr *arrayHeader
}

// NewArray takes ownership of elems (mirrors mvs_array_init with an
// already-initialized payload) and returns a uniquely-owned handle.
func NewArray(elems []machine.Value, meta *machine.Metatype) Array {
	return Array{hdr: &arrayHeader{refc: 1, elems: elems, meta: meta}}
}

// Retain mirrors mvs_array_copy: copy the reference, bump the refcount.
func (a Array) Retain() Array {
	if a.hdr == nil {
		return a
	}
	atomic.AddInt64(&a.hdr.refc, 1)
	return a
}

// Release mirrors mvs_array_drop: decrement the refcount, and if it
// reaches zero, drop every element through the array's element metatype.
// Go's allocator reclaims the header itself; Release's only job is to keep
// the refcount accurate so a later Uniq can tell whether it is alone.
func (a Array) Release() {
	if a.hdr == nil {
		return
	}
	if atomic.AddInt64(&a.hdr.refc, -1) != 0 {
		return
	}
	if a.hdr.meta != nil && a.hdr.meta.ElemMeta != nil && a.hdr.meta.ElemMeta.Drop != nil {
		for _, e := range a.hdr.elems {
			a.hdr.meta.ElemMeta.Drop(e)
		}
	}
}

// Len returns the element count.
func (a Array) Len() int64 { return int64(len(a.hdr.elems)) }

// Get reads an element by index without affecting uniqueness.
func (a Array) Get(i int64) machine.Value { return a.hdr.elems[i] }

// Uniq mirrors mvs_array_uniq: if the backing storage has more than one
// referent, clone it element-wise through the element metatype's Copy
// (never a raw block copy, so a non-trivial element type's own COW
// invariants are preserved — this resolves the open question of whether
// array_uniq on non-trivial elements may shortcut to memcpy: it may not).
// Calling Uniq on an already-unique array is a no-op, preserving spec.md
// §8 invariant 8.
func (a Array) Uniq() Array {
	if atomic.LoadInt64(&a.hdr.refc) <= 1 {
		return a
	}

	elemMeta := a.hdr.meta.ElemMeta
	next := make([]machine.Value, len(a.hdr.elems))
	for i, e := range a.hdr.elems {
		if elemMeta != nil && elemMeta.Copy != nil {
			next[i] = elemMeta.Copy(e)
		} else {
			next[i] = e
		}
	}

	atomic.AddInt64(&a.hdr.refc, -1)
	return Array{hdr: &arrayHeader{refc: 1, elems: next, meta: a.hdr.meta}}
}

// Set returns an array with index i holding v, uniquifying storage first
// if it is shared.
func (a Array) Set(i int64, v machine.Value) Array {
	u := a.Uniq()
	u.hdr.elems[i] = v
	return u
}

// IsUnique reports whether this handle is the only referent of its
// storage — exposed for tests exercising spec.md §8's COW invariants.
func (a Array) IsUnique() bool { return atomic.LoadInt64(&a.hdr.refc) == 1 }

// Equal mirrors mvs_array_equal: trivially true for shared storage,
// otherwise element-wise via the element metatype's Equal.
func (a Array) Equal(b Array) bool {
	if a.hdr == b.hdr {
		return true
	}
	if len(a.hdr.elems) != len(b.hdr.elems) {
		return false
	}
	elemMeta := a.hdr.meta.ElemMeta
	for i := range a.hdr.elems {
		if elemMeta != nil && elemMeta.Equal != nil {
			if !elemMeta.Equal(a.hdr.elems[i], b.hdr.elems[i]) {
				return false
			}
		} else if a.hdr.elems[i] != b.hdr.elems[i] {
			return false
		}
	}
	return true
}

// ArrayMetatype builds (or should be called once and cached by the
// emitter for) the metatype of an array whose elements have elemMeta.
func ArrayMetatype(elemMeta *machine.Metatype) *machine.Metatype {
	m := &machine.Metatype{
		Size:     8, // handle-sized at the machine level; payload is heap-allocated
		Trivial:  false,
		ElemMeta: elemMeta,
	}
	m.Copy = func(v machine.Value) machine.Value { return v.(Array).Retain() }
	m.Drop = func(v machine.Value) { v.(Array).Release() }
	m.Equal = func(a, b machine.Value) bool { return a.(Array).Equal(b.(Array)) }
	return m
}
