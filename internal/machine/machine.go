// Package machine defines the lowered intermediate representation that
// internal/lower produces and internal/interp/internal/emit consume.
//
// Per spec.md §9's design notes, the code generator's "every rvalue is
// owned storage the caller must drop" contract and the metatype
// vtable-of-lifecycle-ops pattern are both modeled directly in types here,
// rather than left as an implicit convention: every node that denotes a
// memory location is a distinguished AddrNode (never a plain Node), and
// every type that needs copy/drop/equal behavior at this level carries an
// explicit *Metatype rather than a type tag dispatched at runtime.
package machine

// Value is the dynamic representation of a machine-level value: an int64,
// a float64, or one of the composite types defined in internal/runtime
// (Array, StructVal, Closure, Any). It is a plain alias rather than an
// interface defined in terms of runtime's types so that runtime can depend
// on machine (for Metatype) without machine depending back on runtime.
type Value = any

// Metatype is the data-record analogue of mvs_MetaType from the original
// runtime: a type's size plus its copy/drop/equal behavior. The code
// generator emits one per distinct array-element or struct type and caches
// it by (mangled) name, per spec.md §9's "Metatypes" note — internal/lower
// owns that cache (see lowerer.metaCache).
type Metatype struct {
	Name    string
	Size    int
	Trivial bool // no Array/Closure reachable through this type (for a struct: types.IsTrivial, which counts an Any field as trivial)

	// ElemMeta is non-nil iff this Metatype describes an array type.
	ElemMeta *Metatype

	// StructLayout is non-nil iff this Metatype describes a struct type.
	StructLayout *StructLayout

	Copy  func(Value) Value
	Drop  func(Value)
	Equal func(a, b Value) bool
}

// StructField is one field of a struct layout, in declaration order.
type StructField struct {
	Name string
	Meta *Metatype
}

// StructLayout is a struct type's fixed field shape, used both to
// construct StructVal instances and to build the struct's own Metatype
// (whose Copy/Drop/Equal recurse field-by-field).
type StructLayout struct {
	Name   string
	Fields []StructField
}

func (l *StructLayout) IndexOf(name string) int {
	for i, f := range l.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Node is a lowered expression. Every TExpr (internal/check) lowers to
// exactly one Node.
type Node interface{ isNode() }

// AddrNode is the lowered form of a Path: a location a value can be read
// from, written to, or borrowed from via Inout. Keeping this as a
// interface distinct from Node (rather than a Node with an "is this an
// lvalue" flag checked at use sites) is the concrete form spec.md §9's AST
// note describes for paths — a refinement of expressions, not a property
// of one.
type AddrNode interface {
	Node
	isAddr()
}

type LitInt struct{ Value int64 }
type LitFloat struct{ Value float64 }

// MakeArray builds a fresh, uniquely-owned array from already-lowered
// element nodes.
type MakeArray struct {
	Elems    []Node
	ElemMeta *Metatype

	// StackAlloc records escape analysis's verdict (spec.md §4.3): true when
	// the bound name this literal initializes never escapes its Let scope.
	// It is recorded only: internal/interp does not read it and always goes
	// through runtime.Array's atomic Retain/Release protocol.
	StackAlloc bool
}

// MakeStruct builds a fresh struct instance; Fields is positional,
// matching Layout.Fields' order.
type MakeStruct struct {
	Layout *StructLayout
	Fields []Node
}

// MakeClosure captures Slots (read, then copied per Metatype, into the
// closure's own environment) from the enclosing frame and bundles them
// with the named function, per spec.md §9's "Closures" note: the
// environment's destructor/copy/equal travel with the closure instance,
// not with a shared per-type metatype.
type MakeClosure struct {
	FuncName string
	Captures []CaptureSlot
}

type CaptureSlot struct {
	Name string
	Slot int
	Meta *Metatype
}

// OperRef is a first-class reference to a built-in operator (spec.md
// §4.1's Oper rule), e.g. the `+` in `[+, -]`.
type OperRef struct {
	Kind     OperKind
	Operand  *Metatype
	Result   *Metatype
}

// BinOp applies an operator to two already-lowered operands.
type BinOp struct {
	Kind     OperKind
	Lhs, Rhs Node
	Operand  *Metatype
}

// OperKind mirrors ast.OperKind at the lowered level, so internal/machine
// does not need to import internal/ast.
type OperKind int

const (
	OpEq OperKind = iota
	OpNe
	OpLt
	OpLe
	OpGe
	OpGt
	OpAdd
	OpSub
	OpMul
	OpDiv
)

// Call invokes a (possibly first-class) callee. InoutArgs gives, for each
// argument position that is an Inout parameter, the AddrNode the callee
// should be allowed to mutate through; non-inout positions carry a nil
// entry and read Args[i] by value instead.
type Call struct {
	Callee    Node
	Args      []Node
	InoutArgs []AddrNode
}

// Cond is a lowered `if`.
type Cond struct {
	Cond, Succ, Fail Node
}

// Cast changes the static metatype attached to a value without altering
// its representation (spec.md §4.1's Cast rule: allowed through Any, or
// between identical types).
type Cast struct {
	Value  Node
	Target *Metatype
}

// Let introduces a new slot in the current frame, evaluates Init into it,
// evaluates Body, then (if Meta is non-trivial) drops the slot's value.
type Let struct {
	Slot int
	Meta *Metatype
	Init Node
	Body Node
}

// LetFunc is Let's function-binding counterpart (spec.md §4.1's
// FuncBinding): the slot holds a Closure value built from Lit, so Body can
// use the bound name as a value. Recursive calls inside the literal do not
// read this slot; they go through GlobalFuncRef.
type LetFunc struct {
	Slot int
	Lit  MakeClosure
	Body Node
}

// Assign writes Value through Target, drops the value Target previously
// held (if non-trivial), then evaluates Body. IsWildcard marks a `_ =
// value in body` discard assignment, where Target is nil and Value is
// dropped immediately instead of stored.
type Assign struct {
	Target     AddrNode
	Value      Node
	IsWildcard bool
	Meta       *Metatype
	Body       Node
}

// --- AddrNode variants ---

// SlotAddr denotes a local binding or parameter by its frame slot index.
type SlotAddr struct {
	Slot int
	Name string
}

// FieldAddr denotes a struct field reached through Base.
type FieldAddr struct {
	Base  AddrNode
	Index int
	Name  string
}

// ElemAddr denotes an array element reached through Base.
type ElemAddr struct {
	Base  AddrNode
	Index Node
}

// AddrRead reads the current value stored at an AddrNode as an rvalue —
// this is how a bare NamePath/PropPath/ElemPath is lowered when it
// appears somewhere other than an assignment target or &-argument.
type AddrRead struct {
	Addr AddrNode
	Meta *Metatype
}

// InoutRef lowers `&path`, producing a borrowed reference to Target for
// passing to an Inout parameter — it is never itself stored into a slot.
type InoutRef struct {
	Target AddrNode
}

// GlobalFuncRef is a Call.Callee naming a function in Program.Funcs
// directly, bypassing closure construction entirely. internal/lower emits
// this for a self-recursive call to a FuncBinding name that captures
// nothing but itself (spec.md §4.4's "direct dispatch" rule) — the common
// case exercised by every recursive example in spec.md §8.
type GlobalFuncRef struct{ Name string }

// Materialize lowers a Path whose root is not a name but some other rvalue
// expression (e.g. `P(1, 2).f`, a struct literal's own field) — the CG
// contract's "origin" case: Value is evaluated once into an owned
// temporary, and the resulting AddrNode addresses into it. The temporary
// is never explicitly dropped; it is simply discarded once the enclosing
// operation (the Assign or AddrRead that produced this address) is done
// with it.
type Materialize struct{ Value Node }

func (LitInt) isNode()      {}
func (LitFloat) isNode()    {}
func (MakeArray) isNode()   {}
func (MakeStruct) isNode()  {}
func (MakeClosure) isNode() {}
func (OperRef) isNode()     {}
func (BinOp) isNode()       {}
func (Call) isNode()        {}
func (Cond) isNode()        {}
func (Cast) isNode()        {}
func (Let) isNode()         {}
func (LetFunc) isNode()     {}
func (Assign) isNode()      {}
func (SlotAddr) isNode()    {}
func (FieldAddr) isNode()   {}
func (ElemAddr) isNode()    {}
func (AddrRead) isNode()      {}
func (InoutRef) isNode()      {}
func (GlobalFuncRef) isNode() {}
func (Materialize) isNode()   {}

func (SlotAddr) isAddr()    {}
func (FieldAddr) isAddr()   {}
func (ElemAddr) isAddr()    {}
func (Materialize) isAddr() {}

// Func is one lowered function: its parameters (by slot), its output
// metatype, and its body. Inout parameters are addressed directly through
// the caller's frame (see Call.InoutArgs) rather than copied in.
type Func struct {
	Name     string
	Params   []Param
	// CaptureNames names the frame slots immediately following Params
	// that a closure invocation populates from its bundled environment
	// instead of from call arguments, in the same order computeCaptures
	// (internal/check) produced them.
	CaptureNames []string
	NumSlots     int // total frame size, including params, captures, and every Let slot
	Output       *Metatype
	Body         Node
}

type Param struct {
	Slot  int
	Name  string
	Meta  *Metatype
	Inout bool
}

// Program is a whole lowered compilation unit.
type Program struct {
	Metatypes map[string]*Metatype // cache by mangled type name
	Funcs     map[string]*Func
	Entry     Node
	// EntrySlots is the frame size needed to evaluate Entry at top level.
	EntrySlots int
}
