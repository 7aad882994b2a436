package types

import "github.com/mvsc-lang/mvsc/internal/ast"

// StructContext is Δ: the name → struct type environment (spec.md §4.1).
// Unit, the canonical empty struct, is pre-inserted as a built-in.
type StructContext struct {
	byName map[string]*StructType
	order  []string
}

func NewStructContext() *StructContext {
	sc := &StructContext{byName: make(map[string]*StructType)}
	sc.Insert(&StructType{Name: "Unit"})
	return sc
}

func (sc *StructContext) Insert(t *StructType) (dup bool) {
	if _, ok := sc.byName[t.Name]; ok {
		return true
	}
	sc.byName[t.Name] = t
	sc.order = append(sc.order, t.Name)
	return false
}

func (sc *StructContext) Lookup(name string) (*StructType, bool) {
	t, ok := sc.byName[name]
	return t, ok
}

// HasCycle reports whether the struct dependency graph (struct -> struct
// types of its fields) contains a cycle, violating spec.md §3's "no mutual
// recursion" invariant. Grounded on the same DFS-with-recursion-stack shape
// used for kind-inference cycle detection in the pack's type checkers.
func (sc *StructContext) HasCycle() (cycleStart string, found bool) {
	const (
		white = 0
		grey  = 1
		black = 2
	)
	color := make(map[string]int, len(sc.order))

	var visit func(name string) bool
	visit = func(name string) bool {
		switch color[name] {
		case black:
			return false
		case grey:
			return true
		}
		color[name] = grey
		if st, ok := sc.byName[name]; ok {
			for _, p := range st.Props {
				if dep, ok := structDepName(p.Elem); ok {
					if visit(dep) {
						return true
					}
				}
			}
		}
		color[name] = black
		return false
	}

	for _, name := range sc.order {
		if color[name] == white {
			if visit(name) {
				return name, true
			}
		}
	}
	return "", false
}

func structDepName(t Type) (string, bool) {
	switch t := t.(type) {
	case StructType:
		return t.Name, true
	case ArrayType:
		return structDepName(t.Elem)
	}
	return "", false
}

// Env is Γ: the name → (mutability, type) typing context from spec.md §4.1,
// implemented as a parent-linked chain of scopes (grounded on the pack's
// Scope/Lookup shape) so Func's "save Γ, downgrade to Let, restore Γ" rule
// is a cheap push/pop rather than a full-map copy.
type Env struct {
	parent *Env
	vars   map[string]binding
	// downgrade, when true, forces every lookup that reaches through this
	// frame (i.e. resolves in an ancestor) to report Let regardless of the
	// ancestor's recorded mutability — this implements Func's "downgrade
	// every outer binding to Let" rule without mutating the outer frames.
	downgrade bool
}

type binding struct {
	mut ast.Mutability
	typ Type
}

func NewEnv() *Env {
	return &Env{vars: make(map[string]binding)}
}

// Child returns a new scope nested in e. If downgrade is true, names
// resolved through e from the child (i.e. not bound directly in the child)
// are reported as Let — this is how Func's capture rule is implemented.
func (e *Env) Child(downgrade bool) *Env {
	return &Env{parent: e, vars: make(map[string]binding), downgrade: downgrade}
}

// Bind adds name -> (mut, typ) to the innermost scope.
func (e *Env) Bind(name string, mut ast.Mutability, typ Type) {
	e.vars[name] = binding{mut, typ}
}

// Unbind removes name from the innermost scope (spec.md §4.1's "remove the
// binding from Γ on exit").
func (e *Env) Unbind(name string) {
	delete(e.vars, name)
}

// Lookup resolves name, applying any downgrade-to-Let boundary crossed on
// the way to its defining scope.
func (e *Env) Lookup(name string) (mut ast.Mutability, typ Type, ok bool) {
	for scope := e; scope != nil; scope = scope.parent {
		if b, found := scope.vars[name]; found {
			if scope != e && crossesDowngrade(e, scope) {
				return ast.Let, b.typ, true
			}
			return b.mut, b.typ, true
		}
	}
	return ast.Let, nil, false
}

func crossesDowngrade(from, to *Env) bool {
	for s := from; s != to; s = s.parent {
		if s.downgrade {
			return true
		}
	}
	return false
}
