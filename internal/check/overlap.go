package check

import "github.com/mvsc-lang/mvsc/internal/ast"

// MayOverlap implements spec.md §4.1.1's conservative overlap analysis: two
// paths rooted in different names never overlap; same-shape paths overlap
// inductively on their base; a dynamic (non-literal) array index is assumed
// to overlap with anything, since the analysis is static.
func MayOverlap(a, b ast.Expr) bool {
	switch a := a.(type) {
	case ast.NamePath:
		if b, ok := b.(ast.NamePath); ok {
			return a.Name == b.Name
		}
	case ast.PropPath:
		if b, ok := b.(ast.PropPath); ok {
			return a.Name == b.Name && MayOverlap(a.Base, b.Base)
		}
	case ast.ElemPath:
		if b, ok := b.(ast.ElemPath); ok {
			if !MayOverlap(a.Base, b.Base) {
				return false
			}
			ai, aLit := literalIndex(a.Index)
			bi, bLit := literalIndex(b.Index)
			if aLit && bLit {
				return ai == bi
			}
			return true // dynamic index: conservatively assume overlap
		}
	}

	// mixed shapes: a NamePath against a Prop/Elem path never overlaps;
	// mixed Prop/Elem strips the outer selector off both sides and recurses
	// on the bases.
	_, aIsName := a.(ast.NamePath)
	_, bIsName := b.(ast.NamePath)
	if aIsName || bIsName {
		return false // a NamePath can only overlap another NamePath
	}
	return MayOverlap(strip(a), strip(b))
}

func literalIndex(e ast.Expr) (int64, bool) {
	if i, ok := e.(ast.IntExpr); ok {
		return i.Value, true
	}
	return 0, false
}

// strip peels the outermost selector off a path, used to handle the "mixed
// Prop/Elem" case by recursing on bases after confirming selector shape
// elsewhere.
func strip(p ast.Expr) ast.Expr {
	switch p := p.(type) {
	case ast.PropPath:
		return p.Base
	case ast.ElemPath:
		return p.Base
	}
	return p
}
