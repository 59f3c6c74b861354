package narrow

import (
	"github.com/ah-yu/stc/internal/typeops"
	"github.com/ah-yu/stc/internal/types"
)

// Engine refines types under control-flow guards. Narrowing filters union
// members; a type that narrows to nothing becomes never, which marks the
// path unreachable.
type Engine struct {
	r  *typeops.Relater
	in *types.Interner
}

// NewEngine creates a narrowing engine over r.
func NewEngine(r *typeops.Relater) *Engine {
	return &Engine{r: r, in: r.Interner()}
}

// filter keeps the union members of t satisfying keep. Non-union types
// are treated as single-member unions.
func (e *Engine) filter(t *types.Type, keep func(*types.Type) bool) *types.Type {
	t = e.r.Normalize(t.Deref())
	if u, ok := t.Data.(*types.UnionType); ok && t.Kind == types.KindUnion {
		kept := make([]*types.Type, 0, len(u.Members))
		for _, m := range u.Members {
			if keep(m) {
				kept = append(kept, m)
			}
		}
		return e.in.Union(kept...)
	}
	if keep(t) {
		return t
	}
	return e.in.Never
}

// Truthy splits t by a truthiness test, returning the types on the true
// and false branches. Boolean members split into their literals; other
// maybe-falsy members survive both sides unrefined.
func (e *Engine) Truthy(t *types.Type) (whenTrue, whenFalse *types.Type) {
	t = e.r.Normalize(t.Deref())
	members := []*types.Type{t}
	if u, ok := t.Data.(*types.UnionType); ok && t.Kind == types.KindUnion {
		members = u.Members
	}
	var tr, fa []*types.Type
	for _, m := range members {
		if !alwaysFalsy(m) {
			if m.Kind == types.KindBoolean {
				tr = append(tr, e.in.BooleanLiteral(true))
			} else {
				tr = append(tr, m)
			}
		}
		if maybeFalsy(m) {
			if m.Kind == types.KindBoolean {
				fa = append(fa, e.in.BooleanLiteral(false))
			} else {
				fa = append(fa, m)
			}
		}
	}
	return e.in.Union(tr...), e.in.Union(fa...)
}

func alwaysFalsy(t *types.Type) bool {
	switch t.Kind {
	case types.KindNull, types.KindUndefined, types.KindVoid, types.KindNever:
		return true
	case types.KindLiteral:
		lt := t.Data.(*types.LiteralType)
		switch v := lt.Value.(type) {
		case bool:
			return !v
		case string:
			return v == ""
		case float64:
			return v == 0
		}
	}
	return false
}

func maybeFalsy(t *types.Type) bool {
	if alwaysFalsy(t) {
		return true
	}
	switch t.Kind {
	case types.KindString, types.KindNumber, types.KindBoolean, types.KindBigInt, types.KindAny, types.KindUnknown, types.KindError:
		return true
	}
	return false
}

// ByTypeof narrows t under a `typeof x === tag` guard. affirm selects the
// branch where the comparison holds.
func (e *Engine) ByTypeof(t *types.Type, tag string, affirm bool) *types.Type {
	return e.filter(t, func(m *types.Type) bool {
		match := typeofMatch(m, tag)
		if affirm {
			return match != matchNo
		}
		return match != matchYes
	})
}

type matchResult int

const (
	matchNo matchResult = iota
	matchYes
	matchMaybe
)

func typeofMatch(t *types.Type, tag string) matchResult {
	var actual string
	switch t.Kind {
	case types.KindString:
		actual = "string"
	case types.KindNumber:
		actual = "number"
	case types.KindBoolean:
		actual = "boolean"
	case types.KindBigInt:
		actual = "bigint"
	case types.KindSymbol:
		actual = "symbol"
	case types.KindUndefined, types.KindVoid:
		actual = "undefined"
	case types.KindNull:
		// typeof null is "object".
		actual = "object"
	case types.KindLiteral:
		return typeofMatch(t.LiteralBase(), tag)
	case types.KindFunction:
		actual = "function"
	case types.KindObject, types.KindInterface, types.KindApplied, types.KindArray, types.KindTuple:
		actual = "object"
	default:
		return matchMaybe
	}
	if actual == tag {
		return matchYes
	}
	return matchNo
}

// NonNullish removes null and undefined from t, as an `x != null` guard
// or optional chain does.
func (e *Engine) NonNullish(t *types.Type) *types.Type {
	return e.filter(t, func(m *types.Type) bool {
		return m.Kind != types.KindNull && m.Kind != types.KindUndefined && m.Kind != types.KindVoid
	})
}

// Nullish keeps only the null and undefined members of t.
func (e *Engine) Nullish(t *types.Type) *types.Type {
	return e.filter(t, func(m *types.Type) bool {
		switch m.Kind {
		case types.KindNull, types.KindUndefined, types.KindVoid, types.KindAny, types.KindUnknown, types.KindError:
			return true
		}
		return false
	})
}

// ByLiteral narrows t under an equality comparison against a literal
// value (`x === lit`).
func (e *Engine) ByLiteral(t *types.Type, lit *types.Type, affirm bool) *types.Type {
	return e.filter(t, func(m *types.Type) bool {
		if affirm {
			return e.overlaps(m, lit)
		}
		// Only a definite match is excluded on the negative branch.
		return m != lit
	})
}

// ByDiscriminant narrows a tagged union under a comparison of property
// prop against the literal type lit.
func (e *Engine) ByDiscriminant(t *types.Type, prop string, lit *types.Type, affirm bool) *types.Type {
	return e.filter(t, func(m *types.Type) bool {
		pm, found := e.r.PropertyType(m, prop)
		if !found {
			// A member without the discriminant cannot match; keep it
			// only on the negative branch.
			return !affirm
		}
		if affirm {
			return e.overlaps(pm.Type, lit)
		}
		return !(pm.Type == lit || e.r.IsSubtype(pm.Type, lit))
	})
}

// ByIn narrows t under a `prop in x` guard.
func (e *Engine) ByIn(t *types.Type, prop string, affirm bool) *types.Type {
	return e.filter(t, func(m *types.Type) bool {
		pm, found := e.r.PropertyType(m, prop)
		if !found {
			return !affirm
		}
		if pm.Optional {
			// An optional property may be absent, so the member survives
			// both branches.
			return true
		}
		return affirm
	})
}

// ByInstance narrows t under an `x instanceof C` guard, where inst is the
// instance type C produces.
func (e *Engine) ByInstance(t *types.Type, inst *types.Type, affirm bool) *types.Type {
	return e.filter(t, func(m *types.Type) bool {
		if affirm {
			return e.overlaps(m, inst)
		}
		return !e.r.IsSubtype(m, inst)
	})
}

func (e *Engine) overlaps(a, b *types.Type) bool {
	if a.Kind == types.KindError || b.Kind == types.KindError {
		return false
	}
	return e.r.Assignable(a, b) || e.r.Assignable(b, a)
}
