// Package narrow implements control-flow type narrowing: persistent fact
// maps recording what is known about a binding on a control-flow path,
// and the narrowing operators that refine union types under guards.
package narrow

import (
	"github.com/benbjohnson/immutable"

	"github.com/ah-yu/stc/internal/scope"
	"github.com/ah-yu/stc/internal/types"
)

// symbolHasher hashes scope.SymbolID keys for the persistent map.
type symbolHasher struct{}

func (symbolHasher) Hash(key interface{}) uint32 {
	id := uint64(key.(scope.SymbolID))
	return uint32(id) ^ uint32(id>>32)
}

func (symbolHasher) Equal(a, b interface{}) bool {
	return a.(scope.SymbolID) == b.(scope.SymbolID)
}

var emptyFacts = immutable.NewMap(symbolHasher{})

// Facts maps symbols to the narrowed type known on the current path. The
// zero value is not usable; start from NewFacts. All operations return a
// new value and leave the receiver untouched, so branch states are cheap
// snapshots.
type Facts struct {
	m *immutable.Map
}

// NewFacts returns the empty fact set.
func NewFacts() Facts { return Facts{emptyFacts} }

// Len returns the number of recorded facts.
func (f Facts) Len() int { return f.m.Len() }

// Get returns the narrowed type recorded for id.
func (f Facts) Get(id scope.SymbolID) (*types.Type, bool) {
	v, ok := f.m.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*types.Type), true
}

// With records a narrowed type for id.
func (f Facts) With(id scope.SymbolID, t *types.Type) Facts {
	return Facts{f.m.Set(id, t)}
}

// Without drops the fact for id. Assignments to a binding invalidate
// whatever was known about it.
func (f Facts) Without(id scope.SymbolID) Facts {
	return Facts{f.m.Delete(id)}
}

// Join merges the fact sets of two control-flow paths. A fact survives
// only when both paths recorded one; the surviving type is the union of
// the two, built with in.
func (f Facts) Join(other Facts, in *types.Interner) Facts {
	// Iterate the smaller side.
	a, b := f, other
	if b.Len() < a.Len() {
		a, b = b, a
	}
	out := emptyFacts
	it := a.m.Iterator()
	for !it.Done() {
		k, v := it.Next()
		bv, ok := b.m.Get(k)
		if !ok {
			continue
		}
		at := v.(*types.Type)
		bt := bv.(*types.Type)
		if at == bt {
			out = out.Set(k, at)
		} else {
			out = out.Set(k, in.Union(at, bt))
		}
	}
	return Facts{out}
}

// Equal reports whether two fact sets record the same types for the same
// symbols. Used to detect the fixed point when re-checking loop bodies.
func (f Facts) Equal(other Facts) bool {
	if f.Len() != other.Len() {
		return false
	}
	it := f.m.Iterator()
	for !it.Done() {
		k, v := it.Next()
		ov, ok := other.m.Get(k)
		if !ok || ov.(*types.Type) != v.(*types.Type) {
			return false
		}
	}
	return true
}
