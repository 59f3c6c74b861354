// Package typeops implements the type operations engine: subtyping,
// assignability, union/intersection algebra, and generic instantiation and
// inference over the structural type model.
//
// Relation checks carry an explicit in-progress pair set threaded through
// every recursive call. Re-encountering a pair answers true (the
// coinductive assumption), which terminates comparison of recursive types.
// Only comparisons that complete without relying on an unresolved
// assumption are published to the session cache.
package typeops

import (
	"github.com/ah-yu/stc/internal/opcache"
	"github.com/ah-yu/stc/internal/types"
)

// Config carries the engine's tunables.
type Config struct {
	// MaxInstantiationDepth bounds recursive generic expansion; exceeding
	// it yields an error placeholder instead of unbounded recursion.
	MaxInstantiationDepth int
	// WidenInferredLiterals selects whether literal candidate types widen
	// to their base primitive during type argument inference.
	WidenInferredLiterals bool
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		MaxInstantiationDepth: 50,
		WidenInferredLiterals: true,
	}
}

// Relater exposes the type operations. It is safe for concurrent use: all
// mutable comparison state lives in per-call contexts, and the cache is
// concurrent by construction.
type Relater struct {
	in    *types.Interner
	cache *opcache.Cache
	cfg   Config
}

// New creates a Relater. cache may be nil to disable memoization.
func New(in *types.Interner, cache *opcache.Cache, cfg Config) *Relater {
	if cfg.MaxInstantiationDepth <= 0 {
		cfg.MaxInstantiationDepth = DefaultConfig().MaxInstantiationDepth
	}
	return &Relater{in: in, cache: cache, cfg: cfg}
}

// Interner returns the interner the relater builds types with.
func (r *Relater) Interner() *types.Interner { return r.in }

// Union computes the union of two types.
func (r *Relater) Union(a, b *types.Type) *types.Type {
	return r.in.Union(a, b)
}

// Intersect computes the intersection of two types.
func (r *Relater) Intersect(a, b *types.Type) *types.Type {
	return r.in.Intersection(a, b)
}

// IsSubtype reports whether a is a structural subtype of b.
func (r *Relater) IsSubtype(a, b *types.Type) bool {
	return r.checkRelation(opcache.OpSubtype, a, b, modeSubtype)
}

// Assignable reports whether a value of type src may be used where target
// is expected.
func (r *Relater) Assignable(src, target *types.Type) bool {
	return r.checkRelation(opcache.OpAssignable, src, target, modeAssign)
}

func (r *Relater) checkRelation(op opcache.OpKind, a, b *types.Type, mode relMode) bool {
	if r.cache == nil {
		return r.relate(newRelCtx(), a, b, mode)
	}
	key := opcache.Key{Op: op, A: a.Hash(), B: b.Hash()}
	res := r.cache.GetOrCompute(key, func() (opcache.Result, bool) {
		ctx := newRelCtx()
		holds := r.relate(ctx, a, b, mode)
		// Results that leaned on a coinductive assumption are not
		// eligible for the session cache.
		return opcache.Result{Holds: holds}, !ctx.assumed
	})
	return res.Holds
}
