package narrow_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ah-yu/stc/internal/narrow"
	"github.com/ah-yu/stc/internal/scope"
	"github.com/ah-yu/stc/internal/typeops"
	"github.com/ah-yu/stc/internal/types"
)

func newEngine() (*narrow.Engine, *types.Interner) {
	in := types.NewInterner()
	r := typeops.New(in, nil, typeops.DefaultConfig())
	return narrow.NewEngine(r), in
}

func TestTruthy(t *testing.T) {
	e, in := newEngine()

	u := in.Union(in.String, in.Null, in.Undefined)
	whenTrue, whenFalse := e.Truthy(u)
	require.Equal(t, in.String, whenTrue)
	require.Equal(t, in.Union(in.String, in.Null, in.Undefined), whenFalse)

	whenTrue, whenFalse = e.Truthy(in.Boolean)
	require.Equal(t, in.BooleanLiteral(true), whenTrue)
	require.Equal(t, in.BooleanLiteral(false), whenFalse)

	// A type with no truthy members leaves the true branch unreachable.
	whenTrue, _ = e.Truthy(in.Union(in.Null, in.Undefined))
	require.Equal(t, in.Never, whenTrue)
}

func TestByTypeof(t *testing.T) {
	e, in := newEngine()

	u := in.Union(in.String, in.Number, in.Undefined)
	require.Equal(t, in.String, e.ByTypeof(u, "string", true))
	require.Equal(t, in.Union(in.Number, in.Undefined), e.ByTypeof(u, "string", false))
	require.Equal(t, in.Undefined, e.ByTypeof(u, "undefined", true))
	require.Equal(t, in.Never, e.ByTypeof(u, "function", true))

	// typeof null is "object".
	withNull := in.Union(in.String, in.Null)
	require.Equal(t, in.Null, e.ByTypeof(withNull, "object", true))

	// unknown survives any typeof test.
	require.Equal(t, in.Unknown, e.ByTypeof(in.Unknown, "string", true))
}

func TestNullish(t *testing.T) {
	e, in := newEngine()

	u := in.Union(in.String, in.Null, in.Undefined)
	require.Equal(t, in.String, e.NonNullish(u))
	require.Equal(t, in.Union(in.Null, in.Undefined), e.Nullish(u))
	require.Equal(t, in.Never, e.NonNullish(in.Null))
}

func TestByLiteral(t *testing.T) {
	e, in := newEngine()

	ab := in.Union(in.StringLiteral("a"), in.StringLiteral("b"))
	require.Equal(t, in.StringLiteral("a"), e.ByLiteral(ab, in.StringLiteral("a"), true))
	require.Equal(t, in.StringLiteral("b"), e.ByLiteral(ab, in.StringLiteral("a"), false))

	// Comparing a base primitive against a literal narrows the positive
	// branch but leaves the negative branch alone.
	require.Equal(t, in.String, e.ByLiteral(in.String, in.StringLiteral("a"), true))
	require.Equal(t, in.String, e.ByLiteral(in.String, in.StringLiteral("a"), false))
}

func TestByDiscriminant(t *testing.T) {
	e, in := newEngine()

	circle := in.Object([]types.Member{
		{Name: "kind", Type: in.StringLiteral("circle")},
		{Name: "radius", Type: in.Number},
	})
	square := in.Object([]types.Member{
		{Name: "kind", Type: in.StringLiteral("square")},
		{Name: "side", Type: in.Number},
	})
	shape := in.Union(circle, square)

	require.Equal(t, circle, e.ByDiscriminant(shape, "kind", in.StringLiteral("circle"), true))
	require.Equal(t, square, e.ByDiscriminant(shape, "kind", in.StringLiteral("circle"), false))
	require.Equal(t, in.Never, e.ByDiscriminant(shape, "kind", in.StringLiteral("triangle"), true))
}

func TestByIn(t *testing.T) {
	e, in := newEngine()

	withA := in.Object([]types.Member{{Name: "a", Type: in.Number}})
	withB := in.Object([]types.Member{{Name: "b", Type: in.String}})
	u := in.Union(withA, withB)

	require.Equal(t, withA, e.ByIn(u, "a", true))
	require.Equal(t, withB, e.ByIn(u, "a", false))

	// Optional properties keep the member on both branches.
	maybeA := in.Object([]types.Member{{Name: "a", Optional: true, Type: in.Number}})
	u2 := in.Union(maybeA, withB)
	require.Equal(t, maybeA, e.ByIn(u2, "a", true))
	require.Equal(t, u2, e.ByIn(u2, "a", false))
}

func TestFacts(t *testing.T) {
	_, in := newEngine()

	a := scope.NewSymbol("a", scope.SymbolVar, 0)
	b := scope.NewSymbol("b", scope.SymbolVar, 0)

	base := narrow.NewFacts()
	f1 := base.With(a.ID, in.String).With(b.ID, in.Number)
	require.Equal(t, 2, f1.Len())
	require.Equal(t, 0, base.Len(), "facts must be persistent")

	got, ok := f1.Get(a.ID)
	require.True(t, ok)
	require.Equal(t, in.String, got)

	f2 := f1.Without(a.ID)
	_, ok = f2.Get(a.ID)
	require.False(t, ok)
	_, ok = f1.Get(a.ID)
	require.True(t, ok)
}

func TestFactsJoin(t *testing.T) {
	_, in := newEngine()

	a := scope.NewSymbol("a", scope.SymbolVar, 0)
	b := scope.NewSymbol("b", scope.SymbolVar, 0)

	left := narrow.NewFacts().With(a.ID, in.String).With(b.ID, in.Number)
	right := narrow.NewFacts().With(a.ID, in.Null)

	joined := left.Join(right, in)

	// Facts missing on one side are dropped; common facts union.
	got, ok := joined.Get(a.ID)
	require.True(t, ok)
	require.Equal(t, in.Union(in.String, in.Null), got)
	_, ok = joined.Get(b.ID)
	require.False(t, ok)

	same := left.Join(left, in)
	require.True(t, same.Equal(left))
}
