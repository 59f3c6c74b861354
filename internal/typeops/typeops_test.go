package typeops_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ah-yu/stc/internal/opcache"
	"github.com/ah-yu/stc/internal/typeops"
	"github.com/ah-yu/stc/internal/types"
)

func newRelater(t *testing.T) (*typeops.Relater, *types.Interner) {
	t.Helper()
	in := types.NewInterner()
	return typeops.New(in, opcache.New(nil), typeops.DefaultConfig()), in
}

func TestAssignable_Reflexive(t *testing.T) {
	r, in := newRelater(t)

	samples := []*types.Type{
		in.String,
		in.Number,
		in.StringLiteral("a"),
		in.Union(in.String, in.Number),
		in.Array(in.Boolean, false),
		in.Object([]types.Member{{Name: "x", Type: in.Number}}),
		in.Function(&types.Signature{Params: []types.Param{{Name: "v", Type: in.String}}, Return: in.Void}),
	}
	for _, s := range samples {
		if !r.Assignable(s, s) {
			t.Errorf("%s not assignable to itself", s)
		}
		if !r.IsSubtype(s, s) {
			t.Errorf("%s not a subtype of itself", s)
		}
	}
}

func TestAssignable_TopAndBottom(t *testing.T) {
	r, in := newRelater(t)

	require.True(t, r.Assignable(in.String, in.Unknown))
	require.True(t, r.Assignable(in.Never, in.String))
	require.False(t, r.Assignable(in.Unknown, in.String))
	require.False(t, r.Assignable(in.String, in.Never))
	require.True(t, r.Assignable(in.Any, in.String))
	require.True(t, r.Assignable(in.String, in.Any))
}

func TestAssignable_ErrorAbsorbs(t *testing.T) {
	r, in := newRelater(t)

	require.True(t, r.Assignable(in.Error, in.String))
	require.True(t, r.Assignable(in.String, in.Error))
	require.True(t, r.Assignable(in.Error, in.Never))
}

func TestAssignable_Literals(t *testing.T) {
	r, in := newRelater(t)

	require.True(t, r.Assignable(in.StringLiteral("a"), in.String))
	require.False(t, r.Assignable(in.String, in.StringLiteral("a")))
	require.False(t, r.Assignable(in.StringLiteral("a"), in.StringLiteral("b")))
	require.True(t, r.Assignable(in.NumberLiteral(1), in.Number))
	require.False(t, r.Assignable(in.NumberLiteral(1), in.String))
	require.True(t, r.Assignable(in.Undefined, in.Void))
	require.False(t, r.Assignable(in.Null, in.Void))
}

func TestAssignable_Unions(t *testing.T) {
	r, in := newRelater(t)

	sn := in.Union(in.String, in.Number)
	require.True(t, r.Assignable(in.String, sn))
	require.True(t, r.Assignable(sn, in.Union(in.String, in.Number, in.Boolean)))
	require.False(t, r.Assignable(sn, in.String))
	require.True(t, r.Assignable(in.Union(in.StringLiteral("a"), in.StringLiteral("b")), in.String))
}

func TestAssignable_Objects(t *testing.T) {
	r, in := newRelater(t)

	xy := in.Object([]types.Member{
		{Name: "x", Type: in.Number},
		{Name: "y", Type: in.String},
	})
	x := in.Object([]types.Member{{Name: "x", Type: in.Number}})
	optY := in.Object([]types.Member{
		{Name: "x", Type: in.Number},
		{Name: "y", Optional: true, Type: in.String},
	})

	// Width subtyping: extra source members are fine, missing required
	// target members are not.
	require.True(t, r.Assignable(xy, x))
	require.False(t, r.Assignable(x, xy))
	require.True(t, r.Assignable(x, optY))
	require.True(t, r.Assignable(xy, optY))

	// An optional source member cannot satisfy a required target member.
	require.False(t, r.Assignable(optY, xy))
}

func TestAssignable_Functions(t *testing.T) {
	r, in := newRelater(t)

	takesAnimal := in.Function(&types.Signature{
		Params: []types.Param{{Name: "v", Type: in.Object([]types.Member{{Name: "name", Type: in.String}})}},
		Return: in.Void,
	})
	takesDog := in.Function(&types.Signature{
		Params: []types.Param{{Name: "v", Type: in.Object([]types.Member{
			{Name: "name", Type: in.String},
			{Name: "bark", Type: in.Boolean},
		})}},
		Return: in.Void,
	})

	// Parameters are contravariant for plain functions.
	require.True(t, r.Assignable(takesAnimal, takesDog))
	require.False(t, r.Assignable(takesDog, takesAnimal))

	// Methods compare bivariantly in assignability mode only.
	methodAnimal := in.Function(&types.Signature{
		Params:   []types.Param{{Name: "v", Type: in.Object([]types.Member{{Name: "name", Type: in.String}})}},
		Return:   in.Void,
		IsMethod: true,
	})
	methodDog := in.Function(&types.Signature{
		Params: []types.Param{{Name: "v", Type: in.Object([]types.Member{
			{Name: "name", Type: in.String},
			{Name: "bark", Type: in.Boolean},
		})}},
		Return:   in.Void,
		IsMethod: true,
	})
	require.True(t, r.Assignable(methodDog, methodAnimal))
	require.False(t, r.IsSubtype(methodDog, methodAnimal))

	// Fewer parameters are accepted, extra required ones are not.
	noArg := in.Function(&types.Signature{Return: in.Void})
	require.True(t, r.Assignable(noArg, takesAnimal))
	require.False(t, r.Assignable(takesAnimal, noArg))

	// Any return satisfies a void-returning target.
	retStr := in.Function(&types.Signature{Return: in.String})
	retVoid := in.Function(&types.Signature{Return: in.Void})
	require.True(t, r.Assignable(retStr, retVoid))
	require.False(t, r.Assignable(retVoid, retStr))
}

func TestAssignable_ArraysAndTuples(t *testing.T) {
	r, in := newRelater(t)

	nums := in.Array(in.Number, false)
	lits := in.Array(in.NumberLiteral(1), false)
	roNums := in.Array(in.Number, true)
	roLits := in.Array(in.NumberLiteral(1), true)

	// Mutable element slots are invariant.
	require.False(t, r.Assignable(lits, nums))
	require.False(t, r.Assignable(nums, lits))
	// Readonly targets are covariant and accept mutable sources.
	require.True(t, r.Assignable(lits, roNums))
	require.True(t, r.Assignable(nums, roNums))
	require.False(t, r.Assignable(roLits, nums))

	pair := in.Tuple([]types.TupleElem{{Type: in.String}, {Type: in.Number}}, nil, false)
	roPair := in.Tuple([]types.TupleElem{{Type: in.String}, {Type: in.Number}}, nil, true)
	shorter := in.Tuple([]types.TupleElem{{Type: in.String}}, nil, false)
	withOpt := in.Tuple([]types.TupleElem{{Type: in.String}, {Type: in.Number, Optional: true}}, nil, false)

	require.True(t, r.Assignable(pair, roPair))
	require.False(t, r.Assignable(roPair, pair))
	require.False(t, r.Assignable(shorter, pair))
	require.True(t, r.Assignable(shorter, withOpt))

	// Tuples flow into readonly arrays of a compatible element type.
	roSN := in.Array(in.Union(in.String, in.Number), true)
	require.True(t, r.Assignable(pair, roSN))
	require.False(t, r.Assignable(pair, in.Array(in.String, true)))
}

func TestAssignable_RecursiveTerminates(t *testing.T) {
	r, in := newRelater(t)

	// T = { next: T } compared against an identically shaped U must
	// terminate and hold by the coinductive rule.
	mk := func(name string, decl uint64) *types.Type {
		ref := in.NewRef(name, decl)
		iface := in.Interface(&types.InterfaceType{
			Name:    name,
			Members: []types.Member{{Name: "next", Type: ref}},
		})
		in.Bind(ref, iface)
		return iface
	}
	a := mk("A", 1)
	b := mk("B", 2)

	require.True(t, r.Assignable(a, b))
	require.True(t, r.Assignable(b, a))
}

func TestAssignable_InterfaceExtends(t *testing.T) {
	r, in := newRelater(t)

	base := in.Interface(&types.InterfaceType{
		Name:    "Base",
		Members: []types.Member{{Name: "id", Type: in.Number}},
	})
	derived := in.Interface(&types.InterfaceType{
		Name:    "Derived",
		Members: []types.Member{{Name: "label", Type: in.String}},
		Supers:  []*types.Type{base},
	})

	require.True(t, r.Assignable(derived, base))
	require.False(t, r.Assignable(base, derived))
}

func TestUnionIntersectionAlgebra(t *testing.T) {
	r, in := newRelater(t)

	u := r.Union(in.String, in.Number)
	require.Equal(t, u, r.Union(u, in.String), "union must be idempotent")

	require.Equal(t, in.Never, r.Intersect(in.String, in.Number))
	require.Equal(t, in.String, r.Intersect(in.String, in.Unknown))
	require.Equal(t, in.StringLiteral("a"), r.Intersect(in.StringLiteral("a"), in.String))
}

func TestNormalize_Keyof(t *testing.T) {
	r, in := newRelater(t)

	obj := in.Object([]types.Member{
		{Name: "a", Type: in.Number},
		{Name: "b", Type: in.String},
	})
	got := r.Normalize(in.Keyof(obj))
	want := in.Union(in.StringLiteral("a"), in.StringLiteral("b"))
	require.Equal(t, want, got)

	require.Equal(t, in.Number, r.Normalize(in.Keyof(in.Array(in.Boolean, false))))
}

func TestNormalize_Indexed(t *testing.T) {
	r, in := newRelater(t)

	obj := in.Object([]types.Member{
		{Name: "a", Type: in.Number},
		{Name: "b", Optional: true, Type: in.String},
	})
	require.Equal(t, in.Number, r.Normalize(in.Indexed(obj, in.StringLiteral("a"))))
	require.Equal(t, in.Union(in.String, in.Undefined), r.Normalize(in.Indexed(obj, in.StringLiteral("b"))))
	require.Equal(t, in.Error, r.Normalize(in.Indexed(obj, in.StringLiteral("missing"))))

	// Indexing by keyof yields the union of all member types.
	all := r.Normalize(in.Indexed(obj, in.Keyof(obj)))
	require.Equal(t, in.Union(in.Number, in.String, in.Undefined), all)
}

func TestNormalize_Conditional(t *testing.T) {
	r, in := newRelater(t)

	got := r.Normalize(in.Conditional(in.StringLiteral("x"), in.String, in.NumberLiteral(1), in.NumberLiteral(2)))
	require.Equal(t, in.NumberLiteral(1), got)

	got = r.Normalize(in.Conditional(in.Boolean, in.String, in.NumberLiteral(1), in.NumberLiteral(2)))
	require.Equal(t, in.NumberLiteral(2), got)

	// A free check type stays unresolved.
	tp := in.NewTypeParam("T", nil, nil)
	cond := in.Conditional(tp, in.String, in.Number, in.Boolean)
	require.Equal(t, cond, r.Normalize(cond))

	// Union checks distribute.
	got = r.Normalize(in.Conditional(in.Union(in.StringLiteral("a"), in.NumberLiteral(1)), in.String, in.StringLiteral("yes"), in.StringLiteral("no")))
	require.Equal(t, in.Union(in.StringLiteral("yes"), in.StringLiteral("no")), got)
}

func TestNormalize_Mapped(t *testing.T) {
	r, in := newRelater(t)

	obj := in.Object([]types.Member{
		{Name: "a", Type: in.Number},
		{Name: "b", Type: in.String},
	})
	k := in.NewTypeParam("K", nil, nil)
	mapped := in.Mapped(k, in.Keyof(obj), in.Indexed(obj, k), true, true)

	got := r.Normalize(mapped)
	want := in.Object([]types.Member{
		{Name: "a", Optional: true, Readonly: true, Type: in.Number},
		{Name: "b", Optional: true, Readonly: true, Type: in.String},
	})
	require.Equal(t, want, got)
}

func TestInstantiate_Generic(t *testing.T) {
	r, in := newRelater(t)

	tp := in.NewTypeParam("T", nil, nil)
	box := in.Interface(&types.InterfaceType{
		Name:       "Box",
		TypeParams: []*types.Type{tp},
		Members:    []types.Member{{Name: "value", Type: tp}},
	})

	got, err := r.Instantiate(box, []*types.Type{in.String})
	require.NoError(t, err)
	members := got.Data.(*types.InterfaceType).Members
	require.Len(t, members, 1)
	require.Equal(t, in.String, members[0].Type)

	// Same arguments intern to the same instantiation.
	again, err := r.Instantiate(box, []*types.Type{in.String})
	require.NoError(t, err)
	require.Same(t, got, again)

	// Missing arguments fall back to the parameter default, then any.
	withDefault := in.NewTypeParam("U", nil, in.Number)
	pair := in.Interface(&types.InterfaceType{
		Name:       "Pair",
		TypeParams: []*types.Type{withDefault},
		Members:    []types.Member{{Name: "u", Type: withDefault}},
	})
	got, err = r.Instantiate(pair, nil)
	require.NoError(t, err)
	require.Equal(t, in.Number, got.Data.(*types.InterfaceType).Members[0].Type)
}

func TestInstantiate_DepthLimit(t *testing.T) {
	in := types.NewInterner()
	cfg := typeops.DefaultConfig()
	cfg.MaxInstantiationDepth = 4
	r := typeops.New(in, nil, cfg)

	tp := in.NewTypeParam("T", nil, nil)
	deep := tp
	for i := 0; i < 20; i++ {
		deep = in.Array(deep, false)
	}
	generic := in.Interface(&types.InterfaceType{
		Name:       "Deep",
		TypeParams: []*types.Type{tp},
		Members:    []types.Member{{Name: "v", Type: deep}},
	})

	got, err := r.Instantiate(generic, []*types.Type{in.String})
	require.ErrorIs(t, err, typeops.ErrDepthExceeded)
	require.Equal(t, in.Error, got)
}

func TestInferTypeArgs_Identity(t *testing.T) {
	r, in := newRelater(t)

	tp := in.NewTypeParam("T", nil, nil)
	sig := &types.Signature{
		TypeParams: []*types.Type{tp},
		Params:     []types.Param{{Name: "v", Type: tp}},
		Return:     tp,
	}

	res := r.InferTypeArgs(sig, []*types.Type{in.StringLiteral("hi")}, nil)
	require.True(t, res.Ok())
	require.Equal(t, in.String, res.Args[0], "inferred literal should widen")

	// Explicit arguments win over inference.
	res = r.InferTypeArgs(sig, []*types.Type{in.StringLiteral("hi")}, []*types.Type{in.Union(in.String, in.Number)})
	require.True(t, res.Ok())
	require.Equal(t, in.Union(in.String, in.Number), res.Args[0])
}

func TestInferTypeArgs_JoinAndConstraint(t *testing.T) {
	r, in := newRelater(t)

	tp := in.NewTypeParam("T", nil, nil)
	sig := &types.Signature{
		TypeParams: []*types.Type{tp},
		Params: []types.Param{
			{Name: "a", Type: tp},
			{Name: "b", Type: tp},
		},
		Return: tp,
	}
	res := r.InferTypeArgs(sig, []*types.Type{in.String, in.Number}, nil)
	require.True(t, res.Ok())
	require.Equal(t, in.Union(in.String, in.Number), res.Args[0])

	bounded := in.NewTypeParam("T", in.String, nil)
	sig = &types.Signature{
		TypeParams: []*types.Type{bounded},
		Params:     []types.Param{{Name: "v", Type: bounded}},
		Return:     bounded,
	}
	res = r.InferTypeArgs(sig, []*types.Type{in.Number}, nil)
	require.False(t, res.Ok())
	require.Equal(t, []string{"T"}, res.Failed)
	require.Equal(t, in.Error, res.Args[0])
}

func TestInferTypeArgs_StructuralPositions(t *testing.T) {
	r, in := newRelater(t)

	tp := in.NewTypeParam("T", nil, nil)
	sig := &types.Signature{
		TypeParams: []*types.Type{tp},
		Params:     []types.Param{{Name: "items", Type: in.Array(tp, false)}},
		Return:     tp,
	}
	res := r.InferTypeArgs(sig, []*types.Type{in.Array(in.Boolean, false)}, nil)
	require.True(t, res.Ok())
	require.Equal(t, in.Boolean, res.Args[0])

	// No usable candidate and no default records a failure.
	res = r.InferTypeArgs(sig, []*types.Type{in.Number}, nil)
	require.False(t, res.Ok())
}

func TestAwaited(t *testing.T) {
	r, in := newRelater(t)

	tp := in.NewTypeParam("T", nil, nil)
	promise := in.Interface(&types.InterfaceType{
		Name:       "Promise",
		TypeParams: []*types.Type{tp},
		Members: []types.Member{{
			Name: "then",
			Type: in.Function(&types.Signature{
				Params: []types.Param{{
					Name: "onfulfilled",
					Type: in.Function(&types.Signature{
						Params: []types.Param{{Name: "value", Type: tp}},
						Return: in.Void,
					}),
				}},
				Return: in.Void,
				IsMethod: true,
			}),
		}},
	})

	// Nested promises unwrap all the way down.
	nested := in.Apply(promise, []*types.Type{in.Apply(promise, []*types.Type{in.String})})
	require.Equal(t, in.String, r.Awaited(nested))

	// Unions distribute.
	u := in.Union(in.Apply(promise, []*types.Type{in.Number}), in.Boolean)
	require.Equal(t, in.Union(in.Number, in.Boolean), r.Awaited(u))

	// Non-thenables pass through.
	require.Equal(t, in.String, r.Awaited(in.String))
}

func TestPropertyType_Union(t *testing.T) {
	r, in := newRelater(t)

	circle := in.Object([]types.Member{
		{Name: "kind", Type: in.StringLiteral("circle")},
		{Name: "radius", Type: in.Number},
		{Name: "label", Type: in.String},
	})
	square := in.Object([]types.Member{
		{Name: "kind", Type: in.StringLiteral("square")},
		{Name: "side", Type: in.Number},
		{Name: "label", Optional: true, Type: in.String},
	})
	shape := in.Union(circle, square)

	kind, ok := r.PropertyType(shape, "kind")
	require.True(t, ok)
	require.Equal(t, in.Union(in.StringLiteral("circle"), in.StringLiteral("square")), kind.Type)
	require.False(t, kind.Optional)

	// A property missing from any arm does not exist on the union.
	_, ok = r.PropertyType(shape, "radius")
	require.False(t, ok)

	// Optional on one arm makes the union view optional.
	label, ok := r.PropertyType(shape, "label")
	require.True(t, ok)
	require.True(t, label.Optional)
	require.Equal(t, in.String, label.Type)
}

func TestNormalize_GenericAliasHandle(t *testing.T) {
	r, in := newRelater(t)

	tp := in.NewTypeParam("T", nil, nil)
	ref := in.NewRef("Chain", 1)
	body := in.Object([]types.Member{
		{Name: "value", Type: tp},
		{Name: "next", Type: in.Apply(ref, []*types.Type{tp})},
	})
	require.True(t, in.BindGeneric(ref, body, []*types.Type{tp}))

	got := r.Normalize(in.Apply(ref, []*types.Type{in.Number}))
	require.Equal(t, types.KindObject, got.Kind)

	value, ok := r.PropertyType(got, "value")
	require.True(t, ok)
	require.Equal(t, in.Number, value.Type)

	// The recursive member expands to the same instantiation.
	next, ok := r.PropertyType(got, "next")
	require.True(t, ok)
	require.Same(t, got, r.Normalize(next.Type))
}
