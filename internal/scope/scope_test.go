package scope_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ah-yu/stc/internal/scope"
)

func TestDeclareAndLookup(t *testing.T) {
	mod := scope.New(nil, scope.Module)

	x := scope.NewSymbol("x", scope.SymbolVar, scope.FlagConst)
	got, ok := mod.Declare(x)
	require.True(t, ok)
	require.Same(t, x, got)

	sym, ok := mod.Lookup("x")
	require.True(t, ok)
	require.Same(t, x, sym)
	require.True(t, sym.IsConst())

	_, ok = mod.Lookup("y")
	require.False(t, ok)
}

func TestDeclare_DuplicateReturnsExisting(t *testing.T) {
	mod := scope.New(nil, scope.Module)

	first := scope.NewSymbol("f", scope.SymbolFunc, 0)
	_, ok := mod.Declare(first)
	require.True(t, ok)

	second := scope.NewSymbol("f", scope.SymbolFunc, 0)
	prev, ok := mod.Declare(second)
	require.False(t, ok)
	require.Same(t, first, prev)
}

func TestLookup_ChainAndShadowing(t *testing.T) {
	mod := scope.New(nil, scope.Module)
	fn := scope.New(mod, scope.Function)
	blk := scope.New(fn, scope.Block)

	outer := scope.NewSymbol("v", scope.SymbolVar, 0)
	mod.Declare(outer)

	sym, ok := blk.Lookup("v")
	require.True(t, ok)
	require.Same(t, outer, sym)

	inner := scope.NewSymbol("v", scope.SymbolVar, 0)
	blk.Declare(inner)

	sym, _ = blk.Lookup("v")
	require.Same(t, inner, sym)
	sym, _ = fn.Lookup("v")
	require.Same(t, outer, sym)

	_, ok = blk.LookupLocal("missing")
	require.False(t, ok)
}

func TestFuncScope(t *testing.T) {
	mod := scope.New(nil, scope.Module)
	fn := scope.New(mod, scope.Function)
	blk := scope.New(fn, scope.Block)

	require.Same(t, fn, blk.FuncScope())
	require.Same(t, fn, fn.FuncScope())
	require.Nil(t, mod.FuncScope())
}

func TestSymbols_DeclarationOrder(t *testing.T) {
	mod := scope.New(nil, scope.Module)
	a := scope.NewSymbol("a", scope.SymbolVar, 0)
	b := scope.NewSymbol("b", scope.SymbolVar, 0)
	c := scope.NewSymbol("c", scope.SymbolVar, 0)
	mod.Declare(b)
	mod.Declare(a)
	mod.Declare(c)

	syms := mod.Symbols()
	require.Len(t, syms, 3)
	require.Equal(t, []*scope.Symbol{b, a, c}, syms)
	require.Equal(t, 0, b.Order)
	require.Equal(t, 2, c.Order)
}

func TestExports_LastAdditionWins(t *testing.T) {
	e := scope.NewExports()

	first := scope.NewSymbol("Shape", scope.SymbolInterface, scope.FlagExported)
	e.Add(first)
	merged := scope.NewSymbol("Shape", scope.SymbolInterface, scope.FlagExported)
	e.Add(merged)
	e.Add(scope.NewSymbol("area", scope.SymbolFunc, scope.FlagExported))

	require.Equal(t, 2, e.Len())
	require.Equal(t, []string{"Shape", "area"}, e.Names())

	sym, ok := e.Get("Shape")
	require.True(t, ok)
	require.Same(t, merged, sym)
}
