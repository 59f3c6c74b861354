package env_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ah-yu/stc/internal/env"
	"github.com/ah-yu/stc/internal/scope"
	"github.com/ah-yu/stc/internal/types"
)

func TestNew_RejectsBadVersion(t *testing.T) {
	_, err := env.New(types.NewInterner(), "not-a-version")
	require.Error(t, err)
}

func TestSeed_EngineConstraint(t *testing.T) {
	in := types.NewInterner()
	e, err := env.New(in, "2.3.0")
	require.NoError(t, err)

	require.NoError(t, e.Seed(env.Lib{Name: "ok", Engine: ">=2.0.0 <3.0.0"}))
	require.NoError(t, e.Seed(env.Lib{Name: "any"}))

	err = e.Seed(env.Lib{Name: "tooNew", Engine: ">=3.0.0"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "tooNew")

	require.Equal(t, []string{"ok", "any"}, e.Libs())
}

func TestSeed_LaterLibraryOverrides(t *testing.T) {
	in := types.NewInterner()
	e, err := env.New(in, "1.0.0")
	require.NoError(t, err)

	first := scope.NewSymbol("setTimeout", scope.SymbolVar, scope.FlagAmbient)
	first.Type = in.Any
	require.NoError(t, e.Seed(env.Lib{Name: "base", Symbols: []*scope.Symbol{first}}))

	second := scope.NewSymbol("setTimeout", scope.SymbolVar, scope.FlagAmbient)
	second.Type = in.Function(&types.Signature{Return: in.Number})
	require.NoError(t, e.Seed(env.Lib{Name: "dom", Symbols: []*scope.Symbol{second}}))

	got, ok := e.Globals().Lookup("setTimeout")
	require.True(t, ok)
	require.Equal(t, second.Type, got.Type)
}

func TestCore_PromiseShape(t *testing.T) {
	in := types.NewInterner()
	e, err := env.New(in, "1.0.0")
	require.NoError(t, err)
	require.NoError(t, e.Seed(env.Core(in)))

	p, ok := e.Globals().Lookup("Promise")
	require.True(t, ok)
	require.Equal(t, scope.SymbolInterface, p.Kind)

	it := p.Type.AsInterface()
	require.NotNil(t, it)
	require.Equal(t, "Promise", it.Name)
	require.Len(t, it.TypeParams, 1)
}
