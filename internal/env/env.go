// Package env builds the ambient environment a module is checked
// against: the engine version, the declaration libraries compatible with
// it, and the global value and type symbols they contribute.
package env

import (
	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"

	"github.com/ah-yu/stc/internal/scope"
	"github.com/ah-yu/stc/internal/types"
)

// Lib is one declaration library: a named bundle of ambient symbols
// gated on an engine version constraint.
type Lib struct {
	Name string
	// Engine is a semver constraint expression; empty accepts any engine.
	Engine  string
	Symbols []*scope.Symbol
}

// Environment is the ambient root every module scope chains to.
type Environment struct {
	engine  *semver.Version
	in      *types.Interner
	globals *scope.Scope
	libs    []string
}

// New creates an environment for the given engine version string.
func New(in *types.Interner, engineVersion string) (*Environment, error) {
	v, err := semver.NewVersion(engineVersion)
	if err != nil {
		return nil, errors.Wrapf(err, "env: invalid engine version %q", engineVersion)
	}
	return &Environment{
		engine:  v,
		in:      in,
		globals: scope.New(nil, scope.Module),
	}, nil
}

// Engine returns the environment's engine version.
func (e *Environment) Engine() *semver.Version { return e.engine }

// Globals returns the ambient scope modules chain to.
func (e *Environment) Globals() *scope.Scope { return e.globals }

// Libs returns the names of the libraries seeded so far.
func (e *Environment) Libs() []string { return e.libs }

// Seed loads a library's symbols into the ambient scope. A library whose
// engine constraint excludes the environment's engine is rejected.
func (e *Environment) Seed(lib Lib) error {
	if lib.Engine != "" {
		c, err := semver.NewConstraint(lib.Engine)
		if err != nil {
			return errors.Wrapf(err, "env: library %s has invalid engine constraint", lib.Name)
		}
		if !c.Check(e.engine) {
			return errors.Errorf("env: library %s requires engine %s, have %s", lib.Name, lib.Engine, e.engine)
		}
	}
	for _, sym := range lib.Symbols {
		if prev, ok := e.globals.Declare(sym); !ok {
			// Later libraries override earlier declarations of the same
			// ambient name.
			prev.Type = sym.Type
			prev.Kind = sym.Kind
			prev.Flags = sym.Flags
		}
	}
	e.libs = append(e.libs, lib.Name)
	return nil
}

// Interner returns the interner ambient types are built with.
func (e *Environment) Interner() *types.Interner { return e.in }

// Core returns the baseline library: primitive aliases and the handful
// of generic globals the checker knows structurally, Promise first among
// them.
func Core(in *types.Interner) Lib {
	promise := corePromise(in)
	array := coreArray(in)

	mk := func(name string, kind scope.SymbolKind, t *types.Type) *scope.Symbol {
		s := scope.NewSymbol(name, kind, scope.FlagAmbient)
		s.Type = t
		return s
	}

	return Lib{
		Name: "core",
		Symbols: []*scope.Symbol{
			mk("Promise", scope.SymbolInterface, promise),
			mk("Array", scope.SymbolInterface, array),
			mk("undefined", scope.SymbolVar, in.Undefined),
			mk("NaN", scope.SymbolVar, in.Number),
			mk("Infinity", scope.SymbolVar, in.Number),
			mk("globalThis", scope.SymbolVar, in.Any),
		},
	}
}

// corePromise builds the generic Promise<T> shape the await rules key on.
func corePromise(in *types.Interner) *types.Type {
	tp := in.NewTypeParam("T", nil, nil)
	onfulfilled := in.Function(&types.Signature{
		Params: []types.Param{{Name: "value", Type: tp}},
		Return: in.Void,
	})
	return in.Interface(&types.InterfaceType{
		Name:       "Promise",
		TypeParams: []*types.Type{tp},
		Members: []types.Member{
			{
				Name: "then",
				Type: in.Function(&types.Signature{
					Params:   []types.Param{{Name: "onfulfilled", Type: in.Union(onfulfilled, in.Undefined)}},
					Return:   in.Void,
					IsMethod: true,
				}),
			},
			{
				Name: "catch",
				Type: in.Function(&types.Signature{
					Params: []types.Param{{Name: "onrejected", Type: in.Union(in.Function(&types.Signature{
						Params: []types.Param{{Name: "reason", Type: in.Any}},
						Return: in.Void,
					}), in.Undefined)}},
					Return:   in.Void,
					IsMethod: true,
				}),
			},
		},
	})
}

// coreArray builds the generic Array<T> interface, enough surface for
// element access and the common iteration members.
func coreArray(in *types.Interner) *types.Type {
	tp := in.NewTypeParam("T", nil, nil)
	return in.Interface(&types.InterfaceType{
		Name:       "Array",
		TypeParams: []*types.Type{tp},
		Members: []types.Member{
			{Name: "length", Readonly: true, Type: in.Number},
			{
				Name: "push",
				Type: in.Function(&types.Signature{
					Params:   []types.Param{{Name: "item", Type: tp}},
					Return:   in.Number,
					IsMethod: true,
				}),
			},
			{
				Name: "pop",
				Type: in.Function(&types.Signature{
					Return:   in.Union(tp, in.Undefined),
					IsMethod: true,
				}),
			},
			{
				Name: "includes",
				Type: in.Function(&types.Signature{
					Params:   []types.Param{{Name: "item", Type: tp}},
					Return:   in.Boolean,
					IsMethod: true,
				}),
			},
		},
	})
}
