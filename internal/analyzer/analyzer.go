// Package analyzer checks one module: it binds declarations in dependency
// order, lowers type annotations, infers and checks expression and
// statement types with control-flow narrowing, and records diagnostics.
// Checking never aborts; malformed constructs produce the error
// placeholder and analysis continues.
package analyzer

import (
	"github.com/ah-yu/stc/internal/ast"
	"github.com/ah-yu/stc/internal/diag"
	"github.com/ah-yu/stc/internal/env"
	"github.com/ah-yu/stc/internal/narrow"
	"github.com/ah-yu/stc/internal/order"
	"github.com/ah-yu/stc/internal/position"
	"github.com/ah-yu/stc/internal/scope"
	"github.com/ah-yu/stc/internal/typeops"
	"github.com/ah-yu/stc/internal/types"
)

// Config wires the analyzer to a session's shared services.
type Config struct {
	// Relater is the shared type operations engine. Required.
	Relater *typeops.Relater
	// Env supplies ambient globals; nil analyzes with no ambient scope.
	Env *env.Environment
	// Deps maps module identifiers to the exports of already-analyzed
	// dependencies.
	Deps map[string]*scope.Exports
	// ExportsOnly binds declarations and publishes exports without
	// checking function bodies. Used for the pre-pass over dependency
	// cycles.
	ExportsOnly bool
}

// Result is the outcome of analyzing one module.
type Result struct {
	Module  string
	Types   map[ast.NodeID]*types.Type
	Bag     *diag.Bag
	Exports *scope.Exports
}

// Analyze checks module under cfg.
func Analyze(module *ast.Module, cfg Config) *Result {
	a := &analyzer{
		cfg:     cfg,
		r:       cfg.Relater,
		in:      cfg.Relater.Interner(),
		nar:     narrow.NewEngine(cfg.Relater),
		bag:     diag.NewBag(),
		types:   make(map[ast.NodeID]*types.Type),
		exports: scope.NewExports(),
		fns:     make(map[ast.NodeID]*loweredFunc),
		checked: make(map[ast.NodeID]bool),
	}

	var parent *scope.Scope
	if cfg.Env != nil {
		parent = cfg.Env.Globals()
	}
	a.modScope = scope.New(parent, scope.Module)

	a.bindImports(module)
	groups := a.collectGroups(module)
	a.resolveInOrder(groups)
	a.publishExports(groups)

	if !cfg.ExportsOnly {
		a.checkBodies(module)
	}

	return &Result{
		Module:  module.Name,
		Types:   a.types,
		Bag:     a.bag,
		Exports: a.exports,
	}
}

// declGroup collects the declarations sharing one name: merged interfaces,
// function overload sets, or a single declaration of any other kind.
type declGroup struct {
	name  string
	sym   *scope.Symbol
	decls []ast.Decl
}

type analyzer struct {
	cfg      Config
	r        *typeops.Relater
	in       *types.Interner
	nar      *narrow.Engine
	bag      *diag.Bag
	types    map[ast.NodeID]*types.Type
	modScope *scope.Scope
	exports  *scope.Exports
	fns      map[ast.NodeID]*loweredFunc
	checked  map[ast.NodeID]bool
}

func (a *analyzer) bindImports(module *ast.Module) {
	for _, imp := range module.Imports {
		exp, ok := a.cfg.Deps[imp.Module]
		if !ok {
			a.bag.Addf(diag.CodeUnknownModule, imp.Span, "cannot resolve module %q", imp.Module)
			for _, n := range imp.Names {
				sym := scope.NewSymbol(n.Local, scope.SymbolImport, 0)
				sym.Type = a.in.Error
				a.modScope.Declare(sym)
			}
			continue
		}
		for _, n := range imp.Names {
			remote, found := exp.Get(n.Remote)
			sym := scope.NewSymbol(n.Local, scope.SymbolImport, 0)
			sym.Span = imp.Span
			if !found {
				a.bag.Addf(diag.CodeUndefinedIdentifier, imp.Span, "module %q has no exported member %q", imp.Module, n.Remote)
				sym.Type = a.in.Error
			} else {
				sym.Kind = remote.Kind
				sym.Type = remote.Type
				sym.Flags = remote.Flags &^ scope.FlagExported
				sym.AliasParams = remote.AliasParams
				sym.AliasBody = remote.AliasBody
				sym.Ctor = remote.Ctor
			}
			if _, ok := a.modScope.Declare(sym); !ok {
				a.bag.Addf(diag.CodeDuplicateDeclaration, imp.Span, "duplicate declaration of %q", n.Local)
			}
		}
	}
}

// collectGroups folds the module's declarations into named groups and
// declares a symbol per group.
func (a *analyzer) collectGroups(module *ast.Module) []*declGroup {
	var groups []*declGroup
	index := make(map[string]*declGroup)

	for _, d := range module.Decls {
		name := d.DeclName()
		if name == "" {
			continue
		}
		if g, ok := index[name]; ok {
			if a.canGroup(g, d) {
				g.decls = append(g.decls, d)
			} else {
				a.bag.Add(diag.Diagnostic{
					Severity: diag.SeverityError,
					Code:     diag.CodeDuplicateDeclaration,
					Message:  "duplicate declaration of " + name,
					Span:     spanOf(d),
					Related: []diag.Related{{
						Message: "previously declared here",
						Span:    spanOf(g.decls[0]),
					}},
				})
			}
			continue
		}
		g := &declGroup{name: name, decls: []ast.Decl{d}}
		index[name] = g
		groups = append(groups, g)
	}

	for _, g := range groups {
		sym := scope.NewSymbol(g.name, symbolKindFor(g.decls[0]), flagsFor(g.decls[0]))
		sym.Decl = g.decls[0]
		sym.Span = spanOf(g.decls[0])
		g.sym = sym
		if prev, ok := a.modScope.Declare(sym); !ok {
			a.bag.Addf(diag.CodeDuplicateDeclaration, sym.Span, "declaration of %q collides with %s %q", g.name, prev.Kind, prev.Name)
		}
	}
	return groups
}

// canGroup reports whether d may join group g: interface merging and
// function overload sets are the only multi-declaration groups.
func (a *analyzer) canGroup(g *declGroup, d ast.Decl) bool {
	switch g.decls[0].(type) {
	case *ast.InterfaceDecl:
		_, ok := d.(*ast.InterfaceDecl)
		return ok
	case *ast.FuncDecl:
		_, ok := d.(*ast.FuncDecl)
		return ok
	}
	return false
}

// resolveInOrder computes declared types group by group, dependencies
// first. Groups in a dependency cycle get forward Ref handles so their
// members can reference each other before any of them is complete.
func (a *analyzer) resolveInOrder(groups []*declGroup) {
	g := order.NewGraph(len(groups))
	indexOf := make(map[string]int, len(groups))
	for i, grp := range groups {
		indexOf[grp.name] = i
	}
	for i, grp := range groups {
		for dep := range a.groupDeps(grp) {
			if j, ok := indexOf[dep]; ok {
				g.AddEdge(i, j)
			}
		}
	}

	comps := g.SCCs()
	for _, comp := range g.Sort() {
		cyclic := len(comp) > 1 || g.Cyclic(comp[0], comps)
		if cyclic {
			for _, i := range comp {
				grp := groups[i]
				ref := a.in.NewRef(grp.name, uint64(grp.sym.ID))
				grp.sym.Ref = ref
				grp.sym.Type = ref
			}
		}
		for _, i := range comp {
			a.resolveGroup(groups[i])
		}
		if cyclic {
			for _, i := range comp {
				grp := groups[i]
				target := grp.sym.Type
				if target == grp.sym.Ref || target == nil {
					a.bag.Addf(diag.CodeInternalInconsistency, grp.sym.Span, "declaration %q did not resolve", grp.name)
					target = a.in.Error
					grp.sym.Type = target
				}
				if len(grp.sym.AliasParams) > 0 {
					a.in.BindGeneric(grp.sym.Ref, target, grp.sym.AliasParams)
				} else {
					a.in.Bind(grp.sym.Ref, target)
				}
			}
		}
	}
}

func (a *analyzer) publishExports(groups []*declGroup) {
	for _, g := range groups {
		if !g.sym.IsExported() {
			continue
		}
		a.exports.Add(g.sym)
	}
}

func symbolKindFor(d ast.Decl) scope.SymbolKind {
	switch d.(type) {
	case *ast.VarDecl:
		return scope.SymbolVar
	case *ast.FuncDecl:
		return scope.SymbolFunc
	case *ast.InterfaceDecl:
		return scope.SymbolInterface
	case *ast.ClassDecl:
		return scope.SymbolClass
	case *ast.TypeAliasDecl:
		return scope.SymbolTypeAlias
	}
	return scope.SymbolVar
}

func flagsFor(d ast.Decl) scope.Flags {
	var f scope.Flags
	switch d := d.(type) {
	case *ast.VarDecl:
		if d.Const {
			f |= scope.FlagConst
		}
		if d.Exported {
			f |= scope.FlagExported
		}
		if d.Ambient {
			f |= scope.FlagAmbient
		}
	case *ast.FuncDecl:
		f |= scope.FlagConst
		if d.Exported {
			f |= scope.FlagExported
		}
	case *ast.InterfaceDecl:
		if d.Exported {
			f |= scope.FlagExported
		}
	case *ast.ClassDecl:
		f |= scope.FlagConst
		if d.Exported {
			f |= scope.FlagExported
		}
	case *ast.TypeAliasDecl:
		if d.Exported {
			f |= scope.FlagExported
		}
	}
	return f
}

func spanOf(n ast.Node) position.Span { return n.GetSpan() }
