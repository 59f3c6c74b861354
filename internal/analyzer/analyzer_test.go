package analyzer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ah-yu/stc/internal/analyzer"
	"github.com/ah-yu/stc/internal/ast"
	"github.com/ah-yu/stc/internal/diag"
	"github.com/ah-yu/stc/internal/env"
	"github.com/ah-yu/stc/internal/opcache"
	"github.com/ah-yu/stc/internal/scope"
	"github.com/ah-yu/stc/internal/typeops"
	"github.com/ah-yu/stc/internal/types"
)

type session struct {
	in  *types.Interner
	r   *typeops.Relater
	env *env.Environment
}

func newSession(t *testing.T) *session {
	t.Helper()
	in := types.NewInterner()
	r := typeops.New(in, opcache.New(nil), typeops.DefaultConfig())
	e, err := env.New(in, "1.0.0")
	require.NoError(t, err)
	require.NoError(t, e.Seed(env.Core(in)))
	return &session{in: in, r: r, env: e}
}

func (s *session) analyze(t *testing.T, m *ast.Module, deps map[string]*scope.Exports) *analyzer.Result {
	t.Helper()
	return analyzer.Analyze(m, analyzer.Config{Relater: s.r, Env: s.env, Deps: deps})
}

func requireClean(t *testing.T, res *analyzer.Result) {
	t.Helper()
	for _, d := range res.Bag.All() {
		t.Errorf("unexpected diagnostic: %s %s", d.Code, d.Message)
	}
}

func mod(decls ...ast.Decl) *ast.Module {
	return &ast.Module{Name: "main", Decls: decls}
}

func id(name string) *ast.Ident { return &ast.Ident{Name: name} }

func str(v string) *ast.Lit  { return &ast.Lit{Kind: ast.LitString, Value: v} }
func num(v float64) *ast.Lit { return &ast.Lit{Kind: ast.LitNumber, Value: v} }
func null() *ast.Lit         { return &ast.Lit{Kind: ast.LitNull} }

func tn(name string, args ...ast.TypeExpr) *ast.TypeName {
	return &ast.TypeName{Name: name, Args: args}
}

func union(members ...ast.TypeExpr) *ast.UnionTypeExpr {
	return &ast.UnionTypeExpr{Members: members}
}

func param(name string, ann ast.TypeExpr) *ast.ParamDecl {
	return &ast.ParamDecl{Name: name, TypeAnn: ann}
}

func block(stmts ...ast.Stmt) *ast.Block { return &ast.Block{Stmts: stmts} }

func ret(x ast.Expr) *ast.ReturnStmt { return &ast.ReturnStmt{X: x} }

func exprStmt(x ast.Expr) *ast.ExprStmt { return &ast.ExprStmt{X: x} }

func member(x ast.Expr, name string) *ast.MemberExpr {
	return &ast.MemberExpr{X: x, Name: name}
}

func bin(op ast.BinOp, x, y ast.Expr) *ast.BinaryExpr {
	return &ast.BinaryExpr{Op: op, X: x, Y: y}
}

func prop(name string, te ast.TypeExpr) *ast.PropertySig {
	return &ast.PropertySig{Name: name, Type: te}
}

func fn(name string, params []*ast.ParamDecl, ret ast.TypeExpr, body *ast.Block) *ast.FuncDecl {
	return &ast.FuncDecl{Name: name, Params: params, Return: ret, Body: body}
}

func TestAnalyze_VarInference(t *testing.T) {
	s := newSession(t)
	cv := &ast.VarDecl{Name: "c", Const: true, Init: num(1)}
	lv := &ast.VarDecl{Name: "l", Init: num(1)}

	res := s.analyze(t, mod(cv, lv), nil)
	requireClean(t, res)

	ct := res.Types[cv.ID()]
	require.NotNil(t, ct)
	require.Equal(t, types.KindLiteral, ct.Kind)

	lt := res.Types[lv.ID()]
	require.NotNil(t, lt)
	require.Equal(t, types.KindNumber, lt.Kind)
}

func TestAnalyze_UndefinedIdentifier(t *testing.T) {
	s := newSession(t)
	m := mod(&ast.VarDecl{Name: "x", Init: id("missing")})

	res := s.analyze(t, m, nil)
	require.NotEmpty(t, res.Bag.ByCode(diag.CodeUndefinedIdentifier))
}

func TestAnalyze_AnnotationMismatch(t *testing.T) {
	s := newSession(t)
	m := mod(&ast.VarDecl{Name: "x", TypeAnn: tn("string"), Init: num(1)})

	res := s.analyze(t, m, nil)
	require.NotEmpty(t, res.Bag.ByCode(diag.CodeNotAssignable))
}

func TestAnalyze_ConstAssignment(t *testing.T) {
	s := newSession(t)
	m := mod(
		&ast.VarDecl{Name: "x", Const: true, Init: num(1)},
		fn("f", nil, nil, block(
			exprStmt(&ast.AssignExpr{Target: id("x"), Value: num(2)}),
		)),
	)

	res := s.analyze(t, m, nil)
	require.NotEmpty(t, res.Bag.ByCode(diag.CodeConstAssignment))
}

func TestAnalyze_ReadonlyAssignment(t *testing.T) {
	s := newSession(t)
	m := mod(
		&ast.InterfaceDecl{Name: "R", Members: []*ast.PropertySig{
			{Name: "a", Readonly: true, Type: tn("number")},
		}},
		fn("f", []*ast.ParamDecl{param("r", tn("R"))}, nil, block(
			exprStmt(&ast.AssignExpr{Target: member(id("r"), "a"), Value: num(1)}),
		)),
	)

	res := s.analyze(t, m, nil)
	require.NotEmpty(t, res.Bag.ByCode(diag.CodeReadonlyAssignment))
}

func TestAnalyze_DuplicateDeclaration(t *testing.T) {
	s := newSession(t)
	m := mod(
		&ast.VarDecl{Name: "x", Const: true, Init: num(1)},
		&ast.VarDecl{Name: "x", Const: true, Init: num(2)},
	)

	res := s.analyze(t, m, nil)
	require.NotEmpty(t, res.Bag.ByCode(diag.CodeDuplicateDeclaration))
}

func TestAnalyze_NarrowByTypeof(t *testing.T) {
	s := newSession(t)
	body := block(
		&ast.IfStmt{
			Cond: bin(ast.OpStrictEq, &ast.UnaryExpr{Op: ast.OpTypeof, X: id("x")}, str("string")),
			Then: block(ret(id("x"))),
		},
		ret(str("")),
	)
	m := mod(fn("f", []*ast.ParamDecl{param("x", union(tn("string"), tn("number")))}, tn("string"), body))

	res := s.analyze(t, m, nil)
	requireClean(t, res)
}

func TestAnalyze_NarrowByNullCheck(t *testing.T) {
	s := newSession(t)
	body := block(
		&ast.WhileStmt{
			Cond: bin(ast.OpStrictNeq, id("x"), null()),
			Body: block(ret(id("x"))),
		},
		ret(str("")),
	)
	m := mod(fn("f", []*ast.ParamDecl{param("x", union(tn("string"), tn("null")))}, tn("string"), body))

	res := s.analyze(t, m, nil)
	requireClean(t, res)
}

func shapeAlias() *ast.TypeAliasDecl {
	circle := &ast.ObjectTypeExpr{Members: []*ast.PropertySig{
		prop("kind", &ast.LitTypeExpr{Kind: ast.LitString, Value: "circle"}),
		prop("radius", tn("number")),
	}}
	square := &ast.ObjectTypeExpr{Members: []*ast.PropertySig{
		prop("kind", &ast.LitTypeExpr{Kind: ast.LitString, Value: "square"}),
		prop("side", tn("number")),
	}}
	return &ast.TypeAliasDecl{Name: "Shape", Target: union(circle, square)}
}

func TestAnalyze_NarrowByDiscriminant(t *testing.T) {
	s := newSession(t)
	body := block(
		&ast.IfStmt{
			Cond: bin(ast.OpStrictEq, member(id("s"), "kind"), str("circle")),
			Then: block(ret(member(id("s"), "radius"))),
		},
		ret(member(id("s"), "side")),
	)
	m := mod(shapeAlias(), fn("area", []*ast.ParamDecl{param("s", tn("Shape"))}, tn("number"), body))

	res := s.analyze(t, m, nil)
	requireClean(t, res)
}

func TestAnalyze_MissingPropertyWithoutNarrowing(t *testing.T) {
	s := newSession(t)
	m := mod(shapeAlias(), fn("f", []*ast.ParamDecl{param("s", tn("Shape"))}, tn("number"), block(
		ret(member(id("s"), "radius")),
	)))

	res := s.analyze(t, m, nil)
	require.NotEmpty(t, res.Bag.ByCode(diag.CodeMissingProperty))
}

func TestAnalyze_SwitchNarrowing(t *testing.T) {
	s := newSession(t)
	body := block(&ast.SwitchStmt{
		Tag: member(id("s"), "kind"),
		Cases: []*ast.SwitchCase{
			{Value: str("circle"), Body: []ast.Stmt{ret(member(id("s"), "radius"))}},
			{Value: str("square"), Body: []ast.Stmt{ret(member(id("s"), "side"))}},
		},
	}, ret(num(0)))
	m := mod(shapeAlias(), fn("area", []*ast.ParamDecl{param("s", tn("Shape"))}, tn("number"), body))

	res := s.analyze(t, m, nil)
	requireClean(t, res)
}

func TestAnalyze_RecursiveType(t *testing.T) {
	s := newSession(t)
	list := &ast.InterfaceDecl{Name: "List", Members: []*ast.PropertySig{
		prop("value", tn("number")),
		prop("next", union(tn("List"), tn("null"))),
	}}
	body := block(
		&ast.IfStmt{
			Cond: bin(ast.OpStrictNeq, member(id("l"), "next"), null()),
			Then: block(ret(member(id("l"), "value"))),
		},
		ret(num(0)),
	)
	m := mod(list, fn("head", []*ast.ParamDecl{param("l", tn("List"))}, tn("number"), body))

	res := s.analyze(t, m, nil)
	requireClean(t, res)
}

func TestAnalyze_InterfaceMerging(t *testing.T) {
	s := newSession(t)
	m := mod(
		&ast.InterfaceDecl{Name: "Box", Members: []*ast.PropertySig{prop("a", tn("number"))}},
		&ast.InterfaceDecl{Name: "Box", Members: []*ast.PropertySig{prop("b", tn("string"))}},
		fn("f", []*ast.ParamDecl{param("box", tn("Box"))}, tn("string"), block(
			exprStmt(member(id("box"), "a")),
			ret(member(id("box"), "b")),
		)),
	)

	res := s.analyze(t, m, nil)
	requireClean(t, res)
}

func TestAnalyze_OverloadResolution(t *testing.T) {
	s := newSession(t)
	decls := []ast.Decl{
		&ast.FuncDecl{Name: "f", Params: []*ast.ParamDecl{param("x", tn("string"))}, Return: tn("string")},
		&ast.FuncDecl{Name: "f", Params: []*ast.ParamDecl{param("x", tn("number"))}, Return: tn("number")},
		fn("f", []*ast.ParamDecl{param("x", tn("any"))}, tn("any"), block(ret(id("x")))),
	}
	call := &ast.CallExpr{Callee: id("f"), Args: []ast.Expr{num(1)}}
	decls = append(decls, &ast.VarDecl{Name: "r", Const: true, Init: call})

	res := s.analyze(t, mod(decls...), nil)
	requireClean(t, res)
	require.Equal(t, types.KindNumber, res.Types[call.ID()].Kind)
}

func TestAnalyze_NoApplicableOverload(t *testing.T) {
	s := newSession(t)
	m := mod(
		&ast.FuncDecl{Name: "f", Params: []*ast.ParamDecl{param("x", tn("string"))}, Return: tn("string")},
		&ast.FuncDecl{Name: "f", Params: []*ast.ParamDecl{param("x", tn("number"))}, Return: tn("number")},
		fn("f", []*ast.ParamDecl{param("x", tn("any"))}, tn("any"), block(ret(id("x")))),
		&ast.VarDecl{Name: "r", Const: true, Init: &ast.CallExpr{
			Callee: id("f"),
			Args:   []ast.Expr{&ast.Lit{Kind: ast.LitBoolean, Value: true}},
		}},
	)

	res := s.analyze(t, m, nil)
	require.NotEmpty(t, res.Bag.ByCode(diag.CodeNoApplicableOverload))
}

func TestAnalyze_GenericCallInference(t *testing.T) {
	s := newSession(t)
	idFn := &ast.FuncDecl{
		Name:       "identity",
		TypeParams: []*ast.TypeParamDecl{{Name: "T"}},
		Params:     []*ast.ParamDecl{param("x", tn("T"))},
		Return:     tn("T"),
		Body:       block(ret(id("x"))),
	}
	call := &ast.CallExpr{Callee: id("identity"), Args: []ast.Expr{str("hi")}}
	m := mod(idFn, &ast.VarDecl{Name: "r", Const: true, Init: call})

	res := s.analyze(t, m, nil)
	requireClean(t, res)
	require.Equal(t, types.KindString, res.Types[call.ID()].Kind)
}

func TestAnalyze_GenericAliasExpansion(t *testing.T) {
	s := newSession(t)
	pair := &ast.TypeAliasDecl{
		Name:       "Pair",
		TypeParams: []*ast.TypeParamDecl{{Name: "T"}},
		Target: &ast.ObjectTypeExpr{Members: []*ast.PropertySig{
			prop("first", tn("T")),
			prop("second", tn("T")),
		}},
	}
	m := mod(pair, fn("f", []*ast.ParamDecl{param("p", tn("Pair", tn("number")))}, tn("number"), block(
		ret(member(id("p"), "first")),
	)))

	res := s.analyze(t, m, nil)
	requireClean(t, res)
}

func TestAnalyze_Await(t *testing.T) {
	s := newSession(t)
	m := mod(fn("f", []*ast.ParamDecl{param("p", tn("Promise", tn("string")))}, tn("string"), block(
		ret(&ast.UnaryExpr{Op: ast.OpAwait, X: id("p")}),
	)))

	res := s.analyze(t, m, nil)
	requireClean(t, res)
}

func TestAnalyze_ClassInstantiation(t *testing.T) {
	s := newSession(t)
	point := &ast.ClassDecl{
		Name: "Point",
		Members: []*ast.PropertySig{
			prop("x", tn("number")),
			prop("y", tn("number")),
		},
		Ctors: []*ast.FuncTypeExpr{{
			Params: []*ast.ParamDecl{param("x", tn("number")), param("y", tn("number"))},
		}},
	}
	newP := &ast.NewExpr{Callee: id("Point"), Args: []ast.Expr{num(1), num(2)}}
	m := mod(
		point,
		&ast.VarDecl{Name: "p", Const: true, Init: newP},
		fn("f", nil, tn("number"), block(ret(member(id("p"), "x")))),
	)

	res := s.analyze(t, m, nil)
	requireClean(t, res)
}

func TestAnalyze_ClassBadConstructorArg(t *testing.T) {
	s := newSession(t)
	point := &ast.ClassDecl{
		Name:    "Point",
		Members: []*ast.PropertySig{prop("x", tn("number"))},
		Ctors: []*ast.FuncTypeExpr{{
			Params: []*ast.ParamDecl{param("x", tn("number"))},
		}},
	}
	m := mod(point, &ast.VarDecl{Name: "p", Const: true, Init: &ast.NewExpr{
		Callee: id("Point"), Args: []ast.Expr{str("no")},
	}})

	res := s.analyze(t, m, nil)
	require.NotZero(t, res.Bag.ErrorCount())
}

func TestAnalyze_OptionalChainWithNullish(t *testing.T) {
	s := newSession(t)
	obj := &ast.ObjectTypeExpr{Members: []*ast.PropertySig{
		{Name: "a", Optional: true, Type: tn("number")},
	}}
	m := mod(fn("f", []*ast.ParamDecl{param("x", obj)}, tn("number"), block(
		ret(bin(ast.OpNullish, member(id("x"), "a"), num(0))),
	)))

	res := s.analyze(t, m, nil)
	requireClean(t, res)
}

func TestAnalyze_Imports(t *testing.T) {
	s := newSession(t)
	a := &ast.Module{Name: "a", Decls: []ast.Decl{
		&ast.VarDecl{Name: "answer", Const: true, Exported: true, Init: num(42)},
	}}
	resA := s.analyze(t, a, nil)
	requireClean(t, resA)
	require.Equal(t, 1, resA.Exports.Len())

	b := &ast.Module{
		Name: "b",
		Imports: []*ast.ImportDecl{{Module: "a", Names: []ast.ImportName{{Local: "answer", Remote: "answer"}}}},
		Decls: []ast.Decl{
			&ast.VarDecl{Name: "x", TypeAnn: tn("number"), Init: id("answer")},
		},
	}
	resB := s.analyze(t, b, map[string]*scope.Exports{"a": resA.Exports})
	requireClean(t, resB)
}

func TestAnalyze_UnknownModule(t *testing.T) {
	s := newSession(t)
	m := &ast.Module{
		Name:    "b",
		Imports: []*ast.ImportDecl{{Module: "missing", Names: []ast.ImportName{{Local: "x", Remote: "x"}}}},
	}

	res := s.analyze(t, m, nil)
	require.NotEmpty(t, res.Bag.ByCode(diag.CodeUnknownModule))
}

func TestAnalyze_ExportsOnlySkipsBodies(t *testing.T) {
	s := newSession(t)
	body := block(exprStmt(id("missing")))
	m := mod(&ast.FuncDecl{Name: "f", Exported: true, Return: tn("void"), Body: body})

	res := analyzer.Analyze(m, analyzer.Config{Relater: s.r, Env: s.env, ExportsOnly: true})
	require.Empty(t, res.Bag.ByCode(diag.CodeUndefinedIdentifier))
	require.Equal(t, 1, res.Exports.Len())

	full := s.analyze(t, mod(&ast.FuncDecl{Name: "f", Exported: true, Return: tn("void"), Body: body}), nil)
	require.NotEmpty(t, full.Bag.ByCode(diag.CodeUndefinedIdentifier))
}

func TestAnalyze_UnionCommonProperty(t *testing.T) {
	s := newSession(t)
	kind := member(id("s"), "kind")
	m := mod(shapeAlias(), fn("f", []*ast.ParamDecl{param("s", tn("Shape"))}, tn("string"), block(
		ret(kind),
	)))

	res := s.analyze(t, m, nil)
	requireClean(t, res)

	kt := res.Types[kind.ID()]
	require.NotNil(t, kt)
	require.Equal(t, types.KindUnion, kt.Kind)
	for _, mem := range kt.AsUnion().Members {
		require.Equal(t, types.KindLiteral, mem.Kind)
	}
}

func TestAnalyze_RecursiveGenericAlias(t *testing.T) {
	s := newSession(t)
	chain := &ast.TypeAliasDecl{
		Name:       "Chain",
		TypeParams: []*ast.TypeParamDecl{{Name: "T"}},
		Target: &ast.ObjectTypeExpr{Members: []*ast.PropertySig{
			prop("value", tn("T")),
			prop("next", tn("Chain", tn("T"))),
		}},
	}
	m := mod(chain, fn("f", []*ast.ParamDecl{param("c", tn("Chain", tn("number")))}, tn("number"), block(
		ret(member(member(id("c"), "next"), "value")),
	)))

	res := s.analyze(t, m, nil)
	requireClean(t, res)

	bad := mod(chain, fn("f", []*ast.ParamDecl{param("c", tn("Chain", tn("number")))}, tn("boolean"), block(
		ret(member(id("c"), "next")),
	)))

	resBad := s.analyze(t, bad, nil)
	require.NotEmpty(t, resBad.Bag.ByCode(diag.CodeNotAssignable))
}

func TestAnalyze_SwitchCaseNotComparable(t *testing.T) {
	s := newSession(t)
	body := block(&ast.SwitchStmt{
		Tag: id("n"),
		Cases: []*ast.SwitchCase{
			{Value: str("one"), Body: []ast.Stmt{ret(num(1))}},
		},
	}, ret(num(0)))
	m := mod(fn("f", []*ast.ParamDecl{param("n", tn("number"))}, tn("number"), body))

	res := s.analyze(t, m, nil)
	require.NotEmpty(t, res.Bag.ByCode(diag.CodeNotAssignable))
}

func TestAnalyze_ImportedTypeUsedAsValue(t *testing.T) {
	s := newSession(t)
	a := &ast.Module{Name: "a", Decls: []ast.Decl{
		&ast.InterfaceDecl{Name: "Shape", Exported: true, Members: []*ast.PropertySig{
			prop("kind", tn("string")),
		}},
	}}
	resA := s.analyze(t, a, nil)
	requireClean(t, resA)

	b := &ast.Module{
		Name: "b",
		Imports: []*ast.ImportDecl{{Module: "a", Names: []ast.ImportName{{Local: "Shape", Remote: "Shape"}}}},
		Decls: []ast.Decl{
			&ast.VarDecl{Name: "x", Init: id("Shape")},
		},
	}
	resB := s.analyze(t, b, map[string]*scope.Exports{"a": resA.Exports})
	require.NotEmpty(t, resB.Bag.ByCode(diag.CodeUndefinedIdentifier))
}
