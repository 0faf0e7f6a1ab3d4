// Package transformer rewrites parsed Go files: scope-aware identifier
// renaming, string literal encryption, and a narrow control flow rewrite.
//
// Dispatch over node kinds is a plain type switch per syntactic category;
// identifiers are renamed in place, string literals are replaced by calls to
// the injected decryption function.
package transformer

import (
	"fmt"
	"go/ast"
	"go/token"
	"strconv"
	"strings"

	"github.com/whit3rabbit/shroud/internal/config"
	"github.com/whit3rabbit/shroud/internal/scramble"
	"github.com/whit3rabbit/shroud/internal/stringcipher"
)

// Change is one intended or applied modification, kept for dry-run previews.
type Change struct {
	Kind        string // "ident", "string", "control-flow"
	Original    string
	Replacement string
}

// Transformer drives the rewrite over one or more files sharing a rename
// context and an encryptor.
type Transformer struct {
	Context   *scramble.Context
	Encryptor *stringcipher.Encryptor

	RenameIdents   bool
	EncryptStrings bool
	ControlFlow    bool
	DryRun         bool

	importNames    map[string]bool // local names of imported packages
	inConstContext bool            // const decls and array lengths must stay constant

	changes        []Change
	renamedCount   int
	encryptedCount int
	rewrittenIfs   int

	firstErr error
}

// New builds a transformer for one run. Encryptor may be nil when string
// encryption is disabled.
func New(cfg *config.Config, ctx *scramble.Context, enc *stringcipher.Encryptor) *Transformer {
	return &Transformer{
		Context:     ctx,
		Encryptor:   enc,
		DryRun:      cfg.DryRun,
		ControlFlow: cfg.ControlFlowRewrite,
		importNames: make(map[string]bool),
	}
}

// Changes returns the recorded modifications, in encounter order.
func (t *Transformer) Changes() []Change { return t.changes }

// RenamedOccurrences returns how many identifier occurrences were rewritten.
func (t *Transformer) RenamedOccurrences() int { return t.renamedCount }

// EncryptedOccurrences returns how many string literal occurrences were
// replaced.
func (t *Transformer) EncryptedOccurrences() int { return t.encryptedCount }

// Err returns the first cipher error hit during the walk, if any.
func (t *Transformer) Err() error { return t.firstErr }

// File transforms a single parsed file in place (except in dry-run mode,
// where the tree is left untouched and changes are only recorded).
func (t *Transformer) File(file *ast.File) error {
	t.discover(file)

	for _, decl := range file.Decls {
		t.rewriteDecl(decl)
	}
	return t.firstErr
}

// discover walks declarations before rewriting: protects the package name,
// import aliases and stable-linkage symbols, and records the exported
// surface for the preserve-public-api policy.
func (t *Transformer) discover(file *ast.File) {
	pkg := file.Name.Name
	t.Context.Protect(pkg)
	t.Context.SetModulePath([]string{pkg})

	for _, imp := range file.Imports {
		name := importLocalName(imp)
		if name != "" {
			t.importNames[name] = true
			t.Context.Protect(name)
		}
	}

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			name := d.Name.Name
			if hasLinkageDirective(d.Doc) {
				t.Context.Protect(name)
			}
			if ast.IsExported(name) {
				t.Context.MarkPublicAPI(name)
			}
			t.Context.AddFunction(name)
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				switch s := spec.(type) {
				case *ast.TypeSpec:
					if ast.IsExported(s.Name.Name) {
						t.Context.MarkPublicAPI(s.Name.Name)
					}
					t.Context.AddType(s.Name.Name)
					t.discoverTypeMembers(s.Type)
				case *ast.ValueSpec:
					for _, n := range s.Names {
						if ast.IsExported(n.Name) {
							t.Context.MarkPublicAPI(n.Name)
						}
						t.Context.AddVariable(n.Name)
					}
				}
			}
		}
	}
}

// discoverTypeMembers records exported struct fields and interface methods
// so the public-api policy covers them too.
func (t *Transformer) discoverTypeMembers(expr ast.Expr) {
	switch e := expr.(type) {
	case *ast.StructType:
		for _, f := range e.Fields.List {
			for _, n := range f.Names {
				if ast.IsExported(n.Name) {
					t.Context.MarkPublicAPI(n.Name)
				}
			}
		}
	case *ast.InterfaceType:
		for _, m := range e.Methods.List {
			for _, n := range m.Names {
				if ast.IsExported(n.Name) {
					t.Context.MarkPublicAPI(n.Name)
				}
			}
		}
	}
}

func importLocalName(imp *ast.ImportSpec) string {
	if imp.Name != nil {
		return imp.Name.Name
	}
	path, err := strconv.Unquote(imp.Path.Value)
	if err != nil {
		return ""
	}
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

// hasLinkageDirective reports whether a doc comment pins the symbol name for
// linkage (cgo export or go:linkname).
func hasLinkageDirective(doc *ast.CommentGroup) bool {
	if doc == nil {
		return false
	}
	for _, c := range doc.List {
		if strings.HasPrefix(c.Text, "//export ") || strings.HasPrefix(c.Text, "//go:linkname") {
			return true
		}
	}
	return false
}

// --- identifier renaming ---

func (t *Transformer) renameIdent(id *ast.Ident, kind string) {
	if id == nil || !t.RenameIdents {
		return
	}
	if !t.Context.ShouldRename(id.Name) {
		return
	}
	replacement := t.Context.GetOrCreate(id.Name)
	t.changes = append(t.changes, Change{Kind: kind, Original: id.Name, Replacement: replacement})
	t.renamedCount++
	if !t.DryRun {
		id.Name = replacement
	}
}

// --- declarations ---

func (t *Transformer) rewriteDecl(decl ast.Decl) {
	switch d := decl.(type) {
	case *ast.FuncDecl:
		t.renameIdent(d.Name, "func")
		t.Context.EnterScope()
		if d.Recv != nil {
			t.rewriteFieldList(d.Recv, "recv")
		}
		t.rewriteFuncType(d.Type)
		if d.Body != nil {
			t.rewriteBlockInPlace(d.Body)
		}
		t.Context.ExitScope()
	case *ast.GenDecl:
		if d.Tok == token.IMPORT {
			return
		}
		wasConst := t.inConstContext
		if d.Tok == token.CONST {
			t.inConstContext = true
		}
		for _, spec := range d.Specs {
			t.rewriteSpec(spec)
		}
		t.inConstContext = wasConst
	}
}

func (t *Transformer) rewriteSpec(spec ast.Spec) {
	switch s := spec.(type) {
	case *ast.TypeSpec:
		t.renameIdent(s.Name, "type")
		if s.TypeParams != nil {
			t.rewriteFieldList(s.TypeParams, "typeparam")
		}
		s.Type = t.rewriteExpr(s.Type)
	case *ast.ValueSpec:
		for _, n := range s.Names {
			t.Context.AddVariable(n.Name)
			t.renameIdent(n, "var")
		}
		if s.Type != nil {
			s.Type = t.rewriteExpr(s.Type)
		}
		for i := range s.Values {
			s.Values[i] = t.rewriteExpr(s.Values[i])
		}
	}
}

func (t *Transformer) rewriteFuncType(ft *ast.FuncType) {
	if ft == nil {
		return
	}
	if ft.TypeParams != nil {
		t.rewriteFieldList(ft.TypeParams, "typeparam")
	}
	if ft.Params != nil {
		t.rewriteFieldList(ft.Params, "param")
	}
	if ft.Results != nil {
		t.rewriteFieldList(ft.Results, "result")
	}
}

func (t *Transformer) rewriteFieldList(fl *ast.FieldList, kind string) {
	for _, f := range fl.List {
		for _, n := range f.Names {
			if kind == "param" || kind == "recv" {
				t.Context.AddVariable(n.Name)
			}
			t.renameIdent(n, kind)
		}
		if f.Type != nil {
			f.Type = t.rewriteExpr(f.Type)
		}
		// Struct tags are never rewritten: encoding/reflection reads them
		// verbatim.
	}
}

// --- statements ---

func (t *Transformer) rewriteStmt(stmt ast.Stmt) ast.Stmt {
	switch s := stmt.(type) {
	case nil:
		return nil
	case *ast.DeclStmt:
		t.rewriteDecl(s.Decl)
	case *ast.ExprStmt:
		s.X = t.rewriteExpr(s.X)
	case *ast.AssignStmt:
		for i := range s.Lhs {
			if s.Tok == token.DEFINE {
				if id, ok := s.Lhs[i].(*ast.Ident); ok {
					t.Context.AddVariable(id.Name)
				}
			}
			s.Lhs[i] = t.rewriteExpr(s.Lhs[i])
		}
		for i := range s.Rhs {
			s.Rhs[i] = t.rewriteExpr(s.Rhs[i])
		}
	case *ast.ReturnStmt:
		for i := range s.Results {
			s.Results[i] = t.rewriteExpr(s.Results[i])
		}
	case *ast.IfStmt:
		if rewritten := t.maybeRewriteIf(s); rewritten != nil {
			return rewritten
		}
		t.rewriteIfInPlace(s)
	case *ast.ForStmt:
		t.Context.EnterScope()
		s.Init = t.rewriteStmt(s.Init)
		if s.Cond != nil {
			s.Cond = t.rewriteExpr(s.Cond)
		}
		s.Post = t.rewriteStmt(s.Post)
		t.rewriteBlockInPlace(s.Body)
		t.Context.ExitScope()
	case *ast.RangeStmt:
		t.Context.EnterScope()
		if s.Key != nil {
			if id, ok := s.Key.(*ast.Ident); ok && s.Tok == token.DEFINE {
				t.Context.AddVariable(id.Name)
			}
			s.Key = t.rewriteExpr(s.Key)
		}
		if s.Value != nil {
			if id, ok := s.Value.(*ast.Ident); ok && s.Tok == token.DEFINE {
				t.Context.AddVariable(id.Name)
			}
			s.Value = t.rewriteExpr(s.Value)
		}
		s.X = t.rewriteExpr(s.X)
		t.rewriteBlockInPlace(s.Body)
		t.Context.ExitScope()
	case *ast.SwitchStmt:
		t.Context.EnterScope()
		s.Init = t.rewriteStmt(s.Init)
		if s.Tag != nil {
			s.Tag = t.rewriteExpr(s.Tag)
		}
		t.rewriteBlockInPlace(s.Body)
		t.Context.ExitScope()
	case *ast.TypeSwitchStmt:
		t.Context.EnterScope()
		s.Init = t.rewriteStmt(s.Init)
		s.Assign = t.rewriteStmt(s.Assign)
		t.rewriteBlockInPlace(s.Body)
		t.Context.ExitScope()
	case *ast.SelectStmt:
		t.rewriteBlockInPlace(s.Body)
	case *ast.CaseClause:
		for i := range s.List {
			s.List[i] = t.rewriteExpr(s.List[i])
		}
		for i := range s.Body {
			s.Body[i] = t.rewriteStmt(s.Body[i])
		}
	case *ast.CommClause:
		s.Comm = t.rewriteStmt(s.Comm)
		for i := range s.Body {
			s.Body[i] = t.rewriteStmt(s.Body[i])
		}
	case *ast.BlockStmt:
		t.rewriteBlockInPlace(s)
	case *ast.LabeledStmt:
		// Labels live in their own namespace and are left alone.
		s.Stmt = t.rewriteStmt(s.Stmt)
	case *ast.BranchStmt:
		// Branch targets reference labels, which are never renamed.
	case *ast.GoStmt:
		s.Call = t.rewriteExpr(s.Call).(*ast.CallExpr)
	case *ast.DeferStmt:
		s.Call = t.rewriteExpr(s.Call).(*ast.CallExpr)
	case *ast.SendStmt:
		s.Chan = t.rewriteExpr(s.Chan)
		s.Value = t.rewriteExpr(s.Value)
	case *ast.IncDecStmt:
		s.X = t.rewriteExpr(s.X)
	}
	return stmt
}

// rewriteIfInPlace rewrites an if statement without the control flow
// transform. An else-if hangs off IfStmt.Else, where only an if or a block
// may appear, so converting it to a switch there would be invalid.
func (t *Transformer) rewriteIfInPlace(s *ast.IfStmt) {
	s.Init = t.rewriteStmt(s.Init)
	s.Cond = t.rewriteExpr(s.Cond)
	t.rewriteBlockInPlace(s.Body)
	if elseIf, ok := s.Else.(*ast.IfStmt); ok {
		t.rewriteIfInPlace(elseIf)
		return
	}
	s.Else = t.rewriteStmt(s.Else)
}

// rewriteBlockInPlace pushes a scope, applies the optional control flow
// rewrite to statement-position ifs, rewrites every statement, and pops.
func (t *Transformer) rewriteBlockInPlace(block *ast.BlockStmt) {
	if block == nil {
		return
	}
	t.Context.EnterScope()
	for i := range block.List {
		block.List[i] = t.rewriteStmt(block.List[i])
	}
	t.Context.ExitScope()
}

// --- expressions ---

// rewriteExpr returns the (possibly replaced) expression. Replacement only
// happens for string literals turning into decryption calls; everything
// else is mutated in place and returned as-is.
func (t *Transformer) rewriteExpr(expr ast.Expr) ast.Expr {
	switch e := expr.(type) {
	case nil:
		return nil
	case *ast.Ident:
		t.renameIdent(e, "ident")
	case *ast.BasicLit:
		if e.Kind == token.STRING {
			return t.maybeEncryptLiteral(e)
		}
	case *ast.SelectorExpr:
		e.X = t.rewriteExpr(e.X)
		// A selector off an imported package names a foreign symbol; the
		// lexical engine must leave it alone.
		if id, ok := e.X.(*ast.Ident); !ok || !t.importNames[id.Name] {
			t.renameIdent(e.Sel, "selector")
		}
	case *ast.CallExpr:
		e.Fun = t.rewriteExpr(e.Fun)
		for i := range e.Args {
			e.Args[i] = t.rewriteExpr(e.Args[i])
		}
	case *ast.StarExpr:
		e.X = t.rewriteExpr(e.X)
	case *ast.UnaryExpr:
		e.X = t.rewriteExpr(e.X)
	case *ast.BinaryExpr:
		e.X = t.rewriteExpr(e.X)
		e.Y = t.rewriteExpr(e.Y)
	case *ast.ParenExpr:
		e.X = t.rewriteExpr(e.X)
	case *ast.IndexExpr:
		e.X = t.rewriteExpr(e.X)
		e.Index = t.rewriteExpr(e.Index)
	case *ast.IndexListExpr:
		e.X = t.rewriteExpr(e.X)
		for i := range e.Indices {
			e.Indices[i] = t.rewriteExpr(e.Indices[i])
		}
	case *ast.SliceExpr:
		e.X = t.rewriteExpr(e.X)
		e.Low = t.rewriteExpr(e.Low)
		e.High = t.rewriteExpr(e.High)
		e.Max = t.rewriteExpr(e.Max)
	case *ast.TypeAssertExpr:
		e.X = t.rewriteExpr(e.X)
		if e.Type != nil {
			e.Type = t.rewriteExpr(e.Type)
		}
	case *ast.CompositeLit:
		if e.Type != nil {
			e.Type = t.rewriteExpr(e.Type)
		}
		for i := range e.Elts {
			e.Elts[i] = t.rewriteExpr(e.Elts[i])
		}
	case *ast.KeyValueExpr:
		e.Key = t.rewriteExpr(e.Key)
		e.Value = t.rewriteExpr(e.Value)
	case *ast.FuncLit:
		t.Context.EnterScope()
		t.rewriteFuncType(e.Type)
		t.rewriteBlockInPlace(e.Body)
		t.Context.ExitScope()
	case *ast.ArrayType:
		// An array length is a constant expression; a decode call inside it
		// parses but does not compile.
		wasConst := t.inConstContext
		t.inConstContext = true
		e.Len = t.rewriteExpr(e.Len)
		t.inConstContext = wasConst
		e.Elt = t.rewriteExpr(e.Elt)
	case *ast.MapType:
		e.Key = t.rewriteExpr(e.Key)
		e.Value = t.rewriteExpr(e.Value)
	case *ast.ChanType:
		e.Value = t.rewriteExpr(e.Value)
	case *ast.StructType:
		t.rewriteFieldList(e.Fields, "field")
	case *ast.InterfaceType:
		t.rewriteFieldList(e.Methods, "method")
	case *ast.FuncType:
		t.rewriteFuncType(e)
	case *ast.Ellipsis:
		e.Elt = t.rewriteExpr(e.Elt)
	}
	return expr
}

// maybeEncryptLiteral replaces a string literal with a decryption call when
// string encryption is active and the skip policy allows it.
func (t *Transformer) maybeEncryptLiteral(lit *ast.BasicLit) ast.Expr {
	if !t.EncryptStrings || t.Encryptor == nil || t.inConstContext {
		return lit
	}
	value, err := strconv.Unquote(lit.Value)
	if err != nil || value == "" {
		return lit
	}
	if t.Encryptor.ShouldSkip(value) {
		return lit
	}
	tok, err := t.Encryptor.EncryptLiteral(value)
	if err != nil {
		if t.firstErr == nil {
			t.firstErr = fmt.Errorf("encrypting literal: %w", err)
		}
		return lit
	}
	t.changes = append(t.changes, Change{Kind: "string", Original: value, Replacement: tok})
	t.encryptedCount++
	if t.DryRun {
		return lit
	}
	return &ast.CallExpr{
		Fun: ast.NewIdent(stringcipher.DecodeFuncName),
		Args: []ast.Expr{&ast.BasicLit{
			Kind:  token.STRING,
			Value: strconv.Quote(tok),
		}},
	}
}
