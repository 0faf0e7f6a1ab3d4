package transformer

import (
	"go/ast"
	"go/token"
)

// maybeRewriteIf converts a plain if/else into an equivalent switch over a
// boolean-indexed map, which obscures the branch shape without changing which
// branch runs. Returns nil when the statement is not eligible.
//
// Only the simple shape is rewritten: no init statement, and an else that is
// either absent or a plain block. else-if chains and ifs whose branches
// contain a naked break are left alone, since moving a break into the
// generated switch would retarget it.
func (t *Transformer) maybeRewriteIf(s *ast.IfStmt) ast.Stmt {
	if !t.ControlFlow {
		return nil
	}
	if s.Init != nil {
		return nil
	}
	var elseBlock *ast.BlockStmt
	switch e := s.Else.(type) {
	case nil:
	case *ast.BlockStmt:
		elseBlock = e
	default:
		return nil
	}
	if containsNakedBreak(s.Body.List) || (elseBlock != nil && containsNakedBreak(elseBlock.List)) {
		return nil
	}

	t.changes = append(t.changes, Change{Kind: "control-flow", Original: "if/else", Replacement: "switch"})
	t.rewrittenIfs++
	if t.DryRun {
		return nil
	}

	cond := t.rewriteExpr(s.Cond)
	t.rewriteBlockInPlace(s.Body)
	if elseBlock != nil {
		t.rewriteBlockInPlace(elseBlock)
	}

	// switch (map[bool]int{true: 0, false: 1})[cond] { case 0: ... case 1: ... }
	// The composite literal sits in a statement header, so it must be
	// parenthesized to parse.
	tag := &ast.IndexExpr{
		X: &ast.ParenExpr{X: &ast.CompositeLit{
			Type: &ast.MapType{Key: ast.NewIdent("bool"), Value: ast.NewIdent("int")},
			Elts: []ast.Expr{
				&ast.KeyValueExpr{Key: ast.NewIdent("true"), Value: intLit(0)},
				&ast.KeyValueExpr{Key: ast.NewIdent("false"), Value: intLit(1)},
			},
		}},
		Index: cond,
	}

	clauses := []ast.Stmt{
		&ast.CaseClause{List: []ast.Expr{intLit(0)}, Body: s.Body.List},
	}
	if elseBlock != nil {
		clauses = append(clauses, &ast.CaseClause{List: []ast.Expr{intLit(1)}, Body: elseBlock.List})
	}

	return &ast.SwitchStmt{
		Tag:  tag,
		Body: &ast.BlockStmt{List: clauses},
	}
}

// containsNakedBreak reports whether stmts hold an unlabeled break that is
// not already enclosed by a nested loop, switch or select.
func containsNakedBreak(stmts []ast.Stmt) bool {
	for _, stmt := range stmts {
		if stmtHasNakedBreak(stmt) {
			return true
		}
	}
	return false
}

func stmtHasNakedBreak(stmt ast.Stmt) bool {
	switch s := stmt.(type) {
	case *ast.BranchStmt:
		return s.Tok == token.BREAK && s.Label == nil
	case *ast.BlockStmt:
		return containsNakedBreak(s.List)
	case *ast.IfStmt:
		if containsNakedBreak(s.Body.List) {
			return true
		}
		if s.Else != nil {
			return stmtHasNakedBreak(s.Else)
		}
	case *ast.LabeledStmt:
		return stmtHasNakedBreak(s.Stmt)
	case *ast.ForStmt, *ast.RangeStmt, *ast.SwitchStmt, *ast.TypeSwitchStmt, *ast.SelectStmt:
		// A nested break target; breaks below here keep their meaning.
		return false
	}
	return false
}

func intLit(v int) *ast.BasicLit {
	lit := "0"
	if v != 0 {
		lit = "1"
	}
	return &ast.BasicLit{Kind: token.INT, Value: lit}
}
