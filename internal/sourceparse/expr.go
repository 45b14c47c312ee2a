package sourceparse

import (
	"unicode"

	"github.com/samlang-go/samc/internal/ast"
)

// binaryPrecedence ranks operators for precedence-climbing; higher
// binds tighter. Matches common arithmetic-then-comparison-then-
// logical ordering.
var binaryPrecedence = map[string]int{
	"*": 5, "/": 5, "%": 5,
	"+": 4, "-": 4,
	"<": 3, "<=": 3, ">": 3, ">=": 3,
	"==": 2, "!=": 2,
	"&&": 1,
	"||": 0,
}

var binaryOps = map[string]ast.BinaryOperator{
	"*": ast.BinaryMul, "/": ast.BinaryDiv, "%": ast.BinaryMod,
	"+": ast.BinaryPlus, "-": ast.BinaryMinus,
	"<": ast.BinaryLt, "<=": ast.BinaryLe, ">": ast.BinaryGt, ">=": ast.BinaryGe,
	"==": ast.BinaryEq, "!=": ast.BinaryNe,
	"&&": ast.BinaryAnd, "||": ast.BinaryOr,
}

// parseExpr parses a full expression via precedence climbing over
// binary operators, bottoming out at parseUnary.
func (p *Parser) parseExpr() (ast.Expr, error) {
	return p.parseBinary(0)
}

func (p *Parser) parseBinary(minPrec int) (ast.Expr, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return ast.Expr{}, err
	}
	for {
		t := p.cur()
		if t.Kind != TokSymbol {
			break
		}
		prec, ok := binaryPrecedence[t.Text]
		if !ok || prec < minPrec {
			break
		}
		op := binaryOps[t.Text]
		p.advance()
		rhs, err := p.parseBinary(prec + 1)
		if err != nil {
			return ast.Expr{}, err
		}
		loc := lhs.Loc.Union(rhs.Loc)
		lhs = ast.Expr{Tag: ast.ExprBinary, Loc: loc, BinaryOperator: op, E1: ptr(lhs), E2: ptr(rhs)}
	}
	return lhs, nil
}

func ptr(e ast.Expr) *ast.Expr { return &e }

func (p *Parser) parseUnary() (ast.Expr, error) {
	start := p.cur().Start
	if p.isSymbol("!") {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return ast.Expr{}, err
		}
		return ast.Expr{Tag: ast.ExprUnary, Loc: p.loc(start), UnaryOperator: ast.UnaryNot, Argument: ptr(operand)}, nil
	}
	if p.isSymbol("-") {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return ast.Expr{}, err
		}
		return ast.Expr{Tag: ast.ExprUnary, Loc: p.loc(start), UnaryOperator: ast.UnaryNeg, Argument: ptr(operand)}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (ast.Expr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return ast.Expr{}, err
	}
	for {
		switch {
		case p.isSymbol("."):
			p.advance()
			nameTok, err := p.expectIdent()
			if err != nil {
				return ast.Expr{}, err
			}
			var typeArgs []ast.Annotation
			if p.isSymbol("<") {
				p.advance()
				for !p.isSymbol(">") {
					a, err := p.parseAnnotation()
					if err != nil {
						return ast.Expr{}, err
					}
					typeArgs = append(typeArgs, a)
					if p.isSymbol(",") {
						p.advance()
						continue
					}
					break
				}
				if _, err := p.expectSymbol(">"); err != nil {
					return ast.Expr{}, err
				}
			}
			nameID := p.mkID(nameTok)
			if p.isSymbol("(") {
				args, endLoc, err := p.parseArgs()
				if err != nil {
					return ast.Expr{}, err
				}
				callee := ast.Expr{
					Tag: ast.ExprMethodAccess, Loc: e.Loc.Union(nameID.Loc),
					Object: ptr(e), ExplicitTypeArguments: typeArgs, FieldOrMethodName: nameID,
				}
				e = ast.Expr{Tag: ast.ExprCall, Loc: callee.Loc.Union(endLoc), Callee: ptr(callee), Arguments: args}
				continue
			}
			e = ast.Expr{Tag: ast.ExprFieldAccess, Loc: e.Loc.Union(nameID.Loc), Object: ptr(e), ExplicitTypeArguments: typeArgs, FieldOrMethodName: nameID}
		case p.isSymbol("("):
			args, endLoc, err := p.parseArgs()
			if err != nil {
				return ast.Expr{}, err
			}
			e = ast.Expr{Tag: ast.ExprCall, Loc: e.Loc.Union(endLoc), Callee: ptr(e), Arguments: args}
		default:
			return e, nil
		}
	}
}

func (p *Parser) parseArgs() ([]ast.Expr, ast.Location, error) {
	if _, err := p.expectSymbol("("); err != nil {
		return nil, ast.Location{}, err
	}
	var args []ast.Expr
	for !p.isSymbol(")") {
		a, err := p.parseExpr()
		if err != nil {
			return nil, ast.Location{}, err
		}
		args = append(args, a)
		if p.isSymbol(",") {
			p.advance()
			continue
		}
		break
	}
	closeTok, err := p.expectSymbol(")")
	if err != nil {
		return nil, ast.Location{}, err
	}
	return args, ast.Location{Module: p.module, Start: closeTok.Start, End: closeTok.End}, nil
}

func isUpperIdent(s string) bool {
	if s == "" {
		return false
	}
	return unicode.IsUpper(rune(s[0]))
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	start := p.cur().Start
	t := p.cur()
	switch {
	case t.Kind == TokIntLiteral:
		p.advance()
		return ast.ELiteralInt(p.loc(start), t.Int), nil
	case t.Kind == TokStringLiteral:
		p.advance()
		return ast.ELiteralString(p.loc(start), p.heap.Alloc(t.Text)), nil
	case p.isKeyword("true"):
		p.advance()
		return ast.ELiteralBool(p.loc(start), true), nil
	case p.isKeyword("false"):
		p.advance()
		return ast.ELiteralBool(p.loc(start), false), nil
	case p.isKeyword("this"):
		p.advance()
		return ast.EId(p.loc(start), ast.Id{Loc: p.loc(start), Name: p.heap.Alloc("this")}), nil
	case p.isKeyword("if"):
		return p.parseIfElse()
	case p.isKeyword("match"):
		return p.parseMatch()
	case p.isSymbol("{"):
		return p.parseBlock()
	case p.isSymbol("("):
		return p.parseParenOrLambda()
	case t.Kind == TokIdent:
		// A bare lowercase identifier immediately followed by "->" is a
		// single-parameter lambda shorthand.
		if p.peekAt(1).Kind == TokSymbol && p.peekAt(1).Text == "->" {
			return p.parseLambdaFromNames([]Token{t})
		}
		p.advance()
		id := p.mkID(t)
		if isUpperIdent(t.Text) {
			return ast.EClassId(p.loc(start), p.module, id), nil
		}
		return ast.EId(id.Loc, id), nil
	}
	return ast.Expr{}, p.errorf("unexpected token %q in expression", t.Text)
}

func (p *Parser) parseIfElse() (ast.Expr, error) {
	start := p.cur().Start
	if _, err := p.expectKeyword("if"); err != nil {
		return ast.Expr{}, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return ast.Expr{}, err
	}
	thenE, err := p.parseBlock()
	if err != nil {
		return ast.Expr{}, err
	}
	if _, err := p.expectKeyword("else"); err != nil {
		return ast.Expr{}, err
	}
	elseE, err := p.parseBlock()
	if err != nil {
		return ast.Expr{}, err
	}
	return ast.Expr{Tag: ast.ExprIfElse, Loc: p.loc(start), Condition: ptr(cond), E1: ptr(thenE), E2: ptr(elseE)}, nil
}

func (p *Parser) parseMatch() (ast.Expr, error) {
	start := p.cur().Start
	if _, err := p.expectKeyword("match"); err != nil {
		return ast.Expr{}, err
	}
	if _, err := p.expectSymbol("("); err != nil {
		return ast.Expr{}, err
	}
	matched, err := p.parseExpr()
	if err != nil {
		return ast.Expr{}, err
	}
	if _, err := p.expectSymbol(")"); err != nil {
		return ast.Expr{}, err
	}
	if _, err := p.expectSymbol("{"); err != nil {
		return ast.Expr{}, err
	}
	var cases []ast.MatchCase
	for !p.isSymbol("}") {
		caseStart := p.cur().Start
		tagTok, err := p.expectIdent()
		if err != nil {
			return ast.Expr{}, err
		}
		var dataVars []*ast.MatchDataVariable
		if p.isSymbol("(") {
			p.advance()
			for !p.isSymbol(")") {
				if p.cur().Kind == TokIdent && p.cur().Text == "_" {
					p.advance()
					dataVars = append(dataVars, nil)
				} else {
					nameTok, err := p.expectIdent()
					if err != nil {
						return ast.Expr{}, err
					}
					id := p.mkID(nameTok)
					dataVars = append(dataVars, &ast.MatchDataVariable{Name: id})
				}
				if p.isSymbol(",") {
					p.advance()
					continue
				}
				break
			}
			if _, err := p.expectSymbol(")"); err != nil {
				return ast.Expr{}, err
			}
		}
		if _, err := p.expectSymbol("->"); err != nil {
			return ast.Expr{}, err
		}
		body, err := p.parseExpr()
		if err != nil {
			return ast.Expr{}, err
		}
		cases = append(cases, ast.MatchCase{
			Loc:           ast.Location{Module: p.module, Start: caseStart, End: body.Loc.End},
			TagName:       p.mkID(tagTok),
			DataVariables: dataVars,
			Body:          ptr(body),
		})
		if p.isSymbol(",") {
			p.advance()
		}
	}
	if _, err := p.expectSymbol("}"); err != nil {
		return ast.Expr{}, err
	}
	return ast.Expr{Tag: ast.ExprMatch, Loc: p.loc(start), Matched: ptr(matched), Cases: cases}, nil
}

// parseParenOrLambda disambiguates `(expr)` from a parenthesized
// lambda parameter list `(x: int, y) -> expr` by scanning forward for
// a matching close-paren followed by "->".
func (p *Parser) parseParenOrLambda() (ast.Expr, error) {
	if p.looksLikeLambdaParams() {
		return p.parseLambdaParenForm()
	}
	if _, err := p.expectSymbol("("); err != nil {
		return ast.Expr{}, err
	}
	e, err := p.parseExpr()
	if err != nil {
		return ast.Expr{}, err
	}
	if _, err := p.expectSymbol(")"); err != nil {
		return ast.Expr{}, err
	}
	return e, nil
}

func (p *Parser) looksLikeLambdaParams() bool {
	depth := 0
	for i := p.pos; i < len(p.toks); i++ {
		t := p.toks[i]
		if t.Kind == TokSymbol && t.Text == "(" {
			depth++
			continue
		}
		if t.Kind == TokSymbol && t.Text == ")" {
			depth--
			if depth == 0 {
				next := p.toks[len(p.toks)-1]
				if i+1 < len(p.toks) {
					next = p.toks[i+1]
				}
				return next.Kind == TokSymbol && next.Text == "->"
			}
			continue
		}
		if t.Kind == TokEOF {
			return false
		}
	}
	return false
}

func (p *Parser) parseLambdaParenForm() (ast.Expr, error) {
	start := p.cur().Start
	if _, err := p.expectSymbol("("); err != nil {
		return ast.Expr{}, err
	}
	var params []ast.OptionallyAnnotatedId
	for !p.isSymbol(")") {
		nameTok, err := p.expectIdent()
		if err != nil {
			return ast.Expr{}, err
		}
		oai := ast.OptionallyAnnotatedId{Name: p.mkID(nameTok)}
		if p.isSymbol(":") {
			p.advance()
			a, err := p.parseAnnotation()
			if err != nil {
				return ast.Expr{}, err
			}
			oai.Annotation = &a
		}
		params = append(params, oai)
		if p.isSymbol(",") {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expectSymbol(")"); err != nil {
		return ast.Expr{}, err
	}
	if _, err := p.expectSymbol("->"); err != nil {
		return ast.Expr{}, err
	}
	body, err := p.parseExpr()
	if err != nil {
		return ast.Expr{}, err
	}
	return ast.Expr{Tag: ast.ExprLambda, Loc: ast.Location{Module: p.module, Start: start, End: body.Loc.End}, Parameters: params, Body: ptr(body)}, nil
}

func (p *Parser) parseLambdaFromNames(names []Token) (ast.Expr, error) {
	start := names[0].Start
	var params []ast.OptionallyAnnotatedId
	for _, nameTok := range names {
		p.advance()
		params = append(params, ast.OptionallyAnnotatedId{Name: p.mkID(nameTok)})
	}
	if _, err := p.expectSymbol("->"); err != nil {
		return ast.Expr{}, err
	}
	body, err := p.parseExpr()
	if err != nil {
		return ast.Expr{}, err
	}
	return ast.Expr{Tag: ast.ExprLambda, Loc: ast.Location{Module: p.module, Start: start, End: body.Loc.End}, Parameters: params, Body: ptr(body)}, nil
}

func (p *Parser) parseBlock() (ast.Expr, error) {
	start := p.cur().Start
	if _, err := p.expectSymbol("{"); err != nil {
		return ast.Expr{}, err
	}
	var stmts []ast.DeclarationStatement
	for p.isKeyword("val") {
		stmt, err := p.parseDeclarationStatement()
		if err != nil {
			return ast.Expr{}, err
		}
		stmts = append(stmts, stmt)
	}
	var final *ast.Expr
	if !p.isSymbol("}") {
		e, err := p.parseExpr()
		if err != nil {
			return ast.Expr{}, err
		}
		final = ptr(e)
	}
	closeTok, err := p.expectSymbol("}")
	if err != nil {
		return ast.Expr{}, err
	}
	return ast.Expr{
		Tag:        ast.ExprBlock,
		Loc:        ast.Location{Module: p.module, Start: start, End: closeTok.End},
		Statements: stmts,
		FinalExpr:  final,
	}, nil
}

func (p *Parser) parseDeclarationStatement() (ast.DeclarationStatement, error) {
	start := p.cur().Start
	if _, err := p.expectKeyword("val"); err != nil {
		return ast.DeclarationStatement{}, err
	}
	pattern, err := p.parsePattern()
	if err != nil {
		return ast.DeclarationStatement{}, err
	}
	var annot *ast.Annotation
	if p.isSymbol(":") {
		p.advance()
		a, err := p.parseAnnotation()
		if err != nil {
			return ast.DeclarationStatement{}, err
		}
		annot = &a
	}
	if _, err := p.expectSymbol("="); err != nil {
		return ast.DeclarationStatement{}, err
	}
	rhs, err := p.parseExpr()
	if err != nil {
		return ast.DeclarationStatement{}, err
	}
	if _, err := p.expectSymbol(";"); err != nil {
		return ast.DeclarationStatement{}, err
	}
	return ast.DeclarationStatement{
		Loc:                ast.Location{Module: p.module, Start: start, End: rhs.Loc.End},
		Pattern:            pattern,
		Annotation:         annot,
		AssignedExpression: rhs,
	}, nil
}

func (p *Parser) parsePattern() (ast.Pattern, error) {
	start := p.cur().Start
	if p.cur().Kind == TokIdent && p.cur().Text == "_" {
		p.advance()
		return ast.Pattern{Tag: ast.PatternWildcard, Loc: p.loc(start)}, nil
	}
	if p.isSymbol("{") {
		p.advance()
		var names []ast.ObjectPatternName
		for !p.isSymbol("}") {
			fieldTok, err := p.expectIdent()
			if err != nil {
				return ast.Pattern{}, err
			}
			field := p.mkID(fieldTok)
			opn := ast.ObjectPatternName{FieldName: field}
			if p.isSymbol(":") {
				p.advance()
				aliasTok, err := p.expectIdent()
				if err != nil {
					return ast.Pattern{}, err
				}
				alias := p.mkID(aliasTok)
				opn.Alias = &alias
			}
			names = append(names, opn)
			if p.isSymbol(",") {
				p.advance()
				continue
			}
			break
		}
		closeTok, err := p.expectSymbol("}")
		if err != nil {
			return ast.Pattern{}, err
		}
		return ast.Pattern{Tag: ast.PatternObject, Loc: ast.Location{Module: p.module, Start: start, End: closeTok.End}, Names: names}, nil
	}
	nameTok, err := p.expectIdent()
	if err != nil {
		return ast.Pattern{}, err
	}
	return ast.Pattern{Tag: ast.PatternId, Loc: p.loc(start), SingleId: p.heap.Alloc(nameTok.Text)}, nil
}
