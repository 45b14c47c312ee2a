package sourceparse

import (
	"fmt"

	"github.com/samlang-go/samc/internal/ast"
	"github.com/samlang-go/samc/internal/heap"
)

// Parser consumes a token stream into an ast.Module. It is a plain
// recursive-descent parser (no Pratt-table generalization, no error
// recovery beyond returning the first error) since its only job is to
// produce a plausible ast.Module for the checker and language service
// to operate on, not to be a production-grade SAM parser.
type Parser struct {
	heap    *heap.Heap
	module  heap.ModuleReference
	toks    []Token
	pos     int
	generic map[string]bool
}

// New creates a parser over already-tokenized src, interning
// identifiers into h and tagging every produced Location with module.
func New(h *heap.Heap, module heap.ModuleReference, toks []Token) *Parser {
	return &Parser{heap: h, module: module, toks: toks, generic: map[string]bool{}}
}

// Parse lexes and parses text in one call, the shape of the
// collaborator signature in spec.md §6 (`parse(text, module_ref, heap,
// error_set)`), minus the ErrorSet: a syntax error here is reported to
// the caller as a Go error rather than folded into the shared error
// set, since this stand-in parser has no recovery mode to keep going
// after a malformed token stream.
func Parse(h *heap.Heap, module heap.ModuleReference, text string) (*ast.Module, error) {
	toks, err := Tokenize(text)
	if err != nil {
		return nil, err
	}
	p := New(h, module, toks)
	return p.ParseModule()
}

func (p *Parser) cur() Token  { return p.toks[p.pos] }
func (p *Parser) peekAt(n int) Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *Parser) advance() Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) errorf(format string, args ...interface{}) error {
	t := p.cur()
	return fmt.Errorf("syntax error at %s: %s", t.Start, fmt.Sprintf(format, args...))
}

func (p *Parser) expectSymbol(sym string) (Token, error) {
	t := p.cur()
	if t.Kind != TokSymbol || t.Text != sym {
		return Token{}, p.errorf("expected %q, got %q", sym, t.Text)
	}
	return p.advance(), nil
}

func (p *Parser) expectKeyword(kw string) (Token, error) {
	t := p.cur()
	if t.Kind != TokKeyword || t.Text != kw {
		return Token{}, p.errorf("expected keyword %q, got %q", kw, t.Text)
	}
	return p.advance(), nil
}

func (p *Parser) expectIdent() (Token, error) {
	t := p.cur()
	if t.Kind != TokIdent && t.Kind != TokKeyword {
		return Token{}, p.errorf("expected identifier, got %q", t.Text)
	}
	return p.advance(), nil
}

func (p *Parser) isSymbol(sym string) bool {
	t := p.cur()
	return t.Kind == TokSymbol && t.Text == sym
}

func (p *Parser) isKeyword(kw string) bool {
	t := p.cur()
	return t.Kind == TokKeyword && t.Text == kw
}

func (p *Parser) loc(start ast.Position) ast.Location {
	return ast.Location{Module: p.module, Start: start, End: p.cur().End}
}

func (p *Parser) mkID(t Token) ast.Id {
	return ast.Id{Loc: ast.Location{Module: p.module, Start: t.Start, End: t.End}, Name: p.heap.Alloc(t.Text)}
}

// ParseModule parses a full compilation unit: imports then toplevels.
func (p *Parser) ParseModule() (*ast.Module, error) {
	var imports []ast.Import
	for p.isKeyword("import") {
		imp, err := p.parseImport()
		if err != nil {
			return nil, err
		}
		imports = append(imports, imp)
	}
	var tops []ast.Toplevel
	for p.cur().Kind != TokEOF {
		top, err := p.parseToplevel()
		if err != nil {
			return nil, err
		}
		tops = append(tops, top)
	}
	return &ast.Module{Imports: imports, Toplevels: tops}, nil
}

func (p *Parser) parseImport() (ast.Import, error) {
	start := p.cur().Start
	if _, err := p.expectKeyword("import"); err != nil {
		return ast.Import{}, err
	}
	if _, err := p.expectSymbol("{"); err != nil {
		return ast.Import{}, err
	}
	var members []ast.ImportedMember
	for {
		nameTok, err := p.expectIdent()
		if err != nil {
			return ast.Import{}, err
		}
		members = append(members, ast.ImportedMember{Name: p.mkID(nameTok)})
		if p.isSymbol(",") {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expectSymbol("}"); err != nil {
		return ast.Import{}, err
	}
	if _, err := p.expectKeyword("from"); err != nil {
		return ast.Import{}, err
	}
	modName, err := p.parseModulePath()
	if err != nil {
		return ast.Import{}, err
	}
	if _, err := p.expectSymbol(";"); err != nil {
		return ast.Import{}, err
	}
	return ast.Import{
		Loc:             p.loc(start),
		ImportedModule:  heap.NewModuleReference(p.heap, modName),
		ImportedMembers: members,
	}, nil
}

func (p *Parser) parseModulePath() (string, error) {
	first, err := p.expectIdent()
	if err != nil {
		return "", err
	}
	path := first.Text
	for p.isSymbol(".") {
		p.advance()
		next, err := p.expectIdent()
		if err != nil {
			return "", err
		}
		path += "." + next.Text
	}
	return path, nil
}

func (p *Parser) parseToplevel() (ast.Toplevel, error) {
	start := p.cur().Start
	isClass := p.isKeyword("class")
	if isClass {
		p.advance()
	} else if p.isKeyword("interface") {
		p.advance()
	} else {
		return ast.Toplevel{}, p.errorf("expected 'class' or 'interface', got %q", p.cur().Text)
	}
	nameTok, err := p.expectIdent()
	if err != nil {
		return ast.Toplevel{}, err
	}

	savedGeneric := p.generic
	p.generic = map[string]bool{}
	for k, v := range savedGeneric {
		p.generic[k] = v
	}
	defer func() { p.generic = savedGeneric }()

	var typeParams []ast.TypeParameter
	if p.isSymbol("<") {
		typeParams, err = p.parseTypeParams()
		if err != nil {
			return ast.Toplevel{}, err
		}
	}
	var extends []ast.ExtendOrImplementNode
	if p.isKeyword("extends") || (p.cur().Kind == TokIdent && p.cur().Text == "extends") {
		p.advance()
		for {
			ann, err := p.parseIdAnnotation()
			if err != nil {
				return ast.Toplevel{}, err
			}
			extends = append(extends, ast.ExtendOrImplementNode{Id: ann})
			if p.isSymbol(",") {
				p.advance()
				continue
			}
			break
		}
	}
	if _, err := p.expectSymbol("{"); err != nil {
		return ast.Toplevel{}, err
	}

	var typeDef *ast.TypeDefinition
	if isClass && (p.isKeyword("struct") || p.isKeyword("enum")) {
		td, err := p.parseTypeDefinition()
		if err != nil {
			return ast.Toplevel{}, err
		}
		typeDef = &td
	}

	var classMembers []ast.ClassMemberDefinition
	var ifaceMembers []ast.ClassMemberDeclaration
	for !p.isSymbol("}") {
		if isClass {
			m, err := p.parseClassMember()
			if err != nil {
				return ast.Toplevel{}, err
			}
			classMembers = append(classMembers, m)
		} else {
			m, err := p.parseMemberDeclaration()
			if err != nil {
				return ast.Toplevel{}, err
			}
			ifaceMembers = append(ifaceMembers, m)
		}
	}
	if _, err := p.expectSymbol("}"); err != nil {
		return ast.Toplevel{}, err
	}

	tag := ast.ToplevelClass
	if !isClass {
		tag = ast.ToplevelInterface
	}
	return ast.Toplevel{
		Tag:                 tag,
		Loc:                 p.loc(start),
		NameId:              p.mkID(nameTok),
		TypeParams:          typeParams,
		TypeDef:             typeDef,
		ExtendsOrImplements: extends,
		ClassMembers:        classMembers,
		InterfaceMembers:    ifaceMembers,
	}, nil
}

func (p *Parser) parseTypeParams() ([]ast.TypeParameter, error) {
	if _, err := p.expectSymbol("<"); err != nil {
		return nil, err
	}
	var params []ast.TypeParameter
	for {
		nameTok, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		p.generic[nameTok.Text] = true
		tp := ast.TypeParameter{Loc: ast.Location{Module: p.module, Start: nameTok.Start, End: nameTok.End}, Name: p.mkID(nameTok)}
		if p.isSymbol(":") {
			p.advance()
			bound, err := p.parseIdAnnotation()
			if err != nil {
				return nil, err
			}
			tp.Bound = &bound
		}
		params = append(params, tp)
		if p.isSymbol(",") {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expectSymbol(">"); err != nil {
		return nil, err
	}
	return params, nil
}

func (p *Parser) parseTypeDefinition() (ast.TypeDefinition, error) {
	start := p.cur().Start
	if p.isKeyword("struct") {
		p.advance()
		if _, err := p.expectSymbol("{"); err != nil {
			return ast.TypeDefinition{}, err
		}
		var fields []ast.FieldDefinition
		for !p.isSymbol("}") {
			isPublic := true
			if p.isKeyword("private") {
				isPublic = false
				p.advance()
			} else if p.isKeyword("public") {
				p.advance()
			}
			nameTok, err := p.expectIdent()
			if err != nil {
				return ast.TypeDefinition{}, err
			}
			if _, err := p.expectSymbol(":"); err != nil {
				return ast.TypeDefinition{}, err
			}
			annot, err := p.parseAnnotation()
			if err != nil {
				return ast.TypeDefinition{}, err
			}
			fields = append(fields, ast.FieldDefinition{Name: p.mkID(nameTok), Annotation: annot, IsPublic: isPublic})
			if p.isSymbol(",") {
				p.advance()
				continue
			}
			break
		}
		if _, err := p.expectSymbol("}"); err != nil {
			return ast.TypeDefinition{}, err
		}
		return ast.TypeDefinition{Tag: ast.TypeDefinitionStruct, Loc: p.loc(start), Fields: fields}, nil
	}
	if _, err := p.expectKeyword("enum"); err != nil {
		return ast.TypeDefinition{}, err
	}
	if _, err := p.expectSymbol("{"); err != nil {
		return ast.TypeDefinition{}, err
	}
	var variants []ast.VariantDefinition
	for !p.isSymbol("}") {
		nameTok, err := p.expectIdent()
		if err != nil {
			return ast.TypeDefinition{}, err
		}
		var types []ast.Annotation
		if p.isSymbol("(") {
			p.advance()
			for !p.isSymbol(")") {
				a, err := p.parseAnnotation()
				if err != nil {
					return ast.TypeDefinition{}, err
				}
				types = append(types, a)
				if p.isSymbol(",") {
					p.advance()
					continue
				}
				break
			}
			if _, err := p.expectSymbol(")"); err != nil {
				return ast.TypeDefinition{}, err
			}
		}
		variants = append(variants, ast.VariantDefinition{Name: p.mkID(nameTok), AssociatedDataTypes: types})
		if p.isSymbol(",") {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expectSymbol("}"); err != nil {
		return ast.TypeDefinition{}, err
	}
	return ast.TypeDefinition{Tag: ast.TypeDefinitionEnum, Loc: p.loc(start), Variants: variants}, nil
}

func (p *Parser) parseClassMember() (ast.ClassMemberDefinition, error) {
	decl, err := p.parseMemberDeclarationHeader()
	if err != nil {
		return ast.ClassMemberDefinition{}, err
	}
	if _, err := p.expectSymbol("="); err != nil {
		return ast.ClassMemberDefinition{}, err
	}
	body, err := p.parseExpr()
	if err != nil {
		return ast.ClassMemberDefinition{}, err
	}
	if p.isSymbol(";") {
		p.advance()
	}
	return ast.ClassMemberDefinition{Decl: decl, Body: body}, nil
}

func (p *Parser) parseMemberDeclaration() (ast.ClassMemberDeclaration, error) {
	decl, err := p.parseMemberDeclarationHeader()
	if err != nil {
		return ast.ClassMemberDeclaration{}, err
	}
	if p.isSymbol(";") {
		p.advance()
	}
	return decl, nil
}

func (p *Parser) parseMemberDeclarationHeader() (ast.ClassMemberDeclaration, error) {
	start := p.cur().Start
	isPublic := true
	if p.isKeyword("private") {
		isPublic = false
		p.advance()
	} else if p.isKeyword("public") {
		p.advance()
	}
	isMethod := false
	if p.isKeyword("method") {
		isMethod = true
		p.advance()
	} else if _, err := p.expectKeyword("function"); err != nil {
		return ast.ClassMemberDeclaration{}, err
	}
	nameTok, err := p.expectIdent()
	if err != nil {
		return ast.ClassMemberDeclaration{}, err
	}

	savedGeneric := map[string]bool{}
	for k, v := range p.generic {
		savedGeneric[k] = v
	}
	defer func() { p.generic = savedGeneric }()

	var typeParams []ast.TypeParameter
	if p.isSymbol("<") {
		typeParams, err = p.parseTypeParams()
		if err != nil {
			return ast.ClassMemberDeclaration{}, err
		}
	}
	if _, err := p.expectSymbol("("); err != nil {
		return ast.ClassMemberDeclaration{}, err
	}
	var params []ast.AnnotatedParameter
	var argTypes []ast.Annotation
	for !p.isSymbol(")") {
		pNameTok, err := p.expectIdent()
		if err != nil {
			return ast.ClassMemberDeclaration{}, err
		}
		if _, err := p.expectSymbol(":"); err != nil {
			return ast.ClassMemberDeclaration{}, err
		}
		annot, err := p.parseAnnotation()
		if err != nil {
			return ast.ClassMemberDeclaration{}, err
		}
		params = append(params, ast.AnnotatedParameter{Name: p.mkID(pNameTok), Annotation: annot})
		argTypes = append(argTypes, annot)
		if p.isSymbol(",") {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expectSymbol(")"); err != nil {
		return ast.ClassMemberDeclaration{}, err
	}
	if _, err := p.expectSymbol(":"); err != nil {
		return ast.ClassMemberDeclaration{}, err
	}
	retType, err := p.parseAnnotation()
	if err != nil {
		return ast.ClassMemberDeclaration{}, err
	}
	return ast.ClassMemberDeclaration{
		Loc:            p.loc(start),
		IsPublic:       isPublic,
		IsMethod:       isMethod,
		Name:           p.mkID(nameTok),
		TypeParameters: typeParams,
		Parameters:     params,
		Type:           ast.FunctionType{ArgumentTypes: argTypes, ReturnType: retType},
	}, nil
}

// parseAnnotation parses a syntactic type annotation, disambiguating a
// bare identifier as Generic when it names a type parameter currently
// in scope (tracked in p.generic), Id (nominal) otherwise.
func (p *Parser) parseAnnotation() (ast.Annotation, error) {
	start := p.cur().Start
	if p.isSymbol("(") {
		p.advance()
		var args []ast.Annotation
		for !p.isSymbol(")") {
			a, err := p.parseAnnotation()
			if err != nil {
				return ast.Annotation{}, err
			}
			args = append(args, a)
			if p.isSymbol(",") {
				p.advance()
				continue
			}
			break
		}
		if _, err := p.expectSymbol(")"); err != nil {
			return ast.Annotation{}, err
		}
		if _, err := p.expectSymbol("->"); err != nil {
			return ast.Annotation{}, err
		}
		ret, err := p.parseAnnotation()
		if err != nil {
			return ast.Annotation{}, err
		}
		return ast.Annotation{Tag: ast.AnnotationTagFn, Location: p.loc(start), FnArgumentTypes: args, FnReturnType: &ret}, nil
	}
	switch {
	case p.isKeyword("int"):
		p.advance()
		return ast.Annotation{Tag: ast.AnnotationTagPrimitive, Location: p.loc(start), Primitive: ast.AnnotationInt}, nil
	case p.isKeyword("bool"):
		p.advance()
		return ast.Annotation{Tag: ast.AnnotationTagPrimitive, Location: p.loc(start), Primitive: ast.AnnotationBool}, nil
	case p.isKeyword("string"):
		p.advance()
		return ast.Annotation{Tag: ast.AnnotationTagPrimitive, Location: p.loc(start), Primitive: ast.AnnotationString}, nil
	case p.isKeyword("unit"):
		p.advance()
		return ast.Annotation{Tag: ast.AnnotationTagPrimitive, Location: p.loc(start), Primitive: ast.AnnotationUnit}, nil
	}
	nameTok, err := p.expectIdent()
	if err != nil {
		return ast.Annotation{}, err
	}
	if p.generic[nameTok.Text] && !p.isSymbol(".") {
		return ast.Annotation{Tag: ast.AnnotationTagGeneric, Location: p.loc(start), GenericId: p.mkID(nameTok)}, nil
	}
	p.pos-- // step back so parseIdAnnotationFrom can reconsume the name token
	idAnnot, err := p.parseIdAnnotation()
	if err != nil {
		return ast.Annotation{}, err
	}
	return ast.Annotation{Tag: ast.AnnotationTagId, Location: idAnnot.Location, IdAnnot: &idAnnot}, nil
}

// parseIdAnnotation parses a (possibly dotted-module-qualified)
// nominal type reference with optional `<...>` type arguments.
func (p *Parser) parseIdAnnotation() (ast.IdAnnotation, error) {
	start := p.cur().Start
	firstTok, err := p.expectIdent()
	if err != nil {
		return ast.IdAnnotation{}, err
	}
	module := p.module
	nameTok := firstTok
	if p.isSymbol(".") {
		p.advance()
		second, err := p.expectIdent()
		if err != nil {
			return ast.IdAnnotation{}, err
		}
		module = heap.NewModuleReference(p.heap, firstTok.Text)
		nameTok = second
	}
	var typeArgs []ast.Annotation
	if p.isSymbol("<") {
		p.advance()
		for !p.isSymbol(">") {
			a, err := p.parseAnnotation()
			if err != nil {
				return ast.IdAnnotation{}, err
			}
			typeArgs = append(typeArgs, a)
			if p.isSymbol(",") {
				p.advance()
				continue
			}
			break
		}
		if _, err := p.expectSymbol(">"); err != nil {
			return ast.IdAnnotation{}, err
		}
	}
	return ast.IdAnnotation{
		Location:        p.loc(start),
		ModuleReference: module,
		Id:              p.mkID(nameTok),
		TypeArguments:   typeArgs,
	}, nil
}
