// Package sourceparse is the minimal recursive-descent parser
// standing in for the "Collaborator: parser" boundary of spec.md §6:
// `parse(text, module_ref, heap, error_set) -> Module`. It covers a
// deliberately reduced surface of SAM good enough to drive the
// pipeline's own tests and the language service's hover/goto/rename
// queries — not a general SAM-language parser (spec.md §1 marks the
// real lexer/parser out of core scope).
package sourceparse

import (
	"fmt"
	"unicode/utf8"

	"github.com/samlang-go/samc/internal/ast"
)

// TokenKind discriminates a lexed token.
type TokenKind int

const (
	TokEOF TokenKind = iota
	TokIdent
	TokIntLiteral
	TokStringLiteral
	TokSymbol // punctuation/operator, text in Text
	TokKeyword
)

// Token is one lexical unit with its source span.
type Token struct {
	Kind  TokenKind
	Text  string
	Int   int32
	Start ast.Position
	End   ast.Position
}

var keywords = map[string]bool{
	"import": true, "from": true, "class": true, "interface": true,
	"struct": true, "enum": true, "function": true, "method": true,
	"public": true, "private": true, "val": true, "if": true, "else": true,
	"match": true, "true": true, "false": true, "int": true, "bool": true,
	"string": true, "unit": true, "this": true,
}

// Lexer tokenizes SAM source text, tracking grapheme-aware column
// positions via ast.Position.AdvanceRune so locations stay stable over
// non-ASCII identifiers and comments (spec.md §9.X's ambient-stack
// unicode-column guarantee).
type Lexer struct {
	src []rune
	pos int
	at  ast.Position
}

// NewLexer creates a lexer over src.
func NewLexer(src string) *Lexer {
	return &Lexer{src: []rune(src)}
}

func (l *Lexer) peekRune() (rune, bool) {
	if l.pos >= len(l.src) {
		return 0, false
	}
	return l.src[l.pos], true
}

func (l *Lexer) advance() rune {
	r := l.src[l.pos]
	l.pos++
	l.at = l.at.AdvanceRune(r)
	return r
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r > utf8.RuneSelf
}

func isIdentCont(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func (l *Lexer) skipTrivia() {
	for {
		r, ok := l.peekRune()
		if !ok {
			return
		}
		switch {
		case r == ' ' || r == '\t' || r == '\r' || r == '\n':
			l.advance()
		case r == '/' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '/':
			for {
				r, ok := l.peekRune()
				if !ok || r == '\n' {
					break
				}
				l.advance()
			}
		default:
			return
		}
	}
}

// Next returns the next token in the stream.
func (l *Lexer) Next() (Token, error) {
	l.skipTrivia()
	start := l.at
	r, ok := l.peekRune()
	if !ok {
		return Token{Kind: TokEOF, Start: start, End: start}, nil
	}
	switch {
	case isDigit(r):
		var text []rune
		for {
			r, ok := l.peekRune()
			if !ok || !isDigit(r) {
				break
			}
			text = append(text, l.advance())
		}
		var v int32
		for _, d := range text {
			v = v*10 + int32(d-'0')
		}
		return Token{Kind: TokIntLiteral, Text: string(text), Int: v, Start: start, End: l.at}, nil
	case isIdentStart(r):
		var text []rune
		for {
			r, ok := l.peekRune()
			if !ok || !isIdentCont(r) {
				break
			}
			text = append(text, l.advance())
		}
		s := string(text)
		kind := TokIdent
		if keywords[s] {
			kind = TokKeyword
		}
		return Token{Kind: kind, Text: s, Start: start, End: l.at}, nil
	case r == '"':
		l.advance()
		var text []rune
		for {
			r, ok := l.peekRune()
			if !ok {
				return Token{}, fmt.Errorf("unterminated string literal at %s", start)
			}
			if r == '"' {
				l.advance()
				break
			}
			text = append(text, l.advance())
		}
		return Token{Kind: TokStringLiteral, Text: string(text), Start: start, End: l.at}, nil
	default:
		// Greedily match two-rune operators before falling back to one.
		two := ""
		if l.pos+1 < len(l.src) {
			two = string(l.src[l.pos : l.pos+2])
		}
		switch two {
		case "==", "!=", "<=", ">=", "&&", "||", "->", "::":
			l.advance()
			l.advance()
			return Token{Kind: TokSymbol, Text: two, Start: start, End: l.at}, nil
		}
		l.advance()
		return Token{Kind: TokSymbol, Text: string(r), Start: start, End: l.at}, nil
	}
}

// Tokenize drains the full token stream, including a trailing EOF
// token, or returns the first lexical error encountered.
func Tokenize(src string) ([]Token, error) {
	l := NewLexer(src)
	var toks []Token
	for {
		t, err := l.Next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, t)
		if t.Kind == TokEOF {
			return toks, nil
		}
	}
}
