// File path: internal/expr/lexer.go
package expr

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenIdent
	tokenTrue
	tokenFalse
	tokenAnd
	tokenOr
	tokenNot
	tokenString
	tokenLParen
	tokenRParen
	tokenLBracket
	tokenRBracket
	tokenEq
	tokenNe
	tokenAssign
)

func (k tokenKind) String() string {
	switch k {
	case tokenEOF:
		return "end of input"
	case tokenIdent:
		return "identifier"
	case tokenTrue:
		return "True"
	case tokenFalse:
		return "False"
	case tokenAnd:
		return "and"
	case tokenOr:
		return "or"
	case tokenNot:
		return "not"
	case tokenString:
		return "string"
	case tokenLParen:
		return "("
	case tokenRParen:
		return ")"
	case tokenLBracket:
		return "["
	case tokenRBracket:
		return "]"
	case tokenEq:
		return "=="
	case tokenNe:
		return "!="
	case tokenAssign:
		return "="
	default:
		return "unknown"
	}
}

type token struct {
	kind tokenKind
	text string
	pos  int
}

// lex tokenizes one expression or statement line.
func lex(src string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(src) {
		r, size := utf8.DecodeRuneInString(src[i:])
		switch {
		case r == ' ' || r == '\t' || r == '\r' || r == '\n':
			i += size
		case r == '(':
			tokens = append(tokens, token{tokenLParen, "(", i})
			i++
		case r == ')':
			tokens = append(tokens, token{tokenRParen, ")", i})
			i++
		case r == '[':
			tokens = append(tokens, token{tokenLBracket, "[", i})
			i++
		case r == ']':
			tokens = append(tokens, token{tokenRBracket, "]", i})
			i++
		case r == '=':
			if i+1 < len(src) && src[i+1] == '=' {
				tokens = append(tokens, token{tokenEq, "==", i})
				i += 2
			} else {
				tokens = append(tokens, token{tokenAssign, "=", i})
				i++
			}
		case r == '!':
			if i+1 < len(src) && src[i+1] == '=' {
				tokens = append(tokens, token{tokenNe, "!=", i})
				i += 2
			} else {
				return nil, fmt.Errorf("expr: offset %d: unexpected %q", i, r)
			}
		case r == '\'' || r == '"':
			lit, next, err := lexString(src, i, byte(r))
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{tokenString, lit, i})
			i = next
		case isIdentStart(r):
			start := i
			for i < len(src) {
				r2, size2 := utf8.DecodeRuneInString(src[i:])
				if !isIdentPart(r2) {
					break
				}
				i += size2
			}
			word := src[start:i]
			tokens = append(tokens, token{identKind(word), word, start})
		default:
			return nil, fmt.Errorf("expr: offset %d: unexpected %q", i, r)
		}
	}
	tokens = append(tokens, token{tokenEOF, "", len(src)})
	return tokens, nil
}

func lexString(src string, start int, quote byte) (string, int, error) {
	i := start + 1
	for i < len(src) {
		if src[i] == quote {
			return src[start+1 : i], i + 1, nil
		}
		i++
	}
	return "", 0, fmt.Errorf("expr: offset %d: unterminated string", start)
}

func identKind(word string) tokenKind {
	switch word {
	case "True":
		return tokenTrue
	case "False":
		return tokenFalse
	case "and":
		return tokenAnd
	case "or":
		return tokenOr
	case "not":
		return tokenNot
	default:
		return tokenIdent
	}
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
