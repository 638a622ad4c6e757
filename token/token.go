// Package token defines the lexical token kinds produced by the scanner.
package token

import "fmt"

// Kind identifies the lexical category of a Token.
type Kind int

const (
	// single-character tokens
	LeftParen Kind = iota
	RightParen
	LeftBrace
	RightBrace
	Comma
	Dot
	Minus
	Plus
	Semicolon
	Slash
	Star

	// one or two character tokens
	Bang
	BangEqual
	Equal
	EqualEqual
	Greater
	GreaterEqual
	Less
	LessEqual

	// literals
	Identifier
	String
	Number

	// keywords
	And
	Class
	Else
	False
	For
	Fun
	If
	Nil
	Or
	Print
	Return
	Super
	This
	True
	Var
	While

	Error
	EOF
)

var names = map[Kind]string{
	LeftParen: "(", RightParen: ")", LeftBrace: "{", RightBrace: "}",
	Comma: ",", Dot: ".", Minus: "-", Plus: "+", Semicolon: ";", Slash: "/", Star: "*",
	Bang: "!", BangEqual: "!=", Equal: "=", EqualEqual: "==",
	Greater: ">", GreaterEqual: ">=", Less: "<", LessEqual: "<=",
	Identifier: "IDENTIFIER", String: "STRING", Number: "NUMBER",
	And: "and", Class: "class", Else: "else", False: "false", For: "for", Fun: "fun",
	If: "if", Nil: "nil", Or: "or", Print: "print", Return: "return", Super: "super",
	This: "this", True: "true", Var: "var", While: "while",
	Error: "ERROR", EOF: "EOF",
}

func (k Kind) String() string {
	if s, ok := names[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Keywords maps reserved words to their token kind. The scanner consults
// this only after it has already recognized a maximal identifier run.
var Keywords = map[string]Kind{
	"and": And, "class": Class, "else": Else, "false": False, "for": For,
	"fun": Fun, "if": If, "nil": Nil, "or": Or, "print": Print, "return": Return,
	"super": Super, "this": This, "true": True, "var": Var, "while": While,
}

// Token is a lexical token. Start and Length index into the scanner's
// source buffer; the lexeme is resolved on demand via Lexeme, not stored.
type Token struct {
	Kind    Kind
	Start   int
	Length  int
	Line    int
	Message string // only set for Error tokens, carries the diagnostic
}

// Lexeme slices the original source text to recover this token's text.
func (t Token) Lexeme(source string) string {
	if t.Kind == Error {
		return t.Message
	}
	return source[t.Start : t.Start+t.Length]
}

func (t Token) String() string {
	return fmt.Sprintf("Token{%s @%d}", t.Kind, t.Line)
}
