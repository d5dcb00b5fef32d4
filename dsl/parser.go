// Package dsl 解析牌组描述文件：显示选项、筛选条件与卡片清单。
//
//	deck "Wizard Prep" {
//	  options {
//	    page: a4
//	    sort: level
//	  }
//	  filter {
//	    levels: [0, 1]
//	  }
//	  cards {
//	    reference
//	    spell "Fireball" source XPHB star
//	  }
//	}
package dsl

import (
	"fmt"
	"io"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	dslLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t\r]+`},
		{Name: "Newline", Pattern: `\n+`},
		{Name: "BlockComment", Pattern: `/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
		{Name: "LineComment", Pattern: `//[^\n]*`},
		{Name: "HashComment", Pattern: `#[^\n]*`},
		{Name: "Number", Pattern: `\d+(?:\.\d+)?`},
		{Name: "String", Pattern: `"(?:\\.|[^"])*"`},
		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
		{Name: "Symbol", Pattern: `[][,:;]`},
		{Name: "LBrace", Pattern: `{`},
		{Name: "RBrace", Pattern: `}`},
	})

	tokenNames       = invertSymbols(dslLexer.Symbols())
	newlineTokenType = mustTokenType("Newline")
	lbraceTokenType  = mustTokenType("LBrace")
	rbraceTokenType  = mustTokenType("RBrace")
	symbolTokenType  = mustTokenType("Symbol")
	stringTokenType  = mustTokenType("String")

	fileParser = participle.MustBuild[File](
		participle.Lexer(dslLexer),
		participle.Elide("Whitespace", "LineComment", "BlockComment", "HashComment"),
		participle.UseLookahead(2),
	)
)

// File is the root AST node of a deck file.
type File struct {
	Pos      lexer.Position `parser:"" json:"-"`
	Name     StringLiteral  `parser:"Newline* 'deck' @String"`
	Sections []*Section     `parser:"'{' Newline* ( @@ Newline* )* '}' Newline*"`
}

// Section is one of options / filter / cards.
type Section struct {
	Pos     lexer.Position `parser:"" json:"-"`
	Options *Block         `parser:"  'options' @@"`
	Filter  *Block         `parser:"| 'filter' @@"`
	Cards   *Block         `parser:"| 'cards' @@"`
}

// Kind returns the human-readable section type.
func (s *Section) Kind() string {
	switch {
	case s == nil:
		return "unknown"
	case s.Options != nil:
		return "options"
	case s.Filter != nil:
		return "filter"
	case s.Cards != nil:
		return "cards"
	default:
		return "unknown"
	}
}

// Block is a delimited list of statements.
type Block struct {
	Statements []*Statement `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// Statement inside a block: `key: value` or a command with bare arguments.
type Statement struct {
	Assignment *Assignment `parser:"  @@"`
	Command    *Command    `parser:"| @@"`
}

// Assignment uses colon syntax (key: value).
type Assignment struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Key   string         `parser:"@Ident"`
	Value *Value         `parser:"':' @@"`
}

// Command is a card entry such as `spell "Fireball" source PHB star`.
type Command struct {
	Pos  lexer.Position `parser:"" json:"-"`
	Name string         `parser:"@Ident"`
	Args []*Lexeme      `parser:"@@*"`
}

// Value represents property values.
type Value struct {
	String *StringLiteral `parser:"  @String"`
	Number *string        `parser:"| @Number"`
	Word   *string        `parser:"| @Ident"`
	Array  *ArrayValue    `parser:"| @@"`
}

// ArrayValue captures `[ ... ]` lists.
type ArrayValue struct {
	Values []*Value `parser:"'[' Newline* ( @@ ( (',' | Newline+) Newline* @@ )* )? Newline* ']'"`
}

// Lexeme captures a single lexical token (used by command arguments).
type Lexeme struct {
	Type  string         `json:"type"`
	Value string         `json:"value"`
	Raw   string         `json:"raw"`
	Pos   lexer.Position `json:"-"`
}

// Parse implements participle.Parseable so Lexeme can act as a grammar atom.
func (l *Lexeme) Parse(lex *lexer.PeekingLexer) error {
	tok := lex.Peek()
	if shouldStopArg(tok) {
		return participle.NextMatch
	}
	lexeme, err := newLexeme(*lex.Next())
	if err != nil {
		return err
	}
	*l = lexeme
	return nil
}

// StringLiteral unquotes Go-style strings on capture.
type StringLiteral string

// Capture implements participle.Capture.
func (s *StringLiteral) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("string literal capture requires value")
	}
	val, err := strconv.Unquote(values[0])
	if err != nil {
		return err
	}
	*s = StringLiteral(val)
	return nil
}

// Parse parses a deck file from an io.Reader; name is used in error positions.
func Parse(name string, r io.Reader) (*File, error) {
	return fileParser.Parse(name, r)
}

// ParseString parses deck file content from a string.
func ParseString(input string) (*File, error) {
	return fileParser.ParseString("", input)
}

func shouldStopArg(tok *lexer.Token) bool {
	if tok == nil || tok.EOF() {
		return true
	}
	switch tok.Type {
	case newlineTokenType, rbraceTokenType, lbraceTokenType:
		return true
	case symbolTokenType:
		return tok.Value == ";"
	default:
		return false
	}
}

func newLexeme(tok lexer.Token) (Lexeme, error) {
	name, ok := tokenNames[tok.Type]
	if !ok {
		name = fmt.Sprintf("#%d", tok.Type)
	}
	val := tok.Value
	if tok.Type == stringTokenType {
		unquoted, err := strconv.Unquote(tok.Value)
		if err != nil {
			return Lexeme{}, err
		}
		val = unquoted
	}
	return Lexeme{Type: name, Value: val, Raw: tok.Value, Pos: tok.Pos}, nil
}

func invertSymbols(symbols map[string]lexer.TokenType) map[lexer.TokenType]string {
	out := make(map[lexer.TokenType]string, len(symbols))
	for name, tt := range symbols {
		out[tt] = name
	}
	return out
}

func mustTokenType(name string) lexer.TokenType {
	tt, ok := dslLexer.Symbols()[name]
	if !ok {
		panic(fmt.Sprintf("token %s not defined", name))
	}
	return tt
}
