// Package dsl 解析小票描述语言：
//
//	receipt "Coffee" width 58mm {
//	  text monospace size 14pt bold align center { "Total: ${order.total}" }
//	  image "logo.png" width 40mm dither atkinson
//	}
package dsl

import (
	"fmt"
	"io"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/jaedson-barbosa/thermo-print-studio/units"
)

var (
	receiptLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t\r]+`},
		{Name: "Newline", Pattern: `\n+`},
		{Name: "BlockComment", Pattern: `/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
		{Name: "LineComment", Pattern: `//[^\n]*`},
		{Name: "HashComment", Pattern: `#[^\n]*`},
		{Name: "Number", Pattern: `(?:\d+\.\d+|\d+)(?:pt|mm|cm|in|px)?`},
		{Name: "String", Pattern: `"(?:\\.|[^"])*"`},
		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
		{Name: "Punct", Pattern: `[;{}]`},
	})

	receiptParser = participle.MustBuild[Receipt](
		participle.Lexer(receiptLexer),
		participle.Elide("Whitespace", "LineComment", "BlockComment", "HashComment"),
	)
)

// Receipt is the root node: `receipt "name" [width 58mm] { ... }`.
type Receipt struct {
	Pos     lexer.Position `parser:"" json:"-"`
	Name    StringLiteral  `parser:"Newline* 'receipt' @String"`
	Options []*Option      `parser:"@@*"`
	Body    *Block         `parser:"@@ Newline*"`
}

// Block is a braced list of statements separated by newlines or ';'.
type Block struct {
	Statements []*Statement `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// Statement is either a command or a bare string.
type Statement struct {
	Command *Command     `parser:"  @@"`
	Text    *TextLiteral `parser:"| @@"`
}

// Command is one section instruction, e.g. `text bold { "..." }`.
type Command struct {
	Pos     lexer.Position `parser:"" json:"-"`
	Name    string         `parser:"@Ident"`
	Options []*Option      `parser:"@@*"`
	Block   *Block         `parser:"( Newline* @@ )?"`
}

// TextLiteral is a bare string statement.
type TextLiteral struct {
	Value StringLiteral `parser:"@String"`
}

// Option 是命令的一个参数：`key value` 设置、单词标志（bold、serif）或字符串。
type Option struct {
	Pos     lexer.Position `parser:"" json:"-"`
	Setting *Setting       `parser:"  @@"`
	Flag    string         `parser:"| @Ident"`
	Text    *StringLiteral `parser:"| @String"`
}

// Setting is a keyed option such as `size 14pt` or `dither atkinson`.
type Setting struct {
	Key   string `parser:"@('width' | 'size' | 'align' | 'dither' | 'font')"`
	Value *Value `parser:"@@"`
}

// Value of a Setting.
type Value struct {
	Length *Length        `parser:"  @Number"`
	Word   string         `parser:"| @Ident"`
	Text   *StringLiteral `parser:"| @String"`
}

func (v *Value) String() string {
	switch {
	case v == nil:
		return ""
	case v.Length != nil:
		return fmt.Sprintf("%g%s", v.Length.Value, units.UnitToString(v.Length.Unit))
	case v.Text != nil:
		return string(*v.Text)
	}
	return v.Word
}

// Length is a number with an optional unit suffix, parsed on capture.
type Length units.Length

// Capture implements participle.Capture.
func (l *Length) Capture(values []string) error {
	parsed, err := units.ParseLength(values[0])
	if err != nil {
		return err
	}
	*l = Length(parsed)
	return nil
}

// StringLiteral unquotes Go-style strings on capture.
type StringLiteral string

// Capture implements participle.Capture.
func (s *StringLiteral) Capture(values []string) error {
	val, err := strconv.Unquote(values[0])
	if err != nil {
		return fmt.Errorf("bad string %s: %w", values[0], err)
	}
	*s = StringLiteral(val)
	return nil
}

// Parse parses receipt source from an io.Reader.
func Parse(r io.Reader) (*Receipt, error) {
	return receiptParser.Parse("", r)
}

// ParseString parses receipt source from a string.
func ParseString(input string) (*Receipt, error) {
	return receiptParser.ParseString("", input)
}
