// Package ast defines the syntax tree produced by the parser.
package ast

import (
	"github.com/synthizer/waveling/internal/token"
)

// Node is the base interface for all AST nodes.
type Node interface {
	TokenLiteral() string
	GetToken() token.Token
}

// Statement is a Node that represents a statement.
type Statement interface {
	Node
	statementNode()
}

// Expression is a Node that represents an expression.
type Expression interface {
	Node
	expressionNode()
}

// Program is the root node of every AST our parser produces.
// program name; external { ... } stage main(...) { ... }
type Program struct {
	File     string // Source file path
	Token    token.Token
	Name     string
	External *External
	Stages   []*Stage
}

func (p *Program) TokenLiteral() string { return p.Token.Lexeme }
func (p *Program) GetToken() token.Token {
	if p == nil {
		return token.Token{}
	}
	return p.Token
}

// External is the parsed external block: the program's environment contract.
type External struct {
	Token      token.Token // The 'external' token
	SampleRate int64
	BlockSize  int64
	Inputs     []PortDecl
	Outputs    []PortDecl
	Properties []PropertyDecl
}

func (e *External) GetToken() token.Token {
	if e == nil {
		return token.Token{}
	}
	return e.Token
}

// PortDecl declares one external input or output array.
type PortDecl struct {
	Token token.Token
	Name  string
	Width int64
}

// PropertyDecl declares one external property.
// { name: gain, type: f32, rate: b }
type PropertyDecl struct {
	Token token.Token
	Name  string
	Type  string // f32|f64|i32|i64
	Rate  string // "b" or "s"
}

// Stage is a named subgraph with a declared output bundle.
// stage main(out = f32(2)) { ... }
type Stage struct {
	Token   token.Token // The 'stage' token
	Name    string
	Outputs []StageOutputDecl
	Body    []Statement
}

func (s *Stage) TokenLiteral() string { return s.Token.Lexeme }
func (s *Stage) GetToken() token.Token {
	if s == nil {
		return token.Token{}
	}
	return s.Token
}

// StageOutputDecl is one entry of a stage's declared output bundle.
type StageOutputDecl struct {
	Token token.Token
	Name  string
	Shape ShapeLit
}

// ShapeLit is a type(width) literal, e.g. f32(2).
type ShapeLit struct {
	Token  token.Token
	Scalar string // i32|i64|f32|f64|bool
	Width  int64
}

// LetStatement binds a name to the node an expression evaluates to.
// let x = expr;
type LetStatement struct {
	Token token.Token // The 'let' token
	Name  string
	Value Expression
}

func (ls *LetStatement) statementNode()       {}
func (ls *LetStatement) TokenLiteral() string { return ls.Token.Lexeme }
func (ls *LetStatement) GetToken() token.Token {
	if ls == nil {
		return token.Token{}
	}
	return ls.Token
}

// AssignStatement drives an already-declared destination signal.
// out = expr;
type AssignStatement struct {
	Token token.Token // The identifier token
	Name  string
	Value Expression
}

func (as *AssignStatement) statementNode()       {}
func (as *AssignStatement) TokenLiteral() string { return as.Token.Lexeme }
func (as *AssignStatement) GetToken() token.Token {
	if as == nil {
		return token.Token{}
	}
	return as.Token
}

// ExpressionStatement is a bare expression used for its routing side
// effects; its value is discarded.
type ExpressionStatement struct {
	Token token.Token
	Value Expression
}

func (es *ExpressionStatement) statementNode()       {}
func (es *ExpressionStatement) TokenLiteral() string { return es.Token.Lexeme }
func (es *ExpressionStatement) GetToken() token.Token {
	if es == nil {
		return token.Token{}
	}
	return es.Token
}

// CellStatement declares a one-or-more-sample recursion cell.
// cell (prev, nxt): f32(1);  or  cell(4) (prev, nxt): f32(1);
type CellStatement struct {
	Token token.Token // The 'cell' token
	Delay int64       // samples; 1 when no (k) was given
	Start string
	End   string
	Shape ShapeLit
}

func (cs *CellStatement) statementNode()       {}
func (cs *CellStatement) TokenLiteral() string { return cs.Token.Lexeme }
func (cs *CellStatement) GetToken() token.Token {
	if cs == nil {
		return token.Token{}
	}
	return cs.Token
}

// BufferStatement declares a circular buffer.
// buffer echo(128): f32(1);
type BufferStatement struct {
	Token    token.Token // The 'buffer' token
	Name     string
	Capacity Expression
	Shape    ShapeLit
}

func (bs *BufferStatement) statementNode()       {}
func (bs *BufferStatement) TokenLiteral() string { return bs.Token.Lexeme }
func (bs *BufferStatement) GetToken() token.Token {
	if bs == nil {
		return token.Token{}
	}
	return bs.Token
}
