package parser

import (
	"fmt"

	"github.com/synthizer/waveling/internal/ast"
	"github.com/synthizer/waveling/internal/config"
	"github.com/synthizer/waveling/internal/diagnostics"
	"github.com/synthizer/waveling/internal/pipeline"
	"github.com/synthizer/waveling/internal/token"
)

// Operator precedence, loosest to tightest. All binary operators are
// left-associative; -> binds tighter than <-.
const (
	LOWEST  = iota + 1
	ROUTEL  // <-
	ROUTER  // ->
	STACK   // ,
	LOR     // ||
	LAND    // &&
	BOR     // |
	BXOR    // ^
	BAND    // &
	COMPARE // < <= > >= == !=
	SHIFT   // << >>
	SUM     // + -
	PRODUCT // * / %
	PREFIX  // ! ~ unary + -
	POSTFIX // call, index, path
)

var precedences = map[token.TokenType]int{
	token.L_ARROW:   ROUTEL,
	token.ARROW:     ROUTER,
	token.COMMA:     STACK,
	token.OR:        LOR,
	token.AND:       LAND,
	token.PIPE:      BOR,
	token.CARET:     BXOR,
	token.AMPERSAND: BAND,
	token.LT:        COMPARE,
	token.LTE:       COMPARE,
	token.GT:        COMPARE,
	token.GTE:       COMPARE,
	token.EQ:        COMPARE,
	token.NOT_EQ:    COMPARE,
	token.LSHIFT:    SHIFT,
	token.RSHIFT:    SHIFT,
	token.PLUS:      SUM,
	token.MINUS:     SUM,
	token.ASTERISK:  PRODUCT,
	token.SLASH:     PRODUCT,
	token.PERCENT:   PRODUCT,
	token.LPAREN:    POSTFIX,
	token.LBRACKET:  POSTFIX,
	token.DOT:       POSTFIX,
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

type Parser struct {
	stream *token.Stream
	ctx    *pipeline.PipelineContext

	curToken  token.Token
	peekToken token.Token

	prefixParseFns map[token.TokenType]prefixParseFn
	infixParseFns  map[token.TokenType]infixParseFn

	depth               int
	inRecursionRecovery bool
}

func New(stream *token.Stream, ctx *pipeline.PipelineContext) *Parser {
	p := &Parser{stream: stream, ctx: ctx}

	p.prefixParseFns = map[token.TokenType]prefixParseFn{
		token.IDENT:  p.parseIdentifier,
		token.INT:    p.parseIntegerLiteral,
		token.FLOAT:  p.parseFloatLiteral,
		token.TRUE:   p.parseBoolLiteral,
		token.FALSE:  p.parseBoolLiteral,
		token.BANG:   p.parsePrefixExpression,
		token.TILDE:  p.parsePrefixExpression,
		token.MINUS:  p.parsePrefixExpression,
		token.PLUS:   p.parsePrefixExpression,
		token.LPAREN: p.parseGroupedExpression,
		token.LBRACE: p.parseBundleLiteral,
	}

	p.infixParseFns = map[token.TokenType]infixParseFn{
		token.PLUS:      p.parseInfixExpression,
		token.MINUS:     p.parseInfixExpression,
		token.ASTERISK:  p.parseInfixExpression,
		token.SLASH:     p.parseInfixExpression,
		token.PERCENT:   p.parseInfixExpression,
		token.LSHIFT:    p.parseInfixExpression,
		token.RSHIFT:    p.parseInfixExpression,
		token.LT:        p.parseInfixExpression,
		token.LTE:       p.parseInfixExpression,
		token.GT:        p.parseInfixExpression,
		token.GTE:       p.parseInfixExpression,
		token.EQ:        p.parseInfixExpression,
		token.NOT_EQ:    p.parseInfixExpression,
		token.AMPERSAND: p.parseInfixExpression,
		token.CARET:     p.parseInfixExpression,
		token.PIPE:      p.parseInfixExpression,
		token.AND:       p.parseInfixExpression,
		token.OR:        p.parseInfixExpression,
		token.COMMA:     p.parseInfixExpression,
		token.ARROW:     p.parseInfixExpression,
		token.L_ARROW:   p.parseInfixExpression,
		token.LPAREN:    p.parseCallExpression,
		token.LBRACKET:  p.parseIndexExpression,
		token.DOT:       p.parsePathExpression,
	}

	// Prime curToken and peekToken.
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.stream.Next()
}

func (p *Parser) curTokenIs(t token.TokenType) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t token.TokenType) bool { return p.peekToken.Type == t }

func (p *Parser) curPrecedence() int {
	if prec, ok := precedences[p.curToken.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) peekPrecedence() int {
	if prec, ok := precedences[p.peekToken.Type]; ok {
		return prec
	}
	return LOWEST
}

// expectPeek advances when the next token matches, or reports a P002.
func (p *Parser) expectPeek(t token.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.addError(diagnostics.ErrP002, p.peekToken,
		fmt.Sprintf("expected %s, found %q", t, p.peekToken.Lexeme))
	return false
}

func (p *Parser) addError(code diagnostics.ErrorCode, tok token.Token, msg string) {
	p.ctx.AddError(diagnostics.NewError(code, tok, msg))
}

// skipToStatementBoundary consumes tokens until a likely statement end,
// so one syntax error doesn't cascade.
func (p *Parser) skipToStatementBoundary() {
	for !p.curTokenIs(token.SEMICOLON) &&
		!p.curTokenIs(token.RBRACE) &&
		!p.curTokenIs(token.EOF) {
		p.nextToken()
	}
}

// ParseProgram parses the full top-level structure:
// program name; external { ... } stage name(...) { ... } ...
func (p *Parser) ParseProgram() *ast.Program {
	prog := &ast.Program{Token: p.curToken}

	if !p.curTokenIs(token.PROGRAM) {
		p.addError(diagnostics.ErrP003, p.curToken, "a Waveling file starts with `program <name>;`")
		return prog
	}
	if !p.expectPeek(token.IDENT) {
		return prog
	}
	prog.Name = p.curToken.Lexeme
	if !p.expectPeek(token.SEMICOLON) {
		return prog
	}
	p.nextToken()

	if !p.curTokenIs(token.EXTERNAL) {
		p.addError(diagnostics.ErrP003, p.curToken, "expected an `external { ... }` block after the program declaration")
		return prog
	}
	prog.External = p.parseExternal()
	p.nextToken()

	for p.curTokenIs(token.STAGE) {
		stage := p.parseStage()
		if stage == nil {
			return prog
		}
		prog.Stages = append(prog.Stages, stage)
		p.nextToken()
	}

	if len(prog.Stages) == 0 {
		p.addError(diagnostics.ErrP003, p.curToken, "a program needs at least one stage")
	} else if !p.curTokenIs(token.EOF) {
		p.addError(diagnostics.ErrP001, p.curToken,
			fmt.Sprintf("unexpected %q after the last stage", p.curToken.Lexeme))
	}

	return prog
}

// parseStage parses `stage name(out = f32(2), ...) { stmts }` with
// curToken on `stage`. On success curToken rests on the closing brace.
func (p *Parser) parseStage() *ast.Stage {
	stage := &ast.Stage{Token: p.curToken}

	if !p.expectPeek(token.IDENT) {
		return nil
	}
	stage.Name = p.curToken.Lexeme

	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	for !p.peekTokenIs(token.RPAREN) {
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		decl := ast.StageOutputDecl{Token: p.curToken, Name: p.curToken.Lexeme}
		if !p.expectPeek(token.ASSIGN) {
			return nil
		}
		shape, ok := p.parseShapeLit()
		if !ok {
			return nil
		}
		decl.Shape = shape
		stage.Outputs = append(stage.Outputs, decl)
		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
		}
	}
	p.nextToken() // onto )

	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	p.nextToken()

	for !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			stage.Body = append(stage.Body, stmt)
		}
		// Recovery may already have landed on the closing brace.
		if p.curTokenIs(token.RBRACE) || p.curTokenIs(token.EOF) {
			break
		}
		p.nextToken()
	}
	if p.curTokenIs(token.EOF) {
		p.addError(diagnostics.ErrP002, p.curToken, "unterminated stage body, expected `}`")
		return nil
	}

	return stage
}

// parseShapeLit parses `type(width)` with curToken just before the type
// literal. On success curToken rests on the closing paren.
func (p *Parser) parseShapeLit() (ast.ShapeLit, bool) {
	if !p.expectPeek(token.IDENT) {
		return ast.ShapeLit{}, false
	}
	lit := ast.ShapeLit{Token: p.curToken, Scalar: p.curToken.Lexeme}
	switch lit.Scalar {
	case "i32", "i64", "f32", "f64", "bool":
	default:
		p.addError(diagnostics.ErrP005, p.curToken,
			fmt.Sprintf("%q is not a scalar type (want i32, i64, f32, f64, or bool)", lit.Scalar))
		return ast.ShapeLit{}, false
	}
	if !p.expectPeek(token.LPAREN) {
		return ast.ShapeLit{}, false
	}
	if !p.expectPeek(token.INT) {
		return ast.ShapeLit{}, false
	}
	width, _ := p.curToken.Literal.(int64)
	if width < 1 || width > config.MaxChannelWidth {
		p.addError(diagnostics.ErrP005, p.curToken,
			fmt.Sprintf("channel width must be between 1 and %d", config.MaxChannelWidth))
		return ast.ShapeLit{}, false
	}
	lit.Width = width
	if !p.expectPeek(token.RPAREN) {
		return ast.ShapeLit{}, false
	}
	return lit, true
}
