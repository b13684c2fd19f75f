package parser

import (
	"fmt"

	"github.com/synthizer/waveling/internal/ast"
	"github.com/synthizer/waveling/internal/diagnostics"
	"github.com/synthizer/waveling/internal/token"
)

// parseStatement parses one stage-body statement with curToken on its
// first token. On success curToken rests on the terminating semicolon.
func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case token.LET:
		return p.parseLetStatement()
	case token.CELL:
		return p.parseCellStatement()
	case token.BUFFER:
		return p.parseBufferStatement()
	case token.IDENT:
		if p.peekTokenIs(token.ASSIGN) {
			return p.parseAssignStatement()
		}
		return p.parseExpressionStatement()
	default:
		return p.parseExpressionStatement()
	}
}

func (p *Parser) parseLetStatement() ast.Statement {
	stmt := &ast.LetStatement{Token: p.curToken}

	if !p.expectPeek(token.IDENT) {
		p.skipToStatementBoundary()
		return nil
	}
	stmt.Name = p.curToken.Lexeme

	if !p.expectPeek(token.ASSIGN) {
		p.skipToStatementBoundary()
		return nil
	}
	p.nextToken()

	stmt.Value = p.parseExpression(LOWEST)
	if stmt.Value == nil {
		p.skipToStatementBoundary()
		return nil
	}

	if !p.expectPeek(token.SEMICOLON) {
		p.skipToStatementBoundary()
		return nil
	}
	return stmt
}

func (p *Parser) parseAssignStatement() ast.Statement {
	stmt := &ast.AssignStatement{Token: p.curToken, Name: p.curToken.Lexeme}

	p.nextToken() // onto =
	p.nextToken()

	stmt.Value = p.parseExpression(LOWEST)
	if stmt.Value == nil {
		p.skipToStatementBoundary()
		return nil
	}

	if !p.expectPeek(token.SEMICOLON) {
		p.skipToStatementBoundary()
		return nil
	}
	return stmt
}

func (p *Parser) parseExpressionStatement() ast.Statement {
	stmt := &ast.ExpressionStatement{Token: p.curToken}

	stmt.Value = p.parseExpression(LOWEST)
	if stmt.Value == nil {
		p.skipToStatementBoundary()
		return nil
	}

	if !p.expectPeek(token.SEMICOLON) {
		p.skipToStatementBoundary()
		return nil
	}
	return stmt
}

// parseCellStatement parses both forms:
//
//	cell (start, end): f32(1);
//	cell(4) (start, end): f32(1);
func (p *Parser) parseCellStatement() ast.Statement {
	stmt := &ast.CellStatement{Token: p.curToken, Delay: 1}

	if !p.expectPeek(token.LPAREN) {
		p.skipToStatementBoundary()
		return nil
	}

	if p.peekTokenIs(token.INT) {
		// Explicit delay form.
		p.nextToken()
		delay, _ := p.curToken.Literal.(int64)
		stmt.Delay = delay
		if delay < 1 {
			p.addError(diagnostics.ErrP004, p.curToken, "cell delay must be at least 1 sample")
			p.skipToStatementBoundary()
			return nil
		}
		if !p.expectPeek(token.RPAREN) || !p.expectPeek(token.LPAREN) {
			p.skipToStatementBoundary()
			return nil
		}
	}

	if !p.expectPeek(token.IDENT) {
		p.skipToStatementBoundary()
		return nil
	}
	stmt.Start = p.curToken.Lexeme
	if !p.expectPeek(token.COMMA) || !p.expectPeek(token.IDENT) {
		p.skipToStatementBoundary()
		return nil
	}
	stmt.End = p.curToken.Lexeme
	if !p.expectPeek(token.RPAREN) || !p.expectPeek(token.COLON) {
		p.skipToStatementBoundary()
		return nil
	}

	shape, ok := p.parseShapeLit()
	if !ok {
		p.skipToStatementBoundary()
		return nil
	}
	stmt.Shape = shape

	if !p.expectPeek(token.SEMICOLON) {
		p.skipToStatementBoundary()
		return nil
	}
	return stmt
}

// parseBufferStatement parses `buffer name(capacity): f32(1);`.
func (p *Parser) parseBufferStatement() ast.Statement {
	stmt := &ast.BufferStatement{Token: p.curToken}

	if !p.expectPeek(token.IDENT) {
		p.skipToStatementBoundary()
		return nil
	}
	stmt.Name = p.curToken.Lexeme

	if !p.expectPeek(token.LPAREN) {
		p.skipToStatementBoundary()
		return nil
	}
	p.nextToken()
	stmt.Capacity = p.parseExpression(LOWEST)
	if stmt.Capacity == nil {
		p.skipToStatementBoundary()
		return nil
	}
	if !p.expectPeek(token.RPAREN) {
		p.skipToStatementBoundary()
		return nil
	}

	if !p.expectPeek(token.COLON) {
		p.skipToStatementBoundary()
		return nil
	}
	shape, ok := p.parseShapeLit()
	if !ok {
		p.skipToStatementBoundary()
		return nil
	}
	stmt.Shape = shape

	if !p.expectPeek(token.SEMICOLON) {
		p.skipToStatementBoundary()
		return nil
	}
	return stmt
}

func (p *Parser) noPrefixParseFnError(t token.TokenType) {
	p.addError(diagnostics.ErrP001, p.curToken,
		fmt.Sprintf("unexpected %q at the start of an expression", p.curToken.Lexeme))
}
