package parser

import (
	"github.com/synthizer/waveling/internal/ast"
	"github.com/synthizer/waveling/internal/config"
	"github.com/synthizer/waveling/internal/diagnostics"
	"github.com/synthizer/waveling/internal/token"
)

func (p *Parser) parseExpression(precedence int) ast.Expression {
	p.depth++
	defer func() { p.depth-- }()

	if p.depth > config.MaxRecursionDepth {
		if !p.inRecursionRecovery {
			p.addError(diagnostics.ErrP006, p.curToken,
				"expression too complex: recursion depth limit exceeded")
			p.inRecursionRecovery = true
		}
		// Skip the rest of the statement to avoid a cascade of errors.
		p.skipToStatementBoundary()
		p.inRecursionRecovery = false
		return nil
	}

	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.noPrefixParseFnError(p.curToken.Type)
		return nil
	}
	leftExp := prefix()

	for precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}
		p.nextToken()
		nextExp := infix(leftExp)
		if nextExp == nil {
			return nil
		}
		leftExp = nextExp
	}

	return leftExp
}

func (p *Parser) parseIdentifier() ast.Expression {
	return &ast.Identifier{Token: p.curToken, Value: p.curToken.Lexeme}
}

func (p *Parser) parseIntegerLiteral() ast.Expression {
	val, _ := p.curToken.Literal.(int64)
	return &ast.IntegerLiteral{Token: p.curToken, Value: val, Suffix: p.curToken.Suffix}
}

func (p *Parser) parseFloatLiteral() ast.Expression {
	val, _ := p.curToken.Literal.(float64)
	return &ast.FloatLiteral{Token: p.curToken, Value: val, Suffix: p.curToken.Suffix}
}

func (p *Parser) parseBoolLiteral() ast.Expression {
	return &ast.BoolLiteral{Token: p.curToken, Value: p.curTokenIs(token.TRUE)}
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	expression := &ast.PrefixExpression{
		Token:    p.curToken,
		Operator: p.curToken.Lexeme,
	}
	p.nextToken()
	expression.Right = p.parseExpression(PREFIX)
	if expression.Right == nil {
		return nil
	}
	return expression
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	expression := &ast.InfixExpression{
		Token:    p.curToken,
		Operator: p.curToken.Lexeme,
		Left:     left,
	}

	precedence := p.curPrecedence()
	p.nextToken()
	expression.Right = p.parseExpression(precedence)
	if expression.Right == nil {
		return nil
	}

	return expression
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	p.nextToken() // consume '('

	exp := p.parseExpression(LOWEST)
	if exp == nil {
		return nil
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return exp
}

// parseCallExpression parses `callee(arg, arg, ...)` with curToken on '('.
// Arguments are parsed above STACK precedence so the comma separates them
// instead of stacking.
func (p *Parser) parseCallExpression(callee ast.Expression) ast.Expression {
	call := &ast.CallExpression{Token: p.curToken, Callee: callee}

	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return call
	}

	p.nextToken()
	arg := p.parseExpression(STACK)
	if arg == nil {
		return nil
	}
	call.Arguments = append(call.Arguments, arg)

	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		arg := p.parseExpression(STACK)
		if arg == nil {
			return nil
		}
		call.Arguments = append(call.Arguments, arg)
	}

	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return call
}

// parseIndexExpression parses `expr[i]` with curToken on '['.
func (p *Parser) parseIndexExpression(left ast.Expression) ast.Expression {
	idx := &ast.IndexExpression{Token: p.curToken, Left: left}

	p.nextToken()
	idx.Index = p.parseExpression(LOWEST)
	if idx.Index == nil {
		return nil
	}
	if !p.expectPeek(token.RBRACKET) {
		return nil
	}
	return idx
}

// parsePathExpression parses `expr.member` with curToken on '.'.
func (p *Parser) parsePathExpression(left ast.Expression) ast.Expression {
	path := &ast.PathExpression{Token: p.curToken, Left: left}

	if !p.expectPeek(token.IDENT) {
		return nil
	}
	path.Member = p.curToken.Lexeme
	return path
}

// parseBundleLiteral parses `{ expr, name: expr, ... }` with curToken on
// '{'. Positional entries come from bare expressions; `name: expr` pairs
// are named. Entries are parsed above STACK precedence.
func (p *Parser) parseBundleLiteral() ast.Expression {
	bundle := &ast.BundleLiteral{Token: p.curToken}

	for !p.peekTokenIs(token.RBRACE) {
		p.nextToken()

		entry := ast.BundleEntry{Token: p.curToken}
		if p.curTokenIs(token.IDENT) && p.peekTokenIs(token.COLON) {
			entry.Name = p.curToken.Lexeme
			p.nextToken()
			p.nextToken()
		}
		entry.Value = p.parseExpression(STACK)
		if entry.Value == nil {
			return nil
		}
		bundle.Entries = append(bundle.Entries, entry)

		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
		} else if !p.peekTokenIs(token.RBRACE) {
			p.addError(diagnostics.ErrP002, p.peekToken, "expected `,` or `}` in bundle literal")
			return nil
		}
	}
	p.nextToken() // onto }
	return bundle
}
