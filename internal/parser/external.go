package parser

import (
	"fmt"

	"github.com/synthizer/waveling/internal/ast"
	"github.com/synthizer/waveling/internal/diagnostics"
	"github.com/synthizer/waveling/internal/token"
)

// The external block is its own small meta language: objects of
// `key: value` pairs, arrays, and bare literals (identifiers or numbers).
// It is parsed generically first, then extracted into ast.External so the
// diagnostics can point at the offending value.

type metaVal struct {
	tok token.Token
	obj map[string]metaVal
	arr []metaVal
	lit token.Token // identifier or number
}

// parseExternal parses `external { ... }` with curToken on `external`.
// On return curToken rests on the closing brace.
func (p *Parser) parseExternal() *ast.External {
	ext := &ast.External{Token: p.curToken}

	if !p.expectPeek(token.LBRACE) {
		return ext
	}
	obj := p.parseMetaObject()
	p.extractExternal(ext, obj)
	return ext
}

// parseMetaObject parses `{ key: value, ... }` with curToken on '{'.
// curToken ends on the matching '}'.
func (p *Parser) parseMetaObject() metaVal {
	val := metaVal{tok: p.curToken, obj: make(map[string]metaVal)}

	for !p.peekTokenIs(token.RBRACE) && !p.peekTokenIs(token.EOF) {
		if !p.expectPeek(token.IDENT) {
			p.skipToExternalBoundary()
			return val
		}
		key := p.curToken.Lexeme
		keyTok := p.curToken
		if !p.expectPeek(token.COLON) {
			p.skipToExternalBoundary()
			return val
		}
		p.nextToken()
		entry, ok := p.parseMetaValue()
		if !ok {
			p.skipToExternalBoundary()
			return val
		}
		if _, dup := val.obj[key]; dup {
			p.addError(diagnostics.ErrX001, keyTok, fmt.Sprintf("duplicate key %q", key))
		}
		val.obj[key] = entry

		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
		}
	}
	p.nextToken() // onto }
	return val
}

// parseMetaValue parses one value with curToken on its first token.
func (p *Parser) parseMetaValue() (metaVal, bool) {
	switch p.curToken.Type {
	case token.LBRACE:
		return p.parseMetaObject(), true
	case token.LBRACKET:
		val := metaVal{tok: p.curToken}
		for !p.peekTokenIs(token.RBRACKET) && !p.peekTokenIs(token.EOF) {
			p.nextToken()
			entry, ok := p.parseMetaValue()
			if !ok {
				return val, false
			}
			val.arr = append(val.arr, entry)
			if p.peekTokenIs(token.COMMA) {
				p.nextToken()
			}
		}
		p.nextToken() // onto ]
		if val.arr == nil {
			val.arr = []metaVal{}
		}
		return val, true
	case token.IDENT, token.INT, token.FLOAT:
		return metaVal{tok: p.curToken, lit: p.curToken}, true
	default:
		p.addError(diagnostics.ErrX001, p.curToken,
			fmt.Sprintf("unexpected %q in external block", p.curToken.Lexeme))
		return metaVal{}, false
	}
}

func (p *Parser) skipToExternalBoundary() {
	for !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		p.nextToken()
	}
}

func (p *Parser) extractExternal(ext *ast.External, obj metaVal) {
	for key, val := range obj.obj {
		switch key {
		case "sr":
			ext.SampleRate = p.metaInt(val, "sr")
		case "block_size":
			ext.BlockSize = p.metaInt(val, "block_size")
		case "inputs":
			ext.Inputs = p.metaPorts(val, "inputs")
		case "outputs":
			ext.Outputs = p.metaPorts(val, "outputs")
		case "properties":
			ext.Properties = p.metaProperties(val)
		default:
			p.addError(diagnostics.ErrX002, val.tok,
				fmt.Sprintf("unknown external key %q", key))
		}
	}

	if ext.SampleRate <= 0 {
		p.addError(diagnostics.ErrX002, ext.Token, "external block needs a positive `sr`")
	}
	if ext.BlockSize <= 0 {
		p.addError(diagnostics.ErrX002, ext.Token, "external block needs a positive `block_size`")
	}
}

func (p *Parser) metaInt(val metaVal, key string) int64 {
	if v, ok := val.lit.Literal.(int64); ok {
		return v
	}
	p.addError(diagnostics.ErrX002, val.tok, fmt.Sprintf("%s must be an integer", key))
	return 0
}

func (p *Parser) metaIdent(val metaVal, key string) string {
	if val.lit.Type == token.IDENT {
		return val.lit.Lexeme
	}
	p.addError(diagnostics.ErrX002, val.tok, fmt.Sprintf("%s must be an identifier", key))
	return ""
}

func (p *Parser) metaPorts(val metaVal, key string) []ast.PortDecl {
	if val.arr == nil {
		p.addError(diagnostics.ErrX002, val.tok, fmt.Sprintf("%s must be an array of { name, width } objects", key))
		return nil
	}
	var ports []ast.PortDecl
	for _, entry := range val.arr {
		if entry.obj == nil {
			p.addError(diagnostics.ErrX002, entry.tok, fmt.Sprintf("each %s entry must be a { name, width } object", key))
			continue
		}
		port := ast.PortDecl{Token: entry.tok, Width: 1}
		for k, v := range entry.obj {
			switch k {
			case "name":
				port.Name = p.metaIdent(v, "name")
			case "width":
				port.Width = p.metaInt(v, "width")
			default:
				p.addError(diagnostics.ErrX002, v.tok, fmt.Sprintf("unknown %s key %q", key, k))
			}
		}
		if port.Name == "" {
			p.addError(diagnostics.ErrX002, entry.tok, fmt.Sprintf("each %s entry needs a name", key))
			continue
		}
		if port.Width < 1 {
			p.addError(diagnostics.ErrX002, entry.tok, "port width must be at least 1")
			continue
		}
		ports = append(ports, port)
	}
	return ports
}

func (p *Parser) metaProperties(val metaVal) []ast.PropertyDecl {
	if val.arr == nil {
		p.addError(diagnostics.ErrX002, val.tok, "properties must be an array of { name, type, rate } objects")
		return nil
	}
	var props []ast.PropertyDecl
	for _, entry := range val.arr {
		if entry.obj == nil {
			p.addError(diagnostics.ErrX002, entry.tok, "each property must be a { name, type, rate } object")
			continue
		}
		prop := ast.PropertyDecl{Token: entry.tok, Type: "f64", Rate: "b"}
		for k, v := range entry.obj {
			switch k {
			case "name":
				prop.Name = p.metaIdent(v, "name")
			case "type":
				prop.Type = p.metaIdent(v, "type")
				switch prop.Type {
				case "f32", "f64", "i32", "i64":
				default:
					p.addError(diagnostics.ErrX002, v.tok,
						fmt.Sprintf("property type must be f32, f64, i32, or i64, not %q", prop.Type))
				}
			case "rate":
				prop.Rate = p.metaIdent(v, "rate")
				if prop.Rate != "b" && prop.Rate != "s" {
					p.addError(diagnostics.ErrX002, v.tok,
						fmt.Sprintf("property rate must be b or s, not %q", prop.Rate))
				}
			default:
				p.addError(diagnostics.ErrX002, v.tok, fmt.Sprintf("unknown property key %q", k))
			}
		}
		if prop.Name == "" {
			p.addError(diagnostics.ErrX002, entry.tok, "each property needs a name")
			continue
		}
		props = append(props, prop)
	}
	return props
}
