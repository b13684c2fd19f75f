package lexer

import (
	"fmt"
	"strings"

	"github.com/synthizer/waveling/internal/diagnostics"
	"github.com/synthizer/waveling/internal/pipeline"
	"github.com/synthizer/waveling/internal/token"
)

type LexerProcessor struct{}

func (lp *LexerProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	l := New(ctx.SourceCode)

	var tokens []token.Token
	for {
		tok := l.NextToken()
		if tok.Type == token.ILLEGAL {
			msg, _ := tok.Literal.(string)
			var code diagnostics.ErrorCode
			switch {
			case msg == "" || msg == tok.Lexeme:
				code = diagnostics.ErrL001
				msg = fmt.Sprintf("stray character %q", tok.Lexeme)
			case strings.Contains(msg, "suffix"):
				code = diagnostics.ErrL003
			default:
				code = diagnostics.ErrL002
			}
			ctx.AddError(diagnostics.NewError(code, tok, msg))
			continue
		}
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			break
		}
	}

	ctx.TokenStream = token.NewStream(tokens)
	return ctx
}
