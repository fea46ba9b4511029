package tokenizer

import (
	"context"
	"unicode"
	"unicode/utf8"

	"github.com/panbanda/sift/pkg/region"
)

// CharTokenizer emits one token per non-whitespace character. It is the
// fallback for files without a grammar. Columns are byte offsets, like the
// code tokenizer's.
type CharTokenizer struct{}

// NewCharTokenizer creates a character tokenizer.
func NewCharTokenizer() *CharTokenizer {
	return &CharTokenizer{}
}

// Tokenize implements Tokenizer.
func (CharTokenizer) Tokenize(ctx context.Context, content []byte) ([]Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tokens := make([]Token, 0, len(content)/2)
	line, col := 0, 0
	for i := 0; i < len(content); {
		r, size := utf8.DecodeRune(content[i:])
		switch {
		case r == '\n':
			line++
			col = 0
		case unicode.IsSpace(r):
			col += size
		default:
			tokens = append(tokens, Token{
				Symbol: string(content[i : i+size]),
				Region: region.New(line, col, line, col+size),
			})
			col += size
		}
		i += size
	}
	return tokens, nil
}
