// Package tokenizer turns source files into streams of structural tokens.
//
// A token's symbol is a structural label (a parenthesis or an AST node kind),
// never the literal text, so renaming identifiers or reformatting code does
// not change the stream. Each token keeps the source region it came from.
package tokenizer

import (
	"context"
	"errors"

	"github.com/panbanda/sift/pkg/region"
	"github.com/panbanda/sift/pkg/source"
)

var (
	// ErrParseFailure is returned when a file cannot be turned into tokens.
	ErrParseFailure = errors.New("parse failure")
	// ErrUnsupportedLanguage is returned for languages without a grammar.
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

// Token is one symbol of the stream together with its source region.
type Token struct {
	Symbol string        `json:"symbol"`
	Region region.Region `json:"region"`
}

// Tokenizer converts file content into tokens. Implementations are not safe
// for concurrent use; create one per goroutine.
type Tokenizer interface {
	Tokenize(ctx context.Context, content []byte) ([]Token, error)
}

// Close releases resources held by t, if it holds any.
func Close(t Tokenizer) {
	if c, ok := t.(interface{ Close() }); ok {
		c.Close()
	}
}

// TokenizedFile is a file together with its token stream. It is built once
// and not modified afterwards.
type TokenizedFile struct {
	File     source.File
	Language Language
	Tokens   []Token

	mapping []region.Region
}

// NewTokenizedFile wraps the tokens produced for file.
func NewTokenizedFile(file source.File, lang Language, tokens []Token) *TokenizedFile {
	mapping := make([]region.Region, len(tokens))
	for i, tok := range tokens {
		mapping[i] = tok.Region
	}
	return &TokenizedFile{
		File:     file,
		Language: lang,
		Tokens:   tokens,
		mapping:  mapping,
	}
}

// Tokenize runs tok over file and wraps the result.
func Tokenize(ctx context.Context, tok Tokenizer, file source.File, lang Language) (*TokenizedFile, error) {
	tokens, err := tok.Tokenize(ctx, file.Content)
	if err != nil {
		return nil, err
	}
	return NewTokenizedFile(file, lang, tokens), nil
}

// Symbols returns the token symbols in stream order.
func (f *TokenizedFile) Symbols() []string {
	symbols := make([]string, len(f.Tokens))
	for i, tok := range f.Tokens {
		symbols[i] = tok.Symbol
	}
	return symbols
}

// Mapping returns the source region of every token, indexed by token
// position. The slice is shared and must not be modified.
func (f *TokenizedFile) Mapping() []region.Region {
	return f.mapping
}

// Selection returns the union of the regions of the tokens in r. Indices
// outside the stream are ignored.
func (f *TokenizedFile) Selection(r region.Range) region.Region {
	from := max(r.From, 0)
	to := min(r.To, len(f.mapping))
	if from >= to {
		return region.Region{}
	}
	return region.Merge(f.mapping[from:to]...)
}
