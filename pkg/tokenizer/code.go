package tokenizer

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/panbanda/sift/pkg/region"
)

// DefaultMaxDepth bounds the AST nesting the code tokenizer will follow.
const DefaultMaxDepth = 10000

// Option configures a CodeTokenizer.
type Option func(*CodeTokenizer)

// WithMaxDepth sets the maximum AST depth. Deeper trees fail to tokenize.
func WithMaxDepth(depth int) Option {
	return func(t *CodeTokenizer) {
		if depth > 0 {
			t.maxDepth = depth
		}
	}
}

// WithRejectSyntaxErrors makes trees containing ERROR nodes a parse failure.
func WithRejectSyntaxErrors(reject bool) Option {
	return func(t *CodeTokenizer) {
		t.rejectSyntaxErrors = reject
	}
}

// CodeTokenizer linearizes a tree-sitter syntax tree. Every node becomes
// "(", its kind, the tokens of its named children and ")".
type CodeTokenizer struct {
	lang               Language
	parser             *sitter.Parser
	maxDepth           int
	rejectSyntaxErrors bool
}

// NewCodeTokenizer creates a tokenizer for lang.
func NewCodeTokenizer(lang Language, opts ...Option) (*CodeTokenizer, error) {
	tsLang, err := GetTreeSitterLanguage(lang)
	if err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	parser.SetLanguage(tsLang)

	t := &CodeTokenizer{
		lang:     lang,
		parser:   parser,
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Language returns the language the tokenizer parses.
func (t *CodeTokenizer) Language() Language {
	return t.lang
}

// Close releases parser resources.
func (t *CodeTokenizer) Close() {
	t.parser.Close()
}

type frame struct {
	node    *sitter.Node
	depth   int
	closing bool
	loc     region.Region
}

// Tokenize implements Tokenizer.
func (t *CodeTokenizer) Tokenize(ctx context.Context, content []byte) ([]Token, error) {
	tree, err := t.parser.ParseCtx(ctx, nil, content)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if t.rejectSyntaxErrors && root.HasError() {
		return nil, fmt.Errorf("%w: syntax error near %s", ErrParseFailure, firstError(root))
	}

	tokens := make([]Token, 0, 3*int(root.NamedChildCount())+3)
	stack := []frame{{node: root}}
	children := make([]*sitter.Node, 0, 8)
	spans := make([]region.Region, 0, 8)

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if top.closing {
			tokens = append(tokens, Token{Symbol: ")", Region: top.loc})
			continue
		}
		if top.depth > t.maxDepth {
			return nil, fmt.Errorf("%w: syntax tree deeper than %d", ErrParseFailure, t.maxDepth)
		}

		children = children[:0]
		spans = spans[:0]
		for i := 0; i < int(top.node.NamedChildCount()); i++ {
			child := top.node.NamedChild(i)
			children = append(children, child)
			spans = append(spans, nodeRegion(child))
		}
		open, closing := location(nodeRegion(top.node), spans)

		tokens = append(tokens,
			Token{Symbol: "(", Region: open},
			Token{Symbol: top.node.Type(), Region: open},
		)
		stack = append(stack, frame{closing: true, loc: closing})
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: children[i], depth: top.depth + 1})
		}
	}
	return tokens, nil
}

// location picks the parts of a node's span not covered by its named
// children: the first gap for the opening tokens and the last gap for the
// closing one. Fully covered nodes keep their whole span; empty spans are
// widened to one column.
func location(full region.Region, children []region.Region) (open, closing region.Region) {
	open, ok := region.FirstDiff(full, children)
	if !ok {
		return widen(full), widen(full)
	}
	closing, _ = region.LastDiff(full, children)
	return widen(open), widen(closing)
}

func widen(r region.Region) region.Region {
	if r.IsEmpty() {
		return region.New(r.StartLine, r.StartCol, r.StartLine, r.StartCol+1)
	}
	return r
}

func nodeRegion(n *sitter.Node) region.Region {
	start, end := n.StartPoint(), n.EndPoint()
	return region.New(int(start.Row), int(start.Column), int(end.Row), int(end.Column))
}

// firstError returns the region of the first ERROR or MISSING node.
func firstError(root *sitter.Node) region.Region {
	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.Type() == "ERROR" || n.IsMissing() {
			return nodeRegion(n)
		}
		for i := int(n.ChildCount()) - 1; i >= 0; i-- {
			if child := n.Child(i); child.HasError() {
				stack = append(stack, child)
			}
		}
	}
	return nodeRegion(root)
}
