package tokenizer

import (
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/php"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Language identifies the tokenizer used for a file. Files are only ever
// compared with files of the same Language.
type Language string

const (
	LangGo         Language = "go"
	LangRust       Language = "rust"
	LangPython     Language = "python"
	LangTypeScript Language = "typescript"
	LangJavaScript Language = "javascript"
	LangTSX        Language = "tsx"
	LangJava       Language = "java"
	LangC          Language = "c"
	LangCPP        Language = "cpp"
	LangCSharp     Language = "csharp"
	LangRuby       Language = "ruby"
	LangPHP        Language = "php"
	LangBash       Language = "bash"

	// LangChar selects the character tokenizer. Files with an unknown
	// extension fall back to it.
	LangChar Language = "char"
	// LangAuto detects the language of each file from its extension.
	LangAuto Language = "auto"
)

// Languages lists every language accepted by ParseLanguage, in display order.
func Languages() []Language {
	return []Language{
		LangAuto, LangChar,
		LangBash, LangC, LangCPP, LangCSharp, LangGo, LangJava,
		LangJavaScript, LangPHP, LangPython, LangRuby, LangRust,
		LangTSX, LangTypeScript,
	}
}

// ParseLanguage validates a user supplied language name. The empty string
// means LangAuto.
func ParseLanguage(name string) (Language, error) {
	if name == "" {
		return LangAuto, nil
	}
	lang := Language(strings.ToLower(name))
	for _, known := range Languages() {
		if lang == known {
			return lang, nil
		}
	}
	switch lang {
	case "js":
		return LangJavaScript, nil
	case "ts":
		return LangTypeScript, nil
	case "py":
		return LangPython, nil
	case "c++":
		return LangCPP, nil
	case "c#", "cs":
		return LangCSharp, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, name)
}

// GetTreeSitterLanguage returns the tree-sitter grammar for a language.
func GetTreeSitterLanguage(lang Language) (*sitter.Language, error) {
	switch lang {
	case LangGo:
		return golang.GetLanguage(), nil
	case LangRust:
		return rust.GetLanguage(), nil
	case LangPython:
		return python.GetLanguage(), nil
	case LangTypeScript:
		return typescript.GetLanguage(), nil
	case LangTSX:
		return tsx.GetLanguage(), nil
	case LangJavaScript:
		return javascript.GetLanguage(), nil
	case LangJava:
		return java.GetLanguage(), nil
	case LangC:
		return c.GetLanguage(), nil
	case LangCPP:
		return cpp.GetLanguage(), nil
	case LangCSharp:
		return csharp.GetLanguage(), nil
	case LangRuby:
		return ruby.GetLanguage(), nil
	case LangPHP:
		return php.GetLanguage(), nil
	case LangBash:
		return bash.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
	}
}

// DetectLanguage determines the language from a file path. Unknown
// extensions map to LangChar.
func DetectLanguage(path string) Language {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".go":
		return LangGo
	case ".rs":
		return LangRust
	case ".py", ".pyw", ".pyi":
		return LangPython
	case ".ts", ".mts", ".cts":
		return LangTypeScript
	case ".tsx":
		return LangTSX
	case ".js", ".mjs", ".cjs":
		return LangJavaScript
	case ".jsx":
		return LangTSX // TSX grammar parses JSX
	case ".java":
		return LangJava
	case ".c", ".h":
		return LangC
	case ".cpp", ".cc", ".cxx", ".hpp", ".hxx", ".hh":
		return LangCPP
	case ".cs":
		return LangCSharp
	case ".rb":
		return LangRuby
	case ".php":
		return LangPHP
	case ".sh", ".bash":
		return LangBash
	default:
		return LangChar
	}
}

// Resolve returns the language to use for path given the configured
// language. LangAuto defers to DetectLanguage.
func Resolve(configured Language, path string) Language {
	if configured == "" || configured == LangAuto {
		return DetectLanguage(path)
	}
	return configured
}

// Covers reports whether a file found while walking a directory belongs to
// the configured language. Auto keeps files with a grammar, char keeps
// everything.
func Covers(configured Language, path string) bool {
	detected := DetectLanguage(path)
	switch configured {
	case LangAuto, "":
		return detected != LangChar
	case LangChar:
		return true
	default:
		return detected == configured
	}
}

// ForLanguage builds a fresh tokenizer for lang. The returned tokenizer is
// not safe for concurrent use.
func ForLanguage(lang Language, opts ...Option) (Tokenizer, error) {
	switch lang {
	case LangChar:
		return NewCharTokenizer(), nil
	case LangAuto, "":
		return nil, fmt.Errorf("%w: %q needs a file path to resolve", ErrUnsupportedLanguage, lang)
	}
	return NewCodeTokenizer(lang, opts...)
}
