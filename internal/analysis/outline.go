package analysis

import (
	"errors"
	"strings"
)

// ErrUnsupported is returned by ParseOutline for languages without a parser.
var ErrUnsupported = errors.New("unsupported language")

// Func is a function or method declaration.
type Func struct {
	Name     string
	Receiver string // enclosing type for methods
	Line     int
	EndLine  int
	Params   []string
	Doc      string
	Exported bool
}

// Lines is the length of the declaration in lines.
func (f Func) Lines() int { return f.EndLine - f.Line }

// Type is a type (Go) or class (Python) declaration.
type Type struct {
	Name     string
	Line     int
	EndLine  int
	Methods  int
	Bases    int // embedded types or base classes
	Doc      string
	Exported bool
}

// Outline is the structural summary of one source file.
type Outline struct {
	Language   string
	Lines      int
	PackageDoc string
	Imports    int
	Funcs      []Func
	Types      []Type
	MaxNesting int
	Assertions int
	TestFuncs  int
}

// ParseOutline builds the outline of content using the parser for its
// language.
func ParseOutline(filename, content string) (*Outline, error) {
	switch DetectLanguage(filename) {
	case LangGo:
		return parseGoOutline(filename, content)
	case LangPython:
		return parsePythonOutline(content)
	}
	return nil, ErrUnsupported
}

// lineCount is the number of newline-separated lines, including a trailing
// empty one.
func lineCount(content string) int {
	return strings.Count(content, "\n") + 1
}
