package analysis

import (
	"path"
	"strings"
)

// Languages understood by the outline parsers.
const (
	LangGo     = "go"
	LangPython = "python"
)

// DetectLanguage returns the language of filename from its extension, or
// "" when the language has no outline parser.
func DetectLanguage(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".go":
		return LangGo
	case ".py", ".pyw":
		return LangPython
	}
	return ""
}

// IsTestFile reports whether filename looks like a test file.
func IsTestFile(filename string) bool {
	base := strings.ToLower(path.Base(filename))
	if strings.HasSuffix(base, "_test.go") || strings.HasSuffix(base, "_test.py") || strings.HasPrefix(base, "test_") {
		return true
	}
	for _, dir := range strings.Split(path.Dir(filename), "/") {
		if dir == "tests" || dir == "test" {
			return true
		}
	}
	return false
}
