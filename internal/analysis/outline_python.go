package analysis

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	pyDefRe   = regexp.MustCompile(`^(?:async\s+)?def\s+([A-Za-z_]\w*)\s*\((.*?)\)?\s*(?:->.*)?:?\s*$`)
	pyClassRe = regexp.MustCompile(`^class\s+([A-Za-z_]\w*)\s*(?:\((.*?)\))?\s*:`)
	pyCtrlRe  = regexp.MustCompile(`^(?:async\s+)?(if|elif|else|for|while|with|try|except|finally)\b.*:\s*(?:#.*)?$`)
)

var tripleQuotes = []string{`"""`, `'''`}

type pyBlock struct {
	indent int
	kind   string // def, class, ctrl
	idx    int    // index into Funcs or Types
}

// parsePythonOutline scans Python source by indentation. It understands
// def/class/control blocks and docstrings, which is all the analyzers need.
func parsePythonOutline(content string) (*Outline, error) {
	lines := strings.Split(content, "\n")
	o := &Outline{Language: LangPython, Lines: lineCount(content)}

	var stack []pyBlock
	lastCode := 0
	seenStatement := false
	open := ""

	closeTo := func(indent, at int) {
		for len(stack) > 0 && stack[len(stack)-1].indent >= indent {
			b := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			switch b.kind {
			case "def":
				o.Funcs[b.idx].EndLine = at
			case "class":
				o.Types[b.idx].EndLine = at
			}
		}
	}
	ctrlDepth := func() int {
		n := 0
		for _, b := range stack {
			if b.kind == "ctrl" {
				n++
			}
		}
		return n
	}

	for i := 0; i < len(lines); i++ {
		raw := lines[i]
		text := strings.TrimSpace(raw)
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		lineNo := i + 1
		indent := len(raw) - len(strings.TrimLeft(raw, " \t"))

		if q := docQuote(text); q != "" {
			doc, end, ok := readDocstring(lines, i, q)
			if !ok {
				open = q
			}
			if !seenStatement {
				o.PackageDoc = doc
			}
			seenStatement = true
			i = end
			lastCode = end + 1
			continue
		}
		seenStatement = true

		closeTo(indent, lastCode)
		lastCode = lineNo

		switch {
		case strings.HasPrefix(text, "import ") || strings.HasPrefix(text, "from "):
			o.Imports++

		case pyClassRe.MatchString(text):
			m := pyClassRe.FindStringSubmatch(text)
			t := Type{Name: m[1], Line: lineNo, EndLine: lineNo, Bases: countBases(m[2]), Exported: !strings.HasPrefix(m[1], "_")}
			t.Doc = docAfter(lines, i)
			o.Types = append(o.Types, t)
			stack = append(stack, pyBlock{indent: indent, kind: "class", idx: len(o.Types) - 1})

		case pyDefRe.MatchString(text):
			m := pyDefRe.FindStringSubmatch(text)
			fn := Func{Name: m[1], Line: lineNo, EndLine: lineNo, Exported: !strings.HasPrefix(m[1], "_")}
			fn.Params = paramList(m[2])
			if len(stack) > 0 && stack[len(stack)-1].kind == "class" {
				cls := stack[len(stack)-1].idx
				fn.Receiver = o.Types[cls].Name
				o.Types[cls].Methods++
			}
			if strings.HasPrefix(fn.Name, "test_") || strings.HasSuffix(fn.Name, "_test") {
				o.TestFuncs++
			}
			fn.Doc = docAfter(lines, i)
			o.Funcs = append(o.Funcs, fn)
			stack = append(stack, pyBlock{indent: indent, kind: "def", idx: len(o.Funcs) - 1})

		case pyCtrlRe.MatchString(text):
			stack = append(stack, pyBlock{indent: indent, kind: "ctrl"})
			if d := ctrlDepth(); d > o.MaxNesting {
				o.MaxNesting = d
			}
		}

		if strings.HasPrefix(text, "assert ") || strings.Contains(text, ".assert") {
			o.Assertions++
		}

		// A triple-quoted literal opened mid-line swallows lines until it closes.
		if q := unbalancedQuote(text); q != "" {
			open = q
			for i+1 < len(lines) {
				i++
				if strings.Contains(lines[i], q) {
					open = ""
					lastCode = i + 1
					break
				}
			}
		}
	}
	closeTo(0, lastCode)

	if open != "" {
		return nil, fmt.Errorf("unterminated %s string", open)
	}
	return o, nil
}

// docQuote returns the triple quote that opens text, if any.
func docQuote(text string) string {
	text = strings.TrimLeft(text, "rRuU")
	for _, q := range tripleQuotes {
		if strings.HasPrefix(text, q) {
			return q
		}
	}
	return ""
}

// unbalancedQuote returns the triple quote left open at the end of text.
func unbalancedQuote(text string) string {
	for _, q := range tripleQuotes {
		if strings.Count(text, q)%2 == 1 {
			return q
		}
	}
	return ""
}

// readDocstring returns the docstring starting at lines[start], the index
// of its closing line and whether it was closed at all.
func readDocstring(lines []string, start int, q string) (string, int, bool) {
	first := strings.TrimSpace(lines[start])
	first = first[strings.Index(first, q)+len(q):]
	if idx := strings.Index(first, q); idx >= 0 {
		return strings.TrimSpace(first[:idx]), start, true
	}
	parts := []string{first}
	for i := start + 1; i < len(lines); i++ {
		l := strings.TrimSpace(lines[i])
		if idx := strings.Index(l, q); idx >= 0 {
			parts = append(parts, l[:idx])
			return strings.TrimSpace(strings.Join(parts, "\n")), i, true
		}
		parts = append(parts, l)
	}
	return strings.TrimSpace(strings.Join(parts, "\n")), len(lines) - 1, false
}

// docAfter returns the docstring of the block opened at lines[i].
func docAfter(lines []string, i int) string {
	for j := i + 1; j < len(lines); j++ {
		text := strings.TrimSpace(lines[j])
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if q := docQuote(text); q != "" {
			doc, _, _ := readDocstring(lines, j, q)
			return doc
		}
		return ""
	}
	return ""
}

func paramList(args string) []string {
	var params []string
	for _, a := range strings.Split(args, ",") {
		a = strings.TrimSpace(a)
		if i := strings.IndexAny(a, ":="); i >= 0 {
			a = strings.TrimSpace(a[:i])
		}
		a = strings.TrimLeft(a, "*")
		if a == "" || a == "self" || a == "cls" || a == "/" {
			continue
		}
		params = append(params, a)
	}
	return params
}

func countBases(args string) int {
	n := 0
	for _, a := range strings.Split(args, ",") {
		a = strings.TrimSpace(a)
		if a != "" && a != "object" && !strings.HasPrefix(a, "metaclass") {
			n++
		}
	}
	return n
}
