package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/joescharf/revu/internal/models"
	"github.com/joescharf/revu/internal/review"
)

const maxLineLength = 100

var lintWeights = map[string]float64{
	models.LintConvention: 0.1,
	models.LintRefactor:   0.2,
	models.LintWarning:    0.4,
	models.LintError:      1.0,
	models.LintFatal:      2.0,
}

type lintRule struct {
	lang    string // "" for every language
	re      *regexp.Regexp
	kind    string
	symbol  string
	message string
	skip    func(filename string) bool
}

var lintRules = []lintRule{
	{re: regexp.MustCompile(`\b(?:TODO|FIXME|XXX)\b`), kind: models.LintWarning, symbol: "fixme", message: "Unresolved TODO/FIXME marker"},
	{lang: LangPython, re: regexp.MustCompile(`^\s*except\s*:`), kind: models.LintWarning, symbol: "bare-except", message: "No exception type(s) specified"},
	{lang: LangPython, re: regexp.MustCompile(`^\s*from\s+\S+\s+import\s+\*`), kind: models.LintWarning, symbol: "wildcard-import", message: "Wildcard import"},
	{lang: LangPython, re: regexp.MustCompile(`^\s*global\s+\w`), kind: models.LintWarning, symbol: "global-statement", message: "Using the global statement"},
	{lang: LangPython, re: regexp.MustCompile(`^\s*print\s*\(`), kind: models.LintConvention, symbol: "print-call", message: "print() left in code"},
	{lang: LangGo, re: regexp.MustCompile(`\bpanic\(`), kind: models.LintWarning, symbol: "panic-call", message: "panic in library code", skip: IsTestFile},
	{lang: LangGo, re: regexp.MustCompile(`\bfmt\.Print(?:ln|f)?\(`), kind: models.LintConvention, symbol: "print-call", message: "fmt.Print left in code"},
	{lang: LangGo, re: regexp.MustCompile(`^\s*_\s*=\s*\w+(?:\.\w+)*\(`), kind: models.LintWarning, symbol: "ignored-result", message: "Result of call discarded"},
}

// Lint runs the line-level checks over a file. A nil outline means the
// file did not parse, which is reported as a single error.
func Lint(filename, content string, outline *Outline, parseErr error) []models.LintIssue {
	var issues []models.LintIssue
	if parseErr != nil && !errors.Is(parseErr, ErrUnsupported) {
		issues = append(issues, models.LintIssue{Line: 1, Kind: models.LintError, Symbol: "syntax-error", Message: parseErr.Error()})
	}

	lang := DetectLanguage(filename)
	for i, line := range strings.Split(content, "\n") {
		n := i + 1
		if len([]rune(line)) > maxLineLength {
			issues = append(issues, models.LintIssue{Line: n, Kind: models.LintConvention, Symbol: "line-too-long",
				Message: fmt.Sprintf("Line too long (%d/%d)", len([]rune(line)), maxLineLength)})
		}
		if strings.TrimRight(line, " \t") != line {
			issues = append(issues, models.LintIssue{Line: n, Kind: models.LintConvention, Symbol: "trailing-whitespace", Message: "Trailing whitespace"})
		}
		for _, r := range lintRules {
			if r.lang != "" && r.lang != lang {
				continue
			}
			if r.skip != nil && r.skip(filename) {
				continue
			}
			if r.re.MatchString(line) {
				issues = append(issues, models.LintIssue{Line: n, Kind: r.kind, Symbol: r.symbol, Message: r.message})
			}
		}
	}

	if outline != nil {
		for _, fn := range outline.Funcs {
			if len(fn.Params) > 5 {
				issues = append(issues, models.LintIssue{Line: fn.Line, Kind: models.LintRefactor, Symbol: "too-many-arguments",
					Message: fmt.Sprintf("Too many arguments (%d/5)", len(fn.Params))})
			}
			if fn.Lines() > 50 {
				issues = append(issues, models.LintIssue{Line: fn.Line, Kind: models.LintRefactor, Symbol: "too-many-statements",
					Message: fmt.Sprintf("Function %s is too long (%d/50 lines)", fn.Name, fn.Lines())})
			}
		}
	}
	return issues
}

// LintScore is 10 minus half the weighted issue count, clamped to [0, 10].
func LintScore(issues []models.LintIssue) float64 {
	var penalty float64
	for _, is := range issues {
		penalty += lintWeights[is.Kind]
	}
	return math.Max(0, math.Min(10, 10-penalty/2))
}

// Complexity is the structural quality assessment of a file.
type Complexity struct {
	Score           float64
	Maintainability float64
	Smells          []string
	TechnicalDebt   float64
}

// AssessComplexity scores the structure of an outline, starting from 10.
// A nil outline yields the neutral assessment.
func AssessComplexity(o *Outline) Complexity {
	if o == nil {
		return Complexity{Score: 5.0, Maintainability: 50.0, Smells: []string{"Unable to analyze code complexity"}, TechnicalDebt: 1.0}
	}

	score := 10.0
	var smells []string
	penalize := func(p float64, format string, args ...any) {
		score -= p
		smells = append(smells, fmt.Sprintf(format, args...))
	}

	for _, fn := range o.Funcs {
		switch n := fn.Lines(); {
		case n > 50:
			penalize(1.0, "Function '%s' is too long (%d lines)", fn.Name, n)
		case n > 30:
			penalize(0.5, "Function '%s' is getting long (%d lines)", fn.Name, n)
		}
	}
	for _, fn := range o.Funcs {
		switch n := len(fn.Params); {
		case n > 7:
			penalize(0.5, "Function '%s' has too many parameters (%d)", fn.Name, n)
		case n > 5:
			penalize(0.2, "Function '%s' has many parameters (%d)", fn.Name, n)
		}
	}
	for _, t := range o.Types {
		switch {
		case t.Methods > 20:
			penalize(1.0, "Type '%s' has too many methods (%d)", t.Name, t.Methods)
		case t.Methods > 10:
			penalize(0.5, "Type '%s' has many methods (%d)", t.Name, t.Methods)
		}
	}
	switch {
	case o.MaxNesting > 5:
		penalize(1.0, "Code contains deep nesting (depth %d)", o.MaxNesting)
	case o.MaxNesting > 3:
		penalize(0.5, "Code contains moderate nesting (depth %d)", o.MaxNesting)
	}
	if o.Imports > 20 {
		penalize(0.5, "File has too many imports (%d)", o.Imports)
	}
	switch {
	case o.Lines > 500:
		penalize(1.0, "Module is too large (%d lines)", o.Lines)
	case o.Lines > 300:
		penalize(0.5, "Module is getting large (%d lines)", o.Lines)
	}

	mi := 100 - (float64(o.Lines)/10 + float64(len(o.Funcs))*2 + float64(o.MaxNesting)*5 + (10-score)*10)
	return Complexity{
		Score:           math.Max(0, score),
		Maintainability: math.Max(0, math.Min(100, mi)),
		Smells:          smells,
		TechnicalDebt:   float64(len(smells)) * 0.5,
	}
}

// AnalyzeQuality combines the lint pass and the complexity assessment.
func AnalyzeQuality(file models.FileData) models.QualityResult {
	outline, err := ParseOutline(file.Filename, file.Content)
	issues := Lint(file.Filename, file.Content, outline, err)

	counts := map[string]int{
		models.LintConvention: 0,
		models.LintRefactor:   0,
		models.LintWarning:    0,
		models.LintError:      0,
		models.LintFatal:      0,
	}
	for _, is := range issues {
		counts[is.Kind]++
	}

	c := AssessComplexity(outline)
	return models.QualityResult{
		Filename:             file.Filename,
		Score:                LintScore(issues),
		TotalIssues:          len(issues),
		IssueCounts:          counts,
		Issues:               issues,
		ComplexityScore:      c.Score,
		MaintainabilityIndex: c.Maintainability,
		CodeSmells:           c.Smells,
		TechnicalDebt:        c.TechnicalDebt,
	}
}

// QualityAnalyzer runs AnalyzeQuality over every file with content.
type QualityAnalyzer struct{}

func (QualityAnalyzer) ID() review.TaskID { return review.TaskQuality }

func (QualityAnalyzer) Analyze(ctx context.Context, snap models.Snapshot) (review.SlotResult, error) {
	var results []models.QualityResult
	for _, f := range snap.Files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f.Content == "" {
			continue
		}
		results = append(results, AnalyzeQuality(f))
	}
	return review.QualitySlot{Results: results}, nil
}
