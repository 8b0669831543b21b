package analysis

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/joescharf/revu/internal/models"
	"github.com/joescharf/revu/internal/review"
)

type securityPattern struct {
	re          *regexp.Regexp
	severity    models.Severity
	description string
	advice      string
}

func pattern(expr string, sev models.Severity, desc, advice string) securityPattern {
	return securityPattern{re: regexp.MustCompile(`(?i)` + expr), severity: sev, description: desc, advice: advice}
}

const secretAdvice = "Use environment variables or secure secret management for credentials"

var commonPatterns = []securityPattern{
	pattern(`password\s*:?=\s*['"][^'"]+['"]`, models.SeverityHigh, "Hardcoded password", secretAdvice),
	pattern(`api_?key\s*:?=\s*['"][^'"]+['"]`, models.SeverityHigh, "Hardcoded API key", secretAdvice),
	pattern(`token\s*:?=\s*['"][^'"]+['"]`, models.SeverityHigh, "Hardcoded token", secretAdvice),
	pattern(`secret\s*:?=\s*['"][^'"]+['"]`, models.SeverityHigh, "Hardcoded secret", secretAdvice),
}

var pythonPatterns = []securityPattern{
	pattern(`eval\s*\(`, models.SeverityHigh, "Use of eval() - Code injection risk", "Replace eval() with safer alternatives like ast.literal_eval()"),
	pattern(`exec\s*\(`, models.SeverityHigh, "Use of exec() - Code execution risk", "Avoid exec(), consider redesigning the solution"),
	pattern(`subprocess.*shell\s*=\s*True`, models.SeverityHigh, "Shell injection vulnerability", "Set shell=False in subprocess calls and use list arguments"),
	pattern(`pickle\.loads?\s*\(`, models.SeverityMedium, "Unsafe deserialization with pickle", "Use safer serialization formats like JSON"),
	pattern(`input\s*\(.*\)`, models.SeverityLow, "Unvalidated user input", ""),
	pattern(`open\s*\([^)]*['"]w['"]`, models.SeverityMedium, "File write operations", ""),
	pattern(`requests\..*verify\s*=\s*False`, models.SeverityMedium, "SSL verification disabled", "Keep TLS certificate verification enabled"),
	pattern(`os\.system\s*\(`, models.SeverityHigh, "Potential command injection with os.system", "Use subprocess with list arguments instead of os.system"),
	pattern(`yaml\.load\s*\([^)]*\)`, models.SeverityMedium, "Unsafe YAML loading without safe_load", "Use yaml.safe_load"),
	pattern(`json\.loads?\s*\([^)]*`, models.SeverityLow, "JSON parsing (check for untrusted input)", ""),
	pattern(`\.execute\s*\(['"][^'"]*%['"]`, models.SeverityHigh, "SQL injection vulnerability with string formatting", "Use parameterized queries"),
	pattern(`@app\.route.*methods=\[.*['"]GET['"]\].*<.*>`, models.SeverityMedium, "Potential XSS in Flask route", ""),
	pattern(`random\.`, models.SeverityLow, "Using random module (not cryptographically secure)", ""),
}

var goPatterns = []securityPattern{
	pattern(`exec\.Command(?:Context)?\([^)]*"(?:sh|bash)"\s*,\s*"-c"`, models.SeverityHigh, "Shell command execution via sh -c", "Pass arguments to exec.Command directly instead of through a shell"),
	pattern(`\.(?:Query|QueryRow|Exec)(?:Context)?\([^)]*fmt\.Sprintf`, models.SeverityHigh, "SQL built with fmt.Sprintf", "Use parameterized queries"),
	pattern(`InsecureSkipVerify\s*:\s*true`, models.SeverityMedium, "TLS verification disabled", "Keep TLS certificate verification enabled"),
	pattern(`"crypto/(?:md5|sha1)"`, models.SeverityMedium, "Weak hash algorithm", "Use crypto/sha256 or stronger"),
	pattern(`unsafe\.Pointer`, models.SeverityMedium, "Use of unsafe.Pointer", ""),
	pattern(`template\.HTML\(`, models.SeverityMedium, "Unescaped HTML in template", "Let html/template escape untrusted content"),
	pattern(`"math/rand(?:/v2)?"`, models.SeverityLow, "Using math/rand (not cryptographically secure)", ""),
}

func patternsFor(lang string) []securityPattern {
	switch lang {
	case LangGo:
		return append(append([]securityPattern{}, commonPatterns...), goPatterns...)
	case LangPython:
		return append(append([]securityPattern{}, commonPatterns...), pythonPatterns...)
	}
	all := append([]securityPattern{}, commonPatterns...)
	all = append(all, pythonPatterns...)
	return append(all, goPatterns...)
}

// ScanSecurity matches the vulnerability patterns for the file's language
// against its content. The score starts at 10 and loses 2, 1 or 0.5 per
// HIGH, MEDIUM or LOW finding, floored at 0.
func ScanSecurity(file models.FileData) models.SecurityResult {
	code := file.Content
	res := models.SecurityResult{
		Filename:       file.Filename,
		Score:          10.0,
		SeverityCounts: map[models.Severity]int{models.SeverityHigh: 0, models.SeverityMedium: 0, models.SeverityLow: 0},
	}

	advice := make(map[string]bool)
	for _, p := range patternsFor(DetectLanguage(file.Filename)) {
		for _, loc := range p.re.FindAllStringIndex(code, -1) {
			line := strings.Count(code[:loc[0]], "\n") + 1
			res.Findings = append(res.Findings, models.Finding{
				Line:          line,
				Severity:      p.severity,
				Description:   p.description,
				Snippet:       code[loc[0]:loc[1]],
				OnChangedLine: file.IsChanged(line),
			})
			res.SeverityCounts[p.severity]++
			switch p.severity {
			case models.SeverityHigh:
				res.Score -= 2.0
			case models.SeverityMedium:
				res.Score -= 1.0
			default:
				res.Score -= 0.5
			}
			if p.advice != "" {
				advice[p.advice] = true
			}
		}
	}
	if res.Score < 0 {
		res.Score = 0
	}
	sort.SliceStable(res.Findings, func(i, j int) bool { return res.Findings[i].Line < res.Findings[j].Line })

	if res.SeverityCounts[models.SeverityHigh] > 0 {
		advice["Address high-severity security vulnerabilities immediately"] = true
	}
	if res.SeverityCounts[models.SeverityMedium] > 0 {
		advice["Review and fix medium-severity security issues"] = true
	}
	if len(res.Findings) == 0 {
		advice["No obvious security vulnerabilities detected"] = true
	}
	for a := range advice {
		res.Recommendations = append(res.Recommendations, a)
	}
	sort.Strings(res.Recommendations)
	return res
}

// SecurityAnalyzer runs ScanSecurity over every file with content.
type SecurityAnalyzer struct{}

func (SecurityAnalyzer) ID() review.TaskID { return review.TaskSecurity }

func (SecurityAnalyzer) Analyze(ctx context.Context, snap models.Snapshot) (review.SlotResult, error) {
	var results []models.SecurityResult
	for _, f := range snap.Files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f.Content == "" {
			continue
		}
		results = append(results, ScanSecurity(f))
	}
	return review.SecuritySlot{Results: results}, nil
}
