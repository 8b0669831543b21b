package models

// Severity ranks a security finding.
type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
	SeverityLow    Severity = "LOW"
)

// Finding is a single pattern match reported by the security scan.
type Finding struct {
	Line          int      `json:"line"`
	Severity      Severity `json:"severity"`
	Description   string   `json:"description"`
	Snippet       string   `json:"code_snippet"`
	OnChangedLine bool     `json:"on_changed_line"`
}

// SecurityResult is the security scan of one file.
type SecurityResult struct {
	Filename        string           `json:"filename"`
	Score           float64          `json:"security_score"`
	Findings        []Finding        `json:"vulnerabilities"`
	SeverityCounts  map[Severity]int `json:"severity_counts"`
	Recommendations []string         `json:"recommendations"`
}

// LintIssue is one line-level finding of the lint pass.
type LintIssue struct {
	Line    int    `json:"line"`
	Kind    string `json:"type"`
	Symbol  string `json:"symbol"`
	Message string `json:"message"`
}

// Lint issue kinds, in increasing weight.
const (
	LintConvention = "convention"
	LintRefactor   = "refactor"
	LintWarning    = "warning"
	LintError      = "error"
	LintFatal      = "fatal"
)

// QualityResult is the quality analysis of one file.
type QualityResult struct {
	Filename             string         `json:"filename"`
	Score                float64        `json:"score"`
	TotalIssues          int            `json:"total_issues"`
	IssueCounts          map[string]int `json:"issue_counts"`
	Issues               []LintIssue    `json:"issues"`
	ComplexityScore      float64        `json:"complexity_score"`
	MaintainabilityIndex float64        `json:"maintainability_index"`
	CodeSmells           []string       `json:"code_smells"`
	TechnicalDebt        float64        `json:"technical_debt"`
}

// CoverageResult is the estimated coverage of one file.
type CoverageResult struct {
	Filename         string   `json:"filename"`
	Percent          float64  `json:"coverage_percent"`
	CoveredLines     []int    `json:"covered_lines"`
	UncoveredLines   []int    `json:"uncovered_lines"`
	IsTestFile       bool     `json:"is_test_file"`
	TestQualityScore float64  `json:"test_quality_score"`
	MissingTestTypes []string `json:"missing_test_types"`
	TestabilityScore float64  `json:"testability_score"`
}

// MissingTest lists declarations of a source file that look untested.
type MissingTest struct {
	Filename          string   `json:"filename"`
	UntestedFunctions []string `json:"untested_functions"`
	UntestedTypes     []string `json:"untested_types"`
}

// AIReviewResult is the model-assisted review of one file.
type AIReviewResult struct {
	Filename               string   `json:"filename"`
	OverallScore           float64  `json:"overall_score"`
	Confidence             float64  `json:"confidence"`
	Strengths              []string `json:"strengths"`
	Issues                 []string `json:"issues"`
	Recommendations        []string `json:"recommendations"`
	RefactoringSuggestions []string `json:"refactoring_suggestions"`
	SecurityConcerns       []string `json:"security_concerns"`
	Note                   string   `json:"note,omitempty"`
}

// DocQuality describes the doc comments that do exist in a file.
type DocQuality struct {
	HasParamDocs  bool    `json:"has_param_docs"`
	HasReturnDocs bool    `json:"has_return_docs"`
	HasErrorDocs  bool    `json:"has_error_docs"`
	AvgLength     float64 `json:"avg_docstring_length"`
	Score         float64 `json:"quality_score"`
}

// DocumentationResult is the documentation analysis of one file.
type DocumentationResult struct {
	Filename        string     `json:"filename"`
	CoveragePercent float64    `json:"documentation_coverage"`
	MissingDocs     []string   `json:"missing_documentation"`
	TotalItems      int        `json:"total_items"`
	DocumentedItems int        `json:"documented_items"`
	HasPackageDoc   bool       `json:"has_module_docstring"`
	Quality         DocQuality `json:"docstring_quality"`
}

// Results groups the per-task result slots of a review.
type Results struct {
	Security      []SecurityResult      `json:"security_results"`
	Quality       []QualityResult       `json:"quality_results"`
	Coverage      []CoverageResult      `json:"coverage_results"`
	MissingTests  []MissingTest         `json:"missing_tests"`
	AIReview      []AIReviewResult      `json:"ai_reviews"`
	Documentation []DocumentationResult `json:"documentation_results"`
}

// HighSeverityCount counts HIGH findings across all files.
func (r Results) HighSeverityCount() int {
	n := 0
	for _, s := range r.Security {
		for _, f := range s.Findings {
			if f.Severity == SeverityHigh {
				n++
			}
		}
	}
	return n
}

// FindingCount counts all security findings across all files.
func (r Results) FindingCount() int {
	n := 0
	for _, s := range r.Security {
		n += len(s.Findings)
	}
	return n
}

// Means returns the unweighted per-slot means. An empty slot yields 0.
func (r Results) Means() Metrics {
	m := Metrics{HighSeverityIssues: r.HighSeverityCount()}
	m.SecurityScore = mean(len(r.Security), func(i int) float64 { return r.Security[i].Score })
	m.QualityScore = mean(len(r.Quality), func(i int) float64 { return r.Quality[i].Score })
	m.Coverage = mean(len(r.Coverage), func(i int) float64 { return r.Coverage[i].Percent })
	m.AIScore = mean(len(r.AIReview), func(i int) float64 { return r.AIReview[i].OverallScore })
	m.DocumentationCoverage = mean(len(r.Documentation), func(i int) float64 { return r.Documentation[i].CoveragePercent })
	return m
}

func mean(n int, at func(int) float64) float64 {
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += at(i)
	}
	return sum / float64(n)
}
