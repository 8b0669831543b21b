package analysis

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/joescharf/revu/internal/models"
	"github.com/joescharf/revu/internal/review"
)

// EstimateCoverage simulates a coverage figure from the outline: test
// files get 90%, files without declarations 100%, everything else loses
// 5 points per unit of structural complexity, clamped to [10, 95]. No
// tests are executed.
func EstimateCoverage(file models.FileData, o *Outline) models.CoverageResult {
	res := models.CoverageResult{Filename: file.Filename, IsTestFile: IsTestFile(file.Filename)}
	if o == nil {
		return res
	}

	switch {
	case res.IsTestFile:
		res.Percent = 90.0
	case len(o.Funcs)+len(o.Types) == 0:
		res.Percent = 100.0
	default:
		res.Percent = math.Max(10.0, math.Min(95.0, 100.0-structuralComplexity(o)*5.0))
	}

	total := lineCount(file.Content)
	res.CoveredLines = simulateCovered(total, res.Percent)
	res.UncoveredLines = complement(total, res.CoveredLines)
	return res
}

func structuralComplexity(o *Outline) float64 {
	var c float64
	for _, fn := range o.Funcs {
		c += float64(len(fn.Params)) * 0.2
		c += float64(fn.Lines()) * 0.05
	}
	for _, t := range o.Types {
		c += float64(t.Methods) * 0.3
		c += float64(t.Bases) * 0.5
	}
	return c
}

// simulateCovered spreads int(total*percent/100) covered lines evenly.
func simulateCovered(total int, percent float64) []int {
	n := int(float64(total) * percent / 100)
	if n <= 0 {
		return nil
	}
	step := total / n
	if step < 1 {
		step = 1
	}
	covered := make([]int, 0, n)
	for i := 0; i < total && len(covered) < n; i += step {
		covered = append(covered, i+1)
	}
	return covered
}

func complement(total int, covered []int) []int {
	seen := make(map[int]bool, len(covered))
	for _, l := range covered {
		seen[l] = true
	}
	var out []int
	for l := 1; l <= total; l++ {
		if !seen[l] {
			out = append(out, l)
		}
	}
	return out
}

// FindMissingTests reports declarations of a non-test file whose first
// line is uncovered. It returns nil when nothing is missing.
func FindMissingTests(file models.FileData, o *Outline, cov models.CoverageResult) *models.MissingTest {
	if o == nil || cov.IsTestFile {
		return nil
	}
	uncovered := make(map[int]bool, len(cov.UncoveredLines))
	for _, l := range cov.UncoveredLines {
		uncovered[l] = true
	}
	mt := models.MissingTest{Filename: file.Filename}
	for _, fn := range o.Funcs {
		if uncovered[fn.Line] {
			mt.UntestedFunctions = append(mt.UntestedFunctions, fn.Name)
		}
	}
	for _, t := range o.Types {
		if uncovered[t.Line] {
			mt.UntestedTypes = append(mt.UntestedTypes, t.Name)
		}
	}
	if len(mt.UntestedFunctions)+len(mt.UntestedTypes) == 0 {
		return nil
	}
	return &mt
}

// TestQuality scores how well a file is (or could be) tested.
type TestQuality struct {
	Score       float64
	Missing     []string
	Testability float64
}

// AssessTestQuality inspects test files for kinds of tests and assertions,
// and flags source files with testable declarations.
func AssessTestQuality(file models.FileData, o *Outline) TestQuality {
	score := 5.0
	var missing []string
	code := file.Content
	lower := strings.ToLower(code)

	switch {
	case o == nil:
		missing = []string{"Unable to analyze test quality"}
	case IsTestFile(file.Filename):
		score = 8.0
		if !strings.Contains(code, "unittest") && !strings.Contains(code, "pytest") && !strings.Contains(code, `"testing"`) {
			missing = append(missing, "Unit tests")
			score -= 1.0
		}
		if !strings.Contains(lower, "mock") && !strings.Contains(lower, "fake") {
			missing = append(missing, "Mock tests")
			score -= 0.5
		}
		if !strings.Contains(lower, "integration") && !strings.Contains(lower, "functional") {
			missing = append(missing, "Integration tests")
			score -= 0.5
		}
		if o.Assertions < 1 {
			missing = append(missing, "Assertions")
			score -= 2.0
		}
		if o.TestFuncs == 0 {
			missing = append(missing, "Proper test functions")
			score -= 1.5
		}
		hasSetup := false
		for _, fn := range o.Funcs {
			name := strings.ToLower(fn.Name)
			if strings.Contains(name, "setup") || strings.Contains(name, "fixture") {
				hasSetup = true
				break
			}
		}
		if !hasSetup && o.TestFuncs > 3 {
			missing = append(missing, "Test fixtures or setup")
			score -= 0.5
		}
	case len(o.Funcs)+len(o.Types) > 0:
		missing = []string{"Unit tests", "Integration tests", "Mock tests"}
		score = 3.0
	}

	return TestQuality{
		Score:       math.Max(0, math.Min(10, score)),
		Missing:     missing,
		Testability: math.Max(0, math.Min(10, 10.0-float64(len(missing))*2.0)),
	}
}

// CoverageAnalyzer estimates coverage and test quality for every file with
// content and collects the missing tests. Files in languages without a
// parser are skipped; files that fail to parse count as uncovered.
type CoverageAnalyzer struct{}

func (CoverageAnalyzer) ID() review.TaskID { return review.TaskCoverage }

func (CoverageAnalyzer) Analyze(ctx context.Context, snap models.Snapshot) (review.SlotResult, error) {
	var slot review.CoverageSlot
	for _, f := range snap.Files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f.Content == "" {
			continue
		}
		o, err := ParseOutline(f.Filename, f.Content)
		if errors.Is(err, ErrUnsupported) {
			continue
		}

		cov := EstimateCoverage(f, o)
		tq := AssessTestQuality(f, o)
		cov.TestQualityScore = tq.Score
		cov.MissingTestTypes = tq.Missing
		cov.TestabilityScore = tq.Testability
		slot.Results = append(slot.Results, cov)

		if mt := FindMissingTests(f, o, cov); mt != nil {
			slot.MissingTests = append(slot.MissingTests, *mt)
		}
	}
	return slot, nil
}
