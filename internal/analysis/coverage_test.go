package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/revu/internal/models"
	"github.com/joescharf/revu/internal/review"
)

const goTestSample = `package a

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdd(t *testing.T) {
	assert.Equal(t, 2, Add(1, 1))
}
`

func TestEstimateCoverage(t *testing.T) {
	t.Run("source file", func(t *testing.T) {
		file := models.FileData{Filename: "greeter.py", Content: pySample}
		o, err := ParseOutline(file.Filename, file.Content)
		require.NoError(t, err)

		cov := EstimateCoverage(file, o)
		assert.InDelta(t, 87.25, cov.Percent, 1e-9)
		assert.False(t, cov.IsTestFile)
		assert.Len(t, cov.CoveredLines, 17)
		assert.Len(t, cov.UncoveredLines, 3)
	})

	t.Run("test file", func(t *testing.T) {
		file := models.FileData{Filename: "a_test.go", Content: goTestSample}
		o, err := ParseOutline(file.Filename, file.Content)
		require.NoError(t, err)

		cov := EstimateCoverage(file, o)
		assert.True(t, cov.IsTestFile)
		assert.Equal(t, 90.0, cov.Percent)
	})

	t.Run("no declarations", func(t *testing.T) {
		file := models.FileData{Filename: "consts.py", Content: "X = 1\n"}
		o, err := ParseOutline(file.Filename, file.Content)
		require.NoError(t, err)

		assert.Equal(t, 100.0, EstimateCoverage(file, o).Percent)
	})

	t.Run("clamped to minimum", func(t *testing.T) {
		o := &Outline{Funcs: []Func{{Name: "huge", Params: make([]string, 100)}}}
		cov := EstimateCoverage(models.FileData{Filename: "huge.go"}, o)
		assert.Equal(t, 10.0, cov.Percent)
		assert.Empty(t, cov.CoveredLines)
		assert.Equal(t, []int{1}, cov.UncoveredLines)
	})

	t.Run("unparseable", func(t *testing.T) {
		cov := EstimateCoverage(models.FileData{Filename: "x.rs"}, nil)
		assert.Zero(t, cov.Percent)
	})
}

func TestSimulateCovered(t *testing.T) {
	covered := simulateCovered(10, 50)
	assert.Equal(t, []int{1, 3, 5, 7, 9}, covered)
	assert.Equal(t, []int{2, 4, 6, 8, 10}, complement(10, covered))

	assert.Nil(t, simulateCovered(0, 90))
}

func TestFindMissingTests(t *testing.T) {
	o := &Outline{
		Funcs: []Func{{Name: "A", Line: 3}, {Name: "B", Line: 7}},
		Types: []Type{{Name: "T", Line: 1}},
	}
	file := models.FileData{Filename: "a.go"}

	mt := FindMissingTests(file, o, models.CoverageResult{UncoveredLines: []int{3, 4}})
	require.NotNil(t, mt)
	assert.Equal(t, "a.go", mt.Filename)
	assert.Equal(t, []string{"A"}, mt.UntestedFunctions)
	assert.Empty(t, mt.UntestedTypes)

	assert.Nil(t, FindMissingTests(file, o, models.CoverageResult{UncoveredLines: []int{2}}))
	assert.Nil(t, FindMissingTests(file, o, models.CoverageResult{IsTestFile: true, UncoveredLines: []int{3}}))
	assert.Nil(t, FindMissingTests(file, nil, models.CoverageResult{}))
}

func TestAssessTestQuality(t *testing.T) {
	t.Run("test file", func(t *testing.T) {
		file := models.FileData{Filename: "a_test.go", Content: goTestSample}
		o, err := ParseOutline(file.Filename, file.Content)
		require.NoError(t, err)

		tq := AssessTestQuality(file, o)
		assert.InDelta(t, 7.0, tq.Score, 1e-9)
		assert.Equal(t, []string{"Mock tests", "Integration tests"}, tq.Missing)
		assert.InDelta(t, 6.0, tq.Testability, 1e-9)
	})

	t.Run("untested source", func(t *testing.T) {
		file := models.FileData{Filename: "greeter.py", Content: pySample}
		o, err := ParseOutline(file.Filename, file.Content)
		require.NoError(t, err)

		tq := AssessTestQuality(file, o)
		assert.Equal(t, 3.0, tq.Score)
		assert.Len(t, tq.Missing, 3)
		assert.Equal(t, 4.0, tq.Testability)
	})

	t.Run("unparseable", func(t *testing.T) {
		tq := AssessTestQuality(models.FileData{Filename: "x.rs"}, nil)
		assert.Equal(t, 5.0, tq.Score)
		assert.Equal(t, []string{"Unable to analyze test quality"}, tq.Missing)
	})
}

func TestCoverageAnalyzer(t *testing.T) {
	snap := models.Snapshot{Files: []models.FileData{
		{Filename: "greeter.py", Content: pySample},
		{Filename: "a_test.go", Content: goTestSample},
	}}

	slot, err := CoverageAnalyzer{}.Analyze(context.Background(), snap)
	require.NoError(t, err)

	cs := slot.(review.CoverageSlot)
	require.Len(t, cs.Results, 2)
	assert.Equal(t, 3.0, cs.Results[0].TestQualityScore)
	assert.InDelta(t, 7.0, cs.Results[1].TestQualityScore, 1e-9)
	for _, mt := range cs.MissingTests {
		assert.Equal(t, "greeter.py", mt.Filename)
	}
}

func TestCoverageAnalyzer_UnsupportedAndBroken(t *testing.T) {
	snap := models.Snapshot{Files: []models.FileData{
		{Filename: "main.rs", Content: "fn main() {}\n"},
		{Filename: "broken.go", Content: "package broken\n\nfunc {"},
	}}

	slot, err := CoverageAnalyzer{}.Analyze(context.Background(), snap)
	require.NoError(t, err)

	cs := slot.(review.CoverageSlot)
	require.Len(t, cs.Results, 1)
	assert.Equal(t, "broken.go", cs.Results[0].Filename)
	assert.Zero(t, cs.Results[0].Percent)
}
