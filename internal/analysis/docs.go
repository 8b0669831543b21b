package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/joescharf/revu/internal/models"
	"github.com/joescharf/revu/internal/review"
)

// AnalyzeDocumentation measures how many declarations carry a doc comment
// (docstring in Python). Go only counts exported declarations; Python
// skips dunder methods. A package doc counts when present.
func AnalyzeDocumentation(file models.FileData, o *Outline) models.DocumentationResult {
	res := models.DocumentationResult{Filename: file.Filename}
	if o == nil {
		res.MissingDocs = []string{"Unable to analyze documentation"}
		return res
	}

	goLang := o.Language == LangGo
	noun := "docstring"
	if goLang {
		noun = "doc comment"
	}

	if o.PackageDoc != "" {
		res.HasPackageDoc = true
		res.TotalItems++
		res.DocumentedItems++
	}

	typeWord := "Class"
	if goLang {
		typeWord = "Type"
	}
	for _, t := range o.Types {
		if goLang && !t.Exported {
			continue
		}
		res.TotalItems++
		if t.Doc != "" {
			res.DocumentedItems++
		} else {
			res.MissingDocs = append(res.MissingDocs, fmt.Sprintf("%s '%s' missing %s", typeWord, t.Name, noun))
		}
	}

	for _, fn := range o.Funcs {
		if goLang && !fn.Exported {
			continue
		}
		label := fmt.Sprintf("Function '%s'", fn.Name)
		if fn.Receiver != "" {
			if strings.HasPrefix(fn.Name, "__") && strings.HasSuffix(fn.Name, "__") {
				continue
			}
			label = fmt.Sprintf("Method '%s.%s'", fn.Receiver, fn.Name)
		}
		res.TotalItems++
		if fn.Doc != "" {
			res.DocumentedItems++
		} else {
			res.MissingDocs = append(res.MissingDocs, fmt.Sprintf("%s missing %s", label, noun))
		}
	}

	res.CoveragePercent = 100
	if res.TotalItems > 0 {
		res.CoveragePercent = float64(res.DocumentedItems) / float64(res.TotalItems) * 100
	}
	res.Quality = docQuality(o)
	return res
}

var (
	paramMarkers  = []string{":param", "Args:", "Parameters"}
	returnMarkers = []string{":return", "Returns", "returns"}
	errorMarkers  = []string{":raise", "Raises:", ":except", "error", "Error"}
)

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// docQuality rates the doc comments that exist, starting from 5.
func docQuality(o *Outline) models.DocQuality {
	var q models.DocQuality
	var docs []string
	if o.PackageDoc != "" {
		docs = append(docs, o.PackageDoc)
	}
	for _, t := range o.Types {
		if t.Doc != "" {
			docs = append(docs, t.Doc)
			q.HasErrorDocs = q.HasErrorDocs || containsAny(t.Doc, errorMarkers)
		}
	}
	for _, fn := range o.Funcs {
		if fn.Doc == "" {
			continue
		}
		docs = append(docs, fn.Doc)
		if containsAny(fn.Doc, paramMarkers) || mentionsParam(fn) {
			q.HasParamDocs = true
		}
		q.HasReturnDocs = q.HasReturnDocs || containsAny(fn.Doc, returnMarkers)
		q.HasErrorDocs = q.HasErrorDocs || containsAny(fn.Doc, errorMarkers)
	}

	if len(docs) > 0 {
		total := 0
		for _, d := range docs {
			total += len(d)
		}
		q.AvgLength = float64(total) / float64(len(docs))
	}

	score := 5.0
	if q.HasParamDocs {
		score += 1.0
	}
	if q.HasReturnDocs {
		score += 1.0
	}
	if q.HasErrorDocs {
		score += 0.5
	}
	switch {
	case q.AvgLength > 100:
		score += 1.0
	case q.AvgLength > 50:
		score += 0.5
	case q.AvgLength < 10:
		score -= 1.0
	}
	q.Score = math.Max(0, math.Min(10, score))
	return q
}

// mentionsParam reports whether a Go doc comment names one of the
// function's parameters.
func mentionsParam(fn Func) bool {
	for _, p := range fn.Params {
		if p == "_" || len(p) < 2 {
			continue
		}
		for _, w := range strings.Fields(fn.Doc) {
			if strings.Trim(w, ".,;:()") == p {
				return true
			}
		}
	}
	return false
}

// DocumentationAnalyzer runs AnalyzeDocumentation over every file with
// content in a supported language.
type DocumentationAnalyzer struct{}

func (DocumentationAnalyzer) ID() review.TaskID { return review.TaskDocumentation }

func (DocumentationAnalyzer) Analyze(ctx context.Context, snap models.Snapshot) (review.SlotResult, error) {
	var results []models.DocumentationResult
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
		results = append(results, AnalyzeDocumentation(f, o))
	}
	return review.DocumentationSlot{Results: results}, nil
}
