package analysis

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
)

func parseGoOutline(filename, content string) (*Outline, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, filename, content, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}

	o := &Outline{
		Language:   LangGo,
		Lines:      lineCount(content),
		PackageDoc: strings.TrimSpace(f.Doc.Text()),
		Imports:    len(f.Imports),
	}
	line := func(p token.Pos) int { return fset.Position(p).Line }

	methods := make(map[string]int)
	for _, decl := range f.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			fn := Func{
				Name:     d.Name.Name,
				Line:     line(d.Pos()),
				EndLine:  line(d.End()),
				Params:   paramNames(d.Type.Params),
				Doc:      strings.TrimSpace(d.Doc.Text()),
				Exported: d.Name.IsExported(),
			}
			if d.Recv != nil && len(d.Recv.List) > 0 {
				fn.Receiver = receiverName(d.Recv.List[0].Type)
				methods[fn.Receiver]++
			} else if strings.HasPrefix(fn.Name, "Test") && strings.HasSuffix(filename, "_test.go") {
				o.TestFuncs++
			}
			o.Funcs = append(o.Funcs, fn)

		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			for _, spec := range d.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				doc := ts.Doc.Text()
				if doc == "" && len(d.Specs) == 1 {
					doc = d.Doc.Text()
				}
				o.Types = append(o.Types, Type{
					Name:     ts.Name.Name,
					Line:     line(ts.Pos()),
					EndLine:  line(ts.End()),
					Bases:    embeddedCount(ts.Type),
					Doc:      strings.TrimSpace(doc),
					Exported: ts.Name.IsExported(),
				})
			}
		}
	}
	for i := range o.Types {
		o.Types[i].Methods = methods[o.Types[i].Name]
	}

	maxDepth := 0
	ast.Walk(nestVisitor{max: &maxDepth}, f)
	o.MaxNesting = maxDepth

	ast.Inspect(f, func(n ast.Node) bool {
		if call, ok := n.(*ast.CallExpr); ok && isAssertion(call) {
			o.Assertions++
		}
		return true
	})
	return o, nil
}

func paramNames(fl *ast.FieldList) []string {
	if fl == nil {
		return nil
	}
	var names []string
	for _, field := range fl.List {
		if len(field.Names) == 0 {
			names = append(names, "_")
			continue
		}
		for _, n := range field.Names {
			names = append(names, n.Name)
		}
	}
	return names
}

func receiverName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverName(t.X)
	case *ast.IndexExpr:
		return receiverName(t.X)
	case *ast.IndexListExpr:
		return receiverName(t.X)
	case *ast.Ident:
		return t.Name
	}
	return ""
}

func embeddedCount(expr ast.Expr) int {
	var fields *ast.FieldList
	switch t := expr.(type) {
	case *ast.StructType:
		fields = t.Fields
	case *ast.InterfaceType:
		fields = t.Methods
	}
	if fields == nil {
		return 0
	}
	n := 0
	for _, f := range fields.List {
		if len(f.Names) == 0 {
			n++
		}
	}
	return n
}

// nestVisitor tracks the deepest nesting of control statements.
type nestVisitor struct {
	depth int
	max   *int
}

func (v nestVisitor) Visit(n ast.Node) ast.Visitor {
	switch n.(type) {
	case nil:
		return nil
	case *ast.IfStmt, *ast.ForStmt, *ast.RangeStmt, *ast.SwitchStmt, *ast.TypeSwitchStmt, *ast.SelectStmt:
		d := v.depth + 1
		if d > *v.max {
			*v.max = d
		}
		return nestVisitor{depth: d, max: v.max}
	}
	return v
}

func isAssertion(call *ast.CallExpr) bool {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok {
		return false
	}
	if x, ok := sel.X.(*ast.Ident); ok && (x.Name == "assert" || x.Name == "require") {
		return true
	}
	switch sel.Sel.Name {
	case "Error", "Errorf", "Fatal", "Fatalf":
		return true
	}
	return false
}
