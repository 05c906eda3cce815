// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

package scanner

import (
	"errors"
	"fmt"
	"go/ast"
	"go/constant"
	"go/parser"
	"go/token"
	"slices"
	"strings"

	"golang.org/x/tools/go/ast/inspector"
)

// extraCommentPrefix starts a comment line addressed to translators.
const extraCommentPrefix = "//:"

var errEmptyContext = errors.New("explicit context is empty")

// goCall describes the string arguments of a recognized translation call,
// counted from the first constant string argument.
type goCall struct {
	strings  int  // required strings
	optional int  // optional trailing strings
	explicit bool // the first string is the context
	disFirst bool // the first string is the disambiguation
	plural   bool
}

var goCalls = map[string]goCall{
	"Tr":         {strings: 1},
	"TrC":        {strings: 2, disFirst: true},
	"TrN":        {strings: 1, plural: true},
	"TrNC":       {strings: 2, disFirst: true, plural: true},
	"Translate":  {strings: 2, optional: 1, explicit: true},
	"TranslateN": {strings: 2, optional: 1, explicit: true, plural: true},
}

// GoExtractor extracts messages from calls in Go source files.
//
// Tr, TrC, TrN and TrNC take their context from the receiver type of the
// enclosing method, or the package name outside methods. Translate and
// TranslateN name the context explicitly.
type GoExtractor struct{}

func (GoExtractor) Name() string { return "go" }

func (GoExtractor) Extensions() []string { return []string{".go"} }

func (GoExtractor) Extract(filename string, src []byte) ([]Occurrence, error) {
	fset := token.NewFileSet()

	f, err := parser.ParseFile(fset, filename, src, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	comments := extraComments(fset, f)

	var (
		occs []Occurrence
		errs []error
	)

	in := inspector.New([]*ast.File{f})
	in.WithStack([]ast.Node{(*ast.CallExpr)(nil)}, func(n ast.Node, push bool, stack []ast.Node) bool {
		if !push {
			return true
		}

		call := n.(*ast.CallExpr)

		form, ok := goCalls[calleeName(call.Fun)]
		if !ok {
			return true
		}

		pos := fset.Position(call.Pos())

		strs := stringArgs(call.Args, form.strings+form.optional)
		if len(strs) < form.strings {
			errs = append(errs, &LineError{Line: pos.Line, Err: ErrNonConstant})

			return true
		}

		occ := Occurrence{
			Plural:       form.plural,
			Line:         pos.Line,
			Column:       pos.Column,
			ExtraComment: comments.before(pos.Line),
		}

		switch {
		case form.explicit:
			if strs[0] == "" {
				errs = append(errs, &LineError{Line: pos.Line, Err: errEmptyContext})

				return true
			}

			occ.Context, occ.Source = strs[0], strs[1]
			if len(strs) > 2 {
				occ.Disambiguation = strs[2]
			}
		case form.disFirst:
			occ.Context = enclosingContext(f, stack)
			occ.Disambiguation, occ.Source = strs[0], strs[1]
		default:
			occ.Context = enclosingContext(f, stack)
			occ.Source = strs[0]
		}

		occs = append(occs, occ)

		return true
	})

	return occs, errors.Join(errs...)
}

func calleeName(fun ast.Expr) string {
	switch x := fun.(type) {
	case *ast.Ident:
		return x.Name
	case *ast.SelectorExpr:
		return x.Sel.Name
	case *ast.IndexExpr:
		return calleeName(x.X)
	}

	return ""
}

// stringArgs returns up to limit consecutive constant string arguments,
// starting at the first one. Leading arguments such as a context.Context
// are skipped.
func stringArgs(args []ast.Expr, limit int) []string {
	var out []string

	for _, arg := range args {
		s, ok := constString(arg)
		if !ok {
			if len(out) > 0 {
				break
			}

			continue
		}

		out = append(out, s)
		if len(out) == limit {
			break
		}
	}

	return out
}

// constString evaluates string literals and "+" concatenations of them.
func constString(expr ast.Expr) (string, bool) {
	v := constValue(expr)
	if v == nil || v.Kind() != constant.String {
		return "", false
	}

	return constant.StringVal(v), true
}

func constValue(expr ast.Expr) constant.Value {
	switch x := expr.(type) {
	case *ast.BasicLit:
		if x.Kind != token.STRING {
			return nil
		}

		v := constant.MakeFromLiteral(x.Value, x.Kind, 0)
		if v.Kind() == constant.Unknown {
			return nil
		}

		return v
	case *ast.ParenExpr:
		return constValue(x.X)
	case *ast.BinaryExpr:
		if x.Op != token.ADD {
			return nil
		}

		l, r := constValue(x.X), constValue(x.Y)
		if l == nil || r == nil || l.Kind() != constant.String || r.Kind() != constant.String {
			return nil
		}

		return constant.BinaryOp(l, token.ADD, r)
	}

	return nil
}

// enclosingContext names the receiver type of the innermost enclosing
// method, or the package when there is none.
func enclosingContext(f *ast.File, stack []ast.Node) string {
	for _, n := range slices.Backward(stack) {
		fd, ok := n.(*ast.FuncDecl)
		if !ok {
			continue
		}

		if fd.Recv != nil && len(fd.Recv.List) > 0 {
			if name := typeName(fd.Recv.List[0].Type); name != "" {
				return name
			}
		}

		break
	}

	return f.Name.Name
}

func typeName(expr ast.Expr) string {
	switch x := expr.(type) {
	case *ast.Ident:
		return x.Name
	case *ast.StarExpr:
		return typeName(x.X)
	case *ast.ParenExpr:
		return typeName(x.X)
	case *ast.IndexExpr:
		return typeName(x.X)
	case *ast.IndexListExpr:
		return typeName(x.X)
	}

	return ""
}

// commentLines maps line numbers to the text of "//:" comments on them.
type commentLines map[int]string

func extraComments(fset *token.FileSet, f *ast.File) commentLines {
	out := make(commentLines)

	for _, group := range f.Comments {
		for _, c := range group.List {
			text, ok := strings.CutPrefix(c.Text, extraCommentPrefix)
			if !ok {
				continue
			}

			out[fset.Position(c.Slash).Line] = strings.TrimSpace(text)
		}
	}

	return out
}

// before returns the "//:" block that ends on the line above line, joined with spaces.
func (cl commentLines) before(line int) string {
	var parts []string

	for l := line - 1; l > 0; l-- {
		text, ok := cl[l]
		if !ok {
			break
		}

		parts = append(parts, text)
	}

	slices.Reverse(parts)

	return strings.TrimSpace(strings.Join(parts, " "))
}
