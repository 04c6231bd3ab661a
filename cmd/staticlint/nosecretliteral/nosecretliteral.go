// Package nosecretliteral reports string literals stored in variables,
// constants or struct fields whose name mentions a secret. Secrets such as
// the OAuth client secret and the session key belong in the environment.
package nosecretliteral

import (
	"go/ast"
	"go/token"
	"path/filepath"
	"strings"

	"golang.org/x/tools/go/analysis"
)

var Analyzer = &analysis.Analyzer{
	Name: "nosecretliteral",
	Doc:  "reports hardcoded string literals assigned to secret-named identifiers",
	Run:  run,
}

func run(pass *analysis.Pass) (interface{}, error) {
	for _, file := range pass.Files {
		filename := pass.Fset.File(file.Pos()).Name()
		if strings.HasSuffix(filename, "_test.go") || isGoBuildCacheFile(filename) {
			continue
		}

		ast.Inspect(file, func(n ast.Node) bool {
			switch node := n.(type) {
			case *ast.ValueSpec:
				for i, name := range node.Names {
					if i < len(node.Values) {
						check(pass, name.Name, node.Values[i])
					}
				}
			case *ast.AssignStmt:
				if len(node.Lhs) != len(node.Rhs) {
					return true
				}
				for i, lhs := range node.Lhs {
					check(pass, targetName(lhs), node.Rhs[i])
				}
			case *ast.KeyValueExpr:
				if key, ok := node.Key.(*ast.Ident); ok {
					check(pass, key.Name, node.Value)
				}
			}

			return true
		})
	}

	return nil, nil
}

func check(pass *analysis.Pass, name string, value ast.Expr) {
	if !strings.Contains(strings.ToLower(name), "secret") {
		return
	}

	lit, ok := value.(*ast.BasicLit)
	if !ok || lit.Kind != token.STRING || lit.Value == `""` || lit.Value == "``" {
		return
	}

	pass.Reportf(lit.Pos(), "hardcoded secret in %s", name)
}

func targetName(expr ast.Expr) string {
	switch target := expr.(type) {
	case *ast.Ident:
		return target.Name
	case *ast.SelectorExpr:
		return target.Sel.Name
	default:
		return ""
	}
}

func isGoBuildCacheFile(path string) bool {
	path = filepath.ToSlash(path)
	return strings.Contains(path, "/go-build/")
}
