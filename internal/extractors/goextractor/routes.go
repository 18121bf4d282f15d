package goextractor

import (
	"go/ast"
	"strconv"
	"strings"
)

// routeInfo holds a detected route registration.
type routeInfo struct {
	method    string // "GET", "POST", etc. or "ALL"
	path      string // e.g. "/api/orders"
	framework string // "gorilla/mux", "chi", "gin", "echo", "fiber", "net/http"
}

// hint renders the route as a keyword hint; "endpoint" marks the file as an API surface.
func (r routeInfo) hint() string {
	return "endpoint " + r.method + " " + r.path
}

// routerFrameworks maps import path fragments to router names. Specific routers are
// checked before net/http.
var routerFrameworks = []struct{ fragment, name string }{
	{"gorilla/mux", "gorilla/mux"},
	{"go-chi/chi", "chi"},
	{"gin-gonic/gin", "gin"},
	{"labstack/echo", "echo"},
	{"gofiber/fiber", "fiber"},
}

// routeMethods maps registration method names to HTTP verbs. chi and fiber spell them Get,
// gin and echo spell them GET.
var routeMethods = map[string]string{
	"Get": "GET", "GET": "GET",
	"Post": "POST", "POST": "POST",
	"Put": "PUT", "PUT": "PUT",
	"Delete": "DELETE", "DELETE": "DELETE",
	"Patch": "PATCH", "PATCH": "PATCH",
	"Head": "HEAD", "HEAD": "HEAD",
	"Options": "OPTIONS", "OPTIONS": "OPTIONS",
	"HandleFunc": "ALL", "Handle": "ALL", "Any": "ALL", "All": "ALL",
}

// extractRoutes walks function bodies in a Go file looking for HTTP route registrations.
func extractRoutes(f *ast.File) []routeInfo {
	framework := detectRouterFramework(f)
	if framework == "" {
		return nil
	}

	var routes []routeInfo
	for _, decl := range f.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Body == nil {
			continue
		}

		// Subrouter and group prefixes: varName -> prefix
		prefixes := make(map[string]string)

		ast.Inspect(fn.Body, func(n ast.Node) bool {
			switch s := n.(type) {
			case *ast.AssignStmt:
				trackPrefix(s, prefixes)
			case *ast.CallExpr:
				if r, ok := routeFromCall(s, prefixes, framework); ok {
					routes = append(routes, r)
					// The inner HandleFunc of a .Methods() chain is already covered.
					return false
				}
			}
			return true
		})
	}
	return routes
}

// detectRouterFramework checks imports to determine which router framework is used.
func detectRouterFramework(f *ast.File) string {
	hasNetHTTP := false
	for _, imp := range f.Imports {
		p := strings.Trim(imp.Path.Value, `"`)
		for _, rf := range routerFrameworks {
			if strings.Contains(p, rf.fragment) {
				return rf.name
			}
		}
		if p == "net/http" {
			hasNetHTTP = true
		}
	}
	if hasNetHTTP {
		return "net/http"
	}
	return ""
}

func routeFromCall(call *ast.CallExpr, prefixes map[string]string, framework string) (routeInfo, bool) {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok {
		return routeInfo{}, false
	}

	// router.HandleFunc("/path", h).Methods("GET")
	if sel.Sel.Name == "Methods" {
		inner, ok := sel.X.(*ast.CallExpr)
		if !ok {
			return routeInfo{}, false
		}
		r, ok := routeFromCall(inner, prefixes, framework)
		if !ok {
			return routeInfo{}, false
		}
		if m := stringArg(call, 0); m != "" {
			r.method = strings.ToUpper(m)
		}
		return r, true
	}

	method, ok := routeMethods[sel.Sel.Name]
	if !ok {
		return routeInfo{}, false
	}
	if framework == "net/http" && method != "ALL" {
		return routeInfo{}, false
	}

	p := stringArg(call, 0)
	// Go 1.22 mux patterns: "GET /orders/{id}"
	if m, rest, found := strings.Cut(p, " "); found && !strings.HasPrefix(m, "/") && m == strings.ToUpper(m) {
		method, p = m, strings.TrimSpace(rest)
	}
	if !strings.HasPrefix(p, "/") {
		return routeInfo{}, false
	}

	return routeInfo{
		method:    method,
		path:      prefixes[identName(sel.X)] + p,
		framework: framework,
	}, true
}

// trackPrefix records subrouter assignments such as
// api := router.PathPrefix("/api").Subrouter() or v1 := r.Group("/v1").
func trackPrefix(s *ast.AssignStmt, prefixes map[string]string) {
	if len(s.Lhs) != 1 || len(s.Rhs) != 1 {
		return
	}
	ident, ok := s.Lhs[0].(*ast.Ident)
	if !ok {
		return
	}
	parent, prefix := groupPrefix(s.Rhs[0])
	if prefix == "" {
		return
	}
	prefixes[ident.Name] = prefixes[parent] + prefix
}

// groupPrefix returns the receiver variable and path prefix of a subrouter expression.
func groupPrefix(expr ast.Expr) (parent, prefix string) {
	call, ok := expr.(*ast.CallExpr)
	if !ok {
		return "", ""
	}
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok {
		return "", ""
	}

	switch sel.Sel.Name {
	case "Group":
		return identName(sel.X), stringArg(call, 0)
	case "Subrouter":
		inner, ok := sel.X.(*ast.CallExpr)
		if !ok {
			return "", ""
		}
		if innerSel, ok := inner.Fun.(*ast.SelectorExpr); ok && innerSel.Sel.Name == "PathPrefix" {
			return identName(innerSel.X), stringArg(inner, 0)
		}
	}
	return "", ""
}

// stringArg returns the string value of the argument at the given index, or "".
func stringArg(call *ast.CallExpr, index int) string {
	if index >= len(call.Args) {
		return ""
	}
	lit, ok := call.Args[index].(*ast.BasicLit)
	if !ok {
		return ""
	}
	s, err := strconv.Unquote(lit.Value)
	if err != nil {
		return ""
	}
	return s
}

// identName returns the name of an identifier expression, or "".
func identName(expr ast.Expr) string {
	if ident, ok := expr.(*ast.Ident); ok {
		return ident.Name
	}
	return ""
}
