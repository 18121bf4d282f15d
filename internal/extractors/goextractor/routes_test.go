package goextractor

import (
	"go/ast"
	"go/parser"
	"go/token"
	"testing"
)

func parseSource(t *testing.T, src string) *ast.File {
	t.Helper()
	f, err := parser.ParseFile(token.NewFileSet(), "src.go", src, 0)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return f
}

func routeHints(t *testing.T, src string) []string {
	t.Helper()
	var hints []string
	for _, r := range extractRoutes(parseSource(t, src)) {
		hints = append(hints, r.hint())
	}
	return hints
}

func assertHints(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("hints = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("hints[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExtractRoutes(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "gorilla mux with methods",
			src: `package server

import "github.com/gorilla/mux"

func SetupRoutes() {
	router := mux.NewRouter()
	router.HandleFunc("/api/users", GetUsers).Methods("GET")
	router.HandleFunc("/api/users/{id}", GetUser).Methods("get")
	router.Handle("/health", health)
}
`,
			want: []string{"endpoint GET /api/users", "endpoint GET /api/users/{id}", "endpoint ALL /health"},
		},
		{
			name: "gorilla mux subrouter",
			src: `package server

import "github.com/gorilla/mux"

func SetupRoutes() {
	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()
	v1 := api.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/orders", ListOrders).Methods("GET")
}
`,
			want: []string{"endpoint GET /api/v1/orders"},
		},
		{
			name: "chi",
			src: `package server

import "github.com/go-chi/chi/v5"

func SetupRoutes(r chi.Router) {
	r.Get("/users", GetUsers)
	r.Post("/users", CreateUser)
	r.Delete("/users/{id}", DeleteUser)
}
`,
			want: []string{"endpoint GET /users", "endpoint POST /users", "endpoint DELETE /users/{id}"},
		},
		{
			name: "gin groups",
			src: `package server

import "github.com/gin-gonic/gin"

func SetupRoutes(r *gin.Engine) {
	v1 := r.Group("/v1")
	v1.GET("/orders", list)
	v1.POST("/orders", create)
}
`,
			want: []string{"endpoint GET /v1/orders", "endpoint POST /v1/orders"},
		},
		{
			name: "net/http with method patterns",
			src: `package main

import "net/http"

func main() {
	http.HandleFunc("/health", healthHandler)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /orders", create)
}
`,
			want: []string{"endpoint ALL /health", "endpoint POST /orders"},
		},
		{
			name: "conditional registration",
			src: `package server

import "github.com/go-chi/chi/v5"

func SetupRoutes(r chi.Router, enabled bool) {
	if enabled {
		r.Get("/feature", feature)
	} else {
		r.Get("/fallback", fallback)
	}
}
`,
			want: []string{"endpoint GET /feature", "endpoint GET /fallback"},
		},
		{
			name: "non-path arguments are ignored",
			src: `package server

import "github.com/go-chi/chi/v5"

func Lookup(cache Cache) {
	cache.Get("key")
}
`,
			want: nil,
		},
		{
			name: "no router import",
			src: `package util

func Add(a, b int) int { return a + b }
`,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertHints(t, routeHints(t, tt.src), tt.want)
		})
	}
}

func TestDetectRouterFramework(t *testing.T) {
	f := parseSource(t, `package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)
`)
	if got := detectRouterFramework(f); got != "echo" {
		t.Errorf("detectRouterFramework = %q, want echo", got)
	}
}

func TestExtract_RouteHints(t *testing.T) {
	ff := extractAll(t, map[string]string{
		"internal/web/server.go": `package web

import "github.com/go-chi/chi/v5"

func Routes(r chi.Router) {
	r.Get("/orders", list)
}
`,
	})

	f := findFact(t, ff, "internal/web/server.go")
	assertHints(t, f.Hints, []string{"http_router:chi", "endpoint GET /orders"})
}
