package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func makeGraph(ids ...string) *Graph {
	g := New()
	for _, id := range ids {
		g.AddOrGetNode(id, Unknown)
	}
	return g
}

func TestResolve(t *testing.T) {
	g := makeGraph(
		"app/services/user_service.py",
		"app/models/user.py",
		"src/components/Button.tsx",
		"src/lib/index.ts",
		"com/acme/user/UserService.java",
		"internal/store/store.go",
	)
	r := NewResolver(WithExternalKeywords("kafka", "rabbitmq"))

	tests := []struct {
		name   string
		source string
		raw    string
		want   Ref
		ok     bool
	}{
		{"substring overlap", "app/api/routes.py", "app/services/user_service", Ref{ID: "app/services/user_service.py"}, true},
		{"dotted module path", "app/api/routes.py", "app.models.user", Ref{ID: "app/models/user.py"}, true},
		{"java import", "com/acme/web/Ctl.java", "com.acme.user.UserService", Ref{ID: "com/acme/user/UserService.java"}, true},
		{"relative probe with extension", "src/pages/Home.tsx", "../components/Button", Ref{ID: "src/components/Button.tsx"}, true},
		{"relative probe index file", "src/pages/Home.tsx", "../lib", Ref{ID: "src/lib/index.ts"}, true},
		{"go package dir", "cmd/main.go", "internal/store", Ref{ID: "internal/store/store.go"}, true},
		{"short import below threshold", "cmd/main.go", "store", Ref{}, false},
		{"external broker keyword", "app/events/pub.py", "confluent_kafka", Ref{ID: "external://kafka", External: true}, true},
		{"case insensitive keyword", "x.go", "github.com/RabbitMQ/amqp091-go", Ref{ID: "external://rabbitmq", External: true}, true},
		{"unresolvable", "x.go", "fmt", Ref{}, false},
		{"empty", "x.go", "  ", Ref{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Resolve(g, tt.source, tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_PrefersHighestOverlap(t *testing.T) {
	g := makeGraph("pkg/user/user_handler_test_helpers.go", "pkg/user/user.go")
	r := NewResolver()
	got, ok := r.Resolve(g, "main.go", "pkg/user/user")
	assert.True(t, ok)
	assert.Equal(t, "pkg/user/user.go", got.ID)
}

func TestResolve_TiesGoToEarlierNode(t *testing.T) {
	g := makeGraph("users/a", "users/b")
	got, ok := NewResolver().Resolve(g, "main.go", "users")
	assert.True(t, ok)
	assert.Equal(t, "users/a", got.ID)
}

func TestResolve_SkipsSourceItself(t *testing.T) {
	g := makeGraph("svc/user.go")
	_, ok := NewResolver().Resolve(g, "svc/user.go", "svc/user")
	assert.False(t, ok)
}

func TestResolve_NoKeywordsNoExternal(t *testing.T) {
	g := makeGraph("a.go")
	_, ok := NewResolver().Resolve(g, "a.go", "kafka-go")
	assert.False(t, ok)
}

func TestResolve_KeywordMatchesWholeWords(t *testing.T) {
	g := makeGraph("a.go")
	r := NewResolver(WithExternalKeywords("sns", "nats", "nsq", "amqp", "kafka", "redis"))

	tests := map[string]string{
		"github.com/nats-io/nats.go":  "external://nats",
		"@aws-sdk/client-sns":         "external://sns",
		"github.com/nsqio/go-nsq":     "external://nsq",
		"github.com/rabbitmq/amqp091": "external://amqp",
		"amqplib":                     "external://amqp",
		"kafkajs":                     "external://kafka",
		"ioredis":                     "external://redis",
		"github.com/acme/snsutils":    "",
		"transnational/ledger":        "",
		"github.com/acme/signatsure":  "",
		"github.com/acme/unsqueezed":  "",
	}
	for raw, want := range tests {
		got, ok := r.Resolve(g, "a.go", raw)
		if want == "" {
			assert.False(t, ok, raw)
			continue
		}
		assert.True(t, ok, raw)
		assert.Equal(t, Ref{ID: want, External: true}, got, raw)
	}
}

func TestLink_AddsEdgesAndPlaceholders(t *testing.T) {
	g := makeGraph("app/events/publisher.py", "app/models/order.py")
	r := NewResolver(WithExternalKeywords("kafka"))

	added := r.Link(g, "app/events/publisher.py", []string{"app.models.order", "kafka", "json", "app.models.order"})

	assert.Equal(t, 2, added)
	n, ok := g.Node("external://kafka")
	assert.True(t, ok)
	assert.True(t, n.External)
	assert.Equal(t, Unknown, n.Label)
	assert.Equal(t, []Edge{
		{From: "app/events/publisher.py", To: "app/models/order.py"},
		{From: "app/events/publisher.py", To: "external://kafka"},
	}, g.Edges())
}

func TestNormalizeImport(t *testing.T) {
	tests := map[string]string{
		`"./foo/bar"`:       "foo/bar",
		"../../shared/util": "shared/util",
		"com.acme.Service":  "com/acme/Service",
		"com.acme.*":        "com/acme",
		".models":           "models",
		"react":             "react",
		"utils.ts":          "utils.ts",
		"github.com/x/y":    "github.com/x/y",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizeImport(in), in)
	}
}
