// Package manifestextractor emits facts for deployment manifests: Dockerfiles, compose
// files and Kubernetes objects.
package manifestextractor

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dejo1307/archstyle/internal/facts"
)

// Language is the language recorded on manifest facts.
const Language = "manifest"

// ManifestExtractor reads container and orchestration manifests.
type ManifestExtractor struct {
	logger *slog.Logger
}

// New creates a new ManifestExtractor. A nil logger means slog.Default.
func New(logger *slog.Logger) *ManifestExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ManifestExtractor{logger: logger.With("component", "manifest-extractor")}
}

func (e *ManifestExtractor) Name() string {
	return "manifest"
}

var (
	rootMarkers  = []string{"Dockerfile", "Dockerfile.*", "*.Dockerfile", "docker-compose*.y*ml", "compose*.y*ml"}
	manifestDirs = []string{"k8s", "kubernetes", "deploy", "deployments", "manifests", "helm", "charts"}
	composeName  = regexp.MustCompile(`^(docker-)?compose([.-][\w.-]+)?\.ya?ml$`)
)

// Detect returns true if the repository root has a Dockerfile, a compose file or a
// conventional manifest directory.
func (e *ManifestExtractor) Detect(repoPath string) (bool, error) {
	for _, marker := range rootMarkers {
		matches, err := filepath.Glob(filepath.Join(repoPath, marker))
		if err != nil {
			return false, err
		}
		if len(matches) > 0 {
			return true, nil
		}
	}
	for _, dir := range manifestDirs {
		if info, err := os.Stat(filepath.Join(repoPath, dir)); err == nil && info.IsDir() {
			return true, nil
		}
	}
	return false, nil
}

// Extract emits one fact per manifest file. YAML files that hold no Kubernetes object are
// skipped.
func (e *ManifestExtractor) Extract(ctx context.Context, repoPath string, files []string) ([]facts.ComponentFact, error) {
	var result []facts.ComponentFact

	for _, relFile := range files {
		rel := filepath.ToSlash(relFile)
		kind := manifestKind(rel)
		if kind == kindNone {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		src, err := os.ReadFile(filepath.Join(repoPath, relFile))
		if err != nil {
			e.logger.Warn("error reading file", "file", relFile, "error", err)
			continue
		}

		var cf facts.ComponentFact
		var ok bool
		switch kind {
		case kindDockerfile:
			cf, ok = extractDockerfile(rel, src), true
		case kindCompose:
			cf, err = extractCompose(rel, src)
			ok = err == nil
		case kindYAML:
			cf, ok, err = extractKubernetes(rel, src)
		}
		if err != nil {
			e.logger.Warn("error parsing manifest", "file", relFile, "error", err)
			continue
		}
		if ok {
			result = append(result, cf)
		}
	}

	e.logger.Debug("extraction complete", "files", len(result))
	return result, nil
}

type fileKind int

const (
	kindNone fileKind = iota
	kindDockerfile
	kindCompose
	kindYAML
)

func manifestKind(rel string) fileKind {
	base := path.Base(rel)
	lower := strings.ToLower(base)
	switch {
	case lower == "dockerfile" || strings.HasPrefix(lower, "dockerfile.") || strings.HasSuffix(lower, ".dockerfile"):
		return kindDockerfile
	case composeName.MatchString(lower):
		return kindCompose
	case strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml"):
		return kindYAML
	}
	return kindNone
}

// builder accumulates one manifest fact.
type builder struct {
	cf   facts.ComponentFact
	seen map[string]bool
}

func newBuilder(rel string) *builder {
	return &builder{
		cf:   facts.ComponentFact{Path: rel, Language: Language},
		seen: make(map[string]bool),
	}
}

func (b *builder) hint(h string) {
	if h == "" || b.seen["h:"+h] {
		return
	}
	b.seen["h:"+h] = true
	b.cf.Hints = append(b.cf.Hints, h)
}

func (b *builder) identifier(id string) {
	if id == "" || b.seen["i:"+id] {
		return
	}
	b.seen["i:"+id] = true
	b.cf.Identifiers = append(b.cf.Identifiers, id)
}

// image records a container image. Broker images become imports so that the resolver
// can link them to an external broker placeholder.
func (b *builder) image(ref string) {
	name := imageName(ref)
	if name == "" {
		return
	}
	b.hint("image:" + name)
	if role, ok := imageRole(name); ok {
		switch role {
		case "broker":
			if !b.seen["m:"+name] {
				b.seen["m:"+name] = true
				b.cf.Imports = append(b.cf.Imports, name)
				b.cf.MessageConstructs++
			}
		default:
			b.hint(role + ":" + name)
		}
	}
}

// imageName strips registry, tag and digest: "docker.io/bitnami/kafka:3.6" -> "kafka".
func imageName(ref string) string {
	ref = strings.TrimSpace(ref)
	if i := strings.Index(ref, "@"); i >= 0 {
		ref = ref[:i]
	}
	name := ref[strings.LastIndex(ref, "/")+1:]
	if i := strings.Index(name, ":"); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name)
}

var imageRoles = []struct {
	substr string
	role   string
}{
	{"kafka", "broker"},
	{"redpanda", "broker"},
	{"rabbitmq", "broker"},
	{"nats", "broker"},
	{"pulsar", "broker"},
	{"activemq", "broker"},
	{"mosquitto", "broker"},
	{"eventstore", "broker"},
	{"postgres", "database"},
	{"mysql", "database"},
	{"mariadb", "database"},
	{"mongo", "database"},
	{"cassandra", "database"},
	{"dynamodb", "database"},
	{"redis", "cache"},
	{"memcached", "cache"},
	{"elasticsearch", "search"},
	{"nginx", "gateway"},
	{"traefik", "gateway"},
	{"envoy", "gateway"},
}

func imageRole(name string) (string, bool) {
	for _, r := range imageRoles {
		if strings.Contains(name, r.substr) {
			return r.role, true
		}
	}
	return "", false
}

var (
	dockerFrom   = regexp.MustCompile(`(?i)^FROM\s+(?:--platform=\S+\s+)?(\S+)(?:\s+AS\s+(\S+))?`)
	dockerExpose = regexp.MustCompile(`(?i)^EXPOSE\s+(.+)`)
	dockerCmd    = regexp.MustCompile(`(?i)^(ENTRYPOINT|CMD)\b`)
)

func extractDockerfile(rel string, src []byte) facts.ComponentFact {
	b := newBuilder(rel)
	b.hint("dockerfile")
	b.hint("container")

	stages := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(src))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if m := dockerFrom.FindStringSubmatch(line); m != nil {
			if !stages[strings.ToLower(m[1])] {
				b.image(m[1])
			}
			if m[2] != "" {
				stages[strings.ToLower(m[2])] = true
			}
			continue
		}
		if m := dockerExpose.FindStringSubmatch(line); m != nil {
			for _, port := range strings.Fields(m[1]) {
				b.hint("port:" + port)
			}
			continue
		}
		if dockerCmd.MatchString(line) {
			b.cf.CreationPoints++
		}
	}
	return b.cf
}

type composeFile struct {
	Services map[string]composeService `yaml:"services"`
}

type composeService struct {
	Image     string    `yaml:"image"`
	DependsOn yaml.Node `yaml:"depends_on"`
	Ports     yaml.Node `yaml:"ports"`
}

func extractCompose(rel string, src []byte) (facts.ComponentFact, error) {
	var cfg composeFile
	if err := yaml.Unmarshal(src, &cfg); err != nil {
		return facts.ComponentFact{}, err
	}

	b := newBuilder(rel)
	b.hint("compose")
	b.hint("container")

	for _, name := range sortedKeys(cfg.Services) {
		svc := cfg.Services[name]
		b.identifier(name)
		if svc.Image != "" {
			b.image(svc.Image)
		} else {
			// Built from source: a service of this repository.
			b.hint("build:" + name)
			b.cf.ConcreteTypes++
		}
		for _, dep := range nodeStrings(&svc.DependsOn) {
			b.hint("depends_on:" + dep)
		}
		if len(svc.Ports.Content) > 0 {
			b.cf.PublicMembers++
		} else {
			b.cf.PrivateMembers++
		}
	}
	return b.cf, nil
}

// object is the part of a Kubernetes object the extractor reads.
type object struct {
	APIVersion string `yaml:"apiVersion"`
	Kind       string `yaml:"kind"`
	Metadata   struct {
		Name string `yaml:"name"`
	} `yaml:"metadata"`
	Spec yaml.Node `yaml:"spec"`
}

var workloadKinds = map[string]bool{
	"deployment":  true,
	"statefulset": true,
	"daemonset":   true,
	"job":         true,
	"cronjob":     true,
	"pod":         true,
	"replicaset":  true,
}

// extractKubernetes decodes every document of a YAML stream. ok is false when none is a
// Kubernetes object.
func extractKubernetes(rel string, src []byte) (facts.ComponentFact, bool, error) {
	b := newBuilder(rel)
	found := false

	dec := yaml.NewDecoder(bytes.NewReader(src))
	for {
		var obj object
		err := dec.Decode(&obj)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if found {
				return b.cf, true, err
			}
			// Not a manifest, e.g. a templated Helm file.
			return facts.ComponentFact{}, false, nil
		}
		if obj.APIVersion == "" || obj.Kind == "" {
			continue
		}
		found = true

		kind := strings.ToLower(obj.Kind)
		b.hint("k8s")
		b.hint("k8s:" + kind)
		b.identifier(obj.Metadata.Name)

		switch {
		case workloadKinds[kind]:
			b.hint("container")
			b.cf.ConcreteTypes++
			for _, img := range findImages(&obj.Spec) {
				b.image(img)
			}
		case kind == "service" || kind == "ingress" || kind == "gateway" || kind == "httproute":
			b.hint("endpoint " + kind + " " + obj.Metadata.Name)
			b.cf.PublicMembers++
		case kind == "configmap" || kind == "secret":
			b.cf.PrivateMembers++
		}
	}
	return b.cf, found, nil
}

// findImages returns every "image" scalar below n, in document order.
func findImages(n *yaml.Node) []string {
	var out []string
	var walk func(*yaml.Node)
	walk = func(n *yaml.Node) {
		if n == nil {
			return
		}
		if n.Kind == yaml.MappingNode {
			for i := 0; i+1 < len(n.Content); i += 2 {
				key, val := n.Content[i], n.Content[i+1]
				if key.Value == "image" && val.Kind == yaml.ScalarNode {
					out = append(out, val.Value)
					continue
				}
				walk(val)
			}
			return
		}
		for _, c := range n.Content {
			walk(c)
		}
	}
	walk(n)
	return out
}

// nodeStrings reads a compose list or map of names.
func nodeStrings(n *yaml.Node) []string {
	var out []string
	switch n.Kind {
	case yaml.SequenceNode:
		for _, c := range n.Content {
			if c.Kind == yaml.ScalarNode {
				out = append(out, c.Value)
			}
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			out = append(out, n.Content[i].Value)
		}
	}
	return out
}

func sortedKeys(m map[string]composeService) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
