package textextractor

import (
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dejo1307/archstyle/internal/facts"
)

const defaultPublicPath = "app/public"

// packwerkConfig is the root packwerk.yml.
type packwerkConfig struct {
	PackagePaths []string `yaml:"package_paths"`
	Exclude      []string `yaml:"exclude"`
}

// packageConfig is a single package.yml. enforce_privacy is a bool or "strict".
type packageConfig struct {
	EnforcePrivacy any    `yaml:"enforce_privacy"`
	PublicPath     string `yaml:"public_path"`
}

type packwerkPackage struct {
	enforcePrivacy bool
	publicPath     string // relative to the repo root, with a trailing slash
}

// packwerk holds the Packwerk packages of a Rails repository, keyed by package dir.
type packwerk struct {
	packages map[string]packwerkPackage
}

// parsePackwerk reads packwerk.yml and every package.yml among files that the configured
// package_paths select. A repository without packwerk.yml has no packages.
func parsePackwerk(repoPath string, files []string, logger *slog.Logger) *packwerk {
	pw := &packwerk{packages: make(map[string]packwerkPackage)}

	data, err := os.ReadFile(filepath.Join(repoPath, "packwerk.yml"))
	if err != nil {
		return pw
	}
	var cfg packwerkConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		logger.Warn("error parsing packwerk.yml", "error", err)
		return pw
	}

	for _, relFile := range files {
		rel := filepath.ToSlash(relFile)
		if path.Base(rel) != "package.yml" {
			continue
		}
		dir := path.Dir(rel)
		if !cfg.includes(dir) {
			continue
		}

		data, err := os.ReadFile(filepath.Join(repoPath, relFile))
		if err != nil {
			logger.Warn("error reading package.yml", "file", relFile, "error", err)
			continue
		}
		var pkg packageConfig
		if err := yaml.Unmarshal(data, &pkg); err != nil {
			logger.Warn("error parsing package.yml", "file", relFile, "error", err)
			continue
		}

		public := strings.Trim(pkg.PublicPath, "/")
		if public == "" {
			public = defaultPublicPath
		}
		if dir != "." {
			public = dir + "/" + public
		}
		pw.packages[dir] = packwerkPackage{
			enforcePrivacy: enforces(pkg.EnforcePrivacy),
			publicPath:     public + "/",
		}
	}

	logger.Debug("packwerk detected", "packages", len(pw.packages))
	return pw
}

func enforces(v any) bool {
	switch v := v.(type) {
	case bool:
		return v
	case string:
		return v == "strict" || v == "true"
	}
	return false
}

// includes reports whether dir is a package root under package_paths and not excluded.
// No package_paths means every package.yml counts.
func (c *packwerkConfig) includes(dir string) bool {
	for _, pattern := range c.Exclude {
		if matchPackagePath(pattern, dir) {
			return false
		}
	}
	if len(c.PackagePaths) == 0 {
		return true
	}
	for _, pattern := range c.PackagePaths {
		if matchPackagePath(pattern, dir) {
			return true
		}
	}
	return false
}

func matchPackagePath(pattern, dir string) bool {
	pattern = strings.TrimSuffix(pattern, "/")
	switch pattern {
	case "**", "**/*":
		return true
	case ".", "":
		return dir == "."
	}
	matched, err := path.Match(pattern, dir)
	return err == nil && matched
}

// owner returns the most specific package that contains rel. The root package owns
// files no other package claims.
func (pw *packwerk) owner(rel string) (packwerkPackage, bool) {
	best := ""
	found := false
	for dir := range pw.packages {
		if dir == "." {
			if !found {
				best, found = dir, true
			}
			continue
		}
		if strings.HasPrefix(rel, dir+"/") && (!found || best == "." || len(dir) > len(best)) {
			best, found = dir, true
		}
	}
	return pw.packages[best], found
}

// apply marks a file of a privacy-enforcing package. Only the package's public path is
// its API, so members declared anywhere else are private to the package.
func (pw *packwerk) apply(cf *facts.ComponentFact) {
	pkg, ok := pw.owner(cf.Path)
	if !ok || !pkg.enforcePrivacy {
		return
	}
	cf.ExplicitExports = true
	if strings.HasPrefix(cf.Path, pkg.publicPath) {
		return
	}
	cf.PrivateMembers += cf.PublicMembers
	cf.PublicMembers = 0
}
