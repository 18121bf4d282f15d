package textextractor

import (
	"path"
	"regexp"
	"strings"
)

// importStyle says how a language's import strings map onto repository paths.
type importStyle int

const (
	importRaw      importStyle = iota // kept as written
	importRelative                    // "./x" and "../x" are joined onto the file's directory
	importPython                      // leading dots climb packages, the rest is dotted
	importBackslash                   // PHP namespaces: App\Services\X
)

// typeRefScope controls whether references to types declared in other files become imports.
type typeRefScope int

const (
	typeRefsNone    typeRefScope = iota
	typeRefsSameDir              // same package needs no import (Java, Kotlin)
	typeRefsAny                  // module-wide visibility (Swift, C#)
)

type importRule struct {
	re    *regexp.Regexp // group 1 is the import string
	style importStyle
}

// language describes how one source language spells the constructs the extractor counts.
// Every declaration regex captures the declared name in group 1. On a line the first
// matching declaration kind wins, in the order interfaces, abstracts, classes, functions.
type language struct {
	name       string
	extensions []string
	comments   []string

	imports    []importRule
	interfaces []*regexp.Regexp
	abstracts  []*regexp.Regexp
	classes    []*regexp.Regexp
	functions  []*regexp.Regexp

	implements  *regexp.Regexp // explicit "implements" syntax
	private     *regexp.Regexp // visibility modifier that hides a declaration
	underscore  bool           // _name is private by convention
	sectionOn   *regexp.Regexp // starts a private section (Ruby)
	sectionOff  *regexp.Regexp // ends a private section
	exports     *regexp.Regexp // explicit export or visibility mechanism
	annotation  *regexp.Regexp // group 1 is the annotation or decorator name
	constructor *regexp.Regexp // constructor taking a typed dependency
	di          *regexp.Regexp // container-managed injection
	typeRefs    typeRefScope
}

func re(expr string) *regexp.Regexp {
	return regexp.MustCompile(expr)
}

func res(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

var slashComments = []string{"//", "/*", "*"}

var languages = []*language{
	{
		name:       "java",
		extensions: []string{".java"},
		comments:   slashComments,
		imports:    []importRule{{re(`^\s*import\s+(?:static\s+)?([\w.]+?)(?:\.\*)?\s*;`), importRaw}},
		interfaces: res(`^\s*(?:(?:public|protected|private|sealed)\s+)*interface\s+(\w+)`),
		abstracts:  res(`^\s*(?:(?:public|protected|private)\s+)*abstract\s+class\s+(\w+)`),
		classes:    res(`^\s*(?:(?:public|protected|private|final|static|sealed|non-sealed)\s+)*(?:class|record|enum)\s+(\w+)`),
		functions: res(`^\s*(?:(?:public|protected|private|static|final|synchronized|abstract|default)\s+)+` +
			`(?:<[^>]+>\s+)?[\w<>\[\],.?]+\s+(\w+)\s*\(`),
		implements:  re(`\bimplements\s+\w`),
		private:     re(`^\s*(?:\w+\s+)*?(private|protected)\s`),
		exports:     re(`\bpublic\b`),
		annotation:  re(`^\s*@(\w+)`),
		constructor: re(`^\s*(?:public|protected|private)?\s*[A-Z]\w*\s*\(\s*(?:final\s+)?(?:@\w+\s+)?[A-Z][\w<>,.?]*\s+\w+\s*[,)]`),
		di:          re(`@(Autowired|Inject|Component|Service|Repository|Controller|RestController|Configuration|Bean|Named|Singleton)\b`),
		typeRefs:    typeRefsSameDir,
	},
	{
		name:       "kotlin",
		extensions: []string{".kt", ".kts"},
		comments:   slashComments,
		imports:    []importRule{{re(`^\s*import\s+([\w.]+?)(?:\.\*)?\s*$`), importRaw}},
		interfaces: res(`^\s*(?:(?:public|private|internal|protected|sealed|fun)\s+)*interface\s+(\w+)`),
		abstracts:  res(`^\s*(?:(?:public|private|internal|protected)\s+)*abstract\s+class\s+(\w+)`),
		classes: res(`^\s*(?:(?:public|private|internal|protected|open|sealed|data|enum|inner|annotation|value|final)\s+)*` +
			`(?:class|object)\s+(\w+)`),
		functions: res(`^\s*(?:(?:public|private|internal|protected|open|abstract|override|inline|suspend|operator|infix|tailrec|external)\s+)*` +
			`fun\s+(?:<[^>]*>\s+)?(?:\w+\.)?(\w+)\s*\(`),
		private:    re(`^\s*(?:[\w@]+\s+)*?(private|internal|protected)\s`),
		exports:    re(`\b(public|private|internal)\b`),
		annotation: re(`^\s*@(\w+)`),
		constructor: re(`\bclass\s+\w+[^(]*\(\s*(?:@\w+(?:\([^)]*\))?\s+)?(?:(?:private|internal|protected|public)\s+)?` +
			`(?:val|var)\s+\w+\s*:\s*[A-Z]|@Inject\s+constructor\s*\(`),
		di:       re(`@(Inject|HiltViewModel|HiltAndroidApp|AndroidEntryPoint|Module|Provides|Singleton|Component|Service|Repository|Autowired)\b|\bby\s+inject\(|\bkoin\b`),
		typeRefs: typeRefsSameDir,
	},
	{
		name:       "python",
		extensions: []string{".py"},
		comments:   []string{"#"},
		imports: []importRule{
			{re(`^\s*from\s+(\.*[\w.]*)\s+import\b`), importPython},
			{re(`^\s*import\s+([\w.]+)`), importPython},
		},
		interfaces:  res(`^\s*class\s+(\w+)\s*\([^)]*\b(?:ABC|Protocol|Interface|ABCMeta)\b`),
		classes:     res(`^\s*class\s+(\w+)`),
		functions:   res(`^\s*(?:async\s+)?def\s+(\w+)`),
		underscore:  true,
		exports:     re(`^__all__\s*=`),
		annotation:  re(`^\s*@([\w.]+)`),
		constructor: re(`\bdef\s+__init__\s*\(\s*self\s*,\s*\w+\s*:\s*[A-Z]`),
		di:          re(`\bDepends\(|\bdependency_injector\b|@inject\b|\binjector\b|\bpunq\b|\bProvide\[`),
	},
	{
		name:       "ruby",
		extensions: []string{".rb", ".rake"},
		comments:   []string{"#"},
		imports: []importRule{
			{re(`^\s*require_relative\s+['"]([^'"]+)['"]`), importRelative},
			{re(`^\s*require\s+['"]([^'"]+)['"]`), importRaw},
		},
		classes:     res(`^\s*class\s+([\w:]+)`),
		functions:   res(`^\s*(?:private\s+|protected\s+)?def\s+(?:self\.)?([\w?!=]+)`),
		implements:  re(`^\s*(?:include|prepend)\s+[A-Z]`),
		private:     re(`^\s*(?:private|protected)\s+def\b`),
		sectionOn:   re(`^\s*(private|protected)\s*$`),
		sectionOff:  re(`^\s*(public\s*$|class\s|module\s)`),
		exports:     re(`^\s*(private|protected|module_function)\b`),
		constructor: re(`\bdef\s+initialize\s*\(\s*\w+`),
		di:          re(`\bImport\[|AutoInject`),
	},
	{
		name:       "swift",
		extensions: []string{".swift"},
		comments:   slashComments,
		imports:    []importRule{{re(`^\s*import\s+(\w+)`), importRaw}},
		interfaces: res(`^\s*(?:(?:public|private|fileprivate|internal|open)\s+)?protocol\s+(\w+)`),
		classes:    res(`^\s*(?:(?:public|private|fileprivate|internal|open|final|indirect)\s+)*(?:class|struct|enum|actor)\s+(\w+)`),
		functions: res(`^\s*(?:(?:public|private|fileprivate|internal|open|static|class|override|mutating|nonmutating|final|@\w+)\s+)*` +
			`func\s+(\w+)`),
		private:     re(`^\s*(?:[\w@]+\s+)*?(private|fileprivate)\b`),
		exports:     re(`\b(public|open|private|fileprivate)\b`),
		annotation:  re(`^\s*@(\w+)`),
		constructor: re(`\binit\s*\(\s*\w+\s*:\s*[A-Z]`),
		di:          re(`@(Injected|Inject|EnvironmentObject|Environment)\b|\bSwinject\b|\bResolver\.resolve\b`),
		typeRefs:    typeRefsAny,
	},
	{
		name:       "csharp",
		extensions: []string{".cs"},
		comments:   slashComments,
		imports:    []importRule{{re(`^\s*using\s+(?:static\s+)?([\w.]+)\s*;`), importRaw}},
		interfaces: res(`^\s*(?:(?:public|internal|private|protected|partial)\s+)*interface\s+(\w+)`),
		abstracts:  res(`^\s*(?:(?:public|internal|private|protected)\s+)*abstract\s+(?:partial\s+)?class\s+(\w+)`),
		classes:    res(`^\s*(?:(?:public|internal|private|protected|static|sealed|partial|readonly)\s+)*(?:class|struct|record|enum)\s+(\w+)`),
		functions: res(`^\s*(?:(?:public|internal|private|protected|static|virtual|override|async|abstract|sealed)\s+)+` +
			`[\w<>\[\],.?]+\s+(\w+)\s*\(`),
		implements:  re(`\bclass\s+\w+[^:]*:\s*(?:[\w<>]+\s*,\s*)*I[A-Z]\w*`),
		private:     re(`^\s*(?:\w+\s+)*?(private|protected|internal)\s`),
		exports:     re(`\bpublic\b`),
		annotation:  re(`^\s*\[(\w+)`),
		constructor: re(`^\s*(?:public|protected|internal|private)?\s*[A-Z]\w*\s*\(\s*[A-Z][\w<>,.?]*\s+\w+\s*[,)]`),
		di:          re(`\bservices\.Add(?:Scoped|Transient|Singleton)\b|\[FromServices\]|\bIServiceCollection\b`),
		typeRefs:    typeRefsAny,
	},
	{
		name:       "javascript",
		extensions: []string{".js", ".jsx", ".mjs", ".cjs"},
		comments:   slashComments,
		imports: []importRule{
			{re(`^\s*import\s+(?:[^'"]*\s+from\s+)?['"]([^'"]+)['"]`), importRelative},
			{re(`\brequire\(\s*['"]([^'"]+)['"]\s*\)`), importRelative},
		},
		classes: res(`^\s*(?:export\s+)?(?:default\s+)?class\s+(\w+)`),
		functions: res(
			`^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*(\w+)`,
			`^\s*(?:export\s+)?(?:const|let|var)\s+(\w+)\s*=\s*(?:async\s+)?(?:function\b|\([^)]*\)\s*=>|\w+\s*=>)`,
		),
		private:     re(`^\s*#\w+`),
		underscore:  true,
		exports:     re(`^\s*export\b|\bmodule\.exports\b|^\s*exports\.\w+`),
		annotation:  re(`^\s*@(\w+)`),
		constructor: re(`^\s*constructor\s*\(\s*\w+`),
		di:          re(`\b(awilix|inversify|tsyringe|typedi)\b`),
	},
	{
		name:       "php",
		extensions: []string{".php"},
		comments:   []string{"//", "/*", "*"},
		imports:    []importRule{{re(`^\s*use\s+([\w\\]+)`), importBackslash}},
		interfaces: res(`^\s*interface\s+(\w+)`),
		abstracts:  res(`^\s*abstract\s+class\s+(\w+)`),
		classes:    res(`^\s*(?:(?:final|readonly)\s+)*(?:class|trait|enum)\s+(\w+)`),
		functions:  res(`^\s*(?:(?:public|private|protected|static|abstract|final)\s+)*function\s+(\w+)`),
		implements: re(`\bimplements\s+\w`),
		private:    re(`^\s*(?:\w+\s+)*?(private|protected)\s`),
		exports:    re(`\b(public|private|protected)\b`),
		annotation: re(`#\[(\w+)`),
		constructor: re(`\bfunction\s+__construct\s*\(\s*(?:(?:private|public|protected|readonly)\s+)*\??` +
			`[A-Z][\w\\]*\s+\$`),
		di: re(`#\[(?:Inject|Autowire|Required)\b|\bContainerInterface\b|\$this->app->(?:bind|singleton)\(`),
	},
}

// languageFor returns the language handling p by extension, or nil.
func languageFor(p string) *language {
	ext := strings.ToLower(path.Ext(p))
	for _, l := range languages {
		for _, e := range l.extensions {
			if e == ext {
				return l
			}
		}
	}
	return nil
}

// isComment reports whether a trimmed line starts with one of the language's comment markers.
func (l *language) isComment(trimmed string) bool {
	if l.name == "php" && strings.HasPrefix(trimmed, "#[") {
		return false
	}
	for _, c := range l.comments {
		if strings.HasPrefix(trimmed, c) {
			return true
		}
	}
	return false
}

// resolveImport maps a raw import string from a file in dir onto a repository path where
// the language allows it.
func resolveImport(raw, dir string, style importStyle) string {
	switch style {
	case importRelative:
		if strings.HasPrefix(raw, ".") {
			return path.Clean(path.Join(dir, raw))
		}
	case importPython:
		dots := len(raw) - len(strings.TrimLeft(raw, "."))
		if dots == 0 {
			return raw
		}
		base := dir
		for i := 1; i < dots; i++ {
			base = path.Dir(base)
		}
		rest := strings.ReplaceAll(raw[dots:], ".", "/")
		return path.Clean(path.Join(base, rest))
	case importBackslash:
		return strings.ReplaceAll(strings.TrimPrefix(raw, `\`), `\`, "/")
	}
	return raw
}
