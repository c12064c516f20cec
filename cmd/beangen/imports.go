package main

import (
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/mod/modfile"
)

type GoImport struct {
	Name string `yaml:"name"` // optional alias, e.g. "di"
	Path string `yaml:"path"` // import path or stdlib package, e.g. "context"
}

// inferImports fills s.Imports.DI and returns the sorted import set of the
// generated file.
func inferImports(s *ModuleSpec, outPath string) ([]GoImport, error) {
	if strings.TrimSpace(s.Imports.DI) == "" {
		// Prefer what the package already imports (allows forks)
		if gi, ok := findImportByAliasOrSuffix(scanPackageImports(filepath.Dir(outPath)), "di", "/di"); ok {
			s.Imports.DI = gi.Path
		} else {
			imp, err := runtimeImport("di")
			if err != nil {
				return nil, errors.Wrap(err, "cannot infer di runtime import")
			}
			s.Imports.DI = imp
		}
	}

	required := []GoImport{{Name: "di", Path: s.Imports.DI}}
	if usesCreators(s) {
		required = append(required, GoImport{Path: "context"})
	}
	if usesOptionalDeps(s) {
		required = append(required, GoImport{Path: "errors"})
	}
	for _, std := range []string{"context", "time", "io", "net/http"} {
		if usesPkgQualifier(s, filepath.Base(std)) {
			required = append(required, GoImport{Path: std})
		}
	}
	return mergeImports(required, s.Imports.Extra), nil
}

// runtimeImport returns the import path of package rel of the module this
// generator is built from.
func runtimeImport(rel string) (string, error) {
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		return "", errors.New("runtime.Caller failed")
	}
	modRoot, modPath, err := findModule(filepath.Dir(thisFile))
	if err != nil {
		return "", err
	}
	dir := filepath.Join(modRoot, filepath.FromSlash(rel))
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		return "", errors.Errorf("no package dir at %s", filepath.ToSlash(dir))
	}
	return path.Join(modPath, rel), nil
}

// -------------------------
// go.mod
// -------------------------

// errNoModule is returned by findModule when no go.mod encloses the start dir.
var errNoModule = errors.New("no go.mod found")

// findModule walks up from startDir to the closest go.mod and returns its
// directory and module path.
func findModule(startDir string) (root, modPath string, err error) {
	for dir := startDir; ; {
		gomod := filepath.Join(dir, "go.mod")
		data, err := os.ReadFile(gomod)
		switch {
		case err == nil:
			if modPath = modfile.ModulePath(data); modPath == "" {
				return "", "", errors.Errorf("%s: no module path", filepath.ToSlash(gomod))
			}
			return dir, modPath, nil
		case !errors.Is(err, fs.ErrNotExist):
			return "", "", errors.Wrap(err, "read go.mod")
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", "", errors.Wrapf(errNoModule, "starting from %s", filepath.ToSlash(startDir))
		}
		dir = parent
	}
}

// -------------------------
// import helpers
// -------------------------

// scanPackageImports reads imports from the hand-written .go files in pkgDir,
// skipping tests and generated outputs. Aliases are preserved.
func scanPackageImports(pkgDir string) []GoImport {
	entries, err := os.ReadDir(pkgDir)
	if err != nil {
		return nil
	}

	var out []GoImport
	fset := token.NewFileSet()

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		if strings.HasSuffix(name, ".gen.go") || strings.HasSuffix(name, "_gen.go") {
			continue
		}

		full := filepath.Join(pkgDir, name)
		f, perr := parser.ParseFile(fset, full, nil, parser.ImportsOnly)
		if perr != nil {
			continue
		}
		for _, imp := range f.Imports {
			alias := ""
			if imp.Name != nil {
				alias = imp.Name.Name
			}
			out = append(out, GoImport{Name: alias, Path: strings.Trim(imp.Path.Value, `"`)})
		}
	}
	return dedupeAndSortImports(out)
}

// findImportByAliasOrSuffix prefers an alias match, then a path suffix match.
func findImportByAliasOrSuffix(imports []GoImport, preferAlias, preferSuffix string) (GoImport, bool) {
	if preferAlias != "" {
		for _, gi := range imports {
			if gi.Name == preferAlias {
				return gi, true
			}
		}
	}
	if preferSuffix != "" {
		for _, gi := range imports {
			if strings.HasSuffix(gi.Path, preferSuffix) {
				return gi, true
			}
		}
	}
	return GoImport{}, false
}

func dedupeAndSortImports(imps []GoImport) []GoImport {
	seen := map[GoImport]bool{}
	out := make([]GoImport, 0, len(imps))
	for _, gi := range imps {
		if seen[gi] {
			continue
		}
		seen[gi] = true
		out = append(out, gi)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path == out[j].Path {
			return out[i].Name < out[j].Name
		}
		return out[i].Path < out[j].Path
	})
	return out
}

// mergeImports unions both lists. An extra import of a path that is already
// required is dropped so an alias cannot import the same package twice.
func mergeImports(required, extra []GoImport) []GoImport {
	paths := map[string]bool{}
	out := make([]GoImport, 0, len(required)+len(extra))
	for _, gi := range required {
		paths[gi.Path] = true
		out = append(out, gi)
	}
	for _, gi := range extra {
		if strings.TrimSpace(gi.Path) == "" || paths[gi.Path] {
			continue
		}
		out = append(out, gi)
	}
	return dedupeAndSortImports(out)
}
