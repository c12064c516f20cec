package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type TB interface {
	Helper()
	Fatalf(format string, args ...any)
}

type pkgHarness struct {
	t   *testing.T
	dir string
}

func newPkg(t *testing.T) *pkgHarness {
	t.Helper()
	return &pkgHarness{t: t, dir: t.TempDir()}
}

func (p *pkgHarness) write(rel, content string) string {
	p.t.Helper()
	path := filepath.Join(p.dir, rel)
	mustWriteFile(p.t, path, content)
	return path
}

func (p *pkgHarness) out(rel string) string {
	return filepath.Join(p.dir, rel)
}

func (p *pkgHarness) read(rel string) string {
	p.t.Helper()
	return mustReadString(p.t, filepath.Join(p.dir, rel))
}

const sampleSpec = `package: shop
module: Beans
imports:
  extra:
    - path: example.com/shop/clock
beans:
  - type: Limits
    name: strict
    instance: 'Limits{Max: 3}'
    noClose: true
  - type: "*Store"
    constructor: OpenStore
    returnsError: true
  - type: "*Service"
    constructor: NewService
    deps:
      - type: "*Store"
      - type: Tracer
        optional: true
    methods:
      - params: Announce
        value: 'Announce{Topic: "shop"}'
        func: announceService
      - params: Rebuild
        args: int
        func: rebuildService
        mutable: true
    runnables:
      - func: runService
`

func writeDISource(p *pkgHarness) {
	p.write("di.go", `package shop
import di "example.com/proj/di"
var _ di.Module`)
}

func assertHasImport(t TB, out, imp string) {
	t.Helper()
	if !strings.Contains(out, `"`+imp+`"`) {
		t.Fatalf("expected import %q", imp)
	}
}

func assertNotHasImport(t TB, out, imp string) {
	t.Helper()
	if strings.Contains(out, `"`+imp+`"`) {
		t.Fatalf("did not expect import %q", imp)
	}
}

func assertPanicContains(t TB, fn func(), wantSubstr string) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic containing %q, got none", wantSubstr)
		}
		msg := toString(r)
		if !strings.Contains(msg, wantSubstr) {
			t.Fatalf("panic=%q want contains %q", msg, wantSubstr)
		}
	}()
	fn()
}

func assertErrContains(t TB, err error, wantSubstr string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error containing %q, got nil", wantSubstr)
	}
	if !strings.Contains(err.Error(), wantSubstr) {
		t.Fatalf("err=%q want contains %q", err.Error(), wantSubstr)
	}
}

func assertContainsInOrder(t TB, s string, parts ...string) {
	t.Helper()
	pos := 0
	for _, p := range parts {
		i := strings.Index(s[pos:], p)
		if i < 0 {
			t.Fatalf("expected to find %q after pos=%d", p, pos)
		}
		pos += i + len(p)
	}
}

func mustWriteFile(t TB, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func mustReadString(t TB, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(b)
}

// withoutHeader drops the spec hash line so outputs of different specs compare.
func withoutHeader(src string) string {
	var keep []string
	for _, ln := range strings.Split(src, "\n") {
		if strings.HasPrefix(ln, "// Spec-SHA256:") {
			continue
		}
		keep = append(keep, ln)
	}
	return strings.Join(keep, "\n")
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case error:
		return x.Error()
	default:
		return fmt.Sprintf("%v", v)
	}
}
