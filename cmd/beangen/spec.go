package main

import (
	"fmt"
	"go/token"
	"strconv"
	"strings"
)

// Imports lists the packages the generated file needs beyond its own.
type Imports struct {
	// DI overrides the runtime import path. Inferred when empty.
	DI    string     `yaml:"di"`
	Extra []GoImport `yaml:"extra"`
}

// DepSpec names a bean resolved with di.Compute inside a factory.
type DepSpec struct {
	Type string `yaml:"type"`
	Name string `yaml:"name"`
	// Optional deps fall back to the zero value when nothing is registered.
	Optional bool `yaml:"optional"`
}

// MethodSpec registers one capability implementation on a bean's descriptor.
type MethodSpec struct {
	Name   string `yaml:"name"`
	Params string `yaml:"params"`
	Args   string `yaml:"args"`
	// Value is the params expression; "<Params>{}" when empty.
	Value   string `yaml:"value"`
	Func    string `yaml:"func"`
	Mutable bool   `yaml:"mutable"`
}

// RunnableSpec registers a zero-argument runnable on a bean's descriptor.
type RunnableSpec struct {
	Name string `yaml:"name"`
	Func string `yaml:"func"`
}

// BeanSpec is either an instance (Instance set) or a creator (Constructor set).
type BeanSpec struct {
	Type         string         `yaml:"type"`
	Name         string         `yaml:"name"`
	Constructor  string         `yaml:"constructor"`
	ReturnsError bool           `yaml:"returnsError"`
	Instance     string         `yaml:"instance"`
	NoClose      bool           `yaml:"noClose"`
	Deps         []DepSpec      `yaml:"deps"`
	Methods      []MethodSpec   `yaml:"methods"`
	Runnables    []RunnableSpec `yaml:"runnables"`
}

// ModuleSpec is the root of a beans.yaml file.
type ModuleSpec struct {
	Package string     `yaml:"package"`
	Module  string     `yaml:"module"`
	Imports Imports    `yaml:"imports"`
	Beans   []BeanSpec `yaml:"beans"`
}

func (b BeanSpec) IsInstance() bool { return strings.TrimSpace(b.Instance) != "" }

func (b BeanSpec) HasDescriptor() bool { return len(b.Methods) > 0 || len(b.Runnables) > 0 }

func (b BeanSpec) HasOptions() bool { return b.HasDescriptor() || b.NoClose }

// Label identifies the bean in error messages.
func (b BeanSpec) Label() string {
	if b.Name == "" {
		return b.Type
	}
	return b.Type + "[" + strconv.Quote(b.Name) + "]"
}

func applySpecDefaults(s *ModuleSpec) {
	if s == nil {
		return
	}
	if strings.TrimSpace(s.Module) == "" {
		s.Module = "Module"
	}
	for i := range s.Beans {
		b := &s.Beans[i]
		for j := range b.Methods {
			m := &b.Methods[j]
			if m.Args == "" {
				m.Args = "struct{}"
			}
			if m.Value == "" {
				m.Value = m.Params + "{}"
			}
			if m.Name == "" {
				m.Name = m.Func
			}
		}
		for j := range b.Runnables {
			if b.Runnables[j].Name == "" {
				b.Runnables[j].Name = b.Runnables[j].Func
			}
		}
	}
}

// SpecError reports an invalid field of a bean spec. Field is the YAML path,
// e.g. "beans[2].deps[0]".
type SpecError struct {
	Field  string
	Reason string
}

func (e *SpecError) Error() string {
	if e.Field == "" {
		return "spec: " + e.Reason
	}
	return "spec: " + e.Field + ": " + e.Reason
}

func invalid(field, reason string) error {
	return &SpecError{Field: field, Reason: reason}
}

func validateModuleSpec(s *ModuleSpec) error {
	if s == nil {
		return invalid("", "nil")
	}
	if !token.IsIdentifier(s.Package) {
		return invalid("", "package must be a Go identifier, got "+strconv.Quote(s.Package))
	}
	if !token.IsIdentifier(s.Module) || !token.IsExported(s.Module) {
		return invalid("", "module must be an exported Go identifier, got "+strconv.Quote(s.Module))
	}
	if len(s.Beans) == 0 {
		return invalid("", "beans is empty")
	}

	seen := map[string]bool{}
	for i, b := range s.Beans {
		if err := validateBean(fmt.Sprintf("beans[%d]", i), b, seen); err != nil {
			return err
		}
	}
	return nil
}

func validateBean(field string, b BeanSpec, seen map[string]bool) error {
	if strings.TrimSpace(b.Type) == "" {
		return invalid(field, "type is required")
	}
	if seen[b.Label()] {
		return invalid(field, "duplicate bean "+b.Label())
	}
	seen[b.Label()] = true

	switch {
	case b.IsInstance() && b.Constructor != "":
		return invalid(field, "use only one of instance or constructor")
	case !b.IsInstance() && b.Constructor == "":
		return invalid(field, "one of instance or constructor is required")
	case b.IsInstance() && (len(b.Deps) > 0 || b.ReturnsError):
		return invalid(field, "instances take no deps")
	}

	for j, d := range b.Deps {
		if strings.TrimSpace(d.Type) == "" {
			return invalid(fmt.Sprintf("%s.deps[%d]", field, j), "type is required")
		}
	}
	for j, m := range b.Methods {
		at := fmt.Sprintf("%s.methods[%d]", field, j)
		if strings.TrimSpace(m.Params) == "" {
			return invalid(at, "params is required")
		}
		if !token.IsIdentifier(m.Func) {
			return invalid(at, "func must be a Go identifier, got "+strconv.Quote(m.Func))
		}
	}
	for j, r := range b.Runnables {
		if !token.IsIdentifier(r.Func) {
			return invalid(fmt.Sprintf("%s.runnables[%d]", field, j), "func must be a Go identifier, got "+strconv.Quote(r.Func))
		}
	}
	return nil
}

func usesOptionalDeps(s *ModuleSpec) bool {
	for _, b := range s.Beans {
		for _, d := range b.Deps {
			if d.Optional {
				return true
			}
		}
	}
	return false
}

func usesCreators(s *ModuleSpec) bool {
	for _, b := range s.Beans {
		if !b.IsInstance() {
			return true
		}
	}
	return false
}

// usesPkgQualifier reports whether any type expression in s mentions pkg.
func usesPkgQualifier(s *ModuleSpec, pkg string) bool {
	prefix := pkg + "."
	has := func(t string) bool {
		t = strings.TrimLeft(t, "*[]")
		return strings.HasPrefix(t, prefix) || strings.Contains(t, " "+prefix) || strings.Contains(t, "]"+prefix)
	}
	for _, b := range s.Beans {
		if has(b.Type) {
			return true
		}
		for _, d := range b.Deps {
			if has(d.Type) {
				return true
			}
		}
		for _, m := range b.Methods {
			if has(m.Params) || has(m.Args) {
				return true
			}
		}
	}
	return false
}
