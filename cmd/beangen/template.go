package main

import (
	"strconv"
	"strings"
	"text/template"
)

func depArgs(deps []DepSpec) string {
	names := make([]string, len(deps))
	for i := range deps {
		names[i] = "dep" + strconv.Itoa(i)
	}
	return strings.Join(names, ", ")
}

var moduleTpl = template.Must(
	template.New("module").
		Funcs(template.FuncMap{
			"quote":   strconv.Quote,
			"depArgs": depArgs,
		}).
		Parse(`// Code generated by beangen; DO NOT EDIT.
// Spec: {{.SpecPath}}
// Spec-SHA256: {{.SpecHash}}

package {{.Spec.Package}}

import (
{{- range .Imports }}
	{{- if .Name }}
	{{ .Name }} "{{ .Path }}"
	{{- else }}
	"{{ .Path }}"
	{{- end }}
{{- end }}
)

// {{.Spec.Module}} registers the beans declared in {{.SpecPath}}.
func {{.Spec.Module}}() di.Module {
	return di.ModuleFunc(func(c *di.Context) error {
	{{- range $i, $b := .Spec.Beans }}
		// {{ $b.Label }}
		{{- if $b.IsInstance }}
		if err := di.AddInstance[{{ $b.Type }}](c, {{ quote $b.Name }}, {{ $b.Instance }}
		{{- else }}
		if err := di.AddCreator[{{ $b.Type }}](c, {{ quote $b.Name }}, func(ctx context.Context, c *di.Context) ({{ $b.Type }}, error) {
			{{- if $b.Deps }}
			var zero {{ $b.Type }}
			{{- end }}
			{{- range $j, $d := $b.Deps }}
			dep{{ $j }}, err := di.Compute[{{ $d.Type }}](ctx, c, {{ quote $d.Name }})
			{{- if $d.Optional }}
			if err != nil && !errors.Is(err, di.ErrNotExist) {
			{{- else }}
			if err != nil {
			{{- end }}
				return zero, err
			}
			{{- end }}
			{{- if $b.ReturnsError }}
			return {{ $b.Constructor }}({{ depArgs $b.Deps }})
			{{- else }}
			return {{ $b.Constructor }}({{ depArgs $b.Deps }}), nil
			{{- end }}
		}
		{{- end }}
		{{- if $b.HasDescriptor }}, di.WithDescriptor(describe{{ $.Spec.Module }}{{ $i }}()){{ end }}
		{{- if $b.NoClose }}, di.WithoutClose(){{ end }}); err != nil {
			return err
		}
	{{- end }}
		return nil
	})
}
{{- range $i, $b := .Spec.Beans }}
{{- if $b.HasDescriptor }}

func describe{{ $.Spec.Module }}{{ $i }}() *di.Descriptor {
	d := di.NewDescriptor()
	{{- range $b.Methods }}
	{{- if .Mutable }}
	d = di.AddWriteMethod[{{ $b.Type }}, {{ .Params }}, {{ .Args }}](d, {{ quote .Name }}, {{ .Value }}, {{ .Func }})
	{{- else }}
	d = di.AddReadMethod[{{ $b.Type }}, {{ .Params }}, {{ .Args }}](d, {{ quote .Name }}, {{ .Value }}, {{ .Func }})
	{{- end }}
	{{- end }}
	{{- range $b.Runnables }}
	d = di.AddRunnable[{{ $b.Type }}](d, {{ quote .Name }}, {{ .Func }})
	{{- end }}
	return d
}
{{- end }}
{{- end }}
`),
)
