package main

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"go/format"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newRootCmd() *cobra.Command {
	var specPath, outPath string

	cmd := &cobra.Command{
		Use:           "beangen",
		Short:         "Generate a di.Module from a YAML bean spec",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(specPath) == "" {
				return errors.New("missing --spec")
			}
			if strings.TrimSpace(outPath) == "" {
				return errors.New("missing --out")
			}
			return generate(specPath, outPath)
		},
	}
	cmd.Flags().StringVar(&specPath, "spec", "", "path to beans.yaml")
	cmd.Flags().StringVar(&outPath, "out", "", "output .gen.go file path")
	return cmd
}

func run(args []string) error {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	return cmd.Execute()
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.WithError(err).Fatal("beangen failed")
	}
}

func generate(specPath, outPath string) error {
	return errors.Wrap(genModule(specPath, outPath), "beangen")
}

func genModule(specPath, outPath string) error {
	raw, err := os.ReadFile(specPath)
	if err != nil {
		return err
	}

	var spec ModuleSpec
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.Errorf("spec: %s is empty", filepath.ToSlash(specPath))
		}
		return errors.Wrapf(err, "spec: %s", filepath.ToSlash(specPath))
	}

	applySpecDefaults(&spec)
	if err := validateModuleSpec(&spec); err != nil {
		return err
	}
	imports, err := inferImports(&spec, outPath)
	if err != nil {
		return err
	}

	// deterministic ordering; methods keep their declared order since it is
	// the order Methods yields them in
	sort.SliceStable(spec.Beans, func(i, j int) bool {
		if spec.Beans[i].Type == spec.Beans[j].Type {
			return spec.Beans[i].Name < spec.Beans[j].Name
		}
		return spec.Beans[i].Type < spec.Beans[j].Type
	})

	var src bytes.Buffer
	if err := moduleTpl.Execute(&src, map[string]any{
		"Spec":     spec,
		"SpecPath": filepath.ToSlash(filepath.Base(specPath)),
		"SpecHash": specDigest(raw),
		"Imports":  imports,
	}); err != nil {
		return errors.Wrap(err, "render")
	}
	if err := writeGoFile(outPath, src.Bytes()); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"spec":  filepath.ToSlash(specPath),
		"out":   filepath.ToSlash(outPath),
		"beans": len(spec.Beans),
	}).Info("bean module generated")
	return nil
}

// specDigest is the hex SHA-256 recorded in the generated header.
func specDigest(raw []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(raw))
}

// writeGoFile formats src and writes it to out. Source that does not format
// is still written so it can be inspected.
func writeGoFile(out string, src []byte) error {
	formatted, ferr := format.Source(src)
	if ferr != nil {
		formatted = src
	}
	if err := os.WriteFile(out, formatted, 0o644); err != nil {
		return err
	}
	return errors.Wrap(ferr, "gofmt/format failed")
}
