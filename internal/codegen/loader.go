package codegen

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"golang.org/x/tools/go/packages"
)

// Loader names accepted by NewLoader.
const (
	LoaderYaegi    = "yaegi"
	LoaderPackages = "packages"
)

// Artifact is the handle to a generated source file.
type Artifact struct {
	// Path is the file on disk.
	Path string
	// Name is the logical package name derived from the file name.
	Name string
}

// NewArtifact builds the handle for path.
func NewArtifact(path string) Artifact {
	return Artifact{Path: path, Name: PackageName(path)}
}

// PackageName derives a Go identifier from a file name: the extension is
// removed, the rest lower-cased, and anything that is not a letter, digit or
// underscore becomes an underscore.
func PackageName(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	var b strings.Builder
	for _, r := range strings.ToLower(base) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	name := b.String()
	if name == "" || unicode.IsDigit(rune(name[0])) {
		name = "gen_" + name
	}
	return name
}

// Loader proves a generated artifact can be loaded.
type Loader interface {
	Name() string
	Load(ctx context.Context, a Artifact) error
}

// NewLoader returns the loader registered under name.
func NewLoader(name string) (Loader, error) {
	switch name {
	case LoaderYaegi, "":
		return YaegiLoader{}, nil
	case LoaderPackages:
		return PackagesLoader{}, nil
	default:
		return nil, fmt.Errorf("unknown smoke loader %q (want %s or %s)", name, LoaderYaegi, LoaderPackages)
	}
}

// YaegiLoader interprets the artifact with the standard library symbols
// available. Imports outside the standard library fail to resolve.
type YaegiLoader struct{}

// Name implements Loader.
func (YaegiLoader) Name() string { return LoaderYaegi }

// Load implements Loader.
func (YaegiLoader) Load(ctx context.Context, a Artifact) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("interpreter panic: %v", r)
		}
	}()

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return fmt.Errorf("loading stdlib symbols: %w", err)
	}
	if _, err := i.EvalPathWithContext(ctx, a.Path); err != nil {
		return err
	}
	return nil
}

// PackagesLoader type-checks the package containing the artifact with the
// go command. It needs a go toolchain and a module around the artifact.
type PackagesLoader struct{}

// Name implements Loader.
func (PackagesLoader) Name() string { return LoaderPackages }

// Load implements Loader.
func (PackagesLoader) Load(ctx context.Context, a Artifact) error {
	abs, err := filepath.Abs(a.Path)
	if err != nil {
		return fmt.Errorf("abs path: %w", err)
	}

	cfg := &packages.Config{
		Context: ctx,
		Mode: packages.NeedName |
			packages.NeedSyntax |
			packages.NeedTypes |
			packages.NeedTypesInfo |
			packages.NeedImports,
		Dir: filepath.Dir(abs),
	}
	pkgs, err := packages.Load(cfg, ".")
	if err != nil {
		return fmt.Errorf("packages.Load: %w", err)
	}
	if len(pkgs) == 0 {
		return fmt.Errorf("no packages found in %s", filepath.Dir(abs))
	}

	var msgs []string
	packages.Visit(pkgs, nil, func(p *packages.Package) {
		for _, e := range p.Errors {
			msgs = append(msgs, e.Error())
		}
	})
	if len(msgs) > 0 {
		return fmt.Errorf("%s", strings.Join(msgs, "\n"))
	}
	if pkgs[0].Types == nil {
		return fmt.Errorf("no type info for %s", abs)
	}
	return nil
}
