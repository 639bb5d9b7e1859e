package registry

import (
	"bytes"
	"embed"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"text/template"

	"github.com/platinummonkey/modgen/pkg/codegen/config"
	"github.com/platinummonkey/modgen/pkg/codegen/modules"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Dialect is the language registry files are written in
type Dialect string

const (
	// DialectRust guards entries with native cfg attributes
	DialectRust Dialect = "rust"
	// DialectGo emits the full registry and filters guarded entries at
	// process start
	DialectGo Dialect = "go"
)

// ParseDialect validates a dialect name
func ParseDialect(name string) (Dialect, error) {
	switch d := Dialect(name); d {
	case DialectRust, DialectGo:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDialect, name)
	}
}

type dialect struct {
	tmpl  *template.Template
	gofmt bool
}

var dialects = map[Dialect]dialect{
	DialectRust: {tmpl: mustParse("rust", rustString)},
	DialectGo:   {tmpl: mustParse("go", strconv.Quote), gofmt: true},
}

func mustParse(name string, str func(string) string) *template.Template {
	return template.Must(template.New(name).
		Funcs(template.FuncMap{"str": str}).
		ParseFS(templateFS, "templates/"+name+".tmpl"))
}

// rustString quotes s as a Rust string literal
func rustString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`)
	return `"` + r.Replace(s) + `"`
}

// Emitter renders module declarations into the inclusion and table files
type Emitter struct {
	Dialect Dialect
	// Package is the package clause of go dialect files
	Package string
	// ImportPrefix is joined with a host module name to form its go import path
	ImportPrefix string
}

// Rendered holds the content of both registry files
type Rendered struct {
	Inclusion []byte
	Table     []byte
}

// Outputs are the destinations of the registry files
type Outputs struct {
	InclusionPath string
	TablePath     string
}

// hostModule is one inclusion entry. Features lists every feature that
// enables a declaration hosted by Module; it is empty when one of those
// declarations is ungated.
type hostModule struct {
	Module   string
	Features []string
}

type templateData struct {
	Decls        []modules.Declaration
	Hosted       []hostModule
	Package      string
	ImportPrefix string
}

// Render produces both registry files. Output depends only on decls and the
// emitter's fields.
func (e *Emitter) Render(decls []modules.Declaration) (*Rendered, error) {
	name := e.Dialect
	if name == "" {
		name = Dialect(config.DefaultDialect)
	}
	d, ok := dialects[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDialect, name)
	}

	data := templateData{
		Decls:        decls,
		Hosted:       hosted(decls),
		Package:      e.Package,
		ImportPrefix: strings.TrimSuffix(e.ImportPrefix, "/"),
	}
	if data.Package == "" {
		data.Package = config.DefaultGoPackage
	}
	if data.ImportPrefix == "" {
		data.ImportPrefix = config.DefaultGoModuleImportPrefix
	}

	inclusion, err := execute(d, "inclusion", data)
	if err != nil {
		return nil, err
	}
	table, err := execute(d, "table", data)
	if err != nil {
		return nil, err
	}
	return &Rendered{Inclusion: inclusion, Table: table}, nil
}

// Write renders both files and writes them. Nothing is written when
// rendering fails.
func (e *Emitter) Write(decls []modules.Declaration, out Outputs) error {
	rendered, err := e.Render(decls)
	if err != nil {
		return err
	}
	if err := writeFile(out.InclusionPath, rendered.Inclusion); err != nil {
		return err
	}
	return writeFile(out.TablePath, rendered.Table)
}

func execute(d dialect, name string, data templateData) ([]byte, error) {
	var buf bytes.Buffer
	if err := d.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRenderFailed, name, err)
	}
	if !d.gofmt {
		return buf.Bytes(), nil
	}

	formatted, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRenderFailed, name, err)
	}
	return formatted, nil
}

// hosted returns one entry per host module, in first-use order. The entry is
// enabled whenever any declaration it hosts is enabled.
func hosted(decls []modules.Declaration) []hostModule {
	var out []hostModule
	index := make(map[string]int)
	ungated := make(map[string]bool)
	for _, d := range decls {
		if d.RustModule == "" {
			continue
		}
		i, ok := index[d.RustModule]
		if !ok {
			i = len(out)
			index[d.RustModule] = i
			out = append(out, hostModule{Module: d.RustModule})
		}
		if d.CargoFeature == "" {
			ungated[d.RustModule] = true
			out[i].Features = nil
			continue
		}
		if !ungated[d.RustModule] && !slices.Contains(out[i].Features, d.CargoFeature) {
			out[i].Features = append(out[i].Features, d.CargoFeature)
		}
	}
	return out
}

// writeFile creates or truncates path and writes content. The file is closed
// before returning.
func writeFile(path string, content []byte) (err error) {
	if path == "" {
		return fmt.Errorf("%w: empty path", ErrWriteFailed)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteFailed, path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteFailed, path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: %s: %w", ErrWriteFailed, path, cerr)
		}
	}()

	if _, err := f.Write(content); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteFailed, path, err)
	}
	return nil
}
