package registry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/modgen/pkg/codegen/modules"
)

var (
	memory = modules.Declaration{
		Name:         "memory",
		ProtoModule:  "mem",
		RustModule:   "memory",
		CargoFeature: "memory_module",
		RootMessage:  "MemoryInfo",
		File:         "mem.proto",
	}
	testModule = modules.Declaration{
		Name:        "test",
		ProtoModule: "test",
		RootMessage: "test.Test",
		File:        "test.proto",
	}
	ungated = modules.Declaration{
		Name:        "console",
		ProtoModule: "console",
		RustModule:  "console",
		RootMessage: "Console",
		File:        "console.proto",
	}
)

func TestParseDialect(t *testing.T) {
	d, err := ParseDialect("rust")
	require.NoError(t, err)
	assert.Equal(t, DialectRust, d)

	d, err = ParseDialect("go")
	require.NoError(t, err)
	assert.Equal(t, DialectGo, d)

	_, err = ParseDialect("c")
	assert.ErrorIs(t, err, ErrUnknownDialect)
}

func TestRender_Rust(t *testing.T) {
	e := &Emitter{Dialect: DialectRust}

	out, err := e.Render([]modules.Declaration{memory, testModule})
	require.NoError(t, err)

	assert.Equal(t, `// File generated automatically by modgen. Do not edit.
#[cfg(feature = "memory_module")]
mod memory;
`, string(out.Inclusion))

	assert.Equal(t, `{
#[cfg(feature = "memory_module")]
add_module!(modules, "memory", mem, "MemoryInfo", Some("memory"), Some(memory::__main__ as MainFn));
add_module!(modules, "test", test, "test.Test", None, None);
}
`, string(out.Table))
}

func TestRender_RustUngatedModule(t *testing.T) {
	out, err := (&Emitter{}).Render([]modules.Declaration{ungated})
	require.NoError(t, err)

	assert.Equal(t, "// File generated automatically by modgen. Do not edit.\nmod console;\n", string(out.Inclusion))
	assert.NotContains(t, string(out.Table), "cfg")
	assert.Contains(t, string(out.Table), `Some(console::__main__ as MainFn)`)
}

func TestRender_Empty(t *testing.T) {
	out, err := (&Emitter{Dialect: DialectRust}).Render(nil)
	require.NoError(t, err)
	assert.Equal(t, "// File generated automatically by modgen. Do not edit.\n", string(out.Inclusion))
	assert.Equal(t, "{\n}\n", string(out.Table))

	out, err = (&Emitter{Dialect: DialectGo}).Render(nil)
	require.NoError(t, err)
	assert.Equal(t, "// Code generated by modgen. DO NOT EDIT.\n\npackage modules\n", string(out.Inclusion))
	assert.Contains(t, string(out.Table), "func addModules(modules map[string]*Module, features FeatureSet) {\n}\n")
}

func TestRender_Go(t *testing.T) {
	e := &Emitter{Dialect: DialectGo, Package: "yrx", ImportPrefix: "example.com/yrx/modules/"}

	out, err := e.Render([]modules.Declaration{memory, testModule})
	require.NoError(t, err)

	assert.Equal(t, `// Code generated by modgen. DO NOT EDIT.

package yrx

import (
	//modgen:feature memory_module
	_ "example.com/yrx/modules/memory"
)
`, string(out.Inclusion))

	assert.Equal(t, `// Code generated by modgen. DO NOT EDIT.

package yrx

import (
	memorymodule "example.com/yrx/modules/memory"
)

func addModules(modules map[string]*Module, features FeatureSet) {
	if features.Enabled("memory_module") {
		addModule(modules, "memory", "mem", "MemoryInfo", "memory", memorymodule.Main)
	}
	addModule(modules, "test", "test", "test.Test", "", nil)
}
`, string(out.Table))
}

func TestRender_GuardConsistency(t *testing.T) {
	decls := []modules.Declaration{memory, testModule, ungated}

	for _, d := range []Dialect{DialectRust, DialectGo} {
		t.Run(string(d), func(t *testing.T) {
			out, err := (&Emitter{Dialect: d}).Render(decls)
			require.NoError(t, err)

			// every feature guarding an inclusion entry guards a table entry too
			for _, decl := range decls {
				if decl.CargoFeature == "" {
					continue
				}
				assert.Equal(t, 1, strings.Count(string(out.Inclusion), decl.CargoFeature))
				assert.Equal(t, 1, strings.Count(string(out.Table), decl.CargoFeature))
			}
		})
	}
}

func TestRender_EscapesStrings(t *testing.T) {
	decl := modules.Declaration{Name: `we"ird\name`, ProtoModule: "weird", RootMessage: "Root"}

	out, err := (&Emitter{Dialect: DialectRust}).Render([]modules.Declaration{decl})
	require.NoError(t, err)
	assert.Contains(t, string(out.Table), `"we\"ird\\name"`)

	out, err = (&Emitter{Dialect: DialectGo}).Render([]modules.Declaration{decl})
	require.NoError(t, err)
	assert.Contains(t, string(out.Table), `"we\"ird\\name"`)
}

func TestRender_SharedHostModule(t *testing.T) {
	alias := memory
	alias.Name = "mem2"
	alias.ProtoModule = "mem2"

	out, err := (&Emitter{Dialect: DialectRust}).Render([]modules.Declaration{memory, alias})
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(out.Inclusion), "mod memory;"))
	assert.Equal(t, 2, strings.Count(string(out.Table), "add_module!"))
}

func TestRender_SharedHostModuleFeatures(t *testing.T) {
	foo := modules.Declaration{Name: "a", ProtoModule: "a", RustModule: "shared", CargoFeature: "foo", RootMessage: "A"}
	bar := modules.Declaration{Name: "b", ProtoModule: "b", RustModule: "shared", CargoFeature: "bar", RootMessage: "B"}
	open := modules.Declaration{Name: "c", ProtoModule: "c", RustModule: "shared", RootMessage: "C"}

	tests := []struct {
		name          string
		decls         []modules.Declaration
		wantInclusion string
		wantGoMarker  string
	}{
		{
			name:          "different features",
			decls:         []modules.Declaration{foo, bar},
			wantInclusion: "#[cfg(any(feature = \"foo\", feature = \"bar\"))]\nmod shared;\n",
			wantGoMarker:  "//modgen:feature foo bar\n",
		},
		{
			name:          "repeated feature",
			decls:         []modules.Declaration{foo, foo},
			wantInclusion: "#[cfg(feature = \"foo\")]\nmod shared;\n",
			wantGoMarker:  "//modgen:feature foo\n",
		},
		{
			name:          "ungated declaration wins",
			decls:         []modules.Declaration{foo, open, bar},
			wantInclusion: "Do not edit.\nmod shared;\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := (&Emitter{Dialect: DialectRust}).Render(tt.decls)
			require.NoError(t, err)
			assert.Equal(t, 1, strings.Count(string(out.Inclusion), "mod shared;"))
			assert.Contains(t, string(out.Inclusion), tt.wantInclusion)

			// every table guard is covered by the inclusion guard
			for _, d := range tt.decls {
				if d.CargoFeature != "" && tt.wantGoMarker != "" {
					assert.Contains(t, string(out.Inclusion), `feature = "`+d.CargoFeature+`"`)
				}
			}

			out, err = (&Emitter{Dialect: DialectGo}).Render(tt.decls)
			require.NoError(t, err)
			assert.Equal(t, 1, strings.Count(string(out.Inclusion), `modules/shared"`))
			if tt.wantGoMarker == "" {
				assert.NotContains(t, string(out.Inclusion), "//modgen:feature")
			} else {
				assert.Contains(t, string(out.Inclusion), tt.wantGoMarker)
			}
		})
	}
}

func TestRender_Deterministic(t *testing.T) {
	decls := []modules.Declaration{memory, testModule, ungated}

	for _, d := range []Dialect{DialectRust, DialectGo} {
		e := &Emitter{Dialect: d}
		first, err := e.Render(decls)
		require.NoError(t, err)
		second, err := e.Render(decls)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	}
}

func TestRender_UnknownDialect(t *testing.T) {
	_, err := (&Emitter{Dialect: "c"}).Render(nil)
	assert.ErrorIs(t, err, ErrUnknownDialect)
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	out := Outputs{
		InclusionPath: filepath.Join(dir, "src", "modules", "modules.rs"),
		TablePath:     filepath.Join(dir, "out", "add_modules.rs"),
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(out.TablePath), 0755))
	require.NoError(t, os.WriteFile(out.TablePath, []byte(strings.Repeat("stale\n", 100)), 0644))

	e := &Emitter{Dialect: DialectRust}
	require.NoError(t, e.Write([]modules.Declaration{memory, testModule}, out))

	rendered, err := e.Render([]modules.Declaration{memory, testModule})
	require.NoError(t, err)

	inclusion, err := os.ReadFile(out.InclusionPath)
	require.NoError(t, err)
	assert.Equal(t, rendered.Inclusion, inclusion)

	table, err := os.ReadFile(out.TablePath)
	require.NoError(t, err)
	assert.Equal(t, rendered.Table, table)
}

func TestWrite_Errors(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	e := &Emitter{Dialect: DialectRust}

	err := e.Write(nil, Outputs{InclusionPath: filepath.Join(blocker, "modules.rs"), TablePath: filepath.Join(dir, "t.rs")})
	assert.ErrorIs(t, err, ErrWriteFailed)

	err = e.Write(nil, Outputs{InclusionPath: filepath.Join(dir, "m.rs")})
	assert.ErrorIs(t, err, ErrWriteFailed)

	tablePath := filepath.Join(dir, "never.rs")
	err = (&Emitter{Dialect: "c"}).Write(nil, Outputs{InclusionPath: filepath.Join(dir, "never-m.rs"), TablePath: tablePath})
	assert.ErrorIs(t, err, ErrUnknownDialect)
	assert.NoFileExists(t, tablePath)
}
