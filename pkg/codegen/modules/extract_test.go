package modules

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/platinummonkey/modgen/pkg/codegen/compiler"
	"github.com/platinummonkey/modgen/pkg/codegen/config"
	"github.com/platinummonkey/modgen/pkg/codegen/protopath"
)

func parseFixture(t *testing.T, schemaDir string, extra protopath.ExtraSpec) *compiler.DescriptorSet {
	t.Helper()
	root, err := filepath.Abs("../testdata/lib")
	require.NoError(t, err)

	fs, err := protopath.Resolve(protopath.Layout{
		Root:           root,
		SchemaDir:      schemaDir,
		SharedIncludes: config.DefaultSharedIncludes,
		SharedInputs:   config.DefaultSharedInputs,
		Suffix:         config.DefaultSchemaSuffix,
	}, extra)
	require.NoError(t, err)

	set, err := compiler.Parse(context.Background(), compiler.NewConfig(fs, t.TempDir()))
	require.NoError(t, err)
	return set
}

func moduleOptions(t *testing.T, set *compiler.DescriptorSet) protoreflect.ExtensionType {
	t.Helper()
	xt, err := LookupExtension(set, config.DefaultModuleExtension)
	require.NoError(t, err)
	return xt
}

func extractFixture(t *testing.T, schemaDir string) ([]Declaration, error) {
	t.Helper()
	set := parseFixture(t, schemaDir, protopath.ExtraSpec{})
	return Collect(Extract(set, moduleOptions(t, set), config.DefaultSchemaSuffix))
}

func TestLookupExtension(t *testing.T) {
	set := parseFixture(t, config.DefaultSchemaDir, protopath.ExtraSpec{})

	xt, err := LookupExtension(set, "yara.module_options")
	require.NoError(t, err)
	assert.Equal(t, protoreflect.FullName("yara.module_options"), xt.TypeDescriptor().FullName())
	assert.Equal(t, protoreflect.FieldNumber(51503), xt.TypeDescriptor().Number())

	tests := []struct {
		name    string
		ext     string
		wantErr error
	}{
		{name: "unknown", ext: "yara.nope", wantErr: ErrExtensionNotFound},
		{name: "message", ext: "yara.ModuleOptions", wantErr: ErrNotFileOption},
		{name: "field option", ext: "yaml.field", wantErr: ErrNotFileOption},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LookupExtension(set, tt.ext)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestModuleOptions(t *testing.T) {
	set := parseFixture(t, config.DefaultSchemaDir, protopath.ExtraSpec{})
	xt := moduleOptions(t, set)

	byFile := make(map[string]protoreflect.FileDescriptor)
	for _, fd := range set.Closure() {
		byFile[fd.Path()] = fd
	}

	opts, ok, err := ModuleOptions(byFile["mem.proto"].Options(), xt)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, &Options{
		Name:         "memory",
		RootMessage:  "MemoryInfo",
		RustModule:   "memory",
		CargoFeature: "memory_module",
	}, opts)

	opts, ok, err = ModuleOptions(byFile["test.proto"].Options(), xt)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, opts.RustModule)
	assert.Empty(t, opts.CargoFeature)

	_, ok, err = ModuleOptions(byFile["net.proto"].Options(), xt)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = ModuleOptions(nil, xt)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestModuleOptions_FromDescriptorProto(t *testing.T) {
	set := parseFixture(t, config.DefaultSchemaDir, protopath.ExtraSpec{})
	xt := moduleOptions(t, set)

	for _, fdp := range set.All {
		if fdp.GetName() != "mem.proto" {
			continue
		}
		// options copied out of the descriptor carry the extension as raw bytes
		opts, ok, err := ModuleOptions(fdp.GetOptions(), xt)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "memory", opts.Name)
		return
	}
	t.Fatal("mem.proto not found")
}

func TestExtract_Scenario(t *testing.T) {
	decls, err := extractFixture(t, config.DefaultSchemaDir)
	require.NoError(t, err)

	assert.Equal(t, []Declaration{
		{
			Name:         "memory",
			ProtoModule:  "mem",
			RustModule:   "memory",
			CargoFeature: "memory_module",
			RootMessage:  "MemoryInfo",
			File:         "mem.proto",
		},
		{
			Name:        "test",
			ProtoModule: "test",
			RootMessage: "test.Test",
			File:        "test.proto",
		},
	}, decls)
}

func TestExtract_ExtraFiles(t *testing.T) {
	base, err := filepath.Abs("../testdata/extra")
	require.NoError(t, err)

	set := parseFixture(t, config.DefaultSchemaDir, protopath.ExtraSpec{
		Raw:         "ext/cuckoo.proto",
		BasePath:    base,
		HasBasePath: true,
	})
	decls, err := Collect(Extract(set, moduleOptions(t, set), ".proto"))
	require.NoError(t, err)

	names := make([]string, len(decls))
	for i, d := range decls {
		names[i] = d.Name
	}
	assert.ElementsMatch(t, []string{"memory", "test", "cuckoo"}, names)
}

func TestExtract_InputsOnlyInInputOrder(t *testing.T) {
	set := parseFixture(t, "ordered", protopath.ExtraSpec{})

	// hidden.proto is imported from a shared include root but never compiled
	var closure []string
	for _, fd := range set.Closure() {
		closure = append(closure, fd.Path())
	}
	require.Contains(t, closure, "hidden.proto")

	decls, err := Collect(Extract(set, moduleOptions(t, set), config.DefaultSchemaSuffix))
	require.NoError(t, err)

	assert.Equal(t, []Declaration{
		{
			Name:        "alpha",
			ProtoModule: "a",
			RustModule:  "alpha",
			RootMessage: "alpha.Alpha",
			File:        "a.proto",
		},
		{
			Name:        "zulu",
			ProtoModule: "z",
			RootMessage: "zulu.Zulu",
			File:        "z.proto",
		},
	}, decls)
}

func TestExtract_Errors(t *testing.T) {
	tests := []struct {
		name      string
		schemaDir string
		wantErr   error
		wantFile  string
	}{
		{name: "missing name", schemaDir: "invalid/noname", wantErr: ErrMissingName, wantFile: "noname.proto"},
		{name: "missing root message", schemaDir: "invalid/noroot", wantErr: ErrMissingRootMessage, wantFile: "noroot.proto"},
		{name: "bad rust module", schemaDir: "invalid/badident", wantErr: ErrInvalidIdentifier, wantFile: "bad.proto"},
		{name: "duplicate", schemaDir: "invalid/duplicate", wantErr: ErrDuplicateModule, wantFile: "b.proto"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decls, err := extractFixture(t, tt.schemaDir)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), tt.wantFile)
			assert.Nil(t, decls)
		})
	}
}

func TestExtract_SuffixMismatch(t *testing.T) {
	set := parseFixture(t, config.DefaultSchemaDir, protopath.ExtraSpec{})

	_, err := Collect(Extract(set, moduleOptions(t, set), ".schema"))
	assert.ErrorIs(t, err, ErrSuffixMismatch)
}

func TestExtract_StopsEarly(t *testing.T) {
	set := parseFixture(t, config.DefaultSchemaDir, protopath.ExtraSpec{})

	count := 0
	for decl, err := range Extract(set, moduleOptions(t, set), ".proto") {
		require.NoError(t, err)
		assert.Equal(t, "memory", decl.Name)
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestExtract_Deterministic(t *testing.T) {
	first, err := extractFixture(t, config.DefaultSchemaDir)
	require.NoError(t, err)
	second, err := extractFixture(t, config.DefaultSchemaDir)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCollect_Validation(t *testing.T) {
	seq := func(decls ...Declaration) func(func(Declaration, error) bool) {
		return func(yield func(Declaration, error) bool) {
			for _, d := range decls {
				if !yield(d, nil) {
					return
				}
			}
		}
	}

	tests := []struct {
		name    string
		decl    Declaration
		wantErr error
	}{
		{name: "valid", decl: Declaration{Name: "a", ProtoModule: "a", RustModule: "a_b2", CargoFeature: "a-module"}},
		{name: "leading digit", decl: Declaration{Name: "a", ProtoModule: "a", RustModule: "2a"}, wantErr: ErrInvalidIdentifier},
		{name: "quote in feature", decl: Declaration{Name: "a", ProtoModule: "a", CargoFeature: `x"y`}, wantErr: ErrInvalidIdentifier},
		{name: "dotted schema module", decl: Declaration{Name: "a", ProtoModule: "a.b"}, wantErr: ErrInvalidIdentifier},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decls, err := Collect(seq(tt.decl))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []Declaration{tt.decl}, decls)
		})
	}
}
