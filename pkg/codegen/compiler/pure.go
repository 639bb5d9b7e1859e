package compiler

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	gengo "google.golang.org/protobuf/cmd/protoc-gen-go/internal_gengo"
	"google.golang.org/protobuf/compiler/protogen"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/pluginpb"

	"github.com/platinummonkey/modgen/pkg/codegen"
	"github.com/platinummonkey/modgen/pkg/codegen/config"
)

// PureGenerator produces Go bindings in process: the inputs are parsed with
// protocompile and handed to protoc-gen-go's generator as a plugin request.
type PureGenerator struct{}

// Generate implements Generator
func (g *PureGenerator) Generate(ctx context.Context, cfg *Config) ([]codegen.GeneratedFile, error) {
	set, err := Parse(ctx, cfg)
	if err != nil {
		return nil, err
	}

	req := &pluginpb.CodeGeneratorRequest{
		FileToGenerate: cfg.Inputs,
		Parameter:      proto.String(strings.Join(GoParameters(set.All, cfg.GoImportPrefix), ",")),
		ProtoFile:      set.All,
	}

	plugin, err := protogen.Options{}.New(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompilationFailed, err)
	}
	for _, f := range plugin.Files {
		if f.Generate {
			gengo.GenerateFile(plugin, f)
		}
	}
	plugin.SupportedFeatures = gengo.SupportedFeatures
	plugin.SupportedEditionsMinimum = gengo.SupportedEditionsMinimum
	plugin.SupportedEditionsMaximum = gengo.SupportedEditionsMaximum

	resp := plugin.Response()
	if resp.Error != nil {
		return nil, fmt.Errorf("%w: %s", ErrCompilationFailed, resp.GetError())
	}

	files := make([]codegen.GeneratedFile, 0, len(resp.GetFile()))
	for _, f := range resp.GetFile() {
		files = append(files, codegen.NewGeneratedFile(f.GetName(), []byte(f.GetContent())))
	}
	return files, nil
}

// GoParameters returns the protoc-gen-go parameters for a closure: source
// relative output paths plus an M mapping for every file that does not
// declare go_package. Mappings are sorted so the parameter string is stable.
func GoParameters(files []*descriptorpb.FileDescriptorProto, prefix string) []string {
	if prefix == "" {
		prefix = config.DefaultGoImportPrefix
	}

	var mappings []string
	for _, f := range files {
		if f.GetOptions().GetGoPackage() != "" {
			continue
		}
		name := f.GetName()
		stem := strings.TrimSuffix(name, path.Ext(name))
		mappings = append(mappings, fmt.Sprintf("M%s=%s/%s;%s", name, prefix, stem, goPackageName(path.Base(stem))))
	}
	sort.Strings(mappings)

	return append([]string{"paths=source_relative"}, mappings...)
}

// goPackageName turns a file stem into a valid Go package name
func goPackageName(stem string) string {
	var b strings.Builder
	for i, r := range stem {
		switch {
		case r == '_' || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z'):
			b.WriteRune(r)
		case '0' <= r && r <= '9' && i > 0:
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.ToLower(b.String())
}
