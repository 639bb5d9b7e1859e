package compiler

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/platinummonkey/modgen/pkg/codegen"
	"github.com/platinummonkey/modgen/pkg/codegen/config"
)

// ProtocGenerator produces Go bindings by running a local protoc with
// protoc-gen-go on PATH
type ProtocGenerator struct {
	// Path is the protoc executable, "protoc" when empty
	Path string
}

// Generate implements Generator
func (g *ProtocGenerator) Generate(ctx context.Context, cfg *Config) ([]codegen.GeneratedFile, error) {
	// Parsing first surfaces schema errors with protocompile's diagnostics
	// and tells us which files need an import path mapping.
	set, err := Parse(ctx, cfg)
	if err != nil {
		return nil, err
	}

	outDir, err := os.MkdirTemp("", "modgen-protoc-output-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	defer os.RemoveAll(outDir)

	protoc := g.Path
	if protoc == "" {
		protoc = config.DefaultProtocPath
	}

	args := ProtocArgs(cfg.IncludePaths, cfg.Inputs, outDir, GoParameters(set.All, cfg.GoImportPrefix))
	cmd := exec.CommandContext(ctx, protoc, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: %v: %s", ErrCompilationFailed, err, strings.TrimSpace(stderr.String()))
	}

	return ReadTree(outDir)
}

// ProtocArgs builds a protoc command line emitting Go bindings into outDir
func ProtocArgs(includes, inputs []string, outDir string, goParams []string) []string {
	args := make([]string, 0, len(includes)+len(inputs)+2)
	for _, include := range includes {
		args = append(args, "--proto_path="+include)
	}
	args = append(args, "--go_out="+outDir)
	if len(goParams) > 0 {
		args = append(args, "--go_opt="+strings.Join(goParams, ","))
	}
	return append(args, inputs...)
}

// ReadTree reads all regular files below dir. Paths are slash separated and
// relative to dir, in lexical order.
func ReadTree(dir string) ([]codegen.GeneratedFile, error) {
	var files []codegen.GeneratedFile

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read file %s: %w", path, err)
		}
		relPath, err := filepath.Rel(dir, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path for %s: %w", path, err)
		}

		files = append(files, codegen.NewGeneratedFile(filepath.ToSlash(relPath), content))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}
