package modules

import (
	"fmt"
	"iter"
	"path"
	"regexp"
	"strings"

	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/platinummonkey/modgen/pkg/codegen/compiler"
)

// Declaration describes one pluggable module found in a schema file
type Declaration struct {
	// Name is the module name the host program registers it under
	Name string `json:"name"`
	// ProtoModule is the base name of the declaring file without its suffix
	ProtoModule string `json:"proto_module"`
	// RustModule is the host-language module holding the module's code.
	// Empty when the module is data only.
	RustModule string `json:"rust_module,omitempty"`
	// CargoFeature gates the module at build time. Empty when ungated.
	CargoFeature string `json:"cargo_feature,omitempty"`
	// RootMessage is the fully qualified or local name of the root message
	RootMessage string `json:"root_message"`
	// File is the compiler-facing name of the declaring file
	File string `json:"file"`
}

var (
	identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	featurePattern    = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_+.-]*$`)
)

// Extract walks the input files in input order and yields a declaration for
// every file carrying the module options extension. Imported files that are
// not inputs get no bindings and are never declared. The sequence stops after
// the first error.
func Extract(set *compiler.DescriptorSet, xt protoreflect.ExtensionType, suffix string) iter.Seq2[Declaration, error] {
	return func(yield func(Declaration, error) bool) {
		for _, fd := range set.Files {
			opts, ok, err := ModuleOptions(fd.Options(), xt)
			if err != nil {
				yield(Declaration{}, fmt.Errorf("%s: %w", fd.Path(), err))
				return
			}
			if !ok {
				continue
			}

			decl, err := declare(fd.Path(), opts, suffix)
			if !yield(decl, err) || err != nil {
				return
			}
		}
	}
}

func declare(file string, opts *Options, suffix string) (Declaration, error) {
	if opts.Name == "" {
		return Declaration{}, fmt.Errorf("%w: %s", ErrMissingName, file)
	}
	if opts.RootMessage == "" {
		return Declaration{}, fmt.Errorf("%w: %s", ErrMissingRootMessage, file)
	}

	base := path.Base(file)
	if !strings.HasSuffix(base, suffix) || base == suffix {
		return Declaration{}, fmt.Errorf("%w: %s does not end in %q", ErrSuffixMismatch, file, suffix)
	}

	return Declaration{
		Name:         opts.Name,
		ProtoModule:  strings.TrimSuffix(base, suffix),
		RustModule:   opts.RustModule,
		CargoFeature: opts.CargoFeature,
		RootMessage:  opts.RootMessage,
		File:         file,
	}, nil
}

// Collect drains a declaration sequence. Besides the errors reported by the
// sequence itself it rejects duplicate module names and host module or
// feature names that cannot appear in generated code.
func Collect(seq iter.Seq2[Declaration, error]) ([]Declaration, error) {
	var decls []Declaration
	seen := make(map[string]string)

	for decl, err := range seq {
		if err != nil {
			return nil, err
		}
		if other, ok := seen[decl.Name]; ok {
			return nil, fmt.Errorf("%w: %q declared by %s and %s", ErrDuplicateModule, decl.Name, other, decl.File)
		}
		seen[decl.Name] = decl.File

		if decl.RustModule != "" && !identifierPattern.MatchString(decl.RustModule) {
			return nil, fmt.Errorf("%w: rust_module %q in %s", ErrInvalidIdentifier, decl.RustModule, decl.File)
		}
		if decl.CargoFeature != "" && !featurePattern.MatchString(decl.CargoFeature) {
			return nil, fmt.Errorf("%w: cargo_feature %q in %s", ErrInvalidIdentifier, decl.CargoFeature, decl.File)
		}
		if !identifierPattern.MatchString(decl.ProtoModule) {
			return nil, fmt.Errorf("%w: schema module %q in %s", ErrInvalidIdentifier, decl.ProtoModule, decl.File)
		}

		decls = append(decls, decl)
	}

	return decls, nil
}
