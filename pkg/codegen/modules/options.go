package modules

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/platinummonkey/modgen/pkg/codegen/compiler"
)

const fileOptionsName protoreflect.FullName = "google.protobuf.FileOptions"

// Options is the content of the module options extension on one file
type Options struct {
	Name         string
	RootMessage  string
	RustModule   string
	CargoFeature string
}

// LookupExtension finds the extension called fullName in the descriptor
// closure and returns it as a dynamic extension type
func LookupExtension(set *compiler.DescriptorSet, fullName string) (protoreflect.ExtensionType, error) {
	files := new(protoregistry.Files)
	for _, fd := range set.Closure() {
		if err := files.RegisterFile(fd); err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", fd.Path(), err)
		}
	}

	desc, err := files.FindDescriptorByName(protoreflect.FullName(fullName))
	if errors.Is(err, protoregistry.NotFound) {
		return nil, fmt.Errorf("%w: %s", ErrExtensionNotFound, fullName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s: %w", fullName, err)
	}

	xd, ok := desc.(protoreflect.ExtensionDescriptor)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not an extension", ErrNotFileOption, fullName)
	}
	if xd.ContainingMessage().FullName() != fileOptionsName {
		return nil, fmt.Errorf("%w: %s extends %s", ErrNotFileOption, fullName, xd.ContainingMessage().FullName())
	}
	if xd.Message() == nil {
		return nil, fmt.Errorf("%w: %s is not a message field", ErrNotFileOption, fullName)
	}

	return dynamicpb.NewExtensionType(xd), nil
}

// ModuleOptions reads the module options extension from a file's options.
// The options are decoded again with a resolver that knows xt, so the result
// is the same whether the compiler left the extension as a known field or as
// unknown bytes. The bool is false when the extension is absent.
func ModuleOptions(opts proto.Message, xt protoreflect.ExtensionType) (*Options, bool, error) {
	if opts == nil || !opts.ProtoReflect().IsValid() {
		return nil, false, nil
	}

	raw, err := proto.Marshal(opts)
	if err != nil {
		return nil, false, fmt.Errorf("failed to encode file options: %w", err)
	}

	types := new(protoregistry.Types)
	if err := types.RegisterExtension(xt); err != nil {
		return nil, false, fmt.Errorf("failed to register extension: %w", err)
	}

	decoded := &descriptorpb.FileOptions{}
	if err := (proto.UnmarshalOptions{Resolver: types}).Unmarshal(raw, decoded); err != nil {
		return nil, false, fmt.Errorf("failed to decode file options: %w", err)
	}
	if !proto.HasExtension(decoded, xt) {
		return nil, false, nil
	}

	msg := decoded.ProtoReflect().Get(xt.TypeDescriptor()).Message()
	return &Options{
		Name:         stringField(msg, "name"),
		RootMessage:  stringField(msg, "root_message"),
		RustModule:   stringField(msg, "rust_module"),
		CargoFeature: stringField(msg, "cargo_feature"),
	}, true, nil
}

// stringField returns the value of a set string field, or "" when the field
// is unset or does not exist
func stringField(msg protoreflect.Message, name protoreflect.Name) string {
	fd := msg.Descriptor().Fields().ByName(name)
	if fd == nil || fd.Kind() != protoreflect.StringKind || !msg.Has(fd) {
		return ""
	}
	return msg.Get(fd).String()
}
