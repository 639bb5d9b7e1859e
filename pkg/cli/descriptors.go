package cli

import (
	"flag"
	"fmt"
	"os"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/platinummonkey/modgen/pkg/buildsignal"
	"github.com/platinummonkey/modgen/pkg/codegen/compiler"
	"github.com/platinummonkey/modgen/pkg/codegen/orchestrator"
)

// Descriptor set output formats
const (
	formatBinary = "binary"
	formatJSON   = "json"
)

func newDescriptorsCommand() *Command {
	cmd := &Command{
		Name:        "descriptors",
		Description: "Write the parsed FileDescriptorSet of all schemas and their imports",
		Flags:       flag.NewFlagSet("descriptors", flag.ExitOnError),
		Run:         runDescriptors,
	}

	cmd.Flags.String("o", "", "Output file (default: stdout)")
	cmd.Flags.String("format", formatBinary, "Output format: binary or json")

	return cmd
}

func runDescriptors(args []string) error {
	cmd := newDescriptorsCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}
	output := cmd.Flags.Lookup("o").Value.String()
	format := cmd.Flags.Lookup("format").Value.String()

	ctx, stop := commandContext()
	defer stop()

	env, err := setup(ctx, overrides{})
	if err != nil {
		return err
	}
	defer env.Close()

	orch, err := env.orchestrator(orchestrator.WithSignaler(buildsignal.Discard()))
	if err != nil {
		return err
	}
	defer orch.Close()

	inspection, err := orch.Inspect(ctx)
	if err != nil {
		return err
	}

	data, err := encodeDescriptors(inspection.Descriptors, format)
	if err != nil {
		return err
	}
	return writeOutput(output, data)
}

// encodeDescriptors serializes the descriptor set in the requested format.
// Custom options appear in JSON under their bracketed extension names, so
// decoding the JSON form needs a resolver such as set.Types().
func encodeDescriptors(set *compiler.DescriptorSet, format string) ([]byte, error) {
	switch format {
	case formatBinary:
		return proto.MarshalOptions{Deterministic: true}.Marshal(set.FileDescriptorSet())
	case formatJSON:
		types, err := set.Types()
		if err != nil {
			return nil, err
		}
		data, err := protojson.MarshalOptions{Multiline: true, Indent: "  ", Resolver: types}.Marshal(set.FileDescriptorSet())
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	default:
		return nil, fmt.Errorf("unknown format %q (must be %s or %s)", format, formatBinary, formatJSON)
	}
}

// writeOutput writes data to path, or to stdout when path is empty
func writeOutput(path string, data []byte) (err error) {
	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
