package cli

import (
	"flag"
	"fmt"
	"maps"
	"os"
	"slices"
)

// Command represents a CLI command
type Command struct {
	Name        string
	Description string
	Run         func(args []string) error
	Subcommands map[string]*Command
	Flags       *flag.FlagSet
}

// NewRootCommand creates the root command
func NewRootCommand() *Command {
	root := &Command{
		Name:        "modgen",
		Description: "modgen - module registry generator for protobuf schemas",
		Subcommands: make(map[string]*Command),
		Flags:       flag.NewFlagSet("modgen", flag.ExitOnError),
	}

	// Add subcommands
	root.Subcommands["generate"] = newGenerateCommand()
	root.Subcommands["watch"] = newWatchCommand()
	root.Subcommands["modules"] = newModulesCommand()
	root.Subcommands["descriptors"] = newDescriptorsCommand()

	return root
}

// Execute runs the command with the process arguments
func (c *Command) Execute() error {
	return c.ExecuteArgs(os.Args[1:])
}

// ExecuteArgs runs the command with args, which exclude the program name
func (c *Command) ExecuteArgs(args []string) error {
	if len(args) == 0 {
		return c.usage()
	}

	// Check for help flag
	if args[0] == "-h" || args[0] == "--help" {
		return c.usage()
	}

	// Check for subcommand
	if subcmd, ok := c.Subcommands[args[0]]; ok {
		return subcmd.Run(args[1:])
	}

	return fmt.Errorf("unknown command: %s", args[0])
}

// usage prints the command usage
func (c *Command) usage() error {
	fmt.Printf("Usage: %s <command> [args]\n\n", c.Name)
	fmt.Printf("Commands:\n")
	for _, name := range slices.Sorted(maps.Keys(c.Subcommands)) {
		fmt.Printf("  %-15s %s\n", name, c.Subcommands[name].Description)
	}
	return nil
}
