package cli

import (
	"flag"
)

func newGenerateCommand() *Command {
	cmd := &Command{
		Name:        "generate",
		Description: "Compile schemas and write the module registry files",
		Flags:       flag.NewFlagSet("generate", flag.ExitOnError),
		Run:         runGenerate,
	}

	cmd.Flags.String("dialect", "", "Registry file dialect: rust or go (overrides MODGEN_DIALECT)")
	cmd.Flags.String("backend", "", "Binding backend: pure, protoc or docker (overrides MODGEN_BACKEND)")

	return cmd
}

func runGenerate(args []string) error {
	cmd := newGenerateCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	ctx, stop := commandContext()
	defer stop()

	env, err := setup(ctx, overrides{
		dialect: cmd.Flags.Lookup("dialect").Value.String(),
		backend: cmd.Flags.Lookup("backend").Value.String(),
	})
	if err != nil {
		return err
	}
	defer env.Close()

	orch, err := env.orchestrator()
	if err != nil {
		return err
	}
	defer orch.Close()

	_, err = orch.Run(ctx)
	return err
}
