package cli

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/platinummonkey/modgen/pkg/buildsignal"
	"github.com/platinummonkey/modgen/pkg/codegen/modules"
	"github.com/platinummonkey/modgen/pkg/codegen/orchestrator"
)

func newModulesCommand() *Command {
	cmd := &Command{
		Name:        "modules",
		Description: "List the module declarations found in the schemas",
		Flags:       flag.NewFlagSet("modules", flag.ExitOnError),
		Run:         runModules,
	}

	cmd.Flags.Bool("json", false, "Output in JSON format")

	return cmd
}

func runModules(args []string) error {
	cmd := newModulesCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}
	outputJSON := cmd.Flags.Lookup("json").Value.String() == "true"

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
	return writeModules(os.Stdout, inspection.Declarations, outputJSON)
}

// writeModules prints declarations as a table or as JSON
func writeModules(out io.Writer, decls []modules.Declaration, outputJSON bool) error {
	if outputJSON {
		if decls == nil {
			decls = []modules.Declaration{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(decls)
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "NAME\tPROTO MODULE\tRUST MODULE\tFEATURE\tROOT MESSAGE\tFILE")
	for _, d := range decls {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			d.Name,
			d.ProtoModule,
			orDash(d.RustModule),
			orDash(d.CargoFeature),
			d.RootMessage,
			d.File,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(out, "\nTotal: %d modules\n", len(decls))
	return err
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
