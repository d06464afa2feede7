package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/funvibe/dynlink/internal/config"
	"github.com/funvibe/dynlink/internal/surface"
	"github.com/funvibe/dynlink/pkg/dynlink"
	"github.com/funvibe/dynlink/pkg/linker"
)

const flagConfig = "config"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dynlink [sub-command]",
		Short: "Inspect and exercise dynamic linking of Go values",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage: true,
	}
	cmd.PersistentFlags().String(flagConfig, "", "path to dynlink.yaml (default: ./"+config.DefaultConfigFile+" if present)")
	cmd.AddCommand(newSurfaceCommand(), newLinkCommand(), newVersionCommand())
	return cmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString(flagConfig)
	if err != nil {
		return nil, err
	}
	return config.LoadConfig(path)
}

func newSurfaceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "surface <package> <Type>",
		Short: "Print the properties, methods and collection operations linkable on a type",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(cmd); err != nil {
				return err
			}
			value, err := cmd.Flags().GetBool("value")
			if err != nil {
				return err
			}
			ins := surface.NewInspector("")
			paths, err := ins.Load(args[0])
			if err != nil {
				return err
			}
			if len(paths) != 1 {
				return fmt.Errorf("%s matches %d packages, want exactly one", args[0], len(paths))
			}
			report, err := ins.Inspect(paths[0], args[1], !value)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report, newPalette(cmd.OutOrStdout()))
			return nil
		},
	}
	cmd.Flags().Bool("value", false, "inspect the value type instead of the pointer type")
	return cmd
}

func newLinkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "link <descriptor> <receiver> [args...]",
		Short: "Link an operation against a built-in demo receiver and invoke it",
		Long: `Link an operation against a built-in demo receiver and invoke it.

Receivers: ` + strings.Join(demoNames(), ", ") + `.
Arguments are parsed as integers, then floats, then taken as strings.`,
		Example: `  dynlink link dyn:getProp:name person
  dynlink link dyn:callPropWithThis:greet person Bob
  dynlink link dyn:new widget-class 3
  dynlink link dyn:getItem list 1`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			recv, ok := demoReceiver(args[1])
			if !ok {
				return fmt.Errorf("unknown receiver %q (want one of %s)", args[1], strings.Join(demoNames(), ", "))
			}
			callArgs := append([]any{recv}, parseArgs(args[2:])...)

			f := dynlink.NewFactory(dynlink.FromConfig(cfg), dynlink.WithLogger(cfg.Log.NewLogger(cmd.ErrOrStderr())))
			d := f.CreateLinker()
			desc := linker.NewCallDescriptor(args[0], len(callArgs))
			site := f.NewCallSite(d, desc)

			out := cmd.OutOrStdout()
			p := newPalette(out)
			res, err := site.Invoke(callArgs...)
			if err != nil {
				fmt.Fprintf(out, "%s %s: %v\n", p.bad("failed"), desc, err)
				return err
			}
			fmt.Fprintf(out, "%s %s on %T (site %s, %s)\n", p.good("linked"), desc, recv, site.ID(), site.State())
			fmt.Fprintf(out, "result: %v\n", res)
			return nil
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the dynlink version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dynlink %s\n", config.Version)
		},
	}
}

func parseArgs(raw []string) []any {
	out := make([]any, len(raw))
	for i, s := range raw {
		if n, err := strconv.Atoi(s); err == nil {
			out[i] = n
		} else if f, err := strconv.ParseFloat(s, 64); err == nil {
			out[i] = f
		} else {
			out[i] = s
		}
	}
	return out
}

func printReport(w io.Writer, r *surface.Report, p palette) {
	fmt.Fprintf(w, "%s %s\n", p.good("type"), r.Type)
	if len(r.Properties) > 0 {
		fmt.Fprintln(w, "properties:")
		for _, prop := range r.Properties {
			mode := "r"
			if prop.Writable {
				mode = "rw"
			}
			if !prop.Readable {
				mode = "w"
			}
			fmt.Fprintf(w, "  %-20s %-3s %-20s via %s\n", prop.Name, mode, prop.Type, prop.Via)
		}
	}
	if len(r.Methods) > 0 {
		fmt.Fprintln(w, "methods:")
		for _, m := range r.Methods {
			arity := strconv.Itoa(m.Arity)
			if m.Variadic {
				arity = strconv.Itoa(m.Arity-1) + "+"
			}
			fmt.Fprintf(w, "  %-20s args %-4s results %d\n", m.Name, arity, m.Results)
		}
	}
	if len(r.Collection) > 0 {
		fmt.Fprintf(w, "collection: %s\n", strings.Join(r.Collection, ", "))
	}
}

// palette colours labels when writing to a terminal.
type palette struct{ color bool }

func newPalette(w io.Writer) palette {
	f, ok := w.(*os.File)
	if !ok {
		return palette{}
	}
	if _, off := os.LookupEnv("NO_COLOR"); off {
		return palette{}
	}
	return palette{color: isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())}
}

func (p palette) paint(code, s string) string {
	if !p.color {
		return s
	}
	return "\x1b[" + code + "m" + s + "\x1b[0m"
}

func (p palette) good(s string) string { return p.paint("32", s) }

func (p palette) bad(s string) string { return p.paint("31", s) }
